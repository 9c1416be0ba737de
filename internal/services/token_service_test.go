package services

import (
	"errors"
	"testing"
	"time"

	"github.com/roomly/go-rental-backend/internal/domain"
	"github.com/roomly/go-rental-backend/internal/repo"
)

func TestTokenService_Issue_OneLivePerUserAndType(t *testing.T) {
	db := newTestDB(t, "tokensvc")
	base := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	svc := &TokenService{DB: db, Now: fixedClock(base)}

	first, err := svc.Issue(testCtx, "u1", domain.TokenTypeRefresh, time.Hour)
	if err != nil {
		t.Fatalf("issue first: %v", err)
	}
	second, err := svc.Issue(testCtx, "u1", domain.TokenTypeRefresh, time.Hour)
	if err != nil {
		t.Fatalf("issue second: %v", err)
	}
	if first.Value == second.Value {
		t.Fatal("reissue must mint a new value")
	}

	n, err := repo.CountLiveTokens(testCtx, db, "u1", domain.TokenTypeRefresh, base)
	if err != nil {
		t.Fatalf("count live: %v", err)
	}
	if n != 1 {
		t.Fatalf("live tokens after reissue = %d, want 1", n)
	}

	// the superseded value is gone
	if _, err := svc.Peek(testCtx, first.Value, domain.TokenTypeRefresh); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("peek superseded: got %v, want ErrTokenInvalid", err)
	}
	if _, err := svc.Peek(testCtx, second.Value, domain.TokenTypeRefresh); err != nil {
		t.Fatalf("peek current: %v", err)
	}

	// tokens of another purpose are untouched by reissue
	verify, err := svc.Issue(testCtx, "u1", domain.TokenTypeVerifyEmail, time.Hour)
	if err != nil {
		t.Fatalf("issue verify: %v", err)
	}
	if _, err := svc.Issue(testCtx, "u1", domain.TokenTypeRefresh, time.Hour); err != nil {
		t.Fatalf("reissue refresh: %v", err)
	}
	if _, err := svc.Peek(testCtx, verify.Value, domain.TokenTypeVerifyEmail); err != nil {
		t.Fatalf("verify token must survive refresh reissue: %v", err)
	}
}

func TestTokenService_Peek_ReactiveExpiry(t *testing.T) {
	db := newTestDB(t, "tokensvc")
	base := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	svc := &TokenService{DB: db, Now: fixedClock(base)}

	tok, err := svc.Issue(testCtx, "u1", domain.TokenTypeRefresh, time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	// just before expiry the token is live
	svc.Now = fixedClock(base.Add(59 * time.Minute))
	if _, err := svc.Peek(testCtx, tok.Value, domain.TokenTypeRefresh); err != nil {
		t.Fatalf("peek before expiry: %v", err)
	}

	// at the deadline it is not: expiry is exclusive
	svc.Now = fixedClock(base.Add(time.Hour))
	if _, err := svc.Peek(testCtx, tok.Value, domain.TokenTypeRefresh); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("peek at expiry: got %v, want ErrTokenInvalid", err)
	}

	// the read flipped the row inactive on the spot
	row, err := repo.GetTokenByValue(testCtx, db, tok.Value, domain.TokenTypeRefresh)
	if err != nil {
		t.Fatalf("load row: %v", err)
	}
	if row.IsActive {
		t.Fatal("expired token must be deactivated on read")
	}

	// even with the clock rolled back the flip does not revert
	svc.Now = fixedClock(base)
	if _, err := svc.Peek(testCtx, tok.Value, domain.TokenTypeRefresh); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("peek after deactivation: got %v, want ErrTokenInvalid", err)
	}
}

func TestTokenService_Consume_SingleUse(t *testing.T) {
	db := newTestDB(t, "tokensvc")
	base := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	svc := &TokenService{DB: db, Now: fixedClock(base)}

	tok, err := svc.Issue(testCtx, "u1", domain.TokenTypeVerifyEmail, time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	got, err := svc.Consume(testCtx, tok.Value, domain.TokenTypeVerifyEmail)
	if err != nil {
		t.Fatalf("consume: %v", err)
	}
	if got.UserID != "u1" {
		t.Fatalf("consume returned user %q", got.UserID)
	}
	if _, err := svc.Consume(testCtx, tok.Value, domain.TokenTypeVerifyEmail); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("second consume: got %v, want ErrTokenInvalid", err)
	}
}

func TestTokenService_SweepExpired_Idempotent(t *testing.T) {
	db := newTestDB(t, "tokensvc")
	base := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	svc := &TokenService{DB: db, Now: fixedClock(base)}

	if _, err := svc.Issue(testCtx, "u1", domain.TokenTypeRefresh, 10*time.Minute); err != nil {
		t.Fatalf("issue u1: %v", err)
	}
	if _, err := svc.Issue(testCtx, "u2", domain.TokenTypeRefresh, 20*time.Minute); err != nil {
		t.Fatalf("issue u2: %v", err)
	}
	live, err := svc.Issue(testCtx, "u3", domain.TokenTypeRefresh, 2*time.Hour)
	if err != nil {
		t.Fatalf("issue u3: %v", err)
	}

	svc.Now = fixedClock(base.Add(30 * time.Minute))
	n, err := svc.SweepExpired(testCtx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if n != 2 {
		t.Fatalf("first sweep flipped %d rows, want 2", n)
	}

	// nothing newly expired: the pass is a no-op
	n, err = svc.SweepExpired(testCtx)
	if err != nil {
		t.Fatalf("second sweep: %v", err)
	}
	if n != 0 {
		t.Fatalf("second sweep flipped %d rows, want 0", n)
	}

	if _, err := svc.Peek(testCtx, live.Value, domain.TokenTypeRefresh); err != nil {
		t.Fatalf("unexpired token must survive the sweep: %v", err)
	}
}

func TestTokenService_Revoke(t *testing.T) {
	db := newTestDB(t, "tokensvc")
	svc := NewTokenService(db)

	tok, err := svc.Issue(testCtx, "u1", domain.TokenTypeRefresh, time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if err := svc.Revoke(testCtx, "u1", domain.TokenTypeRefresh); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if _, err := svc.Peek(testCtx, tok.Value, domain.TokenTypeRefresh); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("peek after revoke: got %v, want ErrTokenInvalid", err)
	}
}
