// Package services – TokenService
//
// This file implements the token lifecycle: issuance (revoke-then-insert so
// at most one live token exists per user and purpose), reactive expiry on
// read, explicit revocation, and the bulk expiry flip invoked by the
// sweeper. The active→expired transition is one-way: an expired token is
// never reactivated, a replacement is issued with a fresh value and expiry.
package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/roomly/go-rental-backend/internal/domain"
	"github.com/roomly/go-rental-backend/internal/repo"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// TokenService owns persisted credentials: refresh tokens, email
// verification codes, and password reset codes.
type TokenService struct {
	DB *gorm.DB

	// Now is the clock; tests override it. Defaults to time.Now (UTC).
	Now func() time.Time
}

// NewTokenService constructs a TokenService with the real clock.
func NewTokenService(db *gorm.DB) *TokenService {
	return &TokenService{DB: db, Now: func() time.Time { return time.Now().UTC() }}
}

func (s *TokenService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

// Issue creates a fresh token of the given type for userID, valid for ttl.
// Any prior tokens of the same (user, type) are revoked first, so exactly
// one live token per purpose exists afterward. The revoke and insert are two
// statements; a race between concurrent issuances for the same user can
// briefly leave two rows, which the unique value column and the next
// issuance clean up.
func (s *TokenService) Issue(ctx context.Context, userID, typ string, ttl time.Duration) (*domain.Token, error) {
	tr := otel.Tracer("services/TokenService")
	ctx, span := tr.Start(ctx, "Issue",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.String("token.type", typ),
		),
	)
	defer span.End()

	if _, err := repo.DeleteTokensFor(ctx, s.DB, userID, typ); err != nil {
		return nil, err
	}
	value, err := randomTokenValue()
	if err != nil {
		return nil, err
	}
	return repo.CreateToken(ctx, s.DB, userID, typ, value, s.now().Add(ttl))
}

// Peek returns the token for value/typ iff it is live. A token found
// active but past its expiry is flipped inactive on the spot (reactive
// expiry) and reported as ErrTokenInvalid, the same as an unknown value.
func (s *TokenService) Peek(ctx context.Context, value, typ string) (*domain.Token, error) {
	t, err := repo.GetTokenByValue(ctx, s.DB, value, typ)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrTokenInvalid
	}
	if err != nil {
		return nil, err
	}
	now := s.now()
	if !t.IsActive {
		return nil, ErrTokenInvalid
	}
	if !now.Before(t.ExpiresAt) {
		// The sweeper would get to it eventually; do it now.
		if derr := repo.DeactivateToken(ctx, s.DB, value); derr != nil {
			return nil, derr
		}
		return nil, ErrTokenInvalid
	}
	return t, nil
}

// Consume validates value/typ like Peek and, when live, deletes the row so
// the token is single-use. Verification and reset codes go through here.
func (s *TokenService) Consume(ctx context.Context, value, typ string) (*domain.Token, error) {
	t, err := s.Peek(ctx, value, typ)
	if err != nil {
		return nil, err
	}
	if _, err := repo.DeleteTokensFor(ctx, s.DB, t.UserID, typ); err != nil {
		return nil, err
	}
	return t, nil
}

// Revoke removes all tokens of one (user, type) pair, e.g. on logout.
func (s *TokenService) Revoke(ctx context.Context, userID, typ string) error {
	_, err := repo.DeleteTokensFor(ctx, s.DB, userID, typ)
	return err
}

// SweepExpired bulk-transitions every expired-but-active token to inactive
// and returns the number of rows affected. It is idempotent: a second
// invocation with no newly expired tokens affects zero rows.
func (s *TokenService) SweepExpired(ctx context.Context) (int64, error) {
	return repo.ExpireTokens(ctx, s.DB, s.now())
}

// randomTokenValue produces a 32-byte hex-encoded opaque value.
func randomTokenValue() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
