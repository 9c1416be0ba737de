package handlers

import (
	"net/http"
	"testing"

	"github.com/roomly/go-rental-backend/internal/domain"
	"github.com/roomly/go-rental-backend/internal/services"
)

func TestRegister_Validation(t *testing.T) {
	h, auth, _, _ := newStubHandlers()
	auth.register = func(_, _, _ string) (*domain.User, error) {
		t.Fatal("service must not run for invalid payloads")
		return nil, nil
	}
	r := newTestRouter(h)

	for name, body := range map[string]RegisterRequest{
		"bad email":      {Email: "not-an-email", Password: "password123"},
		"short password": {Email: "a@example.com", Password: "short"},
	} {
		if w := doJSON(r, http.MethodPost, "/auth/register", body); w.Code != http.StatusBadRequest {
			t.Fatalf("%s: status %d", name, w.Code)
		}
	}
}

func TestRegister_EmailTakenIsConflict(t *testing.T) {
	h, auth, _, _ := newStubHandlers()
	auth.register = func(_, _, _ string) (*domain.User, error) {
		return nil, services.ErrEmailTaken
	}
	r := newTestRouter(h)

	w := doJSON(r, http.MethodPost, "/auth/register", RegisterRequest{Email: "a@example.com", Password: "password123"})
	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d", w.Code)
	}
	if resp := decodeError(t, w); resp.Code != ErrCodeConflict {
		t.Fatalf("code = %q", resp.Code)
	}
}

func TestLogin_ErrorMapping(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"wrong credentials", services.ErrInvalidCredentials, http.StatusUnauthorized, ErrCodeUnauthorized},
		{"unverified email", services.ErrEmailNotVerified, http.StatusForbidden, ErrCodeForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h, auth, _, _ := newStubHandlers()
			auth.login = func(_, _ string) (*services.LoginResult, error) { return nil, tc.err }
			r := newTestRouter(h)

			w := doJSON(r, http.MethodPost, "/auth/login", LoginRequest{Email: "a@example.com", Password: "password123"})
			if w.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tc.wantStatus)
			}
			if resp := decodeError(t, w); resp.Code != tc.wantCode {
				t.Fatalf("code = %q, want %q", resp.Code, tc.wantCode)
			}
		})
	}
}

func TestVerifyAndRefresh_TokenInvalid(t *testing.T) {
	h, auth, _, _ := newStubHandlers()
	auth.verify = func(string) error { return services.ErrTokenInvalid }
	auth.refresh = func(string) (string, error) { return "", services.ErrTokenInvalid }
	r := newTestRouter(h)

	w := doJSON(r, http.MethodPost, "/auth/verify", VerifyEmailRequest{Code: "stale"})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("verify status = %d", w.Code)
	}
	if resp := decodeError(t, w); resp.Code != ErrCodeTokenInvalid {
		t.Fatalf("verify code = %q", resp.Code)
	}

	w = doJSON(r, http.MethodPost, "/auth/refresh", RefreshRequest{RefreshToken: "stale"})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("refresh status = %d", w.Code)
	}
	if resp := decodeError(t, w); resp.Code != ErrCodeTokenInvalid {
		t.Fatalf("refresh code = %q", resp.Code)
	}
}
