// Package services – UserService
//
// This file implements account flows: registration with an email
// verification code, verification, login (bcrypt check + JWT access token +
// persisted refresh token), logout, and refresh. Verification codes and
// refresh tokens are rows owned by TokenService, so each flow inherits the
// one-live-token-per-purpose invariant.
package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/roomly/go-rental-backend/internal/domain"
	"github.com/roomly/go-rental-backend/internal/repo"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Mailer delivers account emails. It is an external collaborator; the
// zero-value NoopMailer drops everything.
type Mailer interface {
	SendVerification(ctx context.Context, email, code string) error
}

// NoopMailer is the default Mailer: it sends nothing.
type NoopMailer struct{}

// SendVerification discards the code without error.
func (NoopMailer) SendVerification(context.Context, string, string) error { return nil }

// UserService owns account registration and authentication.
type UserService struct {
	DB     *gorm.DB
	Tokens *TokenService
	Mailer Mailer

	// JWTSecret signs access tokens (HMAC-SHA256).
	JWTSecret []byte
	// AccessTTL bounds the JWT lifetime.
	AccessTTL time.Duration
	// RefreshTTL bounds the persisted refresh token lifetime.
	RefreshTTL time.Duration
	// VerifyTTL bounds the email verification code lifetime.
	VerifyTTL time.Duration
}

// NewUserService constructs a UserService with sane TTL defaults.
func NewUserService(db *gorm.DB, tokens *TokenService, secret []byte) *UserService {
	return &UserService{
		DB:         db,
		Tokens:     tokens,
		Mailer:     NoopMailer{},
		JWTSecret:  secret,
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 30 * 24 * time.Hour,
		VerifyTTL:  24 * time.Hour,
	}
}

// LoginResult bundles what a successful login returns.
type LoginResult struct {
	User         *domain.User `json:"user"`
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
}

// Register creates the account, issues a verification code, and hands it to
// the mailer. Mail delivery failure does not roll the account back; the
// code can be re-issued.
func (s *UserService) Register(ctx context.Context, email, password, displayName string) (*domain.User, error) {
	tr := otel.Tracer("services/UserService")
	ctx, span := tr.Start(ctx, "Register",
		trace.WithAttributes(attribute.String("user.email_domain", emailDomain(email))),
	)
	defer span.End()

	email = strings.TrimSpace(email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, errors.New("invalid email")
	}
	if len(password) < 8 {
		return nil, errors.New("password must be at least 8 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	u, err := repo.CreateUser(ctx, s.DB, email, string(hash), strings.TrimSpace(displayName))
	if errors.Is(err, repo.ErrDuplicateEmail) {
		return nil, ErrEmailTaken
	}
	if err != nil {
		return nil, err
	}

	code, err := s.Tokens.Issue(ctx, u.ID, domain.TokenTypeVerifyEmail, s.VerifyTTL)
	if err != nil {
		return nil, err
	}
	_ = s.Mailer.SendVerification(ctx, u.Email, code.Value)
	return u, nil
}

// VerifyEmail consumes a verification code and marks the account verified.
func (s *UserService) VerifyEmail(ctx context.Context, code string) error {
	t, err := s.Tokens.Consume(ctx, code, domain.TokenTypeVerifyEmail)
	if err != nil {
		return err
	}
	return repo.MarkEmailVerified(ctx, s.DB, t.UserID)
}

// Login checks credentials and, for a verified account, returns a signed
// access token plus a fresh refresh token. Issuing the refresh token
// revokes any previous one, so one session per user is live at a time.
func (s *UserService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	tr := otel.Tracer("services/UserService")
	ctx, span := tr.Start(ctx, "Login",
		trace.WithAttributes(attribute.String("user.email_domain", emailDomain(email))),
	)
	defer span.End()

	u, err := repo.GetUserByEmail(ctx, s.DB, email)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	if !u.EmailVerified {
		return nil, ErrEmailNotVerified
	}

	access, err := s.signAccessToken(u.ID)
	if err != nil {
		return nil, err
	}
	refresh, err := s.Tokens.Issue(ctx, u.ID, domain.TokenTypeRefresh, s.RefreshTTL)
	if err != nil {
		return nil, err
	}
	return &LoginResult{User: u, AccessToken: access, RefreshToken: refresh.Value}, nil
}

// Refresh trades a live refresh token for a new access token. The refresh
// row is left in place until logout or expiry.
func (s *UserService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	t, err := s.Tokens.Peek(ctx, refreshToken, domain.TokenTypeRefresh)
	if err != nil {
		return "", err
	}
	return s.signAccessToken(t.UserID)
}

// Logout revokes the caller's refresh token.
func (s *UserService) Logout(ctx context.Context, userID string) error {
	return s.Tokens.Revoke(ctx, userID, domain.TokenTypeRefresh)
}

// ParseAccessToken validates a JWT and returns the subject user ID.
func (s *UserService) ParseAccessToken(tokenString string) (string, error) {
	tok, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.JWTSecret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !tok.Valid {
		return "", ErrTokenInvalid
	}
	sub, err := tok.Claims.GetSubject()
	if err != nil || sub == "" {
		return "", ErrTokenInvalid
	}
	return sub, nil
}

// signAccessToken mints a HS256 JWT for userID.
func (s *UserService) signAccessToken(userID string) (string, error) {
	now := time.Now().UTC()
	ttl := s.AccessTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.JWTSecret)
}

// emailDomain extracts the part after '@' for low-cardinality tracing
// attributes; full addresses stay out of spans.
func emailDomain(email string) string {
	if i := strings.LastIndexByte(email, '@'); i >= 0 {
		return email[i+1:]
	}
	return ""
}
