// Package domain defines persistence models; this file holds the Token
// credential model used for refresh tokens and one-time codes.
package domain

import "time"

// Token purposes. Each purpose allows at most one live token per user:
// issuing a new one revokes prior tokens of the same (user, type) first.
const (
	TokenTypeRefresh     = "refresh"
	TokenTypeVerifyEmail = "verify_email"
	TokenTypeResetPass   = "reset_password"
)

// Token is a persisted credential: a refresh token, an email verification
// code, or a password reset code.
//
// Liveness is two-fold: a token is live iff IsActive is true AND the current
// time is before ExpiresAt. IsActive only ever moves from true to false,
// either reactively when a read finds the expiry passed or proactively by
// the sweeper. A replacement token gets a fresh value and expiry.
type Token struct {
	ID        string    `json:"id"      gorm:"type:char(36);primaryKey"`
	UserID    string    `json:"user_id" gorm:"type:char(36);not null;index:idx_user_tokens,priority:1"`
	Type      string    `json:"type"    gorm:"type:varchar(32);not null;index:idx_user_tokens,priority:2"`
	Value     string    `json:"-"       gorm:"type:varchar(255);not null;uniqueIndex"`
	IsActive  bool      `json:"is_active"   gorm:"not null;default:true;index"`
	ExpiresAt time.Time `json:"expires_at"  gorm:"not null;index"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for Token.
func (Token) TableName() string { return "tokens" }

// Live reports whether the token is usable at the given instant.
func (t *Token) Live(now time.Time) bool {
	return t.IsActive && now.Before(t.ExpiresAt)
}
