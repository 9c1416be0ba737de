// Account HTTP handlers.
//
// This file exposes REST endpoints for the account lifecycle:
//   - POST /auth/register  (create account, send verification code)
//   - POST /auth/verify    (consume a verification code)
//   - POST /auth/login     (exchange credentials for tokens)
//   - POST /auth/refresh   (exchange a refresh token for a new access token)
//   - POST /auth/logout    (revoke the caller's refresh token)
//
// Handlers are transport-thin: they validate input, call AuthService, and
// translate sentinel errors into stable HTTP codes.
package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/roomly/go-rental-backend/internal/services"
)

//
// DTOs
//

// RegisterRequest is the JSON payload for creating an account.
type RegisterRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=8"`
	DisplayName string `json:"display_name"`
}

// VerifyEmailRequest carries the one-time verification code.
type VerifyEmailRequest struct {
	Code string `json:"code" binding:"required"`
}

// LoginRequest is the JSON payload for logging in.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// RefreshRequest carries the refresh token to exchange.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// RefreshResponse returns the replacement access token.
type RefreshResponse struct {
	AccessToken string `json:"access_token"`
}

//
// Handlers
//

// Register creates an account for the given email and password. The account
// starts unverified; a verification code is issued and mailed out of band.
func (h *Handlers) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "email and password (min 8 chars) required")
		return
	}

	u, err := h.authSvc.Register(c.Request.Context(), req.Email, req.Password, req.DisplayName)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrEmailTaken):
			fail(c, http.StatusConflict, ErrCodeConflict, "email already registered")
		default:
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		}
		return
	}
	ok(c, http.StatusCreated, u)
}

// VerifyEmail consumes a verification code. The code is single-use: a second
// submission of the same code fails with token_invalid.
func (h *Handlers) VerifyEmail(c *gin.Context) {
	var req VerifyEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Code) == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "code required")
		return
	}

	if err := h.authSvc.VerifyEmail(c.Request.Context(), strings.TrimSpace(req.Code)); err != nil {
		switch {
		case errors.Is(err, services.ErrTokenInvalid):
			fail(c, http.StatusUnauthorized, ErrCodeTokenInvalid, "code invalid or expired")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}
	noContent(c)
}

// Login exchanges credentials for an access token and a refresh token.
// Wrong email and wrong password are deliberately indistinguishable.
func (h *Handlers) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "email and password required")
		return
	}

	res, err := h.authSvc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidCredentials):
			fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "invalid credentials")
		case errors.Is(err, services.ErrEmailNotVerified):
			fail(c, http.StatusForbidden, ErrCodeForbidden, "email not verified")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}
	ok(c, http.StatusOK, res)
}

// Refresh exchanges a live refresh token for a fresh access token. An
// expired or revoked refresh token fails with token_invalid; the client must
// log in again.
func (h *Handlers) Refresh(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "refresh_token required")
		return
	}

	access, err := h.authSvc.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrTokenInvalid):
			fail(c, http.StatusUnauthorized, ErrCodeTokenInvalid, "refresh token invalid or expired")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}
	ok(c, http.StatusOK, RefreshResponse{AccessToken: access})
}

// Logout revokes the caller's refresh token. The current access token stays
// valid until its own expiry; only the refresh chain is severed.
func (h *Handlers) Logout(c *gin.Context) {
	uid := userID(c)
	if uid == "" {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "authentication required")
		return
	}
	if err := h.authSvc.Logout(c.Request.Context(), uid); err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	noContent(c)
}
