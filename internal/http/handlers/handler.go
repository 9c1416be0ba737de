// Handler wiring.
//
// This file declares the service contracts the HTTP layer consumes and the
// Handlers aggregate that binds them. Handlers are transport-thin: they
// validate input, call application services, and translate results into HTTP
// responses (including conditional responses).
package handlers

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/roomly/go-rental-backend/internal/domain"
	"github.com/roomly/go-rental-backend/internal/query"
	"github.com/roomly/go-rental-backend/internal/services"
	"github.com/roomly/go-rental-backend/internal/utils"
)

//
// Service contracts (context-aware)
//

// AuthService defines account lifecycle operations consumed by HTTP handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type AuthService interface {
	// Register creates an account and sends a verification code.
	Register(ctx context.Context, email, password, displayName string) (*domain.User, error)
	// VerifyEmail consumes a verification code and marks the account verified.
	VerifyEmail(ctx context.Context, code string) error
	// Login checks credentials and returns access + refresh tokens.
	Login(ctx context.Context, email, password string) (*services.LoginResult, error)
	// Refresh exchanges a live refresh token for a fresh access token.
	Refresh(ctx context.Context, refreshToken string) (string, error)
	// Logout revokes the user's refresh token.
	Logout(ctx context.Context, userID string) error
}

// ListingService defines listing lifecycle and search operations.
type ListingService interface {
	// Create inserts a new listing owned by userID.
	Create(ctx context.Context, userID string, in services.ListingInput) (*domain.Listing, error)
	// Get fetches a single listing by id.
	Get(ctx context.Context, id string) (*domain.Listing, error)
	// Update rewrites a listing that belongs to userID.
	Update(ctx context.Context, userID, id string, in services.ListingInput) error
	// Delete removes a listing that belongs to userID.
	Delete(ctx context.Context, userID, id string) error
	// Search returns a filtered page of listings and pagination metadata.
	Search(ctx context.Context, f services.ListingFilter, page query.Page) ([]domain.Listing, query.Result, error)
}

// MessageService defines conversation and message operations.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type MessageService interface {
	// StartConversation opens (or returns) the conversation between two users.
	StartConversation(ctx context.Context, userID, peerID string) (*domain.Conversation, error)
	// ListConversations returns the user's conversations, most recent first.
	ListConversations(ctx context.Context, userID string) ([]domain.Conversation, error)
	// Send appends a message to a conversation the user participates in.
	Send(ctx context.Context, userID, conversationID, body string) (*domain.Message, error)
	// Recall withdraws a message while its recall window is still open.
	Recall(ctx context.Context, userID, messageID string) error
	// ListPage returns a page of messages within a conversation.
	ListPage(ctx context.Context, userID, conversationID string, page query.Page) ([]domain.Message, query.Result, error)
}

// NotificationService defines inbox read operations.
type NotificationService interface {
	// ListPage returns a page of the user's notifications, newest first.
	ListPage(ctx context.Context, userID string, unreadOnly bool, page query.Page) ([]domain.Notification, query.Result, error)
	// MarkRead flags a notification owned by userID as read.
	MarkRead(ctx context.Context, userID, id string) error
}

//
// Handler wiring
//

// Handlers groups HTTP endpoints for accounts, listings, conversations,
// messages, and notifications. It depends on abstract service interfaces to
// keep transport concerns separate from business logic.
type Handlers struct {
	authSvc    AuthService
	listingSvc ListingService
	msgSvc     MessageService
	notifSvc   NotificationService
}

// New constructs and returns a Handlers instance bound to the given services.
func New(authSvc AuthService, listingSvc ListingService, msgSvc MessageService, notifSvc NotificationService) *Handlers {
	return &Handlers{authSvc: authSvc, listingSvc: listingSvc, msgSvc: msgSvc, notifSvc: notifSvc}
}

// userID extracts the authenticated user id from Gin context (set by the
// upstream auth middleware). In test mode only, it falls back to the
// "X-User-ID" header so handlers can be exercised without the full
// middleware stack; release and debug builds never trust that header.
// It never touches c.Request if it's nil.
func userID(c *gin.Context) string {
	if v, ok := c.Get("userID"); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	if gin.Mode() == gin.TestMode && c != nil && c.Request != nil {
		if h := strings.TrimSpace(c.GetHeader("X-User-ID")); h != "" {
			return h
		}
	}
	return ""
}

// pageFromQuery parses page/page_size query parameters into a Page request.
// Values are left raw; services normalize with their own default sizes. Only
// the upper cap is enforced here to bound response sizes at the edge.
func pageFromQuery(c *gin.Context) query.Page {
	const maxPageSize = 100
	p := query.Page{
		Page:     utils.AtoiDefault(c.Query("page"), 0),
		PageSize: utils.AtoiDefault(c.Query("page_size"), 0),
	}
	if p.PageSize > maxPageSize {
		p.PageSize = maxPageSize
	}
	return p
}
