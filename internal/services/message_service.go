// Package services – MessageService
//
// This file implements MessageService, the application-level component that
// owns one-to-one conversations and their messages. It validates input,
// enforces participant checks, persists messages with a fixed recall
// deadline, and applies the recall state machine: a message moves
// active→recalled at most once, only by its sender, and only while the
// recall window is open.
//
// Observability: public methods are OpenTelemetry-instrumented; spans carry
// conversation/user identifiers and pagination parameters where applicable.
package services

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/roomly/go-rental-backend/internal/domain"
	"github.com/roomly/go-rental-backend/internal/presence"
	"github.com/roomly/go-rental-backend/internal/query"
	"github.com/roomly/go-rental-backend/internal/repo"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// DefaultRecallGrace is the recall window applied when none is configured.
const DefaultRecallGrace = 5 * time.Minute

// MessageService coordinates conversations, message persistence, and the
// recall window.
type MessageService struct {
	DB *gorm.DB

	// RecallGrace is the window after SentAt during which the sender may
	// withdraw a message. Zero means DefaultRecallGrace.
	RecallGrace time.Duration

	// MaxBodyRunes caps message length when > 0.
	MaxBodyRunes int

	// Presence, when set, suppresses notification rows for peers that are
	// currently connected; they see the message arrive live instead.
	Presence *presence.Registry

	// Now is the clock; tests override it.
	Now func() time.Time
}

func (s *MessageService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

func (s *MessageService) grace() time.Duration {
	if s.RecallGrace > 0 {
		return s.RecallGrace
	}
	return DefaultRecallGrace
}

// StartConversation returns the conversation between userID and peerID,
// creating it if absent. The pair is normalized (lexicographically smaller
// ID first) so both directions map to one row.
func (s *MessageService) StartConversation(ctx context.Context, userID, peerID string) (*domain.Conversation, error) {
	tr := otel.Tracer("services/MessageService")
	ctx, span := tr.Start(ctx, "StartConversation",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.String("peer.id", peerID),
		),
	)
	defer span.End()

	if userID == peerID {
		return nil, ErrSelfConversation
	}
	if _, err := repo.GetUser(ctx, s.DB, peerID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	a, b := normalizePair(userID, peerID)
	conv, err := repo.FindConversationByPair(ctx, s.DB, a, b)
	if err == nil {
		return conv, nil
	}
	if !errors.Is(err, repo.ErrNotFound) {
		return nil, err
	}
	return repo.CreateConversation(ctx, s.DB, a, b)
}

// ListConversations returns all conversations the user participates in,
// most recently active first.
func (s *MessageService) ListConversations(ctx context.Context, userID string) ([]domain.Conversation, error) {
	return repo.ListConversations(ctx, s.DB, userID)
}

// Send validates the body, checks membership, and persists the message with
// its recall deadline fixed at SentAt+grace. The message row, conversation
// bump, and peer notification are committed in one transaction.
func (s *MessageService) Send(ctx context.Context, userID, conversationID, body string) (*domain.Message, error) {
	tr := otel.Tracer("services/MessageService")
	ctx, span := tr.Start(ctx, "Send",
		trace.WithAttributes(
			attribute.String("conversation.id", conversationID),
			attribute.String("user.id", userID),
		),
	)
	defer span.End()

	body = strings.TrimSpace(body)
	if body == "" {
		return nil, ErrEmptyBody
	}
	if s.MaxBodyRunes > 0 && utf8.RuneCountInString(body) > s.MaxBodyRunes {
		return nil, ErrTooLong
	}

	conv, err := s.memberConversation(ctx, userID, conversationID)
	if err != nil {
		return nil, err
	}
	peer := conv.InitiatorID
	if peer == userID {
		peer = conv.PeerID
	}

	var msg *domain.Message
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		m, err := repo.CreateMessage(tx, conversationID, userID, body, s.grace())
		if err != nil {
			return err
		}
		msg = m
		if err := repo.TouchConversation(ctx, tx, conversationID, m.SentAt); err != nil {
			return err
		}
		// Online peers get the message pushed; only offline ones need an
		// inbox entry.
		if s.Presence == nil || !s.Presence.IsOnline(peer) {
			if _, err := repo.CreateNotification(ctx, tx, peer, "message", m.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// Recall withdraws a message. The transition is allowed iff the caller is
// the original sender, the recall window is still open, and the message has
// not been recalled before. The flip itself is a guarded bulk update
// (id AND is_recalled = false), so a concurrent double-recall loses cleanly
// with zero rows affected.
func (s *MessageService) Recall(ctx context.Context, userID, messageID string) error {
	tr := otel.Tracer("services/MessageService")
	ctx, span := tr.Start(ctx, "Recall",
		trace.WithAttributes(
			attribute.String("message.id", messageID),
			attribute.String("user.id", userID),
		),
	)
	defer span.End()

	m, err := repo.GetMessage(ctx, s.DB, messageID)
	if errors.Is(err, repo.ErrNotFound) {
		return ErrMessageNotFound
	}
	if err != nil {
		return err
	}
	if m.SenderID != userID {
		return ErrNotSender
	}
	if m.IsRecalled {
		return ErrAlreadyRecalled
	}
	now := s.now()
	if now.After(m.AllowRecallAt) {
		return ErrRecallWindowClosed
	}

	n, err := repo.MarkMessageRecalled(ctx, s.DB, messageID, now)
	if err != nil {
		return err
	}
	if n == 0 {
		// Lost a race with another recall of the same message.
		return ErrAlreadyRecalled
	}
	return nil
}

// ListPage returns one page of a conversation's messages (SentAt ascending,
// ID as tie-break) plus pagination metadata. Recalled messages keep their
// row but are returned with a blank body.
func (s *MessageService) ListPage(ctx context.Context, userID, conversationID string, page query.Page) ([]domain.Message, query.Result, error) {
	tr := otel.Tracer("services/MessageService")
	ctx, span := tr.Start(ctx, "ListPage",
		trace.WithAttributes(
			attribute.String("conversation.id", conversationID),
			attribute.Int("page", page.Page),
			attribute.Int("page_size", page.PageSize),
		),
	)
	defer span.End()

	if _, err := s.memberConversation(ctx, userID, conversationID); err != nil {
		return nil, query.Result{}, err
	}

	items, meta, err := repo.ListMessagesPage(ctx, s.DB, conversationID, page.Normalize(10))
	if err != nil {
		return nil, query.Result{}, err
	}
	for i := range items {
		if items[i].IsRecalled {
			items[i].Body = ""
		}
	}
	return items, meta, nil
}

// memberConversation loads a conversation and verifies the caller is one of
// its two participants, mapping both "missing" and "not yours" to
// ErrConversationNotFound.
func (s *MessageService) memberConversation(ctx context.Context, userID, conversationID string) (*domain.Conversation, error) {
	conv, err := repo.GetConversation(ctx, s.DB, conversationID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrConversationNotFound
	}
	if err != nil {
		return nil, err
	}
	if conv.InitiatorID != userID && conv.PeerID != userID {
		return nil, ErrConversationNotFound
	}
	return conv, nil
}

// normalizePair orders two user IDs so a pair always maps to the same
// conversation row regardless of who initiated.
func normalizePair(a, b string) (string, string) {
	if b < a {
		return b, a
	}
	return a, b
}
