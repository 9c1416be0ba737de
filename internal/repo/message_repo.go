// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for conversations
// and messages.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/roomly/go-rental-backend/internal/domain"
	"github.com/roomly/go-rental-backend/internal/query"
)

// MessageFields declares the filterable columns of the messages table.
var MessageFields = query.Fields{
	"id":              {Column: "id", Kind: query.String},
	"conversation_id": {Column: "conversation_id", Kind: query.String},
	"sender_id":       {Column: "sender_id", Kind: query.String},
	"body":            {Column: "body", Kind: query.String},
	"sent_at":         {Column: "sent_at", Kind: query.Time},
	"allow_recall_at": {Column: "allow_recall_at", Kind: query.Time},
	"is_recalled":     {Column: "is_recalled", Kind: query.Bool},
}

// CreateMessage inserts a new message row. SentAt defaults to now (UTC) and
// the recall deadline is fixed at SentAt+grace, never to be extended.
func CreateMessage(db *gorm.DB, conversationID, senderID, body string, grace time.Duration) (*domain.Message, error) {
	now := time.Now().UTC()
	m := &domain.Message{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		SenderID:       senderID,
		Body:           body,
		SentAt:         now,
		AllowRecallAt:  now.Add(grace),
		CreatedAt:      now,
	}
	return m, db.Create(m).Error
}

// GetMessage fetches a message by ID.
func GetMessage(ctx context.Context, db *gorm.DB, id string) (*domain.Message, error) {
	var m domain.Message
	if err := db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

// MarkMessageRecalled transitions a message to recalled iff it is still
// active, in one guarded bulk statement. Zero rows affected means the
// message was missing or already recalled; the caller distinguishes the two.
func MarkMessageRecalled(ctx context.Context, db *gorm.DB, id string, at time.Time) (int64, error) {
	set := query.NewSet(MessageFields)
	if err := set.Where("id", query.Eq(id)); err != nil {
		return 0, err
	}
	if err := set.Where("is_recalled", query.Eq(false)); err != nil {
		return 0, err
	}
	return UpdateWhere(ctx, db, &domain.Message{}, set, map[string]any{
		"is_recalled": true,
		"recalled_at": at,
	})
}

// ListMessagesPage returns one page of a conversation's messages ordered
// deterministically (SentAt ASC, ID ASC as tie-break), plus pagination
// metadata.
func ListMessagesPage(ctx context.Context, db *gorm.DB, conversationID string, page query.Page) ([]domain.Message, query.Result, error) {
	set := query.NewSet(MessageFields)
	if err := set.Where("conversation_id", query.Eq(conversationID)); err != nil {
		return nil, query.Result{}, err
	}
	order := query.NewOrder(MessageFields)
	_ = order.By("sent_at", query.Asc)
	_ = order.By("id", query.Asc)
	return FindPage[domain.Message](ctx, db, set, order, page)
}

// CountMessages returns the number of messages in a conversation.
func CountMessages(ctx context.Context, db *gorm.DB, conversationID string) (int64, error) {
	set := query.NewSet(MessageFields)
	if err := set.Where("conversation_id", query.Eq(conversationID)); err != nil {
		return 0, err
	}
	return CountWhere(ctx, db, &domain.Message{}, set)
}

// CreateConversation inserts a conversation row for the normalized user
// pair.
func CreateConversation(ctx context.Context, db *gorm.DB, initiatorID, peerID string) (*domain.Conversation, error) {
	c := &domain.Conversation{
		ID:          uuid.NewString(),
		InitiatorID: initiatorID,
		PeerID:      peerID,
		CreatedAt:   time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(c).Error; err != nil {
		return nil, err
	}
	return c, nil
}

// GetConversation fetches a conversation by ID.
func GetConversation(ctx context.Context, db *gorm.DB, id string) (*domain.Conversation, error) {
	var c domain.Conversation
	if err := db.WithContext(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// FindConversationByPair returns the conversation for a normalized user
// pair, or ErrNotFound.
func FindConversationByPair(ctx context.Context, db *gorm.DB, initiatorID, peerID string) (*domain.Conversation, error) {
	var c domain.Conversation
	err := db.WithContext(ctx).
		Where("initiator_id = ? AND peer_id = ?", initiatorID, peerID).
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListConversations returns all conversations a user participates in, most
// recently active first.
func ListConversations(ctx context.Context, db *gorm.DB, userID string) ([]domain.Conversation, error) {
	var out []domain.Conversation
	err := db.WithContext(ctx).
		Where("initiator_id = ? OR peer_id = ?", userID, userID).
		Order("last_message_at DESC").
		Find(&out).Error
	return out, err
}

// TouchConversation bumps a conversation's last-message timestamp.
func TouchConversation(ctx context.Context, db *gorm.DB, id string, at time.Time) error {
	return db.WithContext(ctx).
		Model(&domain.Conversation{}).
		Where("id = ?", id).
		Update("last_message_at", at).Error
}
