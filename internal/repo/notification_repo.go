// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// Notification model.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/roomly/go-rental-backend/internal/domain"
	"github.com/roomly/go-rental-backend/internal/query"
)

// NotificationFields declares the filterable columns of the notifications
// table.
var NotificationFields = query.Fields{
	"id":         {Column: "id", Kind: query.String},
	"user_id":    {Column: "user_id", Kind: query.String},
	"kind":       {Column: "kind", Kind: query.String},
	"is_read":    {Column: "is_read", Kind: query.Bool},
	"created_at": {Column: "created_at", Kind: query.Time},
}

// CreateNotification inserts a notification row for userID.
func CreateNotification(ctx context.Context, db *gorm.DB, userID, kind, payload string) (*domain.Notification, error) {
	n := &domain.Notification{
		ID:        uuid.NewString(),
		UserID:    userID,
		Kind:      kind,
		Payload:   payload,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(n).Error; err != nil {
		return nil, err
	}
	return n, nil
}

// ListNotificationsPage returns one page of a user's notifications, newest
// first, plus pagination metadata. Set unreadOnly to restrict to unread.
func ListNotificationsPage(ctx context.Context, db *gorm.DB, userID string, unreadOnly bool, page query.Page) ([]domain.Notification, query.Result, error) {
	set := query.NewSet(NotificationFields)
	if err := set.Where("user_id", query.Eq(userID)); err != nil {
		return nil, query.Result{}, err
	}
	if unreadOnly {
		if err := set.Where("is_read", query.Eq(false)); err != nil {
			return nil, query.Result{}, err
		}
	}
	order := query.NewOrder(NotificationFields)
	_ = order.By("created_at", query.Desc)
	_ = order.By("id", query.Desc)
	return FindPage[domain.Notification](ctx, db, set, order, page)
}

// MarkNotificationRead flips one notification of userID to read. Zero rows
// affected maps to ErrNotFound.
func MarkNotificationRead(ctx context.Context, db *gorm.DB, userID, id string) error {
	set := query.NewSet(NotificationFields)
	if err := set.Where("id", query.Eq(id)); err != nil {
		return err
	}
	if err := set.Where("user_id", query.Eq(userID)); err != nil {
		return err
	}
	n, err := UpdateWhere(ctx, db, &domain.Notification{}, set, map[string]any{"is_read": true})
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
