// Package services – NotificationService
package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/roomly/go-rental-backend/internal/domain"
	"github.com/roomly/go-rental-backend/internal/query"
	"github.com/roomly/go-rental-backend/internal/repo"
)

// NotificationService lists and marks per-user notifications.
type NotificationService struct {
	DB *gorm.DB
}

// ListPage returns one page of the user's notifications, newest first.
func (s *NotificationService) ListPage(ctx context.Context, userID string, unreadOnly bool, page query.Page) ([]domain.Notification, query.Result, error) {
	return repo.ListNotificationsPage(ctx, s.DB, userID, unreadOnly, page.Normalize(0))
}

// MarkRead flips one notification of the user to read.
func (s *NotificationService) MarkRead(ctx context.Context, userID, id string) error {
	err := repo.MarkNotificationRead(ctx, s.DB, userID, id)
	if errors.Is(err, repo.ErrNotFound) {
		return ErrNotificationNotFound
	}
	return err
}
