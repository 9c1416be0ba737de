package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/roomly/go-rental-backend/internal/domain"
)

// newTestDB opens the named shared in-memory database and wipes every
// table. Each test file uses its own name so reseeding cannot race across
// files.
func newTestDB(t *testing.T, name string) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(
		&domain.User{},
		&domain.Listing{},
		&domain.Conversation{},
		&domain.Message{},
		&domain.Token{},
		&domain.Notification{},
	); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	for _, table := range []string{"users", "listings", "conversations", "messages", "tokens", "notifications"} {
		db.Exec("DELETE FROM " + table)
	}
	return db
}

// seedUser inserts a verified user and returns it.
func seedUser(t *testing.T, db *gorm.DB, email string) *domain.User {
	t.Helper()
	u := &domain.User{
		ID:            uuid.NewString(),
		Email:         email,
		PasswordHash:  "x",
		DisplayName:   "user",
		EmailVerified: true,
	}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("seed user %s: %v", email, err)
	}
	return u
}

// fixedClock returns a Now func pinned to at.
func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

var testCtx = context.Background()
