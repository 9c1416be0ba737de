package services

import (
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/roomly/go-rental-backend/internal/query"
	"github.com/roomly/go-rental-backend/internal/repo"
)

func TestNotificationService_ListPageAndMarkRead(t *testing.T) {
	db := newTestDB(t, "notifsvc")
	svc := &NotificationService{DB: db}

	var lastID string
	for i := 0; i < 3; i++ {
		n, err := repo.CreateNotification(testCtx, db, "u1", "message", uuid.NewString())
		if err != nil {
			t.Fatalf("seed: %v", err)
		}
		lastID = n.ID
	}
	if _, err := repo.CreateNotification(testCtx, db, "u2", "message", uuid.NewString()); err != nil {
		t.Fatalf("seed u2: %v", err)
	}

	// only the caller's rows are visible
	items, meta, err := svc.ListPage(testCtx, "u1", false, query.Page{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if meta.Total != 3 || len(items) != 3 {
		t.Fatalf("total=%d len=%d, want 3/3", meta.Total, len(items))
	}

	if err := svc.MarkRead(testCtx, "u1", lastID); err != nil {
		t.Fatalf("mark read: %v", err)
	}
	// marking again is harmless; the read state is monotonic
	if err := svc.MarkRead(testCtx, "u1", lastID); err != nil {
		t.Fatalf("mark read twice: %v", err)
	}

	items, meta, err = svc.ListPage(testCtx, "u1", true, query.Page{})
	if err != nil {
		t.Fatalf("list unread: %v", err)
	}
	if meta.Total != 2 {
		t.Fatalf("unread total = %d, want 2", meta.Total)
	}
	for _, n := range items {
		if n.IsRead {
			t.Fatalf("unread listing returned read row %s", n.ID)
		}
	}

	// foreign and unknown IDs are the same failure
	if err := svc.MarkRead(testCtx, "u2", lastID); !errors.Is(err, ErrNotificationNotFound) {
		t.Fatalf("foreign mark: got %v, want ErrNotificationNotFound", err)
	}
	if err := svc.MarkRead(testCtx, "u1", uuid.NewString()); !errors.Is(err, ErrNotificationNotFound) {
		t.Fatalf("unknown mark: got %v, want ErrNotificationNotFound", err)
	}
}
