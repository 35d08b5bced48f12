package testutil

import (
	"context"
	"testing"

	"github.com/nhle/notifybell/internal/model"
	"github.com/nhle/notifybell/internal/store"
)

// NewTestCache creates an in-memory snapshot cache with all migrations
// applied. It is closed when the test completes.
func NewTestCache(t *testing.T) *store.SQLiteStore {
	t.Helper()

	s, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("creating test cache: %v", err)
	}

	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("closing test cache: %v", err)
		}
	})

	return s
}

// NewSeededCache returns a test cache already holding a snapshot.
func NewSeededCache(t *testing.T, items []model.Notification, unread int) *store.SQLiteStore {
	t.Helper()

	s := NewTestCache(t)
	if err := s.SaveSnapshot(context.Background(), items, unread); err != nil {
		t.Fatalf("seeding test cache: %v", err)
	}
	return s
}

// Notification builds a booking notification with the given id. Numeric
// and UUID ids are server ids; anything else is a client id.
func Notification(id string, read bool) model.Notification {
	return model.Notification{
		ID:    model.ParseID(id),
		Type:  "booking",
		Title: "Booking " + id,
		Data:  map[string]any{"url": "/bookings/" + id},
		Read:  read,
	}
}
