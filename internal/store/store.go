// Package store persists the last known notification collection so the
// bell can show a count before the first backend fetch completes.
package store

import (
	"context"
	"time"

	"github.com/nhle/notifybell/internal/model"
)

// SnapshotInfo summarizes the cached collection.
type SnapshotInfo struct {
	Items   int
	Unread  int
	SavedAt time.Time
}

// Cache defines the persistence interface for notification snapshots.
type Cache interface {
	// SaveSnapshot replaces the cached collection atomically.
	SaveSnapshot(ctx context.Context, items []model.Notification, unread int) error

	// LoadSnapshot returns the cached items in stored order and the
	// cached unread counter. An empty cache yields no items and zero.
	LoadSnapshot(ctx context.Context) ([]model.Notification, int, error)

	// Info returns counts and the time of the last save. SavedAt is zero
	// when nothing was ever saved.
	Info(ctx context.Context) (SnapshotInfo, error)

	// LoadCursor returns the delivery cursor of a push source, zero when
	// none was saved.
	LoadCursor(ctx context.Context, source string) (uint32, error)

	// SaveCursor records the delivery cursor of a push source.
	SaveCursor(ctx context.Context, source string, cursor uint32) error

	// Close releases the underlying database.
	Close() error
}
