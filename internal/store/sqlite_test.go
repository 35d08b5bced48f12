package store_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/notifybell/internal/model"
	"github.com/nhle/notifybell/internal/store"
	"github.com/nhle/notifybell/tests/testutil"
)

func sample() []model.Notification {
	return []model.Notification{
		{
			ID:        model.ParseID("mail-3"),
			Type:      "inquiry",
			Title:     "Villa Sunset",
			Body:      "Is it free?",
			Data:      map[string]any{"name": "Ana", "email": "ana@example.com"},
			CreatedAt: "2024-05-02T09:30:00Z",
		},
		{
			ID:    model.ParseID("12"),
			Type:  "Booking",
			Title: "Booking",
			Data:  map[string]any{"count": float64(2)},
			Read:  true,
		},
	}
}

func TestSQLiteStore_EmptySnapshot(t *testing.T) {
	s := testutil.NewTestCache(t)

	items, unread, err := s.LoadSnapshot(context.Background())
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Equal(t, 0, unread)

	info, err := s.Info(context.Background())
	require.NoError(t, err)
	assert.True(t, info.SavedAt.IsZero())
}

func TestSQLiteStore_SaveAndLoad(t *testing.T) {
	s := testutil.NewTestCache(t)
	ctx := context.Background()

	require.NoError(t, s.SaveSnapshot(ctx, sample(), 5))

	items, unread, err := s.LoadSnapshot(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, 5, unread)

	assert.Equal(t, "mail-3", items[0].ID.String())
	assert.False(t, items[0].ID.IsServer())
	assert.Equal(t, "Ana", items[0].Data["name"])
	assert.Equal(t, "2024-05-02T09:30:00Z", items[0].CreatedAt)
	assert.False(t, items[0].Read)

	assert.True(t, items[1].ID.IsServer())
	assert.True(t, items[1].Read)
	assert.Equal(t, float64(2), items[1].Data["count"])

	info, err := s.Info(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, info.Items)
	assert.Equal(t, 5, info.Unread)
	assert.False(t, info.SavedAt.IsZero())
}

func TestSQLiteStore_SaveReplacesPrevious(t *testing.T) {
	s := testutil.NewTestCache(t)
	ctx := context.Background()

	require.NoError(t, s.SaveSnapshot(ctx, sample(), 1))
	require.NoError(t, s.SaveSnapshot(ctx, sample()[1:], 0))

	items, unread, err := s.LoadSnapshot(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "12", items[0].ID.String())
	assert.Equal(t, 0, unread)

	require.NoError(t, s.SaveSnapshot(ctx, nil, -3))
	items, unread, err = s.LoadSnapshot(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Equal(t, 0, unread)
}

func TestSQLiteStore_ReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	ctx := context.Background()

	s, err := store.NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, s.SaveSnapshot(ctx, sample(), 1))
	require.NoError(t, s.Close())

	reopened, err := store.NewSQLiteStore(path)
	require.NoError(t, err)
	defer reopened.Close()

	version, err := reopened.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, version)

	items, unread, err := reopened.LoadSnapshot(ctx)
	require.NoError(t, err)
	assert.Len(t, items, 2)
	assert.Equal(t, 1, unread)
}

func TestSQLiteStore_Cursor(t *testing.T) {
	s := testutil.NewTestCache(t)
	ctx := context.Background()

	cursor, err := s.LoadCursor(ctx, "inbox:u@host/INBOX")
	require.NoError(t, err)
	assert.Zero(t, cursor)

	require.NoError(t, s.SaveCursor(ctx, "inbox:u@host/INBOX", 41))
	require.NoError(t, s.SaveCursor(ctx, "inbox:u@host/INBOX", 42))

	cursor, err = s.LoadCursor(ctx, "inbox:u@host/INBOX")
	require.NoError(t, err)
	assert.Equal(t, uint32(42), cursor)
}
