package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/nhle/notifybell/internal/model"
)

// SQLiteStore implements the Cache interface using a local SQLite database.
type SQLiteStore struct {
	db *sqlx.DB
}

var _ Cache = (*SQLiteStore)(nil)

// NewSQLiteStore opens (or creates) a SQLite database at dbPath,
// enables WAL mode, and runs any pending schema migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// One connection keeps ":memory:" databases intact and serializes writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *SQLiteStore) runMigrations() error {
	currentVersion := 0

	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// SchemaVersion returns the highest applied migration version.
func (s *SQLiteStore) SchemaVersion(ctx context.Context) (int, error) {
	var version int
	if err := s.db.GetContext(ctx, &version,
		"SELECT COALESCE(MAX(version), 0) FROM schema_version",
	); err != nil {
		return 0, fmt.Errorf("reading schema version: %w", err)
	}
	return version, nil
}

// notificationRow is the persisted form of a model.Notification.
type notificationRow struct {
	ID        string `db:"id"`
	Position  int    `db:"position"`
	Type      string `db:"type"`
	Title     string `db:"title"`
	Body      string `db:"body"`
	Data      string `db:"data"`
	Read      int    `db:"read"`
	CreatedAt string `db:"created_at"`
}

// SaveSnapshot replaces the cached collection in a single transaction.
func (s *SQLiteStore) SaveSnapshot(
	ctx context.Context,
	items []model.Notification,
	unread int,
) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM notifications"); err != nil {
		return fmt.Errorf("clearing cached notifications: %w", err)
	}

	if len(items) > 0 {
		const query = `
			INSERT OR REPLACE INTO notifications (
				id, position, type, title, body, data, read, created_at
			) VALUES (
				:id, :position, :type, :title, :body, :data, :read, :created_at
			)`

		stmt, err := tx.PrepareNamedContext(ctx, query)
		if err != nil {
			return fmt.Errorf("preparing insert statement: %w", err)
		}
		defer stmt.Close()

		for i, n := range items {
			row, err := toRow(n, i)
			if err != nil {
				return err
			}
			if _, err := stmt.ExecContext(ctx, row); err != nil {
				return fmt.Errorf("caching notification %s: %w", n.ID, err)
			}
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO snapshot_meta (id, unread_count, saved_at) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			unread_count = excluded.unread_count,
			saved_at = excluded.saved_at`,
		max(0, unread), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("saving snapshot metadata: %w", err)
	}

	return tx.Commit()
}

// LoadSnapshot returns the cached collection in its saved order.
func (s *SQLiteStore) LoadSnapshot(
	ctx context.Context,
) ([]model.Notification, int, error) {
	var rows []notificationRow
	if err := s.db.SelectContext(ctx, &rows,
		"SELECT * FROM notifications ORDER BY position",
	); err != nil {
		return nil, 0, fmt.Errorf("querying cached notifications: %w", err)
	}

	items := make([]model.Notification, 0, len(rows))
	for _, r := range rows {
		n, err := fromRow(r)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, n)
	}

	var unread int
	err := s.db.GetContext(ctx, &unread,
		"SELECT unread_count FROM snapshot_meta WHERE id = 1",
	)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, 0, fmt.Errorf("reading cached unread count: %w", err)
	}

	return items, unread, nil
}

// LoadCursor returns the saved cursor for source, or zero.
func (s *SQLiteStore) LoadCursor(ctx context.Context, source string) (uint32, error) {
	var cursor int64
	err := s.db.GetContext(ctx, &cursor,
		"SELECT cursor FROM source_cursors WHERE source = ?", source,
	)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return 0, nil
	case err != nil:
		return 0, fmt.Errorf("reading cursor for %s: %w", source, err)
	}
	return uint32(cursor), nil
}

// SaveCursor upserts the cursor for source.
func (s *SQLiteStore) SaveCursor(ctx context.Context, source string, cursor uint32) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO source_cursors (source, cursor, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(source) DO UPDATE SET
			cursor = excluded.cursor,
			updated_at = excluded.updated_at`,
		source, int64(cursor), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("saving cursor for %s: %w", source, err)
	}
	return nil
}

// Info returns counts and the time of the last save.
func (s *SQLiteStore) Info(ctx context.Context) (SnapshotInfo, error) {
	var info SnapshotInfo
	if err := s.db.GetContext(ctx, &info.Items,
		"SELECT COUNT(*) FROM notifications",
	); err != nil {
		return SnapshotInfo{}, fmt.Errorf("counting cached notifications: %w", err)
	}

	var meta struct {
		Unread  int       `db:"unread_count"`
		SavedAt time.Time `db:"saved_at"`
	}
	err := s.db.GetContext(ctx, &meta,
		"SELECT unread_count, saved_at FROM snapshot_meta WHERE id = 1",
	)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return info, nil
	case err != nil:
		return SnapshotInfo{}, fmt.Errorf("reading snapshot metadata: %w", err)
	}

	info.Unread = meta.Unread
	info.SavedAt = meta.SavedAt
	return info, nil
}

func toRow(n model.Notification, position int) (notificationRow, error) {
	data := n.Data
	if data == nil {
		data = map[string]any{}
	}
	encoded, err := json.Marshal(data)
	if err != nil {
		return notificationRow{}, fmt.Errorf("marshaling data for notification %s: %w", n.ID, err)
	}

	return notificationRow{
		ID:        n.ID.String(),
		Position:  position,
		Type:      n.Type,
		Title:     n.Title,
		Body:      n.Body,
		Data:      string(encoded),
		Read:      boolToInt(n.Read),
		CreatedAt: n.CreatedAt,
	}, nil
}

func fromRow(r notificationRow) (model.Notification, error) {
	n := model.Notification{
		ID:        model.ParseID(r.ID),
		Type:      r.Type,
		Title:     r.Title,
		Body:      r.Body,
		Data:      map[string]any{},
		Read:      r.Read != 0,
		CreatedAt: r.CreatedAt,
	}
	if r.Data != "" {
		if err := json.Unmarshal([]byte(r.Data), &n.Data); err != nil {
			return model.Notification{}, fmt.Errorf("unmarshaling data for notification %s: %w", r.ID, err)
		}
	}
	return n, nil
}

// boolToInt converts a boolean to 0 or 1 for SQLite storage.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
