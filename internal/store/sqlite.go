package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/rcliao/property-prefs/internal/logging"
	"github.com/rcliao/property-prefs/internal/model"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	path   string
	logger zerolog.Logger
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens or creates a SQLite database at the given path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		path:   dbPath,
		logger: logging.Component("store").With().Str("backend", "sqlite").Logger(),
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) migrate() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS slots (
		name       TEXT PRIMARY KEY,
		value      TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);`)
	return err
}

func (s *SQLiteStore) Load(ctx context.Context) (model.Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, value FROM slots`)
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("query slots: %w", err)
	}
	defer rows.Close()

	raw := map[string][]byte{}
	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return model.Snapshot{}, fmt.Errorf("scan slot: %w", err)
		}
		raw[name] = []byte(value)
	}
	if err := rows.Err(); err != nil {
		return model.Snapshot{}, fmt.Errorf("read slots: %w", err)
	}

	return decodeSlots(raw, s.logger), nil
}

func (s *SQLiteStore) SaveProfile(ctx context.Context, p model.PreferenceProfile) error {
	return s.put(ctx, SlotPreferences, p)
}

func (s *SQLiteStore) SaveViewHistory(ctx context.Context, h []model.ViewHistoryEntry) error {
	return s.put(ctx, SlotViewHistory, h)
}

func (s *SQLiteStore) SavePurchaseHistory(ctx context.Context, h []model.PurchaseHistoryEntry) error {
	return s.put(ctx, SlotPurchaseHistory, h)
}

func (s *SQLiteStore) put(ctx context.Context, name string, v any) error {
	b, err := encodeSlot(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO slots (name, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		name, string(b), now)
	if err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

func (s *SQLiteStore) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM slots WHERE name IN (?, ?, ?)`,
		SlotPreferences, SlotViewHistory, SlotPurchaseHistory)
	if err != nil {
		return fmt.Errorf("clear slots: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Stats(ctx context.Context) (*Stats, error) {
	st := &Stats{Backend: "sqlite", Path: s.path}
	if info, err := os.Stat(s.path); err == nil {
		st.SizeBytes = info.Size()
	}

	found := map[string]SlotStats{}
	rows, err := s.db.QueryContext(ctx, `SELECT name, length(value), updated_at FROM slots`)
	if err != nil {
		return st, err
	}
	defer rows.Close()
	for rows.Next() {
		var ss SlotStats
		var updated string
		if err := rows.Scan(&ss.Name, &ss.Bytes, &updated); err != nil {
			return st, err
		}
		ss.Present = true
		if t, err := time.Parse(time.RFC3339Nano, updated); err == nil {
			ss.UpdatedAt = &t
		}
		found[ss.Name] = ss
	}

	for _, name := range Slots {
		ss, ok := found[name]
		if !ok {
			ss = SlotStats{Name: name}
		}
		st.Slots = append(st.Slots, ss)
	}
	return st, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
