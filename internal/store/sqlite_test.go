package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dir := t.TempDir()
	s, err := NewSQLiteStore(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// putRaw stores an already encoded value, bypassing encodeSlot.
func (s *SQLiteStore) putRaw(ctx context.Context, name, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO slots (name, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET value = excluded.value`,
		name, value, time.Now().UTC().Format(time.RFC3339Nano))
	return err
}

func TestSQLiteStoreContract(t *testing.T) {
	runStoreContract(t, func(t *testing.T) Store { return newTestStore(t) })
}

func TestDBPathCreation(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "sub", "dir", "test.db")
	s, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	s.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("expected db file to be created")
	}
}

func TestSQLiteCorruptSlotIsEmpty(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if err := s.putRaw(ctx, SlotViewHistory, "{{{"); err != nil {
		t.Fatalf("plant: %v", err)
	}
	if err := s.putRaw(ctx, SlotPreferences, `{"preferredTypes":{"villa":2}}`); err != nil {
		t.Fatalf("plant: %v", err)
	}

	snap, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(snap.ViewHistory) != 0 {
		t.Errorf("expected empty view history, got %d", len(snap.ViewHistory))
	}
	if snap.Profile.PreferredTypes["villa"] != 2 {
		t.Errorf("expected healthy profile slot to survive, got %v", snap.Profile.PreferredTypes)
	}
}

func TestSQLitePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "prefs.db")

	s, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	p, _ := s.Load(ctx)
	p.Profile.PreferredLocations["dammam"] = 4
	if err := s.SaveProfile(ctx, p.Profile); err != nil {
		t.Fatalf("save: %v", err)
	}
	s.Close()

	s2, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()
	got, err := s2.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Profile.PreferredLocations["dammam"] != 4 {
		t.Errorf("expected 4, got %d", got.Profile.PreferredLocations["dammam"])
	}
}

func TestSQLiteLoadAfterClose(t *testing.T) {
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "x.db"))
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	s.Close()
	if _, err := s.Load(context.Background()); err == nil {
		t.Error("expected error loading from a closed store")
	}
}
