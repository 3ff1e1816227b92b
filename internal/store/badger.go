package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"

	"github.com/rcliao/property-prefs/internal/logging"
	"github.com/rcliao/property-prefs/internal/model"
)

const (
	slotKeyPrefix    = "slot:"
	updatedKeyPrefix = "updated:"
)

// BadgerStore implements Store on a BadgerDB directory.
type BadgerStore struct {
	db     *badger.DB
	path   string
	logger zerolog.Logger
}

var _ Store = (*BadgerStore)(nil)

// NewBadgerStore opens or creates a BadgerDB at dir.
func NewBadgerStore(dir string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil
	return openBadger(opts, dir)
}

// NewInMemoryBadgerStore opens a BadgerDB that lives only in memory.
func NewInMemoryBadgerStore() (*BadgerStore, error) {
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	return openBadger(opts, "")
}

func openBadger(opts badger.Options, path string) (*BadgerStore, error) {
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return &BadgerStore{
		db:     db,
		path:   path,
		logger: logging.Component("store").With().Str("backend", "badger").Logger(),
	}, nil
}

func slotKey(name string) []byte {
	return []byte(slotKeyPrefix + name)
}

func updatedKey(name string) []byte {
	return []byte(updatedKeyPrefix + name)
}

func (s *BadgerStore) Load(ctx context.Context) (model.Snapshot, error) {
	raw := map[string][]byte{}
	err := s.db.View(func(txn *badger.Txn) error {
		for _, name := range Slots {
			item, err := txn.Get(slotKey(name))
			if errors.Is(err, badger.ErrKeyNotFound) {
				continue
			}
			if err != nil {
				return fmt.Errorf("get %s: %w", name, err)
			}
			b, err := item.ValueCopy(nil)
			if err != nil {
				return fmt.Errorf("read %s: %w", name, err)
			}
			raw[name] = b
		}
		return nil
	})
	if err != nil {
		return model.Snapshot{}, err
	}
	return decodeSlots(raw, s.logger), nil
}

func (s *BadgerStore) SaveProfile(ctx context.Context, p model.PreferenceProfile) error {
	return s.put(SlotPreferences, p)
}

func (s *BadgerStore) SaveViewHistory(ctx context.Context, h []model.ViewHistoryEntry) error {
	return s.put(SlotViewHistory, h)
}

func (s *BadgerStore) SavePurchaseHistory(ctx context.Context, h []model.PurchaseHistoryEntry) error {
	return s.put(SlotPurchaseHistory, h)
}

func (s *BadgerStore) put(name string, v any) error {
	b, err := encodeSlot(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	return s.putRaw(name, b)
}

func (s *BadgerStore) putRaw(name string, b []byte) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	err := s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(slotKey(name), b); err != nil {
			return err
		}
		return txn.Set(updatedKey(name), []byte(now))
	})
	if err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

func (s *BadgerStore) Clear(ctx context.Context) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		for _, name := range Slots {
			if err := txn.Delete(slotKey(name)); err != nil {
				return err
			}
			if err := txn.Delete(updatedKey(name)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("clear slots: %w", err)
	}
	return nil
}

func (s *BadgerStore) Stats(ctx context.Context) (*Stats, error) {
	lsm, vlog := s.db.Size()
	st := &Stats{Backend: "badger", Path: s.path, SizeBytes: lsm + vlog}
	err := s.db.View(func(txn *badger.Txn) error {
		for _, name := range Slots {
			ss := SlotStats{Name: name}
			item, err := txn.Get(slotKey(name))
			switch {
			case errors.Is(err, badger.ErrKeyNotFound):
			case err != nil:
				return err
			default:
				ss.Present = true
				ss.Bytes = int(item.ValueSize())
				updated, err := s.updatedAt(txn, name)
				if err != nil {
					return err
				}
				ss.UpdatedAt = updated
			}
			st.Slots = append(st.Slots, ss)
		}
		return nil
	})
	return st, err
}

func (s *BadgerStore) updatedAt(txn *badger.Txn, name string) (*time.Time, error) {
	item, err := txn.Get(updatedKey(name))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var t *time.Time
	err = item.Value(func(val []byte) error {
		if parsed, perr := time.Parse(time.RFC3339Nano, string(val)); perr == nil {
			t = &parsed
		}
		return nil
	})
	return t, err
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}
