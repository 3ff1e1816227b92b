// Package store provides durable storage for the preference profile and the
// view and purchase histories.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/rcliao/property-prefs/internal/model"
)

// Slot names in the durable store.
const (
	SlotPreferences     = "preferences"
	SlotViewHistory     = "viewHistory"
	SlotPurchaseHistory = "purchaseHistory"
)

// Slots lists every slot in load order.
var Slots = []string{SlotPreferences, SlotViewHistory, SlotPurchaseHistory}

// Store is a passive durable mirror of the engine state. Each Save call
// overwrites one slot atomically.
type Store interface {
	// Load returns the persisted state. Absent or unparsable slots come back
	// empty; only backend failures are returned as errors.
	Load(ctx context.Context) (model.Snapshot, error)

	SaveProfile(ctx context.Context, p model.PreferenceProfile) error
	SaveViewHistory(ctx context.Context, h []model.ViewHistoryEntry) error
	SavePurchaseHistory(ctx context.Context, h []model.PurchaseHistoryEntry) error

	// Clear removes all three slots.
	Clear(ctx context.Context) error

	// Stats reports per-slot sizes.
	Stats(ctx context.Context) (*Stats, error)

	// Close closes the store.
	Close() error
}

// Stats holds storage statistics.
type Stats struct {
	Backend   string      `json:"backend"`
	Path      string      `json:"path"`
	SizeBytes int64       `json:"size_bytes"`
	Slots     []SlotStats `json:"slots"`
}

// SlotStats describes one stored slot.
type SlotStats struct {
	Name      string     `json:"name"`
	Present   bool       `json:"present"`
	Bytes     int        `json:"bytes"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// decodeSlots builds a snapshot from raw slot values. A missing key means the
// slot is absent. Corrupt slots are logged and replaced by empty defaults.
func decodeSlots(raw map[string][]byte, log zerolog.Logger) model.Snapshot {
	snap := model.Snapshot{
		Profile:         model.NewProfile(),
		ViewHistory:     []model.ViewHistoryEntry{},
		PurchaseHistory: []model.PurchaseHistoryEntry{},
	}

	if b, ok := raw[SlotPreferences]; ok {
		var p model.PreferenceProfile
		if err := json.Unmarshal(b, &p); err != nil {
			log.Warn().Err(err).Str("slot", SlotPreferences).Msg("discarding unreadable slot")
		} else if reason := profileDefect(p); reason != "" {
			log.Warn().Str("slot", SlotPreferences).Str("reason", reason).Msg("discarding inconsistent slot")
		} else {
			if p.PreferredTypes == nil {
				p.PreferredTypes = map[string]int{}
			}
			if p.PreferredLocations == nil {
				p.PreferredLocations = map[string]int{}
			}
			snap.Profile = p
		}
	}

	if b, ok := raw[SlotViewHistory]; ok {
		var h []model.ViewHistoryEntry
		if err := json.Unmarshal(b, &h); err != nil {
			log.Warn().Err(err).Str("slot", SlotViewHistory).Msg("discarding unreadable slot")
		} else if h != nil {
			snap.ViewHistory = h
		}
	}

	if b, ok := raw[SlotPurchaseHistory]; ok {
		var h []model.PurchaseHistoryEntry
		if err := json.Unmarshal(b, &h); err != nil {
			log.Warn().Err(err).Str("slot", SlotPurchaseHistory).Msg("discarding unreadable slot")
		} else if h != nil {
			snap.PurchaseHistory = h
		}
	}

	return snap
}

func profileDefect(p model.PreferenceProfile) string {
	if p.PriceRange != nil && p.PriceRange.Min > p.PriceRange.Max {
		return "price range min exceeds max"
	}
	for _, n := range p.PreferredTypes {
		if n < 0 {
			return "negative type count"
		}
	}
	for _, n := range p.PreferredLocations {
		if n < 0 {
			return "negative location count"
		}
	}
	return ""
}

// encodeSlot marshals v, writing nil slices as empty arrays.
func encodeSlot(v any) ([]byte, error) {
	switch h := v.(type) {
	case []model.ViewHistoryEntry:
		if h == nil {
			v = []model.ViewHistoryEntry{}
		}
	case []model.PurchaseHistoryEntry:
		if h == nil {
			v = []model.PurchaseHistoryEntry{}
		}
	}
	return json.Marshal(v)
}

// Open opens the named backend at path.
func Open(backend, path string) (Store, error) {
	switch backend {
	case "sqlite", "":
		return NewSQLiteStore(path)
	case "badger":
		return NewBadgerStore(path)
	default:
		return nil, fmt.Errorf("unknown store backend %q", backend)
	}
}
