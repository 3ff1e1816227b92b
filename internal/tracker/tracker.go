// Package tracker folds behavioral events into the preference profile and
// maintains the bounded view and purchase histories.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/rcliao/property-prefs/internal/model"
	"github.com/rcliao/property-prefs/internal/store"
)

const (
	DefaultViewHistoryCap     = 50
	DefaultPurchaseHistoryCap = 500
)

// ErrInvalidSnapshot is returned by Import for snapshots that break the
// profile invariants.
var ErrInvalidSnapshot = errors.New("invalid snapshot")

// Options configures a Tracker.
type Options struct {
	ViewHistoryCap     int
	PurchaseHistoryCap int
	// Now stamps history entries. Defaults to time.Now.
	Now    func() time.Time
	Logger zerolog.Logger
}

// ChangeKind names the mutation that produced a Change.
type ChangeKind string

const (
	ChangeView     ChangeKind = "view"
	ChangePurchase ChangeKind = "purchase"
	ChangeReset    ChangeKind = "reset"
	ChangeImport   ChangeKind = "import"
)

// Change is delivered to listeners after every successful mutation.
type Change struct {
	Kind     ChangeKind
	ItemID   string
	Snapshot model.Snapshot
}

// ChangeFunc receives profile change notifications.
type ChangeFunc func(Change)

// Tracker is the only writer of the profile and histories.
// It is not safe for concurrent use; callers serialize events.
type Tracker struct {
	store     store.Store
	opts      Options
	logger    zerolog.Logger
	state     model.Snapshot
	listeners []ChangeFunc
}

// New creates a tracker and loads the persisted state from st.
func New(ctx context.Context, st store.Store, opts Options) (*Tracker, error) {
	if opts.ViewHistoryCap <= 0 {
		opts.ViewHistoryCap = DefaultViewHistoryCap
	}
	if opts.PurchaseHistoryCap <= 0 {
		opts.PurchaseHistoryCap = DefaultPurchaseHistoryCap
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	snap, err := st.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load state: %w", err)
	}

	t := &Tracker{
		store:  st,
		opts:   opts,
		logger: opts.Logger.With().Str("component", "tracker").Logger(),
	}
	t.state = t.bounded(snap)

	t.logger.Debug().
		Int("views", len(t.state.ViewHistory)).
		Int("purchases", len(t.state.PurchaseHistory)).
		Msg("state loaded")
	return t, nil
}

// OnChange registers fn to be called after each mutation.
func (t *Tracker) OnChange(fn ChangeFunc) {
	t.listeners = append(t.listeners, fn)
}

// RecordView prepends item to the view history and folds it into the profile.
func (t *Tracker) RecordView(ctx context.Context, item model.Property) error {
	entry := model.ViewHistoryEntry{
		ID:        item.ID,
		Category:  item.Category,
		Price:     item.Price,
		Location:  item.Location,
		Timestamp: t.opts.Now(),
	}

	views := make([]model.ViewHistoryEntry, 0, len(t.state.ViewHistory)+1)
	views = append(views, entry)
	views = append(views, t.state.ViewHistory...)
	if len(views) > t.opts.ViewHistoryCap {
		views = views[:t.opts.ViewHistoryCap]
	}
	t.state.ViewHistory = views

	ApplyView(&t.state.Profile, item)

	if err := t.store.SaveViewHistory(ctx, t.state.ViewHistory); err != nil {
		return fmt.Errorf("persist view history: %w", err)
	}
	if err := t.store.SaveProfile(ctx, t.state.Profile); err != nil {
		return fmt.Errorf("persist profile: %w", err)
	}

	t.logger.Debug().Str("id", item.ID).Str("type", item.Category).
		Str("location", item.Location).Float64("price", item.Price).Msg("view recorded")
	t.notify(ChangeView, item.ID)
	return nil
}

// RecordPurchase appends a purchase entry. The profile is not affected.
func (t *Tracker) RecordPurchase(ctx context.Context, item model.Property) error {
	t.state.PurchaseHistory = append(t.state.PurchaseHistory, model.PurchaseHistoryEntry{
		ID:        item.ID,
		Category:  item.Category,
		Price:     item.Price,
		Timestamp: t.opts.Now(),
	})
	t.state.PurchaseHistory = trimOldest(t.state.PurchaseHistory, t.opts.PurchaseHistoryCap)

	if err := t.store.SavePurchaseHistory(ctx, t.state.PurchaseHistory); err != nil {
		return fmt.Errorf("persist purchase history: %w", err)
	}

	t.logger.Debug().Str("id", item.ID).Float64("price", item.Price).Msg("purchase recorded")
	t.notify(ChangePurchase, item.ID)
	return nil
}

// Reset clears the profile and both histories in memory and in the store.
func (t *Tracker) Reset(ctx context.Context) error {
	t.state = emptyState()
	if err := t.store.Clear(ctx); err != nil {
		return fmt.Errorf("clear store: %w", err)
	}
	t.logger.Debug().Msg("state reset")
	t.notify(ChangeReset, "")
	return nil
}

// Import replaces the state with snap, applying the history caps, and
// persists all three slots. A snapshot that carries views but no profile gets
// its profile rebuilt from the full imported view history.
func (t *Tracker) Import(ctx context.Context, snap model.Snapshot) error {
	if err := validateProfile(snap.Profile); err != nil {
		return err
	}
	snap = snap.Clone()
	if snap.Profile.IsEmpty() && len(snap.ViewHistory) > 0 {
		snap.Profile = replayHistory(snap.ViewHistory)
		t.logger.Debug().Int("views", len(snap.ViewHistory)).Msg("profile rebuilt from view history")
	}
	t.state = t.bounded(snap)

	if err := t.store.SaveProfile(ctx, t.state.Profile); err != nil {
		return fmt.Errorf("persist profile: %w", err)
	}
	if err := t.store.SaveViewHistory(ctx, t.state.ViewHistory); err != nil {
		return fmt.Errorf("persist view history: %w", err)
	}
	if err := t.store.SavePurchaseHistory(ctx, t.state.PurchaseHistory); err != nil {
		return fmt.Errorf("persist purchase history: %w", err)
	}
	t.notify(ChangeImport, "")
	return nil
}

// ExportState returns a deep copy of the current state.
func (t *Tracker) ExportState() model.Snapshot {
	return t.state.Clone()
}

// Profile returns the live profile. Callers must not modify it.
func (t *Tracker) Profile() model.PreferenceProfile {
	return t.state.Profile
}

// ViewHistory returns the live view history, newest first. Callers must not
// modify it.
func (t *Tracker) ViewHistory() []model.ViewHistoryEntry {
	return t.state.ViewHistory
}

func (t *Tracker) notify(kind ChangeKind, id string) {
	if len(t.listeners) == 0 {
		return
	}
	snap := t.state.Clone()
	for _, fn := range t.listeners {
		fn(Change{Kind: kind, ItemID: id, Snapshot: snap})
	}
}

// bounded normalizes nil fields and applies both history caps.
func (t *Tracker) bounded(snap model.Snapshot) model.Snapshot {
	if snap.Profile.PreferredTypes == nil {
		snap.Profile.PreferredTypes = map[string]int{}
	}
	if snap.Profile.PreferredLocations == nil {
		snap.Profile.PreferredLocations = map[string]int{}
	}
	if snap.ViewHistory == nil {
		snap.ViewHistory = []model.ViewHistoryEntry{}
	}
	if len(snap.ViewHistory) > t.opts.ViewHistoryCap {
		snap.ViewHistory = snap.ViewHistory[:t.opts.ViewHistoryCap]
	}
	if snap.PurchaseHistory == nil {
		snap.PurchaseHistory = []model.PurchaseHistoryEntry{}
	}
	snap.PurchaseHistory = trimOldest(snap.PurchaseHistory, t.opts.PurchaseHistoryCap)
	return snap
}

func trimOldest(h []model.PurchaseHistoryEntry, limit int) []model.PurchaseHistoryEntry {
	if len(h) <= limit {
		return h
	}
	out := make([]model.PurchaseHistoryEntry, limit)
	copy(out, h[len(h)-limit:])
	return out
}

func emptyState() model.Snapshot {
	return model.Snapshot{
		Profile:         model.NewProfile(),
		ViewHistory:     []model.ViewHistoryEntry{},
		PurchaseHistory: []model.PurchaseHistoryEntry{},
	}
}

func validateProfile(p model.PreferenceProfile) error {
	if p.PriceRange != nil && p.PriceRange.Min > p.PriceRange.Max {
		return fmt.Errorf("%w: price range min %v exceeds max %v", ErrInvalidSnapshot, p.PriceRange.Min, p.PriceRange.Max)
	}
	for k, n := range p.PreferredTypes {
		if n < 0 {
			return fmt.Errorf("%w: negative count for type %q", ErrInvalidSnapshot, k)
		}
	}
	for k, n := range p.PreferredLocations {
		if n < 0 {
			return fmt.Errorf("%w: negative count for location %q", ErrInvalidSnapshot, k)
		}
	}
	return nil
}
