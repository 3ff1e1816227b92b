// Package engine is the public entry point of the preference engine. An
// Engine is constructed and owned by the host application; behavioral events
// reach it through an events.Emitter subscription or direct Handle calls.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/rcliao/property-prefs/internal/catalog"
	"github.com/rcliao/property-prefs/internal/config"
	"github.com/rcliao/property-prefs/internal/events"
	"github.com/rcliao/property-prefs/internal/model"
	"github.com/rcliao/property-prefs/internal/recommend"
	"github.com/rcliao/property-prefs/internal/similarity"
	"github.com/rcliao/property-prefs/internal/store"
	"github.com/rcliao/property-prefs/internal/tracker"
)

// Engine orchestrates tracking, scoring and persistence. It is not safe for
// concurrent use; the host serializes calls.
type Engine struct {
	store        store.Store
	tracker      *tracker.Tracker
	scorer       *recommend.Scorer
	defaultLimit int
	logger       zerolog.Logger
}

// Option customizes an Engine.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock sets the clock used for history timestamps and freshness.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// New creates an engine over st and loads the persisted state. A nil cfg
// uses config.Default().
func New(ctx context.Context, st store.Store, cfg *config.Config, logger zerolog.Logger, opts ...Option) (*Engine, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	tr, err := tracker.New(ctx, st, tracker.Options{
		ViewHistoryCap:     cfg.Tracker.ViewHistoryCap,
		PurchaseHistoryCap: cfg.Tracker.PurchaseHistoryCap,
		Now:                o.now,
		Logger:             logger,
	})
	if err != nil {
		return nil, err
	}

	return &Engine{
		store:        st,
		tracker:      tr,
		scorer:       recommend.NewScorer(cfg.Recommend.Weights, o.now),
		defaultLimit: cfg.Recommend.DefaultLimit,
		logger:       logger.With().Str("component", "engine").Logger(),
	}, nil
}

// Subscribe registers the engine's handlers on em.
func (e *Engine) Subscribe(em *events.Emitter) {
	em.OnViewed(e.HandleViewed)
	em.OnBooked(e.HandleBooked)
}

// HandleViewed records a property view.
func (e *Engine) HandleViewed(ctx context.Context, ev events.PropertyViewed) error {
	if err := e.tracker.RecordView(ctx, ev.Property()); err != nil {
		e.logger.Error().Err(err).Str("event_id", ev.EventID).Msg("record view failed")
		return err
	}
	return nil
}

// HandleBooked records a booking.
func (e *Engine) HandleBooked(ctx context.Context, ev events.PropertyBooked) error {
	if err := e.tracker.RecordPurchase(ctx, ev.Property()); err != nil {
		e.logger.Error().Err(err).Str("event_id", ev.EventID).Msg("record purchase failed")
		return err
	}
	return nil
}

// GetRecommendations ranks candidates against the current profile. A
// non-positive limit uses the configured default.
func (e *Engine) GetRecommendations(candidates []model.Property, limit int) []model.Property {
	return e.scorer.Rank(candidates, e.tracker.Profile(), e.tracker.ViewHistory(), e.limit(limit))
}

// ExplainRecommendations ranks on the scored path and keeps each breakdown.
// Unlike GetRecommendations it does not switch to popularity on cold start.
func (e *Engine) ExplainRecommendations(candidates []model.Property, limit int) []recommend.Scored {
	return e.scorer.RankScored(candidates, e.tracker.Profile(), e.tracker.ViewHistory(), e.limit(limit))
}

// RecommendFrom ranks the candidates supplied by src.
func (e *Engine) RecommendFrom(ctx context.Context, src catalog.Source, limit int) ([]model.Property, error) {
	candidates, err := src.Properties(ctx)
	if err != nil {
		return nil, fmt.Errorf("load candidates: %w", err)
	}
	return e.GetRecommendations(candidates, limit), nil
}

// GetSimilarProperties returns the catalog entries most similar to targetID.
// It fails with similarity.ErrNotFound when the target is not in candidates.
func (e *Engine) GetSimilarProperties(targetID string, candidates []model.Property, limit int) ([]model.Property, error) {
	return similarity.TopSimilar(targetID, candidates, e.limit(limit))
}

// ExportState returns a copy of the profile and both histories.
func (e *Engine) ExportState() model.Snapshot {
	return e.tracker.ExportState()
}

// Import replaces the state with snap.
func (e *Engine) Import(ctx context.Context, snap model.Snapshot) error {
	return e.tracker.Import(ctx, snap)
}

// Reset clears the profile, both histories and the store.
func (e *Engine) Reset(ctx context.Context) error {
	if err := e.tracker.Reset(ctx); err != nil {
		return err
	}
	e.logger.Info().Msg("preferences reset")
	return nil
}

// OnChange registers fn for profile change notifications.
func (e *Engine) OnChange(fn tracker.ChangeFunc) {
	e.tracker.OnChange(fn)
}

// Stats reports storage statistics.
func (e *Engine) Stats(ctx context.Context) (*store.Stats, error) {
	return e.store.Stats(ctx)
}

// Close closes the underlying store.
func (e *Engine) Close() error {
	return e.store.Close()
}

func (e *Engine) limit(n int) int {
	if n <= 0 {
		return e.defaultLimit
	}
	return n
}
