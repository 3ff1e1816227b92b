package engine

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/property-prefs/internal/catalog"
	"github.com/rcliao/property-prefs/internal/config"
	"github.com/rcliao/property-prefs/internal/events"
	"github.com/rcliao/property-prefs/internal/model"
	"github.com/rcliao/property-prefs/internal/similarity"
	"github.com/rcliao/property-prefs/internal/store"
	"github.com/rcliao/property-prefs/internal/tracker"
)

var now = time.Date(2026, 8, 15, 10, 0, 0, 0, time.UTC)

func clock() time.Time { return now }

func newTestEngine(t *testing.T, st store.Store) *Engine {
	t.Helper()
	e, err := New(context.Background(), st, nil, zerolog.Nop(), WithClock(clock))
	require.NoError(t, err)
	return e
}

func newSQLite(t *testing.T, path string) store.Store {
	t.Helper()
	s, err := store.NewSQLiteStore(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testCatalog() []model.Property {
	fresh := now.Add(-36 * time.Hour)
	return []model.Property{
		{ID: "1", Category: "villa", Location: "riyadh", Price: 900, Views: 5},
		{ID: "2", Category: "flat", Location: "jeddah", Price: 300, Views: 9},
		{ID: "3", Category: "villa", Location: "riyadh", Price: 950, Views: 1},
		{ID: "4", Category: "flat", Location: "riyadh", Price: 320, Views: 2, CreatedAt: &fresh},
		{ID: "5", Category: "chalet", Location: "abha", Price: 150, Views: 7},
	}
}

func TestColdStart(t *testing.T) {
	e := newTestEngine(t, newSQLite(t, filepath.Join(t.TempDir(), "p.db")))
	got := e.GetRecommendations([]model.Property{{ID: "1", Views: 5}, {ID: "2", Views: 9}}, 1)
	require.Len(t, got, 1)
	require.Equal(t, "2", got[0].ID)
}

func TestEventsDriveRecommendations(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, newSQLite(t, filepath.Join(t.TempDir(), "p.db")))
	em := events.NewEmitter(clock)
	e.Subscribe(em)

	_, err := em.EmitViewed(ctx, events.PropertyViewed{ID: "1", Category: "villa", Location: "riyadh", Price: 900})
	require.NoError(t, err)
	_, err = em.EmitViewed(ctx, events.PropertyViewed{ID: "9", Category: "villa", Location: "riyadh", Price: 1000})
	require.NoError(t, err)

	got := e.GetRecommendations(testCatalog(), 3)
	// 3: 20+16+20, 1: 20+16+10-5, 4: 16+25 (ties keep catalog order)
	require.Equal(t, []string{"3", "1", "4"}, idsOf(got))

	explained := e.ExplainRecommendations(testCatalog(), 1)
	require.Equal(t, 56.0, explained[0].Score.Total)
}

func TestBookedDoesNotChangeRanking(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, newSQLite(t, filepath.Join(t.TempDir(), "p.db")))

	require.NoError(t, e.HandleViewed(ctx, events.PropertyViewed{ID: "1", Category: "villa", Location: "riyadh", Price: 900}))
	before := idsOf(e.GetRecommendations(testCatalog(), 5))

	require.NoError(t, e.HandleBooked(ctx, events.PropertyBooked{ID: "5", Category: "chalet", Price: 150}))
	require.Equal(t, before, idsOf(e.GetRecommendations(testCatalog(), 5)))
	require.Len(t, e.ExportState().PurchaseHistory, 1)
}

func TestStateSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "p.db")

	st, err := store.NewSQLiteStore(path)
	require.NoError(t, err)
	e := newTestEngine(t, st)
	require.NoError(t, e.HandleViewed(ctx, events.PropertyViewed{ID: "2", Category: "flat", Location: "jeddah", Price: 300}))
	want := e.ExportState()
	require.NoError(t, e.Close())

	e2 := newTestEngine(t, newSQLite(t, path))
	got := e2.ExportState()
	require.Equal(t, want.Profile, got.Profile)
	require.Len(t, got.ViewHistory, 1)
	require.True(t, got.ViewHistory[0].Timestamp.Equal(now))
}

func TestReset(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "p.db")
	st := newSQLite(t, path)
	e := newTestEngine(t, st)

	require.NoError(t, e.HandleViewed(ctx, events.PropertyViewed{ID: "1", Category: "villa", Location: "riyadh", Price: 900}))
	require.NoError(t, e.HandleBooked(ctx, events.PropertyBooked{ID: "1", Category: "villa", Price: 900}))
	require.NoError(t, e.Reset(ctx))

	snap := e.ExportState()
	require.True(t, snap.Profile.IsEmpty())
	require.Empty(t, snap.ViewHistory)
	require.Empty(t, snap.PurchaseHistory)

	loaded, err := st.Load(ctx)
	require.NoError(t, err)
	require.True(t, loaded.Profile.IsEmpty())
	require.Empty(t, loaded.ViewHistory)
	require.Empty(t, loaded.PurchaseHistory)

	// Back to cold start.
	got := e.GetRecommendations(testCatalog(), 1)
	require.Equal(t, "2", got[0].ID)
}

func TestGetSimilarProperties(t *testing.T) {
	e := newTestEngine(t, newSQLite(t, filepath.Join(t.TempDir(), "p.db")))

	got, err := e.GetSimilarProperties("1", testCatalog(), 0)
	require.NoError(t, err)
	require.Len(t, got, 4)
	require.Equal(t, "3", got[0].ID)

	_, err = e.GetSimilarProperties("nope", testCatalog(), 3)
	require.ErrorIs(t, err, similarity.ErrNotFound)
}

func TestRecommendFromSource(t *testing.T) {
	e := newTestEngine(t, newSQLite(t, filepath.Join(t.TempDir(), "p.db")))
	got, err := e.RecommendFrom(context.Background(), catalog.Static(testCatalog()), 2)
	require.NoError(t, err)
	require.Equal(t, []string{"2", "5"}, idsOf(got))

	_, err = e.RecommendFrom(context.Background(), catalog.File{Path: filepath.Join(t.TempDir(), "missing.json")}, 2)
	require.Error(t, err)
}

func TestOnChangeAndImport(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, newSQLite(t, filepath.Join(t.TempDir(), "p.db")))

	var kinds []tracker.ChangeKind
	e.OnChange(func(c tracker.Change) { kinds = append(kinds, c.Kind) })

	snap := model.Snapshot{Profile: tracker.Replay(testCatalog()[:2])}
	snap.ViewHistory = []model.ViewHistoryEntry{{ID: "2"}, {ID: "1"}}
	require.NoError(t, e.Import(ctx, snap))
	require.NoError(t, e.HandleViewed(ctx, events.PropertyViewed{ID: "3", Category: "villa", Price: 950}))

	require.Equal(t, []tracker.ChangeKind{tracker.ChangeImport, tracker.ChangeView}, kinds)
	require.Equal(t, 2, e.ExportState().Profile.PreferredTypes["villa"])
}

func TestConfiguredDefaultsApply(t *testing.T) {
	cfg := config.Default()
	cfg.Recommend.DefaultLimit = 2
	cfg.Tracker.ViewHistoryCap = 1

	e, err := New(context.Background(), newSQLite(t, filepath.Join(t.TempDir(), "p.db")), cfg, zerolog.Nop(), WithClock(clock))
	require.NoError(t, err)

	require.Len(t, e.GetRecommendations(testCatalog(), 0), 2)

	ctx := context.Background()
	require.NoError(t, e.HandleViewed(ctx, events.PropertyViewed{ID: "a"}))
	require.NoError(t, e.HandleViewed(ctx, events.PropertyViewed{ID: "b"}))
	require.Len(t, e.ExportState().ViewHistory, 1)
}

func TestInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Store.Backend = "mongo"
	_, err := New(context.Background(), newSQLite(t, filepath.Join(t.TempDir(), "p.db")), cfg, zerolog.Nop())
	require.Error(t, err)
}

func TestBadgerBackend(t *testing.T) {
	ctx := context.Background()
	st, err := store.NewInMemoryBadgerStore()
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	e := newTestEngine(t, st)
	require.NoError(t, e.HandleViewed(ctx, events.PropertyViewed{ID: "5", Category: "chalet", Location: "abha", Price: 150}))

	loaded, err := st.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, loaded.Profile.PreferredTypes["chalet"])

	stats, err := e.Stats(ctx)
	require.NoError(t, err)
	require.Equal(t, "badger", stats.Backend)
}

func idsOf(items []model.Property) []string {
	out := make([]string, len(items))
	for i, p := range items {
		out[i] = p.ID
	}
	return out
}

func TestLogLinesCarryOneComponent(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.DebugLevel)

	e, err := New(ctx, newSQLite(t, filepath.Join(t.TempDir(), "p.db")), nil, logger, WithClock(clock))
	require.NoError(t, err)
	require.NoError(t, e.HandleViewed(ctx, events.PropertyViewed{ID: "1", Category: "villa", Price: 900, Location: "riyadh"}))
	require.NoError(t, e.Reset(ctx))

	var components []string
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		require.Equal(t, 1, strings.Count(line, `"component"`), line)
		switch {
		case strings.Contains(line, `"component":"tracker"`):
			components = append(components, "tracker")
		case strings.Contains(line, `"component":"engine"`):
			components = append(components, "engine")
		}
	}
	require.Contains(t, components, "tracker")
	require.Contains(t, components, "engine")
}
