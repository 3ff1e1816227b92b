package recommend

import (
	"sort"

	"github.com/rcliao/property-prefs/internal/model"
)

// Scored pairs a candidate with its score breakdown.
type Scored struct {
	Property model.Property `json:"property"`
	Score    Breakdown      `json:"score"`
}

// Rank returns the top limit candidates by descending score. Ties keep
// catalog order. With an empty view history it falls back to Popular.
func (s *Scorer) Rank(items []model.Property, profile model.PreferenceProfile, history []model.ViewHistoryEntry, limit int) []model.Property {
	if len(history) == 0 {
		return Popular(items, limit)
	}
	scored := s.RankScored(items, profile, history, limit)
	out := make([]model.Property, len(scored))
	for i, sc := range scored {
		out[i] = sc.Property
	}
	return out
}

// RankScored is Rank on the scored path, keeping each breakdown. It always
// scores, even when history is empty.
func (s *Scorer) RankScored(items []model.Property, profile model.PreferenceProfile, history []model.ViewHistoryEntry, limit int) []Scored {
	seen := seenIDs(history)
	now := s.now()

	scored := make([]Scored, len(items))
	for i, item := range items {
		scored[i] = Scored{Property: item, Score: s.explain(item, profile, seen, now)}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score.Total > scored[j].Score.Total
	})
	return scored[:clampLimit(limit, len(scored))]
}

// Popular returns the top limit items by descending view counter, ties in
// catalog order. It is the cold-start ranking.
func Popular(items []model.Property, limit int) []model.Property {
	out := make([]model.Property, len(items))
	copy(out, items)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Views > out[j].Views
	})
	return out[:clampLimit(limit, len(out))]
}

func clampLimit(limit, n int) int {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > n {
		return n
	}
	return limit
}
