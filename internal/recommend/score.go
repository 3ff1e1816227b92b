// Package recommend scores catalog items against the preference profile and
// ranks a candidate set.
package recommend

import (
	"math"
	"time"

	"github.com/rcliao/property-prefs/internal/model"
)

// DefaultLimit is used when a caller passes a non-positive limit.
const DefaultLimit = 5

const (
	freshWeek      = 7 * 24 * time.Hour
	freshThreeDays = 3 * 24 * time.Hour
)

// Weights are the additive scoring terms. Terms are not normalized against
// each other.
type Weights struct {
	Type           float64 `json:"type" koanf:"type"`
	Location       float64 `json:"location" koanf:"location"`
	PriceFit       float64 `json:"price_fit" koanf:"price_fit"`
	RecentlyViewed float64 `json:"recently_viewed" koanf:"recently_viewed"`
	NewWeek        float64 `json:"new_week" koanf:"new_week"`
	NewThreeDays   float64 `json:"new_three_days" koanf:"new_three_days"`
}

// DefaultWeights returns the standard term weights.
func DefaultWeights() Weights {
	return Weights{
		Type:           10,
		Location:       8,
		PriceFit:       20,
		RecentlyViewed: -5,
		NewWeek:        15,
		NewThreeDays:   10,
	}
}

// Breakdown is the per-term contribution to a score.
type Breakdown struct {
	Type      float64 `json:"type"`
	Location  float64 `json:"location"`
	Price     float64 `json:"price"`
	Recency   float64 `json:"recency"`
	Freshness float64 `json:"freshness"`
	Total     float64 `json:"total"`
}

// Scorer computes relevance between the profile and a candidate.
type Scorer struct {
	weights Weights
	now     func() time.Time
}

// NewScorer creates a scorer. A nil now uses time.Now.
func NewScorer(w Weights, now func() time.Time) *Scorer {
	if now == nil {
		now = time.Now
	}
	return &Scorer{weights: w, now: now}
}

// Score returns the relevance of item for the given profile and history.
func (s *Scorer) Score(item model.Property, profile model.PreferenceProfile, history []model.ViewHistoryEntry) float64 {
	return s.Explain(item, profile, history).Total
}

// Explain returns the score split by term.
func (s *Scorer) Explain(item model.Property, profile model.PreferenceProfile, history []model.ViewHistoryEntry) Breakdown {
	return s.explain(item, profile, seenIDs(history), s.now())
}

func (s *Scorer) explain(item model.Property, profile model.PreferenceProfile, seen map[string]bool, now time.Time) Breakdown {
	w := s.weights
	var b Breakdown

	b.Type = float64(profile.PreferredTypes[item.Category]) * w.Type
	b.Location = float64(profile.PreferredLocations[item.Location]) * w.Location

	if r := profile.PriceRange; r != nil {
		b.Price = priceFit(item.Price, *r, w.PriceFit)
	}

	if seen[item.ID] {
		b.Recency = w.RecentlyViewed
	}

	if item.CreatedAt != nil {
		age := now.Sub(*item.CreatedAt)
		if age < freshWeek {
			b.Freshness += w.NewWeek
		}
		if age < freshThreeDays {
			b.Freshness += w.NewThreeDays
		}
	}

	b.Total = b.Type + b.Location + b.Price + b.Recency + b.Freshness
	return b
}

// priceFit rewards prices near the middle of the observed range. A zero-width
// range gives the full bonus only for an exact match.
func priceFit(price float64, r model.PriceRange, weight float64) float64 {
	mid := (r.Min + r.Max) / 2
	span := r.Max - r.Min
	if span == 0 {
		if price == mid {
			return weight
		}
		return 0
	}
	return math.Max(0, weight-(math.Abs(price-mid)/span)*weight)
}

func seenIDs(history []model.ViewHistoryEntry) map[string]bool {
	seen := make(map[string]bool, len(history))
	for _, h := range history {
		seen[h.ID] = true
	}
	return seen
}
