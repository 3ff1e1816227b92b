// Package similarity compares catalog items by their attributes.
package similarity

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/rcliao/property-prefs/internal/model"
)

// DefaultLimit is used when a caller passes a non-positive limit.
const DefaultLimit = 5

const (
	sameCategory   = 30
	sameLocation   = 25
	closePrice     = 20
	closeArea      = 15
	sharedAmenity  = 5
	closeThreshold = 0.2
)

// ErrNotFound is returned when the target id is not in the catalog.
var ErrNotFound = errors.New("property not found")

// Similarity returns a symmetric relatedness score for a and b.
func Similarity(a, b model.Property) float64 {
	var score float64

	if a.Category == b.Category {
		score += sameCategory
	}
	if a.Location == b.Location {
		score += sameLocation
	}

	if avg := (a.Price + b.Price) / 2; avg != 0 {
		if math.Abs(a.Price-b.Price)/avg < closeThreshold {
			score += closePrice
		}
	}

	if a.Area != nil && b.Area != nil {
		if larger := math.Max(*a.Area, *b.Area); larger != 0 {
			if math.Abs(*a.Area-*b.Area)/larger < closeThreshold {
				score += closeArea
			}
		}
	}

	if a.Amenities != nil && b.Amenities != nil {
		score += float64(sharedCount(a.Amenities, b.Amenities)) * sharedAmenity
	}

	return score
}

// sharedCount is the size of the set intersection; duplicates count once.
func sharedCount(a, b []string) int {
	inB := make(map[string]bool, len(b))
	for _, x := range b {
		inB[x] = true
	}
	n := 0
	counted := map[string]bool{}
	for _, x := range a {
		if inB[x] && !counted[x] {
			counted[x] = true
			n++
		}
	}
	return n
}

// Scored pairs a catalog entry with its similarity to the target.
type Scored struct {
	Property   model.Property `json:"property"`
	Similarity float64        `json:"similarity"`
}

// TopSimilar returns the limit entries most similar to targetID. Ties keep
// catalog order.
func TopSimilar(targetID string, catalog []model.Property, limit int) ([]model.Property, error) {
	scored, err := TopSimilarScored(targetID, catalog, limit)
	if err != nil {
		return nil, err
	}
	out := make([]model.Property, len(scored))
	for i, s := range scored {
		out[i] = s.Property
	}
	return out, nil
}

// TopSimilarScored is TopSimilar keeping the scores.
func TopSimilarScored(targetID string, catalog []model.Property, limit int) ([]Scored, error) {
	idx := -1
	for i, p := range catalog {
		if p.ID == targetID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, targetID)
	}
	target := catalog[idx]

	scored := make([]Scored, 0, len(catalog))
	for _, p := range catalog {
		if p.ID == targetID {
			continue
		}
		scored = append(scored, Scored{Property: p, Similarity: Similarity(target, p)})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Similarity > scored[j].Similarity
	})

	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit < len(scored) {
		scored = scored[:limit]
	}
	return scored, nil
}
