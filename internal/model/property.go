// Package model defines the core property and preference data types.
package model

import (
	"errors"
	"fmt"
	"time"
)

// Property is a catalog item. It is read-only to the engine.
type Property struct {
	ID        string     `json:"id"`
	Category  string     `json:"type"`
	Price     float64    `json:"price"`
	Location  string     `json:"location"`
	Area      *float64   `json:"area,omitempty"`
	Amenities []string   `json:"amenities,omitempty"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
	Views     int        `json:"views,omitempty"`
}

// ErrInvalidProperty is returned by Validate.
var ErrInvalidProperty = errors.New("invalid property")

// Validate rejects properties that cannot be tracked.
func (p Property) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidProperty)
	}
	if p.Price < 0 {
		return fmt.Errorf("%w: negative price %v for %s", ErrInvalidProperty, p.Price, p.ID)
	}
	return nil
}

// ViewHistoryEntry records a single property view.
type ViewHistoryEntry struct {
	ID        string    `json:"id"`
	Category  string    `json:"type"`
	Price     float64   `json:"price"`
	Location  string    `json:"location"`
	Timestamp time.Time `json:"timestamp"`
}

// PurchaseHistoryEntry records a single booking.
type PurchaseHistoryEntry struct {
	ID        string    `json:"id"`
	Category  string    `json:"type"`
	Price     float64   `json:"price"`
	Timestamp time.Time `json:"timestamp"`
}

// PriceRange holds the running bounds of viewed prices.
type PriceRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Widen extends the range to include price. It never narrows.
func (r *PriceRange) Widen(price float64) {
	if price < r.Min {
		r.Min = price
	}
	if price > r.Max {
		r.Max = price
	}
}

// PreferenceProfile is the aggregate model of the user's taste.
type PreferenceProfile struct {
	PriceRange         *PriceRange    `json:"priceRange,omitempty"`
	PreferredTypes     map[string]int `json:"preferredTypes"`
	PreferredLocations map[string]int `json:"preferredLocations"`
}

// NewProfile returns an empty profile with initialized maps.
func NewProfile() PreferenceProfile {
	return PreferenceProfile{
		PreferredTypes:     map[string]int{},
		PreferredLocations: map[string]int{},
	}
}

// IsEmpty reports whether no view has been folded into the profile.
func (p PreferenceProfile) IsEmpty() bool {
	return p.PriceRange == nil && len(p.PreferredTypes) == 0 && len(p.PreferredLocations) == 0
}

// Clone returns a deep copy.
func (p PreferenceProfile) Clone() PreferenceProfile {
	out := NewProfile()
	if p.PriceRange != nil {
		r := *p.PriceRange
		out.PriceRange = &r
	}
	for k, v := range p.PreferredTypes {
		out.PreferredTypes[k] = v
	}
	for k, v := range p.PreferredLocations {
		out.PreferredLocations[k] = v
	}
	return out
}

// Snapshot is a read-only copy of the engine state for export and import.
type Snapshot struct {
	Profile         PreferenceProfile      `json:"preferences"`
	ViewHistory     []ViewHistoryEntry     `json:"viewHistory"`
	PurchaseHistory []PurchaseHistoryEntry `json:"purchaseHistory"`
}

// Clone returns a deep copy of the snapshot. Histories are never nil.
func (s Snapshot) Clone() Snapshot {
	views := make([]ViewHistoryEntry, len(s.ViewHistory))
	copy(views, s.ViewHistory)
	purchases := make([]PurchaseHistoryEntry, len(s.PurchaseHistory))
	copy(purchases, s.PurchaseHistory)
	return Snapshot{
		Profile:         s.Profile.Clone(),
		ViewHistory:     views,
		PurchaseHistory: purchases,
	}
}
