// Package events defines the behavioral events consumed by the engine and a
// synchronous typed emitter that delivers them.
package events

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/rcliao/property-prefs/internal/model"
)

// ErrInvalidEvent is returned when an event fails validation.
var ErrInvalidEvent = errors.New("invalid event")

// Meta identifies one emitted event.
type Meta struct {
	EventID    string    `json:"event_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at,omitempty"`
}

// PropertyViewed is emitted when the user opens a property.
type PropertyViewed struct {
	Meta
	ID        string     `json:"id"`
	Category  string     `json:"type"`
	Price     float64    `json:"price"`
	Location  string     `json:"location"`
	Area      *float64   `json:"area,omitempty"`
	Amenities []string   `json:"amenities,omitempty"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
}

// Property converts the event to the catalog shape.
func (e PropertyViewed) Property() model.Property {
	return model.Property{
		ID:        e.ID,
		Category:  e.Category,
		Price:     e.Price,
		Location:  e.Location,
		Area:      e.Area,
		Amenities: e.Amenities,
		CreatedAt: e.CreatedAt,
	}
}

// PropertyBooked is emitted when the user books a property.
type PropertyBooked struct {
	Meta
	ID       string  `json:"id"`
	Category string  `json:"type"`
	Price    float64 `json:"price"`
}

// Property converts the event to the catalog shape.
func (e PropertyBooked) Property() model.Property {
	return model.Property{ID: e.ID, Category: e.Category, Price: e.Price}
}

// ViewedHandler handles PropertyViewed events.
type ViewedHandler func(ctx context.Context, ev PropertyViewed) error

// BookedHandler handles PropertyBooked events.
type BookedHandler func(ctx context.Context, ev PropertyBooked) error

// Emitter delivers events to subscribed handlers synchronously, in
// subscription order. The first handler error stops delivery and is returned.
// It is not safe for concurrent use.
type Emitter struct {
	viewed  []ViewedHandler
	booked  []BookedHandler
	now     func() time.Time
	entropy *ulid.MonotonicEntropy
}

// NewEmitter creates an emitter. A nil now uses time.Now.
func NewEmitter(now func() time.Time) *Emitter {
	if now == nil {
		now = time.Now
	}
	return &Emitter{
		now:     now,
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
}

// OnViewed subscribes h to PropertyViewed.
func (e *Emitter) OnViewed(h ViewedHandler) {
	e.viewed = append(e.viewed, h)
}

// OnBooked subscribes h to PropertyBooked.
func (e *Emitter) OnBooked(h BookedHandler) {
	e.booked = append(e.booked, h)
}

// EmitViewed validates ev, stamps its Meta if empty, and delivers it.
func (e *Emitter) EmitViewed(ctx context.Context, ev PropertyViewed) (PropertyViewed, error) {
	if err := ev.Property().Validate(); err != nil {
		return ev, fmt.Errorf("%w: %w", ErrInvalidEvent, err)
	}
	meta, err := e.stamp(ev.Meta)
	if err != nil {
		return ev, err
	}
	ev.Meta = meta
	for _, h := range e.viewed {
		if err := h(ctx, ev); err != nil {
			return ev, fmt.Errorf("handle %s: %w", ev.EventID, err)
		}
	}
	return ev, nil
}

// EmitBooked validates ev, stamps its Meta if empty, and delivers it.
func (e *Emitter) EmitBooked(ctx context.Context, ev PropertyBooked) (PropertyBooked, error) {
	if err := ev.Property().Validate(); err != nil {
		return ev, fmt.Errorf("%w: %w", ErrInvalidEvent, err)
	}
	meta, err := e.stamp(ev.Meta)
	if err != nil {
		return ev, err
	}
	ev.Meta = meta
	for _, h := range e.booked {
		if err := h(ctx, ev); err != nil {
			return ev, fmt.Errorf("handle %s: %w", ev.EventID, err)
		}
	}
	return ev, nil
}

// stamp fills in OccurredAt and EventID. Times before the Unix epoch cannot
// be encoded in a ULID and are rejected.
func (e *Emitter) stamp(m Meta) (Meta, error) {
	if m.OccurredAt.IsZero() {
		m.OccurredAt = e.now()
	}
	if m.OccurredAt.Before(time.Unix(0, 0)) {
		return m, fmt.Errorf("%w: occurred_at %s is before the Unix epoch", ErrInvalidEvent, m.OccurredAt.Format(time.RFC3339))
	}
	if m.EventID == "" {
		id, err := ulid.New(ulid.Timestamp(m.OccurredAt), e.entropy)
		if err != nil {
			return m, fmt.Errorf("%w: event id: %w", ErrInvalidEvent, err)
		}
		m.EventID = id.String()
	}
	return m, nil
}
