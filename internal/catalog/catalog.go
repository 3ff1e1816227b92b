// Package catalog supplies candidate properties to the engine.
package catalog

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-json"

	"github.com/rcliao/property-prefs/internal/model"
)

// Source returns the current candidate set.
type Source interface {
	Properties(ctx context.Context) ([]model.Property, error)
}

// Static is a fixed in-memory catalog.
type Static []model.Property

func (s Static) Properties(context.Context) ([]model.Property, error) {
	return s, nil
}

// File reads a JSON array of properties from disk on every call.
type File struct {
	Path string
}

func (f File) Properties(ctx context.Context) ([]model.Property, error) {
	fh, err := os.Open(f.Path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer fh.Close()
	return Decode(fh)
}

// Decode parses a JSON array of properties and rejects duplicate or empty ids.
func Decode(r io.Reader) ([]model.Property, error) {
	var props []model.Property
	if err := json.NewDecoder(r).Decode(&props); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	seen := make(map[string]bool, len(props))
	for i, p := range props {
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("catalog entry %d: %w", i, err)
		}
		if seen[p.ID] {
			return nil, fmt.Errorf("catalog entry %d: duplicate id %q", i, p.ID)
		}
		seen[p.ID] = true
	}
	return props, nil
}
