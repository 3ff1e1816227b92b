package tracker

import "github.com/rcliao/property-prefs/internal/model"

// ApplyView folds one viewed item into p. Optional attributes such as area
// and amenities do not influence the profile.
func ApplyView(p *model.PreferenceProfile, item model.Property) {
	if p.PriceRange == nil {
		p.PriceRange = &model.PriceRange{Min: item.Price, Max: item.Price}
	} else {
		p.PriceRange.Widen(item.Price)
	}

	if p.PreferredTypes == nil {
		p.PreferredTypes = map[string]int{}
	}
	p.PreferredTypes[item.Category]++

	if p.PreferredLocations == nil {
		p.PreferredLocations = map[string]int{}
	}
	p.PreferredLocations[item.Location]++
}

// Replay rebuilds a profile from an ordered view stream, starting empty.
func Replay(views []model.Property) model.PreferenceProfile {
	p := model.NewProfile()
	for _, v := range views {
		ApplyView(&p, v)
	}
	return p
}

// replayHistory rebuilds a profile from stored view entries. The history is
// newest first; the fold is order independent so it is replayed as stored.
func replayHistory(h []model.ViewHistoryEntry) model.PreferenceProfile {
	views := make([]model.Property, len(h))
	for i, e := range h {
		views[i] = model.Property{ID: e.ID, Category: e.Category, Price: e.Price, Location: e.Location}
	}
	return Replay(views)
}
