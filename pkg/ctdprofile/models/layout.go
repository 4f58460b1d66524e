package models

import "sort"

// LayoutEntry describes one expected column of a profile.
type LayoutEntry struct {
	// Index is the 0-based column index.
	Index int `json:"index"`
	// Name is the expected column label (matched as a substring).
	Name string `json:"name"`
	// Active reports whether the sensor behind the column is trusted.
	Active bool `json:"active"`
	// Format is an optional print format such as "11.3f".
	Format string `json:"format,omitempty"`
}

// SensorLayout is the expected column layout of an instrument, keyed by column index.
type SensorLayout struct {
	// Source is the file the layout was loaded from.
	Source string `json:"source,omitempty"`
	// Entries maps column index to its layout entry.
	Entries map[int]LayoutEntry `json:"entries"`
}

// Indices returns the layout's column indices in ascending order.
func (l *SensorLayout) Indices() []int {
	indices := make([]int, 0, len(l.Entries))
	for i := range l.Entries {
		indices = append(indices, i)
	}
	sort.Ints(indices)
	return indices
}
