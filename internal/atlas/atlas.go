// Package atlas holds the explore-session core: the view mode, the
// shared UI store, the map host and the overlay lifecycle. One Session
// is a single-goroutine event loop owning all of this state for one
// visitor; the map engine behind it is an interface, so the production
// browser relay and the test spy are interchangeable.
package atlas

import (
	"fmt"
	"strings"
)

// ViewMode selects the explore experience.
type ViewMode string

const (
	// ModeStories shows the narrative base style with story markers.
	ModeStories ViewMode = "stories"
	// ModeData shows the data base style for browsing mapped layers.
	ModeData ViewMode = "data"
)

// Valid reports whether m is a known view mode.
func (m ViewMode) Valid() bool {
	return m == ModeStories || m == ModeData
}

// ParseViewMode parses a mode string, accepting any casing.
func ParseViewMode(s string) (ViewMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(ModeStories):
		return ModeStories, nil
	case string(ModeData):
		return ModeData, nil
	}
	return "", fmt.Errorf("unknown view mode %q", s)
}

// Ref identifies a selectable content entity (community, theme,
// character or story) by id plus display name.
type Ref struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// IsZero reports whether the ref is unset.
func (r Ref) IsZero() bool { return r.ID == "" && r.Name == "" }

// Filters narrows which stories the story panel surfaces.
type Filters struct {
	Theme     string `json:"theme"`
	MediaType string `json:"mediaType"`
	DateRange string `json:"dateRange"`
}
