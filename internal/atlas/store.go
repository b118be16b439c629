package atlas

import "fmt"

// Store is the per-session UI state: view mode, panel flags, the current
// selections and the story filters. It is owned by the session loop and
// is not synchronized; every mutation goes through a setter so each field
// has exactly one writer path.
type Store struct {
	mode           ViewMode
	menuOpen       bool
	storyPanelOpen bool
	aboutVisible   bool

	community Ref
	theme     Ref
	character Ref
	story     Ref

	filters Filters
}

// NewStore returns a store starting in mode with everything else closed
// and unselected.
func NewStore(mode ViewMode) *Store {
	return &Store{mode: mode}
}

// Mode returns the current view mode.
func (st *Store) Mode() ViewMode { return st.mode }

// SetMode records a new view mode.
func (st *Store) SetMode(m ViewMode) { st.mode = m }

// MenuOpen reports whether the navigation menu is open.
func (st *Store) MenuOpen() bool { return st.menuOpen }

// SetMenuOpen opens or closes the navigation menu.
func (st *Store) SetMenuOpen(open bool) { st.menuOpen = open }

// StoryPanelOpen reports whether the story panel is open.
func (st *Store) StoryPanelOpen() bool { return st.storyPanelOpen }

// SetStoryPanelOpen opens or closes the story panel.
func (st *Store) SetStoryPanelOpen(open bool) { st.storyPanelOpen = open }

// AboutVisible reports whether the about section is expanded.
func (st *Store) AboutVisible() bool { return st.aboutVisible }

// SetAboutVisible expands or collapses the about section.
func (st *Store) SetAboutVisible(v bool) { st.aboutVisible = v }

// Community returns the selected community.
func (st *Store) Community() Ref { return st.community }

// SetCommunity records the selected community.
func (st *Store) SetCommunity(r Ref) { st.community = r }

// Theme returns the selected theme.
func (st *Store) Theme() Ref { return st.theme }

// SetTheme records the selected theme.
func (st *Store) SetTheme(r Ref) { st.theme = r }

// Character returns the selected character.
func (st *Store) Character() Ref { return st.character }

// SetCharacter records the selected character.
func (st *Store) SetCharacter(r Ref) { st.character = r }

// Story returns the selected story.
func (st *Store) Story() Ref { return st.story }

// SetStory records the selected story.
func (st *Store) SetStory(r Ref) { st.story = r }

// Filters returns a copy of the current filter settings.
func (st *Store) Filters() Filters { return st.filters }

// UpdateFilter merges a single named filter field, leaving the other
// fields untouched. Unknown keys are rejected without mutating anything.
func (st *Store) UpdateFilter(key, value string) error {
	switch key {
	case "theme":
		st.filters.Theme = value
	case "mediaType":
		st.filters.MediaType = value
	case "dateRange":
		st.filters.DateRange = value
	default:
		return fmt.Errorf("unknown filter key %q", key)
	}
	return nil
}
