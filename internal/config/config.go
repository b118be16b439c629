// Package config loads the site configuration: titles, the map camera,
// the per-mode base styles, the overlay registry and the landing page
// sections. A missing file falls back to the built-in defaults, which
// describe the Milwaukee pilot deployment.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the full site configuration.
type Config struct {
	Site     Site      `yaml:"site"`
	Map      Map       `yaml:"map"`
	Overlays []Overlay `yaml:"overlays"`
	Sections []string  `yaml:"sections"`
	Menu     Menu      `yaml:"menu"`
}

// Site names the deployment.
type Site struct {
	Title   string `yaml:"title"`
	Tagline string `yaml:"tagline"`
}

// Map holds the camera and the base style registry keyed by view mode.
type Map struct {
	// Styles maps a view mode ("stories", "data") to a MapLibre style URL.
	Styles map[string]string `yaml:"styles"`

	// Center is lon, lat.
	Center [2]float64 `yaml:"center"`

	Zoom float64 `yaml:"zoom"`

	// MaxBounds is west, south, east, north. All zero means unbounded.
	MaxBounds [4]float64 `yaml:"max_bounds"`

	// Controls toggles the navigation controls; nil means enabled.
	Controls *bool `yaml:"controls"`
}

// ControlsEnabled reports whether map navigation controls are shown,
// handling the nil-pointer default (true).
func (m Map) ControlsEnabled() bool {
	if m.Controls == nil {
		return true
	}
	return *m.Controls
}

// Bounded reports whether MaxBounds constrains the camera.
func (m Map) Bounded() bool {
	return m.MaxBounds != [4]float64{}
}

// Overlay describes one source+layer pair rendered above the base style.
type Overlay struct {
	ID     string         `yaml:"id"`
	Source string         `yaml:"source"`
	Layer  string         `yaml:"layer"`
	Data   string         `yaml:"data"`
	Type   string         `yaml:"type"`
	Paint  map[string]any `yaml:"paint"`

	// Modes restricts visibility; empty means every mode.
	Modes []string `yaml:"modes"`

	// Click names a built-in click behavior ("select-story") or is empty.
	Click string `yaml:"click"`
}

// Menu holds the browse entries for the navigation panel.
type Menu struct {
	Communities []Entry `yaml:"communities"`
	Themes      []Entry `yaml:"themes"`
	Characters  []Entry `yaml:"characters"`
}

// Entry is a selectable menu item.
type Entry struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Site: Site{
			Title:   "Narrative Geographies",
			Tagline: "Stories mapped onto the places that hold them",
		},
		Map: Map{
			Styles: map[string]string{
				"stories": "/static/styles/stories.json",
				"data":    "/static/styles/data.json",
			},
			Center:    [2]float64{-87.9225, 43.0389},
			Zoom:      11.5,
			MaxBounds: [4]float64{-88.15, 42.85, -87.70, 43.20},
		},
		Overlays: []Overlay{
			{
				ID:     "boundaries",
				Source: "boundaries-src",
				Layer:  "boundaries-fill",
				Data:   "/geo/boundaries.geojson",
				Type:   "fill",
				Paint: map[string]any{
					"fill-color":   "#1d4e89",
					"fill-opacity": 0.15,
				},
			},
			{
				ID:     "structures",
				Source: "structures-src",
				Layer:  "structures-circle",
				Data:   "/geo/structures.geojson",
				Type:   "circle",
				Paint: map[string]any{
					"circle-radius": 4,
					"circle-color":  "#4a4a4a",
				},
			},
			{
				ID:     "stories",
				Source: "stories-src",
				Layer:  "stories-circle",
				Data:   "/geo/stories.geojson",
				Type:   "circle",
				Modes:  []string{"stories"},
				Click:  "select-story",
				Paint: map[string]any{
					"circle-radius": 7,
					"circle-color":  "#c94f30",
				},
			},
		},
		Sections: []string{"hero", "explore", "about"},
		Menu: Menu{
			Communities: []Entry{
				{ID: "bronzeville", Name: "Bronzeville"},
				{ID: "walkers-point", Name: "Walker's Point"},
				{ID: "lindsay-heights", Name: "Lindsay Heights"},
			},
			Themes: []Entry{
				{ID: "displacement", Name: "Displacement"},
				{ID: "industry", Name: "Industry & Labor"},
				{ID: "renewal", Name: "Renewal"},
			},
			Characters: []Entry{
				{ID: "elder-mae", Name: "Mae Iverson"},
				{ID: "foreman-ruiz", Name: "Tomas Ruiz"},
			},
		},
	}
}

// Load reads a configuration file, fills gaps with defaults and
// validates the result. An empty path returns the defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config file: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	def := Default()
	if c.Site.Title == "" {
		c.Site.Title = def.Site.Title
	}
	if c.Site.Tagline == "" {
		c.Site.Tagline = def.Site.Tagline
	}
	if len(c.Map.Styles) == 0 {
		c.Map.Styles = def.Map.Styles
	}
	if c.Map.Center == [2]float64{} {
		c.Map.Center = def.Map.Center
	}
	if c.Map.Zoom == 0 {
		c.Map.Zoom = def.Map.Zoom
	}
	if len(c.Overlays) == 0 {
		c.Overlays = def.Overlays
	}
	if len(c.Sections) == 0 {
		c.Sections = def.Sections
	}
	if len(c.Menu.Communities) == 0 && len(c.Menu.Themes) == 0 && len(c.Menu.Characters) == 0 {
		c.Menu = def.Menu
	}
}

// Validate rejects configurations the server cannot run with.
func (c *Config) Validate() error {
	for _, mode := range []string{"stories", "data"} {
		if c.Map.Styles[mode] == "" {
			return fmt.Errorf("map.styles: missing base style for mode %q", mode)
		}
	}
	seen := map[string]bool{}
	for i, ov := range c.Overlays {
		if ov.ID == "" {
			return fmt.Errorf("overlays[%d]: missing id", i)
		}
		if seen[ov.ID] {
			return fmt.Errorf("overlays[%d]: duplicate id %q", i, ov.ID)
		}
		seen[ov.ID] = true
		if ov.Source == "" || ov.Layer == "" {
			return fmt.Errorf("overlay %q: source and layer are required", ov.ID)
		}
		if ov.Data == "" {
			return fmt.Errorf("overlay %q: data URL is required", ov.ID)
		}
		switch ov.Type {
		case "fill", "circle", "line":
		default:
			return fmt.Errorf("overlay %q: unsupported layer type %q", ov.ID, ov.Type)
		}
		for _, m := range ov.Modes {
			if m != "stories" && m != "data" {
				return fmt.Errorf("overlay %q: unknown mode %q", ov.ID, m)
			}
		}
		switch ov.Click {
		case "", "select-story":
		default:
			return fmt.Errorf("overlay %q: unknown click behavior %q", ov.ID, ov.Click)
		}
	}
	for _, s := range c.Sections {
		if s == "" {
			return fmt.Errorf("sections: empty section id")
		}
	}
	return nil
}

// OverlayByID returns the overlay with the given id.
func (c *Config) OverlayByID(id string) (Overlay, bool) {
	for _, ov := range c.Overlays {
		if ov.ID == id {
			return ov, true
		}
	}
	return Overlay{}, false
}

// HasSection reports whether the landing page contains the section.
func (c *Config) HasSection(id string) bool {
	for _, s := range c.Sections {
		if s == id {
			return true
		}
	}
	return false
}
