package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/MU-CMAP/narrative-geographies/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "site.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultValidates(t *testing.T) {
	cfg := config.Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "Narrative Geographies", cfg.Site.Title)
	assert.Len(t, cfg.Overlays, 3)
	assert.True(t, cfg.Map.ControlsEnabled())
	assert.True(t, cfg.Map.Bounded())
	assert.Equal(t, []string{"hero", "explore", "about"}, cfg.Sections)

	stories, ok := cfg.OverlayByID("stories")
	require.True(t, ok)
	assert.Equal(t, "select-story", stories.Click)
	assert.Equal(t, []string{"stories"}, stories.Modes)
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}

func TestLoadOverridesAndFillsGaps(t *testing.T) {
	path := writeConfig(t, `
site:
  title: Harbor Voices
map:
  zoom: 13
  controls: false
`)
	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "Harbor Voices", cfg.Site.Title)
	assert.Equal(t, config.Default().Site.Tagline, cfg.Site.Tagline)
	assert.Equal(t, 13.0, cfg.Map.Zoom)
	assert.False(t, cfg.Map.ControlsEnabled())
	assert.Equal(t, config.Default().Map.Styles, cfg.Map.Styles)
	assert.Len(t, cfg.Overlays, 3)
}

func TestLoadRejectsBrokenOverlay(t *testing.T) {
	path := writeConfig(t, `
overlays:
  - id: ghosts
    source: ghosts-src
    layer: ghosts-glow
    data: /geo/ghosts.geojson
    type: heatmap
`)
	_, err := config.Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "heatmap")
}

func TestLoadRejectsUnknownMode(t *testing.T) {
	path := writeConfig(t, `
overlays:
  - id: ghosts
    source: ghosts-src
    layer: ghosts-circle
    data: /geo/ghosts.geojson
    type: circle
    modes: [satellite]
`)
	_, err := config.Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "satellite")
}

func TestLoadMissingFileFails(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestHasSection(t *testing.T) {
	cfg := config.Default()
	assert.True(t, cfg.HasSection("hero"))
	assert.False(t, cfg.HasSection("press"))
}
