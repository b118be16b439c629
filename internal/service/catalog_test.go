package service_test

import (
	"testing"

	"github.com/MU-CMAP/narrative-geographies/internal/config"
	"github.com/MU-CMAP/narrative-geographies/internal/logging"
	"github.com/MU-CMAP/narrative-geographies/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOverlayCatalog(t *testing.T) {
	geo := newGeo(t)
	cat := service.NewOverlayService(config.Default().Overlays, geo, logging.Discard())

	overlays := cat.List()
	require.Len(t, overlays, 3)
	assert.Equal(t, []string{"boundaries", "structures", "stories"},
		[]string{overlays[0].ID, overlays[1].ID, overlays[2].ID})

	stories, ok := cat.Get("stories")
	require.True(t, ok)
	assert.Equal(t, "Stories", stories.Title)
	assert.Equal(t, "stories-src", stories.SourceID)
	assert.Equal(t, "stories-circle", stories.LayerID)
	assert.Equal(t, 3, stories.FeatureCount)
	assert.NotEmpty(t, stories.Size)
	assert.Equal(t, "select-story", stories.Click)

	boundaries, ok := cat.Get("boundaries")
	require.True(t, ok)
	assert.Equal(t, 2, boundaries.FeatureCount)
	assert.Empty(t, boundaries.Modes)

	_, ok = cat.Get("ghosts")
	assert.False(t, ok)
}

func TestOverlayCatalogUnreadableData(t *testing.T) {
	geo := service.NewGeoDataService(t.TempDir(), logging.Discard())
	cat := service.NewOverlayService(config.Default().Overlays, geo, logging.Discard())

	// missing files leave zero counts but keep the overlay listed
	overlays := cat.List()
	require.Len(t, overlays, 3)
	assert.Equal(t, 0, overlays[0].FeatureCount)
}
