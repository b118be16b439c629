package mapsse_test

import (
	"net/http/httptest"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/starfederation/datastar-go/datastar"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MU-CMAP/narrative-geographies/internal/atlas"
	"github.com/MU-CMAP/narrative-geographies/internal/atlas/atlastest"
	"github.com/MU-CMAP/narrative-geographies/internal/logging"
	"github.com/MU-CMAP/narrative-geographies/internal/mapsse"
)

func newEngine(t *testing.T) (*mapsse.Engine, *httptest.ResponseRecorder) {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/explore/stream", nil)
	sse := datastar.NewSSE(rec, req)
	return mapsse.New(sse, logging.Discard()), rec
}

func storyLayer() atlas.LayerDef {
	return atlas.LayerDef{
		ID:     "stories-circle",
		Type:   "circle",
		Source: "stories-src",
		Paint:  map[string]any{"circle-radius": 6},
	}
}

func TestMutationsRejectedBeforeStyleLoads(t *testing.T) {
	eng, rec := newEngine(t)

	err := eng.AddSource("stories-src", atlastest.StoryFixture())
	require.ErrorIs(t, err, atlas.ErrStyleNotReady)
	assert.False(t, eng.HasSource("stories-src"))
	assert.NotContains(t, rec.Body.String(), "addSource")

	err = eng.AddLayer(storyLayer())
	assert.ErrorIs(t, err, atlas.ErrStyleNotReady)
}

func TestCommandsReachTheStream(t *testing.T) {
	eng, rec := newEngine(t)

	require.NoError(t, eng.Init(atlas.InitOptions{
		Style: "/static/styles/stories.json",
		Camera: atlas.Camera{
			Center:    orb.Point{-87.9225, 43.0389},
			Zoom:      11.5,
			MaxBounds: orb.Bound{Min: orb.Point{-88.15, 42.85}, Max: orb.Point{-87.70, 43.20}},
		},
		Controls: true,
	}))
	eng.ConfirmStyleLoaded()

	require.NoError(t, eng.AddSource("stories-src", atlastest.StoryFixture()))
	require.NoError(t, eng.AddLayer(storyLayer()))
	require.NoError(t, eng.BindClick("stories-circle"))

	assert.True(t, eng.HasSource("stories-src"))
	assert.True(t, eng.HasLayer("stories-circle"))

	body := rec.Body.String()
	assert.Contains(t, body, "map-command")
	assert.Contains(t, body, "init")
	assert.Contains(t, body, "addSource")
	assert.Contains(t, body, "addLayer")
	assert.Contains(t, body, "bindClick")
	assert.Contains(t, body, "stories-src")
	assert.Contains(t, body, "stories-circle")
}

func TestSetStyleWipesTheMirror(t *testing.T) {
	eng, _ := newEngine(t)
	eng.ConfirmStyleLoaded()
	require.NoError(t, eng.AddSource("stories-src", atlastest.StoryFixture()))
	require.NoError(t, eng.AddLayer(storyLayer()))

	require.NoError(t, eng.SetStyle("/static/styles/data.json"))

	assert.False(t, eng.StyleLoaded())
	assert.False(t, eng.HasSource("stories-src"))
	assert.False(t, eng.HasLayer("stories-circle"))

	err := eng.RemoveLayer("stories-circle")
	assert.Error(t, err)
}

func TestOpRejectionRollsBack(t *testing.T) {
	eng, _ := newEngine(t)
	eng.ConfirmStyleLoaded()
	require.NoError(t, eng.AddSource("stories-src", atlastest.StoryFixture()))
	require.NoError(t, eng.AddLayer(storyLayer()))
	require.NoError(t, eng.BindClick("stories-circle"))

	eng.ConfirmOpRejected("addLayer", "stories-src", "stories-circle")

	assert.False(t, eng.HasSource("stories-src"))
	assert.False(t, eng.HasLayer("stories-circle"))
}

func TestReferentialChecks(t *testing.T) {
	eng, _ := newEngine(t)
	eng.ConfirmStyleLoaded()

	assert.Error(t, eng.AddLayer(storyLayer()))
	assert.Error(t, eng.SetSourceData("stories-src", geojson.NewFeatureCollection()))
	assert.Error(t, eng.RemoveSource("stories-src"))
	assert.NoError(t, eng.UnbindClick("stories-circle"))
}

func TestDestroyClearsEverything(t *testing.T) {
	eng, rec := newEngine(t)
	eng.ConfirmStyleLoaded()
	require.NoError(t, eng.AddSource("stories-src", atlastest.StoryFixture()))

	eng.Destroy()

	assert.False(t, eng.StyleLoaded())
	assert.False(t, eng.HasSource("stories-src"))
	assert.Contains(t, rec.Body.String(), "destroy")
}
