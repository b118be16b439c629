package atlas_test

import (
	"errors"
	"testing"

	"github.com/MU-CMAP/narrative-geographies/internal/atlas"
	"github.com/MU-CMAP/narrative-geographies/internal/atlas/atlastest"
	"github.com/MU-CMAP/narrative-geographies/internal/logging"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func storySpec() atlas.OverlaySpec {
	return atlas.OverlaySpec{
		SourceID: "stories-src",
		LayerID:  "stories-circle",
		DataURL:  "/geo/stories.geojson",
		Modes:    []atlas.ViewMode{atlas.ModeStories},
		Layer: atlas.LayerDef{
			ID:     "stories-circle",
			Type:   "circle",
			Source: "stories-src",
			Paint:  map[string]any{"circle-radius": 6, "circle-color": "#c94f30"},
		},
		OnClick: func(*atlas.Session, *geojson.Feature) {},
	}
}

// readyEngine returns a spy whose style has already settled, plus the
// handle overlays would see.
func readyEngine() (*atlastest.SpyEngine, atlas.Handle) {
	eng := atlastest.NewSpyEngine()
	eng.ConfirmStyleLoaded()
	return eng, atlas.Handle{Engine: eng, Ready: true}
}

// installedOverlay activates and installs the story overlay.
func installedOverlay(t *testing.T) (*atlas.Overlay, *atlastest.SpyEngine, atlas.Handle) {
	t.Helper()
	eng, h := readyEngine()
	o := atlas.NewOverlay(storySpec(), logging.Discard())
	require.True(t, o.Sync(h, atlas.ModeStories))
	o.ApplyData(h, o.Generation(), atlastest.StoryFixture(), nil)
	require.True(t, eng.HasSource("stories-src"))
	require.True(t, eng.HasLayer("stories-circle"))
	return o, eng, h
}

func TestOverlayActivationRequiresReadyAndMode(t *testing.T) {
	eng, _ := readyEngine()
	o := atlas.NewOverlay(storySpec(), logging.Discard())

	// not ready: no activation, no engine traffic
	assert.False(t, o.Sync(atlas.Handle{Engine: eng, Ready: false}, atlas.ModeStories))
	assert.False(t, o.Active())
	assert.Empty(t, eng.MutationCalls())

	// ready but wrong mode
	assert.False(t, o.Sync(atlas.Handle{Engine: eng, Ready: true}, atlas.ModeData))
	assert.False(t, o.Active())

	// ready and applicable
	assert.True(t, o.Sync(atlas.Handle{Engine: eng, Ready: true}, atlas.ModeStories))
	assert.True(t, o.Active())
}

func TestOverlayModeApplicability(t *testing.T) {
	unrestricted := atlas.OverlaySpec{SourceID: "a", LayerID: "b"}
	assert.True(t, unrestricted.ActiveIn(atlas.ModeStories))
	assert.True(t, unrestricted.ActiveIn(atlas.ModeData))

	storiesOnly := storySpec()
	assert.True(t, storiesOnly.ActiveIn(atlas.ModeStories))
	assert.False(t, storiesOnly.ActiveIn(atlas.ModeData))
}

func TestOverlayInstallOrder(t *testing.T) {
	eng, h := readyEngine()
	o := atlas.NewOverlay(storySpec(), logging.Discard())
	require.True(t, o.Sync(h, atlas.ModeStories))

	o.ApplyData(h, o.Generation(), atlastest.StoryFixture(), nil)

	assert.Equal(t, []string{
		"addSource:stories-src",
		"addLayer:stories-circle",
		"bindClick:stories-circle",
	}, eng.Calls)
	assert.Equal(t, 3, eng.FeatureCount("stories-src"))
}

func TestOverlayUpdatesExistingSourceInPlace(t *testing.T) {
	o, eng, h := installedOverlay(t)

	// a refetch within the same cycle only replaces the data
	eng.Calls = nil
	o.ApplyData(h, o.Generation(), atlastest.StructureFixture(), nil)

	assert.Equal(t, []string{"setData:stories-src"}, eng.Calls)
	assert.Equal(t, 4, eng.FeatureCount("stories-src"))
	assert.Equal(t, 0, eng.CallCount("addLayer:"))
}

func TestOverlayDeactivateRemovesLayerBeforeSource(t *testing.T) {
	o, eng, h := installedOverlay(t)

	eng.Calls = nil
	o.Deactivate(h)

	assert.Equal(t, []string{
		"unbindClick:stories-circle",
		"removeLayer:stories-circle",
		"removeSource:stories-src",
	}, eng.Calls)
	assert.False(t, eng.HasSource("stories-src"))

	// deactivating again is a no-op
	eng.Calls = nil
	o.Deactivate(h)
	assert.Empty(t, eng.Calls)
}

func TestOverlayDeactivateSkipsAbsentLayerAndSource(t *testing.T) {
	o, eng, h := installedOverlay(t)

	// a style transition already wiped everything custom
	require.NoError(t, eng.SetStyle("styles/data.json"))

	eng.Calls = nil
	o.Deactivate(h)
	assert.Empty(t, eng.MutationCalls())
}

func TestOverlayRetriesExactlyOnceAfterStyleSettles(t *testing.T) {
	eng, h := readyEngine()
	o := atlas.NewOverlay(storySpec(), logging.Discard())
	require.True(t, o.Sync(h, atlas.ModeStories))

	eng.RejectAddSource["stories-src"] = 1
	o.ApplyData(h, o.Generation(), atlastest.StoryFixture(), nil)

	require.False(t, eng.HasSource("stories-src"))
	require.Equal(t, 1, eng.CallCount("addSource:stories-src"))

	// the style settles: the single retry runs and completes the install
	o.HandleStyleLoaded(h)
	assert.True(t, eng.HasSource("stories-src"))
	assert.True(t, eng.HasLayer("stories-circle"))
	assert.Equal(t, 2, eng.CallCount("addSource:stories-src"))

	// further style events must not trigger more attempts
	o.HandleStyleLoaded(h)
	o.HandleStyleLoaded(h)
	assert.Equal(t, 2, eng.CallCount("addSource:stories-src"))
	assert.Equal(t, 0, eng.CallCount("setData:stories-src"))
}

func TestOverlayRetrySpentAfterSecondRejection(t *testing.T) {
	eng, h := readyEngine()
	o := atlas.NewOverlay(storySpec(), logging.Discard())
	require.True(t, o.Sync(h, atlas.ModeStories))

	eng.RejectAddSource["stories-src"] = 2
	o.ApplyData(h, o.Generation(), atlastest.StoryFixture(), nil)
	o.HandleStyleLoaded(h)

	// both attempts refused: the overlay stays absent for this cycle
	require.False(t, eng.HasSource("stories-src"))
	require.Equal(t, 2, eng.CallCount("addSource:stories-src"))

	o.HandleStyleLoaded(h)
	assert.Equal(t, 2, eng.CallCount("addSource:stories-src"))

	// the next activation cycle starts with a fresh retry budget
	o.Deactivate(h)
	require.True(t, o.Sync(h, atlas.ModeStories))
	o.ApplyData(h, o.Generation(), atlastest.StoryFixture(), nil)
	assert.True(t, eng.HasSource("stories-src"))
}

func TestOverlayRetryRechecksSourceSurvival(t *testing.T) {
	eng, h := readyEngine()
	o := atlas.NewOverlay(storySpec(), logging.Discard())
	require.True(t, o.Sync(h, atlas.ModeStories))

	// the source lands but the layer add is refused mid-transition
	eng.RejectAddLayer["stories-circle"] = 1
	o.ApplyData(h, o.Generation(), atlastest.StoryFixture(), nil)
	require.True(t, eng.HasSource("stories-src"))
	require.False(t, eng.HasLayer("stories-circle"))

	// the retry must update the surviving source, not recreate it
	o.HandleStyleLoaded(h)
	assert.Equal(t, 1, eng.CallCount("addSource:stories-src"))
	assert.Equal(t, 1, eng.CallCount("setData:stories-src"))
	assert.True(t, eng.HasLayer("stories-circle"))
}

func TestOverlayDiscardsStaleGeneration(t *testing.T) {
	eng, h := readyEngine()
	o := atlas.NewOverlay(storySpec(), logging.Discard())

	require.True(t, o.Sync(h, atlas.ModeStories))
	stale := o.Generation()

	// rapid toggle: deactivate and reactivate before the fetch lands
	o.Deactivate(h)
	require.True(t, o.Sync(h, atlas.ModeStories))

	o.ApplyData(h, stale, atlastest.StoryFixture(), nil)
	assert.False(t, eng.HasSource("stories-src"))

	o.ApplyData(h, o.Generation(), atlastest.StoryFixture(), nil)
	assert.True(t, eng.HasSource("stories-src"))
}

func TestOverlayFetchFailureKeepsLastRendered(t *testing.T) {
	o, eng, h := installedOverlay(t)
	require.Equal(t, 3, eng.FeatureCount("stories-src"))

	eng.Calls = nil
	o.ApplyData(h, o.Generation(), nil, errors.New("fetch /geo/stories.geojson: unexpected status 404 Not Found"))

	assert.Equal(t, 3, eng.FeatureCount("stories-src"))
	assert.Empty(t, eng.MutationCalls())
}
