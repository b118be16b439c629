package atlas_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/MU-CMAP/narrative-geographies/internal/atlas"
	"github.com/MU-CMAP/narrative-geographies/internal/atlas/atlastest"
	"github.com/MU-CMAP/narrative-geographies/internal/logging"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

// exploreOverlays mirrors the production overlay registry: community
// boundaries and structures in every mode, story markers in stories mode
// with a click handler that selects the story.
func exploreOverlays() []atlas.OverlaySpec {
	return []atlas.OverlaySpec{
		{
			SourceID: "boundaries-src",
			LayerID:  "boundaries-fill",
			DataURL:  "/geo/boundaries.geojson",
			Layer: atlas.LayerDef{
				ID: "boundaries-fill", Type: "fill", Source: "boundaries-src",
				Paint: map[string]any{"fill-color": "#1d4e89", "fill-opacity": 0.15},
			},
		},
		{
			SourceID: "structures-src",
			LayerID:  "structures-circle",
			DataURL:  "/geo/structures.geojson",
			Layer: atlas.LayerDef{
				ID: "structures-circle", Type: "circle", Source: "structures-src",
			},
		},
		{
			SourceID: "stories-src",
			LayerID:  "stories-circle",
			DataURL:  "/geo/stories.geojson",
			Modes:    []atlas.ViewMode{atlas.ModeStories},
			Layer: atlas.LayerDef{
				ID: "stories-circle", Type: "circle", Source: "stories-src",
			},
			OnClick: func(s *atlas.Session, f *geojson.Feature) {
				s.SelectStory(atlas.Ref{
					ID:   fmt.Sprint(f.ID),
					Name: fmt.Sprint(f.Properties["title"]),
				})
			},
		},
	}
}

type sessionFixture struct {
	s       *atlas.Session
	eng     *atlastest.SpyEngine
	fetcher *atlastest.StaticFetcher
	ctx     context.Context
	cancel  context.CancelFunc
}

func startSession(t *testing.T) *sessionFixture {
	t.Helper()

	eng := atlastest.NewSpyEngine()
	fetcher := &atlastest.StaticFetcher{
		Collections: map[string]*geojson.FeatureCollection{
			"/geo/boundaries.geojson": atlastest.BoundaryFixture(),
			"/geo/structures.geojson": atlastest.StructureFixture(),
			"/geo/stories.geojson":    atlastest.StoryFixture(),
		},
	}
	s := atlas.NewSession(atlas.SessionConfig{
		ID:       "sess-test",
		Engine:   eng,
		Styles:   testStyles,
		Camera:   atlas.Camera{Center: orb.Point{-87.92, 43.04}, Zoom: 11.5},
		Mode:     atlas.ModeStories,
		Overlays: exploreOverlays(),
		Fetcher:  fetcher,
		Logger:   logging.Discard(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	go s.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-s.Done()
	})
	return &sessionFixture{s: s, eng: eng, fetcher: fetcher, ctx: ctx, cancel: cancel}
}

func (f *sessionFixture) do(t *testing.T, fn func(*atlas.Session)) {
	t.Helper()
	require.NoError(t, f.s.Do(f.ctx, fn))
}

func (f *sessionFixture) styleLoaded(t *testing.T) {
	t.Helper()
	require.NoError(t, f.s.PostEngineEvent(f.ctx, atlas.EngineEvent{Kind: atlas.EventStyleLoaded}))
}

// engineEventually polls pred on the session goroutine, so the spy is
// only ever read from the loop that owns it.
func (f *sessionFixture) engineEventually(t *testing.T, msg string, pred func() bool) {
	t.Helper()
	require.Eventually(t, func() bool {
		ok := false
		if err := f.s.Do(f.ctx, func(*atlas.Session) { ok = pred() }); err != nil {
			return false
		}
		return ok
	}, waitFor, tick, msg)
}

// engineSnapshot captures the installed sources (with feature counts) and
// layers. Must run on the session goroutine.
func engineSnapshot(eng *atlastest.SpyEngine) map[string]int {
	snap := map[string]int{}
	for id, fc := range eng.Sources {
		snap["source:"+id] = len(fc.Features)
	}
	for id := range eng.Layers {
		snap["layer:"+id] = 1
	}
	return snap
}

func (f *sessionFixture) snapshot(t *testing.T) map[string]int {
	t.Helper()
	var snap map[string]int
	f.do(t, func(*atlas.Session) { snap = engineSnapshot(f.eng) })
	return snap
}

func (f *sessionFixture) waitStoriesInstalled(t *testing.T) {
	t.Helper()
	f.engineEventually(t, "stories-mode overlays installed", func() bool {
		return f.eng.FeatureCount("boundaries-src") == 2 &&
			f.eng.FeatureCount("structures-src") == 4 &&
			f.eng.FeatureCount("stories-src") == 3 &&
			f.eng.HasLayer("stories-circle") &&
			f.eng.Clicks["stories-circle"]
	})
}

func (f *sessionFixture) waitDataInstalled(t *testing.T) {
	t.Helper()
	f.engineEventually(t, "data-mode overlays installed", func() bool {
		return f.eng.FeatureCount("boundaries-src") == 2 &&
			f.eng.FeatureCount("structures-src") == 4 &&
			!f.eng.HasSource("stories-src") &&
			!f.eng.HasLayer("stories-circle")
	})
}

func TestSessionInstallsOverlaysOnlyAfterStyleLoads(t *testing.T) {
	f := startSession(t)

	// the mount happened, but readiness has not arrived: zero mutations
	var calls []string
	f.do(t, func(*atlas.Session) { calls = f.eng.MutationCalls() })
	require.Empty(t, calls)

	f.styleLoaded(t)
	f.waitStoriesInstalled(t)
}

func TestSessionModeRoundTripConverges(t *testing.T) {
	f := startSession(t)
	f.styleLoaded(t)
	f.waitStoriesInstalled(t)
	storiesState := f.snapshot(t)

	f.do(t, func(s *atlas.Session) { s.SetMode(atlas.ModeData) })
	f.styleLoaded(t)
	f.waitDataInstalled(t)
	dataState := f.snapshot(t)

	f.do(t, func(s *atlas.Session) { s.SetMode(atlas.ModeStories) })
	f.styleLoaded(t)
	f.waitStoriesInstalled(t)
	assert.Equal(t, storiesState, f.snapshot(t), "stories state must converge after a round trip")

	f.do(t, func(s *atlas.Session) { s.SetMode(atlas.ModeData) })
	f.styleLoaded(t)
	f.waitDataInstalled(t)
	assert.Equal(t, dataState, f.snapshot(t), "data state must converge after a round trip")
}

func TestSessionDataModeDropsOnlyStoryOverlay(t *testing.T) {
	f := startSession(t)
	f.styleLoaded(t)
	f.waitStoriesInstalled(t)

	f.do(t, func(s *atlas.Session) { s.SetMode(atlas.ModeData) })
	f.styleLoaded(t)
	f.waitDataInstalled(t)

	snap := f.snapshot(t)
	assert.Equal(t, map[string]int{
		"source:boundaries-src": 2,
		"source:structures-src": 4,
		"layer:boundaries-fill": 1,
		"layer:structures-circle": 1,
	}, snap)
}

func TestSessionQuiescesDuringStyleSwap(t *testing.T) {
	f := startSession(t)
	f.styleLoaded(t)
	f.waitStoriesInstalled(t)

	var before, after []string
	f.do(t, func(s *atlas.Session) {
		before = f.eng.MutationCalls()
		s.SetMode(atlas.ModeData)
	})
	f.do(t, func(*atlas.Session) { after = f.eng.MutationCalls() })

	// between swap initiation and style-loaded no overlay may touch the map
	assert.Equal(t, before, after)

	f.styleLoaded(t)
	f.waitDataInstalled(t)
}

func TestSessionRecoversFromFailedStyleSwap(t *testing.T) {
	f := startSession(t)
	f.styleLoaded(t)
	f.waitStoriesInstalled(t)

	var view atlas.View
	f.do(t, func(s *atlas.Session) {
		f.eng.FailSetStyle = errors.New("engine detached")
		s.SetMode(atlas.ModeData)
		view = s.View()
	})

	assert.Equal(t, atlas.ModeData, view.Mode)
	assert.True(t, view.Ready, "a failed swap must restore readiness")

	// the engine kept its state, so the story overlay is removed for real
	var snap map[string]int
	var calls []string
	f.do(t, func(*atlas.Session) {
		snap = engineSnapshot(f.eng)
		calls = append([]string(nil), f.eng.Calls...)
	})
	assert.NotContains(t, snap, "source:stories-src")
	assert.NotContains(t, snap, "layer:stories-circle")
	assert.Equal(t, 2, snap["source:boundaries-src"])

	removeLayer := indexOf(calls, "removeLayer:stories-circle")
	removeSource := indexOf(calls, "removeSource:stories-src")
	require.GreaterOrEqual(t, removeLayer, 0)
	require.GreaterOrEqual(t, removeSource, 0)
	assert.Less(t, removeLayer, removeSource, "layer removal must precede source removal")
}

func TestSessionRetriesRejectedOverlayOnce(t *testing.T) {
	f := startSession(t)
	f.do(t, func(*atlas.Session) { f.eng.RejectAddSource["stories-src"] = 1 })

	f.styleLoaded(t)
	f.engineEventually(t, "first add refused, others installed", func() bool {
		return f.eng.CallCount("addSource:stories-src") == 1 &&
			!f.eng.HasSource("stories-src") &&
			f.eng.HasLayer("boundaries-fill") &&
			f.eng.HasLayer("structures-circle")
	})

	f.styleLoaded(t)
	f.engineEventually(t, "single retry completed the install", func() bool {
		return f.eng.HasSource("stories-src") &&
			f.eng.HasLayer("stories-circle") &&
			f.eng.CallCount("addSource:stories-src") == 2
	})

	f.styleLoaded(t)
	assert.Never(t, func() bool {
		n := 0
		if err := f.s.Do(f.ctx, func(*atlas.Session) { n = f.eng.CallCount("addSource:stories-src") }); err != nil {
			return false
		}
		return n > 2
	}, 200*time.Millisecond, 20*time.Millisecond, "no further attempts after the bounded retry")
}

func TestSessionHandlesAsyncOpRejection(t *testing.T) {
	f := startSession(t)
	f.styleLoaded(t)
	f.waitStoriesInstalled(t)

	// the browser reports the layer add was refused mid-transition
	require.NoError(t, f.s.PostEngineEvent(f.ctx, atlas.EngineEvent{
		Kind:     atlas.EventOpRejected,
		Op:       "add-layer",
		SourceID: "stories-src",
		LayerID:  "stories-circle",
	}))
	f.engineEventually(t, "mirrored state rolled back", func() bool {
		return !f.eng.HasSource("stories-src")
	})

	f.styleLoaded(t)
	f.engineEventually(t, "retry reinstated the overlay", func() bool {
		return f.eng.FeatureCount("stories-src") == 3 && f.eng.HasLayer("stories-circle")
	})
}

func TestSessionClickSelectsStoryAndOpensPanel(t *testing.T) {
	f := startSession(t)
	f.styleLoaded(t)
	f.waitStoriesInstalled(t)

	feat := atlastest.StoryFixture().Features[0]
	require.NoError(t, f.s.PostEngineEvent(f.ctx, atlas.EngineEvent{
		Kind:    atlas.EventClick,
		LayerID: "stories-circle",
		Feature: feat,
	}))

	require.Eventually(t, func() bool {
		var v atlas.View
		if err := f.s.Do(f.ctx, func(s *atlas.Session) { v = s.View() }); err != nil {
			return false
		}
		return v.Story.ID == "story-bronzeville-blues" && v.StoryPanelOpen
	}, waitFor, tick)
}

func TestSessionFilterUpdateTouchesSingleField(t *testing.T) {
	f := startSession(t)

	var view atlas.View
	f.do(t, func(s *atlas.Session) {
		require.NoError(t, s.UpdateFilter("theme", "industry"))
		require.NoError(t, s.UpdateFilter("mediaType", "video"))
		require.Error(t, s.UpdateFilter("nope", "x"))
		view = s.View()
	})

	assert.Equal(t, "industry", view.Filters.Theme)
	assert.Equal(t, "video", view.Filters.MediaType)
	assert.Empty(t, view.Filters.DateRange)
}

func TestSessionShutdownDestroysEngine(t *testing.T) {
	f := startSession(t)
	f.styleLoaded(t)
	f.waitStoriesInstalled(t)

	f.cancel()
	<-f.s.Done()

	// the loop has exited; direct reads are safe now
	assert.Equal(t, 1, f.eng.Destroys)
	assert.Equal(t, "destroy", f.eng.Calls[len(f.eng.Calls)-1])

	removeLayer := indexOf(f.eng.Calls, "removeLayer:boundaries-fill")
	removeSource := indexOf(f.eng.Calls, "removeSource:boundaries-src")
	require.GreaterOrEqual(t, removeLayer, 0)
	assert.Less(t, removeLayer, removeSource)

	err := f.s.Do(context.Background(), func(*atlas.Session) {})
	assert.ErrorIs(t, err, atlas.ErrSessionClosed)

	err = f.s.PostEngineEvent(context.Background(), atlas.EngineEvent{Kind: atlas.EventStyleLoaded})
	assert.ErrorIs(t, err, atlas.ErrSessionClosed)
}

func TestClosedSessionAlwaysRefusesDelivery(t *testing.T) {
	f := startSession(t)
	f.cancel()
	<-f.s.Done()

	// The events channel is buffered, so a post-exit send could race the
	// closed done channel inside select; every attempt must still report
	// the session as closed rather than swallow the event.
	for i := 0; i < 50; i++ {
		err := f.s.PostEngineEvent(context.Background(), atlas.EngineEvent{Kind: atlas.EventStyleLoaded})
		require.ErrorIs(t, err, atlas.ErrSessionClosed, "post %d", i)

		err = f.s.Do(context.Background(), func(*atlas.Session) {})
		require.ErrorIs(t, err, atlas.ErrSessionClosed, "do %d", i)
	}
}

func indexOf(calls []string, want string) int {
	for i, c := range calls {
		if c == want {
			return i
		}
	}
	return -1
}
