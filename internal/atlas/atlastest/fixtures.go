package atlastest

import (
	"context"
	"sync"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// StoryFixture returns the three-story point collection used across
// session tests.
func StoryFixture() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	stories := []struct {
		id, title, theme, media string
		pt                      orb.Point
	}{
		{"story-bronzeville-blues", "Bronzeville After the Freeway", "displacement", "audio", orb.Point{-87.9177, 43.0569}},
		{"story-walkers-point", "Walker's Point Workshops", "industry", "video", orb.Point{-87.9119, 43.0244}},
		{"story-lindsay-heights", "Gardens of Lindsay Heights", "renewal", "photo", orb.Point{-87.9343, 43.0630}},
	}
	for _, s := range stories {
		f := geojson.NewFeature(s.pt)
		f.ID = s.id
		f.Properties = geojson.Properties{
			"title":     s.title,
			"theme":     s.theme,
			"mediaType": s.media,
		}
		fc.Append(f)
	}
	return fc
}

// BoundaryFixture returns two community boundary polygons.
func BoundaryFixture() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	boundaries := []struct {
		id, name string
		ring     orb.Ring
	}{
		{"bronzeville", "Bronzeville", orb.Ring{
			{-87.930, 43.050}, {-87.905, 43.050}, {-87.905, 43.065}, {-87.930, 43.065}, {-87.930, 43.050},
		}},
		{"walkers-point", "Walker's Point", orb.Ring{
			{-87.925, 43.015}, {-87.900, 43.015}, {-87.900, 43.032}, {-87.925, 43.032}, {-87.925, 43.015},
		}},
	}
	for _, b := range boundaries {
		f := geojson.NewFeature(orb.Polygon{b.ring})
		f.ID = b.id
		f.Properties = geojson.Properties{"name": b.name}
		fc.Append(f)
	}
	return fc
}

// StructureFixture returns four structure points.
func StructureFixture() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	structures := []struct {
		id, name string
		pt       orb.Point
	}{
		{"st-regis", "Regis Hall", orb.Point{-87.9286, 43.0389}},
		{"st-pfister", "Pfister Hotel", orb.Point{-87.9054, 43.0372}},
		{"st-turner", "Turner Hall", orb.Point{-87.9174, 43.0422}},
		{"st-north-ave-dam", "North Avenue Dam Remnant", orb.Point{-87.9019, 43.0601}},
	}
	for _, s := range structures {
		f := geojson.NewFeature(s.pt)
		f.ID = s.id
		f.Properties = geojson.Properties{"name": s.name}
		fc.Append(f)
	}
	return fc
}

// StaticFetcher serves canned feature collections by URL and records each
// request. Safe for concurrent use.
type StaticFetcher struct {
	mu          sync.Mutex
	Collections map[string]*geojson.FeatureCollection
	Errors      map[string]error
	calls       []string
}

// Fetch implements atlas.FeatureFetcher.
func (f *StaticFetcher) Fetch(_ context.Context, url string) (*geojson.FeatureCollection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, url)
	if err, ok := f.Errors[url]; ok {
		return nil, err
	}
	if fc, ok := f.Collections[url]; ok {
		return fc, nil
	}
	return nil, &NotFoundError{URL: url}
}

// Calls returns the URLs requested so far.
func (f *StaticFetcher) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// NotFoundError reports a URL the fetcher has no fixture for.
type NotFoundError struct{ URL string }

func (e *NotFoundError) Error() string {
	return "fetch " + e.URL + ": unexpected status 404 Not Found"
}
