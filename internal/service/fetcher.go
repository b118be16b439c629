package service

import (
	"context"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/MU-CMAP/narrative-geographies/internal/atlas"
	"github.com/paulmach/orb/geojson"
)

// OverlayFetcher resolves overlay data URLs for sessions running inside
// the server process: /geo/ paths read straight from the data directory
// instead of looping back through HTTP, anything absolute goes out over
// the network.
type OverlayFetcher struct {
	geo  *GeoDataService
	http *atlas.HTTPFetcher
}

// NewOverlayFetcher builds a fetcher over the geodata service. client may
// be nil for the default HTTP client.
func NewOverlayFetcher(geo *GeoDataService, client *http.Client) *OverlayFetcher {
	return &OverlayFetcher{
		geo:  geo,
		http: &atlas.HTTPFetcher{Client: client},
	}
}

// Fetch implements atlas.FeatureFetcher.
func (f *OverlayFetcher) Fetch(ctx context.Context, url string) (*geojson.FeatureCollection, error) {
	if strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://") {
		return f.http.Fetch(ctx, url)
	}
	return f.geo.Load(filepath.Base(url))
}
