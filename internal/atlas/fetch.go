package atlas

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/paulmach/orb/geojson"
)

// HTTPFetcher fetches overlay feature collections over HTTP. Relative
// URLs are resolved against BaseURL.
type HTTPFetcher struct {
	Client  *http.Client
	BaseURL string
}

// Fetch implements FeatureFetcher.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (*geojson.FeatureCollection, error) {
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	if f.BaseURL != "" && strings.HasPrefix(url, "/") {
		url = strings.TrimRight(f.BaseURL, "/") + url
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/geo+json, application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: unexpected status %s", url, resp.Status)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(body)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: decode: %w", url, err)
	}
	return fc, nil
}
