//go:build integration

// Integration test against a running server.
//
// Run: go test -tags=integration ./pkg/cmapclient/
package cmapclient_test

import (
	"context"
	"os"
	"testing"

	"github.com/MU-CMAP/narrative-geographies/pkg/cmapclient"
)

func baseURL() string {
	if u := os.Getenv("NARRATIVEGEO_BASE_URL"); u != "" {
		return u
	}
	return "http://localhost:8090"
}

func liveClient() *cmapclient.Client {
	return cmapclient.New(baseURL())
}

func TestLiveHealth(t *testing.T) {
	health, err := liveClient().Health(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if health.Status != "ok" {
		t.Fatalf("status=%q, want ok", health.Status)
	}
}

func TestLiveInfo(t *testing.T) {
	info, err := liveClient().Info(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if info.Name != "narrative-geographies" {
		t.Fatalf("name=%q, want narrative-geographies", info.Name)
	}
}

func TestLiveListOverlays(t *testing.T) {
	if _, err := liveClient().ListOverlays(context.Background()); err != nil {
		t.Fatal(err)
	}
}

func TestLiveListStories(t *testing.T) {
	if _, err := liveClient().ListStories(context.Background(), cmapclient.StoryFilter{}); err != nil {
		t.Fatal(err)
	}
}
