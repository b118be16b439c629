package cmapclient_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MU-CMAP/narrative-geographies/pkg/cmapclient"
)

func TestHealth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/health", r.URL.Path)
		json.NewEncoder(w).Encode(cmapclient.Health{Status: "ok", Version: "0.1.0", DB: true})
	}))
	defer srv.Close()

	health, err := cmapclient.New(srv.URL).Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", health.Status)
	assert.True(t, health.DB)
}

func TestListStoriesSendsFilter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/stories", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "displacement", q.Get("theme"))
		assert.Equal(t, "audio", q.Get("mediaType"))
		assert.Equal(t, "5", q.Get("limit"))
		assert.Empty(t, q.Get("dateRange"))

		json.NewEncoder(w).Encode(cmapclient.StoryPage{
			Total: 1, Limit: 5,
			Data: []cmapclient.Story{{ID: "story-bronzeville-blues", Title: "Bronzeville After the Freeway"}},
		})
	}))
	defer srv.Close()

	page, err := cmapclient.New(srv.URL).ListStories(context.Background(), cmapclient.StoryFilter{
		Theme:     "displacement",
		MediaType: "audio",
		Limit:     5,
	})
	require.NoError(t, err)
	require.Len(t, page.Data, 1)
	assert.Equal(t, "story-bronzeville-blues", page.Data[0].ID)
}

func TestGetStoryEscapesID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/stories/a%20b", r.URL.EscapedPath())
		json.NewEncoder(w).Encode(cmapclient.Story{ID: "a b"})
	}))
	defer srv.Close()

	story, err := cmapclient.New(srv.URL).GetStory(context.Background(), "a b")
	require.NoError(t, err)
	assert.Equal(t, "a b", story.ID)
}

func TestDBQueryPostsSQL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/db/query", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "SELECT 1", body["sql"])

		json.NewEncoder(w).Encode(cmapclient.DBResult{Columns: []string{"1"}, Count: 1})
	}))
	defer srv.Close()

	res, err := cmapclient.New(srv.URL).DBQuery(context.Background(), "SELECT 1")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Count)
}

func TestErrorCarriesProblemDetail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"title": "Not Found", "detail": "story not found"})
	}))
	defer srv.Close()

	_, err := cmapclient.New(srv.URL).GetStory(context.Background(), "missing")
	require.Error(t, err)

	var apiErr *cmapclient.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Contains(t, apiErr.Error(), "story not found")
}
