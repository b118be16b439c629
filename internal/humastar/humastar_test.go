package humastar_test

import (
	"context"
	"testing"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MU-CMAP/narrative-geographies/internal/humastar"
)

func TestParseSignals(t *testing.T) {
	body := []byte(`{"theme":"displacement","limit":12,"zoom":11.5,"menuopen":true}`)
	signals, err := humastar.ParseSignals(body)
	require.NoError(t, err)

	assert.Equal(t, "displacement", signals.String("theme"))
	assert.Equal(t, 12, signals.Int("limit"))
	assert.Equal(t, 11.5, signals.Float("zoom"))
	assert.True(t, signals.Bool("menuopen"))
	assert.True(t, signals.Has("theme"))

	assert.Equal(t, "", signals.String("missing"))
	assert.Equal(t, 0, signals.Int("missing"))
	assert.False(t, signals.Bool("missing"))
	assert.False(t, signals.Has("missing"))
}

func TestNewSSEWorksOutsideHumago(t *testing.T) {
	// humatest does not go through the humago adapter, so the SSE helper
	// must fall back to the context's body writer instead of panicking.
	_, api := humatest.New(t)
	huma.Get(api, "/ping", func(ctx context.Context, input *humastar.EmptyInput) (*huma.StreamResponse, error) {
		return &huma.StreamResponse{
			Body: func(humaCtx huma.Context) {
				sse := humastar.NewSSE(humaCtx)
				sse.Patch("<p>pong</p>", "#ping")
				sse.Signals(map[string]any{"ready": true})
			},
		}, nil
	})

	resp := api.Get("/ping")
	body := resp.Body.String()
	assert.Contains(t, body, "datastar-patch-elements")
	assert.Contains(t, body, "<p>pong</p>")
	assert.Contains(t, body, "ready")
}

func TestSignalsInputMustParseRejectsBadBody(t *testing.T) {
	in := &humastar.SignalsInput{RawBody: []byte("{not json")}
	_, err := in.MustParse()
	assert.Error(t, err)
}

func TestPaginationLinksMiddlePage(t *testing.T) {
	page := humastar.PageBody[string]{Total: 10, Offset: 4, Limit: 2}
	links := page.PaginationLinks("/api/stories")

	assert.Contains(t, links, `</api/stories?offset=0&limit=2>; rel="first"`)
	assert.Contains(t, links, `</api/stories?offset=2&limit=2>; rel="prev"`)
	assert.Contains(t, links, `</api/stories?offset=6&limit=2>; rel="next"`)
	assert.Contains(t, links, `</api/stories?offset=8&limit=2>; rel="last"`)
}

func TestPaginationLinksFirstPage(t *testing.T) {
	page := humastar.PageBody[string]{Total: 3, Offset: 0, Limit: 2}
	links := page.PaginationLinks("/api/stories")

	for _, l := range links {
		assert.NotContains(t, l, `rel="prev"`)
	}
	assert.Contains(t, links, `</api/stories?offset=2&limit=2>; rel="next"`)
	assert.Contains(t, links, `</api/stories?offset=2&limit=2>; rel="last"`)
}

func TestActionLinkHeader(t *testing.T) {
	a := humastar.Action{
		Rel:    "refresh",
		Href:   "/api/overlays/stories",
		Method: "POST",
		Title:  "Refresh overlay stats",
	}
	assert.Equal(t,
		`</api/overlays/stories>; rel="refresh"; method="POST"; title="Refresh overlay stats"`,
		a.LinkHeader())
}

func TestActionsForFillsPattern(t *testing.T) {
	defs := []humastar.ActionDef{
		{Rel: "refresh", Pattern: "/api/overlays/%s", Method: "POST", Title: "Refresh"},
	}
	actions := humastar.ActionsFor("boundaries", defs)
	require.Len(t, actions, 1)
	assert.Equal(t, "/api/overlays/boundaries", actions[0].Href)
	assert.Equal(t, "refresh", actions[0].Rel)
}
