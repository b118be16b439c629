package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/MU-CMAP/narrative-geographies/internal/cms"
	"github.com/MU-CMAP/narrative-geographies/internal/service"
)

// ContentHandler proxies diagnostics-console queries to the content store.
type ContentHandler struct {
	content *cms.Client
}

func NewContentHandler(content *cms.Client) *ContentHandler {
	return &ContentHandler{content: content}
}

func (h *ContentHandler) RegisterRoutes(api huma.API) {
	huma.Post(api, "/api/content/query", h.Query, huma.OperationTags("diagnostics"))
}

type ContentQueryInput struct {
	Body service.ContentQuery
}

type ContentQueryBody struct {
	Count   int          `json:"count" doc:"Number of records returned"`
	Records []cms.Record `json:"records" doc:"Reduced content records"`
}

func (h *ContentHandler) Query(ctx context.Context, input *ContentQueryInput) (*struct{ Body ContentQueryBody }, error) {
	records, err := h.content.Query(ctx, input.Body.Query)
	if err != nil {
		var upstream *cms.UpstreamError
		switch {
		case errors.Is(err, cms.ErrNotConfigured):
			return nil, huma.Error503ServiceUnavailable("content store is not configured")
		case errors.As(err, &upstream):
			if upstream.StatusCode == http.StatusBadRequest {
				return nil, huma.Error400BadRequest("content store rejected the query: " + upstream.Body)
			}
			return nil, huma.Error502BadGateway(upstream.Error())
		default:
			return nil, huma.Error502BadGateway("content store unreachable: " + err.Error())
		}
	}
	return &struct{ Body ContentQueryBody }{
		Body: ContentQueryBody{Count: len(records), Records: records},
	}, nil
}
