package api

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/MU-CMAP/narrative-geographies/internal/humastar"
	"github.com/MU-CMAP/narrative-geographies/internal/service"
)

// OverlaysHandler serves the configured overlay catalog.
type OverlaysHandler struct {
	catalog *service.OverlayService
}

func NewOverlaysHandler(catalog *service.OverlayService) *OverlaysHandler {
	return &OverlaysHandler{catalog: catalog}
}

func (h *OverlaysHandler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/overlays", h.List, huma.OperationTags("overlays"))
	huma.Get(api, "/api/overlays/{id}", h.Get, huma.OperationTags("overlays"))
	huma.Post(api, "/api/overlays/{id}/refresh", h.Refresh, huma.OperationTags("overlays"))
}

var overlayActionDefs = []humastar.ActionDef{
	{Rel: "refresh", Pattern: "/api/overlays/%s/refresh", Method: "POST", Title: "Recompute feature stats"},
}

// OverlayDetail is a catalog entry plus its hypermedia actions.
type OverlayDetail struct {
	service.OverlayInfo
}

// Actions implements humastar.Actor: each overlay links its refresh
// endpoint and its feature collection.
func (o OverlayDetail) Actions() []humastar.Action {
	actions := humastar.ActionsFor(o.ID, overlayActionDefs)
	return append(actions, humastar.Action{
		Rel:   "enclosure",
		Href:  o.Data,
		Title: "Feature collection",
	})
}

func (h *OverlaysHandler) List(ctx context.Context, input *struct{}) (*struct{ Body []service.OverlayInfo }, error) {
	return &struct{ Body []service.OverlayInfo }{Body: h.catalog.List()}, nil
}

func (h *OverlaysHandler) Get(ctx context.Context, input *IDInput) (*struct{ Body OverlayDetail }, error) {
	info, ok := h.catalog.Get(input.ID)
	if !ok {
		return nil, huma.Error404NotFound("overlay not found: " + input.ID)
	}
	return &struct{ Body OverlayDetail }{Body: OverlayDetail{OverlayInfo: info}}, nil
}

func (h *OverlaysHandler) Refresh(ctx context.Context, input *IDInput) (*struct{ Body OverlayDetail }, error) {
	if _, ok := h.catalog.Get(input.ID); !ok {
		return nil, huma.Error404NotFound("overlay not found: " + input.ID)
	}
	h.catalog.Refresh()
	info, _ := h.catalog.Get(input.ID)
	return &struct{ Body OverlayDetail }{Body: OverlayDetail{OverlayInfo: info}}, nil
}
