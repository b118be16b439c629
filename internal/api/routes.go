// Package api defines the Huma REST routes and handlers.
package api

import (
	"context"
	"database/sql"

	"github.com/danielgtaylor/huma/v2"

	"github.com/MU-CMAP/narrative-geographies/internal/cms"
	"github.com/MU-CMAP/narrative-geographies/internal/service"
)

// Services holds the service dependencies for API handlers.
type Services struct {
	Geo      *service.GeoDataService
	Overlays *service.OverlayService
	Content  *cms.Client
	DB       *sql.DB
	Bus      *service.EventBus
}

// Types

type IDInput struct {
	ID string `path:"id" doc:"Resource ID" example:"stories"`
}

type MessageBody struct {
	Message string `json:"message" doc:"Result message"`
}

type HealthBody struct {
	Status  string `json:"status" doc:"Health status" example:"ok"`
	Version string `json:"version" doc:"Service version" example:"1.0.0"`
	CMS     bool   `json:"cms" doc:"Whether the content store is configured"`
	DB      bool   `json:"db" doc:"Whether the feature index database is open"`
}

// APIHandler holds the entry-point handlers. Methods named Register* are
// auto-discovered by huma.AutoRegister.
type APIHandler struct {
	svc *Services
}

func NewAPIHandler(svc *Services) *APIHandler {
	return &APIHandler{svc: svc}
}

// RegisterHealth registers health check routes.
func (h *APIHandler) RegisterHealth(api huma.API) {
	huma.Get(api, "/api/health", h.GetHealth, huma.OperationTags("health"))
}

func (h *APIHandler) GetHealth(ctx context.Context, input *struct{}) (*struct{ Body HealthBody }, error) {
	body := HealthBody{Status: "ok", Version: Version}
	if h.svc != nil {
		body.CMS = h.svc.Content != nil && h.svc.Content.Configured()
		body.DB = h.svc.DB != nil
	}
	return &struct{ Body HealthBody }{Body: body}, nil
}
