package api

import (
	"context"
	"time"

	"github.com/danielgtaylor/huma/v2"
)

// Version is the service version reported by info and health.
const Version = "0.1.0"

type InfoHandler struct {
	dataDir string
	started time.Time
}

func NewInfoHandler(dataDir string) *InfoHandler {
	return &InfoHandler{dataDir: dataDir, started: time.Now()}
}

func (h *InfoHandler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/info", h.GetInfo, huma.OperationTags("health"))
}

type InfoBody struct {
	Name     string   `json:"name" doc:"Service name"`
	Version  string   `json:"version" doc:"Service version"`
	DataDir  string   `json:"data_dir" doc:"GeoJSON data directory"`
	Uptime   string   `json:"uptime" doc:"Time since the server started"`
	Features []string `json:"features" doc:"Available features"`
}

func (h *InfoHandler) GetInfo(ctx context.Context, input *struct{}) (*struct{ Body InfoBody }, error) {
	return &struct{ Body InfoBody }{Body: InfoBody{
		Name:     "narrative-geographies",
		Version:  Version,
		DataDir:  h.dataDir,
		Uptime:   time.Since(h.started).Round(time.Second).String(),
		Features: []string{"explore", "stories", "overlays", "duckdb", "cms"},
	}}, nil
}
