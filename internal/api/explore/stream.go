package explore

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"

	"github.com/danielgtaylor/huma/v2"
	"github.com/paulmach/orb"

	"github.com/MU-CMAP/narrative-geographies/internal/atlas"
	"github.com/MU-CMAP/narrative-geographies/internal/config"
	"github.com/MU-CMAP/narrative-geographies/internal/humastar"
	"github.com/MU-CMAP/narrative-geographies/internal/mapsse"
	"github.com/MU-CMAP/narrative-geographies/internal/service"
	"github.com/MU-CMAP/narrative-geographies/internal/templates"
)

// Handler serves the explore session stream and the action endpoints the
// page posts to. One stream request equals one session: the session loop
// runs inside the stream handler and dies with the connection.
type Handler struct {
	humastar.Handler

	sessions *Sessions
	cfg      config.Config
	fetcher  atlas.FeatureFetcher
	bus      *service.EventBus
	log      *slog.Logger
}

// NewHandler wires the explore endpoints.
func NewHandler(sessions *Sessions, cfg config.Config, fetcher atlas.FeatureFetcher, bus *service.EventBus, renderer *templates.Renderer, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{
		Handler:  humastar.Handler{Renderer: renderer},
		sessions: sessions,
		cfg:      cfg,
		fetcher:  fetcher,
		bus:      bus,
		log:      log.With("component", "explore"),
	}
}

// RegisterRoutes registers the stream plus every action endpoint. The
// "explore" tag keeps these out of the hypermedia link graph; they speak
// Datastar, not JSON.
func (h *Handler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/explore/stream", h.OpenStream, huma.OperationTags("explore"))
	huma.Post(api, "/explore/mode", h.SetMode, huma.OperationTags("explore"))
	huma.Post(api, "/explore/menu", h.SetMenu, huma.OperationTags("explore"))
	huma.Post(api, "/explore/panel", h.SetPanel, huma.OperationTags("explore"))
	huma.Post(api, "/explore/select/{kind}", h.Select, huma.OperationTags("explore"))
	huma.Post(api, "/explore/filter", h.Filter, huma.OperationTags("explore"))
	huma.Post(api, "/explore/scroll", h.Scroll, huma.OperationTags("explore"))
	huma.Post(api, "/explore/engine", h.Engine, huma.OperationTags("explore"))
}

// StreamInput selects the starting view mode.
type StreamInput struct {
	Mode string `query:"mode" doc:"Starting view mode" example:"stories"`
}

// OpenStream opens the per-visit SSE connection. The session loop runs here
// until the visitor leaves; map commands and fragment patches both ride
// this stream, while actions arrive through the POST endpoints carrying
// the sessionid signal announced below.
func (h *Handler) OpenStream(ctx context.Context, input *StreamInput) (*huma.StreamResponse, error) {
	mode := atlas.ModeStories
	if input.Mode != "" {
		parsed, err := atlas.ParseViewMode(input.Mode)
		if err != nil {
			return nil, huma.Error400BadRequest(err.Error())
		}
		mode = parsed
	}

	return &huma.StreamResponse{
		Body: func(humaCtx huma.Context) {
			sse := humastar.NewSSE(humaCtx)
			id := newSessionID()

			engine := mapsse.New(sse.ServerSentEventGenerator, h.log)
			sess := atlas.NewSession(atlas.SessionConfig{
				ID:       id,
				Engine:   engine,
				Styles:   h.styles(),
				Camera:   h.camera(),
				Controls: h.cfg.Map.ControlsEnabled(),
				Mode:     mode,
				Overlays: BuildSpecs(h.cfg.Overlays),
				Fetcher:  h.fetcher,
				Logger:   h.log,
				Recorder: service.SessionRecorder{Bus: h.bus, Session: id},
			})

			h.sessions.Add(sess)
			defer h.sessions.Remove(id, sess)

			// The page needs the session id before it can post actions;
			// the shim needs it too for its engine posts.
			sse.Signals(map[string]any{"sessionid": id, "mode": string(mode)})
			sse.DispatchCustomEvent("session-started", map[string]any{"sessionid": id})
			h.patchView(sse, sess.View())

			sess.Run(ctx)
		},
	}, nil
}

func (h *Handler) styles() map[atlas.ViewMode]string {
	styles := make(map[atlas.ViewMode]string, len(h.cfg.Map.Styles))
	for name, url := range h.cfg.Map.Styles {
		if mode, err := atlas.ParseViewMode(name); err == nil {
			styles[mode] = url
		}
	}
	return styles
}

func (h *Handler) camera() atlas.Camera {
	m := h.cfg.Map
	cam := atlas.Camera{
		Center: orb.Point{m.Center[0], m.Center[1]},
		Zoom:   m.Zoom,
	}
	if m.Bounded() {
		cam.MaxBounds = orb.Bound{
			Min: orb.Point{m.MaxBounds[0], m.MaxBounds[1]},
			Max: orb.Point{m.MaxBounds[2], m.MaxBounds[3]},
		}
	}
	return cam
}

func newSessionID() string {
	var b [8]byte
	rand.Read(b[:])
	return hex.EncodeToString(b[:])
}
