// Package mapsse implements the production map engine: commands are
// relayed to MapLibre in the visitor's browser as Datastar custom events
// on the session's SSE stream, and a small JS shim applies them. The
// browser posts lifecycle signals back (style-loaded, op-rejected, click)
// through the explore action endpoints.
package mapsse

import (
	"fmt"
	"log/slog"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/starfederation/datastar-go/datastar"

	"github.com/MU-CMAP/narrative-geographies/internal/atlas"
)

// Engine relays atlas engine calls over one SSE stream. It keeps an
// optimistic mirror of the sources, layers and click bindings it has
// dispatched so existence queries answer without a round trip; the
// mirror rolls back when the browser reports an op-rejected event.
//
// All methods run on the owning session goroutine, so no locking.
type Engine struct {
	sse *datastar.ServerSentEventGenerator
	log *slog.Logger

	styleLoaded bool
	sources     map[string]bool
	layers      map[string]bool
	clicks      map[string]bool
}

// New creates an engine bound to a session's SSE generator.
func New(sse *datastar.ServerSentEventGenerator, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		sse:     sse,
		log:     log.With("component", "mapsse"),
		sources: map[string]bool{},
		layers:  map[string]bool{},
		clicks:  map[string]bool{},
	}
}

func (e *Engine) dispatch(op string, detail map[string]any) {
	if detail == nil {
		detail = map[string]any{}
	}
	detail["op"] = op
	e.log.Debug("map command", "op", op)
	e.sse.DispatchCustomEvent("map-command", detail)
}

// Init constructs the map in the browser. Readiness arrives later as a
// style-loaded signal posted by the shim.
func (e *Engine) Init(opts atlas.InitOptions) error {
	detail := map[string]any{
		"style":    opts.Style,
		"center":   opts.Camera.Center,
		"zoom":     opts.Camera.Zoom,
		"controls": opts.Controls,
	}
	if b := opts.Camera.MaxBounds; b != (orb.Bound{}) {
		detail["maxBounds"] = [][]float64{
			{b.Min[0], b.Min[1]},
			{b.Max[0], b.Max[1]},
		}
	}
	e.dispatch("init", detail)
	return nil
}

// SetStyle starts a base style transition. MapLibre drops custom sources
// and layers with the old style, so the mirror is wiped to match.
func (e *Engine) SetStyle(style string) error {
	e.dispatch("setStyle", map[string]any{"style": style})
	e.styleLoaded = false
	e.sources = map[string]bool{}
	e.layers = map[string]bool{}
	e.clicks = map[string]bool{}
	return nil
}

// StyleLoaded reports whether the active style has finished loading.
func (e *Engine) StyleLoaded() bool { return e.styleLoaded }

// ConfirmStyleLoaded records a style-loaded signal from the browser.
func (e *Engine) ConfirmStyleLoaded() { e.styleLoaded = true }

// ConfirmOpRejected rolls the mirror back after the browser refused a
// mutation mid-transition.
func (e *Engine) ConfirmOpRejected(op, sourceID, layerID string) {
	e.log.Debug("map op rejected", "op", op, "source", sourceID, "layer", layerID)
	if layerID != "" {
		delete(e.layers, layerID)
		delete(e.clicks, layerID)
	}
	if sourceID != "" {
		delete(e.sources, sourceID)
	}
}

func (e *Engine) AddSource(id string, data *geojson.FeatureCollection) error {
	if !e.styleLoaded {
		return atlas.ErrStyleNotReady
	}
	e.dispatch("addSource", map[string]any{"id": id, "data": data})
	e.sources[id] = true
	return nil
}

func (e *Engine) SetSourceData(id string, data *geojson.FeatureCollection) error {
	if !e.sources[id] {
		return fmt.Errorf("set data: unknown source %q", id)
	}
	e.dispatch("setData", map[string]any{"id": id, "data": data})
	return nil
}

func (e *Engine) HasSource(id string) bool { return e.sources[id] }

func (e *Engine) RemoveSource(id string) error {
	if !e.sources[id] {
		return fmt.Errorf("remove: unknown source %q", id)
	}
	e.dispatch("removeSource", map[string]any{"id": id})
	delete(e.sources, id)
	return nil
}

func (e *Engine) AddLayer(def atlas.LayerDef) error {
	if !e.styleLoaded {
		return atlas.ErrStyleNotReady
	}
	if !e.sources[def.Source] {
		return fmt.Errorf("add layer %q: unknown source %q", def.ID, def.Source)
	}
	e.dispatch("addLayer", map[string]any{"layer": def})
	e.layers[def.ID] = true
	return nil
}

func (e *Engine) HasLayer(id string) bool { return e.layers[id] }

func (e *Engine) RemoveLayer(id string) error {
	if !e.layers[id] {
		return fmt.Errorf("remove: unknown layer %q", id)
	}
	e.dispatch("removeLayer", map[string]any{"id": id})
	delete(e.layers, id)
	return nil
}

// BindClick subscribes the shim to clicks on one layer. Click payloads
// come back through the explore engine endpoint.
func (e *Engine) BindClick(layerID string) error {
	e.dispatch("bindClick", map[string]any{"layer": layerID})
	e.clicks[layerID] = true
	return nil
}

func (e *Engine) UnbindClick(layerID string) error {
	if !e.clicks[layerID] {
		return nil
	}
	e.dispatch("unbindClick", map[string]any{"layer": layerID})
	delete(e.clicks, layerID)
	return nil
}

// Destroy tears the browser map down.
func (e *Engine) Destroy() {
	e.dispatch("destroy", nil)
	e.styleLoaded = false
	e.sources = map[string]bool{}
	e.layers = map[string]bool{}
	e.clicks = map[string]bool{}
}

var _ atlas.Engine = (*Engine)(nil)
