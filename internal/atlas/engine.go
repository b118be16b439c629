package atlas

import (
	"errors"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// ErrStyleNotReady reports that the engine refused a mutation because its
// active style is still loading. Callers defer the mutation until the next
// style-loaded event instead of retrying immediately.
var ErrStyleNotReady = errors.New("style not ready")

// Camera is the initial viewport for a map engine.
type Camera struct {
	Center    orb.Point `json:"center"`
	Zoom      float64   `json:"zoom"`
	MaxBounds orb.Bound `json:"maxBounds"`
}

// InitOptions configures engine construction.
type InitOptions struct {
	Style    string `json:"style"`
	Camera   Camera `json:"camera"`
	Controls bool   `json:"controls"`
}

// LayerDef is a paint layer bound to a named source.
type LayerDef struct {
	ID     string         `json:"id"`
	Type   string         `json:"type"`
	Source string         `json:"source"`
	Paint  map[string]any `json:"paint,omitempty"`
	Layout map[string]any `json:"layout,omitempty"`
}

// Engine is the map surface a session drives. The production engine
// relays commands to MapLibre in the visitor's browser over SSE; tests
// substitute a spy. Every method is called from the owning session
// goroutine only, so implementations need no locking of their own.
type Engine interface {
	// Init constructs the map with a style and viewport. Readiness is
	// reported later through a style-loaded event, never synchronously.
	Init(opts InitOptions) error

	// SetStyle starts a base style transition. The engine discards all
	// custom sources and layers and signals completion via style-loaded.
	SetStyle(style string) error

	// StyleLoaded reports whether the active style has finished loading.
	StyleLoaded() bool

	// ConfirmStyleLoaded records a style-loaded event observed by the
	// engine's remote half.
	ConfirmStyleLoaded()

	// ConfirmOpRejected records that the remote half refused an earlier
	// mutation mid-transition, rolling back the mirrored state for the
	// named source and layer.
	ConfirmOpRejected(op, sourceID, layerID string)

	AddSource(id string, data *geojson.FeatureCollection) error
	SetSourceData(id string, data *geojson.FeatureCollection) error
	HasSource(id string) bool
	RemoveSource(id string) error

	AddLayer(def LayerDef) error
	HasLayer(id string) bool
	RemoveLayer(id string) error

	// BindClick subscribes to clicks scoped to a single layer.
	BindClick(layerID string) error
	UnbindClick(layerID string) error

	// Destroy tears the map down. No calls may follow it.
	Destroy()
}

// EngineEventKind enumerates lifecycle events flowing back from the
// engine's remote half.
type EngineEventKind string

const (
	EventStyleLoaded EngineEventKind = "style-loaded"
	EventOpRejected  EngineEventKind = "op-rejected"
	EventClick       EngineEventKind = "click"
)

// EngineEvent is a lifecycle signal from the engine's remote half:
// a style finished loading, a mutation was rejected mid-transition, or
// a feature was clicked on a bound layer.
type EngineEvent struct {
	Kind     EngineEventKind
	Op       string
	SourceID string
	LayerID  string
	Feature  *geojson.Feature
}
