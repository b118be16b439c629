// Package atlastest provides a spy map engine, canned feature fixtures
// and a static fetcher for exercising session and overlay behavior
// without a browser attached.
package atlastest

import (
	"fmt"
	"strings"

	"github.com/MU-CMAP/narrative-geographies/internal/atlas"
	"github.com/paulmach/orb/geojson"
)

// SpyEngine records every call and mirrors the map state the way the
// browser-side engine would. Rejection knobs make it refuse mutations
// with atlas.ErrStyleNotReady a controlled number of times.
type SpyEngine struct {
	// Calls is the ordered log of every engine call, formatted
	// "op:identifier".
	Calls []string

	Style   string
	Loaded  bool
	Sources map[string]*geojson.FeatureCollection
	Layers  map[string]atlas.LayerDef
	Clicks  map[string]bool

	Inits    int
	Destroys int

	// RejectAddSource and RejectAddLayer map an identifier to how many
	// times the corresponding call should be refused with
	// atlas.ErrStyleNotReady before succeeding.
	RejectAddSource map[string]int
	RejectAddLayer  map[string]int

	// FailSetStyle, when set, makes the next SetStyle call return it.
	FailSetStyle error
}

// NewSpyEngine returns an empty spy.
func NewSpyEngine() *SpyEngine {
	return &SpyEngine{
		Sources:         map[string]*geojson.FeatureCollection{},
		Layers:          map[string]atlas.LayerDef{},
		Clicks:          map[string]bool{},
		RejectAddSource: map[string]int{},
		RejectAddLayer:  map[string]int{},
	}
}

func (e *SpyEngine) record(format string, args ...any) {
	e.Calls = append(e.Calls, fmt.Sprintf(format, args...))
}

// Init implements atlas.Engine.
func (e *SpyEngine) Init(opts atlas.InitOptions) error {
	e.record("init:%s", opts.Style)
	e.Inits++
	e.Style = opts.Style
	e.Loaded = false
	return nil
}

// SetStyle implements atlas.Engine. A successful transition discards all
// custom sources and layers, like a real style swap does.
func (e *SpyEngine) SetStyle(style string) error {
	e.record("setStyle:%s", style)
	if e.FailSetStyle != nil {
		err := e.FailSetStyle
		e.FailSetStyle = nil
		return err
	}
	e.Style = style
	e.Loaded = false
	e.Sources = map[string]*geojson.FeatureCollection{}
	e.Layers = map[string]atlas.LayerDef{}
	e.Clicks = map[string]bool{}
	return nil
}

// StyleLoaded implements atlas.Engine.
func (e *SpyEngine) StyleLoaded() bool { return e.Loaded }

// ConfirmStyleLoaded implements atlas.Engine.
func (e *SpyEngine) ConfirmStyleLoaded() { e.Loaded = true }

// ConfirmOpRejected implements atlas.Engine.
func (e *SpyEngine) ConfirmOpRejected(op, sourceID, layerID string) {
	e.record("confirmRejected:%s", op)
	if layerID != "" {
		delete(e.Layers, layerID)
	}
	if sourceID != "" {
		delete(e.Sources, sourceID)
	}
}

// AddSource implements atlas.Engine.
func (e *SpyEngine) AddSource(id string, data *geojson.FeatureCollection) error {
	e.record("addSource:%s", id)
	if n := e.RejectAddSource[id]; n > 0 {
		e.RejectAddSource[id] = n - 1
		return atlas.ErrStyleNotReady
	}
	e.Sources[id] = data
	return nil
}

// SetSourceData implements atlas.Engine.
func (e *SpyEngine) SetSourceData(id string, data *geojson.FeatureCollection) error {
	e.record("setData:%s", id)
	if _, ok := e.Sources[id]; !ok {
		return fmt.Errorf("source %q missing", id)
	}
	e.Sources[id] = data
	return nil
}

// HasSource implements atlas.Engine.
func (e *SpyEngine) HasSource(id string) bool {
	_, ok := e.Sources[id]
	return ok
}

// RemoveSource implements atlas.Engine.
func (e *SpyEngine) RemoveSource(id string) error {
	e.record("removeSource:%s", id)
	if _, ok := e.Sources[id]; !ok {
		return fmt.Errorf("source %q missing", id)
	}
	delete(e.Sources, id)
	return nil
}

// AddLayer implements atlas.Engine. Adding a layer whose source is absent
// fails, mirroring the real engine's referential constraint.
func (e *SpyEngine) AddLayer(def atlas.LayerDef) error {
	e.record("addLayer:%s", def.ID)
	if n := e.RejectAddLayer[def.ID]; n > 0 {
		e.RejectAddLayer[def.ID] = n - 1
		return atlas.ErrStyleNotReady
	}
	if _, ok := e.Sources[def.Source]; !ok {
		return fmt.Errorf("layer %q references missing source %q", def.ID, def.Source)
	}
	e.Layers[def.ID] = def
	return nil
}

// HasLayer implements atlas.Engine.
func (e *SpyEngine) HasLayer(id string) bool {
	_, ok := e.Layers[id]
	return ok
}

// RemoveLayer implements atlas.Engine.
func (e *SpyEngine) RemoveLayer(id string) error {
	e.record("removeLayer:%s", id)
	if _, ok := e.Layers[id]; !ok {
		return fmt.Errorf("layer %q missing", id)
	}
	delete(e.Layers, id)
	return nil
}

// BindClick implements atlas.Engine.
func (e *SpyEngine) BindClick(layerID string) error {
	e.record("bindClick:%s", layerID)
	e.Clicks[layerID] = true
	return nil
}

// UnbindClick implements atlas.Engine.
func (e *SpyEngine) UnbindClick(layerID string) error {
	e.record("unbindClick:%s", layerID)
	delete(e.Clicks, layerID)
	return nil
}

// Destroy implements atlas.Engine.
func (e *SpyEngine) Destroy() {
	e.record("destroy")
	e.Destroys++
}

// MutationCalls returns only the source and layer mutations recorded so
// far, in order.
func (e *SpyEngine) MutationCalls() []string {
	var out []string
	for _, c := range e.Calls {
		switch {
		case strings.HasPrefix(c, "addSource:"),
			strings.HasPrefix(c, "setData:"),
			strings.HasPrefix(c, "removeSource:"),
			strings.HasPrefix(c, "addLayer:"),
			strings.HasPrefix(c, "removeLayer:"):
			out = append(out, c)
		}
	}
	return out
}

// CallCount returns how many recorded calls match the given prefix.
func (e *SpyEngine) CallCount(prefix string) int {
	n := 0
	for _, c := range e.Calls {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

// FeatureCount returns the number of features mirrored for a source, or
// -1 when the source is absent.
func (e *SpyEngine) FeatureCount(sourceID string) int {
	fc, ok := e.Sources[sourceID]
	if !ok {
		return -1
	}
	return len(fc.Features)
}
