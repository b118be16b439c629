package atlas

import (
	"errors"
	"log/slog"

	"github.com/paulmach/orb/geojson"
)

// OverlaySpec describes one source+layer pair rendered on top of the base
// style, including where its features come from and which modes show it.
type OverlaySpec struct {
	SourceID string
	LayerID  string
	DataURL  string
	Layer    LayerDef

	// Modes restricts visibility; empty means every mode.
	Modes []ViewMode

	// OnClick, when set, receives features clicked on this overlay's
	// layer. It runs on the session goroutine.
	OnClick func(*Session, *geojson.Feature)
}

// ActiveIn reports whether the overlay is shown in mode.
func (sp OverlaySpec) ActiveIn(mode ViewMode) bool {
	if len(sp.Modes) == 0 {
		return true
	}
	for _, m := range sp.Modes {
		if m == mode {
			return true
		}
	}
	return false
}

// Overlay keeps one source+layer pair converged with the current mode and
// the map's readiness: fetch on activation, create-or-update the source,
// add the layer, and on deactivation remove the layer strictly before the
// source. A mutation refused mid style-transition is retried exactly once
// after the next style-loaded event. Owned by the session loop.
type Overlay struct {
	spec OverlaySpec
	log  *slog.Logger

	active bool

	// gen counts activation cycles; fetch results carrying an older
	// generation are discarded.
	gen uint64

	// data is the last successfully fetched collection. A failed refetch
	// keeps it so the map degrades to stale rather than blank.
	data *geojson.FeatureCollection

	retryArmed bool
	retried    bool
	clickBound bool
}

// NewOverlay builds an inactive overlay from its spec.
func NewOverlay(spec OverlaySpec, log *slog.Logger) *Overlay {
	return &Overlay{spec: spec, log: log}
}

// Spec returns the overlay's immutable description.
func (o *Overlay) Spec() OverlaySpec { return o.spec }

// Active reports whether the overlay is currently activated.
func (o *Overlay) Active() bool { return o.active }

// Generation returns the current activation generation.
func (o *Overlay) Generation() uint64 { return o.gen }

// Sync reconciles the overlay against the mode and readiness carried by
// h. It returns true when the overlay just activated and needs a data
// fetch; the caller launches the fetch and routes the result back through
// ApplyData with the generation captured now.
func (o *Overlay) Sync(h Handle, mode ViewMode) bool {
	want := h.Ready && o.spec.ActiveIn(mode)
	switch {
	case want && !o.active:
		o.active = true
		o.gen++
		o.retryArmed = false
		o.retried = false
		return true
	case !want && o.active:
		o.Deactivate(h)
	}
	return false
}

// Deactivate removes the overlay's layer and then its source, in that
// order. Both removals are skipped when the engine no longer holds them,
// so deactivating an already-absent overlay is a no-op.
func (o *Overlay) Deactivate(h Handle) {
	if !o.active {
		return
	}
	o.active = false
	o.gen++
	o.retryArmed = false

	eng := h.Engine
	if eng == nil {
		o.clickBound = false
		return
	}
	if o.clickBound {
		if err := eng.UnbindClick(o.spec.LayerID); err != nil {
			o.log.Error("overlay click unbind failed", "layer", o.spec.LayerID, "error", err)
		}
		o.clickBound = false
	}
	if eng.HasLayer(o.spec.LayerID) {
		if err := eng.RemoveLayer(o.spec.LayerID); err != nil {
			o.log.Error("overlay layer removal failed", "layer", o.spec.LayerID, "error", err)
		}
	}
	if eng.HasSource(o.spec.SourceID) {
		if err := eng.RemoveSource(o.spec.SourceID); err != nil {
			o.log.Error("overlay source removal failed", "source", o.spec.SourceID, "error", err)
		}
	}
}

// ApplyData lands a fetch result. Results for an older generation or a
// deactivated overlay are discarded; a fetch error keeps the last good
// collection on the map and skips every engine mutation for the cycle.
func (o *Overlay) ApplyData(h Handle, gen uint64, fc *geojson.FeatureCollection, err error) {
	if !o.active || gen != o.gen {
		o.log.Debug("stale overlay fetch discarded", "layer", o.spec.LayerID, "gen", gen)
		return
	}
	if err != nil {
		o.log.Error("overlay fetch failed", "layer", o.spec.LayerID, "url", o.spec.DataURL, "error", err)
		return
	}
	o.data = fc
	if !h.Ready {
		// A swap started while the fetch was in flight; the overlay was
		// deactivated and the next activation refetches.
		o.log.Debug("overlay fetch landed mid style transition, dropped", "layer", o.spec.LayerID)
		return
	}
	o.install(h)
}

// install creates or updates the source and, on first creation, adds the
// layer and binds the click subscription. An existing source only has its
// data replaced; the layer above it is left alone.
func (o *Overlay) install(h Handle) {
	eng := h.Engine
	if eng == nil || o.data == nil {
		return
	}
	if eng.HasSource(o.spec.SourceID) {
		if err := eng.SetSourceData(o.spec.SourceID, o.data); err != nil {
			o.log.Error("overlay source update failed", "source", o.spec.SourceID, "error", err)
		}
		return
	}
	if err := eng.AddSource(o.spec.SourceID, o.data); err != nil {
		o.deferOrFail("add source", err)
		return
	}
	if err := eng.AddLayer(o.spec.Layer); err != nil {
		o.deferOrFail("add layer", err)
		return
	}
	o.bindClick(h)
}

// deferOrFail arms the single style-settled retry for a mutation refused
// mid-transition, or logs the failure when the retry is spent or the
// error is anything else. A spent retry leaves the overlay absent until
// its next activation cycle.
func (o *Overlay) deferOrFail(op string, err error) {
	if errors.Is(err, ErrStyleNotReady) && !o.retried {
		o.retryArmed = true
		o.log.Debug("overlay deferred until style settles", "layer", o.spec.LayerID, "op", op)
		return
	}
	o.log.Error("overlay mutation failed", "layer", o.spec.LayerID, "op", op, "error", err)
}

// HandleStyleLoaded runs the armed retry after a style settles: re-check
// whether the source survived, update it if so and create it if not, then
// add the layer if missing. The retry runs at most once per activation.
func (o *Overlay) HandleStyleLoaded(h Handle) {
	if !o.active || !o.retryArmed {
		return
	}
	o.retryArmed = false
	o.retried = true

	eng := h.Engine
	if eng == nil || o.data == nil {
		return
	}
	if eng.HasSource(o.spec.SourceID) {
		if err := eng.SetSourceData(o.spec.SourceID, o.data); err != nil {
			o.log.Error("overlay retry failed", "source", o.spec.SourceID, "error", err)
			return
		}
	} else if err := eng.AddSource(o.spec.SourceID, o.data); err != nil {
		o.log.Error("overlay retry failed", "source", o.spec.SourceID, "error", err)
		return
	}
	if !eng.HasLayer(o.spec.LayerID) {
		if err := eng.AddLayer(o.spec.Layer); err != nil {
			o.log.Error("overlay retry failed", "layer", o.spec.LayerID, "error", err)
			return
		}
	}
	o.bindClick(h)
}

// HandleRejected processes an asynchronous rejection reported by the
// engine's remote half for this overlay's identifiers. It follows the
// same bounded-retry rule as a synchronous refusal.
func (o *Overlay) HandleRejected(ev EngineEvent) {
	if !o.active {
		return
	}
	o.deferOrFail(ev.Op, ErrStyleNotReady)
}

// HandleClick forwards a clicked feature to the overlay's callback.
func (o *Overlay) HandleClick(s *Session, f *geojson.Feature) {
	if !o.active || !o.clickBound || o.spec.OnClick == nil {
		return
	}
	o.spec.OnClick(s, f)
}

func (o *Overlay) bindClick(h Handle) {
	if o.spec.OnClick == nil || o.clickBound {
		return
	}
	if err := h.Engine.BindClick(o.spec.LayerID); err != nil {
		o.log.Error("overlay click bind failed", "layer", o.spec.LayerID, "error", err)
		return
	}
	o.clickBound = true
}
