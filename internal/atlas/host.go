package atlas

import "log/slog"

// Handle is the host's published view of the engine. Overlay code must go
// through a Handle and stay off the engine entirely while Ready is false.
type Handle struct {
	Engine Engine
	Ready  bool
}

// Host owns the engine lifecycle for one session: it mounts the map,
// swaps base styles on mode changes and tracks the readiness flag that
// gates every overlay mutation.
type Host struct {
	engine   Engine
	styles   map[ViewMode]string
	camera   Camera
	controls bool
	log      *slog.Logger

	mounted bool
	ready   bool
}

// NewHost wires a host around an engine and the per-mode style registry.
func NewHost(engine Engine, styles map[ViewMode]string, camera Camera, controls bool, log *slog.Logger) *Host {
	return &Host{engine: engine, styles: styles, camera: camera, controls: controls, log: log}
}

// Handle returns the engine plus readiness flag as seen by overlays.
// Before Mount and after Unmount the handle is empty.
func (h *Host) Handle() Handle {
	if !h.mounted {
		return Handle{}
	}
	return Handle{Engine: h.engine, Ready: h.ready}
}

// Ready reports whether the active style has finished loading.
func (h *Host) Ready() bool { return h.mounted && h.ready }

// Mount constructs the engine bound to the style for mode. Readiness
// arrives later through HandleStyleLoaded, never here.
func (h *Host) Mount(mode ViewMode) {
	if h.mounted || h.engine == nil {
		return
	}
	style, ok := h.styles[mode]
	if !ok {
		h.log.Warn("no base style registered for mode", "mode", mode)
	}
	if err := h.engine.Init(InitOptions{Style: style, Camera: h.camera, Controls: h.controls}); err != nil {
		h.log.Error("map init failed", "style", style, "error", err)
		return
	}
	h.mounted = true
}

// SwapStyle starts a base style transition for mode. Readiness drops
// immediately and comes back only when the engine signals the new style
// loaded. A rejected swap restores the ready flag so the session never
// wedges with a permanently frozen map; the failure is visible to the
// operator in the log only.
func (h *Host) SwapStyle(mode ViewMode) {
	if !h.mounted {
		return
	}
	style, ok := h.styles[mode]
	if !ok {
		h.log.Warn("no base style registered for mode", "mode", mode)
		return
	}
	h.ready = false
	if err := h.engine.SetStyle(style); err != nil {
		h.log.Error("style swap failed", "style", style, "error", err)
		h.ready = true
	}
}

// HandleStyleLoaded records that the active style finished loading and
// opens the gate for overlay mutations.
func (h *Host) HandleStyleLoaded() {
	if !h.mounted {
		return
	}
	h.engine.ConfirmStyleLoaded()
	h.ready = true
}

// Unmount destroys the engine. The host is spent afterwards.
func (h *Host) Unmount() {
	if !h.mounted {
		return
	}
	h.engine.Destroy()
	h.mounted = false
	h.ready = false
}
