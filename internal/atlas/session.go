package atlas

import (
	"context"
	"errors"
	"log/slog"

	"github.com/paulmach/orb/geojson"
)

// ErrSessionClosed reports that the session loop has already exited.
var ErrSessionClosed = errors.New("session closed")

// Recorder receives session lifecycle notifications for metrics and
// diagnostics. Implementations must not block.
type Recorder interface {
	Record(event, detail string)
}

// NopRecorder discards every notification.
type NopRecorder struct{}

// Record implements Recorder.
func (NopRecorder) Record(string, string) {}

// FeatureFetcher loads overlay feature collections by URL.
type FeatureFetcher interface {
	Fetch(ctx context.Context, url string) (*geojson.FeatureCollection, error)
}

// SessionConfig wires a session's collaborators.
type SessionConfig struct {
	ID       string
	Engine   Engine
	Styles   map[ViewMode]string
	Camera   Camera
	Controls bool
	Mode     ViewMode
	Overlays []OverlaySpec
	Fetcher  FeatureFetcher
	Logger   *slog.Logger
	Recorder Recorder
}

type queuedAction struct {
	fn   func(*Session)
	done chan struct{}
}

type fetchResult struct {
	layerID string
	gen     uint64
	fc      *geojson.FeatureCollection
	err     error
}

// Session is the event loop behind one explore visit. Run owns the host,
// the store and every overlay; actions, engine events and fetch results
// all funnel through its channels, so no session state is ever touched
// concurrently. Methods without a ctx parameter must only be called from
// inside the loop (that is, from a Do action, an overlay callback or an
// engine event).
type Session struct {
	id  string
	log *slog.Logger
	rec Recorder

	store    *Store
	host     *Host
	overlays []*Overlay
	fetcher  FeatureFetcher

	actions chan queuedAction
	events  chan EngineEvent
	fetches chan fetchResult

	runCtx context.Context
	done   chan struct{}
}

// NewSession builds a session; Run starts it.
func NewSession(cfg SessionConfig) *Session {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("session", cfg.ID)

	rec := cfg.Recorder
	if rec == nil {
		rec = NopRecorder{}
	}
	mode := cfg.Mode
	if !mode.Valid() {
		mode = ModeStories
	}

	s := &Session{
		id:      cfg.ID,
		log:     logger,
		rec:     rec,
		store:   NewStore(mode),
		host:    NewHost(cfg.Engine, cfg.Styles, cfg.Camera, cfg.Controls, logger),
		fetcher: cfg.Fetcher,
		actions: make(chan queuedAction, 8),
		events:  make(chan EngineEvent, 16),
		fetches: make(chan fetchResult, 8),
		done:    make(chan struct{}),
	}
	for _, spec := range cfg.Overlays {
		s.overlays = append(s.overlays, NewOverlay(spec, logger))
	}
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Run mounts the map and processes actions, engine events and fetch
// results until ctx is cancelled, then deactivates every overlay and
// unmounts. It must be the only goroutine touching session state.
func (s *Session) Run(ctx context.Context) {
	s.runCtx = ctx
	defer close(s.done)
	defer s.shutdown()

	s.host.Mount(s.store.Mode())
	s.rec.Record("session_started", string(s.store.Mode()))
	s.log.Info("session started", "mode", s.store.Mode())

	for {
		select {
		case <-ctx.Done():
			return
		case qa := <-s.actions:
			qa.fn(s)
			close(qa.done)
		case ev := <-s.events:
			s.handleEngineEvent(ev)
		case fr := <-s.fetches:
			s.applyFetch(fr)
		}
	}
}

func (s *Session) shutdown() {
	h := s.host.Handle()
	for _, o := range s.overlays {
		o.Deactivate(h)
	}
	s.host.Unmount()
	s.rec.Record("session_ended", "")
	s.log.Info("session ended")
}

// Do runs fn on the session goroutine and waits for it to complete.
func (s *Session) Do(ctx context.Context, fn func(*Session)) error {
	// The buffered send can win a select race against the closed done
	// channel, so a dead session is ruled out first.
	select {
	case <-s.done:
		return ErrSessionClosed
	default:
	}

	qa := queuedAction{fn: fn, done: make(chan struct{})}
	select {
	case s.actions <- qa:
	case <-s.done:
		return ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-qa.done:
		return nil
	case <-s.done:
		return ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PostEngineEvent queues a lifecycle event reported by the engine's
// remote half.
func (s *Session) PostEngineEvent(ctx context.Context, ev EngineEvent) error {
	select {
	case <-s.done:
		return ErrSessionClosed
	default:
	}

	select {
	case s.events <- ev:
		return nil
	case <-s.done:
		return ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ApplyEngineEvent delivers ev on the session goroutine and waits until
// it has been processed, so a follow-up snapshot observes its effects.
func (s *Session) ApplyEngineEvent(ctx context.Context, ev EngineEvent) error {
	return s.Do(ctx, func(inner *Session) { inner.handleEngineEvent(ev) })
}

// Done is closed when the session loop has exited.
func (s *Session) Done() <-chan struct{} { return s.done }

// SetMode switches the view mode, swaps the base style and reconciles
// every overlay against the new mode.
func (s *Session) SetMode(mode ViewMode) {
	if !mode.Valid() {
		s.log.Warn("ignoring invalid view mode", "mode", mode)
		return
	}
	if mode == s.store.Mode() {
		return
	}
	s.store.SetMode(mode)
	s.rec.Record("mode_changed", string(mode))
	s.host.SwapStyle(mode)
	s.syncOverlays()
}

// SetMenuOpen opens or closes the navigation menu.
func (s *Session) SetMenuOpen(open bool) { s.store.SetMenuOpen(open) }

// SetStoryPanelOpen opens or closes the story panel.
func (s *Session) SetStoryPanelOpen(open bool) { s.store.SetStoryPanelOpen(open) }

// SetAboutVisible expands or collapses the about section.
func (s *Session) SetAboutVisible(v bool) { s.store.SetAboutVisible(v) }

// SelectCommunity records the selected community.
func (s *Session) SelectCommunity(r Ref) {
	s.store.SetCommunity(r)
	s.rec.Record("community_selected", r.ID)
}

// SelectTheme records the selected theme.
func (s *Session) SelectTheme(r Ref) {
	s.store.SetTheme(r)
	s.rec.Record("theme_selected", r.ID)
}

// SelectCharacter records the selected character.
func (s *Session) SelectCharacter(r Ref) {
	s.store.SetCharacter(r)
	s.rec.Record("character_selected", r.ID)
}

// SelectStory records the selected story and opens the story panel.
func (s *Session) SelectStory(r Ref) {
	s.store.SetStory(r)
	s.store.SetStoryPanelOpen(true)
	s.rec.Record("story_selected", r.ID)
}

// UpdateFilter merges one filter field into the store.
func (s *Session) UpdateFilter(key, value string) error {
	if err := s.store.UpdateFilter(key, value); err != nil {
		return err
	}
	s.rec.Record("filter_updated", key)
	return nil
}

// Store exposes the UI store for read access during rendering.
func (s *Session) Store() *Store { return s.store }

// View is a copy of the session state safe to hand to a renderer.
type View struct {
	SessionID      string
	Mode           ViewMode
	Ready          bool
	MenuOpen       bool
	StoryPanelOpen bool
	AboutVisible   bool
	Community      Ref
	Theme          Ref
	Character      Ref
	Story          Ref
	Filters        Filters
	ActiveOverlays []string
}

// View snapshots the current state.
func (s *Session) View() View {
	v := View{
		SessionID:      s.id,
		Mode:           s.store.Mode(),
		Ready:          s.host.Ready(),
		MenuOpen:       s.store.MenuOpen(),
		StoryPanelOpen: s.store.StoryPanelOpen(),
		AboutVisible:   s.store.AboutVisible(),
		Community:      s.store.Community(),
		Theme:          s.store.Theme(),
		Character:      s.store.Character(),
		Story:          s.store.Story(),
		Filters:        s.store.Filters(),
	}
	for _, o := range s.overlays {
		if o.Active() {
			v.ActiveOverlays = append(v.ActiveOverlays, o.Spec().LayerID)
		}
	}
	return v
}

// syncOverlays reconciles every overlay and launches fetches for the ones
// that just activated.
func (s *Session) syncOverlays() {
	h := s.host.Handle()
	mode := s.store.Mode()
	for _, o := range s.overlays {
		if o.Sync(h, mode) {
			s.launchFetch(o)
		}
	}
}

func (s *Session) handleEngineEvent(ev EngineEvent) {
	switch ev.Kind {
	case EventStyleLoaded:
		s.host.HandleStyleLoaded()
		h := s.host.Handle()
		for _, o := range s.overlays {
			o.HandleStyleLoaded(h)
		}
		s.syncOverlays()
	case EventOpRejected:
		h := s.host.Handle()
		if h.Engine == nil {
			return
		}
		h.Engine.ConfirmOpRejected(ev.Op, ev.SourceID, ev.LayerID)
		for _, o := range s.overlays {
			if o.Spec().SourceID == ev.SourceID || o.Spec().LayerID == ev.LayerID {
				o.HandleRejected(ev)
			}
		}
	case EventClick:
		for _, o := range s.overlays {
			if o.Spec().LayerID == ev.LayerID {
				o.HandleClick(s, ev.Feature)
			}
		}
	default:
		s.log.Warn("unknown engine event", "kind", ev.Kind)
	}
}

func (s *Session) applyFetch(fr fetchResult) {
	h := s.host.Handle()
	for _, o := range s.overlays {
		if o.Spec().LayerID == fr.layerID {
			o.ApplyData(h, fr.gen, fr.fc, fr.err)
			return
		}
	}
}

// launchFetch runs the overlay's data fetch on its own goroutine and
// routes the result back into the loop tagged with the activation
// generation captured here.
func (s *Session) launchFetch(o *Overlay) {
	if s.fetcher == nil {
		s.log.Error("no fetcher configured", "layer", o.Spec().LayerID)
		return
	}
	gen := o.Generation()
	url := o.Spec().DataURL
	layerID := o.Spec().LayerID
	ctx := s.runCtx
	if ctx == nil {
		ctx = context.Background()
	}
	go func() {
		fc, err := s.fetcher.Fetch(ctx, url)
		select {
		case s.fetches <- fetchResult{layerID: layerID, gen: gen, fc: fc, err: err}:
		case <-ctx.Done():
		}
	}()
}
