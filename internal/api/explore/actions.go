package explore

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/MU-CMAP/narrative-geographies/internal/atlas"
	"github.com/MU-CMAP/narrative-geographies/internal/humastar"
)

// session resolves the posting page's session from its sessionid signal.
func (h *Handler) session(signals humastar.Signals) (*atlas.Session, error) {
	id := signals.String("sessionid")
	if id == "" {
		return nil, huma.Error400BadRequest("missing sessionid signal")
	}
	sess, ok := h.sessions.Get(id)
	if !ok {
		return nil, huma.Error404NotFound("no active explore session: " + id)
	}
	return sess, nil
}

// apply runs fn on the session goroutine, snapshots the settled view and
// patches the state-driven fragments into the action's own response
// stream. A session that died mid-request degrades to an empty response;
// the page's stream reconnect starts a fresh one.
func (h *Handler) apply(ctx context.Context, sess *atlas.Session, fn func(*atlas.Session)) (*huma.StreamResponse, error) {
	var view atlas.View
	err := sess.Do(ctx, func(s *atlas.Session) {
		fn(s)
		view = s.View()
	})
	if err != nil {
		h.log.Warn("explore action dropped", "session", sess.ID(), "error", err)
		return h.Stream(func(humastar.SSE) {}), nil
	}
	return h.Stream(func(sse humastar.SSE) {
		h.patchView(sse, view)
	}), nil
}

// SetMode switches the view mode from the mode signal.
func (h *Handler) SetMode(ctx context.Context, input *humastar.SignalsInput) (*huma.StreamResponse, error) {
	signals, err := input.MustParse()
	if err != nil {
		return nil, err
	}
	sess, err := h.session(signals)
	if err != nil {
		return nil, err
	}
	mode, err := atlas.ParseViewMode(signals.String("mode"))
	if err != nil {
		return nil, huma.Error400BadRequest(err.Error())
	}
	return h.apply(ctx, sess, func(s *atlas.Session) { s.SetMode(mode) })
}

// SetMenu opens or closes the navigation menu from the menuopen signal.
func (h *Handler) SetMenu(ctx context.Context, input *humastar.SignalsInput) (*huma.StreamResponse, error) {
	signals, err := input.MustParse()
	if err != nil {
		return nil, err
	}
	sess, err := h.session(signals)
	if err != nil {
		return nil, err
	}
	open := signals.Bool("menuopen")
	return h.apply(ctx, sess, func(s *atlas.Session) { s.SetMenuOpen(open) })
}

// SetPanel drives the story panel and about section visibility flags.
// Only the signals present in the request are applied.
func (h *Handler) SetPanel(ctx context.Context, input *humastar.SignalsInput) (*huma.StreamResponse, error) {
	signals, err := input.MustParse()
	if err != nil {
		return nil, err
	}
	sess, err := h.session(signals)
	if err != nil {
		return nil, err
	}
	return h.apply(ctx, sess, func(s *atlas.Session) {
		if signals.Has("storypanelopen") {
			s.SetStoryPanelOpen(signals.Bool("storypanelopen"))
		}
		if signals.Has("aboutvisible") {
			s.SetAboutVisible(signals.Bool("aboutvisible"))
		}
	})
}

// SelectInput names which selection the id/name signals target.
type SelectInput struct {
	humastar.SignalsInput
	Kind string `path:"kind" enum:"community,theme,character,story" doc:"Selection kind"`
}

// Select records a menu selection for the given kind.
func (h *Handler) Select(ctx context.Context, input *SelectInput) (*huma.StreamResponse, error) {
	signals, err := input.MustParse()
	if err != nil {
		return nil, err
	}
	sess, err := h.session(signals)
	if err != nil {
		return nil, err
	}
	ref := atlas.Ref{ID: signals.String("id"), Name: signals.String("name")}
	if ref.ID == "" {
		return nil, huma.Error400BadRequest("missing id signal")
	}
	return h.apply(ctx, sess, func(s *atlas.Session) {
		switch input.Kind {
		case "community":
			s.SelectCommunity(ref)
		case "theme":
			s.SelectTheme(ref)
		case "character":
			s.SelectCharacter(ref)
		case "story":
			s.SelectStory(ref)
		}
	})
}

// Filter merges one named filter field from the key/value signals. An
// unknown key is logged and skipped; the filters stay as they were.
func (h *Handler) Filter(ctx context.Context, input *humastar.SignalsInput) (*huma.StreamResponse, error) {
	signals, err := input.MustParse()
	if err != nil {
		return nil, err
	}
	sess, err := h.session(signals)
	if err != nil {
		return nil, err
	}
	key, value := signals.String("key"), signals.String("value")
	return h.apply(ctx, sess, func(s *atlas.Session) {
		if err := s.UpdateFilter(key, value); err != nil {
			h.log.Warn("filter update skipped", "session", s.ID(), "key", key, "error", err)
		}
	})
}

// Scroll asks the page to scroll to a landing section. A section the
// configuration does not know is logged as a warning and skipped.
func (h *Handler) Scroll(ctx context.Context, input *humastar.SignalsInput) (*huma.StreamResponse, error) {
	signals, err := input.MustParse()
	if err != nil {
		return nil, err
	}
	section := signals.String("section")
	return h.Stream(func(sse humastar.SSE) {
		if !h.cfg.HasSection(section) {
			h.log.Warn("scroll to unknown section skipped", "section", section)
			return
		}
		sse.DispatchCustomEvent("scroll-to", map[string]any{"section": section})
	}), nil
}
