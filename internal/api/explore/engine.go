package explore

import (
	"context"
	"strconv"

	"github.com/danielgtaylor/huma/v2"
	"github.com/paulmach/orb/geojson"

	"github.com/MU-CMAP/narrative-geographies/internal/atlas"
	"github.com/MU-CMAP/narrative-geographies/internal/humastar"
)

// Engine receives the lifecycle signals the browser shim posts back:
// style-loaded when a base style settles, op-rejected when MapLibre
// refused a mutation mid-transition, click with the feature under the
// pointer. The event is applied on the session goroutine before the
// response renders, so the patched fragments reflect its effects.
func (h *Handler) Engine(ctx context.Context, input *humastar.SignalsInput) (*huma.StreamResponse, error) {
	signals, err := input.MustParse()
	if err != nil {
		return nil, err
	}
	sess, err := h.session(signals)
	if err != nil {
		return nil, err
	}

	ev, err := parseEngineEvent(signals)
	if err != nil {
		return nil, huma.Error400BadRequest(err.Error())
	}

	if err := sess.ApplyEngineEvent(ctx, ev); err != nil {
		h.log.Warn("engine event dropped", "session", sess.ID(), "kind", ev.Kind, "error", err)
		return h.Stream(func(humastar.SSE) {}), nil
	}

	var view atlas.View
	if err := sess.Do(ctx, func(s *atlas.Session) { view = s.View() }); err != nil {
		return h.Stream(func(humastar.SSE) {}), nil
	}
	return h.Stream(func(sse humastar.SSE) {
		h.patchView(sse, view)
	}), nil
}

func parseEngineEvent(signals humastar.Signals) (atlas.EngineEvent, error) {
	ev := atlas.EngineEvent{
		Op:       signals.String("op"),
		SourceID: signals.String("sourceid"),
		LayerID:  signals.String("layerid"),
	}
	switch kind := signals.String("event"); kind {
	case string(atlas.EventStyleLoaded):
		ev.Kind = atlas.EventStyleLoaded
	case string(atlas.EventOpRejected):
		ev.Kind = atlas.EventOpRejected
	case string(atlas.EventClick):
		ev.Kind = atlas.EventClick
		if raw := signals.String("feature"); raw != "" {
			f, err := geojson.UnmarshalFeature([]byte(raw))
			if err != nil {
				return ev, err
			}
			ev.Feature = f
		}
	default:
		return ev, &unknownEventError{kind: kind}
	}
	return ev, nil
}

type unknownEventError struct{ kind string }

func (e *unknownEventError) Error() string {
	return "unknown engine event " + strconv.Quote(e.kind)
}
