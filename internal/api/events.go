package api

import (
	"bytes"
	"context"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/MU-CMAP/narrative-geographies/internal/humastar"
	"github.com/MU-CMAP/narrative-geographies/internal/service"
	"github.com/MU-CMAP/narrative-geographies/internal/templates"
)

const eventTailSize = 20

// EventsHandler streams session events into the diagnostics page's
// event tail.
type EventsHandler struct {
	humastar.Handler
	bus *service.EventBus
}

func NewEventsHandler(bus *service.EventBus, renderer *templates.Renderer) *EventsHandler {
	return &EventsHandler{Handler: humastar.Handler{Renderer: renderer}, bus: bus}
}

func (h *EventsHandler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/events", h.Events, huma.OperationTags("diagnostics"))
}

// EventLineData feeds the event-line fragment.
type EventLineData struct {
	Time    string
	Kind    string
	Session string
	Detail  string
}

func (h *EventsHandler) Events(ctx context.Context, input *humastar.EmptyInput) (*huma.StreamResponse, error) {
	return &huma.StreamResponse{
		Body: func(humaCtx huma.Context) {
			sse := humastar.NewSSE(humaCtx)
			ch := h.bus.Subscribe()
			defer h.bus.Unsubscribe(ch)

			var tail []EventLineData
			for {
				select {
				case <-ctx.Done():
					return
				case ev := <-ch:
					tail = append(tail, EventLineData{
						Time:    time.Now().Format("15:04:05"),
						Kind:    ev.Kind,
						Session: shortSession(ev.Session),
						Detail:  ev.Detail,
					})
					if len(tail) > eventTailSize {
						tail = tail[len(tail)-eventTailSize:]
					}
					sse.Patch(h.renderTail(tail), "#event-tail")
				}
			}
		},
	}, nil
}

// renderTail renders the tail newest-first.
func (h *EventsHandler) renderTail(tail []EventLineData) string {
	var buf bytes.Buffer
	for i := len(tail) - 1; i >= 0; i-- {
		h.Renderer.RenderToBuffer(&buf, "event-line", tail[i])
	}
	return buf.String()
}

func shortSession(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
