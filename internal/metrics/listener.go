package metrics

import (
	"context"
	"log/slog"

	"github.com/MU-CMAP/narrative-geographies/internal/service"
)

// BusListener subscribes to the session event bus and updates the
// provider's collectors from the events it receives.
type BusListener struct {
	bus      *service.EventBus
	provider *Provider
	log      *slog.Logger
	ch       chan service.Event
}

// NewBusListener creates a listener bound to a bus and a provider. The
// subscription opens here, not in Start, so events published before the
// Start goroutine is scheduled are not lost.
func NewBusListener(bus *service.EventBus, provider *Provider, log *slog.Logger) *BusListener {
	if log == nil {
		log = slog.Default()
	}
	return &BusListener{
		bus:      bus,
		provider: provider,
		log:      log.With("component", "metrics"),
		ch:       bus.Subscribe(),
	}
}

// Start consumes bus events until the context is cancelled. Run it in its
// own goroutine.
func (l *BusListener) Start(ctx context.Context) {
	l.log.Debug("metrics listener started")
	for {
		select {
		case ev, ok := <-l.ch:
			if !ok {
				return
			}
			l.handle(ev)
		case <-ctx.Done():
			l.bus.Unsubscribe(l.ch)
			l.log.Debug("metrics listener stopped")
			return
		}
	}
}

func (l *BusListener) handle(ev service.Event) {
	l.provider.events.WithLabelValues(ev.Kind).Inc()
	switch ev.Kind {
	case service.EventSessionStarted:
		l.provider.sessions.Inc()
	case service.EventSessionEnded:
		l.provider.sessions.Dec()
	}
}
