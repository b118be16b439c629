package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/MU-CMAP/narrative-geographies/internal/logging"
	"github.com/MU-CMAP/narrative-geographies/internal/service"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListenerCountsEvents(t *testing.T) {
	bus := service.NewEventBus()
	provider := NewProvider()
	listener := NewBusListener(bus, provider, logging.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		listener.Start(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	bus.Publish(service.Event{Kind: service.EventSessionStarted, Session: "s1"})
	bus.Publish(service.Event{Kind: service.EventModeChanged, Session: "s1", Detail: "data"})
	bus.Publish(service.Event{Kind: service.EventModeChanged, Session: "s1", Detail: "stories"})

	assert.Eventually(t, func() bool {
		return testutil.ToFloat64(provider.events.WithLabelValues(service.EventModeChanged)) == 2
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, 1.0, testutil.ToFloat64(provider.sessions))

	bus.Publish(service.Event{Kind: service.EventSessionEnded, Session: "s1"})
	assert.Eventually(t, func() bool {
		return testutil.ToFloat64(provider.sessions) == 0
	}, 2*time.Second, 5*time.Millisecond)
}

func TestListenerKeepsEventsPublishedBeforeStart(t *testing.T) {
	bus := service.NewEventBus()
	provider := NewProvider()
	listener := NewBusListener(bus, provider, logging.Discard())

	// The subscription is live from construction: events published before
	// the Start goroutine runs must still be counted.
	bus.Publish(service.Event{Kind: service.EventSessionStarted, Session: "s1"})
	bus.Publish(service.Event{Kind: service.EventSessionEnded, Session: "s1"})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		listener.Start(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	assert.Eventually(t, func() bool {
		return testutil.ToFloat64(provider.events.WithLabelValues(service.EventSessionEnded)) == 1
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, 1.0, testutil.ToFloat64(provider.events.WithLabelValues(service.EventSessionStarted)))
	assert.Equal(t, 0.0, testutil.ToFloat64(provider.sessions))
}

func TestHandlerServesExposition(t *testing.T) {
	provider := NewProvider()
	provider.sessions.Set(3)

	srv := httptest.NewServer(provider.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), "narrativegeo_explore_sessions 3"))
}
