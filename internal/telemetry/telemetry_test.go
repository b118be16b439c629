package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupWithoutEndpointIsNoop(t *testing.T) {
	t.Setenv("NARRATIVEGEO_OTEL_ENDPOINT", "")
	t.Setenv("NARRATIVEGEO_OTEL_ENABLED", "")

	shutdown, err := Setup(context.Background(), "narrative-geographies")
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestSetupDisabledIgnoresEndpoint(t *testing.T) {
	t.Setenv("NARRATIVEGEO_OTEL_ENDPOINT", "http://localhost:4318")
	t.Setenv("NARRATIVEGEO_OTEL_ENABLED", "false")

	shutdown, err := Setup(context.Background(), "narrative-geographies")
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}
