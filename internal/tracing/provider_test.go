package tracing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

func TestBuildResourceCarriesServiceName(t *testing.T) {
	t.Setenv("OTEL_SERVICE_NAME", "tenant-harness-test")

	res, err := buildResource(context.Background())
	require.NoError(t, err, "detector schema URLs must not conflict")

	found := false
	for _, attr := range res.Attributes() {
		if attr.Key == semconv.ServiceNameKey {
			assert.Equal(t, "tenant-harness-test", attr.Value.AsString())
			found = true
		}
	}
	assert.True(t, found, "service.name must be present on the resource")
}

func TestNewProviderFromEnvRespectsDisableFlag(t *testing.T) {
	t.Setenv("OTEL_SDK_DISABLED", "true")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317")

	provider, err := NewProviderFromEnv(context.Background())
	require.NoError(t, err)
	assert.True(t, provider.IsEffectivelyNoOp())
}
