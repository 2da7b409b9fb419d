package observability

import (
	"context"
	"testing"

	"github.com/annel0/mmo-seating/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitTelemetry_Disabled(t *testing.T) {
	shutdown, err := InitTelemetry(context.Background(), config.TelemetryConfig{})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestInitTelemetry_Enabled(t *testing.T) {
	cfg := config.TelemetryConfig{Enabled: true, Endpoint: "127.0.0.1:4318", Insecure: true, SampleRatio: 0.5}

	// Экспортер не соединяется до первой отправки, shutdown без спанов проходит сразу
	shutdown, err := InitTelemetry(context.Background(), cfg)
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))
}

func TestTelemetryDefaults(t *testing.T) {
	cfg := config.TelemetryConfig{}
	assert.Equal(t, "mmo-seating", cfg.GetServiceName())
	assert.Equal(t, 1.0, cfg.GetSampleRatio())
	assert.Equal(t, "localhost:4318", endpointOrDefault(""))
}
