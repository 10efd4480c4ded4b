package infrastructure

import (
	"context"
	"log/slog"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javannnn/salitemihret-system-sub001/internal/config"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name  string
		cfg   config.LoggingConfig
		level slog.Level
	}{
		{"defaults to info json", config.LoggingConfig{}, slog.LevelInfo},
		{"debug text", config.LoggingConfig{Level: "debug", Format: "text"}, slog.LevelDebug},
		{"warn alias", config.LoggingConfig{Level: "warning"}, slog.LevelWarn},
		{"error", config.LoggingConfig{Level: "error"}, slog.LevelError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := NewLogger(tt.cfg)
			require.NotNil(t, logger)
			assert.True(t, logger.Enabled(context.Background(), tt.level))
			if tt.level > slog.LevelDebug {
				assert.False(t, logger.Enabled(context.Background(), tt.level-4))
			}
		})
	}
}

func TestInitializeOTel(t *testing.T) {
	logger := slog.Default()

	providers, err := InitializeOTel("test", false, logger)
	require.NoError(t, err)
	require.NotNil(t, providers.Meter)
	require.NotNil(t, providers.Tracer)
	require.NotNil(t, providers.PrometheusHTTP)

	// The prometheus endpoint serves the exposition format.
	rec := httptest.NewRecorder()
	providers.PrometheusHTTP.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, 200, rec.Code)

	// Repeated initialization must not collide on a shared registry.
	again, err := InitializeOTel("test", true, logger)
	require.NoError(t, err)
	require.NoError(t, again.Shutdown(context.Background()))
	require.NoError(t, providers.Shutdown(context.Background()))
}
