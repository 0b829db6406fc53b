package metrics_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/habitvault/habitvault/internal/metrics"
)

func TestProvider(t *testing.T) {
	provider, err := metrics.NewProvider("habitvault")
	require.NoError(t, err)
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	business, err := metrics.NewBusinessMetrics(provider.MeterProvider(), "habitvault")
	require.NoError(t, err)

	ctx := context.Background()
	business.RecordOperation(ctx, "rotation", "rotate_settings", "success")
	business.RecordDuration(ctx, "rotation", "rotate_settings", 150*time.Millisecond, "success")

	w := httptest.NewRecorder()
	provider.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "habitvault_operations_total")
	assert.Contains(t, w.Body.String(), "habitvault_operation_duration_seconds")
}

func TestNoOpBusinessMetrics(t *testing.T) {
	business := metrics.NewNoOpBusinessMetrics()

	// Must be safe to call with any arguments.
	business.RecordOperation(context.Background(), "user", "settings_save", "error")
	business.RecordDuration(context.Background(), "user", "settings_save", time.Second, "error")
}
