package telemetry

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

func TestNewMeterProvider_ExposesCounters(t *testing.T) {
	// given
	mp, handler, err := NewMeterProvider("marketplace-test")
	require.NoError(t, err)
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	counter, err := otel.Meter("test").Int64Counter("favorites_toggled", metric.WithDescription("test counter"))
	require.NoError(t, err)
	counter.Add(context.Background(), 3)

	// when
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	// then
	require.Equal(t, http.StatusOK, rr.Code)
	body, _ := io.ReadAll(rr.Body)
	assert.Contains(t, string(body), "favorites_toggled_total")
	assert.Contains(t, string(body), "go_goroutines")
}
