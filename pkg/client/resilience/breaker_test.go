package resilience

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/abgdnv/marketplace/pkg/config"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(cfg config.CircuitBreakerConfig) (*http.Client, *gobreaker.CircuitBreaker[*http.Response]) {
	cb := NewCircuitBreaker("test", cfg)
	return &http.Client{Transport: &Transport{Breaker: cb}}, cb
}

func TestTransport_OpensOnServerErrors(t *testing.T) {
	// given
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)
	client, cb := newClient(config.CircuitBreakerConfig{ConsecutiveFailures: 2, ErrorRatePercent: 100, OpenTimeout: time.Minute, HalfOpenRequests: 1})

	// when
	for range 2 {
		resp, err := client.Get(srv.URL)
		require.NoError(t, err, "5xx is still delivered to the caller")
		_ = resp.Body.Close()
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	}
	_, err := client.Get(srv.URL)

	// then
	require.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, gobreaker.StateOpen, cb.State())
	assert.Equal(t, int32(2), hits.Load(), "open breaker must not reach the server")
}

func TestTransport_ClientErrorsDoNotTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(srv.Close)
	client, cb := newClient(config.CircuitBreakerConfig{ConsecutiveFailures: 1, ErrorRatePercent: 1, OpenTimeout: time.Minute, HalfOpenRequests: 1})

	for range 5 {
		resp, err := client.Get(srv.URL)
		require.NoError(t, err)
		_ = resp.Body.Close()
	}

	assert.Equal(t, gobreaker.StateClosed, cb.State())
}
