// Package resilience guards outbound HTTP calls with a circuit breaker.
package resilience

import (
	"errors"
	"net/http"

	"github.com/abgdnv/marketplace/pkg/config"
	"github.com/sony/gobreaker/v2"
)

// errUpstreamFailure marks a 5xx answer so the breaker counts it without surfacing an error to the caller.
var errUpstreamFailure = errors.New("upstream failure")

// NewCircuitBreaker builds a breaker that trips on consecutive failures or on a high error rate.
func NewCircuitBreaker(name string, cfg config.CircuitBreakerConfig) *gobreaker.CircuitBreaker[*http.Response] {
	st := gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.HalfOpenRequests,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			total := counts.TotalSuccesses + counts.TotalFailures
			return counts.ConsecutiveFailures >= cfg.ConsecutiveFailures ||
				(total > cfg.ConsecutiveFailures &&
					float64(counts.TotalFailures)/float64(total)*100 > float64(cfg.ErrorRatePercent))
		},
		IsSuccessful: func(err error) bool {
			return err == nil
		},
	}
	return gobreaker.NewCircuitBreaker[*http.Response](st)
}

// Transport is an http.RoundTripper that routes requests through a circuit breaker.
// Transport errors and 5xx responses count as failures; 4xx responses are the caller's problem and do not.
// While the breaker is open requests fail fast with gobreaker.ErrOpenState.
type Transport struct {
	Base    http.RoundTripper
	Breaker *gobreaker.CircuitBreaker[*http.Response]
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	resp, err := t.Breaker.Execute(func() (*http.Response, error) {
		resp, err := base.RoundTrip(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			return resp, errUpstreamFailure
		}
		return resp, nil
	})
	if errors.Is(err, errUpstreamFailure) {
		return resp, nil
	}
	return resp, err
}
