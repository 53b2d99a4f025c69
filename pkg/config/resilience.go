package config

import (
	"fmt"
	"strings"
	"time"
)

// CircuitBreakerConfig controls when an outbound client stops calling a failing upstream.
type CircuitBreakerConfig struct {
	ConsecutiveFailures uint32        `koanf:"consecutivefailures"`
	ErrorRatePercent    int           `koanf:"errorratepercent"`
	OpenTimeout         time.Duration `koanf:"opentimeout"`
	HalfOpenRequests    uint32        `koanf:"halfopenrequests"`
}

// DefaultCircuitBreaker is used by clients that run without a config file.
func DefaultCircuitBreaker() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		ConsecutiveFailures: 5,
		ErrorRatePercent:    60,
		OpenTimeout:         10 * time.Second,
		HalfOpenRequests:    1,
	}
}

// String returns a string representation of the CircuitBreakerConfig.
func (c *CircuitBreakerConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- Circuit Breaker ---\n")
	b.WriteString(fmt.Sprintf("  consecutivefailures: %d\n", c.ConsecutiveFailures))
	b.WriteString(fmt.Sprintf("  errorratepercent: %d\n", c.ErrorRatePercent))
	b.WriteString(fmt.Sprintf("  opentimeout: %v\n", c.OpenTimeout))
	b.WriteString(fmt.Sprintf("  halfopenrequests: %d\n", c.HalfOpenRequests))
	return b.String()
}

func (c *CircuitBreakerConfig) Validate() error {
	if c.ConsecutiveFailures == 0 {
		return fmt.Errorf("circuit_breaker.consecutive_failures must be greater than 0")
	}
	if c.ErrorRatePercent < 0 || c.ErrorRatePercent > 100 {
		return fmt.Errorf("circuit_breaker.error_rate_percent must be between 0 and 100")
	}
	if c.OpenTimeout <= 0 {
		return fmt.Errorf("circuit_breaker.open_timeout must be greater than 0")
	}
	return nil
}
