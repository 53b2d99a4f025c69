package config

import (
	"fmt"
	"strings"
	"time"
)

// TokenConfig holds the settings used to issue and verify bearer credentials.
type TokenConfig struct {
	Issuer string        `koanf:"issuer"`
	Secret string        `koanf:"secret"`
	TTL    time.Duration `koanf:"ttl"`
}

// String returns a string representation of the token configuration. The secret is never printed.
func (c *TokenConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- Token ---\n")
	b.WriteString(fmt.Sprintf("  issuer: %s\n", c.Issuer))
	b.WriteString("  secret: ****\n")
	b.WriteString(fmt.Sprintf("  ttl: %s\n", c.TTL))
	return b.String()
}

func (c *TokenConfig) Validate() error {
	if c.Issuer == "" {
		return fmt.Errorf("token issuer cannot be empty")
	}
	if len(c.Secret) < 32 {
		return fmt.Errorf("token secret must be at least 32 bytes")
	}
	if c.TTL <= 0 {
		return fmt.Errorf("token ttl must be greater than zero")
	}
	return nil
}
