package config

import (
	"fmt"
	"strings"
	"time"
)

// RedisConfig configures the catalog page cache. The cache is bypassed when Enabled is false.
type RedisConfig struct {
	Enabled  bool          `koanf:"enabled"`
	Addr     string        `koanf:"addr"`
	Password string        `koanf:"password"`
	DB       int           `koanf:"db"`
	TTL      time.Duration `koanf:"ttl"`
}

// String returns a string representation of the Redis configuration.
func (c *RedisConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- Redis ---\n")
	b.WriteString(fmt.Sprintf("  enabled: %t\n", c.Enabled))
	b.WriteString(fmt.Sprintf("  addr: %s\n", c.Addr))
	b.WriteString(fmt.Sprintf("  db: %d\n", c.DB))
	b.WriteString(fmt.Sprintf("  ttl: %s\n", c.TTL))
	return b.String()
}

func (c *RedisConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Addr == "" {
		return fmt.Errorf("redis address is not configured")
	}
	if c.TTL <= 0 {
		return fmt.Errorf("redis ttl must be greater than 0")
	}
	return nil
}
