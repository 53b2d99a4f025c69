// Package config holds the configuration of the marketplace server.
package config

import (
	"fmt"
	"strings"

	"github.com/abgdnv/marketplace/pkg/config"
	"github.com/abgdnv/marketplace/pkg/config/configloader"
)

var _ configloader.Validator = (*Config)(nil)

const (
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// StoreConfig selects where users, products and favorites live.
type StoreConfig struct {
	Backend string `koanf:"backend"`
}

type Config struct {
	HTTPServer config.HTTPConfig       `koanf:"server"`
	GRPC       config.GrpcServerConfig `koanf:"grpc"`
	Store      StoreConfig             `koanf:"store"`
	Database   config.DatabaseConfig   `koanf:"database"`
	Redis      config.RedisConfig      `koanf:"redis"`
	Nats       config.NATSConfig       `koanf:"nats"`
	Token      config.TokenConfig      `koanf:"token"`
	Log        config.LogConfig        `koanf:"log"`
	PProf      config.PProfConfig      `koanf:"pprof"`
	Telemetry  config.TelemetryConfig  `koanf:"telemetry"`
	Shutdown   config.ShutdownConfig   `koanf:"shutdown"`
}

func (c *Config) String() string {
	var b strings.Builder
	b.WriteString(c.HTTPServer.String())
	b.WriteString(c.GRPC.String())
	b.WriteString("\n--- Store ---\n")
	b.WriteString(fmt.Sprintf("  backend: %s\n", c.Store.Backend))
	if c.Store.Backend == BackendPostgres {
		b.WriteString(c.Database.String())
	}
	b.WriteString(c.Redis.String())
	b.WriteString(c.Nats.String())
	b.WriteString(c.Token.String())
	b.WriteString(c.Log.String())
	b.WriteString(c.PProf.String())
	b.WriteString(c.Telemetry.String())
	b.WriteString(c.Shutdown.String())
	return b.String()
}

// Validate checks if the configuration values are valid
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case BackendPostgres:
		if err := c.Database.Validate(); err != nil {
			return err
		}
	case BackendMemory:
	default:
		return fmt.Errorf("store.backend must be %q or %q, got %q", BackendPostgres, BackendMemory, c.Store.Backend)
	}

	validators := []configloader.Validator{
		&c.HTTPServer,
		&c.GRPC,
		&c.Redis,
		&c.Nats,
		&c.Token,
		&c.Log,
		&c.PProf,
		&c.Telemetry,
		&c.Shutdown,
	}
	for _, v := range validators {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return nil
}
