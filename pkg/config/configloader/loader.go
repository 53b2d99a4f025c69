// Package configloader builds typed configuration from a YAML file, a .env file and the process environment.
package configloader

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/basicflag"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Validator interface {
	Validate() error
}

type options struct {
	configFile string
	envFile    string
	flags      *flag.FlagSet
}

// Option overrides where configuration sources are read from.
type Option func(*options)

// WithConfigFile sets the YAML file path. Defaults to config.yaml in the working directory.
func WithConfigFile(path string) Option {
	return func(o *options) { o.configFile = path }
}

// WithEnvFile sets the dotenv file path. Defaults to .env in the working directory.
func WithEnvFile(path string) Option {
	return func(o *options) { o.envFile = path }
}

// WithFlags adds a parsed flag set as two layers: flag defaults below the YAML file,
// and flags set on the command line above the process environment.
// Flag names are koanf keys, e.g. -server.port.
func WithFlags(fs *flag.FlagSet) Option {
	return func(o *options) { o.flags = fs }
}

// Load reads configuration for the named service. Sources are applied in order of
// increasing priority: flag defaults, YAML file, .env file, process environment, explicitly set flags.
// Environment keys use the upper-cased service name as prefix, e.g. MARKETPLACE_SERVER_PORT -> server.port.
func Load[T Validator](serviceName string, opts ...Option) (T, error) {
	var cfg T
	o := options{configFile: "config.yaml", envFile: ".env"}
	for _, opt := range opts {
		opt(&o)
	}
	k := koanf.New(".")
	envPrefix := fmt.Sprintf("%s_", strings.ToUpper(serviceName))

	// 0. flag defaults, the lowest priority
	if o.flags != nil {
		if err := k.Load(basicflag.Provider(o.flags, "."), nil); err != nil {
			return cfg, fmt.Errorf("error loading flag defaults: %w", err)
		}
	}

	// 1. yaml file
	if err := k.Load(file.Provider(o.configFile), yaml.Parser()); err != nil {
		if !os.IsNotExist(err) {
			log.Printf("WARN: error loading YAML config file '%s': %v", o.configFile, err)
		}
	}

	envTransformer := func(key string) string {
		key = strings.ToLower(key)
		key = strings.TrimPrefix(key, strings.ToLower(envPrefix))
		return strings.ReplaceAll(key, "_", ".")
	}

	// 2. .env file; keys without the service prefix are ignored
	if envFileMap, err := godotenv.Read(o.envFile); err == nil {
		envMap := make(map[string]any)
		for key, value := range envFileMap {
			if !strings.HasPrefix(strings.ToUpper(key), envPrefix) {
				continue
			}
			envMap[envTransformer(key)] = value
		}
		if err := k.Load(confmap.Provider(envMap, "."), nil); err != nil {
			log.Printf("WARN: error loading .env config: %v", err)
		}
	} else if !os.IsNotExist(err) {
		log.Printf("WARN: error reading .env file: %v", err)
	}

	// 3. process environment, the highest priority
	if err := k.Load(env.Provider(envPrefix, ".", envTransformer), nil); err != nil {
		log.Printf("WARN: error loading system env vars: %v", err)
	}

	// 4. flags given on the command line win over everything
	if o.flags != nil {
		explicit := make(map[string]any)
		o.flags.Visit(func(f *flag.Flag) {
			explicit[f.Name] = f.Value.String()
		})
		if err := k.Load(confmap.Provider(explicit, "."), nil); err != nil {
			return cfg, fmt.Errorf("error loading command line flags: %w", err)
		}
	}

	if err := k.Unmarshal("", &cfg); err != nil {
		return cfg, fmt.Errorf("error unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}
