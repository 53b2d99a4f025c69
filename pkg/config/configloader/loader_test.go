package configloader

import (
	"errors"
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Server struct {
		Port    int           `koanf:"port"`
		Timeout time.Duration `koanf:"timeout"`
	} `koanf:"server"`
	Log struct {
		Level string `koanf:"level"`
	} `koanf:"log"`
}

func (c *testConfig) Validate() error {
	if c.Server.Port == 0 {
		return errors.New("port is required")
	}
	return nil
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Precedence(t *testing.T) {
	// given
	dir := t.TempDir()
	yamlPath := writeFile(t, dir, "config.yaml", "server:\n  port: 8080\n  timeout: 5s\nlog:\n  level: info\n")
	envPath := writeFile(t, dir, ".env", "TESTSVC_LOG_LEVEL=warn\nOTHER_LOG_LEVEL=error\n")
	t.Setenv("TESTSVC_SERVER_PORT", "9090")

	// when
	cfg, err := Load[*testConfig]("testsvc", WithConfigFile(yamlPath), WithEnvFile(envPath))

	// then
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port, "process env wins over yaml")
	assert.Equal(t, 5*time.Second, cfg.Server.Timeout)
	assert.Equal(t, "warn", cfg.Log.Level, ".env wins over yaml, foreign prefix ignored")
}

func TestLoad_MissingFilesStillValidates(t *testing.T) {
	dir := t.TempDir()

	_, err := Load[*testConfig]("testsvc",
		WithConfigFile(filepath.Join(dir, "absent.yaml")),
		WithEnvFile(filepath.Join(dir, "absent.env")))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "config validation failed")
}

func TestLoad_Flags(t *testing.T) {
	testCases := []struct {
		name            string
		args            []string
		env             string
		expectedPort    int
		expectedLevel   string
		expectedTimeout time.Duration
	}{
		{
			name:            "flag defaults lose to yaml",
			args:            nil,
			expectedPort:    8080,
			expectedLevel:   "info",
			expectedTimeout: 5 * time.Second,
		},
		{
			name:            "environment overrides flag defaults",
			env:             "7070",
			expectedPort:    7070,
			expectedLevel:   "info",
			expectedTimeout: 5 * time.Second,
		},
		{
			name:            "explicit flags win over environment",
			args:            []string{"-server.port=6060", "-log.level=debug"},
			env:             "7070",
			expectedPort:    6060,
			expectedLevel:   "debug",
			expectedTimeout: 5 * time.Second,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			dir := t.TempDir()
			yamlPath := writeFile(t, dir, "config.yaml", "server:\n  port: 8080\nlog:\n  level: info\n")
			if tc.env != "" {
				t.Setenv("TESTSVC_SERVER_PORT", tc.env)
			}
			fs := flag.NewFlagSet("testsvc", flag.ContinueOnError)
			fs.Int("server.port", 1, "port")
			fs.Duration("server.timeout", 5*time.Second, "timeout")
			fs.String("log.level", "warn", "level")
			require.NoError(t, fs.Parse(tc.args))

			// when
			cfg, err := Load[*testConfig]("testsvc",
				WithConfigFile(yamlPath),
				WithEnvFile(filepath.Join(dir, "absent.env")),
				WithFlags(fs))

			// then
			require.NoError(t, err)
			assert.Equal(t, tc.expectedPort, cfg.Server.Port)
			assert.Equal(t, tc.expectedLevel, cfg.Log.Level)
			assert.Equal(t, tc.expectedTimeout, cfg.Server.Timeout)
		})
	}
}
