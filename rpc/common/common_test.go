package common

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/lni/dragonboat/v4/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTransport(t *testing.T) {
	tr, err := ParseTransport("TCP")
	require.NoError(t, err)
	assert.Equal(t, TransportTCP, tr)

	tr, err = ParseTransport("unix")
	require.NoError(t, err)
	assert.Equal(t, TransportUnix, tr)

	_, err = ParseTransport("http")
	assert.Error(t, err)
}

func TestParseLogLevel(t *testing.T) {
	for in, want := range map[string]logger.LogLevel{
		"debug":   logger.DEBUG,
		"INFO":    logger.INFO,
		"warn":    logger.WARNING,
		"warning": logger.WARNING,
		"error":   logger.ERROR,
	} {
		got, err := ParseLogLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLogLevel("loud")
	assert.Error(t, err)

	_, err = ParseLogFormat("xml")
	assert.Error(t, err)
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ckv.yaml")
	require.NoError(t, os.WriteFile(path, []byte("endpoint: 0.0.0.0:7000\npersistence: true\ntimeout: 9\n"), 0o644))

	values, err := LoadConfigFile(path, []string{"endpoint", "persistence", "timeout"})
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:7000", values["endpoint"])
	assert.Equal(t, true, values["persistence"])
	assert.Equal(t, 9, values["timeout"])
}

func TestLoadConfigFileRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ckv.yaml")
	require.NoError(t, os.WriteFile(path, []byte("endpoint: x\nshards: 3\n"), 0o644))

	_, err := LoadConfigFile(path, []string{"endpoint"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"shards"`)

	require.NoError(t, os.WriteFile(path, []byte("endpoint:\n  host: x\n"), 0o644))
	_, err = LoadConfigFile(path, []string{"endpoint"})
	assert.Error(t, err)

	_, err = LoadConfigFile(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	assert.Error(t, err)
}

func TestServerConfigString(t *testing.T) {
	c := ServerConfig{
		Transport:       TransportTCP,
		Endpoint:        "0.0.0.0:6380",
		TimeoutSecond:   5,
		Persistence:     true,
		AOFPath:         "/tmp/cache.aof",
		MetricsEndpoint: "",
		LogLevel:        "info",
		LogFormat:       "console",
	}
	s := c.String()
	assert.Contains(t, s, "CACHE SERVER")
	assert.Contains(t, s, "/tmp/cache.aof")
	assert.Contains(t, s, "disabled")
}
