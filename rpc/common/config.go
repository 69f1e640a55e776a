package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// --------------------------------------------------------------------------
// Transport type
// --------------------------------------------------------------------------

// TransportType selects the socket family of the server and client
type TransportType string

const (
	TransportTCP  TransportType = "tcp"
	TransportUnix TransportType = "unix"
)

// ParseTransport validates a transport name
func ParseTransport(s string) (TransportType, error) {
	switch t := TransportType(strings.ToLower(s)); t {
	case TransportTCP, TransportUnix:
		return t, nil
	default:
		return "", fmt.Errorf("unknown transport %q (must be one of tcp, unix)", s)
	}
}

// --------------------------------------------------------------------------
// Server configuration struct
// --------------------------------------------------------------------------

// ServerConfig holds all configuration parameters of a cache server
type ServerConfig struct {
	// Transport settings
	Transport     TransportType
	Endpoint      string
	TimeoutSecond int64

	// Persistence settings
	Persistence         bool
	AOFPath             string
	ReplayBufferLimit   int
	FlushIntervalSecond int64 // 0 flushes only on shutdown

	// Metrics endpoint (empty disables it)
	MetricsEndpoint string

	// Logging configuration
	LogLevel  string
	LogFormat string
}

// String returns a formatted string representation of the configuration
func (c *ServerConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	// Server settings
	addSection("Cache Server")
	addField("Transport", string(c.Transport))
	addField("Endpoint", c.Endpoint)
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))

	// Persistence
	addSection("Persistence")
	addField("Enabled", strconv.FormatBool(c.Persistence))
	if c.Persistence {
		addField("AOF Path", c.AOFPath)
		addField("Replay Buffer Limit", fmt.Sprintf("%d bytes", c.ReplayBufferLimit))
		addField("Flush Interval", fmt.Sprintf("%d sec", c.FlushIntervalSecond))
	}

	// Metrics
	addSection("Metrics")
	if c.MetricsEndpoint == "" {
		addField("Endpoint", "disabled")
	} else {
		addField("Endpoint", c.MetricsEndpoint)
	}

	// Logging configuration
	addSection("Logging")
	addField("Log Level", c.LogLevel)
	addField("Log Format", c.LogFormat)

	return sb.String()
}

// --------------------------------------------------------------------------
// Client configuration struct
// --------------------------------------------------------------------------

// ClientConfig holds the configuration of a cache client
type ClientConfig struct {
	Transport              TransportType
	Endpoints              []string
	ConnectionsPerEndpoint int
	TimeoutSecond          int
	RetryCount             int
}

// String returns a formatted string representation of the client configuration
func (c *ClientConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	// General Client Settings
	addSection("Client Configuration")
	addField("Transport", string(c.Transport))
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	addField("Retry Count", strconv.Itoa(c.RetryCount))
	addField("Conns per Endpoint", strconv.Itoa(c.ConnectionsPerEndpoint))

	// Endpoints
	addSection("Endpoints")
	for i, endpoint := range c.Endpoints {
		addField(strconv.Itoa(i), endpoint)
	}

	return sb.String()
}

// --------------------------------------------------------------------------
// Config file
// --------------------------------------------------------------------------

// LoadConfigFile reads a flat YAML document of option names to values, e.g.
//
//	endpoint: 0.0.0.0:6380
//	persistence: true
//	aof-path: /var/lib/ckv/cache.aof
//
// Keys that are not in allowed are rejected. The values are returned as
// decoded by yaml (string, int, bool, ...).
func LoadConfigFile(path string, allowed []string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	values := map[string]any{}
	if err := yaml.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}

	known := make(map[string]struct{}, len(allowed))
	for _, key := range allowed {
		known[key] = struct{}{}
	}
	for key, value := range values {
		if _, ok := known[key]; !ok {
			return nil, fmt.Errorf("config file %s: unknown option %q", path, key)
		}
		if _, nested := value.(map[string]any); nested {
			return nil, fmt.Errorf("config file %s: option %q must be a scalar", path, key)
		}
	}
	return values, nil
}
