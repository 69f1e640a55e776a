package util

import (
	"fmt"
	"strings"

	"github.com/ValentinKolb/cKV/rpc/common"
	"github.com/ValentinKolb/cKV/rpc/transport"
	"github.com/ValentinKolb/cKV/rpc/transport/tcp"
	"github.com/ValentinKolb/cKV/rpc/transport/unix"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50

	// EnvPrefix is the prefix of all environment variables (CKV_<flag>)
	EnvPrefix = "ckv"
)

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		wordWidth := len(word)

		// Check if we need to wrap
		if lineWidth > 0 && lineWidth+1+wordWidth > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}

		// Add space before word (if not first word on line)
		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}

		// Add the word
		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	// Add any remaining text
	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// InitConfig loads .env files and makes viper read CKV_ environment variables
func InitConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}

// LoadConfigFile applies the YAML file named by the "config" flag (if any) as
// viper defaults, so env variables and explicit flags still win. Only the
// flags of cmd are accepted as keys.
func LoadConfigFile(cmd *cobra.Command) error {
	path := viper.GetString("config")
	if path == "" {
		return nil
	}

	var allowed []string
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if f.Name != "config" {
			allowed = append(allowed, f.Name)
		}
	})

	values, err := common.LoadConfigFile(path, allowed)
	if err != nil {
		return err
	}
	// viper prefers defaults over the defaults of unchanged flags
	for key, value := range values {
		viper.SetDefault(key, value)
	}
	return nil
}

// SetupRPCClientFlags adds common RPC connection flags to a command
func SetupRPCClientFlags(cmd *cobra.Command) {
	key := "timeout"
	cmd.PersistentFlags().Int(key, 10, WrapString("The timeout in seconds of the client"))

	key = "endpoints"
	cmd.PersistentFlags().String(key, "localhost:6380", WrapString("The address of the cKV server (host:port or socket path). Multiple endpoints can be specified as a comma-separated list, keys are then spread over the servers"))

	key = "conn-per-endpoint"
	cmd.PersistentFlags().Int(key, 1, WrapString("Simultaneous connections per endpoint"))

	key = "retries"
	cmd.PersistentFlags().Int(key, 3, WrapString("How many times to try a request before giving up"))

	key = "transport"
	cmd.PersistentFlags().String(key, "tcp", WrapString("transport to use (tcp, unix)"))
}

// GetClientConfig reads client configuration from viper
func GetClientConfig() (*common.ClientConfig, error) {
	t, err := common.ParseTransport(viper.GetString("transport"))
	if err != nil {
		return nil, err
	}

	var endpoints []string
	for _, ep := range strings.Split(viper.GetString("endpoints"), ",") {
		if ep = strings.TrimSpace(ep); ep != "" {
			endpoints = append(endpoints, ep)
		}
	}

	return &common.ClientConfig{
		Transport:              t,
		Endpoints:              endpoints,
		ConnectionsPerEndpoint: viper.GetInt("conn-per-endpoint"),
		TimeoutSecond:          viper.GetInt("timeout"),
		RetryCount:             viper.GetInt("retries"),
	}, nil
}

// ClientTransportFactory returns the constructor of the client transport
func ClientTransportFactory(t common.TransportType) (func() transport.IRPCClientTransport, error) {
	switch t {
	case common.TransportTCP:
		return tcp.NewTCPClientTransport, nil
	case common.TransportUnix:
		return unix.NewUnixClientTransport, nil
	default:
		return nil, fmt.Errorf("invalid transport %s", t)
	}
}

// ServerTransport creates the server transport
func ServerTransport(t common.TransportType) (transport.IRPCServerTransport, error) {
	switch t {
	case common.TransportTCP:
		return tcp.NewTCPDefaultServerTransport(), nil
	case common.TransportUnix:
		return unix.NewUnixDefaultServerTransport(), nil
	default:
		return nil, fmt.Errorf("invalid transport %s", t)
	}
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}
