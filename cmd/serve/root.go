package serve

import (
	"context"

	cmdUtil "github.com/ValentinKolb/cKV/cmd/util"
	"github.com/ValentinKolb/cKV/rpc/common"
	"github.com/ValentinKolb/cKV/rpc/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	serveCmdConfig = &common.ServerConfig{}
	ServeCmd       = &cobra.Command{
		Use:     "serve",
		Short:   "Start the cKV server",
		Long:    `Start the cKV server with the specified configuration. The configuration can be set via command line flags, environment variables or a YAML file (--config). The format of the environment variables is CKV_<flag> (e.g. CKV_AOF_PATH=/var/lib/ckv/cache.aof)`,
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	// add flags
	key := "config"
	ServeCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("Path of a YAML file with option values (keys are the flag names). Environment variables and flags take precedence"))

	key = "transport"
	ServeCmd.PersistentFlags().String(key, "tcp", cmdUtil.WrapString("Transport to listen on (tcp, unix)"))

	key = "endpoint"
	ServeCmd.PersistentFlags().String(key, "0.0.0.0:6380", cmdUtil.WrapString("The address on which the server will listen (e.g. 0.0.0.0:6380 or /tmp/ckv.sock)"))

	key = "timeout"
	ServeCmd.PersistentFlags().Int64(key, 300, cmdUtil.WrapString("Idle timeout of a client connection in seconds (0 = never)"))

	key = "persistence"
	ServeCmd.PersistentFlags().Bool(key, false, cmdUtil.WrapString("Log every mutation to an append-only file and replay it on startup"))

	key = "aof-path"
	ServeCmd.PersistentFlags().String(key, "data/ckv.aof", cmdUtil.WrapString("Path of the append-only file"))

	key = "replay-buffer-limit"
	ServeCmd.PersistentFlags().Int(key, 16*1024*1024, cmdUtil.WrapString("Maximum number of bytes buffered while replaying the append-only file"))

	key = "flush-interval"
	ServeCmd.PersistentFlags().Int64(key, 1, cmdUtil.WrapString("Flush the append-only file every n seconds (0 = only on shutdown)"))

	key = "metrics-endpoint"
	ServeCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("Address of the Prometheus metrics endpoint (e.g. localhost:9100, empty = disabled)"))

	key = "log-level"
	ServeCmd.PersistentFlags().String(key, "info", cmdUtil.WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))

	key = "log-format"
	ServeCmd.PersistentFlags().String(key, "console", cmdUtil.WrapString("Format of the log output (console, json)"))
}

// processConfig reads the configuration from the command line flags and environment variables and converts them to the server configuration
func processConfig(cmd *cobra.Command, _ []string) error {
	// bind the flags to viper
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}
	if err := cmdUtil.LoadConfigFile(cmd); err != nil {
		return err
	}

	transport, err := common.ParseTransport(viper.GetString("transport"))
	if err != nil {
		return err
	}

	// read the configuration from the command line flags and environment variables
	serveCmdConfig.Transport = transport
	serveCmdConfig.Endpoint = viper.GetString("endpoint")
	serveCmdConfig.TimeoutSecond = viper.GetInt64("timeout")
	serveCmdConfig.Persistence = viper.GetBool("persistence")
	serveCmdConfig.AOFPath = viper.GetString("aof-path")
	serveCmdConfig.ReplayBufferLimit = viper.GetInt("replay-buffer-limit")
	serveCmdConfig.FlushIntervalSecond = viper.GetInt64("flush-interval")
	serveCmdConfig.MetricsEndpoint = viper.GetString("metrics-endpoint")
	serveCmdConfig.LogLevel = viper.GetString("log-level")
	serveCmdConfig.LogFormat = viper.GetString("log-format")

	// fail before anything is started
	if _, err := common.ParseLogLevel(serveCmdConfig.LogLevel); err != nil {
		return err
	}
	if _, err := common.ParseLogFormat(serveCmdConfig.LogFormat); err != nil {
		return err
	}
	return nil
}

// run starts the cKV server and blocks until it is stopped
func run(cmd *cobra.Command, _ []string) error {
	t, err := cmdUtil.ServerTransport(serveCmdConfig.Transport)
	if err != nil {
		return err
	}

	serv := server.NewRPCServer(*serveCmdConfig, t)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return serv.Serve(ctx)
}
