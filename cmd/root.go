package cmd

import (
	"fmt"
	"os"

	"github.com/ValentinKolb/cKV/cmd/kv"
	"github.com/ValentinKolb/cKV/cmd/serve"
	"github.com/ValentinKolb/cKV/cmd/util"
	"github.com/spf13/cobra"
)

const (
	Version = "0.3.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "ckv",
		Short: "in-memory key-value cache",
		Long: fmt.Sprintf(`cKV (v%s)

An in-memory key-value cache with per-key expiry, speaking a
Redis-compatible wire protocol. Mutations can be written to an
append-only log that is replayed on startup.`, Version),
		SilenceUsage: true,
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of cKV",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("cKV v%s\n", Version)
		},
	}
)

func init() {
	// initialize viper
	cobra.OnInitialize(util.InitConfig)

	// Add Commands
	RootCmd.AddCommand(serve.ServeCmd)
	RootCmd.AddCommand(kv.KeyValueCommands)
	RootCmd.AddCommand(versionCmd)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
