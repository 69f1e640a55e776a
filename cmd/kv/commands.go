package kv

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ValentinKolb/cKV/cmd/util"
	"github.com/spf13/cobra"
)

var (
	pingCmd = &cobra.Command{
		Use:   "ping",
		Short: "Checks that the server answers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rpcClient.Ping(); err != nil {
				return err
			}
			fmt.Println("PONG")
			return nil
		},
	}
	echoCmd = &cobra.Command{
		Use:   "echo [message...]",
		Short: "Sends a message that the server returns unchanged",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			msg, err := rpcClient.Echo(strings.Join(args, " "))
			if err != nil {
				return err
			}
			fmt.Println(msg)
			return nil
		},
	}
	setCmd = &cobra.Command{
		Use:   "set [key] [value...]",
		Short: "Sets the value for a key",
		Long:  "Sets the value for a key. Multiple value words are joined with spaces. Use --ttl to let the key expire.",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var ttl *int64
			if cmd.Flags().Changed("ttl") {
				seconds, _ := cmd.Flags().GetInt64("ttl")
				ttl = &seconds
			}
			if err := rpcClient.Set(args[0], strings.Join(args[1:], " "), ttl); err != nil {
				return err
			}
			fmt.Println("OK")
			return nil
		},
	}
	getCmd = &cobra.Command{
		Use:   "get [key]",
		Short: "Reads the value for a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, ok, err := rpcClient.Get(args[0])
			if err != nil {
				return err
			}
			if !ok {
				fmt.Println("(nil)")
				return nil
			}
			fmt.Println(value)
			return nil
		},
	}
	delCmd = &cobra.Command{
		Use:   "del [key]",
		Short: "Deletes a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ok, err := rpcClient.Del(args[0])
			if err != nil {
				return err
			}
			fmt.Println(boolInt(ok))
			return nil
		},
	}
	existsCmd = &cobra.Command{
		Use:   "exists [key]",
		Short: "Checks if a key exists",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ok, err := rpcClient.Exists(args[0])
			if err != nil {
				return err
			}
			fmt.Println(boolInt(ok))
			return nil
		},
	}
	ttlCmd = &cobra.Command{
		Use:   "ttl [key]",
		Short: "Prints the remaining lifetime of a key in seconds (-1 = no expiry, -2 = missing)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ttl, err := rpcClient.TTL(args[0])
			if err != nil {
				return err
			}
			fmt.Println(ttl)
			return nil
		},
	}
	keysCmd = &cobra.Command{
		Use:   "keys [pattern]",
		Short: "Lists the keys matching a glob pattern (default *)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pattern := "*"
			if len(args) == 1 {
				pattern = args[0]
			}
			keys, err := rpcClient.Keys(pattern)
			if err != nil {
				return err
			}
			for _, k := range keys {
				fmt.Println(k)
			}
			return nil
		},
	}
	expireCmd = &cobra.Command{
		Use:   "expire [key] [seconds]",
		Short: "Sets the lifetime of a key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			seconds, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("seconds must be a number: %w", err)
			}
			ok, err := rpcClient.Expire(args[0], seconds)
			if err != nil {
				return err
			}
			fmt.Println(boolInt(ok))
			return nil
		},
	}
	clearCmd = &cobra.Command{
		Use:   "clear",
		Short: "Removes all keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rpcClient.Clear(); err != nil {
				return err
			}
			fmt.Println("OK")
			return nil
		},
	}
	infoCmd = &cobra.Command{
		Use:   "info",
		Short: "Prints server statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info, err := rpcClient.Info()
			if err != nil {
				return err
			}
			fmt.Print(strings.ReplaceAll(info, "\r\n", "\n"))
			return nil
		},
	}
	rawCmd = &cobra.Command{
		Use:   "raw [command] [args...]",
		Short: "Sends a raw command and prints the reply",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := rpcClient.Do(args...)
			if err != nil {
				return err
			}
			fmt.Println(v)
			return nil
		},
	}
)

func init() {
	setCmd.Flags().Int64("ttl", 0, util.WrapString("Lifetime of the key in seconds (a value <= 0 expires the key immediately)"))
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
