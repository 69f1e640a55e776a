// Package cmd implements the command-line interface of cKV. It provides a
// command tree for running the cache server and talking to it as a client.
//
// The package is organized into several subpackages:
//
//   - serve: starts and configures the cache server
//   - kv: client commands (ping, set, get, ...) and a load generator (perf)
//   - util: shared flag, config and transport helpers (internal use)
//
// Configuration is read from flags, CKV_<FLAG> environment variables (also from
// .env and .env.local) and an optional YAML file passed with --config.
//
// See ckv -help for a list of all commands.
package cmd
