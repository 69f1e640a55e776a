// Package server implements the cache server process. It wires the command
// engine (package engine) on top of a maple store to a transport and owns the
// lifecycle of the process.
//
// Startup:
//
//  1. Loggers are configured from the ServerConfig (level, console or JSON).
//  2. With persistence enabled, the append-only log is replayed into the store
//     before any connection is accepted. Logging is suppressed while replaying.
//  3. Persistence is enabled on the same file. If that fails the server keeps
//     running without durability and logs the cause.
//  4. The transport starts listening. Optionally a Prometheus compatible
//     metrics endpoint is served at http://<metrics-endpoint>/metrics.
//
// Background work: the log is flushed every FlushIntervalSecond (optional).
// Expired keys are only removed when they are accessed or listed.
//
// Shutdown: on SIGINT, SIGTERM or when the context passed to Serve is done, the
// listener and all connections are closed, then the log is flushed and closed.
// Every mutation acknowledged before shutdown is on disk when Serve returns.
//
// Usage Example:
//
//	config := common.ServerConfig{
//	  Transport:     common.TransportTCP,
//	  Endpoint:      "0.0.0.0:6380",
//	  TimeoutSecond: 300,
//	  Persistence:   true,
//	  AOFPath:       "./data/ckv.aof",
//	  LogLevel:      "info",
//	  LogFormat:     "console",
//	}
//
//	s := server.NewRPCServer(config, tcp.NewTCPDefaultServerTransport())
//	if err := s.Serve(context.Background()); err != nil {
//	  log.Fatalf("Server error: %v", err)
//	}
package server
