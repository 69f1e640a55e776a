// Package rpc contains the network side of the cache: everything between a
// socket and the command engine.
//
// The package is organized into several subpackages:
//
//   - common: configuration structures of server and client, YAML config
//     files and the zerolog backed logger factory.
//
//   - transport: connection handling with pluggable socket families (TCP,
//     Unix sockets). Requests and replies are RESP values.
//
//   - client: client for one or more servers, with key based routing.
//
//   - server: process lifecycle of the server (restore, serve, metrics,
//     graceful shutdown).
package rpc
