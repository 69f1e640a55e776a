// Package tcp implements the TCP socket transport of the cache server. It
// provides the TCP specific connectors for the base package, the request
// handling itself (framing, pipelining, protocol errors) lives there.
//
// Key Components:
//
//   - clientConnector: dials TCP endpoints (host:port)
//
//   - serverConnector: listens on a TCP endpoint and disables Nagle's
//     algorithm on accepted connections
//
// The default server buffer size is 512 KB per connection. Use
// NewTCPServerTransport to choose another size.
package tcp
