// Package unix implements the Unix domain socket transport of the cache
// server, for clients running on the same machine.
//
// Key Components:
//
//   - clientConnector: dials a socket path
//
//   - serverConnector: listens on a socket path. A stale socket file left by a
//     previous run is removed first, any other file at that path is an error.
//
// The default buffer size is 64 KB per connection.
package unix
