// Package transport defines the interfaces of the network layer of the cache.
// Requests and replies are single wire values (see package resp), a connection
// carries any number of them and replies are written in request order.
//
// Key Components:
//
//   - IRPCServerTransport: accepts connections and hands every decoded request
//     to a ServerHandleFunc. Undecodable input is answered through a
//     ProtocolErrorFunc and the connection stays open.
//
//   - IRPCClientTransport: sends one request and waits for its reply.
//
// Implementations: package tcp (TCP sockets) and package unix (Unix domain
// sockets), both built on package base.
package transport
