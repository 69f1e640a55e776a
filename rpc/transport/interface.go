package transport

import (
	"net"

	"github.com/ValentinKolb/cKV/lib/resp"
	"github.com/ValentinKolb/cKV/rpc/common"
)

// --------------------------------------------------------------------------
// Server Transport
// --------------------------------------------------------------------------

// ServerHandleFunc is a function type that handles incoming requests
// This function is called by a server transport layer for every decoded request
// and returns the encoded reply
type ServerHandleFunc func(req resp.Value) (reply []byte)

// ProtocolErrorFunc encodes the reply for a request that could not be decoded
type ProtocolErrorFunc func(err error) (reply []byte)

// IRPCServerTransport is the interface for the server transport layer
type IRPCServerTransport interface {
	// RegisterHandler registers the handlers for the transport layer
	// handler is called for every request, onProtocolError for undecodable input
	RegisterHandler(handler ServerHandleFunc, onProtocolError ProtocolErrorFunc)
	// Listen starts the transport layer and serves connections until Close is called
	Listen(config common.ServerConfig) error
	// Addr returns the address the transport listens on (nil before Listen)
	Addr() net.Addr
	// Close stops accepting connections, closes all open connections and
	// waits until their handlers returned
	Close() error
}

// --------------------------------------------------------------------------
// Client Transport
// --------------------------------------------------------------------------

// IRPCClientTransport is the interface for the client transport
type IRPCClientTransport interface {
	// Connect initializes the transport with the given configuration
	Connect(config common.ClientConfig) error
	// Send sends a request to the server and returns the reply.
	// An error reply is returned as *resp.ReplyError
	Send(req resp.Value) (reply resp.Value, err error)
	// Close closes the transport connection
	Close() error
}
