package base

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ValentinKolb/cKV/lib/resp"
	"github.com/ValentinKolb/cKV/rpc/common"
	"github.com/ValentinKolb/cKV/rpc/transport"
	"github.com/VictoriaMetrics/metrics"
	"github.com/puzpuzpuz/xsync/v3"
)

// -----------------------------------------------------------
// Interface Definitions for dependency injection
// -----------------------------------------------------------

// IServerConnector defines the interface for transport-specific server operations
type IServerConnector interface {
	// Listen creates a listener and returns it
	Listen(config common.ServerConfig) (net.Listener, error)

	// GetName returns the name of the transport type (e.g., "unix", "tcp")
	GetName() string
}

var (
	connectionsTotal = metrics.NewCounter(`ckv_connections_total`)
	requestsTotal    = metrics.NewCounter(`ckv_requests_total`)
)

// -----------------------------------------------------------
// Helper Types
// -----------------------------------------------------------

// serverTransport implements the core server transport functionality
type serverTransport struct {
	connector  IServerConnector
	handler    transport.ServerHandleFunc
	onError    transport.ProtocolErrorFunc
	config     common.ServerConfig
	bufferSize int

	mu       sync.Mutex
	listener net.Listener
	closing  atomic.Bool

	conns  *xsync.MapOf[uint64, net.Conn] // open connections by id
	nextID atomic.Uint64
	wg     sync.WaitGroup
}

// -----------------------------------------------------------
// Transport Factory Method (used for tcp, unix, etc.)
// -----------------------------------------------------------

// NewBaseServerTransport creates a new base server transport. bufferSize is
// the size of the read and write buffer of every connection.
func NewBaseServerTransport(connector IServerConnector, bufferSize int) transport.IRPCServerTransport {
	t := &serverTransport{
		connector:  connector,
		bufferSize: bufferSize,
		conns:      xsync.NewMapOf[uint64, net.Conn](),
	}

	// the gauge is registered once per process
	metrics.GetOrCreateGauge(`ckv_connections_open`, func() float64 {
		return float64(openConnections.Load())
	})
	return t
}

var openConnections atomic.Int64

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IRPCServerTransport)
// --------------------------------------------------------------------------

func (t *serverTransport) RegisterHandler(handler transport.ServerHandleFunc, onProtocolError transport.ProtocolErrorFunc) {
	t.handler = handler
	t.onError = onProtocolError
}

func (t *serverTransport) Listen(config common.ServerConfig) error {
	if t.handler == nil {
		return fmt.Errorf("no handler registered")
	}
	if t.onError == nil {
		t.onError = func(err error) []byte {
			return resp.EncodeError("ERR protocol error: " + err.Error())
		}
	}
	t.config = config

	// Create listener using the connector
	listener, err := t.connector.Listen(config)
	if err != nil {
		return fmt.Errorf("failed to create listener: %w", err)
	}

	t.mu.Lock()
	if t.closing.Load() {
		t.mu.Unlock()
		listener.Close()
		return nil
	}
	t.listener = listener
	t.mu.Unlock()

	Logger.Infof("Starting %s server on %s", t.connector.GetName(), listener.Addr())

	// Accept connections
	for {
		conn, err := listener.Accept()
		if err != nil {
			if t.closing.Load() || errors.Is(err, net.ErrClosed) {
				return nil
			}
			Logger.Errorf("Accept error: %v", err)
			time.Sleep(10 * time.Millisecond)
			continue
		}

		id := t.nextID.Add(1)
		t.conns.Store(id, conn)
		t.wg.Add(1)

		// Handle the connection in a goroutine
		go func() {
			defer t.wg.Done()
			defer t.conns.Delete(id)
			t.handleConnection(id, conn)
		}()
	}
}

func (t *serverTransport) Addr() net.Addr {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.listener == nil {
		return nil
	}
	return t.listener.Addr()
}

func (t *serverTransport) Close() error {
	t.mu.Lock()
	t.closing.Store(true)
	listener := t.listener
	t.mu.Unlock()

	var err error
	if listener != nil {
		err = listener.Close()
	}

	// Closing the connections unblocks their readers
	t.conns.Range(func(id uint64, conn net.Conn) bool {
		conn.Close()
		return true
	})
	t.wg.Wait()

	Logger.Infof("%s server stopped", t.connector.GetName())
	return err
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// handleConnection serves requests of one connection in order until the peer
// disconnects, the idle timeout expires or the transport is closed
func (t *serverTransport) handleConnection(id uint64, conn net.Conn) {
	defer conn.Close()

	connectionsTotal.Inc()
	openConnections.Add(1)
	defer openConnections.Add(-1)

	Logger.Debugf("Connection %d from %s opened", id, conn.RemoteAddr())

	// Timeout in seconds
	timeout := time.Duration(t.config.TimeoutSecond) * time.Second

	reader := resp.NewReader(conn, t.bufferSize)
	writer := bufio.NewWriterSize(conn, t.bufferSize)

	for {
		if timeout > 0 {
			if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
				Logger.Errorf("Failed to set read deadline: %v", err)
				return
			}
		}

		var reply []byte
		req, err := reader.ReadValue()
		switch {
		case err == nil:
			requestsTotal.Inc()
			reply = t.handler(req)

		case errors.Is(err, io.EOF):
			Logger.Debugf("Connection %d closed by client", id)
			return

		case isProtocolError(err):
			// drop what is buffered to resynchronise with the next request
			Logger.Debugf("Protocol error on connection %d: %v", id, err)
			reply = t.onError(err)
			reader.DiscardBuffered()

		default:
			if !t.closing.Load() {
				Logger.Debugf("Connection %d: %v", id, err)
			}
			return
		}

		if timeout > 0 {
			if err := conn.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
				Logger.Errorf("Failed to set write deadline: %v", err)
				return
			}
		}
		if _, err := writer.Write(reply); err != nil {
			Logger.Errorf("Failed to write response: %v", err)
			return
		}

		// pipelined requests share one flush
		if reader.Buffered() == 0 {
			if err := writer.Flush(); err != nil {
				Logger.Errorf("Failed to write response: %v", err)
				return
			}
		}
	}
}

// isProtocolError reports whether err was caused by the bytes the client sent
func isProtocolError(err error) bool {
	var parseErr *resp.ParseError
	var replyErr *resp.ReplyError
	return errors.As(err, &parseErr) || errors.As(err, &replyErr)
}
