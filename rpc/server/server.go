package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/ValentinKolb/cKV/lib/aof"
	"github.com/ValentinKolb/cKV/lib/db/engines/maple"
	"github.com/ValentinKolb/cKV/lib/engine"
	"github.com/ValentinKolb/cKV/rpc/common"
	"github.com/ValentinKolb/cKV/rpc/transport"
	"github.com/VictoriaMetrics/metrics"
	"github.com/lni/dragonboat/v4/logger"
	"golang.org/x/sync/errgroup"
)

var Logger = logger.GetLogger("rpc")

// shutdownTimeout bounds the graceful stop of the metrics endpoint
const shutdownTimeout = 5 * time.Second

// NewRPCServer creates a new cache server
// It takes a config and the transport to serve on as parameters
//
// Usage:
//
//	s := server.NewRPCServer(
//		*config,
//		tcp.NewTCPDefaultServerTransport(),
//	)
//
//	if err := s.Serve(context.Background()); err != nil {
//		panic(err)
//	}
func NewRPCServer(
	config common.ServerConfig,
	transport transport.IRPCServerTransport,
) *RPCServer {
	// https://github.com/golang/go/issues/17393
	if runtime.GOOS == "darwin" {
		signal.Ignore(syscall.Signal(0xd))
	}

	return &RPCServer{
		config:    config,
		transport: transport,
		ready:     make(chan struct{}),
	}
}

// RPCServer wires the engine to a transport and owns the process lifecycle:
// restore, serve, flush on shutdown
type RPCServer struct {
	config    common.ServerConfig
	transport transport.IRPCServerTransport
	engine    *engine.Engine
	metrics   *http.Server
	ready     chan struct{} // closed once the engine accepts traffic
}

// Engine returns the engine of the server (nil before Serve initialized it)
func (s *RPCServer) Engine() *engine.Engine {
	select {
	case <-s.ready:
		return s.engine
	default:
		return nil
	}
}

// Ready is closed once the log has been replayed and the server starts listening
func (s *RPCServer) Ready() <-chan struct{} {
	return s.ready
}

// Addr returns the address of the transport (nil before it listens)
func (s *RPCServer) Addr() net.Addr {
	return s.transport.Addr()
}

// init creates the engine, replays the log and enables persistence
func (s *RPCServer) init() error {
	if err := common.InitLoggers(s.config); err != nil {
		return err
	}

	Logger.Infof("Created cache server")
	Logger.Infof("%s", s.config.String())

	restoreOpts := aof.DefaultRestoreOptions()
	if s.config.ReplayBufferLimit > 0 {
		restoreOpts.MaxBuffer = s.config.ReplayBufferLimit
	}

	s.engine = engine.New(maple.NewMapleDB(nil), &engine.Options{Restore: restoreOpts})

	if s.config.Persistence {
		/*
			Note: the log is replayed before the transport accepts connections,
			live appends and the replay never touch the file at the same time.
			A log the replay cannot finish is moved aside and replaced by a new
			log holding the restored keys. A failed enable leaves the server
			running without durability, the cause is logged.
		*/
		if s.engine.RestoreFromPersistence(s.config.AOFPath) {
			if err := s.engine.EnablePersistence(s.config.AOFPath); err != nil {
				Logger.Errorf("serving without durability: %v", err)
			}
		} else if aside, err := s.engine.RotatePersistence(s.config.AOFPath); err != nil {
			Logger.Errorf("serving without durability: %v", err)
		} else {
			Logger.Warningf("replay of %s failed, the old log was moved to %s", s.config.AOFPath, aside)
		}
	}

	// Configure the transport layer
	s.transport.RegisterHandler(s.engine.HandleValue, engine.ProtocolError)

	Logger.Infof("cKV setup completed successfully")
	return nil
}

// Serve initializes the server and serves requests until ctx is done or the
// process receives SIGINT/SIGTERM. On return the log has been flushed and closed.
func (s *RPCServer) Serve(ctx context.Context) error {
	if err := s.init(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	// Transport
	g.Go(func() error {
		if err := s.transport.Listen(s.config); err != nil {
			return fmt.Errorf("transport: %w", err)
		}
		return nil
	})

	// Metrics endpoint
	if s.config.MetricsEndpoint != "" {
		s.metrics = &http.Server{Addr: s.config.MetricsEndpoint, Handler: metricsHandler()}
		g.Go(func() error {
			Logger.Infof("Serving metrics on http://%s/metrics", s.config.MetricsEndpoint)
			if err := s.metrics.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics endpoint: %w", err)
			}
			return nil
		})
	}

	// Periodic flush of the log
	if s.config.Persistence && s.config.FlushIntervalSecond > 0 {
		g.Go(func() error {
			s.every(gctx, time.Duration(s.config.FlushIntervalSecond)*time.Second, func() {
				if err := s.engine.FlushPersistence(); err != nil {
					Logger.Errorf("periodic flush failed: %v", err)
				}
			})
			return nil
		})
	}

	// Shutdown
	g.Go(func() error {
		<-gctx.Done()
		Logger.Infof("shutting down")
		return s.shutdown()
	})

	close(s.ready)
	err := g.Wait()

	// The engine flushes and closes the log
	if closeErr := s.engine.Close(); closeErr != nil {
		Logger.Errorf("closing engine: %v", closeErr)
		err = errors.Join(err, closeErr)
	}
	Logger.Infof("cKV stopped after %d commands", s.engine.Processed())
	return err
}

// shutdown stops the transport and the metrics endpoint
func (s *RPCServer) shutdown() error {
	var errs []error
	if err := s.transport.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		errs = append(errs, fmt.Errorf("closing transport: %w", err))
	}
	if s.metrics != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.metrics.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("closing metrics endpoint: %w", err))
		}
	}
	return errors.Join(errs...)
}

// every runs fn once per interval until ctx is done
func (s *RPCServer) every(ctx context.Context, interval time.Duration, fn func()) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn()
		}
	}
}

// metricsHandler exposes all metrics in the Prometheus text format
func metricsHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		metrics.WritePrometheus(w, true)
	})
	return mux
}
