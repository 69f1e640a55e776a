package aof

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/ValentinKolb/cKV/lib/resp"
	"github.com/VictoriaMetrics/metrics"
	"github.com/lni/dragonboat/v4/logger"
)

// Logger is the logger of the persistence layer
var Logger = logger.GetLogger("aof")

var writeErrors = metrics.NewCounter("ckv_aof_write_errors_total")

// writeBufferSize is the size of the in-memory append buffer
const writeBufferSize = 64 * 1024

// --------------------------------------------------------------------------
// Errors
// --------------------------------------------------------------------------

// SetupError is returned when the log file cannot be made writable
type SetupError struct {
	Path string
	Err  error
}

func (e *SetupError) Error() string {
	return fmt.Sprintf("aof: cannot open log %q: %v", e.Path, e.Err)
}

func (e *SetupError) Unwrap() error { return e.Err }

// --------------------------------------------------------------------------
// Persister
// --------------------------------------------------------------------------

// Persister appends mutating commands to a log file. Each record is the
// argument list encoded as a wire array of bulk strings.
//
// Write failures are logged and retained (see LastError), they never reach
// the caller of LogCommand.
//
// Thread-safety: all methods are safe for concurrent use. Records appear in
// the file in the order LogCommand was called.
type Persister struct {
	mu      sync.Mutex
	path    string
	file    *os.File
	w       *bufio.Writer
	closed  bool
	lastErr error
}

// NewPersister opens (or creates) the log at path for appending. Missing
// parent directories are created. Existing content is never truncated.
func NewPersister(path string) (*Persister, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, &SetupError{Path: path, Err: err}
		}
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, &SetupError{Path: path, Err: err}
	}

	Logger.Infof("appending to %s", path)
	return &Persister{
		path: path,
		file: f,
		w:    bufio.NewWriterSize(f, writeBufferSize),
	}, nil
}

// Path returns the path of the log file
func (p *Persister) Path() string { return p.path }

// LogCommand appends one record. It is a no-op after Close or for an empty
// argument list.
func (p *Persister) LogCommand(args []string) {
	if len(args) == 0 {
		return
	}
	record := resp.Encode(resp.BulkArray(args))

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	if _, err := p.w.Write(record); err != nil {
		p.fail("write", err)
	}
}

// Flush writes all buffered records and syncs the file to stable storage.
// It is a no-op after Close.
func (p *Persister) Flush() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	return p.flushLocked()
}

// Close marks the persister closed, then flushes and closes the file.
// Further calls return nil.
func (p *Persister) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true

	err := p.flushLocked()
	if cerr := p.file.Close(); cerr != nil && err == nil {
		p.fail("close", cerr)
		err = fmt.Errorf("aof: close: %w", cerr)
	}
	return err
}

// LastError returns the most recent write, flush or sync failure (nil if none)
func (p *Persister) LastError() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastErr
}

func (p *Persister) flushLocked() error {
	if err := p.w.Flush(); err != nil {
		p.fail("flush", err)
		return fmt.Errorf("aof: flush: %w", err)
	}
	if err := p.file.Sync(); err != nil {
		p.fail("sync", err)
		return fmt.Errorf("aof: sync: %w", err)
	}
	return nil
}

func (p *Persister) fail(op string, err error) {
	p.lastErr = fmt.Errorf("aof: %s: %w", op, err)
	writeErrors.Inc()
	Logger.Errorf("%s %s failed: %v", op, p.path, err)
}
