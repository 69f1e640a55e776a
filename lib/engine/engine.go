package engine

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ValentinKolb/cKV/lib/aof"
	"github.com/ValentinKolb/cKV/lib/db"
	"github.com/ValentinKolb/cKV/lib/db/util"
	"github.com/ValentinKolb/cKV/lib/resp"
	"github.com/VictoriaMetrics/metrics"
	"github.com/benbjohnson/clock"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
)

// Logger is the logger of the command engine
var Logger = logger.GetLogger("engine")

// Error replies
const (
	ErrInvalidCommand = "ERR invalid command"
	errProtocolPrefix = "ERR protocol error: "
)

// defaultInfoTTL is how long a rendered INFO reply is reused
const defaultInfoTTL = time.Second

// --------------------------------------------------------------------------
// Metrics
// --------------------------------------------------------------------------

var (
	commandsTotal   [numKinds]*metrics.Counter
	commandDuration [numKinds]*metrics.Histogram
	invalidTotal    = metrics.NewCounter(`ckv_commands_invalid_total`)
	protocolErrors  = metrics.NewCounter(`ckv_protocol_errors_total`)
)

func init() {
	for k := KindPing; k < numKinds; k++ {
		commandsTotal[k] = metrics.NewCounter(fmt.Sprintf(`ckv_commands_total{cmd=%q}`, k))
		commandDuration[k] = metrics.NewHistogram(fmt.Sprintf(`ckv_command_duration_seconds{cmd=%q}`, k))
	}
}

// --------------------------------------------------------------------------
// Engine
// --------------------------------------------------------------------------

// Options configures an Engine
type Options struct {
	Clock   clock.Clock        // Time source for uptime and INFO caching (nil = wall clock)
	Restore aof.RestoreOptions // Limits used by RestoreFromPersistence
	InfoTTL time.Duration      // How long an INFO reply is cached (0 = 1s)
}

// Engine executes commands against a store and logs the mutating ones.
//
// Mutations and their log appends run under one FIFO lock, so the log holds
// the mutations in the order they were applied. Reads only take the store lock.
//
// Thread-safety: all methods are safe for concurrent use. RestoreFromPersistence
// must complete before live traffic is admitted.
type Engine struct {
	db          db.KVDB
	clock       clock.Clock
	startedAt   time.Time
	restoreOpts aof.RestoreOptions

	mutations util.FIFOMutex
	persister atomic.Pointer[aof.Persister]
	restoring atomic.Bool
	processed *xsync.Counter

	infoTTL  time.Duration
	infoMu   sync.Mutex
	infoAt   time.Time
	infoText string
}

// New creates an engine on top of database
func New(database db.KVDB, opts *Options) *Engine {
	if opts == nil {
		opts = &Options{}
	}
	c := opts.Clock
	if c == nil {
		c = clock.New()
	}
	infoTTL := opts.InfoTTL
	if infoTTL <= 0 {
		infoTTL = defaultInfoTTL
	}

	return &Engine{
		db:          database,
		clock:       c,
		startedAt:   c.Now(),
		restoreOpts: opts.Restore,
		processed:   xsync.NewCounter(),
		infoTTL:     infoTTL,
	}
}

// DB returns the underlying store
func (e *Engine) DB() db.KVDB { return e.db }

// Processed returns the number of commands executed so far
func (e *Engine) Processed() int64 { return e.processed.Value() }

// --------------------------------------------------------------------------
// Request Handling
// --------------------------------------------------------------------------

// Handle decodes one request, executes it and returns the encoded reply.
// Malformed input yields a protocol error reply, an invalid command the
// invalid command reply.
func (e *Engine) Handle(request []byte) []byte {
	v, _, err := resp.DecodePrefix(request)
	if err != nil {
		return ProtocolError(err)
	}
	return e.HandleValue(v)
}

// HandleValue executes an already decoded request
func (e *Engine) HandleValue(v resp.Value) []byte {
	cmd, ok := Parse(v)
	if !ok {
		invalidTotal.Inc()
		return resp.EncodeError(ErrInvalidCommand)
	}
	return e.Execute(cmd)
}

// ProtocolError encodes the reply for undecodable input
func ProtocolError(err error) []byte {
	protocolErrors.Inc()
	return resp.EncodeError(errProtocolPrefix + err.Error())
}

// Execute runs cmd and returns the encoded reply
func (e *Engine) Execute(cmd *Command) []byte {
	return resp.Encode(e.execute(cmd))
}

func (e *Engine) execute(cmd *Command) resp.Value {
	start := time.Now()
	defer func() {
		e.processed.Inc()
		if cmd.Kind > KindUnknown && cmd.Kind < numKinds {
			commandsTotal[cmd.Kind].Inc()
			commandDuration[cmd.Kind].UpdateDuration(start)
		}
	}()

	switch cmd.Kind {
	case KindPing:
		return resp.SimpleString("PONG")
	case KindEcho:
		return resp.Bulk(cmd.Value)
	case KindInfo:
		return resp.Bulk(e.info())

	case KindGet:
		value, ok := e.db.Get(cmd.Key)
		if !ok {
			return resp.Null()
		}
		return resp.Bulk(value)
	case KindExists:
		return resp.Bool(e.db.Exists(cmd.Key))
	case KindTTL:
		return resp.Integer(e.db.TTL(cmd.Key))
	case KindKeys:
		return resp.BulkArray(e.db.Keys(cmd.Pattern))

	case KindSet:
		e.mutate(cmd, func() bool {
			e.db.Set(cmd.Key, cmd.Value, cmd.TTL)
			return true
		})
		return resp.SimpleString("OK")
	case KindDel:
		return resp.Bool(e.mutate(cmd, func() bool {
			return e.db.Delete(cmd.Key)
		}))
	case KindExpire:
		return resp.Bool(e.mutate(cmd, func() bool {
			return e.db.Expire(cmd.Key, cmd.Seconds)
		}))
	case KindClear:
		e.mutate(cmd, func() bool {
			e.db.Clear()
			return true
		})
		return resp.SimpleString("OK")

	default:
		// Parse never produces other kinds
		panic(fmt.Sprintf("engine: unexpected command kind %d", cmd.Kind))
	}
}

// mutate applies a mutation and, if it took effect, logs the command
func (e *Engine) mutate(cmd *Command, apply func() bool) bool {
	e.mutations.Lock()
	defer e.mutations.Unlock()

	if !apply() {
		return false
	}
	if p := e.persister.Load(); p != nil && !e.restoring.Load() {
		p.LogCommand(cmd.Args)
	}
	return true
}

// --------------------------------------------------------------------------
// Persistence
// --------------------------------------------------------------------------

// EnablePersistence starts logging mutations to path. On failure the engine
// keeps serving without durability and the cause is returned.
func (e *Engine) EnablePersistence(path string) error {
	p, err := aof.NewPersister(path)
	if err != nil {
		Logger.Errorf("persistence disabled: %v", err)
		return err
	}

	e.mutations.Lock()
	old := e.persister.Swap(p)
	e.mutations.Unlock()

	if old != nil {
		if err := old.Close(); err != nil {
			Logger.Warningf("closing previous log %s: %v", old.Path(), err)
		}
	}
	Logger.Infof("persistence enabled (%s)", path)
	return nil
}

// RotatePersistence moves the log at path aside and starts a new log there
// that holds the current store content. Appending behind a record the replay
// cannot apply would hide every later record from the next replay. It returns
// the path the old log was moved to.
func (e *Engine) RotatePersistence(path string) (string, error) {
	aside := fmt.Sprintf("%s.%s.broken", path, e.clock.Now().UTC().Format("20060102T150405"))
	if err := os.Rename(path, aside); err != nil {
		return "", fmt.Errorf("move log aside: %w", err)
	}
	if err := e.EnablePersistence(path); err != nil {
		return aside, err
	}

	e.mutations.Lock()
	defer e.mutations.Unlock()

	p := e.persister.Load()
	keys := e.db.Keys("*")
	for _, key := range keys {
		value, ok := e.db.Get(key)
		if !ok {
			continue
		}
		args := []string{"SET", key, value}
		if ttl := e.db.TTL(key); ttl > 0 {
			args = append(args, "EX", strconv.FormatInt(ttl, 10))
		}
		p.LogCommand(args)
	}
	Logger.Infof("rewrote %d keys to %s", len(keys), path)
	return aside, p.Flush()
}

// RestoreFromPersistence replays the log at path into the store with logging
// suppressed. It reports false if the log cannot be read or a record fails.
func (e *Engine) RestoreFromPersistence(path string) bool {
	_, err := e.Restore(path)
	return err == nil
}

// Restore is RestoreFromPersistence with the replay details
func (e *Engine) Restore(path string) (aof.RestoreResult, error) {
	e.SetRestorationMode(true)
	defer e.SetRestorationMode(false)

	start := e.clock.Now()
	res, err := aof.Restore(path, e.replay, e.restoreOpts)
	if err != nil {
		Logger.Errorf("restore from %s failed after %d records: %v", path, res.Applied, err)
		return res, err
	}
	Logger.Infof("restored %d records from %s in %s (%d keys)",
		res.Applied, path, e.clock.Since(start), e.db.Len())
	return res, nil
}

// replay executes one logged record
func (e *Engine) replay(record resp.Value) error {
	cmd, ok := Parse(record)
	if !ok {
		return errors.New(ErrInvalidCommand)
	}
	e.execute(cmd)
	return nil
}

// FlushPersistence forces all logged commands to stable storage. It is a
// no-op without persistence.
func (e *Engine) FlushPersistence() error {
	if p := e.persister.Load(); p != nil {
		return p.Flush()
	}
	return nil
}

// PersistenceError returns the last failure of the log writer (nil if none or
// persistence is disabled)
func (e *Engine) PersistenceError() error {
	if p := e.persister.Load(); p != nil {
		return p.LastError()
	}
	return nil
}

// SetRestorationMode suppresses (true) or resumes (false) logging of mutations
func (e *Engine) SetRestorationMode(on bool) {
	e.restoring.Store(on)
}

// Close flushes and closes the log and closes the store
func (e *Engine) Close() error {
	var errs []error
	e.mutations.Lock()
	p := e.persister.Swap(nil)
	e.mutations.Unlock()

	if p != nil {
		errs = append(errs, p.Close())
	}
	errs = append(errs, e.db.Close())
	return errors.Join(errs...)
}

// --------------------------------------------------------------------------
// INFO
// --------------------------------------------------------------------------

// info renders the INFO text, reusing the last rendering for infoTTL
func (e *Engine) info() string {
	e.infoMu.Lock()
	defer e.infoMu.Unlock()

	now := e.clock.Now()
	if e.infoText != "" && now.Sub(e.infoAt) < e.infoTTL {
		return e.infoText
	}

	dbInfo := e.db.GetInfo()
	var b strings.Builder
	line := func(key string, value any) {
		fmt.Fprintf(&b, "%s:%v\r\n", key, value)
	}

	b.WriteString("# Server\r\n")
	line("uptime_seconds", int64(now.Sub(e.startedAt).Seconds()))
	line("commands_processed", e.processed.Value())

	b.WriteString("# Keyspace\r\n")
	line("db_type", dbInfo.DbType)
	line("keys", dbInfo.Keys)
	line("expiring_keys", dbInfo.ExpiringKeys)
	line("expired_backlog", dbInfo.ExpiredBacklog)
	line("size_bytes", dbInfo.SizeBytes)

	b.WriteString("# Persistence\r\n")
	p := e.persister.Load()
	if p == nil {
		line("aof_enabled", 0)
	} else {
		line("aof_enabled", 1)
		line("aof_path", p.Path())
		if err := p.LastError(); err != nil {
			line("aof_last_error", err)
		}
	}

	e.infoAt = now
	e.infoText = b.String()
	return e.infoText
}
