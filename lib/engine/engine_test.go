package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ValentinKolb/cKV/lib/db/engines/maple"
	"github.com/ValentinKolb/cKV/lib/resp"
	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T) (*Engine, *clock.Mock) {
	t.Helper()
	c := clock.NewMock()
	c.Set(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	e := New(maple.NewMapleDB(&maple.DBOptions{Clock: c}), &Options{Clock: c})
	t.Cleanup(func() { e.Close() })
	return e, c
}

// do sends one command and decodes the reply
func do(t *testing.T, e *Engine, args ...string) resp.Value {
	t.Helper()
	reply := e.Handle(resp.Encode(resp.BulkArray(args)))
	v, err := resp.Decode(string(reply))
	require.NoError(t, err, "reply %q", reply)
	return v
}

// doErr sends one command that must fail and returns the error text
func doErr(t *testing.T, e *Engine, request []byte) string {
	t.Helper()
	_, err := resp.Decode(string(e.Handle(request)))
	var replyErr *resp.ReplyError
	require.ErrorAs(t, err, &replyErr)
	return replyErr.Msg
}

func readLog(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func record(args ...string) string {
	return string(resp.Encode(resp.BulkArray(args)))
}

// --------------------------------------------------------------------------
// Commands
// --------------------------------------------------------------------------

func TestSetGet(t *testing.T) {
	e, _ := newTestEngine(t)

	assert.Equal(t, resp.SimpleString("OK"), do(t, e, "SET", "user:1", "John Doe"))
	assert.Equal(t, resp.Bulk("John Doe"), do(t, e, "GET", "user:1"))

	// value words are joined with single spaces
	do(t, e, "SET", "user:2", "Jane", "Doe")
	assert.Equal(t, resp.Bulk("Jane Doe"), do(t, e, "GET", "user:2"))

	assert.True(t, do(t, e, "GET", "missing").IsNull())
}

func TestSetWithTTL(t *testing.T) {
	e, c := newTestEngine(t)

	assert.Equal(t, resp.SimpleString("OK"), do(t, e, "SET", "session:abc", "temp", "EX", "10"))
	ttl := do(t, e, "TTL", "session:abc")
	assert.Equal(t, resp.TypeInteger, ttl.Type)
	assert.LessOrEqual(t, ttl.Int, int64(10))
	assert.Greater(t, ttl.Int, int64(0))

	c.Add(11 * time.Second)
	assert.True(t, do(t, e, "GET", "session:abc").IsNull())
	assert.Equal(t, resp.Integer(0), do(t, e, "EXISTS", "session:abc"))
}

func TestKeys(t *testing.T) {
	e, _ := newTestEngine(t)

	do(t, e, "SET", "user:1", "v1")
	do(t, e, "SET", "user:2", "v2")
	do(t, e, "SET", "admin:1", "v3")

	assert.Equal(t, resp.BulkArray([]string{"admin:1", "user:1", "user:2"}), do(t, e, "KEYS", "*"))
	assert.Equal(t, resp.BulkArray([]string{"admin:1", "user:1", "user:2"}), do(t, e, "KEYS"))
	assert.Equal(t, resp.BulkArray([]string{"user:1", "user:2"}), do(t, e, "KEYS", "user:*"))
	assert.Equal(t, resp.BulkArray([]string{}), do(t, e, "KEYS", "none:*"))
}

func TestDel(t *testing.T) {
	e, _ := newTestEngine(t)

	assert.Equal(t, resp.Integer(0), do(t, e, "DEL", "neverSet"))
	do(t, e, "SET", "user:1", "v")
	assert.Equal(t, resp.Integer(1), do(t, e, "DEL", "user:1"))
	assert.True(t, do(t, e, "GET", "user:1").IsNull())
}

func TestExpireAndTTLSentinels(t *testing.T) {
	e, c := newTestEngine(t)

	assert.Equal(t, resp.Integer(0), do(t, e, "EXPIRE", "missing", "10"))
	assert.Equal(t, resp.Integer(0), do(t, e, "EXISTS", "missing"))

	do(t, e, "SET", "plain", "v")
	assert.Equal(t, resp.Integer(-1), do(t, e, "TTL", "plain"))
	assert.Equal(t, resp.Integer(-2), do(t, e, "TTL", "missing"))

	assert.Equal(t, resp.Integer(1), do(t, e, "EXPIRE", "plain", "5"))
	assert.Equal(t, resp.Integer(5), do(t, e, "TTL", "plain"))
	c.Add(5 * time.Second)
	assert.Equal(t, resp.Integer(-2), do(t, e, "TTL", "plain"))
}

func TestPingEchoClear(t *testing.T) {
	e, _ := newTestEngine(t)

	assert.Equal(t, resp.SimpleString("PONG"), do(t, e, "PING"))
	assert.Equal(t, resp.SimpleString("PONG"), do(t, e, "ping", "ignored"))
	assert.Equal(t, resp.Bulk("hello world"), do(t, e, "ECHO", "hello", "world"))
	assert.Equal(t, resp.Bulk(""), do(t, e, "ECHO"))

	do(t, e, "SET", "a", "1")
	do(t, e, "SET", "b", "2")
	assert.Equal(t, resp.SimpleString("OK"), do(t, e, "CLEAR"))
	assert.Equal(t, resp.BulkArray([]string{}), do(t, e, "KEYS"))
}

func TestInfoIsCached(t *testing.T) {
	e, c := newTestEngine(t)

	first := do(t, e, "INFO")
	require.Equal(t, resp.TypeBulkString, first.Type)
	assert.Contains(t, first.Str, "keys:0\r\n")
	assert.Contains(t, first.Str, "aof_enabled:0\r\n")

	do(t, e, "SET", "a", "1")
	assert.Equal(t, first, do(t, e, "INFO"), "INFO must be reused within a second")

	c.Add(time.Second)
	assert.Contains(t, do(t, e, "INFO").Str, "keys:1\r\n")
}

func TestInvalidCommands(t *testing.T) {
	e, _ := newTestEngine(t)

	for _, args := range [][]string{
		{"NOPE"},
		{"SET", "k"},
		{"GET"},
		{"GET", "a", "b"},
		{"DEL"},
		{"EXISTS", "a", "b"},
		{"TTL"},
		{"KEYS", "a", "b"},
		{"EXPIRE", "k"},
		{"EXPIRE", "k", "soon"},
	} {
		t.Run(strings.Join(args, " "), func(t *testing.T) {
			assert.Equal(t, ErrInvalidCommand, doErr(t, e, resp.Encode(resp.BulkArray(args))))
		})
	}

	// a top level value that is not a non-empty array
	assert.Equal(t, ErrInvalidCommand, doErr(t, e, []byte("+PING\r\n")))
	assert.Equal(t, ErrInvalidCommand, doErr(t, e, []byte("*0\r\n")))
}

func TestProtocolErrors(t *testing.T) {
	e, _ := newTestEngine(t)

	msg := doErr(t, e, []byte("*2\r\n$x\r\n"))
	assert.True(t, strings.HasPrefix(msg, "ERR protocol error: "), msg)

	msg = doErr(t, e, []byte(""))
	assert.True(t, strings.HasPrefix(msg, "ERR protocol error: "), msg)
}

func TestConcurrentReadModifyWrite(t *testing.T) {
	e, _ := newTestEngine(t)
	do(t, e, "SET", "counter", "0")

	const workers = 10
	const perWorker = 100

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				e.DB().Compute("counter", func(v string, _ bool) (string, bool) {
					n, _ := strconv.Atoi(v)
					return strconv.Itoa(n + 1), false
				})
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, resp.Bulk(strconv.Itoa(workers*perWorker)), do(t, e, "GET", "counter"))
	assert.Equal(t, int64(2), e.Processed())
}

// --------------------------------------------------------------------------
// Persistence
// --------------------------------------------------------------------------

func TestMutationsAreLogged(t *testing.T) {
	e, _ := newTestEngine(t)
	path := filepath.Join(t.TempDir(), "cache.aof")
	require.NoError(t, e.EnablePersistence(path))

	do(t, e, "SET", "a", "1")
	do(t, e, "GET", "a")
	do(t, e, "DEL", "missing") // no effect, not logged
	do(t, e, "EXPIRE", "missing", "5")
	do(t, e, "EXPIRE", "a", "5")
	do(t, e, "DEL", "a")
	do(t, e, "set", "b", "two", "words", "EX", "10")
	do(t, e, "CLEAR")
	require.NoError(t, e.FlushPersistence())

	want := record("SET", "a", "1") +
		record("EXPIRE", "a", "5") +
		record("DEL", "a") +
		record("set", "b", "two", "words", "EX", "10") +
		record("CLEAR")
	assert.Equal(t, want, readLog(t, path))
}

func TestRestorationModeSuppressesLogging(t *testing.T) {
	e, _ := newTestEngine(t)
	path := filepath.Join(t.TempDir(), "cache.aof")
	require.NoError(t, e.EnablePersistence(path))

	e.SetRestorationMode(true)
	do(t, e, "SET", "a", "1")
	e.SetRestorationMode(false)
	do(t, e, "SET", "b", "2")
	require.NoError(t, e.FlushPersistence())

	assert.Equal(t, record("SET", "b", "2"), readLog(t, path))
}

func TestEnablePersistenceFailure(t *testing.T) {
	e, _ := newTestEngine(t)
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))

	require.Error(t, e.EnablePersistence(filepath.Join(blocker, "cache.aof")))

	// the engine keeps serving without durability
	assert.Equal(t, resp.SimpleString("OK"), do(t, e, "SET", "a", "1"))
	assert.NoError(t, e.FlushPersistence())
}

func TestRestoreScenario(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.aof")
	require.NoError(t, os.WriteFile(path, []byte(record("SET", "a", "1")+record("SET", "b", "2")+record("DEL", "a")), 0o644))

	e, _ := newTestEngine(t)
	require.True(t, e.RestoreFromPersistence(path))
	assert.Equal(t, resp.BulkArray([]string{"b"}), do(t, e, "KEYS"))
	assert.Equal(t, resp.Bulk("2"), do(t, e, "GET", "b"))
}

func TestRestoreMissingLog(t *testing.T) {
	e, _ := newTestEngine(t)
	assert.True(t, e.RestoreFromPersistence(filepath.Join(t.TempDir(), "none.aof")))
}

func TestRestoreFailsOnInvalidRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.aof")
	require.NoError(t, os.WriteFile(path, []byte(record("SET", "a", "1")+record("GET")+record("SET", "b", "2")), 0o644))

	e, _ := newTestEngine(t)
	assert.False(t, e.RestoreFromPersistence(path))
	assert.Equal(t, resp.Bulk("1"), do(t, e, "GET", "a"))
	assert.True(t, do(t, e, "GET", "b").IsNull())
}

func TestRestoreAfterCrashMidRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.aof")
	cut := "*3\r\n$3\r\nSET\r\n$1\r\nb\r\n"
	require.NoError(t, os.WriteFile(path, []byte(record("SET", "a", "1")+cut+record("SET", "c", "3")+record("SET", "d", "4")), 0o644))

	e, _ := newTestEngine(t)
	res, err := e.Restore(path)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Applied)
	assert.Equal(t, []string{"a", "c", "d"}, e.DB().Keys("*"))
	assert.True(t, do(t, e, "GET", "b").IsNull())
}

func TestRotatePersistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.aof")
	require.NoError(t, os.WriteFile(path, []byte(record("SET", "a", "1")+record("GET")+record("SET", "b", "2")), 0o644))

	e, _ := newTestEngine(t)
	require.False(t, e.RestoreFromPersistence(path))
	do(t, e, "SET", "t", "x", "EX", "30")

	aside, err := e.RotatePersistence(path)
	require.NoError(t, err)
	assert.Equal(t, record("SET", "a", "1")+record("GET")+record("SET", "b", "2"), readLog(t, aside))
	assert.Equal(t, record("SET", "a", "1")+record("SET", "t", "x", "EX", "30"), readLog(t, path))

	// later mutations land in the new log and replay completely
	do(t, e, "SET", "c", "3")
	require.NoError(t, e.FlushPersistence())

	restored, _ := newTestEngine(t)
	require.True(t, restored.RestoreFromPersistence(path))
	assert.Equal(t, []string{"a", "c", "t"}, restored.DB().Keys("*"))
	assert.Equal(t, resp.Integer(30), do(t, restored, "TTL", "t"))
}

func TestRotatePersistenceMissingLog(t *testing.T) {
	e, _ := newTestEngine(t)
	_, err := e.RotatePersistence(filepath.Join(t.TempDir(), "missing.aof"))
	assert.Error(t, err)
	assert.NoError(t, e.FlushPersistence())
}

func TestReplayEquivalence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.aof")

	live, _ := newTestEngine(t)
	require.NoError(t, live.EnablePersistence(path))
	for i := 0; i < 200; i++ {
		key := fmt.Sprintf("key:%d", i%37)
		switch i % 7 {
		case 0, 1, 2, 3:
			do(t, live, "SET", key, fmt.Sprintf("value %d\r\nwith break", i))
		case 4:
			do(t, live, "DEL", key)
		case 5:
			do(t, live, "EXPIRE", key, "3600")
		case 6:
			if i%70 == 6 {
				do(t, live, "CLEAR")
			}
		}
	}
	require.NoError(t, live.FlushPersistence())

	restored, _ := newTestEngine(t)
	other := filepath.Join(t.TempDir(), "other.aof")
	require.NoError(t, restored.EnablePersistence(other))
	require.True(t, restored.RestoreFromPersistence(path))

	keys := do(t, live, "KEYS")
	require.Equal(t, keys, do(t, restored, "KEYS"))
	for _, k := range keys.Array {
		assert.Equal(t, do(t, live, "GET", k.Str), do(t, restored, "GET", k.Str))
		assert.Equal(t, do(t, live, "TTL", k.Str), do(t, restored, "TTL", k.Str))
	}

	// replayed commands are not logged again
	require.NoError(t, restored.FlushPersistence())
	assert.Empty(t, readLog(t, other))
}

func TestRestoreSkipsMalformedBetweenValid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.aof")
	content := record("SET", "a", "1") + "*3\r\n$3\r\nSET\r\n$oops\r\n" + record("SET", "b", "2")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	e, _ := newTestEngine(t)
	res, err := e.Restore(path)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Applied)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, resp.Bulk("1"), do(t, e, "GET", "a"))
	assert.Equal(t, resp.Bulk("2"), do(t, e, "GET", "b"))
}

func TestRestoreTruncatedLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.aof")
	last := record("SET", "c", "3")
	require.NoError(t, os.WriteFile(path, []byte(record("SET", "a", "1")+record("SET", "b", "2")+last[:len(last)-3]), 0o644))

	e, _ := newTestEngine(t)
	require.True(t, e.RestoreFromPersistence(path))
	assert.Equal(t, resp.BulkArray([]string{"a", "b"}), do(t, e, "KEYS"))
}
