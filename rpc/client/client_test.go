package client

import (
	"testing"
	"time"

	"github.com/ValentinKolb/cKV/lib/db/engines/maple"
	"github.com/ValentinKolb/cKV/lib/engine"
	"github.com/ValentinKolb/cKV/lib/resp"
	"github.com/ValentinKolb/cKV/rpc/common"
	"github.com/ValentinKolb/cKV/rpc/transport"
	"github.com/ValentinKolb/cKV/rpc/transport/tcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startEngine serves a fresh engine over TCP and returns the engine and its address
func startEngine(t *testing.T) (*engine.Engine, string) {
	t.Helper()
	e := engine.New(maple.NewMapleDB(nil), nil)
	srv := tcp.NewTCPServerTransport(4096)
	srv.RegisterHandler(e.HandleValue, engine.ProtocolError)

	go func() { _ = srv.Listen(common.ServerConfig{Endpoint: "127.0.0.1:0", TimeoutSecond: 5}) }()
	require.Eventually(t, func() bool { return srv.Addr() != nil }, 2*time.Second, 5*time.Millisecond)

	t.Cleanup(func() {
		_ = srv.Close()
		_ = e.Close()
	})
	return e, srv.Addr().String()
}

func newClient(t *testing.T, endpoints ...string) *RPCClient {
	t.Helper()
	c, err := NewRPCClient(common.ClientConfig{
		Transport:     common.TransportTCP,
		Endpoints:     endpoints,
		TimeoutSecond: 5,
		RetryCount:    2,
	}, func() transport.IRPCClientTransport { return tcp.NewTCPClientTransport() })
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestClientCommands(t *testing.T) {
	_, addr := startEngine(t)
	c := newClient(t, addr)

	require.NoError(t, c.Ping())

	msg, err := c.Echo("hello world")
	require.NoError(t, err)
	assert.Equal(t, "hello world", msg)

	require.NoError(t, c.Set("name", "John Doe", nil))
	value, loaded, err := c.Get("name")
	require.NoError(t, err)
	assert.True(t, loaded)
	assert.Equal(t, "John Doe", value)

	_, loaded, err = c.Get("missing")
	require.NoError(t, err)
	assert.False(t, loaded)

	ttl := int64(100)
	require.NoError(t, c.Set("temp", "v", &ttl))
	remaining, err := c.TTL("temp")
	require.NoError(t, err)
	assert.Equal(t, int64(100), remaining)

	remaining, err = c.TTL("name")
	require.NoError(t, err)
	assert.Equal(t, int64(-1), remaining)

	ok, err := c.Expire("name", 50)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.Exists("name")
	require.NoError(t, err)
	assert.True(t, ok)

	keys, err := c.Keys("*")
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "temp"}, keys)

	ok, err = c.Del("name")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = c.Del("name")
	require.NoError(t, err)
	assert.False(t, ok)

	info, err := c.Info()
	require.NoError(t, err)
	assert.Contains(t, info, "# Keyspace")

	require.NoError(t, c.Clear())
	keys, err = c.Keys("*")
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestClientErrorReply(t *testing.T) {
	_, addr := startEngine(t)
	c := newClient(t, addr)

	_, err := c.Do("FLUSHALL")
	var replyErr *resp.ReplyError
	require.ErrorAs(t, err, &replyErr)
	assert.Equal(t, engine.ErrInvalidCommand, replyErr.Msg)

	_, err = c.Do()
	assert.Error(t, err)
}

func TestClientShardsKeys(t *testing.T) {
	e1, addr1 := startEngine(t)
	e2, addr2 := startEngine(t)
	c := newClient(t, addr1, addr2)

	var want []string
	for _, k := range []string{"a", "b", "c", "d", "e", "f", "g", "h"} {
		require.NoError(t, c.Set(k, "v-"+k, nil))
		want = append(want, k)
	}

	// every key lives on exactly one server
	assert.Equal(t, len(want), e1.DB().Len()+e2.DB().Len())
	for _, k := range want {
		value, loaded, err := c.Get(k)
		require.NoError(t, err)
		assert.True(t, loaded)
		assert.Equal(t, "v-"+k, value)
	}

	keys, err := c.Keys("*")
	require.NoError(t, err)
	assert.Equal(t, want, keys)

	info, err := c.Info()
	require.NoError(t, err)
	assert.Contains(t, info, "endpoint:"+addr2)

	require.NoError(t, c.Clear())
	assert.Zero(t, e1.DB().Len()+e2.DB().Len())
}

func TestShardFor(t *testing.T) {
	assert.Equal(t, 0, shardFor("anything", 1))
	for _, k := range []string{"a", "b", "key:1"} {
		assert.Equal(t, shardFor(k, 4), shardFor(k, 4))
		assert.Less(t, shardFor(k, 4), 4)
	}
}

func TestNewRPCClientNoEndpoints(t *testing.T) {
	_, err := NewRPCClient(common.ClientConfig{}, func() transport.IRPCClientTransport { return tcp.NewTCPClientTransport() })
	assert.Error(t, err)
}
