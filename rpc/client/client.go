package client

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/ValentinKolb/cKV/lib/engine"
	"github.com/ValentinKolb/cKV/lib/resp"
	"github.com/ValentinKolb/cKV/rpc/common"
	"github.com/ValentinKolb/cKV/rpc/transport"
)

// TransportFactory creates an unconnected client transport
type TransportFactory func() transport.IRPCClientTransport

// NewRPCClient creates a client and connects it to all endpoints of config.
// Every endpoint is an independent server: keys are spread over the endpoints
// by hash, so a key always lands on the same server.
func NewRPCClient(config common.ClientConfig, newTransport TransportFactory) (*RPCClient, error) {
	if len(config.Endpoints) == 0 {
		return nil, fmt.Errorf("no endpoints provided")
	}

	c := &RPCClient{config: config}
	for _, endpoint := range config.Endpoints {
		t := newTransport()

		// one transport per endpoint, the transport only balances connections
		epConfig := config
		epConfig.Endpoints = []string{endpoint}
		if err := t.Connect(epConfig); err != nil {
			c.Close()
			return nil, fmt.Errorf("connect %s: %w", endpoint, err)
		}
		c.shards = append(c.shards, t)
	}

	Logger.Debugf("Client connected to %d endpoints", len(c.shards))
	return c, nil
}

// RPCClient sends commands to one or more cache servers.
//
// Thread-safety: all methods are safe for concurrent use.
type RPCClient struct {
	config common.ClientConfig
	shards []transport.IRPCClientTransport
}

// Close closes all connections
func (c *RPCClient) Close() error {
	var errs []error
	for _, t := range c.shards {
		errs = append(errs, t.Close())
	}
	return errors.Join(errs...)
}

// Do sends one command and returns the reply. Error replies are returned as
// *resp.ReplyError. Commands with a key go to the endpoint owning the key,
// KEYS and CLEAR go to all endpoints, everything else to the first one.
func (c *RPCClient) Do(args ...string) (resp.Value, error) {
	if len(args) == 0 {
		return resp.Value{}, fmt.Errorf("empty command")
	}
	req := resp.BulkArray(args)

	switch kind := engine.KindOf(args[0]); {
	case kind == engine.KindKeys:
		return c.keys(req)
	case kind == engine.KindClear:
		return c.broadcast(req)
	case hasKey(kind) && len(args) > 1:
		return c.shards[shardFor(args[1], len(c.shards))].Send(req)
	default:
		return c.shards[0].Send(req)
	}
}

// hasKey reports whether the first argument of kind is a key
func hasKey(kind engine.Kind) bool {
	switch kind {
	case engine.KindGet, engine.KindSet, engine.KindDel, engine.KindExists, engine.KindTTL, engine.KindExpire:
		return true
	default:
		return false
	}
}

// keys merges the KEYS replies of all endpoints
func (c *RPCClient) keys(req resp.Value) (resp.Value, error) {
	if len(c.shards) == 1 {
		return c.shards[0].Send(req)
	}

	var all []string
	for _, t := range c.shards {
		v, err := t.Send(req)
		if err != nil {
			return resp.Value{}, err
		}
		keys, ok := v.Strings()
		if !ok {
			return resp.Value{}, fmt.Errorf("KEYS: unexpected reply %s", v)
		}
		all = append(all, keys...)
	}
	sort.Strings(all)
	return resp.BulkArray(all), nil
}

// broadcast sends req to all endpoints and returns the first reply
func (c *RPCClient) broadcast(req resp.Value) (resp.Value, error) {
	var first resp.Value
	for i, t := range c.shards {
		v, err := t.Send(req)
		if err != nil {
			return resp.Value{}, err
		}
		if i == 0 {
			first = v
		}
	}
	return first, nil
}

// --------------------------------------------------------------------------
// Typed helpers
// --------------------------------------------------------------------------

// Ping checks that the first endpoint answers
func (c *RPCClient) Ping() error {
	v, err := c.Do("PING")
	if err != nil {
		return err
	}
	if v.Str != "PONG" {
		return fmt.Errorf("PING: unexpected reply %s", v)
	}
	return nil
}

// Echo returns its argument as sent back by the server
func (c *RPCClient) Echo(msg string) (string, error) {
	v, err := c.Do("ECHO", msg)
	if err != nil {
		return "", err
	}
	return v.Str, nil
}

// Set stores value under key. A non-nil ttl sets the lifetime in seconds.
func (c *RPCClient) Set(key, value string, ttl *int64) error {
	args := []string{"SET", key, value}
	if ttl != nil {
		args = append(args, "EX", strconv.FormatInt(*ttl, 10))
	}
	v, err := c.Do(args...)
	return asOK("SET", v, err)
}

// Get returns the value of key and whether it exists
func (c *RPCClient) Get(key string) (value string, loaded bool, err error) {
	v, err := c.Do("GET", key)
	if err != nil {
		return "", false, err
	}
	if err := expectType("GET", v, resp.TypeBulkString, resp.TypeNull); err != nil {
		return "", false, err
	}
	return v.Str, !v.IsNull(), nil
}

// Del removes key and reports whether it existed
func (c *RPCClient) Del(key string) (bool, error) {
	v, err := c.Do("DEL", key)
	return asBool("DEL", v, err)
}

// Exists reports whether key exists
func (c *RPCClient) Exists(key string) (bool, error) {
	v, err := c.Do("EXISTS", key)
	return asBool("EXISTS", v, err)
}

// TTL returns the remaining lifetime of key in seconds, -1 for keys without
// expiry and -2 for missing keys
func (c *RPCClient) TTL(key string) (int64, error) {
	v, err := c.Do("TTL", key)
	return asInt("TTL", v, err)
}

// Keys returns all keys matching the glob pattern, sorted
func (c *RPCClient) Keys(pattern string) ([]string, error) {
	v, err := c.Do("KEYS", pattern)
	if err != nil {
		return nil, err
	}
	keys, ok := v.Strings()
	if !ok {
		return nil, fmt.Errorf("KEYS: unexpected reply %s", v)
	}
	return keys, nil
}

// Expire sets the lifetime of key and reports whether the key exists
func (c *RPCClient) Expire(key string, seconds int64) (bool, error) {
	v, err := c.Do("EXPIRE", key, strconv.FormatInt(seconds, 10))
	return asBool("EXPIRE", v, err)
}

// Clear removes all keys on all endpoints
func (c *RPCClient) Clear() error {
	v, err := c.Do("CLEAR")
	return asOK("CLEAR", v, err)
}

// Info returns the INFO text of every endpoint, separated by a blank line
func (c *RPCClient) Info() (string, error) {
	parts := make([]string, 0, len(c.shards))
	for i, t := range c.shards {
		v, err := t.Send(resp.BulkArray([]string{"INFO"}))
		if err != nil {
			return "", err
		}
		if len(c.shards) > 1 {
			parts = append(parts, fmt.Sprintf("# Endpoint\r\nendpoint:%s\r\n%s", c.config.Endpoints[i], v.Str))
		} else {
			parts = append(parts, v.Str)
		}
	}
	return strings.Join(parts, "\r\n"), nil
}
