// Package client implements the client of the cache server. It is used by the
// ckv kv commands and can be embedded in other Go programs.
//
// Key Components:
//
//   - NewRPCClient: connects to one or more endpoints with the given transport
//     (tcp or unix). Every endpoint is an independent server. Keyed commands
//     (GET, SET, DEL, EXISTS, TTL, EXPIRE) are routed by the xxh3 hash of the key,
//     KEYS and CLEAR go to every endpoint, the rest to the first endpoint.
//
//   - RPCClient.Do: sends a raw command and returns the reply as a resp.Value.
//
//   - Typed helpers: Ping, Echo, Set, Get, Del, Exists, TTL, Keys, Expire, Clear
//     and Info.
//
// Usage Example:
//
//	config := common.ClientConfig{
//	  Endpoints:     []string{"localhost:6380"},
//	  TimeoutSecond: 5,
//	  RetryCount:    3,
//	}
//
//	c, err := client.NewRPCClient(config, func() transport.IRPCClientTransport {
//	  return tcp.NewTCPClientTransport()
//	})
//	if err != nil {
//	  log.Fatal(err)
//	}
//	defer c.Close()
//
//	ttl := int64(60)
//	c.Set("session", "abc", &ttl)
//	value, exists, _ := c.Get("session")
package client
