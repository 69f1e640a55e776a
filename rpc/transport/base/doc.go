// Package base implements the transport logic shared by all socket families
// (TCP, Unix sockets). The family specific parts are injected as connectors.
//
// Key Components:
//
//   - IClientConnector/IServerConnector: dial and listen for one socket family.
//
//   - serverTransport: accepts connections and serves each one in its own
//     goroutine. Requests are read with a resp.Reader and answered in order.
//     Replies of pipelined requests are flushed together once no more input
//     is buffered. Input that cannot be decoded is answered with a protocol
//     error reply, the buffered rest is dropped and the connection stays open.
//     Open connections are tracked in an xsync.MapOf so Close can shut them
//     down and wait for their handlers.
//
//   - clientTransport: keeps one or more connections per endpoint and picks
//     one per request via round robin. A request holds its connection until
//     the reply was read. Failed attempts are retried with exponential backoff
//     and the broken connection is reopened. Error replies of the server are
//     returned as *resp.ReplyError and are not retried.
//
// Metrics: ckv_connections_total, ckv_connections_open and ckv_requests_total
// (VictoriaMetrics).
//
// Thread Safety:
//
//	All public methods are thread-safe.
package base
