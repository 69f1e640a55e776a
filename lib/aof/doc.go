// Package aof implements the durability log of the cache: an append-only file
// of mutating commands and a streaming replay that rebuilds the store from it.
//
// Record format: every record is one argument list encoded as a wire array of
// bulk strings, e.g.
//
//	*3\r\n$3\r\nSET\r\n$1\r\nk\r\n$1\r\nv\r\n
//
// Bulk strings carry their byte length, so values may contain line breaks.
//
// Writing (Persister):
//   - records are buffered in memory and reach the file on Flush or Close
//   - Flush syncs the file, a record is durable once Flush returned nil
//   - write failures are logged, counted (ckv_aof_write_errors_total) and
//     kept for LastError, they never fail the command that was logged
//
// Replaying (Restore):
//   - the file is read in chunks and never re-scanned
//   - corrupt spans are skipped by resuming at the next '*' marker
//   - a record cut off at the end of the file is dropped with a warning
//   - the pending buffer is capped, on overflow it is trimmed back to the last
//     record start
//
// Replay must complete before new records are appended to the same file.
package aof
