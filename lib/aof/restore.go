package aof

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/ValentinKolb/cKV/lib/resp"
)

// recordMarker starts every record (a wire array)
const recordMarker = '*'

// --------------------------------------------------------------------------
// Options and Result
// --------------------------------------------------------------------------

// RestoreOptions bounds the memory used while replaying a log
type RestoreOptions struct {
	ChunkSize      int // bytes read from the file per step
	MaxBuffer      int // cap of the pending buffer before it is trimmed
	TrailingWindow int // bytes kept on overflow when no record start is found
}

// DefaultRestoreOptions returns the default replay limits
func DefaultRestoreOptions() RestoreOptions {
	return RestoreOptions{
		ChunkSize:      64 * 1024,
		MaxBuffer:      16 * 1024 * 1024,
		TrailingWindow: 4 * 1024,
	}
}

func (o RestoreOptions) withDefaults() RestoreOptions {
	d := DefaultRestoreOptions()
	if o.ChunkSize <= 0 {
		o.ChunkSize = d.ChunkSize
	}
	if o.MaxBuffer <= 0 {
		o.MaxBuffer = d.MaxBuffer
	}
	if o.TrailingWindow <= 0 {
		o.TrailingWindow = d.TrailingWindow
	}
	if o.TrailingWindow > o.MaxBuffer {
		o.TrailingWindow = o.MaxBuffer
	}
	return o
}

// RestoreResult summarises a replay
type RestoreResult struct {
	Applied  int      // records applied successfully
	Skipped  int      // corrupt spans that were discarded
	Bytes    int64    // bytes read from the log
	Warnings []string // human readable notes on discarded data
}

// ApplyError wraps the failure of a replayed record
type ApplyError struct {
	Record int // 1-based index of the failing record
	Err    error
}

func (e *ApplyError) Error() string {
	return fmt.Sprintf("aof: replay of record %d failed: %v", e.Record, e.Err)
}

func (e *ApplyError) Unwrap() error { return e.Err }

// --------------------------------------------------------------------------
// Restore
// --------------------------------------------------------------------------

// Restore streams the log at path and hands every complete record, in file
// order, to apply. A missing file restores nothing and succeeds.
//
// Corrupt data is skipped: decoding resumes at the next record marker after
// the one that failed, so every step makes progress and the file is read
// exactly once. A value that decodes but is not a flat command array counts
// as corrupt too, its nested records are decoded on their own. A record cut off at the end of the file is discarded the same
// way. When the pending buffer grows beyond MaxBuffer it is trimmed back to the
// last record marker (or to the trailing window if there is none).
//
// The first error returned by apply aborts the replay with an *ApplyError.
func Restore(path string, apply func(record resp.Value) error, opts RestoreOptions) (RestoreResult, error) {
	var result RestoreResult
	opts = opts.withDefaults()

	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		Logger.Infof("no log at %s, nothing to restore", path)
		return result, nil
	}
	if err != nil {
		return result, fmt.Errorf("aof: open %s: %w", path, err)
	}
	defer f.Close()

	r := &replay{apply: apply, result: &result}
	chunk := make([]byte, opts.ChunkSize)
	for {
		n, readErr := f.Read(chunk)
		if n > 0 {
			result.Bytes += int64(n)
			r.buf.Write(chunk[:n])
		}

		eof := errors.Is(readErr, io.EOF)
		if readErr != nil && !eof {
			return result, fmt.Errorf("aof: read %s: %w", path, readErr)
		}

		if err := r.drain(eof); err != nil {
			return result, err
		}
		if eof {
			break
		}
		r.trim(opts)
	}

	Logger.Infof("restored %d records from %s (%d bytes, %d corrupt spans skipped)",
		result.Applied, path, result.Bytes, result.Skipped)
	return result, nil
}

// replay holds the state of one Restore call
type replay struct {
	buf    bytes.Buffer
	apply  func(resp.Value) error
	result *RestoreResult
}

// drain applies every complete record in the buffer. Without eof, a record
// that is still incomplete stays buffered. With eof, nothing stays buffered.
func (r *replay) drain(eof bool) error {
	for {
		pending := r.buf.Bytes()
		if len(pending) == 0 {
			return nil
		}

		start := bytes.IndexByte(pending, recordMarker)
		if start < 0 {
			r.discard(len(pending), "no record start in %d bytes", len(pending))
			return nil
		}
		if start > 0 {
			r.discard(start, "%d bytes before record start", start)
			pending = r.buf.Bytes()
		}

		v, n, err := resp.DecodePrefix(pending)
		if err == nil && !isRecord(v) {
			// a record cut off at an element boundary decodes together with the
			// records behind it, so the value is rescanned like corrupt data
			err = fmt.Errorf("not a command record: %s", v)
		}

		if err == nil {
			r.buf.Next(n)
			if applyErr := r.apply(v); applyErr != nil {
				return &ApplyError{Record: r.result.Applied + 1, Err: applyErr}
			}
			r.result.Applied++
			continue
		}

		if errors.Is(err, resp.ErrIncomplete) && !eof {
			return nil
		}

		// corrupt (or cut off at the end of the file): resume at the next marker
		next := bytes.IndexByte(pending[1:], recordMarker)
		if next < 0 {
			if !eof {
				return nil
			}
			r.discard(len(pending), "discarded %d bytes at end of log: %v", len(pending), err)
			return nil
		}
		r.discard(next+1, "discarded %d corrupt bytes: %v", next+1, err)
	}
}

// trim enforces the buffer cap
func (r *replay) trim(opts RestoreOptions) {
	pending := r.buf.Bytes()
	if len(pending) <= opts.MaxBuffer {
		return
	}

	if last := bytes.LastIndexByte(pending, recordMarker); last > 0 {
		r.discard(last, "replay buffer exceeded %d bytes, dropped %d bytes up to the last record start", opts.MaxBuffer, last)
		return
	}
	drop := len(pending) - opts.TrailingWindow
	r.discard(drop, "replay buffer exceeded %d bytes, dropped %d bytes keeping a %d byte window", opts.MaxBuffer, drop, opts.TrailingWindow)
}

// discard drops n bytes from the front of the buffer and records a warning
func (r *replay) discard(n int, format string, args ...any) {
	r.buf.Next(n)
	r.result.Skipped++
	msg := fmt.Sprintf(format, args...)
	r.result.Warnings = append(r.result.Warnings, msg)
	Logger.Warningf("replay: %s", msg)
}

// isRecord reports whether v has the shape of a logged command
func isRecord(v resp.Value) bool {
	if v.Type != resp.TypeArray || len(v.Array) == 0 {
		return false
	}
	for _, e := range v.Array {
		if e.Type != resp.TypeBulkString && e.Type != resp.TypeSimpleString {
			return false
		}
	}
	return true
}
