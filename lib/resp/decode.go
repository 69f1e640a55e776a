package resp

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
)

// --------------------------------------------------------------------------
// Errors
// --------------------------------------------------------------------------

// ErrIncomplete is matched (errors.Is) by every ParseError caused by input that
// ends before the declared data is available. More input may make it decodable.
var ErrIncomplete = errors.New("resp: incomplete input")

// ParseError reports malformed or truncated wire input.
type ParseError struct {
	Offset     int    // byte offset of the offending field
	Msg        string // what went wrong
	incomplete bool
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("resp: %s (offset %d)", e.Msg, e.Offset)
}

// Unwrap makes truncation errors match ErrIncomplete.
func (e *ParseError) Unwrap() error {
	if e.incomplete {
		return ErrIncomplete
	}
	return nil
}

// Incomplete reports whether the input merely ended too early.
func (e *ParseError) Incomplete() bool { return e.incomplete }

// ReplyError is an error line ("-...") read from the wire.
type ReplyError struct {
	Msg string
}

func (e *ReplyError) Error() string { return e.Msg }

func malformed(offset int, format string, args ...any) *ParseError {
	return &ParseError{Offset: offset, Msg: fmt.Sprintf(format, args...)}
}

func truncated(offset int, format string, args ...any) *ParseError {
	return &ParseError{Offset: offset, Msg: fmt.Sprintf(format, args...), incomplete: true}
}

// --------------------------------------------------------------------------
// Decoding
// --------------------------------------------------------------------------

var crlf = []byte("\r\n")

// maxPrealloc bounds the slice capacity reserved for a declared array count,
// a corrupt count must not allocate gigabytes before failing.
const maxPrealloc = 1024

// Decode decodes the first value of text. Trailing data is ignored.
func Decode(text string) (Value, error) {
	v, _, err := DecodePrefix([]byte(text))
	return v, err
}

// DecodePrefix decodes one value from the front of b and returns it together
// with the number of bytes it occupied.
//
// Errors:
//   - *ParseError matching ErrIncomplete: b ends before the value does
//   - *ParseError: malformed structure (bad length, count or integer field)
//   - *ReplyError: the value is an error line
func DecodePrefix(b []byte) (Value, int, error) {
	if len(b) == 0 {
		return Value{}, 0, truncated(0, "empty input")
	}
	d := decoder{buf: b}
	v, err := d.value()
	if err != nil {
		return Value{}, 0, err
	}
	return v, d.pos, nil
}

// decoder is a cursor over a byte slice.
type decoder struct {
	buf []byte
	pos int
}

// line returns the next line without its terminator and advances the cursor.
func (d *decoder) line() ([]byte, int, error) {
	start := d.pos
	idx := bytes.Index(d.buf[start:], crlf)
	if idx < 0 {
		return nil, start, truncated(len(d.buf), "line not terminated")
	}
	d.pos = start + idx + 2
	return d.buf[start : start+idx], start, nil
}

func (d *decoder) value() (Value, error) {
	if d.pos >= len(d.buf) {
		return Value{}, truncated(d.pos, "missing value")
	}

	line, start, err := d.line()
	if err != nil {
		return Value{}, err
	}
	if len(line) == 0 {
		return SimpleString(""), nil
	}

	switch line[0] {
	case '+':
		return SimpleString(string(line[1:])), nil

	case '-':
		return Value{}, &ReplyError{Msg: string(line[1:])}

	case ':':
		n, err := strconv.ParseInt(string(line[1:]), 10, 64)
		if err != nil {
			return Value{}, malformed(start+1, "invalid integer %q", line[1:])
		}
		return Integer(n), nil

	case '$':
		n, err := strconv.Atoi(string(line[1:]))
		if err != nil || n < -1 || n > MaxBulkLength {
			return Value{}, malformed(start+1, "invalid bulk length %q", line[1:])
		}
		if n == -1 {
			return Null(), nil
		}
		if n > len(d.buf)-d.pos-2 {
			return Value{}, truncated(d.pos, "bulk string declares %d bytes", n)
		}
		if !bytes.Equal(d.buf[d.pos+n:d.pos+n+2], crlf) {
			return Value{}, malformed(d.pos+n, "bulk string not terminated")
		}
		s := string(d.buf[d.pos : d.pos+n])
		d.pos += n + 2
		return Bulk(s), nil

	case '*':
		count, err := strconv.Atoi(string(line[1:]))
		if err != nil || count < -1 {
			return Value{}, malformed(start+1, "invalid array count %q", line[1:])
		}
		if count == -1 {
			return Null(), nil
		}
		items := make([]Value, 0, min(count, maxPrealloc))
		for i := 0; i < count; i++ {
			item, err := d.value()
			if err != nil {
				return Value{}, err
			}
			items = append(items, item)
		}
		return Array(items...), nil

	default:
		// foreign input: hand the line back as text
		return SimpleString(string(line)), nil
	}
}
