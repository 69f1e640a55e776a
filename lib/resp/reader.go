package resp

import (
	"bufio"
	"errors"
	"io"
	"strconv"
)

const (
	// MaxLineLength is the longest header or simple string line a Reader accepts.
	MaxLineLength = 64 * 1024
	// MaxBulkLength is the largest bulk string a Reader accepts (512 MB).
	MaxBulkLength = 512 * 1024 * 1024
)

// Reader decodes values from a byte stream, one value per ReadValue call.
type Reader struct {
	br     *bufio.Reader
	offset int // bytes consumed from the stream so far
}

// NewReader creates a Reader with a buffer of the given size (bytes).
func NewReader(r io.Reader, size int) *Reader {
	if size < MaxLineLength {
		size = MaxLineLength
	}
	return &Reader{br: bufio.NewReaderSize(r, size)}
}

// ReadValue reads the next complete value.
// I/O errors (including io.EOF before the first byte) are returned unchanged,
// a stream that ends within a value returns io.ErrUnexpectedEOF.
func (r *Reader) ReadValue() (Value, error) {
	return r.value(true)
}

// DiscardBuffered drops everything that is already buffered. Used after a
// protocol error to resynchronise with the next request.
func (r *Reader) DiscardBuffered() {
	_, _ = r.br.Discard(r.br.Buffered())
}

// Buffered returns the number of bytes that can be read without touching the
// underlying stream.
func (r *Reader) Buffered() int {
	return r.br.Buffered()
}

func (r *Reader) value(top bool) (Value, error) {
	line, start, err := r.line(top)
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
		buf := make([]byte, n+2)
		if _, err := io.ReadFull(r.br, buf); err != nil {
			return Value{}, unexpected(err)
		}
		r.offset += n + 2
		if buf[n] != '\r' || buf[n+1] != '\n' {
			return Value{}, malformed(r.offset-2, "bulk string not terminated")
		}
		return Bulk(string(buf[:n])), nil

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
			item, err := r.value(false)
			if err != nil {
				return Value{}, err
			}
			items = append(items, item)
		}
		return Array(items...), nil

	default:
		return SimpleString(string(line)), nil
	}
}

// line reads one line without terminator. At the top level a clean io.EOF is
// passed through, inside a value it becomes io.ErrUnexpectedEOF.
func (r *Reader) line(top bool) ([]byte, int, error) {
	start := r.offset
	raw, err := r.br.ReadSlice('\n')
	if err != nil {
		if errors.Is(err, bufio.ErrBufferFull) {
			return nil, start, malformed(start, "line exceeds %d bytes", MaxLineLength)
		}
		if errors.Is(err, io.EOF) && (len(raw) > 0 || !top) {
			return nil, start, io.ErrUnexpectedEOF
		}
		return nil, start, err
	}
	r.offset += len(raw)
	if len(raw) < 2 || raw[len(raw)-2] != '\r' {
		return nil, start, malformed(start+len(raw)-1, "line not terminated by CRLF")
	}
	return raw[:len(raw)-2], start, nil
}

func unexpected(err error) error {
	if errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return err
}
