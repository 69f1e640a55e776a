package resp

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode(t *testing.T) {
	testCases := []struct {
		name string
		in   any
		want string
	}{
		{"null", nil, "$-1\r\n"},
		{"simple string", "OK", "+OK\r\n"},
		{"empty simple string", "", "+\r\n"},
		{"integer", 42, ":42\r\n"},
		{"negative integer", int64(-7), ":-7\r\n"},
		{"true", true, ":1\r\n"},
		{"false", false, ":0\r\n"},
		{"string slice", []string{"SET", "k", "v"}, "*3\r\n+SET\r\n+k\r\n+v\r\n"},
		{"nested", []any{"a", []any{1, nil}}, "*2\r\n+a\r\n*2\r\n:1\r\n$-1\r\n"},
		{"empty array", []any{}, "*0\r\n"},
		{"fallback", 1.5, "$3\r\n1.5\r\n"},
		{"bulk", Bulk("hello world"), "$11\r\nhello world\r\n"},
		{"empty bulk", Bulk(""), "$0\r\n\r\n"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, string(EncodeAny(tc.in)))
		})
	}
}

func TestRoundTrip(t *testing.T) {
	values := []Value{
		Null(),
		SimpleString("PONG"),
		SimpleString(""),
		Bulk("John Doe"),
		Bulk("line1\r\nline2"),
		Bulk(""),
		Integer(0),
		Integer(-123456789),
		Array(),
		BulkArray([]string{"SET", "user:1", "John Doe"}),
		Array(Integer(1), Array(SimpleString("x"), Null()), Bulk("y")),
	}

	for _, v := range values {
		t.Run(v.Type.String()+"/"+v.String(), func(t *testing.T) {
			encoded := Encode(v)
			decoded, n, err := DecodePrefix(encoded)
			require.NoError(t, err)
			assert.Equal(t, len(encoded), n)
			assert.True(t, v.Equal(decoded), "got %s, want %s", decoded, v)
		})
	}
}

func TestRoundTripBoolBecomesInteger(t *testing.T) {
	decoded, err := Decode(string(EncodeAny(true)))
	require.NoError(t, err)
	assert.Equal(t, Integer(1), decoded)

	decoded, err = Decode(string(EncodeAny(false)))
	require.NoError(t, err)
	assert.Equal(t, Integer(0), decoded)
}

func TestDecodeErrors(t *testing.T) {
	testCases := []struct {
		name       string
		in         string
		incomplete bool
		offset     int
	}{
		{"empty input", "", true, 0},
		{"unterminated line", "+OK", true, 3},
		{"bulk longer than input", "$10\r\nabc\r\n", true, 5},
		{"array missing elements", "*2\r\n+a\r\n", true, 8},
		{"bulk missing terminator bytes", "$3\r\nabc", true, 4},
		{"non numeric bulk length", "$abc\r\nxyz\r\n", false, 1},
		{"non numeric array count", "*x\r\n", false, 1},
		{"non numeric integer", ":12a\r\n", false, 1},
		{"negative bulk length", "$-5\r\n", false, 1},
		{"bulk without terminator", "$3\r\nabcd\r\n", false, 7},
		{"nested malformed", "*2\r\n+a\r\n$z\r\n", false, 9},
		{"bulk length beyond int range", "$9223372036854775807\r\nabc\r\n", false, 1},
		{"bulk length above limit", "$536870913\r\nabc\r\n", false, 1},
		{"huge array count", "*9223372036854775807\r\n+a\r\n", true, 26},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decode(tc.in)
			require.Error(t, err)

			var perr *ParseError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, tc.incomplete, errors.Is(err, ErrIncomplete))
			assert.Equal(t, tc.incomplete, perr.Incomplete())
			assert.Equal(t, tc.offset, perr.Offset)
		})
	}
}

func TestDecodeErrorLine(t *testing.T) {
	_, err := Decode("-ERR invalid command\r\n")
	var rerr *ReplyError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, "ERR invalid command", rerr.Msg)

	// an error line inside an array aborts the whole array
	_, err = Decode("*2\r\n+a\r\n-boom\r\n")
	require.ErrorAs(t, err, &rerr)
}

func TestDecodeSpecialLengths(t *testing.T) {
	v, err := Decode("$-1\r\n")
	require.NoError(t, err)
	assert.True(t, v.IsNull())

	v, err = Decode("*-1\r\n")
	require.NoError(t, err)
	assert.True(t, v.IsNull())

	v, n, err := DecodePrefix([]byte("*0\r\n+next\r\n"))
	require.NoError(t, err)
	assert.Equal(t, TypeArray, v.Type)
	assert.Empty(t, v.Array)
	assert.Equal(t, 4, n, "empty array must not consume a payload line")

	v, n, err = DecodePrefix([]byte("$0\r\n\r\n"))
	require.NoError(t, err)
	assert.Equal(t, Bulk(""), v)
	assert.Equal(t, 6, n)
}

func TestDecodeForeignInput(t *testing.T) {
	v, err := Decode("PING\r\n")
	require.NoError(t, err)
	assert.Equal(t, SimpleString("PING"), v)
}

func TestDecodePrefixConsumedBytes(t *testing.T) {
	first := Encode(BulkArray([]string{"SET", "a", "1"}))
	second := Encode(BulkArray([]string{"DEL", "a"}))
	stream := append(append([]byte{}, first...), second...)

	v, n, err := DecodePrefix(stream)
	require.NoError(t, err)
	assert.Equal(t, len(first), n)
	args, ok := v.Strings()
	require.True(t, ok)
	assert.Equal(t, []string{"SET", "a", "1"}, args)

	v, n, err = DecodePrefix(stream[n:])
	require.NoError(t, err)
	assert.Equal(t, len(second), n)
	args, _ = v.Strings()
	assert.Equal(t, []string{"DEL", "a"}, args)
}

func TestValueText(t *testing.T) {
	assert.Equal(t, "abc", SimpleString("abc").Text())
	assert.Equal(t, "abc", Bulk("abc").Text())
	assert.Equal(t, "-3", Integer(-3).Text())
	assert.Equal(t, "", Null().Text())
	assert.Equal(t, "a 1", Array(SimpleString("a"), Integer(1)).Text())

	_, ok := Integer(1).Strings()
	assert.False(t, ok)
}

func TestReader(t *testing.T) {
	stream := strings.Join([]string{
		"*2\r\n$4\r\nECHO\r\n$5\r\nhello\r\n",
		"+PONG\r\n",
		":7\r\n",
		"$-1\r\n",
		"-ERR nope\r\n",
		"*1\r\n$3\r\nGET",
	}, "")

	r := NewReader(strings.NewReader(stream), 0)

	v, err := r.ReadValue()
	require.NoError(t, err)
	assert.True(t, BulkArray([]string{"ECHO", "hello"}).Equal(v))

	v, err = r.ReadValue()
	require.NoError(t, err)
	assert.Equal(t, SimpleString("PONG"), v)

	v, err = r.ReadValue()
	require.NoError(t, err)
	assert.Equal(t, Integer(7), v)

	v, err = r.ReadValue()
	require.NoError(t, err)
	assert.True(t, v.IsNull())

	_, err = r.ReadValue()
	var rerr *ReplyError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, "ERR nope", rerr.Msg)

	_, err = r.ReadValue()
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)

	_, err = r.ReadValue()
	assert.ErrorIs(t, err, io.EOF)
}

func TestReaderProtocolError(t *testing.T) {
	r := NewReader(strings.NewReader("*x\r\n"), 0)
	_, err := r.ReadValue()
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.False(t, perr.Incomplete())
}
