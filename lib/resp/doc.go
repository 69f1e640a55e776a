// Package resp implements the line-oriented wire protocol spoken by cKV.
//
// Every request and every reply is exactly one Value. The first character of a
// line selects the representation, every line ends with "\r\n":
//
//	+OK\r\n                  simple string
//	-ERR message\r\n         error line
//	:42\r\n                  integer
//	$5\r\nhello\r\n          bulk string ($-1 = null, $0 = empty)
//	*2\r\n$3\r\nGET\r\n$1\r\nk\r\n   array (*0 = empty, *-1 = null)
//
// The package focuses on:
//   - A typed, recursive Value model with constructors for all representations
//   - Stateless encoding (Encode, EncodeAny) that never escapes or truncates
//   - Prefix decoding (DecodePrefix) that reports how many bytes a value occupied
//     and distinguishes truncated input (ErrIncomplete) from malformed input
//   - A streaming Reader for connection oriented use
//
// Round trip: Decode(Encode(v)) equals v for every Value. Booleans have no own
// representation and always come back as integers 0 or 1.
//
// Caller contract: simple strings must not contain "\r\n". This is not checked.
// Use bulk strings for arbitrary text.
//
// Thread Safety:
//
//	Encode, EncodeAny, Decode and DecodePrefix are stateless and safe for
//	concurrent use. A Reader must only be used by one goroutine at a time.
package resp
