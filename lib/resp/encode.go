package resp

import "strconv"

// --------------------------------------------------------------------------
// Encoding
// --------------------------------------------------------------------------

// Encode returns the wire form of v.
func Encode(v Value) []byte {
	return AppendValue(make([]byte, 0, encodedSizeHint(v)), v)
}

// EncodeAny converts v with Marshal and encodes the result.
func EncodeAny(v any) []byte {
	return Encode(Marshal(v))
}

// AppendValue appends the wire form of v to dst and returns the extended slice.
func AppendValue(dst []byte, v Value) []byte {
	switch v.Type {
	case TypeNull:
		return append(dst, "$-1\r\n"...)
	case TypeSimpleString:
		dst = append(dst, '+')
		dst = append(dst, v.Str...)
		return append(dst, '\r', '\n')
	case TypeInteger:
		dst = append(dst, ':')
		dst = strconv.AppendInt(dst, v.Int, 10)
		return append(dst, '\r', '\n')
	case TypeArray:
		dst = append(dst, '*')
		dst = strconv.AppendInt(dst, int64(len(v.Array)), 10)
		dst = append(dst, '\r', '\n')
		for _, e := range v.Array {
			dst = AppendValue(dst, e)
		}
		return dst
	default:
		// bulk strings and anything unknown: length prefixed text
		dst = append(dst, '$')
		dst = strconv.AppendInt(dst, int64(len(v.Str)), 10)
		dst = append(dst, '\r', '\n')
		dst = append(dst, v.Str...)
		return append(dst, '\r', '\n')
	}
}

// AppendError appends an error line carrying msg.
func AppendError(dst []byte, msg string) []byte {
	dst = append(dst, '-')
	dst = append(dst, msg...)
	return append(dst, '\r', '\n')
}

// EncodeError returns an error line carrying msg.
func EncodeError(msg string) []byte {
	return AppendError(make([]byte, 0, len(msg)+3), msg)
}

// encodedSizeHint estimates the encoded size of v to avoid repeated growth.
func encodedSizeHint(v Value) int {
	switch v.Type {
	case TypeArray:
		n := 16
		for _, e := range v.Array {
			n += encodedSizeHint(e)
		}
		return n
	case TypeSimpleString, TypeBulkString:
		return len(v.Str) + 16
	default:
		return 24
	}
}
