package resp

import (
	"fmt"
	"strconv"
	"strings"
)

// --------------------------------------------------------------------------
// Value Types
// --------------------------------------------------------------------------

// Type identifies the wire representation of a Value.
type Type uint8

const (
	TypeNull         Type = iota // Absent value ($-1 or *-1)
	TypeSimpleString             // +text
	TypeBulkString               // $len text
	TypeInteger                  // :n
	TypeArray                    // *count followed by count values
)

func (t Type) String() string {
	switch t {
	case TypeNull:
		return "null"
	case TypeSimpleString:
		return "simple-string"
	case TypeBulkString:
		return "bulk-string"
	case TypeInteger:
		return "integer"
	case TypeArray:
		return "array"
	default:
		return "unknown"
	}
}

// Value is a single wire value. Which field is used depends on Type.
type Value struct {
	Type  Type
	Str   string  // Used for: TypeSimpleString, TypeBulkString
	Int   int64   // Used for: TypeInteger
	Array []Value // Used for: TypeArray
}

// --------------------------------------------------------------------------
// Constructors
// --------------------------------------------------------------------------

// Null returns the absent value.
func Null() Value { return Value{Type: TypeNull} }

// SimpleString returns a simple string value. s must not contain "\r\n".
func SimpleString(s string) Value { return Value{Type: TypeSimpleString, Str: s} }

// Bulk returns a length prefixed string value.
func Bulk(s string) Value { return Value{Type: TypeBulkString, Str: s} }

// Integer returns an integer value.
func Integer(n int64) Value { return Value{Type: TypeInteger, Int: n} }

// Bool returns the integer 1 for true and 0 for false.
func Bool(b bool) Value {
	if b {
		return Integer(1)
	}
	return Integer(0)
}

// Array returns an array of the given values.
func Array(values ...Value) Value {
	if values == nil {
		values = []Value{}
	}
	return Value{Type: TypeArray, Array: values}
}

// BulkArray returns an array of bulk strings.
func BulkArray(items []string) Value {
	values := make([]Value, len(items))
	for i, s := range items {
		values[i] = Bulk(s)
	}
	return Array(values...)
}

// Marshal converts a plain Go value into a Value.
//
//   - nil                -> null
//   - string             -> simple string
//   - signed/unsigned ints -> integer
//   - bool               -> integer 1/0
//   - []string, []any, []Value -> array (elements converted recursively)
//   - Value              -> unchanged
//   - anything else      -> bulk string of its fmt.Sprint representation
func Marshal(v any) Value {
	switch t := v.(type) {
	case nil:
		return Null()
	case Value:
		return t
	case string:
		return SimpleString(t)
	case bool:
		return Bool(t)
	case int:
		return Integer(int64(t))
	case int8:
		return Integer(int64(t))
	case int16:
		return Integer(int64(t))
	case int32:
		return Integer(int64(t))
	case int64:
		return Integer(t)
	case uint:
		return Integer(int64(t))
	case uint8:
		return Integer(int64(t))
	case uint16:
		return Integer(int64(t))
	case uint32:
		return Integer(int64(t))
	case uint64:
		return Integer(int64(t))
	case []string:
		values := make([]Value, len(t))
		for i, s := range t {
			values[i] = SimpleString(s)
		}
		return Array(values...)
	case []Value:
		return Array(t...)
	case []any:
		values := make([]Value, len(t))
		for i, e := range t {
			values[i] = Marshal(e)
		}
		return Array(values...)
	default:
		return Bulk(fmt.Sprint(t))
	}
}

// --------------------------------------------------------------------------
// Accessors
// --------------------------------------------------------------------------

// IsNull reports whether v is the absent value.
func (v Value) IsNull() bool { return v.Type == TypeNull }

// Text returns the textual form of v. Strings are returned as is, integers are
// formatted in base 10, null is the empty string and arrays are joined with
// single spaces.
func (v Value) Text() string {
	switch v.Type {
	case TypeSimpleString, TypeBulkString:
		return v.Str
	case TypeInteger:
		return strconv.FormatInt(v.Int, 10)
	case TypeArray:
		parts := make([]string, len(v.Array))
		for i, e := range v.Array {
			parts[i] = e.Text()
		}
		return strings.Join(parts, " ")
	default:
		return ""
	}
}

// Strings returns the text of every element of an array value.
// The boolean is false if v is not an array.
func (v Value) Strings() ([]string, bool) {
	if v.Type != TypeArray {
		return nil, false
	}
	out := make([]string, len(v.Array))
	for i, e := range v.Array {
		out[i] = e.Text()
	}
	return out, true
}

// Equal reports whether two values have the same type and content.
func (v Value) Equal(o Value) bool {
	if v.Type != o.Type {
		return false
	}
	switch v.Type {
	case TypeNull:
		return true
	case TypeSimpleString, TypeBulkString:
		return v.Str == o.Str
	case TypeInteger:
		return v.Int == o.Int
	case TypeArray:
		if len(v.Array) != len(o.Array) {
			return false
		}
		for i := range v.Array {
			if !v.Array[i].Equal(o.Array[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func (v Value) String() string {
	switch v.Type {
	case TypeNull:
		return "(nil)"
	case TypeSimpleString:
		return v.Str
	case TypeBulkString:
		return strconv.Quote(v.Str)
	case TypeInteger:
		return "(integer) " + strconv.FormatInt(v.Int, 10)
	case TypeArray:
		parts := make([]string, len(v.Array))
		for i, e := range v.Array {
			parts[i] = e.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return "(unknown)"
	}
}
