package engine

import (
	"testing"

	"github.com/ValentinKolb/cKV/lib/resp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseArgs(args ...string) (*Command, bool) {
	return Parse(resp.BulkArray(args))
}

func TestParseSet(t *testing.T) {
	tests := []struct {
		name  string
		args  []string
		value string
		ttl   *int64
	}{
		{"plain", []string{"SET", "k", "v"}, "v", nil},
		{"words", []string{"SET", "k", "John", "Doe"}, "John Doe", nil},
		{"ttl", []string{"SET", "k", "temp", "EX", "10"}, "temp", ptr(10)},
		{"ttl after words", []string{"SET", "k", "a", "b", "EX", "10"}, "a b", ptr(10)},
		{"negative ttl", []string{"SET", "k", "v", "EX", "-1"}, "v", ptr(-1)},
		{"marker is case sensitive", []string{"SET", "k", "v", "ex", "10"}, "v ex 10", nil},
		{"non numeric ttl", []string{"SET", "k", "v", "EX", "soon"}, "v EX soon", nil},
		{"no value before marker", []string{"SET", "k", "EX", "10"}, "", ptr(10)},
		{"marker as value", []string{"SET", "k", "EX"}, "EX", nil},
		{"lower case kind", []string{"set", "k", "v"}, "v", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, ok := parseArgs(tt.args...)
			require.True(t, ok)
			assert.Equal(t, KindSet, cmd.Kind)
			assert.Equal(t, "k", cmd.Key)
			assert.Equal(t, tt.value, cmd.Value)
			assert.Equal(t, tt.ttl, cmd.TTL)
			assert.Equal(t, tt.args, cmd.Args)
		})
	}
}

func TestParseArity(t *testing.T) {
	tests := []struct {
		args []string
		kind Kind
		ok   bool
	}{
		{[]string{"PING"}, KindPing, true},
		{[]string{"PING", "x"}, KindPing, true},
		{[]string{"ECHO"}, KindEcho, true},
		{[]string{"SET", "k"}, KindSet, false},
		{[]string{"GET", "k"}, KindGet, true},
		{[]string{"GET"}, KindGet, false},
		{[]string{"DEL", "k", "x"}, KindDel, false},
		{[]string{"EXISTS", "k"}, KindExists, true},
		{[]string{"TTL", "k"}, KindTTL, true},
		{[]string{"KEYS"}, KindKeys, true},
		{[]string{"KEYS", "a*"}, KindKeys, true},
		{[]string{"KEYS", "a", "b"}, KindKeys, false},
		{[]string{"EXPIRE", "k", "10"}, KindExpire, true},
		{[]string{"EXPIRE", "k", "1.5"}, KindExpire, false},
		{[]string{"CLEAR"}, KindClear, true},
		{[]string{"INFO"}, KindInfo, true},
		{[]string{"FLUSHALL"}, KindUnknown, false},
	}

	for _, tt := range tests {
		t.Run(tt.args[0], func(t *testing.T) {
			assert.Equal(t, tt.kind, KindOf(tt.args[0]))
			cmd, ok := parseArgs(tt.args...)
			assert.Equal(t, tt.ok, ok)
			if ok {
				assert.Equal(t, tt.kind, cmd.Kind)
			}
		})
	}
}

func TestParseDefaults(t *testing.T) {
	cmd, ok := parseArgs("KEYS")
	require.True(t, ok)
	assert.Equal(t, "*", cmd.Pattern)

	cmd, ok = parseArgs("ECHO", "a", "b")
	require.True(t, ok)
	assert.Equal(t, "a b", cmd.Value)

	cmd, ok = parseArgs("EXPIRE", "k", "30")
	require.True(t, ok)
	assert.Equal(t, int64(30), cmd.Seconds)
}

func TestParseCoercesNonStrings(t *testing.T) {
	cmd, ok := Parse(resp.Array(resp.SimpleString("EXPIRE"), resp.Bulk("k"), resp.Integer(5)))
	require.True(t, ok)
	assert.Equal(t, KindExpire, cmd.Kind)
	assert.Equal(t, int64(5), cmd.Seconds)
}

func TestParseText(t *testing.T) {
	cmd, ok := ParseText("*2\r\n$3\r\nGET\r\n$1\r\nk\r\n")
	require.True(t, ok)
	assert.Equal(t, KindGet, cmd.Kind)

	_, ok = ParseText("*2\r\n$3\r\nGET\r\n")
	assert.False(t, ok)
	_, ok = ParseText(":1\r\n")
	assert.False(t, ok)
}

func TestKindMutating(t *testing.T) {
	for _, k := range []Kind{KindSet, KindDel, KindExpire, KindClear} {
		assert.True(t, k.Mutating(), k.String())
	}
	for _, k := range []Kind{KindPing, KindEcho, KindInfo, KindGet, KindExists, KindTTL, KindKeys, KindUnknown} {
		assert.False(t, k.Mutating(), k.String())
	}
	assert.Equal(t, "unknown", Kind(99).String())
}

func ptr(v int64) *int64 { return &v }
