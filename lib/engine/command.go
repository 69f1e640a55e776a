package engine

import (
	"strconv"
	"strings"

	"github.com/ValentinKolb/cKV/lib/db/util"
	"github.com/ValentinKolb/cKV/lib/resp"
)

// --------------------------------------------------------------------------
// Command Kinds
// --------------------------------------------------------------------------

// Kind identifies a command
type Kind int

const (
	KindUnknown Kind = iota

	// Informational commands

	KindPing // Liveness check
	KindEcho // Returns its arguments
	KindInfo // Server and keyspace statistics

	// Query commands

	KindGet    // Value of a key
	KindExists // Whether a key is live
	KindTTL    // Remaining lifetime of a key
	KindKeys   // Keys matching a pattern

	// Mutating commands (logged)

	KindSet    // Insert or replace a key
	KindDel    // Remove a key
	KindExpire // Set the expiry of a key
	KindClear  // Remove all keys

	numKinds
)

var kindNames = [numKinds]string{
	KindUnknown: "unknown",
	KindPing:    "ping",
	KindEcho:    "echo",
	KindInfo:    "info",
	KindGet:     "get",
	KindExists:  "exists",
	KindTTL:     "ttl",
	KindKeys:    "keys",
	KindSet:     "set",
	KindDel:     "del",
	KindExpire:  "expire",
	KindClear:   "clear",
}

// String returns the lower case command name
func (k Kind) String() string {
	if k < 0 || k >= numKinds {
		return kindNames[KindUnknown]
	}
	return kindNames[k]
}

// Mutating reports whether commands of this kind change the store
func (k Kind) Mutating() bool {
	return k >= KindSet && k < numKinds
}

// KindOf returns the kind for a command name (case-insensitive)
func KindOf(name string) Kind {
	name = strings.ToLower(name)
	for k := KindPing; k < numKinds; k++ {
		if kindNames[k] == name {
			return k
		}
	}
	return KindUnknown
}

// --------------------------------------------------------------------------
// Command
// --------------------------------------------------------------------------

// ttlMarker introduces the trailing ttl of a SET
const ttlMarker = "EX"

// Command is a validated request. Which fields are used depends on Kind:
//
//	ECHO           Value (arguments joined with single spaces)
//	SET            Key, Value, TTL (nil without EX)
//	GET DEL EXISTS Key
//	TTL            Key
//	KEYS           Pattern
//	EXPIRE         Key, Seconds
//
// Args always holds the argument list as received, including the command
// name. It is what gets written to the log.
type Command struct {
	Kind    Kind
	Key     string
	Value   string
	Pattern string
	Seconds int64
	TTL     *int64
	Args    []string
}

func (c *Command) String() string {
	return strings.Join(c.Args, " ")
}

// ParseText decodes text and parses the first value as a command
func ParseText(text string) (*Command, bool) {
	v, err := resp.Decode(text)
	if err != nil {
		return nil, false
	}
	return Parse(v)
}

// Parse turns a decoded request into a command. The request must be a non
// empty array, its first element names the command. Non string elements are
// used by their text. ok is false for unknown commands and invalid arguments.
//
// A SET recognizes a ttl if its last two arguments after the key are "EX" and
// an integer, so "SET k EX 10" stores an empty value with a ttl. A value that
// itself ends in the words "EX <integer>" is therefore read as a ttl.
func Parse(v resp.Value) (cmd *Command, ok bool) {
	all, isArray := v.Strings()
	if !isArray || len(all) == 0 {
		return nil, false
	}

	cmd = &Command{Kind: KindOf(all[0]), Args: all}
	args := all[1:]

	switch cmd.Kind {
	case KindPing, KindClear, KindInfo:
		return cmd, true

	case KindEcho:
		cmd.Value = strings.Join(args, " ")
		return cmd, true

	case KindSet:
		if len(args) < 2 {
			return nil, false
		}
		cmd.Key = args[0]
		words := args[1:]
		if n := len(words); n >= 2 && words[n-2] == ttlMarker {
			if seconds, err := strconv.ParseInt(words[n-1], 10, 64); err == nil {
				cmd.TTL = &seconds
				words = words[:n-2]
			}
		}
		cmd.Value = strings.Join(words, " ")
		return cmd, true

	case KindGet, KindDel, KindExists, KindTTL:
		if len(args) != 1 {
			return nil, false
		}
		cmd.Key = args[0]
		return cmd, true

	case KindKeys:
		switch len(args) {
		case 0:
			cmd.Pattern = util.MatchAll
		case 1:
			cmd.Pattern = args[0]
		default:
			return nil, false
		}
		return cmd, true

	case KindExpire:
		if len(args) != 2 {
			return nil, false
		}
		seconds, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return nil, false
		}
		cmd.Key = args[0]
		cmd.Seconds = seconds
		return cmd, true

	default:
		return nil, false
	}
}
