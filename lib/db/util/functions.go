package util

import (
	"strings"

	"github.com/gobwas/glob"
)

// --------------------------------------------------------------------------
// Pattern Matching
// --------------------------------------------------------------------------

// MatchAll is the pattern that matches every key without filtering.
const MatchAll = "*"

// globEscaper escapes every glob meta character except '*' and '?', key
// patterns only know those two wildcards.
var globEscaper = strings.NewReplacer(
	`\`, `\\`,
	`[`, `\[`,
	`]`, `\]`,
	`{`, `\{`,
	`}`, `\}`,
)

// Matcher matches keys against a pattern where '*' matches any run of
// characters (including none) and '?' matches exactly one character.
// The whole key must match.
type Matcher struct {
	all bool
	g   glob.Glob
}

// NewMatcher compiles pattern. The pattern "*" matches everything without
// inspecting the key.
func NewMatcher(pattern string) (*Matcher, error) {
	if pattern == MatchAll {
		return &Matcher{all: true}, nil
	}
	g, err := glob.Compile(globEscaper.Replace(pattern))
	if err != nil {
		return nil, err
	}
	return &Matcher{g: g}, nil
}

// Match reports whether key matches.
func (m *Matcher) Match(key string) bool {
	return m.all || m.g.Match(key)
}

// MatchPattern is a convenience wrapper around NewMatcher for a single key.
// An invalid pattern matches nothing.
func MatchPattern(pattern, key string) bool {
	m, err := NewMatcher(pattern)
	if err != nil {
		return false
	}
	return m.Match(key)
}
