package rule

import (
	"fmt"
	"log/slog"

	"github.com/dlclark/regexp2"
)

// Matcher is a compiled pattern over payload text.
type Matcher struct {
	pattern string
	re      *regexp2.Regexp
}

// Match is the leftmost occurrence of a matcher in a payload.
// Index and Length are measured in runes, not bytes.
type Match struct {
	Index    int
	Length   int
	Captures Captures
}

// CompileMatcher compiles a pattern. Syntax errors surface here, at
// construction time, and never during a rewrite run.
//
// Patterns use Perl syntax with back-references and lookaround. \w, \d
// and \s are ASCII-only, so symbols like λ or ∅ are never word characters.
func CompileMatcher(pattern string) (*Matcher, error) {
	if pattern == "" {
		return nil, fmt.Errorf("pattern is empty")
	}
	re, err := regexp2.Compile(pattern, regexp2.RE2)
	if err != nil {
		return nil, fmt.Errorf("compile pattern %q: %w", pattern, err)
	}
	return &Matcher{pattern: pattern, re: re}, nil
}

// Pattern returns the source pattern.
func (m *Matcher) Pattern() string {
	return m.pattern
}

// GroupCount returns the number of capture groups, excluding group 0.
func (m *Matcher) GroupCount() int {
	return len(m.re.GetGroupNumbers()) - 1
}

// GroupNames returns the names of all groups. Unnamed groups are reported
// by their number, so "1", "2" and so on.
func (m *Matcher) GroupNames() []string {
	return m.re.GetGroupNames()
}

// MatchString reports whether the pattern occurs anywhere in s.
func (m *Matcher) MatchString(s string) bool {
	ok, err := m.re.MatchString(s)
	if err != nil {
		// regexp2 only errors on MatchTimeout, which is never set.
		slog.Warn("matcher failed", "pattern", m.pattern, "error", err)
		return false
	}
	return ok
}

// Find returns the leftmost match of the pattern in s.
func (m *Matcher) Find(s string) (Match, bool) {
	found, err := m.re.FindStringMatch(s)
	if err != nil {
		slog.Warn("matcher failed", "pattern", m.pattern, "error", err)
		return Match{}, false
	}
	if found == nil {
		return Match{}, false
	}

	groups := found.Groups()
	caps := Captures{
		groups: make([]string, len(groups)),
		names:  make(map[string]int, len(groups)),
	}
	for i, g := range groups {
		caps.groups[i] = g.String()
		caps.names[g.Name] = i
	}

	return Match{
		Index:    found.Index,
		Length:   found.Length,
		Captures: caps,
	}, true
}
