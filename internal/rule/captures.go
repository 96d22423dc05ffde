package rule

import (
	"strconv"
	"strings"
)

// Captures holds the text of each group of a match.
// Group 0 is the whole match.
type Captures struct {
	groups []string
	names  map[string]int
}

// NewCaptures builds captures from positional group text, group 0 first.
// Mostly useful for testing computed producers directly.
func NewCaptures(groups ...string) Captures {
	names := make(map[string]int, len(groups))
	for i := range groups {
		names[strconv.Itoa(i)] = i
	}
	return Captures{groups: groups, names: names}
}

// Len returns the number of groups including group 0.
func (c Captures) Len() int {
	return len(c.groups)
}

// At returns the text of group i, or "" when i is out of range or the
// group did not participate in the match.
func (c Captures) At(i int) string {
	if i < 0 || i >= len(c.groups) {
		return ""
	}
	return c.groups[i]
}

// Named returns the text of the named group, or "" if there is none.
func (c Captures) Named(name string) string {
	i, ok := c.names[name]
	if !ok {
		return ""
	}
	return c.groups[i]
}

// Int parses group i as a base-10 integer, ignoring surrounding spaces.
func (c Captures) Int(i int) (int64, bool) {
	n, err := strconv.ParseInt(strings.TrimSpace(c.At(i)), 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
