package rule

import (
	"fmt"
	"strconv"
	"strings"
)

// Undefined is the sentinel payload a computed producer returns when its
// captures have no meaningful result, such as a literal zero divisor.
const Undefined = "undefined"

// Producer derives replacement text from the captures of a match.
//
// Producer is sealed: Template and Computed are the only implementations,
// and Rule.Apply switches over them exhaustively.
type Producer interface {
	producer()
	// Describe returns a short human-readable form for listings.
	Describe() string
}

// ComputeFunc computes replacement text from captures.
// It must be pure and must not fail; return Undefined instead.
type ComputeFunc func(Captures) string

// Template substitutes captures into a fixed output shape.
//
// References: $N and ${N} for positional groups (at most two digits for
// the bare form), ${name} for named groups, and $$ for a literal dollar.
type Template struct {
	Source string
}

func (Template) producer() {}

// Describe returns the template source.
func (t Template) Describe() string {
	return t.Source
}

// Computed derives output with a named Go function.
type Computed struct {
	Name string
	Fn   ComputeFunc
}

func (Computed) producer() {}

// Describe returns the function name.
func (c Computed) Describe() string {
	return "compute:" + c.Name
}

// templatePart is one literal run or one group reference of a template.
type templatePart struct {
	literal string
	group   int    // -1 when the part is a literal or a named reference
	name    string // set for ${name} references
}

// parseTemplate splits a template into literal and reference parts.
func parseTemplate(src string) ([]templatePart, error) {
	var parts []templatePart
	var lit strings.Builder

	flush := func() {
		if lit.Len() > 0 {
			parts = append(parts, templatePart{literal: lit.String(), group: -1})
			lit.Reset()
		}
	}

	for i := 0; i < len(src); i++ {
		c := src[i]
		if c != '$' || i+1 >= len(src) {
			lit.WriteByte(c)
			continue
		}

		next := src[i+1]
		switch {
		case next == '$':
			lit.WriteByte('$')
			i++

		case next == '{':
			end := strings.IndexByte(src[i+2:], '}')
			if end < 0 {
				return nil, fmt.Errorf("unterminated ${ at offset %d", i)
			}
			ref := src[i+2 : i+2+end]
			if ref == "" {
				return nil, fmt.Errorf("empty ${} at offset %d", i)
			}
			flush()
			if n, err := strconv.Atoi(ref); err == nil {
				if n < 0 {
					return nil, fmt.Errorf("negative group reference ${%s} at offset %d", ref, i)
				}
				parts = append(parts, templatePart{group: n})
			} else {
				parts = append(parts, templatePart{group: -1, name: ref})
			}
			i += 2 + end

		case isDigit(next):
			j := i + 1
			for j < len(src) && j < i+3 && isDigit(src[j]) {
				j++
			}
			n, _ := strconv.Atoi(src[i+1 : j])
			flush()
			parts = append(parts, templatePart{group: n})
			i = j - 1

		default:
			lit.WriteByte(c)
		}
	}
	flush()

	return parts, nil
}

// checkTemplate verifies every reference resolves against the matcher.
func checkTemplate(parts []templatePart, m *Matcher) error {
	names := make(map[string]bool)
	for _, n := range m.GroupNames() {
		names[n] = true
	}
	for _, p := range parts {
		switch {
		case p.name != "":
			if !names[p.name] {
				return fmt.Errorf("template references unknown group ${%s}", p.name)
			}
		case p.group > m.GroupCount():
			return fmt.Errorf("template references group $%d but pattern has %d", p.group, m.GroupCount())
		}
	}
	return nil
}

// expandTemplate renders parsed parts against captures.
func expandTemplate(parts []templatePart, caps Captures) string {
	var b strings.Builder
	for _, p := range parts {
		switch {
		case p.name != "":
			b.WriteString(caps.Named(p.name))
		case p.group >= 0:
			b.WriteString(caps.At(p.group))
		default:
			b.WriteString(p.literal)
		}
	}
	return b.String()
}

// TemplateRefs reports whether a template refers to any capture at all.
// Templates without references always produce the same text.
func TemplateRefs(src string) (bool, error) {
	parts, err := parseTemplate(src)
	if err != nil {
		return false, err
	}
	for _, p := range parts {
		if p.group >= 0 || p.name != "" {
			return true, nil
		}
	}
	return false, nil
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
