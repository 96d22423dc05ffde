package rule

import "fmt"

// Rule is a named (matcher, producer) pair.
//
// The zero Rule is not usable; construct rules with New or MustNew.
type Rule struct {
	name     string
	matcher  *Matcher
	producer Producer
	parts    []templatePart // parsed Template, nil for Computed
}

// New compiles a rule. Pattern syntax errors, template references to
// groups the pattern does not have, and computed producers without a
// function are all rejected here.
func New(name, pattern string, p Producer) (Rule, error) {
	if name == "" {
		return Rule{}, fmt.Errorf("rule name is required")
	}
	m, err := CompileMatcher(pattern)
	if err != nil {
		return Rule{}, fmt.Errorf("rule %s: %w", name, err)
	}

	r := Rule{name: name, matcher: m, producer: p}

	switch prod := p.(type) {
	case Template:
		parts, err := parseTemplate(prod.Source)
		if err != nil {
			return Rule{}, fmt.Errorf("rule %s: %w", name, err)
		}
		if err := checkTemplate(parts, m); err != nil {
			return Rule{}, fmt.Errorf("rule %s: %w", name, err)
		}
		r.parts = parts
	case Computed:
		if prod.Fn == nil {
			return Rule{}, fmt.Errorf("rule %s: computed producer %q has no function", name, prod.Name)
		}
	case nil:
		return Rule{}, fmt.Errorf("rule %s: producer is required", name)
	default:
		return Rule{}, fmt.Errorf("rule %s: unsupported producer %T", name, p)
	}

	return r, nil
}

// MustNew is like New but panics on error.
// Use only for rules known to be valid, such as in tests.
func MustNew(name, pattern string, p Producer) Rule {
	r, err := New(name, pattern, p)
	if err != nil {
		panic(err)
	}
	return r
}

// Name returns the rule name.
func (r Rule) Name() string { return r.name }

// Pattern returns the matcher's source pattern.
func (r Rule) Pattern() string { return r.matcher.Pattern() }

// Producer returns the rule's producer.
func (r Rule) Producer() Producer { return r.producer }

// Matcher returns the compiled matcher.
func (r Rule) Matcher() *Matcher { return r.matcher }

// Matches reports whether the rule applies anywhere in payload.
func (r Rule) Matches(payload string) bool {
	return r.matcher.MatchString(payload)
}

// Apply rewrites the leftmost match in payload and leaves the rest of the
// text untouched. ok is false when the rule does not match.
func (r Rule) Apply(payload string) (out string, ok bool) {
	m, found := r.matcher.Find(payload)
	if !found {
		return "", false
	}

	replacement := r.produce(m.Captures)

	runes := []rune(payload)
	return string(runes[:m.Index]) + replacement + string(runes[m.Index+m.Length:]), true
}

func (r Rule) produce(caps Captures) string {
	switch p := r.producer.(type) {
	case Template:
		return expandTemplate(r.parts, caps)
	case Computed:
		return p.Fn(caps)
	default:
		panic(fmt.Sprintf("rule %s: unsupported producer %T", r.name, r.producer))
	}
}
