// Package rule defines a single rewrite rule: a name, a matcher and a
// producer.
//
// A Rule is immutable once constructed. Applying it to a payload is a pure
// function of the text the matcher captured: the leftmost match is found,
// the producer derives replacement text from the captures, and only that
// one site is replaced. Rules that should fire at several sites do so over
// successive steps.
//
// Matchers use .NET-flavoured regular expressions (github.com/dlclark/regexp2)
// because rule tables rely on back-references such as `(\w+)\s*∪\s*\1` and
// lookahead such as `x(?!\^)`, neither of which RE2 supports.
//
// Producers come in two kinds:
//
//   - Template: fixed output shape with $1, ${1}, ${name} and $$ references
//   - Computed: a Go function over the captures, for numeric folding
//
// Producers never fail. When a computed producer has no meaningful output
// (a zero divisor, say) it returns the Undefined sentinel so the rewrite
// loop can carry on deterministically.
package rule
