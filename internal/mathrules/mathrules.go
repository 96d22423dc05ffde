package mathrules

import (
	_ "embed"
	"fmt"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/roach88/rewrite/internal/compiler"
	"github.com/roach88/rewrite/internal/engine"
)

// RuleSetName is the name of the single built-in RuleSet.
const RuleSetName = "math"

//go:embed math.cue
var source []byte

// Source returns the embedded CUE table.
func Source() []byte {
	return source
}

var load = sync.OnceValues(func() (*compiler.Table, error) {
	v := cuecontext.New().CompileBytes(source, cue.Filename("math.cue"))
	table, err := compiler.CompileTable(v, Computations())
	if err != nil {
		return nil, fmt.Errorf("compile built-in math table: %w", err)
	}
	return table, nil
})

// Table returns the compiled built-in table. It is compiled once and
// shared; RuleSets are immutable so sharing is safe.
func Table() (*compiler.Table, error) {
	return load()
}

// RuleSets returns the built-in RuleSets in registration order.
func RuleSets() ([]*engine.RuleSet, error) {
	t, err := load()
	if err != nil {
		return nil, err
	}
	return t.RuleSets, nil
}

// Count returns the number of built-in rules.
func Count() (int, error) {
	t, err := load()
	if err != nil {
		return 0, err
	}
	return t.Count(), nil
}
