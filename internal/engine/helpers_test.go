package engine

import (
	"strconv"

	"github.com/roach88/rewrite/internal/rule"
)

func addRule() rule.Rule {
	return rule.MustNew("add", `\((\d+)\s*\+\s*(\d+)\)`, rule.Computed{
		Name: "add",
		Fn: func(c rule.Captures) string {
			a, _ := c.Int(1)
			b, _ := c.Int(2)
			return strconv.FormatInt(a+b, 10)
		},
	})
}

func expMultRule() rule.Rule {
	return rule.MustNew("exp_mult", `(\w+)\^(\d+)\s*\*\s*\1\^(\d+)`, rule.Template{Source: "$1^($2+$3)"})
}

// decRule counts a bare integer down to zero.
func decRule() rule.Rule {
	return rule.MustNew("dec", `^([1-9]\d*)$`, rule.Computed{
		Name: "dec",
		Fn: func(c rule.Captures) string {
			n, _ := c.Int(1)
			return strconv.FormatInt(n-1, 10)
		},
	})
}

func literal(name, pattern, out string) rule.Rule {
	return rule.MustNew(name, pattern, rule.Template{Source: out})
}

func cyclicPair() *RuleSet {
	return NewBuilder("cycle").
		Add(literal("a_to_b", `^a$`, "b"), literal("b_to_a", `^b$`, "a")).
		MustBuild()
}

func mathSet() *RuleSet {
	return NewBuilder("math").Add(addRule()).MustBuild()
}

func fixedIDs(n int) *FixedGenerator {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = "run-" + strconv.Itoa(i+1)
	}
	return NewFixedGenerator(ids...)
}
