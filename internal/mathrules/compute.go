package mathrules

import (
	"math/big"
	"strconv"
	"strings"

	"github.com/roach88/rewrite/internal/compiler"
	"github.com/roach88/rewrite/internal/rule"
)

// Folding bounds. Larger operands produce rule.Undefined rather than
// unbounded output.
const (
	MaxExponent  = 4096
	MaxFactorial = 1000
)

// Computations returns the computed producers referenced by math.cue.
func Computations() compiler.Computations {
	return compiler.Computations{
		"add":       binary(func(a, b *big.Int) string { return new(big.Int).Add(a, b).String() }),
		"subtract":  binary(func(a, b *big.Int) string { return new(big.Int).Sub(a, b).String() }),
		"multiply":  binary(func(a, b *big.Int) string { return new(big.Int).Mul(a, b).String() }),
		"divide":    binary(divide),
		"power":     binary(power),
		"factorial": unary(factorial),
		"d_power":   unary(derivePower),
		"int_power": unary(integratePower),
	}
}

// bigAt parses capture i as an arbitrary-precision integer.
func bigAt(c rule.Captures, i int) (*big.Int, bool) {
	return new(big.Int).SetString(strings.TrimSpace(c.At(i)), 10)
}

func unary(fn func(n *big.Int) string) rule.ComputeFunc {
	return func(c rule.Captures) string {
		n, ok := bigAt(c, 1)
		if !ok {
			return rule.Undefined
		}
		return fn(n)
	}
}

func binary(fn func(a, b *big.Int) string) rule.ComputeFunc {
	return func(c rule.Captures) string {
		a, okA := bigAt(c, 1)
		b, okB := bigAt(c, 2)
		if !okA || !okB {
			return rule.Undefined
		}
		return fn(a, b)
	}
}

// divide returns an exact quotient when b divides a, and otherwise a
// decimal with 14 significant digits.
func divide(a, b *big.Int) string {
	if b.Sign() == 0 {
		return rule.Undefined
	}
	q, r := new(big.Int).QuoRem(a, b, new(big.Int))
	if r.Sign() == 0 {
		return q.String()
	}
	f, _ := new(big.Rat).SetFrac(a, b).Float64()
	return strconv.FormatFloat(f, 'G', 14, 64)
}

func power(a, b *big.Int) string {
	if !b.IsInt64() || b.Int64() > MaxExponent {
		return rule.Undefined
	}
	return new(big.Int).Exp(a, b, nil).String()
}

func factorial(n *big.Int) string {
	if !n.IsInt64() || n.Int64() > MaxFactorial {
		return rule.Undefined
	}
	r := big.NewInt(1)
	for i := int64(2); i <= n.Int64(); i++ {
		r.Mul(r, big.NewInt(i))
	}
	return r.String()
}

// derivePower renders d/dx x^n as n*x^(n-1).
func derivePower(n *big.Int) string {
	prev := new(big.Int).Sub(n, big.NewInt(1))
	return n.String() + "*x^" + prev.String()
}

// integratePower renders the antiderivative of x^n.
func integratePower(n *big.Int) string {
	next := new(big.Int).Add(n, big.NewInt(1)).String()
	return "x^" + next + "/" + next + " + C"
}
