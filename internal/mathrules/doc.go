// Package mathrules ships the built-in mathematics rule table.
//
// The table lives in math.cue, embedded at build time, and compiles into a
// single RuleSet named "math". Rules are grouped by topic (arithmetic,
// algebra, calculus and so on) but keep one global priority order: the
// first group's rules are always tried first.
//
// Nothing here evaluates mathematics. Integer folding is the only
// arithmetic performed, and it is done by named computations that the
// table references with compute: instead of template:.
package mathrules
