// Package engine implements the rewrite loop.
//
// A RuleSet is an ordered, frozen list of rules. A Sequencer owns one run:
// it offers the pending value to each registered RuleSet in order, lets
// the first applicable one rewrite it, and feeds the result back in.
//
// Run loop:
//  1. Dequeue the pending value (there is never more than one).
//  2. Find the first applicable RuleSet. None means Terminated.
//  3. If the step quota is spent, the run is Aborted with a
//     BoundedLoopError carrying the full history.
//  4. Otherwise apply it, record the attempt, count the step and enqueue
//     the new value.
//
// Determinism:
// The same seed, RuleSets and limit always yield the same history. There
// is no randomness and no concurrency inside a run; RunBatch only runs
// independent Sequencers side by side.
//
// Loop guard:
// A RuleSet is never applied twice to the same payload text while its
// marker is live. With GuardScopeRun (the default) markers last the whole
// run; with GuardScopeValue they are dropped after every step, and only
// the step limit stops a cycle.
package engine
