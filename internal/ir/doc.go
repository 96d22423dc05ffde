// Package ir provides the value model shared by every rewrite package.
//
// This package contains the rewritten payload and its provenance history
// only. All other internal packages import ir; ir imports nothing internal.
// This keeps the value model the foundational layer with no circular
// dependencies.
//
// Key design constraints:
//   - Value is immutable: rewriting produces a new Value, never an update
//   - History is append-only and ordered by step
//   - Payload content, not history, is a value's identity for loop detection
//   - All JSON tags use snake_case
package ir
