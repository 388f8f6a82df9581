// Package session persists chat conversation history as JSONL files, one
// file per session.
//
// Invariants:
// - Session keys are validated and path-safe.
// - Writes for the same session are serialized.
// - Corrupted lines are skipped on load and can be dropped with Repair.
package session
