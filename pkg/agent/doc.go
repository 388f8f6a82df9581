// Package agent orchestrates session-aware LLM conversations with tool
// loops and provider failover.
//
// Invariants:
// - Runs for the same session are serialized.
// - History is loaded before execution and persisted after execution.
// - Tool calls route through toolexecutor only.
package agent
