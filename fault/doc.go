// Package fault defines the structured error taxonomy for the lab engine.
//
// Every failure mode the engine distinguishes is a Class on a single Error
// type: configuration mistakes, provider failures, schema violations,
// unknown tool names, and protocol violations. Callers dispatch on the
// class with ClassOf or the Is* helpers rather than inspecting error text,
// so the same decision logic works regardless of which model provider
// produced the underlying failure.
//
// The taxonomy drives retry behavior:
//
//   - configuration: fatal, surfaced immediately, never retried
//   - provider: propagated to the trial boundary, caught and logged there
//   - schema_violation: handled like provider failures
//   - tool_name: retried locally by the conversation driver with backoff
//   - protocol_violation: fatal for the trial, indicates a contract mismatch
package fault
