// Package llm provides the message model and the cached model client the
// whole engine is built on.
//
// A conversation is an ordered sequence of Message values, each carrying
// exactly one payload selected by its Kind: plain text, a reasoning
// summary, schema-validated structured output, a tool call, or a tool
// result. The set of kinds is closed; agent-run items that match none of
// them are protocol violations, never silently dropped.
//
// Client wraps a Provider (the opaque external model capability) with the
// completion cache. Before any external call it computes a deterministic
// content address over the canonicalized request (model, ordered
// role/content pairs, temperature, max tokens, reasoning effort, and
// requested schema name) and returns a cached result verbatim on a hit.
// Complete returns free text, Parse returns structured output validated
// against a schema (with a tool-call-arguments fallback path), and
// CompleteTools powers the agentic tool loop.
//
// OpenAIProvider is the reference Provider over any OpenAI-compatible
// chat-completions endpoint, with per-request timeout, an internal retry
// budget, and optional rate limiting.
package llm
