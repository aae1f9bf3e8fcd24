package llm

import (
	"context"
	"encoding/json"

	"github.com/zero-day-ai/lab/schema"
)

// Effort is the reasoning-effort level requested from the provider.
type Effort string

const (
	EffortMinimal Effort = "minimal"
	EffortLow     Effort = "low"
	EffortMedium  Effort = "medium"
	EffortHigh    Effort = "high"
)

// ToolDef describes a tool made available to the model for a completion.
type ToolDef struct {
	// Name is the exact tool name the model must use to invoke it.
	Name string

	// Description explains when the model should use the tool.
	Description string

	// Parameters is the JSON Schema for the tool's arguments.
	Parameters json.RawMessage
}

// Request is a canonical completion request handed to a Provider.
type Request struct {
	// Model is the provider-side model identifier.
	Model string

	// Messages contains the ordered conversation history.
	Messages []Message

	// Temperature controls randomness. Nil means provider default.
	Temperature *float64

	// MaxTokens limits generation. Nil means unbounded.
	MaxTokens *int

	// Effort is the reasoning-effort level.
	Effort Effort

	// Schema optionally requests schema-constrained structured output.
	Schema *schema.Schema

	// Tools contains tool definitions available to the model.
	Tools []ToolDef
}

// Response is the decomposed result of a provider call.
type Response struct {
	// Reasoning is the model's reasoning content, empty if none was returned.
	Reasoning string

	// Content is the generated text content.
	Content string

	// Structured is natively parsed structured output, nil if none.
	Structured json.RawMessage

	// ToolCalls contains tool invocations requested by the model.
	ToolCalls []ToolCall

	// FinishReason indicates why generation stopped.
	FinishReason string

	// Usage contains token usage statistics.
	Usage TokenUsage
}

// TokenUsage tracks token consumption for a request.
type TokenUsage struct {
	// InputTokens is the number of tokens in the input/prompt.
	InputTokens int

	// OutputTokens is the number of tokens generated in the response.
	OutputTokens int

	// TotalTokens is the sum of input and output tokens.
	TotalTokens int
}

// Add combines two TokenUsage instances.
func (u TokenUsage) Add(other TokenUsage) TokenUsage {
	return TokenUsage{
		InputTokens:  u.InputTokens + other.InputTokens,
		OutputTokens: u.OutputTokens + other.OutputTokens,
		TotalTokens:  u.TotalTokens + other.TotalTokens,
	}
}

// Provider is the external model capability: one call in, one response out.
// The wire format behind it is opaque to the engine. Implementations carry
// their own retry and timeout budgets; an error from Complete means that
// budget is exhausted.
type Provider interface {
	Complete(ctx context.Context, req Request) (*Response, error)
}

// HasToolCalls returns true if the response contains tool calls.
func (r *Response) HasToolCalls() bool {
	return len(r.ToolCalls) > 0
}

// HasStructured returns true if the response contains natively parsed
// structured output.
func (r *Response) HasStructured() bool {
	return len(r.Structured) > 0
}
