package llm

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/zero-day-ai/lab/cache"
	"github.com/zero-day-ai/lab/fault"
	"github.com/zero-day-ai/lab/schema"
)

// Exchange is the decomposed result of one model call: an optional
// reasoning message and the required output message (text or structured).
type Exchange struct {
	// Reasoning is present only if the provider returned non-empty
	// reasoning content.
	Reasoning *Message

	// Output is the text or structured-output message.
	Output Message
}

// ToolTurn is the decomposed result of one tool-capable model call.
type ToolTurn struct {
	// Reasoning is present only if the provider returned reasoning content.
	Reasoning *Message

	// Text is the assistant text for this turn, nil on a pure tool-call turn.
	Text *Message

	// ToolCalls are the tool invocations the model requested, in order.
	ToolCalls []ToolCall
}

// Client wraps a Provider with the completion cache and fixed sampling
// configuration. Every call first computes the content-addressed cache key;
// a hit returns the stored result verbatim and skips the external call
// entirely, including any provider-side accounting.
type Client struct {
	provider    Provider
	store       cache.Store
	logger      *slog.Logger
	model       string
	temperature *float64
	maxTokens   *int
	effort      Effort
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithModel sets the provider-side model identifier.
func WithModel(model string) ClientOption {
	return func(c *Client) { c.model = model }
}

// WithTemperature fixes the sampling temperature.
func WithTemperature(t float64) ClientOption {
	return func(c *Client) { c.temperature = &t }
}

// WithMaxTokens bounds generation length. Unset means unbounded.
func WithMaxTokens(n int) ClientOption {
	return func(c *Client) { c.maxTokens = &n }
}

// WithEffort sets the reasoning-effort level.
func WithEffort(e Effort) ClientOption {
	return func(c *Client) { c.effort = e }
}

// WithCache attaches a completion cache. Without one, every call goes to
// the provider.
func WithCache(store cache.Store) ClientOption {
	return func(c *Client) { c.store = store }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) { c.logger = logger }
}

// NewClient creates a Client over the given provider.
func NewClient(provider Provider, opts ...ClientOption) *Client {
	zero := 0.0
	c := &Client{
		provider:    provider,
		logger:      slog.Default(),
		model:       "openai/gpt-oss-20b",
		temperature: &zero,
		effort:      EffortMedium,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Model returns the configured model identifier.
func (c *Client) Model() string {
	return c.model
}

// Complete issues a completion over the conversation and returns the
// optional reasoning message plus the assistant text message.
func (c *Client) Complete(ctx context.Context, messages []Message) (*Exchange, error) {
	resp, err := c.do(ctx, c.request(messages, nil, nil))
	if err != nil {
		return nil, err
	}

	ex := &Exchange{Output: Assistant(resp.Content)}
	if resp.Reasoning != "" {
		r := NewReasoning(resp.Reasoning)
		ex.Reasoning = &r
	}
	return ex, nil
}

// Parse issues a completion requesting structured output and validates the
// result against s. Structured data is taken from the provider's native
// parsed path first, then from the first tool call's arguments as a
// fallback; if both are absent the provider refused to produce output and
// a schema violation is reported, never a defaulted value.
func (c *Client) Parse(ctx context.Context, messages []Message, s *schema.Schema) (*Exchange, error) {
	if s == nil || s.Name == "" {
		return nil, fault.Configuration("parse requires a named schema")
	}

	resp, err := c.do(ctx, c.request(messages, s, nil))
	if err != nil {
		return nil, err
	}

	var data json.RawMessage
	switch {
	case resp.HasStructured():
		data = resp.Structured
	case resp.HasToolCalls():
		data = json.RawMessage(resp.ToolCalls[0].Arguments)
	default:
		return nil, fault.SchemaViolation(nil, "provider returned no structured output for schema %q", s.Name)
	}

	if err := s.Validate(data); err != nil {
		return nil, fault.SchemaViolation(err, "structured output failed validation")
	}

	ex := &Exchange{Output: NewStructured(data)}
	if resp.Reasoning != "" {
		r := NewReasoning(resp.Reasoning)
		ex.Reasoning = &r
	}
	return ex, nil
}

// CompleteTools issues a tool-capable completion over the conversation.
// The returned turn carries any reasoning, any assistant text, and the
// tool calls the model requested. Tool definitions do not participate in
// the cache key; the conversation's tool-call and tool-result turns
// already distinguish successive requests.
func (c *Client) CompleteTools(ctx context.Context, messages []Message, tools []ToolDef) (*ToolTurn, error) {
	resp, err := c.do(ctx, c.request(messages, nil, tools))
	if err != nil {
		return nil, err
	}

	turn := &ToolTurn{ToolCalls: resp.ToolCalls}
	if resp.Reasoning != "" {
		r := NewReasoning(resp.Reasoning)
		turn.Reasoning = &r
	}
	if resp.Content != "" {
		t := Assistant(resp.Content)
		turn.Text = &t
	}
	return turn, nil
}

// request builds the canonical Request for this client's configuration.
func (c *Client) request(messages []Message, s *schema.Schema, tools []ToolDef) Request {
	return Request{
		Model:       c.model,
		Messages:    messages,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
		Effort:      c.effort,
		Schema:      s,
		Tools:       tools,
	}
}

// do performs the cache-then-provider dance shared by every call type.
func (c *Client) do(ctx context.Context, req Request) (*Response, error) {
	key := CacheKey(req)

	if c.store != nil {
		data, err := c.store.Get(ctx, key)
		switch {
		case err == nil:
			var resp Response
			if uerr := json.Unmarshal(data, &resp); uerr == nil {
				c.logger.Debug("completion cache hit", "key", key)
				return &resp, nil
			}
			c.logger.Warn("discarding undecodable cache entry", "key", key)
		case !errors.Is(err, cache.ErrNotFound):
			c.logger.Warn("cache lookup failed, calling provider", "key", key, "error", err)
		}
	}

	resp, err := c.provider.Complete(ctx, req)
	if err != nil {
		if fault.ClassOf(err) != "" {
			return nil, err
		}
		return nil, fault.Provider(err, "completion failed for model %s", req.Model)
	}

	if c.store != nil {
		if data, merr := json.Marshal(resp); merr == nil {
			if serr := c.store.Set(ctx, key, data); serr != nil {
				c.logger.Warn("failed to store completion in cache", "key", key, "error", serr)
			}
		}
	}

	return resp, nil
}
