package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
)

// OpenAIOptions configures the OpenAI-compatible provider. The defaults
// target OpenRouter, but any chat-completions endpoint works.
type OpenAIOptions struct {
	// BaseURL is the API base URL (e.g., "https://openrouter.ai/api/v1").
	BaseURL string

	// APIKey authenticates requests.
	APIKey string

	// Timeout bounds each HTTP request. Defaults to 60s. This is the
	// per-call timeout that keeps a hung provider from pinning an
	// admission slot indefinitely.
	Timeout time.Duration

	// MaxRetries is the provider-internal retry budget for failed
	// requests. Defaults to 3. An error from Complete means this budget
	// is exhausted.
	MaxRetries int

	// RequestsPerSecond rate-limits outbound calls. Zero disables limiting.
	RequestsPerSecond float64

	// Logger is the structured logger. Defaults to slog.Default().
	Logger *slog.Logger
}

// OpenAIProvider implements Provider over an OpenAI-compatible
// chat-completions API.
type OpenAIProvider struct {
	client     *openai.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
	maxRetries int
}

// NewOpenAIProvider creates a provider from options.
func NewOpenAIProvider(opts OpenAIOptions) (*OpenAIProvider, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("OpenAI provider requires an API key")
	}
	if opts.Timeout == 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = 3
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}
	cfg.HTTPClient = &http.Client{Timeout: opts.Timeout}

	var limiter *rate.Limiter
	if opts.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}

	return &OpenAIProvider{
		client:     openai.NewClientWithConfig(cfg),
		limiter:    limiter,
		logger:     opts.Logger,
		maxRetries: opts.MaxRetries,
	}, nil
}

// Complete performs one chat completion, retrying transient failures up to
// the configured budget with doubling backoff.
func (p *OpenAIProvider) Complete(ctx context.Context, req Request) (*Response, error) {
	wireReq, err := p.toWire(req)
	if err != nil {
		return nil, err
	}

	var lastErr error
	delay := 500 * time.Millisecond
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		if attempt > 0 {
			p.logger.Warn("retrying completion", "attempt", attempt, "error", lastErr)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}

		if p.limiter != nil {
			if err := p.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		resp, err := p.client.CreateChatCompletion(ctx, wireReq)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			lastErr = err
			continue
		}
		return p.fromWire(req, &resp)
	}

	return nil, fmt.Errorf("completion failed after %d attempts: %w", p.maxRetries+1, lastErr)
}

// toWire converts a canonical Request into the chat-completions shape.
func (p *OpenAIProvider) toWire(req Request) (openai.ChatCompletionRequest, error) {
	wire := openai.ChatCompletionRequest{
		Model:           req.Model,
		ReasoningEffort: string(req.Effort),
	}
	if req.Temperature != nil {
		wire.Temperature = float32(*req.Temperature)
		if wire.Temperature == 0 {
			// go-openai marshals Temperature with omitempty, which drops an
			// explicit 0 and lets the endpoint fall back to its own default.
			// The smallest nonzero float32 survives marshalling and is
			// indistinguishable from 0 to the provider.
			wire.Temperature = math.SmallestNonzeroFloat32
		}
	}
	if req.MaxTokens != nil {
		wire.MaxCompletionTokens = *req.MaxTokens
	}

	// Consecutive tool-call messages belong to one assistant turn and must
	// travel as a single assistant message: chat-completions endpoints
	// reject a tool message that does not answer the assistant message
	// immediately before it. Results claim IDs in call order, which also
	// keeps two calls to the same tool distinct.
	var callSeq int
	pendingIDs := map[string][]string{}
	var pendingCalls []openai.ToolCall
	flushCalls := func() {
		if len(pendingCalls) == 0 {
			return
		}
		wire.Messages = append(wire.Messages, openai.ChatCompletionMessage{
			Role:      string(RoleAssistant),
			ToolCalls: pendingCalls,
		})
		pendingCalls = nil
	}

	for _, m := range req.Messages {
		if m.Kind != KindToolCall && m.Kind != KindToolResult {
			flushCalls()
		}
		switch m.Kind {
		case KindText:
			role := string(m.Role)
			if m.Role == RoleDeveloper {
				// Chat-completions endpoints without a developer role
				// treat these as system-level corrections.
				role = string(RoleSystem)
			}
			wire.Messages = append(wire.Messages, openai.ChatCompletionMessage{
				Role:    role,
				Content: m.Content,
				Name:    m.Name,
			})
		case KindStructured:
			wire.Messages = append(wire.Messages, openai.ChatCompletionMessage{
				Role:    string(RoleAssistant),
				Content: string(m.Structured),
			})
		case KindToolCall:
			callSeq++
			id := fmt.Sprintf("call_%d", callSeq)
			pendingIDs[m.ToolCall.Name] = append(pendingIDs[m.ToolCall.Name], id)
			pendingCalls = append(pendingCalls, openai.ToolCall{
				ID:   id,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      m.ToolCall.Name,
					Arguments: m.ToolCall.Arguments,
				},
			})
		case KindToolResult:
			flushCalls()
			var id string
			if ids := pendingIDs[m.Name]; len(ids) > 0 {
				id = ids[0]
				pendingIDs[m.Name] = ids[1:]
			}
			wire.Messages = append(wire.Messages, openai.ChatCompletionMessage{
				Role:       string(RoleTool),
				Content:    m.ToolResult,
				Name:       m.Name,
				ToolCallID: id,
			})
		case KindReasoning:
			// Providers do not accept reasoning as input; it stays in the
			// transcript but is not sent back over the wire.
		default:
			return openai.ChatCompletionRequest{}, fmt.Errorf("cannot send message of kind %q", m.Kind)
		}
	}
	flushCalls()

	for _, t := range req.Tools {
		wire.Tools = append(wire.Tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		})
	}

	if req.Schema != nil {
		wire.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   req.Schema.Name,
				Schema: req.Schema,
				Strict: true,
			},
		}
	}

	return wire, nil
}

// fromWire decomposes a chat-completions response.
func (p *OpenAIProvider) fromWire(req Request, resp *openai.ChatCompletionResponse) (*Response, error) {
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("provider returned no choices")
	}
	choice := resp.Choices[0]

	out := &Response{
		Reasoning:    choice.Message.ReasoningContent,
		Content:      choice.Message.Content,
		FinishReason: string(choice.FinishReason),
		Usage: TokenUsage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
			TotalTokens:  resp.Usage.TotalTokens,
		},
	}

	for _, tc := range choice.Message.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, ToolCall{
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}

	// Under a json_schema response format, the content is the structured
	// document.
	if req.Schema != nil && choice.Message.Content != "" {
		if json.Valid([]byte(choice.Message.Content)) {
			out.Structured = json.RawMessage(choice.Message.Content)
		}
	}

	return out, nil
}
