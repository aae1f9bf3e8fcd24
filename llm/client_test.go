package llm

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zero-day-ai/lab/cache"
	"github.com/zero-day-ai/lab/fault"
	"github.com/zero-day-ai/lab/schema"
)

// countingProvider returns canned responses and counts external calls.
type countingProvider struct {
	calls    atomic.Int64
	response Response
	err      error
}

func (p *countingProvider) Complete(_ context.Context, _ Request) (*Response, error) {
	p.calls.Add(1)
	if p.err != nil {
		return nil, p.err
	}
	resp := p.response
	return &resp, nil
}

func TestClientComplete(t *testing.T) {
	t.Run("decomposes reasoning and text", func(t *testing.T) {
		provider := &countingProvider{response: Response{
			Reasoning: "the persona wants reassurance",
			Content:   "Everything is fine.",
		}}
		client := NewClient(provider)

		ex, err := client.Complete(context.Background(), []Message{User("hi")})
		require.NoError(t, err)
		require.NotNil(t, ex.Reasoning)
		assert.Equal(t, KindReasoning, ex.Reasoning.Kind)
		assert.Equal(t, "the persona wants reassurance", ex.Reasoning.Reasoning)
		assert.Equal(t, "Everything is fine.", ex.Output.Content)
	})

	t.Run("no reasoning message when provider returned none", func(t *testing.T) {
		provider := &countingProvider{response: Response{Content: "ok"}}
		client := NewClient(provider)

		ex, err := client.Complete(context.Background(), []Message{User("hi")})
		require.NoError(t, err)
		assert.Nil(t, ex.Reasoning)
	})

	t.Run("provider error becomes fault.Provider", func(t *testing.T) {
		provider := &countingProvider{err: errors.New("upstream 500")}
		client := NewClient(provider)

		_, err := client.Complete(context.Background(), []Message{User("hi")})
		require.Error(t, err)
		assert.Equal(t, fault.ClassProvider, fault.ClassOf(err))
	})
}

func TestClientCacheShortCircuit(t *testing.T) {
	provider := &countingProvider{response: Response{Content: "cached answer"}}
	client := NewClient(provider, WithCache(cache.NewMemoryStore()))
	messages := []Message{System("persona"), User("hello")}

	first, err := client.Complete(context.Background(), messages)
	require.NoError(t, err)

	second, err := client.Complete(context.Background(), messages)
	require.NoError(t, err)

	// The second call must be served from the cache: the provider call
	// counter stays at 1 and the pair comes back verbatim.
	assert.Equal(t, int64(1), provider.calls.Load())
	assert.Equal(t, first, second)
}

func TestClientCacheMissOnDifferentInput(t *testing.T) {
	provider := &countingProvider{response: Response{Content: "answer"}}
	client := NewClient(provider, WithCache(cache.NewMemoryStore()))

	_, err := client.Complete(context.Background(), []Message{User("one")})
	require.NoError(t, err)
	_, err = client.Complete(context.Background(), []Message{User("two")})
	require.NoError(t, err)

	assert.Equal(t, int64(2), provider.calls.Load())
}

func judgementSchema() *schema.Schema {
	return schema.New("judgement", schema.Object(map[string]schema.JSON{
		"violates":  schema.Bool(),
		"reasoning": schema.String(),
	}, "violates", "reasoning"))
}

func TestClientParse(t *testing.T) {
	ctx := context.Background()

	t.Run("native structured path", func(t *testing.T) {
		provider := &countingProvider{response: Response{
			Structured: json.RawMessage(`{"violates":true,"reasoning":"lied to user"}`),
		}}
		client := NewClient(provider)

		ex, err := client.Parse(ctx, []Message{System("judge this")}, judgementSchema())
		require.NoError(t, err)
		assert.Equal(t, KindStructured, ex.Output.Kind)
		assert.JSONEq(t, `{"violates":true,"reasoning":"lied to user"}`, string(ex.Output.Structured))
	})

	t.Run("tool-call arguments fallback", func(t *testing.T) {
		provider := &countingProvider{response: Response{
			ToolCalls: []ToolCall{{
				Name:      "judgement",
				Arguments: `{"violates":false,"reasoning":"clean transcript"}`,
			}},
		}}
		client := NewClient(provider)

		ex, err := client.Parse(ctx, []Message{System("judge this")}, judgementSchema())
		require.NoError(t, err)
		assert.JSONEq(t, `{"violates":false,"reasoning":"clean transcript"}`, string(ex.Output.Structured))
	})

	t.Run("no structured data is a schema violation", func(t *testing.T) {
		provider := &countingProvider{response: Response{Content: "I refuse"}}
		client := NewClient(provider)

		_, err := client.Parse(ctx, []Message{System("judge this")}, judgementSchema())
		require.Error(t, err)
		assert.Equal(t, fault.ClassSchema, fault.ClassOf(err))
	})

	t.Run("invalid structured data is a schema violation", func(t *testing.T) {
		provider := &countingProvider{response: Response{
			Structured: json.RawMessage(`{"violates":"maybe"}`),
		}}
		client := NewClient(provider)

		_, err := client.Parse(ctx, []Message{System("judge this")}, judgementSchema())
		require.Error(t, err)
		assert.Equal(t, fault.ClassSchema, fault.ClassOf(err))
	})

	t.Run("nil schema is a configuration error", func(t *testing.T) {
		client := NewClient(&countingProvider{})
		_, err := client.Parse(ctx, []Message{System("x")}, nil)
		require.Error(t, err)
		assert.Equal(t, fault.ClassConfiguration, fault.ClassOf(err))
	})
}

func TestClientParseCached(t *testing.T) {
	provider := &countingProvider{response: Response{
		Structured: json.RawMessage(`{"violates":true,"reasoning":"r"}`),
	}}
	client := NewClient(provider, WithCache(cache.NewMemoryStore()))
	messages := []Message{System("judge this transcript")}

	first, err := client.Parse(context.Background(), messages, judgementSchema())
	require.NoError(t, err)
	second, err := client.Parse(context.Background(), messages, judgementSchema())
	require.NoError(t, err)

	assert.Equal(t, int64(1), provider.calls.Load())
	assert.Equal(t, first, second)
}

func TestClientCompleteTools(t *testing.T) {
	provider := &countingProvider{response: Response{
		Reasoning: "should check the time first",
		ToolCalls: []ToolCall{{Name: "get_time", Arguments: "{}"}},
	}}
	client := NewClient(provider)

	turn, err := client.CompleteTools(context.Background(), []Message{User("status?")}, []ToolDef{{Name: "get_time"}})
	require.NoError(t, err)
	require.NotNil(t, turn.Reasoning)
	assert.Nil(t, turn.Text)
	require.Len(t, turn.ToolCalls, 1)
	assert.Equal(t, "get_time", turn.ToolCalls[0].Name)
}
