package agent

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zero-day-ai/lab/fault"
	"github.com/zero-day-ai/lab/llm"
	"github.com/zero-day-ai/lab/schema"
)

// turnProvider replays canned tool turns in order.
type turnProvider struct {
	calls atomic.Int64
	turns []*llm.Response
}

func (p *turnProvider) Complete(_ context.Context, _ llm.Request) (*llm.Response, error) {
	n := p.calls.Add(1)
	idx := int(n) - 1
	if idx >= len(p.turns) {
		idx = len(p.turns) - 1
	}
	return p.turns[idx], nil
}

func weatherTool(t *testing.T, calls *atomic.Int64) Tool {
	t.Helper()
	return Tool{
		Name:        "get_weather",
		Description: "Look up the weather for a city.",
		Parameters:  schema.Object(map[string]schema.JSON{"city": schema.String()}, "city"),
		Handler: func(_ context.Context, args json.RawMessage) (string, error) {
			if calls != nil {
				calls.Add(1)
			}
			var in struct {
				City string `json:"city"`
			}
			if err := json.Unmarshal(args, &in); err != nil {
				return "", err
			}
			return "sunny in " + in.City, nil
		},
	}
}

func TestRegistry(t *testing.T) {
	t.Run("duplicate names rejected", func(t *testing.T) {
		w := weatherTool(t, nil)
		_, err := NewRegistry(w, w)
		require.Error(t, err)
		assert.Equal(t, fault.ClassConfiguration, fault.ClassOf(err))
	})

	t.Run("missing handler rejected", func(t *testing.T) {
		_, err := NewRegistry(Tool{Name: "broken"})
		require.Error(t, err)
		assert.Equal(t, fault.ClassConfiguration, fault.ClassOf(err))
	})

	t.Run("unknown tool is a tool-name error", func(t *testing.T) {
		reg, err := NewRegistry(weatherTool(t, nil))
		require.NoError(t, err)

		_, err = reg.Call(context.Background(), llm.ToolCall{Name: "get_wether", Arguments: "{}"})
		require.Error(t, err)
		assert.True(t, fault.IsToolName(err))
	})

	t.Run("defs preserve declaration order", func(t *testing.T) {
		other := weatherTool(t, nil)
		other.Name = "send_message"
		reg, err := NewRegistry(other, weatherTool(t, nil))
		require.NoError(t, err)

		defs, err := reg.Defs()
		require.NoError(t, err)
		require.Len(t, defs, 2)
		assert.Equal(t, "send_message", defs[0].Name)
		assert.Equal(t, "get_weather", defs[1].Name)
	})
}

func TestLoopExecutorRun(t *testing.T) {
	t.Run("tool round trip", func(t *testing.T) {
		provider := &turnProvider{turns: []*llm.Response{
			{
				Reasoning: "need the forecast",
				ToolCalls: []llm.ToolCall{{Name: "get_weather", Arguments: `{"city":"Oslo"}`}},
			},
			{Content: "It is sunny in Oslo today."},
		}}
		var toolCalls atomic.Int64
		reg, err := NewRegistry(weatherTool(t, &toolCalls))
		require.NoError(t, err)

		exec := NewLoopExecutor(llm.NewClient(provider), reg, nil)
		items, err := exec.Run(context.Background(), []llm.Message{llm.User("weather in Oslo?")}, RunOptions{})
		require.NoError(t, err)

		require.Len(t, items, 4)
		assert.Equal(t, ItemReasoning, items[0].Type)
		assert.Equal(t, ItemToolCall, items[1].Type)
		assert.Equal(t, "get_weather", items[1].Call.Name)
		assert.Equal(t, ItemToolOutput, items[2].Type)
		assert.Equal(t, "sunny in Oslo", items[2].Output.Content)
		assert.Equal(t, ItemText, items[3].Type)
		assert.Equal(t, int64(1), toolCalls.Load())
		assert.Equal(t, int64(2), provider.calls.Load())
	})

	t.Run("stop tool ends the run after executing", func(t *testing.T) {
		done := Tool{
			Name:       "finish_conversation",
			Parameters: schema.Object(map[string]schema.JSON{}),
			Handler: func(context.Context, json.RawMessage) (string, error) {
				return "done", nil
			},
		}
		provider := &turnProvider{turns: []*llm.Response{
			{ToolCalls: []llm.ToolCall{{Name: "finish_conversation", Arguments: "{}"}}},
			{Content: "should never be requested"},
		}}
		reg, err := NewRegistry(done)
		require.NoError(t, err)

		exec := NewLoopExecutor(llm.NewClient(provider), reg, nil)
		items, err := exec.Run(context.Background(), []llm.Message{llm.User("wrap up")},
			RunOptions{StopAt: []string{"finish_conversation"}})
		require.NoError(t, err)

		require.Len(t, items, 2)
		assert.Equal(t, ItemToolOutput, items[1].Type)
		assert.Equal(t, int64(1), provider.calls.Load(), "run must stop once the stop tool fires")
	})

	t.Run("unregistered tool surfaces a tool-name error", func(t *testing.T) {
		provider := &turnProvider{turns: []*llm.Response{
			{ToolCalls: []llm.ToolCall{{Name: "get_wether", Arguments: "{}"}}},
		}}
		reg, err := NewRegistry(weatherTool(t, nil))
		require.NoError(t, err)

		exec := NewLoopExecutor(llm.NewClient(provider), reg, nil)
		_, err = exec.Run(context.Background(), []llm.Message{llm.User("hi")}, RunOptions{})
		require.Error(t, err)
		assert.True(t, fault.IsToolName(err))
	})

	t.Run("turn limit bounds the loop", func(t *testing.T) {
		// The model asks for the same tool forever.
		provider := &turnProvider{turns: []*llm.Response{
			{ToolCalls: []llm.ToolCall{{Name: "get_weather", Arguments: `{"city":"Oslo"}`}}},
		}}
		reg, err := NewRegistry(weatherTool(t, nil))
		require.NoError(t, err)

		exec := NewLoopExecutor(llm.NewClient(provider), reg, nil)
		items, err := exec.Run(context.Background(), []llm.Message{llm.User("hi")}, RunOptions{MaxTurns: 3})
		require.NoError(t, err)
		assert.Equal(t, int64(3), provider.calls.Load())
		assert.Len(t, items, 6) // one call plus one output per turn
	})
}
