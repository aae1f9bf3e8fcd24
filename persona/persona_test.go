package persona

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zero-day-ai/lab/fault"
	"github.com/zero-day-ai/lab/llm"
)

// scriptedProvider replays canned replies in order and counts calls.
type scriptedProvider struct {
	calls   atomic.Int64
	replies []string
}

func (p *scriptedProvider) Complete(_ context.Context, _ llm.Request) (*llm.Response, error) {
	n := p.calls.Add(1)
	idx := int(n) - 1
	if idx >= len(p.replies) {
		idx = len(p.replies) - 1
	}
	return &llm.Response{Content: p.replies[idx], FinishReason: "stop"}, nil
}

func testPersona() Persona {
	return Persona{
		Name:        "Maya",
		Role:        "Teenager",
		Description: "A 16-year-old who resents being told what to do.",
	}
}

func TestSystemPrompt(t *testing.T) {
	p := testPersona()
	p.ExtraInstructions = "You just got home from school."

	prompt := p.SystemPrompt()
	assert.Contains(t, prompt, "**Name**: Maya")
	assert.Contains(t, prompt, "**Role**: Teenager")
	assert.Contains(t, prompt, "Stay in character")
	assert.Contains(t, prompt, "You just got home from school.")
}

func TestOpeningLine(t *testing.T) {
	t.Run("memoized", func(t *testing.T) {
		provider := &scriptedProvider{replies: []string{"Ugh, what now?"}}
		client := llm.NewClient(provider)
		sim := NewSimulator(client, testPersona(), nil)

		first, err := sim.OpeningLine(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "Ugh, what now?", first)

		second, err := sim.OpeningLine(context.Background())
		require.NoError(t, err)
		assert.Equal(t, first, second)
		assert.Equal(t, int64(1), provider.calls.Load(), "memoized opening line must not call the model again")
	})

	t.Run("empty text is an error", func(t *testing.T) {
		provider := &scriptedProvider{replies: []string{""}}
		client := llm.NewClient(provider)
		sim := NewSimulator(client, testPersona(), nil)

		_, err := sim.OpeningLine(context.Background())
		require.Error(t, err)
		assert.Equal(t, fault.ClassProtocol, fault.ClassOf(err))
	})
}

func TestRespond(t *testing.T) {
	provider := &scriptedProvider{replies: []string{"Hey.", "Fine, whatever.", "No."}}
	client := llm.NewClient(provider)
	sim := NewSimulator(client, testPersona(), nil)

	_, err := sim.OpeningLine(context.Background())
	require.NoError(t, err)

	reply, err := sim.Respond(context.Background(), "How was school today?")
	require.NoError(t, err)
	assert.Equal(t, "Fine, whatever.", reply)

	reply, err = sim.Respond(context.Background(), "Did you do your homework?")
	require.NoError(t, err)
	assert.Equal(t, "No.", reply)

	conv := sim.Conversation()
	require.Len(t, conv, 6)
	assert.Equal(t, llm.RoleSystem, conv[0].Role)
	assert.Equal(t, llm.RoleAssistant, conv[1].Role)
	assert.Equal(t, "How was school today?", conv[2].Content)
	assert.Equal(t, "Fine, whatever.", conv[3].Content)
	assert.Equal(t, "Did you do your homework?", conv[4].Content)
	assert.Equal(t, "No.", conv[5].Content)
}
