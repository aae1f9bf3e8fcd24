package agent

import (
	"context"
	"log/slog"
	"slices"

	"github.com/zero-day-ai/lab/llm"
)

// DefaultMaxTurns bounds the internal tool loop of a single run. It is
// loop protection, independent of the caller's own outer turn budget.
const DefaultMaxTurns = 10

// RunOptions configures one executor run.
type RunOptions struct {
	// StopAt lists tool names that end the run once invoked. The stop
	// tool still executes and its output is included in the run's items.
	StopAt []string

	// MaxTurns caps internal model turns. Zero means DefaultMaxTurns.
	MaxTurns int
}

// Executor is the run primitive underneath the conversation driver: one
// tool-use-capable run over an accumulated conversation, producing typed
// items in production order.
type Executor interface {
	Run(ctx context.Context, conversation []llm.Message, opts RunOptions) ([]Item, error)
}

// LoopExecutor runs the model-call/tool-execution loop against an
// in-process tool registry.
type LoopExecutor struct {
	client   *llm.Client
	registry *Registry
	logger   *slog.Logger
}

// NewLoopExecutor creates an executor over the given client and registry.
func NewLoopExecutor(client *llm.Client, registry *Registry, logger *slog.Logger) *LoopExecutor {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoopExecutor{client: client, registry: registry, logger: logger}
}

// Run drives the tool loop: each turn issues one tool-capable completion,
// executes any requested tools, and feeds the results back. The run ends
// when the model produces a turn with no tool calls, when a stop tool is
// invoked, or when MaxTurns is reached. Items come back in production
// order; partial output from a failed run is discarded by returning the
// error alone.
func (e *LoopExecutor) Run(ctx context.Context, conversation []llm.Message, opts RunOptions) ([]Item, error) {
	defs, err := e.registry.Defs()
	if err != nil {
		return nil, err
	}

	maxTurns := opts.MaxTurns
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}

	working := make([]llm.Message, len(conversation))
	copy(working, conversation)

	var items []Item
	for turn := 0; turn < maxTurns; turn++ {
		result, err := e.client.CompleteTools(ctx, working, defs)
		if err != nil {
			return nil, err
		}

		produced := turnItems(result)
		for _, it := range produced {
			msg, err := it.message()
			if err != nil {
				return nil, err
			}
			items = append(items, it)
			working = append(working, msg)
		}

		if len(result.ToolCalls) == 0 {
			return items, nil
		}

		stopped := false
		for _, call := range result.ToolCalls {
			out, err := e.registry.Call(ctx, call)
			if err != nil {
				return nil, err
			}
			item := Item{Type: ItemToolOutput, Output: &ToolOutput{Name: call.Name, Content: out}}
			items = append(items, item)
			working = append(working, llm.NewToolResult(call.Name, out))

			if slices.Contains(opts.StopAt, call.Name) {
				stopped = true
			}
		}
		if stopped {
			return items, nil
		}
	}

	e.logger.Warn("run reached internal turn limit", "max_turns", maxTurns, "items", len(items))
	return items, nil
}

// turnItems decomposes one model turn into items, reasoning first, then
// text, then tool calls, matching the order the provider produced them.
func turnItems(turn *llm.ToolTurn) []Item {
	var items []Item
	if turn.Reasoning != nil {
		items = append(items, Item{Type: ItemReasoning, Text: turn.Reasoning.Reasoning})
	}
	if turn.Text != nil {
		items = append(items, Item{Type: ItemText, Text: turn.Text.Content})
	}
	for i := range turn.ToolCalls {
		call := turn.ToolCalls[i]
		items = append(items, Item{Type: ItemToolCall, Call: &call})
	}
	return items
}
