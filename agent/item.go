package agent

import (
	"github.com/zero-day-ai/lab/fault"
	"github.com/zero-day-ai/lab/llm"
)

// ItemType identifies the shape of one item produced by an executor run.
type ItemType string

const (
	// ItemText is assistant-visible text.
	ItemText ItemType = "text"

	// ItemReasoning is a reasoning summary emitted alongside output.
	ItemReasoning ItemType = "reasoning"

	// ItemToolCall is a tool invocation requested by the model.
	ItemToolCall ItemType = "tool_call"

	// ItemToolOutput is the result of executing a requested tool.
	ItemToolOutput ItemType = "tool_output"
)

// ToolOutput is the result of one local tool execution.
type ToolOutput struct {
	// Name is the tool that produced the output.
	Name string

	// Content is the output handed back to the model.
	Content string
}

// Item is one unit of executor output. Exactly one payload field matching
// Type is populated.
type Item struct {
	Type   ItemType
	Text   string
	Call   *llm.ToolCall
	Output *ToolOutput
}

// message translates an item into exactly one typed conversation message.
// An item matching no known shape is a protocol violation: it signals a
// contract mismatch between executor and driver and must abort the run
// rather than be dropped.
func (it Item) message() (llm.Message, error) {
	switch it.Type {
	case ItemText:
		return llm.Assistant(it.Text), nil
	case ItemReasoning:
		return llm.NewReasoning(it.Text), nil
	case ItemToolCall:
		if it.Call == nil {
			return llm.Message{}, fault.Protocol("tool-call item has no call payload")
		}
		return llm.NewToolCall(it.Call.Name, it.Call.Arguments), nil
	case ItemToolOutput:
		if it.Output == nil {
			return llm.Message{}, fault.Protocol("tool-output item has no output payload")
		}
		return llm.NewToolResult(it.Output.Name, it.Output.Content), nil
	default:
		return llm.Message{}, fault.Protocol("unrecognized item type %q", it.Type)
	}
}
