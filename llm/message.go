package llm

import (
	"encoding/json"
	"fmt"
)

// Role represents the role of a message sender in a conversation.
type Role string

const (
	// RoleSystem represents system-level instructions or context.
	RoleSystem Role = "system"

	// RoleUser represents messages from the user or simulated persona.
	RoleUser Role = "user"

	// RoleAssistant represents messages from the model under test.
	RoleAssistant Role = "assistant"

	// RoleTool represents tool execution results.
	RoleTool Role = "tool"

	// RoleDeveloper represents synthetic correction messages injected by
	// the conversation driver, e.g. after a tool-name error.
	RoleDeveloper Role = "developer"
)

// String returns a string representation of the role.
func (r Role) String() string {
	return string(r)
}

// IsValid checks if the role is one of the defined constants.
func (r Role) IsValid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant, RoleTool, RoleDeveloper:
		return true
	default:
		return false
	}
}

// Kind identifies which payload a Message carries.
// The set is closed: every item an agent run produces maps to exactly one
// kind, and anything else is a protocol violation.
type Kind string

const (
	// KindText is plain assistant, user, system, or developer text.
	KindText Kind = "text"

	// KindReasoning is a model's reasoning summary.
	KindReasoning Kind = "reasoning"

	// KindStructured is schema-validated structured output.
	KindStructured Kind = "structured"

	// KindToolCall is a tool invocation requested by the model.
	KindToolCall Kind = "tool_call"

	// KindToolResult is the output of a tool execution.
	KindToolResult Kind = "tool_result"
)

// ToolCall is a tool invocation: the tool name and its raw argument string
// exactly as the model produced it.
type ToolCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Message is a single turn in a conversation. Exactly one payload field is
// populated, matching Kind. Messages are immutable once created; a
// conversation is an ordered sequence of them, ordered by production time.
type Message struct {
	// Role indicates who produced the message.
	Role Role `json:"role"`

	// Kind selects which payload field is populated.
	Kind Kind `json:"kind"`

	// Name optionally identifies the persona or tool behind the message.
	Name string `json:"name,omitempty"`

	// Content is the text payload for KindText.
	Content string `json:"content,omitempty"`

	// Reasoning is the payload for KindReasoning.
	Reasoning string `json:"reasoning,omitempty"`

	// Structured is the raw JSON payload for KindStructured.
	Structured json.RawMessage `json:"structured,omitempty"`

	// ToolCall is the payload for KindToolCall.
	ToolCall *ToolCall `json:"tool_call,omitempty"`

	// ToolResult is the payload for KindToolResult.
	ToolResult string `json:"tool_result,omitempty"`
}

// System creates a system text message.
func System(content string) Message {
	return Message{Role: RoleSystem, Kind: KindText, Content: content}
}

// User creates a user text message.
func User(content string) Message {
	return Message{Role: RoleUser, Kind: KindText, Content: content}
}

// Assistant creates an assistant text message.
func Assistant(content string) Message {
	return Message{Role: RoleAssistant, Kind: KindText, Content: content}
}

// Developer creates a developer-role correction message.
func Developer(content string) Message {
	return Message{Role: RoleDeveloper, Kind: KindText, Content: content}
}

// NewReasoning creates an assistant reasoning message.
func NewReasoning(reasoning string) Message {
	return Message{Role: RoleAssistant, Kind: KindReasoning, Reasoning: reasoning}
}

// NewStructured creates an assistant structured-output message.
func NewStructured(data json.RawMessage) Message {
	return Message{Role: RoleAssistant, Kind: KindStructured, Structured: data}
}

// NewToolCall creates an assistant tool-call message.
func NewToolCall(name, arguments string) Message {
	return Message{
		Role:     RoleAssistant,
		Kind:     KindToolCall,
		ToolCall: &ToolCall{Name: name, Arguments: arguments},
	}
}

// NewToolResult creates a tool-result message for the named tool.
func NewToolResult(name, output string) Message {
	return Message{Role: RoleTool, Kind: KindToolResult, Name: name, ToolResult: output}
}

// Validate checks that exactly the payload field matching Kind is populated
// and every other payload field is empty.
func (m Message) Validate() error {
	if !m.Role.IsValid() {
		return fmt.Errorf("invalid role %q", m.Role)
	}

	populated := map[Kind]bool{
		KindText:       m.Content != "",
		KindReasoning:  m.Reasoning != "",
		KindStructured: len(m.Structured) > 0,
		KindToolCall:   m.ToolCall != nil,
		KindToolResult: m.ToolResult != "",
	}

	own, known := populated[m.Kind]
	if !known {
		return fmt.Errorf("unknown message kind %q", m.Kind)
	}
	if !own {
		return fmt.Errorf("message of kind %q has an empty %q payload", m.Kind, m.Kind)
	}
	for kind, has := range populated {
		if kind != m.Kind && has {
			return fmt.Errorf("message of kind %q also carries a %q payload", m.Kind, kind)
		}
	}
	return nil
}

// PayloadText renders the populated payload as plain text. It is used for
// cache-key canonicalization and for formatting transcripts, so it must be
// deterministic for a given message.
func (m Message) PayloadText() string {
	switch m.Kind {
	case KindText:
		return m.Content
	case KindReasoning:
		return m.Reasoning
	case KindStructured:
		return string(m.Structured)
	case KindToolCall:
		if m.ToolCall == nil {
			return ""
		}
		return fmt.Sprintf("%s(%s)", m.ToolCall.Name, m.ToolCall.Arguments)
	case KindToolResult:
		return m.ToolResult
	default:
		return ""
	}
}
