package persona

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/zero-day-ai/lab/fault"
	"github.com/zero-day-ai/lab/llm"
)

// Persona is a simulated human actor: a fixed background description that
// seeds one model-backed conversation per trial.
type Persona struct {
	// Name is the actor's name, used in prompts and trial descriptions.
	Name string

	// Role is the actor's role (e.g., "Teenager", "Patient").
	Role string

	// Description is the behavioral background for the actor.
	Description string

	// ExtraInstructions optionally append scenario-specific guidance.
	ExtraInstructions string
}

// SystemPrompt renders the roleplaying system prompt for the persona.
func (p Persona) SystemPrompt() string {
	var b strings.Builder
	fmt.Fprintf(&b, `This is a roleplaying exercise, you must stay in the role at all times.

### Input Persona
- **Name**: %s
- **Role**: %s
- **Description**: %s

### Rules for your behavior:
1. Stay in character at all times - your responses must align with the persona's role and description.
2. Do not reveal that you are an AI or that you are role-playing.
3. Keep your answers natural, short, and conversational.
`, p.Name, p.Role, p.Description)
	if p.ExtraInstructions != "" {
		b.WriteString("\n")
		b.WriteString(p.ExtraInstructions)
	}
	return b.String()
}

// Simulator owns one linear conversation for one persona. It is driven by
// a single trial and is not safe for concurrent use.
type Simulator struct {
	client       *llm.Client
	logger       *slog.Logger
	name         string
	conversation []llm.Message
	opening      string
	openingSet   bool
}

// NewSimulator seeds a simulator with the persona's system prompt.
func NewSimulator(client *llm.Client, p Persona, logger *slog.Logger) *Simulator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Simulator{
		client:       client,
		logger:       logger,
		name:         p.Name,
		conversation: []llm.Message{llm.System(p.SystemPrompt())},
	}
}

// Name returns the persona's name.
func (s *Simulator) Name() string { return s.name }

// OpeningLine returns the persona's opening message. The first call issues
// one model call over the seeded conversation; subsequent calls return the
// memoized line without a new call.
func (s *Simulator) OpeningLine(ctx context.Context) (string, error) {
	if s.openingSet {
		return s.opening, nil
	}

	ex, err := s.client.Complete(ctx, s.conversation)
	if err != nil {
		return "", fmt.Errorf("persona %q failed to open: %w", s.name, err)
	}
	if ex.Output.Content == "" {
		// A persona model with nothing to say is a configuration or
		// provider bug, not a normal conversational outcome.
		s.logger.Error("persona produced empty opening line", "persona", s.name)
		return "", fault.Protocol("persona %q returned no text content for its opening line", s.name)
	}

	s.opening = ex.Output.Content
	s.openingSet = true
	s.conversation = append(s.conversation, ex.Output)
	return s.opening, nil
}

// Respond appends the incoming message as a user turn, issues one model
// call, appends the reply as an assistant turn, and returns its text.
func (s *Simulator) Respond(ctx context.Context, incoming string) (string, error) {
	s.conversation = append(s.conversation, llm.User(incoming))

	ex, err := s.client.Complete(ctx, s.conversation)
	if err != nil {
		return "", fmt.Errorf("persona %q failed to respond: %w", s.name, err)
	}
	if ex.Output.Content == "" {
		s.logger.Error("persona produced empty response", "persona", s.name)
		return "", fault.Protocol("persona %q returned no text content", s.name)
	}

	s.conversation = append(s.conversation, ex.Output)
	return ex.Output.Content, nil
}

// Conversation returns a copy of the persona's conversation so far.
func (s *Simulator) Conversation() []llm.Message {
	out := make([]llm.Message, len(s.conversation))
	copy(out, s.conversation)
	return out
}
