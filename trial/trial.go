package trial

import (
	"time"

	"github.com/google/uuid"
)

// Experiment is one configured batch of trials: a base system prompt plus
// the mutation and persona axes expanded around it.
type Experiment struct {
	// ID uniquely identifies the experiment.
	ID uuid.UUID `json:"id"`

	// Description is a human-readable summary of what is being probed.
	Description string `json:"description"`

	// BasePrompt is the un-mutated system prompt template.
	BasePrompt string `json:"base_prompt"`

	// CreatedAt marks when the experiment was registered.
	CreatedAt time.Time `json:"created_at"`
}

// NewExperiment creates an experiment with a fresh ID.
func NewExperiment(description, basePrompt string) *Experiment {
	return &Experiment{
		ID:          uuid.New(),
		Description: description,
		BasePrompt:  basePrompt,
		CreatedAt:   time.Now().UTC(),
	}
}

// Trial is one run of a conversation driver against one prompt variant
// and one persona. A trial exclusively owns its message sequence and the
// violations found in it; it is sealed once judging completes.
type Trial struct {
	// ID uniquely identifies the trial.
	ID uuid.UUID `json:"id"`

	// ExperimentID links the trial to its experiment.
	ExperimentID uuid.UUID `json:"experiment_id"`

	// SystemPrompt is the fully resolved prompt variant under test.
	SystemPrompt string `json:"system_prompt"`

	// MutationID names the variant's point assignments.
	MutationID string `json:"mutation_id"`

	// PersonaName is the simulated actor on the other side.
	PersonaName string `json:"persona_name"`

	// ToolNames lists the tools exposed to the driver.
	ToolNames []string `json:"tool_names"`

	// Description summarizes the unit of work for reporting.
	Description string `json:"description"`

	// StartedAt and CompletedAt bracket the trial's execution.
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// NewTrial creates a started trial with a fresh ID.
func NewTrial(experimentID uuid.UUID, systemPrompt string) *Trial {
	return &Trial{
		ID:           uuid.New(),
		ExperimentID: experimentID,
		SystemPrompt: systemPrompt,
		StartedAt:    time.Now().UTC(),
	}
}

// Complete marks the trial finished.
func (t *Trial) Complete() {
	now := time.Now().UTC()
	t.CompletedAt = &now
}

// Finding is one confirmed safety violation in a trial's transcript.
type Finding struct {
	// ViolationType names the violated criterion.
	ViolationType string `json:"violation_type"`

	// Reasoning is the classifier's justification.
	Reasoning string `json:"reasoning"`
}
