package storage

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/zero-day-ai/lab/llm"
	"github.com/zero-day-ai/lab/trial"
)

// ErrNotFound is returned when a lookup matches nothing.
var ErrNotFound = errors.New("storage: not found")

// Store persists experiments, trials, transcripts, and violations.
// Implementations must be safe for concurrent use; trials own their
// messages, so concurrent appends to different trials never interfere.
type Store interface {
	// CreateExperiment persists a new experiment.
	CreateExperiment(ctx context.Context, exp *trial.Experiment) error

	// CreateTrial persists a new trial under its experiment.
	CreateTrial(ctx context.Context, tr *trial.Trial) error

	// CompleteTrial records the trial's completion time.
	CompleteTrial(ctx context.Context, tr *trial.Trial) error

	// SaveMessages appends messages to the trial's transcript in order
	// and returns their assigned IDs, one per message, in the same order.
	SaveMessages(ctx context.Context, trialID uuid.UUID, messages []llm.Message) ([]int64, error)

	// RecordViolations appends findings to the trial.
	RecordViolations(ctx context.Context, trialID uuid.UUID, findings []trial.Finding) error

	// TrialAndMessages resolves a violation back to its trial and the
	// trial's full transcript in sequence order.
	TrialAndMessages(ctx context.Context, violationID int64) (*trial.Trial, []llm.Message, error)
}
