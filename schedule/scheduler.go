package schedule

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"

	"github.com/zero-day-ai/lab/agent"
	"github.com/zero-day-ai/lab/fault"
	"github.com/zero-day-ai/lab/judge"
	"github.com/zero-day-ai/lab/mutation"
	"github.com/zero-day-ai/lab/persona"
	"github.com/zero-day-ai/lab/storage"
	"github.com/zero-day-ai/lab/telemetry"
	"github.com/zero-day-ai/lab/trial"
)

const (
	// DefaultMaxConcurrent is the admission-gate ceiling. The work is
	// I/O-bound on model calls, so it is fixed rather than tied to CPU
	// count.
	DefaultMaxConcurrent = 8

	// DefaultMaxIterations bounds the outer environment/turn cycles of
	// one trial.
	DefaultMaxIterations = 14
)

// Unit is one scheduled trial: its record, its conversation driver, and
// the environment the conversation runs inside. The driver's tool
// surface, including any persona bridge, is wired by the factory that
// built the unit.
type Unit struct {
	Trial       *trial.Trial
	Driver      *agent.Driver
	Environment Environment
}

// UnitFactory builds a fresh unit for one variant and one persona. It is
// called once per trial, inside the trial's admission slot.
type UnitFactory func(ctx context.Context, variant mutation.Variant, p persona.Persona) (*Unit, error)

// UnitResult is the terminal state of one scheduled unit.
type UnitResult struct {
	TrialID  uuid.UUID
	Mutation string
	Persona  string
	Findings int
	Err      error
}

// Report summarizes one batch run. Every scheduled unit appears exactly
// once; result order is not meaningful.
type Report struct {
	Results   []UnitResult
	Succeeded int
	Failed    int
}

// Scheduler fans an experiment's variant/persona grid out into trials
// under a fixed concurrency ceiling and drives each to a terminal state.
type Scheduler struct {
	store         storage.Store
	judge         *judge.Judge
	logger        *slog.Logger
	maxConcurrent int
	maxIterations int
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithMaxConcurrent sets the admission-gate ceiling.
func WithMaxConcurrent(n int) Option {
	return func(s *Scheduler) { s.maxConcurrent = n }
}

// WithMaxIterations sets the per-trial outer iteration budget.
func WithMaxIterations(n int) Option {
	return func(s *Scheduler) { s.maxIterations = n }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) { s.logger = logger }
}

// New creates a scheduler writing through the given store and judging
// finished transcripts with j.
func New(store storage.Store, j *judge.Judge, opts ...Option) *Scheduler {
	s := &Scheduler{
		store:         store,
		judge:         j,
		logger:        slog.Default(),
		maxConcurrent: DefaultMaxConcurrent,
		maxIterations: DefaultMaxIterations,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run executes every variant x persona combination as one trial and
// returns after all of them are terminal. A unit's failure is caught,
// logged, and recorded in the report; it never cancels siblings. The
// only global cancellation is the caller's ctx.
func (s *Scheduler) Run(
	ctx context.Context,
	exp *trial.Experiment,
	variants []mutation.Variant,
	personas []persona.Persona,
	factory UnitFactory,
) (*Report, error) {
	if factory == nil {
		return nil, fault.Configuration("scheduler requires a unit factory")
	}
	if len(variants) == 0 || len(personas) == 0 {
		return nil, fault.Configuration("scheduler requires at least one variant and one persona")
	}

	if err := s.store.CreateExperiment(ctx, exp); err != nil {
		return nil, err
	}

	s.logger.Info("starting batch run",
		"experiment", exp.ID,
		"variants", len(variants),
		"personas", len(personas),
		"concurrency", s.maxConcurrent)

	p := pool.NewWithResults[UnitResult]().WithMaxGoroutines(s.maxConcurrent)
	for _, variant := range variants {
		for _, per := range personas {
			p.Go(func() UnitResult {
				return s.runUnit(ctx, exp, variant, per, factory)
			})
		}
	}

	report := &Report{Results: p.Wait()}
	for _, res := range report.Results {
		if res.Err != nil {
			report.Failed++
		} else {
			report.Succeeded++
		}
	}

	s.logger.Info("batch run complete",
		"experiment", exp.ID,
		"succeeded", report.Succeeded,
		"failed", report.Failed)
	return report, nil
}

// runUnit drives one trial to a terminal state. Panics and errors are
// contained here so sibling units keep running; the trial's messages are
// persisted best-effort even when the conversation failed partway.
func (s *Scheduler) runUnit(
	ctx context.Context,
	exp *trial.Experiment,
	variant mutation.Variant,
	per persona.Persona,
	factory UnitFactory,
) (res UnitResult) {
	res.Mutation = variant.MutationID()
	res.Persona = per.Name

	defer func() {
		if r := recover(); r != nil {
			res.Err = fmt.Errorf("trial panicked: %v", r)
			s.logger.Error("trial panicked", "trial", res.TrialID, "panic", r)
		}
	}()

	unit, err := factory(ctx, variant, per)
	if err != nil {
		res.Err = fmt.Errorf("failed to build unit: %w", err)
		return res
	}

	tr := unit.Trial
	if tr == nil {
		tr = trial.NewTrial(exp.ID, variant.Prompt)
	}
	tr.ExperimentID = exp.ID
	tr.MutationID = variant.MutationID()
	tr.PersonaName = per.Name
	if tr.Description == "" {
		tr.Description = fmt.Sprintf("%s_%s", per.Name, variant.MutationID())
	}
	res.TrialID = tr.ID

	if err := s.store.CreateTrial(ctx, tr); err != nil {
		res.Err = fmt.Errorf("failed to create trial: %w", err)
		return res
	}

	ctx, span := telemetry.StartTrial(ctx, tr.ID, tr.Description)
	defer func() { telemetry.EndTrial(span, res.Findings, res.Err) }()

	env := unit.Environment
	if env == nil {
		env = StaticEnvironment{}
	}

	var runErr error
	for iteration := 0; iteration < s.maxIterations; iteration++ {
		if ctx.Err() != nil {
			runErr = ctx.Err()
			break
		}
		if env.Done() || unit.Driver.Stopped() {
			break
		}

		if _, err := unit.Driver.Run(ctx, env.Observation()); err != nil {
			s.logger.Error("trial iteration failed",
				"trial", tr.ID, "iteration", iteration, "error", err)
			telemetry.RecordError(ctx, err)
			if runErr == nil {
				runErr = err
			}
			continue
		}

		env.Advance()
	}

	transcript := unit.Driver.Conversation()
	if _, err := s.store.SaveMessages(ctx, tr.ID, transcript); err != nil {
		s.logger.Error("failed to persist transcript", "trial", tr.ID, "error", err)
		if runErr == nil {
			runErr = err
		}
	}

	findings, err := s.judge.Evaluate(ctx, transcript)
	if err != nil {
		s.logger.Error("judging failed", "trial", tr.ID, "error", err)
		if runErr == nil {
			runErr = err
		}
	}
	res.Findings = len(findings)

	if len(findings) > 0 {
		if err := s.store.RecordViolations(ctx, tr.ID, findings); err != nil {
			s.logger.Error("failed to record violations", "trial", tr.ID, "error", err)
			if runErr == nil {
				runErr = err
			}
		}
	}

	tr.Complete()
	if err := s.store.CompleteTrial(ctx, tr); err != nil {
		s.logger.Error("failed to complete trial", "trial", tr.ID, "error", err)
		if runErr == nil {
			runErr = err
		}
	}

	res.Err = runErr
	return res
}
