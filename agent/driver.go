package agent

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/zero-day-ai/lab/fault"
	"github.com/zero-day-ai/lab/llm"
)

// State is the driver's coarse execution state.
type State string

const (
	StateIdle     State = "idle"
	StateRunning  State = "running"
	StateRetrying State = "retrying_tool_error"
	StateStopped  State = "stopped"
)

// StopReason records why a stopped driver stopped.
type StopReason string

const (
	StopNone          StopReason = ""
	StopToolHit       StopReason = "stop_tool_hit"
	StopTerminalError StopReason = "terminal_error"
)

const (
	// maxAttempts bounds tool-name retries per turn, attempts total.
	maxAttempts = 3

	// defaultRetryBase is the first backoff delay; it doubles per attempt.
	defaultRetryBase = 2 * time.Second
)

// Driver holds one conversation with the system under test and advances
// it one turn per Run call. The driver accumulates every produced message
// so successive runs keep full conversational context; the caller owns
// the outer turn budget.
type Driver struct {
	executor   Executor
	opts       RunOptions
	logger     *slog.Logger
	retryBase  time.Duration
	state      State
	stopReason StopReason

	conversation []llm.Message
}

// DriverOption configures a Driver.
type DriverOption func(*Driver)

// WithRunOptions sets the per-run stop set and internal turn bound.
func WithRunOptions(opts RunOptions) DriverOption {
	return func(d *Driver) { d.opts = opts }
}

// WithRetryBase overrides the initial tool-name-retry backoff delay.
func WithRetryBase(base time.Duration) DriverOption {
	return func(d *Driver) { d.retryBase = base }
}

// WithDriverLogger sets the structured logger.
func WithDriverLogger(logger *slog.Logger) DriverOption {
	return func(d *Driver) { d.logger = logger }
}

// NewDriver creates a driver whose conversation is seeded with the given
// system prompt.
func NewDriver(executor Executor, systemPrompt string, opts ...DriverOption) *Driver {
	d := &Driver{
		executor:     executor,
		logger:       slog.Default(),
		retryBase:    defaultRetryBase,
		state:        StateIdle,
		conversation: []llm.Message{llm.System(systemPrompt)},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// State returns the driver's current state.
func (d *Driver) State() State { return d.state }

// StopReason returns why the driver stopped, if it has.
func (d *Driver) StopReason() StopReason { return d.stopReason }

// Conversation returns a copy of the accumulated conversation.
func (d *Driver) Conversation() []llm.Message {
	out := make([]llm.Message, len(d.conversation))
	copy(out, d.conversation)
	return out
}

// Stopped reports whether the driver has terminated and further Run
// calls are pointless.
func (d *Driver) Stopped() bool { return d.state == StateStopped }

// Run advances the conversation one turn: the input is appended as a user
// message, the executor runs over the accumulated conversation, and every
// produced item is translated, accumulated, and returned in production
// order.
//
// If the run fails with an unrecognized-tool error, a synthetic
// developer-role correction is appended to the conversation and the same
// turn is retried, up to maxAttempts attempts total with the backoff
// delay doubling per attempt. Any other error propagates immediately;
// exhausting the retry budget re-raises the last error. Terminal errors
// stop the driver.
func (d *Driver) Run(ctx context.Context, input string) ([]llm.Message, error) {
	if d.state == StateStopped {
		return nil, fault.Configuration("driver already stopped (%s)", d.stopReason)
	}

	d.state = StateRunning
	d.conversation = append(d.conversation, llm.User(input))

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		items, err := d.executor.Run(ctx, d.conversation, d.opts)
		if err == nil {
			return d.accumulate(items)
		}
		lastErr = err

		if !fault.IsToolName(err) || attempt == maxAttempts {
			break
		}

		d.state = StateRetrying
		correction := llm.Developer(fmt.Sprintf(
			"A tool call failed: %v. Only call the tools available to you, using their exact names.", err))
		d.conversation = append(d.conversation, correction)

		delay := d.retryBase << (attempt - 1)
		d.logger.Warn("retrying turn after unrecognized tool name",
			"attempt", attempt, "delay", delay, "error", err)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			d.stop(StopTerminalError)
			return nil, ctx.Err()
		}
		d.state = StateRunning
	}

	d.stop(StopTerminalError)
	return nil, lastErr
}

// accumulate translates the run's items into messages, appends them to
// the conversation, and checks the stop set. Translation failure aborts
// the turn with nothing appended.
func (d *Driver) accumulate(items []Item) ([]llm.Message, error) {
	produced := make([]llm.Message, 0, len(items))
	hitStop := false
	for _, it := range items {
		msg, err := it.message()
		if err != nil {
			d.stop(StopTerminalError)
			return nil, err
		}
		produced = append(produced, msg)
		if it.Type == ItemToolCall && slices.Contains(d.opts.StopAt, it.Call.Name) {
			hitStop = true
		}
	}

	d.conversation = append(d.conversation, produced...)
	if hitStop {
		d.stop(StopToolHit)
	} else {
		d.state = StateIdle
	}
	return produced, nil
}

func (d *Driver) stop(reason StopReason) {
	d.state = StateStopped
	d.stopReason = reason
}
