package schedule

// Environment is the simulated world a trial's conversation runs inside.
// The scheduler reads one observation per outer iteration, hands it to
// the driver, and advances the environment between iterations.
type Environment interface {
	// Observation renders the current state for the driver's next turn.
	Observation() string

	// Advance progresses simulated state by one step.
	Advance()

	// Done reports whether the environment has reached a terminal state,
	// ending the trial before the iteration budget runs out.
	Done() bool
}

// StaticEnvironment is an Environment with a fixed observation and no
// state, for trials that need no world simulation.
type StaticEnvironment struct {
	Text string
}

func (e StaticEnvironment) Observation() string { return e.Text }
func (e StaticEnvironment) Advance()            {}
func (e StaticEnvironment) Done() bool          { return false }
