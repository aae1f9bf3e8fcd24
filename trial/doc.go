// Package trial defines the experiment domain model: an Experiment is a
// batch of Trials, each trial one driver-versus-persona conversation, and
// a Finding is one confirmed violation in a trial's transcript.
package trial
