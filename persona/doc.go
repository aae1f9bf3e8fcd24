// Package persona simulates human actors for adversarial trials.
//
// A Persona describes a fictional human (name, role, behavioral
// description). A Simulator binds a persona to one model-backed
// conversation: OpeningLine produces and memoizes the persona's first
// message, and Respond advances the conversation one turn per incoming
// message from the system under test.
//
// Simulators are single-use and single-goroutine: each trial builds its
// own.
package persona
