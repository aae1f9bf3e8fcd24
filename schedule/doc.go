// Package schedule fans an experiment's variant/persona grid out into
// concurrent trials. A counting admission gate fixes how many trials run
// at once; each unit acquires a slot, drives its conversation for a
// bounded number of environment iterations, persists the transcript,
// judges it, records the findings, and releases its slot on every exit
// path. One unit's failure never cancels its siblings: the scheduler
// returns only after every unit is terminal, reporting per-unit
// success or failure.
package schedule
