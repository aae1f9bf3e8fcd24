// Package mutation expands prompt templates into the full Cartesian
// product of their mutation points.
//
// A mutation point is a named template slot with an ordered candidate
// list, either declared inline (FixedPoint) or produced by one model call
// whose output is split into lines (GeneratedPoint). Expand substitutes
// both {name} and {{name}} placeholder forms and emits one Variant per
// combination, first declared point varying slowest. Each variant carries
// its point-to-value assignments and a deterministic MutationID derived
// from them, which is what trial descriptions and dedup keys are built on.
//
// Fixed-only templates expand deterministically; generated points follow
// the model's text and are only reproducible when the generating call is
// served from the completion cache.
package mutation
