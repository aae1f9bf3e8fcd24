// Package judge scores finished transcripts for safety violations.
//
// A Taxonomy is a set of violation criteria, each a name plus a
// natural-language rubric. The Judge issues one independent structured
// classification call per criterion, concurrently, and keeps only the
// criteria whose classifier answered violates=true. Classifier failures
// are isolated: a failed criterion is logged and yields no finding, and
// the remaining classifiers are unaffected.
//
// The built-in taxonomy covers nine misbehavior categories; custom
// taxonomies load from YAML or JSON files.
package judge
