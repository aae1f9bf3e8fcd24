// Package storage persists experiments, trials, transcripts, and
// violations. The Store interface is the persistence boundary the
// scheduler writes through; SQLiteStore is the reference implementation,
// a single sqlite file with embedded migrations.
package storage
