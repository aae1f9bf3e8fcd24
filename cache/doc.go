// Package cache provides the content-addressed completion cache shared by
// every model call in an experiment run.
//
// The cache maps a deterministic digest of a canonicalized request (see
// llm.CacheKey) to the serialized response a provider returned for it.
// Re-running an experiment with overlapping prompt variants then skips the
// expensive external calls entirely, which is what makes large Cartesian
// sweeps affordable.
//
// Two implementations are provided: MemoryStore for single-process runs and
// tests, and RedisStore when multiple experiment processes should share one
// cache. Both treat a miss as the normal ErrNotFound outcome, both are safe
// under concurrent access, and concurrent writes to one key resolve to
// last-write-wins.
package cache
