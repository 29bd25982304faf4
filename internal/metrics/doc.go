// Package metrics holds the engine's in-process counters. Counters are
// plain atomics; a Snapshot is a deep copy safe to hand to callers.
package metrics
