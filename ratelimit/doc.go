// Package ratelimit bounds request rates per identifier using one of
// three interchangeable strategies: sliding window (exact), token
// bucket (burst-tolerant), and fixed window (cheap, up to 2x burst at
// boundaries).
//
// State lives in a pluggable Backend. The Redis backend gives
// multi-instance correctness through atomic Lua scripts; the memory
// backend covers single-process deployments and doubles as the
// fallback when Redis is unreachable. The Limiter itself never fails a
// request because of its own outage: if every backend errors it fails
// open and logs loudly.
package ratelimit
