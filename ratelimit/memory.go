package ratelimit

import (
	"context"
	"math"
	"sync"
	"time"
)

const memoryShardCount = 16

type bucketState struct {
	tokens     float64
	lastRefill time.Time
}

type fixedState struct {
	window int64
	count  int
}

type memoryShard struct {
	mu      sync.Mutex
	windows map[string][]time.Time
	buckets map[string]bucketState
	fixed   map[string]fixedState
}

// MemoryBackend keeps limiter state in process memory. Keys are
// striped across locked shards so unrelated identifiers do not contend
// on one mutex. Entries self-prune as the strategies advance their
// windows; nothing else cleans up behind them.
type MemoryBackend struct {
	shards [memoryShardCount]*memoryShard
}

// NewMemoryBackend returns an empty in-process backend.
func NewMemoryBackend() *MemoryBackend {
	b := &MemoryBackend{}
	for i := range b.shards {
		b.shards[i] = &memoryShard{
			windows: make(map[string][]time.Time),
			buckets: make(map[string]bucketState),
			fixed:   make(map[string]fixedState),
		}
	}
	return b
}

func (b *MemoryBackend) shardFor(key string) *memoryShard {
	// FNV-1a, inlined to avoid an allocation per check.
	var h uint32 = 2166136261
	for i := 0; i < len(key); i++ {
		h ^= uint32(key[i])
		h *= 16777619
	}
	return b.shards[h%memoryShardCount]
}

// Check runs the limit's strategy against in-memory state.
func (b *MemoryBackend) Check(_ context.Context, key string, limit Limit, now time.Time) (Result, error) {
	if err := limit.Validate(); err != nil {
		return Result{}, err
	}

	s := b.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	switch limit.Strategy {
	case TokenBucket:
		return s.tokenBucket(key, limit, now), nil
	case FixedWindow:
		return s.fixedWindow(key, limit, now), nil
	default:
		return s.slidingWindow(key, limit, now), nil
	}
}

func (s *memoryShard) slidingWindow(key string, limit Limit, now time.Time) Result {
	cutoff := now.Add(-limit.Window)
	entries := s.windows[key]

	kept := entries[:0]
	for _, ts := range entries {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}

	if len(kept) < limit.Requests {
		kept = append(kept, now)
		s.windows[key] = kept
		return Result{
			Allowed:   true,
			Remaining: limit.Requests - len(kept),
			ResetAt:   kept[0].Add(limit.Window),
		}
	}

	s.windows[key] = kept
	reset := kept[0].Add(limit.Window)
	retry := reset.Sub(now)
	if retry <= 0 {
		retry = time.Millisecond
	}
	return Result{
		Allowed:    false,
		Remaining:  0,
		ResetAt:    reset,
		RetryAfter: retry,
	}
}

func (s *memoryShard) tokenBucket(key string, limit Limit, now time.Time) Result {
	state, ok := s.buckets[key]
	if !ok {
		state = bucketState{tokens: float64(limit.Requests), lastRefill: now}
	}

	rate := float64(limit.Requests) / limit.Window.Seconds()
	if elapsed := now.Sub(state.lastRefill).Seconds(); elapsed > 0 {
		state.tokens = math.Min(float64(limit.Requests), state.tokens+elapsed*rate)
	}
	state.lastRefill = now

	if state.tokens >= 1 {
		state.tokens--
		s.buckets[key] = state
		return Result{
			Allowed:   true,
			Remaining: int(state.tokens),
			ResetAt:   now.Add(limit.Window),
		}
	}

	s.buckets[key] = state
	retry := time.Duration(math.Ceil((1-state.tokens)/rate*1000)) * time.Millisecond
	if retry <= 0 {
		retry = time.Millisecond
	}
	return Result{
		Allowed:    false,
		Remaining:  0,
		ResetAt:    now.Add(retry),
		RetryAfter: retry,
	}
}

func (s *memoryShard) fixedWindow(key string, limit Limit, now time.Time) Result {
	idx := now.UnixNano() / int64(limit.Window)

	state := s.fixed[key]
	if state.window != idx {
		state = fixedState{window: idx}
	}
	state.count++
	s.fixed[key] = state

	reset := time.Unix(0, (idx+1)*int64(limit.Window))
	remaining := limit.Requests - state.count
	if remaining < 0 {
		remaining = 0
	}

	if state.count <= limit.Requests {
		return Result{Allowed: true, Remaining: remaining, ResetAt: reset}
	}

	retry := reset.Sub(now)
	if retry <= 0 {
		retry = time.Millisecond
	}
	return Result{
		Allowed:    false,
		Remaining:  0,
		ResetAt:    reset,
		RetryAfter: retry,
	}
}
