package services

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"license-server/pkg/logging"

	"github.com/redis/go-redis/v9"
)

// ActionLimit is one (max requests, window) pair
type ActionLimit struct {
	Requests int
	Window   time.Duration
}

// DefaultLimits are the per-action buckets; unknown actions fall back to
// the "default" entry.
var DefaultLimits = map[string]ActionLimit{
	"validate": {Requests: 100, Window: time.Hour},
	"activate": {Requests: 10, Window: time.Hour},
	"verify":   {Requests: 200, Window: time.Hour},
	"default":  {Requests: 50, Window: time.Hour},
}

// CounterStore keeps per-(ip, action) request timestamps. Implementations
// are best-effort: lost updates under concurrent writers are accepted.
type CounterStore interface {
	// Count prunes timestamps at or before cutoff and returns how many remain
	Count(ip, action string, cutoff time.Time) (int, error)
	// Record appends one timestamp
	Record(ip, action string, now time.Time) error
}

// RateLimiter enforces a sliding window per (client IP, action) pair
type RateLimiter struct {
	store  CounterStore
	limits map[string]ActionLimit
}

// NewRateLimiter creates a limiter over the given store
func NewRateLimiter(store CounterStore) *RateLimiter {
	return &RateLimiter{store: store, limits: DefaultLimits}
}

func (r *RateLimiter) limitFor(action string) ActionLimit {
	if l, ok := r.limits[action]; ok {
		return l
	}
	return r.limits["default"]
}

// CheckLimit returns true when the request is allowed and records it.
// Rejected attempts are logged but never recorded, so being over the limit
// does not extend the penalty window.
func (r *RateLimiter) CheckLimit(ip, action string) bool {
	limit := r.limitFor(action)
	now := time.Now()
	cutoff := now.Add(-limit.Window)

	current, err := r.store.Count(ip, action, cutoff)
	if err != nil {
		// A broken counter store must not take the API down
		logging.Errorf("Rate limit store error for %s/%s: %v", ip, action, err)
		return true
	}

	if current >= limit.Requests {
		logging.Warnf("RATE_LIMIT: IP %s exceeded limit for %s (%d/%d)", ip, action, current, limit.Requests)
		return false
	}

	if err := r.store.Record(ip, action, now); err != nil {
		logging.Errorf("Rate limit store error recording %s/%s: %v", ip, action, err)
	}
	return true
}

// Remaining reports how many requests are left in the current window
func (r *RateLimiter) Remaining(ip, action string) int {
	limit := r.limitFor(action)
	current, err := r.store.Count(ip, action, time.Now().Add(-limit.Window))
	if err != nil {
		return limit.Requests
	}
	if current >= limit.Requests {
		return 0
	}
	return limit.Requests - current
}

// FileCounterStore keeps the counters in one JSON flat file. Writes hold an
// in-process mutex; cross-process writers are not coordinated.
type FileCounterStore struct {
	path string
	mu   sync.Mutex
}

// NewFileCounterStore creates a flat-file counter store
func NewFileCounterStore(path string) *FileCounterStore {
	return &FileCounterStore{path: path}
}

type fileCounters map[string]map[string][]int64

func (f *FileCounterStore) load() (fileCounters, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return fileCounters{}, nil
		}
		return nil, err
	}
	counters := fileCounters{}
	if err := json.Unmarshal(data, &counters); err != nil {
		// A corrupt counter file resets the counters rather than wedging
		// the API.
		return fileCounters{}, nil
	}
	return counters, nil
}

func (f *FileCounterStore) save(counters fileCounters) error {
	data, err := json.Marshal(counters)
	if err != nil {
		return err
	}
	return os.WriteFile(f.path, data, 0644)
}

func prune(timestamps []int64, cutoff time.Time) []int64 {
	kept := timestamps[:0]
	limit := cutoff.Unix()
	for _, ts := range timestamps {
		if ts > limit {
			kept = append(kept, ts)
		}
	}
	return kept
}

// Count prunes old timestamps, persists the pruned state and returns the count
func (f *FileCounterStore) Count(ip, action string, cutoff time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	counters, err := f.load()
	if err != nil {
		return 0, err
	}
	if counters[ip] == nil {
		return 0, nil
	}
	counters[ip][action] = prune(counters[ip][action], cutoff)
	if err := f.save(counters); err != nil {
		return 0, err
	}
	return len(counters[ip][action]), nil
}

// Record appends the timestamp for the pair
func (f *FileCounterStore) Record(ip, action string, now time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	counters, err := f.load()
	if err != nil {
		return err
	}
	if counters[ip] == nil {
		counters[ip] = make(map[string][]int64)
	}
	counters[ip][action] = append(counters[ip][action], now.Unix())
	return f.save(counters)
}

// RedisCounterStore keeps the sliding window in a sorted set per pair
type RedisCounterStore struct {
	client *redis.Client
}

// NewRedisCounterStore creates a redis-backed counter store
func NewRedisCounterStore(client *redis.Client) *RedisCounterStore {
	return &RedisCounterStore{client: client}
}

func rateLimitKey(ip, action string) string {
	return fmt.Sprintf("rate_limit:%s:%s", ip, action)
}

// Count trims entries outside the window and returns the cardinality
func (r *RedisCounterStore) Count(ip, action string, cutoff time.Time) (int, error) {
	ctx := context.Background()
	key := rateLimitKey(ip, action)

	if err := r.client.ZRemRangeByScore(ctx, key, "-inf",
		fmt.Sprintf("%d", cutoff.UnixNano())).Err(); err != nil {
		return 0, err
	}
	n, err := r.client.ZCard(ctx, key).Result()
	return int(n), err
}

// Record adds the timestamp and refreshes the key TTL
func (r *RedisCounterStore) Record(ip, action string, now time.Time) error {
	ctx := context.Background()
	key := rateLimitKey(ip, action)

	if err := r.client.ZAdd(ctx, key, redis.Z{
		Score:  float64(now.UnixNano()),
		Member: now.UnixNano(),
	}).Err(); err != nil {
		return err
	}
	return r.client.Expire(ctx, key, 2*time.Hour).Err()
}
