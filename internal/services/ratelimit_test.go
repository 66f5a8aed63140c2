package services

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(t *testing.T, requests int) (*RateLimiter, *FileCounterStore) {
	t.Helper()
	store := NewFileCounterStore(filepath.Join(t.TempDir(), "rate_limits.json"))
	limiter := &RateLimiter{
		store: store,
		limits: map[string]ActionLimit{
			"test":    {Requests: requests, Window: time.Hour},
			"default": {Requests: 2, Window: time.Hour},
		},
	}
	return limiter, store
}

func TestCheckLimitAllowsUpToLimit(t *testing.T) {
	limiter, _ := newTestLimiter(t, 3)

	for i := 0; i < 3; i++ {
		assert.True(t, limiter.CheckLimit("10.0.0.1", "test"), "request %d should pass", i+1)
	}
	assert.False(t, limiter.CheckLimit("10.0.0.1", "test"))
	assert.Zero(t, limiter.Remaining("10.0.0.1", "test"))

	// Another IP has its own bucket
	assert.True(t, limiter.CheckLimit("10.0.0.2", "test"))
}

func TestRejectedAttemptsNotRecorded(t *testing.T) {
	limiter, store := newTestLimiter(t, 2)

	assert.True(t, limiter.CheckLimit("10.0.0.1", "test"))
	assert.True(t, limiter.CheckLimit("10.0.0.1", "test"))
	assert.False(t, limiter.CheckLimit("10.0.0.1", "test"))
	assert.False(t, limiter.CheckLimit("10.0.0.1", "test"))

	// Being over the limit must not extend the penalty window
	count, err := store.Count("10.0.0.1", "test", time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestUnknownActionFallsBackToDefault(t *testing.T) {
	limiter, _ := newTestLimiter(t, 10)

	assert.True(t, limiter.CheckLimit("10.0.0.1", "something_else"))
	assert.True(t, limiter.CheckLimit("10.0.0.1", "something_else"))
	assert.False(t, limiter.CheckLimit("10.0.0.1", "something_else"))
}

func TestDefaultLimitsMatchActions(t *testing.T) {
	limiter := NewRateLimiter(NewFileCounterStore(filepath.Join(t.TempDir(), "rl.json")))

	assert.Equal(t, 100, limiter.limitFor("validate").Requests)
	assert.Equal(t, 10, limiter.limitFor("activate").Requests)
	assert.Equal(t, 200, limiter.limitFor("verify").Requests)
	assert.Equal(t, 50, limiter.limitFor("nope").Requests)
}

func TestFileStorePrunesOldTimestamps(t *testing.T) {
	store := NewFileCounterStore(filepath.Join(t.TempDir(), "rl.json"))

	require.NoError(t, store.Record("10.0.0.1", "test", time.Now().Add(-2*time.Hour)))
	require.NoError(t, store.Record("10.0.0.1", "test", time.Now()))

	count, err := store.Count("10.0.0.1", "test", time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestFileStoreCorruptFileResets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rl.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))
	store := NewFileCounterStore(path)

	count, err := store.Count("10.0.0.1", "test", time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Zero(t, count)

	require.NoError(t, store.Record("10.0.0.1", "test", time.Now()))
	count, err = store.Count("10.0.0.1", "test", time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestFileStoreSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rl.json")
	first := NewFileCounterStore(path)
	require.NoError(t, first.Record("10.0.0.1", "test", time.Now()))

	second := NewFileCounterStore(path)
	count, err := second.Count("10.0.0.1", "test", time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
