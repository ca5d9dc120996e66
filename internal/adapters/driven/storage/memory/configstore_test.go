package memory

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigStore_SetAndGet(t *testing.T) {
	store := NewConfigStore()

	_, ok := store.Get("probe.timeout")
	assert.False(t, ok)

	require.NoError(t, store.Set("probe.timeout", "15s"))
	require.NoError(t, store.Set("probe.timeout", "20s"))

	val, ok := store.Get("probe.timeout")
	assert.True(t, ok)
	assert.Equal(t, "20s", val)
}

func TestConfigStore_TypedGetters(t *testing.T) {
	store := NewConfigStore()
	_ = store.Set("server.addr", ":8080")
	_ = store.Set("refresh.max_concurrency", int64(2))
	_ = store.Set("workers_int", 3)
	_ = store.Set("workers_float", 4.0)
	_ = store.Set("background.enabled", true)

	assert.Equal(t, ":8080", store.GetString("server.addr"))
	assert.Empty(t, store.GetString("refresh.max_concurrency"))
	assert.Empty(t, store.GetString("missing"))

	assert.Equal(t, 2, store.GetInt("refresh.max_concurrency"))
	assert.Equal(t, 3, store.GetInt("workers_int"))
	assert.Equal(t, 4, store.GetInt("workers_float"))
	assert.Zero(t, store.GetInt("server.addr"))

	assert.True(t, store.GetBool("background.enabled"))
	assert.False(t, store.GetBool("server.addr"))
	assert.False(t, store.GetBool("missing"))
}

func TestConfigStore_Path(t *testing.T) {
	assert.Equal(t, ":memory:", NewConfigStore().Path())
}

func TestConfigStore_ConcurrentAccess(t *testing.T) {
	store := NewConfigStore()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			_ = store.Set("refresh.max_concurrency", int64(n))
		}(i)
		go func() {
			defer wg.Done()
			_ = store.GetInt("refresh.max_concurrency")
		}()
	}
	wg.Wait()

	_, ok := store.Get("refresh.max_concurrency")
	assert.True(t, ok)
}

func TestConfigStore_Watch(t *testing.T) {
	store := NewConfigStore()
	ctx, cancel := context.WithCancel(context.Background())

	var changes atomic.Int32
	done := make(chan error, 1)
	go func() {
		done <- store.Watch(ctx, func() { changes.Add(1) })
	}()

	// Wait for the watcher to register.
	require.Eventually(t, func() bool {
		store.mu.RLock()
		defer store.mu.RUnlock()
		return len(store.subs) == 1
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, store.Set("background.interval", "1h"))
	require.Eventually(t, func() bool { return changes.Load() >= 1 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Watch did not return after cancel")
	}

	store.mu.RLock()
	assert.Empty(t, store.subs)
	store.mu.RUnlock()
}
