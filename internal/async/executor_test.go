package async

import (
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunAsyncExecutes(t *testing.T) {
	e := NewExecutor(16)
	defer e.Shutdown(time.Second)

	var wg sync.WaitGroup
	var n atomic.Int64
	for i := 0; i < 100; i++ {
		wg.Add(1)
		err := e.RunAsync(func() {
			defer wg.Done()
			n.Add(1)
		})
		require.NoError(t, err)
	}
	wg.Wait()
	assert.Equal(t, int64(100), n.Load())
}

func TestRunAsyncRecoversPanic(t *testing.T) {
	e := NewExecutor(4)
	defer e.Shutdown(time.Second)

	done := make(chan struct{})
	require.NoError(t, e.RunAsync(func() { panic("boom") }))
	require.NoError(t, e.RunAsync(func() { close(done) }))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("executor stopped processing after a panicking task")
	}
}

func TestSupplyAsync(t *testing.T) {
	e := NewExecutor(4)
	defer e.Shutdown(time.Second)

	out := SupplyAsync(e, func() int { return 42 })
	select {
	case v := <-out:
		assert.Equal(t, 42, v)
	case <-time.After(2 * time.Second):
		t.Fatal("no result")
	}
}

func TestSupplyWithTimeout(t *testing.T) {
	e := NewExecutor(4)
	defer e.Shutdown(time.Second)

	v := SupplyWithTimeout(e, time.Second, -1, func() int { return 7 })
	assert.Equal(t, 7, v)

	v = SupplyWithTimeout(e, 20*time.Millisecond, -1, func() int {
		time.Sleep(500 * time.Millisecond)
		return 7
	})
	assert.Equal(t, -1, v)
}

func TestShutdownRejectsAndResetReenables(t *testing.T) {
	e := NewExecutor(4)
	e.Shutdown(time.Second)

	err := e.RunAsync(func() {})
	require.ErrorIs(t, err, ErrShutdown)
	assert.False(t, e.TrySubmit(func() {}))

	e.Reset()
	done := make(chan struct{})
	require.NoError(t, e.RunAsync(func() { close(done) }))
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("task did not run after Reset")
	}
}

func TestTrySubmitSaturation(t *testing.T) {
	e := NewExecutor(1)
	release := make(chan struct{})
	defer func() {
		close(release)
		e.Shutdown(time.Second)
	}()

	// occupy every worker plus the single queue slot
	limit := runtime.NumCPU()*2 + 8
	for i := 0; i < limit; i++ {
		if !e.TrySubmit(func() { <-release }) {
			break
		}
	}
	saturated := false
	for i := 0; i < limit; i++ {
		if !e.TrySubmit(func() { <-release }) {
			saturated = true
			break
		}
	}
	assert.True(t, saturated, "bounded queue never reported saturation")
}
