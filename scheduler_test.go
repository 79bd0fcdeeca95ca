package twine

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestScheduler() *Scheduler {
	var stdin bytes.Buffer
	var stdout bytes.Buffer
	return NewScheduler(2, 4, NewLogger(false), &stdin, &stdout, &stdout)
}

func TestSpawnAndWaitForReturnsResult(t *testing.T) {
	s := newTestScheduler()
	handle := s.Spawn(func(f *Fiber) (Value, error) {
		return Number(7), nil
	}, nil)

	v, err := s.WaitFor(*handle)
	require.NoError(t, err)
	assert.True(t, Equal(Number(7), v))
}

func TestWaitForPropagatesFiberError(t *testing.T) {
	s := newTestScheduler()
	handle := s.Spawn(func(f *Fiber) (Value, error) {
		return Value{}, numericError(nil, "boom")
	}, nil)

	_, err := s.WaitFor(*handle)
	require.Error(t, err)
	var evalErr *EvalError
	require.ErrorAs(t, err, &evalErr)
	assert.Equal(t, KindNumeric, evalErr.Kind)
}

func TestFiberWaitIsIdempotentAcrossMultipleWaiters(t *testing.T) {
	s := newTestScheduler()
	release := make(chan struct{})
	handle := s.Spawn(func(f *Fiber) (Value, error) {
		<-release
		return String("done"), nil
	}, nil)

	root := newFiber(1000, nil)
	results := make(chan Value, 3)
	for i := 0; i < 3; i++ {
		go func() {
			v, err := s.FiberWaitFrom(root, *handle)
			require.NoError(t, err)
			results <- v
		}()
	}

	close(release)
	for i := 0; i < 3; i++ {
		v := <-results
		assert.True(t, Equal(String("done"), v))
	}
}

func TestSelfWaitIsRejectedNotDeadlocked(t *testing.T) {
	s := newTestScheduler()
	done := make(chan error, 1)
	handle := s.Spawn(func(f *Fiber) (Value, error) {
		_, err := s.FiberWaitFrom(f, FiberHandle{id: f.ID})
		done <- err
		return Nil, nil
	}, nil)
	_, _ = s.WaitFor(*handle)

	select {
	case err := <-done:
		require.Error(t, err)
		var evalErr *EvalError
		require.ErrorAs(t, err, &evalErr)
		assert.Equal(t, KindInternal, evalErr.Kind)
	case <-time.After(2 * time.Second):
		t.Fatal("self-wait deadlocked instead of erroring")
	}
}

func TestSubmitIOTransitionsFiberState(t *testing.T) {
	s := newTestScheduler()
	f := newFiber(1, nil)
	assert.Equal(t, FiberReady, f.State())

	v, err := s.SubmitIO(f, func() (Value, error) {
		assert.Equal(t, FiberSuspendedIO, f.State())
		return Number(1), nil
	})
	require.NoError(t, err)
	assert.True(t, Equal(Number(1), v))
	assert.Equal(t, FiberRunning, f.State())
}

func TestStatsReflectActivity(t *testing.T) {
	s := newTestScheduler()
	h := s.Spawn(func(f *Fiber) (Value, error) { return Nil, nil }, nil)
	_, _ = s.WaitFor(*h)

	stats := s.Stats()
	assert.GreaterOrEqual(t, stats.FibersSpawned, int64(1))
	assert.GreaterOrEqual(t, stats.FibersCompleted, int64(1))
}

func TestShutdownDrainsIOBackend(t *testing.T) {
	s := newTestScheduler()
	f := newFiber(1, nil)
	_, err := s.SubmitIO(f, func() (Value, error) { return Nil, nil })
	require.NoError(t, err)
	s.Shutdown()
}
