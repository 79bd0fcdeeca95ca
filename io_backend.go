package twine

import (
	"context"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// ioRequest is one queued operation for the async I/O backend. token is a
// collision-proof identifier for the in-flight operation (stats/tracing
// only — completion is delivered over resultCh, not looked up by token).
type ioRequest struct {
	token    uuid.UUID
	op       func() (Value, error)
	resultCh chan ioResult
}

type ioResult struct {
	value Value
	err   error
}

// ioBackend is the fixed pool of worker goroutines that perform real,
// blocking I/O syscalls: a display/newline/read-line built-in never
// touches stdin/stdout itself, it submits a closure here and blocks its
// own fiber goroutine on a completion channel instead of making the
// blocking call directly. errgroup supervises the worker goroutines as a
// unit; semaphore bounds how many operations may be in flight at once so
// a burst of concurrently spawned I/O fibers cannot grow the request queue
// without limit.
type ioBackend struct {
	reqCh  chan ioRequest
	sem    *semaphore.Weighted
	group  *errgroup.Group
	ctx    context.Context
	cancel context.CancelFunc
}

func newIOBackend(workerCount int, maxInFlight int64) *ioBackend {
	ctx, cancel := context.WithCancel(context.Background())
	group, gctx := errgroup.WithContext(ctx)
	b := &ioBackend{
		reqCh:  make(chan ioRequest),
		sem:    semaphore.NewWeighted(maxInFlight),
		group:  group,
		ctx:    gctx,
		cancel: cancel,
	}
	for i := 0; i < workerCount; i++ {
		group.Go(func() error {
			for {
				select {
				case <-gctx.Done():
					return nil
				case req := <-b.reqCh:
					v, err := req.op()
					req.resultCh <- ioResult{value: v, err: err}
				}
			}
		})
	}
	return b
}

// submit runs op on a backend worker and blocks the caller — which is
// always a fiber's own goroutine — until it completes. This is the
// suspension point: the calling goroutine parks on a channel receive
// instead of making the blocking call itself.
func (b *ioBackend) submit(op func() (Value, error)) (Value, error) {
	if err := b.sem.Acquire(b.ctx, 1); err != nil {
		return Value{}, ioError(nil, "io backend is shutting down")
	}
	defer b.sem.Release(1)

	resultCh := make(chan ioResult, 1)
	req := ioRequest{token: uuid.New(), op: op, resultCh: resultCh}

	select {
	case b.reqCh <- req:
	case <-b.ctx.Done():
		return Value{}, ioError(nil, "io backend is shutting down")
	}

	select {
	case res := <-resultCh:
		return res.value, res.err
	case <-b.ctx.Done():
		return Value{}, ioError(nil, "io backend is shutting down")
	}
}

// shutdown stops accepting new work and waits for in-flight operations'
// worker goroutines to drain.
func (b *ioBackend) shutdown() {
	b.cancel()
	_ = b.group.Wait()
}
