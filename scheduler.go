package twine

import (
	"bufio"
	"io"
	"sync"
	"sync/atomic"
)

// SchedulerStats is a read-only snapshot of scheduler activity: plain
// counters for observability, not a telemetry system.
type SchedulerStats struct {
	FibersSpawned   int64
	FibersCompleted int64
	ContextSwitches int64
	IOOpsSubmitted  int64
	IOOpsCompleted  int64
}

// Scheduler owns the fiber table and drives fiber execution. Each fiber
// is a goroutine; the Go runtime's own M:N scheduler is the pool of
// worker threads advancing them, sized to GOMAXPROCS (set via
// automaxprocs at Interpreter construction) rather than a second,
// hand-rolled dispatch loop on top of goroutines.
type Scheduler struct {
	mu     sync.Mutex
	fibers map[FiberID]*Fiber
	nextID int64

	io *ioBackend

	spawned    int64
	completed  int64
	ctxSwitch  int64
	ioSubmit   int64
	ioComplete int64

	logger *Logger

	Stdin  *bufio.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// NewScheduler creates a scheduler with a dedicated async I/O backend of
// ioWorkers goroutines, admitting at most maxInFlightIO concurrent
// operations. stdin/stdout/stderr back the display/newline/read-line
// built-ins; tests and embedders can substitute any io.Reader/io.Writer
// here instead of the OS streams.
func NewScheduler(ioWorkers int, maxInFlightIO int64, logger *Logger, stdin io.Reader, stdout, stderr io.Writer) *Scheduler {
	if ioWorkers < 1 {
		ioWorkers = 1
	}
	if maxInFlightIO < 1 {
		maxInFlightIO = 1
	}
	return &Scheduler{
		fibers: make(map[FiberID]*Fiber),
		io:     newIOBackend(ioWorkers, maxInFlightIO),
		logger: logger,
		Stdin:  bufio.NewReader(stdin),
		Stdout: stdout,
		Stderr: stderr,
	}
}

// SpawnRoot creates the distinguished root fiber (id 0) that runs the
// top-level program.
func (s *Scheduler) SpawnRoot(thunk func(*Fiber) (Value, error)) *FiberHandle {
	return s.spawn(FiberID(0), nil, thunk)
}

// Spawn creates a new fiber whose body is thunk, parented to parent if
// given (nil for spawn-fiber, which the spec defines as parentless).
// Spawn returns as soon as the fiber is registered, before any worker
// necessarily begins running it: spawning is a non-blocking handshake.
func (s *Scheduler) Spawn(thunk func(*Fiber) (Value, error), parent *FiberID) *FiberHandle {
	id := FiberID(atomic.AddInt64(&s.nextID, 1))
	return s.spawn(id, parent, thunk)
}

func (s *Scheduler) spawn(id FiberID, parent *FiberID, thunk func(*Fiber) (Value, error)) *FiberHandle {
	fiber := newFiber(id, parent)

	s.mu.Lock()
	s.fibers[id] = fiber
	s.mu.Unlock()

	atomic.AddInt64(&s.spawned, 1)
	if s.logger != nil {
		s.logger.Debug(CategoryFiber, "spawned fiber %d (parent %v)", id, parent)
	}

	go s.run(fiber, thunk)

	return &FiberHandle{id: id}
}

func (s *Scheduler) run(fiber *Fiber, thunk func(*Fiber) (Value, error)) {
	fiber.setState(FiberReady)
	atomic.AddInt64(&s.ctxSwitch, 1)
	fiber.setState(FiberRunning)

	var v Value
	var err error
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = internalError(nil, "fiber panic: %v", r)
			}
		}()
		v, err = thunk(fiber)
	}()

	fiber.finish(v, err)
	atomic.AddInt64(&s.completed, 1)
	if s.logger != nil {
		if err != nil {
			s.logger.Error(CategoryFiber, "fiber %d completed with error: %v", fiber.ID, err)
		} else {
			s.logger.Debug(CategoryFiber, "fiber %d completed", fiber.ID)
		}
	}
}

// Lookup returns the fiber registered under id, or nil if none exists.
// Fiber table entries are never removed once registered (a completed
// fiber's Result() must stay answerable to any later fiber-wait), so
// lookups by id remain valid for the scheduler's whole lifetime.
func (s *Scheduler) Lookup(id FiberID) *Fiber {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fibers[id]
}

// WaitFor blocks until the fiber behind h completes and returns its
// terminal value/error.
func (s *Scheduler) WaitFor(h FiberHandle) (Value, error) {
	f := s.Lookup(h.id)
	if f == nil {
		return Value{}, internalError(nil, "fiber-wait: unknown fiber")
	}
	<-f.doneCh
	v, err, _ := f.Result()
	return v, err
}

// FiberWaitFrom implements the `fiber-wait` built-in's algorithm: caller
// suspends (Suspended(FiberWait)) until target completes, then resumes
// carrying target's terminal value, or re-raising target's error in
// caller. A fiber waiting on itself is rejected immediately rather than
// deadlocking. Waiting on an already-completed target returns at once
// with its stored result — any number of callers can do this repeatedly
// and always observe the same outcome, since doneCh is closed, and
// result/err written, exactly once.
func (s *Scheduler) FiberWaitFrom(caller *Fiber, target FiberHandle) (Value, error) {
	if caller.ID == target.id {
		return Value{}, internalError(nil, "fiber-wait: a fiber cannot wait on itself")
	}
	f := s.Lookup(target.id)
	if f == nil {
		return Value{}, internalError(nil, "fiber-wait: unknown fiber")
	}

	caller.setState(FiberSuspendedWait)
	<-f.doneCh
	caller.setState(FiberReady)
	atomic.AddInt64(&s.ctxSwitch, 1)
	caller.setState(FiberRunning)

	v, err, _ := f.Result()
	return v, err
}

// SubmitIO suspends fiber on an I/O operation (Suspended(IoPending)),
// runs op on the backend worker pool, and resumes fiber once it
// completes. Built-ins that touch stdin/stdout/stderr are the only
// callers.
func (s *Scheduler) SubmitIO(fiber *Fiber, op func() (Value, error)) (Value, error) {
	atomic.AddInt64(&s.ioSubmit, 1)
	fiber.setState(FiberSuspendedIO)

	v, err := s.io.submit(op)

	fiber.setState(FiberReady)
	atomic.AddInt64(&s.ctxSwitch, 1)
	fiber.setState(FiberRunning)
	atomic.AddInt64(&s.ioComplete, 1)

	return v, err
}

// Stats returns a snapshot of scheduler activity counters.
func (s *Scheduler) Stats() SchedulerStats {
	return SchedulerStats{
		FibersSpawned:   atomic.LoadInt64(&s.spawned),
		FibersCompleted: atomic.LoadInt64(&s.completed),
		ContextSwitches: atomic.LoadInt64(&s.ctxSwitch),
		IOOpsSubmitted:  atomic.LoadInt64(&s.ioSubmit),
		IOOpsCompleted:  atomic.LoadInt64(&s.ioComplete),
	}
}

// Shutdown stops the async I/O backend and waits for its workers to
// drain. Any fiber still incomplete at this point becomes unreachable —
// its goroutine is abandoned, not an error; Go gives no mechanism to
// forcibly terminate a goroutine.
func (s *Scheduler) Shutdown() {
	s.io.shutdown()
}
