package twine

// Interpreter is the top-level embedding type: it owns the config, the
// logger, the scheduler, and the root environment a program's root fiber
// runs against.
type Interpreter struct {
	config *Config
	logger *Logger
	sched  *Scheduler
	root   *Environment
}

// New constructs an Interpreter from cfg, wiring the logger's enabled
// categories and the scheduler's I/O backend, and populating a fresh root
// environment with the built-in procedure surface.
func New(cfg *Config) *Interpreter {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	logger := NewLogger(cfg.Debug)
	for _, cat := range cfg.LogCategories {
		logger.EnableCategory(Category(cat))
	}

	sched := NewScheduler(cfg.IOWorkers, cfg.MaxInFlightIO, logger, cfg.Stdin, cfg.Stdout, cfg.Stderr)

	root := NewRoot()
	RegisterBuiltins(root)

	return &Interpreter{config: cfg, logger: logger, sched: sched, root: root}
}

// Environment returns the interpreter's root environment, so a caller
// (typically a collaborator parser feeding Run, or a test) can Define
// additional top-level bindings before running a program.
func (ip *Interpreter) Environment() *Environment { return ip.root }

func (ip *Interpreter) Logger() *Logger { return ip.logger }

func (ip *Interpreter) Scheduler() *Scheduler { return ip.sched }

// Run creates the root fiber, whose body is evaluating program against
// the top-level environment, and blocks until it completes, then shuts
// the scheduler down. Any fiber spawned by the program and still running
// when the root fiber finishes is abandoned — Run gives it no further
// chance to proceed.
func (ip *Interpreter) Run(program []*Node) (Value, error) {
	thunk := func(f *Fiber) (Value, error) {
		fc := &FiberContext{Fiber: f, Scheduler: ip.sched}
		return EvalBody(program, ip.root, fc)
	}
	handle := ip.sched.SpawnRoot(thunk)
	v, err := ip.sched.WaitFor(*handle)
	ip.Shutdown()
	return v, err
}

// Shutdown stops the scheduler's I/O backend and restores the GOMAXPROCS
// value DefaultConfig's automaxprocs adjustment replaced. Safe to call
// more than once.
func (ip *Interpreter) Shutdown() {
	ip.sched.Shutdown()
	ip.config.ReleaseGOMAXPROCS()
}
