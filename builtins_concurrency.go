package twine

import "runtime"

// registerConcurrency wires the built-in half of fiber concurrency:
// `spawn-fiber` and `fiber-wait` (the special form half, `async`, lives in
// evaluator.go since it must avoid evaluating its body at the call site),
// plus the fiber introspection and cooperative-yield built-ins.
func registerConcurrency(env *Environment) {
	defineBuiltin(env, "spawn-fiber", func(args []Value, fc *FiberContext, pos *SourcePosition) (Value, error) {
		if len(args) != 1 {
			return Value{}, arityError(pos, "spawn-fiber", 1, len(args))
		}
		proc, ok := args[0].AsProcedure()
		if !ok {
			return Value{}, typeError(pos, "procedure", args[0].Kind().String())
		}
		if proc.Arity() != 0 && proc.Kind == ProcLambda {
			return Value{}, arityError(pos, "spawn-fiber", 0, proc.Arity())
		}
		procVal := args[0]
		thunk := func(f *Fiber) (Value, error) {
			childFC := &FiberContext{Fiber: f, Scheduler: fc.Scheduler}
			return Apply(procVal, nil, childFC, pos)
		}
		// spawn-fiber creates a parentless fiber (distinct from `async`,
		// which parents the spawned fiber to the caller).
		handle := fc.Scheduler.Spawn(thunk, nil)
		return FiberValue(*handle), nil
	})

	defineBuiltin(env, "fiber-wait", func(args []Value, fc *FiberContext, pos *SourcePosition) (Value, error) {
		if len(args) != 1 {
			return Value{}, arityError(pos, "fiber-wait", 1, len(args))
		}
		handle, ok := args[0].AsFiberHandle()
		if !ok {
			return Value{}, typeError(pos, "fiber", args[0].Kind().String())
		}
		return fc.Scheduler.FiberWaitFrom(fc.Fiber, handle)
	})

	defineBuiltin(env, "fiber?", func(args []Value, fc *FiberContext, pos *SourcePosition) (Value, error) {
		if len(args) != 1 {
			return Value{}, arityError(pos, "fiber?", 1, len(args))
		}
		return Bool(args[0].IsFiber()), nil
	})

	defineBuiltin(env, "fiber-id", func(args []Value, fc *FiberContext, pos *SourcePosition) (Value, error) {
		if len(args) != 1 {
			return Value{}, arityError(pos, "fiber-id", 1, len(args))
		}
		handle, ok := args[0].AsFiberHandle()
		if !ok {
			return Value{}, typeError(pos, "fiber", args[0].Kind().String())
		}
		return Number(float64(handle.id)), nil
	})

	defineBuiltin(env, "yield", func(args []Value, fc *FiberContext, pos *SourcePosition) (Value, error) {
		if len(args) != 0 {
			return Value{}, arityError(pos, "yield", 0, len(args))
		}
		fc.Fiber.setState(FiberSuspendedYield)
		runtime.Gosched()
		fc.Fiber.setState(FiberRunning)
		return Nil, nil
	})
}
