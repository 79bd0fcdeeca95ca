package twine

// RegisterBuiltins populates env with the built-in procedure surface.
// It is normally called once on a fresh root Environment.
func RegisterBuiltins(env *Environment) {
	registerArithmetic(env)
	registerComparison(env)
	registerListOps(env)
	registerPredicates(env)
	registerHigherOrder(env)
	registerIO(env)
	registerConcurrency(env)
}

func defineBuiltin(env *Environment, name string, fn BuiltinFunc) {
	env.Define(Intern(name), ProcedureValue(&Procedure{Kind: ProcBuiltin, Name: name, Builtin: fn}))
}

func wantNumber(args []Value, i int, op string, pos *SourcePosition) (float64, error) {
	n, ok := args[i].AsNumber()
	if !ok {
		return 0, typeError(pos, "number", args[i].Kind().String())
	}
	_ = op
	return n, nil
}

func registerArithmetic(env *Environment) {
	defineBuiltin(env, "+", func(args []Value, fc *FiberContext, pos *SourcePosition) (Value, error) {
		sum := 0.0
		for i := range args {
			n, err := wantNumber(args, i, "+", pos)
			if err != nil {
				return Value{}, err
			}
			sum += n
		}
		return Number(sum), nil
	})

	defineBuiltin(env, "-", func(args []Value, fc *FiberContext, pos *SourcePosition) (Value, error) {
		if len(args) == 0 {
			return Value{}, arityError(pos, "-", 1, 0)
		}
		first, err := wantNumber(args, 0, "-", pos)
		if err != nil {
			return Value{}, err
		}
		if len(args) == 1 {
			return Number(-first), nil
		}
		acc := first
		for i := 1; i < len(args); i++ {
			n, err := wantNumber(args, i, "-", pos)
			if err != nil {
				return Value{}, err
			}
			acc -= n
		}
		return Number(acc), nil
	})

	defineBuiltin(env, "*", func(args []Value, fc *FiberContext, pos *SourcePosition) (Value, error) {
		product := 1.0
		for i := range args {
			n, err := wantNumber(args, i, "*", pos)
			if err != nil {
				return Value{}, err
			}
			product *= n
		}
		return Number(product), nil
	})

	defineBuiltin(env, "/", func(args []Value, fc *FiberContext, pos *SourcePosition) (Value, error) {
		if len(args) == 0 {
			return Value{}, arityError(pos, "/", 1, 0)
		}
		first, err := wantNumber(args, 0, "/", pos)
		if err != nil {
			return Value{}, err
		}
		if len(args) == 1 {
			if first == 0 {
				return Value{}, numericError(pos, "division by zero")
			}
			return Number(1 / first), nil
		}
		acc := first
		for i := 1; i < len(args); i++ {
			n, err := wantNumber(args, i, "/", pos)
			if err != nil {
				return Value{}, err
			}
			if n == 0 {
				return Value{}, numericError(pos, "division by zero")
			}
			acc /= n
		}
		return Number(acc), nil
	})
}

func registerComparison(env *Environment) {
	chain := func(name string, ok func(a, b float64) bool) BuiltinFunc {
		return func(args []Value, fc *FiberContext, pos *SourcePosition) (Value, error) {
			if len(args) < 2 {
				return Value{}, arityError(pos, name, 2, len(args))
			}
			prev, err := wantNumber(args, 0, name, pos)
			if err != nil {
				return Value{}, err
			}
			for i := 1; i < len(args); i++ {
				n, err := wantNumber(args, i, name, pos)
				if err != nil {
					return Value{}, err
				}
				if !ok(prev, n) {
					return False, nil
				}
				prev = n
			}
			return True, nil
		}
	}
	defineBuiltin(env, "=", chain("=", func(a, b float64) bool { return a == b }))
	defineBuiltin(env, "<", chain("<", func(a, b float64) bool { return a < b }))
	defineBuiltin(env, ">", chain(">", func(a, b float64) bool { return a > b }))
	defineBuiltin(env, "<=", chain("<=", func(a, b float64) bool { return a <= b }))
	defineBuiltin(env, ">=", chain(">=", func(a, b float64) bool { return a >= b }))

	defineBuiltin(env, "equal?", func(args []Value, fc *FiberContext, pos *SourcePosition) (Value, error) {
		if len(args) != 2 {
			return Value{}, arityError(pos, "equal?", 2, len(args))
		}
		return Bool(Equal(args[0], args[1])), nil
	})
}

func registerListOps(env *Environment) {
	defineBuiltin(env, "cons", func(args []Value, fc *FiberContext, pos *SourcePosition) (Value, error) {
		if len(args) != 2 {
			return Value{}, arityError(pos, "cons", 2, len(args))
		}
		v, ok := Cons(args[0], args[1])
		if !ok {
			return Value{}, typeError(pos, "list", args[1].Kind().String())
		}
		return v, nil
	})

	defineBuiltin(env, "car", func(args []Value, fc *FiberContext, pos *SourcePosition) (Value, error) {
		if len(args) != 1 {
			return Value{}, arityError(pos, "car", 1, len(args))
		}
		v, ok := args[0].Head()
		if !ok {
			return Value{}, typeError(pos, "pair", args[0].Kind().String())
		}
		return v, nil
	})

	defineBuiltin(env, "cdr", func(args []Value, fc *FiberContext, pos *SourcePosition) (Value, error) {
		if len(args) != 1 {
			return Value{}, arityError(pos, "cdr", 1, len(args))
		}
		v, ok := args[0].Tail()
		if !ok {
			return Value{}, typeError(pos, "pair", args[0].Kind().String())
		}
		return v, nil
	})

	defineBuiltin(env, "list", func(args []Value, fc *FiberContext, pos *SourcePosition) (Value, error) {
		return List(args...), nil
	})

	defineBuiltin(env, "length", func(args []Value, fc *FiberContext, pos *SourcePosition) (Value, error) {
		if len(args) != 1 {
			return Value{}, arityError(pos, "length", 1, len(args))
		}
		n, ok := args[0].Len()
		if !ok {
			return Value{}, typeError(pos, "list", args[0].Kind().String())
		}
		return Number(float64(n)), nil
	})

	defineBuiltin(env, "append", func(args []Value, fc *FiberContext, pos *SourcePosition) (Value, error) {
		var all []Value
		for _, a := range args {
			items, ok := a.Slice()
			if !ok {
				return Value{}, typeError(pos, "list", a.Kind().String())
			}
			all = append(all, items...)
		}
		return List(all...), nil
	})

	defineBuiltin(env, "reverse", func(args []Value, fc *FiberContext, pos *SourcePosition) (Value, error) {
		if len(args) != 1 {
			return Value{}, arityError(pos, "reverse", 1, len(args))
		}
		items, ok := args[0].Slice()
		if !ok {
			return Value{}, typeError(pos, "list", args[0].Kind().String())
		}
		out := make([]Value, len(items))
		for i, v := range items {
			out[len(items)-1-i] = v
		}
		return List(out...), nil
	})
}

func registerPredicates(env *Environment) {
	pred := func(name string, test func(Value) bool) BuiltinFunc {
		return func(args []Value, fc *FiberContext, pos *SourcePosition) (Value, error) {
			if len(args) != 1 {
				return Value{}, arityError(pos, name, 1, len(args))
			}
			return Bool(test(args[0])), nil
		}
	}
	defineBuiltin(env, "number?", pred("number?", Value.IsNumber))
	defineBuiltin(env, "boolean?", pred("boolean?", Value.IsBoolean))
	defineBuiltin(env, "string?", pred("string?", Value.IsString))
	defineBuiltin(env, "symbol?", pred("symbol?", Value.IsSymbol))
	defineBuiltin(env, "list?", pred("list?", Value.IsList))
	defineBuiltin(env, "pair?", pred("pair?", Value.IsPair))
	defineBuiltin(env, "null?", pred("null?", Value.IsNil))
	defineBuiltin(env, "procedure?", pred("procedure?", Value.IsProcedure))

	defineBuiltin(env, "not", func(args []Value, fc *FiberContext, pos *SourcePosition) (Value, error) {
		if len(args) != 1 {
			return Value{}, arityError(pos, "not", 1, len(args))
		}
		return Bool(args[0].IsFalse()), nil
	})
}

func registerHigherOrder(env *Environment) {
	defineBuiltin(env, "apply", func(args []Value, fc *FiberContext, pos *SourcePosition) (Value, error) {
		if len(args) != 2 {
			return Value{}, arityError(pos, "apply", 2, len(args))
		}
		items, ok := args[1].Slice()
		if !ok {
			return Value{}, typeError(pos, "list", args[1].Kind().String())
		}
		return Apply(args[0], items, fc, pos)
	})

	defineBuiltin(env, "map", func(args []Value, fc *FiberContext, pos *SourcePosition) (Value, error) {
		if len(args) != 2 {
			return Value{}, arityError(pos, "map", 2, len(args))
		}
		items, ok := args[1].Slice()
		if !ok {
			return Value{}, typeError(pos, "list", args[1].Kind().String())
		}
		out := make([]Value, len(items))
		for i, item := range items {
			v, err := Apply(args[0], []Value{item}, fc, pos)
			if err != nil {
				return Value{}, err
			}
			out[i] = v
		}
		return List(out...), nil
	})
}
