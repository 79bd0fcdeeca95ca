package twine

// FiberContext is threaded through every Eval/Apply call and every built-in
// invocation. It gives built-ins that need to suspend (I/O) or spawn
// (concurrency) access to the fiber they are running on and the scheduler
// that owns it; pure built-ins ignore it entirely.
type FiberContext struct {
	Fiber     *Fiber
	Scheduler *Scheduler
}

var (
	symQuote  = Intern("quote")
	symIf     = Intern("if")
	symDefine = Intern("define")
	symLambda = Intern("lambda")
	symLet    = Intern("let")
	symAsync  = Intern("async")
)

// EvalBody evaluates a sequence of nodes in env, in order, returning the
// value of the last one (Nil for an empty sequence). It is the "eval a
// fresh body" entry point used wherever a new native call stack is
// starting — the root fiber's program, an `async` body, a spawned fiber's
// thunk — as opposed to a tail position reached from inside an existing
// Eval call, which loops internally instead of recursing here.
func EvalBody(nodes []*Node, env *Environment, fc *FiberContext) (Value, error) {
	if len(nodes) == 0 {
		return Nil, nil
	}
	for _, n := range nodes[:len(nodes)-1] {
		if _, err := Eval(n, env, fc); err != nil {
			return Value{}, err
		}
	}
	return Eval(nodes[len(nodes)-1], env, fc)
}

// Apply invokes proc (a Builtin or a Lambda procedure Value) on already
// evaluated args, from a context where the call is not in tail position —
// the `apply`/`map` built-ins, and the thunks a spawned fiber or an async
// body run as their entry point. Eval itself never calls Apply for a
// Lambda in tail position; it inlines the same logic in its own loop so a
// self- or mutually-recursive tail call never grows the native stack.
func Apply(procVal Value, args []Value, fc *FiberContext, pos *SourcePosition) (Value, error) {
	proc, ok := procVal.AsProcedure()
	if !ok {
		return Value{}, typeError(pos, "procedure", procVal.Kind().String())
	}
	if proc.Kind == ProcBuiltin {
		if proc.Builtin == nil {
			return Value{}, internalError(pos, "builtin %q has no implementation", proc.Name)
		}
		return proc.Builtin(args, fc, pos)
	}
	if len(args) != len(proc.Params) {
		return Value{}, arityError(pos, procName(proc), len(proc.Params), len(args))
	}
	bindings := make([]Binding, len(proc.Params))
	for i, p := range proc.Params {
		bindings[i] = Binding{Sym: p, Value: args[i]}
	}
	childEnv, err := Extend(proc.Env, bindings)
	if err != nil {
		return Value{}, err
	}
	return EvalBody(proc.Body, childEnv, fc)
}

func procName(p *Procedure) string {
	if p.Name != "" {
		return p.Name
	}
	return "lambda"
}

// Eval evaluates node in env and returns its value. It is written as an
// explicit loop rather than straightforward recursion so that every tail
// position — a lambda body's last expression, both branches of `if`, a
// `let` body's last expression — is reached by reassigning node/env and
// looping, never by a nested Go call. Every *non*-tail position (argument
// evaluation, an `if` condition, a non-last body statement, `let` binding
// expressions) is a genuine recursive call to Eval, which is allowed to
// grow the native stack — only tail position is bounded.
func Eval(node *Node, env *Environment, fc *FiberContext) (Value, error) {
	for {
		switch node.Kind {
		case NodeQuote:
			return nodeToValue(node.Quoted), nil

		case NodeAtom:
			v := node.Atom
			if sym, ok := v.AsSymbol(); ok {
				return env.Lookup(sym, node.Position)
			}
			return v, nil

		case NodeList:
			if len(node.Children) == 0 {
				return Value{}, syntaxError(node.Position, "empty combination")
			}
			head := node.Children[0]
			if sym, ok := headSymbol(head); ok {
				switch sym {
				case symQuote:
					if len(node.Children) != 2 {
						return Value{}, arityError(node.Position, "quote", 1, len(node.Children)-1)
					}
					return nodeToValue(node.Children[1]), nil

				case symIf:
					if len(node.Children) != 3 && len(node.Children) != 4 {
						return Value{}, syntaxError(node.Position, "if: expected (if cond then [else])")
					}
					cond, err := Eval(node.Children[1], env, fc)
					if err != nil {
						return Value{}, err
					}
					if !cond.IsFalse() {
						node = node.Children[2]
						continue
					}
					if len(node.Children) == 4 {
						node = node.Children[3]
						continue
					}
					return Nil, nil

				case symDefine:
					val, sym2, err := evalDefine(node, env, fc)
					if err != nil {
						return Value{}, err
					}
					env.Define(sym2, val)
					return Nil, nil

				case symLambda:
					return evalLambda(node, env)

				case symLet:
					childEnv, body, err := evalLetBindings(node, env, fc)
					if err != nil {
						return Value{}, err
					}
					if len(body) == 0 {
						return Value{}, syntaxError(node.Position, "let: empty body")
					}
					for _, b := range body[:len(body)-1] {
						if _, err := Eval(b, childEnv, fc); err != nil {
							return Value{}, err
						}
					}
					node = body[len(body)-1]
					env = childEnv
					continue

				case symAsync:
					return evalAsync(node, env, fc)
				}
			}

			// Application: evaluate head and args left to right, none
			// of which are in tail position relative to this call.
			procVal, err := Eval(head, env, fc)
			if err != nil {
				return Value{}, err
			}
			args := make([]Value, len(node.Children)-1)
			for i, c := range node.Children[1:] {
				v, err := Eval(c, env, fc)
				if err != nil {
					return Value{}, err
				}
				args[i] = v
			}
			proc, ok := procVal.AsProcedure()
			if !ok {
				return Value{}, typeError(node.Position, "procedure", procVal.Kind().String())
			}
			if proc.Kind == ProcBuiltin {
				if proc.Builtin == nil {
					return Value{}, internalError(node.Position, "builtin %q has no implementation", proc.Name)
				}
				return proc.Builtin(args, fc, node.Position)
			}
			if len(args) != len(proc.Params) {
				return Value{}, arityError(node.Position, procName(proc), len(proc.Params), len(args))
			}
			bindings := make([]Binding, len(proc.Params))
			for i, p := range proc.Params {
				bindings[i] = Binding{Sym: p, Value: args[i]}
			}
			childEnv, err := Extend(proc.Env, bindings)
			if err != nil {
				return Value{}, err
			}
			if len(proc.Body) == 0 {
				return Nil, nil
			}
			for _, b := range proc.Body[:len(proc.Body)-1] {
				if _, err := Eval(b, childEnv, fc); err != nil {
					return Value{}, err
				}
			}
			// Tail call: loop instead of recursing, so arbitrarily deep
			// self/mutual tail recursion runs in O(1) native stack.
			node = proc.Body[len(proc.Body)-1]
			env = childEnv
			continue

		default:
			return Value{}, internalError(node.Position, "unknown AST node kind")
		}
	}
}

func headSymbol(n *Node) (Symbol, bool) {
	if n.Kind != NodeAtom {
		return nil, false
	}
	return n.Atom.AsSymbol()
}

func evalDefine(node *Node, env *Environment, fc *FiberContext) (Value, Symbol, error) {
	if len(node.Children) < 3 {
		return Value{}, nil, syntaxError(node.Position, "define: expected (define name expr) or (define (name args...) body...)")
	}
	target := node.Children[1]

	if target.Kind == NodeList {
		// (define (name param...) body...) sugar for
		// (define name (lambda (param...) body...)).
		if len(target.Children) == 0 {
			return Value{}, nil, syntaxError(node.Position, "define: missing function name")
		}
		nameSym, ok := headSymbol(target.Children[0])
		if !ok {
			return Value{}, nil, syntaxError(node.Position, "define: function name must be a symbol")
		}
		params, err := parseParamList(&Node{Kind: NodeList, Children: target.Children[1:], Position: target.Position})
		if err != nil {
			return Value{}, nil, err
		}
		body := node.Children[2:]
		if len(body) == 0 {
			return Value{}, nil, syntaxError(node.Position, "define: empty function body")
		}
		proc := &Procedure{Kind: ProcLambda, Name: nameSym.Name, Params: params, Body: body, Env: env}
		return ProcedureValue(proc), nameSym, nil
	}

	if len(node.Children) != 3 {
		return Value{}, nil, syntaxError(node.Position, "define: expected exactly one value expression")
	}
	nameSym, ok := headSymbol(target)
	if !ok {
		return Value{}, nil, syntaxError(node.Position, "define: name must be a symbol")
	}
	val, err := Eval(node.Children[2], env, fc)
	if err != nil {
		return Value{}, nil, err
	}
	return val, nameSym, nil
}

func evalLambda(node *Node, env *Environment) (Value, error) {
	if len(node.Children) < 3 {
		return Value{}, syntaxError(node.Position, "lambda: expected (lambda (params...) body...)")
	}
	params, err := parseParamList(node.Children[1])
	if err != nil {
		return Value{}, err
	}
	body := node.Children[2:]
	proc := &Procedure{Kind: ProcLambda, Params: params, Body: body, Env: env}
	return ProcedureValue(proc), nil
}

func parseParamList(n *Node) ([]Symbol, error) {
	if n.Kind != NodeList {
		return nil, syntaxError(n.Position, "parameter list must be a list of symbols")
	}
	seen := make(map[Symbol]bool, len(n.Children))
	params := make([]Symbol, len(n.Children))
	for i, c := range n.Children {
		sym, ok := headSymbol(c)
		if !ok {
			return nil, syntaxError(c.Position, "parameter must be a symbol")
		}
		if seen[sym] {
			return nil, syntaxError(c.Position, "duplicate parameter name %s", sym.Name)
		}
		seen[sym] = true
		params[i] = sym
	}
	return params, nil
}

func evalLetBindings(node *Node, env *Environment, fc *FiberContext) (*Environment, []*Node, error) {
	if len(node.Children) < 2 {
		return nil, nil, syntaxError(node.Position, "let: expected (let ((name expr)...) body...)")
	}
	bindingsNode := node.Children[1]
	if bindingsNode.Kind != NodeList {
		return nil, nil, syntaxError(bindingsNode.Position, "let: binding list must be a list")
	}
	bindings := make([]Binding, len(bindingsNode.Children))
	for i, pair := range bindingsNode.Children {
		if pair.Kind != NodeList || len(pair.Children) != 2 {
			return nil, nil, syntaxError(pair.Position, "let: each binding must be (name expr)")
		}
		sym, ok := headSymbol(pair.Children[0])
		if !ok {
			return nil, nil, syntaxError(pair.Position, "let: binding name must be a symbol")
		}
		val, err := Eval(pair.Children[1], env, fc)
		if err != nil {
			return nil, nil, err
		}
		bindings[i] = Binding{Sym: sym, Value: val}
	}
	childEnv, err := Extend(env, bindings)
	if err != nil {
		return nil, nil, err
	}
	return childEnv, node.Children[2:], nil
}

// evalAsync implements the `async` special form: it captures the body and
// the current environment in a closure and hands it to the scheduler as a
// new fiber's thunk, returning the resulting FiberHandle immediately. The
// body is never evaluated at the call site — only inside the spawned
// fiber's own goroutine.
func evalAsync(node *Node, env *Environment, fc *FiberContext) (Value, error) {
	body := node.Children[1:]
	thunk := func(f *Fiber) (Value, error) {
		childFC := &FiberContext{Fiber: f, Scheduler: fc.Scheduler}
		return EvalBody(body, env, childFC)
	}
	handle := fc.Scheduler.Spawn(thunk, &fc.Fiber.ID)
	return FiberValue(*handle), nil
}
