package twine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sym(name string) *Node { return AtomNode(SymbolValue(Intern(name)), nil) }
func num(n float64) *Node   { return AtomNode(Number(n), nil) }
func lst(children ...*Node) *Node {
	return ListNode(children, nil)
}

func newTestEnv() *Environment {
	env := NewRoot()
	RegisterBuiltins(env)
	return env
}

func evalTop(t *testing.T, env *Environment, n *Node) (Value, error) {
	t.Helper()
	fc := &FiberContext{Fiber: newFiber(0, nil), Scheduler: nil}
	return Eval(n, env, fc)
}

func TestEvalLiteralsAndQuote(t *testing.T) {
	env := newTestEnv()

	v, err := evalTop(t, env, num(3))
	require.NoError(t, err)
	assert.True(t, Equal(Number(3), v))

	quoted := QuoteNode(lst(sym("a"), sym("b")), nil)
	v, err = evalTop(t, env, quoted)
	require.NoError(t, err)
	expect := List(SymbolValue(Intern("a")), SymbolValue(Intern("b")))
	assert.True(t, Equal(expect, v))
}

func TestEvalIfBothBranches(t *testing.T) {
	env := newTestEnv()

	cond := AtomNode(True, nil)
	thenN := num(1)
	elseN := num(2)
	ifNode := lst(sym("if"), cond, thenN, elseN)
	v, err := evalTop(t, env, ifNode)
	require.NoError(t, err)
	assert.True(t, Equal(Number(1), v))

	cond2 := AtomNode(False, nil)
	ifNode2 := lst(sym("if"), cond2, thenN, elseN)
	v, err = evalTop(t, env, ifNode2)
	require.NoError(t, err)
	assert.True(t, Equal(Number(2), v))
}

func TestEvalIfWithoutElseIsNilWhenFalse(t *testing.T) {
	env := newTestEnv()
	ifNode := lst(sym("if"), AtomNode(False, nil), num(1))
	v, err := evalTop(t, env, ifNode)
	require.NoError(t, err)
	assert.True(t, v.IsNil())
}

func TestDefineAndLambdaApplication(t *testing.T) {
	env := newTestEnv()

	// (define (square x) (* x x))
	defineNode := lst(sym("define"), lst(sym("square"), sym("x")), lst(sym("*"), sym("x"), sym("x")))
	_, err := evalTop(t, env, defineNode)
	require.NoError(t, err)

	call := lst(sym("square"), num(5))
	v, err := evalTop(t, env, call)
	require.NoError(t, err)
	assert.True(t, Equal(Number(25), v))
}

func TestLetSimultaneousBindings(t *testing.T) {
	env := newTestEnv()
	// (let ((x 1) (y 2)) (+ x y))
	bindings := lst(lst(sym("x"), num(1)), lst(sym("y"), num(2)))
	letNode := lst(sym("let"), bindings, lst(sym("+"), sym("x"), sym("y")))
	v, err := evalTop(t, env, letNode)
	require.NoError(t, err)
	assert.True(t, Equal(Number(3), v))
}

func TestDeepTailRecursionDoesNotOverflow(t *testing.T) {
	env := newTestEnv()
	// (define (loop n acc) (if (= n 0) acc (loop (- n 1) (+ acc 1))))
	body := lst(sym("if"),
		lst(sym("="), sym("n"), num(0)),
		sym("acc"),
		lst(sym("loop"), lst(sym("-"), sym("n"), num(1)), lst(sym("+"), sym("acc"), num(1))),
	)
	defineNode := lst(sym("define"), lst(sym("loop"), sym("n"), sym("acc")), body)
	_, err := evalTop(t, env, defineNode)
	require.NoError(t, err)

	call := lst(sym("loop"), num(200000), num(0))
	v, err := evalTop(t, env, call)
	require.NoError(t, err)
	assert.True(t, Equal(Number(200000), v))
}

func TestUnboundIdentifierProducesTypedError(t *testing.T) {
	env := newTestEnv()
	_, err := evalTop(t, env, sym("nope"))
	require.Error(t, err)
	var evalErr *EvalError
	require.ErrorAs(t, err, &evalErr)
	assert.Equal(t, KindUnboundIdentifier, evalErr.Kind)
}

func TestApplyingNonProcedureIsTypeError(t *testing.T) {
	env := newTestEnv()
	call := lst(num(1), num(2))
	_, err := evalTop(t, env, call)
	require.Error(t, err)
	var evalErr *EvalError
	require.ErrorAs(t, err, &evalErr)
	assert.Equal(t, KindType, evalErr.Kind)
}

func TestArityMismatchIsArityError(t *testing.T) {
	env := newTestEnv()
	defineNode := lst(sym("define"), lst(sym("f"), sym("x")), sym("x"))
	_, err := evalTop(t, env, defineNode)
	require.NoError(t, err)

	call := lst(sym("f"), num(1), num(2))
	_, err = evalTop(t, env, call)
	require.Error(t, err)
	var evalErr *EvalError
	require.ErrorAs(t, err, &evalErr)
	assert.Equal(t, KindArity, evalErr.Kind)
}
