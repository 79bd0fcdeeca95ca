package twine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrintCanonicalForms(t *testing.T) {
	cases := []struct {
		name string
		v    Value
		want string
	}{
		{"integral number", Number(5), "5"},
		{"fractional number", Number(2.5), "2.5"},
		{"true", True, "#t"},
		{"false", False, "#f"},
		{"string", String("hi"), `"hi"`},
		{"string with escapes", String("a\"b\\c\nd"), `"a\"b\\c\nd"`},
		{"symbol", SymbolValue(Intern("abc")), "abc"},
		{"empty list", Nil, "()"},
		{"list", List(Number(1), Number(2), Number(3)), "(1 2 3)"},
		{"nested list", List(Number(1), List(Number(2), Number(3))), "(1 (2 3))"},
		{"list of strings", List(String("a"), String("b")), `("a" "b")`},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, Print(c.v))
		})
	}
}

func TestPrintProcedureAndFiberAreOpaque(t *testing.T) {
	p := ProcedureValue(&Procedure{Kind: ProcBuiltin, Name: "car"})
	assert.Equal(t, "#<procedure:car>", Print(p))

	f := FiberValue(FiberHandle{id: 3})
	assert.Equal(t, "#<fiber:3>", Print(f))
}

func TestDisplayStringRendersStringsUnquoted(t *testing.T) {
	assert.Equal(t, "hi", DisplayString(String("hi")))
	assert.Equal(t, `"hi"`, Print(String("hi")))
	assert.Equal(t, "(1 hi)", DisplayString(List(Number(1), String("hi"))))
}
