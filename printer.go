package twine

import (
	"strconv"
	"strings"
)

// Print renders v in its canonical, re-readable external form: a string
// that a reader would parse back into an equal Value. Strings are
// double-quoted with standard escapes, so a string Value round-trips
// through Print/parse instead of re-tokenizing as a symbol. Used by error
// messages and tests that need a readable rendition of a Value; `display`
// uses DisplayString, which renders a string's content unquoted, instead.
func Print(v Value) string {
	var b strings.Builder
	writeValue(&b, v, true)
	return b.String()
}

// DisplayString renders v the way the `display` built-in does: identical
// to Print except a string Value's content is written unquoted and
// unescaped, matching R7RS `display` rather than `write`.
func DisplayString(v Value) string {
	var b strings.Builder
	writeValue(&b, v, false)
	return b.String()
}

func writeValue(b *strings.Builder, v Value, quoted bool) {
	switch v.Kind() {
	case KindNumber:
		n, _ := v.AsNumber()
		b.WriteString(formatNumber(n))
	case KindBoolean:
		bv, _ := v.AsBool()
		if bv {
			b.WriteString("#t")
		} else {
			b.WriteString("#f")
		}
	case KindString:
		s, _ := v.AsString()
		if quoted {
			b.WriteString(quoteString(s))
		} else {
			b.WriteString(s)
		}
	case KindSymbol:
		sym, _ := v.AsSymbol()
		b.WriteString(sym.Name)
	case KindList:
		writeList(b, v, quoted)
	case KindProcedure:
		p, _ := v.AsProcedure()
		if p.Name != "" {
			b.WriteString("#<procedure:" + p.Name + ">")
		} else {
			b.WriteString("#<procedure>")
		}
	case KindFiber:
		h, _ := v.AsFiberHandle()
		b.WriteString("#<fiber:" + strconv.FormatInt(int64(h.id), 10) + ">")
	default:
		b.WriteString("#<unknown>")
	}
}

func writeList(b *strings.Builder, v Value, quoted bool) {
	b.WriteString("(")
	first := true
	for cur := v; ; {
		head, ok := cur.Head()
		if !ok {
			break
		}
		if !first {
			b.WriteString(" ")
		}
		first = false
		writeValue(b, head, quoted)
		tail, _ := cur.Tail()
		cur = tail
	}
	b.WriteString(")")
}

// quoteString renders s as a double-quoted literal with standard escapes.
func quoteString(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		case '\r':
			b.WriteString(`\r`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}

// formatNumber renders an integral float without a trailing ".0", and any
// other value via Go's shortest round-tripping decimal representation.
func formatNumber(n float64) string {
	if n == float64(int64(n)) {
		return strconv.FormatInt(int64(n), 10)
	}
	return strconv.FormatFloat(n, 'g', -1, 64)
}
