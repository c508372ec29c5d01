package jack_test

import (
	"strings"
	"testing"

	"jackc.dev/compiler/pkg/jack"
)

// compile runs the full engine over source and returns the emitted VM text.
func compile(t *testing.T, source string) string {
	t.Helper()
	var out strings.Builder
	if err := jack.CompileFile(strings.NewReader(source), &out); err != nil {
		t.Fatalf("CompileFile(%q): %v", source, err)
	}
	return out.String()
}

// wantLines builds the expected output: a leading blank line (the separator
// WriteFunction always emits before the class's first subroutine) followed by the
// given lines.
func wantLines(lines ...string) string {
	return "\n" + strings.Join(lines, "\n") + "\n"
}

func TestEngineEndToEndScenarios(t *testing.T) {
	cases := []struct {
		name   string
		source string
		want   string
	}{
		{
			"return only",
			`class Main { function void main() { return; } }`,
			wantLines("function Main.main 0", "push constant 0", "return"),
		},
		{
			"arithmetic expression",
			`class M { function int f() { return 1 + 2; } }`,
			wantLines("function M.f 0", "push constant 1", "push constant 2", "add", "return"),
		},
		{
			"constructor and field assignment",
			`class C { field int x; constructor C new() { let x = 5; return this; } }`,
			wantLines(
				"function C.new 0",
				"push constant 1",
				"call Memory.alloc 1",
				"pop pointer 0",
				"push constant 5",
				"pop this 0",
				"push pointer 0",
				"return",
			),
		},
		{
			"do statement",
			`class G { function void g() { do Sys.halt(); return; } }`,
			wantLines(
				"function G.g 0",
				"call Sys.halt 0",
				"pop temp 0",
				"push constant 0",
				"return",
			),
		},
		{
			"while false",
			`class W { function void w() { while (false) { return; } } }`,
			wantLines(
				"function W.w 0",
				"label WHILE_EXP0",
				"push constant 0",
				"not",
				"if-goto WHILE_END1",
				"push constant 0",
				"return",
				"goto WHILE_EXP0",
				"label WHILE_END1",
			),
		},
		{
			"string constant",
			`class S { function void s() { do Out.printString("Hi"); return; } }`,
			wantLines(
				"function S.s 0",
				"push constant 2",
				"call String.new 1",
				"push constant 72",
				"call String.appendChar 2",
				"push constant 105",
				"call String.appendChar 2",
				"call Out.printString 1",
				"pop temp 0",
				"push constant 0",
				"return",
			),
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := compile(t, c.source)
			if got != c.want {
				t.Errorf("got:\n%s\nwant:\n%s", got, c.want)
			}
		})
	}
}

func TestEngineStringConstants(t *testing.T) {
	t.Run("empty string produces no appendChar calls", func(t *testing.T) {
		got := compile(t, `class S { function void s() { do Out.printString(""); return; } }`)
		if strings.Contains(got, "appendChar") {
			t.Errorf("empty string must not emit any String.appendChar calls, got:\n%s", got)
		}
		if !strings.Contains(got, "push constant 0\ncall String.new 1") {
			t.Errorf("expected 'push constant 0' then 'call String.new 1', got:\n%s", got)
		}
	})
}

func TestEngineKeywordConstantsAndPrologues(t *testing.T) {
	t.Run("true constant", func(t *testing.T) {
		got := compile(t, `class M { function boolean m() { return true; } }`)
		want := wantLines("function M.m 0", "push constant 0", "not", "return")
		if got != want {
			t.Errorf("got:\n%s\nwant:\n%s", got, want)
		}
	})

	t.Run("method prologue pushes argument 0", func(t *testing.T) {
		got := compile(t, `class P { field int v; method int get() { return v; } }`)
		lines := strings.Split(strings.TrimPrefix(got, "\n"), "\n")
		if len(lines) < 3 || lines[1] != "push argument 0" || lines[2] != "pop pointer 0" {
			t.Fatalf("method prologue = %v, want [push argument 0, pop pointer 0] right after function directive", lines[1:3])
		}
	})
}

func TestEngineArrayAccess(t *testing.T) {
	t.Run("let array assignment tail", func(t *testing.T) {
		got := compile(t, `class A { function void f(Array a, int i, int v) { let a[i] = v; return; } }`)
		want := wantLines(
			"function A.f 0",
			"push argument 1",
			"push argument 0",
			"add",
			"push argument 2",
			"pop temp 0",
			"pop pointer 1",
			"push temp 0",
			"pop that 0",
			"push constant 0",
			"return",
		)
		if got != want {
			t.Errorf("got:\n%s\nwant:\n%s", got, want)
		}
	})

	t.Run("array read term", func(t *testing.T) {
		got := compile(t, `class A { function int f(Array a, int i) { return a[i]; } }`)
		want := wantLines(
			"function A.f 0",
			"push argument 1",
			"push argument 0",
			"add",
			"pop pointer 1",
			"push that 0",
			"return",
		)
		if got != want {
			t.Errorf("got:\n%s\nwant:\n%s", got, want)
		}
	})
}

func TestEngineIfLabelSequencing(t *testing.T) {
	t.Run("if/else allocates and uses all three labels", func(t *testing.T) {
		got := compile(t, `class I { function void f() { if (true) { return; } else { return; } } }`)
		want := wantLines(
			"function I.f 0",
			"push constant 0",
			"not",
			"if-goto IF_TRUE0",
			"goto IF_FALSE1",
			"label IF_TRUE0",
			"push constant 0",
			"return",
			"goto IF_END2",
			"label IF_FALSE1",
			"push constant 0",
			"return",
			"label IF_END2",
		)
		if got != want {
			t.Errorf("got:\n%s\nwant:\n%s", got, want)
		}
	})

	t.Run("else-less if never emits IF_END", func(t *testing.T) {
		got := compile(t, `class I { function void f() { if (true) { return; } return; } }`)
		if strings.Contains(got, "IF_END") {
			t.Errorf("an else-less if must not emit an IF_END label, got:\n%s", got)
		}
	})
}

func TestEngineSubroutineCallDisambiguation(t *testing.T) {
	t.Run("bare call is an implicit method call on this", func(t *testing.T) {
		got := compile(t, `class R { method void helper() { return; } method void run() { do helper(); return; } }`)
		if !strings.Contains(got, "push pointer 0\ncall R.helper 1") {
			t.Errorf("expected implicit-this call 'push pointer 0' then 'call R.helper 1', got:\n%s", got)
		}
	})

	t.Run("qualified call on a known variable is a method call", func(t *testing.T) {
		got := compile(t, `class Caller { function void f() { var Other o; do o.run(); return; } }`)
		if !strings.Contains(got, "push local 0\ncall Other.run 1") {
			t.Errorf("expected variable method call 'push local 0' then 'call Other.run 1', got:\n%s", got)
		}
	})

	t.Run("qualified call on an undeclared class name is a static call", func(t *testing.T) {
		got := compile(t, `class Caller { function void f() { do Other.run(); return; } }`)
		want := wantLines("function Caller.f 0", "call Other.run 0", "pop temp 0", "push constant 0", "return")
		if got != want {
			t.Errorf("got:\n%s\nwant:\n%s (a call on an undeclared class name must not push a receiver)", got, want)
		}
	})
}

func TestEngineExpressions(t *testing.T) {
	t.Run("division and multiplication lower to Math calls", func(t *testing.T) {
		got := compile(t, `class N { function int f() { return 6 * 7 / 2; } }`)
		if !strings.Contains(got, "call Math.multiply 2") {
			t.Errorf("expected 'call Math.multiply 2', got:\n%s", got)
		}
		if !strings.Contains(got, "call Math.divide 2") {
			t.Errorf("expected 'call Math.divide 2', got:\n%s", got)
		}
	})

	t.Run("unary minus and not", func(t *testing.T) {
		got := compile(t, `class N { function int f() { return -(~5); } }`)
		want := wantLines("function N.f 0", "push constant 5", "not", "neg", "return")
		if got != want {
			t.Errorf("got:\n%s\nwant:\n%s", got, want)
		}
	})
}

func TestEngineErrors(t *testing.T) {
	t.Run("missing semicolon is a syntax error", func(t *testing.T) {
		var out strings.Builder
		err := jack.CompileFile(strings.NewReader(`class M { function void f() { return }}`), &out)
		if _, ok := err.(*jack.SyntaxError); !ok {
			t.Fatalf("err = %v (%T), want *SyntaxError", err, err)
		}
	})
}

func TestEngineCompilingSameSourceTwiceIsByteIdentical(t *testing.T) {
	source := `class C { field int x; constructor C new() { let x = 5; return this; } }`
	first := compile(t, source)
	second := compile(t, source)
	if first != second {
		t.Errorf("repeated compilation produced different output:\n%q\nvs\n%q", first, second)
	}
}
