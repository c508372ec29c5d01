package jack_test

import (
	"strings"
	"testing"

	"jackc.dev/compiler/pkg/jack"
)

func TestVMWriterMemoryOps(t *testing.T) {
	t.Run("push and pop", func(t *testing.T) {
		var buf strings.Builder
		w := jack.NewVMWriter(&buf)

		if err := w.WritePush(jack.ConstSeg, 7); err != nil {
			t.Fatal(err)
		}
		if err := w.WritePop(jack.LocalSeg, 2); err != nil {
			t.Fatal(err)
		}

		want := "push constant 7\npop local 2\n"
		if buf.String() != want {
			t.Errorf("got %q, want %q", buf.String(), want)
		}
	})

	t.Run("accepts both segment naming styles", func(t *testing.T) {
		var buf strings.Builder
		w := jack.NewVMWriter(&buf)

		if err := w.WritePush(jack.ThisSeg, 0); err != nil {
			t.Fatal(err)
		}
		if err := w.WritePush("this", 0); err != nil {
			t.Fatal(err)
		}

		want := "push this 0\npush this 0\n"
		if buf.String() != want {
			t.Errorf("got %q, want %q", buf.String(), want)
		}
	})

	t.Run("rejects illegal segment", func(t *testing.T) {
		var buf strings.Builder
		w := jack.NewVMWriter(&buf)

		err := w.WritePush(jack.Segment("bogus"), 0)
		if _, ok := err.(*jack.IllegalSegmentError); !ok {
			t.Fatalf("err = %v (%T), want *IllegalSegmentError", err, err)
		}
	})
}

func TestVMWriterArithmeticOp(t *testing.T) {
	t.Run("valid commands, including shift extensions", func(t *testing.T) {
		var buf strings.Builder
		w := jack.NewVMWriter(&buf)

		for _, cmd := range []string{"add", "sub", "neg", "eq", "gt", "lt", "and", "or", "not", "shiftleft", "shiftright"} {
			if err := w.WriteArithmetic(cmd); err != nil {
				t.Errorf("WriteArithmetic(%q): %v", cmd, err)
			}
		}
	})

	t.Run("rejects illegal command", func(t *testing.T) {
		var buf strings.Builder
		w := jack.NewVMWriter(&buf)

		err := w.WriteArithmetic("xor")
		if _, ok := err.(*jack.IllegalCommandError); !ok {
			t.Fatalf("err = %v (%T), want *IllegalCommandError", err, err)
		}
	})
}

func TestVMWriterControlFlowAndCalls(t *testing.T) {
	var buf strings.Builder
	w := jack.NewVMWriter(&buf)

	w.WriteLabel("LOOP_START")
	w.WriteGoto("LOOP_START")
	w.WriteIf("LOOP_END")
	w.WriteCall("Math.multiply", 2)
	w.WriteReturn()

	want := "label LOOP_START\ngoto LOOP_START\nif-goto LOOP_END\ncall Math.multiply 2\nreturn\n"
	if buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}
}

func TestVMWriterFunctionEmitsLeadingBlankLine(t *testing.T) {
	var buf strings.Builder
	w := jack.NewVMWriter(&buf)

	if err := w.WriteFunction("Main.main", 3); err != nil {
		t.Fatal(err)
	}

	want := "\nfunction Main.main 3\n"
	if buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}
}
