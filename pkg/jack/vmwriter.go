package jack

import (
	"fmt"
	"io"
)

// ----------------------------------------------------------------------------
// VM Writer

// Emits one well-formed VM instruction per line, validating segments and arithmetic
// commands as it goes. Segment names are normalized from the internal, all-caps kind
// vocabulary to the VM's lowercase one; the already-lowercase VM names are accepted
// too, so callers may use either without the writer caring which.

// Segment is the internal name for one of the eight addressable VM memory regions.
type Segment string

const (
	ConstSeg   Segment = "CONST"
	ArgSeg     Segment = "ARG"
	LocalSeg   Segment = "LOCAL"
	StaticSeg  Segment = "STATIC"
	ThisSeg    Segment = "THIS"
	ThatSeg    Segment = "THAT"
	PointerSeg Segment = "POINTER"
	TempSeg    Segment = "TEMP"
)

var segmentNames = map[Segment]string{
	ConstSeg:   "constant",
	ArgSeg:     "argument",
	LocalSeg:   "local",
	StaticSeg:  "static",
	ThisSeg:    "this",
	ThatSeg:    "that",
	PointerSeg: "pointer",
	TempSeg:    "temp",

	// Already-lowercase VM names are accepted verbatim too.
	"constant": "constant",
	"argument": "argument",
	"local":    "local",
	"static":   "static",
	"this":     "this",
	"that":     "that",
	"pointer":  "pointer",
	"temp":     "temp",
}

var arithmeticAllowed = map[string]bool{
	"add": true, "sub": true, "neg": true,
	"eq": true, "gt": true, "lt": true,
	"and": true, "or": true, "not": true,
	"shiftleft": true, "shiftright": true,
}

// VMWriter writes VM instructions to an underlying io.Writer, one per line.
type VMWriter struct {
	out io.Writer
}

// NewVMWriter wraps w to receive the emitted VM program text.
func NewVMWriter(w io.Writer) *VMWriter { return &VMWriter{out: w} }

func (w *VMWriter) translateSegment(seg Segment) (string, error) {
	name, ok := segmentNames[seg]
	if !ok {
		return "", &IllegalSegmentError{Segment: string(seg)}
	}
	return name, nil
}

func (w *VMWriter) writeLine(line string) error {
	_, err := fmt.Fprintln(w.out, line)
	return err
}

// WritePush emits "push segment index".
func (w *VMWriter) WritePush(segment Segment, index int) error {
	name, err := w.translateSegment(segment)
	if err != nil {
		return err
	}
	return w.writeLine(fmt.Sprintf("push %s %d", name, index))
}

// WritePop emits "pop segment index".
func (w *VMWriter) WritePop(segment Segment, index int) error {
	name, err := w.translateSegment(segment)
	if err != nil {
		return err
	}
	return w.writeLine(fmt.Sprintf("pop %s %d", name, index))
}

// WriteArithmetic emits one of the fixed arithmetic/logical commands. Any command
// outside {add, sub, neg, eq, gt, lt, and, or, not, shiftleft, shiftright} is a fatal
// IllegalCommandError — a defensive guard against engine bugs, it should never fire
// against a correctly built CompilationEngine.
func (w *VMWriter) WriteArithmetic(command string) error {
	if !arithmeticAllowed[command] {
		return &IllegalCommandError{Command: command}
	}
	return w.writeLine(command)
}

// WriteLabel emits "label name".
func (w *VMWriter) WriteLabel(name string) error { return w.writeLine(fmt.Sprintf("label %s", name)) }

// WriteGoto emits "goto name".
func (w *VMWriter) WriteGoto(name string) error { return w.writeLine(fmt.Sprintf("goto %s", name)) }

// WriteIf emits "if-goto name".
func (w *VMWriter) WriteIf(name string) error { return w.writeLine(fmt.Sprintf("if-goto %s", name)) }

// WriteCall emits "call name nArgs".
func (w *VMWriter) WriteCall(name string, nArgs int) error {
	return w.writeLine(fmt.Sprintf("call %s %d", name, nArgs))
}

// WriteFunction emits a blank separator line followed by "function name nLocals",
// visually separating subroutines in the output (§4.3).
func (w *VMWriter) WriteFunction(name string, nLocals int) error {
	if _, err := fmt.Fprintln(w.out); err != nil {
		return err
	}
	return w.writeLine(fmt.Sprintf("function %s %d", name, nLocals))
}

// WriteReturn emits "return".
func (w *VMWriter) WriteReturn() error { return w.writeLine("return") }
