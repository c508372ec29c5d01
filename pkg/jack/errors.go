package jack

import "fmt"

// ----------------------------------------------------------------------------
// Error taxonomy

// This section declares the uniform error kinds raised across the lexing, parsing
// and code generation phases. None of these are recoverable: a compilation unit
// that raises one of these has failed and the caller should abort the whole unit.

// InvalidCharacterError is raised by the Tokenizer when it meets a byte that cannot
// start any of the four token patterns it recognizes (symbol, integer constant,
// identifier/keyword, string constant).
type InvalidCharacterError struct {
	Line int  // 1-indexed line number the offending byte was found on
	Char rune // The offending byte/rune itself
}

func (e *InvalidCharacterError) Error() string {
	return fmt.Sprintf("line %d: invalid character %q", e.Line, e.Char)
}

// SyntaxError is raised by the CompilationEngine whenever the current token does not
// match what the grammar production being parsed expects. There is no error recovery:
// the first SyntaxError aborts the compilation unit.
type SyntaxError struct {
	Line     int    // 1-indexed line number of the offending token
	Expected string // Human-readable description of what was expected
	Actual   string // The lexeme (or token kind) actually found
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("line %d: expected %s, got %q", e.Line, e.Expected, e.Actual)
}

// IllegalCommandError is raised by the VMWriter when asked to emit an arithmetic
// command outside its fixed vocabulary. A defensive guard against engine bugs: it
// should never fire against a correctly built CompilationEngine.
type IllegalCommandError struct{ Command string }

func (e *IllegalCommandError) Error() string {
	return fmt.Sprintf("illegal arithmetic command: %q", e.Command)
}

// IllegalSegmentError is raised by the VMWriter when asked to emit a memory segment
// it does not recognize. Same defensive role as IllegalCommandError; it also fires
// when the source reads or assigns an undeclared variable, whose segment is empty.
type IllegalSegmentError struct{ Segment string }

func (e *IllegalSegmentError) Error() string {
	return fmt.Sprintf("illegal memory segment: %q", e.Segment)
}
