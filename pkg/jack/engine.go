package jack

import (
	"fmt"
	"io"
)

// ----------------------------------------------------------------------------
// Compilation Engine

// The recursive-descent parser and code generator: it reads one Jack 'class'
// production token by token and, as it goes, emits the corresponding VM
// instructions directly — there is no intermediate parse tree. It leans on the
// SymbolTable to resolve identifiers to storage segments/indices and on the
// VMWriter to turn its decisions into text. Any token mismatch against what the
// current grammar production expects is a fatal SyntaxError: there is no error
// recovery, and the first one aborts the whole compilation unit.

// CompilationEngine couples a Tokenizer, a SymbolTable and a VMWriter to compile
// exactly one Jack class.
type CompilationEngine struct {
	tok *Tokenizer
	st  *SymbolTable
	vm  *VMWriter

	className string
	labels    int // monotonically increasing label counter, shared by the whole class
}

// CompileFile reads one Jack class from r and writes its VM translation to w.
// It is the entry point a driver (e.g. cmd/jack_compiler) calls once per .jack file.
func CompileFile(r io.Reader, w io.Writer) error {
	tokenizer, err := NewTokenizer(r)
	if err != nil {
		return err
	}

	engine := &CompilationEngine{
		tok: tokenizer,
		st:  NewSymbolTable(),
		vm:  NewVMWriter(w),
	}

	if _, err := engine.tok.Advance(); err != nil {
		return fmt.Errorf("engine: empty or unreadable source: %w", err)
	}

	return engine.compileClass()
}

// ----------------------------------------------------------------------------
// Token-matching helpers

func (e *CompilationEngine) cur() Token { return e.tok.Current() }

func (e *CompilationEngine) isSymbol(s string) bool {
	tok := e.cur()
	return tok.Type == Symbol && tok.Lexeme == s
}

func (e *CompilationEngine) isKeyword(kw string) bool {
	tok := e.cur()
	return tok.Type == Keyword && tok.Lexeme == kw
}

func (e *CompilationEngine) isAnyKeyword(keywords ...string) bool {
	for _, kw := range keywords {
		if e.isKeyword(kw) {
			return true
		}
	}
	return false
}

// advance consumes the current token and pulls the next one. Running out of tokens
// is expected exactly once per compilation unit, right after the class's closing
// '}' is matched, so io.EOF is swallowed here rather than treated as a failure. The
// current token is replaced by an empty one that matches no expect* call, so any
// truncated-input case is instead caught as a SyntaxError by the next expect* call.
func (e *CompilationEngine) advance() error {
	_, err := e.tok.Advance()
	if err == io.EOF {
		e.tok.cur = Token{Line: e.tok.line}
		return nil
	}
	return err
}

// expectSymbol asserts the current token is the given symbol, then advances past it.
func (e *CompilationEngine) expectSymbol(s string) error {
	if !e.isSymbol(s) {
		return &SyntaxError{Line: e.cur().Line, Expected: fmt.Sprintf("symbol %q", s), Actual: e.cur().Lexeme}
	}
	return e.advance()
}

// expectKeyword asserts the current token is the given keyword, then advances past it.
func (e *CompilationEngine) expectKeyword(kw string) error {
	if !e.isKeyword(kw) {
		return &SyntaxError{Line: e.cur().Line, Expected: fmt.Sprintf("keyword %q", kw), Actual: e.cur().Lexeme}
	}
	return e.advance()
}

// expectIdentifier asserts the current token is an identifier, returns its lexeme
// and advances past it.
func (e *CompilationEngine) expectIdentifier() (string, error) {
	tok := e.cur()
	if tok.Type != Identifier {
		return "", &SyntaxError{Line: tok.Line, Expected: "identifier", Actual: tok.Lexeme}
	}
	return tok.Lexeme, e.advance()
}

// expectType consumes a 'type' production (int|char|boolean|className) and returns
// its lexeme.
func (e *CompilationEngine) expectType() (string, error) {
	tok := e.cur()
	if tok.Type == Keyword && (tok.Lexeme == "int" || tok.Lexeme == "char" || tok.Lexeme == "boolean") {
		return tok.Lexeme, e.advance()
	}
	if tok.Type == Identifier {
		return tok.Lexeme, e.advance()
	}
	return "", &SyntaxError{Line: tok.Line, Expected: "type (int, char, boolean or a class name)", Actual: tok.Lexeme}
}

// expectReturnType consumes a 'type'|'void' production and returns its lexeme.
func (e *CompilationEngine) expectReturnType() (string, error) {
	if e.isKeyword("void") {
		tok := e.cur()
		return tok.Lexeme, e.advance()
	}
	return e.expectType()
}

func (e *CompilationEngine) newLabels(prefixes ...string) []string {
	labels := make([]string, len(prefixes))
	for i, prefix := range prefixes {
		labels[i] = fmt.Sprintf("%s%d", prefix, e.labels+i)
	}
	e.labels += len(prefixes)
	return labels
}

// segmentOf maps a SymbolTable Kind to the VM segment a variable of that Kind lives in.
func segmentOf(kind Kind) Segment {
	switch kind {
	case Static:
		return StaticSeg
	case Field:
		return ThisSeg
	case Arg:
		return ArgSeg
	case Var:
		return LocalSeg
	default:
		return ""
	}
}

// resolveVar looks name up in the SymbolTable and returns the segment/index pair
// code referencing it should push/pop. An identifier used as a variable but never
// declared is not flagged here (§4.4.4): it resolves to an empty segment and index
// -1, which the VMWriter then rejects with an IllegalSegmentError.
func (e *CompilationEngine) resolveVar(name string) (Segment, int) {
	kind := e.st.KindOf(name)
	return segmentOf(kind), e.st.IndexOf(name)
}

// ----------------------------------------------------------------------------
// class / classVarDec / subroutineDec / paramList / subBody / varDec

func (e *CompilationEngine) compileClass() error {
	if err := e.expectKeyword("class"); err != nil {
		return err
	}

	name, err := e.expectIdentifier()
	if err != nil {
		return fmt.Errorf("class name: %w", err)
	}
	e.className = name

	if err := e.expectSymbol("{"); err != nil {
		return err
	}

	for e.isAnyKeyword("static", "field") {
		if err := e.compileClassVarDec(); err != nil {
			return err
		}
	}

	for e.isAnyKeyword("constructor", "function", "method") {
		if err := e.compileSubroutine(); err != nil {
			return err
		}
	}

	return e.expectSymbol("}")
}

func (e *CompilationEngine) compileClassVarDec() error {
	var kind Kind
	switch {
	case e.isKeyword("static"):
		kind = Static
	case e.isKeyword("field"):
		kind = Field
	}
	if err := e.advance(); err != nil { // consume 'static'/'field'
		return err
	}

	typ, err := e.expectType()
	if err != nil {
		return err
	}

	for {
		name, err := e.expectIdentifier()
		if err != nil {
			return err
		}
		e.st.Define(name, typ, kind)

		if !e.isSymbol(",") {
			break
		}
		if err := e.advance(); err != nil {
			return err
		}
	}

	return e.expectSymbol(";")
}

func (e *CompilationEngine) compileSubroutine() error {
	subKind := e.cur().Lexeme // constructor | function | method
	if err := e.advance(); err != nil {
		return err
	}

	if _, err := e.expectReturnType(); err != nil {
		return err
	}

	subName, err := e.expectIdentifier()
	if err != nil {
		return err
	}

	if err := e.expectSymbol("("); err != nil {
		return err
	}

	e.st.StartSubroutine()
	if subKind == "method" {
		e.st.Define("this", e.className, Arg)
	}

	if err := e.compileParameterList(); err != nil {
		return err
	}

	if err := e.expectSymbol(")"); err != nil {
		return err
	}

	if err := e.expectSymbol("{"); err != nil {
		return err
	}

	for e.isKeyword("var") {
		if err := e.compileVarDec(); err != nil {
			return err
		}
	}

	// nLocals depends on the final Var count, which is only known once every varDec
	// has been parsed — this is why the 'function' directive is emitted here, after
	// the local declarations but before the statements.
	if err := e.vm.WriteFunction(e.className+"."+subName, e.st.VarCount(Var)); err != nil {
		return err
	}

	if err := e.emitPrologue(subKind); err != nil {
		return err
	}

	if err := e.compileStatements(); err != nil {
		return err
	}

	return e.expectSymbol("}")
}

// emitPrologue emits the fixed instruction sequence a subroutine of the given kind
// needs before its own statements run (§4.4.2).
func (e *CompilationEngine) emitPrologue(subKind string) error {
	switch subKind {
	case "constructor":
		nFields := e.st.VarCount(Field)
		if err := e.vm.WritePush(ConstSeg, nFields); err != nil {
			return err
		}
		if err := e.vm.WriteCall("Memory.alloc", 1); err != nil {
			return err
		}
		return e.vm.WritePop(PointerSeg, 0)
	case "method":
		if err := e.vm.WritePush(ArgSeg, 0); err != nil {
			return err
		}
		return e.vm.WritePop(PointerSeg, 0)
	default: // function: no prologue
		return nil
	}
}

func (e *CompilationEngine) compileParameterList() error {
	if e.isSymbol(")") {
		return nil
	}

	for {
		typ, err := e.expectType()
		if err != nil {
			return err
		}
		name, err := e.expectIdentifier()
		if err != nil {
			return err
		}
		e.st.Define(name, typ, Arg)

		if !e.isSymbol(",") {
			return nil
		}
		if err := e.advance(); err != nil {
			return err
		}
	}
}

func (e *CompilationEngine) compileVarDec() error {
	if err := e.expectKeyword("var"); err != nil {
		return err
	}

	typ, err := e.expectType()
	if err != nil {
		return err
	}

	for {
		name, err := e.expectIdentifier()
		if err != nil {
			return err
		}
		e.st.Define(name, typ, Var)

		if !e.isSymbol(",") {
			break
		}
		if err := e.advance(); err != nil {
			return err
		}
	}

	return e.expectSymbol(";")
}

// ----------------------------------------------------------------------------
// statements

func (e *CompilationEngine) compileStatements() error {
	for e.isAnyKeyword("let", "if", "while", "do", "return") {
		var err error
		switch {
		case e.isKeyword("let"):
			err = e.compileLet()
		case e.isKeyword("if"):
			err = e.compileIf()
		case e.isKeyword("while"):
			err = e.compileWhile()
		case e.isKeyword("do"):
			err = e.compileDo()
		case e.isKeyword("return"):
			err = e.compileReturn()
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (e *CompilationEngine) compileLet() error {
	if err := e.expectKeyword("let"); err != nil {
		return err
	}

	name, err := e.expectIdentifier()
	if err != nil {
		return err
	}

	isArray := e.isSymbol("[")
	if isArray {
		if err := e.advance(); err != nil { // '['
			return err
		}
		if err := e.compileExpression(); err != nil {
			return err
		}
		if err := e.expectSymbol("]"); err != nil {
			return err
		}

		seg, idx := e.resolveVar(name)
		if err := e.vm.WritePush(seg, idx); err != nil {
			return err
		}
		if err := e.vm.WriteArithmetic("add"); err != nil {
			return err
		}
	}

	if err := e.expectSymbol("="); err != nil {
		return err
	}
	if err := e.compileExpression(); err != nil {
		return err
	}
	if err := e.expectSymbol(";"); err != nil {
		return err
	}

	if isArray {
		// The indirection through temp 0 is required because evaluating the RHS may
		// itself index into an array and thus clobber 'pointer 1' before we get to use it.
		if err := e.vm.WritePop(TempSeg, 0); err != nil {
			return err
		}
		if err := e.vm.WritePop(PointerSeg, 1); err != nil {
			return err
		}
		if err := e.vm.WritePush(TempSeg, 0); err != nil {
			return err
		}
		return e.vm.WritePop(ThatSeg, 0)
	}

	seg, idx := e.resolveVar(name)
	return e.vm.WritePop(seg, idx)
}

func (e *CompilationEngine) compileIf() error {
	if err := e.expectKeyword("if"); err != nil {
		return err
	}
	if err := e.expectSymbol("("); err != nil {
		return err
	}
	if err := e.compileExpression(); err != nil {
		return err
	}
	if err := e.expectSymbol(")"); err != nil {
		return err
	}

	// All three labels are allocated up front, in a single block, even though IF_END is
	// only used when an else-clause turns out to follow the then-block.
	labels := e.newLabels("IF_TRUE", "IF_FALSE", "IF_END")
	trueLabel, falseLabel, endLabel := labels[0], labels[1], labels[2]

	if err := e.vm.WriteIf(trueLabel); err != nil {
		return err
	}
	if err := e.vm.WriteGoto(falseLabel); err != nil {
		return err
	}
	if err := e.vm.WriteLabel(trueLabel); err != nil {
		return err
	}

	if err := e.expectSymbol("{"); err != nil {
		return err
	}
	if err := e.compileStatements(); err != nil {
		return err
	}
	if err := e.expectSymbol("}"); err != nil {
		return err
	}

	if e.isKeyword("else") {
		if err := e.vm.WriteGoto(endLabel); err != nil {
			return err
		}
		if err := e.vm.WriteLabel(falseLabel); err != nil {
			return err
		}
		if err := e.advance(); err != nil { // 'else'
			return err
		}
		if err := e.expectSymbol("{"); err != nil {
			return err
		}
		if err := e.compileStatements(); err != nil {
			return err
		}
		if err := e.expectSymbol("}"); err != nil {
			return err
		}
		return e.vm.WriteLabel(endLabel)
	}

	return e.vm.WriteLabel(falseLabel)
}

func (e *CompilationEngine) compileWhile() error {
	if err := e.expectKeyword("while"); err != nil {
		return err
	}

	labels := e.newLabels("WHILE_EXP", "WHILE_END")
	startLabel, endLabel := labels[0], labels[1]

	if err := e.vm.WriteLabel(startLabel); err != nil {
		return err
	}

	if err := e.expectSymbol("("); err != nil {
		return err
	}
	if err := e.compileExpression(); err != nil {
		return err
	}
	if err := e.expectSymbol(")"); err != nil {
		return err
	}

	if err := e.vm.WriteArithmetic("not"); err != nil {
		return err
	}
	if err := e.vm.WriteIf(endLabel); err != nil {
		return err
	}

	if err := e.expectSymbol("{"); err != nil {
		return err
	}
	if err := e.compileStatements(); err != nil {
		return err
	}
	if err := e.expectSymbol("}"); err != nil {
		return err
	}

	if err := e.vm.WriteGoto(startLabel); err != nil {
		return err
	}
	return e.vm.WriteLabel(endLabel)
}

func (e *CompilationEngine) compileDo() error {
	if err := e.expectKeyword("do"); err != nil {
		return err
	}
	if err := e.compileSubroutineCall(); err != nil {
		return err
	}
	if err := e.expectSymbol(";"); err != nil {
		return err
	}
	return e.vm.WritePop(TempSeg, 0)
}

func (e *CompilationEngine) compileReturn() error {
	if err := e.expectKeyword("return"); err != nil {
		return err
	}

	if e.isSymbol(";") {
		if err := e.vm.WritePush(ConstSeg, 0); err != nil {
			return err
		}
	} else if err := e.compileExpression(); err != nil {
		return err
	}

	if err := e.expectSymbol(";"); err != nil {
		return err
	}
	return e.vm.WriteReturn()
}

// ----------------------------------------------------------------------------
// expressions / terms / subroutine calls

var binaryOps = map[string]string{
	"+": "add", "-": "sub", "&": "and", "|": "or",
	"<": "lt", ">": "gt", "=": "eq",
}

func (e *CompilationEngine) compileExpression() error {
	if err := e.compileTerm(); err != nil {
		return err
	}

	for e.isOperator() {
		op := e.cur().Lexeme
		if err := e.advance(); err != nil {
			return err
		}
		if err := e.compileTerm(); err != nil {
			return err
		}
		if err := e.emitBinaryOp(op); err != nil {
			return err
		}
	}
	return nil
}

func (e *CompilationEngine) isOperator() bool {
	tok := e.cur()
	if tok.Type != Symbol {
		return false
	}
	switch tok.Lexeme {
	case "+", "-", "*", "/", "&", "|", "<", ">", "=", "<<", ">>":
		return true
	default:
		return false
	}
}

func (e *CompilationEngine) emitBinaryOp(op string) error {
	switch op {
	case "*":
		return e.vm.WriteCall("Math.multiply", 2)
	case "/":
		return e.vm.WriteCall("Math.divide", 2)
	case "<<":
		return e.vm.WriteArithmetic("shiftleft")
	case ">>":
		return e.vm.WriteArithmetic("shiftright")
	default:
		command, ok := binaryOps[op]
		if !ok {
			return &IllegalCommandError{Command: op}
		}
		return e.vm.WriteArithmetic(command)
	}
}

func (e *CompilationEngine) compileTerm() error {
	tok := e.cur()

	switch {
	case tok.Type == IntegerConstant:
		n, err := tok.IntVal()
		if err != nil {
			return err
		}
		if err := e.vm.WritePush(ConstSeg, n); err != nil {
			return err
		}
		return e.advance()

	case tok.Type == StringConstant:
		if err := e.writeStringConstant(tok.StringVal()); err != nil {
			return err
		}
		return e.advance()

	case tok.Type == Keyword && (tok.Lexeme == "true" || tok.Lexeme == "false" || tok.Lexeme == "null" || tok.Lexeme == "this"):
		if err := e.compileKeywordConstant(tok.Lexeme); err != nil {
			return err
		}
		return e.advance()

	case e.isSymbol("("):
		if err := e.advance(); err != nil {
			return err
		}
		if err := e.compileExpression(); err != nil {
			return err
		}
		return e.expectSymbol(")")

	case e.isSymbol("-") || e.isSymbol("~"):
		op := tok.Lexeme
		if err := e.advance(); err != nil {
			return err
		}
		if err := e.compileTerm(); err != nil {
			return err
		}
		if op == "-" {
			return e.vm.WriteArithmetic("neg")
		}
		return e.vm.WriteArithmetic("not")

	case tok.Type == Identifier:
		nameTok := tok
		ident := tok.Lexeme
		if err := e.advance(); err != nil {
			return err
		}

		switch {
		case e.isSymbol("["):
			if err := e.advance(); err != nil {
				return err
			}
			if err := e.compileExpression(); err != nil {
				return err
			}
			if err := e.expectSymbol("]"); err != nil {
				return err
			}

			seg, idx := e.resolveVar(ident)
			if err := e.vm.WritePush(seg, idx); err != nil {
				return err
			}
			if err := e.vm.WriteArithmetic("add"); err != nil {
				return err
			}
			if err := e.vm.WritePop(PointerSeg, 1); err != nil {
				return err
			}
			return e.vm.WritePush(ThatSeg, 0)

		case e.isSymbol("(") || e.isSymbol("."):
			return e.compileSubroutineCallWithName(ident, nameTok.Line)

		default:
			seg, idx := e.resolveVar(ident)
			return e.vm.WritePush(seg, idx)
		}

	default:
		return &SyntaxError{Line: tok.Line, Expected: "term", Actual: tok.Lexeme}
	}
}

func (e *CompilationEngine) compileKeywordConstant(kw string) error {
	switch kw {
	case "false", "null":
		return e.vm.WritePush(ConstSeg, 0)
	case "true":
		if err := e.vm.WritePush(ConstSeg, 0); err != nil {
			return err
		}
		return e.vm.WriteArithmetic("not")
	case "this":
		return e.vm.WritePush(PointerSeg, 0)
	default:
		return &SyntaxError{Expected: "keyword constant", Actual: kw}
	}
}

func (e *CompilationEngine) writeStringConstant(s string) error {
	if err := e.vm.WritePush(ConstSeg, len(s)); err != nil {
		return err
	}
	if err := e.vm.WriteCall("String.new", 1); err != nil {
		return err
	}
	for _, r := range s {
		if err := e.vm.WritePush(ConstSeg, int(r)); err != nil {
			return err
		}
		if err := e.vm.WriteCall("String.appendChar", 2); err != nil {
			return err
		}
	}
	return nil
}

// compileSubroutineCall parses a subCall production that starts fresh (as in a do
// statement), where the leading identifier has not yet been consumed.
func (e *CompilationEngine) compileSubroutineCall() error {
	tok := e.cur()
	name, err := e.expectIdentifier()
	if err != nil {
		return err
	}
	return e.compileSubroutineCallWithName(name, tok.Line)
}

// compileSubroutineCallWithName parses the '(' exprList ')' or '.' ID '(' exprList ')'
// tail of a subroutine call whose leading identifier ('name') has already been
// consumed by the caller (the disambiguation point in compileTerm).
func (e *CompilationEngine) compileSubroutineCallWithName(name string, line int) error {
	switch {
	case e.isSymbol("("):
		// Bare call: an implicit method call on 'this'.
		if err := e.advance(); err != nil {
			return err
		}
		if err := e.vm.WritePush(PointerSeg, 0); err != nil {
			return err
		}
		nArgs, err := e.compileExpressionList()
		if err != nil {
			return err
		}
		if err := e.expectSymbol(")"); err != nil {
			return err
		}
		return e.vm.WriteCall(e.className+"."+name, nArgs+1)

	case e.isSymbol("."):
		if err := e.advance(); err != nil {
			return err
		}
		member, err := e.expectIdentifier()
		if err != nil {
			return err
		}
		if err := e.expectSymbol("("); err != nil {
			return err
		}

		// The lookup-is-defined test resolves the grammar ambiguity between a method
		// call on a variable and a static call on a class name. The receiver push (if
		// any) must happen before the arguments, and only once this check has run —
		// it is never emitted speculatively and retracted.
		kind := e.st.KindOf(name)
		if kind != undefinedKind {
			typ := e.st.TypeOf(name)
			seg, idx := e.resolveVar(name)
			if err := e.vm.WritePush(seg, idx); err != nil {
				return err
			}
			nArgs, err := e.compileExpressionList()
			if err != nil {
				return err
			}
			if err := e.expectSymbol(")"); err != nil {
				return err
			}
			return e.vm.WriteCall(typ+"."+member, nArgs+1)
		}

		nArgs, err := e.compileExpressionList()
		if err != nil {
			return err
		}
		if err := e.expectSymbol(")"); err != nil {
			return err
		}
		return e.vm.WriteCall(name+"."+member, nArgs)

	default:
		return &SyntaxError{Line: line, Expected: "'(' or '.'", Actual: e.cur().Lexeme}
	}
}

func (e *CompilationEngine) compileExpressionList() (int, error) {
	if e.isSymbol(")") {
		return 0, nil
	}

	count := 0
	for {
		if err := e.compileExpression(); err != nil {
			return 0, err
		}
		count++

		if !e.isSymbol(",") {
			return count, nil
		}
		if err := e.advance(); err != nil {
			return 0, err
		}
	}
}
