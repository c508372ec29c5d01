package jack

import (
	"fmt"
	"io"
	"regexp"
	"strconv"
	"unicode/utf8"

	pc "github.com/prataprc/goparsec"
)

// ----------------------------------------------------------------------------
// Tokenizer

// This section turns Jack source text into a pull-based stream of Token(s).
//
// Preprocessing strips comments in two ordered passes (block comments first, so a
// line-comment marker inside a block comment is never mistaken for one), then lexing
// skips whitespace and classifies the next lexeme of the cleaned text using a single
// regular grammar, tried in priority order: symbol, integer constant,
// identifier/keyword, string constant. The regex matching itself is delegated to
// 'goparsec' terminal combinators (pc.Token alternatives joined by pc.OrdChoice),
// one token at a time, with no parse tree built.

// TokenType enumerates the five lexical categories a Token can belong to.
type TokenType int

const (
	Keyword TokenType = iota
	Symbol
	IntegerConstant
	StringConstant
	Identifier
)

func (t TokenType) String() string {
	switch t {
	case Keyword:
		return "keyword"
	case Symbol:
		return "symbol"
	case IntegerConstant:
		return "integer constant"
	case StringConstant:
		return "string constant"
	case Identifier:
		return "identifier"
	default:
		return "unknown"
	}
}

// Token is an immutable record of a single lexeme and the line it was found on.
// For StringConstant the surrounding quotes have already been stripped.
type Token struct {
	Type   TokenType
	Lexeme string
	Line   int
}

// IntVal parses the lexeme of an IntegerConstant token, bounding it to the Jack
// machine word range [0, 32767] as required by §4.1.
func (t Token) IntVal() (int, error) {
	value, err := strconv.Atoi(t.Lexeme)
	if err != nil {
		return 0, fmt.Errorf("line %d: malformed integer constant %q: %w", t.Line, t.Lexeme, err)
	}
	if value < 0 || value > 32767 {
		return 0, &SyntaxError{Line: t.Line, Expected: "integer constant in [0, 32767]", Actual: t.Lexeme}
	}
	return value, nil
}

// StringVal returns the string literal's contents (quotes already removed).
func (t Token) StringVal() string { return t.Lexeme }

var keywords = map[string]bool{
	"class": true, "constructor": true, "function": true, "method": true,
	"field": true, "static": true, "var": true, "int": true, "char": true,
	"boolean": true, "void": true, "true": true, "false": true, "null": true,
	"this": true, "let": true, "do": true, "if": true, "else": true,
	"while": true, "return": true,
}

// Lexical atoms, tried in the priority order §4.1 mandates. The symbol alternation
// also accepts the shift-operator extensions '<<'/'>>' (see SPEC_FULL.md, resolving
// spec.md's open question about whether they belong to the symbol set).
var (
	pSymbol = pc.Token(`<<|>>|[{}\[\]\(\)\.,;\+\-\*/&\|<>=~]`, "SYMBOL")
	pInt    = pc.Token(`[0-9]+`, "INT")
	pIdent  = pc.Token(`[A-Za-z_][A-Za-z0-9_]*`, "IDENT")
	pString = pc.Token(`"[^"\n]*"`, "STRING")
	pAny    = pc.OrdChoice(nil, pSymbol, pInt, pIdent, pString)
)

var (
	blockCommentRe = regexp.MustCompile(`(?s)/\*.*?\*/`)
	lineCommentRe  = regexp.MustCompile(`//[^\n]*`)
)

// stripComments removes block comments (including the '/** ... */' API-comment form,
// non-greedy, dot matching newlines) and then line comments. Order matters: stripping
// block comments first means a '//' that happens to sit inside one is never parsed as
// the start of a line comment.
func stripComments(src []byte) []byte {
	src = blockCommentRe.ReplaceAll(src, nil)
	src = lineCommentRe.ReplaceAll(src, nil)
	return src
}

// Tokenizer is a forward-only, pull-based stream of Token(s) created once per
// compilation unit and never restarted. It exposes exactly the lookahead contract
// §4.1 requires: the current token plus the ability to peek one token ahead without
// consuming it, realized with a single-element stash.
type Tokenizer struct {
	data []byte
	pos  int
	line int

	cur   Token
	stash *Token // single-token lookahead buffer; nil when empty
}

// NewTokenizer reads all of r, strips comments, and returns a Tokenizer positioned
// before the first token. Call Advance once to prime it.
func NewTokenizer(r io.Reader) (*Tokenizer, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("tokenizer: unable to read source: %w", err)
	}
	return &Tokenizer{data: stripComments(raw), line: 1}, nil
}

// Current returns the most recently consumed token (the "current token").
func (t *Tokenizer) Current() Token { return t.cur }

// HasMoreTokens reports whether a token is stashed or any non-whitespace text remains.
// A true result does not guarantee that Advance succeeds: the remaining text may
// start with an invalid character.
func (t *Tokenizer) HasMoreTokens() bool {
	if t.stash != nil {
		return true
	}
	return t.skippableRemainder()
}

// Advance consumes and returns the next token, making it the new "current" token.
func (t *Tokenizer) Advance() (Token, error) {
	if t.stash != nil {
		tok := *t.stash
		t.stash = nil
		t.cur = tok
		return tok, nil
	}

	tok, err := t.scanOne()
	if err != nil {
		return Token{}, err
	}
	t.cur = tok
	return tok, nil
}

// PeekNext returns the token that a subsequent Advance would yield, without
// consuming it. ok is false once the stream is exhausted or when the next text
// cannot be scanned as a token.
func (t *Tokenizer) PeekNext() (tok Token, ok bool) {
	if t.stash == nil {
		next, err := t.scanOne()
		if err != nil {
			return Token{}, false
		}
		t.stash = &next
	}
	return *t.stash, true
}

// skippableRemainder reports whether anything but whitespace remains, without
// mutating the tokenizer's position.
func (t *Tokenizer) skippableRemainder() bool {
	pos := t.pos
	for pos < len(t.data) && isJackSpace(t.data[pos]) {
		pos++
	}
	return pos < len(t.data)
}

// scanOne advances past leading whitespace (tracking line numbers) and classifies
// the next lexeme using the goparsec terminal combinators declared above, trying
// each lexical category in the priority order §4.1 requires.
func (t *Tokenizer) scanOne() (Token, error) {
	for t.pos < len(t.data) && isJackSpace(t.data[t.pos]) {
		if t.data[t.pos] == '\n' {
			t.line++
		}
		t.pos++
	}
	if t.pos >= len(t.data) {
		return Token{}, io.EOF
	}

	scanner := pc.NewScanner(t.data[t.pos:])
	node, _ := pAny(scanner)

	term, ok := node.(*pc.Terminal)
	if !ok || term == nil {
		r, _ := utf8.DecodeRune(t.data[t.pos:])
		return Token{}, &InvalidCharacterError{Line: t.line, Char: r}
	}

	lexeme := term.Value
	t.pos += len(lexeme)

	tok := Token{Line: t.line, Lexeme: lexeme}
	switch term.Name {
	case "SYMBOL":
		tok.Type = Symbol
	case "INT":
		tok.Type = IntegerConstant
	case "STRING":
		tok.Type = StringConstant
		tok.Lexeme = lexeme[1 : len(lexeme)-1]
	case "IDENT":
		if keywords[lexeme] {
			tok.Type = Keyword
		} else {
			tok.Type = Identifier
		}
	default:
		return Token{}, &InvalidCharacterError{Line: t.line, Char: rune(lexeme[0])}
	}
	return tok, nil
}

func isJackSpace(b byte) bool {
	switch b {
	case ' ', '\t', '\r', '\n', '\v', '\f':
		return true
	default:
		return false
	}
}
