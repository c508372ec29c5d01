package jack

// ----------------------------------------------------------------------------
// Symbol Table

// This section implements the two-scope identifier bookkeeping described in §4.2.
//
// Class scope holds Static and Field entries and lives for the whole class; subroutine
// scope holds Arg and Var entries and is cleared at every subroutine boundary. Each of
// the four Kinds has its own running counter: Static/Field persist across subroutines,
// Arg/Var reset to zero when a new subroutine starts.

// Kind is the storage class of a declared identifier.
type Kind int

const (
	// undefinedKind is the zero value, returned by the lookup methods (never stored)
	// to signal that a name is not a variable at all, so the engine can fall back to
	// treating it as a class name.
	undefinedKind Kind = iota
	Static
	Field
	Arg
	Var
)

func (k Kind) String() string {
	switch k {
	case Static:
		return "static"
	case Field:
		return "field"
	case Arg:
		return "arg"
	case Var:
		return "var"
	default:
		return "undefined"
	}
}

// Symbol is a single entry of the SymbolTable: its declared type, storage Kind, and
// running index within that Kind.
type Symbol struct {
	Type  string
	Kind  Kind
	Index int
}

// SymbolTable resolves identifiers to Symbol records across the two scopes a Jack
// class defines: the class scope (Static, Field) and the current subroutine's scope
// (Arg, Var). Lookups try subroutine scope first, then class scope, so a subroutine's
// arguments/locals shadow the class's fields and statics.
type SymbolTable struct {
	class      map[string]Symbol
	subroutine map[string]Symbol
	counters   [5]int // indexed by Kind
}

// NewSymbolTable returns an empty SymbolTable, both scopes cleared and every counter
// at zero.
func NewSymbolTable() *SymbolTable {
	return &SymbolTable{
		class:      make(map[string]Symbol),
		subroutine: make(map[string]Symbol),
	}
}

// StartSubroutine clears subroutine scope and resets the Arg/Var counters to zero.
// Static/Field state (class scope) is left untouched.
func (st *SymbolTable) StartSubroutine() {
	st.subroutine = make(map[string]Symbol)
	st.counters[Arg] = 0
	st.counters[Var] = 0
}

// Define assigns the next available index for kind, registers (name, type, kind,
// index) in the scope kind belongs to, and advances that kind's counter. Redefining
// a name already present in the same scope overwrites the previous entry; the Jack
// grammar disallows shadowing within a single scope, but this is not enforced here.
func (st *SymbolTable) Define(name, typ string, kind Kind) {
	index := st.counters[kind]
	st.counters[kind]++
	symbol := Symbol{Type: typ, Kind: kind, Index: index}

	switch kind {
	case Static, Field:
		st.class[name] = symbol
	case Arg, Var:
		st.subroutine[name] = symbol
	}
}

// VarCount returns the current value of kind's counter: for Static/Field this is the
// total declared across the whole class so far, for Arg/Var it is the count within
// the current subroutine.
func (st *SymbolTable) VarCount(kind Kind) int { return st.counters[kind] }

func (st *SymbolTable) lookup(name string) (Symbol, bool) {
	if symbol, ok := st.subroutine[name]; ok {
		return symbol, true
	}
	if symbol, ok := st.class[name]; ok {
		return symbol, true
	}
	return Symbol{}, false
}

// KindOf returns the Kind of name, or the "undefined" sentinel if it is not a known
// variable. The engine uses the sentinel to redirect name to the class-name call
// branch rather than treating it as a variable read.
func (st *SymbolTable) KindOf(name string) Kind {
	symbol, ok := st.lookup(name)
	if !ok {
		return undefinedKind
	}
	return symbol.Kind
}

// TypeOf returns the declared type of name ("" if undefined).
func (st *SymbolTable) TypeOf(name string) string {
	symbol, ok := st.lookup(name)
	if !ok {
		return ""
	}
	return symbol.Type
}

// IndexOf returns the running index assigned to name at Define time (-1 if undefined).
func (st *SymbolTable) IndexOf(name string) int {
	symbol, ok := st.lookup(name)
	if !ok {
		return -1
	}
	return symbol.Index
}
