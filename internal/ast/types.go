package ast


// Sort is the base classification of a CoLa type, independent of name.
type Sort int

const (
	SortBool Sort = iota
	SortData
	SortPointer
	SortVoid
)

func (s Sort) String() string {
	switch s {
	case SortBool:
		return "bool"
	case SortData:
		return "data"
	case SortPointer:
		return "pointer"
	case SortVoid:
		return "void"
	default:
		return "?sort"
	}
}

// Type names a CoLa type. Pointer types additionally carry a field layout:
// the struct referent's field names mapped to their declared types.
type Type struct {
	Name   string
	Sort   Sort
	Fields map[string]*Type // non-nil only for Sort == SortPointer
}

var (
	BoolType = &Type{Name: "bool", Sort: SortBool}
	DataType = &Type{Name: "data", Sort: SortData}
	VoidType = &Type{Name: "void", Sort: SortVoid}
	NullType = &Type{Name: "null", Sort: SortPointer} // the sort of the literal `null`
)

// PointerTo declares a new named pointer (struct) type with the given field layout.
func PointerTo(name string, fields map[string]*Type) *Type {
	return &Type{Name: name, Sort: SortPointer, Fields: fields}
}

func (t *Type) String() string {
	return t.Name
}

// AssignableTo reports whether a value of type t may be assigned where a
// value of type target is expected: identical types, pointer-to-same-struct,
// or any value assigned into a void-sorted slot (used for discarded results).
func (t *Type) AssignableTo(target *Type) bool {
	if t == nil || target == nil {
		return false
	}
	if target.Sort == SortVoid {
		return true
	}
	if t == target {
		return true
	}
	if t.Sort == SortPointer && target.Sort == SortPointer {
		return t.Name == target.Name || t.Name == "null" || target.Name == "null"
	}
	return t.Name == target.Name && t.Sort == target.Sort
}

// FieldType looks up the declared type of a struct field on a pointer type.
func (t *Type) FieldType(field string) (*Type, bool) {
	if t == nil || t.Fields == nil {
		return nil, false
	}
	f, ok := t.Fields[field]
	return f, ok
}

// VarDecl declares a program variable: a name, a type, and whether the
// variable lives in shared (global) memory or is thread-local. Two
// declarations are considered equal only by pointer identity, matching the
// "compare equal by identity" rule in the data model.
type VarDecl struct {
	Name     string
	Type     *Type
	IsShared bool
}

func (v *VarDecl) String() string {
	kind := "local"
	if v.IsShared {
		kind = "shared"
	}
	return v.Name + ":" + v.Type.String() + "[" + kind + "]"
}

// FunctionKind classifies a top-level function declaration.
type FunctionKind int

const (
	FunctionInterface FunctionKind = iota // public entry point subject to linearizability
	FunctionMacro                         // inlined helper, never itself verified
	FunctionInit                          // the program initializer, run once before any interface function
)

func (k FunctionKind) String() string {
	switch k {
	case FunctionInterface:
		return "interface"
	case FunctionMacro:
		return "macro"
	case FunctionInit:
		return "init"
	default:
		return "?kind"
	}
}

// BinOp enumerates the binary relations and operators the core language supports.
type BinOp int

const (
	OpEq BinOp = iota
	OpNeq
	OpLt
	OpLeq
	OpGt
	OpGeq
	OpAnd
	OpOr
)

var binOpNames = map[BinOp]string{
	OpEq: "==", OpNeq: "!=", OpLt: "<", OpLeq: "<=", OpGt: ">", OpGeq: ">=",
	OpAnd: "&&", OpOr: "||",
}

func (op BinOp) String() string {
	if s, ok := binOpNames[op]; ok {
		return s
	}
	return "?op"
}

// Flip returns the comparison operator obtained by structural negation:
// `=` with `!=`, `<` with `>=`, `<=` with `>`. And/Or have no flip partner
// (negation of a conjunction/disjunction is handled by De Morgan at the Expr
// level, not by flipping the operator).
func (op BinOp) Flip() (BinOp, bool) {
	switch op {
	case OpEq:
		return OpNeq, true
	case OpNeq:
		return OpEq, true
	case OpLt:
		return OpGeq, true
	case OpGeq:
		return OpLt, true
	case OpLeq:
		return OpGt, true
	case OpGt:
		return OpLeq, true
	default:
		return op, false
	}
}

// IsComparison reports whether op is a relation suitable for the stack theory
// (as opposed to a Boolean connective, which normalization eliminates from
// the comparison position well before the logic layer sees it).
func (op BinOp) IsComparison() bool {
	switch op {
	case OpEq, OpNeq, OpLt, OpLeq, OpGt, OpGeq:
		return true
	default:
		return false
	}
}
