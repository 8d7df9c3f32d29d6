package ast

import "fmt"

// Symbolic is satisfied by logic.Symbol. It lets a post-image step embed a
// solver-minted symbolic value inside an otherwise syntactic expression tree
// (e.g. when re-evaluating a configured invariant blueprint against concrete
// memory-axiom symbols) without internal/ast importing internal/logic.
type Symbolic interface {
	SymbolName() string
	SymbolType() *Type
}

// Expr is any CoLa expression: literals, variable references, dereferences,
// negation, binary operators, and solver-injected symbolic values.
type Expr interface {
	Node
	isExpr()
	ExprType() *Type
}

// BoolExpr is a literal `true` or `false`.
type BoolExpr struct {
	base
	Value bool
}

// NullExpr is the literal `null`.
type NullExpr struct {
	base
}

// MinExpr/MaxExpr are the literals for the minimal/maximal data value,
// used to bound flow sets and sentinel sorted-list keys.
type MinExpr struct{ base }
type MaxExpr struct{ base }

// VarExpr references a declared variable.
type VarExpr struct {
	base
	Decl *VarDecl
}

// DerefExpr reads a struct field off a pointer-valued expression: `e.field`.
type DerefExpr struct {
	base
	Target Expr
	Field  string
	Type   *Type // resolved field type, filled in after type resolution
}

// NegExpr is Boolean negation: `!e`.
type NegExpr struct {
	base
	Operand Expr
}

// BinaryExpr applies a binary operator to two operands.
type BinaryExpr struct {
	base
	Op          BinOp
	Left, Right Expr
}

// SymbolicExpr wraps a solver-minted symbol so it can appear inside an
// expression tree built by the post-image engine or a configured invariant
// instantiation, rather than only by the parser.
type SymbolicExpr struct {
	base
	Sym Symbolic
}

func (*BoolExpr) isExpr()     {}
func (*NullExpr) isExpr()     {}
func (*MinExpr) isExpr()      {}
func (*MaxExpr) isExpr()      {}
func (*VarExpr) isExpr()      {}
func (*DerefExpr) isExpr()    {}
func (*NegExpr) isExpr()      {}
func (*BinaryExpr) isExpr()   {}
func (*SymbolicExpr) isExpr() {}

func (*BoolExpr) NodeType() NodeType     { return BOOL_EXPR }
func (*NullExpr) NodeType() NodeType     { return NULL_EXPR }
func (*MinExpr) NodeType() NodeType      { return MIN_EXPR }
func (*MaxExpr) NodeType() NodeType      { return MAX_EXPR }
func (*VarExpr) NodeType() NodeType      { return VAR_EXPR }
func (*DerefExpr) NodeType() NodeType    { return DEREF_EXPR }
func (*NegExpr) NodeType() NodeType      { return NEG_EXPR }
func (*BinaryExpr) NodeType() NodeType   { return BINARY_EXPR }
func (*SymbolicExpr) NodeType() NodeType { return SYMBOLIC_EXPR }

func (e *BoolExpr) ExprType() *Type { return BoolType }
func (e *NullExpr) ExprType() *Type { return NullType }
func (e *MinExpr) ExprType() *Type  { return DataType }
func (e *MaxExpr) ExprType() *Type  { return DataType }
func (e *VarExpr) ExprType() *Type  { return e.Decl.Type }
func (e *DerefExpr) ExprType() *Type {
	if e.Type != nil {
		return e.Type
	}
	return DataType
}
func (e *NegExpr) ExprType() *Type { return BoolType }
func (e *BinaryExpr) ExprType() *Type {
	if e.Op.IsComparison() {
		return BoolType
	}
	return BoolType
}
func (e *SymbolicExpr) ExprType() *Type { return e.Sym.SymbolType() }

func (e *BoolExpr) String() string {
	if e.Value {
		return "true"
	}
	return "false"
}
func (e *NullExpr) String() string { return "null" }
func (e *MinExpr) String() string  { return "MIN" }
func (e *MaxExpr) String() string  { return "MAX" }
func (e *VarExpr) String() string  { return e.Decl.Name }
func (e *DerefExpr) String() string {
	return fmt.Sprintf("%s.%s", e.Target.String(), e.Field)
}
func (e *NegExpr) String() string { return "!" + parenIfBinary(e.Operand) }
func (e *BinaryExpr) String() string {
	return fmt.Sprintf("%s %s %s", parenIfBinary(e.Left), e.Op.String(), parenIfBinary(e.Right))
}
func (e *SymbolicExpr) String() string { return e.Sym.SymbolName() }

func parenIfBinary(e Expr) string {
	if _, ok := e.(*BinaryExpr); ok {
		return "(" + e.String() + ")"
	}
	return e.String()
}

// NegateExpr computes the structural negation of e the way the
// remove_conditional_branching pass needs it: De Morgan on And/Or, operator
// flip on comparisons, double-negation elimination on Not, Boolean literal
// inversion, and a wrapping NegExpr for anything else (variable references,
// dereferences, macro-call results bound to a Boolean variable).
func NegateExpr(e Expr) Expr {
	switch x := e.(type) {
	case *BoolExpr:
		return &BoolExpr{base: x.base, Value: !x.Value}
	case *NegExpr:
		return x.Operand
	case *BinaryExpr:
		if flipped, ok := x.Op.Flip(); ok {
			return &BinaryExpr{base: x.base, Op: flipped, Left: x.Left, Right: x.Right}
		}
		if x.Op == OpAnd {
			return &BinaryExpr{base: x.base, Op: OpOr, Left: NegateExpr(x.Left), Right: NegateExpr(x.Right)}
		}
		if x.Op == OpOr {
			return &BinaryExpr{base: x.base, Op: OpAnd, Left: NegateExpr(x.Left), Right: NegateExpr(x.Right)}
		}
		return &NegExpr{base: x.base, Operand: x}
	default:
		return &NegExpr{base: base{Pos: e.NodePos(), EndPos: e.NodeEndPos()}, Operand: e}
	}
}
