package logic

import (
	"fmt"
	"strings"

	"colaheal/internal/ast"
)

// Formula is any separation-logic object: a resource, a pure axiom, an
// obligation/fulfillment marker, or a composite of other formulas.
type Formula interface {
	isFormula()
	String() string
}

// MemoryAxiom is the common shape of a heap-cell resource: a node-address
// symbol, a flow-set symbol, and a mapping from field name to the symbolic
// value currently stored there.
type MemoryAxiom interface {
	Formula
	Node() *Symbol
	Flow() *Symbol
	Fields() map[string]*Symbol
	SetField(name string, v *Symbol)
	Shared() bool
}

// LocalMemoryResource is exclusively owned by the thread holding it.
type LocalMemoryResource struct {
	NodeSym, FlowSym *Symbol
	FieldVals        map[string]*Symbol
}

// SharedMemoryCore is owned by "the environment": any thread may read it,
// and a write to it produces a heap effect visible as interference to every
// other function's annotation.
type SharedMemoryCore struct {
	NodeSym, FlowSym *Symbol
	FieldVals        map[string]*Symbol
}

func (*LocalMemoryResource) isFormula() {}
func (*SharedMemoryCore) isFormula()    {}

func (m *LocalMemoryResource) Node() *Symbol               { return m.NodeSym }
func (m *LocalMemoryResource) Flow() *Symbol                { return m.FlowSym }
func (m *LocalMemoryResource) Fields() map[string]*Symbol   { return m.FieldVals }
func (m *LocalMemoryResource) SetField(name string, v *Symbol) { m.FieldVals[name] = v }
func (m *LocalMemoryResource) Shared() bool                 { return false }

func (m *SharedMemoryCore) Node() *Symbol               { return m.NodeSym }
func (m *SharedMemoryCore) Flow() *Symbol                { return m.FlowSym }
func (m *SharedMemoryCore) Fields() map[string]*Symbol   { return m.FieldVals }
func (m *SharedMemoryCore) SetField(name string, v *Symbol) { m.FieldVals[name] = v }
func (m *SharedMemoryCore) Shared() bool                 { return true }

func (m *LocalMemoryResource) String() string { return memoryString("local", m.NodeSym, m.FlowSym, m.FieldVals) }
func (m *SharedMemoryCore) String() string    { return memoryString("shared", m.NodeSym, m.FlowSym, m.FieldVals) }

func memoryString(kind string, node, flow *Symbol, fields map[string]*Symbol) string {
	parts := make([]string, 0, len(fields))
	for name, v := range fields {
		parts = append(parts, fmt.Sprintf("%s: %s", name, v.SymbolName()))
	}
	return fmt.Sprintf("%s(%s, flow=%s){%s}", kind, node.SymbolName(), flow.SymbolName(), strings.Join(parts, ", "))
}

// EqualsToAxiom links a program variable to the symbol holding its current value.
type EqualsToAxiom struct {
	Var   *ast.VarDecl
	Value *Symbol
}

func (*EqualsToAxiom) isFormula() {}
func (e *EqualsToAxiom) String() string {
	return fmt.Sprintf("%s == %s", e.Var.Name, e.Value.SymbolName())
}

// Valid checks invariant I2: a pointer-sorted variable must be bound to a
// pointer-sorted symbol.
func (e *EqualsToAxiom) Valid() bool {
	if e.Var.Type.Sort != ast.SortPointer {
		return true
	}
	return e.Value.Type != nil && e.Value.Type.Sort == ast.SortPointer
}

// StackAxiom is a pure relation between two symbolic expressions (both sides
// may be literal values, symbols, or nested binary expressions built from them).
type StackAxiom struct {
	Op          ast.BinOp
	Left, Right ast.Expr
}

func (*StackAxiom) isFormula() {}
func (s *StackAxiom) String() string {
	return fmt.Sprintf("%s %s %s", s.Left.String(), s.Op.String(), s.Right.String())
}

// InflowEmptinessAxiom asserts a flow set is (or is not) empty.
type InflowEmptinessAxiom struct {
	Flow  *Symbol
	Empty bool
}

func (*InflowEmptinessAxiom) isFormula() {}
func (a *InflowEmptinessAxiom) String() string {
	if a.Empty {
		return a.Flow.SymbolName() + " == {}"
	}
	return a.Flow.SymbolName() + " != {}"
}

// InflowContainsValueAxiom asserts a single value's membership in a flow set.
type InflowContainsValueAxiom struct {
	Flow    *Symbol
	Value   *Symbol
	Negated bool
}

func (*InflowContainsValueAxiom) isFormula() {}
func (a *InflowContainsValueAxiom) String() string {
	op := "in"
	if a.Negated {
		op = "not in"
	}
	return fmt.Sprintf("%s %s %s", a.Value.SymbolName(), op, a.Flow.SymbolName())
}

// InflowContainsRangeAxiom asserts membership of every value within [Low, High]
// in a flow set; used to express sorted-list keyset intervals compactly.
type InflowContainsRangeAxiom struct {
	Flow      *Symbol
	Low, High *Symbol
}

func (*InflowContainsRangeAxiom) isFormula() {}
func (a *InflowContainsRangeAxiom) String() string {
	return fmt.Sprintf("[%s, %s] subseteq %s", a.Low.SymbolName(), a.High.SymbolName(), a.Flow.SymbolName())
}

// ObligationAxiom marks that, by the end of the enclosing interface
// function, a linearization point discharging Kind(Arg) must be found.
type ObligationAxiom struct {
	Kind string // e.g. "contains", "insert", "delete"
	Arg  *Symbol
}

func (*ObligationAxiom) isFormula() {}
func (o *ObligationAxiom) String() string {
	return fmt.Sprintf("obligation(%s, %s)", o.Kind, o.Arg.SymbolName())
}

// FulfillmentAxiom witnesses that an ObligationAxiom of the same Kind/Arg was
// discharged, with Result recording the linearized outcome (e.g. whether a
// `contains` query should report true or false at its linearization point).
type FulfillmentAxiom struct {
	Kind   string
	Arg    *Symbol
	Result *Symbol
}

func (*FulfillmentAxiom) isFormula() {}
func (f *FulfillmentAxiom) String() string {
	return fmt.Sprintf("fulfillment(%s, %s, %s)", f.Kind, f.Arg.SymbolName(), f.Result.SymbolName())
}

// Matches reports whether f discharges obligation o (same kind and argument symbol).
func (f *FulfillmentAxiom) Matches(o *ObligationAxiom) bool {
	return f.Kind == o.Kind && f.Arg == o.Arg
}

// SeparatingConjunction is the separating "and" of zero or more conjuncts.
// An empty conjunction is the separation-logic identity (emp).
type SeparatingConjunction struct {
	Conjuncts []Formula
}

func (*SeparatingConjunction) isFormula() {}
func (c *SeparatingConjunction) String() string {
	if len(c.Conjuncts) == 0 {
		return "emp"
	}
	parts := make([]string, len(c.Conjuncts))
	for i, f := range c.Conjuncts {
		parts[i] = f.String()
	}
	return strings.Join(parts, " * ")
}

// SeparatingImplication is a magic-wand-free implication used only to encode
// configured invariant blueprints ("if this node's shape holds, then ...").
type SeparatingImplication struct {
	Antecedent, Consequent Formula
}

func (*SeparatingImplication) isFormula() {}
func (i *SeparatingImplication) String() string {
	return fmt.Sprintf("(%s) -> (%s)", i.Antecedent.String(), i.Consequent.String())
}

// NegatedAxiom negates a pure (non-resource) formula.
type NegatedAxiom struct {
	Inner Formula
}

func (*NegatedAxiom) isFormula() {}
func (n *NegatedAxiom) String() string { return "!(" + n.Inner.String() + ")" }

// Emp is the empty separating conjunction.
func Emp() *SeparatingConjunction { return &SeparatingConjunction{} }
