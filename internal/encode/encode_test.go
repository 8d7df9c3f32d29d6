package encode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"colaheal/internal/ast"
	"colaheal/internal/logic"
)

func sym(f *logic.SymbolFactory, base string, t *ast.Type) *logic.Symbol {
	return f.Fresh(base, t, logic.FirstOrder)
}

func TestStackAxiomEqualityIsSatisfiable(t *testing.T) {
	f := logic.NewSymbolFactory()
	c := NewContext()
	a := sym(f, "a", ast.DataType)
	b := sym(f, "b", ast.DataType)

	err := c.AddPremise(&logic.StackAxiom{
		Op:    ast.OpEq,
		Left:  &ast.SymbolicExpr{Sym: a},
		Right: &ast.SymbolicExpr{Sym: b},
	})
	require.NoError(t, err)
	assert.False(t, c.ImpliesFalse())

	ok, err := c.Implies(&logic.StackAxiom{Op: ast.OpLeq, Left: &ast.SymbolicExpr{Sym: a}, Right: &ast.SymbolicExpr{Sym: b}})
	require.NoError(t, err)
	assert.True(t, ok, "a == b should entail a <= b")
}

func TestStackAxiomStrictOrderIsContradictory(t *testing.T) {
	f := logic.NewSymbolFactory()
	c := NewContext()
	a := sym(f, "a", ast.DataType)
	b := sym(f, "b", ast.DataType)

	require.NoError(t, c.AddPremise(&logic.StackAxiom{Op: ast.OpLt, Left: &ast.SymbolicExpr{Sym: a}, Right: &ast.SymbolicExpr{Sym: b}}))
	require.NoError(t, c.AddPremise(&logic.StackAxiom{Op: ast.OpLt, Left: &ast.SymbolicExpr{Sym: b}, Right: &ast.SymbolicExpr{Sym: a}}))

	assert.True(t, c.ImpliesFalse(), "a<b and b<a together must be unsatisfiable")
}

func TestPointerDisequalityDoesNotImplyEquality(t *testing.T) {
	f := logic.NewSymbolFactory()
	c := NewContext()
	nodeType := ast.PointerTo("Node", map[string]*ast.Type{"val": ast.DataType})
	p := sym(f, "p", nodeType)
	q := sym(f, "q", nodeType)

	require.NoError(t, c.AddPremise(&logic.StackAxiom{Op: ast.OpNeq, Left: &ast.SymbolicExpr{Sym: p}, Right: &ast.SymbolicExpr{Sym: q}}))

	ok, err := c.Implies(&logic.StackAxiom{Op: ast.OpEq, Left: &ast.SymbolicExpr{Sym: p}, Right: &ast.SymbolicExpr{Sym: q}})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestImpliesIsNullAndNonNull(t *testing.T) {
	f := logic.NewSymbolFactory()
	c := NewContext()
	nodeType := ast.PointerTo("Node", nil)
	p := sym(f, "p", nodeType)

	require.NoError(t, c.AddPremise(&logic.StackAxiom{Op: ast.OpEq, Left: &ast.SymbolicExpr{Sym: p}, Right: &ast.NullExpr{}}))

	assert.True(t, c.ImpliesIsNull(p))
	assert.False(t, c.ImpliesIsNonNull(p))
}

func TestInflowMembershipRoundTrips(t *testing.T) {
	f := logic.NewSymbolFactory()
	c := NewContext()
	flow := f.Fresh("inflow", ast.DataType, logic.SecondOrder)
	v := sym(f, "v", ast.DataType)

	require.NoError(t, c.AddPremise(&logic.InflowContainsValueAxiom{Flow: flow, Value: v}))

	ok, err := c.Implies(&logic.InflowContainsValueAxiom{Flow: flow, Value: v})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestInflowEmptinessContradictsMembership(t *testing.T) {
	f := logic.NewSymbolFactory()
	c := NewContext()
	flow := f.Fresh("inflow", ast.DataType, logic.SecondOrder)
	v := sym(f, "v", ast.DataType)

	require.NoError(t, c.AddPremise(&logic.InflowContainsValueAxiom{Flow: flow, Value: v}))
	require.NoError(t, c.AddPremise(&logic.InflowEmptinessAxiom{Flow: flow, Empty: true}))

	assert.True(t, c.ImpliesFalse())
}

func TestPushPopDiscardsAssertion(t *testing.T) {
	f := logic.NewSymbolFactory()
	c := NewContext()
	a := sym(f, "a", ast.DataType)
	b := sym(f, "b", ast.DataType)

	c.Push()
	require.NoError(t, c.AddPremise(&logic.StackAxiom{Op: ast.OpLt, Left: &ast.SymbolicExpr{Sym: a}, Right: &ast.SymbolicExpr{Sym: b}}))
	require.NoError(t, c.AddPremise(&logic.StackAxiom{Op: ast.OpLt, Left: &ast.SymbolicExpr{Sym: b}, Right: &ast.SymbolicExpr{Sym: a}}))
	assert.True(t, c.ImpliesFalse())
	c.Pop()

	assert.False(t, c.ImpliesFalse(), "popping the contradictory frame should restore satisfiability")
}

func TestSeparatingImplicationAssertsShapeProperty(t *testing.T) {
	f := logic.NewSymbolFactory()
	c := NewContext()
	a := sym(f, "a", ast.DataType)
	b := sym(f, "b", ast.DataType)
	g := sym(f, "g", ast.DataType)

	imp := &logic.SeparatingImplication{
		Antecedent: &logic.StackAxiom{Op: ast.OpEq, Left: &ast.SymbolicExpr{Sym: a}, Right: &ast.SymbolicExpr{Sym: g}},
		Consequent: &logic.StackAxiom{Op: ast.OpLeq, Left: &ast.SymbolicExpr{Sym: b}, Right: &ast.SymbolicExpr{Sym: g}},
	}
	require.NoError(t, c.AddPremise(imp))
	require.NoError(t, c.AddPremise(&logic.StackAxiom{Op: ast.OpEq, Left: &ast.SymbolicExpr{Sym: a}, Right: &ast.SymbolicExpr{Sym: g}}))

	ok, err := c.Implies(&logic.StackAxiom{Op: ast.OpLeq, Left: &ast.SymbolicExpr{Sym: b}, Right: &ast.SymbolicExpr{Sym: g}})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestComputeImpliedFiltersCandidates(t *testing.T) {
	f := logic.NewSymbolFactory()
	c := NewContext()
	a := sym(f, "a", ast.DataType)
	b := sym(f, "b", ast.DataType)
	x := sym(f, "x", ast.DataType)

	require.NoError(t, c.AddPremise(&logic.StackAxiom{Op: ast.OpEq, Left: &ast.SymbolicExpr{Sym: a}, Right: &ast.SymbolicExpr{Sym: b}}))

	candidates := []logic.Formula{
		&logic.StackAxiom{Op: ast.OpLeq, Left: &ast.SymbolicExpr{Sym: a}, Right: &ast.SymbolicExpr{Sym: b}},
		&logic.StackAxiom{Op: ast.OpLt, Left: &ast.SymbolicExpr{Sym: a}, Right: &ast.SymbolicExpr{Sym: x}},
	}
	implied, err := c.ComputeImplied(candidates)
	require.NoError(t, err)
	require.Len(t, implied, 1)
	assert.Same(t, candidates[0], implied[0])
}

func TestSolverErrorReportsPremiseDepth(t *testing.T) {
	c := NewContext()
	c.Push()
	c.Push()

	err := c.solverError(ast.Position{})
	assert.ErrorContains(t, err, "premise depth 3")
}
