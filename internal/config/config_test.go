package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"colaheal/internal/ast"
	"colaheal/internal/encode"
	"colaheal/internal/logic"
)

func TestCatalogHasCanonicalStructures(t *testing.T) {
	for _, name := range []string{"singly_linked_set", "sorted_list", "flow_queue"} {
		assert.True(t, IsKnownStructure(name), name)
		assert.NotNil(t, GetStructureConfig(name), name)
	}
	assert.False(t, IsKnownStructure("not_a_structure"))
}

func TestSortedListLocalInvariantInstantiatesAgainstFreshCell(t *testing.T) {
	cfg := GetStructureConfig("sorted_list")
	require.NotNil(t, cfg)

	factory := logic.NewSymbolFactory()
	cell := logic.MakeLocalMemory(cfg.NodeType, cfg.FlowValueType, factory)
	formula := cfg.LocalNodeInvariant.Instantiate(cell, nil)

	stack, ok := formula.(*logic.StackAxiom)
	require.True(t, ok)
	assert.Equal(t, ast.OpEq, stack.Op)

	sym, ok := stack.Left.(*ast.SymbolicExpr).Sym.(*logic.Symbol)
	require.True(t, ok)
	assert.Same(t, cell.Fields()["next"], sym)
}

func TestSortedListOutflowEntailsFreshlyAllocatedKeyBound(t *testing.T) {
	cfg := GetStructureConfig("sorted_list")
	require.NotNil(t, cfg)

	factory := logic.NewSymbolFactory()
	cell := logic.MakeLocalMemory(cfg.NodeType, cfg.FlowValueType, factory)
	v := factory.Fresh("v", ast.DataType, logic.FirstOrder)

	outflow := cfg.Outflow["next"].Instantiate(cell, v)
	stack, ok := outflow.(*logic.StackAxiom)
	require.True(t, ok)
	assert.Equal(t, ast.OpGt, stack.Op)

	c := encode.NewContext()
	require.NoError(t, c.AddPremise(outflow))
	ok2, err := c.Implies(&logic.StackAxiom{
		Op:    ast.OpGt,
		Left:  &ast.SymbolicExpr{Sym: v},
		Right: &ast.SymbolicExpr{Sym: cell.Fields()["key"]},
	})
	require.NoError(t, err)
	assert.True(t, ok2)
}

func TestLogicallyContainsIsKeyEquality(t *testing.T) {
	cfg := GetStructureConfig("singly_linked_set")
	require.NotNil(t, cfg)

	factory := logic.NewSymbolFactory()
	cell := logic.MakeLocalMemory(cfg.NodeType, cfg.FlowValueType, factory)
	v := cell.Fields()["key"]

	formula := cfg.LogicallyContains.Instantiate(cell, v)
	stack, ok := formula.(*logic.StackAxiom)
	require.True(t, ok)

	left := stack.Left.(*ast.SymbolicExpr).Sym.(*logic.Symbol)
	right := stack.Right.(*ast.SymbolicExpr).Sym.(*logic.Symbol)
	assert.Same(t, v, left)
	assert.Same(t, v, right)
}

func TestOutflowUnconditionalForUnsortedSet(t *testing.T) {
	cfg := GetStructureConfig("singly_linked_set")
	require.NotNil(t, cfg)
	factory := logic.NewSymbolFactory()
	cell := logic.MakeLocalMemory(cfg.NodeType, cfg.FlowValueType, factory)
	v := factory.Fresh("v", ast.DataType, logic.FirstOrder)

	formula := cfg.Outflow["next"].Instantiate(cell, v)
	sc, ok := formula.(*logic.SeparatingConjunction)
	require.True(t, ok)
	assert.Empty(t, sc.Conjuncts)
}

func TestGetCatalogReturnsFreshMapPerCall(t *testing.T) {
	a := GetCatalog()["sorted_list"]
	b := GetCatalog()["sorted_list"]
	assert.NotSame(t, a, b)
	assert.NotSame(t, a.LocalNodeInvariant.Self, b.LocalNodeInvariant.Self)
}
