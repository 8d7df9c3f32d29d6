package logic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"colaheal/internal/ast"
)

var nodeType = ast.PointerTo("Node", map[string]*ast.Type{
	"next": ast.PointerTo("Node", nil),
	"val":  ast.DataType,
})

func TestSymbolFactoryFreshness(t *testing.T) {
	f := NewSymbolFactory()
	a := f.Fresh("addr", nodeType, FirstOrder)
	b := f.Fresh("addr", nodeType, FirstOrder)
	assert.NotEqual(t, a.ID(), b.ID())
	assert.NotEqual(t, a.SymbolName(), b.SymbolName())
}

func TestMakeLocalMemoryFreshFields(t *testing.T) {
	f := NewSymbolFactory()
	m := MakeLocalMemory(nodeType, ast.DataType, f)

	require.Len(t, m.FieldVals, 2)
	assert.NotEqual(t, m.NodeSym, m.FlowSym)
	assert.NotEqual(t, m.FieldVals["next"], m.FieldVals["val"])
	assert.False(t, m.Shared())
}

func TestMakeSharedMemoryIsShared(t *testing.T) {
	f := NewSymbolFactory()
	m := MakeSharedMemory(nodeType, ast.DataType, f)
	assert.True(t, m.Shared())
}

func TestCollectFindsSymbolsAcrossConjuncts(t *testing.T) {
	f := NewSymbolFactory()
	local := MakeLocalMemory(nodeType, ast.DataType, f)
	obl := &ObligationAxiom{Kind: "contains", Arg: f.Fresh("k", ast.DataType, FirstOrder)}

	now := Conjoin(local, obl)

	syms := Collect[*Symbol](now, nil)
	assert.Contains(t, syms, local.NodeSym)
	assert.Contains(t, syms, obl.Arg)

	axioms := Collect[MemoryAxiom](now, nil)
	require.Len(t, axioms, 1)
	assert.Equal(t, local.NodeSym, axioms[0].Node())
}

func TestCollectWithFilter(t *testing.T) {
	f := NewSymbolFactory()
	a := f.Fresh("a", ast.DataType, FirstOrder)
	b := f.Fresh("b", ast.DataType, SecondOrder)
	now := Conjoin(
		&InflowEmptinessAxiom{Flow: a, Empty: true},
		&InflowEmptinessAxiom{Flow: b, Empty: false},
	)
	secondOrderOnly := Collect[*Symbol](now, func(s *Symbol) bool { return s.Order == SecondOrder })
	require.Len(t, secondOrderOnly, 1)
	assert.Equal(t, b, secondOrderOnly[0])
}

func TestSyntacticallyContains(t *testing.T) {
	f := NewSymbolFactory()
	flow := f.Fresh("flow", ast.DataType, SecondOrder)
	now := Conjoin(&InflowEmptinessAxiom{Flow: flow, Empty: true})

	assert.True(t, SyntacticallyContains(now, &InflowEmptinessAxiom{Flow: flow, Empty: true}))
	assert.False(t, SyntacticallyContains(now, &InflowEmptinessAxiom{Flow: flow, Empty: false}))
}

func TestCopyIsIndependent(t *testing.T) {
	f := NewSymbolFactory()
	local := MakeLocalMemory(nodeType, ast.DataType, f)
	now := Conjoin(local)

	dup := Copy(now)
	dupConj, ok := dup.(*SeparatingConjunction)
	require.True(t, ok)
	dupMem := dupConj.Conjuncts[0].(*LocalMemoryResource)
	dupMem.SetField("val", f.Fresh("other", ast.DataType, FirstOrder))

	assert.NotEqual(t, local.FieldVals["val"], dupMem.FieldVals["val"])
	assert.Equal(t, local.NodeSym, dupMem.NodeSym)
}

func TestReplaceSubstitutesSymbol(t *testing.T) {
	f := NewSymbolFactory()
	old := f.Fresh("x", ast.DataType, FirstOrder)
	fresh := f.Fresh("y", ast.DataType, FirstOrder)
	now := Conjoin(&InflowEmptinessAxiom{Flow: old, Empty: true})

	replaced := Replace(now, old, fresh)
	syms := Collect[*Symbol](replaced, nil)
	assert.Contains(t, syms, fresh)
	assert.NotContains(t, syms, old)
}

func TestMakeMemoryRenamingMapsCorrespondingFields(t *testing.T) {
	f := NewSymbolFactory()
	a := MakeLocalMemory(nodeType, ast.DataType, f)
	b := MakeLocalMemory(nodeType, ast.DataType, f)

	rename := MakeMemoryRenaming(a, b)
	assert.Equal(t, b.Node(), rename(a.Node()))
	assert.Equal(t, b.Flow(), rename(a.Flow()))
	assert.Equal(t, b.FieldVals["next"], rename(a.FieldVals["next"]))

	other := f.Fresh("unrelated", ast.DataType, FirstOrder)
	assert.Equal(t, other, rename(other))
}

func TestMakeDefaultRenamingMemoizes(t *testing.T) {
	f := NewSymbolFactory()
	rename := MakeDefaultRenaming(f)
	v := &ast.VarDecl{Name: "x", Type: ast.DataType}

	r1 := rename(v)
	r2 := rename(v)
	assert.Same(t, r1, r2)
	assert.NotSame(t, v, r1)
	assert.Equal(t, v.Name, r1.Name)
}

func TestAnnotationUndischargedObligation(t *testing.T) {
	f := NewSymbolFactory()
	arg := f.Fresh("k", ast.DataType, FirstOrder)
	ob := &ObligationAxiom{Kind: "contains", Arg: arg}

	ann := NewAnnotation(Conjoin(ob))
	missing, ok := ann.UndischargedObligation()
	require.True(t, ok)
	assert.Equal(t, ob, missing)

	fulfilled := NewAnnotation(Conjoin(ob, &FulfillmentAxiom{Kind: "contains", Arg: arg, Result: f.Fresh("r", ast.BoolType, FirstOrder)}))
	_, ok = fulfilled.UndischargedObligation()
	assert.False(t, ok)
}

func TestEqualsToAxiomValid(t *testing.T) {
	f := NewSymbolFactory()
	ptrVar := &ast.VarDecl{Name: "head", Type: nodeType}
	ptrSym := f.Fresh("head", nodeType, FirstOrder)
	dataSym := f.Fresh("bad", ast.DataType, FirstOrder)

	assert.True(t, (&EqualsToAxiom{Var: ptrVar, Value: ptrSym}).Valid())
	assert.False(t, (&EqualsToAxiom{Var: ptrVar, Value: dataSym}).Valid())
}

func TestEmpStringIsEmp(t *testing.T) {
	assert.Equal(t, "emp", Emp().String())
}

func TestConjoinFlattensNestedConjunctions(t *testing.T) {
	f := NewSymbolFactory()
	inner := Conjoin(&InflowEmptinessAxiom{Flow: f.Fresh("a", ast.DataType, SecondOrder), Empty: true})
	outer := Conjoin(inner, &InflowEmptinessAxiom{Flow: f.Fresh("b", ast.DataType, SecondOrder), Empty: true})
	assert.Len(t, outer.Conjuncts, 2)
}
