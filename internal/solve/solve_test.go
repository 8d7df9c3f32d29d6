package solve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"colaheal/internal/ast"
	"colaheal/internal/config"
	"colaheal/internal/logic"
)

func newEngine(t *testing.T, structure string) (*Engine, *config.StructureConfig) {
	cfg := config.GetStructureConfig(structure)
	require.NotNil(t, cfg)
	return NewEngine(&ast.Program{}, cfg, logic.NewSymbolFactory()), cfg
}

func TestPostMallocSatisfiesLocalInvariant(t *testing.T) {
	e, cfg := newEngine(t, "singly_linked_set")
	pre := logic.NewAnnotation(logic.Emp())
	n := &ast.VarDecl{Name: "n", Type: cfg.NodeType}
	pre.Now = logic.Conjoin(pre.Now, &logic.EqualsToAxiom{Var: n, Value: e.Factory.Fresh("nPre", cfg.NodeType, logic.FirstOrder)})

	img, err := e.Post(pre, &ast.MallocCmd{Lhs: n})
	require.NoError(t, err)
	require.Len(t, img.Successors, 1)

	sym, ok := lookupVar(img.Successors[0].Annotation.Now, n)
	require.True(t, ok)
	m := lookupMemory(img.Successors[0].Annotation.Now, sym)
	require.NotNil(t, m)
	assert.False(t, m.Shared())
}

func TestPostMallocOnSharedVariableRejected(t *testing.T) {
	e, cfg := newEngine(t, "singly_linked_set")
	pre := logic.NewAnnotation(logic.Emp())
	n := &ast.VarDecl{Name: "n", Type: cfg.NodeType, IsShared: true}
	pre.Now = logic.Conjoin(pre.Now, &logic.EqualsToAxiom{Var: n, Value: e.Factory.Fresh("nPre", cfg.NodeType, logic.FirstOrder)})

	_, err := e.Post(pre, &ast.MallocCmd{Lhs: n})
	assert.Error(t, err)
}

func TestPostAssignRebindsVariable(t *testing.T) {
	e, _ := newEngine(t, "singly_linked_set")
	x := &ast.VarDecl{Name: "x", Type: ast.DataType}
	orig := e.Factory.Fresh("x0", ast.DataType, logic.FirstOrder)
	pre := logic.NewAnnotation(&logic.EqualsToAxiom{Var: x, Value: orig})

	img, err := e.Post(pre, &ast.AssignCmd{Lhs: x, Rhs: &ast.MinExpr{}})
	require.NoError(t, err)
	require.Len(t, img.Successors, 1)

	sym, ok := lookupVar(img.Successors[0].Annotation.Now, x)
	require.True(t, ok)
	assert.NotSame(t, orig, sym)
}

func TestPostAccessFailsWithoutBoundVariable(t *testing.T) {
	e, _ := newEngine(t, "singly_linked_set")
	x := &ast.VarDecl{Name: "x", Type: ast.DataType}
	pre := logic.NewAnnotation(logic.Emp())

	_, err := e.Post(pre, &ast.AssignCmd{Lhs: x, Rhs: &ast.BoolExpr{Value: true}})
	assert.Error(t, err)
}

func TestPostMemWriteOnSharedCellRecordsHeapEffect(t *testing.T) {
	e, cfg := newEngine(t, "singly_linked_set")
	factory := e.Factory
	shared := logic.MakeSharedMemory(cfg.NodeType, cfg.FlowValueType, factory)
	p := &ast.VarDecl{Name: "p", Type: cfg.NodeType}
	v := &ast.VarDecl{Name: "v", Type: ast.DataType}
	vVal := factory.Fresh("v0", ast.DataType, logic.FirstOrder)
	pre := logic.NewAnnotation(logic.Conjoin(
		shared,
		&logic.EqualsToAxiom{Var: p, Value: shared.NodeSym},
		&logic.EqualsToAxiom{Var: v, Value: vVal},
	))

	cmd := &ast.MemWriteCmd{
		Lhs: []*ast.DerefExpr{{Target: &ast.VarExpr{Decl: p}, Field: "key", Type: ast.DataType}},
		Rhs: []ast.Expr{&ast.VarExpr{Decl: v}},
	}
	img, err := e.Post(pre, cmd)
	require.NoError(t, err)
	require.Len(t, img.Effects, 1)
	assert.Equal(t, "key", img.Effects[0].Field)
	assert.Same(t, vVal, img.Effects[0].After)
}

func TestPostMemWriteOnLocalCellRecordsNoHeapEffect(t *testing.T) {
	e, cfg := newEngine(t, "singly_linked_set")
	factory := e.Factory
	local := logic.MakeLocalMemory(cfg.NodeType, cfg.FlowValueType, factory)
	p := &ast.VarDecl{Name: "p", Type: cfg.NodeType}
	v := &ast.VarDecl{Name: "v", Type: ast.DataType}
	pre := logic.NewAnnotation(logic.Conjoin(
		local,
		&logic.EqualsToAxiom{Var: p, Value: local.NodeSym},
		&logic.EqualsToAxiom{Var: v, Value: factory.Fresh("v0", ast.DataType, logic.FirstOrder)},
	))

	cmd := &ast.MemWriteCmd{
		Lhs: []*ast.DerefExpr{{Target: &ast.VarExpr{Decl: p}, Field: "key", Type: ast.DataType}},
		Rhs: []ast.Expr{&ast.VarExpr{Decl: v}},
	}
	img, err := e.Post(pre, cmd)
	require.NoError(t, err)
	assert.Empty(t, img.Effects)
}

func TestMakeMemoryAccessibleConjuresSharedResourceForUnbackedPointer(t *testing.T) {
	e, cfg := newEngine(t, "singly_linked_set")
	p := &ast.VarDecl{Name: "p", Type: cfg.NodeType}
	addr := e.Factory.Fresh("p0", cfg.NodeType, logic.FirstOrder)
	pre := logic.NewAnnotation(&logic.EqualsToAxiom{Var: p, Value: addr})

	cmd := &ast.MemReadCmd{
		Lhs: []*ast.VarDecl{{Name: "k", Type: ast.DataType}},
		Rhs: []*ast.DerefExpr{{Target: &ast.VarExpr{Decl: p}, Field: "key", Type: ast.DataType}},
	}
	require.NoError(t, e.MakeMemoryAccessible(pre, cmd))
	assert.NotNil(t, lookupMemory(pre.Now, addr))
}

func TestPostEnterScopeRejectsNameCollision(t *testing.T) {
	e, _ := newEngine(t, "singly_linked_set")
	x := &ast.VarDecl{Name: "x", Type: ast.DataType}
	pre := logic.NewAnnotation(&logic.EqualsToAxiom{Var: x, Value: e.Factory.Fresh("x0", ast.DataType, logic.FirstOrder)})

	shadow := &ast.VarDecl{Name: "x", Type: ast.DataType}
	_, err := e.PostEnterScope(pre, []*ast.VarDecl{shadow}, ast.Position{})
	assert.Error(t, err)
}

func TestPostEnterLeaveScopeRoundTrips(t *testing.T) {
	e, _ := newEngine(t, "singly_linked_set")
	pre := logic.NewAnnotation(logic.Emp())
	tmp := &ast.VarDecl{Name: "tmp", Type: ast.DataType}

	entered, err := e.PostEnterScope(pre, []*ast.VarDecl{tmp}, ast.Position{})
	require.NoError(t, err)
	_, ok := lookupVar(entered.Now, tmp)
	assert.True(t, ok)

	left, err := e.PostLeaveScope(entered, []*ast.VarDecl{tmp}, ast.Position{})
	require.NoError(t, err)
	_, ok = lookupVar(left.Now, tmp)
	assert.False(t, ok)
}

func TestPostLeaveScopeRejectsLeakedLocalMemory(t *testing.T) {
	e, cfg := newEngine(t, "singly_linked_set")
	p := &ast.VarDecl{Name: "p", Type: cfg.NodeType}
	pre := logic.NewAnnotation(logic.Emp())

	entered, err := e.PostEnterScope(pre, []*ast.VarDecl{p}, ast.Position{})
	require.NoError(t, err)
	sym, ok := lookupVar(entered.Now, p)
	require.True(t, ok)

	cell := logic.MakeLocalMemory(cfg.NodeType, cfg.FlowValueType, e.Factory)
	cell.NodeSym = sym
	entered.Now = logic.Conjoin(entered.Now, cell)

	_, err = e.PostLeaveScope(entered, []*ast.VarDecl{p}, ast.Position{})
	assert.Error(t, err, "p leaves scope as the only name addressing cell, which must be reported as a leak")
}

func TestPostStmtSequencesAndShortCircuitsOnBreak(t *testing.T) {
	e, _ := newEngine(t, "singly_linked_set")
	x := &ast.VarDecl{Name: "x", Type: ast.DataType}
	pre := logic.NewAnnotation(&logic.EqualsToAxiom{Var: x, Value: e.Factory.Fresh("x0", ast.DataType, logic.FirstOrder)})

	seq := &ast.SeqStmt{
		First:  &ast.CmdStmt{Cmd: &ast.BreakCmd{}},
		Second: &ast.CmdStmt{Cmd: &ast.AssignCmd{Lhs: x, Rhs: &ast.BoolExpr{Value: true}}},
	}
	img, err := e.PostStmt(pre, seq)
	require.NoError(t, err)
	require.Len(t, img.Successors, 1)
	assert.Equal(t, SigBreak, img.Successors[0].Signal)
}

func TestPostLoopStepTurnsBreakIntoNormalExit(t *testing.T) {
	e, _ := newEngine(t, "singly_linked_set")
	pre := logic.NewAnnotation(logic.Emp())
	loop := &ast.LoopStmt{Body: &ast.CmdStmt{Cmd: &ast.BreakCmd{}}}

	img, err := e.PostStmt(pre, loop)
	require.NoError(t, err)
	require.Len(t, img.Successors, 1)
	assert.Equal(t, SigNormal, img.Successors[0].Signal)
}

func TestPostChoiceUnionsBothBranches(t *testing.T) {
	e, _ := newEngine(t, "singly_linked_set")
	pre := logic.NewAnnotation(logic.Emp())
	choice := &ast.ChoiceStmt{Branches: []ast.Stmt{
		&ast.CmdStmt{Cmd: &ast.SkipCmd{}},
		&ast.CmdStmt{Cmd: &ast.BreakCmd{}},
	}}

	img, err := e.PostStmt(pre, choice)
	require.NoError(t, err)
	assert.Len(t, img.Successors, 2)
}

func TestWidenKeepsSharedResourceReachableFromStack(t *testing.T) {
	e, cfg := newEngine(t, "singly_linked_set")
	shared := logic.MakeSharedMemory(cfg.NodeType, cfg.FlowValueType, e.Factory)
	p := &ast.VarDecl{Name: "p", Type: cfg.NodeType}
	ann := logic.NewAnnotation(logic.Conjoin(shared, &logic.EqualsToAxiom{Var: p, Value: shared.NodeSym}))

	widened, err := e.Widen(ann)
	require.NoError(t, err)
	assert.NotNil(t, lookupMemory(widened.Now, shared.NodeSym))
}

func TestWidenDropsUnreachableSharedResource(t *testing.T) {
	e, cfg := newEngine(t, "singly_linked_set")
	shared := logic.MakeSharedMemory(cfg.NodeType, cfg.FlowValueType, e.Factory)
	ann := logic.NewAnnotation(logic.Conjoin(shared))

	widened, err := e.Widen(ann)
	require.NoError(t, err)
	assert.Nil(t, lookupMemory(widened.Now, shared.NodeSym))
}

func TestJoinOfSingleAnnotationReturnsCopy(t *testing.T) {
	e, _ := newEngine(t, "singly_linked_set")
	x := &ast.VarDecl{Name: "x", Type: ast.DataType}
	ann := logic.NewAnnotation(&logic.EqualsToAxiom{Var: x, Value: e.Factory.Fresh("x0", ast.DataType, logic.FirstOrder)})

	joined, err := e.Join([]*logic.Annotation{ann})
	require.NoError(t, err)
	_, ok := lookupVar(joined.Now, x)
	assert.True(t, ok)
}

func TestJoinIntersectsResourcesAbsentFromOneBranch(t *testing.T) {
	e, cfg := newEngine(t, "singly_linked_set")
	shared := logic.MakeSharedMemory(cfg.NodeType, cfg.FlowValueType, e.Factory)
	p := &ast.VarDecl{Name: "p", Type: cfg.NodeType}

	withResource := logic.NewAnnotation(logic.Conjoin(shared, &logic.EqualsToAxiom{Var: p, Value: shared.NodeSym}))
	withoutResource := logic.NewAnnotation(&logic.EqualsToAxiom{Var: p, Value: shared.NodeSym})

	joined, err := e.Join([]*logic.Annotation{withResource, withoutResource})
	require.NoError(t, err)
	assert.Nil(t, lookupMemory(joined.Now, shared.NodeSym))
	_, ok := lookupVar(joined.Now, p)
	assert.True(t, ok)
}

func TestFulfillmentSearchDischargesObligationAgainstMatchingKey(t *testing.T) {
	e, cfg := newEngine(t, "singly_linked_set")
	shared := logic.MakeSharedMemory(cfg.NodeType, cfg.FlowValueType, e.Factory)
	target := e.Factory.Fresh("target", ast.DataType, logic.FirstOrder)
	ann := logic.NewAnnotation(logic.Conjoin(
		shared,
		&logic.StackAxiom{Op: ast.OpEq, Left: &ast.SymbolicExpr{Sym: target}, Right: &ast.SymbolicExpr{Sym: shared.Fields()["key"]}},
		&logic.ObligationAxiom{Kind: "contains", Arg: target},
	))

	out, err := e.FulfillmentSearch(ann)
	require.NoError(t, err)
	_, undischarged := out.UndischargedObligation()
	assert.False(t, undischarged)
}

func TestFulfillmentSearchLeavesObligationPendingWhenUndetermined(t *testing.T) {
	e, cfg := newEngine(t, "singly_linked_set")
	shared := logic.MakeSharedMemory(cfg.NodeType, cfg.FlowValueType, e.Factory)
	target := e.Factory.Fresh("target", ast.DataType, logic.FirstOrder)
	ann := logic.NewAnnotation(logic.Conjoin(shared, &logic.ObligationAxiom{Kind: "contains", Arg: target}))

	out, err := e.FulfillmentSearch(ann)
	require.NoError(t, err)
	_, undischarged := out.UndischargedObligation()
	assert.True(t, undischarged)
}
