package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"colaheal/internal/ast"
)

func TestRemoveConditionalBranchingProducesChoice(t *testing.T) {
	x := &ast.VarDecl{Name: "x", Type: ast.DataType}
	ifs := &ast.IfStmt{
		Cond: &ast.BinaryExpr{Op: ast.OpLt, Left: &ast.VarExpr{Decl: x}, Right: &ast.MaxExpr{}},
		Then: &ast.CmdStmt{Cmd: &ast.AssignCmd{Lhs: x, Rhs: &ast.BoolExpr{Value: true}}},
	}

	out := removeConditionalBranching(ifs)
	choice, ok := out.(*ast.ChoiceStmt)
	require.True(t, ok)
	require.Len(t, choice.Branches, 2)

	firstAssume := firstCmd(t, choice.Branches[0]).(*ast.AssumeCmd)
	assert.Equal(t, "x < MAX", firstAssume.Cond.String())

	secondAssume := firstCmd(t, choice.Branches[1]).(*ast.AssumeCmd)
	assert.Equal(t, "x >= MAX", secondAssume.Cond.String())
}

func TestSimplifyReturnsLiftsNonTrivialBoolean(t *testing.T) {
	x := &ast.VarDecl{Name: "x", Type: ast.DataType}
	ret := &ast.CmdStmt{Cmd: &ast.ReturnCmd{Value: &ast.BinaryExpr{Op: ast.OpEq, Left: &ast.VarExpr{Decl: x}, Right: &ast.MinExpr{}}}}

	out := simplifyReturns(ret, ast.BoolType)
	ifs, ok := out.(*ast.IfStmt)
	require.True(t, ok)
	thenRet := firstCmd(t, ifs.Then).(*ast.ReturnCmd)
	assert.Equal(t, "true", thenRet.Value.String())
	elseRet := firstCmd(t, ifs.Else).(*ast.ReturnCmd)
	assert.Equal(t, "false", elseRet.Value.String())
}

func TestSimplifyReturnsKeepsTrivialReturn(t *testing.T) {
	x := &ast.VarDecl{Name: "x", Type: ast.BoolType}
	ret := &ast.CmdStmt{Cmd: &ast.ReturnCmd{Value: &ast.VarExpr{Decl: x}}}

	out := simplifyReturns(ret, ast.BoolType)
	_, isCmd := out.(*ast.CmdStmt)
	assert.True(t, isCmd)
}

func TestRemoveCASExpandsToAtomicChoice(t *testing.T) {
	node := &ast.VarDecl{Name: "n", Type: ast.PointerTo("Node", map[string]*ast.Type{"next": ast.PointerTo("Node", nil)})}
	dst := &ast.DerefExpr{Target: &ast.VarExpr{Decl: node}, Field: "next"}
	result := &ast.VarDecl{Name: "ok", Type: ast.BoolType}
	cas := &ast.CmdStmt{Cmd: &ast.CASCmd{
		Dst:    []*ast.DerefExpr{dst},
		Cmp:    []ast.Expr{&ast.NullExpr{}},
		Src:    []ast.Expr{&ast.VarExpr{Decl: node}},
		Result: result,
	}}

	out := removeCAS(cas)
	atomic, ok := out.(*ast.AtomicStmt)
	require.True(t, ok)
	choice, ok := atomic.Body.(*ast.ChoiceStmt)
	require.True(t, ok)
	require.Len(t, choice.Branches, 2)
}

func TestRemoveConditionalLoopsDesugarsWhile(t *testing.T) {
	cond := &ast.BoolExpr{Value: true}
	body := &ast.CmdStmt{Cmd: &ast.SkipCmd{}}
	while := &ast.WhileStmt{Cond: cond, Body: body}

	out := removeConditionalLoops(while)
	loop, ok := out.(*ast.LoopStmt)
	require.True(t, ok)
	choice, ok := loop.Body.(*ast.ChoiceStmt)
	require.True(t, ok)
	require.Len(t, choice.Branches, 2)
	_, isBreak := lastCmd(t, choice.Branches[1]).(*ast.BreakCmd)
	assert.True(t, isBreak)
}

func TestRemoveUselessScopesSplicesEmptyScope(t *testing.T) {
	inner := &ast.ScopeStmt{Body: &ast.CmdStmt{Cmd: &ast.SkipCmd{}}}
	out, err := removeUselessScopes(inner, ast.Position{})
	require.NoError(t, err)
	_, isCmd := out.(*ast.CmdStmt)
	assert.True(t, isCmd)
}

func TestRemoveUselessScopesKeepsDeclaringScope(t *testing.T) {
	v := &ast.VarDecl{Name: "x", Type: ast.DataType}
	scope := &ast.ScopeStmt{Decls: []*ast.VarDecl{v}, Body: &ast.CmdStmt{Cmd: &ast.SkipCmd{}}}
	out, err := removeUselessScopes(scope, ast.Position{})
	require.NoError(t, err)
	s, ok := out.(*ast.ScopeStmt)
	require.True(t, ok)
	assert.Len(t, s.Decls, 1)
}

func TestRemoveUselessScopesKeepsAtomicBoundaryEvenEmpty(t *testing.T) {
	empty := &ast.ScopeStmt{Body: &ast.CmdStmt{Cmd: &ast.SkipCmd{}}}
	atomic := &ast.AtomicStmt{Body: empty}
	out, err := removeUselessScopes(atomic, ast.Position{})
	require.NoError(t, err)
	a, ok := out.(*ast.AtomicStmt)
	require.True(t, ok)
	_, isScope := a.Body.(*ast.ScopeStmt)
	assert.True(t, isScope)
}

func TestRenameVariablesResolvesShadowFromInlining(t *testing.T) {
	outerX := &ast.VarDecl{Name: "x", Type: ast.DataType}
	innerX := &ast.VarDecl{Name: "x", Type: ast.DataType}

	body := &ast.ScopeStmt{
		Decls: []*ast.VarDecl{outerX},
		Body: &ast.ScopeStmt{
			Decls: []*ast.VarDecl{innerX},
			Body:  &ast.CmdStmt{Cmd: &ast.AssignCmd{Lhs: innerX, Rhs: &ast.VarExpr{Decl: innerX}}},
		},
	}

	out, err := renameVariables(body)
	require.NoError(t, err)

	outerScope := out.(*ast.ScopeStmt)
	innerScope := outerScope.Body.(*ast.ScopeStmt)
	assert.NotEqual(t, "x", innerScope.Decls[0].Name)
	assign := firstCmd(t, innerScope.Body).(*ast.AssignCmd)
	assert.Same(t, innerScope.Decls[0], assign.Lhs)
}

func TestProgramNormalizesEveryFunction(t *testing.T) {
	x := &ast.VarDecl{Name: "x", Type: ast.BoolType}
	fn := &ast.Function{
		Kind: ast.FunctionInterface,
		Name: "probe",
		Body: &ast.CmdStmt{Cmd: &ast.ReturnCmd{Value: &ast.BinaryExpr{Op: ast.OpEq, Left: &ast.VarExpr{Decl: x}, Right: &ast.BoolExpr{Value: true}}}},
		Returns: ast.BoolType,
	}
	prog := &ast.Program{Functions: []*ast.Function{fn}}

	out, err := Program(prog)
	require.NoError(t, err)
	_, isChoice := out.Functions[0].Body.(*ast.ChoiceStmt)
	assert.True(t, isChoice)
}

func firstCmd(t *testing.T, s ast.Stmt) ast.Command {
	t.Helper()
	for {
		switch x := s.(type) {
		case *ast.CmdStmt:
			return x.Cmd
		case *ast.SeqStmt:
			s = x.First
		default:
			t.Fatalf("expected a command reachable from %T", s)
			return nil
		}
	}
}

func lastCmd(t *testing.T, s ast.Stmt) ast.Command {
	t.Helper()
	for {
		switch x := s.(type) {
		case *ast.CmdStmt:
			return x.Cmd
		case *ast.SeqStmt:
			s = x.Second
		default:
			t.Fatalf("expected a command reachable from %T", s)
			return nil
		}
	}
}
