package verify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"colaheal/internal/ast"
	"colaheal/internal/config"
	"colaheal/internal/logic"
)

func newDriver(t *testing.T, prog *ast.Program) *Driver {
	cfg := config.GetStructureConfig("singly_linked_set")
	require.NotNil(t, cfg)
	return NewDriver(prog, cfg, nil)
}

func startAnnotation() *logic.Annotation {
	return logic.NewAnnotation(logic.Emp())
}

func contains(name string) *ast.Function {
	// contains(v) { return true; } - a trivial interface function with no
	// heap access, just enough to exercise execStmt's Return path.
	return &ast.Function{
		Name:    name,
		Kind:    ast.FunctionInterface,
		Returns: ast.BoolType,
		Body:    &ast.CmdStmt{Cmd: &ast.ReturnCmd{Value: &ast.BoolExpr{Value: true}}},
	}
}

func TestVerifyAllReturnsLinearizableForTrivialFunction(t *testing.T) {
	prog := &ast.Program{Functions: []*ast.Function{contains("contains")}}
	d := newDriver(t, prog)

	results, err := d.VerifyAll()
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, Linearizable, results[0].Verdict)
	assert.Equal(t, 0, results[0].Verdict.ExitCode(nil))
}

func TestExecLoopExitsImmediatelyOnUnconditionalBreak(t *testing.T) {
	prog := &ast.Program{}
	d := newDriver(t, prog)

	loop := &ast.LoopStmt{Body: &ast.CmdStmt{Cmd: &ast.BreakCmd{}}}

	img, err := d.execStmt(startAnnotation(), loop)
	require.NoError(t, err)
	require.Len(t, img.Successors, 1)
	assert.Equal(t, 0, int(img.Successors[0].Signal)) // SigNormal
}

func TestExecLoopStabilizesWhenBodyAlwaysBreaks(t *testing.T) {
	prog := &ast.Program{}
	d := newDriver(t, prog)

	x := &ast.VarDecl{Name: "x", Type: ast.DataType}
	// loop { x := x; break; } - the body always breaks, so the fixed point
	// is reached on the very first round: no continuation candidate is ever
	// produced, let alone widened.
	loop := &ast.LoopStmt{Body: ast.Seq(
		&ast.CmdStmt{Cmd: &ast.AssignCmd{Lhs: x, Rhs: &ast.VarExpr{Decl: x}}},
		&ast.CmdStmt{Cmd: &ast.BreakCmd{}},
	)}

	entered, err := d.Engine.PostEnterScope(startAnnotation(), []*ast.VarDecl{x}, ast.Position{})
	require.NoError(t, err)

	img, err := d.execStmt(entered, loop)
	require.NoError(t, err)
	require.Len(t, img.Successors, 1)
}

func TestVerificationErrorMapsToNonFatalExitCode(t *testing.T) {
	prog := &ast.Program{}
	d := newDriver(t, prog)
	fn := contains("broken")
	// A body that reads an unbound variable must surface as a
	// VERIFICATION-ERROR, never a LINEARIZABLE/NOT-LINEARIZABLE verdict.
	unbound := &ast.VarDecl{Name: "unbound", Type: ast.DataType}
	fn.Body = &ast.CmdStmt{Cmd: &ast.AssignCmd{Lhs: unbound, Rhs: &ast.VarExpr{Decl: unbound}}}
	prog.Functions = []*ast.Function{fn}

	results, err := d.VerifyAll()
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, VerificationError, results[0].Verdict)
	assert.NotNil(t, results[0].Err)
	assert.Equal(t, 2, results[0].Verdict.ExitCode(results[0].Err))
}
