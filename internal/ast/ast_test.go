package ast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypeAssignableTo(t *testing.T) {
	node := PointerTo("Node", map[string]*Type{"next": NullType})

	assert.True(t, DataType.AssignableTo(VoidType), "anything assigns into a void slot")
	assert.True(t, DataType.AssignableTo(DataType))
	assert.False(t, DataType.AssignableTo(BoolType))
	assert.True(t, node.AssignableTo(node))
	assert.True(t, NullType.AssignableTo(node), "null assigns into any pointer type")
	assert.True(t, node.AssignableTo(NullType), "a pointer assigns where null is expected")

	other := PointerTo("Other", nil)
	assert.False(t, node.AssignableTo(other))
}

func TestTypeFieldType(t *testing.T) {
	node := PointerTo("Node", map[string]*Type{"next": NullType, "val": DataType})

	ft, ok := node.FieldType("val")
	require.True(t, ok)
	assert.Equal(t, DataType, ft)

	_, ok = node.FieldType("missing")
	assert.False(t, ok)

	var nilType *Type
	_, ok = nilType.FieldType("val")
	assert.False(t, ok)
}

func TestBinOpFlip(t *testing.T) {
	cases := []struct {
		op       BinOp
		expected BinOp
	}{
		{OpEq, OpNeq},
		{OpNeq, OpEq},
		{OpLt, OpGeq},
		{OpGeq, OpLt},
		{OpLeq, OpGt},
		{OpGt, OpLeq},
	}
	for _, c := range cases {
		flipped, ok := c.op.Flip()
		assert.True(t, ok)
		assert.Equal(t, c.expected, flipped)
	}

	_, ok := OpAnd.Flip()
	assert.False(t, ok, "boolean connectives have no structural flip")
}

func TestBinOpIsComparison(t *testing.T) {
	assert.True(t, OpEq.IsComparison())
	assert.True(t, OpGeq.IsComparison())
	assert.False(t, OpAnd.IsComparison())
	assert.False(t, OpOr.IsComparison())
}

func TestSeqCollapsesSingleStatement(t *testing.T) {
	skip := &CmdStmt{Cmd: &SkipCmd{}}
	assert.Same(t, skip, Seq(skip))

	brk := &CmdStmt{Cmd: &BreakCmd{}}
	result := Seq(skip, brk)
	seq, ok := result.(*SeqStmt)
	require.True(t, ok)
	assert.Same(t, skip, seq.First)
	assert.Same(t, brk, seq.Second)
}

func TestSeqOfNoneIsSkip(t *testing.T) {
	result := Seq()
	cmdStmt, ok := result.(*CmdStmt)
	require.True(t, ok)
	_, ok = cmdStmt.Cmd.(*SkipCmd)
	assert.True(t, ok)
}

func TestVarRefsCollectsInEncounterOrder(t *testing.T) {
	x := &VarDecl{Name: "x", Type: DataType}
	y := &VarDecl{Name: "y", Type: DataType}
	expr := &BinaryExpr{Op: OpEq, Left: &VarExpr{Decl: x}, Right: &VarExpr{Decl: y}}

	refs := VarRefs(expr)
	require.Len(t, refs, 2)
	assert.Same(t, x, refs[0])
	assert.Same(t, y, refs[1])
}

func TestStmtVarRefsWalksNestedAssign(t *testing.T) {
	x := &VarDecl{Name: "x", Type: DataType}
	y := &VarDecl{Name: "y", Type: DataType}
	assign := &CmdStmt{Cmd: &AssignCmd{Lhs: x, Rhs: &VarExpr{Decl: y}}}
	scope := &ScopeStmt{Decls: []*VarDecl{y}, Body: assign}

	refs := StmtVarRefs(scope)
	assert.Contains(t, refs, x)
	assert.Contains(t, refs, y)
}

func TestVisitStmtCoversEveryBranch(t *testing.T) {
	then := &CmdStmt{Cmd: &SkipCmd{}}
	els := &CmdStmt{Cmd: &BreakCmd{}}
	ifStmt := &IfStmt{Then: then, Else: els}
	loop := &LoopStmt{Body: ifStmt}
	choice := &ChoiceStmt{Branches: []Stmt{loop, &CmdStmt{Cmd: &ContinueCmd{}}}}

	var visited []Stmt
	VisitStmt(choice, func(s Stmt) { visited = append(visited, s) })

	assert.Contains(t, visited, then)
	assert.Contains(t, visited, els)
	assert.Contains(t, visited, ifStmt)
	assert.Contains(t, visited, loop)
	assert.Contains(t, visited, choice)
}

func TestVisitStmtNilIsNoop(t *testing.T) {
	calls := 0
	VisitStmt(nil, func(Stmt) { calls++ })
	assert.Equal(t, 0, calls)
}
