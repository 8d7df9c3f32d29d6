package normalize

import "colaheal/internal/ast"

// removeCAS rewrites CAS(<dst>, <cmp>, <src>) into an atomic block: an
// equality test across every dst_i/cmp_i pair, a parallel write of src into
// dst on success (leaving dst untouched on failure), and binding the
// Boolean result if the surface program asked for one. The atomic boundary
// from the source AtomicStmt, if any, is preserved unchanged: remove_cas
// only ever introduces a new AtomicStmt when the CAS appeared bare (the
// language requires every CAS to already be inside one; the pass stays
// defensive all the same).
func removeCAS(s ast.Stmt) ast.Stmt {
	if s == nil {
		return nil
	}
	if atomic, ok := s.(*ast.AtomicStmt); ok {
		return &ast.AtomicStmt{Body: rewriteCASIn(removeCAS(atomic.Body))}
	}
	if cmd, ok := s.(*ast.CmdStmt); ok {
		if cas, ok := cmd.Cmd.(*ast.CASCmd); ok {
			return &ast.AtomicStmt{Body: casBody(cas)}
		}
		return s
	}
	return mapStmt(s, removeCAS)
}

// rewriteCASIn expands any CASCmd still nested within an already-atomic
// body without introducing a redundant inner AtomicStmt.
func rewriteCASIn(s ast.Stmt) ast.Stmt {
	if s == nil {
		return nil
	}
	if cmd, ok := s.(*ast.CmdStmt); ok {
		if cas, ok := cmd.Cmd.(*ast.CASCmd); ok {
			return casBody(cas)
		}
		return s
	}
	return mapStmt(s, rewriteCASIn)
}

func casBody(cas *ast.CASCmd) ast.Stmt {
	var eq ast.Expr = &ast.BoolExpr{Value: true}
	for i := range cas.Dst {
		cmp := &ast.BinaryExpr{Op: ast.OpEq, Left: cas.Dst[i], Right: cas.Cmp[i]}
		eq = &ast.BinaryExpr{Op: ast.OpAnd, Left: eq, Right: cmp}
	}

	success := &ast.MemWriteCmd{Lhs: cas.Dst, Rhs: cas.Src}
	var stmts []ast.Stmt
	if cas.Result != nil {
		stmts = append(stmts, &ast.CmdStmt{Cmd: &ast.AssignCmd{Lhs: cas.Result, Rhs: &ast.BoolExpr{Value: true}}})
	}
	stmts = append(stmts, &ast.CmdStmt{Cmd: success})
	successBranch := ast.Seq(stmts...)

	var failStmts []ast.Stmt
	if cas.Result != nil {
		failStmts = append(failStmts, &ast.CmdStmt{Cmd: &ast.AssignCmd{Lhs: cas.Result, Rhs: &ast.BoolExpr{Value: false}}})
	} else {
		failStmts = append(failStmts, &ast.CmdStmt{Cmd: &ast.SkipCmd{}})
	}
	failBranch := ast.Seq(failStmts...)

	return &ast.ChoiceStmt{
		Branches: []ast.Stmt{
			ast.Seq(&ast.CmdStmt{Cmd: &ast.AssumeCmd{Cond: eq}}, successBranch),
			ast.Seq(&ast.CmdStmt{Cmd: &ast.AssumeCmd{Cond: ast.NegateExpr(eq)}}, failBranch),
		},
	}
}
