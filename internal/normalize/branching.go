package normalize

import "colaheal/internal/ast"

// removeConditionalBranching rewrites every IfStmt into a two-branch
// ChoiceStmt guarded by assume(e) / assume(not e), using ast.NegateExpr for
// the structural negation (De Morgan, comparison flip, double-negation
// elimination, literal inversion) the component design calls for.
func removeConditionalBranching(s ast.Stmt) ast.Stmt {
	if s == nil {
		return nil
	}
	if ifs, ok := s.(*ast.IfStmt); ok {
		then := removeConditionalBranching(ifs.Then)
		elseBranch := ifs.Else
		if elseBranch == nil {
			elseBranch = &ast.CmdStmt{Cmd: &ast.SkipCmd{}}
		}
		elseBranch = removeConditionalBranching(elseBranch)
		return &ast.ChoiceStmt{
			Branches: []ast.Stmt{
				ast.Seq(&ast.CmdStmt{Cmd: &ast.AssumeCmd{Cond: ifs.Cond}}, then),
				ast.Seq(&ast.CmdStmt{Cmd: &ast.AssumeCmd{Cond: ast.NegateExpr(ifs.Cond)}}, elseBranch),
			},
		}
	}
	return mapStmt(s, removeConditionalBranching)
}
