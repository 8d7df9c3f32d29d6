package normalize

import "colaheal/internal/ast"

// removeConditionalLoops desugars `while e do S` into
// `loop { choice { assume(e); S | assume(not e); break } }`, and
// `do S while e` into `loop { S; choice { assume(e); skip | assume(not e); break } }`.
func removeConditionalLoops(s ast.Stmt) ast.Stmt {
	if s == nil {
		return nil
	}
	switch x := s.(type) {
	case *ast.WhileStmt:
		body := removeConditionalLoops(x.Body)
		return &ast.LoopStmt{Body: whileChoice(x.Cond, body)}
	case *ast.DoWhileStmt:
		body := removeConditionalLoops(x.Body)
		return &ast.LoopStmt{Body: ast.Seq(body, whileChoice(x.Cond, &ast.CmdStmt{Cmd: &ast.SkipCmd{}}))}
	default:
		return mapStmt(s, removeConditionalLoops)
	}
}

func whileChoice(cond ast.Expr, continueBody ast.Stmt) ast.Stmt {
	return &ast.ChoiceStmt{
		Branches: []ast.Stmt{
			ast.Seq(&ast.CmdStmt{Cmd: &ast.AssumeCmd{Cond: cond}}, continueBody),
			ast.Seq(&ast.CmdStmt{Cmd: &ast.AssumeCmd{Cond: ast.NegateExpr(cond)}}, &ast.CmdStmt{Cmd: &ast.BreakCmd{}}),
		},
	}
}
