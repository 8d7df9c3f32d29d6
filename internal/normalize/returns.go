package normalize

import "colaheal/internal/ast"

// simplifyReturns rewrites `return e` into `if e then return true else
// return false` whenever e is a non-trivial Boolean expression, so the
// solver only ever has to post-image a literal return value and never has
// to case-split a comparison deep inside a ReturnCmd itself. A trivial
// return (no value, a literal, a bare variable/symbolic reference, or any
// non-Boolean result) is left untouched.
func simplifyReturns(s ast.Stmt, retType *ast.Type) ast.Stmt {
	if s == nil {
		return nil
	}
	if cmd, ok := s.(*ast.CmdStmt); ok {
		if ret, ok := cmd.Cmd.(*ast.ReturnCmd); ok {
			if shouldSimplify(ret.Value, retType) {
				return &ast.IfStmt{
					Cond: ret.Value,
					Then: &ast.CmdStmt{Cmd: &ast.ReturnCmd{Value: &ast.BoolExpr{Value: true}}},
					Else: &ast.CmdStmt{Cmd: &ast.ReturnCmd{Value: &ast.BoolExpr{Value: false}}},
				}
			}
		}
		return s
	}
	return mapStmt(s, func(c ast.Stmt) ast.Stmt { return simplifyReturns(c, retType) })
}

func shouldSimplify(e ast.Expr, retType *ast.Type) bool {
	if e == nil || retType == nil || retType.Sort != ast.SortBool {
		return false
	}
	switch e.(type) {
	case *ast.BoolExpr, *ast.VarExpr, *ast.SymbolicExpr:
		return false
	default:
		return true
	}
}
