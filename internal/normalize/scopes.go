package normalize

import (
	"colaheal/internal/ast"
)

// removeUselessScopes splices out any ScopeStmt that declares no local
// variables, collapsing nested scope-within-scope chains with no
// declarations down to their innermost body. A scope that does declare
// variables is preserved; the boundary scopes an atomic block, a choice
// branch, or a loop body introduce are never removed, even
// when empty, since PostEnter/PostLeave bookkeeping for those boundaries is
// part of the post-image contract for those statement kinds, not an
// artifact of how many declarations happen to sit inside them.
func removeUselessScopes(s ast.Stmt, _ ast.Position) (ast.Stmt, error) {
	return removeUselessScopesIn(s, false), nil
}

// removeUselessScopesIn never fails: a ScopeStmt either declares nothing, in
// which case it is safe to splice, or it declares something, in which case
// it is kept whole. atBoundary reports whether s sits directly inside an
// atomic block, a choice branch, or a loop body, whose scope must survive
// splicing even when empty.
func removeUselessScopesIn(s ast.Stmt, atBoundary bool) ast.Stmt {
	if s == nil {
		return nil
	}
	switch x := s.(type) {
	case *ast.ScopeStmt:
		body := removeUselessScopesIn(x.Body, false)
		if len(x.Decls) == 0 {
			if !atBoundary {
				return body
			}
			return &ast.ScopeStmt{Decls: nil, Body: body}
		}
		return &ast.ScopeStmt{Decls: x.Decls, Body: body}
	case *ast.SeqStmt:
		return &ast.SeqStmt{
			First:  removeUselessScopesIn(x.First, atBoundary),
			Second: removeUselessScopesIn(x.Second, atBoundary),
		}
	case *ast.AtomicStmt:
		return &ast.AtomicStmt{Body: removeUselessScopesIn(x.Body, true)}
	case *ast.ChoiceStmt:
		branches := make([]ast.Stmt, len(x.Branches))
		for i, b := range x.Branches {
			branches[i] = removeUselessScopesIn(b, true)
		}
		return &ast.ChoiceStmt{Branches: branches}
	case *ast.LoopStmt:
		return &ast.LoopStmt{Body: removeUselessScopesIn(x.Body, true)}
	default:
		return s
	}
}
