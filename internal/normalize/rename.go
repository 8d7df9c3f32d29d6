package normalize

import (
	"colaheal/internal/ast"
	"colaheal/internal/errors"
)

const maxRenameRounds = 20

// renameVariables renames any scope-declared variable whose name clashes
// with a variable visible in an enclosing scope (a nested block redeclaring
// a name an outer block already declared) by prefixing underscores until the name is unique in its full lexical
// chain. The rewrite iterates to a fixpoint since fixing one clash can
// uncover another one level up; after maxRenameRounds rounds without
// convergence it reports a transformation error rather than looping forever.
func renameVariables(s ast.Stmt) (ast.Stmt, error) {
	for round := 0; round < maxRenameRounds; round++ {
		renamed, changed := renameRound(s, nil)
		s = renamed
		if !changed {
			return s, nil
		}
	}
	return nil, errors.NewTransformationError(errors.ErrorRenameDidNotConverge,
		"rename_variables did not converge within the iteration bound", ast.Position{})
}

// renameRound performs a single top-down pass, tracking the set of names
// already bound by an enclosing ScopeStmt (outer) and, for every
// ScopeStmt it meets whose Decls collide with outer, renaming the
// colliding declarations (and every VarExpr reference to them within its
// body) by prefixing underscores.
func renameRound(s ast.Stmt, outer map[string]bool) (ast.Stmt, bool) {
	if s == nil {
		return nil, false
	}
	switch x := s.(type) {
	case *ast.ScopeStmt:
		changed := false
		decls := x.Decls
		body := x.Body
		rename := map[*ast.VarDecl]string{}
		inner := cloneNameSet(outer)
		for _, d := range decls {
			if outer[d.Name] {
				newName := uniqueName(d.Name, inner)
				rename[d] = newName
				changed = true
			}
		}
		if changed {
			newDecls := make([]*ast.VarDecl, len(decls))
			for i, d := range decls {
				if nn, ok := rename[d]; ok {
					newDecls[i] = &ast.VarDecl{Name: nn, Type: d.Type, IsShared: d.IsShared}
					inner[nn] = true
					body = substituteVar(body, d, newDecls[i])
				} else {
					newDecls[i] = d
					inner[d.Name] = true
				}
			}
			decls = newDecls
		} else {
			for _, d := range decls {
				inner[d.Name] = true
			}
		}
		newBody, bodyChanged := renameRound(body, inner)
		return &ast.ScopeStmt{Decls: decls, Body: newBody}, changed || bodyChanged
	case *ast.SeqStmt:
		first, c1 := renameRound(x.First, outer)
		second, c2 := renameRound(x.Second, outer)
		return &ast.SeqStmt{First: first, Second: second}, c1 || c2
	case *ast.AtomicStmt:
		body, c := renameRound(x.Body, outer)
		return &ast.AtomicStmt{Body: body}, c
	case *ast.ChoiceStmt:
		changed := false
		branches := make([]ast.Stmt, len(x.Branches))
		for i, b := range x.Branches {
			rb, c := renameRound(b, outer)
			branches[i] = rb
			changed = changed || c
		}
		return &ast.ChoiceStmt{Branches: branches}, changed
	case *ast.LoopStmt:
		body, c := renameRound(x.Body, outer)
		return &ast.LoopStmt{Body: body}, c
	default:
		return s, false
	}
}

func cloneNameSet(m map[string]bool) map[string]bool {
	out := make(map[string]bool, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func uniqueName(base string, taken map[string]bool) string {
	name := "_" + base
	for taken[name] {
		name = "_" + name
	}
	return name
}

// substituteVar rewrites every VarExpr/AssignCmd/etc reference to old within
// s to point at fresh instead, stopping at any nested ScopeStmt whose Decls
// contain old itself.
func substituteVar(s ast.Stmt, old, fresh *ast.VarDecl) ast.Stmt {
	if s == nil {
		return nil
	}
	switch x := s.(type) {
	case *ast.CmdStmt:
		return &ast.CmdStmt{Cmd: substituteCmd(x.Cmd, old, fresh)}
	case *ast.ScopeStmt:
		for _, d := range x.Decls {
			if d == old {
				return x // shadowed; stop here
			}
		}
		return &ast.ScopeStmt{Decls: x.Decls, Body: substituteVar(x.Body, old, fresh)}
	default:
		return mapStmt(s, func(c ast.Stmt) ast.Stmt { return substituteVar(c, old, fresh) })
	}
}

func substituteCmd(c ast.Command, old, fresh *ast.VarDecl) ast.Command {
	subDecl := func(d *ast.VarDecl) *ast.VarDecl {
		if d == old {
			return fresh
		}
		return d
	}
	subDecls := func(ds []*ast.VarDecl) []*ast.VarDecl {
		out := make([]*ast.VarDecl, len(ds))
		for i, d := range ds {
			out[i] = subDecl(d)
		}
		return out
	}
	subExpr := func(e ast.Expr) ast.Expr { return substituteExpr(e, old, fresh) }
	subExprs := func(es []ast.Expr) []ast.Expr {
		out := make([]ast.Expr, len(es))
		for i, e := range es {
			out[i] = subExpr(e)
		}
		return out
	}
	subDerefs := func(es []*ast.DerefExpr) []*ast.DerefExpr {
		out := make([]*ast.DerefExpr, len(es))
		for i, e := range es {
			out[i] = substituteExpr(e, old, fresh).(*ast.DerefExpr)
		}
		return out
	}

	switch x := c.(type) {
	case *ast.AssumeCmd:
		return &ast.AssumeCmd{Cond: subExpr(x.Cond)}
	case *ast.AssertCmd:
		return &ast.AssertCmd{Cond: subExpr(x.Cond)}
	case *ast.ReturnCmd:
		if x.Value == nil {
			return x
		}
		return &ast.ReturnCmd{Value: subExpr(x.Value)}
	case *ast.MallocCmd:
		return &ast.MallocCmd{Lhs: subDecl(x.Lhs)}
	case *ast.AssignCmd:
		return &ast.AssignCmd{Lhs: subDecl(x.Lhs), Rhs: subExpr(x.Rhs)}
	case *ast.ParAssignCmd:
		return &ast.ParAssignCmd{Lhs: subDecls(x.Lhs), Rhs: subExprs(x.Rhs)}
	case *ast.MemReadCmd:
		return &ast.MemReadCmd{Lhs: subDecls(x.Lhs), Rhs: subDerefs(x.Rhs)}
	case *ast.MemWriteCmd:
		return &ast.MemWriteCmd{Lhs: subDerefs(x.Lhs), Rhs: subExprs(x.Rhs)}
	case *ast.CASCmd:
		var result *ast.VarDecl
		if x.Result != nil {
			result = subDecl(x.Result)
		}
		return &ast.CASCmd{Dst: subDerefs(x.Dst), Cmp: subExprs(x.Cmp), Src: subExprs(x.Src), Result: result}
	case *ast.MacroCallCmd:
		return &ast.MacroCallCmd{Name: x.Name, Args: subExprs(x.Args), Results: subDecls(x.Results)}
	default:
		return c
	}
}

func substituteExpr(e ast.Expr, old, fresh *ast.VarDecl) ast.Expr {
	switch x := e.(type) {
	case *ast.VarExpr:
		if x.Decl == old {
			return &ast.VarExpr{Decl: fresh}
		}
		return x
	case *ast.DerefExpr:
		return &ast.DerefExpr{Target: substituteExpr(x.Target, old, fresh), Field: x.Field, Type: x.Type}
	case *ast.NegExpr:
		return &ast.NegExpr{Operand: substituteExpr(x.Operand, old, fresh)}
	case *ast.BinaryExpr:
		return &ast.BinaryExpr{Op: x.Op, Left: substituteExpr(x.Left, old, fresh), Right: substituteExpr(x.Right, old, fresh)}
	default:
		return e
	}
}
