// Package normalize rewrites a parsed CoLa program into CoLa-light: the
// minimal core of sequence, scope, atomic, choice, loop, assume, assert,
// return, skip, break, continue, malloc, single/parallel assignment, memory
// read/write, and macro inlining that the post-image engine operates on.
//
// Passes run in the fixed order the component design mandates; each pass is
// a full-tree rewrite that either returns a new Stmt or a *errors.VerificationError.
package normalize

import (
	"colaheal/internal/ast"
)

// Program normalizes every function body of prog in place and returns prog,
// running the six passes in order: remove_conditional_branching,
// simplify_returns, remove_cas, remove_conditional_loops,
// remove_useless_scopes, rename_variables (the last for interface functions
// only). Macro inlining happens separately,
// driven by the solver when it reaches a MacroCallCmd, so it is not one of
// the passes here (component design note: it operates fulfillment-search-late
// because the callee's binding context depends on the caller's symbolic state).
func Program(prog *ast.Program) (*ast.Program, error) {
	return ProgramWithTrace(prog, nil)
}

// ProgramWithTrace is Program, but calls trace(fnName, passName, body) after
// every pass of every function — the CLI's --trace-normalize hooks in here.
// trace may be nil.
func ProgramWithTrace(prog *ast.Program, trace func(fnName, pass string, body ast.Stmt)) (*ast.Program, error) {
	for _, fn := range prog.Functions {
		fnTrace := func(pass string, body ast.Stmt) {
			if trace != nil {
				trace(fn.Name, pass, body)
			}
		}
		if err := functionWithTrace(fn, fnTrace); err != nil {
			return nil, err
		}
	}
	return prog, nil
}

// Function runs the normalization passes over fn.Body in order;
// rename_variables runs only when fn is an interface function.
func Function(fn *ast.Function) error {
	return functionWithTrace(fn, nil)
}

func functionWithTrace(fn *ast.Function, trace func(pass string, body ast.Stmt)) error {
	if fn.Body == nil {
		return nil
	}
	body := fn.Body
	body = removeConditionalBranching(body)
	if trace != nil {
		trace("remove_conditional_branching", body)
	}
	// simplifyReturns can introduce a fresh IfStmt (`if e then return true
	// else return false`); a second pass over just that shape keeps the
	// "no IfStmt past this point" contract without re-walking subtrees that
	// cannot contain one any more.
	body = removeConditionalBranching(simplifyReturns(body, fn.Returns))
	if trace != nil {
		trace("simplify_returns", body)
	}
	body = removeCAS(body)
	if trace != nil {
		trace("remove_cas", body)
	}
	body = removeConditionalLoops(body)
	if trace != nil {
		trace("remove_conditional_loops", body)
	}
	var err error
	body, err = removeUselessScopes(body, fn.NodePos())
	if err != nil {
		return err
	}
	if trace != nil {
		trace("remove_useless_scopes", body)
	}
	if fn.IsInterfaceFunction() {
		body, err = renameVariables(body)
		if err != nil {
			return err
		}
		if trace != nil {
			trace("rename_variables", body)
		}
	}
	fn.Body = body
	return nil
}

func mapStmt(s ast.Stmt, f func(ast.Stmt) ast.Stmt) ast.Stmt {
	switch x := s.(type) {
	case nil:
		return nil
	case *ast.CmdStmt:
		return s
	case *ast.SeqStmt:
		return &ast.SeqStmt{First: f(x.First), Second: f(x.Second)}
	case *ast.ScopeStmt:
		return &ast.ScopeStmt{Decls: x.Decls, Body: f(x.Body)}
	case *ast.AtomicStmt:
		return &ast.AtomicStmt{Body: f(x.Body)}
	case *ast.ChoiceStmt:
		branches := make([]ast.Stmt, len(x.Branches))
		for i, b := range x.Branches {
			branches[i] = f(b)
		}
		return &ast.ChoiceStmt{Branches: branches}
	case *ast.LoopStmt:
		return &ast.LoopStmt{Body: f(x.Body)}
	case *ast.WhileStmt:
		return &ast.WhileStmt{Cond: x.Cond, Body: f(x.Body)}
	case *ast.DoWhileStmt:
		return &ast.DoWhileStmt{Body: f(x.Body), Cond: x.Cond}
	case *ast.IfStmt:
		var elseStmt ast.Stmt
		if x.Else != nil {
			elseStmt = f(x.Else)
		}
		return &ast.IfStmt{Cond: x.Cond, Then: f(x.Then), Else: elseStmt}
	default:
		return s
	}
}
