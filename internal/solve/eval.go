package solve

import (
	"fmt"

	"colaheal/internal/ast"
	"colaheal/internal/logic"
)

// evalExpr rewrites expr into a purely symbolic expression tree: every
// VarExpr is replaced by the SymbolicExpr wrapping its current bound value,
// and every DerefExpr by the SymbolicExpr wrapping the targeted field's
// current value, looked up in now. Literals and already-symbolic leaves pass
// through unchanged. The error returned names a variable or field with no
// binding yet - PrepareAccess is expected to have ruled this out for every
// command it has already cleared, so callers that see this error for a
// command post-image are looking at a PrepareAccess gap, not a user error.
func (e *Engine) evalExpr(now logic.Formula, expr ast.Expr) (ast.Expr, error) {
	switch x := expr.(type) {
	case *ast.BoolExpr, *ast.NullExpr, *ast.MinExpr, *ast.MaxExpr, *ast.SymbolicExpr:
		return x, nil
	case *ast.VarExpr:
		sym, ok := lookupVar(now, x.Decl)
		if !ok {
			return nil, fmt.Errorf("variable %q has no bound value", x.Decl.Name)
		}
		return &ast.SymbolicExpr{Sym: sym}, nil
	case *ast.DerefExpr:
		addr, err := e.evalSymbol(now, x.Target)
		if err != nil {
			return nil, err
		}
		m := lookupMemory(now, addr)
		if m == nil {
			return nil, fmt.Errorf("no memory axiom backs %s", addr.SymbolName())
		}
		field, ok := m.Fields()[x.Field]
		if !ok {
			return nil, fmt.Errorf("memory axiom at %s has no field %q", addr.SymbolName(), x.Field)
		}
		return &ast.SymbolicExpr{Sym: field}, nil
	case *ast.NegExpr:
		operand, err := e.evalExpr(now, x.Operand)
		if err != nil {
			return nil, err
		}
		return &ast.NegExpr{Operand: operand}, nil
	case *ast.BinaryExpr:
		left, err := e.evalExpr(now, x.Left)
		if err != nil {
			return nil, err
		}
		right, err := e.evalExpr(now, x.Right)
		if err != nil {
			return nil, err
		}
		return &ast.BinaryExpr{Op: x.Op, Left: left, Right: right}, nil
	default:
		return nil, fmt.Errorf("cannot evaluate expression of type %T", expr)
	}
}

// evalSymbol evaluates expr and requires the result to denote exactly one
// solver symbol (as opposed to a compound comparison or Boolean formula).
func (e *Engine) evalSymbol(now logic.Formula, expr ast.Expr) (*logic.Symbol, error) {
	ev, err := e.evalExpr(now, expr)
	if err != nil {
		return nil, err
	}
	se, ok := ev.(*ast.SymbolicExpr)
	if !ok {
		return nil, fmt.Errorf("expression %q does not denote a single value", expr.String())
	}
	sym, ok := se.Sym.(*logic.Symbol)
	if !ok {
		return nil, fmt.Errorf("expression %q does not denote a solver symbol", expr.String())
	}
	return sym, nil
}

// evalToValue reduces expr to a single symbol standing for its value. A
// variable reference or field dereference reuses the symbol already bound to
// it; a literal, negation, or comparison instead mints a fresh symbol of
// type t (or, if t is nil, expr's own type) and returns the equality axiom
// constraining it, so every assignment target ends up backed by exactly one
// symbol regardless of its right-hand side's shape.
func (e *Engine) evalToValue(now logic.Formula, expr ast.Expr, t *ast.Type) (*logic.Symbol, logic.Formula, error) {
	ev, err := e.evalExpr(now, expr)
	if err != nil {
		return nil, nil, err
	}
	if se, ok := ev.(*ast.SymbolicExpr); ok {
		if sym, ok := se.Sym.(*logic.Symbol); ok {
			return sym, nil, nil
		}
	}
	if t == nil {
		t = ev.ExprType()
	}
	fresh := e.Factory.Fresh("val", t, logic.FirstOrder)
	constraint := &logic.StackAxiom{Op: ast.OpEq, Left: &ast.SymbolicExpr{Sym: fresh}, Right: ev}
	return fresh, constraint, nil
}

// exprToFormula lifts an already symbolically-evaluated Boolean expression
// into a logic.Formula: comparisons become StackAxioms, && becomes a
// SeparatingConjunction, || and ! are built from SeparatingConjunction and
// NegatedAxiom via De Morgan (the logic layer has no direct disjunction
// node), and a bare Boolean-sorted leaf (e.g. a macro result variable used
// directly as a condition) is treated as `leaf == true`.
func exprToFormula(e ast.Expr) (logic.Formula, error) {
	switch x := e.(type) {
	case *ast.BoolExpr:
		if x.Value {
			return logic.Emp(), nil
		}
		return &logic.NegatedAxiom{Inner: logic.Emp()}, nil
	case *ast.NegExpr:
		inner, err := exprToFormula(x.Operand)
		if err != nil {
			return nil, err
		}
		return &logic.NegatedAxiom{Inner: inner}, nil
	case *ast.BinaryExpr:
		if x.Op.IsComparison() {
			return &logic.StackAxiom{Op: x.Op, Left: x.Left, Right: x.Right}, nil
		}
		left, err := exprToFormula(x.Left)
		if err != nil {
			return nil, err
		}
		right, err := exprToFormula(x.Right)
		if err != nil {
			return nil, err
		}
		switch x.Op {
		case ast.OpAnd:
			return logic.Conjoin(left, right), nil
		case ast.OpOr:
			return &logic.NegatedAxiom{Inner: logic.Conjoin(&logic.NegatedAxiom{Inner: left}, &logic.NegatedAxiom{Inner: right})}, nil
		default:
			return nil, fmt.Errorf("unsupported Boolean operator %s", x.Op)
		}
	default:
		return &logic.StackAxiom{Op: ast.OpEq, Left: e, Right: &ast.BoolExpr{Value: true}}, nil
	}
}
