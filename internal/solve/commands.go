package solve

import (
	"fmt"

	"colaheal/internal/ast"
	"colaheal/internal/errors"
	"colaheal/internal/logic"
)

func (e *Engine) postAssume(pre *logic.Annotation, c *ast.AssumeCmd) (*PostImage, error) {
	cond, err := e.evalExpr(pre.Now, c.Cond)
	if err != nil {
		return nil, errors.NewAccessError(errors.ErrorMissingResource, err.Error(), c.NodePos()).WithCommand(c)
	}
	axiom, err := exprToFormula(cond)
	if err != nil {
		return nil, errors.NewUnsupportedConstruct(c.String(), c.NodePos())
	}
	next := pre.Copy()
	next.Now = logic.Conjoin(next.Now, axiom)
	ctx, err := e.context(next.Now)
	if err != nil {
		return nil, err
	}
	if ctx.ImpliesFalse() {
		return &PostImage{}, nil
	}
	return single(next), nil
}

func (e *Engine) postAssert(pre *logic.Annotation, c *ast.AssertCmd) (*PostImage, error) {
	cond, err := e.evalExpr(pre.Now, c.Cond)
	if err != nil {
		return nil, errors.NewAccessError(errors.ErrorMissingResource, err.Error(), c.NodePos()).WithCommand(c)
	}
	axiom, err := exprToFormula(cond)
	if err != nil {
		return nil, errors.NewUnsupportedConstruct(c.String(), c.NodePos())
	}
	ctx, err := e.context(pre.Now)
	if err != nil {
		return nil, err
	}
	ok, err := ctx.Implies(axiom)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.NewAssertionError(fmt.Sprintf("cannot prove %s", c.Cond.String()), c.NodePos()).
			WithCommand(c).WithAnnotation(pre.String())
	}
	return single(pre.Copy()), nil
}

func (e *Engine) postReturn(pre *logic.Annotation, c *ast.ReturnCmd) (*PostImage, error) {
	next := pre.Copy()
	var val *logic.Symbol
	if c.Value != nil {
		v, extra, err := e.evalToValue(next.Now, c.Value, nil)
		if err != nil {
			return nil, errors.NewAccessError(errors.ErrorMissingResource, err.Error(), c.NodePos()).WithCommand(c)
		}
		if extra != nil {
			next.Now = logic.Conjoin(next.Now, extra)
		}
		val = v
	}
	return &PostImage{Successors: []Successor{{Annotation: next, Signal: SigReturn, ReturnValue: val}}}, nil
}

// postMalloc builds a fresh local cell - a new address distinct from the
// address of every memory resource already held, empty inflow, every pointer
// field null - checks
// it against the configured local-node invariant, and rebinds lhs to it.
func (e *Engine) postMalloc(pre *logic.Annotation, c *ast.MallocCmd) (*PostImage, error) {
	if c.Lhs.IsShared {
		return nil, errors.NewAccessError(errors.ErrorMissingResource,
			fmt.Sprintf("malloc target %q must be a thread-local variable", c.Lhs.Name), c.NodePos()).WithCommand(c)
	}
	next := pre.Copy()
	cell := logic.MakeLocalMemory(e.Config.NodeType, e.Config.FlowValueType, e.Factory)
	next.Now = logic.Conjoin(next.Now, cell, &logic.InflowEmptinessAxiom{Flow: cell.FlowSym, Empty: true})
	for _, m := range logic.Collect[logic.MemoryAxiom](pre.Now, nil) {
		next.Now = logic.Conjoin(next.Now, &logic.StackAxiom{
			Op:    ast.OpNeq,
			Left:  &ast.SymbolicExpr{Sym: cell.NodeSym},
			Right: &ast.SymbolicExpr{Sym: m.Node()},
		})
	}
	for name, ft := range e.Config.NodeType.Fields {
		if ft.Sort != ast.SortPointer {
			continue
		}
		next.Now = logic.Conjoin(next.Now, &logic.StackAxiom{
			Op:    ast.OpEq,
			Left:  &ast.SymbolicExpr{Sym: cell.FieldVals[name]},
			Right: &ast.NullExpr{},
		})
	}
	if e.Config.LocalNodeInvariant != nil {
		inv := e.Config.LocalNodeInvariant.Instantiate(cell, nil)
		ctx, err := e.context(next.Now)
		if err != nil {
			return nil, err
		}
		ok, err := ctx.Implies(inv)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, errors.NewInvariantViolation(errors.ErrorMallocInvariant,
				"freshly allocated cell does not satisfy the configured local node invariant", c.NodePos()).WithCommand(c)
		}
	}
	next.Now = rebindVar(next.Now, c.Lhs, cell.NodeSym)
	return single(next), nil
}

func (e *Engine) postAssign(pre *logic.Annotation, c *ast.AssignCmd) (*PostImage, error) {
	next := pre.Copy()
	val, extra, err := e.evalToValue(next.Now, c.Rhs, c.Lhs.Type)
	if err != nil {
		return nil, errors.NewAccessError(errors.ErrorMissingResource, err.Error(), c.NodePos()).WithCommand(c)
	}
	if extra != nil {
		next.Now = logic.Conjoin(next.Now, extra)
	}
	next.Now = rebindVar(next.Now, c.Lhs, val)
	return single(next), nil
}

// postParAssign evaluates every right-hand side against the pre-state before
// rebinding any left-hand side, realizing simultaneous ("atomic tuple")
// semantics: x, y = y, x must swap, not collapse to one value, so no
// left-hand side can be rebound until every right-hand side has been read.
func (e *Engine) postParAssign(pre *logic.Annotation, c *ast.ParAssignCmd) (*PostImage, error) {
	next := pre.Copy()
	vals := make([]*logic.Symbol, len(c.Rhs))
	for i, rhs := range c.Rhs {
		val, extra, err := e.evalToValue(next.Now, rhs, c.Lhs[i].Type)
		if err != nil {
			return nil, errors.NewAccessError(errors.ErrorMissingResource, err.Error(), c.NodePos()).WithCommand(c)
		}
		if extra != nil {
			next.Now = logic.Conjoin(next.Now, extra)
		}
		vals[i] = val
	}
	for i, lhs := range c.Lhs {
		next.Now = rebindVar(next.Now, lhs, vals[i])
	}
	return single(next), nil
}

func (e *Engine) postMemRead(pre *logic.Annotation, c *ast.MemReadCmd) (*PostImage, error) {
	next := pre.Copy()
	vals := make([]*logic.Symbol, len(c.Rhs))
	for i, d := range c.Rhs {
		val, extra, err := e.evalToValue(next.Now, d, c.Lhs[i].Type)
		if err != nil {
			return nil, errors.NewUnsafeDereference(d.String(), c.NodePos()).WithCommand(c)
		}
		if extra != nil {
			next.Now = logic.Conjoin(next.Now, extra)
		}
		vals[i] = val
	}
	for i, lhs := range c.Lhs {
		next.Now = rebindVar(next.Now, lhs, vals[i])
	}
	return single(next), nil
}

func (e *Engine) postMemWrite(pre *logic.Annotation, c *ast.MemWriteCmd) (*PostImage, error) {
	next := pre.Copy()
	var effects []HeapEffect
	for i, d := range c.Lhs {
		addr, err := e.evalSymbol(next.Now, d.Target)
		if err != nil {
			return nil, errors.NewUnsafeDereference(d.Target.String(), c.NodePos()).WithCommand(c)
		}
		m := lookupMemory(next.Now, addr)
		if m == nil {
			return nil, errors.NewAccessError(errors.ErrorMissingMemoryAxiom,
				fmt.Sprintf("no memory axiom backs %s", d.String()), c.NodePos()).WithCommand(c)
		}
		before := m.Fields()[d.Field]
		val, extra, err := e.evalToValue(next.Now, c.Rhs[i], d.ExprType())
		if err != nil {
			return nil, errors.NewAccessError(errors.ErrorMissingResource, err.Error(), c.NodePos()).WithCommand(c)
		}
		if extra != nil {
			next.Now = logic.Conjoin(next.Now, extra)
		}
		m.SetField(d.Field, val)
		if m.Shared() {
			effects = append(effects, HeapEffect{Resource: m, Field: d.Field, Before: before, After: val, Command: c.String()})
		}
	}
	return &PostImage{Successors: []Successor{{Annotation: next, Signal: SigNormal}}, Effects: effects}, nil
}

// postMacroCall inlines a macro call: bind its parameters in a fresh scope,
// symbolically execute its body, bind the call's result (if any) from the
// body's SigReturn successors, then leave the scope. Reusing PostEnterScope
// means a macro's own locals are protected by the very same ErrorScopeHiding
// check a hand-written scope would be, so inlining the same macro at two
// sequential call sites - or in two branches of a choice, each working on
// its own annotation copy - never collides; a macro that (directly or
// transitively) calls itself would collide against its own still-open scope
// and is rejected the same way, which is an acceptable limitation since
// flow-sensitive inlining of a recursive macro is undecidable in general
// anyway.
func (e *Engine) postMacroCall(pre *logic.Annotation, c *ast.MacroCallCmd) (*PostImage, error) {
	macro := e.Program.LookupMacro(c.Name)
	if macro == nil {
		return nil, errors.NewUnsupportedConstruct(fmt.Sprintf("call to unknown macro %q", c.Name), c.NodePos())
	}
	if len(c.Args) != len(macro.Params) {
		return nil, errors.NewUnsupportedConstruct(
			fmt.Sprintf("macro %q called with %d arguments, expected %d", c.Name, len(c.Args), len(macro.Params)), c.NodePos())
	}
	if macro.Returns != nil && macro.Returns.Sort == ast.SortPointer && len(c.Results) == 1 {
		return nil, errors.NewUnsupportedConstruct(
			fmt.Sprintf("macro %q returns a pointer; flow-sensitive inlining does not yet support binding a pointer result", c.Name),
			c.NodePos())
	}

	entered, err := e.PostEnterScope(pre, macro.Params, c.NodePos())
	if err != nil {
		return nil, err
	}
	for i, p := range macro.Params {
		val, extra, err := e.evalToValue(entered.Now, c.Args[i], p.Type)
		if err != nil {
			return nil, errors.NewAccessError(errors.ErrorMissingResource, err.Error(), c.NodePos()).WithCommand(c)
		}
		if extra != nil {
			entered.Now = logic.Conjoin(entered.Now, extra)
		}
		entered.Now = rebindVar(entered.Now, p, val)
	}

	body, err := e.PostStmt(entered, macro.Body)
	if err != nil {
		return nil, err
	}
	out := &PostImage{Effects: body.Effects}
	for _, suc := range body.Successors {
		ann := suc.Annotation
		if len(c.Results) == 1 {
			if suc.Signal != SigReturn || suc.ReturnValue == nil {
				return nil, errors.NewUnsupportedConstruct(
					fmt.Sprintf("macro %q must return a value on every path to bind %q", c.Name, c.Results[0].Name), c.NodePos())
			}
			ann.Now = rebindVar(ann.Now, c.Results[0], suc.ReturnValue)
		}
		ann, err = e.PostLeaveScope(ann, macro.Params, c.NodePos())
		if err != nil {
			return nil, err
		}
		out.Successors = append(out.Successors, Successor{Annotation: ann, Signal: SigNormal})
	}
	return out, nil
}
