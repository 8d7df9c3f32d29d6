package solve

import (
	"fmt"

	"colaheal/internal/ast"
	"colaheal/internal/errors"
	"colaheal/internal/logic"
)

// PostEnterScope binds each of decls to a fresh first-order symbol of its own
// type, guarding against a declaration whose name already has a binding in
// scope - the by-name collision check that doubles as macro inlining's only
// protection against a callee's locals clashing with its caller's, since
// macro bodies are never run through the rename_variables pass (only
// interface functions are).
func (e *Engine) PostEnterScope(pre *logic.Annotation, decls []*ast.VarDecl, pos ast.Position) (*logic.Annotation, error) {
	next := pre.Copy()
	for _, v := range logic.Collect[*logic.EqualsToAxiom](next.Now, nil) {
		for _, d := range decls {
			if v.Var.Name == d.Name {
				return nil, errors.NewTransformationError(errors.ErrorScopeHiding,
					fmt.Sprintf("declaration of %q hides a variable already in scope", d.Name), pos)
			}
		}
	}
	for _, d := range decls {
		sym := e.Factory.Fresh(d.Name, d.Type, logic.FirstOrder)
		next.Now = logic.Conjoin(next.Now, &logic.EqualsToAxiom{Var: d, Value: sym})
	}
	return next, nil
}

// PostLeaveScope drops the EqualsToAxioms binding each of decls and strips
// any Future predicate that still mentions one of them, since a future
// predicate scoped to a variable that just went out of scope can never be
// discharged again. It is an error for a declaration going out of scope to
// be the last name addressing a live LocalMemoryResource: once dropped, no
// expression in the surviving annotation could ever reach that cell again,
// so the resource would be stuck in the heap forever with nothing able to
// free or hand it off.
func (e *Engine) PostLeaveScope(post *logic.Annotation, decls []*ast.VarDecl, pos ast.Position) (*logic.Annotation, error) {
	leaving := make(map[*ast.VarDecl]bool, len(decls))
	for _, d := range decls {
		leaving[d] = true
	}

	leavingValues := make(map[*logic.Symbol]*ast.VarDecl)
	for _, eq := range logic.Collect[*logic.EqualsToAxiom](post.Now, nil) {
		if leaving[eq.Var] {
			leavingValues[eq.Value] = eq.Var
		}
	}

	post.Now = dropEquals(post.Now, leaving)

	stillNamed := make(map[*logic.Symbol]bool)
	for _, eq := range logic.Collect[*logic.EqualsToAxiom](post.Now, nil) {
		stillNamed[eq.Value] = true
	}
	for _, res := range logic.Collect[logic.MemoryAxiom](post.Now, nil) {
		if res.Shared() {
			continue
		}
		if d, ok := leavingValues[res.Node()]; ok && !stillNamed[res.Node()] {
			return nil, errors.NewTransformationError(errors.ErrorNonEmptyScope,
				fmt.Sprintf("variable %q goes out of scope still owning a live local memory cell", d.Name), pos)
		}
	}

	var kept []*logic.FuturePredicate
	for _, f := range post.Future {
		if !mentionsAny(f.Body, leaving) {
			kept = append(kept, f)
		}
	}
	post.Future = kept
	return post, nil
}

func dropEquals(f logic.Formula, leaving map[*ast.VarDecl]bool) logic.Formula {
	sc, ok := f.(*logic.SeparatingConjunction)
	if !ok {
		return f
	}
	out := &logic.SeparatingConjunction{}
	for _, c := range sc.Conjuncts {
		if eq, ok := c.(*logic.EqualsToAxiom); ok && leaving[eq.Var] {
			continue
		}
		out.Conjuncts = append(out.Conjuncts, c)
	}
	return out
}

func mentionsAny(f logic.Formula, leaving map[*ast.VarDecl]bool) bool {
	for _, eq := range logic.Collect[*logic.EqualsToAxiom](f, func(e *logic.EqualsToAxiom) bool { return leaving[e.Var] }) {
		_ = eq
		return true
	}
	return false
}
