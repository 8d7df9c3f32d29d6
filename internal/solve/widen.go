package solve

import (
	"colaheal/internal/ast"
	"colaheal/internal/logic"
)

// Widen implements the FAST widening policy: keep every local memory
// resource and every shared resource still reachable from the stack, keep
// every EqualsToAxiom,
// ObligationAxiom, and FulfillmentAxiom unconditionally, and replace the pure
// stack axioms with whichever of a small pairwise candidate set over the
// surviving first-order data symbols the pre-widening state still proves.
// Past predicates referencing a resource that did not survive are dropped;
// future predicates pass through unchanged since they describe obligations
// yet to come, not present heap shape.
func (e *Engine) Widen(ann *logic.Annotation) (*logic.Annotation, error) {
	e.Stats.WideningSteps++
	live := reachableAddrs(ann.Now)
	kept := retainedResources(ann.Now, live)

	ctx, err := e.context(ann.Now)
	if err != nil {
		return nil, err
	}
	candidates := fastCandidates(kept)
	for _, cand := range candidates {
		ok, err := ctx.Implies(cand)
		if err != nil {
			return nil, err
		}
		if ok {
			kept = append(kept, cand)
		}
	}

	out := logic.NewAnnotation(logic.Conjoin(kept...))
	for _, p := range ann.Past {
		if pastStillLive(p, live) {
			out.Past = append(out.Past, p)
		}
	}
	out.Future = ann.Future
	return out, nil
}

// reachableAddrs computes the set of memory addresses reachable from a
// program variable: every pointer-sorted value a stack variable is currently
// bound to, closed transitively under each live resource's pointer fields.
func reachableAddrs(now logic.Formula) map[*logic.Symbol]bool {
	live := make(map[*logic.Symbol]bool)
	for _, eq := range logic.Collect[*logic.EqualsToAxiom](now, nil) {
		if eq.Var.Type != nil && eq.Var.Type.Sort == ast.SortPointer {
			live[eq.Value] = true
		}
	}
	resources := logic.Collect[logic.MemoryAxiom](now, nil)
	for changed := true; changed; {
		changed = false
		for _, m := range resources {
			if !live[m.Node()] {
				continue
			}
			for name, v := range m.Fields() {
				if v == nil {
					continue
				}
				_ = name
				if !live[v] && isPointerSymbol(v) {
					live[v] = true
					changed = true
				}
			}
		}
	}
	return live
}

func isPointerSymbol(s *logic.Symbol) bool {
	return s.Type != nil && s.Type.Sort == ast.SortPointer
}

// retainedResources returns every memory axiom in now that is either local
// (always kept) or shared and live, as a flat formula slice.
func retainedResources(now logic.Formula, live map[*logic.Symbol]bool) []logic.Formula {
	var kept []logic.Formula
	for _, m := range logic.Collect[logic.MemoryAxiom](now, nil) {
		if !m.Shared() || live[m.Node()] {
			kept = append(kept, m)
		}
	}
	for _, eq := range logic.Collect[*logic.EqualsToAxiom](now, nil) {
		kept = append(kept, eq)
	}
	for _, o := range logic.Collect[*logic.ObligationAxiom](now, nil) {
		kept = append(kept, o)
	}
	for _, fu := range logic.Collect[*logic.FulfillmentAxiom](now, nil) {
		kept = append(kept, fu)
	}
	return kept
}

// fastCandidates proposes equality and disequality axioms over every pair of
// distinct first-order data symbols mentioned in kept, the small candidate
// set the FAST policy re-checks against the pre-widening state rather than
// keeping arbitrary pure stack axioms (which could carry unboundedly much
// path-specific detail and block the loop fixed point from ever converging).
func fastCandidates(kept []logic.Formula) []logic.Formula {
	var data []*logic.Symbol
	seen := make(map[*logic.Symbol]bool)
	for _, f := range kept {
		for _, s := range logic.Collect[*logic.Symbol](f, func(s *logic.Symbol) bool {
			return s.Order == logic.FirstOrder && s.Type != nil && s.Type.Sort == ast.SortData
		}) {
			if !seen[s] {
				seen[s] = true
				data = append(data, s)
			}
		}
	}
	var out []logic.Formula
	for i := range data {
		for j := i + 1; j < len(data); j++ {
			a, b := data[i], data[j]
			out = append(out,
				&logic.StackAxiom{Op: ast.OpEq, Left: &ast.SymbolicExpr{Sym: a}, Right: &ast.SymbolicExpr{Sym: b}},
				&logic.StackAxiom{Op: ast.OpNeq, Left: &ast.SymbolicExpr{Sym: a}, Right: &ast.SymbolicExpr{Sym: b}},
				&logic.StackAxiom{Op: ast.OpLt, Left: &ast.SymbolicExpr{Sym: a}, Right: &ast.SymbolicExpr{Sym: b}},
				&logic.StackAxiom{Op: ast.OpLt, Left: &ast.SymbolicExpr{Sym: b}, Right: &ast.SymbolicExpr{Sym: a}},
			)
		}
	}
	return out
}

// pastStillLive reports whether every memory address p.Body refers to is
// still among live - a past predicate anchored on a resource widening has
// dropped can never be re-established, so it must be dropped along with it.
func pastStillLive(p *logic.PastPredicate, live map[*logic.Symbol]bool) bool {
	for _, m := range logic.Collect[logic.MemoryAxiom](p.Body, nil) {
		if !live[m.Node()] {
			return false
		}
	}
	return true
}
