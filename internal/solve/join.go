package solve

import "colaheal/internal/logic"

// Join computes the join (unify) of several successor annotations arriving
// at the same program point: the syntactic intersection of their memory
// resources and bookkeeping axioms, plus whichever FAST candidate stack
// axiom the encoder can still prove from every one of anns, re-using the
// same candidate generation Widen does since both are instances of "narrow
// the pure part down to what survives across multiple states".
func (e *Engine) Join(anns []*logic.Annotation) (*logic.Annotation, error) {
	e.Stats.JoinSteps++
	if len(anns) == 0 {
		return logic.NewAnnotation(logic.Emp()), nil
	}
	if len(anns) == 1 {
		return anns[0].Copy(), nil
	}

	kept := intersectResources(anns)

	var candidates []logic.Formula
	seen := map[string]bool{}
	for _, a := range anns {
		live := reachableAddrs(a.Now)
		for _, c := range fastCandidates(retainedResources(a.Now, live)) {
			key := c.(*logic.StackAxiom).Op.String() + c.(*logic.StackAxiom).Left.String() + c.(*logic.StackAxiom).Right.String()
			if !seen[key] {
				seen[key] = true
				candidates = append(candidates, c)
			}
		}
	}
	for _, cand := range candidates {
		survivesAll := true
		for _, a := range anns {
			ctx, err := e.context(a.Now)
			if err != nil {
				return nil, err
			}
			ok, err := ctx.Implies(cand)
			if err != nil {
				return nil, err
			}
			if !ok {
				survivesAll = false
				break
			}
		}
		if survivesAll {
			kept = append(kept, cand)
		}
	}

	out := logic.NewAnnotation(logic.Conjoin(kept...))
	for _, p := range anns[0].Past {
		inAll := true
		for _, a := range anns[1:] {
			found := false
			for _, q := range a.Past {
				if q.Label == p.Label {
					found = true
					break
				}
			}
			if !found {
				inAll = false
				break
			}
		}
		if inAll {
			out.Past = append(out.Past, p)
		}
	}
	out.Future = anns[0].Future
	return out, nil
}

// intersectResources keeps only the formulas present (up to syntactic
// equality) in every one of anns' Now.
func intersectResources(anns []*logic.Annotation) []logic.Formula {
	var kept []logic.Formula
	sc, ok := anns[0].Now.(*logic.SeparatingConjunction)
	if !ok {
		return kept
	}
	for _, cand := range sc.Conjuncts {
		inAll := true
		for _, other := range anns[1:] {
			if !logic.SyntacticallyContains(other.Now, cand) {
				inAll = false
				break
			}
		}
		if inAll {
			kept = append(kept, cand)
		}
	}
	return kept
}
