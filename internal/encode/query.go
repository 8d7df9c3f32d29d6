package encode

import (
	"fmt"

	"github.com/irifrance/gini/z"

	"colaheal/internal/ast"
	"colaheal/internal/errors"
	"colaheal/internal/logic"
)

// solverError wraps a gini call that returned neither sat nor unsat (code 0,
// gini's "unknown" — it only arises under an external interrupt, since this
// package never sets a search budget, but treating it as unsat would be
// unsound) as a fatal colaheal/internal/errors.VerificationError, with the
// premise-frame depth active at the time of failure attached for diagnosis.
func (c *Context) solverError(pos ast.Position) error {
	return errors.NewSolvingError(
		fmt.Sprintf("gini returned an indeterminate result at premise depth %d", len(c.frames)),
		pos,
	).WithCause(fmt.Errorf("gini.Solve() == 0"))
}

// solveUnderAssumptions runs the incremental solver with the active frame
// selectors plus extra assumed true, returning whether the conjunction of
// everything currently asserted (in an active frame) and extra is
// satisfiable. gini's Solve() consumes assumptions made via Assume for this
// call only, matching the one-shot query shape Implies needs. A zero return
// (indeterminate) is reported through err rather than folded into the bool,
// since silently treating "unknown" as "unsatisfiable" would make Implies
// unsound.
func (c *Context) solveUnderAssumptions(extra ...z.Lit) (bool, error) {
	c.solver.Assume(c.activeSelectors()...)
	c.solver.Assume(extra...)
	switch c.solver.Solve() {
	case 1:
		return true, nil
	case -1:
		return false, nil
	default:
		return false, c.solverError(ast.Position{})
	}
}

// Implies answers whether the premises currently asserted in the active
// frames entail target: this is an UNSAT query on premises AND NOT(target).
// A negative answer here means "not known to
// imply" rather than "implies the negation" — the encoder is sound but
// incomplete by design (the FAST order closure is bounded to registered
// keys, and arbitrary quantifier-free entailments outside the decidable
// fragment simply return false).
func (c *Context) Implies(target logic.Formula) (bool, error) {
	lit, err := c.formulaLit(target)
	if err != nil {
		return false, nil // unencodable target: not known to imply, never a hard failure
	}
	sat, err := c.solveUnderAssumptions(lit.Not())
	if err != nil {
		return false, err
	}
	return !sat, nil
}

// ImpliesFalse answers whether the premises currently asserted are
// themselves contradictory (imply false), i.e. an UNSAT query with no
// extra assumption. An indeterminate solver result collapses to "not contradictory" — the
// caller (internal/solve) treats an indeterminate premise set as reachable
// rather than silently pruning a branch it could not actually disprove.
func (c *Context) ImpliesFalse() bool {
	sat, err := c.solveUnderAssumptions()
	if err != nil {
		return false
	}
	return !sat
}

// ImpliesIsNull answers whether the premises entail that the pointer-sorted
// symbol s is equal to null.
func (c *Context) ImpliesIsNull(s *logic.Symbol) bool {
	c.registerSymbol(s)
	eq := c.eqAtom(s.ID(), keyNull)
	sat, err := c.solveUnderAssumptions(eq.Not())
	if err != nil {
		return false
	}
	return !sat
}

// ImpliesIsNonNull answers whether the premises entail that the
// pointer-sorted symbol s is distinct from null.
func (c *Context) ImpliesIsNonNull(s *logic.Symbol) bool {
	c.registerSymbol(s)
	eq := c.eqAtom(s.ID(), keyNull)
	sat, err := c.solveUnderAssumptions(eq)
	if err != nil {
		return false
	}
	return !sat
}

// ComputeImplied filters candidates down to the ones the active premises
// entail, testing many candidate axioms against one solver session without
// re-encoding premises per candidate.
func (c *Context) ComputeImplied(candidates []logic.Formula) ([]logic.Formula, error) {
	var out []logic.Formula
	for _, cand := range candidates {
		ok, err := c.Implies(cand)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, cand)
		}
	}
	return out, nil
}

// ComputeNonNull returns the subset of candidates the active premises
// entail are non-null pointers, checking a whole set of symbols against
// everything currently known rather than a single symbol at a time.
func (c *Context) ComputeNonNull(candidates []*logic.Symbol) []*logic.Symbol {
	var out []*logic.Symbol
	for _, s := range candidates {
		if c.ImpliesIsNonNull(s) {
			out = append(out, s)
		}
	}
	return out
}
