// Package encode lowers the separation-logic objects of internal/logic to a
// decidable fragment (uninterpreted equality for pointers, a total order
// over data, finite set membership for flows) and answers entailment
// queries over it using github.com/irifrance/gini, a pure-Go incremental
// SAT solver, as the backend.
//
// Push/Pop scoping is implemented with assumption (selector) literals rather
// than real clause retraction, since gini (like most CNF solvers) has no
// general "forget this clause" operation: every clause asserted inside a
// frame is guarded by that frame's selector, and a query only assumes the
// selectors of frames still on the stack. This is the standard incremental-
// SAT technique for scoped assertions.
package encode

import (
	"github.com/irifrance/gini"
	"github.com/irifrance/gini/z"

	"colaheal/internal/ast"
	"colaheal/internal/errors"
	"colaheal/internal/logic"
)

// Context is one encoder session: a live solver, the registries that back
// the lowering of logic objects to literals, and the push/pop frame stack.
type Context struct {
	solver *gini.Gini

	boolAtoms map[*logic.Symbol]z.Lit // bool-sorted symbols
	eqAtoms   map[pairKey]z.Lit       // equality between two value keys (any sort)
	leqAtoms  map[pairKey]z.Lit       // total-order "<=" between two data-sorted keys
	memAtoms  map[memberKey]z.Lit     // flow-set membership: value in flow
	dataKeys  map[string]bool         // data-sorted keys registered so far (for closure)
	ptrKeys   map[string]bool         // pointer-sorted keys registered so far

	trueLitCache z.Lit
	frames       []frame

	emptyFlowSet map[string]bool      // flows asserted empty (by flow id)
	symbolsByKey map[string]*logic.Symbol
}

type frame struct {
	sel z.Lit // selector literal; clauses in this frame carry sel.Not()
}

type pairKey struct{ a, b string }

type memberKey struct {
	flow, value string
}

func canonicalPair(a, b string) pairKey {
	if a <= b {
		return pairKey{a, b}
	}
	return pairKey{b, a}
}

// sentinel keys for the literals min/max/null carry no *logic.Symbol.
const (
	keyMin  = "$min"
	keyMax  = "$max"
	keyNull = "$null"
)

// NewContext creates an encoder session with an empty base frame (no
// selector — base-frame clauses are never retractable, matching the
// lifetime of configured invariants asserted once at program start).
func NewContext() *Context {
	c := &Context{
		solver:       gini.New(),
		boolAtoms:    make(map[*logic.Symbol]z.Lit),
		eqAtoms:      make(map[pairKey]z.Lit),
		leqAtoms:     make(map[pairKey]z.Lit),
		memAtoms:     make(map[memberKey]z.Lit),
		dataKeys:     make(map[string]bool),
		ptrKeys:      make(map[string]bool),
		emptyFlowSet: make(map[string]bool),
		symbolsByKey: make(map[string]*logic.Symbol),
	}
	c.frames = []frame{{sel: z.LitNull}}
	return c
}

// Push opens a new scope: clauses added after Push are only active while
// this frame (and every still-open ancestor frame) is included in the
// assumption set a query passes to the solver.
func (c *Context) Push() {
	c.frames = append(c.frames, frame{sel: c.solver.Lit()})
}

// Pop discards the most recently pushed frame. Its clauses remain physically
// present in the solver but become permanently vacuous (their selector is
// simply never assumed true again), which is sound: a clause gated on a
// selector that is always free to be false can never force anything.
func (c *Context) Pop() {
	if len(c.frames) <= 1 {
		return
	}
	c.frames = c.frames[:len(c.frames)-1]
}

func (c *Context) activeSelectors() []z.Lit {
	var out []z.Lit
	for _, f := range c.frames {
		if f.sel != z.LitNull {
			out = append(out, f.sel)
		}
	}
	return out
}

// addClause asserts lits, guarded by the current (innermost) frame's
// selector so Pop can later neutralize it.
func (c *Context) addClause(lits ...z.Lit) {
	guard := c.frames[len(c.frames)-1].sel
	for _, l := range lits {
		c.solver.Add(l)
	}
	if guard != z.LitNull {
		c.solver.Add(guard.Not())
	}
	c.solver.Add(z.LitNull)
}

func (c *Context) assertUnit(l z.Lit) { c.addClause(l) }

// boolAtom allocates an uninterpreted Boolean atom for s (s must be
// bool-sorted), memoized so repeated lowering of the same symbol returns
// the same literal.
func (c *Context) boolAtom(s *logic.Symbol) z.Lit {
	if l, ok := c.boolAtoms[s]; ok {
		return l
	}
	l := c.solver.Lit()
	c.boolAtoms[s] = l
	return l
}

// newEncodingError wraps a lowering failure (an expression shape the
// encoder has no theory for) as the EncodingError taxonomy kind.
func newEncodingError(what string, e ast.Expr) error {
	pos := ast.Position{}
	if e != nil {
		pos = e.NodePos()
	}
	return errors.NewEncodingError("cannot encode "+what, pos)
}
