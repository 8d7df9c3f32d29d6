package encode

import (
	"fmt"

	"github.com/irifrance/gini/z"

	"colaheal/internal/logic"
)

// memberAtom returns the literal for "value is a member of flow", memoized
// per (flow, value) pair.
func (c *Context) memberAtom(flow, value *logic.Symbol) z.Lit {
	key := memberKey{flow: flow.ID(), value: value.ID()}
	if l, ok := c.memAtoms[key]; ok {
		return l
	}
	l := c.solver.Lit()
	c.memAtoms[key] = l
	return l
}

// assertEmptiness asserts a flow is (or is not) empty. A flow is encoded
// extensionally over only the values ever mentioned as members of it, so
// "empty" forces every member atom already minted for this flow false and
// records the flow in emptyFlowSet; a positive membership asserted later for
// that flow is rejected by assertMembership with errContradictoryFlow.
func (c *Context) assertEmptiness(a *logic.InflowEmptinessAxiom) error {
	if a.Empty {
		for key, lit := range c.memAtoms {
			if key.flow == a.Flow.ID() {
				c.assertUnit(lit.Not())
			}
		}
		c.emptyFlowSet[a.Flow.ID()] = true
		return nil
	}
	return nil
}

func (c *Context) assertMembership(a *logic.InflowContainsValueAxiom) error {
	lit := c.memberAtom(a.Flow, a.Value)
	if c.emptyFlowSet[a.Flow.ID()] && !a.Negated {
		return fmt.Errorf("%w: flow already asserted empty cannot also contain a value", errContradictoryFlow)
	}
	if a.Negated {
		c.assertUnit(lit.Not())
	} else {
		c.assertUnit(lit)
	}
	return nil
}

// assertRangeMembership asserts every data value known to fall within
// [Low, High] is a member of Flow. Soundness is preserved by only
// constraining the registered values the order closure can already compare
// against Low/High; values outside the currently-registered key set are
// left unconstrained rather than guessed at, which costs completeness but
// never soundness.
func (c *Context) assertRangeMembership(a *logic.InflowContainsRangeAxiom) error {
	c.registerSymbol(a.Low)
	c.registerSymbol(a.High)
	for k := range c.dataKeys {
		if k == a.Low.ID() || k == a.High.ID() {
			continue
		}
		inRange := c.tseitinAnd(c.leqAtom(a.Low.ID(), k), c.leqAtom(k, a.High.ID()))
		value := c.keySymbol(k)
		if value == nil {
			continue
		}
		member := c.memberAtom(a.Flow, value)
		// inRange -> member
		c.addClause(inRange.Not(), member)
	}
	return nil
}

// keySymbol resolves a previously-registered encoder key back to the
// *logic.Symbol that produced it, needed when a later axiom (a range
// membership assertion) must mint a membership atom for every data key
// seen so far rather than only the ones named directly in the axiom.
func (c *Context) keySymbol(key string) *logic.Symbol {
	return c.symbolsByKey[key]
}

var errContradictoryFlow = fmt.Errorf("contradictory flow axiom")

// addImplication lowers a SeparatingImplication (used only to encode a
// configured invariant blueprint's "if shape then property" clauses) as
// NOT(antecedent) OR consequent.
func (c *Context) addImplication(imp *logic.SeparatingImplication) error {
	ant, err := c.formulaLit(imp.Antecedent)
	if err != nil {
		return err
	}
	cons, err := c.formulaLit(imp.Consequent)
	if err != nil {
		return err
	}
	c.addClause(ant.Not(), cons)
	return nil
}

func (c *Context) addNegated(n *logic.NegatedAxiom) error {
	lit, err := c.formulaLit(n.Inner)
	if err != nil {
		return err
	}
	c.assertUnit(lit.Not())
	return nil
}

// formulaLit lowers a pure (resource-free) formula to a single literal, for
// use inside a SeparatingImplication/NegatedAxiom. Resources and
// obligation/fulfillment markers have no truth value in the decidable
// fragment and are rejected here.
func (c *Context) formulaLit(f logic.Formula) (z.Lit, error) {
	switch x := f.(type) {
	case *logic.StackAxiom:
		left, err := c.exprValue(x.Left)
		if err != nil {
			return z.LitNull, err
		}
		right, err := c.exprValue(x.Right)
		if err != nil {
			return z.LitNull, err
		}
		return c.comparisonLit(x.Op, left, right)
	case *logic.InflowEmptinessAxiom:
		return z.LitNull, fmt.Errorf("inflow emptiness is not liftable to a literal outside an assertion context")
	case *logic.InflowContainsValueAxiom:
		lit := c.memberAtom(x.Flow, x.Value)
		if x.Negated {
			return lit.Not(), nil
		}
		return lit, nil
	case *logic.SeparatingConjunction:
		if len(x.Conjuncts) == 0 {
			return c.trueLit(), nil
		}
		acc, err := c.formulaLit(x.Conjuncts[0])
		if err != nil {
			return z.LitNull, err
		}
		for _, conj := range x.Conjuncts[1:] {
			l, err := c.formulaLit(conj)
			if err != nil {
				return z.LitNull, err
			}
			acc = c.tseitinAnd(acc, l)
		}
		return acc, nil
	case *logic.SeparatingImplication:
		ant, err := c.formulaLit(x.Antecedent)
		if err != nil {
			return z.LitNull, err
		}
		cons, err := c.formulaLit(x.Consequent)
		if err != nil {
			return z.LitNull, err
		}
		return c.tseitinOr(ant.Not(), cons), nil
	case *logic.NegatedAxiom:
		lit, err := c.formulaLit(x.Inner)
		if err != nil {
			return z.LitNull, err
		}
		return lit.Not(), nil
	default:
		return z.LitNull, fmt.Errorf("formula node %T has no truth value in the decidable fragment", f)
	}
}
