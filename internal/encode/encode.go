package encode

import (
	"fmt"

	"colaheal/internal/logic"
)

// AddPremise lowers f and asserts it in the current frame. Resource shape
// (LocalMemoryResource/SharedMemoryCore) only registers the resource's node
// address and field value symbols with the encoder; no field-selector
// equality is asserted for them, so two resources at provably equal
// addresses are not forced to agree on their field values; obligation/fulfillment axioms
// carry no SMT content of their own (they are solver-external bookkeeping)
// and are skipped; everything else asserts into the decidable fragment
// described in lower.go/flow.go.
func (c *Context) AddPremise(f logic.Formula) error {
	switch x := f.(type) {
	case nil:
		return nil
	case *logic.LocalMemoryResource:
		return c.addMemoryAxiom(x)
	case *logic.SharedMemoryCore:
		return c.addMemoryAxiom(x)
	case *logic.EqualsToAxiom:
		// The variable/symbol link itself has no SMT content; its purpose
		// is annotation bookkeeping the solve package consults directly.
		return nil
	case *logic.StackAxiom:
		left, err := c.exprValue(x.Left)
		if err != nil {
			return err
		}
		right, err := c.exprValue(x.Right)
		if err != nil {
			return err
		}
		lits, err := c.compareLits(x.Op, left, right)
		if err != nil {
			return newEncodingErrorf("stack axiom %s: %v", x, err)
		}
		for _, l := range lits {
			c.assertUnit(l)
		}
		return nil
	case *logic.InflowEmptinessAxiom:
		return c.assertEmptiness(x)
	case *logic.InflowContainsValueAxiom:
		return c.assertMembership(x)
	case *logic.InflowContainsRangeAxiom:
		return c.assertRangeMembership(x)
	case *logic.ObligationAxiom, *logic.FulfillmentAxiom:
		return nil
	case *logic.SeparatingConjunction:
		for _, conj := range x.Conjuncts {
			if err := c.AddPremise(conj); err != nil {
				return err
			}
		}
		return nil
	case *logic.SeparatingImplication:
		return c.addImplication(x)
	case *logic.NegatedAxiom:
		return c.addNegated(x)
	default:
		return newEncodingErrorf("unsupported formula node %T", f)
	}
}

func (c *Context) addMemoryAxiom(m logic.MemoryAxiom) error {
	for _, fieldSym := range m.Fields() {
		c.registerSymbol(fieldSym)
	}
	c.registerSymbol(m.Node())
	return nil
}

func newEncodingErrorf(format string, args ...any) error {
	return newEncodingError(fmt.Sprintf(format, args...), nil)
}
