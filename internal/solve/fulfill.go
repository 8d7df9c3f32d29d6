package solve

import (
	"colaheal/internal/ast"
	"colaheal/internal/logic"
)

// FulfillmentSearch looks for a linearization point: for each obligation in
// ann with no matching fulfillment yet, it asks whether the configured
// logically_contains blueprint, instantiated against every memory resource
// currently in scope, can be proved either to hold or to fail to hold right
// now, or against any past predicate's speculative premise (the state as it
// stood at some earlier program point, conjoined with the present). Either a
// positive or a negative proof is a linearization point: the operation's
// result was already fixed at that moment, whichever way it went, so a fresh
// Boolean symbol records which.
func (e *Engine) FulfillmentSearch(ann *logic.Annotation) (*logic.Annotation, error) {
	out := ann.Copy()
	for _, ob := range pendingObligations(out) {
		e.Stats.FulfillmentChecks++
		fl, constraint, ok, err := e.tryDischarge(out, ob)
		if err != nil {
			return nil, err
		}
		if ok {
			e.Stats.FulfillmentsFound++
			out.Now = logic.Conjoin(out.Now, fl, constraint)
		}
	}
	return out, nil
}

func pendingObligations(ann *logic.Annotation) []*logic.ObligationAxiom {
	fulfilled := ann.Fulfillments()
	var pending []*logic.ObligationAxiom
	for _, ob := range ann.Obligations() {
		matched := false
		for _, fl := range fulfilled {
			if fl.Matches(ob) {
				matched = true
				break
			}
		}
		if !matched {
			pending = append(pending, ob)
		}
	}
	return pending
}

// tryDischarge attempts to prove or refute o against every memory resource
// currently held, first under the present state and then under each past
// predicate's premise conjoined with the present. The first resource/premise
// pair that settles the question wins; there is no preference between a
// positive and a negative proof, since both are equally valid linearization
// points.
func (e *Engine) tryDischarge(ann *logic.Annotation, o *logic.ObligationAxiom) (*logic.FulfillmentAxiom, logic.Formula, bool, error) {
	if e.Config.LogicallyContains == nil {
		return nil, nil, false, nil
	}
	premises := []logic.Formula{ann.Now}
	for _, p := range ann.Past {
		premises = append(premises, logic.Conjoin(ann.Now, p.Body))
	}
	for _, premise := range premises {
		ctx, err := e.context(premise)
		if err != nil {
			return nil, nil, false, err
		}
		for _, m := range logic.Collect[logic.MemoryAxiom](premise, nil) {
			claim := e.Config.LogicallyContains.Instantiate(m, o.Arg)
			pos, err := ctx.Implies(claim)
			if err != nil {
				return nil, nil, false, err
			}
			if pos {
				fl := e.makeFulfillment(o, true)
				constraint := &logic.StackAxiom{Op: ast.OpEq, Left: &ast.SymbolicExpr{Sym: fl.Result}, Right: &ast.BoolExpr{Value: true}}
				return fl, constraint, true, nil
			}
			neg, err := ctx.Implies(&logic.NegatedAxiom{Inner: claim})
			if err != nil {
				return nil, nil, false, err
			}
			if neg {
				fl := e.makeFulfillment(o, false)
				constraint := &logic.StackAxiom{Op: ast.OpEq, Left: &ast.SymbolicExpr{Sym: fl.Result}, Right: &ast.BoolExpr{Value: false}}
				return fl, constraint, true, nil
			}
		}
	}
	return nil, nil, false, nil
}

// makeFulfillment mints a fresh Boolean symbol standing for the operation's
// outcome at this linearization point; the caller conjoins an equality
// constraint fixing it to the proved outcome.
func (e *Engine) makeFulfillment(o *logic.ObligationAxiom, result bool) *logic.FulfillmentAxiom {
	sym := e.Factory.Fresh("linPoint", ast.BoolType, logic.FirstOrder)
	return &logic.FulfillmentAxiom{Kind: o.Kind, Arg: o.Arg, Result: sym}
}
