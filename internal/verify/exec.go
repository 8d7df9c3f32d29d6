package verify

import (
	"colaheal/internal/ast"
	"colaheal/internal/errors"
	"colaheal/internal/logic"
	"colaheal/internal/solve"
)

// execStmt mirrors internal/solve.PostStmt's dispatch over the structuring
// statement forms, but it is a distinct, self-recursive implementation: a
// LoopStmt encountered anywhere in the tree — including one nested inside
// another loop's body — gets its own independent fixed-point computation at
// the moment execStmt reaches it, rather than taking the single step
// solve.PostStmt takes. Everything else (Seq/Scope/Atomic/Choice) just
// delegates composition to the engine's own per-command Post and recurses
// into itself for sub-statements.
func (d *Driver) execStmt(pre *logic.Annotation, s ast.Stmt) (*solve.PostImage, error) {
	switch st := s.(type) {
	case *ast.CmdStmt:
		return d.Engine.Post(pre, st.Cmd)
	case *ast.SeqStmt:
		return d.execSeq(pre, st)
	case *ast.ScopeStmt:
		return d.execScope(pre, st)
	case *ast.AtomicStmt:
		return d.execStmt(pre, st.Body)
	case *ast.ChoiceStmt:
		return d.execChoice(pre, st)
	case *ast.LoopStmt:
		return d.execLoop(pre, st)
	default:
		return nil, errors.NewUnsupportedConstruct(s.String()+" (not fully normalized)", s.NodePos())
	}
}

func (d *Driver) execSeq(pre *logic.Annotation, st *ast.SeqStmt) (*solve.PostImage, error) {
	first, err := d.execStmt(pre, st.First)
	if err != nil {
		return nil, err
	}
	out := &solve.PostImage{Effects: first.Effects}
	for _, suc := range first.Successors {
		if suc.Signal != solve.SigNormal {
			out.Successors = append(out.Successors, suc)
			continue
		}
		second, err := d.execStmt(suc.Annotation, st.Second)
		if err != nil {
			return nil, err
		}
		out.Effects = append(out.Effects, second.Effects...)
		out.Successors = append(out.Successors, second.Successors...)
	}
	return out, nil
}

func (d *Driver) execScope(pre *logic.Annotation, st *ast.ScopeStmt) (*solve.PostImage, error) {
	entered, err := d.Engine.PostEnterScope(pre, st.Decls, st.NodePos())
	if err != nil {
		return nil, err
	}
	body, err := d.execStmt(entered, st.Body)
	if err != nil {
		return nil, err
	}
	out := &solve.PostImage{Effects: body.Effects}
	for _, suc := range body.Successors {
		left, err := d.Engine.PostLeaveScope(suc.Annotation, st.Decls, st.NodePos())
		if err != nil {
			return nil, err
		}
		out.Successors = append(out.Successors, solve.Successor{
			Annotation:  left,
			Signal:      suc.Signal,
			ReturnValue: suc.ReturnValue,
		})
	}
	return out, nil
}

func (d *Driver) execChoice(pre *logic.Annotation, st *ast.ChoiceStmt) (*solve.PostImage, error) {
	out := &solve.PostImage{}
	for _, branch := range st.Branches {
		img, err := d.execStmt(pre.Copy(), branch)
		if err != nil {
			return nil, err
		}
		out.Successors = append(out.Successors, img.Successors...)
		out.Effects = append(out.Effects, img.Effects...)
	}
	return out, nil
}

// execLoop drives LoopStmt's body to a genuine fixed point: run the body,
// join its continue/fall-through successors, widen the join, apply loop
// interference and fulfillment search to it, and stop once
// Implies(candidate.Now, widened.Now) holds — the candidate already proves
// everything the next iteration could add, so iterating further can only
// ever re-derive what is already known; otherwise the widened annotation is
// the next round's candidate. Each round collects its own break/return
// successors: once the candidate stabilizes, those of that final stable
// round are the loop's exits (earlier rounds' break successors are subsumed
// by the candidate growing to include them, so only the last round's matter).
func (d *Driver) execLoop(pre *logic.Annotation, st *ast.LoopStmt) (*solve.PostImage, error) {
	candidate := pre.Copy()
	out := &solve.PostImage{}

	for iter := 0; iter < d.maxLoopIterations; iter++ {
		d.Stats.FixedPointIterations++
		body, err := d.execStmt(candidate.Copy(), st.Body)
		if err != nil {
			return nil, err
		}
		out.Effects = append(out.Effects, body.Effects...)

		var continues []*logic.Annotation
		var exits []solve.Successor
		for _, suc := range body.Successors {
			switch suc.Signal {
			case solve.SigBreak:
				exits = append(exits, solve.Successor{Annotation: suc.Annotation, Signal: solve.SigNormal})
			case solve.SigContinue, solve.SigNormal:
				continues = append(continues, suc.Annotation)
			case solve.SigReturn:
				exits = append(exits, suc)
			}
		}

		if len(continues) == 0 {
			// The body never falls through or continues (every path breaks
			// or returns): the loop runs exactly once, the candidate never
			// needs widening.
			out.Successors = exits
			return out, nil
		}

		joined, err := d.Engine.Join(continues)
		if err != nil {
			return nil, err
		}
		widened, err := d.Engine.Widen(joined)
		if err != nil {
			return nil, err
		}
		widened, err = d.applyLoopInterference(widened)
		if err != nil {
			return nil, err
		}
		widened, err = d.Engine.FulfillmentSearch(widened)
		if err != nil {
			return nil, err
		}

		stable, err := d.Engine.Implies(candidate.Now, widened.Now)
		if err != nil {
			return nil, err
		}
		if stable {
			out.Successors = exits
			return out, nil
		}
		candidate = widened
	}

	return nil, errors.NewTransformationError(errors.ErrorLoopDidNotConverge,
		"loop fixed point did not stabilize within the iteration bound", st.NodePos())
}
