package solve

import (
	"colaheal/internal/ast"
	"colaheal/internal/errors"
	"colaheal/internal/logic"
)

// PostStmt composes Post over the structuring statement forms. It runs a
// LoopStmt's body exactly once and returns whatever successors that single
// iteration produces (a SigBreak successor becomes a SigNormal one falling
// out of the loop, a SigContinue one feeds right back as a fresh iteration's
// precondition) - driving the iteration to a fixed point by repeatedly
// calling PostStmt, widening, and joining is internal/verify's job.
func (e *Engine) PostStmt(pre *logic.Annotation, s ast.Stmt) (*PostImage, error) {
	switch st := s.(type) {
	case *ast.CmdStmt:
		return e.Post(pre, st.Cmd)
	case *ast.SeqStmt:
		return e.postSeq(pre, st)
	case *ast.ScopeStmt:
		return e.postScope(pre, st)
	case *ast.AtomicStmt:
		return e.PostStmt(pre, st.Body)
	case *ast.ChoiceStmt:
		return e.postChoice(pre, st)
	case *ast.LoopStmt:
		return e.postLoopStep(pre, st)
	default:
		return nil, errors.NewUnsupportedConstruct(s.String()+" (not fully normalized)", s.NodePos())
	}
}

func (e *Engine) postSeq(pre *logic.Annotation, st *ast.SeqStmt) (*PostImage, error) {
	first, err := e.PostStmt(pre, st.First)
	if err != nil {
		return nil, err
	}
	out := &PostImage{Effects: first.Effects}
	for _, suc := range first.Successors {
		if suc.Signal != SigNormal {
			out.Successors = append(out.Successors, suc)
			continue
		}
		second, err := e.PostStmt(suc.Annotation, st.Second)
		if err != nil {
			return nil, err
		}
		out.Effects = append(out.Effects, second.Effects...)
		out.Successors = append(out.Successors, second.Successors...)
	}
	return out, nil
}

func (e *Engine) postScope(pre *logic.Annotation, st *ast.ScopeStmt) (*PostImage, error) {
	entered, err := e.PostEnterScope(pre, st.Decls, st.NodePos())
	if err != nil {
		return nil, err
	}
	body, err := e.PostStmt(entered, st.Body)
	if err != nil {
		return nil, err
	}
	out := &PostImage{Effects: body.Effects}
	for _, suc := range body.Successors {
		left, err := e.PostLeaveScope(suc.Annotation, st.Decls, st.NodePos())
		if err != nil {
			return nil, err
		}
		out.Successors = append(out.Successors, Successor{
			Annotation:  left,
			Signal:      suc.Signal,
			ReturnValue: suc.ReturnValue,
		})
	}
	return out, nil
}

func (e *Engine) postChoice(pre *logic.Annotation, st *ast.ChoiceStmt) (*PostImage, error) {
	out := &PostImage{}
	for _, branch := range st.Branches {
		img, err := e.PostStmt(pre.Copy(), branch)
		if err != nil {
			return nil, err
		}
		out.Successors = append(out.Successors, img.Successors...)
		out.Effects = append(out.Effects, img.Effects...)
	}
	return out, nil
}

// postLoopStep runs the loop body for one iteration: a SigBreak successor
// exits the loop (becomes SigNormal), a SigContinue successor's annotation is
// itself a valid post-loop-step annotation (the next iteration's precondition,
// left for the caller to feed back in), and a SigNormal successor having
// fallen off the end of the body is treated the same as SigContinue - the
// loop has no implicit exit test, only `break` ends it.
func (e *Engine) postLoopStep(pre *logic.Annotation, st *ast.LoopStmt) (*PostImage, error) {
	body, err := e.PostStmt(pre, st.Body)
	if err != nil {
		return nil, err
	}
	out := &PostImage{Effects: body.Effects}
	for _, suc := range body.Successors {
		switch suc.Signal {
		case SigBreak:
			out.Successors = append(out.Successors, Successor{Annotation: suc.Annotation, Signal: SigNormal})
		case SigContinue, SigNormal:
			out.Successors = append(out.Successors, Successor{Annotation: suc.Annotation, Signal: SigContinue})
		case SigReturn:
			out.Successors = append(out.Successors, suc)
		}
	}
	return out, nil
}
