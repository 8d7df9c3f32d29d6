package verify

import (
	"colaheal/internal/ast"
	"colaheal/internal/logic"
	"colaheal/internal/solve"
)

// applyInterference is a simplified interference model: arbitrary thread
// interleaving means any shared resource's field that
// some interface function was ever seen to write could, in principle, have
// been changed by another thread between any two of this function's steps.
// The logic layer has no disjunctive heap-update connective to state
// "became one of these N previously observed values" precisely, so this
// havocs the field to a completely fresh symbol instead — forgetting the
// old value is always a sound over-approximation in this abstract domain,
// it just costs precision the way widening already does. effects is the
// accumulated cross-function heap-effect set from previous VerifyAll
// rounds (see VerifyAll's round-to-fixed-point loop); a field with no
// recorded effect for it is left alone.
func (d *Driver) applyInterference(ann *logic.Annotation, effects []solve.HeapEffect) *logic.Annotation {
	if len(effects) == 0 {
		return ann
	}
	fields := map[string]bool{}
	for _, e := range effects {
		fields[e.Field] = true
	}
	out := ann.Copy()
	for _, m := range logic.Collect[logic.MemoryAxiom](out.Now, func(m logic.MemoryAxiom) bool { return m.Shared() }) {
		for name, val := range m.Fields() {
			if !fields[name] {
				continue
			}
			fresh := d.Engine.Factory.Fresh(name+"$itf", fieldSort(d, name), logic.FirstOrder)
			out.Now = logic.Replace(out.Now, val, fresh)
		}
	}
	return out
}

// applyLoopInterference applies the same havoc using the interference set
// the currently running verifyFunction call was given, at every widen point
// inside a loop's fixed point — a shared field written anywhere in the
// program could equally well have changed during any number of loop
// iterations, not just once at function entry.
func (d *Driver) applyLoopInterference(ann *logic.Annotation) (*logic.Annotation, error) {
	return d.applyInterference(ann, d.currentInterference), nil
}

func fieldSort(d *Driver, name string) *ast.Type {
	if d.Config != nil && d.Config.NodeType != nil {
		if ft, ok := d.Config.NodeType.Fields[name]; ok {
			return ft
		}
	}
	return ast.DataType
}
