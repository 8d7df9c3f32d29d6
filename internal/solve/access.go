package solve

import (
	"fmt"

	"colaheal/internal/ast"
	"colaheal/internal/errors"
	"colaheal/internal/logic"
)

// PrepareAccess is the common prologue every command runs through before its
// own post-image: every variable the command reads or writes must already
// have a bound value (a), every dereferenced pointer that is not yet backed
// by a resource gets one conjured via MakeMemoryAccessible (b), and finally
// every dereference really is backed by a memory axiom (c) - the combination
// invariant I4 (access safety) requires before a MemoryRead/MemoryWrite can
// proceed.
func (e *Engine) PrepareAccess(pre *logic.Annotation, cmd ast.Command) error {
	pos := cmd.NodePos()
	for _, v := range commandVarRefs(cmd) {
		if _, ok := lookupVar(pre.Now, v); !ok {
			return errors.NewAccessError(errors.ErrorMissingResource,
				fmt.Sprintf("variable %q has no bound value in scope", v.Name), pos).WithCommand(cmd)
		}
	}
	if err := e.MakeMemoryAccessible(pre, cmd); err != nil {
		return err
	}
	for _, d := range commandDerefs(cmd) {
		addr, err := e.evalSymbol(pre.Now, d.Target)
		if err != nil {
			return errors.NewUnsafeDereference(d.String(), pos).WithCommand(cmd)
		}
		if lookupMemory(pre.Now, addr) == nil {
			return errors.NewAccessError(errors.ErrorMissingMemoryAxiom,
				fmt.Sprintf("no memory axiom backs dereference %s", d.String()), pos).WithCommand(cmd)
		}
	}
	return nil
}

// MakeMemoryAccessible conjures a fresh shared-memory resource for every
// pointer-sorted dereference target in cmd that is not already backed by one,
// pruning any target the encoder already knows to be null (dereferencing
// those is left to PrepareAccess's final check, which reports it as an
// unsafe dereference rather than silently materializing a resource at null).
func (e *Engine) MakeMemoryAccessible(pre *logic.Annotation, cmd ast.Command) error {
	for _, d := range commandDerefs(cmd) {
		addr, err := e.evalSymbol(pre.Now, d.Target)
		if err != nil {
			continue // surfaces later as an unsafe-dereference error
		}
		if addr.Type == nil || addr.Type.Sort != ast.SortPointer {
			continue
		}
		if lookupMemory(pre.Now, addr) != nil {
			continue
		}
		ctx, err := e.context(pre.Now)
		if err != nil {
			return err
		}
		if ctx.ImpliesIsNull(addr) {
			continue
		}
		pre.Now = logic.Conjoin(pre.Now, e.freshSharedAt(addr))
	}
	return nil
}

// freshSharedAt builds a fresh SharedMemoryCore whose node address is the
// already-existing symbol addr (rather than a newly minted one, the way
// logic.MakeSharedMemory would) - the resource describes the node addr
// already refers to, it does not allocate a new one.
func (e *Engine) freshSharedAt(addr *logic.Symbol) *logic.SharedMemoryCore {
	fields := make(map[string]*logic.Symbol, len(addr.Type.Fields))
	for name, ft := range addr.Type.Fields {
		fields[name] = e.Factory.Fresh(name, ft, logic.FirstOrder)
	}
	return &logic.SharedMemoryCore{
		NodeSym:   addr,
		FlowSym:   e.Factory.Fresh("flow", e.Config.FlowValueType, logic.SecondOrder),
		FieldVals: fields,
	}
}
