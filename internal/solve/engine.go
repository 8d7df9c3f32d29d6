// Package solve is the post-image engine: it symbolically executes a single
// normalized CoLa-light command or statement against a pre-annotation and
// produces the strongest abstraction of the states reachable from it,
// together with the heap effects that step makes visible to other threads.
// The per-command semantics, widening, fulfillment search, and join/unify
// implemented here are the post-image engine of the component design; the
// outer fixed-point loop that drives a whole interface function (iterate a
// loop body, widen, join, test subsumption) is internal/verify's job, not
// this package's — solve only ever takes one step at a time.
package solve

import (
	"fmt"

	"colaheal/internal/ast"
	"colaheal/internal/config"
	"colaheal/internal/encode"
	"colaheal/internal/errors"
	"colaheal/internal/logic"
)

// Signal records which way control left a statement: fell through normally,
// hit a break/continue, or returned from the enclosing function.
type Signal int

const (
	SigNormal Signal = iota
	SigBreak
	SigContinue
	SigReturn
)

func (s Signal) String() string {
	switch s {
	case SigBreak:
		return "break"
	case SigContinue:
		return "continue"
	case SigReturn:
		return "return"
	default:
		return "normal"
	}
}

// Successor is one annotation reaching the end of a post-image step, tagged
// with the control-flow signal it left under. ReturnValue is set only when
// Signal is SigReturn and the enclosing function/macro is non-void.
type Successor struct {
	Annotation  *logic.Annotation
	Signal      Signal
	ReturnValue *logic.Symbol
}

// HeapEffect records a single write to a shared memory resource: the field
// touched, its value before and after, and the command that wrote it. The
// verifier driver turns these into interference Assume steps for every
// other interface function's annotation.
type HeapEffect struct {
	Resource logic.MemoryAxiom
	Field    string
	Before   *logic.Symbol
	After    *logic.Symbol
	Command  string
}

// PostImage is the result of a post-image step: the (possibly empty) set of
// successor annotations, each tagged with its control-flow signal, plus the
// heap effects the step produced. An empty Successors slice means the
// pre-condition collapsed to false and this branch is pruned.
type PostImage struct {
	Successors []Successor
	Effects    []HeapEffect
}

func single(ann *logic.Annotation) *PostImage {
	return &PostImage{Successors: []Successor{{Annotation: ann, Signal: SigNormal}}}
}

// Stats instruments a verification run the way the verifier driver's
// diagnostics surface it: step counts rather than wall-clock time, since the
// wall-clock budget is internal/verify's concern (it owns the timeout).
type Stats struct {
	PostSteps         int
	WideningSteps     int
	JoinSteps         int
	FulfillmentChecks int
	FulfillmentsFound int
}

// Engine is the stateful post-image evaluator for one verification run: the
// structure-specific blueprints, the symbol factory every fresh value/address
// is minted from, and the macro table calls are inlined against. One Engine
// is shared across every interface function of a single program, so every
// function sees the same fresh-symbol namespace and the same macro table.
type Engine struct {
	Config  *config.StructureConfig
	Program *ast.Program
	Factory *logic.SymbolFactory
	Stats   *Stats
}

// NewEngine builds an Engine for prog under cfg, mining every fresh symbol
// from factory.
func NewEngine(prog *ast.Program, cfg *config.StructureConfig, factory *logic.SymbolFactory) *Engine {
	return &Engine{Config: cfg, Program: prog, Factory: factory, Stats: &Stats{}}
}

// context builds a fresh encoder context asserting the configured structure
// invariants over every memory resource in now, plus now itself. Every
// satisfiability and implication query in this package goes through this one
// helper so "what does the encoder see" never drifts between call sites.
func (e *Engine) context(now logic.Formula) (*encode.Context, error) {
	ctx := encode.NewContext()
	if err := e.Config.EncodeInvariants(ctx, now); err != nil {
		return nil, err
	}
	if err := ctx.AddPremise(now); err != nil {
		return nil, err
	}
	return ctx, nil
}

// Implies reports whether now, together with the configured structure
// invariants, proves target. internal/verify's loop fixed point drives this
// as its subsumption test (Implies(previous, current) holds once the
// candidate already proves everything the next iteration could add), rather
// than reaching into this package's unexported context builder itself.
func (e *Engine) Implies(now logic.Formula, target logic.Formula) (bool, error) {
	ctx, err := e.context(now)
	if err != nil {
		return false, err
	}
	return ctx.Implies(target)
}

// Post computes the post-image of a single command. This is PrepareAccess's
// prologue followed by the per-command semantics of the component design.
func (e *Engine) Post(pre *logic.Annotation, cmd ast.Command) (*PostImage, error) {
	e.Stats.PostSteps++
	if err := e.PrepareAccess(pre, cmd); err != nil {
		return nil, err
	}
	switch c := cmd.(type) {
	case *ast.SkipCmd:
		return single(pre.Copy()), nil
	case *ast.BreakCmd:
		return &PostImage{Successors: []Successor{{Annotation: pre.Copy(), Signal: SigBreak}}}, nil
	case *ast.ContinueCmd:
		return &PostImage{Successors: []Successor{{Annotation: pre.Copy(), Signal: SigContinue}}}, nil
	case *ast.AssumeCmd:
		return e.postAssume(pre, c)
	case *ast.AssertCmd:
		return e.postAssert(pre, c)
	case *ast.ReturnCmd:
		return e.postReturn(pre, c)
	case *ast.MallocCmd:
		return e.postMalloc(pre, c)
	case *ast.AssignCmd:
		return e.postAssign(pre, c)
	case *ast.ParAssignCmd:
		return e.postParAssign(pre, c)
	case *ast.MemReadCmd:
		return e.postMemRead(pre, c)
	case *ast.MemWriteCmd:
		return e.postMemWrite(pre, c)
	case *ast.MacroCallCmd:
		return e.postMacroCall(pre, c)
	case *ast.CASCmd:
		return nil, errors.NewUnsupportedConstruct(
			"CASCmd reached the post-image engine; remove_cas should have desugared it first", cmd.NodePos())
	default:
		return nil, errors.NewUnsupportedConstruct(fmt.Sprintf("%T", cmd), cmd.NodePos())
	}
}

// commandVarRefs returns every program variable PrepareAccess must find an
// EqualsToAxiom for: everything ast.StmtVarRefs would report for cmd lifted
// to statement position, which already covers both read and written
// variables (including write targets, since CoLa-light requires every
// variable to be declared - and hence already bound - before its first
// assignment).
func commandVarRefs(cmd ast.Command) []*ast.VarDecl {
	return ast.StmtVarRefs(&ast.CmdStmt{Cmd: cmd})
}

// commandDerefs returns the DerefExprs a command reads or writes through.
func commandDerefs(cmd ast.Command) []*ast.DerefExpr {
	switch c := cmd.(type) {
	case *ast.MemReadCmd:
		return c.Rhs
	case *ast.MemWriteCmd:
		return c.Lhs
	default:
		return nil
	}
}

// lookupVar finds the symbol currently bound to v in now, if any.
func lookupVar(now logic.Formula, v *ast.VarDecl) (*logic.Symbol, bool) {
	for _, e := range logic.Collect[*logic.EqualsToAxiom](now, func(e *logic.EqualsToAxiom) bool { return e.Var == v }) {
		return e.Value, true
	}
	return nil, false
}

// lookupMemory finds the memory axiom whose node address is addr, if any.
func lookupMemory(now logic.Formula, addr *logic.Symbol) logic.MemoryAxiom {
	for _, m := range logic.Collect[logic.MemoryAxiom](now, func(m logic.MemoryAxiom) bool { return m.Node() == addr }) {
		return m
	}
	return nil
}

// rebindVar replaces v's EqualsToAxiom value with val, appending a fresh one
// if v was not already bound (never the case once PrepareAccess has run).
func rebindVar(now logic.Formula, v *ast.VarDecl, val *logic.Symbol) logic.Formula {
	sc := logic.Conjoin(now)
	for i, c := range sc.Conjuncts {
		if eq, ok := c.(*logic.EqualsToAxiom); ok && eq.Var == v {
			sc.Conjuncts[i] = &logic.EqualsToAxiom{Var: v, Value: val}
			return sc
		}
	}
	sc.Conjuncts = append(sc.Conjuncts, &logic.EqualsToAxiom{Var: v, Value: val})
	return sc
}
