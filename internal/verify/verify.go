// Package verify is the verifier driver: it symbolically executes a whole
// interface function's body, owns the loop fixed point the post-image
// engine deliberately does not (sequence/scope/atomic/choice composition
// mirrors internal/solve's, but a LoopStmt here genuinely iterates —
// post-image, widen, join, subsumption test — rather than taking a single
// step), applies cross-thread interference between heap effects, and
// reports a per-function verdict with its own process exit code.
package verify

import (
	"time"

	"github.com/tliron/commonlog"

	"colaheal/internal/ast"
	"colaheal/internal/config"
	"colaheal/internal/errors"
	"colaheal/internal/logic"
	"colaheal/internal/solve"
)

// Verdict is the externally visible outcome of verifying one interface
// function.
type Verdict int

const (
	Linearizable Verdict = iota
	NotLinearizable
	VerificationError
)

func (v Verdict) String() string {
	switch v {
	case Linearizable:
		return "LINEARIZABLE"
	case NotLinearizable:
		return "NOT-LINEARIZABLE"
	default:
		return "VERIFICATION-ERROR"
	}
}

// ExitCode maps a Verdict (or, for a fatal driver-level failure, nil) to a
// process exit code: 0 LINEARIZABLE, 1 NOT-LINEARIZABLE, 2 assertion/parse/
// transform error, 3 internal error.
func (v Verdict) ExitCode(err *errors.VerificationError) int {
	switch v {
	case Linearizable:
		return 0
	case NotLinearizable:
		return 1
	default:
		if err != nil && err.Kind.Fatal() {
			return 3
		}
		return 2
	}
}

// FunctionResult is one interface function's verification outcome.
type FunctionResult struct {
	Function   *ast.Function
	Verdict    Verdict
	Err        *errors.VerificationError
	Annotation string // the stable end-of-function annotation, human-readable
}

// Stats aggregates timing and step-count instrumentation for a verification
// run: one loop fixed-point iteration count summed over every function,
// plus the post-image
// engine's own Stats, and the wall time spent verifying the whole program.
type Stats struct {
	Engine               *solve.Stats
	FixedPointIterations int
	FunctionsVerified    int
	Elapsed              time.Duration
}

// Driver runs the verifier over a whole program: one Engine shared across
// every interface function (mirroring internal/solve's own single-Engine-
// per-program design), a logger passed explicitly rather than held as a
// package-level singleton so no two concurrent runs share mutable state,
// and the Stats this run accumulates.
type Driver struct {
	Program *ast.Program
	Config  *config.StructureConfig
	Engine  *solve.Engine
	Logger  commonlog.Logger
	Stats   *Stats

	maxLoopIterations  int
	currentInterference []solve.HeapEffect
}

// NewDriver builds a Driver for prog under cfg. logger may be nil, in which
// case diagnostics are simply not emitted (never a panic) — callers that
// want LSP-visible tracing pass commonlog.GetLogger("colaheal.verify").
func NewDriver(prog *ast.Program, cfg *config.StructureConfig, logger commonlog.Logger) *Driver {
	factory := logic.NewSymbolFactory()
	engine := solve.NewEngine(prog, cfg, factory)
	return &Driver{
		Program:           prog,
		Config:            cfg,
		Engine:            engine,
		Logger:            logger,
		Stats:             &Stats{Engine: engine.Stats},
		maxLoopIterations: 256,
	}
}

func (d *Driver) logf(format string, args ...interface{}) {
	if d.Logger != nil {
		d.Logger.Infof(format, args...)
	}
}

// VerifyAll runs every interface function in d.Program to a verdict. A
// shared-memory write in one function is interference every other
// function's reads must account for; VerifyAll therefore runs the
// whole program in successive rounds, feeding the accumulated heap-effect
// set from round N into round N+1's interference application, and stops
// once a round produces no heap effect absent from the previous round's set
// — the same shape as the per-loop fixed point, one level up.
func (d *Driver) VerifyAll() ([]*FunctionResult, error) {
	start := time.Now()
	defer func() { d.Stats.Elapsed = time.Since(start) }()

	init, err := d.runInit()
	if err != nil {
		return nil, err
	}

	var effects []solve.HeapEffect
	var results []*FunctionResult
	const maxRounds = 8
	for round := 0; round < maxRounds; round++ {
		results = nil
		var roundEffects []solve.HeapEffect
		for _, fn := range d.Program.InterfaceFunctions() {
			res, fnEffects := d.verifyFunction(fn, init, effects)
			results = append(results, res)
			roundEffects = append(roundEffects, fnEffects...)
		}
		if !growsEffectSet(effects, roundEffects) {
			return results, nil
		}
		effects = mergeEffects(effects, roundEffects)
		d.logf("interference round %d produced %d heap effects, re-verifying", round+1, len(effects))
	}
	return results, nil
}

// runInit symbolically executes the program initializer once, after binding
// every global declaration via PostEnterScope, and returns the resulting
// annotation every interface function's run starts from (a copy of it,
// extended with that function's own parameter scope).
func (d *Driver) runInit() (*logic.Annotation, error) {
	start := logic.NewAnnotation(logic.Emp())
	pos := ast.Position{}
	if d.Program.Init != nil {
		pos = d.Program.Init.NodePos()
	}
	entered, err := d.Engine.PostEnterScope(start, d.Program.Globals, pos)
	if err != nil {
		return nil, err
	}
	if d.Program.Init == nil {
		return entered, nil
	}
	img, err := d.execStmt(entered, d.Program.Init)
	if err != nil {
		return nil, err
	}
	if len(img.Successors) != 1 {
		return nil, errors.NewTransformationError(errors.ErrorInitNotDeterministic,
			"__init__ must produce exactly one normal outcome", pos)
	}
	return img.Successors[0].Annotation, nil
}

// verifyFunction runs one interface function to a verdict. A VerificationError
// raised anywhere inside the body aborts just this function; it never
// aborts the sibling functions in the same round.
func (d *Driver) verifyFunction(fn *ast.Function, init *logic.Annotation, interference []solve.HeapEffect) (*FunctionResult, []solve.HeapEffect) {
	d.Stats.FunctionsVerified++
	d.currentInterference = interference
	pre, err := d.Engine.PostEnterScope(init.Copy(), fn.Params, fn.NodePos())
	if err != nil {
		return errResult(fn, err), nil
	}
	pre = d.applyInterference(pre, interference)

	img, err := d.execStmt(pre, fn.Body)
	if err != nil {
		return errResult(fn, err), nil
	}

	var finals []*logic.Annotation
	for _, suc := range img.Successors {
		finals = append(finals, suc.Annotation)
	}
	final, err := d.Engine.Join(finals)
	if err != nil {
		return errResult(fn, err), nil
	}
	final, err = d.Engine.FulfillmentSearch(final)
	if err != nil {
		return errResult(fn, err), nil
	}

	if _, undischarged := final.UndischargedObligation(); undischarged {
		return &FunctionResult{
			Function:   fn,
			Verdict:    NotLinearizable,
			Annotation: final.String(),
		}, img.Effects
	}
	return &FunctionResult{
		Function:   fn,
		Verdict:    Linearizable,
		Annotation: final.String(),
	}, img.Effects
}

func errResult(fn *ast.Function, err error) *FunctionResult {
	ve, ok := err.(*errors.VerificationError)
	if !ok {
		ve = errors.NewSolvingError(err.Error(), fn.NodePos())
	}
	return &FunctionResult{Function: fn, Verdict: VerificationError, Err: ve}
}

func growsEffectSet(have, found []solve.HeapEffect) bool {
	for _, f := range found {
		if !containsEffect(have, f) {
			return true
		}
	}
	return false
}

func mergeEffects(have, found []solve.HeapEffect) []solve.HeapEffect {
	out := append([]solve.HeapEffect{}, have...)
	for _, f := range found {
		if !containsEffect(out, f) {
			out = append(out, f)
		}
	}
	return out
}

func containsEffect(have []solve.HeapEffect, f solve.HeapEffect) bool {
	for _, h := range have {
		if h.Field == f.Field && h.After == f.After && h.Before == f.Before {
			return true
		}
	}
	return false
}
