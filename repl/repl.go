// Package repl is an interactive CoLa-light evaluator: it reads one
// statement at a time, reparses the running session into a throwaway
// function body, and threads the new statement through the post-image
// engine from the session's current annotation, printing whatever
// annotation(s) come out.
//
// It does not replay history through the engine on every line — only the
// session's accumulated struct/shared/var declarations are reparsed each
// time, purely so name and type resolution sees them. The actual heap
// state advances by calling solve.Engine.PostStmt exactly once per
// statement the user types, threaded from the annotation the previous
// statement left behind.
package repl

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"colaheal/grammar"
	"colaheal/internal/ast"
	"colaheal/internal/config"
	"colaheal/internal/errors"
	"colaheal/internal/logic"
	"colaheal/internal/solve"
)

const PROMPT = "cola> "

const replFuncName = "__repl__"

// session accumulates everything needed to keep reparsing a growing
// .cola-light program header (structs, shared vars, local vars) around
// whatever single statement the user just typed.
type session struct {
	cfg     *config.StructureConfig
	factory *logic.SymbolFactory

	header []string // struct/shared declarations, source text, one per line
	locals []string // "var x: t;" declarations, source text, one per line

	current *logic.Annotation
}

func newSession(cfg *config.StructureConfig) *session {
	return &session{
		cfg:     cfg,
		factory: logic.NewSymbolFactory(),
		current: logic.NewAnnotation(logic.Emp()),
	}
}

func (s *session) reset() {
	s.header = nil
	s.locals = nil
	s.factory = logic.NewSymbolFactory()
	s.current = logic.NewAnnotation(logic.Emp())
}

// source renders the session's header plus one body, where body is the text
// to place as the sole content of a synthetic interface function.
func (s *session) source(body string) string {
	var b strings.Builder
	for _, h := range s.header {
		b.WriteString(h)
		b.WriteString("\n")
	}
	b.WriteString("interface fun " + replFuncName + "(): void {\n")
	for _, l := range s.locals {
		b.WriteString(l)
		b.WriteString("\n")
	}
	b.WriteString(body)
	b.WriteString("\n}\n")
	return b.String()
}

// parseBody parses and converts src, returning the lone function it must
// declare (replFuncName) and any error, rendered through the ordinary
// caret-style reporter so session-level parse mistakes read the same as a
// file's would.
func (s *session) parseBody(src string) (*ast.Function, error) {
	prog, err := grammar.ParseString("<repl>", src)
	if err != nil {
		return nil, err
	}
	for _, fn := range prog.Functions {
		if fn.Name == replFuncName {
			return fn, nil
		}
	}
	return nil, fmt.Errorf("internal error: synthetic function %s missing from parse", replFuncName)
}

// Start runs the read-eval-print loop against in/out until EOF or the user
// types :quit. cfg selects the structure invariants the post-image engine
// checks memory accesses against — callers pick one with
// config.GetStructureConfig, the same way cmd/colaheal-cli's -config flag does.
func Start(in io.Reader, out io.Writer, cfg *config.StructureConfig) {
	scanner := bufio.NewScanner(in)
	sess := newSession(cfg)

	fmt.Fprintln(out, "colaheal repl — structure:", cfg.Name)
	fmt.Fprintln(out, "type a statement, a 'var x: t;' declaration, a 'struct'/'shared' declaration,")
	fmt.Fprintln(out, "or one of :reset :show :quit")

	for {
		fmt.Fprint(out, PROMPT)
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch {
		case line == ":quit" || line == ":exit":
			return
		case line == ":reset":
			sess.reset()
			fmt.Fprintln(out, "(session reset)")
		case line == ":show":
			fmt.Fprintln(out, sess.current.String())
		case strings.HasPrefix(line, "struct ") || strings.HasPrefix(line, "shared "):
			sess.evalHeader(out, line)
		case strings.HasPrefix(line, "var "):
			sess.evalLocal(out, line)
		default:
			sess.evalStmt(out, line)
		}
	}
}

// evalHeader validates line as a struct/shared declaration against the
// session's accumulated header before committing it — a bad declaration
// must not corrupt future turns.
func (s *session) evalHeader(out io.Writer, line string) {
	candidate := append(append([]string{}, s.header...), line)
	src := strings.Join(candidate, "\n") + "\n"
	if _, err := grammar.ParseString("<repl>", src); err != nil {
		reportError(out, src, err)
		return
	}
	s.header = candidate
	fmt.Fprintln(out, "(declared)")
}

// evalLocal validates and (on success) both commits line as a local
// declaration and binds the fresh variable into the current annotation via
// the engine's own scope-entry step, so it can appear in later statements'
// expressions right away.
func (s *session) evalLocal(out io.Writer, line string) {
	candidate := append(append([]string{}, s.locals...), line)
	src := s.sourceWithLocals(candidate, "skip;")
	fn, err := s.parseBody(src)
	if err != nil {
		reportError(out, src, err)
		return
	}
	scope, ok := fn.Body.(*ast.ScopeStmt)
	if !ok || len(scope.Decls) == 0 {
		fmt.Fprintln(out, "error: expected a local declaration")
		return
	}
	fresh := scope.Decls[len(scope.Decls)-1]

	engine := solve.NewEngine(&ast.Program{}, s.cfg, s.factory)
	next, err := engine.PostEnterScope(s.current, []*ast.VarDecl{fresh}, fn.NodePos())
	if err != nil {
		fmt.Fprintln(out, "error:", err)
		return
	}
	s.locals = candidate
	s.current = next
	fmt.Fprintln(out, "(declared)", fresh.Name, ":", fresh.Type.String())
}

func (s *session) sourceWithLocals(locals []string, body string) string {
	saved := s.locals
	s.locals = locals
	src := s.source(body)
	s.locals = saved
	return src
}

// evalStmt parses line as the sole statement of a fresh synthetic function
// body, unwraps the ScopeStmt convertBlock always wraps a body in (the
// session's own persistent var bindings already exist in s.current, so
// re-entering that scope here would only rebind them to fresh, unrelated
// symbols), and steps the post-image engine once from s.current.
func (s *session) evalStmt(out io.Writer, line string) {
	src := s.source(line)
	fn, err := s.parseBody(src)
	if err != nil {
		reportError(out, src, err)
		return
	}
	scope, ok := fn.Body.(*ast.ScopeStmt)
	if !ok {
		fmt.Fprintln(out, "error: malformed synthetic body")
		return
	}

	engine := solve.NewEngine(&ast.Program{Types: map[string]*ast.Type{}}, s.cfg, s.factory)
	image, err := engine.PostStmt(s.current, scope.Body)
	if err != nil {
		if verr, ok := err.(*errors.VerificationError); ok {
			reportVerificationError(out, src, verr)
		} else {
			fmt.Fprintln(out, "error:", err)
		}
		return
	}

	if len(image.Successors) == 0 {
		fmt.Fprintln(out, "(unreachable — precondition collapsed to false)")
		return
	}

	var normal []*logic.Annotation
	for _, succ := range image.Successors {
		fmt.Fprintf(out, "[%s] %s\n", succ.Signal, succ.Annotation)
		if succ.Signal == solve.SigNormal {
			normal = append(normal, succ.Annotation)
		}
	}
	for _, eff := range image.Effects {
		fmt.Fprintf(out, "  effect: %s.%s %s -> %s\n", eff.Resource, eff.Field, symbolOrNil(eff.Before), symbolOrNil(eff.After))
	}

	switch len(normal) {
	case 0:
		// every successor left via break/continue/return; nothing to
		// continue stepping from, so the session's annotation holds.
	case 1:
		s.current = normal[0]
	default:
		joined, err := engine.Join(normal)
		if err != nil {
			fmt.Fprintln(out, "error joining branches:", err)
			return
		}
		s.current = joined
	}
}

func symbolOrNil(sym *logic.Symbol) string {
	if sym == nil {
		return "?"
	}
	return sym.String()
}

// reportError prints err to out, not to stdout directly: a REPL session may
// run against an arbitrary writer (a test buffer, a future network REPL),
// unlike cmd/colaheal-cli's one-shot run which always owns the terminal.
func reportError(out io.Writer, src string, err error) {
	if verr, ok := err.(*errors.VerificationError); ok {
		reportVerificationError(out, src, verr)
		return
	}
	fmt.Fprintln(out, "syntax error:", err)
}

func reportVerificationError(out io.Writer, src string, verr *errors.VerificationError) {
	reporter := errors.NewErrorReporter("<repl>", src)
	fmt.Fprint(out, reporter.FormatError(verr.ToCompilerError()))
}
