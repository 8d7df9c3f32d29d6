package errors

import (
	"fmt"

	pkgerrors "github.com/pkg/errors"

	"colaheal/internal/ast"
)

// Kind classifies a verifier error by the semantic taxonomy of the error
// handling design: which phase raised it, and whether it is fatal (aborts
// the whole run) or a user-visible verification result (aborts only the
// function currently being checked).
type Kind int

const (
	KindParseError Kind = iota
	KindTransformationError
	KindAccessError
	KindAssertionError
	KindUnsafeDereference
	KindInvariantViolation
	KindEncodingError
	KindSolvingError
	KindUnsupportedConstruct
)

func (k Kind) String() string {
	switch k {
	case KindParseError:
		return "ParseError"
	case KindTransformationError:
		return "TransformationError"
	case KindAccessError:
		return "AccessError"
	case KindAssertionError:
		return "AssertionError"
	case KindUnsafeDereference:
		return "UnsafeDereference"
	case KindInvariantViolation:
		return "InvariantViolation"
	case KindEncodingError:
		return "EncodingError"
	case KindSolvingError:
		return "SolvingError"
	case KindUnsupportedConstruct:
		return "UnsupportedConstruct"
	default:
		return "UnknownError"
	}
}

// Fatal reports whether an error of this kind aborts the whole verifier run
// (exit code 2 or 3) as opposed to surfacing as a per-function VERIFICATION-ERROR.
func (k Kind) Fatal() bool {
	switch k {
	case KindParseError, KindEncodingError, KindSolvingError:
		return true
	default:
		return false
	}
}

// VerificationError is the error type returned by every post-image step,
// normalization pass, and encoder call. It carries the taxonomy Kind, the
// offending source position, an optional rendering of the annotation in
// effect when the error was raised, and (via github.com/pkg/errors) a cause
// chain so a low-level encoder failure keeps its original stack context as
// it propagates up to the CLI/LSP boundary.
type VerificationError struct {
	Kind       Kind
	Code       string
	Message    string
	Pos        ast.Position
	Command    string // String() of the offending command, if any
	Annotation string // annotation in effect at the point of failure, if any
	cause      error
}

func (e *VerificationError) Error() string {
	if e.Command != "" {
		return fmt.Sprintf("%s[%s]: %s (at %s: %s)", e.Kind, e.Code, e.Message, e.Pos, e.Command)
	}
	return fmt.Sprintf("%s[%s]: %s (at %s)", e.Kind, e.Code, e.Message, e.Pos)
}

func (e *VerificationError) Cause() error { return e.cause }
func (e *VerificationError) Unwrap() error { return e.cause }

// WithCause attaches an underlying cause (e.g. a SAT solver failure) using
// github.com/pkg/errors so the wrapped stack trace survives to the top level.
func (e *VerificationError) WithCause(cause error) *VerificationError {
	e.cause = pkgerrors.Wrap(cause, e.Message)
	return e
}

// WithCommand annotates the error with the command that was being processed.
func (e *VerificationError) WithCommand(cmd fmt.Stringer) *VerificationError {
	if cmd != nil {
		e.Command = cmd.String()
	}
	return e
}

// WithAnnotation annotates the error with a rendering of the current annotation.
func (e *VerificationError) WithAnnotation(s string) *VerificationError {
	e.Annotation = s
	return e
}

func newErr(kind Kind, code, message string, pos ast.Position) *VerificationError {
	return &VerificationError{Kind: kind, Code: code, Message: message, Pos: pos}
}

// NewParseError reports malformed CoLa source.
func NewParseError(message string, pos ast.Position) *VerificationError {
	return newErr(KindParseError, ErrorParse, message, pos)
}

// NewTransformationError reports a program the pipeline cannot carry through
// soundly: rename_variables or a loop fixed point failing to converge, a
// scope hiding an enclosing name, a scope left while a leaving variable still
// owns a live local memory cell, or __init__ without exactly one normal outcome.
func NewTransformationError(code, message string, pos ast.Position) *VerificationError {
	return newErr(KindTransformationError, code, message, pos)
}

// NewAccessError reports PrepareAccess finding a variable read/written
// without a held EqualsToAxiom, or a dereferenced pointer with no memory axiom.
func NewAccessError(code, message string, pos ast.Position) *VerificationError {
	return newErr(KindAccessError, code, message, pos)
}

// NewAssertionError reports assert(e) that the encoder could not prove.
func NewAssertionError(message string, pos ast.Position) *VerificationError {
	return newErr(KindAssertionError, ErrorAssertionFailed, message, pos)
}

// NewUnsafeDereference reports a dereference of a pointer not provably non-null.
func NewUnsafeDereference(exprText string, pos ast.Position) *VerificationError {
	return newErr(KindUnsafeDereference, ErrorUnsafeDereference,
		fmt.Sprintf("cannot prove '%s' is non-null before dereferencing it", exprText), pos)
}

// NewInvariantViolation reports a malloc or post-image result failing the
// configured local/shared node invariant.
func NewInvariantViolation(code, message string, pos ast.Position) *VerificationError {
	return newErr(KindInvariantViolation, code, message, pos)
}

// NewEncodingError reports the encoder failing to lower a formula to the
// backend theory. Always fatal.
func NewEncodingError(message string, pos ast.Position) *VerificationError {
	return newErr(KindEncodingError, ErrorEncoding, message, pos)
}

// NewSolvingError reports the SAT/SMT backend itself failing. Always fatal.
func NewSolvingError(message string, pos ast.Position) *VerificationError {
	return newErr(KindSolvingError, ErrorSolving, message, pos)
}

// NewUnsupportedConstruct reports a syntactic form the normalizer or solver
// does not accept (e.g. a macro call whose callee returns a pointer, which
// flow-sensitive inlining does not yet support).
func NewUnsupportedConstruct(construct string, pos ast.Position) *VerificationError {
	return newErr(KindUnsupportedConstruct, ErrorUnsupportedConstruct,
		fmt.Sprintf("unsupported construct: %s", construct), pos)
}

// ToCompilerError renders a VerificationError as the Rust-like CompilerError
// the ErrorReporter knows how to format, attaching a help line appropriate
// to its Kind.
func (e *VerificationError) ToCompilerError() CompilerError {
	ce := CompilerError{
		Level:     Error,
		Code:      e.Code,
		Message:   e.Message,
		Position:  e.Pos,
		Length:    1,
		HeapState: e.Annotation,
	}
	if e.Command != "" {
		ce.Notes = append(ce.Notes, "offending command: "+e.Command)
	}
	switch e.Kind {
	case KindUnsafeDereference:
		ce.HelpText = "add an assume(e != null) or restructure the access so the encoder can discharge non-nullness"
	case KindAssertionError:
		ce.HelpText = "strengthen the preceding assumes, or check the configured invariants imply this assertion"
	case KindInvariantViolation:
		ce.HelpText = "the configured local_node_invariant/shared_node_invariant must hold at every post-image step"
	case KindTransformationError:
		ce.HelpText = "rewrite the source so normalization can proceed (e.g. declare locals only where needed)"
	}
	return ce
}
