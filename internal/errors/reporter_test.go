package errors

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"colaheal/internal/ast"
)

func TestErrorReporterFormatsVerificationError(t *testing.T) {
	source := `interface pop() : data {
    x = head.val;
    return x;
}`
	reporter := NewErrorReporter("set.cola", source)

	verr := NewUnsafeDereference("head", ast.Position{Line: 2, Column: 9})
	formatted := reporter.FormatError(verr.ToCompilerError())

	assert.Contains(t, formatted, "error["+ErrorUnsafeDereference+"]")
	assert.Contains(t, formatted, "cannot prove 'head' is non-null")
	assert.Contains(t, formatted, "set.cola:2:9")
	assert.Contains(t, formatted, "help:")
}

func TestVerificationErrorTaxonomy(t *testing.T) {
	pos := ast.Position{Line: 1, Column: 1}

	assert.True(t, NewParseError("bad token", pos).Kind.Fatal())
	assert.True(t, NewEncodingError("cannot lower formula", pos).Kind.Fatal())
	assert.True(t, NewSolvingError("backend returned unknown", pos).Kind.Fatal())
	assert.False(t, NewAssertionError("cannot prove assert", pos).Kind.Fatal())
	assert.False(t, NewAccessError(ErrorMissingResource, "no resource held for x", pos).Kind.Fatal())
}

func TestVerificationErrorWithCause(t *testing.T) {
	pos := ast.Position{Line: 4, Column: 2}
	cause := assertError("sat solver timed out")

	verr := NewSolvingError("implication query failed", pos).WithCause(cause)

	assert.Contains(t, verr.Error(), "SolvingError")
	assert.Contains(t, verr.Error(), ErrorSolving)
	assert.Contains(t, verr.Cause().Error(), "sat solver timed out")
}

func assertError(msg string) error { return &simpleError{msg} }

type simpleError struct{ msg string }

func (e *simpleError) Error() string { return e.msg }

func TestErrorCategoryRanges(t *testing.T) {
	assert.Equal(t, "Access", GetErrorCategory(ErrorMissingResource))
	assert.Equal(t, "Assertion", GetErrorCategory(ErrorAssertionFailed))
	assert.Equal(t, "Dereference", GetErrorCategory(ErrorUnsafeDereference))
	assert.Equal(t, "Invariant", GetErrorCategory(ErrorMallocInvariant))
	assert.Equal(t, "Transformation", GetErrorCategory(ErrorNonEmptyScope))
	assert.False(t, IsWarning(ErrorAssertionFailed))
	assert.True(t, IsWarning(WarningUndischargedObligation))
}

func TestErrorMarkerCreation(t *testing.T) {
	source := `x = malloc;`
	reporter := NewErrorReporter("p.cola", source)

	marker := reporter.marker(5, 6, Error)

	spaces := strings.Count(marker, " ")
	assert.Equal(t, 4, spaces)
	carets := strings.Count(marker, "^")
	assert.Equal(t, 6, carets)
}

func TestErrorReporterPrintsHeapState(t *testing.T) {
	reporter := NewErrorReporter("set.cola", "assert(x == y);")
	verr := NewAssertionError("cannot prove x == y", ast.Position{Line: 1, Column: 8}).WithAnnotation("x == s0 * y == s1")

	formatted := reporter.FormatError(verr.ToCompilerError())

	assert.Contains(t, formatted, "state:")
	assert.Contains(t, formatted, "x == s0 * y == s1")
}

func TestErrorLevelsFormatting(t *testing.T) {
	reporter := NewErrorReporter("p.cola", "skip;")
	pos := ast.Position{Line: 1, Column: 1}

	errorFormatted := reporter.FormatError(CompilerError{Level: Error, Message: "boom", Position: pos})
	warningFormatted := reporter.FormatError(CompilerError{Level: Warning, Message: "heads up", Position: pos})

	assert.Contains(t, errorFormatted, "error:")
	assert.Contains(t, warningFormatted, "warning:")
}
