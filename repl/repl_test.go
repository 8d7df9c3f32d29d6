package repl

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"colaheal/internal/config"
)

func runSession(t *testing.T, lines ...string) string {
	t.Helper()
	cfg := config.GetStructureConfig("singly_linked_set")
	require.NotNil(t, cfg)

	in := strings.NewReader(strings.Join(lines, "\n") + "\n")
	var out bytes.Buffer
	Start(in, &out, cfg)
	return out.String()
}

func TestReplDeclaresLocalAndSteps(t *testing.T) {
	out := runSession(t,
		"var x: data;",
		"assume(x == x);",
		":quit",
	)
	assert.Contains(t, out, "(declared) x : data")
	assert.Contains(t, out, "normal")
}

func TestReplContradictoryAssumeIsUnreachable(t *testing.T) {
	out := runSession(t,
		"var x: data;",
		"var y: data;",
		"assume(x == y);",
		"assume(x != y);",
		":quit",
	)
	assert.Contains(t, out, "unreachable")
}

func TestReplAssertUnprovableReportsError(t *testing.T) {
	out := runSession(t,
		"var x: data;",
		"var y: data;",
		"assert(x == y);",
		":quit",
	)
	assert.Contains(t, strings.ToLower(out), "cannot prove")
}

func TestReplRejectsUndeclaredVariable(t *testing.T) {
	out := runSession(t,
		"assume(x == x);",
		":quit",
	)
	assert.Contains(t, strings.ToLower(out), "undeclared variable")
}

func TestReplResetClearsSession(t *testing.T) {
	out := runSession(t,
		"var x: data;",
		":reset",
		"assume(x == x);",
		":quit",
	)
	assert.Contains(t, strings.ToLower(out), "session reset")
	assert.Contains(t, strings.ToLower(out), "undeclared variable")
}

func TestReplShowPrintsCurrentAnnotation(t *testing.T) {
	out := runSession(t,
		":show",
		"var x: data;",
		":show",
		":quit",
	)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.NotEmpty(t, lines)
	assert.Contains(t, out, "emp", "the annotation before any declaration is empty")
	assert.Contains(t, out, "x == ", "the annotation after declaring x binds it to a fresh symbol")
}

func TestReplStepsAssignment(t *testing.T) {
	out := runSession(t,
		"var x: data;",
		"var y: data;",
		"x = y;",
		":quit",
	)
	assert.Contains(t, out, "normal")
}
