package grammar_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"colaheal/grammar"
	"colaheal/internal/ast"
)

const singlyLinkedSet = `
struct Node {
	next: Node,
	val: data,
}

shared head: Node;

init {
	head = null;
}

interface fun add(k: data): bool {
	var pred: Node;
	var curr: Node;
	var result: bool;
	pred = head;
	loop {
		curr = pred.next;
		if (curr == null) {
			break;
		}
		if (curr.val == k) {
			result = false;
			return result;
		}
		pred = curr;
	}
	result = true;
	return result;
}

macro fun helper(x: data): data {
	return x;
}
`

func TestParseStringConvertsSinglyLinkedSet(t *testing.T) {
	prog, err := grammar.ParseString("set.cola", singlyLinkedSet)
	require.NoError(t, err)
	require.NotNil(t, prog)

	nodeType, ok := prog.Types["Node"]
	require.True(t, ok)
	assert.Equal(t, ast.SortPointer, nodeType.Sort)
	nextType, ok := nodeType.FieldType("next")
	require.True(t, ok)
	assert.Same(t, nodeType, nextType)
	valType, ok := nodeType.FieldType("val")
	require.True(t, ok)
	assert.Same(t, ast.DataType, valType)

	require.Len(t, prog.Globals, 1)
	assert.Equal(t, "head", prog.Globals[0].Name)
	assert.True(t, prog.Globals[0].IsShared)

	require.NotNil(t, prog.Init)

	require.Len(t, prog.Functions, 2)
	add := prog.Functions[0]
	assert.Equal(t, "add", add.Name)
	assert.Equal(t, ast.FunctionInterface, add.Kind)
	assert.Equal(t, ast.BoolType, add.Returns)
	require.Len(t, add.Params, 1)
	assert.Equal(t, "k", add.Params[0].Name)

	helper := prog.Functions[1]
	assert.Equal(t, ast.FunctionMacro, helper.Kind)

	require.Len(t, prog.InterfaceFunctions(), 1)
	require.Len(t, prog.MacroFunctions(), 1)
}

func TestParseStringRejectsUndeclaredType(t *testing.T) {
	_, err := grammar.ParseString("bad.cola", `shared x: Ghost;`)
	assert.Error(t, err)
}

func TestParseStringRejectsUndeclaredVariable(t *testing.T) {
	_, err := grammar.ParseString("bad.cola", `
interface fun f(): bool {
	return missing;
}
`)
	assert.Error(t, err)
}

func TestParseStringDisambiguatesMemoryCommands(t *testing.T) {
	src := `
struct Node {
	next: Node,
	val: data,
}
shared head: Node;
interface fun swapNext(a: Node, b: Node) {
	var tmp: Node;
	tmp = a.next;
	a.next = b.next;
	b.next = tmp;
}
`
	prog, err := grammar.ParseString("mem.cola", src)
	require.NoError(t, err)
	require.Len(t, prog.Functions, 1)
	assert.NotNil(t, prog.Functions[0].Body)
}
