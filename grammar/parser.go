package grammar

import (
	"fmt"
	"os"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/fatih/color"

	"colaheal/internal/ast"
)

var colaParser = participle.MustBuild[Program](
	participle.Lexer(ColaLexer),
	participle.Elide("Whitespace"),
	participle.UseLookahead(4),
)

// ParseFile reads path and parses+converts it into an internal/ast.Program.
func ParseFile(path string) (*ast.Program, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return ParseString(path, string(source))
}

// ParseString parses and converts src, labeling positions with file, which
// need not name a file on disk (the REPL passes "<repl>").
func ParseString(file, src string) (*ast.Program, error) {
	parsed, err := ParseRaw(file, src)
	if err != nil {
		return nil, err
	}
	return Convert(file, parsed)
}

// ParseRaw parses src into the raw surface tree, without resolving names or
// types. The LSP server's semantic highlighter uses this form directly: a
// program with undeclared names should still highlight, even though it
// can't convert. Like ParseFile and ParseString it never prints — the LSP
// server shares stdout with its JSON-RPC transport, so printing is left to a
// caller that owns the terminal, via ReportParseError.
func ParseRaw(file, src string) (*Program, error) {
	return colaParser.ParseString(file, src)
}

// ReportParseError prints a friendly caret-style parse error message for err
// (as returned by ParseFile/ParseString/ParseRaw) to stdout/stderr. Callers
// that share stdout with another protocol (the LSP server, over stdio) must
// not call this.
func ReportParseError(src string, err error) {
	pe, ok := err.(participle.Error)
	if !ok {
		color.Red("Unexpected error: %s", err)
		return
	}

	pos := pe.Position()
	lines := strings.Split(src, "\n")
	if pos.Line <= 0 || pos.Line > len(lines) {
		color.Red("Syntax error at unknown location: %s", err)
		return
	}

	line := lines[pos.Line-1]
	caret := strings.Repeat(" ", pos.Column-1) + "^"

	color.Red("Syntax error in %s at line %d, column %d:", pos.Filename, pos.Line, pos.Column)
	fmt.Println(line)
	color.HiRed(caret)
	fmt.Printf("-> %s\n", pe.Message())
}
