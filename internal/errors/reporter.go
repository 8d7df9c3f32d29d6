package errors

import (
	"fmt"
	"strings"

	"github.com/fatih/color"

	"colaheal/internal/ast"
)

// ErrorLevel is the severity band a CompilerError is printed under.
type ErrorLevel string

const (
	Error   ErrorLevel = "error"
	Warning ErrorLevel = "warning"
	Note    ErrorLevel = "note"
	Help    ErrorLevel = "help"
)

// CompilerError is a caret-annotated diagnostic against one position in a
// .cola source file, the shape ErrorReporter knows how to print.
type CompilerError struct {
	Level       ErrorLevel
	Code        string       // E0xxx taxonomy code (internal/errors/codes.go)
	Message     string
	Position    ast.Position
	Length      int
	Suggestions []Suggestion
	Notes       []string
	HelpText    string

	// HeapState is the separation-logic annotation in effect at Position
	// when the error was raised (VerificationError.Annotation), printed as
	// its own "state:" line rather than folded into Notes — the annotation
	// is what a CoLa-light developer actually needs to read to understand
	// why a command failed, so it gets its own label and color instead of
	// competing with generic commentary.
	HeapState string
}

// Suggestion is one candidate fix offered alongside a diagnostic.
type Suggestion struct {
	Message     string
	Replacement string
	Position    ast.Position
	Length      int
}

// ErrorReporter renders CompilerErrors against one file's source text.
type ErrorReporter struct {
	filename string
	lines    []string
}

func NewErrorReporter(filename, source string) *ErrorReporter {
	return &ErrorReporter{filename: filename, lines: strings.Split(source, "\n")}
}

var levelColors = map[ErrorLevel]func(...interface{}) string{
	Error:   color.New(color.FgRed, color.Bold).SprintFunc(),
	Warning: color.New(color.FgYellow, color.Bold).SprintFunc(),
	Note:    color.New(color.FgBlue, color.Bold).SprintFunc(),
	Help:    color.New(color.FgGreen, color.Bold).SprintFunc(),
}

func (er *ErrorReporter) levelColor(level ErrorLevel) func(...interface{}) string {
	if c, ok := levelColors[level]; ok {
		return c
	}
	return levelColors[Error]
}

// FormatError renders err as a header line, a `--> file:line:col` location,
// one line of surrounding source context on either side of the failing
// line, a caret marker under the offending span, the heap state active at
// that point (if any), then notes/suggestions/help.
func (er *ErrorReporter) FormatError(err CompilerError) string {
	var out strings.Builder
	bold := color.New(color.Bold).SprintFunc()
	dim := color.New(color.Faint).SprintFunc()
	levelColor := er.levelColor(err.Level)

	if err.Code != "" {
		fmt.Fprintf(&out, "%s[%s]: %s\n", levelColor(string(err.Level)), err.Code, err.Message)
	} else {
		fmt.Fprintf(&out, "%s: %s\n", levelColor(string(err.Level)), err.Message)
	}

	width := er.lineNumberWidth(err.Position.Line)
	indent := strings.Repeat(" ", width)
	fmt.Fprintf(&out, "%s %s %s:%d:%d\n", indent, dim("-->"), er.filename, err.Position.Line, err.Position.Column)
	fmt.Fprintf(&out, "%s %s\n", indent, dim("│"))

	if err.Position.Line > 1 && err.Position.Line-1 < len(er.lines) {
		er.writeSourceLine(&out, dim, width, err.Position.Line-1, er.lines[err.Position.Line-2])
	}
	if line, ok := er.currentLine(err.Position.Line); ok {
		fmt.Fprintf(&out, "%s %s %s\n", bold(fmt.Sprintf("%*d", width, err.Position.Line)), dim("│"), line)
		fmt.Fprintf(&out, "%s %s %s\n", indent, dim("│"), er.marker(err.Position.Column, err.Length, err.Level))
	}
	if err.Position.Line < len(er.lines) {
		er.writeSourceLine(&out, dim, width, err.Position.Line+1, er.lines[err.Position.Line])
	}

	if err.HeapState != "" {
		stateColor := color.New(color.FgMagenta).SprintFunc()
		fmt.Fprintf(&out, "%s %s\n", indent, dim("│"))
		fmt.Fprintf(&out, "%s %s %s %s\n", indent, dim("│"), stateColor("state:"), err.HeapState)
	}

	er.writeSuggestions(&out, indent, dim, err.Suggestions)

	for _, note := range err.Notes {
		noteColor := color.New(color.FgBlue).SprintFunc()
		fmt.Fprintf(&out, "%s %s %s %s\n", indent, dim("│"), noteColor("note:"), note)
	}
	if err.HelpText != "" {
		helpColor := color.New(color.FgGreen).SprintFunc()
		fmt.Fprintf(&out, "%s %s %s %s\n", indent, dim("│"), helpColor("help:"), err.HelpText)
	}

	out.WriteString("\n")
	return out.String()
}

func (er *ErrorReporter) currentLine(line int) (string, bool) {
	if line <= 0 || line > len(er.lines) {
		return "", false
	}
	return er.lines[line-1], true
}

func (er *ErrorReporter) writeSourceLine(out *strings.Builder, dim func(...interface{}) string, width, line int, text string) {
	fmt.Fprintf(out, "%s %s %s\n", dim(fmt.Sprintf("%*d", width, line)), dim("│"), text)
}

func (er *ErrorReporter) writeSuggestions(out *strings.Builder, indent string, dim func(...interface{}) string, suggestions []Suggestion) {
	if len(suggestions) == 0 {
		return
	}
	suggestionColor := color.New(color.FgCyan).SprintFunc()
	fmt.Fprintf(out, "%s %s\n", indent, dim("│"))
	for i, s := range suggestions {
		if i == 0 {
			fmt.Fprintf(out, "%s %s %s: %s\n", indent, suggestionColor("help"), suggestionColor("try"), s.Message)
		} else {
			fmt.Fprintf(out, "%s %s %s\n", indent, suggestionColor("    "), s.Message)
		}
		if s.Replacement == "" {
			continue
		}
		fmt.Fprintf(out, "%s %s\n", indent, dim("│"))
		replacement := strings.ReplaceAll(s.Replacement, "\n", fmt.Sprintf("\n%s %s ", indent, dim("│")))
		fmt.Fprintf(out, "%s %s %s\n", indent, suggestionColor("│"), suggestionColor(replacement))
	}
}

// marker underlines the offending span with carets, colored by level.
func (er *ErrorReporter) marker(column, length int, level ErrorLevel) string {
	if length <= 0 {
		length = 1
	}
	spaces := strings.Repeat(" ", max(0, column-1))
	markerColor := levelColors[Error]
	if c, ok := levelColors[level]; ok {
		markerColor = c
	}
	return spaces + markerColor(strings.Repeat("^", length))
}

// lineNumberWidth keeps the gutter at least 3 columns wide so single- and
// triple-digit line numbers align under the same "│" rule.
func (er *ErrorReporter) lineNumberWidth(line int) int {
	width := len(fmt.Sprintf("%d", line))
	if width < 3 {
		return 3
	}
	return width
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
