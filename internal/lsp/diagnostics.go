package lsp

import (
	"github.com/alecthomas/participle/v2"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"colaheal/internal/errors"
)

// ConvertVerificationError renders a VerificationError (raised by name/type
// resolution in grammar.Convert) as a single LSP diagnostic, reusing the
// CompilerError shape the CLI's own error reporter formats.
func ConvertVerificationError(verr *errors.VerificationError) protocol.Diagnostic {
	ce := verr.ToCompilerError()
	line := uint32(0)
	if ce.Position.Line > 0 {
		line = uint32(ce.Position.Line - 1)
	}
	col := uint32(0)
	if ce.Position.Column > 0 {
		col = uint32(ce.Position.Column - 1)
	}
	length := uint32(ce.Length)
	if length == 0 {
		length = 1
	}

	return protocol.Diagnostic{
		Range: protocol.Range{
			Start: protocol.Position{Line: line, Character: col},
			End:   protocol.Position{Line: line, Character: col + length},
		},
		Severity: ptrSeverity(protocol.DiagnosticSeverityError),
		Code:     ce.Code,
		Source:   ptrString("colaheal"),
		Message:  ce.Message,
	}
}

// ConvertParseError renders a raw participle syntax error (one raised before
// grammar.Convert ever runs, so it carries no VerificationError) as an LSP
// diagnostic.
func ConvertParseError(err error) []protocol.Diagnostic {
	pe, ok := err.(participle.Error)
	if !ok {
		return []protocol.Diagnostic{{
			Range:    protocol.Range{End: protocol.Position{Character: 1}},
			Severity: ptrSeverity(protocol.DiagnosticSeverityError),
			Source:   ptrString("colaheal-parser"),
			Message:  err.Error(),
		}}
	}

	pos := pe.Position()
	line := uint32(0)
	if pos.Line > 0 {
		line = uint32(pos.Line - 1)
	}
	col := uint32(0)
	if pos.Column > 0 {
		col = uint32(pos.Column - 1)
	}

	return []protocol.Diagnostic{{
		Range: protocol.Range{
			Start: protocol.Position{Line: line, Character: col},
			End:   protocol.Position{Line: line, Character: col + 1},
		},
		Severity: ptrSeverity(protocol.DiagnosticSeverityError),
		Source:   ptrString("colaheal-parser"),
		Message:  pe.Message(),
	}}
}

func ptrSeverity(s protocol.DiagnosticSeverity) *protocol.DiagnosticSeverity {
	return &s
}

func ptrString(s string) *string {
	return &s
}
