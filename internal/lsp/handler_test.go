package lsp_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"colaheal/internal/lsp"
)

const sampleSource = `
struct Node {
	next: Node,
	val: data,
}

shared head: Node;

init {
	head = null;
}

interface fun contains(k: data): bool {
	var curr: Node;
	var result: bool;
	curr = head;
	loop {
		if (curr == null) {
			result = false;
			return result;
		}
		if (curr.val == k) {
			result = true;
			return result;
		}
		curr = curr.next;
	}
}
`

func TestTextDocumentSemanticTokensFull(t *testing.T) {
	handler := lsp.NewHandler()
	uri := "file:///mem/set.cola"

	ctx := &glsp.Context{Notify: func(method string, params any) {}}
	err := handler.TextDocumentDidOpen(ctx, &protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{
			URI:  uri,
			Text: sampleSource,
		},
	})
	require.NoError(t, err)

	tokens, err := handler.TextDocumentSemanticTokensFull(ctx, &protocol.SemanticTokensParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: uri},
	})
	require.NoError(t, err)
	require.NotNil(t, tokens)
	require.NotEmpty(t, tokens.Data)

	decoded, err := decodeSemanticTokens(tokens.Data)
	require.NoError(t, err)
	require.NotEmpty(t, decoded)

	tokenTypes := make(map[string]int)
	for _, token := range decoded {
		tokenTypes[token.Type]++
	}

	require.Greater(t, tokenTypes["struct"], 0, "should have a struct token for Node")
	require.Greater(t, tokenTypes["property"], 0, "should have property tokens for struct fields and field access")
	require.Greater(t, tokenTypes["function"], 0, "should have a function token for contains")
	require.Greater(t, tokenTypes["variable"], 0, "should have variable tokens for locals")
	require.Greater(t, tokenTypes["type"], 0, "should have type tokens for field/param/local types")

	t.Logf("Generated %d semantic tokens with types: %v", len(decoded), tokenTypes)
}

func TestTextDocumentDidOpenPublishesNoDiagnosticsForValidSource(t *testing.T) {
	handler := lsp.NewHandler()
	var published *protocol.PublishDiagnosticsParams
	ctx := &glsp.Context{Notify: func(method string, params any) {
		if p, ok := params.(*protocol.PublishDiagnosticsParams); ok {
			published = p
		}
	}}
	err := handler.TextDocumentDidOpen(ctx, &protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{
			URI:  "file:///mem/ok.cola",
			Text: sampleSource,
		},
	})
	require.NoError(t, err)
	require.NotNil(t, published)
	require.Empty(t, published.Diagnostics)
}

func TestTextDocumentDidOpenSurvivesUnconvertibleSource(t *testing.T) {
	handler := lsp.NewHandler()
	ctx := &glsp.Context{Notify: func(method string, params any) {}}

	// "Ghost" is undeclared: Convert fails, but the raw parse still succeeds
	// so semantic highlighting keeps working while the user fixes it.
	err := handler.TextDocumentDidOpen(ctx, &protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{
			URI:  "file:///mem/bad.cola",
			Text: `shared x: Ghost;`,
		},
	})
	require.NoError(t, err)

	tokens, err := handler.TextDocumentSemanticTokensFull(ctx, &protocol.SemanticTokensParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: "file:///mem/bad.cola"},
	})
	require.NoError(t, err)
	require.NotEmpty(t, tokens.Data)
}

type DecodedToken struct {
	Index     int
	Line      uint32
	Char      uint32
	Length    uint32
	Type      string
	Modifiers []string
}

func decodeSemanticTokens(raw []uint32) ([]DecodedToken, error) {
	if len(raw)%5 != 0 {
		return nil, fmt.Errorf("raw token data length %d is not a multiple of 5", len(raw))
	}

	var (
		decoded []DecodedToken
		line    uint32
		char    uint32
	)

	for i := 0; i < len(raw); i += 5 {
		deltaLine := raw[i]
		deltaStart := raw[i+1]
		length := raw[i+2]
		tokenTypeIdx := raw[i+3]
		tokenModMask := raw[i+4]

		if deltaLine == 0 {
			char += deltaStart
		} else {
			line += deltaLine
			char = deltaStart
		}

		var modifiers []string
		for j, name := range lsp.SemanticTokenModifiers {
			if tokenModMask&(1<<j) != 0 {
				modifiers = append(modifiers, name)
			}
		}

		decoded = append(decoded, DecodedToken{
			Index:     i / 5,
			Line:      line + 1,
			Char:      char + 1,
			Length:    length,
			Type:      lsp.SemanticTokenTypes[tokenTypeIdx],
			Modifiers: modifiers,
		})
	}

	return decoded, nil
}
