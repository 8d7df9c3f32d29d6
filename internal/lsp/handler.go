package lsp

import (
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"colaheal/grammar"
	"colaheal/internal/errors"
)

// SemanticTokenTypes is the legend advertised in Initialize; indexes into
// this slice are what TextDocumentSemanticTokensFull encodes per token.
var SemanticTokenTypes = []string{
	"namespace",
	"type",
	"struct",
	"function",
	"variable",
	"parameter",
	"property",
	"keyword",
	"number",
	"operator",
	"comment",
}

// SemanticTokenModifiers is the modifier legend advertised in Initialize.
var SemanticTokenModifiers = []string{
	"declaration",
	"definition",
	"readonly",
	"static",
	"deprecated",
	"abstract",
}

// document is everything the handler keeps for one open .cola file: its raw
// text, the raw parse tree (used for semantic highlighting even when the
// program fails to convert, e.g. an undeclared type mid-edit), and the
// diagnostic from the last convert attempt, if any.
type document struct {
	content string
	raw     *grammar.Program
	diag    *protocol.Diagnostic
}

// Handler implements the LSP server handlers for CoLa-light.
type Handler struct {
	mu   sync.RWMutex
	docs map[string]*document
}

// NewHandler creates and returns a new Handler instance.
func NewHandler() *Handler {
	return &Handler{docs: make(map[string]*document)}
}

// Initialize responds to the LSP client's initialize request and advertises the server's capabilities.
func (h *Handler) Initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	log.Println("LSP Initialize called")

	return &protocol.InitializeResult{
		Capabilities: protocol.ServerCapabilities{
			TextDocumentSync: &protocol.TextDocumentSyncOptions{
				OpenClose: ptrBool(true),
				Change:    ptrSyncKind(protocol.TextDocumentSyncKindFull),
			},
			CompletionProvider: &protocol.CompletionOptions{
				ResolveProvider: ptrBool(false),
			},
			SemanticTokensProvider: &protocol.SemanticTokensOptions{
				Legend: protocol.SemanticTokensLegend{
					TokenTypes:     SemanticTokenTypes,
					TokenModifiers: SemanticTokenModifiers,
				},
				Full: ptrBool(true),
			},
		},
	}, nil
}

// Initialized is called after the client receives the server's capabilities and completes initialization.
func (h *Handler) Initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	log.Println("colaheal LSP initialized")
	return nil
}

// Shutdown handles the LSP shutdown request.
func (h *Handler) Shutdown(ctx *glsp.Context) error {
	log.Println("colaheal LSP shutdown")
	return nil
}

// SetTrace handles the client's $/setTrace notification. colaheal's own
// logging is driven by commonlog.Configure, so the requested trace value is
// accepted and otherwise ignored.
func (h *Handler) SetTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	return nil
}

// TextDocumentDidOpen handles file open notifications from the editor.
func (h *Handler) TextDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	log.Printf("Opened file: %s\n", params.TextDocument.URI)
	return h.refresh(ctx, params.TextDocument.URI, &params.TextDocument.Text)
}

// TextDocumentDidClose handles file close notifications from the editor.
func (h *Handler) TextDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	log.Printf("Closed file: %s\n", params.TextDocument.URI)

	path, err := uriToPath(params.TextDocument.URI)
	if err != nil {
		return fmt.Errorf("failed to convert URI %s: %w", params.TextDocument.URI, err)
	}

	h.mu.Lock()
	delete(h.docs, path)
	h.mu.Unlock()
	return nil
}

// TextDocumentDidChange handles file change notifications from the editor.
func (h *Handler) TextDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	log.Printf("Changed file: %s\n", params.TextDocument.URI)

	if len(params.ContentChanges) == 0 {
		return nil
	}
	// Full sync only: the last change event carries the whole document text.
	change, ok := params.ContentChanges[len(params.ContentChanges)-1].(protocol.TextDocumentContentChangeEventWhole)
	if !ok {
		return nil
	}
	return h.refresh(ctx, params.TextDocument.URI, &change.Text)
}

// TextDocumentCompletion handles completion requests (currently returns an empty list).
func (h *Handler) TextDocumentCompletion(ctx *glsp.Context, params *protocol.CompletionParams) (interface{}, error) {
	return &protocol.CompletionList{
		IsIncomplete: false,
		Items:        []protocol.CompletionItem{},
	}, nil
}

// TextDocumentSemanticTokensFull handles semantic token requests for the entire document.
func (h *Handler) TextDocumentSemanticTokensFull(ctx *glsp.Context, params *protocol.SemanticTokensParams) (*protocol.SemanticTokens, error) {
	log.Println("TextDocumentSemanticTokensFull called for:", params.TextDocument.URI)

	path, err := uriToPath(params.TextDocument.URI)
	if err != nil {
		return nil, fmt.Errorf("failed to convert URI %s: %w", params.TextDocument.URI, err)
	}

	doc, err := h.getOrLoad(ctx, path, params.TextDocument.URI)
	if err != nil {
		return nil, err
	}
	if doc.raw == nil {
		return &protocol.SemanticTokens{}, nil
	}

	tokens := collectSemanticTokens(doc.raw)

	var data []uint32
	var prevLine, prevStart uint32
	for _, token := range tokens {
		deltaLine := token.Line - prevLine
		var deltaStart uint32
		if deltaLine == 0 {
			deltaStart = token.StartChar - prevStart
		} else {
			deltaStart = token.StartChar
		}
		data = append(data, deltaLine, deltaStart, token.Length, uint32(token.TokenType), uint32(token.TokenModifiers))
		prevLine = token.Line
		prevStart = token.StartChar
	}

	return &protocol.SemanticTokens{Data: data}, nil
}

func (h *Handler) getOrLoad(ctx *glsp.Context, path string, uri protocol.DocumentUri) (*document, error) {
	h.mu.RLock()
	doc, ok := h.docs[path]
	h.mu.RUnlock()
	if ok {
		return doc, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", path, err)
	}
	text := string(content)
	return h.load(ctx, uri, path, text)
}

// refresh re-parses a document's content and publishes fresh diagnostics.
func (h *Handler) refresh(ctx *glsp.Context, uri protocol.DocumentUri, text *string) error {
	path, err := uriToPath(uri)
	if err != nil {
		return fmt.Errorf("failed to convert URI %s: %w", uri, err)
	}
	_, err = h.load(ctx, uri, path, *text)
	return err
}

// load parses and converts content, stashes the result, and publishes a
// diagnostics notification (possibly clearing prior diagnostics with an
// empty slice).
func (h *Handler) load(ctx *glsp.Context, uri protocol.DocumentUri, path, content string) (*document, error) {
	doc := &document{content: content}

	raw, err := grammar.ParseRaw(path, content)
	if err != nil {
		diag := ConvertParseError(err)
		if len(diag) > 0 {
			doc.diag = &diag[0]
		}
	} else {
		doc.raw = raw
		if _, convErr := grammar.Convert(path, raw); convErr != nil {
			if verr, ok := convErr.(*errors.VerificationError); ok {
				d := ConvertVerificationError(verr)
				doc.diag = &d
			}
		}
	}

	h.mu.Lock()
	h.docs[path] = doc
	h.mu.Unlock()

	var diagnostics []protocol.Diagnostic
	if doc.diag != nil {
		diagnostics = []protocol.Diagnostic{*doc.diag}
	}
	sendDiagnosticNotification(ctx, uri, diagnostics)

	return doc, nil
}

// uriToPath converts a file:// URI to a platform-local file path.
func uriToPath(rawURI string) (string, error) {
	u, err := url.Parse(rawURI)
	if err != nil {
		return "", fmt.Errorf("invalid URI %s: %w", rawURI, err)
	}

	path := u.Path
	if runtime.GOOS == "windows" && strings.HasPrefix(path, "/") && len(path) > 3 && path[2] == ':' {
		path = path[1:]
	}
	return filepath.FromSlash(path), nil
}

func sendDiagnosticNotification(ctx *glsp.Context, uri protocol.URI, diagnostics []protocol.Diagnostic) {
	diagnosticsJSON, err := json.MarshalIndent(diagnostics, "", "  ")
	if err != nil {
		fmt.Println("Failed to marshal diagnostics:", err)
		return
	}
	log.Println("Sending diagnostics:", string(diagnosticsJSON))

	ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, &protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diagnostics,
	})
}

func ptrBool(b bool) *bool {
	return &b
}

func ptrSyncKind(k protocol.TextDocumentSyncKind) *protocol.TextDocumentSyncKind {
	return &k
}
