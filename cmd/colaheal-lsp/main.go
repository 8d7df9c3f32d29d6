// SPDX-License-Identifier: Apache-2.0
package main

import (
	"log"
	"os"

	"github.com/tliron/commonlog"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"github.com/tliron/glsp/server"

	"colaheal/internal/lsp"
)

const lsName = "colaheal"

var (
	version = "0.0.1"
	handler protocol.Handler
)

func main() {
	commonlog.Configure(1, nil)

	colaHandler := lsp.NewHandler()

	handler = protocol.Handler{
		Initialize:                     colaHandler.Initialize,
		Initialized:                    colaHandler.Initialized,
		Shutdown:                       colaHandler.Shutdown,
		SetTrace:                       colaHandler.SetTrace,
		TextDocumentDidOpen:            colaHandler.TextDocumentDidOpen,
		TextDocumentDidClose:           colaHandler.TextDocumentDidClose,
		TextDocumentDidChange:          colaHandler.TextDocumentDidChange,
		TextDocumentCompletion:         colaHandler.TextDocumentCompletion,
		TextDocumentSemanticTokensFull: colaHandler.TextDocumentSemanticTokensFull,
	}

	s := server.NewServer(&handler, lsName, false)

	log.Printf("Starting colaheal LSP server (%s)...\n", version)

	if err := s.RunStdio(); err != nil {
		log.Println("Error starting colaheal LSP server:", err)
		os.Exit(1)
	}
}
