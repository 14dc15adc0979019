// Copyright 2024 The MATLAB Language Server Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// This file defines the text-document synchronization handlers and the
// diagnostics publishing they trigger.

package langserver

import (
	"context"

	"go.lsp.dev/protocol"
	"go.uber.org/zap"

	"github.com/diningPhilosopher64/MATLAB-language-server/internal/index"
	"github.com/diningPhilosopher64/MATLAB-language-server/internal/indexer"
	"github.com/diningPhilosopher64/MATLAB-language-server/internal/providers"
	"github.com/diningPhilosopher64/MATLAB-language-server/internal/wire"
)

// DidOpen records the document's text, queues it for indexing, and
// kicks off an initial lint pass.
func (s *server) DidOpen(ctx context.Context, params *protocol.DidOpenTextDocumentParams) error {
	uri := string(params.TextDocument.URI)
	s.docs.Open(uri, params.TextDocument.Text, params.TextDocument.Version)
	s.docIndexer.QueueIndex(indexer.Document{URI: uri, Text: params.TextDocument.Text})
	go s.publishDiagnostics(context.WithoutCancel(ctx), uri, params.TextDocument.Text)
	return nil
}

// DidChange replaces the document's text (the server advertises full-
// document sync only) and re-queues indexing and linting.
func (s *server) DidChange(ctx context.Context, params *protocol.DidChangeTextDocumentParams) error {
	if len(params.ContentChanges) == 0 {
		return nil
	}
	uri := string(params.TextDocument.URI)
	text := params.ContentChanges[len(params.ContentChanges)-1].Text
	s.docs.Update(uri, text, params.TextDocument.Version)
	s.docIndexer.QueueIndex(indexer.Document{URI: uri, Text: text})
	go s.publishDiagnostics(context.WithoutCancel(ctx), uri, text)
	return nil
}

// DidClose drops the document from the open-buffer store and the
// index; a closed file is no longer part of the live workspace view
// (spec §4.4).
func (s *server) DidClose(ctx context.Context, params *protocol.DidCloseTextDocumentParams) error {
	uri := string(params.TextDocument.URI)
	s.docs.Close(uri)
	s.index.Clear(uri)
	s.notify(ctx, protocol.MethodTextDocumentPublishDiagnostics, &protocol.PublishDiagnosticsParams{
		URI:         params.TextDocument.URI,
		Diagnostics: []protocol.Diagnostic{},
	})
	return nil
}

// publishDiagnostics lints text and sends the result to the client. A
// disconnected interpreter is not an error here (spec §7
// InterpreterUnavailable): diagnostics are simply skipped until the
// next edit, or until a reconnection re-lints every open buffer
// (onInterpreterLifecycle).
func (s *server) publishDiagnostics(ctx context.Context, uri, text string) {
	recs, err := s.providers.Lint(ctx, text, uri)
	if err != nil {
		if err != providers.ErrUnavailable {
			s.logger.Debug("lint failed", zap.String("uri", uri), zap.Error(err))
		}
		return
	}
	s.notify(ctx, protocol.MethodTextDocumentPublishDiagnostics, &protocol.PublishDiagnosticsParams{
		URI:         protocol.DocumentURI(uri),
		Diagnostics: lintRecordsToDiagnostics(recs),
	})
}

func lintRecordsToDiagnostics(recs []wire.LintRecord) []protocol.Diagnostic {
	out := make([]protocol.Diagnostic, 0, len(recs))
	for _, r := range recs {
		out = append(out, protocol.Diagnostic{
			Range:    rangeToProtocol(r.Range),
			Severity: lintSeverity(r.Severity),
			Source:   "matlab",
			Message:  r.Message,
			Code:     r.RuleID,
		})
	}
	return out
}

func lintSeverity(sev int) protocol.DiagnosticSeverity {
	switch sev {
	case int(protocol.DiagnosticSeverityError), int(protocol.DiagnosticSeverityWarning),
		int(protocol.DiagnosticSeverityInformation), int(protocol.DiagnosticSeverityHint):
		return protocol.DiagnosticSeverity(sev)
	default:
		return protocol.DiagnosticSeverityWarning
	}
}

// rangeToProtocol converts an index.Range (1-based lines, 0-based
// characters) to a protocol.Range (0-based lines and characters).
func rangeToProtocol(r index.Range) protocol.Range {
	return protocol.Range{
		Start: protocol.Position{Line: uint32(max0(r.LineStart - 1)), Character: uint32(r.CharStart)},
		End:   protocol.Position{Line: uint32(max0(r.LineEnd - 1)), Character: uint32(r.CharEnd)},
	}
}

func max0(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
