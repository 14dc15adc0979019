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

// This file implements executeCommandProvider's three commands
// (SUPPLEMENTED FEATURES #2 and #4): filtering published lint
// diagnostics by line or by file, and restarting the interpreter
// connection.

package langserver

import (
	"context"
	"encoding/json"
	"fmt"

	"go.lsp.dev/protocol"
	"go.uber.org/zap"

	"github.com/diningPhilosopher64/MATLAB-language-server/internal/providers"
)

const (
	commandFilterLintByLine    = "matlab.filterLintByLine"
	commandFilterLintByFile    = "matlab.filterLintByFile"
	commandRestartInterpreter  = "matlab.restartInterpreter"
)

// executeCommandURILineArgs is the {uri, line} payload shared by the
// line-filtering command and the code actions that invoke it.
type executeCommandURILineArgs struct {
	URI  string `json:"uri"`
	Line int    `json:"line"`
}

// executeCommandURIArgs is the {uri} payload shared by the
// file-filtering command and the code actions that invoke it.
type executeCommandURIArgs struct {
	URI string `json:"uri"`
}

// ExecuteCommand dispatches on params.Command; an unrecognized command
// is reported as an error, per the LSP spec's own guidance for
// executeCommand.
func (s *server) ExecuteCommand(ctx context.Context, params *protocol.ExecuteCommandParams) (interface{}, error) {
	switch params.Command {
	case commandFilterLintByLine:
		var args executeCommandURILineArgs
		if err := decodeCommandArgs(params.Arguments, &args); err != nil {
			return nil, err
		}
		return nil, s.filterLintByLine(ctx, args.URI, args.Line)
	case commandFilterLintByFile:
		var args executeCommandURIArgs
		if err := decodeCommandArgs(params.Arguments, &args); err != nil {
			return nil, err
		}
		return nil, s.filterLintByFile(ctx, args.URI)
	case commandRestartInterpreter:
		return nil, s.restartInterpreter(ctx)
	default:
		return nil, fmt.Errorf("langserver: unknown command %q", params.Command)
	}
}

func decodeCommandArgs(args []interface{}, out any) error {
	if len(args) == 0 {
		return fmt.Errorf("langserver: command called with no arguments")
	}
	raw, err := json.Marshal(args[0])
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

// filterLintByLine republishes uri's diagnostics with every record on
// line removed.
func (s *server) filterLintByLine(ctx context.Context, uri string, line int) error {
	text, ok := s.docs.Text(uri)
	if !ok {
		return nil
	}
	recs, err := s.providers.Lint(ctx, text, uri)
	if err != nil {
		if err == providers.ErrUnavailable {
			return nil
		}
		return err
	}
	filtered := recs[:0:0]
	for _, r := range recs {
		if r.Range.LineStart == line {
			continue
		}
		filtered = append(filtered, r)
	}
	s.notify(ctx, protocol.MethodTextDocumentPublishDiagnostics, &protocol.PublishDiagnosticsParams{
		URI:         protocol.DocumentURI(uri),
		Diagnostics: lintRecordsToDiagnostics(filtered),
	})
	return nil
}

// filterLintByFile clears every diagnostic currently published for uri.
func (s *server) filterLintByFile(ctx context.Context, uri string) error {
	s.notify(ctx, protocol.MethodTextDocumentPublishDiagnostics, &protocol.PublishDiagnosticsParams{
		URI:         protocol.DocumentURI(uri),
		Diagnostics: []protocol.Diagnostic{},
	})
	return nil
}

// restartInterpreter tears down the current connection (if any) and
// re-establishes one, per SUPPLEMENTED FEATURES #4.
func (s *server) restartInterpreter(ctx context.Context) error {
	if err := s.interp.Shutdown(ctx); err != nil {
		s.logger.Warn("restartInterpreter: shutdown failed", zap.Error(err))
	}
	_, err := s.interp.EnsureConnection(ctx)
	return err
}
