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

// This file implements codeActionProvider directly rather than over a
// wire round-trip: spec.md §6.1/internal/wire/channels.go define no
// request/response pair for code actions, so there is no interpreter
// contract to wrap (see DESIGN.md's internal/providers entry). The
// actions offered are the two documented diagnostic-filtering commands
// (spec §6.2), surfaced as quick fixes attached to the diagnostics
// already published for the document.
package langserver

import (
	"context"
	"fmt"

	"go.lsp.dev/protocol"
)

// CodeAction offers one "filter lint diagnostics" quick fix per
// diagnostic the client sent back in params.Context, plus a
// whole-file variant unconditionally.
func (s *server) CodeAction(ctx context.Context, params *protocol.CodeActionParams) ([]protocol.CodeAction, error) {
	uri := params.TextDocument.URI

	var actions []protocol.CodeAction
	for _, diag := range params.Context.Diagnostics {
		line := int(diag.Range.Start.Line) + 1
		actions = append(actions, protocol.CodeAction{
			Title: fmt.Sprintf("Filter MATLAB lint diagnostics on line %d", line),
			Kind:  protocol.QuickFix,
			Diagnostics: []protocol.Diagnostic{diag},
			Command: &protocol.Command{
				Title:     "Filter diagnostics on this line",
				Command:   commandFilterLintByLine,
				Arguments: []interface{}{executeCommandURILineArgs{URI: string(uri), Line: line}},
			},
		})
	}

	actions = append(actions, protocol.CodeAction{
		Title: "Filter all MATLAB lint diagnostics in this file",
		Kind:  protocol.SourceFixAll,
		Command: &protocol.Command{
			Title:     "Filter diagnostics in this file",
			Command:   commandFilterLintByFile,
			Arguments: []interface{}{executeCommandURIArgs{URI: string(uri)}},
		},
	})

	return actions, nil
}
