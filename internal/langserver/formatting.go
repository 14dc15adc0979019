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

package langserver

import (
	"context"
	"fmt"

	"go.lsp.dev/protocol"

	"github.com/diningPhilosopher64/MATLAB-language-server/internal/providers"
)

// Formatting implements documentFormattingProvider over
// internal/providers.Format; the whole document is replaced with the
// interpreter's reformatted text (spec §4.8).
func (s *server) Formatting(ctx context.Context, params *protocol.DocumentFormattingParams) ([]protocol.TextEdit, error) {
	uri := string(params.TextDocument.URI)
	text, ok := s.docs.Text(uri)
	if !ok {
		return nil, fmt.Errorf("langserver: formatting requested for a document that is not open: %q", uri)
	}

	insertSpaces := params.Options.InsertSpaces
	tabSize := int(params.Options.TabSize)
	out, err := s.providers.Format(ctx, text, insertSpaces, tabSize, tabSize)
	if err != nil {
		if err == providers.ErrUnavailable {
			s.notifyInterpreterUnavailable(ctx, "format")
			return nil, nil
		}
		return nil, err
	}

	return []protocol.TextEdit{{
		Range:   wholeDocumentRange(text),
		NewText: out,
	}}, nil
}

// wholeDocumentRange spans text end-to-end, for providers (format) that
// replace a document's contents wholesale rather than computing a
// precise diff.
func wholeDocumentRange(text string) protocol.Range {
	lines := 0
	lastLineLen := 0
	lineLen := 0
	for _, r := range text {
		if r == '\n' {
			lines++
			lineLen = 0
			continue
		}
		lineLen++
	}
	lastLineLen = lineLen
	return protocol.Range{
		Start: protocol.Position{Line: 0, Character: 0},
		End:   protocol.Position{Line: uint32(lines), Character: uint32(lastLineLen)},
	}
}
