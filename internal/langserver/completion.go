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

	"go.lsp.dev/protocol"

	"github.com/diningPhilosopher64/MATLAB-language-server/internal/providers"
	"github.com/diningPhilosopher64/MATLAB-language-server/internal/wire"
)

// Completion implements completionProvider over
// internal/providers.Completions. The cursor position is converted to
// a byte offset into the document's current text, since the wire
// protocol addresses the cursor as a single integer (spec §6.1).
func (s *server) Completion(ctx context.Context, params *protocol.CompletionParams) (*protocol.CompletionList, error) {
	uri := string(params.TextDocument.URI)
	text, ok := s.docs.Text(uri)
	if !ok {
		return nil, nil
	}

	offset := offsetAt(text, params.Position)
	resp, err := s.providers.Completions(ctx, text, uri, offset)
	if err != nil {
		if err == providers.ErrUnavailable {
			s.notifyInterpreterUnavailable(ctx, "completions")
			return nil, nil
		}
		return nil, err
	}

	return &protocol.CompletionList{
		IsIncomplete: resp.IsIncomplete,
		Items:        completionItemsToProtocol(resp.Items),
	}, nil
}

func completionItemsToProtocol(items []wire.CompletionItem) []protocol.CompletionItem {
	out := make([]protocol.CompletionItem, 0, len(items))
	for _, it := range items {
		out = append(out, protocol.CompletionItem{
			Label:      it.Label,
			Detail:     it.Detail,
			Kind:       protocol.CompletionItemKind(it.Kind),
			InsertText: it.InsertText,
		})
	}
	return out
}

// offsetAt converts a 0-based line/character position into a byte
// offset into text.
func offsetAt(text string, pos protocol.Position) int {
	line, char := 0, 0
	for i, r := range text {
		if line == int(pos.Line) && char == int(pos.Character) {
			return i
		}
		if r == '\n' {
			line++
			char = 0
			continue
		}
		char++
	}
	return len(text)
}
