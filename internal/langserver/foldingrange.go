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
)

// FoldingRanges implements foldingRangeProvider over
// internal/providers.FoldDocument, which returns a flat sequence of
// [startLine, endLine, ...] pairs (spec §6.1).
func (s *server) FoldingRanges(ctx context.Context, params *protocol.FoldingRangeParams) ([]protocol.FoldingRange, error) {
	uri := string(params.TextDocument.URI)
	text, ok := s.docs.Text(uri)
	if !ok {
		return nil, nil
	}

	lines, err := s.providers.FoldDocument(ctx, text)
	if err != nil {
		if err == providers.ErrUnavailable {
			s.notifyInterpreterUnavailable(ctx, "foldingRange")
			return nil, nil
		}
		return nil, err
	}

	out := make([]protocol.FoldingRange, 0, len(lines)/2)
	for i := 0; i+1 < len(lines); i += 2 {
		out = append(out, protocol.FoldingRange{
			StartLine: uint32(lines[i] - 1),
			EndLine:   uint32(lines[i+1] - 1),
			Kind:      "region",
		})
	}
	return out, nil
}
