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

// This file implements signatureHelpProvider directly rather than over
// a wire round-trip, for the same reason as codeaction.go: spec.md §6
// names the capability and its trigger characters but defines no wire
// channel for it. The implementation walks back from the cursor to the
// nearest unmatched '(' to find the call's function name, then looks it
// up in the symbol index the same way the navigation resolver's stage 2
// does.
package langserver

import (
	"context"
	"strings"

	"go.lsp.dev/protocol"

	"github.com/diningPhilosopher64/MATLAB-language-server/internal/index"
)

// SignatureHelp reports the enclosing call's function name as a single
// signature candidate when the cursor sits inside a call's argument
// list and the callee is known to the index.
func (s *server) SignatureHelp(ctx context.Context, params *protocol.SignatureHelpParams) (*protocol.SignatureHelp, error) {
	uri := string(params.TextDocument.URI)
	text, ok := s.docs.Text(uri)
	if !ok {
		return nil, nil
	}

	line, ok := lineAt(text, int(params.Position.Line))
	if !ok {
		return nil, nil
	}
	name, activeParam, ok := enclosingCall(line, int(params.Position.Character))
	if !ok {
		return nil, nil
	}

	fd, ok := s.index.File(uri)
	if !ok {
		return nil, nil
	}
	fn, ok := fd.Functions.Get(name)
	if !ok {
		return nil, nil
	}

	return &protocol.SignatureHelp{
		Signatures: []protocol.SignatureInformation{
			{Label: functionSignatureLabel(fn)},
		},
		ActiveSignature: 0,
		ActiveParameter: uint32(activeParam),
	}, nil
}

func functionSignatureLabel(fn *index.FunctionInfo) string {
	return fn.Name + "(...)"
}

func lineAt(text string, line int) (string, bool) {
	lines := strings.Split(text, "\n")
	if line < 0 || line >= len(lines) {
		return "", false
	}
	return lines[line], true
}

// enclosingCall walks back from character, counting commas since the
// nearest unmatched '(' (tracking nested balanced parens along the
// way), and returns the identifier immediately preceding that '(' plus
// the comma count as the active parameter index.
func enclosingCall(line string, character int) (name string, activeParam int, ok bool) {
	if character > len(line) {
		character = len(line)
	}
	depth := 0
	commas := 0
	for i := character - 1; i >= 0; i-- {
		switch line[i] {
		case ')':
			depth++
		case ',':
			if depth == 0 {
				commas++
			}
		case '(':
			if depth == 0 {
				name, ok = identifierBefore(line, i)
				if !ok {
					return "", 0, false
				}
				return name, commas, true
			}
			depth--
		}
	}
	return "", 0, false
}

func identifierBefore(line string, openParen int) (string, bool) {
	end := openParen
	start := end
	for start > 0 && isIdentifierByte(line[start-1]) {
		start--
	}
	if start == end {
		return "", false
	}
	return line[start:end], true
}

func isIdentifierByte(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}
