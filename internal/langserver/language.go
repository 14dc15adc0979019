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

// This file defines the navigation handlers: go-to-definition, find
// references, and the two symbol providers, all layered over
// internal/navigation and internal/index.

package langserver

import (
	"context"
	"strings"

	"go.lsp.dev/protocol"
	"go.uber.org/zap"

	"github.com/diningPhilosopher64/MATLAB-language-server/internal/index"
	"github.com/diningPhilosopher64/MATLAB-language-server/internal/navigation"
)

// Definition implements definitionProvider over the five-stage search
// of spec §4.6. A resolver error (e.g. a disconnected path-resolution
// dependency) is not fatal: it is logged and treated as no result, per
// spec §7.
func (s *server) Definition(ctx context.Context, params *protocol.DefinitionParams) ([]protocol.Location, error) {
	locs, err := s.resolver.FindDefinition(ctx, string(params.TextDocument.URI), positionToRange(params.Position))
	if err != nil {
		s.logger.Debug("findDefinition failed", zap.Error(err))
		return nil, nil
	}
	return locationsToProtocol(locs), nil
}

// References implements referencesProvider over the two-stage search
// of spec §4.6.
func (s *server) References(ctx context.Context, params *protocol.ReferenceParams) ([]protocol.Location, error) {
	locs, err := s.resolver.FindReferences(string(params.TextDocument.URI), positionToRange(params.Position))
	if err != nil {
		s.logger.Debug("findReferences failed", zap.Error(err))
		return nil, nil
	}
	return locationsToProtocol(locs), nil
}

// DocumentSymbol implements documentSymbolProvider, derived directly
// from the current file's indexed code data (spec §6.2).
func (s *server) DocumentSymbol(ctx context.Context, params *protocol.DocumentSymbolParams) ([]interface{}, error) {
	fd, ok := s.index.File(string(params.TextDocument.URI))
	if !ok {
		return nil, nil
	}
	syms := fileSymbols(fd)
	out := make([]interface{}, 0, len(syms))
	for _, sym := range syms {
		out = append(out, sym)
	}
	return out, nil
}

// Symbols implements workspace/symbol (SUPPLEMENTED FEATURES #3): a
// case-insensitive substring match of query against every symbol in
// every indexed file, reusing fileSymbols, the same symbol-enumeration
// helper that backs document symbols.
func (s *server) Symbols(ctx context.Context, params *protocol.WorkspaceSymbolParams) ([]protocol.SymbolInformation, error) {
	query := strings.ToLower(params.Query)
	var out []protocol.SymbolInformation
	s.index.ForEachFile(func(fd *index.FileCodeData) {
		for _, sym := range fileSymbols(fd) {
			if query != "" && !strings.Contains(strings.ToLower(sym.Name), query) {
				continue
			}
			out = append(out, protocol.SymbolInformation{
				Name:     sym.Name,
				Kind:     sym.Kind,
				Location: protocol.Location{URI: protocol.DocumentURI(fd.URI), Range: rangeToProtocol(sym.Range)},
			})
		}
	})
	return out, nil
}

// documentSymbol is a flattened description shared by DocumentSymbol
// and Symbols.
type documentSymbol struct {
	Name  string
	Kind  protocol.SymbolKind
	Range index.Range
}

// fileSymbols enumerates the class, its properties and enumeration
// members, and every free function defined in fd. Class methods
// (functions with a ParentClass) are not listed.
func fileSymbols(fd *index.FileCodeData) []documentSymbol {
	var out []documentSymbol
	if fd.ClassInfo != nil && fd.IsClassDef {
		out = append(out, documentSymbol{Name: fd.ClassInfo.Name, Kind: protocol.SymbolKindClass, Range: fd.ClassInfo.Range})
		for _, m := range fd.ClassInfo.Properties {
			out = append(out, documentSymbol{Name: m.Name, Kind: protocol.SymbolKindProperty, Range: m.Range})
		}
		for _, m := range fd.ClassInfo.Enumerations {
			out = append(out, documentSymbol{Name: m.Name, Kind: protocol.SymbolKindEnumMember, Range: m.Range})
		}
	}
	for _, fn := range fd.Functions.All() {
		if fn.ParentClass != "" {
			continue
		}
		out = append(out, documentSymbol{Name: fn.Name, Kind: protocol.SymbolKindFunction, Range: fn.Range})
	}
	return out
}

func positionToRange(pos protocol.Position) index.Range {
	line := int(pos.Line) + 1
	return index.Range{LineStart: line, CharStart: int(pos.Character), LineEnd: line, CharEnd: int(pos.Character)}
}

func locationsToProtocol(locs []navigation.Location) []protocol.Location {
	out := make([]protocol.Location, 0, len(locs))
	for _, l := range locs {
		out = append(out, protocol.Location{URI: protocol.DocumentURI(l.URI), Range: rangeToProtocol(l.Range)})
	}
	return out
}
