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

package navigation

import (
	"context"

	"go.uber.org/zap"

	"github.com/diningPhilosopher64/MATLAB-language-server/internal/index"
	"github.com/diningPhilosopher64/MATLAB-language-server/internal/wire"
)

// Location is one {uri, range} result of findDefinition/findReferences.
type Location struct {
	URI   string
	Range index.Range
}

// DocumentStore supplies the current text of an open document, one line
// at a time, so the resolver can extract the expression under the
// cursor without needing its own copy of every open buffer.
type DocumentStore interface {
	Line(uri string, line int) (string, bool)
}

// PathResolver is the subset of internal/pathresolve the navigation
// resolver needs for stage 4 (spec §4.6, §4.7).
type PathResolver interface {
	ResolvePaths(ctx context.Context, identifiers []string, contextFileURI string) ([]wire.IdentifierDefinitionResult, error)
}

// Resolver implements findDefinition and findReferences (spec §4.6).
type Resolver struct {
	logger   *zap.Logger
	index    *index.Index
	docs     DocumentStore
	resolver PathResolver
}

// New returns a Resolver.
func New(logger *zap.Logger, ix *index.Index, docs DocumentStore, resolver PathResolver) *Resolver {
	return &Resolver{
		logger:   logger.Named("navigation"),
		index:    ix,
		docs:     docs,
		resolver: resolver,
	}
}

func (r *Resolver) expressionAt(uri string, pos index.Range) (expression, bool) {
	line, ok := r.docs.Line(uri, pos.LineStart)
	if !ok {
		return expression{}, false
	}
	return extractExpression(line, pos.CharStart)
}

// FindDefinition implements the five-stage search of spec §4.6.
func (r *Resolver) FindDefinition(ctx context.Context, uri string, pos index.Range) ([]Location, error) {
	expr, ok := r.expressionAt(uri, pos)
	if !ok {
		return nil, nil
	}

	// Stage 1: scope-local variable.
	if expr.componentIdx == 0 {
		if locs, ok := r.scopeLocalDefinitions(uri, pos, expr.components[0]); ok {
			return locs, nil
		}
	}

	fd, haveFD := r.index.File(uri)

	// Stages 2-3 against the current file.
	if haveFD {
		if loc, ok := definitionInFile(fd, expr); ok {
			return []Location{loc}, nil
		}
	}

	// Stage 4: path-resolved external.
	if r.resolver != nil {
		if locs, ok, err := r.pathResolvedDefinition(ctx, uri, expr); err != nil {
			return nil, err
		} else if ok {
			return locs, nil
		}
	}

	// Stage 5: workspace-wide.
	if loc, ok := r.workspaceWideDefinition(uri, expr); ok {
		return []Location{loc}, nil
	}

	return nil, nil
}

// scopeLocalDefinitions implements stage 1 of findDefinition, returning
// the variable's definition ranges. FindReferences does its own stage 1
// lookup over the variable's reference ranges.
func (r *Resolver) scopeLocalDefinitions(uri string, pos index.Range, name string) ([]Location, bool) {
	fn, ok := r.index.FindContainingFunction(uri, pos)
	if !ok {
		return nil, false
	}
	v, ok := fn.Variables[name]
	if !ok {
		return nil, false
	}
	out := make([]Location, 0, len(v.Definitions))
	for _, rg := range v.Definitions {
		out = append(out, Location{URI: uri, Range: rg})
	}
	if len(out) == 0 {
		return nil, false
	}
	return out, true
}

// definitionInFile implements stages 2 and 3 against a single file's
// already-parsed code data.
func definitionInFile(fd *index.FileCodeData, expr expression) (Location, bool) {
	// Stage 2: in-file function, or class method for a class file.
	if fn, ok := fd.Functions.Get(expr.full); ok {
		return Location{URI: fn.FileURI, Range: functionNameRange(fn)}, true
	}
	if fd.IsClassDef && fd.ClassInfo != nil {
		if fn, ok := fd.ClassInfo.Methods[expr.full]; ok {
			return Location{URI: fd.URI, Range: functionNameRange(fn)}, true
		}
	}

	// Stage 3: class member (property/enumeration), only on component 1
	// of a class-definition file.
	if fd.IsClassDef && fd.ClassInfo != nil && expr.componentIdx == 1 && len(expr.components) >= 2 {
		last := expr.components[len(expr.components)-1]
		if m, ok := fd.ClassInfo.Properties[last]; ok {
			return Location{URI: fd.ClassInfo.URI, Range: m.Range}, true
		}
		if m, ok := fd.ClassInfo.Enumerations[last]; ok {
			return Location{URI: fd.ClassInfo.URI, Range: m.Range}, true
		}
	}

	return Location{}, false
}

func functionNameRange(fn *index.FunctionInfo) index.Range {
	if fn.Declaration != nil {
		return *fn.Declaration
	}
	return fn.Range
}

// pathResolvedDefinition implements stage 4: ask the path resolver,
// index the resolved file if needed, re-apply stages 2-3 against it,
// and fall back to a zero-range location so the editor can at least
// open the file.
func (r *Resolver) pathResolvedDefinition(ctx context.Context, uri string, expr expression) ([]Location, bool, error) {
	results, err := r.resolver.ResolvePaths(ctx, []string{expr.target()}, uri)
	if err != nil {
		return nil, false, err
	}
	if len(results) == 0 {
		return nil, false, nil
	}
	res := results[0]
	if res.FileInfo == nil {
		// Not found, or the resolved path is a directory.
		return nil, false, nil
	}
	if res.RequiresSymbolSearch && res.FileInfo.Line <= 1 {
		return nil, false, nil
	}

	resolvedURI := res.FileInfo.FileName
	fd, ok := r.index.File(resolvedURI)
	if !ok {
		fd = r.index.ParseAndStore(resolvedURI, index.WriteKindWorkspace, res.FileInfo.CodeData)
	}
	if fd != nil {
		if loc, ok := definitionInResolvedFile(fd, expr); ok {
			return []Location{loc}, true, nil
		}
	}

	return []Location{{URI: resolvedURI, Range: index.Range{}}}, true, nil
}

// definitionInResolvedFile re-applies stages 2-3 against a file reached
// through the path resolver (spec §4.6 stage 4). Unlike definitionInFile,
// property/enumeration lookup is not gated on which component of the
// original expression the cursor sat on: the resolver has already
// navigated to the right file via its own recursive prefix rule (spec
// §4.7 step 5), so the only remaining question is whether the last
// component names a member of it.
func definitionInResolvedFile(fd *index.FileCodeData, expr expression) (Location, bool) {
	if loc, ok := definitionInFile(fd, expr); ok {
		return loc, true
	}
	if fd.IsClassDef && fd.ClassInfo != nil {
		last := expr.components[len(expr.components)-1]
		if m, ok := fd.ClassInfo.Properties[last]; ok {
			return Location{URI: fd.ClassInfo.URI, Range: m.Range}, true
		}
		if m, ok := fd.ClassInfo.Enumerations[last]; ok {
			return Location{URI: fd.ClassInfo.URI, Range: m.Range}, true
		}
	}
	return Location{}, false
}

// workspaceWideDefinition implements stage 5: scan every cached file's
// class/property/enumeration/function names for a candidate match equal
// to expr.full, never considering the originating file.
func (r *Resolver) workspaceWideDefinition(originURI string, expr expression) (Location, bool) {
	var found Location
	var hit bool
	r.index.ForEachFile(func(fd *index.FileCodeData) {
		if hit || fd.URI == originURI {
			return
		}
		for _, candidate := range candidateNames(fd) {
			if candidate.name == expr.full {
				found = Location{URI: fd.URI, Range: candidate.rng}
				hit = true
				return
			}
		}
	})
	return found, hit
}

type candidate struct {
	name string
	rng  index.Range
}

// candidateNames builds every `<packageName>[.<className>].<memberName>`
// name fd could be referred to by from elsewhere in the workspace (spec
// §4.6 stage 5).
func candidateNames(fd *index.FileCodeData) []candidate {
	var out []candidate
	prefix := fd.PackageName

	addPrefixed := func(base, name string, rng index.Range) {
		full := name
		if base != "" {
			full = base + "." + name
		}
		out = append(out, candidate{name: full, rng: rng})
	}

	if fd.ClassInfo != nil {
		classBase := prefix
		if classBase != "" {
			classBase += "." + fd.ClassInfo.Name
		} else {
			classBase = fd.ClassInfo.Name
		}
		for name, m := range fd.ClassInfo.Properties {
			addPrefixed(classBase, name, m.Range)
		}
		for name, m := range fd.ClassInfo.Enumerations {
			addPrefixed(classBase, name, m.Range)
		}
		for name, fn := range fd.ClassInfo.Methods {
			addPrefixed(classBase, name, functionNameRange(fn))
		}
	}

	for _, fn := range fd.Functions.All() {
		if fn.ParentClass != "" {
			continue
		}
		addPrefixed(prefix, fn.Name, functionNameRange(fn))
	}

	return out
}

// FindReferences implements the two-stage search of spec §4.6.
func (r *Resolver) FindReferences(uri string, pos index.Range) ([]Location, error) {
	expr, ok := r.expressionAt(uri, pos)
	if !ok {
		return nil, nil
	}

	if expr.componentIdx == 0 {
		fn, ok := r.index.FindContainingFunction(uri, pos)
		if ok {
			if v, ok := fn.Variables[expr.components[0]]; ok && len(v.References) > 0 {
				out := make([]Location, 0, len(v.References))
				for _, rg := range v.References {
					out = append(out, Location{URI: uri, Range: rg})
				}
				return out, nil
			}
		}
	}

	fd, ok := r.index.File(uri)
	if ok && isPrivateFunction(fd, expr.full) {
		return locationsForRanges(uri, fd.References[expr.full]), nil
	}

	var out []Location
	r.index.ForEachFile(func(fd *index.FileCodeData) {
		if isPrivateFunction(fd, expr.full) {
			return
		}
		out = append(out, locationsForRanges(fd.URI, fd.References[expr.full])...)
	})
	return out, nil
}

func isPrivateFunction(fd *index.FileCodeData, name string) bool {
	fn, ok := fd.Functions.Get(name)
	return ok && fn.Visibility == index.Private
}

func locationsForRanges(uri string, ranges []index.Range) []Location {
	out := make([]Location, 0, len(ranges))
	for _, rg := range ranges {
		out = append(out, Location{URI: uri, Range: rg})
	}
	return out
}
