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

package navigation_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/diningPhilosopher64/MATLAB-language-server/internal/index"
	"github.com/diningPhilosopher64/MATLAB-language-server/internal/navigation"
	"github.com/diningPhilosopher64/MATLAB-language-server/internal/wire"
)

type fakeDocs struct {
	lines map[string][]string
}

func (f *fakeDocs) Line(uri string, line int) (string, bool) {
	lines, ok := f.lines[uri]
	if !ok || line < 0 || line >= len(lines) {
		return "", false
	}
	return lines[line], true
}

type fakeResolver struct {
	byIdentifier map[string]wire.IdentifierDefinitionResult
}

func (f *fakeResolver) ResolvePaths(ctx context.Context, identifiers []string, contextFileURI string) ([]wire.IdentifierDefinitionResult, error) {
	out := make([]wire.IdentifierDefinitionResult, 0, len(identifiers))
	for _, id := range identifiers {
		if r, ok := f.byIdentifier[id]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

func rng(lineStart, charStart, lineEnd, charEnd int) index.Range {
	return index.Range{LineStart: lineStart, CharStart: charStart, LineEnd: lineEnd, CharEnd: charEnd}
}

// TestFindDefinitionScopeLocalVariable covers invariant 4: scope-local
// resolution returns only ranges from the URI passed in.
func TestFindDefinitionScopeLocalVariable(t *testing.T) {
	t.Parallel()
	ix := index.New()
	uri := "file:///foo.m"

	ix.ParseAndStore(uri, index.WriteKindDocument, wire.RawCodeData{
		FunctionInfo: []wire.RawFunctionInfo{
			{
				Name:  "foo",
				Range: wire.Range{LineStart: 0, CharStart: 0, LineEnd: 2, CharEnd: 3},
				VariableInfo: []wire.RawVariableInfo{
					{Name: "x", Definitions: []wire.Range{rng(1, 0, 1, 1)}},
				},
			},
		},
	})

	docs := &fakeDocs{lines: map[string][]string{uri: {"function foo()", "x = 1;", "end"}}}
	r := navigation.New(zap.NewNop(), ix, docs, nil)

	locs, err := r.FindDefinition(context.Background(), uri, rng(1, 0, 1, 0))
	require.NoError(t, err)
	require.Len(t, locs, 1)
	assert.Equal(t, uri, locs[0].URI)
	assert.Equal(t, rng(1, 0, 1, 1), locs[0].Range)
}

// TestFindReferencesScopeLocalVariable is scenario S3.
func TestFindReferencesScopeLocalVariable(t *testing.T) {
	t.Parallel()
	ix := index.New()
	uri := "file:///foo.m"

	// x's assignment (the LHS of "x = 1") counts as both a definition and
	// a reference occurrence, matching find-references' usual
	// include-the-declaration convention; x's use in "x + 2" is a plain
	// reference.
	xDef := rng(0, 0, 0, 1)
	xUse := rng(0, 11, 0, 12)
	ix.ParseAndStore(uri, index.WriteKindDocument, wire.RawCodeData{
		FunctionInfo: []wire.RawFunctionInfo{
			{
				Name:  "script",
				Range: wire.Range{LineStart: 0, CharStart: 0, LineEnd: 0, CharEnd: 17},
				VariableInfo: []wire.RawVariableInfo{
					{Name: "x", Definitions: []wire.Range{xDef}, References: []wire.Range{xDef, xUse}},
				},
			},
		},
	})

	docs := &fakeDocs{lines: map[string][]string{uri: {"x = 1; y = x + 2;"}}}
	r := navigation.New(zap.NewNop(), ix, docs, nil)

	locs, err := r.FindReferences(uri, rng(0, 11, 0, 11))
	require.NoError(t, err)
	require.Len(t, locs, 2)
	assert.ElementsMatch(t, []index.Range{xDef, xUse}, []index.Range{locs[0].Range, locs[1].Range})
	for _, l := range locs {
		assert.Equal(t, uri, l.URI)
	}
}

// TestFindReferencesPrivateFunctionOnlyCurrentFile covers invariant 5.
func TestFindReferencesPrivateFunctionOnlyCurrentFile(t *testing.T) {
	t.Parallel()
	ix := index.New()
	uriA := "file:///a.m"
	uriB := "file:///b.m"

	callRangeA := rng(2, 0, 2, 6)
	ix.ParseAndStore(uriA, index.WriteKindDocument, wire.RawCodeData{
		FunctionInfo: []wire.RawFunctionInfo{
			{Name: "helper", Range: rng(0, 0, 0, 20), IsPublic: false},
		},
		References: []wire.RawReference{{Name: "helper", Ranges: []wire.Range{callRangeA}}},
	})
	ix.ParseAndStore(uriB, index.WriteKindDocument, wire.RawCodeData{
		References: []wire.RawReference{{Name: "helper", Ranges: []wire.Range{rng(3, 0, 3, 6)}}},
	})

	docs := &fakeDocs{lines: map[string][]string{uriA: {"", "", "helper()"}}}
	r := navigation.New(zap.NewNop(), ix, docs, nil)

	locs, err := r.FindReferences(uriA, rng(2, 0, 2, 0))
	require.NoError(t, err)
	require.Len(t, locs, 1)
	assert.Equal(t, uriA, locs[0].URI)
	assert.Equal(t, callRangeA, locs[0].Range)
}

// TestFindDefinitionInFileFunction is scenario S1's in-file half: a
// direct lookup of a function defined in the same file.
func TestFindDefinitionInFileFunction(t *testing.T) {
	t.Parallel()
	ix := index.New()
	uri := "file:///a/b.m"
	decl := rng(0, 13, 0, 16)

	ix.ParseAndStore(uri, index.WriteKindDocument, wire.RawCodeData{
		FunctionInfo: []wire.RawFunctionInfo{
			{Name: "foo", Range: rng(0, 0, 2, 3), Declaration: &decl},
		},
	})

	docs := &fakeDocs{lines: map[string][]string{uri: {"function r = foo(x)", "r = x + 1;", "end"}}}
	r := navigation.New(zap.NewNop(), ix, docs, nil)

	locs, err := r.FindDefinition(context.Background(), uri, rng(0, 16, 0, 16))
	require.NoError(t, err)
	require.Len(t, locs, 1)
	assert.Equal(t, uri, locs[0].URI)
	assert.Equal(t, decl, locs[0].Range)
}

// TestFindDefinitionPathResolvedExternal is scenario S1's call-site
// half: calling foo from a second file resolves through the path
// resolver to a/b.m's declaration, without a second round-trip since
// a/b.m is already indexed.
func TestFindDefinitionPathResolvedExternal(t *testing.T) {
	t.Parallel()
	ix := index.New()
	uriB := "file:///a/b.m"
	uriC := "file:///a/c.m"
	decl := rng(0, 14, 0, 20)

	ix.ParseAndStore(uriB, index.WriteKindDocument, wire.RawCodeData{
		FunctionInfo: []wire.RawFunctionInfo{
			{Name: "foo", Range: rng(0, 0, 2, 3), Declaration: &decl},
		},
	})
	ix.ParseAndStore(uriC, index.WriteKindDocument, wire.RawCodeData{})

	resolver := &fakeResolver{byIdentifier: map[string]wire.IdentifierDefinitionResult{
		"foo": {
			Identifier: "foo",
			FileInfo:   &wire.ResolvedFileInfo{FileName: uriB},
		},
	}}

	docs := &fakeDocs{lines: map[string][]string{uriC: {"r2 = foo(5);"}}}
	r := navigation.New(zap.NewNop(), ix, docs, resolver)

	locs, err := r.FindDefinition(context.Background(), uriC, rng(0, 6, 0, 6))
	require.NoError(t, err)
	require.Len(t, locs, 1)
	assert.Equal(t, uriB, locs[0].URI)
	assert.Equal(t, decl, locs[0].Range)
}

// TestFindDefinitionPathResolverNotFoundForDirectory covers the "result
// is a directory" rule: a nil FileInfo is treated as not-found, falling
// through to an empty result once the workspace-wide stage also misses.
func TestFindDefinitionPathResolverNotFoundForDirectory(t *testing.T) {
	t.Parallel()
	ix := index.New()
	uri := "file:///a/c.m"
	ix.ParseAndStore(uri, index.WriteKindDocument, wire.RawCodeData{})

	resolver := &fakeResolver{byIdentifier: map[string]wire.IdentifierDefinitionResult{
		"somedir": {Identifier: "somedir", FileInfo: nil},
	}}
	docs := &fakeDocs{lines: map[string][]string{uri: {"somedir"}}}
	r := navigation.New(zap.NewNop(), ix, docs, resolver)

	locs, err := r.FindDefinition(context.Background(), uri, rng(0, 0, 0, 0))
	require.NoError(t, err)
	assert.Empty(t, locs)
}

// TestFindDefinitionRequiresSymbolSearchLineOneTreatedAsNotFound covers
// invariant 9.
func TestFindDefinitionRequiresSymbolSearchLineOneTreatedAsNotFound(t *testing.T) {
	t.Parallel()
	ix := index.New()
	uri := "file:///a/c.m"
	ix.ParseAndStore(uri, index.WriteKindDocument, wire.RawCodeData{})

	resolver := &fakeResolver{byIdentifier: map[string]wire.IdentifierDefinitionResult{
		"pkg.missing": {
			Identifier:           "pkg.missing",
			FileInfo:             &wire.ResolvedFileInfo{FileName: "file:///pkg/pkg.m", Line: 1},
			RequiresSymbolSearch: true,
		},
	}}
	docs := &fakeDocs{lines: map[string][]string{uri: {"pkg.missing"}}}
	r := navigation.New(zap.NewNop(), ix, docs, resolver)

	locs, err := r.FindDefinition(context.Background(), uri, rng(0, 0, 0, 0))
	require.NoError(t, err)
	assert.Empty(t, locs)
}

// TestFindDefinitionRecursivePrefixProperty is scenario S4: pkg.sub.Cls.PROP
// resolves via the path resolver's recursive prefix rule to the class
// file, and the last component is found as a property there.
func TestFindDefinitionRecursivePrefixProperty(t *testing.T) {
	t.Parallel()
	ix := index.New()
	uriCaller := "file:///caller.m"
	uriClass := "file:///pkg/+sub/@Cls/Cls.m"
	propRange := rng(5, 4, 5, 8)

	ix.ParseAndStore(uriCaller, index.WriteKindDocument, wire.RawCodeData{})

	resolver := &fakeResolver{byIdentifier: map[string]wire.IdentifierDefinitionResult{
		"pkg.sub.Cls.PROP": {
			Identifier: "pkg.sub.Cls.PROP",
			FileInfo: &wire.ResolvedFileInfo{
				FileName: uriClass,
				Line:     6,
				Char:     4,
				CodeData: wire.RawCodeData{
					ClassInfo: wire.RawClassInfo{
						HasClassInfo: true,
						IsClassDef:   true,
						Name:         "Cls",
						Properties:   []wire.RawMemberInfo{{Name: "PROP", Range: propRange, Visibility: "public"}},
					},
				},
			},
			RequiresSymbolSearch: true,
		},
	}}

	docs := &fakeDocs{lines: map[string][]string{uriCaller: {"pkg.sub.Cls.PROP"}}}
	r := navigation.New(zap.NewNop(), ix, docs, resolver)

	locs, err := r.FindDefinition(context.Background(), uriCaller, rng(0, 15, 0, 15))
	require.NoError(t, err)
	require.Len(t, locs, 1)
	assert.Equal(t, uriClass, locs[0].URI)
	assert.Equal(t, propRange, locs[0].Range)
}

// TestFindDefinitionPathResolvedIntermediateComponent covers a cursor on
// a non-last component of the dotted expression: "pkg.sub.Cls.PROP"
// with the cursor inside "Cls" must resolve "pkg.sub.Cls" (the prefix
// up to and including the selected component), not the whole
// expression, to the path resolver (spec §4.6 stage 4, §3 Data Model
// "targetExpression").
func TestFindDefinitionPathResolvedIntermediateComponent(t *testing.T) {
	t.Parallel()
	ix := index.New()
	uriCaller := "file:///caller.m"
	uriClass := "file:///pkg/+sub/@Cls/Cls.m"
	classDecl := rng(0, 0, 0, 3)

	ix.ParseAndStore(uriCaller, index.WriteKindDocument, wire.RawCodeData{})

	resolver := &fakeResolver{byIdentifier: map[string]wire.IdentifierDefinitionResult{
		"pkg.sub.Cls": {
			Identifier: "pkg.sub.Cls",
			FileInfo:   &wire.ResolvedFileInfo{FileName: uriClass},
		},
		// If the full expression were sent instead of the target, the
		// resolver would find this entry and the test would pass for
		// the wrong reason, so it's deliberately a different location.
		"pkg.sub.Cls.PROP": {
			Identifier: "pkg.sub.Cls.PROP",
			FileInfo:   &wire.ResolvedFileInfo{FileName: "file:///wrong.m"},
		},
	}}
	ix.ParseAndStore(uriClass, index.WriteKindDocument, wire.RawCodeData{
		FunctionInfo: []wire.RawFunctionInfo{{Name: "Cls", Range: classDecl, Declaration: &classDecl}},
	})

	// Cursor at char 9, inside "Cls" (pkg.sub.Cls.PROP: indices 8-10).
	docs := &fakeDocs{lines: map[string][]string{uriCaller: {"pkg.sub.Cls.PROP"}}}
	r := navigation.New(zap.NewNop(), ix, docs, resolver)

	locs, err := r.FindDefinition(context.Background(), uriCaller, rng(0, 9, 0, 9))
	require.NoError(t, err)
	require.Len(t, locs, 1)
	assert.Equal(t, uriClass, locs[0].URI)
}

// TestFindDefinitionWorkspaceWide covers stage 5, never matching the
// originating URI.
func TestFindDefinitionWorkspaceWide(t *testing.T) {
	t.Parallel()
	ix := index.New()
	uriOrigin := "file:///origin.m"
	uriOther := "file:///other.m"
	fnRange := rng(0, 0, 0, 10)

	ix.ParseAndStore(uriOrigin, index.WriteKindDocument, wire.RawCodeData{
		PackageName: "mypkg",
		FunctionInfo: []wire.RawFunctionInfo{
			{Name: "widget", Range: fnRange},
		},
	})
	ix.ParseAndStore(uriOther, index.WriteKindDocument, wire.RawCodeData{
		PackageName: "mypkg",
		FunctionInfo: []wire.RawFunctionInfo{
			{Name: "widget", Range: fnRange},
		},
	})

	docs := &fakeDocs{lines: map[string][]string{uriOrigin: {"mypkg.widget()"}}}
	r := navigation.New(zap.NewNop(), ix, docs, nil)

	locs, err := r.FindDefinition(context.Background(), uriOrigin, rng(0, 7, 0, 7))
	require.NoError(t, err)
	require.Len(t, locs, 1)
	assert.Equal(t, uriOther, locs[0].URI)
}

// TestExtractExpressionBoundary covers invariant 8: a match ending
// exactly at the cursor counts as covering it; one ending strictly
// before does not.
func TestExtractExpressionBoundary(t *testing.T) {
	t.Parallel()
	ix := index.New()
	uri := "file:///b.m"
	ix.ParseAndStore(uri, index.WriteKindDocument, wire.RawCodeData{
		FunctionInfo: []wire.RawFunctionInfo{{Name: "abc", Range: rng(0, 0, 0, 3)}},
	})
	docs := &fakeDocs{lines: map[string][]string{uri: {"abc   xyz"}}}
	r := navigation.New(zap.NewNop(), ix, docs, nil)

	// Cursor at char 3 is exactly the end of "abc" -> covers it.
	locs, err := r.FindDefinition(context.Background(), uri, rng(0, 3, 0, 3))
	require.NoError(t, err)
	require.Len(t, locs, 1)
	assert.Equal(t, uri, locs[0].URI)

	// Cursor at char 4 sits strictly after "abc"'s end (3) and strictly
	// before "xyz"'s start (6): no match covers it, so extraction fails
	// outright and findDefinition returns empty without even reaching
	// the index.
	locs, err = r.FindDefinition(context.Background(), uri, rng(0, 4, 0, 4))
	require.NoError(t, err)
	assert.Empty(t, locs)
}
