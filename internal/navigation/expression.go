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

// Package navigation implements findDefinition and findReferences (spec
// §4.6): extracting the dotted-identifier expression under the cursor,
// then resolving it through a layered sequence of lookup stages against
// the symbol index and the path resolver.
package navigation

import (
	"regexp"
	"strings"
)

// dottedIdentifier matches a run of `name(.name)*` components.
var dottedIdentifier = regexp.MustCompile(`[A-Za-z_][A-Za-z_0-9]*(\.[A-Za-z_][A-Za-z_0-9]*)*`)

// expression is the dotted-identifier run under the cursor, split into
// its components, with componentIdx identifying which component the
// cursor falls inside.
type expression struct {
	full         string
	components   []string
	componentIdx int
}

// target joins the expression's components up to and including the one
// the cursor sits in (spec §3 Data Model "targetExpression"): the
// identifier whose definition a cursor on an intermediate component
// (e.g. "Cls" in "pkg.sub.Cls.PROP") should resolve to, as opposed to
// full, which always names the whole dotted run regardless of where
// the cursor falls within it.
func (e expression) target() string {
	return strings.Join(e.components[:e.componentIdx+1], ".")
}

// extractExpression finds the maximal dotted-identifier run in line that
// covers character cursorChar, then determines which dot-separated
// component the cursor is inside of. It returns ok=false if no match
// spans the cursor (spec §4.6 "Expression extraction").
func extractExpression(line string, cursorChar int) (expression, bool) {
	for _, loc := range dottedIdentifier.FindAllStringIndex(line, -1) {
		start, end := loc[0], loc[1]
		if cursorChar < start || cursorChar > end {
			continue
		}
		full := line[start:end]
		components := strings.Split(full, ".")

		offset := start
		idx := len(components) - 1
		for i, c := range components {
			compEnd := offset + len(c)
			if cursorChar <= compEnd {
				idx = i
				break
			}
			offset = compEnd + 1 // skip the '.'
		}
		return expression{full: full, components: components, componentIdx: idx}, true
	}
	return expression{}, false
}
