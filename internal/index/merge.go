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

package index

import "github.com/diningPhilosopher64/MATLAB-language-server/internal/wire"

// normalizeFunctions converts the interpreter's RawFunctionInfo list into a
// FunctionTable, preserving the order the interpreter reported them in.
func normalizeFunctions(uri string, raw []wire.RawFunctionInfo) *FunctionTable {
	table := NewFunctionTable()
	for _, rf := range raw {
		fn := &FunctionInfo{
			Name:        rf.Name,
			ParentClass: rf.ParentClass,
			Range:       rf.Range,
			Visibility:  publicBoolToVisibility(rf.IsPublic),
			IsPrototype: rf.IsPrototype,
			Variables:   make(map[string]*VariableInfo),
			Globals:     make(map[string]struct{}),
			FileURI:     uri,
		}
		if rf.Declaration != nil {
			d := *rf.Declaration
			fn.Declaration = &d
		}
		for _, v := range rf.VariableInfo {
			fn.Variables[v.Name] = &VariableInfo{
				Definitions: append([]Range(nil), v.Definitions...),
				References:  append([]Range(nil), v.References...),
			}
		}
		for _, g := range rf.Globals {
			fn.Globals[g] = struct{}{}
		}
		table.Set(rf.Name, fn)
	}
	return table
}

func publicBoolToVisibility(isPublic bool) Visibility {
	if isPublic {
		return Public
	}
	return Private
}

// normalizeReferences converts the interpreter's flat reference list into
// the dotted-name -> ranges map used by the index.
func normalizeReferences(raw []wire.RawReference) map[string][]Range {
	out := make(map[string][]Range, len(raw))
	for _, r := range raw {
		out[r.Name] = append([]Range(nil), r.Ranges...)
	}
	return out
}

// normalizeMembers converts a RawMemberInfo list into a name -> *MemberInfo
// map, for either a class's properties or its enumerations.
func normalizeMembers(parentClass string, raw []wire.RawMemberInfo) map[string]*MemberInfo {
	out := make(map[string]*MemberInfo, len(raw))
	for _, m := range raw {
		out[m.Name] = &MemberInfo{
			Name:        m.Name,
			Range:       m.Range,
			Visibility:  visibilityFromWire(m.Visibility),
			ParentClass: parentClass,
		}
	}
	return out
}
