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

// FunctionTable is an insertion-ordered name -> *FunctionInfo map (spec
// §3: "insertion order preserved for stable iteration"). Go maps make no
// such guarantee, so we keep the order alongside the lookup table.
type FunctionTable struct {
	order []string
	byName map[string]*FunctionInfo
}

// NewFunctionTable returns an empty table.
func NewFunctionTable() *FunctionTable {
	return &FunctionTable{byName: make(map[string]*FunctionInfo)}
}

// Set inserts or overwrites fn under name, appending to the order only the
// first time name is seen.
func (t *FunctionTable) Set(name string, fn *FunctionInfo) {
	if _, ok := t.byName[name]; !ok {
		t.order = append(t.order, name)
	}
	t.byName[name] = fn
}

// Get returns the function registered under name, if any.
func (t *FunctionTable) Get(name string) (*FunctionInfo, bool) {
	fn, ok := t.byName[name]
	return fn, ok
}

// Names returns every registered name in insertion order.
func (t *FunctionTable) Names() []string {
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}

// Len reports how many functions are registered.
func (t *FunctionTable) Len() int {
	return len(t.byName)
}

// All returns every function in insertion order.
func (t *FunctionTable) All() []*FunctionInfo {
	out := make([]*FunctionInfo, 0, len(t.order))
	for _, name := range t.order {
		out = append(out, t.byName[name])
	}
	return out
}
