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

// Package index holds the process-wide symbol index: per-file parsed code
// data keyed by file URI, per-class aggregates owned separately from any
// one file, and scope-local variable tables (spec §3, §4.3).
package index

import (
	"github.com/diningPhilosopher64/MATLAB-language-server/internal/wire"
)

// Range is a source range; see wire.Range for the line/character
// convention this repository uses throughout.
type Range = wire.Range

// Visibility is the visibility of a function or class member.
type Visibility int

const (
	Public Visibility = iota
	Private
)

func visibilityFromWire(v string) Visibility {
	if v == "private" {
		return Private
	}
	return Public
}

// VariableInfo is the definitions/references pair for one variable local
// to a function's scope.
type VariableInfo struct {
	Definitions []Range
	References  []Range
}

// FunctionInfo describes one function or method (spec §3).
type FunctionInfo struct {
	Name        string
	ParentClass string // empty for a free function
	Range       Range
	Declaration *Range // nil if there is no separate header range
	Visibility  Visibility
	// IsPrototype is true iff the body lives elsewhere (e.g. a method
	// header inside a classdef, whose body is a sibling file in the
	// class folder).
	IsPrototype bool
	Variables   map[string]*VariableInfo
	Globals     map[string]struct{}

	// FileURI is a weak back-reference to the owning FileCodeData: looked
	// up via the index's URI map, never an ownership pointer (spec §3).
	FileURI string
}

// MemberInfo describes one class property or enumeration member.
type MemberInfo struct {
	Name        string
	Range       Range
	Visibility  Visibility
	ParentClass string
}

// ClassInfo is the aggregate view of a class, keyed by fully-qualified
// name and unique across the process (spec §3). When a class-folder
// layout spreads methods across multiple files, exactly one ClassInfo
// exists and every contributing file's FileCodeData.ClassInfo points to
// it.
type ClassInfo struct {
	Name        string
	URI         string // owning (classdef) file URI, if known
	Range       Range  // full definition range
	Declaration Range  // declaration-line range

	Properties   map[string]*MemberInfo
	Enumerations map[string]*MemberInfo
	Methods      map[string]*FunctionInfo

	// ClassDefFolder is non-empty when this class lives in a class
	// folder; all files in that folder contribute methods.
	ClassDefFolder string
	BaseClasses    []string

	// refCount tracks how many FileCodeData entries currently reference
	// this ClassInfo. It exists so that reference-counted reclamation can
	// be added later without a data-model change (SPEC_FULL.md Open
	// Question decision); nothing currently acts on it reaching zero.
	refCount int
}

func newClassInfo(name string) *ClassInfo {
	return &ClassInfo{
		Name:         name,
		Properties:   make(map[string]*MemberInfo),
		Enumerations: make(map[string]*MemberInfo),
		Methods:      make(map[string]*FunctionInfo),
	}
}

// FileCodeData is the parsed-code view of a single file, keyed by URI
// (spec §3). It is replaced wholesale on every successful index of that
// URI (invariant 1): callers must never mutate a FileCodeData they did
// not just produce via parseAndStore.
type FileCodeData struct {
	URI         string
	PackageName string

	IsClassDef bool
	ClassInfo  *ClassInfo // optional; non-nil if this file belongs to a class

	// Functions preserves insertion order for stable iteration (spec §3).
	Functions *FunctionTable

	// References maps a dotted name to every range where it was observed
	// being referenced/called, in observation order.
	References map[string][]Range

	// sequence is this entry's generation number, used only to implement
	// the document-vs-workspace race policy (see sequence.go); it is not
	// part of the public data model.
	sequence uint64
}
