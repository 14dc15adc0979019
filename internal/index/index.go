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

import (
	"sync"

	"github.com/diningPhilosopher64/MATLAB-language-server/internal/wire"
)

// Index is the process-wide symbol index. One Index is shared by the
// document indexer, the workspace indexer, and the navigation resolver
// (spec §4.3); all access goes through its exported methods, which hold
// an internal lock for the duration of the call.
type Index struct {
	mu   sync.RWMutex
	seq  *sequencer
	code map[string]*FileCodeData
	cls  map[string]*ClassInfo
}

// New returns an empty Index.
func New() *Index {
	return &Index{
		seq:  newSequencer(),
		code: make(map[string]*FileCodeData),
		cls:  make(map[string]*ClassInfo),
	}
}

// BeginWrite reserves a generation number for a write to uri of the
// given kind. Callers must follow with CommitWrite using the same
// generation, even if the interpreter round-trip that produced raw
// happens well afterwards.
func (ix *Index) BeginWrite(uri string, kind WriteKind) uint64 {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.seq.begin(uri, kind)
}

// CommitWrite stores raw as uri's FileCodeData, unless a newer
// document write has superseded it (see sequence.go). ok is false when
// the write was silently superseded; this is not an error (spec §7's
// StaleIndex case), the caller should simply drop the result.
func (ix *Index) CommitWrite(uri string, kind WriteKind, generation uint64, raw wire.RawCodeData) (fd *FileCodeData, ok bool) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if !ix.seq.admits(uri, kind, generation) {
		return nil, false
	}

	fd = &FileCodeData{
		URI:         uri,
		PackageName: raw.PackageName,
		Functions:   normalizeFunctions(uri, raw.FunctionInfo),
		References:  normalizeReferences(raw.References),
		sequence:    generation,
	}

	if raw.ClassInfo.HasClassInfo {
		fd.IsClassDef = raw.ClassInfo.IsClassDef
		fd.ClassInfo = ix.mergeClassInfoLocked(uri, raw)
	}

	// A replaced entry's old ClassInfo loses a contributor here;
	// mergeClassInfoLocked above already counted this write, so a
	// rewrite that keeps the same ClassInfo nets out unchanged, while a
	// file that stopped contributing to a class leaves it one lower.
	// refCount is otherwise unused: ClassInfo entries
	// are never reclaimed for the process lifetime (Open Question
	// decision). TODO: once reclamation is wanted, this is the hook:
	// delete ix.cls[name] when refCount drops to zero and no FileCodeData
	// references it.
	if old, existed := ix.code[uri]; existed && old.ClassInfo != nil {
		old.ClassInfo.refCount--
	}

	ix.code[uri] = fd
	return fd, true
}

// ParseAndStore is the single-writer convenience path used by callers
// (such as a straight-through document index) that do not need to
// arbitrate against a concurrent write of a different kind.
func (ix *Index) ParseAndStore(uri string, kind WriteKind, raw wire.RawCodeData) *FileCodeData {
	gen := ix.BeginWrite(uri, kind)
	fd, ok := ix.CommitWrite(uri, kind, gen, raw)
	if !ok {
		return nil
	}
	return fd
}

// mergeClassInfoLocked folds raw's class-info portion into the shared
// ClassInfo for raw.ClassInfo.Name, creating it on first sight. Callers
// must hold ix.mu.
//
// A class folder (spec §3: "@ClassName/") spreads one class's methods
// across sibling files; each contributing file calls this with its own
// method subset, and the union (last write per method name wins, per
// invariant 2) accumulates in the single shared ClassInfo.
func (ix *Index) mergeClassInfoLocked(uri string, raw wire.RawCodeData) *ClassInfo {
	rc := raw.ClassInfo
	ci, ok := ix.cls[rc.Name]
	if !ok {
		ci = newClassInfo(rc.Name)
		ix.cls[rc.Name] = ci
	}

	if rc.IsClassDef {
		// Only the classdef file itself carries the authoritative
		// range/declaration/base-class data; a method file in the same
		// class folder reports HasClassInfo too (so its methods can be
		// attributed to the class) but is not the classdef file.
		ci.URI = uri
		ci.Range = rc.Range
		ci.Declaration = rc.Declaration
		ci.ClassDefFolder = rc.ClassDefFolder
		ci.BaseClasses = append([]string(nil), rc.BaseClasses...)
		for name, m := range normalizeMembers(rc.Name, rc.Properties) {
			ci.Properties[name] = m
		}
		for name, m := range normalizeMembers(rc.Name, rc.Enumerations) {
			ci.Enumerations[name] = m
		}
	} else if rc.ClassDefFolder != "" {
		ci.ClassDefFolder = rc.ClassDefFolder
	}

	for _, rf := range raw.FunctionInfo {
		if rf.ParentClass != rc.Name {
			continue
		}
		fn, _ := normalizeFunctions(uri, []wire.RawFunctionInfo{rf}).Get(rf.Name)
		ci.Methods[rf.Name] = fn
	}

	ci.refCount++
	return ci
}

// FindContainingFunction returns the innermost non-prototype function
// in uri whose range encloses pos, if any (spec §4.6 stage 2).
func (ix *Index) FindContainingFunction(uri string, pos Range) (*FunctionInfo, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	fd, ok := ix.code[uri]
	if !ok {
		return nil, false
	}

	var best *FunctionInfo
	for _, fn := range fd.Functions.All() {
		if fn.IsPrototype || !rangeContains(fn.Range, pos) {
			continue
		}
		if best == nil || rangeContains(best.Range, fn.Range) {
			best = fn
		}
	}
	return best, best != nil
}

// rangeContains reports whether outer fully encloses inner (used both
// for point containment, where inner is a zero-width range at a
// cursor, and for picking the innermost of two enclosing ranges).
func rangeContains(outer, inner Range) bool {
	if inner.LineStart < outer.LineStart || inner.LineEnd > outer.LineEnd {
		return false
	}
	if inner.LineStart == outer.LineStart && inner.CharStart < outer.CharStart {
		return false
	}
	if inner.LineEnd == outer.LineEnd && inner.CharEnd > outer.CharEnd {
		return false
	}
	return true
}

// File returns uri's current FileCodeData, if any.
func (ix *Index) File(uri string) (*FileCodeData, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	fd, ok := ix.code[uri]
	return fd, ok
}

// Class returns the shared ClassInfo for name, if any.
func (ix *Index) Class(name string) (*ClassInfo, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	ci, ok := ix.cls[name]
	return ci, ok
}

// Clear drops uri's FileCodeData, e.g. on didClose for a file outside
// the workspace, or on file deletion (spec §4.4).
func (ix *Index) Clear(uri string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if old, ok := ix.code[uri]; ok && old.ClassInfo != nil {
		old.ClassInfo.refCount--
	}
	delete(ix.code, uri)
	ix.seq.forget(uri)
}

// ForEachFile invokes fn for every currently indexed file, for the
// workspace-wide search stage of definition/reference resolution (spec
// §4.6 stage 5). fn receives a stable snapshot reference; it must not
// retain it past the call if the file is later cleared, since
// FileCodeData entries are otherwise treated as immutable once stored.
func (ix *Index) ForEachFile(fn func(*FileCodeData)) {
	ix.mu.RLock()
	snapshot := make([]*FileCodeData, 0, len(ix.code))
	for _, fd := range ix.code {
		snapshot = append(snapshot, fd)
	}
	ix.mu.RUnlock()

	for _, fd := range snapshot {
		fn(fd)
	}
}
