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

// WriteKind distinguishes a single-document index write (from the
// debounced document indexer, spec §4.4) from a workspace-scan write
// (from the workspace indexer, spec §4.5), so the index can arbitrate
// between the two for the same URI.
type WriteKind int

const (
	// WriteKindDocument is a write driven by the user editing one file.
	WriteKindDocument WriteKind = iota
	// WriteKindWorkspace is a write driven by a workspace-wide scan.
	WriteKindWorkspace
)

// sequencer hands out the monotonic generation numbers that resolve a
// race between a document write and a workspace write landing for the
// same URI (SPEC_FULL.md Open Question decision: the document write
// always wins). A workspace scan can take seconds; if the user edits a
// file the scan has not reached yet, the edit must not be clobbered by
// the scan's eventually-arriving, now-stale result for that URI.
//
// The rule: BeginWrite stamps every write, document or workspace, with
// the generation counter at the moment it started. If a document write
// for a URI begins after a workspace write for that URI already began,
// the workspace write's eventual CommitWrite is rejected whenever it is
// still pending when the document write starts.
type sequencer struct {
	next   uint64
	docGen map[string]uint64
}

func newSequencer() *sequencer {
	return &sequencer{docGen: make(map[string]uint64)}
}

// begin returns the next generation number, recording it as the
// in-flight document generation for uri when kind is WriteKindDocument.
func (s *sequencer) begin(uri string, kind WriteKind) uint64 {
	s.next++
	gen := s.next
	if kind == WriteKindDocument {
		s.docGen[uri] = gen
	}
	return gen
}

// admits reports whether a write for uri started at generation gen may
// still commit. A workspace write is rejected if a document write for
// the same URI started at a later generation; a document write is
// always admitted; it is the newest authority for its own URI by
// definition of FIFO generation assignment.
func (s *sequencer) admits(uri string, kind WriteKind, gen uint64) bool {
	if kind == WriteKindDocument {
		return true
	}
	return s.docGen[uri] <= gen
}

// forget drops the in-flight document generation for uri, called once
// its FileCodeData is cleared (file closed) so a future workspace write
// for the same URI is not permanently blocked by a stale entry.
func (s *sequencer) forget(uri string) {
	delete(s.docGen, uri)
}
