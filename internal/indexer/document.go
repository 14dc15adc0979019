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

// Package indexer keeps the symbol index fresh: a per-document indexer
// debounces edits of a single open file (spec §4.4), and a workspace
// indexer bulk-indexes whole folders (spec §4.5).
package indexer

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/diningPhilosopher64/MATLAB-language-server/internal/bus"
	"github.com/diningPhilosopher64/MATLAB-language-server/internal/index"
	"github.com/diningPhilosopher64/MATLAB-language-server/internal/wire"
)

// debounceInterval is the fixed per-URI debounce window (spec §4.4,
// testable property 7).
const debounceInterval = 500 * time.Millisecond

// ConnectionState is the subset of interpreter.Manager the indexers
// need, kept as an interface so tests can fake it without a real
// transport.
type ConnectionState interface {
	State() bus.State
}

// PathResolver is the subset of internal/pathresolve the document
// indexer needs for class-closure expansion (spec §4.4.1).
type PathResolver interface {
	ResolvePaths(ctx context.Context, identifiers []string, contextFileURI string) ([]wire.IdentifierDefinitionResult, error)
}

// Document is an open editor buffer: its URI and current text.
type Document struct {
	URI  string
	Text string
}

// DocumentIndexer debounces and issues indexDocument requests for the
// currently open documents.
type DocumentIndexer struct {
	logger    *zap.Logger
	bus       bus.Bus
	index     *index.Index
	conn      ConnectionState
	workspace *WorkspaceIndexer
	resolver  PathResolver

	mu     sync.Mutex
	timers map[string]*time.Timer
}

// NewDocumentIndexer returns a DocumentIndexer. workspace and resolver
// may be nil; class-closure expansion is then skipped (useful for
// standalone tests of the debounce/request path).
func NewDocumentIndexer(logger *zap.Logger, b bus.Bus, ix *index.Index, conn ConnectionState, workspace *WorkspaceIndexer, resolver PathResolver) *DocumentIndexer {
	return &DocumentIndexer{
		logger:    logger.Named("indexer.document"),
		bus:       b,
		index:     ix,
		conn:      conn,
		workspace: workspace,
		resolver:  resolver,
		timers:    make(map[string]*time.Timer),
	}
}

// QueueIndex (re)arms doc.URI's debounce timer; any pending timer for
// the same URI is canceled first, so N calls within the debounce window
// yield exactly one IndexDocument call after the last arrival.
func (d *DocumentIndexer) QueueIndex(doc Document) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if t, ok := d.timers[doc.URI]; ok {
		t.Stop()
	}
	d.timers[doc.URI] = time.AfterFunc(debounceInterval, func() {
		d.mu.Lock()
		delete(d.timers, doc.URI)
		d.mu.Unlock()
		if err := d.IndexDocument(context.Background(), doc); err != nil {
			d.logger.Warn("indexDocument failed", zap.String("uri", doc.URI), zap.Error(err))
		}
	})
}

// IndexDocument does nothing if the interpreter is not Connected (spec
// §4.4); otherwise it round-trips doc's text through the interpreter,
// stores the result, and triggers class-closure expansion.
func (d *DocumentIndexer) IndexDocument(ctx context.Context, doc Document) error {
	if d.conn.State() != bus.StateConnected {
		return nil
	}

	raw, err := bus.Request[wire.IndexDocumentRequest, wire.RawCodeData](
		ctx, d.bus,
		wire.ChannelIndexDocumentRequest, wire.ChannelIndexDocumentResponse,
		wire.IndexDocumentRequest{Code: doc.Text, FilePath: doc.URI},
		nil,
	)
	if err != nil {
		return err
	}

	fd := d.index.ParseAndStore(doc.URI, index.WriteKindDocument, raw)
	if fd == nil {
		// Superseded by a newer write that arrived first; nothing to
		// expand from a result that never got stored.
		return nil
	}
	d.expandClassClosure(ctx, fd)
	return nil
}

// expandClassClosure implements spec §4.4.1: a class-folder file
// triggers a workspace index of its sibling method files, and each base
// class is resolved and stored without a second round-trip (the path
// resolver already returns the base class's computed code data).
func (d *DocumentIndexer) expandClassClosure(ctx context.Context, fd *index.FileCodeData) {
	if fd.ClassInfo == nil {
		return
	}

	if fd.ClassInfo.ClassDefFolder != "" && d.workspace != nil {
		if err := d.workspace.IndexFolders(ctx, []string{fd.ClassInfo.ClassDefFolder}); err != nil {
			d.logger.Warn("class-closure workspace index failed", zap.Error(err))
		}
	}

	if d.resolver == nil || len(fd.ClassInfo.BaseClasses) == 0 {
		return
	}
	results, err := d.resolver.ResolvePaths(ctx, fd.ClassInfo.BaseClasses, fd.URI)
	if err != nil {
		d.logger.Warn("class-closure base class resolution failed", zap.Error(err))
		return
	}
	for _, r := range results {
		if r.FileInfo == nil {
			continue
		}
		d.index.ParseAndStore(r.FileInfo.FileName, index.WriteKindWorkspace, r.FileInfo.CodeData)
	}
}
