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

package indexer

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/diningPhilosopher64/MATLAB-language-server/internal/bus"
	"github.com/diningPhilosopher64/MATLAB-language-server/internal/index"
	"github.com/diningPhilosopher64/MATLAB-language-server/internal/wire"
)

// FolderLister supplies the client's current workspace folder list
// (typically backed by the LSP `workspace/workspaceFolders` request).
type FolderLister interface {
	WorkspaceFolders(ctx context.Context) ([]string, error)
}

// WorkspaceIndexer bulk-indexes whole folders, streaming one
// parseAndStore call per file as the interpreter reports them (spec
// §4.5).
type WorkspaceIndexer struct {
	logger *zap.Logger
	bus    bus.Bus
	index  *index.Index
	conn   ConnectionState
	lister FolderLister
	ids    requestIDGen

	mu      sync.Mutex
	enabled bool
}

// NewWorkspaceIndexer returns a WorkspaceIndexer, disabled until Setup
// is called with a true capability.
func NewWorkspaceIndexer(logger *zap.Logger, b bus.Bus, ix *index.Index, conn ConnectionState, lister FolderLister) *WorkspaceIndexer {
	return &WorkspaceIndexer{
		logger: logger.Named("indexer.workspace"),
		bus:    b,
		index:  ix,
		conn:   conn,
		lister: lister,
	}
}

// Setup enables the component only if the client advertises workspace
// support (spec §4.5).
func (w *WorkspaceIndexer) Setup(workspaceCapable bool) {
	w.mu.Lock()
	w.enabled = workspaceCapable
	w.mu.Unlock()
}

func (w *WorkspaceIndexer) isEnabled() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.enabled
}

// IndexWorkspace is a no-op if disabled or the interpreter is
// disconnected; otherwise it fetches the client's folder list and
// indexes it.
func (w *WorkspaceIndexer) IndexWorkspace(ctx context.Context) error {
	if !w.isEnabled() || w.conn.State() != bus.StateConnected {
		return nil
	}
	folders, err := w.lister.WorkspaceFolders(ctx)
	if err != nil {
		return fmt.Errorf("indexer: list workspace folders: %w", err)
	}
	return w.IndexFolders(ctx, folders)
}

// IndexFolders issues one workspace-index request for folders and
// consumes the streamed {filePath, codeData, isDone} replies until the
// terminal message arrives, storing each file as it comes in so the
// interpreter never has to hold more than one file's data in flight
// (spec §4.5, §5's yield-between-files requirement).
func (w *WorkspaceIndexer) IndexFolders(ctx context.Context, folders []string) error {
	id := w.ids.generate()
	replyChannel := wire.ChannelIndexWorkspaceResponseBase + "/" + id

	done := make(chan error, 1)
	sub, err := w.bus.Subscribe(replyChannel, func(payload json.RawMessage) {
		var upd wire.IndexWorkspaceUpdate
		if err := json.Unmarshal(payload, &upd); err != nil {
			w.logger.Warn("malformed workspace-index update", zap.Error(err))
			return
		}
		w.index.ParseAndStore(upd.FilePath, index.WriteKindWorkspace, upd.CodeData)
		if upd.IsDone {
			select {
			case done <- nil:
			default:
			}
		}
	})
	if err != nil {
		return fmt.Errorf("indexer: subscribe %s: %w", replyChannel, err)
	}
	defer w.bus.Unsubscribe(sub)

	if err := w.bus.Publish(wire.ChannelIndexWorkspaceRequest, wire.IndexWorkspaceRequest{
		Folders:   folders,
		RequestID: id,
	}); err != nil {
		return fmt.Errorf("indexer: publish workspace-index request: %w", err)
	}

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
