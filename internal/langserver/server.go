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

// Package langserver implements the protocol.Server surface for the
// MATLAB analysis engine (spec §6.2): document sync, navigation, and
// the feature providers, wired onto internal/index, internal/navigation,
// internal/indexer, internal/pathresolve, internal/providers and
// internal/interpreter.
package langserver

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"
	"go.uber.org/zap"

	"github.com/diningPhilosopher64/MATLAB-language-server/internal/bus"
	"github.com/diningPhilosopher64/MATLAB-language-server/internal/config"
	"github.com/diningPhilosopher64/MATLAB-language-server/internal/index"
	"github.com/diningPhilosopher64/MATLAB-language-server/internal/indexer"
	"github.com/diningPhilosopher64/MATLAB-language-server/internal/interpreter"
	"github.com/diningPhilosopher64/MATLAB-language-server/internal/navigation"
	"github.com/diningPhilosopher64/MATLAB-language-server/internal/pathresolve"
	"github.com/diningPhilosopher64/MATLAB-language-server/internal/providers"
)

var serverInfo = makeServerInfo()

func makeServerInfo() protocol.ServerInfo {
	info := protocol.ServerInfo{Name: "matlab-language-server"}
	if buildInfo, ok := debug.ReadBuildInfo(); ok {
		info.Version = buildInfo.Main.Version
	}
	return info
}

// server is the protocol.Server implementation. Every method the
// language surface needs is defined in this package's other files;
// everything else falls through to the embedded nyi.
type server struct {
	nyi

	logger *zap.Logger

	index       *index.Index
	resolver    *navigation.Resolver
	docIndexer  *indexer.DocumentIndexer
	workspace   *indexer.WorkspaceIndexer
	pathResolve *pathresolve.Resolver
	providers   *providers.Providers
	interp      *interpreter.Manager
	docs        *documentStore
	configFlags config.Flags

	mu               sync.Mutex
	conn             jsonrpc2.Conn
	workspaceFolders []string
	clientCap        protocol.ClientCapabilities

	traceValue atomic.Pointer[protocol.TraceValue]

	unsubscribeLifecycle func()
}

// NewServer assembles a protocol.Server out of the already-constructed
// domain components. The navigation resolver is built here, not passed
// in, because it needs this server's own document store (the source of
// the text under a cursor) which doesn't exist until construction.
// The returned server has no live connection until SetConn is called by
// Serve.
func NewServer(
	logger *zap.Logger,
	interp *interpreter.Manager,
	ix *index.Index,
	docIndexer *indexer.DocumentIndexer,
	workspace *indexer.WorkspaceIndexer,
	pathResolve *pathresolve.Resolver,
	prov *providers.Providers,
	configFlags config.Flags,
) *server {
	docs := newDocumentStore()
	s := &server{
		logger:      logger.Named("langserver"),
		index:       ix,
		resolver:    navigation.New(logger, ix, docs, pathResolve),
		docIndexer:  docIndexer,
		workspace:   workspace,
		pathResolve: pathResolve,
		providers:   prov,
		interp:      interp,
		docs:        docs,
		configFlags: configFlags,
	}
	s.unsubscribeLifecycle = interp.OnLifecycle(s.onInterpreterLifecycle)
	return s
}

// SetConn attaches the live JSON-RPC connection the server notifies and
// closes through. It must be called once, before the connection starts
// dispatching incoming requests.
func (s *server) SetConn(conn jsonrpc2.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn = conn
}

func (s *server) notify(ctx context.Context, method string, params any) {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return
	}
	if err := conn.Notify(ctx, method, params); err != nil {
		s.logger.Warn("notify failed", zap.String("method", method), zap.Error(err))
	}
}

// WorkspaceFolders implements indexer.FolderLister.
func (s *server) WorkspaceFolders(context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.workspaceFolders...), nil
}

// Initialize is the first message the client sends. It records the
// client's capabilities and workspace folders, enables the workspace
// indexer if the client supports it, and advertises the capabilities of
// spec §6.2.
func (s *server) Initialize(ctx context.Context, params *protocol.InitializeParams) (*protocol.InitializeResult, error) {
	s.mu.Lock()
	s.clientCap = params.Capabilities
	for _, f := range params.WorkspaceFolders {
		s.workspaceFolders = append(s.workspaceFolders, f.URI)
	}
	s.mu.Unlock()

	s.workspace.Setup(params.Capabilities.Workspace != nil && params.Capabilities.Workspace.WorkspaceFolders)

	return &protocol.InitializeResult{
		Capabilities: protocol.ServerCapabilities{
			TextDocumentSync: &protocol.TextDocumentSyncOptions{
				OpenClose: true,
				Change:    protocol.TextDocumentSyncKindFull,
			},
			DocumentFormattingProvider: true,
			DefinitionProvider:         true,
			ReferencesProvider:         true,
			DocumentSymbolProvider:     true,
			WorkspaceSymbolProvider:    true,
			CompletionProvider: &protocol.CompletionOptions{
				TriggerCharacters: []string{".", "(", ",", "/", "\\", " "},
			},
			SignatureHelpProvider: &protocol.SignatureHelpOptions{
				TriggerCharacters: []string{"(", ","},
			},
			FoldingRangeProvider: true,
			CodeActionProvider:   true,
			ExecuteCommandProvider: &protocol.ExecuteCommandOptions{
				Commands: []string{
					commandFilterLintByLine,
					commandFilterLintByFile,
					commandRestartInterpreter,
				},
			},
		},
		ServerInfo: &serverInfo,
	}, nil
}

// Initialized pulls this server's workspace/configuration section — the
// primary source of the interpreter-facing settings (spec §6.4) — layers
// it under the CLI flags, and applies the result to the interpreter
// before it has connected to anything. It then schedules the
// interpreter connection when the (possibly just-updated)
// connection-timing policy is on-start. Under on-demand and never it
// does not connect; the feature handlers do not start a connection
// either (they report the interpreter unavailable), so under on-demand
// a connection is only started by the matlab.restartInterpreter
// command.
func (s *server) Initialized(ctx context.Context, params *protocol.InitializedParams) error {
	s.mu.Lock()
	conn := s.conn
	var folderURI string
	if len(s.workspaceFolders) > 0 {
		folderURI = s.workspaceFolders[0]
	}
	s.mu.Unlock()

	if conn != nil {
		settings, err := config.Fetch(ctx, conn, folderURI)
		if err != nil {
			s.logger.Debug("workspace/configuration pull failed, using CLI flags only", zap.Error(err))
		} else if err := s.interp.ApplyConfig(s.configFlags.Merge(settings)); err != nil {
			s.logger.Debug("interpreter config not applied", zap.Error(err))
		}
	}

	if s.interp.Timing() == interpreter.TimingOnStart && s.interp.State() == bus.StateDisconnected {
		go func() {
			if _, err := s.interp.EnsureConnection(context.Background()); err != nil {
				s.logger.Debug("initial connection attempt did not complete", zap.Error(err))
			}
		}()
	}
	return nil
}

func (s *server) SetTrace(ctx context.Context, params *protocol.SetTraceParams) error {
	s.traceValue.Store(&params.Value)
	return nil
}

// Shutdown is sent when the client wants the server to stop; Exit
// follows once the client has seen this reply.
func (s *server) Shutdown(ctx context.Context) error {
	s.unsubscribeLifecycle()
	return s.interp.Shutdown(ctx)
}

// Exit closes the connection, which lets the process terminate once
// this notification's reply has been flushed.
func (s *server) Exit(ctx context.Context) error {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("langserver: exit before a connection was attached")
	}
	return conn.Close()
}
