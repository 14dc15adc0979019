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

package main

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/diningPhilosopher64/MATLAB-language-server/internal/config"
	"github.com/diningPhilosopher64/MATLAB-language-server/internal/index"
	"github.com/diningPhilosopher64/MATLAB-language-server/internal/indexer"
	"github.com/diningPhilosopher64/MATLAB-language-server/internal/interpreter"
	"github.com/diningPhilosopher64/MATLAB-language-server/internal/langserver"
	"github.com/diningPhilosopher64/MATLAB-language-server/internal/log"
	"github.com/diningPhilosopher64/MATLAB-language-server/internal/pathresolve"
	"github.com/diningPhilosopher64/MATLAB-language-server/internal/providers"
)

// pipeFlagName names the flag selecting IPC-over-UNIX-socket transport,
// matching the teacher's own LSP command flag.
const pipeFlagName = "pipe"

// rootFlags are the flags this command's own transport/logging concerns
// need, separate from config.Flags (which configures the interpreter).
type rootFlags struct {
	PipePath string
	LogLevel string
	config   config.Flags
}

func (f *rootFlags) Bind(flagSet *pflag.FlagSet) {
	flagSet.StringVar(&f.PipePath, pipeFlagName, "",
		"path to a UNIX socket to connect to; uses stdio if not specified")
	flagSet.StringVar(&f.LogLevel, "log-level", "info",
		"log level: debug, info, warn, or error")
	f.config.Bind(flagSet)
}

// newRootCommand constructs the CLI entry point, in the teacher's
// single-command layout (private/buf/cmd/buf/command/beta/lsp).
func newRootCommand() *cobra.Command {
	flags := &rootFlags{}
	cmd := &cobra.Command{
		Use:           "matlab-language-server",
		Short:         "Start the MATLAB language server",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), flags)
		},
	}
	flags.Bind(cmd.Flags())
	return cmd
}

func run(ctx context.Context, flags *rootFlags) error {
	logger, err := log.New(flags.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	transport, err := dial(flags)
	if err != nil {
		return err
	}
	defer transport.Close()

	handshakeDir, err := os.MkdirTemp("", "matlab-language-server-")
	if err != nil {
		return fmt.Errorf("create handshake directory: %w", err)
	}
	defer os.RemoveAll(handshakeDir)

	interpCfg := flags.config.Merge(config.Settings{})
	interpCfg.HandshakeDir = handshakeDir
	interpCfg.APIKey = uuid.NewString()

	interp := interpreter.New(logger, interpCfg)
	defer interp.Shutdown(context.Background()) //nolint:errcheck

	ix := index.New()
	pathResolve := pathresolve.New(logger, interp.Bus(), interp)
	prov := providers.New(logger, interp.Bus(), interp)

	// The workspace indexer needs a FolderLister at construction time,
	// but the only real one is *server's WorkspaceFolders method, and
	// *server isn't built until after the indexer is. deferredFolderLister
	// breaks the cycle: it's handed to the indexer now and pointed at
	// srv.WorkspaceFolders once srv exists, before anything calls it.
	lister := &deferredFolderLister{}
	workspace := indexer.NewWorkspaceIndexer(logger, interp.Bus(), ix, interp, lister)
	docIndexer := indexer.NewDocumentIndexer(logger, interp.Bus(), ix, interp, workspace, pathResolve)

	srv := langserver.NewServer(logger, interp, ix, docIndexer, workspace, pathResolve, prov, flags.config)
	lister.fn = srv.WorkspaceFolders

	conn := langserver.Serve(ctx, logger, transport, srv)
	<-conn.Done()
	return conn.Err()
}

// deferredFolderLister implements indexer.FolderLister by forwarding to
// fn, which run sets once the real lister (*server) is constructed.
// Calls before then are not expected: nothing triggers workspace
// indexing until after Serve starts dispatching requests.
type deferredFolderLister struct {
	fn func(context.Context) ([]string, error)
}

func (l *deferredFolderLister) WorkspaceFolders(ctx context.Context) ([]string, error) {
	return l.fn(ctx)
}

// dial opens the transport the client is connected on: a UNIX socket if
// --pipe was given, stdio otherwise (same default as the teacher's LSP
// command).
func dial(flags *rootFlags) (io.ReadWriteCloser, error) {
	if flags.PipePath != "" {
		conn, err := net.Dial("unix", filepath.Clean(flags.PipePath))
		if err != nil {
			return nil, fmt.Errorf("dial pipe %q: %w", flags.PipePath, err)
		}
		return conn, nil
	}
	return stdioReadWriteCloser{}, nil
}

// stdioReadWriteCloser combines stdin/stdout into the single
// io.ReadWriteCloser the transport layer wants; closing it is a no-op,
// since the process owns both streams for its entire lifetime.
type stdioReadWriteCloser struct{}

func (stdioReadWriteCloser) Read(p []byte) (int, error)  { return os.Stdin.Read(p) }
func (stdioReadWriteCloser) Write(p []byte) (int, error) { return os.Stdout.Write(p) }
func (stdioReadWriteCloser) Close() error                { return nil }
