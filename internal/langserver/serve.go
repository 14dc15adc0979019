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

package langserver

import (
	"context"
	"io"

	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"
	"go.uber.org/zap"
)

// Serve wires srv onto transport as a JSON-RPC connection and starts
// dispatching incoming requests. It returns once the connection is
// established; the caller should wait on the returned conn's Done
// channel and inspect Err for the disconnect reason.
func Serve(ctx context.Context, logger *zap.Logger, transport io.ReadWriteCloser, srv *server) jsonrpc2.Conn {
	stream := jsonrpc2.NewStream(transport)
	conn := jsonrpc2.NewConn(stream)
	srv.SetConn(conn)

	conn.Go(ctx, protocol.ServerHandler(srv, jsonrpc2.MethodNotFoundHandler))
	return conn
}
