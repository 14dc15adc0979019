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

// Package providers implements the thin, bus-boundary-only feature
// providers of spec §4.8: format, lint, completions, and fold document.
// Each one allocates a reply channel (where the wire protocol requires
// per-call correlation), publishes a request, awaits exactly one reply,
// and returns the interpreter's payload for the caller (internal/
// langserver) to translate into LSP response types.
package providers

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/diningPhilosopher64/MATLAB-language-server/internal/bus"
	"github.com/diningPhilosopher64/MATLAB-language-server/internal/wire"
)

// ErrUnavailable is returned when the interpreter connection is not up
// (spec §7).
var ErrUnavailable = errors.New("providers: interpreter unavailable")

// ConnectionState is the subset of interpreter.Manager every provider
// needs, kept as an interface so tests can fake it without a real
// transport.
type ConnectionState interface {
	State() bus.State
}

// Providers groups the feature providers; it holds no per-request state
// beyond the shared bus and connection handle.
type Providers struct {
	logger *zap.Logger
	bus    bus.Bus
	conn   ConnectionState
}

// New returns a Providers.
func New(logger *zap.Logger, b bus.Bus, conn ConnectionState) *Providers {
	return &Providers{logger: logger.Named("providers"), bus: b, conn: conn}
}

func (p *Providers) requireConnected() error {
	if p.conn.State() != bus.StateConnected {
		return ErrUnavailable
	}
	return nil
}

// Format implements documentFormattingProvider: it round-trips the
// document's text through /formatDocument and returns the formatted
// text.
func (p *Providers) Format(ctx context.Context, data string, insertSpaces bool, tabSize, indentSize int) (string, error) {
	if err := p.requireConnected(); err != nil {
		return "", err
	}
	resp, err := bus.Request[wire.FormatRequest, wire.FormatResponse](
		ctx, p.bus,
		wire.ChannelFormatDocumentRequest, wire.ChannelFormatDocumentResponse,
		wire.FormatRequest{Data: data, InsertSpaces: insertSpaces, TabSize: tabSize, IndentSize: indentSize},
		nil,
	)
	if err != nil {
		return "", err
	}
	return resp.Data, nil
}

// Lint implements the linting half of codeActionProvider/diagnostics
// publishing: it round-trips code through /linting and returns the raw
// diagnostic records.
func (p *Providers) Lint(ctx context.Context, code, fileName string) ([]wire.LintRecord, error) {
	if err := p.requireConnected(); err != nil {
		return nil, err
	}
	resp, err := bus.Request[wire.LintRequest, []wire.LintRecord](
		ctx, p.bus,
		wire.ChannelLintingRequest, wire.ChannelLintingResponse,
		wire.LintRequest{Code: code, FileName: fileName},
		nil,
	)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// LintEndStatement implements the single-line variant used to decide
// whether a statement is complete (e.g. to suppress a premature
// diagnostic while the user is still typing).
func (p *Providers) LintEndStatement(ctx context.Context, code string, lineNumber int) (int, error) {
	if err := p.requireConnected(); err != nil {
		return 0, err
	}
	resp, err := bus.Request[wire.LintEndStatementRequest, wire.LintEndStatementResponse](
		ctx, p.bus,
		wire.ChannelLintingEndStatementRequest, wire.ChannelLintingEndStatementResponse,
		wire.LintEndStatementRequest{Code: code, LineNumber: lineNumber},
		nil,
	)
	if err != nil {
		return 0, err
	}
	return resp.LineNumber, nil
}

// Completions implements completionProvider.
func (p *Providers) Completions(ctx context.Context, code, fileName string, cursorPosition int) (wire.CompletionResponse, error) {
	if err := p.requireConnected(); err != nil {
		return wire.CompletionResponse{}, err
	}
	return bus.Request[wire.CompletionRequest, wire.CompletionResponse](
		ctx, p.bus,
		wire.ChannelCompletionsRequest, wire.ChannelCompletionsResponse,
		wire.CompletionRequest{Code: code, FileName: fileName, CursorPosition: cursorPosition},
		nil,
	)
}

// FoldDocument implements foldingRangeProvider: the reply is correlated
// by a per-call RequestID, unlike the other providers here, since
// /foldDocument/response is id-suffixed (spec §6.1).
func (p *Providers) FoldDocument(ctx context.Context, code string) ([]int, error) {
	if err := p.requireConnected(); err != nil {
		return nil, err
	}
	resp, err := bus.Request[wire.FoldDocumentRequest, wire.FoldDocumentResponse](
		ctx, p.bus,
		wire.ChannelFoldDocumentRequest, wire.ChannelFoldDocumentResponseBase,
		wire.FoldDocumentRequest{Code: code},
		func(req *wire.FoldDocumentRequest, id string) { req.RequestID = id },
	)
	if err != nil {
		return nil, err
	}
	return resp.Lines, nil
}
