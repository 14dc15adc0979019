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

// This file provides an implementation of protocol.Server where every
// method not overridden elsewhere in this package returns an error.

package langserver

import (
	"context"
	"fmt"
	"runtime"

	"go.lsp.dev/protocol"
)

var _ protocol.Server = nyi{}

// nyi implements protocol.Server, returning a "not yet implemented"
// error naming the caller for every method. server embeds it so that
// the methods declared elsewhere in this package are the only ones
// that do anything.
type nyi struct{}

func makeNYI() error {
	caller := "<unknown method>"
	if pc, _, _, ok := runtime.Caller(1); ok {
		if fn := runtime.FuncForPC(pc); fn != nil {
			caller = fn.Name()
		}
	}
	return fmt.Errorf("not yet implemented: %s", caller)
}

func (nyi) CodeAction(ctx context.Context, params *protocol.CodeActionParams) ([]protocol.CodeAction, error) {
	return nil, makeNYI()
}
func (nyi) CodeLens(ctx context.Context, params *protocol.CodeLensParams) ([]protocol.CodeLens, error) {
	return nil, makeNYI()
}
func (nyi) CodeLensRefresh(ctx context.Context) error { return makeNYI() }
func (nyi) CodeLensResolve(ctx context.Context, params *protocol.CodeLens) (*protocol.CodeLens, error) {
	return nil, makeNYI()
}
func (nyi) ColorPresentation(ctx context.Context, params *protocol.ColorPresentationParams) ([]protocol.ColorPresentation, error) {
	return nil, makeNYI()
}
func (nyi) Completion(ctx context.Context, params *protocol.CompletionParams) (*protocol.CompletionList, error) {
	return nil, makeNYI()
}
func (nyi) CompletionResolve(ctx context.Context, params *protocol.CompletionItem) (*protocol.CompletionItem, error) {
	return nil, makeNYI()
}
func (nyi) Declaration(ctx context.Context, params *protocol.DeclarationParams) ([]protocol.Location, error) {
	return nil, makeNYI()
}
func (nyi) Definition(ctx context.Context, params *protocol.DefinitionParams) ([]protocol.Location, error) {
	return nil, makeNYI()
}
func (nyi) DidChange(ctx context.Context, params *protocol.DidChangeTextDocumentParams) error {
	return makeNYI()
}
func (nyi) DidChangeConfiguration(ctx context.Context, params *protocol.DidChangeConfigurationParams) error {
	return makeNYI()
}
func (nyi) DidChangeWatchedFiles(ctx context.Context, params *protocol.DidChangeWatchedFilesParams) error {
	return makeNYI()
}
func (nyi) DidChangeWorkspaceFolders(ctx context.Context, params *protocol.DidChangeWorkspaceFoldersParams) error {
	return makeNYI()
}
func (nyi) DidClose(ctx context.Context, params *protocol.DidCloseTextDocumentParams) error {
	return makeNYI()
}
func (nyi) DidCreateFiles(ctx context.Context, params *protocol.CreateFilesParams) error {
	return makeNYI()
}
func (nyi) DidDeleteFiles(ctx context.Context, params *protocol.DeleteFilesParams) error {
	return makeNYI()
}
func (nyi) DidOpen(ctx context.Context, params *protocol.DidOpenTextDocumentParams) error {
	return makeNYI()
}
func (nyi) DidRenameFiles(ctx context.Context, params *protocol.RenameFilesParams) error {
	return makeNYI()
}
func (nyi) DidSave(ctx context.Context, params *protocol.DidSaveTextDocumentParams) error {
	return makeNYI()
}
func (nyi) DocumentColor(ctx context.Context, params *protocol.DocumentColorParams) ([]protocol.ColorInformation, error) {
	return nil, makeNYI()
}
func (nyi) DocumentHighlight(ctx context.Context, params *protocol.DocumentHighlightParams) ([]protocol.DocumentHighlight, error) {
	return nil, makeNYI()
}
func (nyi) DocumentLink(ctx context.Context, params *protocol.DocumentLinkParams) ([]protocol.DocumentLink, error) {
	return nil, makeNYI()
}
func (nyi) DocumentLinkResolve(ctx context.Context, params *protocol.DocumentLink) (*protocol.DocumentLink, error) {
	return nil, makeNYI()
}
func (nyi) DocumentSymbol(ctx context.Context, params *protocol.DocumentSymbolParams) ([]interface{}, error) {
	return nil, makeNYI()
}
func (nyi) ExecuteCommand(ctx context.Context, params *protocol.ExecuteCommandParams) (interface{}, error) {
	return nil, makeNYI()
}
func (nyi) Exit(ctx context.Context) error { return makeNYI() }
func (nyi) FoldingRanges(ctx context.Context, params *protocol.FoldingRangeParams) ([]protocol.FoldingRange, error) {
	return nil, makeNYI()
}
func (nyi) Formatting(ctx context.Context, params *protocol.DocumentFormattingParams) ([]protocol.TextEdit, error) {
	return nil, makeNYI()
}
func (nyi) Hover(ctx context.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	return nil, makeNYI()
}
func (nyi) Implementation(ctx context.Context, params *protocol.ImplementationParams) ([]protocol.Location, error) {
	return nil, makeNYI()
}
func (nyi) Initialize(ctx context.Context, params *protocol.InitializeParams) (*protocol.InitializeResult, error) {
	return nil, makeNYI()
}
func (nyi) Initialized(ctx context.Context, params *protocol.InitializedParams) error {
	return makeNYI()
}
func (nyi) IncomingCalls(ctx context.Context, params *protocol.CallHierarchyIncomingCallsParams) ([]protocol.CallHierarchyIncomingCall, error) {
	return nil, makeNYI()
}
func (nyi) LinkedEditingRange(ctx context.Context, params *protocol.LinkedEditingRangeParams) (*protocol.LinkedEditingRanges, error) {
	return nil, makeNYI()
}
func (nyi) LogTrace(ctx context.Context, params *protocol.LogTraceParams) error { return makeNYI() }
func (nyi) Moniker(ctx context.Context, params *protocol.MonikerParams) ([]protocol.Moniker, error) {
	return nil, makeNYI()
}
func (nyi) OnTypeFormatting(ctx context.Context, params *protocol.DocumentOnTypeFormattingParams) ([]protocol.TextEdit, error) {
	return nil, makeNYI()
}
func (nyi) OutgoingCalls(ctx context.Context, params *protocol.CallHierarchyOutgoingCallsParams) ([]protocol.CallHierarchyOutgoingCall, error) {
	return nil, makeNYI()
}
func (nyi) PrepareCallHierarchy(ctx context.Context, params *protocol.CallHierarchyPrepareParams) ([]protocol.CallHierarchyItem, error) {
	return nil, makeNYI()
}
func (nyi) PrepareRename(ctx context.Context, params *protocol.PrepareRenameParams) (*protocol.Range, error) {
	return nil, makeNYI()
}
func (nyi) RangeFormatting(ctx context.Context, params *protocol.DocumentRangeFormattingParams) ([]protocol.TextEdit, error) {
	return nil, makeNYI()
}
func (nyi) References(ctx context.Context, params *protocol.ReferenceParams) ([]protocol.Location, error) {
	return nil, makeNYI()
}
func (nyi) Rename(ctx context.Context, params *protocol.RenameParams) (*protocol.WorkspaceEdit, error) {
	return nil, makeNYI()
}
func (nyi) Request(ctx context.Context, method string, params interface{}) (interface{}, error) {
	return nil, makeNYI()
}
func (nyi) SemanticTokensFull(ctx context.Context, params *protocol.SemanticTokensParams) (*protocol.SemanticTokens, error) {
	return nil, makeNYI()
}
func (nyi) SemanticTokensFullDelta(ctx context.Context, params *protocol.SemanticTokensDeltaParams) (interface{}, error) {
	return nil, makeNYI()
}
func (nyi) SemanticTokensRange(ctx context.Context, params *protocol.SemanticTokensRangeParams) (*protocol.SemanticTokens, error) {
	return nil, makeNYI()
}
func (nyi) SemanticTokensRefresh(ctx context.Context) error { return makeNYI() }
func (nyi) SetTrace(ctx context.Context, params *protocol.SetTraceParams) error { return makeNYI() }
func (nyi) Shutdown(ctx context.Context) error { return makeNYI() }
func (nyi) ShowDocument(ctx context.Context, params *protocol.ShowDocumentParams) (*protocol.ShowDocumentResult, error) {
	return nil, makeNYI()
}
func (nyi) SignatureHelp(ctx context.Context, params *protocol.SignatureHelpParams) (*protocol.SignatureHelp, error) {
	return nil, makeNYI()
}
func (nyi) Symbols(ctx context.Context, params *protocol.WorkspaceSymbolParams) ([]protocol.SymbolInformation, error) {
	return nil, makeNYI()
}
func (nyi) TypeDefinition(ctx context.Context, params *protocol.TypeDefinitionParams) ([]protocol.Location, error) {
	return nil, makeNYI()
}
func (nyi) WillCreateFiles(ctx context.Context, params *protocol.CreateFilesParams) (*protocol.WorkspaceEdit, error) {
	return nil, makeNYI()
}
func (nyi) WillDeleteFiles(ctx context.Context, params *protocol.DeleteFilesParams) (*protocol.WorkspaceEdit, error) {
	return nil, makeNYI()
}
func (nyi) WillRenameFiles(ctx context.Context, params *protocol.RenameFilesParams) (*protocol.WorkspaceEdit, error) {
	return nil, makeNYI()
}
func (nyi) WillSave(ctx context.Context, params *protocol.WillSaveTextDocumentParams) error {
	return makeNYI()
}
func (nyi) WillSaveWaitUntil(ctx context.Context, params *protocol.WillSaveTextDocumentParams) ([]protocol.TextEdit, error) {
	return nil, makeNYI()
}
func (nyi) WorkDoneProgressCancel(ctx context.Context, params *protocol.WorkDoneProgressCancelParams) error {
	return makeNYI()
}
