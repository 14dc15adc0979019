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

package wire

// Channel names, matching spec §6.1's channel pair table. These are the
// names as seen by code on the server side; internal/bus prefixes them
// with the wire namespace before they hit the transport (spec §4.1).
const (
	ChannelIndexDocumentRequest  = "/indexDocument/request"
	ChannelIndexDocumentResponse = "/indexDocument/response"

	ChannelIndexWorkspaceRequest       = "/indexWorkspace/request"
	ChannelIndexWorkspaceResponseBase = "/indexWorkspace/response"

	ChannelIdentifierDefinitionRequest  = "/findIdentifierDefinition/request"
	ChannelIdentifierDefinitionResponse = "/findIdentifierDefinition/response"

	ChannelFormatDocumentRequest  = "/formatDocument/request"
	ChannelFormatDocumentResponse = "/formatDocument/response"

	ChannelLintingRequest  = "/linting/request"
	ChannelLintingResponse = "/linting/response"

	ChannelLintingEndStatementRequest  = "/linting/endstatement/request"
	ChannelLintingEndStatementResponse = "/linting/endstatement/response"

	ChannelCompletionsRequest  = "/completions/request"
	ChannelCompletionsResponse = "/completions/response"

	ChannelFoldDocumentRequest       = "/foldDocument/request"
	ChannelFoldDocumentResponseBase = "/foldDocument/response"

	// ChannelStartup is published by an attached-process connection to
	// kickstart status callbacks on the interpreter side (spec §4.2).
	ChannelStartup = "/startup"
)
