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

// Package wire defines the JSON payloads exchanged with the interpreter
// process over the message bus (spec §6.1). These types are the contract
// boundary: the interpreter's own code-analysis routines are opaque RPCs,
// and this package is the only place that needs to know their shape.
package wire

// Range is a half-open source range. Lines are 1-based, characters are
// 0-based; every producer and consumer in this repository must honor this
// convention (spec §6.1 leaves the choice to implementers).
type Range struct {
	LineStart int `json:"lineStart"`
	CharStart int `json:"charStart"`
	LineEnd   int `json:"lineEnd"`
	CharEnd   int `json:"charEnd"`
}

// Zero reports whether r is the fallback (0,0)-(0,0) location used when a
// path-resolved file is found but no inner symbol can be located (spec §4.6
// stage 4, §8 invariant 3c).
func (r Range) Zero() bool {
	return r == Range{}
}

// RawClassInfo is the classInfo portion of RawCodeData.
type RawClassInfo struct {
	IsClassDef     bool            `json:"isClassDef"`
	HasClassInfo   bool            `json:"hasClassInfo"`
	Name           string          `json:"name"`
	Range          Range           `json:"range"`
	Declaration    Range           `json:"declaration"`
	Properties     []RawMemberInfo `json:"properties"`
	Enumerations   []RawMemberInfo `json:"enumerations"`
	ClassDefFolder string          `json:"classDefFolder"`
	BaseClasses    []string        `json:"baseClasses"`
}

// RawMemberInfo is a property or enumeration member as reported by the
// interpreter.
type RawMemberInfo struct {
	Name       string `json:"name"`
	Range      Range  `json:"range"`
	Visibility string `json:"visibility"` // "public" | "private"
}

// RawVariableInfo is the definitions/references pair for one variable name
// local to a function's scope.
type RawVariableInfo struct {
	Name        string  `json:"name"`
	Definitions []Range `json:"definitions"`
	References  []Range `json:"references"`
}

// RawFunctionInfo is one entry of RawCodeData.FunctionInfo.
type RawFunctionInfo struct {
	Name         string            `json:"name"`
	ParentClass  string            `json:"parentClass"`
	Range        Range             `json:"range"`
	Declaration  *Range            `json:"declaration,omitempty"`
	IsPublic     bool              `json:"isPublic"`
	IsPrototype  bool              `json:"isPrototype"`
	VariableInfo []RawVariableInfo `json:"variableInfo"`
	Globals      []string          `json:"globals"`
}

// RawReference is one entry of RawCodeData.References: a dotted name and
// every range at which it was observed.
type RawReference struct {
	Name   string  `json:"name"`
	Ranges []Range `json:"ranges"`
}

// RawCodeData is the code-structure payload the interpreter returns for a
// single file, on /indexDocument/response, and per-file inside the
// /indexWorkspace/response/<id> stream (spec §6.1).
type RawCodeData struct {
	PackageName  string            `json:"packageName"`
	ClassInfo    RawClassInfo      `json:"classInfo"`
	FunctionInfo []RawFunctionInfo `json:"functionInfo"`
	References   []RawReference    `json:"references"`
}

// IndexDocumentRequest is the payload published on /indexDocument/request.
type IndexDocumentRequest struct {
	Code     string `json:"code"`
	FilePath string `json:"filePath"`
}

// IndexWorkspaceRequest is the payload published on /indexWorkspace/request.
type IndexWorkspaceRequest struct {
	Folders   []string `json:"folders"`
	RequestID string   `json:"requestId"`
}

// IndexWorkspaceUpdate is one message of the /indexWorkspace/response/<id>
// stream.
type IndexWorkspaceUpdate struct {
	FilePath string      `json:"filePath"`
	CodeData RawCodeData `json:"codeData"`
	IsDone   bool        `json:"isDone"`
}

// IdentifierDefinitionRequest is the payload published on
// /findIdentifierDefinition/request.
type IdentifierDefinitionRequest struct {
	ContainingFile string   `json:"containingFile"`
	Identifiers    []string `json:"identifiers"`
}

// ResolvedFileInfo is the fileInfo member of an identifier-definition
// result: the already-computed code data for the resolved file, and, if
// a recursive prefix search located the final identifier inside it, the
// position at which it was found (spec §4.7).
type ResolvedFileInfo struct {
	FileName string      `json:"fileName"`
	Line     int         `json:"line"`
	Char     int         `json:"char"`
	CodeData RawCodeData `json:"codeData"`
}

// IdentifierDefinitionResult is one entry of the
// /findIdentifierDefinition/response array.
type IdentifierDefinitionResult struct {
	Identifier string            `json:"identifier"`
	FileInfo   *ResolvedFileInfo `json:"fileInfo,omitempty"`
	// RequiresSymbolSearch is set when the resolver had to recurse on a
	// dotted prefix (spec §4.7 step 5): the caller must still verify that
	// the trailing component actually exists inside FileInfo before
	// trusting this as a hit. Carried as a value on the result rather than
	// as a side channel, per spec §9's redesign guidance.
	RequiresSymbolSearch bool `json:"requiresSymbolSearch"`
}

// FormatRequest is the payload published on /formatDocument/request.
type FormatRequest struct {
	Data         string `json:"data"`
	InsertSpaces bool   `json:"insertSpaces"`
	TabSize      int    `json:"tabSize"`
	IndentSize   int    `json:"indentSize"`
}

// FormatResponse is the reply on /formatDocument/response.
type FormatResponse struct {
	Data string `json:"data"`
}

// LintRequest is the payload published on /linting/request.
type LintRequest struct {
	Code     string `json:"code"`
	FileName string `json:"fileName"`
}

// LintRecord is one diagnostic produced by the interpreter's linter.
type LintRecord struct {
	Message  string `json:"message"`
	Range    Range  `json:"range"`
	Severity int    `json:"severity"`
	RuleID   string `json:"ruleId"`
}

// LintEndStatementRequest is the payload published on
// /linting/endstatement/request.
type LintEndStatementRequest struct {
	Code       string `json:"code"`
	LineNumber int    `json:"lineNumber"`
}

// LintEndStatementResponse is the reply on /linting/endstatement/response.
type LintEndStatementResponse struct {
	LineNumber int `json:"lineNumber"`
}

// CompletionRequest is the payload published on /completions/request.
type CompletionRequest struct {
	Code           string `json:"code"`
	FileName       string `json:"fileName"`
	CursorPosition int    `json:"cursorPosition"`
}

// CompletionItem is one suggestion in the interpreter's completion reply.
type CompletionItem struct {
	Label      string `json:"label"`
	Detail     string `json:"detail"`
	Kind       int    `json:"kind"`
	InsertText string `json:"insertText"`
}

// CompletionResponse is the filtered completion struct returned by the
// interpreter.
type CompletionResponse struct {
	Items        []CompletionItem `json:"items"`
	IsIncomplete bool             `json:"isIncomplete"`
}

// FoldDocumentRequest is the payload published on /foldDocument/request.
// RequestID correlates with the id-suffixed /foldDocument/response/<id>
// reply channel (spec §6.1).
type FoldDocumentRequest struct {
	Code      string `json:"code"`
	RequestID string `json:"requestId"`
}

// FoldDocumentResponse is the reply on /foldDocument/response/<id>: a flat
// sequence of [startLine, endLine, ...] pairs.
type FoldDocumentResponse struct {
	Lines []int `json:"lines"`
}
