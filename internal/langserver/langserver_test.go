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
	"encoding/json"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.lsp.dev/protocol"
	"go.uber.org/zap"

	"github.com/diningPhilosopher64/MATLAB-language-server/internal/bus"
	"github.com/diningPhilosopher64/MATLAB-language-server/internal/config"
	"github.com/diningPhilosopher64/MATLAB-language-server/internal/index"
	"github.com/diningPhilosopher64/MATLAB-language-server/internal/indexer"
	"github.com/diningPhilosopher64/MATLAB-language-server/internal/interpreter"
	"github.com/diningPhilosopher64/MATLAB-language-server/internal/pathresolve"
	"github.com/diningPhilosopher64/MATLAB-language-server/internal/providers"
	"github.com/diningPhilosopher64/MATLAB-language-server/internal/wire"
)

// fakeBus is a minimal in-process bus.Bus, mirroring internal/providers'
// own test double.
type fakeBus struct {
	mu       sync.Mutex
	handlers map[string]map[int]bus.Handler
	next     int
	state    bus.State
}

func newFakeBus() *fakeBus {
	return &fakeBus{handlers: make(map[string]map[int]bus.Handler), state: bus.StateConnected}
}

func (f *fakeBus) Publish(channel string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	f.mu.Lock()
	hs := make([]bus.Handler, 0, len(f.handlers[channel]))
	for _, h := range f.handlers[channel] {
		hs = append(hs, h)
	}
	f.mu.Unlock()
	for _, h := range hs {
		h(raw)
	}
	return nil
}

func (f *fakeBus) Subscribe(channel string, handler bus.Handler) (bus.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	id := f.next
	if f.handlers[channel] == nil {
		f.handlers[channel] = make(map[int]bus.Handler)
	}
	f.handlers[channel][id] = handler
	return bus.Subscription{}, nil
}

func (f *fakeBus) Unsubscribe(bus.Subscription)      {}
func (f *fakeBus) AllocateChannelID() string         { return bus.AllocateChannelID() }
func (f *fakeBus) OnLifecycle(func(bus.State)) bus.Subscription {
	return bus.Subscription{}
}
func (f *fakeBus) State() bus.State { return f.state }

var _ bus.Bus = (*fakeBus)(nil)

type fakeFolderLister struct{}

func (fakeFolderLister) WorkspaceFolders(context.Context) ([]string, error) { return nil, nil }

// newTestServer assembles a *server whose interpreter is configured
// never to connect (so EnsureConnection/Shutdown never touch the
// network) and whose feature providers run over fb, a fully
// in-process bus.
func newTestServer(t *testing.T, fb *fakeBus) *server {
	t.Helper()
	return newTestServerWithTiming(t, fb, interpreter.TimingNever)
}

func newTestServerWithTiming(t *testing.T, fb *fakeBus, timing interpreter.Timing) *server {
	t.Helper()
	logger := zap.NewNop()

	ix := index.New()
	pr := pathresolve.New(logger, fb, fb)
	workspace := indexer.NewWorkspaceIndexer(logger, fb, ix, fb, fakeFolderLister{})
	docIndexer := indexer.NewDocumentIndexer(logger, fb, ix, fb, workspace, pr)
	prov := providers.New(logger, fb, fb)
	interp := interpreter.New(logger, interpreter.Config{ConnectionTiming: timing})

	s := NewServer(logger, interp, ix, docIndexer, workspace, pr, prov, config.Flags{})
	return s
}

func ctxWithTimeout(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestDocumentStoreOpenUpdateCloseRoundTrip(t *testing.T) {
	t.Parallel()
	d := newDocumentStore()

	d.Open("file:///a.m", "x = 1;\ny = 2;", 1)
	text, ok := d.Text("file:///a.m")
	require.True(t, ok)
	assert.Equal(t, "x = 1;\ny = 2;", text)

	line, ok := d.Line("file:///a.m", 2)
	require.True(t, ok)
	assert.Equal(t, "y = 2;", line)

	assert.Equal(t, []string{"file:///a.m"}, d.OpenURIs())

	d.Update("file:///a.m", "x = 3;", 2)
	text, ok = d.Text("file:///a.m")
	require.True(t, ok)
	assert.Equal(t, "x = 3;", text)

	d.Close("file:///a.m")
	_, ok = d.Text("file:///a.m")
	assert.False(t, ok)
	assert.Empty(t, d.OpenURIs())
}

func TestDocumentStoreLineOutOfRange(t *testing.T) {
	t.Parallel()
	d := newDocumentStore()
	d.Open("file:///a.m", "only line", 1)

	_, ok := d.Line("file:///a.m", 0)
	assert.False(t, ok)
	_, ok = d.Line("file:///a.m", 2)
	assert.False(t, ok)
	_, ok = d.Line("file:///missing.m", 1)
	assert.False(t, ok)
}

func TestPositionToRangeAndBack(t *testing.T) {
	t.Parallel()
	r := positionToRange(protocol.Position{Line: 4, Character: 7})
	assert.Equal(t, index.Range{LineStart: 5, CharStart: 7, LineEnd: 5, CharEnd: 7}, r)

	pr := rangeToProtocol(index.Range{LineStart: 5, CharStart: 7, LineEnd: 6, CharEnd: 0})
	assert.Equal(t, protocol.Position{Line: 4, Character: 7}, pr.Start)
	assert.Equal(t, protocol.Position{Line: 5, Character: 0}, pr.End)
}

func TestRangeToProtocolClampsBelowZero(t *testing.T) {
	t.Parallel()
	pr := rangeToProtocol(index.Range{LineStart: 0, CharStart: 0, LineEnd: 0, CharEnd: 0})
	assert.Equal(t, uint32(0), pr.Start.Line)
	assert.Equal(t, uint32(0), pr.End.Line)
}

func TestFileSymbolsFunctionsAndClass(t *testing.T) {
	t.Parallel()
	ft := index.NewFunctionTable()
	ft.Set("helper", &index.FunctionInfo{Name: "helper", Range: index.Range{LineStart: 1, LineEnd: 3}})
	ft.Set("method", &index.FunctionInfo{Name: "method", ParentClass: "Widget", Range: index.Range{LineStart: 5, LineEnd: 7}})

	fd := &index.FileCodeData{
		URI:        "file:///widget.m",
		IsClassDef: true,
		ClassInfo: &index.ClassInfo{
			Name:  "Widget",
			Range: index.Range{LineStart: 1, LineEnd: 20},
			Properties: map[string]*index.MemberInfo{
				"Value": {Name: "Value", Range: index.Range{LineStart: 2, LineEnd: 2}},
			},
			Enumerations: map[string]*index.MemberInfo{},
		},
		Functions: ft,
	}

	syms := fileSymbols(fd)

	var names []string
	for _, s := range syms {
		names = append(names, s.Name)
	}
	assert.Contains(t, names, "Widget")
	assert.Contains(t, names, "Value")
	assert.Contains(t, names, "helper")
	assert.NotContains(t, names, "method") // class methods are not listed
}

func TestEnclosingCallFindsFunctionAndActiveParameter(t *testing.T) {
	t.Parallel()
	name, activeParam, ok := enclosingCall("result = plot(x, y, ", 20)
	require.True(t, ok)
	assert.Equal(t, "plot", name)
	assert.Equal(t, 2, activeParam)
}

func TestEnclosingCallNoOpenParen(t *testing.T) {
	t.Parallel()
	_, _, ok := enclosingCall("x = 1 + 2", 9)
	assert.False(t, ok)
}

func TestEnclosingCallSkipsNestedCalls(t *testing.T) {
	t.Parallel()
	// cursor sits right after the inner call closes, inside the outer one.
	name, activeParam, ok := enclosingCall("outer(inner(1, 2), ", 19)
	require.True(t, ok)
	assert.Equal(t, "outer", name)
	assert.Equal(t, 1, activeParam)
}

func TestDecodeCommandArgs(t *testing.T) {
	t.Parallel()
	var args executeCommandURILineArgs
	err := decodeCommandArgs([]interface{}{map[string]interface{}{"uri": "file:///a.m", "line": 3}}, &args)
	require.NoError(t, err)
	assert.Equal(t, "file:///a.m", args.URI)
	assert.Equal(t, 3, args.Line)
}

func TestDecodeCommandArgsEmpty(t *testing.T) {
	t.Parallel()
	var args executeCommandURIArgs
	err := decodeCommandArgs(nil, &args)
	assert.Error(t, err)
}

// TestInitializedOnDemandDoesNotConnect covers spec §4.2: under
// on-demand, Initialized must not schedule a connection attempt at all. Nothing ever flips the interpreter's
// state away from Disconnected here, so there's no race to poll for.
func TestInitializedOnDemandDoesNotConnect(t *testing.T) {
	t.Parallel()
	s := newTestServerWithTiming(t, newFakeBus(), interpreter.TimingOnDemand)

	var transitions int32
	s.interp.OnLifecycle(func(bus.State) { atomic.AddInt32(&transitions, 1) })

	require.NoError(t, s.Initialized(ctxWithTimeout(t), &protocol.InitializedParams{}))
	time.Sleep(50 * time.Millisecond)

	assert.Equal(t, bus.StateDisconnected, s.interp.State())
	assert.Zero(t, atomic.LoadInt32(&transitions))
}

// TestInitializedOnStartSchedulesConnectionAttempt covers the on-start
// half of spec §4.2: Initialized must still try, even though this
// server has no MATLAB install configured and the attempt is bound to
// fail through to Disconnected again.
func TestInitializedOnStartSchedulesConnectionAttempt(t *testing.T) {
	t.Parallel()
	s := newTestServerWithTiming(t, newFakeBus(), interpreter.TimingOnStart)

	attempted := make(chan struct{}, 1)
	s.interp.OnLifecycle(func(bus.State) {
		select {
		case attempted <- struct{}{}:
		default:
		}
	})

	require.NoError(t, s.Initialized(ctxWithTimeout(t), &protocol.InitializedParams{}))

	select {
	case <-attempted:
	case <-time.After(2 * time.Second):
		t.Fatal("on-start Initialized never attempted a connection")
	}
}

func TestConnectionStateName(t *testing.T) {
	t.Parallel()
	assert.Equal(t, bus.StateConnected.String(), connectionStateName(bus.StateConnected))
	assert.Equal(t, bus.StateDisconnected.String(), connectionStateName(bus.StateDisconnected))
}

func TestFormattingRoundTrips(t *testing.T) {
	t.Parallel()
	fb := newFakeBus()
	_, err := fb.Subscribe(wire.ChannelFormatDocumentRequest, func(payload json.RawMessage) {
		var req wire.FormatRequest
		require.NoError(t, json.Unmarshal(payload, &req))
		_ = fb.Publish(wire.ChannelFormatDocumentResponse, wire.FormatResponse{Data: "x = 1;"})
	})
	require.NoError(t, err)

	s := newTestServer(t, fb)
	s.docs.Open("file:///a.m", "x=1;", 1)

	edits, err := s.Formatting(ctxWithTimeout(t), &protocol.DocumentFormattingParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: "file:///a.m"},
		Options:      protocol.FormattingOptions{InsertSpaces: true, TabSize: 4},
	})
	require.NoError(t, err)
	require.Len(t, edits, 1)
	assert.Equal(t, "x = 1;", edits[0].NewText)
}

func TestFormattingRequiresOpenDocument(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, newFakeBus())

	_, err := s.Formatting(context.Background(), &protocol.DocumentFormattingParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: "file:///missing.m"},
	})
	assert.Error(t, err)
}

func TestCompletionRoundTrips(t *testing.T) {
	t.Parallel()
	fb := newFakeBus()
	_, err := fb.Subscribe(wire.ChannelCompletionsRequest, func(payload json.RawMessage) {
		var req wire.CompletionRequest
		require.NoError(t, json.Unmarshal(payload, &req))
		assert.Equal(t, 2, req.CursorPosition)
		_ = fb.Publish(wire.ChannelCompletionsResponse, wire.CompletionResponse{
			Items: []wire.CompletionItem{{Label: "plot"}},
		})
	})
	require.NoError(t, err)

	s := newTestServer(t, fb)
	s.docs.Open("file:///a.m", "pl", 1)

	list, err := s.Completion(ctxWithTimeout(t), &protocol.CompletionParams{
		TextDocumentPositionParams: protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: "file:///a.m"},
			Position:     protocol.Position{Line: 0, Character: 2},
		},
	})
	require.NoError(t, err)
	require.Len(t, list.Items, 1)
	assert.Equal(t, "plot", list.Items[0].Label)
}

func TestFoldingRangesConvertsLinePairs(t *testing.T) {
	t.Parallel()
	fb := newFakeBus()
	// FoldDocument correlates on a generated request id suffix: the
	// handler reads it back off the request before publishing.
	_, err := fb.Subscribe(wire.ChannelFoldDocumentRequest, func(payload json.RawMessage) {
		var req wire.FoldDocumentRequest
		require.NoError(t, json.Unmarshal(payload, &req))
		_ = fb.Publish(wire.ChannelFoldDocumentResponseBase+"/"+req.RequestID, wire.FoldDocumentResponse{
			Lines: []int{1, 5},
		})
	})
	require.NoError(t, err)

	s := newTestServer(t, fb)
	s.docs.Open("file:///a.m", "function f()\nend", 1)

	ranges, err := s.FoldingRanges(ctxWithTimeout(t), &protocol.FoldingRangeParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: "file:///a.m"},
	})
	require.NoError(t, err)
	require.Len(t, ranges, 1)
	assert.Equal(t, uint32(0), ranges[0].StartLine)
	assert.Equal(t, uint32(4), ranges[0].EndLine)
}

func TestDocumentSymbolAndWorkspaceSymbol(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, newFakeBus())
	s.index.ParseAndStore("file:///a.m", index.WriteKindDocument, wireRawCodeDataWithFunction("compute"))

	syms, err := s.DocumentSymbol(context.Background(), &protocol.DocumentSymbolParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: "file:///a.m"},
	})
	require.NoError(t, err)
	require.Len(t, syms, 1)
	assert.Equal(t, "compute", syms[0].(documentSymbol).Name)

	matches, err := s.Symbols(context.Background(), &protocol.WorkspaceSymbolParams{Query: "comp"})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "compute", matches[0].Name)

	noMatches, err := s.Symbols(context.Background(), &protocol.WorkspaceSymbolParams{Query: "zzz"})
	require.NoError(t, err)
	assert.Empty(t, noMatches)
}

func TestExecuteCommandUnknownCommand(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, newFakeBus())

	_, err := s.ExecuteCommand(context.Background(), &protocol.ExecuteCommandParams{Command: "matlab.doesNotExist"})
	assert.Error(t, err)
}

func TestExecuteCommandFilterLintByFileReturnsNoError(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, newFakeBus())

	_, err := s.ExecuteCommand(context.Background(), &protocol.ExecuteCommandParams{
		Command:   commandFilterLintByFile,
		Arguments: []interface{}{map[string]interface{}{"uri": "file:///a.m"}},
	})
	assert.NoError(t, err)
}

func TestOnInterpreterLifecycleConnectedWithOpenBuffersDoesNotBlock(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, newFakeBus())
	s.docs.Open("file:///a.m", "x = 1;", 1)

	// No connection is attached, so notify() is a silent no-op; this
	// exercises that onInterpreterLifecycle does not panic or block when
	// transitioning to Connected with open buffers present (spec §8 S5).
	s.onInterpreterLifecycle(bus.StateConnected)
}

// wireRawCodeDataWithFunction builds the minimal raw payload for a
// single free function named name, for tests that only need a function
// to exist in the index.
func wireRawCodeDataWithFunction(name string) wire.RawCodeData {
	return wire.RawCodeData{
		FunctionInfo: []wire.RawFunctionInfo{
			{Name: name, Range: wire.Range{LineStart: 1, LineEnd: 3}, IsPublic: true},
		},
	}
}
