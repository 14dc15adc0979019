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

package pathresolve_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/diningPhilosopher64/MATLAB-language-server/internal/bus"
	"github.com/diningPhilosopher64/MATLAB-language-server/internal/pathresolve"
	"github.com/diningPhilosopher64/MATLAB-language-server/internal/wire"
)

type fakeBus struct {
	mu       sync.Mutex
	handlers map[string]map[int]bus.Handler
	next     int
}

func newFakeBus() *fakeBus {
	return &fakeBus{handlers: make(map[string]map[int]bus.Handler)}
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

func (f *fakeBus) Unsubscribe(bus.Subscription) {}
func (f *fakeBus) AllocateChannelID() string    { return bus.AllocateChannelID() }
func (f *fakeBus) OnLifecycle(func(bus.State)) bus.Subscription {
	return bus.Subscription{}
}

var _ bus.Bus = (*fakeBus)(nil)

type fakeConn struct{ state bus.State }

func (c fakeConn) State() bus.State { return c.state }

func TestResolvePathsRoundTrips(t *testing.T) {
	t.Parallel()
	fb := newFakeBus()

	_, err := fb.Subscribe(wire.ChannelIdentifierDefinitionRequest, func(payload json.RawMessage) {
		var req wire.IdentifierDefinitionRequest
		require.NoError(t, json.Unmarshal(payload, &req))
		assert.Equal(t, "file:///c.m", req.ContainingFile)
		assert.Equal(t, []string{"foo"}, req.Identifiers)
		_ = fb.Publish(wire.ChannelIdentifierDefinitionResponse, []wire.IdentifierDefinitionResult{
			{Identifier: "foo", FileInfo: &wire.ResolvedFileInfo{FileName: "file:///b.m"}},
		})
	})
	require.NoError(t, err)

	r := pathresolve.New(zap.NewNop(), fb, fakeConn{state: bus.StateConnected})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	results, err := r.ResolvePaths(ctx, []string{"foo"}, "file:///c.m")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "foo", results[0].Identifier)
	assert.Equal(t, "file:///b.m", results[0].FileInfo.FileName)
}

func TestResolvePathsUnavailableWhenDisconnected(t *testing.T) {
	t.Parallel()
	fb := newFakeBus()
	r := pathresolve.New(zap.NewNop(), fb, fakeConn{state: bus.StateDisconnected})

	_, err := r.ResolvePaths(context.Background(), []string{"foo"}, "file:///c.m")
	assert.ErrorIs(t, err, pathresolve.ErrUnavailable)
}
