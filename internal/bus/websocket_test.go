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

package bus_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diningPhilosopher64/MATLAB-language-server/internal/bus"
)

// newLoopbackPair starts a local websocket server that hands its
// accepted *websocket.Conn to the test over a channel, and returns a
// dialed client-side WSBus connected to it.
func newLoopbackPair(t *testing.T) (client *bus.WSBus, server *bus.WSBus, cleanup func()) {
	t.Helper()

	upgrader := websocket.Upgrader{}
	accepted := make(chan *websocket.Conn, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		accepted <- conn
	}))

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	c, err := bus.Dial(bus.DialConfig{URL: wsURL}, nil)
	require.NoError(t, err)

	rawServerConn := <-accepted
	s := bus.NewWSBus(rawServerConn, nil)

	return c, s, func() {
		_ = c.Close()
		_ = s.Close()
		srv.Close()
	}
}

func TestAllocateChannelIDIsUnique(t *testing.T) {
	t.Parallel()
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := bus.AllocateChannelID()
		assert.False(t, seen[id])
		seen[id] = true
	}
}

func TestPublishSubscribeRoundTrip(t *testing.T) {
	t.Parallel()
	client, server, cleanup := newLoopbackPair(t)
	defer cleanup()

	type msg struct {
		Value string `json:"value"`
	}

	received := make(chan msg, 1)
	_, err := server.Subscribe("/greeting", func(payload json.RawMessage) {
		var m msg
		require.NoError(t, json.Unmarshal(payload, &m))
		received <- m
	})
	require.NoError(t, err)

	require.NoError(t, client.Publish("/greeting", msg{Value: "hello"}))

	select {
	case m := <-received:
		assert.Equal(t, "hello", m.Value)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	t.Parallel()
	client, server, cleanup := newLoopbackPair(t)
	defer cleanup()

	var mu sync.Mutex
	count := 0
	sub, err := server.Subscribe("/count", func(json.RawMessage) {
		mu.Lock()
		count++
		mu.Unlock()
	})
	require.NoError(t, err)

	require.NoError(t, client.Publish("/count", struct{}{}))
	time.Sleep(100 * time.Millisecond)

	server.Unsubscribe(sub)

	require.NoError(t, client.Publish("/count", struct{}{}))
	time.Sleep(100 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, count)
}

func TestCloseFiresDisconnectedLifecycle(t *testing.T) {
	t.Parallel()
	client, server, cleanup := newLoopbackPair(t)
	defer cleanup()

	disconnected := make(chan bus.State, 1)
	client.OnLifecycle(func(s bus.State) {
		if s == bus.StateDisconnected {
			select {
			case disconnected <- s:
			default:
			}
		}
	})

	require.NoError(t, server.Close())

	select {
	case <-disconnected:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for disconnect notification")
	}
}

func TestSubscribeOnClosedBusFails(t *testing.T) {
	t.Parallel()
	client, _, cleanup := newLoopbackPair(t)
	defer cleanup()
	require.NoError(t, client.Close())

	_, err := client.Subscribe("/anything", func(json.RawMessage) {})
	assert.ErrorIs(t, err, bus.ErrTransportClosed)

	// Publish on a closed bus fails silently per spec §4.1.
	assert.NoError(t, client.Publish("/anything", struct{}{}))
}
