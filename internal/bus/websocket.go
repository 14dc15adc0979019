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

package bus

import (
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// envelope is the wire frame carried over the websocket connection: a
// channel name (already namespaced, see Namespace) plus an arbitrary JSON
// payload.
type envelope struct {
	Channel string          `json:"channel"`
	Payload json.RawMessage `json:"payload"`
}

// WSBus is a Bus implementation over a single gorilla/websocket
// connection. It is the concrete transport behind both interpreter
// manager flavors (spec §4.2): an owned-process connection dials a
// wss:// URL secured with the interpreter's self-issued certificate, and
// an attached-process connection dials whatever URL the editor was
// configured with.
type WSBus struct {
	logger *zap.Logger

	mu      sync.Mutex // guards writes; gorilla connections are not safe for concurrent writers
	conn    *websocket.Conn
	closed  atomic.Bool
	nextSub uint64

	subMu sync.Mutex
	subs  map[string]map[uint64]Handler

	lifecycleMu sync.Mutex
	lifecycle   map[uint64]func(State)
}

// NewWSBus wraps an already-established websocket connection as a Bus and
// starts its read pump. The caller is responsible for having completed
// whatever TLS/auth handshake the connection required.
func NewWSBus(conn *websocket.Conn, logger *zap.Logger) *WSBus {
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &WSBus{
		logger: logger,
		conn:   conn,
		subs:   make(map[string]map[uint64]Handler),
		lifecycle: make(map[uint64]func(State)),
	}
	go b.readPump()
	b.fireLifecycle(StateConnected)
	return b
}

// DialConfig configures an outbound WSBus connection.
type DialConfig struct {
	// URL is a ws:// or wss:// endpoint.
	URL string
	// APIKey, when non-empty, is sent as a header on every frame of the
	// handshake (spec §4.1: "the server sends an API key as a header on
	// every frame" — for a websocket transport this is the Upgrade
	// request, since the handshake is the only frame under our control
	// before the bidirectional stream begins).
	APIKey string
	// TLSConfig is used for wss:// URLs. For an owned-process connection
	// this carries the certificate the interpreter wrote on startup
	// (spec §4.1, §6.3).
	TLSConfig *tls.Config
}

// Dial opens a new WSBus to the given configuration.
func Dial(cfg DialConfig, logger *zap.Logger) (*WSBus, error) {
	dialer := websocket.Dialer{
		TLSClientConfig: cfg.TLSConfig,
	}
	header := http.Header{}
	if cfg.APIKey != "" {
		header.Set("X-API-Key", cfg.APIKey)
	}
	conn, _, err := dialer.Dial(cfg.URL, header)
	if err != nil {
		return nil, fmt.Errorf("bus: dial %s: %w", cfg.URL, err)
	}
	return NewWSBus(conn, logger), nil
}

func (b *WSBus) Publish(channel string, payload any) error {
	if b.closed.Load() {
		// Publish on a closed connection fails silently (spec §4.1).
		return nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("bus: marshal payload for %s: %w", channel, err)
	}
	env := envelope{Channel: Namespace + channel, Payload: raw}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed.Load() {
		return nil
	}
	return b.conn.WriteJSON(env)
}

func (b *WSBus) Subscribe(channel string, handler Handler) (Subscription, error) {
	if b.closed.Load() {
		return Subscription{}, ErrTransportClosed
	}
	id := atomic.AddUint64(&b.nextSub, 1)
	wire := Namespace + channel

	b.subMu.Lock()
	if b.subs[wire] == nil {
		b.subs[wire] = make(map[uint64]Handler)
	}
	b.subs[wire][id] = handler
	b.subMu.Unlock()

	return Subscription{id: id, channel: wire}, nil
}

func (b *WSBus) Unsubscribe(sub Subscription) {
	b.subMu.Lock()
	defer b.subMu.Unlock()
	if handlers, ok := b.subs[sub.channel]; ok {
		delete(handlers, sub.id)
		if len(handlers) == 0 {
			delete(b.subs, sub.channel)
		}
	}
}

func (b *WSBus) AllocateChannelID() string {
	return AllocateChannelID()
}

func (b *WSBus) OnLifecycle(fn func(State)) Subscription {
	id := atomic.AddUint64(&b.nextSub, 1)
	b.lifecycleMu.Lock()
	b.lifecycle[id] = fn
	b.lifecycleMu.Unlock()
	return Subscription{id: id, channel: "$lifecycle"}
}

// Close shuts down the underlying connection and fires a DISCONNECTED
// lifecycle event if one has not already been fired.
func (b *WSBus) Close() error {
	if !b.closed.CompareAndSwap(false, true) {
		return nil
	}
	b.fireLifecycle(StateDisconnected)
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conn.Close()
}

func (b *WSBus) readPump() {
	for {
		_, data, err := b.conn.ReadMessage()
		if err != nil {
			if b.closed.CompareAndSwap(false, true) {
				b.logger.Debug("bus: read loop ended", zap.Error(err))
				b.fireLifecycle(StateDisconnected)
			}
			return
		}
		var env envelope
		if err := json.Unmarshal(data, &env); err != nil {
			b.logger.Warn("bus: malformed frame", zap.Error(err))
			continue
		}
		b.dispatch(env)
	}
}

func (b *WSBus) dispatch(env envelope) {
	b.subMu.Lock()
	handlers := make([]Handler, 0, len(b.subs[env.Channel]))
	for _, h := range b.subs[env.Channel] {
		handlers = append(handlers, h)
	}
	b.subMu.Unlock()

	// Handlers run sequentially in arrival order (spec §5): the bus never
	// fans a single message out to concurrent goroutines.
	for _, h := range handlers {
		h(env.Payload)
	}
}

func (b *WSBus) fireLifecycle(s State) {
	b.lifecycleMu.Lock()
	fns := make([]func(State), 0, len(b.lifecycle))
	for _, fn := range b.lifecycle {
		fns = append(fns, fn)
	}
	b.lifecycleMu.Unlock()
	for _, fn := range fns {
		fn(s)
	}
}
