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

// Package bus implements the message-bus transport between the server and
// the subordinate interpreter process (spec §4.1): a single bidirectional
// streaming connection carrying JSON messages addressed by channel name,
// with publish/subscribe fan-out and request/response correlation built on
// top of it.
package bus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Namespace is prefixed onto every channel name before it reaches the wire
// (spec §4.1). The interpreter helper strips it when dispatching, and adds
// it back when replying, so that component code never has to think about
// it.
const Namespace = "/app"

// Errors surfaced by the bus, per spec §7.
var (
	// ErrTransportClosed is returned by Subscribe (and so by Request,
	// which passes Subscribe's error through) when the underlying
	// connection is not open. Publish on a closed connection fails
	// silently instead, per spec §4.1.
	ErrTransportClosed = errors.New("bus: transport closed")
)

// State is a connection lifecycle state, delivered to lifecycle listeners
// on every transition (spec §4.1, §7).
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

// Handler is invoked once per message received on a subscribed channel.
type Handler func(payload json.RawMessage)

// Subscription is an opaque handle identifying a live topic listener. It
// must be released (via Unsubscribe) by whoever created it.
type Subscription struct {
	id      uint64
	channel string
}

// NewSubscription builds a Subscription handle for Bus implementations
// outside this package that track their own id/channel scheme (e.g. an
// adapter forwarding to another Bus's OnLifecycle).
func NewSubscription(id uint64, channel string) Subscription {
	return Subscription{id: id, channel: channel}
}

// ID and Channel expose a Subscription's fields to Bus implementations
// outside this package that need to key their own bookkeeping off them.
func (s Subscription) ID() uint64      { return s.id }
func (s Subscription) Channel() string { return s.channel }

// Bus is the publish/subscribe transport contract used by every component
// that talks to the interpreter (spec §4.1).
type Bus interface {
	// Publish is fire-and-forget; it delivers payload to every current
	// subscriber of channel. It never blocks waiting for a reply.
	Publish(channel string, payload any) error

	// Subscribe registers handler to be invoked once per message received
	// on channel. It returns ErrTransportClosed if the connection is not
	// currently open.
	Subscribe(channel string, handler Handler) (Subscription, error)

	// Unsubscribe is idempotent; after it returns, no further invocation
	// of the associated handler is guaranteed.
	Unsubscribe(sub Subscription)

	// AllocateChannelID returns a process-unique string suitable for
	// appending to a base channel to form a private reply inbox.
	AllocateChannelID() string

	// OnLifecycle registers a listener for CONNECTED/DISCONNECTED
	// transitions. The returned Subscription is released with
	// Unsubscribe.
	OnLifecycle(func(State)) Subscription
}

// AllocateChannelID is the shared implementation of Bus.AllocateChannelID:
// a UUID is process-unique without needing a shared counter, which keeps
// it safe to call from any goroutine without synchronization.
func AllocateChannelID() string {
	return uuid.NewString()
}

// Request performs the allocate/subscribe/publish/await/unsubscribe dance
// described in spec §4.1 ("Request/response pattern") and used by every
// feature provider in §4.8: it allocates a channel id, subscribes to
// <responseBase>/<id>, publishes payload to requestChannel with the id
// embedded via withID, and waits for exactly one reply or ctx's deadline.
//
// withID lets each call site embed the correlation id into its specific
// request payload shape (e.g. IndexWorkspaceRequest.RequestID); it may be
// nil if the response channel alone is enough to correlate (e.g.
// /indexDocument, which has no per-call id).
func Request[Req any, Resp any](ctx context.Context, b Bus, requestChannel, responseBase string, req Req, withID func(*Req, string)) (Resp, error) {
	var zero Resp

	replyChan := responseBase
	if withID != nil {
		id := b.AllocateChannelID()
		withID(&req, id)
		replyChan = responseBase + "/" + id
	}

	type result struct {
		resp Resp
		err  error
	}
	results := make(chan result, 1)

	sub, err := b.Subscribe(replyChan, func(payload json.RawMessage) {
		var resp Resp
		if err := json.Unmarshal(payload, &resp); err != nil {
			results <- result{err: fmt.Errorf("bus: malformed reply on %s: %w", replyChan, err)}
			return
		}
		results <- result{resp: resp}
	})
	if err != nil {
		return zero, err
	}
	defer b.Unsubscribe(sub)

	if err := b.Publish(requestChannel, req); err != nil {
		return zero, err
	}

	select {
	case r := <-results:
		return r.resp, r.err
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// DefaultRequestTimeout is the recommended minimum wait before a
// user-facing request/response round-trip is rejected locally, per spec
// §5 ("Cancellation/timeouts").
const DefaultRequestTimeout = 10 * time.Second
