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

package interpreter

import (
	"errors"

	"github.com/diningPhilosopher64/MATLAB-language-server/internal/bus"
)

// lifecycleChannel is the sentinel Subscription.channel managerBus hands
// back from OnLifecycle, so Unsubscribe can tell a lifecycle handle apart
// from one naming a real pub/sub channel without needing its own type.
const lifecycleChannel = "$lifecycle"

// Bus returns a bus.Bus that forwards every call to whichever
// connection is live at the time of the call. internal/providers,
// internal/pathresolve and internal/indexer all gate their own use of
// it behind a State() == Connected check first (spec §7), so by the
// time a call here reaches the underlying conn it is almost always
// non-nil; the ErrUnavailable-shaped error below only fires on the
// narrow race where a connection drops between that check and this
// call.
func (m *Manager) Bus() bus.Bus {
	return managerBus{m}
}

// managerBus adapts Manager to bus.Bus without exposing the
// mutex-guarded conn field itself.
type managerBus struct{ m *Manager }

func (b managerBus) liveConn() (bus.Bus, error) {
	b.m.mu.Lock()
	conn := b.m.conn
	b.m.mu.Unlock()
	if conn == nil {
		return nil, errors.New("interpreter: no live connection")
	}
	return conn, nil
}

func (b managerBus) Publish(channel string, payload any) error {
	conn, err := b.liveConn()
	if err != nil {
		return err
	}
	return conn.Publish(channel, payload)
}

func (b managerBus) Subscribe(channel string, handler bus.Handler) (bus.Subscription, error) {
	conn, err := b.liveConn()
	if err != nil {
		return bus.Subscription{}, err
	}
	return conn.Subscribe(channel, handler)
}

func (b managerBus) Unsubscribe(sub bus.Subscription) {
	if sub.Channel() == lifecycleChannel {
		b.m.busSubsMu.Lock()
		unsubscribe, ok := b.m.busSubs[sub.ID()]
		delete(b.m.busSubs, sub.ID())
		b.m.busSubsMu.Unlock()
		if ok {
			unsubscribe()
		}
		return
	}
	if conn, err := b.liveConn(); err == nil {
		conn.Unsubscribe(sub)
	}
}

func (b managerBus) AllocateChannelID() string {
	return bus.AllocateChannelID()
}

// OnLifecycle forwards to Manager.OnLifecycle, so a component that only
// holds this Bus (rather than the Manager itself) can still observe
// connect/disconnect transitions instead of silently registering nothing.
func (b managerBus) OnLifecycle(fn func(bus.State)) bus.Subscription {
	unsubscribe := b.m.OnLifecycle(fn)

	b.m.busSubsMu.Lock()
	id := b.m.nextBusSubID
	b.m.nextBusSubID++
	b.m.busSubs[id] = unsubscribe
	b.m.busSubsMu.Unlock()

	return bus.NewSubscription(id, lifecycleChannel)
}

var _ bus.Bus = managerBus{}
