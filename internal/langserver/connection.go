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

// This file forwards interpreter connection-state transitions to the
// client (spec §7 "user-visible"; SUPPLEMENTED FEATURES #1) and
// re-indexes open buffers once a connection comes back up (spec §8
// scenario S5).

package langserver

import (
	"context"

	"go.uber.org/zap"

	"github.com/diningPhilosopher64/MATLAB-language-server/internal/bus"
	"github.com/diningPhilosopher64/MATLAB-language-server/internal/indexer"
)

// connectionNotification is the payload of $/matlab/connection.
type connectionNotification struct {
	State string `json:"state"`
}

// connectionStateName maps bus.State to the wire vocabulary named in
// spec §7: "connecting", "connected", "disconnected".
func connectionStateName(s bus.State) string {
	return s.String()
}

func (s *server) onInterpreterLifecycle(state bus.State) {
	ctx := context.Background()
	s.notify(ctx, "$/matlab/connection", connectionNotification{State: connectionStateName(state)})

	if state != bus.StateConnected {
		return
	}
	for _, uri := range s.docs.OpenURIs() {
		text, ok := s.docs.Text(uri)
		if !ok {
			continue
		}
		s.docIndexer.QueueIndex(indexer.Document{URI: uri, Text: text})
		go s.publishDiagnostics(ctx, uri, text)
	}
}

// interpreterUnavailableNotification is sent when an on-demand feature
// needed the interpreter but it was not connected (spec §7), distinct
// from the connection-state notification so the editor can prompt the
// user about the specific feature that was skipped.
type interpreterUnavailableNotification struct {
	Feature string `json:"feature"`
}

func (s *server) notifyInterpreterUnavailable(ctx context.Context, feature string) {
	s.notify(ctx, "$/matlab/interpreterUnavailable", interpreterUnavailableNotification{Feature: feature})
	s.logger.Debug("feature skipped: interpreter unavailable", zap.String("feature", feature))
}
