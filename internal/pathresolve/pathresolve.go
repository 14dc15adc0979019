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

// Package pathresolve implements resolvePaths (spec §4.7): a thin bus
// RPC wrapper around the interpreter's identifier-resolution algorithm.
// The algorithm itself (private-folder lookup, class-folder sibling
// lookup, ancestor path search, recursive dotted-prefix reduction,
// byte-compiled-alternate substitution) lives entirely on the
// interpreter side; this package only packages the request and
// interprets the reply.
package pathresolve

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/diningPhilosopher64/MATLAB-language-server/internal/bus"
	"github.com/diningPhilosopher64/MATLAB-language-server/internal/wire"
)

// ErrUnavailable is returned when the interpreter connection is not up;
// callers should treat this the same as any other interpreter-down
// failure (spec §7).
var ErrUnavailable = errors.New("pathresolve: interpreter unavailable")

// ConnectionState is the subset of interpreter.Manager the resolver
// needs, kept as an interface so tests can fake it without a real
// transport.
type ConnectionState interface {
	State() bus.State
}

// Resolver issues /findIdentifierDefinition requests over the bus.
type Resolver struct {
	logger *zap.Logger
	bus    bus.Bus
	conn   ConnectionState
}

// New returns a Resolver.
func New(logger *zap.Logger, b bus.Bus, conn ConnectionState) *Resolver {
	return &Resolver{logger: logger.Named("pathresolve"), bus: b, conn: conn}
}

// ResolvePaths implements spec §4.7's resolvePaths(identifiers[],
// contextFileURI). It satisfies both internal/indexer.PathResolver and
// internal/navigation.PathResolver by structural typing.
func (r *Resolver) ResolvePaths(ctx context.Context, identifiers []string, contextFileURI string) ([]wire.IdentifierDefinitionResult, error) {
	if r.conn.State() != bus.StateConnected {
		return nil, ErrUnavailable
	}

	return bus.Request[wire.IdentifierDefinitionRequest, []wire.IdentifierDefinitionResult](
		ctx, r.bus,
		wire.ChannelIdentifierDefinitionRequest, wire.ChannelIdentifierDefinitionResponse,
		wire.IdentifierDefinitionRequest{ContainingFile: contextFileURI, Identifiers: identifiers},
		nil,
	)
}
