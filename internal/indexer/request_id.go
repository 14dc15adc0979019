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

package indexer

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// requestIDGen allocates workspace-index RequestIds. Unlike
// bus.AllocateChannelID (a bare UUID, fine for a private reply inbox
// that is never inspected), these ids are worth keeping ordered across
// a single server's lifetime for log correlation, so each one is a
// monotonic counter with a UUID suffix to stay collision-free across
// restarts.
type requestIDGen struct {
	mu   sync.Mutex
	next uint64
}

func (g *requestIDGen) generate() string {
	g.mu.Lock()
	g.next++
	n := g.next
	g.mu.Unlock()
	return fmt.Sprintf("%d-%s", n, uuid.NewString())
}
