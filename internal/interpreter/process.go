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
	"context"
	"errors"
	"sync"
)

// errWaitAlreadyCalled is returned by a second call to process.Wait once
// the process has already exited and been observed once.
var errWaitAlreadyCalled = errors.New("interpreter: Wait already observed this process's exit")

// cmdCalls is the subset of *exec.Cmd this package depends on, so tests
// can substitute a fake without spawning a real child.
type cmdCalls interface {
	Start() error
	Wait() error
	Kill() error
}

// process wraps a single owned-process child, tracking its exit
// asynchronously so a blocked Wait can be abandoned (e.g. on a caller's
// context deadline) without losing the eventual exit notification.
type process struct {
	calls cmdCalls
	// done is invoked exactly once, from the goroutine that observes the
	// child's exit, regardless of whether anyone ever calls Wait.
	done func()

	exited chan struct{}

	mu      sync.Mutex
	waitErr error
	waited  bool
}

func newProcess(calls cmdCalls, done func()) *process {
	return &process{
		calls:  calls,
		done:   done,
		exited: make(chan struct{}),
	}
}

// Start launches the child and begins tracking its exit.
func (p *process) Start() error {
	if err := p.calls.Start(); err != nil {
		return err
	}
	go func() {
		err := p.calls.Wait()
		p.mu.Lock()
		p.waitErr = err
		p.mu.Unlock()
		close(p.exited)
		p.done()
	}()
	return nil
}

// Wait blocks until the child exits or ctx is done, whichever comes
// first. If ctx is done first, the child is killed and ctx.Err() is
// returned; the exit is still observed and done() still fires. Once a
// caller has observed a terminal exit, every subsequent call returns
// errWaitAlreadyCalled.
func (p *process) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		_ = p.Kill()
		return ctx.Err()
	default:
	}

	select {
	case <-ctx.Done():
		_ = p.Kill()
		return ctx.Err()
	case <-p.exited:
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.waited {
		return errWaitAlreadyCalled
	}
	p.waited = true
	return p.waitErr
}

// Kill forcibly terminates the child.
func (p *process) Kill() error {
	return p.calls.Kill()
}
