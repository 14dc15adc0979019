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

// Package interpreter manages the lifecycle of the subordinate analysis
// engine process and the bus connection to it (spec §4.2): either
// spawning and owning a child process, or attaching to one already
// running at a configured URL.
package interpreter

import (
	"bufio"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/diningPhilosopher64/MATLAB-language-server/internal/bus"
	"github.com/diningPhilosopher64/MATLAB-language-server/internal/wire"
)

// Errors in the spec §7 taxonomy that originate from this package.
var (
	// ErrInterpreterUnavailable is returned by ensureConnection when the
	// connection-timing policy is Never, or when an owned-process launch
	// fails outright.
	ErrInterpreterUnavailable = errors.New("interpreter: unavailable")
	// ErrProcessLost is surfaced to connection-status listeners when an
	// owned child process terminates unexpectedly.
	ErrProcessLost = errors.New("interpreter: process lost")
)

// Timing is the connection-timing policy (spec §6.4).
type Timing string

const (
	TimingOnStart  Timing = "on-start"
	TimingOnDemand Timing = "on-demand"
	TimingNever    Timing = "never"
)

// reconnectInterval is the fixed delay between reconnect attempts of the
// attached-process flavor (spec §4.1, §4.2); the owned-process flavor
// does not reconnect.
const reconnectInterval = 1 * time.Second

// memoryManagementNoise is the one stderr line the owned-process flavor
// filters out rather than logging (spec §4.2).
const memoryManagementNoise = "MEMORY MANAGEMENT"

// Config configures an interpreter Manager. Exactly one of URL or
// LaunchCommandArgs/InstallPath is expected to be meaningful, selecting
// the attached- or owned-process flavor respectively.
type Config struct {
	// LaunchCommandArgs are extra argv appended to the derived binary
	// when spawning an owned process.
	LaunchCommandArgs []string
	// InstallPath is the base directory the interpreter binary is
	// derived from.
	InstallPath string
	// ConnectionTiming is one of on-start/on-demand/never.
	ConnectionTiming Timing
	// URL, if non-empty, selects the attached-process flavor: the
	// manager dials this address instead of spawning a child.
	URL string
	// HandshakeDir is the server-designated directory the owned
	// interpreter writes its handshake file and TLS cert/key into.
	HandshakeDir string
	// APIKey is sent as a header on every frame of an owned-process
	// transport.
	APIKey string
}

// handshake is the JSON file the owned interpreter writes once its
// bootstrap completes (spec §6.3).
type handshake struct {
	PID     int    `json:"pid"`
	Release string `json:"release"`
}

// Manager drives the Disconnected -> Connecting -> Connected ->
// Disconnected state machine described in spec §4.2 and exposes the
// live bus connection to the rest of the server.
type Manager struct {
	logger *zap.Logger
	cfg    Config

	mu    sync.Mutex
	state bus.State
	conn  *bus.WSBus
	proc  *process
	// procPID is cmd.Process.Pid for the owned child, recorded so
	// Shutdown can reach past it on Windows (spec §4.2): MATLAB's
	// launcher re-execs itself, so proc.Kill() alone only terminates
	// the intermediate process and leaves the real engine running.
	procPID   int
	listeners map[uint64]func(bus.State)
	nextID    uint64
	closed    bool
	stopReconnect chan struct{}

	// busSubsMu/busSubs/nextBusSubID back managerBus.OnLifecycle/Unsubscribe
	// (busproxy.go): Manager.OnLifecycle itself returns an unsubscribe
	// closure, not a bus.Subscription, so managerBus keeps its own id-keyed
	// table of those closures to satisfy the bus.Bus contract.
	busSubsMu   sync.Mutex
	busSubs     map[uint64]func()
	nextBusSubID uint64
}

// New returns a Manager for cfg. It does not connect; call
// EnsureConnection or rely on on-start timing at the caller's
// initialized-notification handler.
func New(logger *zap.Logger, cfg Config) *Manager {
	if cfg.ConnectionTiming == "" {
		cfg.ConnectionTiming = TimingOnDemand
	}
	return &Manager{
		logger:    logger.Named("interpreter"),
		cfg:       cfg,
		state:     bus.StateDisconnected,
		listeners: make(map[uint64]func(bus.State)),
		busSubs:   make(map[uint64]func()),
	}
}

// OnLifecycle registers fn to be called on every state transition. The
// returned unsubscribe function is idempotent.
func (m *Manager) OnLifecycle(fn func(bus.State)) func() {
	m.mu.Lock()
	m.nextID++
	id := m.nextID
	m.listeners[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.listeners, id)
		m.mu.Unlock()
	}
}

func (m *Manager) setState(s bus.State) {
	m.mu.Lock()
	m.state = s
	listeners := make([]func(bus.State), 0, len(m.listeners))
	for _, fn := range m.listeners {
		listeners = append(listeners, fn)
	}
	m.mu.Unlock()

	m.logger.Info("interpreter connection state changed", zap.String("state", s.String()))
	for _, fn := range listeners {
		fn(s)
	}
}

// State reports the current connection state.
func (m *Manager) State() bus.State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Timing reports the configured connection-timing policy (spec §6.4),
// so callers that must only act on a specific policy (e.g. the LSP
// server scheduling the on-start connection) don't have to thread their
// own copy of the config through. Locked because ApplyConfig can update
// this field concurrently.
func (m *Manager) Timing() Timing {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cfg.ConnectionTiming
}

// ApplyConfig updates the client-overridable fields of the interpreter
// config — launch arguments, install path, connection timing, attach
// URL — typically with the result of layering a workspace/configuration
// pull over the CLI flags (spec §6.4's "primary source" for these
// settings). HandshakeDir and APIKey are this server's own process
// identity, not client-configurable, and are left untouched. It returns
// an error once the manager has moved past Disconnected: a connection
// already underway was started against the old config, and replacing
// that config beneath it would be incoherent.
func (m *Manager) ApplyConfig(cfg Config) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != bus.StateDisconnected {
		return errors.New("interpreter: cannot apply config once a connection has started")
	}
	m.cfg.LaunchCommandArgs = cfg.LaunchCommandArgs
	m.cfg.InstallPath = cfg.InstallPath
	m.cfg.ConnectionTiming = cfg.ConnectionTiming
	m.cfg.URL = cfg.URL
	return nil
}

// EnsureConnection drives the state machine to Connected and returns
// the live bus, unless the connection-timing policy is Never (in which
// case it returns ErrInterpreterUnavailable), or the underlying dial
// fails. It is idempotent: a call while already Connected returns the
// existing connection immediately.
func (m *Manager) EnsureConnection(ctx context.Context) (bus.Bus, error) {
	m.mu.Lock()
	cfg := m.cfg
	if m.state == bus.StateConnected && m.conn != nil {
		conn := m.conn
		m.mu.Unlock()
		return conn, nil
	}
	m.mu.Unlock()

	if cfg.ConnectionTiming == TimingNever {
		return nil, ErrInterpreterUnavailable
	}

	m.setState(bus.StateConnecting)

	var (
		b   *bus.WSBus
		err error
	)
	if cfg.URL != "" {
		b, err = m.connectAttached(ctx, cfg)
	} else {
		b, err = m.connectOwned(ctx, cfg)
	}
	if err != nil {
		m.setState(bus.StateDisconnected)
		return nil, fmt.Errorf("interpreter: connect: %w", err)
	}

	m.mu.Lock()
	m.conn = b
	// A new connection re-arms Shutdown, so a shutdown-then-reconnect
	// (the restart command) can still be torn down later.
	m.closed = false
	m.stopReconnect = make(chan struct{})
	stopCh := m.stopReconnect
	m.mu.Unlock()

	b.OnLifecycle(func(s bus.State) {
		if s != bus.StateDisconnected {
			return
		}
		m.onTransportLost(stopCh)
	})

	m.setState(bus.StateConnected)
	return b, nil
}

// onTransportLost reacts to the underlying transport dropping: owned
// processes report the loss upward (the child is presumed dead or
// dying); attached processes retry connectToExisting every second until
// success or Shutdown.
func (m *Manager) onTransportLost(stopCh chan struct{}) {
	m.mu.Lock()
	m.conn = nil
	owned := m.cfg.URL == ""
	m.mu.Unlock()

	m.setState(bus.StateDisconnected)

	if owned {
		return
	}

	go func() {
		ticker := time.NewTicker(reconnectInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stopCh:
				return
			case <-ticker.C:
				if _, err := m.EnsureConnection(context.Background()); err == nil {
					return
				}
			}
		}
	}()
}

// connectAttached dials cfg.URL and publishes the bootstrap message on
// /startup (spec §4.2 "Attached-process").
func (m *Manager) connectAttached(ctx context.Context, cfg Config) (*bus.WSBus, error) {
	b, err := bus.Dial(bus.DialConfig{URL: cfg.URL}, m.logger)
	if err != nil {
		return nil, err
	}
	if err := b.Publish(wire.ChannelStartup, struct{}{}); err != nil {
		b.Close()
		return nil, err
	}
	return b, nil
}

// connectOwned spawns the interpreter, watches for its handshake file,
// then dials the TLS-secured local transport it announces (spec §4.2
// "Owned-process", §6.3).
func (m *Manager) connectOwned(ctx context.Context, cfg Config) (*bus.WSBus, error) {
	if cfg.HandshakeDir == "" {
		return nil, errors.New("interpreter: owned-process flavor requires a handshake directory")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("interpreter: create watcher: %w", err)
	}
	defer watcher.Close()

	handshakePath := filepath.Join(cfg.HandshakeDir, "handshake.json")
	if err := watcher.Add(cfg.HandshakeDir); err != nil {
		return nil, fmt.Errorf("interpreter: watch handshake dir: %w", err)
	}

	binary := filepath.Join(cfg.InstallPath, "bin", "matlab")
	args := append([]string{"-nosplash", "-nodesktop", "-r", bootstrapScript(cfg.HandshakeDir)}, cfg.LaunchCommandArgs...)
	// Intentionally not tied to ctx: the child must outlive the
	// EnsureConnection call that spawned it. Shutdown kills it explicitly.
	cmd := exec.Command(binary, args...)

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("interpreter: stderr pipe: %w", err)
	}

	proc := newProcess(&execCmd{cmd}, func() {
		m.onTransportLost(nil)
		m.logger.Warn("interpreter process exited", zap.Error(ErrProcessLost))
	})

	if err := proc.Start(); err != nil {
		return nil, fmt.Errorf("interpreter: %w: start: %w", ErrInterpreterUnavailable, err)
	}
	go m.drainStderr(stderr)

	m.mu.Lock()
	m.proc = proc
	if cmd.Process != nil {
		m.procPID = cmd.Process.Pid
	}
	m.mu.Unlock()

	hs, err := awaitHandshake(watcher, handshakePath, 30*time.Second)
	if err != nil {
		_ = proc.Kill()
		return nil, err
	}
	m.logger.Info("interpreter handshake observed", zap.Int("pid", hs.PID), zap.String("release", hs.Release))

	certPath := filepath.Join(cfg.HandshakeDir, "cert.pem")
	keyPath := filepath.Join(cfg.HandshakeDir, "key.pem")
	tlsConfig, err := loadAndDeleteTLSMaterial(certPath, keyPath)
	if err != nil {
		_ = proc.Kill()
		return nil, err
	}

	b, err := bus.Dial(bus.DialConfig{
		URL:       "wss://127.0.0.1/interpreter",
		APIKey:    cfg.APIKey,
		TLSConfig: tlsConfig,
	}, m.logger)
	if err != nil {
		_ = proc.Kill()
		return nil, err
	}
	return b, nil
}

// execCmd adapts *exec.Cmd to the cmdCalls interface process depends on:
// exec.Cmd has no Kill method of its own, only through its Process.
type execCmd struct {
	cmd *exec.Cmd
}

func (e *execCmd) Start() error { return e.cmd.Start() }
func (e *execCmd) Wait() error  { return e.cmd.Wait() }
func (e *execCmd) Kill() error {
	if e.cmd.Process == nil {
		return nil
	}
	return e.cmd.Process.Kill()
}

// bootstrapScript is the one-shot instruction passed to the interpreter
// at launch: add the server's helper code to the search path, create a
// long-lived helper object protected from workspace clear, then write
// the handshake file and emit the TLS certificate location (spec §4.2).
func bootstrapScript(handshakeDir string) string {
	return fmt.Sprintf(
		"addpath(fullfile(matlabroot,'mlsHelpers')); mls.Bootstrap.start(%q);",
		handshakeDir,
	)
}

// awaitHandshake blocks until handshakePath is created (observed via a
// watcher create event, never polled, per spec §4.2 implementation
// note), then reads and decodes it.
func awaitHandshake(watcher *fsnotify.Watcher, handshakePath string, timeout time.Duration) (*handshake, error) {
	deadline := time.After(timeout)
	for {
		select {
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil, errors.New("interpreter: handshake watcher closed")
			}
			if ev.Name != handshakePath || ev.Op&fsnotify.Create == 0 {
				continue
			}
			raw, err := os.ReadFile(handshakePath)
			if err != nil {
				return nil, fmt.Errorf("interpreter: read handshake: %w", err)
			}
			var hs handshake
			if err := json.Unmarshal(raw, &hs); err != nil {
				return nil, fmt.Errorf("interpreter: decode handshake: %w", err)
			}
			return &hs, nil
		case err := <-watcher.Errors:
			return nil, fmt.Errorf("interpreter: watcher error: %w", err)
		case <-deadline:
			return nil, fmt.Errorf("interpreter: %w: handshake file never appeared", ErrInterpreterUnavailable)
		}
	}
}

// loadAndDeleteTLSMaterial reads the interpreter-written certificate and
// key, builds a tls.Config from them, then deletes both files
// immediately, per spec §4.1/§5's "read once, then deleted" contract.
func loadAndDeleteTLSMaterial(certPath, keyPath string) (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(certPath, keyPath)
	if err != nil {
		return nil, fmt.Errorf("interpreter: load TLS material: %w", err)
	}
	var delErr error
	delErr = multierr.Append(delErr, os.Remove(certPath))
	delErr = multierr.Append(delErr, os.Remove(keyPath))
	if delErr != nil {
		return nil, fmt.Errorf("interpreter: delete TLS material: %w", delErr)
	}
	return &tls.Config{Certificates: []tls.Certificate{cert}}, nil
}

// drainStderr logs everything the owned interpreter writes to stderr,
// except the fixed noise line the interpreter emits for its own memory
// bookkeeping (spec §4.2).
func (m *Manager) drainStderr(r io.Reader) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.Contains(line, memoryManagementNoise) {
			continue
		}
		m.logger.Info("interpreter stderr", zap.String("line", line))
	}
}

// Shutdown tears down the connection and, for an owned process, kills
// the child. It is safe to call more than once.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	conn := m.conn
	proc := m.proc
	procPID := m.procPID
	stopCh := m.stopReconnect
	m.conn = nil
	m.mu.Unlock()

	if stopCh != nil {
		close(stopCh)
	}

	var err error
	if conn != nil {
		err = multierr.Append(err, conn.Close())
	}
	if proc != nil {
		err = multierr.Append(err, killOwnedProcess(proc, procPID))
	}

	m.setState(bus.StateDisconnected)
	return err
}

// killOwnedProcess terminates the owned child. On Windows, MATLAB
// re-execs itself under a launcher, so the process proc.Kill() reaches
// is an intermediate hop; taskkill /T walks the whole tree rooted at
// the recorded PID instead, bypassing it. Elsewhere proc.Kill() already
// reaches the real child directly.
func killOwnedProcess(proc *process, procPID int) error {
	if runtime.GOOS == "windows" && procPID != 0 {
		if err := exec.Command("taskkill", "/F", "/T", "/PID", strconv.Itoa(procPID)).Run(); err == nil {
			return nil
		}
	}
	return proc.Kill()
}
