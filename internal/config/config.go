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

// Package config holds the settings that select how the server talks
// to the interpreter (spec §6.4): the matlabLaunchCommandArgs,
// matlabInstallPath, matlabConnectionTiming, indexWorkspace and
// matlabUrl fields the client sends back on a workspace/configuration
// request, plus the CLI flags that default or override them for
// headless and scripted launches.
package config

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/pflag"
	"go.lsp.dev/jsonrpc2"

	"github.com/diningPhilosopher64/MATLAB-language-server/internal/interpreter"
)

// Settings is the plain JSON-tagged shape of one workspace/configuration
// reply item for this server's section (spec §6.4).
type Settings struct {
	LaunchCommandArgs []string `json:"matlabLaunchCommandArgs"`
	InstallPath       string   `json:"matlabInstallPath"`
	ConnectionTiming  string   `json:"matlabConnectionTiming"`
	IndexWorkspace    bool     `json:"indexWorkspace"`
	URL               string   `json:"matlabUrl"`
}

// section is this server's workspace/configuration section name, the
// value clients are expected to key their settings block under.
const section = "MATLAB"

// configurationItem and configurationParams mirror
// go.lsp.dev/protocol's ConfigurationItem/ConfigurationParams shape
// closely enough to decode a workspace/configuration reply without
// depending on the typed protocol.Client wrapper, consistent with this
// repository's direct jsonrpc2.Conn.Call/Notify idiom (see
// internal/langserver/server.go).
type configurationItem struct {
	ScopeURI string `json:"scopeUri,omitempty"`
	Section  string `json:"section,omitempty"`
}

type configurationParams struct {
	Items []configurationItem `json:"items"`
}

// Fetch requests this server's section over conn and decodes it into a
// Settings. A client that does not support configuration pulls, or
// that returns no items, yields the zero Settings; callers should
// layer it under the CLI flags with Flags.Merge either way.
func Fetch(ctx context.Context, conn jsonrpc2.Conn, workspaceFolderURI string) (Settings, error) {
	var raw []json.RawMessage
	_, err := conn.Call(ctx, "workspace/configuration", configurationParams{
		Items: []configurationItem{{ScopeURI: workspaceFolderURI, Section: section}},
	}, &raw)
	if err != nil {
		return Settings{}, fmt.Errorf("config: workspace/configuration: %w", err)
	}
	if len(raw) == 0 {
		return Settings{}, nil
	}

	var settings Settings
	if err := json.Unmarshal(raw[0], &settings); err != nil {
		return Settings{}, fmt.Errorf("config: decoding %s section: %w", section, err)
	}
	return settings, nil
}

// Flags are the CLI-level defaults/overrides for a headless launch
// (spec §6.4's "CLI flags provide defaults/overrides"); the zero value
// of every field means "unset, defer to Settings".
type Flags struct {
	LaunchCommandArgs []string
	InstallPath       string
	ConnectionTiming  string
	IndexWorkspace    bool
	URL               string
}

// Bind registers f's flags on flagSet, in the teacher's Bind-a-flags-
// struct-onto-a-FlagSet style (private/buf/cmd/buf/command/beta/lsp).
func (f *Flags) Bind(flagSet *pflag.FlagSet) {
	flagSet.StringSliceVar(&f.LaunchCommandArgs, "matlab-launch-command-args", nil,
		"extra arguments appended to the MATLAB launch command")
	flagSet.StringVar(&f.InstallPath, "matlab-install-path", "",
		"path to the MATLAB installation to launch")
	flagSet.StringVar(&f.ConnectionTiming, "matlab-connection-timing", "",
		"when to connect to MATLAB: on-start, on-demand, or never")
	flagSet.BoolVar(&f.IndexWorkspace, "index-workspace", true,
		"accepted but not acted on: the server does not index workspace folders at startup")
	flagSet.StringVar(&f.URL, "matlab-url", "",
		"URL of an already-running MATLAB to attach to, instead of launching one")
}

// Merge layers settings (from workspace/configuration) under f (CLI
// flags win where both are set) and returns the resulting
// interpreter.Config.
func (f Flags) Merge(settings Settings) interpreter.Config {
	cfg := interpreter.Config{
		LaunchCommandArgs: settings.LaunchCommandArgs,
		InstallPath:       settings.InstallPath,
		ConnectionTiming:  interpreter.Timing(settings.ConnectionTiming),
		URL:               settings.URL,
	}
	if len(f.LaunchCommandArgs) > 0 {
		cfg.LaunchCommandArgs = f.LaunchCommandArgs
	}
	if f.InstallPath != "" {
		cfg.InstallPath = f.InstallPath
	}
	if f.ConnectionTiming != "" {
		cfg.ConnectionTiming = interpreter.Timing(f.ConnectionTiming)
	}
	if f.URL != "" {
		cfg.URL = f.URL
	}
	return cfg
}
