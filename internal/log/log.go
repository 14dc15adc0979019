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

// Package log builds the zap.Logger used throughout the server, matching
// the teacher's convention of passing an explicit *zap.Logger into every
// component constructor rather than reaching for a package-level global.
package log

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a logger writing to stderr (stdout is reserved for the LSP
// wire protocol when running over stdio). level is one of "debug", "info",
// "warn", "error"; an empty string defaults to "info".
func New(level string) (*zap.Logger, error) {
	var zl zapcore.Level
	if level == "" {
		level = "info"
	}
	if err := zl.Set(level); err != nil {
		return nil, fmt.Errorf("log: invalid level %q: %w", level, err)
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zl)
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("log: build logger: %w", err)
	}
	return logger, nil
}
