// Copyright (c) 2016-2019 Uber Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package log wraps a single process-global zap logger so every stage in the
// engine (resource, image cache, content, layout) can log without threading
// a logger through every constructor.
package log

import (
	"sync"

	"go.uber.org/zap"
)

var (
	_mu     sync.RWMutex
	_logger = zap.NewNop().Sugar()
)

// Config is the yaml-configurable zap configuration used by the engine's
// entrypoints. It is a thin alias so call sites can embed it in their own
// Config structs the way cmd packages embed ZapLogging zap.Config.
type Config = zap.Config

// ConfigureLogger builds a new sugared logger from config, installs it as
// the global logger, and returns it. Falls back to a production default
// when config has no configured output paths.
func ConfigureLogger(config Config) *zap.SugaredLogger {
	if len(config.OutputPaths) == 0 {
		config = zap.NewProductionConfig()
	}
	logger, err := config.Build()
	if err != nil {
		panic("log: invalid zap config: " + err.Error())
	}
	sugar := logger.Sugar()
	SetGlobalLogger(sugar)
	return sugar
}

// SetGlobalLogger installs l as the package-global logger used by the
// package-level helper functions below.
func SetGlobalLogger(l *zap.SugaredLogger) {
	_mu.Lock()
	defer _mu.Unlock()
	_logger = l
}

func global() *zap.SugaredLogger {
	_mu.RLock()
	defer _mu.RUnlock()
	return _logger
}

// New creates a standalone *zap.Logger from config with the given static
// fields attached to every entry, for components (like a per-document
// structured audit log) that want their own logger instead of the global
// one.
func New(config Config, fields map[string]interface{}) (*zap.Logger, error) {
	if len(config.OutputPaths) == 0 {
		config = zap.NewProductionConfig()
	}
	logger, err := config.Build()
	if err != nil {
		return nil, err
	}
	args := make([]interface{}, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, k, v)
	}
	if len(args) > 0 {
		logger = logger.Sugar().With(args...).Desugar()
	}
	return logger, nil
}

// With returns a sugared logger with the given key/value pairs attached,
// following zap's alternating key/value calling convention.
func With(args ...interface{}) *zap.SugaredLogger {
	return global().With(args...)
}

// Debug logs at debug level.
func Debug(args ...interface{}) { global().Debug(args...) }

// Debugf logs a formatted message at debug level.
func Debugf(template string, args ...interface{}) { global().Debugf(template, args...) }

// Info logs at info level.
func Info(args ...interface{}) { global().Info(args...) }

// Infof logs a formatted message at info level.
func Infof(template string, args ...interface{}) { global().Infof(template, args...) }

// Warn logs at warn level.
func Warn(args ...interface{}) { global().Warn(args...) }

// Warnf logs a formatted message at warn level.
func Warnf(template string, args ...interface{}) { global().Warnf(template, args...) }

// Error logs at error level.
func Error(args ...interface{}) { global().Error(args...) }

// Errorf logs a formatted message at error level.
func Errorf(template string, args ...interface{}) { global().Errorf(template, args...) }

// Fatal logs at fatal level and then calls os.Exit(1).
func Fatal(args ...interface{}) { global().Fatal(args...) }

// Fatalf logs a formatted message at fatal level and then calls os.Exit(1).
func Fatalf(template string, args ...interface{}) { global().Fatalf(template, args...) }
