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

// Package cmd wires up and runs the engine as a standalone process the way
// origin/cmd wires up and runs the blob server: parse flags, load and
// validate configuration, set up logging and metrics, then hand control to
// the wired components.
package cmd

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/uber/kraken/content"
	"github.com/uber/kraken/domtypes"
	"github.com/uber/kraken/engine"
	"github.com/uber/kraken/layout"
	"github.com/uber/kraken/metrics"
	"github.com/uber/kraken/resource"
	"github.com/uber/kraken/utils/configutil"
	"github.com/uber/kraken/utils/log"

	"github.com/uber-go/tally"
	"go.uber.org/zap"
)

// Flags defines the servod CLI flags.
type Flags struct {
	ConfigFile    string
	SecretsFile   string
	KrakenCluster string
	URL           string
}

// ParseFlags parses servod CLI flags.
func ParseFlags() *Flags {
	var flags Flags
	flag.StringVar(
		&flags.ConfigFile, "config", "", "configuration file path")
	flag.StringVar(
		&flags.SecretsFile, "secrets", "", "path to a secrets YAML file to load into configuration")
	flag.StringVar(
		&flags.KrakenCluster, "cluster", "", "cluster name (e.g. prod01-zone1)")
	flag.StringVar(
		&flags.URL, "url", "", "url to open on startup")
	flag.Parse()
	return &flags
}

type options struct {
	config       *engine.Config
	metrics      tally.Scope
	logger       *zap.Logger
	builder      layout.Builder
	scriptEngine content.ScriptEngine
	extraLoaders map[string]resource.LoaderFactory
}

// Option defines an optional Run parameter.
type Option func(*options)

// WithConfig ignores config/secrets flags and directly uses the provided
// config struct.
func WithConfig(c engine.Config) Option {
	return func(o *options) { o.config = &c }
}

// WithMetrics ignores metrics config and directly uses the provided tally
// scope.
func WithMetrics(s tally.Scope) Option {
	return func(o *options) { o.metrics = s }
}

// WithLogger ignores logging config and directly uses the provided logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithBuilder overrides the default no-op layout builder with a real one.
func WithBuilder(b layout.Builder) Option {
	return func(o *options) { o.builder = b }
}

// WithScriptEngine overrides the default no-op script engine with a real
// one.
func WithScriptEngine(e content.ScriptEngine) Option {
	return func(o *options) { o.scriptEngine = e }
}

// WithLoaderFactory registers an extra resource loader for scheme.
func WithLoaderFactory(scheme string, f resource.LoaderFactory) Option {
	return func(o *options) {
		if o.extraLoaders == nil {
			o.extraLoaders = make(map[string]resource.LoaderFactory)
		}
		o.extraLoaders[scheme] = f
	}
}

// Run loads configuration, spins up the engine, optionally opens a starting
// url, and blocks until an interrupt or termination signal is received.
func Run(flags *Flags, opts ...Option) {
	var overrides options
	for _, o := range opts {
		o(&overrides)
	}

	config := setupConfiguration(flags, &overrides)
	logger := setupLogging(config, &overrides)
	defer func() {
		if logger != nil {
			logger.Sync()
		}
	}()

	stats, statsCloser := setupMetrics(config, flags, &overrides)
	defer statsCloser()

	builder := overrides.builder
	if builder == nil {
		builder = layout.NopBuilder{}
	}
	scriptEngine := overrides.scriptEngine
	if scriptEngine == nil {
		scriptEngine = content.NopScriptEngine{}
	}

	e := engine.New(config, stats, overrides.extraLoaders, builder, scriptEngine)
	defer e.Close()

	if flags.URL != "" {
		e.Open(domtypes.MustParseURL(flags.URL))
	}

	waitForShutdown()
}

func setupConfiguration(flags *Flags, overrides *options) engine.Config {
	var config engine.Config
	if overrides.config != nil {
		config = *overrides.config
		return config
	}
	if flags.ConfigFile != "" {
		if err := configutil.Load(flags.ConfigFile, &config); err != nil {
			panic(err)
		}
	}
	if flags.SecretsFile != "" {
		if err := configutil.Load(flags.SecretsFile, &config); err != nil {
			panic(err)
		}
	}
	return config
}

func setupLogging(config engine.Config, overrides *options) *zap.Logger {
	if overrides.logger != nil {
		log.SetGlobalLogger(overrides.logger.Sugar())
		return overrides.logger
	}
	zlog := log.ConfigureLogger(config.ZapLogging)
	return zlog.Desugar()
}

func setupMetrics(config engine.Config, flags *Flags, overrides *options) (tally.Scope, func()) {
	if overrides.metrics != nil {
		return overrides.metrics, func() {}
	}
	s, closer, err := metrics.New(config.Metrics, flags.KrakenCluster)
	if err != nil {
		log.Fatalf("Failed to init metrics: %s", err)
	}
	return s, func() { closer.Close() }
}

func waitForShutdown() {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("servod: shutting down")
}
