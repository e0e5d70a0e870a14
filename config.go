// Copyright 2026 Blink Labs Software
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

package civet

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/blinklabs-io/civet/event"
	"github.com/blinklabs-io/civet/ledger"
	"github.com/prometheus/client_golang/prometheus"
)

// runMode constants for operational mode configuration
const (
	runModeServe = "serve"
	runModeDev   = "dev"
)

type Config struct {
	promRegistry           prometheus.Registerer
	logger                 *slog.Logger
	eventBus               *event.EventBus
	dataDir                string
	blobPlugin             string
	metadataPlugin         string
	apiListenAddress       string
	metricsListenAddress   string
	tlsCertFilePath        string
	tlsKeyFilePath         string
	runMode                string
	initialAdmins          []ledger.Principal
	databaseMaxConnections int
	tracing                bool
	tracingStdout          bool
	shutdownTimeout        time.Duration
}

// isDevMode returns true if running in development mode
func (c *Config) isDevMode() bool {
	return c.runMode == runModeDev
}

func (n *Node) configValidate() error {
	switch n.config.runMode {
	case "", runModeServe, runModeDev:
	default:
		return fmt.Errorf("unknown run mode: %s", n.config.runMode)
	}
	if (n.config.tlsCertFilePath == "") != (n.config.tlsKeyFilePath == "") {
		return errors.New(
			"TLS cert and key file paths must both be provided",
		)
	}
	for _, admin := range n.config.initialAdmins {
		if admin.IsNone() {
			return errors.New("initial admin principal must not be empty")
		}
	}
	return nil
}

// ConfigOptionFunc is a type that represents functions that modify the node config
type ConfigOptionFunc func(*Config)

// NewConfig creates a new civet config with the specified options
func NewConfig(opts ...ConfigOptionFunc) Config {
	c := Config{
		// Default logger will throw away logs
		// We do this so we don't have to add guards around every log operation
		logger: slog.New(slog.NewJSONHandler(io.Discard, nil)),
	}
	// Apply options
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// WithLogger specifies the logger to use. This defaults to discarding log output
func WithLogger(logger *slog.Logger) ConfigOptionFunc {
	return func(c *Config) {
		c.logger = logger
	}
}

// WithPrometheusRegistry specifies a prometheus.Registerer instance to add metrics to. In most cases, prometheus.DefaultRegistry would be
// a good choice to get metrics working
func WithPrometheusRegistry(registry prometheus.Registerer) ConfigOptionFunc {
	return func(c *Config) {
		c.promRegistry = registry
	}
}

// WithEventBus specifies the event bus the node publishes operation events
// to, letting the host attach subscribers before the node starts. The node
// stops the bus during shutdown. The default is a bus private to the node,
// reachable via [Node.EventBus]
func WithEventBus(bus *event.EventBus) ConfigOptionFunc {
	return func(c *Config) {
		c.eventBus = bus
	}
}

// WithDatabasePath specifies the persistent data directory to use. The default is to store everything in memory
func WithDatabasePath(dataDir string) ConfigOptionFunc {
	return func(c *Config) {
		c.dataDir = dataDir
	}
}

// WithBlobPlugin specifies the blob storage plugin to use.
func WithBlobPlugin(plugin string) ConfigOptionFunc {
	return func(c *Config) {
		c.blobPlugin = plugin
	}
}

// WithMetadataPlugin specifies the metadata storage plugin to use.
func WithMetadataPlugin(plugin string) ConfigOptionFunc {
	return func(c *Config) {
		c.metadataPlugin = plugin
	}
}

// WithDatabaseMaxConnections specifies the connection limit for metadata
// storage plugins that pool connections. Plugins without pooling ignore it
func WithDatabaseMaxConnections(maxConns int) ConfigOptionFunc {
	return func(c *Config) {
		c.databaseMaxConnections = maxConns
	}
}

// WithApiListenAddress specifies the listen address for the REST API
// server. This defaults to port 3000 on all interfaces
func WithApiListenAddress(addr string) ConfigOptionFunc {
	return func(c *Config) {
		c.apiListenAddress = addr
	}
}

// WithMetricsListenAddress specifies the listen address for the
// prometheus metrics and debug server. An empty string disables the
// server. The default is empty (disabled)
func WithMetricsListenAddress(addr string) ConfigOptionFunc {
	return func(c *Config) {
		c.metricsListenAddress = addr
	}
}

// WithTlsCertFilePath specifies the path to the TLS certificate for the API listener. This defaults to empty
func WithTlsCertFilePath(path string) ConfigOptionFunc {
	return func(c *Config) {
		c.tlsCertFilePath = path
	}
}

// WithTlsKeyFilePath specifies the path to the TLS key for the API listener. This defaults to empty
func WithTlsKeyFilePath(path string) ConfigOptionFunc {
	return func(c *Config) {
		c.tlsKeyFilePath = path
	}
}

// WithInitialAdmins specifies principals granted ADMIN when no admin is
// held yet. Principals already holding ADMIN from a previous run are
// left untouched
func WithInitialAdmins(admins ...ledger.Principal) ConfigOptionFunc {
	return func(c *Config) {
		c.initialAdmins = append(c.initialAdmins, admins...)
	}
}

// WithTracing enables tracing. By default, spans are submitted to a HTTP(s) endpoint using OTLP. This can be configured
// using the OTEL_EXPORTER_OTLP_* env vars documented in the README for [go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp]
func WithTracing(tracing bool) ConfigOptionFunc {
	return func(c *Config) {
		c.tracing = tracing
	}
}

// WithTracingStdout enables tracing output to stdout. This also requires tracing to enabled separately. This is mostly useful for debugging
func WithTracingStdout(stdout bool) ConfigOptionFunc {
	return func(c *Config) {
		c.tracingStdout = stdout
	}
}

// WithRunMode sets the operational mode ("serve" or "dev").
// "dev" mode seeds a default admin principal when none is configured
func WithRunMode(mode string) ConfigOptionFunc {
	return func(c *Config) {
		c.runMode = mode
	}
}

// WithShutdownTimeout specifies the timeout for graceful shutdown. The default is 30 seconds
func WithShutdownTimeout(timeout time.Duration) ConfigOptionFunc {
	return func(c *Config) {
		c.shutdownTimeout = timeout
	}
}
