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

package node

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/blinklabs-io/civet"
	"github.com/blinklabs-io/civet/internal/config"
	"github.com/blinklabs-io/civet/ledger"
	"github.com/prometheus/client_golang/prometheus"
)

// defaultShutdownTimeout bounds graceful shutdown when the config does not
// specify one
const defaultShutdownTimeout = 30 * time.Second

// shutdownTimeout parses the configured shutdown timeout
func shutdownTimeout(cfg *config.Config) (time.Duration, error) {
	if cfg.ShutdownTimeout == "" {
		return defaultShutdownTimeout, nil
	}
	timeout, err := time.ParseDuration(cfg.ShutdownTimeout)
	if err != nil {
		return 0, fmt.Errorf("invalid shutdown timeout: %w", err)
	}
	return timeout, nil
}

// ledgerConfig maps the file/flag/env configuration onto the ledger's
// functional options
func ledgerConfig(
	cfg *config.Config,
	logger *slog.Logger,
	timeout time.Duration,
) civet.Config {
	initialAdmins := make([]ledger.Principal, 0, len(cfg.InitialAdmins))
	for _, admin := range cfg.InitialAdmins {
		initialAdmins = append(initialAdmins, ledger.Principal(admin))
	}
	metricsListenAddress := ""
	if cfg.MetricsPort > 0 {
		metricsListenAddress = fmt.Sprintf(
			"%s:%d",
			cfg.BindAddr,
			cfg.MetricsPort,
		)
	}
	return civet.NewConfig(
		civet.WithLogger(logger),
		civet.WithDatabasePath(cfg.DatabasePath),
		civet.WithBlobPlugin(cfg.BlobPlugin),
		civet.WithMetadataPlugin(cfg.MetadataPlugin),
		civet.WithDatabaseMaxConnections(cfg.DatabaseMaxConns),
		civet.WithApiListenAddress(
			fmt.Sprintf(
				"%s:%d",
				cfg.BindAddr,
				cfg.ApiPort,
			),
		),
		civet.WithMetricsListenAddress(metricsListenAddress),
		civet.WithTlsCertFilePath(cfg.TlsCertFilePath),
		civet.WithTlsKeyFilePath(cfg.TlsKeyFilePath),
		civet.WithInitialAdmins(initialAdmins...),
		civet.WithTracing(cfg.Tracing),
		civet.WithTracingStdout(cfg.TracingStdout),
		civet.WithRunMode(string(cfg.RunMode)),
		civet.WithShutdownTimeout(timeout),
		// Enable metrics with default prometheus registry
		civet.WithPrometheusRegistry(prometheus.DefaultRegisterer),
	)
}

func Run(cfg *config.Config, logger *slog.Logger) error {
	logger.Debug(fmt.Sprintf("config: %+v", cfg), "component", "node")
	timeout, err := shutdownTimeout(cfg)
	if err != nil {
		return err
	}
	n, err := civet.New(ledgerConfig(cfg, logger, timeout))
	if err != nil {
		return err
	}

	// Wait for interrupt/termination signal
	signalCtx, signalCtxStop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer signalCtxStop()

	// Run node in goroutine
	errChan := make(chan error, 1)
	go func() {
		//nolint:contextcheck
		err := n.Run(signalCtx)
		select {
		case errChan <- err:
		case <-signalCtx.Done():
		}
	}()

	select {
	case <-signalCtx.Done():
		logger.Info("signal received, initiating graceful shutdown")
		if err := n.Stop(); err != nil {
			logger.Error("shutdown errors occurred", "error", err)
			return err
		}
		logger.Info("shutdown complete")
		return nil
	case err := <-errChan:
		return stopAfterRun(n, logger, signalCtxStop, err)
	}
}

// stopAfterRun shuts the node down after Run returns on its own, whether
// cleanly or with an error
func stopAfterRun(
	n *civet.Node,
	logger *slog.Logger,
	stopSignals context.CancelFunc,
	runErr error,
) error {
	if runErr == nil {
		logger.Info("node stopped")
		if err := n.Stop(); err != nil {
			logger.Error("shutdown errors occurred", "error", err)
			return err
		}
		return nil
	}
	logger.Error("node error", "error", runErr)
	stopSignals()
	if stopErr := n.Stop(); stopErr != nil {
		logger.Error(
			"shutdown errors occurred during error cleanup",
			"error",
			stopErr,
		)
	}
	return runErr
}
