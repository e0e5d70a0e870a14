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
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/pprof"
	"sync"
	"time"

	"github.com/blinklabs-io/civet/api"
	"github.com/blinklabs-io/civet/certs"
	"github.com/blinklabs-io/civet/custody"
	"github.com/blinklabs-io/civet/database"
	"github.com/blinklabs-io/civet/event"
	"github.com/blinklabs-io/civet/governance"
	"github.com/blinklabs-io/civet/ledger"
	"github.com/blinklabs-io/civet/registry"
	"github.com/blinklabs-io/civet/roles"
	"github.com/blinklabs-io/civet/sales"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// devAdmin is the ADMIN principal seeded in dev mode when no initial
// admins are configured
const devAdmin = ledger.Principal("admin")

type Node struct {
	eventBus      *event.EventBus
	db            *database.Database
	roleStore     *roles.RoleStore
	registry      *registry.BatchRegistry
	certs         *certs.CertificateLedger
	custody       *custody.CustodyLog
	sales         *sales.SaleLog
	governance    *governance.GovernanceFacade
	api           *api.Api
	metricsServer *http.Server
	shutdownFuncs []func(context.Context) error
	config        Config
	done          chan struct{}
	shutdownOnce  sync.Once
}

func New(cfg Config) (*Node, error) {
	eventBus := cfg.eventBus
	if eventBus == nil {
		eventBus = event.NewEventBus(cfg.promRegistry, cfg.logger)
	}
	n := &Node{
		config:   cfg,
		eventBus: eventBus,
		done:     make(chan struct{}),
	}
	if err := n.configValidate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return n, nil
}

// EventBus returns the bus that every component publishes its operation
// events to after they commit. Hosts embedding the node subscribe here to
// observe ledger activity without polling the event log
func (n *Node) EventBus() *event.EventBus {
	return n.eventBus
}

func (n *Node) Run(ctx context.Context) error {
	// Configure tracing
	if n.config.tracing {
		if err := n.setupTracing(); err != nil {
			return err
		}
	}
	// Load database
	dbNeedsRecovery := false
	db, err := database.New(&database.Config{
		DataDir:        n.config.dataDir,
		Logger:         n.config.logger,
		BlobPlugin:     n.config.blobPlugin,
		MetadataPlugin: n.config.metadataPlugin,
		PromRegistry:   n.config.promRegistry,
		MaxConnections: n.config.databaseMaxConnections,
	})
	if db == nil {
		n.config.logger.Error(
			"failed to create database",
			"error",
			"empty database returned",
		)
		return errors.New("empty database returned")
	}
	n.db = db
	if err != nil {
		var dbErr database.CommitTimestampError
		if !errors.As(err, &dbErr) {
			return fmt.Errorf("failed to open database: %w", err)
		}
		n.config.logger.Warn(
			"database initialization error, needs recovery",
			"error",
			err,
		)
		dbNeedsRecovery = true
	}
	// Run DB recovery if needed
	if dbNeedsRecovery {
		if err := n.db.RecoverCommitTimestamp(); err != nil {
			return fmt.Errorf("failed to recover database: %w", err)
		}
	}
	// Load role store
	initialAdmins := n.config.initialAdmins
	if len(initialAdmins) == 0 && n.config.isDevMode() {
		n.config.logger.Warn(
			"no initial admins configured, seeding dev admin",
			"principal", string(devAdmin),
		)
		initialAdmins = []ledger.Principal{devAdmin}
	}
	roleStore, err := roles.NewRoleStore(roles.RoleStoreConfig{
		Logger:        n.config.logger,
		EventBus:      n.eventBus,
		DB:            n.db,
		PromRegistry:  n.config.promRegistry,
		InitialAdmins: initialAdmins,
	})
	if err != nil {
		return fmt.Errorf("failed to load role store: %w", err)
	}
	n.roleStore = roleStore
	// Load batch registry
	batchRegistry, err := registry.NewBatchRegistry(
		registry.BatchRegistryConfig{
			Logger:       n.config.logger,
			EventBus:     n.eventBus,
			DB:           n.db,
			PromRegistry: n.config.promRegistry,
			Authorizer:   n.roleStore,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to load batch registry: %w", err)
	}
	n.registry = batchRegistry
	// Load certificate ledger
	certLedger, err := certs.NewCertificateLedger(
		certs.CertificateLedgerConfig{
			Logger:       n.config.logger,
			EventBus:     n.eventBus,
			DB:           n.db,
			PromRegistry: n.config.promRegistry,
			Authorizer:   n.roleStore,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to load certificate ledger: %w", err)
	}
	n.certs = certLedger
	// Load custody log
	custodyLog, err := custody.NewCustodyLog(
		custody.CustodyLogConfig{
			Logger:       n.config.logger,
			EventBus:     n.eventBus,
			DB:           n.db,
			PromRegistry: n.config.promRegistry,
			Authorizer:   n.roleStore,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to load custody log: %w", err)
	}
	n.custody = custodyLog
	// Load sale log
	saleLog, err := sales.NewSaleLog(
		sales.SaleLogConfig{
			Logger:       n.config.logger,
			EventBus:     n.eventBus,
			DB:           n.db,
			PromRegistry: n.config.promRegistry,
			Authorizer:   n.roleStore,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to load sale log: %w", err)
	}
	n.sales = saleLog
	// Load governance facade
	governanceFacade, err := governance.NewGovernanceFacade(
		governance.GovernanceFacadeConfig{
			Logger:       n.config.logger,
			EventBus:     n.eventBus,
			DB:           n.db,
			PromRegistry: n.config.promRegistry,
			Authorizer:   n.roleStore,
			Membership:   n.roleStore,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to load governance facade: %w", err)
	}
	n.governance = governanceFacade
	// Configure REST API
	n.api = api.New(
		api.ApiConfig{
			ListenAddress:   n.config.apiListenAddress,
			TlsCertFilePath: n.config.tlsCertFilePath,
			TlsKeyFilePath:  n.config.tlsKeyFilePath,
		},
		api.NewNodeAdapter(
			n.registry,
			n.certs,
			n.custody,
			n.sales,
			n.governance,
			n.db,
		),
		n.config.logger,
	)
	if err := n.api.Start(ctx); err != nil {
		return err
	}
	// Metrics and debug listener
	if n.config.metricsListenAddress != "" {
		n.startMetricsServer()
	}

	// Wait for shutdown signal
	<-n.done
	return nil
}

func (n *Node) startMetricsServer() {
	metricsHandler := promhttp.Handler()
	if gatherer, ok := n.config.promRegistry.(prometheus.Gatherer); ok {
		metricsHandler = promhttp.HandlerFor(
			gatherer,
			promhttp.HandlerOpts{},
		)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", metricsHandler)
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	n.metricsServer = &http.Server{
		Addr:              n.config.metricsListenAddress,
		Handler:           mux,
		ReadHeaderTimeout: 60 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	n.config.logger.Info(
		"serving prometheus metrics on "+n.config.metricsListenAddress,
		"component", "node",
	)
	go func() {
		if err := n.metricsServer.ListenAndServe(); err != nil &&
			!errors.Is(err, http.ErrServerClosed) {
			n.config.logger.Error(
				"failed to start metrics listener",
				"component", "node",
				"error", err,
			)
		}
	}()
}

func (n *Node) Stop() error {
	var err error
	n.shutdownOnce.Do(func() {
		err = n.shutdown()
	})
	return err
}

func (n *Node) shutdown() error {
	// Create shutdown context with timeout (default 30s if not configured)
	shutdownTimeout := 30 * time.Second
	if n.config.shutdownTimeout > 0 {
		shutdownTimeout = n.config.shutdownTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var err error

	n.config.logger.Debug("starting graceful shutdown")

	// Phase 1: Stop accepting new work
	n.config.logger.Debug("shutdown phase 1: stopping new work")

	if n.api != nil {
		if stopErr := n.api.Stop(ctx); stopErr != nil {
			err = errors.Join(err, fmt.Errorf("api shutdown: %w", stopErr))
		}
	}

	// Phase 2: Drain and close connections
	n.config.logger.Debug("shutdown phase 2: draining connections")

	if n.metricsServer != nil {
		if stopErr := n.metricsServer.Shutdown(ctx); stopErr != nil {
			err = errors.Join(
				err,
				fmt.Errorf("metrics server shutdown: %w", stopErr),
			)
		}
	}

	// Phase 3: Flush state and close database
	n.config.logger.Debug("shutdown phase 3: flushing state")

	if n.db != nil {
		if closeErr := n.db.Close(); closeErr != nil {
			err = errors.Join(
				err,
				fmt.Errorf("database close: %w", closeErr),
			)
		}
	}

	// Phase 4: Cleanup resources
	n.config.logger.Debug("shutdown phase 4: cleanup resources")

	// Call registered shutdown functions
	for _, fn := range n.shutdownFuncs {
		if fnErr := fn(ctx); fnErr != nil {
			err = errors.Join(err, fmt.Errorf("shutdown function: %w", fnErr))
		}
	}
	n.shutdownFuncs = nil

	if n.eventBus != nil {
		n.eventBus.Stop()
	}

	n.config.logger.Debug("graceful shutdown complete")
	close(n.done)
	return err
}
