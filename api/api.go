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

package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"connectrpc.com/connect"
	"connectrpc.com/grpchealth"
	"connectrpc.com/grpcreflect"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

// healthServiceName is the service name reported by the gRPC health and
// reflection handlers
const healthServiceName = "civet.v0.Ledger"

// ApiConfig holds API server configuration.
type ApiConfig struct {
	ListenAddress   string
	TlsCertFilePath string
	TlsKeyFilePath  string
}

// Api is the ledger REST API server.
type Api struct {
	config     ApiConfig
	logger     *slog.Logger
	node       ApiNode
	httpServer *http.Server
	mu         sync.Mutex
}

// New creates a new API server instance.
func New(
	cfg ApiConfig,
	node ApiNode,
	logger *slog.Logger,
) *Api {
	if logger == nil {
		logger = slog.New(
			slog.NewJSONHandler(io.Discard, nil),
		)
	}
	logger = logger.With("component", "api")
	if cfg.ListenAddress == "" {
		cfg.ListenAddress = ":3000"
	}
	return &Api{
		config: cfg,
		logger: logger,
		node:   node,
	}
}

// Start starts the HTTP server in a background goroutine.
func (a *Api) Start(ctx context.Context) error {
	a.mu.Lock()
	if a.httpServer != nil {
		a.mu.Unlock()
		return errors.New("server already started")
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /", a.handleRoot)
	// Batches
	mux.HandleFunc("POST /v0/batches", a.handleRegisterBatch)
	mux.HandleFunc("GET /v0/batches/{batchId}", a.handleGetBatch)
	mux.HandleFunc("POST /v0/batches/{batchId}/mint", a.handleMint)
	mux.HandleFunc("POST /v0/batches/{batchId}/burn", a.handleBurn)
	mux.HandleFunc("GET /v0/batches/{batchId}/balances", a.handleBalances)
	// Certificates
	mux.HandleFunc("POST /v0/certificates", a.handleIssueCertificate)
	mux.HandleFunc(
		"POST /v0/certificates/{certId}/revoke",
		a.handleRevokeCertificate,
	)
	mux.HandleFunc(
		"GET /v0/certificates/{certId}",
		a.handleVerifyCertificate,
	)
	mux.HandleFunc(
		"GET /v0/batches/{batchId}/certificates",
		a.handleBatchCertificates,
	)
	mux.HandleFunc(
		"GET /v0/batches/{batchId}/certificates/latest",
		a.handleLatestCertificate,
	)
	// Custody
	mux.HandleFunc(
		"POST /v0/batches/{batchId}/custody/transfers",
		a.handleRecordTransfer,
	)
	mux.HandleFunc(
		"POST /v0/batches/{batchId}/custody/approvals",
		a.handleApproveTransfer,
	)
	mux.HandleFunc(
		"GET /v0/batches/{batchId}/custody",
		a.handleCustodyRecords,
	)
	// Sales and recalls
	mux.HandleFunc("POST /v0/batches/{batchId}/sales", a.handleRecordSale)
	mux.HandleFunc("GET /v0/batches/{batchId}/sales", a.handleSaleRecords)
	mux.HandleFunc("POST /v0/batches/{batchId}/recall", a.handleFlagRecall)
	mux.HandleFunc("GET /v0/batches/{batchId}/recall", a.handleRecallStatus)
	// Governance
	mux.HandleFunc("POST /v0/governance/members", a.handleAddMember)
	mux.HandleFunc(
		"DELETE /v0/governance/members/{principal}/roles/{role}",
		a.handleRemoveMember,
	)
	mux.HandleFunc("GET /v0/governance/policy", a.handleGetPolicy)
	mux.HandleFunc("PUT /v0/governance/policy", a.handleSetPolicy)
	// Event log polling
	mux.HandleFunc("GET /v0/events", a.handleEvents)
	// gRPC health and reflection
	compress1KB := connect.WithCompressMinBytes(1024)
	mux.Handle(
		grpchealth.NewHandler(
			grpchealth.NewStaticChecker(healthServiceName),
			compress1KB,
		),
	)
	mux.Handle(
		grpcreflect.NewHandlerV1(
			grpcreflect.NewStaticReflector(healthServiceName),
			compress1KB,
		),
	)
	mux.Handle(
		grpcreflect.NewHandlerV1Alpha(
			grpcreflect.NewStaticReflector(healthServiceName),
			compress1KB,
		),
	)

	handler := http.Handler(mux)
	if a.config.TlsCertFilePath == "" || a.config.TlsKeyFilePath == "" {
		// Use h2c so we can serve HTTP/2 without TLS
		handler = h2c.NewHandler(mux, &http2.Server{})
	}
	server := &http.Server{
		Addr:              a.config.ListenAddress,
		Handler:           handler,
		ReadHeaderTimeout: 60 * time.Second,
	}
	a.httpServer = server
	a.mu.Unlock()

	// Start the server with deterministic error detection
	if err := a.startServer(server); err != nil {
		a.mu.Lock()
		a.httpServer = nil
		a.mu.Unlock()
		return err
	}

	a.logger.Info(
		"API listener started on " + a.config.ListenAddress,
	)

	// Monitor context for cancellation
	go func() {
		<-ctx.Done()
		a.mu.Lock()
		srv := a.httpServer
		a.httpServer = nil
		a.mu.Unlock()

		if srv != nil {
			a.logger.Debug(
				"context cancelled, shutting down API server",
			)
			//nolint:contextcheck
			shutdownCtx, cancel := context.WithTimeout(
				context.Background(),
				30*time.Second,
			)
			defer cancel()
			//nolint:contextcheck
			if err := srv.Shutdown(shutdownCtx); err != nil {
				a.logger.Error(
					"failed to shutdown API server on context cancellation",
					"error", err,
				)
			}
		}
	}()

	return nil
}

// Stop gracefully shuts down the HTTP server.
func (a *Api) Stop(ctx context.Context) error {
	a.mu.Lock()
	srv := a.httpServer
	a.httpServer = nil
	a.mu.Unlock()

	if srv != nil {
		a.logger.Debug("shutting down API server")
		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf(
				"failed to shutdown API server: %w",
				err,
			)
		}
	}
	return nil
}

// startServer starts the HTTP server with deterministic error detection.
// It binds the listening socket first so port conflicts are detected
// immediately, then serves in a background goroutine.
func (a *Api) startServer(server *http.Server) error {
	ln, err := net.Listen("tcp", server.Addr)
	if err != nil {
		return fmt.Errorf(
			"failed to listen for API server: %w",
			err,
		)
	}
	useTls := a.config.TlsCertFilePath != "" &&
		a.config.TlsKeyFilePath != ""
	go func() {
		var err error
		if useTls {
			err = server.ServeTLS(
				ln,
				a.config.TlsCertFilePath,
				a.config.TlsKeyFilePath,
			)
		} else {
			err = server.Serve(ln)
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error(
				"API server error",
				"error", err,
			)
		}
	}()
	return nil
}
