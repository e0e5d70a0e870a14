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

package certs

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/blinklabs-io/civet/database"
	"github.com/blinklabs-io/civet/database/models"
	"github.com/blinklabs-io/civet/event"
	"github.com/blinklabs-io/civet/ledger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type CertificateLedgerConfig struct {
	PromRegistry prometheus.Registerer
	Logger       *slog.Logger
	EventBus     *event.EventBus
	DB           *database.Database
	Authorizer   ledger.Authorizer
}

// CertificateLedger records lab certificates against batch IDs. Certificate
// IDs are assigned from a single sequence shared across all batches, starting
// at 1, and an ID is never reused. A certificate may reference a batch ID
// that has not been registered.
type CertificateLedger struct {
	config  CertificateLedgerConfig
	metrics struct {
		certsIssued  prometheus.Counter
		certsRevoked prometheus.Counter
	}
	logger     *slog.Logger
	eventBus   *event.EventBus
	db         *database.Database
	authorizer ledger.Authorizer
	sync.Mutex
}

// CertificateInfo is the read-side view of an issued certificate
type CertificateInfo struct {
	CertID       uint64
	BatchID      uint64
	Lab          ledger.Principal
	ReportRef    ledger.Hash
	IssueDate    int64
	Revoked      bool
	RevokeReason string
}

func NewCertificateLedger(
	config CertificateLedgerConfig,
) (*CertificateLedger, error) {
	if config.DB == nil {
		return nil, errors.New("database is required")
	}
	if config.EventBus == nil {
		return nil, errors.New("event bus is required")
	}
	if config.Authorizer == nil {
		return nil, errors.New("authorizer is required")
	}
	c := &CertificateLedger{
		config:     config,
		eventBus:   config.EventBus,
		db:         config.DB,
		authorizer: config.Authorizer,
	}
	if config.Logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		c.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	} else {
		c.logger = config.Logger
	}
	// Init metrics
	promautoFactory := promauto.With(config.PromRegistry)
	c.metrics.certsIssued = promautoFactory.NewCounter(
		prometheus.CounterOpts{
			Name: "civet_certs_issued_total",
			Help: "total certificates issued",
		},
	)
	c.metrics.certsRevoked = promautoFactory.NewCounter(
		prometheus.CounterOpts{
			Name: "civet_certs_revoked_total",
			Help: "total certificates revoked",
		},
	)
	return c, nil
}

// IssueCertificate records a new certificate against a batch ID and returns
// the assigned certificate ID. IDs are strictly increasing and a failed
// issuance does not consume one.
func (c *CertificateLedger) IssueCertificate(
	caller ledger.Principal,
	batchId uint64,
	reportRef ledger.Hash,
) (uint64, error) {
	if !c.authorizer.Authorize(ledger.RoleLab, caller) {
		return 0, ledger.NewUnauthorizedError(
			caller,
			ledger.RoleLab,
			"issue certificate",
		)
	}
	if reportRef.IsZero() {
		return 0, fmt.Errorf(
			"%w: zero report reference",
			ledger.ErrInvalidArgument,
		)
	}
	c.Lock()
	defer c.Unlock()
	cert := &models.Certificate{
		BatchID:   batchId,
		Lab:       string(caller),
		ReportRef: reportRef.Bytes(),
		IssueDate: time.Now().UnixMilli(),
	}
	var evt CertificateIssuedEvent
	txn := c.db.Transaction(true)
	err := txn.Do(func(txn *database.Txn) error {
		// The certificate ID is assigned by the metadata store on insert
		if err := c.db.AddCertificate(cert, txn); err != nil {
			return err
		}
		evt = CertificateIssuedEvent{
			CertID:    cert.ID,
			BatchID:   batchId,
			Lab:       caller,
			ReportRef: reportRef,
			IssueDate: cert.IssueDate,
		}
		if _, err := c.db.AppendEvent(
			string(CertificateIssuedEventType),
			evt,
			txn,
		); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("issue certificate: %w", err)
	}
	c.metrics.certsIssued.Inc()
	c.logger.Info(
		"issued certificate",
		"component", "certs",
		"cert_id", cert.ID,
		"batch_id", batchId,
		"lab", caller.String(),
	)
	c.eventBus.Publish(
		CertificateIssuedEventType,
		event.NewEvent(CertificateIssuedEventType, evt),
	)
	return cert.ID, nil
}

// RevokeCertificate permanently marks a certificate as revoked. Revocation
// is one-way; a revoked certificate never becomes valid again.
func (c *CertificateLedger) RevokeCertificate(
	caller ledger.Principal,
	certId uint64,
	reason string,
) error {
	if !c.authorizer.Authorize(ledger.RoleRegulator, caller) {
		return ledger.NewUnauthorizedError(
			caller,
			ledger.RoleRegulator,
			"revoke certificate",
		)
	}
	c.Lock()
	defer c.Unlock()
	cert, err := c.db.GetCertificate(certId, nil)
	if err != nil {
		return fmt.Errorf("revoke certificate: %w", err)
	}
	if cert == nil {
		return ledger.NewCertificateNotFoundError(certId)
	}
	if cert.Revoked {
		return fmt.Errorf(
			"%w: certificate %d",
			ledger.ErrAlreadyRevoked,
			certId,
		)
	}
	evt := CertificateRevokedEvent{
		CertID: certId,
		Reason: reason,
	}
	txn := c.db.Transaction(true)
	err = txn.Do(func(txn *database.Txn) error {
		if err := c.db.SetCertificateRevoked(certId, reason, txn); err != nil {
			return err
		}
		if _, err := c.db.AppendEvent(
			string(CertificateRevokedEventType),
			evt,
			txn,
		); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("revoke certificate: %w", err)
	}
	c.metrics.certsRevoked.Inc()
	c.logger.Info(
		"revoked certificate",
		"component", "certs",
		"cert_id", certId,
		"regulator", caller.String(),
		"reason", reason,
	)
	c.eventBus.Publish(
		CertificateRevokedEventType,
		event.NewEvent(CertificateRevokedEventType, evt),
	)
	return nil
}

// VerifyCertificate reports whether a certificate exists and has not been
// revoked
func (c *CertificateLedger) VerifyCertificate(certId uint64) (bool, error) {
	cert, err := c.db.GetCertificate(certId, nil)
	if err != nil {
		return false, fmt.Errorf("verify certificate: %w", err)
	}
	if cert == nil {
		return false, ledger.NewCertificateNotFoundError(certId)
	}
	return !cert.Revoked, nil
}

// GetLatestCertificate returns the ID of the most recently issued
// certificate for a batch
func (c *CertificateLedger) GetLatestCertificate(
	batchId uint64,
) (uint64, error) {
	cert, err := c.db.GetLatestCertificate(batchId, nil)
	if err != nil {
		return 0, fmt.Errorf("get latest certificate: %w", err)
	}
	if cert == nil {
		return 0, fmt.Errorf(
			"%w: batch %d",
			ledger.ErrNoCertificates,
			batchId,
		)
	}
	return cert.ID, nil
}

// Certificates returns all certificates issued against a batch in issuance
// order
func (c *CertificateLedger) Certificates(
	batchId uint64,
) ([]CertificateInfo, error) {
	rows, err := c.db.GetCertificatesByBatch(batchId, nil)
	if err != nil {
		return nil, fmt.Errorf("certificates: %w", err)
	}
	ret := make([]CertificateInfo, 0, len(rows))
	for _, row := range rows {
		reportRef, err := ledger.NewHash(row.ReportRef)
		if err != nil {
			return nil, fmt.Errorf("certificates: %w", err)
		}
		ret = append(ret, CertificateInfo{
			CertID:       row.ID,
			BatchID:      row.BatchID,
			Lab:          ledger.Principal(row.Lab),
			ReportRef:    reportRef,
			IssueDate:    row.IssueDate,
			Revoked:      row.Revoked,
			RevokeReason: row.RevokeReason,
		})
	}
	return ret, nil
}
