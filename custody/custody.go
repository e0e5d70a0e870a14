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

package custody

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

// ApprovalLocation is the location literal recorded for transfer approvals
const ApprovalLocation = "Approved"

type CustodyLogConfig struct {
	PromRegistry prometheus.Registerer
	Logger       *slog.Logger
	EventBus     *event.EventBus
	DB           *database.Database
	Authorizer   ledger.Authorizer
}

// CustodyLog is an append-only trail of physical custody hand-offs. It is
// deliberately decoupled from batch balances: a recorded transfer does not
// check that the batch exists, that the sender holds units, or that the
// recipient accepts them.
type CustodyLog struct {
	config  CustodyLogConfig
	metrics struct {
		transfersRecorded prometheus.Counter
		approvalsRecorded prometheus.Counter
	}
	logger     *slog.Logger
	eventBus   *event.EventBus
	db         *database.Database
	authorizer ledger.Authorizer
	sync.Mutex
}

// CustodyRecordInfo is the read-side view of a custody trail entry
type CustodyRecordInfo struct {
	BatchID   uint64
	From      ledger.Principal
	To        ledger.Principal
	Location  string
	Timestamp int64
}

func NewCustodyLog(config CustodyLogConfig) (*CustodyLog, error) {
	if config.DB == nil {
		return nil, errors.New("database is required")
	}
	if config.EventBus == nil {
		return nil, errors.New("event bus is required")
	}
	if config.Authorizer == nil {
		return nil, errors.New("authorizer is required")
	}
	l := &CustodyLog{
		config:     config,
		eventBus:   config.EventBus,
		db:         config.DB,
		authorizer: config.Authorizer,
	}
	if config.Logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		l.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	} else {
		l.logger = config.Logger
	}
	// Init metrics
	promautoFactory := promauto.With(config.PromRegistry)
	l.metrics.transfersRecorded = promautoFactory.NewCounter(
		prometheus.CounterOpts{
			Name: "civet_custody_transfers_total",
			Help: "total custody transfers recorded",
		},
	)
	l.metrics.approvalsRecorded = promautoFactory.NewCounter(
		prometheus.CounterOpts{
			Name: "civet_custody_approvals_total",
			Help: "total transfer approvals recorded",
		},
	)
	return l, nil
}

// RecordTransfer appends a custody hand-off from the caller to a recipient.
// Recording requires the distributor or manufacturer role. The recipient and
// location are recorded as given.
func (l *CustodyLog) RecordTransfer(
	caller ledger.Principal,
	batchId uint64,
	to ledger.Principal,
	location string,
) error {
	if !l.authorizer.Authorize(ledger.RoleDistributor, caller) &&
		!l.authorizer.Authorize(ledger.RoleManufacturer, caller) {
		return ledger.NewUnauthorizedError(
			caller,
			ledger.RoleDistributor,
			"record transfer",
		)
	}
	l.Lock()
	defer l.Unlock()
	evt := TransferRecordedEvent{
		BatchID:   batchId,
		From:      caller,
		To:        to,
		Location:  location,
		Timestamp: time.Now().UnixMilli(),
	}
	if err := l.appendRecord(evt); err != nil {
		return fmt.Errorf("record transfer: %w", err)
	}
	l.metrics.transfersRecorded.Inc()
	l.logger.Debug(
		"recorded custody transfer",
		"component", "custody",
		"batch_id", batchId,
		"from", caller.String(),
		"to", to.String(),
		"location", location,
	)
	l.eventBus.Publish(
		TransferRecordedEventType,
		event.NewEvent(TransferRecordedEventType, evt),
	)
	return nil
}

// ApproveTransfer appends an approval record acknowledging receipt by the
// caller. Any principal may approve; the record carries no origin and the
// location literal "Approved".
func (l *CustodyLog) ApproveTransfer(
	caller ledger.Principal,
	batchId uint64,
) error {
	l.Lock()
	defer l.Unlock()
	evt := TransferRecordedEvent{
		BatchID:   batchId,
		From:      ledger.PrincipalNone,
		To:        caller,
		Location:  ApprovalLocation,
		Timestamp: time.Now().UnixMilli(),
	}
	if err := l.appendRecord(evt); err != nil {
		return fmt.Errorf("approve transfer: %w", err)
	}
	l.metrics.approvalsRecorded.Inc()
	l.logger.Debug(
		"recorded transfer approval",
		"component", "custody",
		"batch_id", batchId,
		"to", caller.String(),
	)
	l.eventBus.Publish(
		TransferRecordedEventType,
		event.NewEvent(TransferRecordedEventType, evt),
	)
	return nil
}

// appendRecord writes the custody record and its event in one transaction.
// Assumes the mutex is held.
func (l *CustodyLog) appendRecord(evt TransferRecordedEvent) error {
	txn := l.db.Transaction(true)
	return txn.Do(func(txn *database.Txn) error {
		record := models.CustodyRecord{
			BatchID:       evt.BatchID,
			FromPrincipal: string(evt.From),
			ToPrincipal:   string(evt.To),
			Location:      evt.Location,
			Timestamp:     evt.Timestamp,
		}
		if err := l.db.AddCustodyRecord(record, txn); err != nil {
			return err
		}
		if _, err := l.db.AppendEvent(
			string(TransferRecordedEventType),
			evt,
			txn,
		); err != nil {
			return err
		}
		return nil
	})
}

// Records returns the custody trail for a batch in record order. An unknown
// batch reports an empty trail rather than an error.
func (l *CustodyLog) Records(batchId uint64) ([]CustodyRecordInfo, error) {
	rows, err := l.db.GetCustodyRecordsByBatch(batchId, nil)
	if err != nil {
		return nil, fmt.Errorf("records: %w", err)
	}
	ret := make([]CustodyRecordInfo, 0, len(rows))
	for _, row := range rows {
		ret = append(ret, CustodyRecordInfo{
			BatchID:   row.BatchID,
			From:      ledger.Principal(row.FromPrincipal),
			To:        ledger.Principal(row.ToPrincipal),
			Location:  row.Location,
			Timestamp: row.Timestamp,
		})
	}
	return ret, nil
}
