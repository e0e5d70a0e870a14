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

package sales

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

type SaleLogConfig struct {
	PromRegistry prometheus.Registerer
	Logger       *slog.Logger
	EventBus     *event.EventBus
	DB           *database.Database
	Authorizer   ledger.Authorizer
}

// SaleLog is an append-only record of point-of-sale events and recall flags.
// Entries are recorded as given; a sale or recall does not check the batch
// against the registry or the custody trail.
type SaleLog struct {
	config  SaleLogConfig
	metrics struct {
		salesRecorded   prometheus.Counter
		recallsRecorded prometheus.Counter
	}
	logger     *slog.Logger
	eventBus   *event.EventBus
	db         *database.Database
	authorizer ledger.Authorizer
	sync.Mutex
}

// SaleRecordInfo is the read-side view of a sale or recall entry
type SaleRecordInfo struct {
	BatchID   uint64
	Recall    bool
	Principal ledger.Principal
	SaleMeta  string
	Reason    string
	Timestamp int64
}

func NewSaleLog(config SaleLogConfig) (*SaleLog, error) {
	if config.DB == nil {
		return nil, errors.New("database is required")
	}
	if config.EventBus == nil {
		return nil, errors.New("event bus is required")
	}
	if config.Authorizer == nil {
		return nil, errors.New("authorizer is required")
	}
	l := &SaleLog{
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
	l.metrics.salesRecorded = promautoFactory.NewCounter(
		prometheus.CounterOpts{
			Name: "civet_sales_recorded_total",
			Help: "total sales recorded",
		},
	)
	l.metrics.recallsRecorded = promautoFactory.NewCounter(
		prometheus.CounterOpts{
			Name: "civet_sales_recalls_total",
			Help: "total recall flags recorded",
		},
	)
	return l, nil
}

// RecordSale appends a point-of-sale record for a batch. Recording requires
// the retailer role.
func (l *SaleLog) RecordSale(
	caller ledger.Principal,
	batchId uint64,
	saleMeta string,
) error {
	if !l.authorizer.Authorize(ledger.RoleRetailer, caller) {
		return ledger.NewUnauthorizedError(
			caller,
			ledger.RoleRetailer,
			"record sale",
		)
	}
	l.Lock()
	defer l.Unlock()
	evt := SaleRecordedEvent{
		BatchID:   batchId,
		Retailer:  caller,
		SaleMeta:  saleMeta,
		Timestamp: time.Now().UnixMilli(),
	}
	txn := l.db.Transaction(true)
	err := txn.Do(func(txn *database.Txn) error {
		record := models.SaleRecord{
			BatchID:   batchId,
			Kind:      models.SaleRecordKindSale,
			Principal: string(caller),
			SaleMeta:  saleMeta,
			Timestamp: evt.Timestamp,
		}
		if err := l.db.AddSaleRecord(record, txn); err != nil {
			return err
		}
		if _, err := l.db.AppendEvent(
			string(SaleRecordedEventType),
			evt,
			txn,
		); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("record sale: %w", err)
	}
	l.metrics.salesRecorded.Inc()
	l.logger.Debug(
		"recorded sale",
		"component", "sales",
		"batch_id", batchId,
		"retailer", caller.String(),
	)
	l.eventBus.Publish(
		SaleRecordedEventType,
		event.NewEvent(SaleRecordedEventType, evt),
	)
	return nil
}

// FlagRecall appends a recall flag for a batch. Flagging requires the
// regulator role. Recalls accumulate; flagging an already recalled batch
// appends another record.
func (l *SaleLog) FlagRecall(
	caller ledger.Principal,
	batchId uint64,
	reason string,
) error {
	if !l.authorizer.Authorize(ledger.RoleRegulator, caller) {
		return ledger.NewUnauthorizedError(
			caller,
			ledger.RoleRegulator,
			"flag recall",
		)
	}
	l.Lock()
	defer l.Unlock()
	evt := ProductRecalledEvent{
		BatchID:   batchId,
		Reason:    reason,
		Timestamp: time.Now().UnixMilli(),
	}
	txn := l.db.Transaction(true)
	err := txn.Do(func(txn *database.Txn) error {
		record := models.SaleRecord{
			BatchID:   batchId,
			Kind:      models.SaleRecordKindRecall,
			Principal: string(caller),
			Reason:    reason,
			Timestamp: evt.Timestamp,
		}
		if err := l.db.AddSaleRecord(record, txn); err != nil {
			return err
		}
		if _, err := l.db.AppendEvent(
			string(ProductRecalledEventType),
			evt,
			txn,
		); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("flag recall: %w", err)
	}
	l.metrics.recallsRecorded.Inc()
	l.logger.Info(
		"flagged recall",
		"component", "sales",
		"batch_id", batchId,
		"regulator", caller.String(),
		"reason", reason,
	)
	l.eventBus.Publish(
		ProductRecalledEventType,
		event.NewEvent(ProductRecalledEventType, evt),
	)
	return nil
}

// Records returns all sale and recall entries for a batch in record order.
// An unknown batch reports an empty list rather than an error.
func (l *SaleLog) Records(batchId uint64) ([]SaleRecordInfo, error) {
	rows, err := l.db.GetSaleRecordsByBatch(batchId, nil)
	if err != nil {
		return nil, fmt.Errorf("records: %w", err)
	}
	ret := make([]SaleRecordInfo, 0, len(rows))
	for _, row := range rows {
		ret = append(ret, SaleRecordInfo{
			BatchID:   row.BatchID,
			Recall:    row.IsRecall(),
			Principal: ledger.Principal(row.Principal),
			SaleMeta:  row.SaleMeta,
			Reason:    row.Reason,
			Timestamp: row.Timestamp,
		})
	}
	return ret, nil
}

// IsRecalled returns whether any recall flag has been raised against a batch
func (l *SaleLog) IsRecalled(batchId uint64) (bool, error) {
	recalled, err := l.db.GetBatchRecalled(batchId, nil)
	if err != nil {
		return false, fmt.Errorf("is recalled: %w", err)
	}
	return recalled, nil
}
