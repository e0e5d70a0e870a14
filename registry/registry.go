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

package registry

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/blinklabs-io/civet/database"
	"github.com/blinklabs-io/civet/database/models"
	"github.com/blinklabs-io/civet/database/types"
	"github.com/blinklabs-io/civet/event"
	"github.com/blinklabs-io/civet/ledger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type BatchRegistryConfig struct {
	PromRegistry prometheus.Registerer
	Logger       *slog.Logger
	EventBus     *event.EventBus
	DB           *database.Database
	Authorizer   ledger.Authorizer
}

// BatchRegistry tracks registered batches and per-holder balances. A batch
// is registered exactly once and its identity fields never change; only
// balances and total supply move afterwards.
type BatchRegistry struct {
	config  BatchRegistryConfig
	metrics struct {
		batchesRegistered prometheus.Counter
		mintsProcessed    prometheus.Counter
		burnsProcessed    prometheus.Counter
		unitsMinted       prometheus.Counter
		unitsBurned       prometheus.Counter
	}
	logger     *slog.Logger
	eventBus   *event.EventBus
	db         *database.Database
	authorizer ledger.Authorizer
	// guard rejects re-entry into balance-mutating operations while one is
	// already in flight
	guard atomic.Bool
	sync.Mutex
}

var _ ledger.TokenLedger = (*BatchRegistry)(nil)

// BatchInfo is the read-side view of a registered batch
type BatchInfo struct {
	BatchID      uint64
	ContentHash  ledger.Hash
	MetadataRef  string
	Manufacturer ledger.Principal
	TotalSupply  uint64
	RegisteredAt int64
}

// BalanceInfo is the read-side view of a holder's balance for a batch
type BalanceInfo struct {
	Holder ledger.Principal
	Amount uint64
}

func NewBatchRegistry(config BatchRegistryConfig) (*BatchRegistry, error) {
	if config.DB == nil {
		return nil, errors.New("database is required")
	}
	if config.EventBus == nil {
		return nil, errors.New("event bus is required")
	}
	if config.Authorizer == nil {
		return nil, errors.New("authorizer is required")
	}
	r := &BatchRegistry{
		config:     config,
		eventBus:   config.EventBus,
		db:         config.DB,
		authorizer: config.Authorizer,
	}
	if config.Logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		r.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	} else {
		r.logger = config.Logger
	}
	// Init metrics
	promautoFactory := promauto.With(config.PromRegistry)
	r.metrics.batchesRegistered = promautoFactory.NewCounter(
		prometheus.CounterOpts{
			Name: "civet_registry_batches_registered_total",
			Help: "total batches registered",
		},
	)
	r.metrics.mintsProcessed = promautoFactory.NewCounter(
		prometheus.CounterOpts{
			Name: "civet_registry_mints_total",
			Help: "total mint operations processed",
		},
	)
	r.metrics.burnsProcessed = promautoFactory.NewCounter(
		prometheus.CounterOpts{
			Name: "civet_registry_burns_total",
			Help: "total burn operations processed",
		},
	)
	r.metrics.unitsMinted = promautoFactory.NewCounter(
		prometheus.CounterOpts{
			Name: "civet_registry_units_minted_total",
			Help: "total units minted, including registration amounts",
		},
	)
	r.metrics.unitsBurned = promautoFactory.NewCounter(
		prometheus.CounterOpts{
			Name: "civet_registry_units_burned_total",
			Help: "total units burned",
		},
	)
	return r, nil
}

// RegisterBatch creates a batch with an immutable identity and credits the
// initial amount to the caller. A batch ID can be registered at most once,
// ever.
func (r *BatchRegistry) RegisterBatch(
	caller ledger.Principal,
	batchId uint64,
	contentHash ledger.Hash,
	metadataRef string,
	initialAmount uint64,
) error {
	if !r.authorizer.Authorize(ledger.RoleManufacturer, caller) {
		return ledger.NewUnauthorizedError(
			caller,
			ledger.RoleManufacturer,
			"register batch",
		)
	}
	if contentHash.IsZero() {
		return fmt.Errorf(
			"%w: zero content hash",
			ledger.ErrInvalidArgument,
		)
	}
	r.Lock()
	defer r.Unlock()
	existing, err := r.db.GetBatch(batchId, nil)
	if err != nil {
		return fmt.Errorf("register batch: %w", err)
	}
	if existing != nil {
		return fmt.Errorf("%w: batch %d", ledger.ErrAlreadyExists, batchId)
	}
	evt := ProductRegisteredEvent{
		BatchID:      batchId,
		ContentHash:  contentHash,
		MetadataRef:  metadataRef,
		Amount:       initialAmount,
		Manufacturer: caller,
	}
	txn := r.db.Transaction(true)
	err = txn.Do(func(txn *database.Txn) error {
		batch := models.Batch{
			BatchID:      batchId,
			ContentHash:  contentHash.Bytes(),
			MetadataRef:  metadataRef,
			Manufacturer: string(caller),
			TotalSupply:  types.Uint64(initialAmount),
			RegisteredAt: time.Now().UnixMilli(),
		}
		if err := r.db.AddBatch(batch, txn); err != nil {
			return err
		}
		if err := r.db.SetBalance(
			batchId,
			string(caller),
			types.Uint64(initialAmount),
			txn,
		); err != nil {
			return err
		}
		if _, err := r.db.AppendEvent(
			string(ProductRegisteredEventType),
			evt,
			txn,
		); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("register batch: %w", err)
	}
	r.metrics.batchesRegistered.Inc()
	r.metrics.unitsMinted.Add(float64(initialAmount))
	r.logger.Info(
		"registered batch",
		"component", "registry",
		"batch_id", batchId,
		"manufacturer", caller.String(),
		"initial_amount", initialAmount,
	)
	r.eventBus.Publish(
		ProductRegisteredEventType,
		event.NewEvent(ProductRegisteredEventType, evt),
	)
	return nil
}

// MintTo credits newly minted units of a batch to a recipient. Guarded
// against re-entry for the duration of the balance mutation.
func (r *BatchRegistry) MintTo(
	caller ledger.Principal,
	batchId uint64,
	to ledger.Principal,
	amount uint64,
) error {
	// The guard is checked before the lock so a re-entry from inside the
	// critical section is rejected instead of deadlocking
	if !r.guard.CompareAndSwap(false, true) {
		return ledger.ErrReentrantCall
	}
	defer r.guard.Store(false)
	if !r.authorizer.Authorize(ledger.RoleManufacturer, caller) {
		return ledger.NewUnauthorizedError(
			caller,
			ledger.RoleManufacturer,
			"mint",
		)
	}
	if to.IsNone() {
		return fmt.Errorf("%w: empty recipient", ledger.ErrInvalidArgument)
	}
	r.Lock()
	defer r.Unlock()
	batch, err := r.db.GetBatch(batchId, nil)
	if err != nil {
		return fmt.Errorf("mint: %w", err)
	}
	if batch == nil {
		return ledger.NewBatchNotFoundError(batchId)
	}
	evt := ProductTransferredEvent{
		BatchID: batchId,
		From:    ledger.PrincipalNone,
		To:      to,
		Amount:  amount,
	}
	txn := r.db.Transaction(true)
	err = txn.Do(func(txn *database.Txn) error {
		balance, err := r.db.GetBalance(batchId, string(to), txn)
		if err != nil {
			return err
		}
		var current uint64
		if balance != nil {
			current = uint64(balance.Amount)
		}
		if current+amount < current {
			return fmt.Errorf(
				"%w: balance overflow",
				ledger.ErrInvalidArgument,
			)
		}
		if uint64(batch.TotalSupply)+amount < uint64(batch.TotalSupply) {
			return fmt.Errorf(
				"%w: total supply overflow",
				ledger.ErrInvalidArgument,
			)
		}
		if err := r.db.SetBalance(
			batchId,
			string(to),
			types.Uint64(current + amount),
			txn,
		); err != nil {
			return err
		}
		if err := r.db.SetBatchTotalSupply(
			batchId,
			types.Uint64(uint64(batch.TotalSupply) + amount),
			txn,
		); err != nil {
			return err
		}
		if _, err := r.db.AppendEvent(
			string(ProductTransferredEventType),
			evt,
			txn,
		); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("mint: %w", err)
	}
	r.metrics.mintsProcessed.Inc()
	r.metrics.unitsMinted.Add(float64(amount))
	r.logger.Debug(
		"minted units",
		"component", "registry",
		"batch_id", batchId,
		"to", to.String(),
		"amount", amount,
	)
	r.eventBus.Publish(
		ProductTransferredEventType,
		event.NewEvent(ProductTransferredEventType, evt),
	)
	return nil
}

// Burn removes units from the caller's own balance. Any holder may burn
// what it holds; no role is required. Guarded against re-entry for the
// duration of the balance mutation.
func (r *BatchRegistry) Burn(
	caller ledger.Principal,
	batchId uint64,
	amount uint64,
) error {
	if !r.guard.CompareAndSwap(false, true) {
		return ledger.ErrReentrantCall
	}
	defer r.guard.Store(false)
	r.Lock()
	defer r.Unlock()
	batch, err := r.db.GetBatch(batchId, nil)
	if err != nil {
		return fmt.Errorf("burn: %w", err)
	}
	if batch == nil {
		return ledger.NewBatchNotFoundError(batchId)
	}
	evt := ProductBurnedEvent{
		BatchID:  batchId,
		Operator: caller,
		Amount:   amount,
	}
	txn := r.db.Transaction(true)
	err = txn.Do(func(txn *database.Txn) error {
		balance, err := r.db.GetBalance(batchId, string(caller), txn)
		if err != nil {
			return err
		}
		var current uint64
		if balance != nil {
			current = uint64(balance.Amount)
		}
		if current < amount {
			return ledger.NewInsufficientBalanceError(
				batchId,
				caller,
				current,
				amount,
			)
		}
		if err := r.db.SetBalance(
			batchId,
			string(caller),
			types.Uint64(current - amount),
			txn,
		); err != nil {
			return err
		}
		if err := r.db.SetBatchTotalSupply(
			batchId,
			types.Uint64(uint64(batch.TotalSupply) - amount),
			txn,
		); err != nil {
			return err
		}
		if _, err := r.db.AppendEvent(
			string(ProductBurnedEventType),
			evt,
			txn,
		); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("burn: %w", err)
	}
	r.metrics.burnsProcessed.Inc()
	r.metrics.unitsBurned.Add(float64(amount))
	r.logger.Debug(
		"burned units",
		"component", "registry",
		"batch_id", batchId,
		"operator", caller.String(),
		"amount", amount,
	)
	r.eventBus.Publish(
		ProductBurnedEventType,
		event.NewEvent(ProductBurnedEventType, evt),
	)
	return nil
}

// GetBatch returns the registered batch identity and supply
func (r *BatchRegistry) GetBatch(batchId uint64) (BatchInfo, error) {
	batch, err := r.db.GetBatch(batchId, nil)
	if err != nil {
		return BatchInfo{}, fmt.Errorf("get batch: %w", err)
	}
	if batch == nil {
		return BatchInfo{}, ledger.NewBatchNotFoundError(batchId)
	}
	contentHash, err := ledger.NewHash(batch.ContentHash)
	if err != nil {
		return BatchInfo{}, fmt.Errorf("get batch: %w", err)
	}
	return BatchInfo{
		BatchID:      batch.BatchID,
		ContentHash:  contentHash,
		MetadataRef:  batch.MetadataRef,
		Manufacturer: ledger.Principal(batch.Manufacturer),
		TotalSupply:  uint64(batch.TotalSupply),
		RegisteredAt: batch.RegisteredAt,
	}, nil
}

// BalanceOf returns the holder's balance for a batch. Unknown batches and
// holders report zero rather than an error.
func (r *BatchRegistry) BalanceOf(
	batchId uint64,
	holder ledger.Principal,
) (uint64, error) {
	balance, err := r.db.GetBalance(batchId, string(holder), nil)
	if err != nil {
		return 0, fmt.Errorf("balance of: %w", err)
	}
	if balance == nil {
		return 0, nil
	}
	return uint64(balance.Amount), nil
}

// Balances returns all holder balances for a batch
func (r *BatchRegistry) Balances(batchId uint64) ([]BalanceInfo, error) {
	batch, err := r.db.GetBatch(batchId, nil)
	if err != nil {
		return nil, fmt.Errorf("balances: %w", err)
	}
	if batch == nil {
		return nil, ledger.NewBatchNotFoundError(batchId)
	}
	rows, err := r.db.GetBalancesByBatch(batchId, nil)
	if err != nil {
		return nil, fmt.Errorf("balances: %w", err)
	}
	ret := make([]BalanceInfo, 0, len(rows))
	for _, row := range rows {
		ret = append(ret, BalanceInfo{
			Holder: ledger.Principal(row.Holder),
			Amount: uint64(row.Amount),
		})
	}
	return ret, nil
}
