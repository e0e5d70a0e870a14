// Copyright 2025 Blink Labs Software
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

package database

import (
	"github.com/blinklabs-io/civet/database/models"
	"github.com/blinklabs-io/civet/database/types"
)

// AddBatch records a newly registered batch
func (d *Database) AddBatch(batch models.Batch, txn *Txn) error {
	owned := false
	if txn == nil {
		txn = d.Transaction(true)
		owned = true
		defer txn.Rollback() //nolint:errcheck
	}
	if err := d.metadata.AddBatch(batch, txn.Metadata()); err != nil {
		return err
	}
	if owned {
		if err := txn.Commit(); err != nil {
			return err
		}
	}
	return nil
}

// GetBatch returns the batch with the given ID, or nil when no batch with
// that ID has been registered
func (d *Database) GetBatch(batchId uint64, txn *Txn) (*models.Batch, error) {
	if txn == nil {
		return d.metadata.GetBatch(batchId, nil)
	}
	return d.metadata.GetBatch(batchId, txn.Metadata())
}

// SetBatchTotalSupply updates the total supply for a batch
func (d *Database) SetBatchTotalSupply(
	batchId uint64,
	totalSupply types.Uint64,
	txn *Txn,
) error {
	owned := false
	if txn == nil {
		txn = d.Transaction(true)
		owned = true
		defer txn.Rollback() //nolint:errcheck
	}
	if err := d.metadata.SetBatchTotalSupply(batchId, totalSupply, txn.Metadata()); err != nil {
		return err
	}
	if owned {
		if err := txn.Commit(); err != nil {
			return err
		}
	}
	return nil
}

// GetBalance returns the balance row for a holder of a batch, or nil when
// the holder has never been credited
func (d *Database) GetBalance(
	batchId uint64,
	holder string,
	txn *Txn,
) (*models.Balance, error) {
	if txn == nil {
		return d.metadata.GetBalance(batchId, holder, nil)
	}
	return d.metadata.GetBalance(batchId, holder, txn.Metadata())
}

// SetBalance updates the balance for a holder of a batch, creating the row
// on first credit
func (d *Database) SetBalance(
	batchId uint64,
	holder string,
	amount types.Uint64,
	txn *Txn,
) error {
	owned := false
	if txn == nil {
		txn = d.Transaction(true)
		owned = true
		defer txn.Rollback() //nolint:errcheck
	}
	if err := d.metadata.SetBalance(batchId, holder, amount, txn.Metadata()); err != nil {
		return err
	}
	if owned {
		if err := txn.Commit(); err != nil {
			return err
		}
	}
	return nil
}

// GetBalancesByBatch returns all balance rows for a batch
func (d *Database) GetBalancesByBatch(
	batchId uint64,
	txn *Txn,
) ([]models.Balance, error) {
	if txn == nil {
		return d.metadata.GetBalancesByBatch(batchId, nil)
	}
	return d.metadata.GetBalancesByBatch(batchId, txn.Metadata())
}
