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
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND,
// either express or implied. See the License for the specific language
// governing permissions and limitations under the License.

package postgres

import (
	"errors"
	"fmt"

	"github.com/blinklabs-io/civet/database/models"
	"github.com/blinklabs-io/civet/database/types"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AddBatch records a newly registered batch
func (d *Store) AddBatch(
	batch models.Batch,
	txn types.Txn,
) error {
	db, err := d.resolveDB(txn)
	if err != nil {
		return err
	}
	if result := db.Create(&batch); result.Error != nil {
		return fmt.Errorf(
			"create batch %d: %w",
			batch.BatchID,
			result.Error,
		)
	}
	return nil
}

// GetBatch returns the batch with the given external ID, or nil when no such
// batch has been registered
func (d *Store) GetBatch(
	batchId uint64,
	txn types.Txn,
) (*models.Batch, error) {
	ret := &models.Batch{}
	db, err := d.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	result := db.First(ret, "batch_id = ?", batchId)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return ret, nil
}

// SetBatchTotalSupply updates the recorded total supply for a batch
func (d *Store) SetBatchTotalSupply(
	batchId uint64,
	totalSupply types.Uint64,
	txn types.Txn,
) error {
	db, err := d.resolveDB(txn)
	if err != nil {
		return err
	}
	result := db.Model(&models.Batch{}).
		Where("batch_id = ?", batchId).
		Update("total_supply", totalSupply)
	if result.Error != nil {
		return fmt.Errorf(
			"update total supply for batch %d: %w",
			batchId,
			result.Error,
		)
	}
	return nil
}

// GetBalance returns the balance row for a holder within a batch, or nil when
// the holder has never held units of the batch
func (d *Store) GetBalance(
	batchId uint64,
	holder string,
	txn types.Txn,
) (*models.Balance, error) {
	ret := &models.Balance{}
	db, err := d.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	result := db.First(ret, "batch_id = ? AND holder = ?", batchId, holder)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return ret, nil
}

// SetBalance upserts the balance for a holder within a batch
func (d *Store) SetBalance(
	batchId uint64,
	holder string,
	amount types.Uint64,
	txn types.Txn,
) error {
	tmpBalance := models.Balance{
		BatchID: batchId,
		Holder:  holder,
		Amount:  amount,
	}
	db, err := d.resolveDB(txn)
	if err != nil {
		return err
	}
	result := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "batch_id"},
			{Name: "holder"},
		},
		DoUpdates: clause.AssignmentColumns([]string{"amount"}),
	}).Create(&tmpBalance)
	if result.Error != nil {
		return fmt.Errorf(
			"set balance for %s in batch %d: %w",
			holder,
			batchId,
			result.Error,
		)
	}
	return nil
}

// GetBalancesByBatch returns all balance rows for a batch, including rows
// whose amount has gone to zero
func (d *Store) GetBalancesByBatch(
	batchId uint64,
	txn types.Txn,
) ([]models.Balance, error) {
	var ret []models.Balance
	db, err := d.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	result := db.Where("batch_id = ?", batchId).
		Order("holder ASC").
		Find(&ret)
	if result.Error != nil {
		return nil, fmt.Errorf(
			"get balances for batch %d: %w",
			batchId,
			result.Error,
		)
	}
	return ret, nil
}
