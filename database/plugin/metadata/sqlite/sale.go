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

package sqlite

import (
	"fmt"

	"github.com/blinklabs-io/civet/database/models"
	"github.com/blinklabs-io/civet/database/types"
)

// AddSaleRecord appends a sale or recall record for a batch
func (d *Store) AddSaleRecord(
	record models.SaleRecord,
	txn types.Txn,
) error {
	db, err := d.resolveDB(txn)
	if err != nil {
		return err
	}
	if result := db.Create(&record); result.Error != nil {
		return fmt.Errorf(
			"create sale record for batch %d: %w",
			record.BatchID,
			result.Error,
		)
	}
	return nil
}

// GetSaleRecordsByBatch returns the sale and recall history for a batch in
// the order it was recorded
func (d *Store) GetSaleRecordsByBatch(
	batchId uint64,
	txn types.Txn,
) ([]models.SaleRecord, error) {
	var ret []models.SaleRecord
	db, err := d.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	result := db.Where("batch_id = ?", batchId).
		Order("id ASC").
		Find(&ret)
	if result.Error != nil {
		return nil, fmt.Errorf(
			"get sale records for batch %d: %w",
			batchId,
			result.Error,
		)
	}
	return ret, nil
}

// GetBatchRecalled reports whether a recall has ever been recorded against
// the batch
func (d *Store) GetBatchRecalled(
	batchId uint64,
	txn types.Txn,
) (bool, error) {
	var count int64
	db, err := d.resolveDB(txn)
	if err != nil {
		return false, err
	}
	result := db.Model(&models.SaleRecord{}).
		Where("batch_id = ? AND kind = ?", batchId, models.SaleRecordKindRecall).
		Count(&count)
	if result.Error != nil {
		return false, fmt.Errorf(
			"check recall state for batch %d: %w",
			batchId,
			result.Error,
		)
	}
	return count > 0, nil
}
