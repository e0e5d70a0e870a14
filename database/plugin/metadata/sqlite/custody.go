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

// AddCustodyRecord appends a custody hand-off record for a batch
func (d *Store) AddCustodyRecord(
	record models.CustodyRecord,
	txn types.Txn,
) error {
	db, err := d.resolveDB(txn)
	if err != nil {
		return err
	}
	if result := db.Create(&record); result.Error != nil {
		return fmt.Errorf(
			"create custody record for batch %d: %w",
			record.BatchID,
			result.Error,
		)
	}
	return nil
}

// GetCustodyRecordsByBatch returns the custody history for a batch in the
// order it was recorded
func (d *Store) GetCustodyRecordsByBatch(
	batchId uint64,
	txn types.Txn,
) ([]models.CustodyRecord, error) {
	var ret []models.CustodyRecord
	db, err := d.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	result := db.Where("batch_id = ?", batchId).
		Order("id ASC").
		Find(&ret)
	if result.Error != nil {
		return nil, fmt.Errorf(
			"get custody records for batch %d: %w",
			batchId,
			result.Error,
		)
	}
	return ret, nil
}
