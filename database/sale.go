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
)

// AddSaleRecord appends a sale or recall entry for a batch
func (d *Database) AddSaleRecord(record models.SaleRecord, txn *Txn) error {
	owned := false
	if txn == nil {
		txn = d.Transaction(true)
		owned = true
		defer txn.Rollback() //nolint:errcheck
	}
	if err := d.metadata.AddSaleRecord(record, txn.Metadata()); err != nil {
		return err
	}
	if owned {
		if err := txn.Commit(); err != nil {
			return err
		}
	}
	return nil
}

// GetSaleRecordsByBatch returns all sale and recall entries for a batch in
// record order
func (d *Database) GetSaleRecordsByBatch(
	batchId uint64,
	txn *Txn,
) ([]models.SaleRecord, error) {
	if txn == nil {
		return d.metadata.GetSaleRecordsByBatch(batchId, nil)
	}
	return d.metadata.GetSaleRecordsByBatch(batchId, txn.Metadata())
}

// GetBatchRecalled returns whether a recall has been flagged for a batch
func (d *Database) GetBatchRecalled(batchId uint64, txn *Txn) (bool, error) {
	if txn == nil {
		return d.metadata.GetBatchRecalled(batchId, nil)
	}
	return d.metadata.GetBatchRecalled(batchId, txn.Metadata())
}
