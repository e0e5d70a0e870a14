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

// AddCustodyRecord appends a custody trail entry for a batch
func (d *Database) AddCustodyRecord(
	record models.CustodyRecord,
	txn *Txn,
) error {
	owned := false
	if txn == nil {
		txn = d.Transaction(true)
		owned = true
		defer txn.Rollback() //nolint:errcheck
	}
	if err := d.metadata.AddCustodyRecord(record, txn.Metadata()); err != nil {
		return err
	}
	if owned {
		if err := txn.Commit(); err != nil {
			return err
		}
	}
	return nil
}

// GetCustodyRecordsByBatch returns the custody trail for a batch in record
// order
func (d *Database) GetCustodyRecordsByBatch(
	batchId uint64,
	txn *Txn,
) ([]models.CustodyRecord, error) {
	if txn == nil {
		return d.metadata.GetCustodyRecordsByBatch(batchId, nil)
	}
	return d.metadata.GetCustodyRecordsByBatch(batchId, txn.Metadata())
}
