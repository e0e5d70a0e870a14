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

package postgres

import (
	"github.com/blinklabs-io/civet/database/types"
	"gorm.io/gorm"
)

// postgresTxn wraps a gorm transaction handle so it satisfies types.Txn
type postgresTxn struct {
	db       *gorm.DB
	finished bool
	beginErr error
}

func newPostgresTxn(db *gorm.DB) *postgresTxn {
	return &postgresTxn{db: db}
}

// newFailedPostgresTxn returns a transaction that carries the error from a
// failed Begin(). Commit and Rollback both surface the stored error.
func newFailedPostgresTxn(err error) *postgresTxn {
	return &postgresTxn{beginErr: err, finished: true}
}

func (t *postgresTxn) Commit() error {
	if t.beginErr != nil {
		return t.beginErr
	}
	if t.finished {
		return nil
	}
	t.finished = true
	if t.db == nil {
		return nil
	}
	return t.db.Commit().Error
}

func (t *postgresTxn) Rollback() error {
	if t.beginErr != nil {
		return t.beginErr
	}
	if t.finished {
		return nil
	}
	t.finished = true
	if t.db == nil {
		return nil
	}
	return t.db.Rollback().Error
}

// dbFromTxn extracts the gorm handle from a transaction, falling back to the
// store's own handle when no transaction is given
func (d *Store) dbFromTxn(txn types.Txn) *gorm.DB {
	if txn == nil {
		return d.DB()
	}
	if ptx, ok := txn.(*postgresTxn); ok {
		return ptx.db
	}
	if provider, ok := txn.(interface{ MetadataTxn() *gorm.DB }); ok {
		return provider.MetadataTxn()
	}
	// Return nil for unrecognized txn types to allow callers to detect errors
	return nil
}

// resolveDB validates the transaction and returns the handle to run queries
// against
func (d *Store) resolveDB(txn types.Txn) (*gorm.DB, error) {
	if ptx, ok := txn.(*postgresTxn); ok && ptx.beginErr != nil {
		return nil, ptx.beginErr
	}
	if txn == nil {
		return d.DB(), nil
	}
	db := d.dbFromTxn(txn)
	if db == nil {
		return nil, types.ErrTxnWrongType
	}
	return db, nil
}
