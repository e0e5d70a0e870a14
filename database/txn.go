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
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/blinklabs-io/civet/database/types"
)

// Txn coordinates a metadata transaction and a blob transaction as sibling
// halves of a single logical write. Ledger operations touch both sides,
// row state in the metadata store and document payloads plus event records
// in the blob store, so they commit and roll back through this wrapper
// rather than through the individual stores.
type Txn struct {
	db          *Database
	blobTxn     types.Txn
	metadataTxn types.Txn
	lock        sync.Mutex
	finished    bool
	readWrite   bool
}

// newTxn opens the requested store transactions. A nil store is skipped, so
// a Txn may legitimately carry only one half, or none at all when the
// database is partially configured.
func newTxn(db *Database, readWrite, withBlob, withMetadata bool) *Txn {
	t := &Txn{db: db, readWrite: readWrite}
	if withBlob {
		if bs := db.Blob(); bs != nil {
			t.blobTxn = bs.NewTransaction(readWrite)
		}
	}
	if withMetadata {
		if ms := db.Metadata(); ms != nil {
			t.metadataTxn = ms.Transaction()
			if t.metadataTxn == nil {
				db.logger.Warn(
					"metadata transaction is nil; callers must nil-check txn.Metadata()",
				)
			}
		}
	}
	return t
}

// NewTxn opens a transaction spanning both the metadata and blob stores
func NewTxn(db *Database, readWrite bool) *Txn {
	return newTxn(db, readWrite, true, true)
}

// NewBlobOnlyTxn opens a transaction against only the blob store
func NewBlobOnlyTxn(db *Database, readWrite bool) *Txn {
	return newTxn(db, readWrite, true, false)
}

// NewMetadataOnlyTxn opens a transaction against only the metadata store
func NewMetadataOnlyTxn(db *Database, readWrite bool) *Txn {
	return newTxn(db, readWrite, false, true)
}

func (t *Txn) DB() *Database {
	return t.db
}

// Metadata returns the underlying metadata transaction handle
func (t *Txn) Metadata() types.Txn {
	return t.metadataTxn
}

// Blob returns the blob transaction handle
func (t *Txn) Blob() types.Txn {
	return t.blobTxn
}

// Do runs fn inside the transaction, committing on success and rolling back
// when fn returns an error
func (t *Txn) Do(fn func(*Txn) error) error {
	if err := fn(t); err != nil {
		if rbErr := t.Rollback(); rbErr != nil {
			return fmt.Errorf(
				"rollback failed: %w: original error: %w",
				rbErr,
				err,
			)
		}
		return err
	}
	if err := t.Commit(); err != nil {
		return fmt.Errorf("commit failed: %w", err)
	}
	return nil
}

// Commit finishes the transaction. Committing an already-finished
// transaction is a no-op, and a read-only transaction only releases its
// resources
func (t *Txn) Commit() error {
	t.lock.Lock()
	defer t.lock.Unlock()
	if t.finished {
		return nil
	}
	if !t.readWrite {
		return t.rollback()
	}
	if t.blobTxn == nil && t.metadataTxn == nil {
		t.finished = true
		return types.ErrNoStoreAvailable
	}
	return t.commit()
}

// commit flushes a read-write transaction. When both stores are in play the
// shared commit timestamp is written inside each first, then blob commits
// before metadata. A blob failure therefore makes nothing durable, while a
// metadata failure after it splits the two sides; checkCommitTimestamp
// flags the mismatch on the next startup so RecoverCommitTimestamp can
// re-align them. The caller must hold t.lock
func (t *Txn) commit() error {
	if t.blobTxn != nil && t.metadataTxn != nil {
		commitTimestamp := time.Now().UnixMilli()
		if err := t.db.updateCommitTimestamp(t, commitTimestamp); err != nil {
			_ = t.blobTxn.Rollback()
			_ = t.metadataTxn.Rollback()
			t.finished = true
			return fmt.Errorf("failed to update commit timestamp: %w", err)
		}
	}
	if t.blobTxn != nil {
		if err := t.blobTxn.Commit(); err != nil {
			// Most metadata engines auto-rollback on commit failure, but
			// roll back explicitly to release the handle either way
			if t.metadataTxn != nil {
				_ = t.metadataTxn.Rollback()
			}
			t.finished = true
			return fmt.Errorf("blob commit failed: %w", err)
		}
	}
	if t.metadataTxn != nil {
		if err := t.metadataTxn.Commit(); err != nil {
			t.db.logger.Error(
				"partial commit: blob committed, metadata failed",
				"error", err,
			)
			_ = t.metadataTxn.Rollback()
			t.finished = true
			return fmt.Errorf(
				"partial commit: metadata commit failed after blob commit: %w",
				err,
			)
		}
	}
	t.finished = true
	return nil
}

func (t *Txn) Rollback() error {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.rollback()
}

// rollback discards both halves, collecting errors from each so one failed
// store does not mask the other. The caller must hold t.lock
func (t *Txn) rollback() error {
	if t.finished {
		return nil
	}
	t.finished = true
	var blobErr, metadataErr error
	if t.blobTxn != nil {
		if err := t.blobTxn.Rollback(); err != nil {
			blobErr = fmt.Errorf("blob rollback: %w", err)
		}
	}
	if t.metadataTxn != nil {
		if err := t.metadataTxn.Rollback(); err != nil {
			metadataErr = fmt.Errorf("metadata rollback: %w", err)
		}
	}
	return errors.Join(blobErr, metadataErr)
}

// Release discards the transaction, logging rather than returning any
// rollback error. It is intended for defer, where a read-only transaction
// frees its resources and an uncommitted read-write transaction is
// abandoned
func (t *Txn) Release() {
	if err := t.Rollback(); err != nil {
		t.db.logger.Debug(
			"transaction release failed",
			"error", err,
			"read_write", t.readWrite,
		)
	}
}
