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

package aws

import (
	"encoding/json"
	"errors"
	"math/big"
	"time"

	civetsops "github.com/blinklabs-io/civet/database/sops"
	"github.com/blinklabs-io/civet/database/types"
)

const commitTimestampBlobKey = "metadata_commit_timestamp"

// legacyPlaintextTimestamp recognizes commit timestamps written before
// encryption was introduced: raw int64 bytes that fail decryption while
// being small, non-JSON, and holding a plausible millisecond timestamp
// (post-2000 and not in the future).
func legacyPlaintextTimestamp(raw []byte) (int64, bool) {
	if len(raw) == 0 || len(raw) > 8 || json.Valid(raw) {
		return 0, false
	}
	ts := new(big.Int).SetBytes(raw).Int64()
	if ts <= 946684800000 || ts > time.Now().UnixMilli() {
		return 0, false
	}
	return ts, true
}

// migrateLegacyTimestamp rewrites a plaintext commit timestamp in its
// encrypted form. Failures are logged and otherwise ignored, since the
// caller already has a usable timestamp.
func (b *Store) migrateLegacyTimestamp(ts int64) {
	txn := b.NewTransaction(true)
	if txn == nil {
		b.logger.Errorf("failed to create migration transaction")
		return
	}
	defer txn.Rollback() //nolint:errcheck // no-op after commit
	if err := b.SetCommitTimestamp(ts, txn); err != nil {
		b.logger.Errorf(
			"failed to migrate plaintext commit timestamp: %v",
			err,
		)
		return
	}
	if err := txn.Commit(); err != nil {
		b.logger.Errorf(
			"failed to commit plaintext commit timestamp migration: %v",
			err,
		)
	}
}

func (b *Store) GetCommitTimestamp() (int64, error) {
	txn := b.NewTransaction(false)
	if txn == nil {
		return 0, types.ErrNilTxn
	}
	defer txn.Rollback() //nolint:errcheck // no-op for this backend

	ciphertext, err := b.Get(txn, []byte(commitTimestampBlobKey))
	if err != nil {
		if errors.Is(err, types.ErrBlobKeyNotFound) {
			return 0, nil
		}
		return 0, err
	}
	plaintext, err := civetsops.Decrypt(ciphertext)
	if err != nil {
		if ts, ok := legacyPlaintextTimestamp(ciphertext); ok {
			b.logger.Warningf(
				"commit timestamp stored plaintext in S3, migrating to SOPS encryption: %v",
				err,
			)
			b.migrateLegacyTimestamp(ts)
			return ts, nil
		}
		b.logger.Errorf("failed to decrypt commit timestamp: %v", err)
		return 0, err
	}
	return new(big.Int).SetBytes(plaintext).Int64(), nil
}

func (b *Store) SetCommitTimestamp(
	ts int64,
	txn types.Txn,
) error {
	if txn == nil {
		return types.ErrNilTxn
	}
	raw := new(big.Int).SetInt64(ts).Bytes()
	ciphertext, err := civetsops.Encrypt(raw)
	if err != nil {
		b.logger.Errorf("failed to encrypt commit timestamp: %v", err)
		return err
	}
	if err := b.Set(txn, []byte(commitTimestampBlobKey), ciphertext); err != nil {
		return err
	}
	b.logger.Infof("commit timestamp %d written to S3", ts)
	return nil
}
