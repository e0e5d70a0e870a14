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

package badger

import (
	"errors"
	"math/big"

	"github.com/blinklabs-io/civet/database/types"
)

// The commit timestamp is stored as raw int64 bytes under a well-known
// key. The local store needs no encryption, unlike the cloud-bucket
// backends.
const commitTimestampBlobKey = "metadata_commit_timestamp"

// GetCommitTimestamp reads the current commit timestamp. A missing key
// is reported as zero with no error, which is normal for a fresh store
func (b *Store) GetCommitTimestamp() (int64, error) {
	txn := b.NewTransaction(false)
	defer txn.Rollback() //nolint:errcheck

	val, err := b.Get(txn, []byte(commitTimestampBlobKey))
	if err != nil {
		if errors.Is(err, types.ErrBlobKeyNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return new(big.Int).SetBytes(val).Int64(), nil
}

// SetCommitTimestamp writes the commit timestamp within the given
// transaction
func (b *Store) SetCommitTimestamp(
	timestamp int64,
	txn types.Txn,
) error {
	if txn == nil {
		return types.ErrNilTxn
	}
	raw := new(big.Int).SetInt64(timestamp).Bytes()
	return b.Set(txn, []byte(commitTimestampBlobKey), raw)
}
