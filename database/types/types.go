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

package types

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"strconv"
)

// Uint64 is a uint64 stored as a string column so that backends without a
// native unsigned 64-bit type can hold full-range values
//
//nolint:recvcheck
type Uint64 uint64

func (u Uint64) Value() (driver.Value, error) {
	return strconv.FormatUint(uint64(u), 10), nil
}

// Scan accepts both string and []byte since the MySQL text protocol
// returns string columns as raw bytes
func (u *Uint64) Scan(val any) error {
	var s string
	switch v := val.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		return fmt.Errorf(
			"value was not expected type, wanted string, got %T",
			val,
		)
	}
	tmpUint, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return err
	}
	*u = Uint64(tmpUint)
	return nil
}

var (
	// ErrBlobKeyNotFound is returned by blob reads for a missing key
	ErrBlobKeyNotFound = errors.New("blob key not found")

	// ErrTxnWrongType is returned when a store is handed a transaction
	// that was not created by it
	ErrTxnWrongType = errors.New("invalid transaction type")

	// ErrNilTxn is returned when an operation requires a transaction and
	// got nil
	ErrNilTxn = errors.New("nil transaction")

	// ErrNoStoreAvailable is returned when neither a blob nor a metadata
	// store is configured
	ErrNoStoreAvailable = errors.New("no store available")

	// ErrBlobStoreUnavailable is returned when the blob store cannot be
	// reached
	ErrBlobStoreUnavailable = errors.New("blob store unavailable")
)

// BlobItem is a single key/value pair yielded by a BlobIterator
type BlobItem interface {
	Key() []byte
	ValueCopy(dst []byte) ([]byte, error)
}

// BlobIterator walks keys in the blob store. Items returned by Item are
// only valid while the transaction the iterator was created from is still
// open. Implementations may check this at access time, so ValueCopy can
// fail after a commit or rollback
type BlobIterator interface {
	Rewind()
	Seek(prefix []byte)
	Valid() bool
	ValidForPrefix(prefix []byte) bool
	Next()
	Item() BlobItem
	Close()
	Err() error
}

// BlobIteratorOptions configures blob iterator creation
type BlobIteratorOptions struct {
	Prefix  []byte
	Reverse bool
}

// Txn is a commit/rollback handle. The database layer uses it to
// coordinate the metadata and blob sides of a write
type Txn interface {
	Commit() error
	Rollback() error
}
