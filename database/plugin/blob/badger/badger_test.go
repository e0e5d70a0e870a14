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

package badger_test

import (
	"testing"

	"github.com/blinklabs-io/civet/database/plugin/blob/badger"
	"github.com/blinklabs-io/civet/database/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *badger.Store {
	t.Helper()
	// No data dir gives us an in-memory store
	store, err := badger.New(
		badger.WithGc(false),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		store.Close() //nolint:errcheck
	})
	return store
}

type bogusTxn struct{}

func (bogusTxn) Commit() error   { return nil }
func (bogusTxn) Rollback() error { return nil }

func TestBlobRoundTrip(t *testing.T) {
	store := newTestStore(t)

	txn := store.NewTransaction(true)
	require.NoError(t, store.Set(txn, []byte("test1"), []byte("abc")))
	require.NoError(t, txn.Commit())

	readTxn := store.NewTransaction(false)
	val, err := store.Get(readTxn, []byte("test1"))
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), val)
	require.NoError(t, readTxn.Rollback())

	delTxn := store.NewTransaction(true)
	require.NoError(t, store.Delete(delTxn, []byte("test1")))
	require.NoError(t, delTxn.Commit())

	missTxn := store.NewTransaction(false)
	_, err = store.Get(missTxn, []byte("test1"))
	assert.ErrorIs(t, err, types.ErrBlobKeyNotFound)
	require.NoError(t, missTxn.Rollback())
}

func TestRollbackDiscardsWrites(t *testing.T) {
	store := newTestStore(t)

	txn := store.NewTransaction(true)
	require.NoError(t, store.Set(txn, []byte("test2"), []byte("xyz")))
	require.NoError(t, txn.Rollback())

	readTxn := store.NewTransaction(false)
	_, err := store.Get(readTxn, []byte("test2"))
	assert.ErrorIs(t, err, types.ErrBlobKeyNotFound)
	require.NoError(t, readTxn.Rollback())
}

func TestIteratorPrefix(t *testing.T) {
	store := newTestStore(t)

	txn := store.NewTransaction(true)
	require.NoError(t, store.Set(txn, []byte("aaa1"), []byte("1")))
	require.NoError(t, store.Set(txn, []byte("aaa2"), []byte("2")))
	require.NoError(t, store.Set(txn, []byte("bbb1"), []byte("3")))
	require.NoError(t, txn.Commit())

	iterTxn := store.NewTransaction(false)
	defer iterTxn.Rollback() //nolint:errcheck
	iter := store.NewIterator(
		iterTxn,
		types.BlobIteratorOptions{Prefix: []byte("aaa")},
	)
	defer iter.Close()
	require.NoError(t, iter.Err())

	var keys []string
	for iter.Rewind(); iter.Valid(); iter.Next() {
		keys = append(keys, string(iter.Item().Key()))
	}
	assert.Equal(t, []string{"aaa1", "aaa2"}, keys)
}

func TestIteratorReverse(t *testing.T) {
	store := newTestStore(t)

	txn := store.NewTransaction(true)
	require.NoError(t, store.Set(txn, []byte("key1"), []byte("1")))
	require.NoError(t, store.Set(txn, []byte("key2"), []byte("2")))
	require.NoError(t, txn.Commit())

	iterTxn := store.NewTransaction(false)
	defer iterTxn.Rollback() //nolint:errcheck
	iter := store.NewIterator(
		iterTxn,
		types.BlobIteratorOptions{Prefix: []byte("key"), Reverse: true},
	)
	defer iter.Close()

	// Reverse iteration starts from the last key matching the prefix
	iter.Seek([]byte("key\xff"))
	require.True(t, iter.ValidForPrefix([]byte("key")))
	assert.Equal(t, "key2", string(iter.Item().Key()))
	iter.Next()
	require.True(t, iter.ValidForPrefix([]byte("key")))
	assert.Equal(t, "key1", string(iter.Item().Key()))
}

func TestCommitTimestamp(t *testing.T) {
	store := newTestStore(t)

	ts, err := store.GetCommitTimestamp()
	require.NoError(t, err)
	assert.Equal(t, int64(0), ts)

	txn := store.NewTransaction(true)
	require.NoError(t, store.SetCommitTimestamp(42, txn))
	require.NoError(t, txn.Commit())

	ts, err = store.GetCommitTimestamp()
	require.NoError(t, err)
	assert.Equal(t, int64(42), ts)
}

func TestTxnValidation(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Get(nil, []byte("test3"))
	assert.ErrorIs(t, err, types.ErrNilTxn)

	_, err = store.Get(bogusTxn{}, []byte("test3"))
	assert.ErrorIs(t, err, types.ErrTxnWrongType)

	// A finished transaction can no longer be used
	txn := store.NewTransaction(false)
	require.NoError(t, txn.Rollback())
	_, err = store.Get(txn, []byte("test3"))
	assert.Error(t, err)

	iter := store.NewIterator(txn, types.BlobIteratorOptions{})
	defer iter.Close()
	assert.False(t, iter.Valid())
	assert.Error(t, iter.Err())
}
