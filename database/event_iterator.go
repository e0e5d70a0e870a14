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

package database

import (
	"bytes"
	"errors"
	"fmt"
	"sync"

	"github.com/blinklabs-io/civet/database/types"
	"github.com/fxamacker/cbor/v2"
)

const (
	// eventIteratorBatchSize controls how many event records are fetched
	// per batch from the blob iterator. This avoids loading the entire
	// event log into memory while keeping I/O efficient.
	eventIteratorBatchSize = 1000
)

// EventIterator iterates event log records from the blob store in sequence
// order. Event keys are formatted as "ev" + big-endian(seq), so forward
// iteration naturally yields records in ascending sequence order.
//
// The iterator fetches records in batches to avoid loading the entire event
// log into memory. Sequence gaps left by rolled-back transactions are
// skipped silently.
type EventIterator struct {
	db        *Database
	startSeq  uint64
	endSeq    uint64
	hasEndSeq bool

	// internal state
	mu         sync.Mutex
	batch      []Event
	batchIdx   int
	currentSeq uint64
	exhausted  bool
	closed     bool

	// resumeKey is the blob key to seek past when fetching the next batch.
	// nil means start from the beginning (or from startSeq).
	resumeKey []byte
}

// EventsFrom returns an iterator that yields event log records starting
// from startSeq, continuing through all subsequent records.
func (d *Database) EventsFrom(startSeq uint64) *EventIterator {
	return &EventIterator{
		db:       d,
		startSeq: startSeq,
	}
}

// EventsInRange returns an iterator for a specific sequence range
// [start, end]. Both endpoints are inclusive.
func (d *Database) EventsInRange(startSeq, endSeq uint64) *EventIterator {
	return &EventIterator{
		db:        d,
		startSeq:  startSeq,
		endSeq:    endSeq,
		hasEndSeq: true,
	}
}

// Next returns the next event log record. When iteration is complete, it
// returns (nil, nil). Records that cannot be decoded are skipped with a
// warning log.
func (it *EventIterator) Next() (*Event, error) {
	it.mu.Lock()
	defer it.mu.Unlock()

	if it.closed {
		return nil, nil
	}

	// Refill batch if needed
	if it.batchIdx >= len(it.batch) {
		if it.exhausted {
			return nil, nil
		}
		if err := it.fetchBatch(); err != nil {
			return nil, err
		}
		if len(it.batch) == 0 {
			it.exhausted = true
			return nil, nil
		}
	}

	record := it.batch[it.batchIdx]
	it.batchIdx++
	it.currentSeq = record.Seq
	return &record, nil
}

// Progress returns the current sequence being iterated and the end
// sequence. If no end sequence was specified, end returns 0.
func (it *EventIterator) Progress() (current, end uint64) {
	it.mu.Lock()
	defer it.mu.Unlock()
	return it.currentSeq, it.endSeq
}

// Close releases any resources held by the iterator. It is safe to call
// Close multiple times.
func (it *EventIterator) Close() {
	it.mu.Lock()
	defer it.mu.Unlock()
	it.closed = true
	it.batch = nil
	it.resumeKey = nil
}

// fetchBatch retrieves and decodes the next batch of event records from the
// blob store. Must be called with it.mu held.
func (it *EventIterator) fetchBatch() error {
	blobStore := it.db.Blob()
	if blobStore == nil {
		return types.ErrBlobStoreUnavailable
	}

	txn := blobStore.NewTransaction(false)
	defer txn.Rollback() //nolint:errcheck

	prefix := []byte(types.EventBlobKeyPrefix)
	blobIter := blobStore.NewIterator(
		txn,
		types.BlobIteratorOptions{Prefix: prefix},
	)
	if blobIter == nil {
		return errors.New("blob iterator is nil")
	}
	defer blobIter.Close()

	// Determine seek position
	var seekKey []byte
	if it.resumeKey != nil {
		// Seek past the last key we processed
		seekKey = it.resumeKey
	} else {
		// Start from the configured start sequence
		seekKey = types.EventBlobKey(it.startSeq)
	}

	// Build the last key in range for end limiting
	var endKey []byte
	if it.hasEndSeq {
		endKey = types.EventBlobKey(it.endSeq)
	}

	batch := make([]Event, 0, eventIteratorBatchSize)
	resuming := it.resumeKey != nil
	scanComplete := true

	for blobIter.Seek(seekKey); blobIter.ValidForPrefix(prefix); blobIter.Next() {
		item := blobIter.Item()
		if item == nil {
			continue
		}
		key := item.Key()
		if key == nil {
			continue
		}

		// When resuming, skip the exact key we left off at
		if resuming {
			resuming = false
			if bytes.Equal(key, it.resumeKey) {
				continue
			}
		}

		// Check end range
		if endKey != nil && bytes.Compare(key, endKey) > 0 {
			break
		}

		val, valErr := item.ValueCopy(nil)
		if valErr != nil {
			return fmt.Errorf("fetching event record: %w", valErr)
		}
		var record Event
		if decodeErr := cbor.Unmarshal(val, &record); decodeErr != nil {
			it.db.logger.Warn(
				"event iterator: skipping undecodable record",
				"key", fmt.Sprintf("%x", key),
				"error", decodeErr,
			)
			continue
		}

		it.resumeKey = bytes.Clone(key)
		batch = append(batch, record)
		if len(batch) >= eventIteratorBatchSize {
			scanComplete = false
			break
		}
	}

	if err := blobIter.Err(); err != nil {
		return fmt.Errorf("event iterator: %w", err)
	}

	it.batch = batch
	it.batchIdx = 0
	// Exhausted only when the scan ran out of keys, not when it stopped at
	// the batch size limit. Decode skips can shrink a batch without
	// meaning the log is fully consumed.
	if scanComplete {
		it.exhausted = true
	}
	return nil
}
