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
	"errors"
	"fmt"
	"math"
	"reflect"
	"time"

	"github.com/blinklabs-io/civet/database/types"
	"github.com/fxamacker/cbor/v2"
)

// Event is a single event log record. Records are stored CBOR-encoded in
// the blob store, keyed by sequence number, and are never updated or
// deleted once written.
type Event struct {
	Seq       uint64
	Type      string
	Timestamp int64
	Payload   cbor.RawMessage
}

// DecodePayload unmarshals the event payload into the provided destination
func (e *Event) DecodePayload(dst any) error {
	return cbor.Unmarshal(e.Payload, dst)
}

// payloadDecMode decodes CBOR maps with string keys so generic payloads can
// be re-encoded as JSON
var payloadDecMode = func() cbor.DecMode {
	dm, err := cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic(err)
	}
	return dm
}()

// DecodePayloadGeneric unmarshals the event payload into generic
// JSON-encodable types
func (e *Event) DecodePayloadGeneric() (any, error) {
	var ret any
	if err := payloadDecMode.Unmarshal(e.Payload, &ret); err != nil {
		return nil, err
	}
	return ret, nil
}

// AppendEvent appends a record to the event log within the given transaction
// and returns its sequence number. Sequence numbers are allocated at append
// time, so a transaction that later rolls back leaves a gap in the sequence.
// Readers must tolerate gaps.
func (d *Database) AppendEvent(
	eventType string,
	payload any,
	txn *Txn,
) (uint64, error) {
	owned := false
	if txn == nil {
		txn = d.Transaction(true)
		owned = true
		defer txn.Rollback() //nolint:errcheck
	}
	blobStore := d.Blob()
	if blobStore == nil {
		return 0, types.ErrBlobStoreUnavailable
	}
	blobTxn := txn.Blob()
	if blobTxn == nil {
		return 0, types.ErrNilTxn
	}
	payloadCbor, err := cbor.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("encode event payload: %w", err)
	}
	d.eventSeqLock.Lock()
	seq := d.nextEventSeq
	record := Event{
		Seq:       seq,
		Type:      eventType,
		Timestamp: time.Now().UnixMilli(),
		Payload:   payloadCbor,
	}
	recordCbor, err := cbor.Marshal(&record)
	if err != nil {
		d.eventSeqLock.Unlock()
		return 0, fmt.Errorf("encode event record: %w", err)
	}
	if err := blobStore.Set(blobTxn, types.EventBlobKey(seq), recordCbor); err != nil {
		d.eventSeqLock.Unlock()
		return 0, err
	}
	d.nextEventSeq++
	d.eventSeqLock.Unlock()
	if owned {
		if err := txn.Commit(); err != nil {
			return 0, err
		}
	}
	return seq, nil
}

// GetEvent returns the event log record with the given sequence number, or
// nil when no record exists for it
func (d *Database) GetEvent(seq uint64, txn *Txn) (*Event, error) {
	owned := false
	if txn == nil {
		txn = NewBlobOnlyTxn(d, false)
		owned = true
		defer txn.Rollback() //nolint:errcheck
	}
	blobStore := d.Blob()
	if blobStore == nil {
		return nil, types.ErrBlobStoreUnavailable
	}
	blobTxn := txn.Blob()
	if blobTxn == nil {
		return nil, types.ErrNilTxn
	}
	val, err := blobStore.Get(blobTxn, types.EventBlobKey(seq))
	if err != nil {
		if errors.Is(err, types.ErrBlobKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}
	var record Event
	if err := cbor.Unmarshal(val, &record); err != nil {
		return nil, fmt.Errorf("decode event record %d: %w", seq, err)
	}
	if owned {
		if err := txn.Commit(); err != nil {
			return nil, err
		}
	}
	return &record, nil
}

// NextEventSeq returns the sequence number the next appended event will
// receive
func (d *Database) NextEventSeq() uint64 {
	d.eventSeqLock.Lock()
	defer d.eventSeqLock.Unlock()
	return d.nextEventSeq
}

// recoverEventSeq determines the next event sequence number by finding the
// newest record in the blob store. Called once at startup before any
// appends.
func (d *Database) recoverEventSeq() error {
	d.eventSeqLock.Lock()
	defer d.eventSeqLock.Unlock()
	d.nextEventSeq = 1
	blobStore := d.Blob()
	if blobStore == nil {
		return types.ErrBlobStoreUnavailable
	}
	txn := NewBlobOnlyTxn(d, false)
	defer txn.Release()
	prefix := []byte(types.EventBlobKeyPrefix)
	iter := blobStore.NewIterator(
		txn.Blob(),
		types.BlobIteratorOptions{Prefix: prefix, Reverse: true},
	)
	if iter == nil {
		return errors.New("blob iterator is nil")
	}
	defer iter.Close()
	// Seek past the highest possible sequence so reverse iteration lands on
	// the newest record
	iter.Seek(types.EventBlobKey(math.MaxUint64))
	if iter.ValidForPrefix(prefix) {
		seq, err := types.EventBlobKeySeq(iter.Item().Key())
		if err != nil {
			return fmt.Errorf("recover event sequence: %w", err)
		}
		d.nextEventSeq = seq + 1
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("recover event sequence: %w", err)
	}
	return nil
}
