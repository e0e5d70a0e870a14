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
	"encoding/binary"
	"fmt"
)

const (
	EventBlobKeyPrefix = "ev"
)

func EventBlobKeyUint64ToBytes(input uint64) []byte {
	ret := make([]byte, 8)
	binary.BigEndian.PutUint64(ret, input)
	return ret
}

// EventBlobKey builds the blob key for an event log record. Sequence
// numbers are big-endian encoded so that lexical key order matches
// numeric order for iteration.
func EventBlobKey(seq uint64) []byte {
	key := []byte(EventBlobKeyPrefix)
	seqBytes := EventBlobKeyUint64ToBytes(seq)
	key = append(key, seqBytes...)
	return key
}

// EventBlobKeySeq extracts the sequence number from an event log blob key
func EventBlobKeySeq(key []byte) (uint64, error) {
	expectedLen := len(EventBlobKeyPrefix) + 8
	if len(key) != expectedLen {
		return 0, fmt.Errorf(
			"unexpected event blob key length: %d, expected %d",
			len(key),
			expectedLen,
		)
	}
	if string(key[0:len(EventBlobKeyPrefix)]) != EventBlobKeyPrefix {
		return 0, fmt.Errorf("unexpected event blob key prefix: %x", key)
	}
	return binary.BigEndian.Uint64(key[len(EventBlobKeyPrefix):]), nil
}
