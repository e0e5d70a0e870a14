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

package types_test

import (
	"database/sql"
	"database/sql/driver"
	"math"
	"reflect"
	"testing"

	"github.com/blinklabs-io/civet/database/types"
)

func TestUint64ScanValue(t *testing.T) {
	testDefs := []struct {
		origValue     any
		expectedValue any
	}{
		{
			origValue: func(v types.Uint64) *types.Uint64 { return &v }(
				types.Uint64(123),
			),
			expectedValue: "123",
		},
		{
			origValue: func(v types.Uint64) *types.Uint64 { return &v }(
				types.Uint64(math.MaxUint64),
			),
			expectedValue: "18446744073709551615",
		},
	}
	var ok bool
	var tmpScanner sql.Scanner
	var tmpValuer driver.Valuer
	for _, testDef := range testDefs {
		tmpValuer, ok = testDef.origValue.(driver.Valuer)
		if !ok {
			t.Fatalf("test original value does not implement driver.Valuer")
		}
		valueOut, err := tmpValuer.Value()
		if err != nil {
			t.Fatalf("unexpected error: %s", err)
		}
		if !reflect.DeepEqual(valueOut, testDef.expectedValue) {
			t.Fatalf(
				"did not get expected value from Value(): got %#v, expected %#v",
				valueOut,
				testDef.expectedValue,
			)
		}
		tmpScanner, ok = testDef.origValue.(sql.Scanner)
		if !ok {
			t.Fatalf(
				"test original value does not implement sql.Scanner (it must be a pointer)",
			)
		}
		if err := tmpScanner.Scan(valueOut); err != nil {
			t.Fatalf("unexpected error: %s", err)
		}
		if !reflect.DeepEqual(tmpScanner, testDef.origValue) {
			t.Fatalf(
				"did not get expected value after Scan(): got %#v, expected %#v",
				tmpScanner,
				testDef.origValue,
			)
		}
	}
}

func TestUint64ScanBytes(t *testing.T) {
	var u types.Uint64
	if err := u.Scan([]byte("9000")); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if u != 9000 {
		t.Fatalf("did not get expected value: got %d, expected 9000", u)
	}
	if err := u.Scan(42); err == nil {
		t.Fatalf("expected error for unsupported scan type")
	}
}

func TestEventBlobKeyRoundTrip(t *testing.T) {
	testSeqs := []uint64{0, 1, 255, 4096, math.MaxUint64}
	for _, seq := range testSeqs {
		key := types.EventBlobKey(seq)
		gotSeq, err := types.EventBlobKeySeq(key)
		if err != nil {
			t.Fatalf("unexpected error: %s", err)
		}
		if gotSeq != seq {
			t.Fatalf(
				"did not get expected sequence: got %d, expected %d",
				gotSeq,
				seq,
			)
		}
	}
}

func TestEventBlobKeyOrdering(t *testing.T) {
	// Big-endian encoding means lexical key order matches numeric order
	prevKey := types.EventBlobKey(0)
	for seq := uint64(1); seq < 512; seq++ {
		key := types.EventBlobKey(seq)
		if string(key) <= string(prevKey) {
			t.Fatalf(
				"key for seq %d not greater than key for seq %d",
				seq,
				seq-1,
			)
		}
		prevKey = key
	}
}

func TestEventBlobKeySeqInvalid(t *testing.T) {
	if _, err := types.EventBlobKeySeq([]byte("bogus")); err == nil {
		t.Fatalf("expected error for short key")
	}
	badKey := append([]byte("xx"), types.EventBlobKeyUint64ToBytes(42)...)
	if _, err := types.EventBlobKeySeq(badKey); err == nil {
		t.Fatalf("expected error for wrong prefix")
	}
}
