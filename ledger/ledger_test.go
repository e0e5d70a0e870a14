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

package ledger_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/blinklabs-io/civet/ledger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHash(t *testing.T) {
	data := make([]byte, ledger.HashSize)
	data[0] = 0xde
	data[31] = 0xad
	h, err := ledger.NewHash(data)
	require.NoError(t, err)
	assert.Equal(t, data, h.Bytes())
	assert.False(t, h.IsZero())
}

func TestNewHashWrongLength(t *testing.T) {
	_, err := ledger.NewHash([]byte{0x01, 0x02})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ledger.ErrInvalidArgument))
}

func TestNewHashFromHex(t *testing.T) {
	hexStr := strings.Repeat("ab", ledger.HashSize)
	h, err := ledger.NewHashFromHex(hexStr)
	require.NoError(t, err)
	assert.Equal(t, hexStr, h.String())
	// Leading 0x should be accepted
	h2, err := ledger.NewHashFromHex("0x" + hexStr)
	require.NoError(t, err)
	assert.Equal(t, h, h2)
}

func TestNewHashFromHexInvalid(t *testing.T) {
	_, err := ledger.NewHashFromHex("not-hex")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ledger.ErrInvalidArgument))
}

func TestHashIsZero(t *testing.T) {
	var h ledger.Hash
	assert.True(t, h.IsZero())
	h[16] = 0x01
	assert.False(t, h.IsZero())
}

func TestRoleValid(t *testing.T) {
	for _, role := range ledger.Roles() {
		assert.True(t, role.Valid(), "expected role %s to be valid", role)
	}
	assert.False(t, ledger.Role("JANITOR").Valid())
	assert.False(t, ledger.Role("").Valid())
}

func TestPrincipalNone(t *testing.T) {
	assert.True(t, ledger.PrincipalNone.IsNone())
	assert.False(t, ledger.Principal("0x1234").IsNone())
}

func TestUnauthorizedError(t *testing.T) {
	err := ledger.NewUnauthorizedError(
		ledger.Principal("0xabcd"),
		ledger.RoleLab,
		"issue certificate",
	)
	assert.True(t, errors.Is(err, ledger.ErrUnauthorized))
	assert.Equal(t, ledger.Principal("0xabcd"), err.Principal())
	assert.Equal(t, ledger.RoleLab, err.Role())
	assert.Equal(t, "issue certificate", err.Operation())
	assert.Contains(t, err.Error(), "LAB")

	var unauthorizedErr *ledger.UnauthorizedError
	assert.True(t, errors.As(error(err), &unauthorizedErr))
}

func TestBatchNotFoundError(t *testing.T) {
	err := ledger.NewBatchNotFoundError(5001)
	assert.True(t, errors.Is(err, ledger.ErrNotFound))
	assert.Equal(t, uint64(5001), err.BatchId())
	assert.Contains(t, err.Error(), "5001")
}

func TestInsufficientBalanceError(t *testing.T) {
	err := ledger.NewInsufficientBalanceError(
		42,
		ledger.Principal("0xmfg"),
		100,
		250,
	)
	assert.True(t, errors.Is(err, ledger.ErrInsufficientBalance))
	assert.Equal(t, uint64(100), err.Balance())
	assert.Equal(t, uint64(250), err.Amount())
}
