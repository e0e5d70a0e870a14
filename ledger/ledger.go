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

package ledger

import (
	"encoding/hex"
	"fmt"
)

// HashSize is the size in bytes of a content or policy hash
const HashSize = 32

// Principal identifies an actor submitting operations. The value is
// opaque to the ledger and is compared byte-for-byte.
type Principal string

// PrincipalNone is the sentinel principal used where no actor applies,
// such as the origin of an approval record.
const PrincipalNone Principal = ""

// IsNone returns true for the sentinel principal
func (p Principal) IsNone() bool {
	return p == PrincipalNone
}

func (p Principal) String() string {
	return string(p)
}

// Role represents a named permission grouping
type Role string

const (
	RoleManufacturer Role = "MANUFACTURER"
	RoleLab          Role = "LAB"
	RoleRegulator    Role = "REGULATOR"
	RoleDistributor  Role = "DISTRIBUTOR"
	RoleRetailer     Role = "RETAILER"
	RoleAdmin        Role = "ADMIN"
)

// Roles returns all known roles
func Roles() []Role {
	return []Role{
		RoleManufacturer,
		RoleLab,
		RoleRegulator,
		RoleDistributor,
		RoleRetailer,
		RoleAdmin,
	}
}

// Valid returns true if the Role is a known role
func (r Role) Valid() bool {
	switch r {
	case RoleManufacturer,
		RoleLab,
		RoleRegulator,
		RoleDistributor,
		RoleRetailer,
		RoleAdmin:
		return true
	default:
		return false
	}
}

func (r Role) String() string {
	return string(r)
}

// Hash is a fixed-size content or policy hash
type Hash [HashSize]byte

// NewHash builds a Hash from a byte slice, which must be exactly
// HashSize bytes
func NewHash(data []byte) (Hash, error) {
	var h Hash
	if len(data) != HashSize {
		return h, fmt.Errorf(
			"%w: hash must be %d bytes, got %d",
			ErrInvalidArgument,
			HashSize,
			len(data),
		)
	}
	copy(h[:], data)
	return h, nil
}

// NewHashFromHex builds a Hash from a hex string, with or without a
// leading "0x"
func NewHashFromHex(s string) (Hash, error) {
	var h Hash
	if len(s) >= 2 && s[0:2] == "0x" {
		s = s[2:]
	}
	data, err := hex.DecodeString(s)
	if err != nil {
		return h, fmt.Errorf("%w: invalid hash hex: %s", ErrInvalidArgument, err)
	}
	return NewHash(data)
}

// IsZero returns true when every byte of the hash is zero
func (h Hash) IsZero() bool {
	for _, b := range h {
		if b != 0 {
			return false
		}
	}
	return true
}

// Bytes returns the hash as a byte slice
func (h Hash) Bytes() []byte {
	return h[:]
}

func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// Authorizer is the capability interface consumed by components that
// gate operations on role membership. The role store implements it,
// and tests can substitute their own implementation.
type Authorizer interface {
	Authorize(role Role, principal Principal) bool
}

// TokenLedger is the capability interface for the balance-bearing side of
// the batch registry. Callers that only move units depend on this rather
// than the full registry surface.
type TokenLedger interface {
	MintTo(caller Principal, batchId uint64, to Principal, amount uint64) error
	Burn(caller Principal, batchId uint64, amount uint64) error
	BalanceOf(batchId uint64, holder Principal) (uint64, error)
}
