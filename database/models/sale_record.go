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

package models

import (
	"database/sql/driver"
	"fmt"
	"strconv"
)

// SaleRecordKind distinguishes point-of-sale records from recall flags with
// type safety
//
//nolint:recvcheck
type SaleRecordKind uint

const (
	SaleRecordKindSale   SaleRecordKind = 1
	SaleRecordKindRecall SaleRecordKind = 2
)

// maxSaleRecordKindValue represents the maximum valid sale record kind value
const maxSaleRecordKindValue = 100

// Value implements the driver.Valuer interface for database storage.
// Use a value receiver so both SaleRecordKind and *SaleRecordKind satisfy driver.Valuer.
func (k SaleRecordKind) Value() (driver.Value, error) {
	return int64(k), nil // #nosec G115 - record kinds are small integers
}

// Scan implements the sql.Scanner interface for database retrieval.
// Uses pointer receiver because it modifies the receiver.
func (k *SaleRecordKind) Scan(value interface{}) error {
	if value == nil {
		*k = 0
		return nil
	}
	var val int64
	switch v := value.(type) {
	case uint:
		if v > 1<<63-1 { // Check for overflow before conversion
			return fmt.Errorf("uint value too large for SaleRecordKind: %d", v)
		}
		val = int64(v)
	case int:
		val = int64(v)
	case int64:
		val = v
	case uint64:
		if v > 1<<63-1 { // Check for overflow before conversion
			return fmt.Errorf("uint64 value too large for SaleRecordKind: %d", v)
		}
		val = int64(v)
	case []byte:
		// Handle byte slice inputs (common for some database drivers)
		var err error
		val, err = strconv.ParseInt(string(v), 10, 64)
		if err != nil {
			return fmt.Errorf("cannot parse []byte as int64 for SaleRecordKind: %w", err)
		}
	case string:
		// Handle string inputs (in case a driver hands back text instead of []byte)
		var err error
		val, err = strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("cannot parse string as int64 for SaleRecordKind: %w", err)
		}
	default:
		return fmt.Errorf("cannot scan %T into SaleRecordKind", value)
	}
	// Basic range check for record kinds (should be small positive integers)
	if val < 0 || val > maxSaleRecordKindValue {
		return fmt.Errorf("invalid sale record kind value: %d", val)
	}
	*k = SaleRecordKind(val)
	return nil
}

// SaleRecord is an append-only sale or recall entry. Sale records carry the
// retailer and sale metadata; recall records carry the reason. Records are
// never updated or deleted.
type SaleRecord struct {
	ID        uint           `gorm:"primarykey"`
	BatchID   uint64         `gorm:"not null;index"`
	Kind      SaleRecordKind `gorm:"not null;index"`
	Principal string         `gorm:"size:255;not null"`
	SaleMeta  string         `gorm:"size:255"`
	Reason    string         `gorm:"size:255"`
	Timestamp int64          `gorm:"not null"`
}

func (SaleRecord) TableName() string {
	return "sale_record"
}

// Kind helpers used by read paths

// IsRecall returns true for recall flag records.
func (s SaleRecord) IsRecall() bool {
	return s.Kind == SaleRecordKindRecall
}
