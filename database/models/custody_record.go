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

// CustodyRecord is an append-only custody trail entry. FromPrincipal is
// empty for approval records, which also carry the literal location
// "Approved". Records are never updated or deleted.
type CustodyRecord struct {
	ID            uint   `gorm:"primarykey"`
	BatchID       uint64 `gorm:"not null;index"`
	FromPrincipal string `gorm:"size:255"`
	ToPrincipal   string `gorm:"size:255;not null"`
	Location      string `gorm:"size:255"`
	Timestamp     int64  `gorm:"not null"`
}

func (CustodyRecord) TableName() string {
	return "custody_record"
}
