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
	"github.com/blinklabs-io/civet/database/types"
)

// Batch is a registered product batch. The identity fields (content hash and
// metadata reference) are written once at registration and never updated.
type Batch struct {
	ID           uint         `gorm:"primarykey"`
	BatchID      uint64       `gorm:"uniqueIndex;not null"`
	ContentHash  []byte       `gorm:"size:32;not null"`
	MetadataRef  string       `gorm:"size:255"`
	Manufacturer string       `gorm:"size:255;not null;index"`
	TotalSupply  types.Uint64 `gorm:"not null"`
	RegisteredAt int64        `gorm:"not null"`
}

func (Batch) TableName() string {
	return "batch"
}

// Balance is the amount of a batch held by a principal. Rows are created on
// first credit and updated in place; amounts never go negative.
type Balance struct {
	ID      uint         `gorm:"primarykey"`
	BatchID uint64       `gorm:"not null;uniqueIndex:uniq_batch_holder;index"`
	Holder  string       `gorm:"size:255;not null;uniqueIndex:uniq_batch_holder"`
	Amount  types.Uint64 `gorm:"not null"`
}

func (Balance) TableName() string {
	return "balance"
}
