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

// PolicyRowID is the fixed row ID for the single policy pointer row.
const PolicyRowID = 1

// Policy is the current governance policy hash pointer. It occupies a single
// fixed row that is overwritten on update; prior values survive only in the
// event log.
type Policy struct {
	ID         uint   `gorm:"primarykey"`
	PolicyHash []byte `gorm:"size:32;not null"`
	UpdatedAt  int64  `gorm:"not null"`
}

func (Policy) TableName() string {
	return "policy"
}
