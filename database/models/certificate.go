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

// Certificate is a lab certificate for a batch. The primary key is the
// global certificate ID: rows are never deleted, so autoincrement assignment
// keeps IDs strictly increasing from 1 with no reuse. Revocation is a
// one-way flip of the Revoked flag.
type Certificate struct {
	ID           uint64 `gorm:"primarykey"`
	BatchID      uint64 `gorm:"not null;index"`
	Lab          string `gorm:"size:255;not null"`
	ReportRef    []byte `gorm:"size:32;not null"`
	IssueDate    int64  `gorm:"not null"`
	Revoked      bool   `gorm:"not null;default:false"`
	RevokeReason string `gorm:"size:255"`
}

func (Certificate) TableName() string {
	return "certificate"
}
