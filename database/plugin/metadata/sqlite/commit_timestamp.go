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

package sqlite

import (
	"errors"

	"github.com/blinklabs-io/civet/database/types"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// The commit timestamp lives in a single well-known row and marks the
// last write committed to both the metadata and blob stores. It is
// compared against the blob side on open to detect a partial commit.
const commitTimestampRowId = 1

// CommitTimestamp is the sqlite table holding the commit timestamp row
type CommitTimestamp struct {
	ID        uint `gorm:"primarykey"`
	Timestamp int64
}

func (CommitTimestamp) TableName() string {
	return "commit_timestamp"
}

// GetCommitTimestamp reads the current commit timestamp. A missing row
// is reported as zero with no error, which is normal for a fresh
// database
func (d *Store) GetCommitTimestamp() (int64, error) {
	var row CommitTimestamp
	result := d.DB().First(&row, commitTimestampRowId)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, result.Error
	}
	return row.Timestamp, nil
}

// SetCommitTimestamp upserts the commit timestamp row within the given
// transaction
func (d *Store) SetCommitTimestamp(
	timestamp int64,
	txn types.Txn,
) error {
	row := CommitTimestamp{
		ID:        commitTimestampRowId,
		Timestamp: timestamp,
	}
	db, err := d.resolveDB(txn)
	if err != nil {
		return err
	}
	result := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"timestamp"}),
	}).Create(&row)
	return result.Error
}
