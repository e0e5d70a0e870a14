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
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND,
// either express or implied. See the License for the specific language
// governing permissions and limitations under the License.

package sqlite

import (
	"fmt"

	"github.com/blinklabs-io/civet/database/models"
	"github.com/blinklabs-io/civet/database/types"
	"gorm.io/gorm/clause"
)

// AddRoleGrant records a role held by a principal. Granting a role that is
// already held is a no-op at the storage layer.
func (d *Store) AddRoleGrant(
	grant models.RoleGrant,
	txn types.Txn,
) error {
	db, err := d.resolveDB(txn)
	if err != nil {
		return err
	}
	result := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "principal"},
			{Name: "role"},
		},
		DoNothing: true,
	}).Create(&grant)
	if result.Error != nil {
		return fmt.Errorf(
			"create role grant %s for %s: %w",
			grant.Role,
			grant.Principal,
			result.Error,
		)
	}
	return nil
}

// DeleteRoleGrant removes a role held by a principal. Revoking a role that is
// not held is a no-op at the storage layer.
func (d *Store) DeleteRoleGrant(
	principal string,
	role string,
	txn types.Txn,
) error {
	db, err := d.resolveDB(txn)
	if err != nil {
		return err
	}
	result := db.Where("principal = ? AND role = ?", principal, role).
		Delete(&models.RoleGrant{})
	if result.Error != nil {
		return fmt.Errorf(
			"delete role grant %s for %s: %w",
			role,
			principal,
			result.Error,
		)
	}
	return nil
}

// GetRoleGrants returns all currently held role grants
func (d *Store) GetRoleGrants(
	txn types.Txn,
) ([]models.RoleGrant, error) {
	var ret []models.RoleGrant
	db, err := d.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	result := db.Order("id ASC").Find(&ret)
	if result.Error != nil {
		return nil, fmt.Errorf("get role grants: %w", result.Error)
	}
	return ret, nil
}
