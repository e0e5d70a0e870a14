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

// RoleGrant records that a principal currently holds a role. A grant exists
// while the role is held and is removed on revocation; the event log carries
// the full grant/revoke history.
type RoleGrant struct {
	ID        uint   `gorm:"primarykey"`
	Principal string `gorm:"size:255;not null;uniqueIndex:uniq_principal_role"`
	Role      string `gorm:"size:32;not null;uniqueIndex:uniq_principal_role;index"`
}

func (RoleGrant) TableName() string {
	return "role_grant"
}
