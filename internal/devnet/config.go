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

//go:build devnet

package devnet

import (
	"fmt"
	"os"

	"github.com/blinklabs-io/civet/ledger"
	"gopkg.in/yaml.v3"
)

// defaultRosterYAMLPath is the default path to roster.yaml, relative
// to the scenarios test package directory.
const defaultRosterYAMLPath = "../../test/devnet/roster.yaml"

// DevNetRoster names the principals seeded into a fresh devnet node,
// one set per supply chain role. The admin principal is granted ADMIN
// through the node's initial admin configuration; every other entry is
// granted its role through the governance API after startup.
type DevNetRoster struct {
	Admin         string   `yaml:"admin"`
	Manufacturers []string `yaml:"manufacturers"`
	Labs          []string `yaml:"labs"`
	Regulators    []string `yaml:"regulators"`
	Distributors  []string `yaml:"distributors"`
	Retailers     []string `yaml:"retailers"`
}

// RoleGrant pairs a principal with the role it should hold.
type RoleGrant struct {
	Principal string
	Role      ledger.Role
}

// Grants returns the roster flattened into (principal, role) pairs,
// excluding the admin.
func (r *DevNetRoster) Grants() []RoleGrant {
	var grants []RoleGrant
	appendGrants := func(principals []string, role ledger.Role) {
		for _, principal := range principals {
			grants = append(grants, RoleGrant{
				Principal: principal,
				Role:      role,
			})
		}
	}
	appendGrants(r.Manufacturers, ledger.RoleManufacturer)
	appendGrants(r.Labs, ledger.RoleLab)
	appendGrants(r.Regulators, ledger.RoleRegulator)
	appendGrants(r.Distributors, ledger.RoleDistributor)
	appendGrants(r.Retailers, ledger.RoleRetailer)
	return grants
}

// LoadRoster reads roster.yaml and returns the parsed DevNetRoster.
// The path is taken from the DEVNET_ROSTER_YAML environment variable;
// if unset, it defaults to defaultRosterYAMLPath (relative to the test
// package).
func LoadRoster() (*DevNetRoster, error) {
	path := os.Getenv("DEVNET_ROSTER_YAML")
	if path == "" {
		path = defaultRosterYAMLPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf(
			"LoadRoster: reading %s: %w", path, err,
		)
	}

	var roster DevNetRoster
	if err := yaml.Unmarshal(data, &roster); err != nil {
		return nil, fmt.Errorf(
			"LoadRoster: parsing %s: %w", path, err,
		)
	}
	if roster.Admin == "" {
		return nil, fmt.Errorf(
			"LoadRoster: %s does not name an admin principal", path,
		)
	}
	for _, grant := range roster.Grants() {
		if grant.Principal == "" {
			return nil, fmt.Errorf(
				"LoadRoster: %s contains an empty %s principal",
				path, grant.Role,
			)
		}
	}
	return &roster, nil
}
