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

package governance

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/blinklabs-io/civet/database"
	"github.com/blinklabs-io/civet/database/models"
	"github.com/blinklabs-io/civet/event"
	"github.com/blinklabs-io/civet/ledger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MembershipAdmin is the role mutation surface the facade passes through to.
// The admin gate lives behind this interface, not in the facade.
type MembershipAdmin interface {
	Grant(
		admin ledger.Principal,
		principal ledger.Principal,
		role ledger.Role,
	) error
	Revoke(
		admin ledger.Principal,
		principal ledger.Principal,
		role ledger.Role,
	) error
}

type GovernanceFacadeConfig struct {
	PromRegistry prometheus.Registerer
	Logger       *slog.Logger
	EventBus     *event.EventBus
	DB           *database.Database
	Authorizer   ledger.Authorizer
	Membership   MembershipAdmin
}

// GovernanceFacade is the administrative entry point. Membership changes
// pass through to the role store; the policy pointer is a single hash that
// each update overwrites in place.
type GovernanceFacade struct {
	config  GovernanceFacadeConfig
	metrics struct {
		policyUpdates prometheus.Counter
	}
	logger     *slog.Logger
	eventBus   *event.EventBus
	db         *database.Database
	authorizer ledger.Authorizer
	membership MembershipAdmin
	sync.Mutex
}

// PolicyInfo is the read-side view of the current policy pointer
type PolicyInfo struct {
	PolicyHash ledger.Hash
	UpdatedAt  int64
}

func NewGovernanceFacade(
	config GovernanceFacadeConfig,
) (*GovernanceFacade, error) {
	if config.DB == nil {
		return nil, errors.New("database is required")
	}
	if config.EventBus == nil {
		return nil, errors.New("event bus is required")
	}
	if config.Authorizer == nil {
		return nil, errors.New("authorizer is required")
	}
	if config.Membership == nil {
		return nil, errors.New("membership admin is required")
	}
	g := &GovernanceFacade{
		config:     config,
		eventBus:   config.EventBus,
		db:         config.DB,
		authorizer: config.Authorizer,
		membership: config.Membership,
	}
	if config.Logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		g.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	} else {
		g.logger = config.Logger
	}
	// Init metrics
	promautoFactory := promauto.With(config.PromRegistry)
	g.metrics.policyUpdates = promautoFactory.NewCounter(
		prometheus.CounterOpts{
			Name: "civet_governance_policy_updates_total",
			Help: "total policy pointer updates",
		},
	)
	return g, nil
}

// AddMember grants a role to a principal. The role store enforces the admin
// gate and emits the membership event.
func (g *GovernanceFacade) AddMember(
	caller ledger.Principal,
	principal ledger.Principal,
	role ledger.Role,
) error {
	return g.membership.Grant(caller, principal, role)
}

// RemoveMember revokes a role from a principal. The role store enforces the
// admin gate and emits the membership event.
func (g *GovernanceFacade) RemoveMember(
	caller ledger.Principal,
	principal ledger.Principal,
	role ledger.Role,
) error {
	return g.membership.Revoke(caller, principal, role)
}

// SetPolicy overwrites the policy pointer with a new hash. The previous
// value is not retained in live state.
func (g *GovernanceFacade) SetPolicy(
	caller ledger.Principal,
	policyHash ledger.Hash,
) error {
	if !g.authorizer.Authorize(ledger.RoleAdmin, caller) {
		return ledger.NewUnauthorizedError(
			caller,
			ledger.RoleAdmin,
			"set policy",
		)
	}
	g.Lock()
	defer g.Unlock()
	evt := PolicyUpdatedEvent{
		PolicyHash: policyHash,
	}
	txn := g.db.Transaction(true)
	err := txn.Do(func(txn *database.Txn) error {
		policy := models.Policy{
			ID:         models.PolicyRowID,
			PolicyHash: policyHash.Bytes(),
			UpdatedAt:  time.Now().UnixMilli(),
		}
		if err := g.db.SetPolicy(policy, txn); err != nil {
			return err
		}
		if _, err := g.db.AppendEvent(
			string(PolicyUpdatedEventType),
			evt,
			txn,
		); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("set policy: %w", err)
	}
	g.metrics.policyUpdates.Inc()
	g.logger.Info(
		"updated policy",
		"component", "governance",
		"policy_hash", policyHash.String(),
		"admin", caller.String(),
	)
	g.eventBus.Publish(
		PolicyUpdatedEventType,
		event.NewEvent(PolicyUpdatedEventType, evt),
	)
	return nil
}

// GetPolicy returns the current policy pointer, or nil when no policy has
// been set
func (g *GovernanceFacade) GetPolicy() (*PolicyInfo, error) {
	policy, err := g.db.GetPolicy(nil)
	if err != nil {
		return nil, fmt.Errorf("get policy: %w", err)
	}
	if policy == nil {
		return nil, nil
	}
	policyHash, err := ledger.NewHash(policy.PolicyHash)
	if err != nil {
		return nil, fmt.Errorf("get policy: %w", err)
	}
	return &PolicyInfo{
		PolicyHash: policyHash,
		UpdatedAt:  policy.UpdatedAt,
	}, nil
}
