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

package roles

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/blinklabs-io/civet/database"
	"github.com/blinklabs-io/civet/database/models"
	"github.com/blinklabs-io/civet/event"
	"github.com/blinklabs-io/civet/ledger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type RoleStoreConfig struct {
	PromRegistry  prometheus.Registerer
	Logger        *slog.Logger
	EventBus      *event.EventBus
	DB            *database.Database
	InitialAdmins []ledger.Principal
}

// RoleStore tracks which principals hold which roles. It is the leaf
// dependency for every other component: they gate mutations on Authorize.
// Grants are held in memory for lookup and persisted through the database
// so they survive restart.
type RoleStore struct {
	config  RoleStoreConfig
	metrics struct {
		grantsProcessed  prometheus.Counter
		revokesProcessed prometheus.Counter
		grantsHeld       prometheus.Gauge
	}
	logger   *slog.Logger
	eventBus *event.EventBus
	db       *database.Database
	grants   map[ledger.Role]map[ledger.Principal]struct{}
	sync.RWMutex
}

func NewRoleStore(config RoleStoreConfig) (*RoleStore, error) {
	if config.DB == nil {
		return nil, errors.New("database is required")
	}
	if config.EventBus == nil {
		return nil, errors.New("event bus is required")
	}
	s := &RoleStore{
		config:   config,
		eventBus: config.EventBus,
		db:       config.DB,
		grants:   make(map[ledger.Role]map[ledger.Principal]struct{}),
	}
	if config.Logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		s.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	} else {
		s.logger = config.Logger
	}
	// Init metrics
	promautoFactory := promauto.With(config.PromRegistry)
	s.metrics.grantsProcessed = promautoFactory.NewCounter(
		prometheus.CounterOpts{
			Name: "civet_roles_grants_total",
			Help: "total role grant operations processed",
		},
	)
	s.metrics.revokesProcessed = promautoFactory.NewCounter(
		prometheus.CounterOpts{
			Name: "civet_roles_revokes_total",
			Help: "total role revoke operations processed",
		},
	)
	s.metrics.grantsHeld = promautoFactory.NewGauge(prometheus.GaugeOpts{
		Name: "civet_roles_grants_held",
		Help: "current count of held role grants",
	})
	// Load persisted grants
	if err := s.load(); err != nil {
		return nil, err
	}
	// Seed configured admins
	if err := s.seedAdmins(config.InitialAdmins); err != nil {
		return nil, err
	}
	// The store is unusable without at least one admin, since only admins
	// can grant roles
	if len(s.grants[ledger.RoleAdmin]) == 0 {
		return nil, errors.New(
			"no ADMIN principals held or configured",
		)
	}
	return s, nil
}

// load populates the in-memory grant map from the metadata store
func (s *RoleStore) load() error {
	grants, err := s.db.GetRoleGrants(nil)
	if err != nil {
		return fmt.Errorf("load role grants: %w", err)
	}
	for _, grant := range grants {
		role := ledger.Role(grant.Role)
		principal := ledger.Principal(grant.Principal)
		if s.grants[role] == nil {
			s.grants[role] = make(map[ledger.Principal]struct{})
		}
		s.grants[role][principal] = struct{}{}
	}
	s.metrics.grantsHeld.Set(float64(len(grants)))
	s.logger.Debug(
		"loaded role grants",
		"component", "roles",
		"count", len(grants),
	)
	return nil
}

// seedAdmins grants ADMIN to the configured principals. Principals already
// holding ADMIN from a previous run are skipped so restarts do not emit
// duplicate membership events.
func (s *RoleStore) seedAdmins(admins []ledger.Principal) error {
	for _, admin := range admins {
		if admin.IsNone() {
			return fmt.Errorf(
				"%w: empty principal in initial admins",
				ledger.ErrInvalidArgument,
			)
		}
		if s.Authorize(ledger.RoleAdmin, admin) {
			continue
		}
		if err := s.addGrant(admin, ledger.RoleAdmin); err != nil {
			return fmt.Errorf("seed admin %s: %w", admin, err)
		}
		s.logger.Info(
			"seeded initial admin",
			"component", "roles",
			"principal", admin.String(),
		)
	}
	return nil
}

// Authorize reports whether the principal currently holds the role. Pure
// lookup with no side effects.
func (s *RoleStore) Authorize(
	role ledger.Role,
	principal ledger.Principal,
) bool {
	s.RLock()
	defer s.RUnlock()
	_, ok := s.grants[role][principal]
	return ok
}

// Grant gives a role to a principal. Only admins may grant. Granting a role
// that is already held succeeds as a no-op, but the membership event is
// emitted on every call.
func (s *RoleStore) Grant(
	admin ledger.Principal,
	principal ledger.Principal,
	role ledger.Role,
) error {
	if !role.Valid() {
		return fmt.Errorf(
			"%w: unknown role %s",
			ledger.ErrInvalidArgument,
			role,
		)
	}
	if principal.IsNone() {
		return fmt.Errorf("%w: empty principal", ledger.ErrInvalidArgument)
	}
	if !s.Authorize(ledger.RoleAdmin, admin) {
		return ledger.NewUnauthorizedError(admin, ledger.RoleAdmin, "grant")
	}
	if err := s.addGrant(principal, role); err != nil {
		return err
	}
	s.logger.Debug(
		"granted role",
		"component", "roles",
		"role", role.String(),
		"principal", principal.String(),
		"admin", admin.String(),
	)
	return nil
}

// addGrant persists a grant and its membership event atomically, then
// updates the in-memory map and publishes to the bus
func (s *RoleStore) addGrant(
	principal ledger.Principal,
	role ledger.Role,
) error {
	s.Lock()
	defer s.Unlock()
	evt := MemberAddedEvent{Principal: principal, Role: role}
	txn := s.db.Transaction(true)
	err := txn.Do(func(txn *database.Txn) error {
		grant := models.RoleGrant{
			Principal: string(principal),
			Role:      string(role),
		}
		if err := s.db.AddRoleGrant(grant, txn); err != nil {
			return err
		}
		if _, err := s.db.AppendEvent(
			string(MemberAddedEventType),
			evt,
			txn,
		); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("grant role: %w", err)
	}
	if s.grants[role] == nil {
		s.grants[role] = make(map[ledger.Principal]struct{})
	}
	if _, held := s.grants[role][principal]; !held {
		s.grants[role][principal] = struct{}{}
		s.metrics.grantsHeld.Inc()
	}
	s.metrics.grantsProcessed.Inc()
	s.eventBus.Publish(
		MemberAddedEventType,
		event.NewEvent(MemberAddedEventType, evt),
	)
	return nil
}

// Revoke removes a role from a principal. Only admins may revoke. Revoking
// a role that is not held succeeds as a no-op, but the membership event is
// emitted on every call. An admin may revoke the last admin, including
// itself.
func (s *RoleStore) Revoke(
	admin ledger.Principal,
	principal ledger.Principal,
	role ledger.Role,
) error {
	if !role.Valid() {
		return fmt.Errorf(
			"%w: unknown role %s",
			ledger.ErrInvalidArgument,
			role,
		)
	}
	if principal.IsNone() {
		return fmt.Errorf("%w: empty principal", ledger.ErrInvalidArgument)
	}
	if !s.Authorize(ledger.RoleAdmin, admin) {
		return ledger.NewUnauthorizedError(admin, ledger.RoleAdmin, "revoke")
	}
	s.Lock()
	defer s.Unlock()
	evt := MemberRemovedEvent{Principal: principal, Role: role}
	txn := s.db.Transaction(true)
	err := txn.Do(func(txn *database.Txn) error {
		if err := s.db.DeleteRoleGrant(
			string(principal),
			string(role),
			txn,
		); err != nil {
			return err
		}
		if _, err := s.db.AppendEvent(
			string(MemberRemovedEventType),
			evt,
			txn,
		); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("revoke role: %w", err)
	}
	if _, held := s.grants[role][principal]; held {
		delete(s.grants[role], principal)
		if len(s.grants[role]) == 0 {
			delete(s.grants, role)
		}
		s.metrics.grantsHeld.Dec()
	}
	s.metrics.revokesProcessed.Inc()
	s.logger.Debug(
		"revoked role",
		"component", "roles",
		"role", role.String(),
		"principal", principal.String(),
		"admin", admin.String(),
	)
	s.eventBus.Publish(
		MemberRemovedEventType,
		event.NewEvent(MemberRemovedEventType, evt),
	)
	return nil
}
