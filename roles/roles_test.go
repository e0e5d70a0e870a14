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
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/blinklabs-io/civet/database"
	"github.com/blinklabs-io/civet/event"
	"github.com/blinklabs-io/civet/ledger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testAdmin    = ledger.Principal("admin-1")
	testLab      = ledger.Principal("lab-1")
	testOutsider = ledger.Principal("outsider")
)

// newTestDatabase creates an in-memory database for testing
func newTestDatabase(t *testing.T) *database.Database {
	t.Helper()
	db, err := database.New(&database.Config{})
	require.NoError(t, err)
	t.Cleanup(func() {
		db.Close() //nolint:errcheck
	})
	return db
}

// newTestRoleStore creates a role store backed by an in-memory database
func newTestRoleStore(t *testing.T, db *database.Database) *RoleStore {
	t.Helper()
	if db == nil {
		db = newTestDatabase(t)
	}
	s, err := NewRoleStore(RoleStoreConfig{
		Logger:        slog.New(slog.NewJSONHandler(io.Discard, nil)),
		EventBus:      event.NewEventBus(nil, nil),
		PromRegistry:  prometheus.NewRegistry(),
		DB:            db,
		InitialAdmins: []ledger.Principal{testAdmin},
	})
	require.NoError(t, err)
	return s
}

func TestNewRoleStoreSeedsAdmins(t *testing.T) {
	db := newTestDatabase(t)
	s := newTestRoleStore(t, db)
	assert.True(t, s.Authorize(ledger.RoleAdmin, testAdmin))
	assert.False(t, s.Authorize(ledger.RoleAdmin, testOutsider))

	// Seeding writes a membership event to the durable log
	record, err := db.GetEvent(1, nil)
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, string(MemberAddedEventType), record.Type)
	var evt MemberAddedEvent
	require.NoError(t, record.DecodePayload(&evt))
	assert.Equal(t, testAdmin, evt.Principal)
	assert.Equal(t, ledger.RoleAdmin, evt.Role)
}

func TestNewRoleStoreRequiresAdmins(t *testing.T) {
	db := newTestDatabase(t)
	_, err := NewRoleStore(RoleStoreConfig{
		Logger:       slog.New(slog.NewJSONHandler(io.Discard, nil)),
		EventBus:     event.NewEventBus(nil, nil),
		PromRegistry: prometheus.NewRegistry(),
		DB:           db,
	})
	require.Error(t, err)
}

func TestGrantRequiresAdmin(t *testing.T) {
	db := newTestDatabase(t)
	s := newTestRoleStore(t, db)
	seqBefore := db.NextEventSeq()

	err := s.Grant(testOutsider, testLab, ledger.RoleLab)
	require.ErrorIs(t, err, ledger.ErrUnauthorized)
	assert.False(t, s.Authorize(ledger.RoleLab, testLab))

	// A failed grant leaves no trace in the event log
	assert.Equal(t, seqBefore, db.NextEventSeq())
}

func TestGrantIdempotentButAlwaysEmits(t *testing.T) {
	db := newTestDatabase(t)
	s := newTestRoleStore(t, db)
	seqBefore := db.NextEventSeq()

	require.NoError(t, s.Grant(testAdmin, testLab, ledger.RoleLab))
	require.NoError(t, s.Grant(testAdmin, testLab, ledger.RoleLab))
	assert.True(t, s.Authorize(ledger.RoleLab, testLab))

	// Both calls emit even though the second was a no-op grant
	assert.Equal(t, seqBefore+2, db.NextEventSeq())
	assert.Equal(
		t,
		float64(2),
		testutil.ToFloat64(s.metrics.grantsHeld),
	)
}

func TestRevokeAlwaysEmits(t *testing.T) {
	db := newTestDatabase(t)
	s := newTestRoleStore(t, db)
	require.NoError(t, s.Grant(testAdmin, testLab, ledger.RoleLab))
	seqBefore := db.NextEventSeq()

	require.NoError(t, s.Revoke(testAdmin, testLab, ledger.RoleLab))
	assert.False(t, s.Authorize(ledger.RoleLab, testLab))

	// Revoking a role that is not held still emits
	require.NoError(t, s.Revoke(testAdmin, testLab, ledger.RoleLab))
	assert.Equal(t, seqBefore+2, db.NextEventSeq())
}

func TestAdminMayRevokeLastAdmin(t *testing.T) {
	s := newTestRoleStore(t, nil)
	require.NoError(t, s.Revoke(testAdmin, testAdmin, ledger.RoleAdmin))
	assert.False(t, s.Authorize(ledger.RoleAdmin, testAdmin))

	// With no admins left, nobody can grant anymore
	err := s.Grant(testAdmin, testLab, ledger.RoleLab)
	require.ErrorIs(t, err, ledger.ErrUnauthorized)
}

func TestGrantValidation(t *testing.T) {
	s := newTestRoleStore(t, nil)
	err := s.Grant(testAdmin, testLab, ledger.Role("JANITOR"))
	require.ErrorIs(t, err, ledger.ErrInvalidArgument)
	err = s.Grant(testAdmin, ledger.PrincipalNone, ledger.RoleLab)
	require.ErrorIs(t, err, ledger.ErrInvalidArgument)
	err = s.Revoke(testAdmin, testLab, ledger.Role("JANITOR"))
	require.ErrorIs(t, err, ledger.ErrInvalidArgument)
}

func TestGrantPublishesToBus(t *testing.T) {
	db := newTestDatabase(t)
	bus := event.NewEventBus(nil, nil)
	s, err := NewRoleStore(RoleStoreConfig{
		Logger:        slog.New(slog.NewJSONHandler(io.Discard, nil)),
		EventBus:      bus,
		PromRegistry:  prometheus.NewRegistry(),
		DB:            db,
		InitialAdmins: []ledger.Principal{testAdmin},
	})
	require.NoError(t, err)

	subId, ch := bus.Subscribe(MemberAddedEventType)
	defer bus.Unsubscribe(MemberAddedEventType, subId)
	require.NoError(t, s.Grant(testAdmin, testLab, ledger.RoleLab))

	select {
	case evt := <-ch:
		data, ok := evt.Data.(MemberAddedEvent)
		require.True(t, ok)
		assert.Equal(t, testLab, data.Principal)
		assert.Equal(t, ledger.RoleLab, data.Role)
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for membership event")
	}
}

func TestGrantsSurviveRestart(t *testing.T) {
	tmpDir := t.TempDir()
	cfg := &database.Config{DataDir: tmpDir}
	db, err := database.New(cfg)
	require.NoError(t, err)
	s := newTestRoleStoreOn(t, db)
	require.NoError(t, s.Grant(testAdmin, testLab, ledger.RoleLab))
	seqAfterGrant := db.NextEventSeq()
	require.NoError(t, db.Close())

	// Reopen: grants reload and admin seeding skips held grants, so no
	// new membership events appear
	db2, err := database.New(cfg)
	require.NoError(t, err)
	defer db2.Close()
	s2 := newTestRoleStoreOn(t, db2)
	assert.True(t, s2.Authorize(ledger.RoleAdmin, testAdmin))
	assert.True(t, s2.Authorize(ledger.RoleLab, testLab))
	assert.Equal(t, seqAfterGrant, db2.NextEventSeq())
}

// newTestRoleStoreOn creates a role store on a caller-managed database
func newTestRoleStoreOn(t *testing.T, db *database.Database) *RoleStore {
	t.Helper()
	s, err := NewRoleStore(RoleStoreConfig{
		Logger:        slog.New(slog.NewJSONHandler(io.Discard, nil)),
		EventBus:      event.NewEventBus(nil, nil),
		PromRegistry:  prometheus.NewRegistry(),
		DB:            db,
		InitialAdmins: []ledger.Principal{testAdmin},
	})
	require.NoError(t, err)
	return s
}
