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

package civet

import (
	"context"
	"testing"
	"time"

	"github.com/blinklabs-io/civet/event"
	"github.com/blinklabs-io/civet/ledger"
	"github.com/blinklabs-io/civet/roles"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNodeDefaultEventBus(t *testing.T) {
	n, err := New(NewConfig(
		WithInitialAdmins("root"),
	))
	require.NoError(t, err)
	assert.NotNil(t, n.EventBus())
	t.Cleanup(func() {
		_ = n.Stop()
	})
}

func TestWithEventBus(t *testing.T) {
	bus := event.NewEventBus(nil, nil)
	n, err := New(NewConfig(
		WithEventBus(bus),
		WithInitialAdmins("root"),
	))
	require.NoError(t, err)
	assert.Same(t, bus, n.EventBus())
	t.Cleanup(func() {
		_ = n.Stop()
	})
}

func TestNodeEventBusDeliversToHostSubscriber(t *testing.T) {
	bus := event.NewEventBus(nil, nil)
	n, err := New(NewConfig(
		WithEventBus(bus),
		WithApiListenAddress("127.0.0.1:0"),
		WithInitialAdmins("root"),
		WithPrometheusRegistry(prometheus.NewRegistry()),
		WithShutdownTimeout(10*time.Second),
	))
	require.NoError(t, err)

	// Attach before Run so the admin seeding event is observed
	_, ch := bus.Subscribe(roles.MemberAddedEventType)

	runErr := make(chan error, 1)
	go func() {
		runErr <- n.Run(context.Background())
	}()
	t.Cleanup(func() {
		require.NoError(t, n.Stop())
		require.NoError(t, <-runErr)
	})

	select {
	case evt := <-ch:
		data, ok := evt.Data.(roles.MemberAddedEvent)
		require.True(t, ok)
		assert.Equal(t, ledger.Principal("root"), data.Principal)
		assert.Equal(t, ledger.RoleAdmin, data.Role)
	case <-time.After(10 * time.Second):
		t.Fatal("timeout waiting for membership event from node bus")
	}
}
