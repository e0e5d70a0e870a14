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

// Package devnet provides a test harness for running integration tests
// against a live civet node over its REST API. The harness starts an
// in-process node backed by a temporary data directory, listening on an
// ephemeral localhost port, and provides helper methods for driving the
// API and observing event log growth.
package devnet

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/blinklabs-io/civet"
	"github.com/blinklabs-io/civet/api"
	"github.com/blinklabs-io/civet/ledger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

// DefaultAdmin is the ADMIN principal seeded into the node when no
// roster or option overrides it.
const DefaultAdmin = "root"

// DefaultStartTimeout is how long NewTestHarness waits for the node API
// to begin serving requests.
const DefaultStartTimeout = 30 * time.Second

// TestHarness manages an in-process civet node and provides helper
// methods for driving its REST API and verifying ledger state.
type TestHarness struct {
	t       *testing.T
	node    *civet.Node
	client  *http.Client
	baseUrl string
	admin   string
	runErr  chan error
}

// HarnessOptionFunc configures a TestHarness.
type HarnessOptionFunc func(*TestHarness)

// WithAdmin overrides the ADMIN principal seeded into the node.
func WithAdmin(principal string) HarnessOptionFunc {
	return func(h *TestHarness) {
		h.admin = principal
	}
}

// NewTestHarness starts a civet node and waits for its API to become
// ready. The node is stopped via test cleanup.
func NewTestHarness(
	t *testing.T,
	opts ...HarnessOptionFunc,
) *TestHarness {
	t.Helper()
	h := &TestHarness{
		t: t,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		admin:  DefaultAdmin,
		runErr: make(chan error, 1),
	}
	for _, opt := range opts {
		opt(h)
	}

	listenAddr := freeListenAddress(t)
	h.baseUrl = "http://" + listenAddr

	node, err := civet.New(civet.NewConfig(
		civet.WithDatabasePath(t.TempDir()),
		civet.WithApiListenAddress(listenAddr),
		civet.WithInitialAdmins(ledger.Principal(h.admin)),
		civet.WithShutdownTimeout(10*time.Second),
		civet.WithPrometheusRegistry(prometheus.NewRegistry()),
	))
	require.NoError(t, err, "failed to create node")
	h.node = node

	go func() {
		h.runErr <- node.Run(context.Background())
	}()
	t.Cleanup(func() {
		if err := h.node.Stop(); err != nil {
			t.Logf("node stop: %v", err)
		}
		if err := <-h.runErr; err != nil {
			t.Errorf("node run: %v", err)
		}
	})

	h.WaitForReady(DefaultStartTimeout)
	return h
}

// Admin returns the ADMIN principal seeded into the node.
func (h *TestHarness) Admin() string {
	return h.admin
}

// BaseUrl returns the base URL of the node API.
func (h *TestHarness) BaseUrl() string {
	return h.baseUrl
}

// WaitForReady polls the API root endpoint until the node responds
// successfully or the timeout expires.
func (h *TestHarness) WaitForReady(timeout time.Duration) {
	h.t.Helper()
	require.Eventually(h.t, func() bool {
		resp, err := h.client.Get(h.baseUrl + "/")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, timeout, 200*time.Millisecond,
		"node API did not become ready within %s", timeout,
	)
}

// Get performs a GET request against the node API, decoding the JSON
// response body into out when it is non-nil and the request succeeded.
// It returns the HTTP status code.
func (h *TestHarness) Get(path string, out any) int {
	h.t.Helper()
	resp, err := h.client.Get(h.baseUrl + path)
	require.NoError(h.t, err, "GET %s", path)
	return h.finishRequest(resp, out)
}

// Do performs a request with an optional JSON body and the given caller
// identity in the principal header, decoding the JSON response body
// into out when it is non-nil and the request succeeded. It returns the
// HTTP status code.
func (h *TestHarness) Do(
	method string,
	path string,
	caller string,
	body any,
	out any,
) int {
	h.t.Helper()
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(h.t, err, "marshal %s %s request", method, path)
		reqBody = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, h.baseUrl+path, reqBody)
	require.NoError(h.t, err, "build %s %s request", method, path)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if caller != "" {
		req.Header.Set(api.PrincipalHeader, caller)
	}
	resp, err := h.client.Do(req)
	require.NoError(h.t, err, "%s %s", method, path)
	return h.finishRequest(resp, out)
}

func (h *TestHarness) finishRequest(resp *http.Response, out any) int {
	h.t.Helper()
	defer resp.Body.Close()
	if out != nil && resp.StatusCode < http.StatusMultipleChoices {
		require.NoError(
			h.t,
			json.NewDecoder(resp.Body).Decode(out),
			"decode response body",
		)
	}
	return resp.StatusCode
}

// SeedRoster grants every role in the roster through the governance
// API, using the harness admin as the caller.
func (h *TestHarness) SeedRoster(roster *DevNetRoster) {
	h.t.Helper()
	for _, grant := range roster.Grants() {
		status := h.Do(
			http.MethodPost,
			"/v0/governance/members",
			h.admin,
			api.MemberRequest{
				Principal: grant.Principal,
				Role:      string(grant.Role),
			},
			nil,
		)
		require.Equal(h.t, http.StatusNoContent, status,
			"failed to grant %s to %s", grant.Role, grant.Principal,
		)
	}
}

// LatestEventSeq pages through the event log and returns the sequence
// number of the newest record, or zero when the log is empty.
func (h *TestHarness) LatestEventSeq() (uint64, error) {
	var latest uint64
	from := uint64(1)
	for {
		url := fmt.Sprintf(
			"%s/v0/events?from=%d&count=%d",
			h.baseUrl, from, api.MaxEventCount,
		)
		resp, err := h.client.Get(url)
		if err != nil {
			return 0, fmt.Errorf(
				"failed to fetch events from seq %d: %w", from, err,
			)
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return 0, fmt.Errorf(
				"unexpected status %d fetching events from seq %d",
				resp.StatusCode, from,
			)
		}
		var events []api.EventResponse
		err = json.NewDecoder(resp.Body).Decode(&events)
		resp.Body.Close()
		if err != nil {
			return 0, fmt.Errorf(
				"failed to decode events response: %w", err,
			)
		}
		if len(events) == 0 {
			return latest, nil
		}
		latest = events[len(events)-1].Seq
		from = latest + 1
	}
}

// WaitForEventSeq polls the event log until the newest record reaches
// the target sequence number, or the timeout expires.
func (h *TestHarness) WaitForEventSeq(
	targetSeq uint64,
	timeout time.Duration,
) {
	h.t.Helper()
	require.Eventually(h.t, func() bool {
		latest, err := h.LatestEventSeq()
		if err != nil {
			h.t.Logf("WaitForEventSeq: %v", err)
			return false
		}
		h.t.Logf("WaitForEventSeq: event log at seq %d", latest)
		return latest >= targetSeq
	}, timeout, 200*time.Millisecond,
		"event log did not reach seq %d within %s", targetSeq, timeout,
	)
}

// FetchEvents retrieves up to count event log records starting at
// fromSeq.
func (h *TestHarness) FetchEvents(
	fromSeq uint64,
	count int,
) []api.EventResponse {
	h.t.Helper()
	var events []api.EventResponse
	status := h.Get(
		fmt.Sprintf("/v0/events?from=%d&count=%d", fromSeq, count),
		&events,
	)
	require.Equal(h.t, http.StatusOK, status,
		"failed to fetch events from seq %d", fromSeq,
	)
	return events
}

// VerifyEventLogContinuity fetches the full event log and checks that
// sequence numbers start at 1 and increase without gaps, and that every
// record carries an event type and a timestamp. It returns the sequence
// number of the newest record.
func (h *TestHarness) VerifyEventLogContinuity() uint64 {
	h.t.Helper()
	var lastSeq uint64
	for {
		events := h.FetchEvents(lastSeq+1, api.MaxEventCount)
		if len(events) == 0 {
			break
		}
		for _, evt := range events {
			require.Equal(h.t, lastSeq+1, evt.Seq,
				"event log gap: expected seq %d, got %d",
				lastSeq+1, evt.Seq,
			)
			require.NotEmpty(h.t, evt.Type,
				"event seq %d has an empty type", evt.Seq,
			)
			require.NotZero(h.t, evt.Timestamp,
				"event seq %d has a zero timestamp", evt.Seq,
			)
			lastSeq = evt.Seq
		}
	}
	return lastSeq
}

// freeListenAddress reserves an ephemeral localhost port and returns it
// as a host:port listen address. The listener is closed before
// returning so the node can bind the same port.
func freeListenAddress(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err, "failed to reserve listen port")
	addr := ln.Addr().String()
	require.NoError(t, ln.Close(), "failed to release listen port")
	return addr
}
