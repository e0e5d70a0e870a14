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

// Package testutil provides synchronization helpers for tests that observe
// asynchronous behavior, such as event bus deliveries. They replace ad-hoc
// time.Sleep and select/time.After patterns with deterministic assertions.
package testutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// DefaultPollInterval is the polling interval used by WaitForCondition.
const DefaultPollInterval = 10 * time.Millisecond

// WaitForCondition polls the given condition function until it returns true
// or the timeout expires, failing the test on timeout.
func WaitForCondition(
	t *testing.T,
	condition func() bool,
	timeout time.Duration,
	msg string,
) {
	t.Helper()
	WaitForConditionWithInterval(
		t,
		condition,
		timeout,
		DefaultPollInterval,
		msg,
	)
}

// WaitForConditionWithInterval is like WaitForCondition but allows the
// polling interval to be specified by the caller.
func WaitForConditionWithInterval(
	t *testing.T,
	condition func() bool,
	timeout time.Duration,
	interval time.Duration,
	msg string,
) {
	t.Helper()
	require.Eventually(
		t,
		condition,
		timeout,
		interval,
		msg,
	)
}

// RequireReceive waits for a value on the given channel and returns it,
// failing the test if the timeout expires first.
func RequireReceive[T any](
	t *testing.T,
	ch <-chan T,
	timeout time.Duration,
	msg string,
) T {
	t.Helper()
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case v := <-ch:
		return v
	case <-timer.C:
		t.Fatalf("timed out waiting to receive on channel: %s", msg)
	}
	var zero T
	return zero // unreachable
}

// RequireNoReceive verifies that nothing arrives on the given channel within
// the specified duration. A closed channel counts as a receive, so this is
// only meaningful for channels that remain open.
func RequireNoReceive[T any](
	t *testing.T,
	ch <-chan T,
	duration time.Duration,
	msg string,
) {
	t.Helper()
	timer := time.NewTimer(duration)
	defer timer.Stop()
	select {
	case v := <-ch:
		t.Fatalf("unexpected receive on channel: %v: %s", v, msg)
	case <-timer.C:
		// Nothing arrived, as expected
	}
}

// RequireClosed waits for the channel to be closed, failing the test if a
// value arrives instead or the timeout expires.
func RequireClosed[T any](
	t *testing.T,
	ch <-chan T,
	timeout time.Duration,
	msg string,
) {
	t.Helper()
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case v, ok := <-ch:
		if ok {
			t.Fatalf("received value %v while waiting for close: %s", v, msg)
		}
	case <-timer.C:
		t.Fatalf("timed out waiting for channel close: %s", msg)
	}
}
