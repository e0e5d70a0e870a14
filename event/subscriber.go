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

package event

import (
	"fmt"
	"sync"
)

// Subscriber receives events published on an EventBus. Subscribe wraps its
// channel in one, and RegisterSubscriber accepts external implementations
// that forward events elsewhere. Close must be idempotent, since the bus
// may close a subscriber both on Unsubscribe and on Stop.
type Subscriber interface {
	Deliver(Event) error
	Close()
}

// channelSubscriber adapts a buffered channel to the Subscriber interface.
// Deliver blocks once the buffer fills, which is what gives Publish its
// per-subscriber backpressure.
type channelSubscriber struct {
	ch     chan Event
	mu     sync.RWMutex
	closed bool
}

func newChannelSubscriber(buffer int) *channelSubscriber {
	return &channelSubscriber{
		ch: make(chan Event, buffer),
	}
}

// Deliver sends the event on the channel. Events arriving after Close are
// dropped without error
func (c *channelSubscriber) Deliver(evt Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("channel deliver panic: %v", r)
		}
	}()

	// The read lock is held for the whole send so that Close waits for
	// in-flight deliveries before closing the channel
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return nil
	}
	c.ch <- evt
	return nil
}

// Close closes the channel so receivers and SubscribeFunc goroutines
// observe end of stream
func (c *channelSubscriber) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.ch)
}
