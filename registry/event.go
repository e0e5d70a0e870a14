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

package registry

import (
	"github.com/blinklabs-io/civet/event"
	"github.com/blinklabs-io/civet/ledger"
)

const (
	ProductRegisteredEventType  event.EventType = "registry.product_registered"
	ProductTransferredEventType event.EventType = "registry.product_transferred"
	ProductBurnedEventType      event.EventType = "registry.product_burned"
)

// ProductRegisteredEvent is emitted once per batch, at registration
type ProductRegisteredEvent struct {
	BatchID      uint64
	ContentHash  ledger.Hash
	MetadataRef  string
	Amount       uint64
	Manufacturer ledger.Principal
}

// ProductTransferredEvent is emitted on balance movements. Mints carry the
// none sentinel as From.
type ProductTransferredEvent struct {
	BatchID uint64
	From    ledger.Principal
	To      ledger.Principal
	Amount  uint64
}

// ProductBurnedEvent is emitted when units are burned from the operator's
// own balance
type ProductBurnedEvent struct {
	BatchID  uint64
	Operator ledger.Principal
	Amount   uint64
}
