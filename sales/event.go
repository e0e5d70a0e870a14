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

package sales

import (
	"github.com/blinklabs-io/civet/event"
	"github.com/blinklabs-io/civet/ledger"
)

const (
	SaleRecordedEventType    event.EventType = "sales.sale_recorded"
	ProductRecalledEventType event.EventType = "sales.product_recalled"
)

// SaleRecordedEvent represents a point-of-sale record for a batch
type SaleRecordedEvent struct {
	BatchID   uint64
	Retailer  ledger.Principal
	SaleMeta  string
	Timestamp int64
}

// ProductRecalledEvent represents a recall flag raised against a batch
type ProductRecalledEvent struct {
	BatchID   uint64
	Reason    string
	Timestamp int64
}
