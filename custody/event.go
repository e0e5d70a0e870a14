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

package custody

import (
	"github.com/blinklabs-io/civet/event"
	"github.com/blinklabs-io/civet/ledger"
)

const (
	TransferRecordedEventType event.EventType = "custody.transfer_recorded"
)

// TransferRecordedEvent represents an appended custody trail entry. Approval
// records carry the none sentinel as From and the literal location
// "Approved".
type TransferRecordedEvent struct {
	BatchID   uint64
	From      ledger.Principal
	To        ledger.Principal
	Location  string
	Timestamp int64
}
