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
	"github.com/blinklabs-io/civet/event"
	"github.com/blinklabs-io/civet/ledger"
)

const (
	MemberAddedEventType   event.EventType = "roles.member_added"
	MemberRemovedEventType event.EventType = "roles.member_removed"
)

// MemberAddedEvent is emitted on every successful grant, including
// re-grants of a role the principal already holds
type MemberAddedEvent struct {
	Principal ledger.Principal
	Role      ledger.Role
}

// MemberRemovedEvent is emitted on every successful revoke, including
// revokes of a role the principal does not hold
type MemberRemovedEvent struct {
	Principal ledger.Principal
	Role      ledger.Role
}
