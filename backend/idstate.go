// Copyright 2023-2026 Buf Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package backend

// TimeoutHandler is invoked once per query context that ages out under
// handleUDPTimeouts. The router installs this to turn a dropped UDP
// query into whatever failure response its callers expect; the backend
// package itself has no opinion on wire format.
type TimeoutHandler func(queryContext any)

// SaveState stores queryContext under a freshly allocated 16-bit id. The
// caller is expected to have already advanced outstanding via
// RecordQuery. A collision evicts whatever the winning slot previously
// held: that evicted context, not the one being saved, is what times
// out, retired the same way handleUDPTimeouts retires an aged-out slot.
func (b *Backend) SaveState(queryContext any) uint16 {
	id, evicted, reused := b.ids.Save(queryContext)
	if reused {
		b.retireEvicted(evicted)
	}
	return id
}

// RestoreState places queryContext back into slot id if free. If the
// slot is occupied or id is out of range, queryContext itself never
// makes it into the table, and is retired as a synthesized timeout in
// its place.
func (b *Backend) RestoreState(id uint16, queryContext any) {
	if evicted, reused := b.ids.Restore(id, queryContext); reused {
		b.retireEvicted(evicted)
	}
}

// retireEvicted accounts for a query context that will never be observed
// by GetState or expiry: it counts as a reuse, retires the outstanding
// slot RecordQuery advanced for it, and hands it to the installed
// TimeoutHandler, if any, as a synthesized timeout.
func (b *Backend) retireEvicted(queryContext any) {
	b.reuseds.Add(1)
	if b.outstanding.Add(-1) < 0 {
		b.outstanding.Store(0)
	}
	if b.onTimeout != nil {
		b.onTimeout(queryContext)
	}
}

// GetState returns and clears the query context stored at id, or
// ok=false if the slot was empty or out of range. The caller is expected
// to follow a hit with RecordResponse, which retires the outstanding
// count RecordQuery advanced when the query was first dispatched.
func (b *Backend) GetState(id uint16) (queryContext any, ok bool) {
	return b.ids.Get(id)
}

// handleUDPTimeouts scans the id table, aging every occupied slot by
// one and reclaiming any whose age now exceeds the configured UDP
// timeout (expressed in ticks of the 1-second worker loop).
func (b *Backend) handleUDPTimeouts() {
	ageLimit := int32(b.cfg.UDPTimeout / tickInterval)
	if ageLimit < 1 {
		ageLimit = 1
	}
	expired := b.ids.Expire(ageLimit)
	for _, e := range expired {
		b.retireEvicted(e.Context)
	}
}

// SetTimeoutHandler installs the callback handleUDPTimeouts invokes for
// each reclaimed slot.
func (b *Backend) SetTimeoutHandler(h TimeoutHandler) {
	b.onTimeout = h
}
