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

package idtable

import "sync"

// Sequential is the default id-multiplexer mode: a fixed vector of N
// slots, allocated by a monotonically advancing offset. This favors
// predictable id reuse over collision resistance, which is fine for a
// single upstream socket where ids only need to be unique among
// currently-outstanding queries.
type Sequential struct {
	slots  []seqSlot
	offset uint64
	// mu guards offset only; each slot has its own guard for its own
	// try-acquire semantics.
	mu sync.Mutex
}

type seqSlot struct {
	mu    sync.Mutex
	inUse bool
	age   int32
	ctx   any
}

// NewSequential creates a Sequential table with size slots, indexed
// 0..size-1. size should equal maxUDPOutstanding for the owning backend.
func NewSequential(size int) *Sequential {
	return &Sequential{slots: make([]seqSlot, size)}
}

func (t *Sequential) nextOffset() uint64 {
	t.mu.Lock()
	o := t.offset
	t.offset++
	t.mu.Unlock()
	return o
}

// Save implements Table. It walks the slot vector starting from the next
// offset, try-locking each slot in turn rather than blocking on a busy
// one. A full pass with no free lock only happens when the table is
// saturated with concurrent callers; in that case it blocks on the
// original candidate slot and reclaims it, counted as a reuse and
// returning whatever context that slot held.
func (t *Sequential) Save(ctx any) (uint16, any, bool) {
	n := len(t.slots)
	start := t.nextOffset()
	for i := 0; i < n; i++ {
		idx := int((start + uint64(i)) % uint64(n))
		slot := &t.slots[idx]
		if !slot.mu.TryLock() {
			continue
		}
		reused := slot.inUse
		var evicted any
		if reused {
			evicted = slot.ctx
		}
		slot.inUse = true
		slot.age = 0
		slot.ctx = ctx
		slot.mu.Unlock()
		return uint16(idx), evicted, reused //nolint:gosec // idx < n <= math.MaxUint16 by construction
	}
	// Every slot is currently locked by a concurrent Save/Get/Expire; fall
	// back to blocking on the original candidate so the call still makes
	// progress instead of dropping the query silently.
	idx := int(start % uint64(n))
	slot := &t.slots[idx]
	slot.mu.Lock()
	reused := slot.inUse
	var evicted any
	if reused {
		evicted = slot.ctx
	}
	slot.inUse = true
	slot.age = 0
	slot.ctx = ctx
	slot.mu.Unlock()
	return uint16(idx), evicted, reused //nolint:gosec
}

func (t *Sequential) Restore(id uint16, ctx any) (any, bool) {
	if int(id) >= len(t.slots) {
		return ctx, true
	}
	slot := &t.slots[id]
	if !slot.mu.TryLock() {
		return ctx, true
	}
	defer slot.mu.Unlock()
	if slot.inUse {
		return ctx, true
	}
	slot.inUse = true
	slot.age = 0
	slot.ctx = ctx
	return nil, false
}

func (t *Sequential) Get(id uint16) (any, bool) {
	if int(id) >= len(t.slots) {
		return nil, false
	}
	slot := &t.slots[id]
	slot.mu.Lock()
	defer slot.mu.Unlock()
	if !slot.inUse {
		return nil, false
	}
	ctx := slot.ctx
	slot.inUse = false
	slot.ctx = nil
	return ctx, true
}

func (t *Sequential) Expire(ageLimit int32) []Expired {
	var expired []Expired
	for i := range t.slots {
		slot := &t.slots[i]
		slot.mu.Lock()
		if slot.inUse {
			slot.age++
			if slot.age > ageLimit {
				expired = append(expired, Expired{ID: uint16(i), Context: slot.ctx}) //nolint:gosec
				slot.inUse = false
				slot.ctx = nil
			}
		}
		slot.mu.Unlock()
	}
	return expired
}

func (t *Sequential) Outstanding() int {
	n := 0
	for i := range t.slots {
		slot := &t.slots[i]
		slot.mu.Lock()
		if slot.inUse {
			n++
		}
		slot.mu.Unlock()
	}
	return n
}
