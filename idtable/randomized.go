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

import (
	"math/rand"
	"sync"

	"github.com/dnslb/lbcore/internal"
)

// randomDraws is the number of candidate ids Save tries before it gives
// up and forcibly evicts the last candidate.
const randomDraws = 5

// Randomized is the id-multiplexer mode selected when a process wants ids
// to be unguessable to an off-path attacker trying to spoof UDP
// responses, at the cost of an occasional forced eviction under load.
type Randomized struct {
	mu      sync.Mutex
	entries map[uint16]*randEntry
	rnd     *rand.Rand
}

type randEntry struct {
	age int32
	ctx any
}

// NewRandomized creates an empty Randomized table.
func NewRandomized() *Randomized {
	return &Randomized{
		entries: make(map[uint16]*randEntry),
		rnd:     internal.NewLockedRand(),
	}
}

func (t *Randomized) Save(ctx any) (uint16, any, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var lastCandidate uint16
	for i := 0; i < randomDraws; i++ {
		candidate := uint16(t.rnd.Intn(1 << 16)) //nolint:gosec // not cryptographic, just avoiding wire-id collisions
		lastCandidate = candidate
		if _, occupied := t.entries[candidate]; !occupied {
			t.entries[candidate] = &randEntry{ctx: ctx}
			return candidate, nil, false
		}
	}
	// All draws collided; evict the last candidate rather than
	// retrying indefinitely.
	evicted := t.entries[lastCandidate].ctx
	t.entries[lastCandidate] = &randEntry{ctx: ctx}
	return lastCandidate, evicted, true
}

func (t *Randomized) Restore(id uint16, ctx any) (any, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, occupied := t.entries[id]; occupied {
		return ctx, true
	}
	t.entries[id] = &randEntry{ctx: ctx}
	return nil, false
}

func (t *Randomized) Get(id uint16) (any, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	entry, ok := t.entries[id]
	if !ok {
		return nil, false
	}
	delete(t.entries, id)
	return entry.ctx, true
}

func (t *Randomized) Expire(ageLimit int32) []Expired {
	t.mu.Lock()
	defer t.mu.Unlock()
	var expired []Expired
	for id, entry := range t.entries {
		entry.age++
		if entry.age > ageLimit {
			expired = append(expired, Expired{ID: id, Context: entry.ctx})
			delete(t.entries, id)
		}
	}
	return expired
}

func (t *Randomized) Outstanding() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}
