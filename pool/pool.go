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

// Package pool implements ServerPool: a named, ordered set of backends
// plus the consistency flags derived from their configuration, using
// stable ordering with renumbered ordinals on every membership change,
// generalized here to backends with an explicit order/priority rather
// than resolver-determined order.
package pool

import (
	"sort"
	"sync"

	"github.com/dnslb/lbcore/policy"
)

// Member is everything a ServerPool needs from a backend: the policy.Backend
// view (so the pool can hand its ordered vector straight to a policy
// Factory) plus the three configuration flags that feed the pool-wide
// consistency computation.
type Member interface {
	policy.Backend
	UsesECS() bool
	ZeroScope() bool
	TCPOnly() bool
}

// Entry pairs a pool member with its current 1-based ordinal.
type Entry struct {
	Ordinal int
	Member  Member
}

// Pool is a named, ordered set of backends.
type Pool struct {
	name string

	mu sync.RWMutex
	// +checklocks:mu
	entries []Entry
	// +checklocks:mu
	useECS bool
	// +checklocks:mu
	zeroScope bool
	// +checklocks:mu
	tcpOnly bool
	// +checklocks:mu
	isConsistent bool
	// +checklocks:mu
	version uint64
}

// New creates an empty, named pool.
func New(name string) *Pool {
	return &Pool{name: name}
}

// Name returns the pool's configured name.
func (p *Pool) Name() string {
	return p.name
}

// AddServer appends a backend to the pool, then stable-sorts by
// configured order and renumbers ordinals from 1, keeping ordinals a
// contiguous 1..n sequence at all times.
func (p *Pool) AddServer(member Member) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.entries = append(p.entries, Entry{Member: member})
	p.resortAndRenumberLocked()
	p.updateConsistencyLocked()
	p.version++
}

// RemoveServer removes a backend by identity (not by value equality of
// the whole Entry, since ordinals are reassigned on every mutation) and
// renumbers the remaining entries. Consistency flags are only
// recomputed if the pool was previously consistent.
func (p *Pool) RemoveServer(member Member) {
	p.mu.Lock()
	defer p.mu.Unlock()

	wasConsistent := p.isConsistent
	filtered := p.entries[:0:0]
	for _, e := range p.entries {
		if e.Member == member {
			continue
		}
		filtered = append(filtered, e)
	}
	p.entries = filtered
	p.renumberLocked()
	if wasConsistent {
		p.updateConsistencyLocked()
	}
	p.version++
}

// Version returns a counter that advances on every AddServer/RemoveServer
// call. Callers that cache a policy.Selector built from Candidates() can
// compare Version before and after to know whether the cache is stale,
// without re-hashing the candidate vector on every query.
func (p *Pool) Version() uint64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.version
}

// +checklocks:p.mu
func (p *Pool) resortAndRenumberLocked() {
	sort.SliceStable(p.entries, func(i, j int) bool {
		return p.entries[i].Member.Order() < p.entries[j].Member.Order()
	})
	p.renumberLocked()
}

// +checklocks:p.mu
func (p *Pool) renumberLocked() {
	for i := range p.entries {
		p.entries[i].Ordinal = i + 1
	}
}

// +checklocks:p.mu
func (p *Pool) updateConsistencyLocked() {
	if len(p.entries) == 0 {
		p.useECS, p.zeroScope, p.tcpOnly, p.isConsistent = false, false, true, true
		return
	}
	first := p.entries[0].Member
	useECS, zeroScope, tcpOnly := first.UsesECS(), first.ZeroScope(), first.TCPOnly()
	agreeECS, agreeZeroScope, agreeTCPOnly := true, true, true
	for _, e := range p.entries {
		if e.Member.UsesECS() != useECS {
			agreeECS = false
		}
		if e.Member.ZeroScope() != zeroScope {
			agreeZeroScope = false
		}
		if e.Member.TCPOnly() != tcpOnly {
			agreeTCPOnly = false
		}
	}
	p.useECS = useECS && agreeECS
	p.zeroScope = zeroScope && agreeZeroScope
	p.tcpOnly = tcpOnly && agreeTCPOnly
	p.isConsistent = agreeECS && agreeZeroScope && agreeTCPOnly
}

// CountServers returns the number of backends in the pool, optionally
// restricted to those currently up.
func (p *Pool) CountServers(upOnly bool) int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if !upOnly {
		return len(p.entries)
	}
	n := 0
	for _, e := range p.entries {
		if e.Member.IsUp() {
			n++
		}
	}
	return n
}

// HasAtLeastOneServerAvailable reports whether any backend in the pool is
// currently up.
func (p *Pool) HasAtLeastOneServerAvailable() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, e := range p.entries {
		if e.Member.IsUp() {
			return true
		}
	}
	return false
}

// PoolLoad returns the sum of Outstanding() across every backend in the
// pool, regardless of liveness.
func (p *Pool) PoolLoad() int64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var total int64
	for _, e := range p.entries {
		total += e.Member.Outstanding()
	}
	return total
}

// GetServers returns a snapshot of the pool's current ordered entries.
// The returned slice is a defensive copy; callers may range over it
// without holding any lock, since they operate on an immutable
// snapshot rather than the live entries.
func (p *Pool) GetServers() []Entry {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]Entry, len(p.entries))
	copy(out, p.entries)
	return out
}

// Candidates returns the pool's current membership as a policy.Candidate
// vector, ready to hand to a policy.Factory.
func (p *Pool) Candidates() []policy.Candidate {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]policy.Candidate, len(p.entries))
	for i, e := range p.entries {
		out[i] = policy.Candidate{Index: e.Ordinal, Backend: e.Member}
	}
	return out
}

// Consistency reports the three derived agreement flags plus
// isConsistent, recomputed on every membership change.
func (p *Pool) Consistency() (useECS, zeroScope, tcpOnly, isConsistent bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.useECS, p.zeroScope, p.tcpOnly, p.isConsistent
}
