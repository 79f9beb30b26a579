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

package policy

import "sort"

//nolint:gochecknoglobals
var (
	// ConsistentHashedFactory creates selectors that walk the merged
	// hash ring built from every up backend's weight-expanded hash
	// vector, with no balancing-factor cap. Use NewConsistentHashed for
	// a capped variant.
	ConsistentHashedFactory = NewConsistentHashed(0)
)

type ringEntry struct {
	hash      uint32
	candidate Candidate
}

// NewConsistentHashed creates a consistent-hashed Factory. factor is the
// consistent-hash-balancing-factor (bf_c); 0 disables the cap. The ring
// is built once per membership change (amortizing the sort across every
// query instead of paying it per-lookup), and Select
// walks forward from the fingerprint's ring position, wrapping, skipping
// any entry whose owner exceeds the balancing factor.
func NewConsistentHashed(factor float64) Factory {
	return FactoryFunc(func(_ Selector, candidates []Candidate) Selector {
		up := upCandidates(candidates)
		var ring []ringEntry
		for _, c := range up {
			for _, h := range c.Backend.Hashes() {
				ring = append(ring, ringEntry{hash: h, candidate: c})
			}
		}
		sort.Slice(ring, func(i, j int) bool { return ring[i].hash < ring[j].hash })
		return &consistentHashed{ring: ring, up: up, factor: factor}
	})
}

type consistentHashed struct {
	ring   []ringEntry
	up     []Candidate
	factor float64
}

func (c *consistentHashed) Select(ctx Context) (Candidate, bool) {
	if len(c.ring) == 0 {
		return Candidate{}, false
	}
	start := sort.Search(len(c.ring), func(i int) bool {
		return c.ring[i].hash >= ctx.Fingerprint
	})
	if start == len(c.ring) {
		start = 0 // wrap to the origin of the ring
	}

	if c.factor <= 0 {
		return c.ring[start].candidate, true
	}

	mean := meanQueries(c.up)
	for i := 0; i < len(c.ring); i++ {
		entry := c.ring[(start+i)%len(c.ring)]
		if underBalancingFactor(entry.candidate, c.factor, mean) {
			return entry.candidate, true
		}
	}
	return Candidate{}, false
}
