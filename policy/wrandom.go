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

import (
	"math/rand"

	"github.com/dnslb/lbcore/internal"
)

//nolint:gochecknoglobals
var (
	// WeightedRandomFactory creates selectors that draw a candidate with
	// probability proportional to weight, with no balancing-factor cap.
	// Use NewWeightedRandom for a capped variant.
	WeightedRandomFactory = NewWeightedRandom(0)
)

// NewWeightedRandom creates a weighted-random Factory. factor is the
// weighted-balancing-factor (bf_w); 0 disables the cap. A backend whose
// query count exceeds factor*mean(queries) across the up set is excluded
// from the draw for that selection, and the remaining weight is
// redistributed among the survivors. This produces the same steady-state
// distribution as "draw, then reject and redraw on a capped backend",
// without the unbounded-retry loop that naive
// rejection sampling would need as more backends saturate their cap.
func NewWeightedRandom(factor float64) Factory {
	return FactoryFunc(func(_ Selector, candidates []Candidate) Selector {
		return &weightedRandom{
			candidates: upCandidates(candidates),
			factor:     factor,
			rnd:        internal.NewLockedRand(),
		}
	})
}

type weightedRandom struct {
	candidates []Candidate
	factor     float64
	rnd        *rand.Rand
}

func (w *weightedRandom) Select(Context) (Candidate, bool) {
	return weightedRandomPick(w.candidates, w.factor, w.rnd)
}

// weightedRandomPick implements the core draw used by both wrandom and
// orderedWrandUntag: filter by balancing factor, then pick uniformly from
// the cumulative weight ranges of the survivors.
func weightedRandomPick(candidates []Candidate, factor float64, rnd *rand.Rand) (Candidate, bool) {
	if len(candidates) == 0 {
		return Candidate{}, false
	}
	survivors := candidates
	if factor > 0 {
		mean := meanQueries(candidates)
		filtered := make([]Candidate, 0, len(candidates))
		for _, c := range candidates {
			if underBalancingFactor(c, factor, mean) {
				filtered = append(filtered, c)
			}
		}
		if len(filtered) == 0 {
			return Candidate{}, false
		}
		survivors = filtered
	}

	totalWeight := 0
	for _, c := range survivors {
		totalWeight += c.Backend.Weight()
	}
	if totalWeight <= 0 {
		return Candidate{}, false
	}

	r := rnd.Intn(totalWeight) //nolint:gosec // does not need to be cryptographically secure
	acc := 0
	for _, c := range survivors {
		acc += c.Backend.Weight()
		if r < acc {
			return c, true
		}
	}
	return survivors[len(survivors)-1], true
}
