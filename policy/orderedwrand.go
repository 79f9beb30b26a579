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
	// OrderedWeightedRandomUntagFactory groups up backends by their
	// lowest non-empty order value, then applies weighted-random within
	// that group, honoring a per-query skip tag.
	OrderedWeightedRandomUntagFactory = NewOrderedWeightedRandomUntag(0)
)

// NewOrderedWeightedRandomUntag creates a Factory that groups backends by
// their lowest non-empty order value and applies weighted-random within
// that group, skipping any candidate the caller has already tried.
func NewOrderedWeightedRandomUntag(factor float64) Factory {
	return FactoryFunc(func(_ Selector, candidates []Candidate) Selector {
		return &orderedWrandUntag{
			candidates: upCandidates(candidates),
			factor:     factor,
			rnd:        internal.NewLockedRand(),
		}
	})
}

type orderedWrandUntag struct {
	candidates []Candidate
	factor     float64
	rnd        *rand.Rand
}

func (o *orderedWrandUntag) Select(ctx Context) (Candidate, bool) {
	eligible := o.candidates
	if ctx.Skip != nil {
		filtered := make([]Candidate, 0, len(eligible))
		for _, c := range eligible {
			if !ctx.Skip(c) {
				filtered = append(filtered, c)
			}
		}
		eligible = filtered
	}
	if len(eligible) == 0 {
		return Candidate{}, false
	}

	lowest := eligible[0].Backend.Order()
	for _, c := range eligible[1:] {
		if c.Backend.Order() < lowest {
			lowest = c.Backend.Order()
		}
	}
	group := make([]Candidate, 0, len(eligible))
	for _, c := range eligible {
		if c.Backend.Order() == lowest {
			group = append(group, c)
		}
	}
	return weightedRandomPick(group, o.factor, o.rnd)
}
