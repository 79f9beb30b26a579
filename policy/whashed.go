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

//nolint:gochecknoglobals
var (
	// WeightedHashedFactory creates selectors that deterministically map
	// a query's fingerprint into one backend's weight range. The same
	// fingerprint always maps to the same backend for a fixed pool.
	WeightedHashedFactory Factory = FactoryFunc(newWeightedHashed)
)

func newWeightedHashed(_ Selector, candidates []Candidate) Selector {
	return weightedHashed{candidates: upCandidates(candidates)}
}

type weightedHashed struct {
	candidates []Candidate
}

func (w weightedHashed) Select(ctx Context) (Candidate, bool) {
	if len(w.candidates) == 0 {
		return Candidate{}, false
	}
	totalWeight := 0
	for _, c := range w.candidates {
		totalWeight += c.Backend.Weight()
	}
	if totalWeight <= 0 {
		return Candidate{}, false
	}
	r := ctx.Fingerprint % uint32(totalWeight) //nolint:gosec // totalWeight bounded well under int32
	acc := uint32(0)
	for _, c := range w.candidates {
		acc += uint32(c.Backend.Weight())
		if r < acc {
			return c, true
		}
	}
	return w.candidates[len(w.candidates)-1], true
}
