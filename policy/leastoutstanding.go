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
	// LeastOutstandingFactory creates selectors that pick the up
	// backend with the fewest in-flight queries, breaking ties first by
	// latency then by pool order.
	LeastOutstandingFactory Factory = FactoryFunc(newLeastOutstanding)
)

func newLeastOutstanding(_ Selector, candidates []Candidate) Selector {
	return leastOutstanding{candidates: upCandidates(candidates)}
}

type leastOutstanding struct {
	candidates []Candidate
}

func (l leastOutstanding) Select(Context) (Candidate, bool) {
	if len(l.candidates) == 0 {
		return Candidate{}, false
	}
	best := l.candidates[0]
	for _, c := range l.candidates[1:] {
		if lessLoaded(c, best) {
			best = c
		}
	}
	return best, true
}

// lessLoaded reports whether a should be preferred over b under the
// triple (outstanding, latencyUsec, order).
func lessLoaded(a, b Candidate) bool {
	ao, bo := a.Backend.Outstanding(), b.Backend.Outstanding()
	if ao != bo {
		return ao < bo
	}
	al, bl := a.Backend.LatencyUsec(), b.Backend.LatencyUsec()
	if al != bl {
		return al < bl
	}
	return a.Backend.Order() < b.Backend.Order()
}
