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
	"sync/atomic"

	"github.com/dnslb/lbcore/internal"
)

//nolint:gochecknoglobals
var (
	// RoundRobinFactory creates selectors that pick candidates in
	// sequential order, falling back to cycling through every
	// configured backend (ignoring liveness) if none are up. Use
	// NewRoundRobin(true) for the alternative (fail instead of falling
	// back) behavior.
	RoundRobinFactory = NewRoundRobin(false)
)

// NewRoundRobin creates a round-robin Factory. When failOnNoServer is
// true, Select reports no candidate once every backend is down. When
// false (the default), Select instead cycles through the full,
// unfiltered candidate vector so that traffic keeps flowing to
// something during a correlated outage rather than dropping every query.
func NewRoundRobin(failOnNoServer bool) Factory {
	return FactoryFunc(func(_ Selector, candidates []Candidate) Selector {
		rnd := internal.NewRand()

		all := make([]Candidate, len(candidates))
		copy(all, candidates)
		rnd.Shuffle(len(all), func(i, j int) {
			all[i], all[j] = all[j], all[i]
		})

		up := upCandidates(candidates)
		rnd.Shuffle(len(up), func(i, j int) {
			up[i], up[j] = up[j], up[i]
		})

		rr := &roundRobin{all: all, up: up, failOnNoServer: failOnNoServer}
		rr.counter.Store(-1)
		return rr
	})
}

type roundRobin struct {
	all            []Candidate
	up             []Candidate
	failOnNoServer bool
	// +checkatomic
	counter atomic.Int64
}

func (r *roundRobin) Select(Context) (Candidate, bool) {
	if len(r.up) == 0 {
		if r.failOnNoServer || len(r.all) == 0 {
			return Candidate{}, false
		}
		idx := uint64(r.counter.Add(1)) % uint64(len(r.all))
		return r.all[idx], true
	}
	idx := uint64(r.counter.Add(1)) % uint64(len(r.up))
	return r.up[idx], true
}
