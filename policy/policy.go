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

// Package policy implements the seven load-balancing policies over a
// pool's ordered backend vector. A Factory builds a Selector once when
// pool membership changes (so state like round-robin offsets and
// consistent-hash rings amortize across many selections), and the
// Selector itself is called once per query. Selectors never mutate
// backend counters; the caller is responsible for advancing
// outstanding/queries/latency after a selection is made.
package policy

// Backend is the read-only view of a single pool member that policies
// need. A *backend.Backend implements it.
type Backend interface {
	// Order is the priority used to sort backends within a pool; lower
	// values are considered before higher ones.
	Order() int
	// Weight is the backend's share in weighted policies, always >= 1.
	Weight() int
	// IsUp reports the backend's current liveness, sourced from health.State.
	IsUp() bool
	// Outstanding is the count of in-flight queries currently assigned
	// to this backend.
	Outstanding() int64
	// LatencyUsec is the most recently observed response latency, used
	// as a tie-breaker by leastOutstanding.
	LatencyUsec() int64
	// Queries is the monotonic count of queries ever dispatched to this
	// backend, used by balancing-factor checks.
	Queries() int64
	// Hashes returns the backend's precomputed hash-ring vector: sorted
	// ascending, one entry per unit of weight. Callers must not mutate
	// the returned slice.
	Hashes() []uint32
	// AllowQPS reports whether the backend's own rate limiter currently
	// has a token available. Backends with no configured QPS limit
	// always return true. This may consume a token as a side effect of
	// the backend's own internal limiter; it does not touch any of the
	// counters listed above, so it does not violate the "selectors
	// don't mutate backend state" rule for those counters.
	AllowQPS() bool
}

// Candidate pairs a backend with its 1-based ordinal position in the
// pool at the time the Selector was built.
type Candidate struct {
	Index   int
	Backend Backend
}

// Context carries the per-query information a Selector needs beyond the
// candidate vector itself.
type Context struct {
	// Fingerprint is H(qname, perturbation), used by whashed and
	// chashed. Computed once by the router per query.
	Fingerprint uint32
	// Skip, if non-nil, reports whether a candidate must be excluded
	// from consideration this round (e.g. it was already tried by an
	// upstream retry loop). Only orderedWrandUntag consults this.
	Skip func(Candidate) bool
}

// Selector picks one candidate from the vector it was built with, or
// reports that no candidate is available.
type Selector interface {
	Select(ctx Context) (Candidate, bool)
}

// Factory builds a new Selector given the previous one (which may be nil
// on the first call) and the pool's current ordered candidate vector.
// Implementations that keep amortized state (round-robin offsets,
// consistent-hash rings, least-outstanding heaps) should recognize prev
// and carry that state forward instead of resetting it whenever
// membership is unchanged.
type Factory interface {
	New(prev Selector, candidates []Candidate) Selector
}

// FactoryFunc adapts a plain function to the Factory interface, for
// policies with no state to carry across rebuilds.
type FactoryFunc func(prev Selector, candidates []Candidate) Selector

func (f FactoryFunc) New(prev Selector, candidates []Candidate) Selector {
	return f(prev, candidates)
}

// upCandidates returns the subset of candidates whose backend is up, in
// a newly allocated slice; the input slice is left untouched.
func upCandidates(candidates []Candidate) []Candidate {
	up := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.Backend.IsUp() {
			up = append(up, c)
		}
	}
	return up
}

// meanQueries computes the mean of Queries() across candidates. Returns 0
// for an empty slice (callers must not divide by it in that case).
func meanQueries(candidates []Candidate) float64 {
	if len(candidates) == 0 {
		return 0
	}
	var sum int64
	for _, c := range candidates {
		sum += c.Backend.Queries()
	}
	return float64(sum) / float64(len(candidates))
}

// underBalancingFactor implements the shared "selection-time rejection"
// rule used across the weighted policies: a backend is rejected if
// factor > 0 and its query count exceeds factor times the mean query
// count across the group being balanced. factor <= 0 disables the check.
func underBalancingFactor(candidate Candidate, factor float64, mean float64) bool {
	if factor <= 0 {
		return true
	}
	return float64(candidate.Backend.Queries()) <= factor*mean
}
