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

package policy_test

import (
	"github.com/dnslb/lbcore/policy"
)

// fakeBackend is a minimal, directly mutable policy.Backend for testing
// selectors without pulling in the real backend package.
type fakeBackend struct {
	order       int
	weight      int
	up          bool
	outstanding int64
	latencyUsec int64
	queries     int64
	hashes      []uint32
	allowQPS    bool
}

func newFakeBackend(order, weight int) *fakeBackend {
	return &fakeBackend{order: order, weight: weight, up: true, allowQPS: true}
}

func (f *fakeBackend) Order() int          { return f.order }
func (f *fakeBackend) Weight() int         { return f.weight }
func (f *fakeBackend) IsUp() bool          { return f.up }
func (f *fakeBackend) Outstanding() int64  { return f.outstanding }
func (f *fakeBackend) LatencyUsec() int64  { return f.latencyUsec }
func (f *fakeBackend) Queries() int64      { return f.queries }
func (f *fakeBackend) Hashes() []uint32    { return f.hashes }
func (f *fakeBackend) AllowQPS() bool      { return f.allowQPS }

func candidatesOf(backends ...*fakeBackend) []policy.Candidate {
	out := make([]policy.Candidate, len(backends))
	for i, b := range backends {
		out[i] = policy.Candidate{Index: i + 1, Backend: b}
	}
	return out
}
