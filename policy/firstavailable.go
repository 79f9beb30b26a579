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
	// FirstAvailableFactory creates selectors that pick the first
	// up backend (in pool order) that still has QPS budget available.
	FirstAvailableFactory Factory = FactoryFunc(newFirstAvailable)
)

func newFirstAvailable(_ Selector, candidates []Candidate) Selector {
	return firstAvailable{candidates: candidates}
}

type firstAvailable struct {
	candidates []Candidate
}

func (f firstAvailable) Select(Context) (Candidate, bool) {
	for _, c := range f.candidates {
		if !c.Backend.IsUp() {
			continue
		}
		if !c.Backend.AllowQPS() {
			continue
		}
		return c, true
	}
	return Candidate{}, false
}
