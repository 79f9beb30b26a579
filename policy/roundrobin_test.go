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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dnslb/lbcore/policy"
)

func TestRoundRobinCyclesThroughUpBackends(t *testing.T) {
	t.Parallel()

	a := newFakeBackend(1, 1)
	b := newFakeBackend(2, 1)

	sel := policy.NewRoundRobin(false).New(nil, candidatesOf(a, b))

	seen := make(map[*fakeBackend]int)
	for i := 0; i < 20; i++ {
		got, ok := sel.Select(policy.Context{})
		require.True(t, ok)
		seen[got.Backend.(*fakeBackend)]++
	}
	assert.Equal(t, 10, seen[a])
	assert.Equal(t, 10, seen[b])
}

func TestRoundRobinFallsBackToAllWhenNoneUp(t *testing.T) {
	t.Parallel()

	a := newFakeBackend(1, 1)
	a.up = false
	b := newFakeBackend(2, 1)
	b.up = false

	sel := policy.NewRoundRobin(false).New(nil, candidatesOf(a, b))
	_, ok := sel.Select(policy.Context{})
	assert.True(t, ok, "default mode keeps cycling even with nothing up")
}

func TestRoundRobinFailOnNoServerReportsNone(t *testing.T) {
	t.Parallel()

	a := newFakeBackend(1, 1)
	a.up = false

	sel := policy.NewRoundRobin(true).New(nil, candidatesOf(a))
	_, ok := sel.Select(policy.Context{})
	assert.False(t, ok)
}
