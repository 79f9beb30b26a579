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

func TestConsistentHashedIsStableForAFixedFingerprint(t *testing.T) {
	t.Parallel()

	a := newFakeBackend(1, 1)
	a.hashes = []uint32{10, 200}
	b := newFakeBackend(2, 1)
	b.hashes = []uint32{100, 300}

	sel := policy.ConsistentHashedFactory.New(nil, candidatesOf(a, b))

	first, ok := sel.Select(policy.Context{Fingerprint: 50})
	require.True(t, ok)
	again, ok := sel.Select(policy.Context{Fingerprint: 50})
	require.True(t, ok)
	assert.Same(t, first.Backend, again.Backend)
	assert.Same(t, b, first.Backend, "50 lands between 10 and 100, so the next ring entry clockwise is b's hash at 100")
}

func TestConsistentHashedWrapsAroundTheRing(t *testing.T) {
	t.Parallel()

	a := newFakeBackend(1, 1)
	a.hashes = []uint32{10}

	sel := policy.ConsistentHashedFactory.New(nil, candidatesOf(a))
	got, ok := sel.Select(policy.Context{Fingerprint: 4000000000})
	assert.True(t, ok)
	assert.Same(t, a, got.Backend, "a fingerprint past every ring entry wraps to the first")
}

func TestConsistentHashedReportsNoneWhenNoBackendIsUp(t *testing.T) {
	t.Parallel()

	down := newFakeBackend(1, 1)
	down.up = false
	down.hashes = []uint32{1}

	sel := policy.ConsistentHashedFactory.New(nil, candidatesOf(down))
	_, ok := sel.Select(policy.Context{Fingerprint: 0})
	assert.False(t, ok)
}
