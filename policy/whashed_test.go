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

func TestWeightedHashedIsDeterministicForAFixedFingerprint(t *testing.T) {
	t.Parallel()

	a := newFakeBackend(1, 1)
	b := newFakeBackend(2, 1)
	sel := policy.WeightedHashedFactory.New(nil, candidatesOf(a, b))

	first, ok := sel.Select(policy.Context{Fingerprint: 42})
	require.True(t, ok)
	for i := 0; i < 10; i++ {
		again, ok := sel.Select(policy.Context{Fingerprint: 42})
		require.True(t, ok)
		assert.Same(t, first.Backend, again.Backend)
	}
}

func TestWeightedHashedCanMapToEitherBackend(t *testing.T) {
	t.Parallel()

	a := newFakeBackend(1, 1)
	b := newFakeBackend(2, 1)
	sel := policy.WeightedHashedFactory.New(nil, candidatesOf(a, b))

	low, ok := sel.Select(policy.Context{Fingerprint: 0})
	require.True(t, ok)
	high, ok := sel.Select(policy.Context{Fingerprint: 1})
	require.True(t, ok)
	assert.NotSame(t, low.Backend, high.Backend, "fingerprint 0 and 1 split a two-way, equal-weight range")
}

func TestWeightedHashedReportsNoneWhenEmpty(t *testing.T) {
	t.Parallel()

	sel := policy.WeightedHashedFactory.New(nil, nil)
	_, ok := sel.Select(policy.Context{})
	assert.False(t, ok)
}
