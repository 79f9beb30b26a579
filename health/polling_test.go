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

package health_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dnslb/lbcore/health"
	"github.com/dnslb/lbcore/upstream"
)

type fakeUpstream string

func (f fakeUpstream) ID() string { return string(f) }

type fakeTracker chan health.State

func (f fakeTracker) UpdateHealthState(_ upstream.Upstream, state health.State) {
	f <- state
}

func TestPollingChecker(t *testing.T) {
	t.Parallel()

	results := []health.State{health.StateHealthy, health.StateUnhealthy}
	var call int
	prober := health.ProberFunc(func(context.Context, upstream.Upstream) health.State {
		state := results[call%len(results)]
		call++
		return state
	})

	checker := health.NewPollingChecker(5*time.Millisecond, prober)
	tracker := make(fakeTracker, 1)
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	closer := checker.New(ctx, fakeUpstream("b1"), tracker)
	assert.Equal(t, health.StateHealthy, <-tracker)
	assert.Equal(t, health.StateUnhealthy, <-tracker)
	require.NoError(t, closer.Close())
}

func TestForcedCheckers(t *testing.T) {
	t.Parallel()

	tracker := make(fakeTracker, 1)
	closer := health.ForcedUpChecker.New(context.Background(), fakeUpstream("b1"), tracker)
	assert.Equal(t, health.StateHealthy, <-tracker)
	require.NoError(t, closer.Close())

	closer = health.ForcedDownChecker.New(context.Background(), fakeUpstream("b1"), tracker)
	assert.Equal(t, health.StateUnhealthy, <-tracker)
	require.NoError(t, closer.Close())
}

func TestLazyChecker(t *testing.T) {
	t.Parallel()

	var states []health.State
	prober := health.ProberFunc(func(context.Context, upstream.Upstream) health.State {
		states = append(states, health.StateDegraded)
		return health.StateDegraded
	})

	checker := health.NewLazyChecker(time.Minute, prober)
	tracker := make(fakeTracker, 2)
	closer := checker.New(context.Background(), fakeUpstream("b1"), tracker)
	process, ok := closer.(*health.LazyProcess)
	require.True(t, ok)

	// Optimistic initial state, before any sample.
	assert.Equal(t, health.StateHealthy, <-tracker)

	now := time.Now()
	process.Sample(now)
	assert.Equal(t, health.StateDegraded, <-tracker)

	// Within minInterval: no-op, no new state pushed.
	process.Sample(now.Add(time.Second))
	assert.Len(t, states, 1)

	require.NoError(t, process.Close())
}
