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

package backend_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dnslb/lbcore/backend"
)

func udpConfig(name string, maxOutstanding int, timeout time.Duration) backend.Config {
	return backend.Config{
		Name:              name,
		Remote:            "127.0.0.1:53",
		Weight:            1,
		NumberOfSockets:   1,
		MaxUDPOutstanding: maxOutstanding,
		UDPTimeout:        timeout,
	}
}

func TestSaveAndGetStateRoundTrips(t *testing.T) {
	t.Parallel()

	b, err := backend.New(udpConfig("b1", 8, time.Minute), false)
	require.NoError(t, err)

	id := b.SaveState("ctx-1")
	got, ok := b.GetState(id)
	require.True(t, ok)
	assert.Equal(t, "ctx-1", got)

	_, ok = b.GetState(id)
	assert.False(t, ok, "GetState clears the slot on read")
}

func TestRestoreStateReportsCollisionAsReuse(t *testing.T) {
	t.Parallel()

	b, err := backend.New(udpConfig("b1", 4, time.Minute), false)
	require.NoError(t, err)

	var timedOut []any
	b.SetTimeoutHandler(func(ctx any) { timedOut = append(timedOut, ctx) })

	id := b.SaveState("first")
	before := b.Reuseds()

	b.RestoreState(id, "second") // slot still occupied by "first"
	assert.Equal(t, before+1, b.Reuseds())
	require.Len(t, timedOut, 1, "the restore's own context is synthesized as a timeout, not the occupant")
	assert.Equal(t, "second", timedOut[0])

	got, ok := b.GetState(id)
	require.True(t, ok)
	assert.Equal(t, "first", got, "the original occupant is untouched by a failed restore")
}

func TestSaveStateCollisionSynthesizesTimeoutForEvictedContext(t *testing.T) {
	t.Parallel()

	b, err := backend.New(udpConfig("b1", 1, time.Minute), false)
	require.NoError(t, err)

	var timedOut []any
	b.SetTimeoutHandler(func(ctx any) { timedOut = append(timedOut, ctx) })

	b.RecordQuery()
	id1 := b.SaveState("first")
	before := b.Outstanding()

	b.RecordQuery()
	id2 := b.SaveState("second") // only one slot exists, so this evicts "first"

	assert.Equal(t, id1, id2, "a single-slot table always collides onto the same id")
	require.Len(t, timedOut, 1)
	assert.Equal(t, "first", timedOut[0], "the evicted occupant times out, not the new save")
	assert.Equal(t, before, b.Outstanding(), "the evicted query's outstanding slot is retired")

	got, ok := b.GetState(id2)
	require.True(t, ok)
	assert.Equal(t, "second", got)
}

func TestSetTimeoutHandlerInstallsCallback(t *testing.T) {
	t.Parallel()

	b, err := backend.New(udpConfig("b1", 4, time.Second), false)
	require.NoError(t, err)

	var expired []any
	b.SetTimeoutHandler(func(ctx any) { expired = append(expired, ctx) })

	id := b.SaveState("query")
	got, ok := b.GetState(id)
	require.True(t, ok)
	assert.Equal(t, "query", got)
	assert.Empty(t, expired, "no timeout has occurred yet")
}
