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

func tcpOnlyConfig(name string) backend.Config {
	return backend.Config{
		Name:            name,
		Remote:          "127.0.0.1:53",
		Weight:          1,
		NumberOfSockets: 1,
		TCPOnly:         true,
		UDPTimeout:      time.Minute,
	}
}

func TestNewValidatesConfig(t *testing.T) {
	t.Parallel()

	_, err := backend.New(backend.Config{Name: "bad"}, false)
	require.Error(t, err)
}

func TestNewConnectsSynchronouslyWhenRequested(t *testing.T) {
	t.Parallel()

	b, err := backend.New(tcpOnlyConfig("b1"), true)
	require.NoError(t, err)
	assert.True(t, b.Connected())
	assert.False(t, b.Stopped())
}

func TestSetIDRecomputesHashesOnlyIfAlreadyComputed(t *testing.T) {
	t.Parallel()

	b, err := backend.New(tcpOnlyConfig("b1"), false)
	require.NoError(t, err)

	before := b.Hashes()
	require.NotEmpty(t, before)

	b.SetID("a-fixed-id")
	after := b.Hashes()
	assert.NotEqual(t, before, after)
	assert.Len(t, after, len(before))
}

func TestSetWeightRejectsNonPositive(t *testing.T) {
	t.Parallel()

	b, err := backend.New(tcpOnlyConfig("b1"), false)
	require.NoError(t, err)

	b.SetWeight(3)
	assert.Equal(t, 3, b.Weight())
	assert.Len(t, b.Hashes(), 3)

	b.SetWeight(0)
	assert.Equal(t, 3, b.Weight(), "non-positive weight is silently ignored")
}

func TestRecordQueryAndResponseTrackOutstanding(t *testing.T) {
	t.Parallel()

	b, err := backend.New(tcpOnlyConfig("b1"), false)
	require.NoError(t, err)

	b.RecordQuery()
	b.RecordQuery()
	assert.Equal(t, int64(2), b.Outstanding())
	assert.Equal(t, int64(2), b.Queries())

	b.RecordResponse(1500)
	assert.Equal(t, int64(1), b.Outstanding())
	assert.Equal(t, int64(1500), b.LatencyUsec())
}

func TestRecordResponseNeverGoesNegative(t *testing.T) {
	t.Parallel()

	b, err := backend.New(tcpOnlyConfig("b1"), false)
	require.NoError(t, err)

	b.RecordResponse(10)
	assert.Equal(t, int64(0), b.Outstanding())
}

func TestStopIsIdempotentAndLatches(t *testing.T) {
	t.Parallel()

	b, err := backend.New(tcpOnlyConfig("b1"), true)
	require.NoError(t, err)

	b.Stop()
	assert.True(t, b.Stopped())
	assert.NotPanics(t, b.Stop)
}

func TestUpdateHealthStateFiltersByIdentity(t *testing.T) {
	t.Parallel()

	b1, err := backend.New(tcpOnlyConfig("b1"), false)
	require.NoError(t, err)
	b2, err := backend.New(tcpOnlyConfig("b2"), false)
	require.NoError(t, err)

	assert.False(t, b1.IsUp(), "StateUnknown is not up")

	b1.UpdateHealthState(b2, 1) // wrong identity, should be ignored
	assert.False(t, b1.IsUp())
}

func TestAllowQPSUnlimitedWhenNoLimitConfigured(t *testing.T) {
	t.Parallel()

	b, err := backend.New(tcpOnlyConfig("b1"), false)
	require.NoError(t, err)

	for i := 0; i < 100; i++ {
		assert.True(t, b.AllowQPS())
	}
}

func TestAllowQPSLimitsSustainedRate(t *testing.T) {
	t.Parallel()

	cfg := tcpOnlyConfig("b1")
	cfg.QPSLimit = 1
	b, err := backend.New(cfg, false)
	require.NoError(t, err)

	assert.True(t, b.AllowQPS(), "burst of one should allow the first query")
	assert.False(t, b.AllowQPS(), "second immediate query exceeds the token bucket")
}
