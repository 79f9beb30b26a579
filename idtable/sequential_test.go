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

package idtable_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dnslb/lbcore/idtable"
)

func TestSequentialSaveAndGet(t *testing.T) {
	t.Parallel()

	tbl := idtable.NewSequential(4)
	id, evicted, reused := tbl.Save("ctx-1")
	assert.False(t, reused)
	assert.Nil(t, evicted)

	ctx, ok := tbl.Get(id)
	require.True(t, ok)
	assert.Equal(t, "ctx-1", ctx)

	_, ok = tbl.Get(id)
	assert.False(t, ok, "Get clears the slot")
}

func TestSequentialSaveWrapsAndReusesOnSaturation(t *testing.T) {
	t.Parallel()

	tbl := idtable.NewSequential(2)
	id1, _, reused1 := tbl.Save("a")
	id2, _, reused2 := tbl.Save("b")
	assert.False(t, reused1)
	assert.False(t, reused2)
	assert.NotEqual(t, id1, id2)

	// Both slots occupied: the third Save must evict one of them.
	_, evicted3, reused3 := tbl.Save("c")
	assert.True(t, reused3)
	assert.Contains(t, []any{"a", "b"}, evicted3, "the evicted context is whatever the winning slot held")
	assert.Equal(t, 2, tbl.Outstanding())
}

func TestSequentialRestoreRejectsOccupiedOrOutOfRange(t *testing.T) {
	t.Parallel()

	tbl := idtable.NewSequential(2)
	id, _, _ := tbl.Save("a")

	evicted, reused := tbl.Restore(id, "b")
	assert.True(t, reused, "occupied slot counts as reuse")
	assert.Equal(t, "b", evicted, "the incoming context is what's evicted, not the occupant")

	evicted, reused = tbl.Restore(999, "c")
	assert.True(t, reused, "out-of-range id counts as reuse")
	assert.Equal(t, "c", evicted)
}

func TestSequentialExpireReclaimsAgedSlots(t *testing.T) {
	t.Parallel()

	tbl := idtable.NewSequential(2)
	tbl.Save("a")

	expired := tbl.Expire(1)
	assert.Empty(t, expired, "age 1 has not yet exceeded the limit")

	expired = tbl.Expire(1)
	require.Len(t, expired, 1)
	assert.Equal(t, "a", expired[0].Context)
	assert.Equal(t, 0, tbl.Outstanding())
}

func TestSequentialConcurrentSaveNeverDuplicatesAnID(t *testing.T) {
	t.Parallel()

	tbl := idtable.NewSequential(64)
	var wg sync.WaitGroup
	ids := make(chan uint16, 64)
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, _, _ := tbl.Save(struct{}{})
			ids <- id
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[uint16]bool)
	for id := range ids {
		seen[id] = true
	}
	assert.Len(t, seen, 64, "64 concurrent saves into 64 slots must land on 64 distinct ids")
}
