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

// Package idtable implements the per-backend UDP query-id multiplexer:
// a table mapping a 16-bit wire id to the caller's query context, in
// either a fixed-size sequential mode or a sparse randomized mode. The
// sequential mode serializes access to a given id through a per-slot
// try-acquire guard; the randomized mode serializes the whole map under
// one mutex. Either way, a saveState/getState pair racing an expiry scan
// on the same id never observes the context twice.
package idtable

// Expired describes a slot that aged out of Expire, carrying whatever
// context Save or Restore had stored in it.
type Expired struct {
	ID      uint16
	Context any
}

// Table is the per-backend id multiplexer. NewSequential and NewRandomized
// are the two available modes; which one a process uses is a
// process-wide choice, not a per-call one.
type Table interface {
	// Save stores ctx under a newly allocated id. It never fails: if the
	// winning slot already held a context, that context is evicted and
	// returned as evicted with reused=true, so the caller can synthesize
	// a timeout for it instead of letting it vanish silently.
	Save(ctx any) (id uint16, evicted any, reused bool)
	// Restore places ctx back into slot id if the slot is free. If the
	// slot is occupied or id is out of range, ctx itself never makes it
	// into the table: it is handed back as evicted with reused=true
	// instead of being stored.
	Restore(id uint16, ctx any) (evicted any, reused bool)
	// Get returns and clears the context stored at id, or ok=false if the
	// slot was empty or id is out of range.
	Get(id uint16) (ctx any, ok bool)
	// Expire increments every occupied slot's age by one and drains any
	// slot whose age now exceeds ageLimit, returning what it drained.
	Expire(ageLimit int32) []Expired
	// Outstanding reports the number of currently occupied slots.
	Outstanding() int
}
