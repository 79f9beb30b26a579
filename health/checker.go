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

package health

import (
	"context"
	"io"

	"github.com/dnslb/lbcore/upstream"
)

//nolint:gochecknoglobals
var (
	// ForcedUpChecker is a checker for the "up" availability selector: it
	// reports the backend healthy exactly once and never checks again.
	ForcedUpChecker Checker = forcedChecker{state: StateHealthy}

	// ForcedDownChecker is a checker for the "down" availability selector:
	// it reports the backend unhealthy exactly once and never checks again.
	ForcedDownChecker Checker = forcedChecker{state: StateUnhealthy}
)

// Checker manages health checks. It creates new checking processes as new
// backends are created. Each process can be independently stopped. This is
// the seam at which an external prober (HTTP or DNS liveness) plugs into
// the routing core; the core itself never probes anything.
type Checker interface {
	// New creates a new health-checking process for the given backend.
	// The process should release resources (including stopping any
	// goroutines) when the given context is cancelled or the returned
	// value is closed.
	//
	// The process should use the Tracker to record the results of the
	// health checks. It should NOT directly call Tracker from this
	// method implementation. If the implementation wants to immediately
	// update health state, it must do so from a goroutine.
	New(context.Context, upstream.Upstream, Tracker) io.Closer
}

// Tracker represents an object that tracks the health state of backends.
// This is the interface through which a Checker communicates state updates.
// A *backend.Backend implements Tracker for itself.
type Tracker interface {
	UpdateHealthState(upstream.Upstream, State)
}

type forcedChecker struct {
	state State
}

func (f forcedChecker) New(_ context.Context, up upstream.Upstream, tracker Tracker) io.Closer {
	go tracker.UpdateHealthState(up, f.state)
	return nopCloser{}
}

type nopCloser struct{}

func (n nopCloser) Close() error {
	return nil
}
