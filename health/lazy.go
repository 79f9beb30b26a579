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
	"time"

	"github.com/dnslb/lbcore/upstream"
)

// NewLazyChecker creates a Checker for the "lazy" availability selector.
// Unlike a polling checker, it never probes on its own schedule. Instead,
// it only probes when the embedder invokes Sample on the returned
// *LazyProcess, and then at most once per minInterval, which gets
// opportunistic health sampling without adding a background goroutine
// per backend.
func NewLazyChecker(minInterval time.Duration, prober Prober) Checker {
	return &lazyChecker{minInterval: minInterval, prober: prober}
}

type lazyChecker struct {
	minInterval time.Duration
	prober      Prober
}

func (c *lazyChecker) New(ctx context.Context, up upstream.Upstream, tracker Tracker) io.Closer {
	ctx, cancel := context.WithCancel(ctx)
	// Lazy checks start out optimistic: assume healthy until a sample
	// says otherwise, since nothing has probed yet.
	go tracker.UpdateHealthState(up, StateHealthy)
	return &LazyProcess{
		ctx:         ctx,
		cancel:      cancel,
		up:          up,
		tracker:     tracker,
		prober:      c.prober,
		minInterval: c.minInterval,
	}
}

// LazyProcess is the handle returned for a lazily-checked backend. The
// embedder holds onto it and calls Sample from wherever it observes
// traffic outcomes (e.g. after a dispatch timeout).
type LazyProcess struct {
	ctx         context.Context //nolint:containedCtx
	cancel      context.CancelFunc
	up          upstream.Upstream
	tracker     Tracker
	prober      Prober
	minInterval time.Duration
	lastSample  time.Time
}

// Sample probes the backend if minInterval has elapsed since the last
// sample, updating the tracker with the result. It is a no-op otherwise,
// so callers can invoke it freely on every dispatch without flooding the
// backend with probes.
func (p *LazyProcess) Sample(now time.Time) {
	if p.ctx.Err() != nil {
		return
	}
	if !p.lastSample.IsZero() && now.Sub(p.lastSample) < p.minInterval {
		return
	}
	p.lastSample = now
	p.tracker.UpdateHealthState(p.up, p.prober.Probe(p.ctx, p.up))
}

func (p *LazyProcess) Close() error {
	p.cancel()
	return nil
}
