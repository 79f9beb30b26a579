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

// Prober is a type that can perform a single-shot health check against a
// backend. This is the seam the embedder uses to plug in an actual HTTP or
// DNS liveness probe; the routing core has no opinion about the wire
// protocol used.
type Prober interface {
	Probe(ctx context.Context, up upstream.Upstream) State
}

// ProberFunc adapts a plain function to the Prober interface.
type ProberFunc func(ctx context.Context, up upstream.Upstream) State

func (f ProberFunc) Probe(ctx context.Context, up upstream.Upstream) State {
	return f(ctx, up)
}

// NewPollingChecker creates a Checker for the "auto" availability
// selector: it calls prober on a fixed interval, for as long as the
// checking process is open.
func NewPollingChecker(interval time.Duration, prober Prober) Checker {
	return &pollingChecker{interval: interval, prober: prober}
}

type pollingChecker struct {
	interval time.Duration
	prober   Prober
}

func (p *pollingChecker) New(ctx context.Context, up upstream.Upstream, tracker Tracker) io.Closer {
	ctx, cancel := context.WithCancel(ctx)
	task := &pollingTask{cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(task.done)
		defer cancel()

		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()
		for {
			tracker.UpdateHealthState(up, p.prober.Probe(ctx, up))
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
	return task
}

type pollingTask struct {
	cancel context.CancelFunc
	done   chan struct{}
}

func (t *pollingTask) Close() error {
	t.cancel()
	<-t.done
	return nil
}
