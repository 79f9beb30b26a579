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

package backend

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

const tickInterval = 1 * time.Second

// Start launches the reconnect/timeout background worker. It is
// idempotent: only the first call actually starts the goroutine.
func (b *Backend) Start() {
	b.startOnce.Do(func() {
		go b.runWorker()
	})
}

// startWorker is the internal hook reconnect calls when a non-initial
// reconnect succeeds; it defers to the idempotent Start, so repeated
// reconnects never launch more than one worker goroutine.
func (b *Backend) startWorker() {
	b.Start()
}

func (b *Backend) runWorker() {
	defer close(b.workerDone)

	ticker := b.clock.NewTicker(tickInterval)
	defer ticker.Stop()

	backoff := initialBackoff
	for {
		select {
		case <-b.workerStop:
			return
		case <-ticker.Chan():
			b.tick()
		case <-b.reconnectRequested:
			if b.stopped.Load() {
				return
			}
			if b.reconnect(false) {
				backoff = initialBackoff
				continue
			}
			b.clock.Sleep(backoff)
			backoff = nextBackoff(backoff)
			b.requestReconnect()
		}
	}
}

// tick runs handleUDPTimeouts once, driven by the worker's 1-second
// ticker.
func (b *Backend) tick() {
	if b.cfg.TCPOnly {
		return
	}
	b.handleUDPTimeouts()
}

// RequestReconnect signals the worker to attempt a backend reconnect
// under back-off, for use by the (out-of-scope) transport layer when it
// observes a hard socket error. The request is coalesced: a pending,
// unconsumed request is not duplicated.
func (b *Backend) RequestReconnect() {
	b.requestReconnect()
}

func (b *Backend) requestReconnect() {
	select {
	case b.reconnectRequested <- struct{}{}:
	default:
	}
}

// Shutdown stops the worker and closes every socket, waiting for the
// worker goroutine to exit and for the health-check process (if any) to
// release its resources. It fans the close calls out with errgroup so
// the worker exit and the health-checker close happen concurrently.
func (b *Backend) Shutdown(ctx context.Context) error {
	b.Stop()

	grp, _ := errgroup.WithContext(ctx)
	grp.Go(func() error {
		select {
		case <-b.workerDone:
		case <-ctx.Done():
			return ctx.Err()
		}
		return nil
	})
	grp.Go(func() error {
		return b.Close()
	})
	if closer := b.checkerCloser.Load(); closer != nil {
		c := *closer
		grp.Go(c.Close)
	}
	return grp.Wait()
}

const (
	initialBackoff = 500 * time.Millisecond
	maxBackoff     = 30 * time.Second
)

func nextBackoff(d time.Duration) time.Duration {
	d *= 2
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}
