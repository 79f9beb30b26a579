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
	"fmt"
	"io"
	"math/rand"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/dnslb/lbcore/hashfn"
	"github.com/dnslb/lbcore/health"
	"github.com/dnslb/lbcore/idtable"
	"github.com/dnslb/lbcore/internal"
	"github.com/dnslb/lbcore/upstream"
)

// Backend is a single upstream server: its configuration, its sockets,
// its derived hash vector, and the counters the router and the policy
// package read from it. It implements policy.Backend, pool.Member,
// upstream.Upstream and health.Tracker, so a *Backend is the one
// concrete type those four packages share.
type Backend struct {
	cfg   Config
	clock internal.Clock

	idMu sync.Mutex
	// +checklocks:idMu
	id string

	weightMu sync.Mutex
	// +checklocks:weightMu
	weight int

	hashMu sync.RWMutex
	// +checklocks:hashMu
	hashes []uint32
	// +checklocks:hashMu
	hashesComputed bool

	connected   atomic.Bool
	stopped     atomic.Bool
	connectLock sync.Mutex

	sockets       []*socket
	socketsOffset atomic.Uint64
	socketRand    *rand.Rand

	ids       idtable.Table
	onTimeout TimeoutHandler

	limiter *rate.Limiter

	healthState atomic.Int32

	outstanding                 atomic.Int64
	queries                     atomic.Int64
	responses                   atomic.Int64
	reuseds                     atomic.Int64
	tcpCurrentConnections       atomic.Int64
	tcpMaxConcurrentConnections atomic.Int64
	latencyUsec                 atomic.Int64
	latencyUsecTCP              atomic.Int64
	dropRatePermille            atomic.Int64
	queryLoad                   atomic.Int64

	startOnce          sync.Once
	workerStop         chan struct{}
	workerDone         chan struct{}
	reconnectRequested chan struct{}

	checkerCloser atomic.Pointer[io.Closer]
}

// Option configures optional New behavior.
type Option func(*Backend)

// WithClock overrides the backend's internal.Clock, for tests that need
// to control the reconnect/timeout worker's ticker deterministically.
func WithClock(clock internal.Clock) Option {
	return func(b *Backend) { b.clock = clock }
}

// New constructs a Backend from cfg. The id is freshly generated; use
// SetID afterward if the caller already has one (e.g. restored from a
// prior configuration generation). If connect is true, every socket is
// opened synchronously before New returns, rather than being deferred
// to the background worker's first reconnect attempt.
func New(cfg Config, connect bool, opts ...Option) (*Backend, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	b := &Backend{
		cfg:        cfg,
		clock:      internal.NewRealClock(),
		id:         uuid.NewString(),
		weight:     cfg.Weight,
		sockets:    make([]*socket, cfg.NumberOfSockets),
		socketRand: internal.NewLockedRand(),
		workerStop:         make(chan struct{}),
		workerDone:         make(chan struct{}),
		reconnectRequested: make(chan struct{}, 1),
	}
	b.healthState.Store(int32(health.StateUnknown))
	for i := range b.sockets {
		b.sockets[i] = &socket{fd: -1}
	}
	if cfg.RandomizeIDs {
		b.ids = idtable.NewRandomized()
	} else {
		b.ids = idtable.NewSequential(cfg.MaxUDPOutstanding)
	}
	if cfg.QPSLimit > 0 {
		burst := int(cfg.QPSLimit)
		if burst < 1 {
			burst = 1
		}
		b.limiter = rate.NewLimiter(rate.Limit(cfg.QPSLimit), burst)
	}
	for _, opt := range opts {
		opt(b)
	}
	b.hash()

	if connect {
		if ok := b.reconnect(true); !ok {
			return nil, fmt.Errorf("backend %q: initial connect failed", cfg.Name)
		}
	}
	return b, nil
}

// ID returns the backend's current UUID. Implements upstream.Upstream.
func (b *Backend) ID() string {
	b.idMu.Lock()
	defer b.idMu.Unlock()
	return b.id
}

// SetID replaces the backend's id and, if hashes were already computed,
// recomputes them under the new id, since a changed identity must be
// reflected in the hash vector immediately.
func (b *Backend) SetID(id string) {
	b.idMu.Lock()
	b.id = id
	b.idMu.Unlock()
	b.recomputeIfNeeded()
}

// Order returns the configured priority. Implements policy.Backend.
func (b *Backend) Order() int {
	return b.cfg.Order
}

// Weight returns the current weight. Implements policy.Backend.
func (b *Backend) Weight() int {
	b.weightMu.Lock()
	defer b.weightMu.Unlock()
	return b.weight
}

// SetWeight updates the weight, silently ignoring w<1, and recomputes
// hashes if they were already computed.
func (b *Backend) SetWeight(w int) {
	if w < 1 {
		return
	}
	b.weightMu.Lock()
	b.weight = w
	b.weightMu.Unlock()
	b.recomputeIfNeeded()
}

func (b *Backend) recomputeIfNeeded() {
	b.hashMu.RLock()
	computed := b.hashesComputed
	b.hashMu.RUnlock()
	if computed {
		b.hash()
	}
}

// hash rebuilds the sorted hash vector as H("<id>-<k>", perturbation) for
// k in [1, weight], one hash value per weight unit.
func (b *Backend) hash() {
	id := b.ID()
	weight := b.Weight()
	perturb := internal.Perturbation()

	next := make([]uint32, weight)
	for k := 1; k <= weight; k++ {
		next[k-1] = hashfn.SumString(fmt.Sprintf("%s-%d", id, k), perturb)
	}
	sort.Slice(next, func(i, j int) bool { return next[i] < next[j] })

	b.hashMu.Lock()
	b.hashes = next
	b.hashesComputed = true
	b.hashMu.Unlock()
}

// Hashes returns the current hash vector. Implements policy.Backend.
// Callers must not mutate the returned slice; hash() always installs a
// freshly allocated one, so this is safe without a defensive copy.
func (b *Backend) Hashes() []uint32 {
	b.hashMu.RLock()
	defer b.hashMu.RUnlock()
	return b.hashes
}

// IsUp reports the backend's current liveness. Implements policy.Backend.
func (b *Backend) IsUp() bool {
	return health.State(b.healthState.Load()).IsUp()
}

// UpdateHealthState implements health.Tracker.
func (b *Backend) UpdateHealthState(who upstream.Upstream, state health.State) {
	if who.ID() != b.ID() {
		return
	}
	b.healthState.Store(int32(state))
}

// Outstanding, LatencyUsec and Queries implement policy.Backend.
func (b *Backend) Outstanding() int64 { return b.outstanding.Load() }
func (b *Backend) LatencyUsec() int64 { return b.latencyUsec.Load() }
func (b *Backend) Queries() int64     { return b.queries.Load() }

// AllowQPS implements policy.Backend by consulting the backend's own
// token bucket; a backend with no configured limit always allows.
func (b *Backend) AllowQPS() bool {
	if b.limiter == nil {
		return true
	}
	return b.limiter.Allow()
}

// UsesECS, ZeroScope and TCPOnly implement pool.Member.
func (b *Backend) UsesECS() bool   { return b.cfg.UseECS }
func (b *Backend) ZeroScope() bool { return !b.cfg.DisableZeroScope }
func (b *Backend) TCPOnly() bool   { return b.cfg.TCPOnly }

// Name returns the configured display name.
func (b *Backend) Name() string { return b.cfg.Name }

// Remote returns the configured upstream address.
func (b *Backend) Remote() string { return b.cfg.Remote }

// Stopped reports whether Stop has latched.
func (b *Backend) Stopped() bool { return b.stopped.Load() }

// Connected reports whether every socket is currently open.
func (b *Backend) Connected() bool { return b.connected.Load() }

// RecordQuery accounts for a dispatched query: the router calls this
// after a policy selects this backend, advancing the counters that
// policies themselves only read, never mutate.
func (b *Backend) RecordQuery() {
	b.queries.Add(1)
	b.outstanding.Add(1)
}

// RecordResponse accounts for a completed query with observed latency,
// retiring the outstanding count RecordQuery advanced for it. A response
// for an id that had already been reused is counted separately by the
// caller via RecordReuse.
func (b *Backend) RecordResponse(latencyUsec int64) {
	b.responses.Add(1)
	b.latencyUsec.Store(latencyUsec)
	if b.outstanding.Add(-1) < 0 {
		b.outstanding.Store(0)
	}
}

// RecordReuse accounts for an id-table collision or forced eviction.
func (b *Backend) RecordReuse() {
	b.reuseds.Add(1)
}

// StartHealthCheck starts checker's process for this backend, storing
// the resulting io.Closer so Shutdown releases it alongside the worker
// and the sockets. This is the seam named in health's package doc: the
// backend is both the upstream.Upstream identity and the health.Tracker
// the checker reports results to.
func (b *Backend) StartHealthCheck(ctx context.Context, checker health.Checker) {
	closer := checker.New(ctx, b, b)
	b.checkerCloser.Store(&closer)
}
