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

package lbcore

import (
	"errors"
	"fmt"
	"sync"

	"github.com/miekg/dns"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dnslb/lbcore/hashfn"
	"github.com/dnslb/lbcore/internal"
	"github.com/dnslb/lbcore/policy"
	"github.com/dnslb/lbcore/pool"
)

// Errors returned by Router.SelectServer. An unknown pool or policy
// name is a configuration bug surfaced through the dispatch path rather
// than a runtime dispatch failure, so callers should treat
// ErrUnknownPool/ErrUnknownPolicy as fatal to the request path that
// produced them, unlike ErrNoBackendAvailable which is a routine
// "nothing was up" outcome.
var (
	ErrUnknownPool        = errors.New("lbcore: unknown pool")
	ErrUnknownPolicy      = errors.New("lbcore: unknown policy")
	ErrNoBackendAvailable = errors.New("lbcore: no backend available")
)

// Query is the minimal per-query information Router.SelectServer needs:
// the question being asked, plus an optional Skip predicate for a
// caller doing a multi-try dispatch loop (consulted only by
// orderedWrandUntag).
type Query struct {
	Name  string
	Type  uint16
	Class uint16
	Skip  func(policy.Candidate) bool
}

// builtinPolicies is the name -> Factory table every Router starts with,
// covering all seven built-in selection policies.
func builtinPolicies() map[string]policy.Factory {
	return map[string]policy.Factory{
		"firstAvailable":    policy.FirstAvailableFactory,
		"roundrobin":        policy.RoundRobinFactory,
		"leastOutstanding":  policy.LeastOutstandingFactory,
		"wrandom":           policy.WeightedRandomFactory,
		"whashed":           policy.WeightedHashedFactory,
		"chashed":           policy.ConsistentHashedFactory,
		"orderedWrandUntag": policy.OrderedWeightedRandomUntagFactory,
	}
}

// Router is the only entry point request I/O paths should call. It
// owns the pool-name -> *pool.Pool mapping and the
// policy-name -> policy.Factory registry, and amortizes selector
// construction across queries the same way a *pool.Pool amortizes
// ordinal renumbering: only rebuilding when membership actually changes.
type Router struct {
	logger zerolog.Logger

	mu         sync.RWMutex
	pools      map[string]*pool.Pool
	policies   map[string]policy.Factory
	activeName map[string]string

	cacheMu sync.Mutex
	cache   map[string]*selectorCache
}

type selectorCache struct {
	mu       sync.Mutex
	version  uint64
	factory  string
	selector policy.Selector
}

// RouterOption configures optional NewRouter behavior.
type RouterOption func(*Router)

// WithLogger overrides the zerolog.Logger the Router uses for dispatch
// diagnostics (unknown pools, misses and selections). The default is the
// global zerolog logger.
func WithLogger(logger zerolog.Logger) RouterOption {
	return func(r *Router) { r.logger = logger }
}

// NewRouter creates an empty Router pre-populated with the seven builtin
// policies, keyed by the names in the table above.
func NewRouter(opts ...RouterOption) *Router {
	r := &Router{
		logger:     log.Logger,
		pools:      make(map[string]*pool.Pool),
		policies:   builtinPolicies(),
		activeName: make(map[string]string),
		cache:      make(map[string]*selectorCache),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RegisterPolicy adds or overrides a named policy.Factory. Use this to
// register a Factory built with a non-default balancing factor (e.g.
// policy.NewWeightedRandom(1.5)) under its own name.
func (r *Router) RegisterPolicy(name string, factory policy.Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.policies[name] = factory
}

// AddPool registers p under its own Name and selects policyName as its
// active policy. It returns ErrUnknownPolicy if policyName was never
// registered.
func (r *Router) AddPool(p *pool.Pool, policyName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.policies[policyName]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownPolicy, policyName)
	}
	r.pools[p.Name()] = p
	r.activeName[p.Name()] = policyName
	r.resetCacheLocked(p.Name())
	return nil
}

// RemovePool unregisters a pool by name; SelectServer on that name
// afterward returns ErrUnknownPool.
func (r *Router) RemovePool(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.pools, name)
	delete(r.activeName, name)
	r.resetCacheLocked(name)
}

// SetPolicy changes the active policy for an already-registered pool.
func (r *Router) SetPolicy(poolName, policyName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.pools[poolName]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownPool, poolName)
	}
	if _, ok := r.policies[policyName]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownPolicy, policyName)
	}
	r.activeName[poolName] = policyName
	r.resetCacheLocked(poolName)
	return nil
}

// +checklocks:r.mu
func (r *Router) resetCacheLocked(poolName string) {
	r.cacheMu.Lock()
	defer r.cacheMu.Unlock()
	delete(r.cache, poolName)
}

// SelectServer fingerprints the query, resolves the pool and its
// active policy, and asks that policy's Selector to pick one candidate.
func (r *Router) SelectServer(q Query, poolName string) (policy.Candidate, error) {
	r.mu.RLock()
	p, poolOK := r.pools[poolName]
	policyName, nameOK := r.activeName[poolName]
	factory := r.policies[policyName]
	r.mu.RUnlock()

	if !poolOK {
		r.logger.Warn().Str("pool", poolName).Str("qname", q.Name).Msg("lbcore: dispatch to unconfigured pool")
		return policy.Candidate{}, fmt.Errorf("%w: %q", ErrUnknownPool, poolName)
	}
	if !nameOK {
		r.logger.Warn().Str("pool", poolName).Msg("lbcore: pool has no active policy")
		return policy.Candidate{}, fmt.Errorf("%w: pool %q has no active policy", ErrUnknownPolicy, poolName)
	}

	selector := r.selectorFor(poolName, policyName, factory, p)
	fingerprint := hashfn.SumString(q.Name, internal.Perturbation())
	candidate, ok := selector.Select(policy.Context{Fingerprint: fingerprint, Skip: q.Skip})
	if !ok {
		r.logger.Debug().
			Str("pool", poolName).
			Str("policy", policyName).
			Str("qname", q.Name).
			Str("qtype", dns.TypeToString[q.Type]).
			Msg("lbcore: no backend available")
		return policy.Candidate{}, ErrNoBackendAvailable
	}

	r.logger.Debug().
		Str("pool", poolName).
		Str("policy", policyName).
		Str("qname", q.Name).
		Int("backend_ordinal", candidate.Index).
		Msg("lbcore: selected backend")
	return candidate, nil
}

// selectorFor returns the cached Selector for poolName if the pool's
// membership hasn't changed and the active policy name hasn't changed
// since it was built, rebuilding otherwise. This is what lets
// round-robin offsets and consistent-hash rings amortize across many
// queries instead of being rebuilt on every single one.
func (r *Router) selectorFor(poolName, policyName string, factory policy.Factory, p *pool.Pool) policy.Selector {
	r.cacheMu.Lock()
	entry, ok := r.cache[poolName]
	if !ok {
		entry = &selectorCache{}
		r.cache[poolName] = entry
	}
	r.cacheMu.Unlock()

	entry.mu.Lock()
	defer entry.mu.Unlock()

	version := p.Version()
	if entry.selector != nil && entry.version == version && entry.factory == policyName {
		return entry.selector
	}

	candidates := p.Candidates()
	entry.selector = factory.New(entry.selector, candidates)
	entry.version = version
	entry.factory = policyName
	return entry.selector
}
