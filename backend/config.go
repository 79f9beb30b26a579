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

// Package backend implements the runtime state of a single upstream
// server: its configuration, its sockets, its counters, and the core
// operations on it (construct, setId, setWeight, hash, reconnect, stop,
// pickSocketForSending, saveState/restoreState/getState,
// handleUDPTimeouts). It follows the shape of a struct of atomics and a
// mutex, mutated from a small, well-defined set of methods and
// otherwise read lock-free by many goroutines at once.
package backend

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"
)

// timeInPast is used as a SetReadDeadline argument to force an in-flight
// read to return immediately, the Go stand-in for shutdown(SHUT_RDWR).
var timeInPast = time.Unix(0, 0)

var errDialNotUDP = errors.New("backend: dialed connection is not a UDP connection")

// Config is a backend's configuration. Every field is immutable once
// passed to New. Weight is only the initial weight: the backend's live
// weight and its id are held on the Backend itself and changed through
// SetWeight and SetID, which keep the derived hash vector in sync.
type Config struct {
	// Name is a display string; it has no uniqueness requirement.
	Name string
	// Remote is the upstream's address, "host:port".
	Remote string
	// SourceAddr optionally pins the local address used to dial Remote.
	SourceAddr string
	// SourceItfName optionally binds outgoing sockets to a named network
	// interface (SO_BINDTODEVICE on Linux; unsupported elsewhere).
	SourceItfName string

	// Order is the priority used for pool ordering; lower sorts first.
	Order int
	// Weight is the share used by weighted policies; must be >= 1.
	Weight int

	// NumberOfSockets is how many parallel UDP sockets to open to Remote.
	NumberOfSockets int
	// RandomizeSocketPick selects sockets pseudo-randomly instead of by
	// round-robin offset.
	RandomizeSocketPick bool
	// MaxUDPOutstanding sizes the sequential id table. Ignored when
	// RandomizeIDs is set.
	MaxUDPOutstanding int
	// RandomizeIDs switches the id multiplexer to the sparse, harder-to-
	// guess mode.
	RandomizeIDs bool
	// UDPTimeout is how long an in-flight UDP query may sit unanswered
	// before handleUDPTimeouts reclaims its slot.
	UDPTimeout time.Duration

	// QPSLimit caps sustained query rate; zero means unlimited.
	QPSLimit float64

	Retries           int
	TCPConnectTimeout time.Duration
	TCPSendTimeout    time.Duration
	TCPRecvTimeout    time.Duration

	UseECS           bool
	DisableZeroScope bool
	TCPOnly          bool
	UseProxyProtocol bool

	// Pools is the set of pool names this backend should be registered
	// into; the backend package itself does not act on this, it is read
	// by whatever wires backends into router pools.
	Pools []string

	// DSCP optionally sets the outgoing IP_TOS/traffic-class byte.
	DSCP int
}

func (c Config) validate() error {
	if c.Weight < 1 {
		return fmt.Errorf("backend %q: weight must be >= 1, got %d", c.Name, c.Weight)
	}
	if c.Remote == "" {
		return fmt.Errorf("backend %q: remote is required", c.Name)
	}
	if c.NumberOfSockets < 1 {
		return fmt.Errorf("backend %q: numberOfSockets must be >= 1, got %d", c.Name, c.NumberOfSockets)
	}
	if !c.TCPOnly && c.MaxUDPOutstanding < 1 && !c.RandomizeIDs {
		return fmt.Errorf("backend %q: maxUDPOutstanding must be >= 1 for the sequential id table", c.Name)
	}
	if c.SourceAddr != "" {
		if _, err := net.ResolveUDPAddr("udp", c.SourceAddr); err != nil {
			return fmt.Errorf("backend %q: invalid sourceAddr %q: %w", c.Name, c.SourceAddr, err)
		}
	}
	if c.SourceItfName != "" {
		if _, err := net.InterfaceByName(c.SourceItfName); err != nil {
			return fmt.Errorf("backend %q: invalid sourceItf %q: %w", c.Name, c.SourceItfName, err)
		}
	}
	return nil
}

// errStopped describes an operation attempted after Stop has latched. No
// function in this package returns it: reconnect reports a stopped
// backend by returning false.
var errStopped = errors.New("backend: stopped")

func splitHostForBind(addr string) (string, error) {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		if strings.Contains(err.Error(), "missing port") {
			return addr, nil
		}
		return "", err
	}
	return host, nil
}
