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
	"net"
	"sync"
)

// socket is one of a backend's parallel UDP sockets. fd is kept as a
// presence flag, -1 when closed; the actual handle is the *net.UDPConn,
// since that is what Go's runtime-integrated poller needs for
// non-blocking reads.
type socket struct {
	mu   sync.Mutex
	fd   int
	conn *net.UDPConn
}

func (s *socket) isOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fd >= 0
}

func (s *socket) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		_ = s.conn.Close()
	}
	s.conn = nil
	s.fd = -1
}

// shutdown unblocks any goroutine blocked in a read on this socket,
// without fully closing it; Go's net package has no shutdown(2)
// equivalent on a *net.UDPConn, so SetReadDeadline to the past is the
// idiomatic stand-in used here to wake a pending ReadFromUDP.
func (s *socket) shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		_ = s.conn.SetReadDeadline(timeInPast)
	}
}

// dial opens a fresh UDP socket to remote, applying source address,
// interface binding and DSCP as configured.
func dial(cfg Config) (*net.UDPConn, error) {
	dialer := &net.Dialer{Control: bindControl(cfg.SourceItfName)}
	if cfg.SourceAddr != "" {
		host, err := splitHostForBind(cfg.SourceAddr)
		if err != nil {
			return nil, err
		}
		dialer.LocalAddr = &net.UDPAddr{IP: net.ParseIP(host)}
	}

	rawConn, err := dialer.Dial("udp", cfg.Remote)
	if err != nil {
		return nil, err
	}
	udpConn, ok := rawConn.(*net.UDPConn)
	if !ok {
		_ = rawConn.Close()
		return nil, errDialNotUDP
	}
	if err := setDSCP(udpConn, cfg.DSCP); err != nil {
		_ = udpConn.Close()
		return nil, err
	}
	return udpConn, nil
}

// pickSocketForSending returns one of the backend's parallel sockets to
// send on: a single socket is returned directly; with several, the
// configured policy picks pseudo-randomly or by a monotonically
// advancing offset.
func (b *Backend) pickSocketForSending() *socket {
	if len(b.sockets) == 1 {
		return b.sockets[0]
	}
	var idx int
	if b.cfg.RandomizeSocketPick {
		idx = b.socketRand.Intn(len(b.sockets)) //nolint:gosec // load distribution, not security
	} else {
		idx = int(b.socketsOffset.Add(1) % uint64(len(b.sockets)))
	}
	return b.sockets[idx]
}
