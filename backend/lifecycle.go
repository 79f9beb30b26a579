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

// reconnect tears down and reopens every socket under connectLock. It
// returns false without doing anything if the backend is stopped or
// another reconnect is already in flight (try-lock semantics: a
// reconnect already running wins, callers don't queue behind it).
func (b *Backend) reconnect(initial bool) bool {
	if b.stopped.Load() {
		return false
	}
	if !b.connectLock.TryLock() {
		return false
	}
	defer b.connectLock.Unlock()

	b.connected.Store(false)
	for _, s := range b.sockets {
		s.close()
	}

	if b.cfg.TCPOnly {
		// TCP-only backends have no pre-opened UDP sockets to manage;
		// connections are dialed per-query by the (out-of-scope) TCP
		// transport, so reconnect just clears the "down" state.
		b.connected.Store(true)
		if !initial {
			b.startWorker()
		}
		return true
	}

	opened := make([]*socket, 0, len(b.sockets))
	ok := true
	for range b.sockets {
		conn, err := dial(b.cfg)
		if err != nil {
			ok = false
			break
		}
		opened = append(opened, &socket{fd: 0, conn: conn})
	}
	if !ok {
		for _, s := range opened {
			s.close()
		}
		return false
	}

	for i, s := range opened {
		b.sockets[i] = s
	}
	b.connected.Store(true)

	if !initial {
		b.startWorker()
	}
	return true
}

// Reconnect is the exported form of reconnect, for callers (the
// reconnect/timeout worker, or an operator-triggered config reload) that
// need to re-establish sockets after the initial connect.
func (b *Backend) Reconnect() bool {
	return b.reconnect(false)
}

// Stop latches stopped and shuts down every open socket to unblock any
// blocked receiver. It is idempotent.
func (b *Backend) Stop() {
	if !b.stopped.CompareAndSwap(false, true) {
		return
	}
	for _, s := range b.sockets {
		s.shutdown()
	}
	close(b.workerStop)
}

// Close releases the backend's sockets. It should be called once the
// backend's worker has observed Stop and exited.
func (b *Backend) Close() error {
	for _, s := range b.sockets {
		s.close()
	}
	return nil
}
