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

// The accessors and recorders below cover the remaining runtime counters
// (tcpCurrentConnections, tcpMaxConcurrentConnections, latencyUsecTCP,
// dropRate, queryLoad). Their producers live in the TCP transport and
// rate-tracking code this module does not itself implement; these
// methods are the seam that code would call through.

// RecordTCPConnect accounts for a newly established TCP connection,
// advancing the concurrent-connection high-water mark if needed.
func (b *Backend) RecordTCPConnect() {
	cur := b.tcpCurrentConnections.Add(1)
	for {
		prevMax := b.tcpMaxConcurrentConnections.Load()
		if cur <= prevMax || b.tcpMaxConcurrentConnections.CompareAndSwap(prevMax, cur) {
			return
		}
	}
}

// RecordTCPDisconnect accounts for a TCP connection closing.
func (b *Backend) RecordTCPDisconnect() {
	if b.tcpCurrentConnections.Add(-1) < 0 {
		b.tcpCurrentConnections.Store(0)
	}
}

// RecordTCPResponse records the latency observed on a TCP-carried query.
func (b *Backend) RecordTCPResponse(latencyUsec int64) {
	b.responses.Add(1)
	b.latencyUsecTCP.Store(latencyUsec)
}

// TCPCurrentConnections returns the current TCP connection count.
func (b *Backend) TCPCurrentConnections() int64 { return b.tcpCurrentConnections.Load() }

// TCPMaxConcurrentConnections returns the high-water mark for TCP
// connection count since the backend was constructed.
func (b *Backend) TCPMaxConcurrentConnections() int64 { return b.tcpMaxConcurrentConnections.Load() }

// LatencyUsecTCP returns the most recently observed TCP query latency.
func (b *Backend) LatencyUsecTCP() int64 { return b.latencyUsecTCP.Load() }

// SetDropRatePermille records the backend's current drop rate as parts
// per thousand of queries dropped, fixed-point to avoid a float atomic.
func (b *Backend) SetDropRatePermille(permille int64) { b.dropRatePermille.Store(permille) }

// DropRatePermille returns the last recorded drop rate.
func (b *Backend) DropRatePermille() int64 { return b.dropRatePermille.Load() }

// SetQueryLoad records the backend's current query load (an
// implementation-defined unit, typically queries per second sampled
// over a short window).
func (b *Backend) SetQueryLoad(load int64) { b.queryLoad.Store(load) }

// QueryLoad returns the last recorded query load.
func (b *Backend) QueryLoad() int64 { return b.queryLoad.Load() }

// Responses and Reuseds expose the two remaining plain monotonic
// counters.
func (b *Backend) Responses() int64 { return b.responses.Load() }
func (b *Backend) Reuseds() int64   { return b.reuseds.Load() }
