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

// Package health provides pluggable liveness tracking for backends.
//
// This package defines the core type [Checker], which creates
// health-checking processes for backends, and the interface [Tracker],
// through which a checking process reports state transitions back to the
// routing core. The actual probing logic (HTTP GET, DNS query, or any
// other liveness signal) is supplied by the embedder via a [Prober]; this
// package only carries state and scheduling. It corresponds to the
// "auto" / "lazy" / "up" / "down" availability selector from the backend
// configuration: "auto" uses [NewPollingChecker], "lazy" uses
// [NewLazyChecker], and "up"/"down" use [ForcedUpChecker]/[ForcedDownChecker].
package health
