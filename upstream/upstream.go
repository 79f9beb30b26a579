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

// Package upstream defines the minimal identity that the health package
// needs from a backend, without depending on the (much larger) backend
// package. A *backend.Backend implements this interface.
package upstream

// Upstream is a comparable handle to a single backend, through which
// health checkers name the backend they report on. It carries no
// behavior of its own.
type Upstream interface {
	// ID returns the backend's UUID. backend.Backend.UpdateHealthState
	// compares it to ignore reports meant for another backend.
	ID() string
}
