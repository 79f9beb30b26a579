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

//go:build !linux

package backend

import (
	"net"
	"syscall"
)

// bindControl is unavailable off Linux: SO_BINDTODEVICE is a Linux
// socket option, so interface binding silently has no effect elsewhere,
// matching dnsdist's own "#ifdef SO_BINDTODEVICE" guard.
func bindControl(string) func(network, address string, c syscall.RawConn) error {
	return nil
}

// setDSCP is unavailable off Linux for the same reason.
func setDSCP(*net.UDPConn, int) error {
	return nil
}
