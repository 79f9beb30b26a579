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

//go:build linux

package backend

import (
	"fmt"
	"net"
	"syscall"

	"golang.org/x/sys/unix"
)

// bindControl returns a net.Dialer.Control function that binds the
// dialed socket to the named interface via SO_BINDTODEVICE, mirroring
// dnsdist's reconnect() on Linux.
func bindControl(itfName string) func(network, address string, c syscall.RawConn) error {
	if itfName == "" {
		return nil
	}
	return func(_, _ string, c syscall.RawConn) error {
		var setErr error
		err := c.Control(func(fd uintptr) {
			setErr = unix.BindToDevice(int(fd), itfName)
		})
		if err != nil {
			return fmt.Errorf("control: %w", err)
		}
		if setErr != nil {
			return fmt.Errorf("SO_BINDTODEVICE %q: %w", itfName, setErr)
		}
		return nil
	}
}

// setDSCP sets the outgoing IP_TOS byte so dscp<<2 becomes the packet's
// DSCP field, matching dnsdist's per-backend DSCP configuration.
func setDSCP(conn *net.UDPConn, dscp int) error {
	if dscp == 0 {
		return nil
	}
	raw, err := conn.SyscallConn()
	if err != nil {
		return fmt.Errorf("raw conn: %w", err)
	}
	var setErr error
	err = raw.Control(func(fd uintptr) {
		setErr = unix.SetsockoptInt(int(fd), unix.IPPROTO_IP, unix.IP_TOS, dscp<<2)
	})
	if err != nil {
		return fmt.Errorf("control: %w", err)
	}
	if setErr != nil {
		return fmt.Errorf("IP_TOS: %w", setErr)
	}
	return nil
}
