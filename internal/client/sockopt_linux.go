//go:build linux
// +build linux

/*
extref — fetch one web page and list the external domains it references
Copyright (C) 2025  Pepijn van der Stap <rxtls@vanderstap.info>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU Affero General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU Affero General Public License for more details.

You should have received a copy of the GNU Affero General Public License
along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

package client

import (
	"fmt"
	"syscall"

	"golang.org/x/sys/unix"
)

// socketControl returns a net.Dialer Control hook that applies SO_RCVBUF before
// connect, or nil when no receive buffer size is configured.
func socketControl(cfg *Config) func(network, address string, c syscall.RawConn) error {
	if cfg.ReceiveBufferSize <= 0 {
		return nil
	}
	size := cfg.ReceiveBufferSize

	return func(network, address string, c syscall.RawConn) error {
		var sockErr error
		if err := c.Control(func(fd uintptr) {
			sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_RCVBUF, size)
		}); err != nil {
			return err
		}
		if sockErr != nil {
			return fmt.Errorf("failed to set SO_RCVBUF=%d on %s: %w", size, address, sockErr)
		}
		return nil
	}
}
