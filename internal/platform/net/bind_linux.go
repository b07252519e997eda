//go:build linux

package net

import (
	"net"
	"syscall"

	"golang.org/x/sys/unix"
)

func bindDialer(d *net.Dialer, iface string) error {
	d.Control = func(_, _ string, c syscall.RawConn) error {
		var sockErr error
		if err := c.Control(func(fd uintptr) {
			sockErr = unix.BindToDevice(int(fd), iface)
		}); err != nil {
			return err
		}
		return sockErr
	}
	return nil
}

func multicastControl(iface string) func(network, address string, c syscall.RawConn) error {
	return func(_, _ string, c syscall.RawConn) error {
		var sockErr error
		if err := c.Control(func(fd uintptr) {
			if sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); sockErr != nil {
				return
			}
			if iface != "" {
				sockErr = unix.BindToDevice(int(fd), iface)
			}
		}); err != nil {
			return err
		}
		return sockErr
	}
}
