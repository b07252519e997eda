//go:build unix && !linux

package net

import (
	"net"
	"syscall"

	"golang.org/x/sys/unix"
)

// Without SO_BINDTODEVICE the source address selects the interface.
func bindDialer(d *net.Dialer, iface string) error {
	ip, err := InterfaceIPv4(iface)
	if err != nil {
		return err
	}
	d.LocalAddr = &net.TCPAddr{IP: ip}
	return nil
}

func multicastControl(_ string) func(network, address string, c syscall.RawConn) error {
	return func(_, _ string, c syscall.RawConn) error {
		var sockErr error
		if err := c.Control(func(fd uintptr) {
			if sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); sockErr != nil {
				return
			}
			sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEPORT, 1)
		}); err != nil {
			return err
		}
		return sockErr
	}
}
