//go:build !unix

package net

import (
	"net"
	"syscall"
)

func bindDialer(d *net.Dialer, iface string) error {
	ip, err := InterfaceIPv4(iface)
	if err != nil {
		return err
	}
	d.LocalAddr = &net.TCPAddr{IP: ip}
	return nil
}

func multicastControl(_ string) func(network, address string, c syscall.RawConn) error {
	return nil
}
