// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package net binds outbound and multicast sockets to a named network interface.
package net

import (
	"fmt"
	"net"
	"time"
)

// InterfaceIPv4 returns the first non-loopback IPv4 address of the named interface.
func InterfaceIPv4(name string) (net.IP, error) {
	iface, err := net.InterfaceByName(name)
	if err != nil {
		return nil, fmt.Errorf("resolve interface %q: %w", name, err)
	}
	addrs, err := iface.Addrs()
	if err != nil {
		return nil, fmt.Errorf("list addrs for %q: %w", name, err)
	}
	for _, a := range addrs {
		var ip net.IP
		switch v := a.(type) {
		case *net.IPNet:
			ip = v.IP
		case *net.IPAddr:
			ip = v.IP
		}
		if ip == nil || ip.IsLoopback() || ip.To4() == nil {
			continue
		}
		return ip.To4(), nil
	}
	return nil, fmt.Errorf("no suitable IPv4 on interface %q", name)
}

// LookupInterface resolves name to an interface; an empty name yields nil
// so that callers fall back to the system default route.
func LookupInterface(name string) (*net.Interface, error) {
	if name == "" {
		return nil, nil
	}
	ifi, err := net.InterfaceByName(name)
	if err != nil {
		return nil, fmt.Errorf("resolve interface %q: %w", name, err)
	}
	return ifi, nil
}

// Dialer returns a dialer whose connections leave through iface.
// An empty iface returns a plain dialer.
func Dialer(iface string, timeout time.Duration) (*net.Dialer, error) {
	d := &net.Dialer{Timeout: timeout, KeepAlive: 30 * time.Second}
	if iface == "" {
		return d, nil
	}
	if err := bindDialer(d, iface); err != nil {
		return nil, err
	}
	return d, nil
}

// MulticastListenConfig returns a listen config for group receivers. Sockets
// allow address reuse so several relays can share a port, and are bound to
// iface where the platform supports it.
func MulticastListenConfig(iface string) net.ListenConfig {
	return net.ListenConfig{Control: multicastControl(iface)}
}
