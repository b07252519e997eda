// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package relay turns one live RTSP or IGMP multicast source into a
// continuous byte stream for a single HTTP client.
package relay

import (
	"fmt"
	"net/netip"
	"strings"
)

// Kind selects the upstream transport of a Target.
type Kind int

const (
	KindRTSP Kind = iota
	KindMulticast
)

func (k Kind) String() string {
	switch k {
	case KindMulticast:
		return "multicast"
	default:
		return "rtsp"
	}
}

// Target is the upstream source of one relay.
type Target struct {
	Kind      Kind
	URL       string         // rtsp:// locator, KindRTSP only
	Group     netip.AddrPort // IPv4 group and port, KindMulticast only
	Interface string         // optional interface for the upstream socket
}

// String returns a loggable form of the target.
func (t Target) String() string {
	if t.Kind == KindMulticast {
		return t.Group.String()
	}
	return t.URL
}

// RTSPTarget rebuilds an RTSP locator from the path tail and raw query of a
// proxy request. The query is appended verbatim so playseek ranges survive.
func RTSPTarget(tail, rawQuery, iface string) (Target, error) {
	tail = strings.TrimLeft(tail, "/")
	if tail == "" {
		return Target{}, fmt.Errorf("empty rtsp locator")
	}
	u := "rtsp://" + tail
	if rawQuery != "" {
		u += "?" + rawQuery
	}
	return Target{Kind: KindRTSP, URL: u, Interface: iface}, nil
}

// MulticastTarget parses "a.b.c.d:port" into a multicast target.
func MulticastTarget(addr, iface string) (Target, error) {
	ap, err := netip.ParseAddrPort(addr)
	if err != nil {
		return Target{}, fmt.Errorf("invalid multicast address %q: %w", addr, err)
	}
	if !ap.Addr().Is4() {
		return Target{}, fmt.Errorf("multicast address %q is not IPv4", addr)
	}
	if ap.Port() == 0 {
		return Target{}, fmt.Errorf("multicast address %q has no port", addr)
	}
	return Target{Kind: KindMulticast, Group: ap, Interface: iface}, nil
}
