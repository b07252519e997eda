// SPDX-License-Identifier: MIT

// Package jobs builds playlists and guides from the portal, keeps the last
// good copy of each and exports them on a schedule.
package jobs

import (
	"context"
	"errors"
	"net/url"
	"time"

	"github.com/ManuGH/iptvproxy/internal/portal"
)

// ErrUnavailable is returned when a build failed and no earlier copy exists.
var ErrUnavailable = errors.New("jobs: artifact unavailable")

// ChannelSource provides catalogs; satisfied by *portal.Client.
type ChannelSource interface {
	FetchChannels(ctx context.Context, ep portal.Endpoint, withGuide bool) ([]portal.Channel, error)
}

// IconSource provides channel logos; satisfied by *portal.Client.
type IconSource interface {
	ChannelIcon(ctx context.Context, id uint64) ([]byte, error)
}

// Base is the public address clients use to reach this proxy. Proxied
// locators and logo links are built from it.
type Base struct {
	Scheme string
	Host   string
}

// ParseBase reads scheme://host from a URL.
func ParseBase(raw string) (Base, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Base{}, err
	}
	if u.Scheme == "" || u.Host == "" {
		return Base{}, errors.New("public url needs scheme and host")
	}
	return Base{Scheme: u.Scheme, Host: u.Host}, nil
}

func (b Base) String() string {
	scheme := b.Scheme
	if scheme == "" {
		scheme = "http"
	}
	return scheme + "://" + b.Host
}

// Artifact is a rendered playlist or guide.
type Artifact struct {
	Body     []byte
	Channels int
	Fallback bool // served from the last good copy after a failed build
}

// Status reports the scheduled export.
type Status struct {
	LastRun     time.Time `json:"last_run"`
	LastSuccess time.Time `json:"last_success"`
	Channels    int       `json:"channels"`
	Error       string    `json:"error,omitempty"`
}
