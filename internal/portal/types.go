// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package portal talks to the operator's EPG portal: session handshake,
// channel catalog scraping and program guide collection.
package portal

import "net/http"

// Credentials identify the subscriber line against the portal.
type Credentials struct {
	UserID    string
	Password  string
	MAC       string
	IMEI      string
	Address   string // client IP reported in the auth payload
	Interface string // optional egress interface for all portal traffic
}

// Identity returns the device identity embedded in the auth payload.
func (c Credentials) Identity() Identity {
	return Identity{UserID: c.UserID, IMEI: c.IMEI, Address: c.Address, MAC: c.MAC}
}

// Identity is the device fingerprint the portal expects inside authinfo.
type Identity struct {
	UserID  string
	IMEI    string
	Address string
	MAC     string
}

// Session is an authenticated portal session. The cookie jar of HTTP carries
// the authorisation; it is valid for one catalog/guide fetch only.
type Session struct {
	BaseURL string
	HTTP    *http.Client
}

// Program is one guide entry. Start and Stop are epoch milliseconds.
type Program struct {
	Start int64
	Stop  int64
	Title string
	Desc  string
}

// Channel is one entry of the scraped catalog.
type Channel struct {
	ID       uint64
	Name     string
	RTSP     string // primary locator, always present
	IGMP     string // secondary multicast locator, empty when absent
	Category string
	Programs []Program
}

// HasMulticast reports whether the channel carries a multicast locator.
func (c Channel) HasMulticast() bool {
	return c.IGMP != ""
}

// Endpoint describes how this proxy is reached by players. It drives the
// rewriting of upstream locators into proxy URLs.
type Endpoint struct {
	Scheme    string
	Host      string
	ProxyRTSP bool
	ProxyUDP  bool
}
