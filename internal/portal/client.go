// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package portal

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand/v2"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	xglog "github.com/ManuGH/iptvproxy/internal/log"
	"github.com/ManuGH/iptvproxy/internal/metrics"
	"github.com/ManuGH/iptvproxy/internal/platform/httpx"
)

// DefaultAuthURL is the Guangdong Telecom EDS login endpoint.
const DefaultAuthURL = "http://eds.iptv.gd.cn:8082/EDS/jsp/AuthenticationURL"

const (
	defaultTimeout          = 5 * time.Second
	defaultGuideConcurrency = 8
	maxBodyBytes            = 8 << 20

	clientID = "smcphone"
)

// Config configures a portal client.
type Config struct {
	AuthURL          string
	Credentials      Credentials
	Timeout          time.Duration
	GuideConcurrency int     // parallel guide requests
	GuideRPS         float64 // 0 disables request pacing
	Parser           CatalogParser
	Breaker          *CircuitBreaker
	Trace            bool

	// Now and Nonce are overridable for tests.
	Now   func() time.Time
	Nonce func() int
}

// Client performs handshakes and fetches against the portal. It holds no
// session state; every fetch runs its own handshake.
type Client struct {
	cfg     Config
	parser  CatalogParser
	breaker *CircuitBreaker
	limiter *rate.Limiter
	now     func() time.Time
	nonce   func() int
	log     zerolog.Logger
}

// New creates a portal client.
func New(cfg Config) *Client {
	if cfg.AuthURL == "" {
		cfg.AuthURL = DefaultAuthURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.GuideConcurrency <= 0 {
		cfg.GuideConcurrency = defaultGuideConcurrency
	}
	c := &Client{
		cfg:     cfg,
		parser:  cfg.Parser,
		breaker: cfg.Breaker,
		now:     cfg.Now,
		nonce:   cfg.Nonce,
		log:     xglog.WithComponent("portal"),
	}
	if c.parser == nil {
		c.parser = ScriptCatalogParser{}
	}
	if c.breaker == nil {
		c.breaker = NewCircuitBreaker(5, 30*time.Second)
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.nonce == nil {
		c.nonce = func() int { return rand.IntN(authNonceLimit) }
	}
	if cfg.GuideRPS > 0 {
		burst := int(cfg.GuideRPS)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.GuideRPS), burst)
	}
	return c
}

func (c *Client) newHTTPClient() (*http.Client, error) {
	hc, err := httpx.NewSessionClient(httpx.Options{
		Timeout:   c.cfg.Timeout,
		Interface: c.cfg.Credentials.Interface,
		Cookies:   true,
		Trace:     c.cfg.Trace,
	})
	if err != nil {
		return nil, newError(ErrNetwork, "client", 0, err)
	}
	return hc, nil
}

// Authenticate runs the full handshake: login, authorize, token.
func (c *Client) Authenticate(ctx context.Context) (*Session, error) {
	var sess *Session
	err := c.breaker.Execute(func() error {
		var err error
		sess, err = c.authenticate(ctx)
		return err
	})
	metrics.IncHandshake(err == nil)
	if err != nil {
		return nil, err
	}
	return sess, nil
}

func (c *Client) authenticate(ctx context.Context) (*Session, error) {
	logger := xglog.WithContext(ctx, c.log)
	creds := c.cfg.Credentials

	hc, err := c.newHTTPClient()
	if err != nil {
		return nil, err
	}

	base, err := c.login(ctx, hc)
	if err != nil {
		return nil, err
	}

	token, err := c.authorize(ctx, hc, base)
	if err != nil {
		return nil, err
	}

	authinfo, err := DeriveAuthInfo(creds.Password, token, creds.Identity(), c.nonce())
	if err != nil {
		return nil, newError(ErrAuth, "authinfo", 0, err)
	}

	q := url.Values{}
	q.Set("client_id", clientID)
	q.Set("DeviceType", "deviceType")
	q.Set("UserID", creds.UserID)
	q.Set("DeviceVersion", "deviceVersion")
	q.Set("userdomain", "2")
	q.Set("datadomain", "3")
	q.Set("accountType", "1")
	q.Set("authinfo", authinfo)
	q.Set("grant_type", "EncryToken")
	if _, err := c.get(ctx, hc, "token", base+"/EPG/oauth/v2/token?"+q.Encode(), ErrAuth); err != nil {
		return nil, err
	}

	logger.Debug().
		Str(xglog.FieldEvent, "portal.authenticated").
		Str(xglog.FieldBaseURL, base).
		Msg("portal session established")
	return &Session{BaseURL: base, HTTP: hc}, nil
}

// Login performs only the first handshake step and returns the portal base URL.
func (c *Client) Login(ctx context.Context) (string, *http.Client, error) {
	hc, err := c.newHTTPClient()
	if err != nil {
		return "", nil, err
	}
	var base string
	err = c.breaker.Execute(func() error {
		var err error
		base, err = c.login(ctx, hc)
		return err
	})
	if err != nil {
		return "", nil, err
	}
	return base, hc, nil
}

// CheckLogin checks that the portal answers a login. Used for readiness.
func (c *Client) CheckLogin(ctx context.Context) error {
	_, hc, err := c.Login(ctx)
	if err != nil {
		return err
	}
	hc.CloseIdleConnections()
	return nil
}

func (c *Client) login(ctx context.Context, hc *http.Client) (string, error) {
	u, err := url.Parse(c.cfg.AuthURL)
	if err != nil {
		return "", newError(ErrAuth, "login", 0, err)
	}
	q := u.Query()
	q.Set("Action", "Login")
	q.Set("return_type", "1")
	q.Set("UserID", c.cfg.Credentials.UserID)
	u.RawQuery = q.Encode()

	body, err := c.get(ctx, hc, "login", u.String(), ErrAuth)
	if err != nil {
		return "", err
	}

	var resp struct {
		EPGURL string `json:"epgurl"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", newError(ErrAuth, "login", 0, fmt.Errorf("decode login response: %w", err))
	}
	base, err := baseURL(resp.EPGURL)
	if err != nil {
		return "", newError(ErrAuth, "login", 0, err)
	}
	return base, nil
}

func (c *Client) authorize(ctx context.Context, hc *http.Client, base string) (string, error) {
	q := url.Values{}
	q.Set("response_type", "EncryToken")
	q.Set("client_id", clientID)
	q.Set("userid", c.cfg.Credentials.UserID)

	body, err := c.get(ctx, hc, "authorize", base+"/EPG/oauth/v2/authorize?"+q.Encode(), ErrAuth)
	if err != nil {
		return "", err
	}

	var resp struct {
		Token string `json:"EncryToken"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", newError(ErrAuth, "authorize", 0, fmt.Errorf("decode token: %w", err))
	}
	if resp.Token == "" {
		return "", newError(ErrAuth, "authorize", 0, fmt.Errorf("empty EncryToken"))
	}
	return resp.Token, nil
}

// baseURL reduces the portal's EPG URL to scheme://host:port.
func baseURL(epgURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(epgURL))
	if err != nil {
		return "", fmt.Errorf("parse epgurl: %w", err)
	}
	host := u.Hostname()
	if u.Scheme == "" || host == "" {
		return "", fmt.Errorf("epgurl %q has no host", epgURL)
	}
	port := u.Port()
	if port == "" {
		switch strings.ToLower(u.Scheme) {
		case "http":
			port = "80"
		case "https":
			port = "443"
		default:
			return "", fmt.Errorf("epgurl %q has no port", epgURL)
		}
	}
	return u.Scheme + "://" + net.JoinHostPort(host, port), nil
}

// get issues a GET and returns the body. Transport failures map to
// ErrNetwork, non-2xx responses to statusErr.
func (c *Client) get(ctx context.Context, hc *http.Client, op, rawURL string, statusErr error) ([]byte, error) {
	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, newError(statusErr, op, 0, err)
	}

	resp, err := hc.Do(req)
	if err != nil {
		metrics.ObservePortalRequest(op, false, time.Since(start))
		return nil, newError(ErrNetwork, op, 0, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		metrics.ObservePortalRequest(op, false, time.Since(start))
		return nil, newError(ErrNetwork, op, resp.StatusCode, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.ObservePortalRequest(op, false, time.Since(start))
		return nil, newError(statusErr, op, resp.StatusCode, nil)
	}
	metrics.ObservePortalRequest(op, true, time.Since(start))
	return body, nil
}
