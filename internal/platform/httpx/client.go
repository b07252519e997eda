package httpx

import (
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/net/publicsuffix"

	pnet "github.com/ManuGH/iptvproxy/internal/platform/net"
)

const (
	defaultClientTimeout         = 5 * time.Second
	defaultDialTimeout           = 3 * time.Second
	defaultResponseHeaderTimeout = 3 * time.Second
	defaultIdleConnTimeout       = 30 * time.Second
	defaultExpectContinueTimeout = 1 * time.Second
	defaultMaxIdleConns          = 16
	defaultMaxIdleConnsPerHost   = 4
)

// Options configures a session client.
type Options struct {
	Timeout   time.Duration
	Interface string // optional egress interface
	Cookies   bool   // attach a fresh cookie jar
	Trace     bool   // wrap the transport with otelhttp
}

// NewClient returns a hardened HTTP client for plain fetches.
func NewClient(timeout time.Duration) *http.Client {
	client, _ := NewSessionClient(Options{Timeout: timeout})
	return client
}

// NewSessionClient returns a client for one upstream session: optional cookie
// store, optional interface binding, hardened transport timeouts.
func NewSessionClient(opts Options) (*http.Client, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultClientTimeout
	}

	dialTimeout := timeout
	if dialTimeout > defaultDialTimeout {
		dialTimeout = defaultDialTimeout
	}

	responseHeaderTimeout := timeout
	if responseHeaderTimeout > defaultResponseHeaderTimeout {
		responseHeaderTimeout = defaultResponseHeaderTimeout
	}

	dialer, err := pnet.Dialer(opts.Interface, dialTimeout)
	if err != nil {
		return nil, fmt.Errorf("bind interface: %w", err)
	}

	var transport http.RoundTripper = &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          defaultMaxIdleConns,
		MaxIdleConnsPerHost:   defaultMaxIdleConnsPerHost,
		IdleConnTimeout:       defaultIdleConnTimeout,
		TLSHandshakeTimeout:   dialTimeout,
		ResponseHeaderTimeout: responseHeaderTimeout,
		ExpectContinueTimeout: defaultExpectContinueTimeout,
	}
	if opts.Trace {
		transport = otelhttp.NewTransport(transport)
	}

	client := &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
	if opts.Cookies {
		jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
		if err != nil {
			return nil, fmt.Errorf("cookie jar: %w", err)
		}
		client.Jar = jar
	}
	return client, nil
}
