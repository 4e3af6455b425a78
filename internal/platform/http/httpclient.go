// Package http builds the outbound HTTP client used by network price sources.
package http

import (
	"net"
	"net/http"
	"time"
)

// DefaultUserAgent identifies pipeline requests to upstream APIs.
const DefaultUserAgent = "stock-pipeline/1.0"

// ClientOptions tunes the client for one upstream.
type ClientOptions struct {
	Timeout time.Duration
	// MaxConnsPerHost caps open connections to the upstream; 0 means no cap.
	MaxConnsPerHost int
	UserAgent       string
}

// NewHTTPClient returns a client with explicit dial, TLS and overall timeouts.
// http.DefaultClient has no timeout and must not be used for upstream APIs.
func NewHTTPClient(opts ClientOptions) *http.Client {
	t := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        20,
		MaxIdleConnsPerHost: 4,
		MaxConnsPerHost:     opts.MaxConnsPerHost,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 5 * time.Second,
	}

	ua := opts.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}
	return &http.Client{
		Timeout:   opts.Timeout,
		Transport: &userAgentTransport{base: t, userAgent: ua},
	}
}

// userAgentTransport sets User-Agent on requests that do not carry one.
type userAgentTransport struct {
	base      http.RoundTripper
	userAgent string
}

func (u *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") != "" {
		return u.base.RoundTrip(req)
	}
	r := req.Clone(req.Context())
	r.Header.Set("User-Agent", u.userAgent)
	return u.base.RoundTrip(r)
}
