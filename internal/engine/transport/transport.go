// Package transport builds the HTTP transports used against the search API
// and the public business pages.
package transport

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	utls "github.com/refraction-networking/utls"
)

var dialer = &net.Dialer{
	Timeout:   10 * time.Second,
	KeepAlive: 30 * time.Second,
}

// API returns a plain transport for the JSON search API, routed through
// proxyURL when set.
func API(proxyURL string) (*http.Transport, error) {
	t := &http.Transport{
		DialContext:         dialer.DialContext,
		MaxIdleConns:        32,
		MaxIdleConnsPerHost: 32,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	if err := applyProxy(t, proxyURL); err != nil {
		return nil, err
	}
	return t, nil
}

// Browser returns a transport that presents a Chrome TLS fingerprint, for
// fetching business pages that reject Go's default handshake. With a proxy
// it falls back to standard TLS since the proxy terminates the tunnel.
func Browser(proxyURL string) (*http.Transport, error) {
	t := &http.Transport{
		DialTLSContext:      dialChrome,
		MaxIdleConns:        16,
		MaxIdleConnsPerHost: 16,
		IdleConnTimeout:     90 * time.Second,
	}
	if proxyURL != "" {
		if err := applyProxy(t, proxyURL); err != nil {
			return nil, err
		}
		t.DialTLSContext = nil
		t.TLSClientConfig = &tls.Config{}
	}
	return t, nil
}

func applyProxy(t *http.Transport, proxyURL string) error {
	if proxyURL == "" {
		return nil
	}
	u, err := url.Parse(proxyURL)
	if err != nil {
		return fmt.Errorf("parsing proxy url: %w", err)
	}
	t.Proxy = http.ProxyURL(u)
	return nil
}

func dialChrome(ctx context.Context, network, addr string) (net.Conn, error) {
	conn, err := dialer.DialContext(ctx, network, addr)
	if err != nil {
		return nil, err
	}

	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
	}

	// Chrome spec with ALPN pinned to HTTP/1.1; net/http cannot speak h2 over
	// a custom TLS conn.
	spec, err := utls.UTLSIdToSpec(utls.HelloChrome_Auto)
	if err != nil {
		conn.Close()
		return nil, err
	}
	for i, ext := range spec.Extensions {
		if alpn, ok := ext.(*utls.ALPNExtension); ok {
			alpn.AlpnProtocols = []string{"http/1.1"}
			spec.Extensions[i] = alpn
			break
		}
	}

	tlsConn := utls.UClient(conn, &utls.Config{ServerName: host}, utls.HelloCustom)
	if err := tlsConn.ApplyPreset(&spec); err != nil {
		conn.Close()
		return nil, err
	}
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	return tlsConn, nil
}
