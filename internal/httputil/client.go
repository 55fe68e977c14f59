// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides HTTP helpers shared by the catalog and download stages.
package httputil

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/rs/dnscache"

	"github.com/pdiddy/starrydata/pkg/types"
)

// NewClient builds an HTTP client whose dialer resolves hosts through a
// DNS cache. The cache lives as long as the client; a CLI run never needs
// a refresh.
func NewClient(cfg types.HTTPConfig) *http.Client {
	resolver := &dnscache.Resolver{}
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	return &http.Client{
		Timeout: cfg.Timeout,
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
				host, port, err := net.SplitHostPort(addr)
				if err != nil {
					return nil, err
				}
				ips, err := resolver.LookupHost(ctx, host)
				if err != nil {
					return nil, err
				}
				var lastErr error
				for _, ip := range ips {
					conn, err := dialer.DialContext(ctx, network, net.JoinHostPort(ip, port))
					if err == nil {
						return conn, nil
					}
					lastErr = err
				}
				return nil, fmt.Errorf("dialing %s: %w", addr, lastErr)
			},
			MaxIdleConns:          10,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		},
	}
}

// Do sends req and returns the response. If the TLS handshake fails
// certificate verification and fallback is true, Do logs a warning and
// sends the request exactly once more with verification disabled. Any
// error from that second attempt is returned as is.
//
// Requests with a body must be built with a body type that sets GetBody
// (bytes.Reader, bytes.Buffer, strings.Reader) so it can be replayed.
func Do(ctx context.Context, client *http.Client, req *http.Request, fallback bool, logger *slog.Logger) (*http.Response, error) {
	resp, err := client.Do(req.Clone(ctx))
	if err == nil || !fallback || !IsCertificateError(err) {
		return resp, err
	}

	if logger != nil {
		logger.Warn("TLS certificate verification failed, retrying without verification",
			"url", req.URL.String(), "error", err)
	}

	retry := req.Clone(ctx)
	if req.GetBody != nil {
		body, bodyErr := req.GetBody()
		if bodyErr != nil {
			return nil, fmt.Errorf("replaying request body: %w", bodyErr)
		}
		retry.Body = body
	}
	return insecureClient(client).Do(retry)
}

// IsCertificateError reports whether err comes from TLS certificate verification.
func IsCertificateError(err error) bool {
	var (
		verifyErr    *tls.CertificateVerificationError
		authorityErr x509.UnknownAuthorityError
		hostnameErr  x509.HostnameError
		invalidErr   x509.CertificateInvalidError
	)
	return errors.As(err, &verifyErr) ||
		errors.As(err, &authorityErr) ||
		errors.As(err, &hostnameErr) ||
		errors.As(err, &invalidErr)
}

// insecureClient copies client with certificate verification disabled.
func insecureClient(client *http.Client) *http.Client {
	var tr *http.Transport
	if t, ok := client.Transport.(*http.Transport); ok {
		tr = t.Clone()
	} else {
		tr = http.DefaultTransport.(*http.Transport).Clone()
	}
	if tr.TLSClientConfig == nil {
		tr.TLSClientConfig = &tls.Config{}
	}
	tr.TLSClientConfig.InsecureSkipVerify = true

	return &http.Client{
		Transport:     tr,
		Timeout:       client.Timeout,
		CheckRedirect: client.CheckRedirect,
		Jar:           client.Jar,
	}
}
