// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package ejbca

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/hashicorp/go-cleanhttp"
	"github.com/hashicorp/go-retryablehttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// TLSConfig loads the client key pair and the authority bundle.
func TLSConfig(cfg Config) (*tls.Config, error) {
	tlsCfg := &tls.Config{MinVersion: tls.VersionTLS12}

	if cfg.CertFile != "" || cfg.KeyFile != "" {
		pair, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("loading client certificate: %w", err)
		}
		tlsCfg.Certificates = []tls.Certificate{pair}
	}

	if cfg.CAFile != "" {
		pem, err := os.ReadFile(cfg.CAFile)
		if err != nil {
			return nil, fmt.Errorf("reading CA bundle: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("no certificates found in %s", cfg.CAFile)
		}
		tlsCfg.RootCAs = pool
	}

	return tlsCfg, nil
}

func newHTTPClient(cfg Config, tlsCfg *tls.Config, logger *slog.Logger) *retryablehttp.Client {
	transport := cleanhttp.DefaultPooledTransport()
	transport.TLSClientConfig = tlsCfg
	transport.MaxConnsPerHost = cfg.MaxConns
	transport.MaxIdleConnsPerHost = cfg.MaxConns

	client := retryablehttp.NewClient()
	client.HTTPClient = &http.Client{
		Transport: otelhttp.NewTransport(transport),
		Timeout:   cfg.Timeout,
	}
	client.Logger = logger
	client.RetryMax = cfg.Retries
	client.RetryWaitMin = cfg.RetryWaitMin
	client.RetryWaitMax = cfg.RetryWaitMax
	client.CheckRetry = checkRetry
	client.Backoff = jitterBackoff
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler

	return client
}

// checkRetry retries network failures and 5xx responses other than 501.
// Client errors, including 429, are returned to the caller untouched.
func checkRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if err != nil {
		if tlsRejected(err) {
			return false, nil
		}
		return true, nil
	}
	if resp.StatusCode >= http.StatusInternalServerError && resp.StatusCode != http.StatusNotImplemented {
		return true, nil
	}
	return false, nil
}

// jitterBackoff grows exponentially from min to max with randomization.
func jitterBackoff(waitMin, waitMax time.Duration, attempt int, _ *http.Response) time.Duration {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = waitMin
	b.MaxInterval = waitMax
	b.RandomizationFactor = 0.5
	b.MaxElapsedTime = 0
	b.Reset()

	d := b.NextBackOff()
	for i := 0; i < attempt; i++ {
		d = b.NextBackOff()
	}
	if d > waitMax {
		d = waitMax
	}
	return d
}

// tlsRejected reports whether the handshake failed on certificates. Alerts
// received over TCP are unexported, so the message is matched as well.
func tlsRejected(err error) bool {
	if strings.Contains(err.Error(), "remote error: tls:") {
		return true
	}
	var alert tls.AlertError
	var verr *tls.CertificateVerificationError
	var unknown x509.UnknownAuthorityError
	var hostname x509.HostnameError
	return stderrors.As(err, &alert) ||
		stderrors.As(err, &verr) ||
		stderrors.As(err, &unknown) ||
		stderrors.As(err, &hostname)
}
