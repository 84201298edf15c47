// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package pki implements the certificate authority agent on top of the
// OpenBao PKI secrets engine.
package pki

import (
	"context"
	stderrors "errors"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/absmach/clm"
	"github.com/absmach/clm/pkg/errors"
	"github.com/mitchellh/mapstructure"
	"github.com/openbao/openbao/api/v2"
)

const (
	sign        = "sign"
	cert        = "cert"
	revoke      = "revoke"
	caCert      = "cert/ca"
	caChain     = "cert/ca_chain"
	certsList   = "certs"
	crl         = "cert/crl"
	deltaCRL    = "cert/delta-crl"
	rotate      = "crl/rotate"
	rotateDelta = "crl/rotate-delta"
)

var (
	errFailedToLogin = errors.New("failed to login to OpenBao")
	errNoAuthInfo    = errors.New("no auth information from OpenBao")
	errRenewWatcher  = errors.New("unable to initialize new lifetime watcher for renewing auth token")
	errNoData        = errors.New("no data returned from OpenBao")
	errNoLookup      = errors.New("no certificate request to match")
	errPartitions    = errors.New("OpenBao does not partition CRLs")
	errOtherIssuer   = errors.New("mount serves another CA")
	errNotRotated    = errors.New("OpenBao did not rotate the CRL")
)

// Config holds the OpenBao connection and PKI mount settings.
type Config struct {
	AppRole   string        `env:"APP_ROLE"   envDefault:""`
	AppSecret string        `env:"APP_SECRET" envDefault:""`
	Host      string        `env:"HOST"       envDefault:"http://localhost:8200"`
	Namespace string        `env:"NAMESPACE"  envDefault:""`
	Path      string        `env:"PATH"       envDefault:"pki"`
	Role      string        `env:"ROLE"       envDefault:"clm"`
	Retries   int           `env:"RETRIES"    envDefault:"3"`
	Timeout   time.Duration `env:"TIMEOUT"    envDefault:"30s"`
}

type openbaoPKIAgent struct {
	cfg       Config
	prefix    string
	signURL   string
	readURL   string
	revokeURL string
	caURL     string
	certsURL  string
	client    *api.Client
	logger    *slog.Logger

	mu     sync.Mutex
	secret *api.Secret
}

var _ clm.Agent = (*openbaoPKIAgent)(nil)

// NewAgent instantiates an OpenBao PKI client that implements clm.Agent.
func NewAgent(cfg Config, logger *slog.Logger) (clm.Agent, error) {
	conf := api.DefaultConfig()
	conf.Address = cfg.Host
	conf.MaxRetries = cfg.Retries
	if cfg.Timeout > 0 {
		conf.Timeout = cfg.Timeout
	}

	client, err := api.NewClient(conf)
	if err != nil {
		return nil, err
	}
	if cfg.Namespace != "" {
		client.SetNamespace(cfg.Namespace)
	}

	prefix := "/" + cfg.Path + "/"
	return &openbaoPKIAgent{
		cfg:       cfg,
		prefix:    prefix,
		client:    client,
		logger:    logger,
		signURL:   prefix + sign + "/" + cfg.Role,
		readURL:   prefix + cert + "/",
		revokeURL: prefix + revoke,
		caURL:     prefix + caCert,
		certsURL:  prefix + certsList,
	}, nil
}

func (va *openbaoPKIAgent) Issue(ctx context.Context, req clm.IssueRequest) (clm.IssueResult, error) {
	if err := va.LoginAndRenew(ctx); err != nil {
		return clm.IssueResult{}, err
	}

	subject, err := clm.ParseDN(req.Subject)
	if err != nil {
		return clm.IssueResult{}, errors.Wrap(clm.ErrClient, err)
	}

	secretValues := map[string]any{
		"csr":                  string(req.CSR),
		"common_name":          subject.CommonName,
		"exclude_cn_from_sans": true,
	}
	if req.ValidityDays > 0 {
		secretValues["ttl"] = fmt.Sprintf("%dh", req.ValidityDays*24)
	}
	if len(req.DNSNames) > 0 {
		secretValues["alt_names"] = strings.Join(req.DNSNames, ",")
	}

	secret, err := va.client.Logical().WriteWithContext(ctx, va.signURL, secretValues)
	if err != nil {
		return clm.IssueResult{}, mapError(err)
	}
	if secret == nil || secret.Data == nil {
		return clm.IssueResult{}, errors.Wrap(clm.ErrServiceUnavailable, errNoData)
	}

	certData, _ := secret.Data["certificate"].(string)
	c, err := clm.ParseCertificate([]byte(certData))
	if err != nil {
		return clm.IssueResult{}, errors.Wrap(clm.ErrServiceUnavailable, err)
	}
	c.Status = clm.StatusActive

	return clm.IssueResult{Certificate: c}, nil
}

func (va *openbaoPKIAgent) Revoke(ctx context.Context, _, serialNumber string, reason clm.RevocationReason) (clm.RevocationResult, error) {
	if err := va.LoginAndRenew(ctx); err != nil {
		return clm.RevocationResult{}, err
	}

	secretValues := map[string]any{
		"serial_number": clm.NormalizeSerialNumber(serialNumber),
	}

	secret, err := va.client.Logical().WriteWithContext(ctx, va.revokeURL, secretValues)
	if err != nil {
		return clm.RevocationResult{}, mapError(err)
	}
	va.logger.Debug("certificate revoked", slog.String("serial_number", serialNumber), slog.String("reason", string(reason)))

	res := clm.RevocationResult{}
	if secret != nil && secret.Data != nil {
		if ts := unixTime(secret.Data["revocation_time"]); !ts.IsZero() {
			res.RevokedAt = ts
		}
	}
	return res, nil
}

func (va *openbaoPKIAgent) Get(ctx context.Context, _, serialNumber string) (clm.Certificate, error) {
	if err := va.LoginAndRenew(ctx); err != nil {
		return clm.Certificate{}, err
	}
	return va.view(ctx, clm.NormalizeSerialNumber(serialNumber))
}

func (va *openbaoPKIAgent) view(ctx context.Context, serialNumber string) (clm.Certificate, error) {
	secret, err := va.client.Logical().ReadWithContext(ctx, va.readURL+serialNumber)
	if err != nil {
		return clm.Certificate{}, mapError(err)
	}
	if secret == nil || secret.Data == nil {
		return clm.Certificate{}, errors.Wrap(clm.ErrNotFound, errors.New(serialNumber))
	}

	certData, _ := secret.Data["certificate"].(string)
	c, err := clm.ParseCertificate([]byte(certData))
	if err != nil {
		return clm.Certificate{}, errors.Wrap(clm.ErrServiceUnavailable, err)
	}

	c.Status = clm.StatusActive
	if revokedAt, ok := secret.Data["revocation_time_rfc3339"].(string); ok && revokedAt != "" {
		c.Status = clm.StatusRevoked
	}
	if !unixTime(secret.Data["revocation_time"]).IsZero() {
		c.Status = clm.StatusRevoked
	}
	return c, nil
}

// Lookup finds the certificate signed for csr. The engine keeps no index of
// request tokens, so issued certificates are matched on their public key and
// the most recent match wins.
func (va *openbaoPKIAgent) Lookup(ctx context.Context, token string, csr []byte) (clm.Certificate, error) {
	if len(csr) == 0 {
		return clm.Certificate{}, errors.Wrap(clm.ErrNotFound, errors.Wrap(errNoLookup, errors.New(token)))
	}
	if err := va.LoginAndRenew(ctx); err != nil {
		return clm.Certificate{}, err
	}

	serialNumbers, err := va.serials(ctx)
	if err != nil {
		return clm.Certificate{}, err
	}

	var (
		found clm.Certificate
		ok    bool
	)
	for _, serialNumber := range serialNumbers {
		c, err := va.view(ctx, clm.NormalizeSerialNumber(serialNumber))
		if err != nil {
			va.logger.Warn("failed to retrieve certificate details", "serial", serialNumber, "error", err)
			continue
		}
		match, err := clm.MatchesRequest(c.Certificate, csr)
		if err != nil {
			return clm.Certificate{}, errors.Wrap(clm.ErrClient, err)
		}
		if match && (!ok || c.NotBefore.After(found.NotBefore)) {
			found, ok = c, true
		}
	}
	if !ok {
		return clm.Certificate{}, errors.Wrap(clm.ErrNotFound, errors.New(token))
	}
	return found, nil
}

func (va *openbaoPKIAgent) ListExpiringBefore(ctx context.Context, t time.Time) ([]clm.Certificate, error) {
	if err := va.LoginAndRenew(ctx); err != nil {
		return nil, err
	}

	serialNumbers, err := va.serials(ctx)
	if err != nil {
		return nil, err
	}

	certs := []clm.Certificate{}
	for _, serialNumber := range serialNumbers {
		c, err := va.view(ctx, clm.NormalizeSerialNumber(serialNumber))
		if err != nil {
			va.logger.Warn("failed to retrieve certificate details", "serial", serialNumber, "error", err)
			continue
		}
		if c.Status == clm.StatusActive && c.NotAfter.Before(t) {
			certs = append(certs, c)
		}
	}

	return certs, nil
}

func (va *openbaoPKIAgent) serials(ctx context.Context) ([]string, error) {
	secret, err := va.client.Logical().ListWithContext(ctx, va.certsURL)
	if err != nil {
		return nil, mapError(err)
	}
	if secret == nil || secret.Data == nil {
		return nil, nil
	}

	keysInterface, ok := secret.Data["keys"]
	if !ok {
		return nil, nil
	}

	var serialNumbers []string
	if err := mapstructure.Decode(keysInterface, &serialNumbers); err != nil {
		return nil, fmt.Errorf("failed to decode certificate serial numbers: %w", err)
	}
	return serialNumbers, nil
}

func (va *openbaoPKIAgent) CAInfo(ctx context.Context) ([]clm.CAInfo, error) {
	if err := va.LoginAndRenew(ctx); err != nil {
		return nil, err
	}

	secret, err := va.client.Logical().ReadWithContext(ctx, va.caURL)
	if err != nil {
		return nil, mapError(err)
	}
	if secret == nil || secret.Data == nil {
		return nil, errors.Wrap(clm.ErrNotFound, errNoData)
	}

	certData, _ := secret.Data["certificate"].(string)
	c, err := clm.ParseCertificate([]byte(certData))
	if err != nil {
		return nil, errors.Wrap(clm.ErrServiceUnavailable, err)
	}

	return []clm.CAInfo{{
		Name:           va.cfg.Path,
		SubjectDN:      c.SubjectDN,
		IssuerDN:       c.IssuerDN,
		ExpirationDate: c.NotAfter,
	}}, nil
}

func (va *openbaoPKIAgent) CRL(ctx context.Context, req clm.CRLRequest) (clm.CRL, error) {
	if req.PartitionIndex > 0 {
		return clm.CRL{}, errors.Wrap(clm.ErrClient, errPartitions)
	}
	if err := va.LoginAndRenew(ctx); err != nil {
		return clm.CRL{}, err
	}
	return va.crl(ctx, req.IssuerDN, req.Delta)
}

func (va *openbaoPKIAgent) crl(ctx context.Context, issuerDN string, delta bool) (clm.CRL, error) {
	path := crl
	if delta {
		path = deltaCRL
	}
	data, err := va.readPEM(ctx, path)
	if err != nil {
		return clm.CRL{}, err
	}

	c, err := clm.ParseCRL(data)
	if err != nil {
		return clm.CRL{}, errors.Wrap(clm.ErrServiceUnavailable, err)
	}
	if issuerDN != "" && c.IssuerDN != issuerDN {
		return clm.CRL{}, errors.Wrap(clm.ErrNotFound, errors.Wrap(errOtherIssuer, errors.New(issuerDN)))
	}
	return c, nil
}

// CreateCRL rotates the CRL of the mount and reports the resulting numbers.
func (va *openbaoPKIAgent) CreateCRL(ctx context.Context, issuerDN string, delta bool) (clm.CRLGeneration, error) {
	if err := va.LoginAndRenew(ctx); err != nil {
		return clm.CRLGeneration{}, err
	}

	paths := []string{rotate}
	if delta {
		paths = append(paths, rotateDelta)
	}
	for _, path := range paths {
		secret, err := va.client.Logical().ReadWithContext(ctx, va.prefix+path)
		if err != nil {
			return clm.CRLGeneration{}, mapError(err)
		}
		if secret != nil && secret.Data != nil {
			if ok, _ := secret.Data["success"].(bool); !ok {
				return clm.CRLGeneration{}, errors.Wrap(clm.ErrServiceUnavailable, errors.Wrap(errNotRotated, errors.New(path)))
			}
		}
	}

	full, err := va.crl(ctx, issuerDN, false)
	if err != nil {
		return clm.CRLGeneration{}, err
	}
	gen := clm.CRLGeneration{IssuerDN: full.IssuerDN, CRLNumber: crlNumber(full)}
	if delta {
		d, err := va.crl(ctx, issuerDN, true)
		if err != nil {
			return clm.CRLGeneration{}, err
		}
		gen.DeltaCRLNumber = crlNumber(d)
	}
	return gen, nil
}

func (va *openbaoPKIAgent) CACertificates(ctx context.Context, subjectDN string) ([]clm.Certificate, error) {
	if err := va.LoginAndRenew(ctx); err != nil {
		return nil, err
	}

	data, err := va.readPEM(ctx, caChain)
	if err != nil {
		return nil, err
	}
	chain, err := clm.ParseCertificates(data)
	if err != nil {
		return nil, errors.Wrap(clm.ErrServiceUnavailable, err)
	}
	if subjectDN != "" && chain[0].SubjectDN != subjectDN {
		return nil, errors.Wrap(clm.ErrNotFound, errors.Wrap(errOtherIssuer, errors.New(subjectDN)))
	}
	return chain, nil
}

// Status reports the health of the OpenBao server behind the mount.
func (va *openbaoPKIAgent) Status(ctx context.Context) ([]clm.APIStatus, error) {
	health, err := va.client.Sys().HealthWithContext(ctx)
	if err != nil {
		return nil, mapError(err)
	}

	status := "OK"
	switch {
	case !health.Initialized:
		status = "UNINITIALIZED"
	case health.Sealed:
		status = "SEALED"
	case health.Standby:
		status = "STANDBY"
	}
	return []clm.APIStatus{{
		Resource: va.cfg.Path,
		Status:   status,
		Version:  health.Version,
	}}, nil
}

// readPEM reads an endpoint that returns PEM data in its certificate field.
func (va *openbaoPKIAgent) readPEM(ctx context.Context, path string) ([]byte, error) {
	secret, err := va.client.Logical().ReadWithContext(ctx, va.prefix+path)
	if err != nil {
		return nil, mapError(err)
	}
	if secret == nil || secret.Data == nil {
		return nil, errors.Wrap(clm.ErrNotFound, errNoData)
	}
	data, _ := secret.Data["certificate"].(string)
	if data == "" {
		return nil, errors.Wrap(clm.ErrNotFound, errNoData)
	}
	return []byte(data), nil
}

func crlNumber(c clm.CRL) int64 {
	n, _ := strconv.ParseInt(c.Number, 10, 64)
	return n
}

// LoginAndRenew logs in with AppRole unless the current token is still valid.
func (va *openbaoPKIAgent) LoginAndRenew(ctx context.Context) error {
	va.mu.Lock()
	defer va.mu.Unlock()

	if va.secret != nil && va.secret.Auth != nil && va.secret.Auth.ClientToken != "" {
		_, err := va.client.Auth().Token().LookupSelfWithContext(ctx)
		if err == nil {
			return nil
		}
	}

	authData := map[string]any{
		"role_id":   va.cfg.AppRole,
		"secret_id": va.cfg.AppSecret,
	}

	authResp, err := va.client.Logical().WriteWithContext(ctx, "auth/approle/login", authData)
	if err != nil {
		return errors.Wrap(clm.ErrAuthentication, errors.Wrap(errFailedToLogin, err))
	}

	if authResp == nil || authResp.Auth == nil {
		return errors.Wrap(clm.ErrAuthentication, errNoAuthInfo)
	}

	va.secret = authResp
	va.client.SetToken(authResp.Auth.ClientToken)

	if authResp.Auth.Renewable {
		watcher, err := va.client.NewLifetimeWatcher(&api.LifetimeWatcherInput{
			Secret: authResp,
		})
		if err != nil {
			return fmt.Errorf("%s: %w", errRenewWatcher, err)
		}

		go va.renewToken(watcher)
	}

	return nil
}

func (va *openbaoPKIAgent) renewToken(watcher *api.LifetimeWatcher) {
	defer watcher.Stop()

	go watcher.Start()
	for {
		select {
		case err := <-watcher.DoneCh():
			if err != nil {
				va.logger.Error("token renewal failed", "error", err)
			}
			return
		case renewal := <-watcher.RenewCh():
			va.logger.Info("token renewed successfully", "lease_duration", renewal.Secret.LeaseDuration)
		}
	}
}

// mapError classifies OpenBao API errors.
func mapError(err error) error {
	var re *api.ResponseError
	if !stderrors.As(err, &re) {
		return errors.Wrap(clm.ErrServiceUnavailable, err)
	}
	switch {
	case re.StatusCode == http.StatusUnauthorized || re.StatusCode == http.StatusForbidden:
		return errors.Wrap(clm.ErrAuthentication, err)
	case re.StatusCode == http.StatusNotFound:
		return errors.Wrap(clm.ErrNotFound, err)
	case re.StatusCode == http.StatusTooManyRequests:
		return clm.NewRateLimitedError(0, err)
	case re.StatusCode >= http.StatusBadRequest && re.StatusCode < http.StatusInternalServerError:
		return errors.Wrap(clm.ErrClient, err)
	default:
		return errors.Wrap(clm.ErrServiceUnavailable, err)
	}
}

func unixTime(v any) time.Time {
	switch ts := v.(type) {
	case int64:
		if ts > 0 {
			return time.Unix(ts, 0).UTC()
		}
	case float64:
		if ts > 0 {
			return time.Unix(int64(ts), 0).UTC()
		}
	case json.Number:
		if n, err := ts.Int64(); err == nil && n > 0 {
			return time.Unix(n, 0).UTC()
		}
	}
	return time.Time{}
}
