// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package ejbca implements the certificate authority agent over the EJBCA
// REST API using mutual TLS.
package ejbca

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/absmach/clm"
	"github.com/absmach/clm/pkg/errors"
	"github.com/hashicorp/go-retryablehttp"
	"moul.io/http2curl"
)

const (
	apiPath         = "/ejbca/ejbca-rest-api/v1/"
	requestedWith   = "X-Keyfactor-Requested-With"
	idempotencyKey  = "Idempotency-Key"
	usernamePrefix  = "clm-"
	enrollEndpoint  = "certificate/pkcs10enroll"
	searchEndpoint  = "certificate/search"
	expireEndpoint  = "certificate/expire"
	caEndpoint      = "ca"
	certEndpoint    = "certificate"
	maxExpirePages  = 1000
	searchOperation = "EQUAL"
)

// validityTolerance absorbs the backdating of NotBefore some profiles apply.
const validityTolerance = 24 * time.Hour

var (
	errEmptyURL         = errors.New("empty EJBCA URL")
	errDecodeResponse   = errors.New("failed to decode EJBCA response")
	errValidityExceeded = errors.New("issued certificate outlives the requested validity")
)

var _ clm.Agent = (*agent)(nil)

type agent struct {
	baseURL string
	cfg     Config
	client  *retryablehttp.Client
	logger  *slog.Logger
}

// NewAgent returns an EJBCA backed agent. tlsCfg carries the client key pair
// and the trusted roots; see TLSConfig.
func NewAgent(cfg Config, tlsCfg *tls.Config, logger *slog.Logger) (clm.Agent, error) {
	if cfg.URL == "" {
		return nil, errEmptyURL
	}
	cfg = cfg.withDefaults()
	return &agent{
		baseURL: strings.TrimSuffix(cfg.URL, "/") + apiPath,
		cfg:     cfg,
		client:  newHTTPClient(cfg, tlsCfg, logger),
		logger:  logger,
	}, nil
}

func (a *agent) Issue(ctx context.Context, req clm.IssueRequest) (clm.IssueResult, error) {
	body := enrollRequest{
		CertificateRequest:       string(req.CSR),
		CertificateProfileName:   or(req.CertificateProfile, a.cfg.CertificateProfile),
		EndEntityProfileName:     or(req.EndEntityProfile, a.cfg.EndEntityProfile),
		CertificateAuthorityName: or(req.CAName, a.cfg.CAName),
		Username:                 usernamePrefix + req.Token,
		Password:                 req.Token,
	}

	status, data, err := a.do(ctx, http.MethodPost, enrollEndpoint, nil, body, req.Token)
	if err != nil {
		return clm.IssueResult{}, err
	}
	if status == http.StatusAccepted {
		return clm.IssueResult{Pending: true}, nil
	}

	var cr certificateResponse
	if err := json.Unmarshal(data, &cr); err != nil {
		return clm.IssueResult{}, errors.Wrap(errDecodeResponse, err)
	}
	cert, err := cr.record()
	if err != nil {
		return clm.IssueResult{}, errors.Wrap(errDecodeResponse, err)
	}
	if err := checkValidity(cert, req.ValidityDays); err != nil {
		a.logger.Warn("issued certificate outlives the requested validity",
			slog.String("serial_number", cert.SerialNumber),
			slog.String("issuer_dn", cert.IssuerDN),
			slog.Time("not_after", cert.NotAfter),
			slog.Int("validity_days", req.ValidityDays),
		)
		return clm.IssueResult{}, err
	}

	return clm.IssueResult{Certificate: cert}, nil
}

// checkValidity rejects a certificate whose lifetime exceeds the requested
// number of days. The enrollment API takes the lifetime from the certificate
// profile, so a profile that does not cap it is reported rather than hidden.
func checkValidity(cert clm.Certificate, days int) error {
	if days <= 0 {
		return nil
	}
	limit := time.Duration(days)*24*time.Hour + validityTolerance
	if cert.NotAfter.Sub(cert.NotBefore) <= limit {
		return nil
	}
	detail := fmt.Sprintf("serial %s issued by %s valid until %s, %d days requested",
		cert.SerialNumber, cert.IssuerDN, cert.NotAfter.Format(time.RFC3339), days)
	return errors.Wrap(clm.ErrClient, errors.Wrap(errValidityExceeded, errors.New(detail)))
}

func (a *agent) Revoke(ctx context.Context, issuerDN, serialNumber string, reason clm.RevocationReason) (clm.RevocationResult, error) {
	if reason == "" {
		reason = clm.ReasonUnspecified
	}
	endpoint := certPath(issuerDN, serialNumber) + "/revoke"
	query := url.Values{"reason": []string{string(reason)}}

	status, data, err := a.do(ctx, http.MethodPut, endpoint, query, nil, "")
	switch {
	case status == http.StatusConflict:
		// Already revoked.
		return clm.RevocationResult{}, nil
	case err != nil:
		return clm.RevocationResult{}, err
	case status == http.StatusAccepted:
		return clm.RevocationResult{Pending: true}, nil
	}

	var rr revocationResponse
	if err := json.Unmarshal(data, &rr); err != nil {
		return clm.RevocationResult{}, errors.Wrap(errDecodeResponse, err)
	}
	res := clm.RevocationResult{}
	if rr.RevocationDate != nil {
		res.RevokedAt = rr.RevocationDate.UTC()
	}
	return res, nil
}

func (a *agent) Get(ctx context.Context, issuerDN, serialNumber string) (clm.Certificate, error) {
	_, data, err := a.do(ctx, http.MethodGet, certPath(issuerDN, serialNumber)+"/revocationstatus", nil, nil, "")
	if err != nil {
		return clm.Certificate{}, err
	}

	var rr revocationResponse
	if err := json.Unmarshal(data, &rr); err != nil {
		return clm.Certificate{}, errors.Wrap(errDecodeResponse, err)
	}

	cert := clm.Certificate{
		SerialNumber: clm.NormalizeSerialNumber(serialNumber),
		IssuerDN:     or(rr.IssuerDN, issuerDN),
		Status:       clm.StatusActive,
	}
	if rr.Revoked {
		cert.Status = clm.StatusRevoked
	}
	return cert, nil
}

func (a *agent) Lookup(ctx context.Context, token string, _ []byte) (clm.Certificate, error) {
	body := searchRequest{
		MaxNumberOfResults: 1,
		Criteria: []searchCriterion{
			{Property: "QUERY", Value: usernamePrefix + token, Operation: searchOperation},
		},
	}
	_, data, err := a.do(ctx, http.MethodPost, searchEndpoint, nil, body, "")
	if err != nil {
		return clm.Certificate{}, err
	}

	var sr searchResponse
	if err := json.Unmarshal(data, &sr); err != nil {
		return clm.Certificate{}, errors.Wrap(errDecodeResponse, err)
	}
	if len(sr.Certificates) == 0 {
		return clm.Certificate{}, errors.Wrap(clm.ErrNotFound, errors.New(usernamePrefix+token))
	}

	cert, err := sr.Certificates[0].record()
	if err != nil {
		return clm.Certificate{}, errors.Wrap(errDecodeResponse, err)
	}
	return cert, nil
}

func (a *agent) ListExpiringBefore(ctx context.Context, t time.Time) ([]clm.Certificate, error) {
	days := int(math.Ceil(time.Until(t).Hours() / 24))
	if days < 1 {
		days = 1
	}

	certs := []clm.Certificate{}
	offset := 0
	for page := 0; page < maxExpirePages; page++ {
		query := url.Values{
			"days":               []string{strconv.Itoa(days)},
			"offset":             []string{strconv.Itoa(offset)},
			"maxNumberOfResults": []string{strconv.Itoa(a.cfg.PageSize)},
		}
		_, data, err := a.do(ctx, http.MethodGet, expireEndpoint, query, nil, "")
		if err != nil {
			return nil, err
		}

		var er expireResponse
		if err := json.Unmarshal(data, &er); err != nil {
			return nil, errors.Wrap(errDecodeResponse, err)
		}
		for _, cr := range er.Certificates.Certificates {
			cert, err := cr.record()
			if err != nil {
				a.logger.Warn("skipping undecodable certificate", slog.String("serial_number", cr.SerialNumber), slog.Any("error", err))
				continue
			}
			if cert.NotAfter.Before(t) {
				certs = append(certs, cert)
			}
		}

		if !er.Pagination.MoreResults || er.Pagination.NextOffset <= offset {
			break
		}
		offset = er.Pagination.NextOffset
	}

	return certs, nil
}

func (a *agent) CAInfo(ctx context.Context) ([]clm.CAInfo, error) {
	_, data, err := a.do(ctx, http.MethodGet, caEndpoint, nil, nil, "")
	if err != nil {
		return nil, err
	}

	var cl caListResponse
	if err := json.Unmarshal(data, &cl); err != nil {
		return nil, errors.Wrap(errDecodeResponse, err)
	}

	cas := make([]clm.CAInfo, 0, len(cl.CertificateAuthorities))
	for _, ca := range cl.CertificateAuthorities {
		cas = append(cas, clm.CAInfo{
			ID:             ca.ID,
			Name:           ca.Name,
			SubjectDN:      ca.SubjectDN,
			IssuerDN:       ca.IssuerDN,
			ExpirationDate: ca.ExpirationDate,
		})
	}
	return cas, nil
}

// do sends one request and returns the status code and body. A status is
// returned alongside a mapped error so callers can accept specific codes.
func (a *agent) do(ctx context.Context, method, endpoint string, query url.Values, body any, token string) (int, []byte, error) {
	var payload any
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, nil, errors.Wrap(clm.ErrClient, err)
		}
		payload = data
	}

	reqURL := a.baseURL + endpoint
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, reqURL, payload)
	if err != nil {
		return 0, nil, errors.Wrap(clm.ErrClient, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(requestedWith, "XMLHttpRequest")
	if token != "" {
		req.Header.Set(idempotencyKey, token)
	}

	if a.cfg.Debug {
		if cmd, err := http2curl.GetCurlCommand(req.Request); err == nil {
			a.logger.Debug("ejbca request", slog.String("curl", cmd.String()))
		}
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return 0, nil, transportError(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, errors.Wrap(clm.ErrServiceUnavailable, err)
	}
	if err := checkResponse(resp, data); err != nil {
		return resp.StatusCode, nil, err
	}

	return resp.StatusCode, data, nil
}

func certPath(issuerDN, serialNumber string) string {
	return fmt.Sprintf("%s/%s/%s", certEndpoint, url.PathEscape(issuerDN), clm.HexSerial(serialNumber))
}

func or(v, def string) string {
	if v != "" {
		return v
	}
	return def
}
