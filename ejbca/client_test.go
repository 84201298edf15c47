// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package ejbca_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/absmach/clm"
	"github.com/absmach/clm/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const basePath = "/ejbca/ejbca-rest-api/v1/"

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestIssue(t *testing.T) {
	pki := newTestPKI(t)

	cases := []struct {
		desc    string
		status  int
		pending bool
		err     error
	}{
		{
			desc:   "issue certificate",
			status: http.StatusCreated,
		},
		{
			desc:    "issue awaiting approval",
			status:  http.StatusAccepted,
			pending: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			srv := newServer(t, pki, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, basePath+"certificate/pkcs10enroll", r.URL.Path)
				assert.Equal(t, "XMLHttpRequest", r.Header.Get("X-Keyfactor-Requested-With"))
				assert.Equal(t, "tok-1", r.Header.Get("Idempotency-Key"))

				var body map[string]any
				assert.Nil(t, json.NewDecoder(r.Body).Decode(&body))
				assert.Equal(t, "clm-tok-1", body["username"])
				assert.Equal(t, "SERVER", body["certificate_profile_name"])
				assert.Equal(t, "EMPTY", body["end_entity_profile_name"])

				if tc.status == http.StatusAccepted {
					w.WriteHeader(http.StatusAccepted)
					return
				}
				writeJSON(w, tc.status, map[string]any{
					"certificate":     base64.StdEncoding.EncodeToString(pki.leafDER),
					"serial_number":   "1A2B3C",
					"response_format": "DER",
				})
			}))
			agent := newAgent(t, srv, &pki.client)

			res, err := agent.Issue(context.Background(), clm.IssueRequest{
				Token:              "tok-1",
				CSR:                []byte("-----BEGIN CERTIFICATE REQUEST-----"),
				CertificateProfile: "SERVER",
			})
			require.Nil(t, err)
			assert.Equal(t, tc.pending, res.Pending)
			if !tc.pending {
				assert.Equal(t, "1a:2b:3c", res.Certificate.SerialNumber)
				assert.Equal(t, clm.StatusActive, res.Certificate.Status)
				assert.Equal(t, "CN=svc.example.com", res.Certificate.SubjectDN)
				assert.NotEmpty(t, res.Certificate.Fingerprint)
			}
		})
	}
}

func TestIssueValidity(t *testing.T) {
	pki := newTestPKI(t)
	srv := newServer(t, pki, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusCreated, map[string]any{
			"certificate":     base64.StdEncoding.EncodeToString(pki.leafDER),
			"serial_number":   "1A2B3C",
			"response_format": "DER",
		})
	}))
	agent := newAgent(t, srv, &pki.client)

	cases := []struct {
		desc string
		days int
		err  error
	}{
		{desc: "profile lifetime shorter than request", days: 30},
		{desc: "profile lifetime within tolerance", days: 10},
		{desc: "no validity requested", days: 0},
		{desc: "profile lifetime exceeds request", days: 5, err: clm.ErrClient},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			res, err := agent.Issue(context.Background(), clm.IssueRequest{
				Token:        "tok-1",
				CSR:          []byte("-----BEGIN CERTIFICATE REQUEST-----"),
				Subject:      "CN=svc.example.com",
				ValidityDays: tc.days,
			})
			assert.True(t, errors.Contains(err, tc.err), fmt.Sprintf("expected %v got %v", tc.err, err))
			if tc.err != nil {
				assert.Contains(t, err.Error(), "1a:2b:3c")
				assert.Empty(t, res.Certificate.SerialNumber)
				return
			}
			assert.Equal(t, "1a:2b:3c", res.Certificate.SerialNumber)
		})
	}
}

func TestErrorMapping(t *testing.T) {
	pki := newTestPKI(t)

	cases := []struct {
		desc     string
		status   int
		header   map[string]string
		err      error
		attempts int32
	}{
		{
			desc:     "bad request",
			status:   http.StatusBadRequest,
			err:      clm.ErrClient,
			attempts: 1,
		},
		{
			desc:     "unauthorized",
			status:   http.StatusUnauthorized,
			err:      clm.ErrAuthentication,
			attempts: 1,
		},
		{
			desc:     "forbidden",
			status:   http.StatusForbidden,
			err:      clm.ErrAuthentication,
			attempts: 1,
		},
		{
			desc:     "not found",
			status:   http.StatusNotFound,
			err:      clm.ErrNotFound,
			attempts: 1,
		},
		{
			desc:     "rate limited",
			status:   http.StatusTooManyRequests,
			header:   map[string]string{"Retry-After": "7"},
			err:      clm.ErrRateLimited,
			attempts: 1,
		},
		{
			desc:     "not implemented",
			status:   http.StatusNotImplemented,
			err:      clm.ErrServiceUnavailable,
			attempts: 1,
		},
		{
			desc:     "service unavailable after retries",
			status:   http.StatusServiceUnavailable,
			err:      clm.ErrServiceUnavailable,
			attempts: 4,
		},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			var calls atomic.Int32
			srv := newServer(t, pki, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				for k, v := range tc.header {
					w.Header().Set(k, v)
				}
				writeJSON(w, tc.status, map[string]any{"error_code": tc.status, "error_message": "refused"})
			}))
			agent := newAgent(t, srv, &pki.client)

			_, err := agent.CAInfo(context.Background())
			assert.True(t, errors.Contains(err, tc.err), fmt.Sprintf("expected %v got %v", tc.err, err))
			assert.Equal(t, tc.attempts, calls.Load())
			if tc.status == http.StatusTooManyRequests {
				d, ok := clm.RetryAfter(err)
				assert.True(t, ok)
				assert.Equal(t, 7*time.Second, d)
			}
		})
	}
}

func TestMutualTLS(t *testing.T) {
	pki := newTestPKI(t)
	var calls atomic.Int32
	srv := newServer(t, pki, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusOK, map[string]any{"certificate_authorities": []any{}})
	}))

	_, err := newAgent(t, srv, nil).CAInfo(context.Background())
	assert.True(t, errors.Contains(err, clm.ErrAuthentication), fmt.Sprintf("expected %v got %v", clm.ErrAuthentication, err))
	assert.Equal(t, int32(0), calls.Load())

	cas, err := newAgent(t, srv, &pki.client).CAInfo(context.Background())
	require.Nil(t, err)
	assert.Empty(t, cas)
}

func TestRevoke(t *testing.T) {
	pki := newTestPKI(t)
	revokedAt := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	cases := []struct {
		desc   string
		status int
		err    error
	}{
		{
			desc:   "revoke certificate",
			status: http.StatusOK,
		},
		{
			desc:   "revoke already revoked certificate",
			status: http.StatusConflict,
		},
		{
			desc:   "revoke unknown certificate",
			status: http.StatusNotFound,
			err:    clm.ErrNotFound,
		},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			srv := newServer(t, pki, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPut, r.Method)
				assert.Equal(t, basePath+"certificate/CN=ManagementCA,O=EJBCA Sample/1A2B3C/revoke", r.URL.Path)
				assert.Equal(t, "SUPERSEDED", r.URL.Query().Get("reason"))
				writeJSON(w, tc.status, map[string]any{
					"serial_number":   "1A2B3C",
					"revoked":         true,
					"revocation_date": revokedAt,
				})
			}))
			agent := newAgent(t, srv, &pki.client)

			res, err := agent.Revoke(context.Background(), "CN=ManagementCA,O=EJBCA Sample", "1a:2b:3c", clm.ReasonSuperseded)
			assert.True(t, errors.Contains(err, tc.err), fmt.Sprintf("expected %v got %v", tc.err, err))
			if tc.status == http.StatusOK {
				assert.True(t, revokedAt.Equal(res.RevokedAt))
			}
		})
	}
}

func TestGet(t *testing.T) {
	pki := newTestPKI(t)
	srv := newServer(t, pki, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, basePath+"certificate/CN=ManagementCA/0A/revocationstatus", r.URL.Path)
		writeJSON(w, http.StatusOK, map[string]any{
			"issuer_dn":     "CN=ManagementCA",
			"serial_number": "0A",
			"revoked":       true,
		})
	}))

	cert, err := newAgent(t, srv, &pki.client).Get(context.Background(), "CN=ManagementCA", "0a")
	require.Nil(t, err)
	assert.Equal(t, clm.StatusRevoked, cert.Status)
	assert.Equal(t, "0a", cert.SerialNumber)
}

func TestLookup(t *testing.T) {
	pki := newTestPKI(t)
	srv := newServer(t, pki, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, basePath+"certificate/search", r.URL.Path)
		var body struct {
			Criteria []map[string]string `json:"criteria"`
		}
		assert.Nil(t, json.NewDecoder(r.Body).Decode(&body))

		certs := []any{}
		if len(body.Criteria) == 1 && body.Criteria[0]["value"] == "clm-known" {
			certs = append(certs, map[string]any{"certificate": base64.StdEncoding.EncodeToString(pki.leafDER)})
		}
		writeJSON(w, http.StatusOK, map[string]any{"certificates": certs})
	}))
	agent := newAgent(t, srv, &pki.client)

	cert, err := agent.Lookup(context.Background(), "known", nil)
	require.Nil(t, err)
	assert.Equal(t, "1a:2b:3c", cert.SerialNumber)

	_, err = agent.Lookup(context.Background(), "unknown", nil)
	assert.True(t, errors.Contains(err, clm.ErrNotFound))
}

func TestListExpiringBefore(t *testing.T) {
	pki := newTestPKI(t)
	leaf := base64.StdEncoding.EncodeToString(pki.leafDER)
	var pages atomic.Int32
	srv := newServer(t, pki, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, basePath+"certificate/expire", r.URL.Path)
		assert.Equal(t, "2", r.URL.Query().Get("maxNumberOfResults"))
		pages.Add(1)
		more := r.URL.Query().Get("offset") == "0"
		writeJSON(w, http.StatusOK, map[string]any{
			"pagination_rest_response_component": map[string]any{"more_results": more, "next_offset": 2},
			"certificates_rest_response": map[string]any{
				"certificates": []any{map[string]any{"certificate": leaf}},
			},
		})
	}))

	certs, err := newAgent(t, srv, &pki.client).ListExpiringBefore(context.Background(), time.Now().Add(30*24*time.Hour))
	require.Nil(t, err)
	assert.Len(t, certs, 2)
	assert.Equal(t, int32(2), pages.Load())
}

func TestCAInfo(t *testing.T) {
	pki := newTestPKI(t)
	exp := time.Date(2035, 1, 1, 0, 0, 0, 0, time.UTC)
	srv := newServer(t, pki, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, basePath+"ca", r.URL.Path)
		writeJSON(w, http.StatusOK, map[string]any{
			"certificate_authorities": []any{
				map[string]any{"id": 1, "name": "ManagementCA", "subject_dn": "CN=ManagementCA", "issuer_dn": "CN=ManagementCA", "expiration_date": exp},
			},
		})
	}))

	cas, err := newAgent(t, srv, &pki.client).CAInfo(context.Background())
	require.Nil(t, err)
	require.Len(t, cas, 1)
	assert.Equal(t, "ManagementCA", cas[0].Name)
	assert.True(t, exp.Equal(cas[0].ExpirationDate))
}
