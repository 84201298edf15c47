// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package ejbca_test

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"log/slog"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/absmach/clm"
	"github.com/absmach/clm/ejbca"
	"github.com/stretchr/testify/require"
)

type testPKI struct {
	caCert    *x509.Certificate
	caKey     *ecdsa.PrivateKey
	client    tls.Certificate
	leafDER   []byte
	leafCert  *x509.Certificate
	clientCAs *x509.CertPool
}

func newTestPKI(t *testing.T) testPKI {
	t.Helper()
	caKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.Nil(t, err)
	caTmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "ManagementCA", Organization: []string{"EJBCA Sample"}},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(24 * time.Hour),
		IsCA:                  true,
		BasicConstraintsValid: true,
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign,
	}
	caDER, err := x509.CreateCertificate(rand.Reader, caTmpl, caTmpl, &caKey.PublicKey, caKey)
	require.Nil(t, err)
	caCert, err := x509.ParseCertificate(caDER)
	require.Nil(t, err)

	sign := func(serial int64, cn string, usage x509.ExtKeyUsage, notAfter time.Time) ([]byte, *ecdsa.PrivateKey) {
		key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
		require.Nil(t, err)
		tmpl := &x509.Certificate{
			SerialNumber: big.NewInt(serial),
			Subject:      pkix.Name{CommonName: cn},
			NotBefore:    time.Now().Add(-time.Hour),
			NotAfter:     notAfter,
			ExtKeyUsage:  []x509.ExtKeyUsage{usage},
			KeyUsage:     x509.KeyUsageDigitalSignature,
		}
		der, err := x509.CreateCertificate(rand.Reader, tmpl, caCert, &key.PublicKey, caKey)
		require.Nil(t, err)
		return der, key
	}

	clientDER, clientKey := sign(2, "clm-client", x509.ExtKeyUsageClientAuth, time.Now().Add(24*time.Hour))
	leafDER, _ := sign(0x1a2b3c, "svc.example.com", x509.ExtKeyUsageServerAuth, time.Now().Add(10*24*time.Hour))
	leaf, err := x509.ParseCertificate(leafDER)
	require.Nil(t, err)

	pool := x509.NewCertPool()
	pool.AddCert(caCert)

	return testPKI{
		caCert:    caCert,
		caKey:     caKey,
		client:    tls.Certificate{Certificate: [][]byte{clientDER}, PrivateKey: clientKey},
		leafDER:   leafDER,
		leafCert:  leaf,
		clientCAs: pool,
	}
}

// newServer starts a TLS server that requires a client certificate signed
// by the test CA.
func newServer(t *testing.T, pki testPKI, handler http.Handler) *httptest.Server {
	t.Helper()
	srv := httptest.NewUnstartedServer(handler)
	srv.TLS = &tls.Config{
		ClientAuth: tls.RequireAndVerifyClientCert,
		ClientCAs:  pki.clientCAs,
	}
	srv.StartTLS()
	t.Cleanup(srv.Close)
	return srv
}

func newAgent(t *testing.T, srv *httptest.Server, client *tls.Certificate) clm.Agent {
	t.Helper()
	roots := x509.NewCertPool()
	roots.AddCert(srv.Certificate())
	tlsCfg := &tls.Config{RootCAs: roots, MinVersion: tls.VersionTLS12}
	if client != nil {
		tlsCfg.Certificates = []tls.Certificate{*client}
	}

	cfg := ejbca.Config{
		URL:                srv.URL,
		Timeout:            5 * time.Second,
		Retries:            3,
		MaxConns:           50,
		RetryWaitMin:       time.Millisecond,
		RetryWaitMax:       5 * time.Millisecond,
		CertificateProfile: "ENDUSER",
		EndEntityProfile:   "EMPTY",
		CAName:             "ManagementCA",
		PageSize:           2,
		Debug:              true,
	}
	agent, err := ejbca.NewAgent(cfg, tlsCfg, slog.New(slog.DiscardHandler))
	require.Nil(t, err)
	return agent
}
