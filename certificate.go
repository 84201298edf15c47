// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package clm

import (
	"bytes"
	"crypto/sha256"
	"crypto/x509"
	"encoding/asn1"
	"encoding/hex"
	"encoding/pem"

	"github.com/absmach/clm/pkg/errors"
)

var (
	errFailedParsingCert = errors.New("failed to parse certificate")
	errFailedParsingCSR  = errors.New("failed to parse certificate request")
	errFailedParsingCRL  = errors.New("failed to parse revocation list")
	errNoCertificates    = errors.New("no certificates found")
)

var oidDeltaCRLIndicator = asn1.ObjectIdentifier{2, 5, 29, 27}

// ParseCertificate builds a record from a PEM or DER encoded certificate.
// The returned record has no status.
func ParseCertificate(data []byte) (Certificate, error) {
	x, err := parseX509(data)
	if err != nil {
		return Certificate{}, err
	}

	sum := sha256.Sum256(x.Raw)

	return Certificate{
		SerialNumber: SerialFromBigInt(x.SerialNumber),
		IssuerDN:     x.Issuer.String(),
		SubjectDN:    x.Subject.String(),
		NotBefore:    x.NotBefore.UTC(),
		NotAfter:     x.NotAfter.UTC(),
		Fingerprint:  hex.EncodeToString(sum[:]),
		Certificate:  pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: x.Raw}),
	}, nil
}

func parseX509(data []byte) (*x509.Certificate, error) {
	der := data
	if block, _ := pem.Decode(data); block != nil {
		der = block.Bytes
	}
	x, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, errors.Wrap(errFailedParsingCert, err)
	}
	return x, nil
}

// MatchesRequest reports whether cert certifies the public key of csr.
// Both may be PEM or DER encoded.
func MatchesRequest(cert, csr []byte) (bool, error) {
	x, err := parseX509(cert)
	if err != nil {
		return false, err
	}
	der := csr
	if block, _ := pem.Decode(csr); block != nil {
		der = block.Bytes
	}
	req, err := x509.ParseCertificateRequest(der)
	if err != nil {
		return false, errors.Wrap(errFailedParsingCSR, err)
	}
	return bytes.Equal(x.RawSubjectPublicKeyInfo, req.RawSubjectPublicKeyInfo), nil
}

// ParseCertificates parses a PEM bundle, or a single DER certificate, in
// the order given.
func ParseCertificates(data []byte) ([]Certificate, error) {
	if !bytes.Contains(data, []byte("-----BEGIN")) {
		c, err := ParseCertificate(data)
		if err != nil {
			return nil, err
		}
		return []Certificate{c}, nil
	}

	certs := []Certificate{}
	for {
		var block *pem.Block
		block, data = pem.Decode(data)
		if block == nil {
			break
		}
		if block.Type != "CERTIFICATE" {
			continue
		}
		c, err := ParseCertificate(block.Bytes)
		if err != nil {
			return nil, err
		}
		certs = append(certs, c)
	}
	if len(certs) == 0 {
		return nil, errNoCertificates
	}
	return certs, nil
}

// ParseCRL builds a CRL from a PEM or DER encoded revocation list.
func ParseCRL(data []byte) (CRL, error) {
	der := data
	if block, _ := pem.Decode(data); block != nil {
		der = block.Bytes
	}
	rl, err := x509.ParseRevocationList(der)
	if err != nil {
		return CRL{}, errors.Wrap(errFailedParsingCRL, err)
	}

	crl := CRL{
		IssuerDN:     rl.Issuer.String(),
		ThisUpdate:   rl.ThisUpdate.UTC(),
		NextUpdate:   rl.NextUpdate.UTC(),
		RevokedCount: len(rl.RevokedCertificateEntries),
		CRL:          pem.EncodeToMemory(&pem.Block{Type: "X509 CRL", Bytes: rl.Raw}),
	}
	if rl.Number != nil {
		crl.Number = rl.Number.String()
	}
	for _, ext := range rl.Extensions {
		if ext.Id.Equal(oidDeltaCRLIndicator) {
			crl.Delta = true
		}
	}
	return crl, nil
}
