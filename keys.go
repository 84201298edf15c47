// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package clm

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"

	"github.com/absmach/clm/pkg/errors"
)

const (
	KeyRSA   = "rsa"
	KeyECDSA = "ecdsa"

	defRSABits   = 2048
	defECDSABits = 256
)

var (
	errUnsupportedKey    = errors.New("unsupported key algorithm")
	errFailedReadingKey  = errors.New("failed to read private key")
	errFailedCreatingCSR = errors.New("failed to create certificate signing request")
)

// GenerateKey creates a private key and returns it with its PKCS#8 PEM encoding.
func GenerateKey(algorithm string, bits int) (crypto.Signer, []byte, error) {
	var (
		key crypto.Signer
		err error
	)
	switch algorithm {
	case KeyRSA, "":
		if bits == 0 {
			bits = defRSABits
		}
		key, err = rsa.GenerateKey(rand.Reader, bits)
	case KeyECDSA:
		var curve elliptic.Curve
		switch bits {
		case 0, defECDSABits:
			curve = elliptic.P256()
		case 384:
			curve = elliptic.P384()
		case 521:
			curve = elliptic.P521()
		default:
			return nil, nil, errors.Wrap(errUnsupportedKey, fmt.Errorf("ecdsa with %d bits", bits))
		}
		key, err = ecdsa.GenerateKey(curve, rand.Reader)
	default:
		return nil, nil, errors.Wrap(errUnsupportedKey, errors.New(algorithm))
	}
	if err != nil {
		return nil, nil, err
	}

	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return nil, nil, err
	}

	return key, pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}), nil
}

// ParsePrivateKey parses a PKCS#8, PKCS#1 or SEC 1 PEM private key.
func ParsePrivateKey(data []byte) (crypto.Signer, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, errFailedReadingKey
	}
	switch block.Type {
	case "RSA PRIVATE KEY":
		key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
		if err != nil {
			return nil, errors.Wrap(errFailedReadingKey, err)
		}
		return key, nil
	case "EC PRIVATE KEY":
		key, err := x509.ParseECPrivateKey(block.Bytes)
		if err != nil {
			return nil, errors.Wrap(errFailedReadingKey, err)
		}
		return key, nil
	}

	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, errors.Wrap(errFailedReadingKey, err)
	}
	signer, ok := key.(crypto.Signer)
	if !ok {
		return nil, errFailedReadingKey
	}

	return signer, nil
}

// CreateCSR returns a PEM encoded PKCS#10 request signed by key.
func CreateCSR(subject pkix.Name, dnsNames []string, key crypto.Signer) ([]byte, error) {
	template := x509.CertificateRequest{
		Subject:  subject,
		DNSNames: dnsNames,
	}
	der, err := x509.CreateCertificateRequest(rand.Reader, &template, key)
	if err != nil {
		return nil, errors.Wrap(errFailedCreatingCSR, err)
	}

	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE REQUEST", Bytes: der}), nil
}
