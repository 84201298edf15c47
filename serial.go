// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package clm

import (
	"math/big"
	"strings"
)

// NormalizeSerialNumber normalizes a serial number to use colon-separated hex format.
func NormalizeSerialNumber(serial string) string {
	cleaned := strings.ReplaceAll(strings.ReplaceAll(serial, ":", ""), " ", "")
	cleaned = strings.TrimPrefix(strings.ToLower(cleaned), "0x")

	if len(cleaned)%2 != 0 {
		cleaned = "0" + cleaned
	}

	var result strings.Builder
	for i := 0; i < len(cleaned); i += 2 {
		if i > 0 {
			result.WriteString(":")
		}
		result.WriteString(cleaned[i : i+2])
	}

	return result.String()
}

// SerialFromBigInt formats a certificate serial in the normalized form.
func SerialFromBigInt(n *big.Int) string {
	return NormalizeSerialNumber(n.Text(16))
}

// HexSerial returns the serial as bare upper-case hex, the form REST
// authorities expect in URLs.
func HexSerial(serial string) string {
	return strings.ToUpper(strings.ReplaceAll(NormalizeSerialNumber(serial), ":", ""))
}

// CertificateKey identifies a certificate record. Serial numbers are only
// unique per issuer.
func CertificateKey(issuerDN, serial string) string {
	return issuerDN + "\x00" + serial
}
