// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package clm

import (
	"strings"

	"github.com/absmach/clm/pkg/errors"
	"golang.org/x/crypto/ocsp"
)

// RevocationReason is an RFC 5280 CRL reason, named the way the authority's REST API names it.
type RevocationReason string

const (
	ReasonUnspecified          RevocationReason = "UNSPECIFIED"
	ReasonKeyCompromise        RevocationReason = "KEY_COMPROMISE"
	ReasonCACompromise         RevocationReason = "CA_COMPROMISE"
	ReasonAffiliationChanged   RevocationReason = "AFFILIATION_CHANGED"
	ReasonSuperseded           RevocationReason = "SUPERSEDED"
	ReasonCessationOfOperation RevocationReason = "CESSATION_OF_OPERATION"
	ReasonCertificateHold      RevocationReason = "CERTIFICATE_HOLD"
	ReasonRemoveFromCRL        RevocationReason = "REMOVE_FROM_CRL"
	ReasonPrivilegesWithdrawn  RevocationReason = "PRIVILEGES_WITHDRAWN"
	ReasonAACompromise         RevocationReason = "AA_COMPROMISE"
)

var errUnknownReason = errors.New("unknown revocation reason")

var reasonCodes = map[RevocationReason]int{
	ReasonUnspecified:          ocsp.Unspecified,
	ReasonKeyCompromise:        ocsp.KeyCompromise,
	ReasonCACompromise:         ocsp.CACompromise,
	ReasonAffiliationChanged:   ocsp.AffiliationChanged,
	ReasonSuperseded:           ocsp.Superseded,
	ReasonCessationOfOperation: ocsp.CessationOfOperation,
	ReasonCertificateHold:      ocsp.CertificateHold,
	ReasonRemoveFromCRL:        ocsp.RemoveFromCRL,
	ReasonPrivilegesWithdrawn:  ocsp.PrivilegeWithdrawn,
	ReasonAACompromise:         ocsp.AACompromise,
}

// Code returns the RFC 5280 reason code.
func (r RevocationReason) Code() int {
	return reasonCodes[r]
}

// ParseRevocationReason accepts reason names in any case, with dashes,
// spaces or underscores. An empty name is UNSPECIFIED.
func ParseRevocationReason(s string) (RevocationReason, error) {
	if strings.TrimSpace(s) == "" {
		return ReasonUnspecified, nil
	}
	name := strings.ToUpper(strings.TrimSpace(s))
	name = strings.NewReplacer("-", "_", " ", "_").Replace(name)
	r := RevocationReason(name)
	if _, ok := reasonCodes[r]; !ok {
		return "", errors.Wrap(errUnknownReason, errors.New(s))
	}
	return r, nil
}

// ReasonFromCode maps an RFC 5280 reason code back to its name.
func ReasonFromCode(code int) RevocationReason {
	for r, c := range reasonCodes {
		if c == code {
			return r
		}
	}
	return ReasonUnspecified
}
