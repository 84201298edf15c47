// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package ejbca

import (
	"encoding/base64"
	"strings"
	"time"

	"github.com/absmach/clm"
)

type enrollRequest struct {
	CertificateRequest       string `json:"certificate_request"`
	CertificateProfileName   string `json:"certificate_profile_name"`
	EndEntityProfileName     string `json:"end_entity_profile_name"`
	CertificateAuthorityName string `json:"certificate_authority_name"`
	Username                 string `json:"username"`
	Password                 string `json:"password"`
	IncludeChain             bool   `json:"include_chain"`
}

type searchCriterion struct {
	Property  string `json:"property"`
	Value     string `json:"value"`
	Operation string `json:"operation"`
}

type searchRequest struct {
	MaxNumberOfResults int               `json:"max_number_of_results"`
	Criteria           []searchCriterion `json:"criteria"`
}

type certificateResponse struct {
	Certificate      string   `json:"certificate"`
	SerialNumber     string   `json:"serial_number"`
	ResponseFormat   string   `json:"response_format"`
	CertificateChain []string `json:"certificate_chain,omitempty"`
}

// record decodes the certificate into an active record.
func (cr certificateResponse) record() (clm.Certificate, error) {
	data := []byte(cr.Certificate)
	if !strings.HasPrefix(strings.TrimSpace(cr.Certificate), "-----BEGIN") {
		der, err := base64.StdEncoding.DecodeString(cr.Certificate)
		if err != nil {
			return clm.Certificate{}, err
		}
		data = der
	}
	cert, err := clm.ParseCertificate(data)
	if err != nil {
		return clm.Certificate{}, err
	}
	cert.Status = clm.StatusActive
	return cert, nil
}

type searchResponse struct {
	Certificates []certificateResponse `json:"certificates"`
	MoreResults  bool                  `json:"more_results"`
}

type expireResponse struct {
	Pagination struct {
		MoreResults     bool `json:"more_results"`
		NextOffset      int  `json:"next_offset"`
		NumberOfResults int  `json:"number_of_results"`
	} `json:"pagination_rest_response_component"`
	Certificates struct {
		Certificates []certificateResponse `json:"certificates"`
	} `json:"certificates_rest_response"`
}

type revocationResponse struct {
	IssuerDN         string     `json:"issuer_dn"`
	SerialNumber     string     `json:"serial_number"`
	RevocationReason string     `json:"revocation_reason"`
	RevocationDate   *time.Time `json:"revocation_date"`
	Message          string     `json:"message"`
	Revoked          bool       `json:"revoked"`
}

type caResponse struct {
	ID             int       `json:"id"`
	Name           string    `json:"name"`
	SubjectDN      string    `json:"subject_dn"`
	IssuerDN       string    `json:"issuer_dn"`
	ExpirationDate time.Time `json:"expiration_date"`
}

type caListResponse struct {
	CertificateAuthorities []caResponse `json:"certificate_authorities"`
}

type errorResponse struct {
	ErrorCode    int    `json:"error_code"`
	ErrorMessage string `json:"error_message"`
}

type crlResponse struct {
	CRL            string `json:"crl"`
	ResponseFormat string `json:"response_format"`
}

type createCRLResponse struct {
	IssuerDN              string `json:"issuer_dn"`
	LatestCRLVersion      int64  `json:"latest_crl_version"`
	LatestDeltaCRLVersion int64  `json:"latest_delta_crl_version"`
	AllSuccess            bool   `json:"all_success"`
}

type statusResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	Revision string `json:"revision"`
}
