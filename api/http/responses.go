// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package http

import (
	"fmt"
	"net/http"
	"time"

	"github.com/absmach/clm"
	"github.com/absmach/clm/internal/api"
)

var (
	_ api.Response = (*submitIntentRes)(nil)
	_ api.Response = (*operationRes)(nil)
	_ api.Response = (*cancelOperationRes)(nil)
	_ api.Response = (*listOperationsRes)(nil)
	_ api.Response = (*viewCertRes)(nil)
	_ api.Response = (*listCertsRes)(nil)
	_ api.Response = (*listCAsRes)(nil)
	_ api.Response = (*viewCRLRes)(nil)
	_ api.Response = (*createCRLRes)(nil)
	_ api.Response = (*caChainRes)(nil)
	_ api.Response = (*authorityStatusRes)(nil)
)

type submitIntentRes struct {
	OperationID string `json:"operation_id"`
}

func (res submitIntentRes) Code() int {
	return http.StatusAccepted
}

func (res submitIntentRes) Headers() map[string]string {
	return map[string]string{
		"Location": fmt.Sprintf("/operations/%s", res.OperationID),
	}
}

func (res submitIntentRes) Empty() bool {
	return false
}

type operationRes struct {
	clm.OperationStatus
}

func (res operationRes) Code() int {
	return http.StatusOK
}

func (res operationRes) Headers() map[string]string {
	return map[string]string{}
}

func (res operationRes) Empty() bool {
	return false
}

type cancelOperationRes struct {
	cancelled bool
}

func (res cancelOperationRes) Code() int {
	if res.cancelled {
		return http.StatusAccepted
	}

	return http.StatusUnprocessableEntity
}

func (res cancelOperationRes) Headers() map[string]string {
	return map[string]string{}
}

func (res cancelOperationRes) Empty() bool {
	return true
}

type listOperationsRes struct {
	Total      uint64                `json:"total"`
	Offset     uint64                `json:"offset"`
	Limit      uint64                `json:"limit"`
	Operations []clm.OperationStatus `json:"operations"`
}

func (res listOperationsRes) Code() int {
	return http.StatusOK
}

func (res listOperationsRes) Headers() map[string]string {
	return map[string]string{}
}

func (res listOperationsRes) Empty() bool {
	return false
}

type viewCertRes struct {
	SerialNumber        string     `json:"serial_number"`
	IssuerDN            string     `json:"issuer_dn"`
	SubjectDN           string     `json:"subject_dn,omitempty"`
	Status              clm.Status `json:"status"`
	NotBefore           time.Time  `json:"not_before,omitempty"`
	NotAfter            time.Time  `json:"not_after,omitempty"`
	Profile             string     `json:"profile,omitempty"`
	Fingerprint         string     `json:"fingerprint,omitempty"`
	Certificate         string     `json:"certificate,omitempty"`
	SupersededBy        string     `json:"superseded_by,omitempty"`
	RemediationRequired bool       `json:"remediation_required,omitempty"`
	Imported            bool       `json:"imported,omitempty"`
	LastSyncedAt        time.Time  `json:"last_synced_at,omitempty"`
}

func newViewCertRes(c clm.Certificate) viewCertRes {
	return viewCertRes{
		SerialNumber:        c.SerialNumber,
		IssuerDN:            c.IssuerDN,
		SubjectDN:           c.SubjectDN,
		Status:              c.Status,
		NotBefore:           c.NotBefore,
		NotAfter:            c.NotAfter,
		Profile:             c.Profile,
		Fingerprint:         c.Fingerprint,
		Certificate:         string(c.Certificate),
		SupersededBy:        c.SupersededBy,
		RemediationRequired: c.RemediationRequired,
		Imported:            c.Imported,
		LastSyncedAt:        c.LastSyncedAt,
	}
}

func (res viewCertRes) Code() int {
	return http.StatusOK
}

func (res viewCertRes) Headers() map[string]string {
	return map[string]string{}
}

func (res viewCertRes) Empty() bool {
	return false
}

type listCertsRes struct {
	Total        uint64        `json:"total"`
	Offset       uint64        `json:"offset"`
	Limit        uint64        `json:"limit"`
	Certificates []viewCertRes `json:"certificates"`
}

func (res listCertsRes) Code() int {
	return http.StatusOK
}

func (res listCertsRes) Headers() map[string]string {
	return map[string]string{}
}

func (res listCertsRes) Empty() bool {
	return false
}

type listCAsRes struct {
	CAs []clm.CAInfo `json:"cas"`
}

func (res listCAsRes) Code() int {
	return http.StatusOK
}

func (res listCAsRes) Headers() map[string]string {
	return map[string]string{}
}

func (res listCAsRes) Empty() bool {
	return false
}

type viewCRLRes struct {
	IssuerDN     string    `json:"issuer_dn"`
	Number       string    `json:"crl_number,omitempty"`
	Delta        bool      `json:"delta,omitempty"`
	ThisUpdate   time.Time `json:"this_update"`
	NextUpdate   time.Time `json:"next_update,omitempty"`
	RevokedCount int       `json:"revoked_count"`
	CRL          string    `json:"crl,omitempty"`
}

func (res viewCRLRes) Code() int {
	return http.StatusOK
}

func (res viewCRLRes) Headers() map[string]string {
	return map[string]string{}
}

func (res viewCRLRes) Empty() bool {
	return false
}

type createCRLRes struct {
	clm.CRLGeneration
}

func (res createCRLRes) Code() int {
	return http.StatusCreated
}

func (res createCRLRes) Headers() map[string]string {
	return map[string]string{}
}

func (res createCRLRes) Empty() bool {
	return false
}

type caChainRes struct {
	Certificates []viewCertRes `json:"certificates"`
}

func (res caChainRes) Code() int {
	return http.StatusOK
}

func (res caChainRes) Headers() map[string]string {
	return map[string]string{}
}

func (res caChainRes) Empty() bool {
	return false
}

type authorityStatusRes struct {
	APIs []clm.APIStatus `json:"apis"`
}

func (res authorityStatusRes) Code() int {
	return http.StatusOK
}

func (res authorityStatusRes) Headers() map[string]string {
	return map[string]string{}
}

func (res authorityStatusRes) Empty() bool {
	return false
}
