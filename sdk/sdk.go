// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package sdk is a client for the certificate lifecycle HTTP API.
package sdk

import (
	"bytes"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/absmach/clm/pkg/errors"
	"github.com/hashicorp/go-cleanhttp"
	"moul.io/http2curl"
)

const (
	intentsEndpoint    = "intents"
	operationsEndpoint = "operations"
	certsEndpoint      = "certs"
	casEndpoint        = "cas"
	chainEndpoint      = "cas/chain"
	crlsEndpoint       = "crls"
	statusEndpoint     = "status"
)

// CTJSON represents JSON content type.
const CTJSON = "application/json"

// Intent kinds.
const (
	KindIssue  = "issue"
	KindRenew  = "renew"
	KindRevoke = "revoke"
)

type Intent struct {
	Kind               string   `json:"kind"`
	Subject            string   `json:"subject,omitempty"`
	ValidityDays       int      `json:"validity_days,omitempty"`
	CertificateProfile string   `json:"certificate_profile,omitempty"`
	DNSNames           []string `json:"dns_names,omitempty"`
	TargetSerial       string   `json:"target_serial,omitempty"`
	TargetIssuer       string   `json:"target_issuer,omitempty"`
	RevocationReason   string   `json:"revocation_reason,omitempty"`
	IdempotencyToken   string   `json:"idempotency_token,omitempty"`
}

type Operation struct {
	ID                string    `json:"id"`
	Kind              string    `json:"kind"`
	State             string    `json:"state"`
	Attempts          int       `json:"attempts"`
	LastError         string    `json:"last_error,omitempty"`
	ErrorKind         string    `json:"error_kind,omitempty"`
	TargetSerial      string    `json:"target_serial,omitempty"`
	CertificateSerial string    `json:"certificate_serial,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

type OperationsPage struct {
	Total      uint64      `json:"total"`
	Offset     uint64      `json:"offset"`
	Limit      uint64      `json:"limit"`
	Operations []Operation `json:"operations"`
}

type Certificate struct {
	SerialNumber        string    `json:"serial_number"`
	IssuerDN            string    `json:"issuer_dn"`
	SubjectDN           string    `json:"subject_dn,omitempty"`
	Status              string    `json:"status"`
	NotBefore           time.Time `json:"not_before,omitempty"`
	NotAfter            time.Time `json:"not_after,omitempty"`
	Profile             string    `json:"profile,omitempty"`
	Fingerprint         string    `json:"fingerprint,omitempty"`
	Certificate         string    `json:"certificate,omitempty"`
	SupersededBy        string    `json:"superseded_by,omitempty"`
	RemediationRequired bool      `json:"remediation_required,omitempty"`
	Imported            bool      `json:"imported,omitempty"`
	LastSyncedAt        time.Time `json:"last_synced_at,omitempty"`
}

type CertificatePage struct {
	Total        uint64        `json:"total"`
	Offset       uint64        `json:"offset"`
	Limit        uint64        `json:"limit"`
	Certificates []Certificate `json:"certificates,omitempty"`
}

type CA struct {
	ID             int       `json:"id,omitempty"`
	Name           string    `json:"name"`
	SubjectDN      string    `json:"subject_dn"`
	IssuerDN       string    `json:"issuer_dn,omitempty"`
	ExpirationDate time.Time `json:"expiration_date,omitempty"`
}

type CRL struct {
	IssuerDN     string    `json:"issuer_dn"`
	Number       string    `json:"crl_number,omitempty"`
	Delta        bool      `json:"delta,omitempty"`
	ThisUpdate   time.Time `json:"this_update"`
	NextUpdate   time.Time `json:"next_update,omitempty"`
	RevokedCount int       `json:"revoked_count"`
	CRL          string    `json:"crl,omitempty"`
}

// CRLQuery selects a revocation list. An empty IssuerDN names the default
// CA; Info leaves the encoded list out of the response.
type CRLQuery struct {
	IssuerDN  string
	Delta     bool
	Partition uint64
	Info      bool
}

type CRLGeneration struct {
	IssuerDN       string `json:"issuer_dn"`
	CRLNumber      int64  `json:"crl_number"`
	DeltaCRLNumber int64  `json:"delta_crl_number,omitempty"`
}

type APIStatus struct {
	Resource string `json:"resource"`
	Status   string `json:"status"`
	Version  string `json:"version,omitempty"`
	Revision string `json:"revision,omitempty"`
}

// PageMetadata carries list filters. Operation listings use State, Kind and
// TargetSerial; certificate listings use Status, ExpiresBefore, Remediation
// and Archived.
type PageMetadata struct {
	Offset        uint64
	Limit         uint64
	State         string
	Kind          string
	TargetSerial  string
	Status        string
	ExpiresBefore time.Time
	Remediation   bool
	Archived      bool
}

type Config struct {
	URL string

	TLSVerification bool
	CurlFlag        bool
}

type clmSDK struct {
	url      string
	client   *http.Client
	curlFlag bool
}

type SDK interface {
	// SubmitIntent submits a lifecycle intent and returns the ID of the
	// operation carrying it out.
	//
	// example:
	//  id, _ := sdk.SubmitIntent(sdk.Intent{Kind: sdk.KindRenew, TargetSerial: "1a:2b:3c"})
	//  fmt.Println(id)
	SubmitIntent(intent Intent) (string, errors.SDKError)

	// Operation retrieves the status of an operation.
	//
	// example:
	//  op, _ := sdk.Operation("operationID")
	//  fmt.Println(op.State)
	Operation(id string) (Operation, errors.SDKError)

	// CancelOperation requests cancellation of an operation.
	//
	// example:
	//  err := sdk.CancelOperation("operationID")
	//  fmt.Println(err) // nil if the request was accepted
	CancelOperation(id string) errors.SDKError

	// ListOperations lists operations.
	//
	// example:
	//  page, _ := sdk.ListOperations(sdk.PageMetadata{State: "failed", Limit: 10})
	//  fmt.Println(page)
	ListOperations(pm PageMetadata) (OperationsPage, errors.SDKError)

	// ViewCert retrieves a certificate record.
	//
	// example:
	//  cert, _ := sdk.ViewCert("serialNumber")
	//  fmt.Println(cert)
	ViewCert(serialNumber string) (Certificate, errors.SDKError)

	// ListCerts lists certificate records.
	//
	// example:
	//  page, _ := sdk.ListCerts(sdk.PageMetadata{Status: "active", Limit: 10})
	//  fmt.Println(page)
	ListCerts(pm PageMetadata) (CertificatePage, errors.SDKError)

	// ListCAs lists the certificate authorities the service talks to.
	ListCAs() ([]CA, errors.SDKError)

	// CAChain retrieves the certificate chain of a CA, the CA certificate
	// first. With caOnly set only the CA certificate is returned.
	//
	// example:
	//  chain, _ := sdk.CAChain("CN=ManagementCA", false)
	//  fmt.Println(chain[0].Certificate)
	CAChain(subjectDN string, caOnly bool) ([]Certificate, errors.SDKError)

	// ViewCRL retrieves the latest revocation list of a CA.
	//
	// example:
	//  crl, _ := sdk.ViewCRL(sdk.CRLQuery{IssuerDN: "CN=ManagementCA", Delta: true})
	//  fmt.Println(crl.Number)
	ViewCRL(q CRLQuery) (CRL, errors.SDKError)

	// CreateCRL makes a CA publish a fresh revocation list.
	CreateCRL(issuerDN string, delta bool) (CRLGeneration, errors.SDKError)

	// AuthorityStatus reports whether the authority APIs are reachable.
	AuthorityStatus() ([]APIStatus, errors.SDKError)
}

func (sdk clmSDK) SubmitIntent(intent Intent) (string, errors.SDKError) {
	d, err := json.Marshal(intent)
	if err != nil {
		return "", errors.NewSDKError(err)
	}
	url := fmt.Sprintf("%s/%s", sdk.url, intentsEndpoint)
	_, body, sdkerr := sdk.processRequest(http.MethodPost, url, d, nil, http.StatusAccepted)
	if sdkerr != nil {
		return "", sdkerr
	}

	var res struct {
		OperationID string `json:"operation_id"`
	}
	if err := json.Unmarshal(body, &res); err != nil {
		return "", errors.NewSDKError(err)
	}

	return res.OperationID, nil
}

func (sdk clmSDK) Operation(id string) (Operation, errors.SDKError) {
	url := fmt.Sprintf("%s/%s/%s", sdk.url, operationsEndpoint, id)
	_, body, sdkerr := sdk.processRequest(http.MethodGet, url, nil, nil, http.StatusOK)
	if sdkerr != nil {
		return Operation{}, sdkerr
	}

	var op Operation
	if err := json.Unmarshal(body, &op); err != nil {
		return Operation{}, errors.NewSDKError(err)
	}
	return op, nil
}

func (sdk clmSDK) CancelOperation(id string) errors.SDKError {
	url := fmt.Sprintf("%s/%s/%s/cancel", sdk.url, operationsEndpoint, id)
	_, _, sdkerr := sdk.processRequest(http.MethodPatch, url, nil, nil, http.StatusAccepted)
	return sdkerr
}

func (sdk clmSDK) ListOperations(pm PageMetadata) (OperationsPage, errors.SDKError) {
	url := sdk.withQueryParams(sdk.url, operationsEndpoint, pm)
	_, body, sdkerr := sdk.processRequest(http.MethodGet, url, nil, nil, http.StatusOK)
	if sdkerr != nil {
		return OperationsPage{}, sdkerr
	}

	var page OperationsPage
	if err := json.Unmarshal(body, &page); err != nil {
		return OperationsPage{}, errors.NewSDKError(err)
	}
	return page, nil
}

func (sdk clmSDK) ViewCert(serialNumber string) (Certificate, errors.SDKError) {
	reqURL := fmt.Sprintf("%s/%s/%s", sdk.url, certsEndpoint, url.PathEscape(serialNumber))
	_, body, sdkerr := sdk.processRequest(http.MethodGet, reqURL, nil, nil, http.StatusOK)
	if sdkerr != nil {
		return Certificate{}, sdkerr
	}

	var cert Certificate
	if err := json.Unmarshal(body, &cert); err != nil {
		return Certificate{}, errors.NewSDKError(err)
	}
	return cert, nil
}

func (sdk clmSDK) ListCerts(pm PageMetadata) (CertificatePage, errors.SDKError) {
	url := sdk.withQueryParams(sdk.url, certsEndpoint, pm)
	_, body, sdkerr := sdk.processRequest(http.MethodGet, url, nil, nil, http.StatusOK)
	if sdkerr != nil {
		return CertificatePage{}, sdkerr
	}

	var cp CertificatePage
	if err := json.Unmarshal(body, &cp); err != nil {
		return CertificatePage{}, errors.NewSDKError(err)
	}
	return cp, nil
}

func (sdk clmSDK) ListCAs() ([]CA, errors.SDKError) {
	url := fmt.Sprintf("%s/%s", sdk.url, casEndpoint)
	_, body, sdkerr := sdk.processRequest(http.MethodGet, url, nil, nil, http.StatusOK)
	if sdkerr != nil {
		return nil, sdkerr
	}

	var res struct {
		CAs []CA `json:"cas"`
	}
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, errors.NewSDKError(err)
	}
	return res.CAs, nil
}

func (sdk clmSDK) CAChain(subjectDN string, caOnly bool) ([]Certificate, errors.SDKError) {
	q := url.Values{}
	if subjectDN != "" {
		q.Add("subject_dn", subjectDN)
	}
	if caOnly {
		q.Add("leaf", "true")
	}
	reqURL := withQuery(fmt.Sprintf("%s/%s", sdk.url, chainEndpoint), q)
	_, body, sdkerr := sdk.processRequest(http.MethodGet, reqURL, nil, nil, http.StatusOK)
	if sdkerr != nil {
		return nil, sdkerr
	}

	var res struct {
		Certificates []Certificate `json:"certificates"`
	}
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, errors.NewSDKError(err)
	}
	return res.Certificates, nil
}

func (sdk clmSDK) ViewCRL(cq CRLQuery) (CRL, errors.SDKError) {
	q := url.Values{}
	if cq.IssuerDN != "" {
		q.Add("issuer_dn", cq.IssuerDN)
	}
	if cq.Delta {
		q.Add("delta", "true")
	}
	if cq.Partition != 0 {
		q.Add("partition", strconv.FormatUint(cq.Partition, 10))
	}
	if cq.Info {
		q.Add("info", "true")
	}
	reqURL := withQuery(fmt.Sprintf("%s/%s", sdk.url, crlsEndpoint), q)
	_, body, sdkerr := sdk.processRequest(http.MethodGet, reqURL, nil, nil, http.StatusOK)
	if sdkerr != nil {
		return CRL{}, sdkerr
	}

	var crl CRL
	if err := json.Unmarshal(body, &crl); err != nil {
		return CRL{}, errors.NewSDKError(err)
	}
	return crl, nil
}

func (sdk clmSDK) CreateCRL(issuerDN string, delta bool) (CRLGeneration, errors.SDKError) {
	d, err := json.Marshal(struct {
		IssuerDN string `json:"issuer_dn,omitempty"`
		Delta    bool   `json:"delta,omitempty"`
	}{issuerDN, delta})
	if err != nil {
		return CRLGeneration{}, errors.NewSDKError(err)
	}
	reqURL := fmt.Sprintf("%s/%s", sdk.url, crlsEndpoint)
	_, body, sdkerr := sdk.processRequest(http.MethodPost, reqURL, d, nil, http.StatusCreated)
	if sdkerr != nil {
		return CRLGeneration{}, sdkerr
	}

	var gen CRLGeneration
	if err := json.Unmarshal(body, &gen); err != nil {
		return CRLGeneration{}, errors.NewSDKError(err)
	}
	return gen, nil
}

func (sdk clmSDK) AuthorityStatus() ([]APIStatus, errors.SDKError) {
	reqURL := fmt.Sprintf("%s/%s", sdk.url, statusEndpoint)
	_, body, sdkerr := sdk.processRequest(http.MethodGet, reqURL, nil, nil, http.StatusOK)
	if sdkerr != nil {
		return nil, sdkerr
	}

	var res struct {
		APIs []APIStatus `json:"apis"`
	}
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, errors.NewSDKError(err)
	}
	return res.APIs, nil
}

func NewSDK(conf Config) SDK {
	transport := cleanhttp.DefaultPooledTransport()
	transport.TLSClientConfig = &tls.Config{
		InsecureSkipVerify: !conf.TLSVerification,
	}

	return &clmSDK{
		url: conf.URL,
		client: &http.Client{
			Transport: transport,
			Timeout:   30 * time.Second,
		},
		curlFlag: conf.CurlFlag,
	}
}

// processRequest creates and send a new HTTP request, and checks for errors in the HTTP response.
// It then returns the response headers, the response body, and the associated error(s) (if any).
func (sdk clmSDK) processRequest(method, reqURL string, data []byte, headers map[string]string, expectedRespCodes ...int) (http.Header, []byte, errors.SDKError) {
	req, err := http.NewRequest(method, reqURL, bytes.NewReader(data))
	if err != nil {
		return make(http.Header), []byte{}, errors.NewSDKError(err)
	}

	// Overridden if Content-Type is passed in the headers arguments.
	req.Header.Add("Content-Type", CTJSON)

	for key, value := range headers {
		req.Header.Add(key, value)
	}

	if sdk.curlFlag {
		curlCommand, err := http2curl.GetCurlCommand(req)
		if err != nil {
			return nil, nil, errors.NewSDKError(err)
		}
		log.Println(curlCommand.String())
	}

	resp, err := sdk.client.Do(req)
	if err != nil {
		return make(http.Header), []byte{}, errors.NewSDKError(err)
	}
	defer resp.Body.Close()
	sdkerr := errors.CheckError(resp, expectedRespCodes...)
	if sdkerr != nil {
		return make(http.Header), []byte{}, sdkerr
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return make(http.Header), []byte{}, errors.NewSDKError(err)
	}
	return resp.Header, body, nil
}

func (sdk clmSDK) withQueryParams(baseURL, endpoint string, pm PageMetadata) string {
	q := pm.query()
	if q == "" {
		return fmt.Sprintf("%s/%s", baseURL, endpoint)
	}
	return fmt.Sprintf("%s/%s?%s", baseURL, endpoint, q)
}

func (pm PageMetadata) query() string {
	q := url.Values{}
	if pm.Offset != 0 {
		q.Add("offset", strconv.FormatUint(pm.Offset, 10))
	}
	if pm.Limit != 0 {
		q.Add("limit", strconv.FormatUint(pm.Limit, 10))
	}
	if pm.State != "" {
		q.Add("state", pm.State)
	}
	if pm.Kind != "" {
		q.Add("kind", pm.Kind)
	}
	if pm.TargetSerial != "" {
		q.Add("target_serial", pm.TargetSerial)
	}
	if pm.Status != "" {
		q.Add("status", pm.Status)
	}
	if !pm.ExpiresBefore.IsZero() {
		q.Add("expires_before", pm.ExpiresBefore.UTC().Format(time.RFC3339))
	}
	if pm.Remediation {
		q.Add("remediation", "true")
	}
	if pm.Archived {
		q.Add("archived", "true")
	}

	return q.Encode()
}

func withQuery(reqURL string, q url.Values) string {
	if len(q) == 0 {
		return reqURL
	}
	return reqURL + "?" + q.Encode()
}
