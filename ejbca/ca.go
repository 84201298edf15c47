// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package ejbca

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"github.com/absmach/clm"
	"github.com/absmach/clm/pkg/errors"
)

const (
	latestCRLEndpoint = "getLatestCrl"
	createCRLEndpoint = "createcrl"
	chainEndpoint     = "certificate/download"
	statusEndpoint    = "status"
)

var (
	errUnknownCA       = errors.New("CA not available to the client")
	errCRLNotGenerated = errors.New("CA did not generate every CRL")
)

// statusResources are the REST resources whose status is reported.
var statusResources = []string{certEndpoint, caEndpoint}

func (a *agent) CRL(ctx context.Context, req clm.CRLRequest) (clm.CRL, error) {
	issuerDN, err := a.caDN(ctx, req.IssuerDN)
	if err != nil {
		return clm.CRL{}, err
	}

	query := url.Values{}
	if req.Delta {
		query.Set("deltaCrl", "true")
	}
	if req.PartitionIndex > 0 {
		query.Set("crlPartitionIndex", strconv.Itoa(req.PartitionIndex))
	}

	_, data, err := a.do(ctx, http.MethodGet, caPath(issuerDN, latestCRLEndpoint), query, nil, "")
	if err != nil {
		return clm.CRL{}, err
	}

	var cr crlResponse
	if err := json.Unmarshal(data, &cr); err != nil {
		return clm.CRL{}, errors.Wrap(errDecodeResponse, err)
	}
	if cr.CRL == "" {
		return clm.CRL{}, errors.Wrap(clm.ErrNotFound, errors.New(issuerDN))
	}

	raw := []byte(cr.CRL)
	if cr.ResponseFormat != "PEM" {
		der, err := base64.StdEncoding.DecodeString(cr.CRL)
		if err != nil {
			return clm.CRL{}, errors.Wrap(errDecodeResponse, err)
		}
		raw = der
	}
	crl, err := clm.ParseCRL(raw)
	if err != nil {
		return clm.CRL{}, errors.Wrap(errDecodeResponse, err)
	}
	return crl, nil
}

func (a *agent) CreateCRL(ctx context.Context, issuerDN string, delta bool) (clm.CRLGeneration, error) {
	issuerDN, err := a.caDN(ctx, issuerDN)
	if err != nil {
		return clm.CRLGeneration{}, err
	}

	query := url.Values{}
	if delta {
		query.Set("deltacrl", "true")
	}

	_, data, err := a.do(ctx, http.MethodPost, caPath(issuerDN, createCRLEndpoint), query, nil, "")
	if err != nil {
		return clm.CRLGeneration{}, err
	}

	var cr createCRLResponse
	if err := json.Unmarshal(data, &cr); err != nil {
		return clm.CRLGeneration{}, errors.Wrap(errDecodeResponse, err)
	}
	if !cr.AllSuccess {
		return clm.CRLGeneration{}, errors.Wrap(clm.ErrServiceUnavailable, errors.Wrap(errCRLNotGenerated, errors.New(issuerDN)))
	}

	return clm.CRLGeneration{
		IssuerDN:       or(cr.IssuerDN, issuerDN),
		CRLNumber:      cr.LatestCRLVersion,
		DeltaCRLNumber: cr.LatestDeltaCRLVersion,
	}, nil
}

func (a *agent) CACertificates(ctx context.Context, subjectDN string) ([]clm.Certificate, error) {
	subjectDN, err := a.caDN(ctx, subjectDN)
	if err != nil {
		return nil, err
	}

	_, data, err := a.do(ctx, http.MethodGet, caPath(subjectDN, chainEndpoint), nil, nil, "")
	if err != nil {
		return nil, err
	}

	chain, err := clm.ParseCertificates(data)
	if err != nil {
		return nil, errors.Wrap(errDecodeResponse, err)
	}
	return chain, nil
}

func (a *agent) Status(ctx context.Context) ([]clm.APIStatus, error) {
	statuses := make([]clm.APIStatus, 0, len(statusResources))
	for _, resource := range statusResources {
		_, data, err := a.do(ctx, http.MethodGet, resource+"/"+statusEndpoint, nil, nil, "")
		if err != nil {
			return nil, err
		}

		var sr statusResponse
		if err := json.Unmarshal(data, &sr); err != nil {
			return nil, errors.Wrap(errDecodeResponse, err)
		}
		statuses = append(statuses, clm.APIStatus{
			Resource: resource,
			Status:   sr.Status,
			Version:  sr.Version,
			Revision: sr.Revision,
		})
	}
	return statuses, nil
}

// caDN resolves an empty DN to the subject of the configured default CA.
func (a *agent) caDN(ctx context.Context, dn string) (string, error) {
	if dn != "" {
		return dn, nil
	}
	cas, err := a.CAInfo(ctx)
	if err != nil {
		return "", err
	}
	for _, ca := range cas {
		if ca.Name == a.cfg.CAName {
			return ca.SubjectDN, nil
		}
	}
	return "", errors.Wrap(clm.ErrNotFound, errors.Wrap(errUnknownCA, errors.New(a.cfg.CAName)))
}

func caPath(dn, action string) string {
	return caEndpoint + "/" + url.PathEscape(dn) + "/" + action
}
