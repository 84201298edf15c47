// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package http

import (
	"github.com/absmach/clm"
	"github.com/absmach/clm/pkg/apiutil"
	"github.com/absmach/clm/pkg/errors"
)

const maxLimitSize = 100

var errMissingKind = errors.New("missing intent kind")

type submitIntentReq struct {
	intent clm.Intent
}

func (req submitIntentReq) validate() error {
	if req.intent.Kind == "" {
		return errors.Wrap(clm.ErrValidation, errMissingKind)
	}
	return nil
}

type viewOperationReq struct {
	id string
}

func (req viewOperationReq) validate() error {
	if req.id == "" {
		return apiutil.ErrMissingID
	}
	return nil
}

type listOperationsReq struct {
	pm clm.OperationPageMetadata
}

func (req listOperationsReq) validate() error {
	if req.pm.Limit == 0 || req.pm.Limit > maxLimitSize {
		return apiutil.ErrLimitSize
	}
	switch req.pm.State {
	case "", clm.StateCreated, clm.StateSubmitted, clm.StateAwaitingConfirmation,
		clm.StateCompleted, clm.StateFailed, clm.StateCompensating, clm.StateCompensated:
	default:
		return apiutil.ErrInvalidState
	}
	switch req.pm.Kind {
	case "", clm.KindIssue, clm.KindRenew, clm.KindRevoke:
	default:
		return apiutil.ErrInvalidQueryParams
	}
	return nil
}

type viewCertReq struct {
	serial string
}

func (req viewCertReq) validate() error {
	if req.serial == "" {
		return apiutil.ErrMissingSerial
	}
	return nil
}

type listCertsReq struct {
	pm clm.PageMetadata
}

func (req listCertsReq) validate() error {
	if req.pm.Limit == 0 || req.pm.Limit > maxLimitSize {
		return apiutil.ErrLimitSize
	}
	if req.pm.Status != "" && !req.pm.Status.Valid() {
		return apiutil.ErrInvalidState
	}
	return nil
}

type viewCRLReq struct {
	req clm.CRLRequest
	// info drops the encoded list from the response.
	info bool
}

func (req viewCRLReq) validate() error {
	if req.req.PartitionIndex < 0 {
		return apiutil.ErrInvalidQueryParams
	}
	return nil
}

type createCRLReq struct {
	IssuerDN string `json:"issuer_dn"`
	Delta    bool   `json:"delta"`
}

func (req createCRLReq) validate() error {
	return nil
}

type caChainReq struct {
	subjectDN string
	// leaf keeps only the CA certificate.
	leaf bool
}

func (req caChainReq) validate() error {
	return nil
}
