// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package http exposes the intent dispatcher over HTTP.
package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/absmach/clm"
	"github.com/absmach/clm/internal/api"
	"github.com/absmach/clm/pkg/apiutil"
	"github.com/absmach/clm/pkg/errors"
	"github.com/absmach/supermq"
	"github.com/go-chi/chi/v5"
	kithttp "github.com/go-kit/kit/transport/http"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	offsetKey       = "offset"
	limitKey        = "limit"
	stateKey        = "state"
	kindKey         = "kind"
	serialKey       = "target_serial"
	statusKey       = "status"
	expiresKey      = "expires_before"
	remediationKey  = "remediation"
	archivedKey     = "archived"
	issuerKey       = "issuer_dn"
	subjectKey      = "subject_dn"
	deltaKey        = "delta"
	partitionKey    = "partition"
	infoKey         = "info"
	leafKey         = "leaf"
	idempotencyHdr  = "Idempotency-Key"
	defOffset       = 0
	defLimit        = 10
	serviceName     = "clm"
	maxIntentLength = 1 << 16
)

// MakeHandler returns a HTTP handler for API endpoints.
func MakeHandler(svc clm.Service, logger *slog.Logger, instanceID string) http.Handler {
	opts := []kithttp.ServerOption{
		kithttp.ServerErrorEncoder(apiutil.LoggingErrorEncoder(logger, api.EncodeError)),
	}

	r := chi.NewRouter()

	r.Post("/intents", otelhttp.NewHandler(kithttp.NewServer(
		submitIntentEndpoint(svc),
		decodeSubmitIntent,
		api.EncodeResponse,
		opts...,
	), "submit_intent").ServeHTTP)

	r.Route("/operations", func(r chi.Router) {
		r.Get("/", otelhttp.NewHandler(kithttp.NewServer(
			listOperationsEndpoint(svc),
			decodeListOperations,
			api.EncodeResponse,
			opts...,
		), "list_operations").ServeHTTP)

		r.Get("/{id}", otelhttp.NewHandler(kithttp.NewServer(
			viewOperationEndpoint(svc),
			decodeViewOperation,
			api.EncodeResponse,
			opts...,
		), "view_operation").ServeHTTP)

		r.Patch("/{id}/cancel", otelhttp.NewHandler(kithttp.NewServer(
			cancelOperationEndpoint(svc),
			decodeViewOperation,
			api.EncodeResponse,
			opts...,
		), "cancel_operation").ServeHTTP)
	})

	r.Route("/certs", func(r chi.Router) {
		r.Get("/", otelhttp.NewHandler(kithttp.NewServer(
			listCertsEndpoint(svc),
			decodeListCerts,
			api.EncodeResponse,
			opts...,
		), "list_certs").ServeHTTP)

		r.Get("/{serial}", otelhttp.NewHandler(kithttp.NewServer(
			viewCertEndpoint(svc),
			decodeViewCert,
			api.EncodeResponse,
			opts...,
		), "view_cert").ServeHTTP)
	})

	r.Get("/cas", otelhttp.NewHandler(kithttp.NewServer(
		listCAsEndpoint(svc),
		kithttp.NopRequestDecoder,
		api.EncodeResponse,
		opts...,
	), "list_cas").ServeHTTP)

	r.Get("/cas/chain", otelhttp.NewHandler(kithttp.NewServer(
		caChainEndpoint(svc),
		decodeCAChain,
		api.EncodeResponse,
		opts...,
	), "view_ca_chain").ServeHTTP)

	r.Route("/crls", func(r chi.Router) {
		r.Get("/", otelhttp.NewHandler(kithttp.NewServer(
			viewCRLEndpoint(svc),
			decodeViewCRL,
			api.EncodeResponse,
			opts...,
		), "view_crl").ServeHTTP)

		r.Post("/", otelhttp.NewHandler(kithttp.NewServer(
			createCRLEndpoint(svc),
			decodeCreateCRL,
			api.EncodeResponse,
			opts...,
		), "create_crl").ServeHTTP)
	})

	r.Get("/status", otelhttp.NewHandler(kithttp.NewServer(
		authorityStatusEndpoint(svc),
		kithttp.NopRequestDecoder,
		api.EncodeResponse,
		opts...,
	), "authority_status").ServeHTTP)

	r.Get("/health", supermq.Health(serviceName, instanceID))
	r.Handle("/metrics", promhttp.Handler())

	return r
}

// decodeSubmitIntent accepts the loosely typed arguments a tool call
// produces, so numbers sent as strings are tolerated.
func decodeSubmitIntent(_ context.Context, r *http.Request) (any, error) {
	if !strings.Contains(r.Header.Get("Content-Type"), api.ContentType) {
		return nil, apiutil.ErrUnsupportedContentType
	}

	var args map[string]any
	if err := json.NewDecoder(io.LimitReader(r.Body, maxIntentLength)).Decode(&args); err != nil {
		return nil, errors.Wrap(clm.ErrMalformedEntity, err)
	}

	intent, err := clm.DecodeIntent(args)
	if err != nil {
		return nil, err
	}
	if intent.IdempotencyToken == "" {
		intent.IdempotencyToken = r.Header.Get(idempotencyHdr)
	}

	return submitIntentReq{intent: intent}, nil
}

func decodeViewOperation(_ context.Context, r *http.Request) (any, error) {
	return viewOperationReq{id: chi.URLParam(r, "id")}, nil
}

func decodeListOperations(_ context.Context, r *http.Request) (any, error) {
	o, err := apiutil.ReadUintQuery(r, offsetKey, defOffset)
	if err != nil {
		return nil, err
	}

	l, err := apiutil.ReadUintQuery(r, limitKey, defLimit)
	if err != nil {
		return nil, err
	}

	state, err := apiutil.ReadStringQuery(r, stateKey, "")
	if err != nil {
		return nil, err
	}

	kind, err := apiutil.ReadStringQuery(r, kindKey, "")
	if err != nil {
		return nil, err
	}

	serial, err := apiutil.ReadStringQuery(r, serialKey, "")
	if err != nil {
		return nil, err
	}
	if serial != "" {
		serial = clm.NormalizeSerialNumber(serial)
	}

	req := listOperationsReq{
		pm: clm.OperationPageMetadata{
			Offset:       o,
			Limit:        l,
			State:        clm.OperationState(state),
			Kind:         clm.OperationKind(strings.ToLower(kind)),
			TargetSerial: serial,
		},
	}
	return req, nil
}

func decodeViewCert(_ context.Context, r *http.Request) (any, error) {
	return viewCertReq{serial: chi.URLParam(r, "serial")}, nil
}

func decodeListCerts(_ context.Context, r *http.Request) (any, error) {
	o, err := apiutil.ReadUintQuery(r, offsetKey, defOffset)
	if err != nil {
		return nil, err
	}

	l, err := apiutil.ReadUintQuery(r, limitKey, defLimit)
	if err != nil {
		return nil, err
	}

	status, err := apiutil.ReadStringQuery(r, statusKey, "")
	if err != nil {
		return nil, err
	}

	expires, err := apiutil.ReadTimeQuery(r, expiresKey, time.Time{})
	if err != nil {
		return nil, err
	}

	remediation, err := apiutil.ReadBoolQuery(r, remediationKey, false)
	if err != nil {
		return nil, err
	}

	archived, err := apiutil.ReadBoolQuery(r, archivedKey, false)
	if err != nil {
		return nil, err
	}

	req := listCertsReq{
		pm: clm.PageMetadata{
			Offset:          o,
			Limit:           l,
			Status:          clm.Status(status),
			ExpiresBefore:   expires,
			Remediation:     remediation,
			IncludeArchived: archived,
		},
	}
	return req, nil
}

func decodeViewCRL(_ context.Context, r *http.Request) (any, error) {
	issuer, err := apiutil.ReadStringQuery(r, issuerKey, "")
	if err != nil {
		return nil, err
	}

	delta, err := apiutil.ReadBoolQuery(r, deltaKey, false)
	if err != nil {
		return nil, err
	}

	partition, err := apiutil.ReadUintQuery(r, partitionKey, 0)
	if err != nil {
		return nil, err
	}

	info, err := apiutil.ReadBoolQuery(r, infoKey, false)
	if err != nil {
		return nil, err
	}

	req := viewCRLReq{
		req: clm.CRLRequest{
			IssuerDN:       issuer,
			Delta:          delta,
			PartitionIndex: int(partition),
		},
		info: info,
	}
	return req, nil
}

func decodeCreateCRL(_ context.Context, r *http.Request) (any, error) {
	req := createCRLReq{}
	if r.ContentLength == 0 {
		return req, nil
	}
	if !strings.Contains(r.Header.Get("Content-Type"), api.ContentType) {
		return nil, apiutil.ErrUnsupportedContentType
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, maxIntentLength)).Decode(&req); err != nil {
		return nil, errors.Wrap(clm.ErrMalformedEntity, err)
	}
	return req, nil
}

func decodeCAChain(_ context.Context, r *http.Request) (any, error) {
	subject, err := apiutil.ReadStringQuery(r, subjectKey, "")
	if err != nil {
		return nil, err
	}

	leaf, err := apiutil.ReadBoolQuery(r, leafKey, false)
	if err != nil {
		return nil, err
	}

	return caChainReq{subjectDN: subject, leaf: leaf}, nil
}
