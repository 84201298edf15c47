// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package http

import (
	"context"

	"github.com/absmach/clm"
	"github.com/go-kit/kit/endpoint"
)

func submitIntentEndpoint(svc clm.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (response any, err error) {
		req := request.(submitIntentReq)
		if err := req.validate(); err != nil {
			return submitIntentRes{}, err
		}

		id, err := svc.Submit(ctx, req.intent)
		if err != nil {
			return submitIntentRes{}, err
		}

		return submitIntentRes{OperationID: id}, nil
	}
}

func viewOperationEndpoint(svc clm.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (response any, err error) {
		req := request.(viewOperationReq)
		if err := req.validate(); err != nil {
			return operationRes{}, err
		}

		status, err := svc.GetOperationStatus(ctx, req.id)
		if err != nil {
			return operationRes{}, err
		}

		return operationRes{OperationStatus: status}, nil
	}
}

func cancelOperationEndpoint(svc clm.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (response any, err error) {
		req := request.(viewOperationReq)
		if err := req.validate(); err != nil {
			return cancelOperationRes{}, err
		}

		if err := svc.CancelOperation(ctx, req.id); err != nil {
			return cancelOperationRes{}, err
		}

		return cancelOperationRes{cancelled: true}, nil
	}
}

func listOperationsEndpoint(svc clm.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (response any, err error) {
		req := request.(listOperationsReq)
		if err := req.validate(); err != nil {
			return listOperationsRes{}, err
		}

		page, err := svc.ListOperations(ctx, req.pm)
		if err != nil {
			return listOperationsRes{}, err
		}

		ops := page.Operations
		if ops == nil {
			ops = []clm.OperationStatus{}
		}

		return listOperationsRes{
			Total:      page.Total,
			Offset:     page.Offset,
			Limit:      page.Limit,
			Operations: ops,
		}, nil
	}
}

func viewCertEndpoint(svc clm.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (response any, err error) {
		req := request.(viewCertReq)
		if err := req.validate(); err != nil {
			return viewCertRes{}, err
		}

		cert, err := svc.ViewCert(ctx, req.serial)
		if err != nil {
			return viewCertRes{}, err
		}

		return newViewCertRes(cert), nil
	}
}

func listCertsEndpoint(svc clm.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (response any, err error) {
		req := request.(listCertsReq)
		if err := req.validate(); err != nil {
			return listCertsRes{}, err
		}

		page, err := svc.ListCerts(ctx, req.pm)
		if err != nil {
			return listCertsRes{}, err
		}

		crts := []viewCertRes{}
		for _, c := range page.Certificates {
			crts = append(crts, newViewCertRes(c))
		}

		return listCertsRes{
			Total:        page.Total,
			Offset:       page.Offset,
			Limit:        page.Limit,
			Certificates: crts,
		}, nil
	}
}

func listCAsEndpoint(svc clm.Service) endpoint.Endpoint {
	return func(ctx context.Context, _ any) (response any, err error) {
		cas, err := svc.ListCAs(ctx)
		if err != nil {
			return listCAsRes{}, err
		}
		if cas == nil {
			cas = []clm.CAInfo{}
		}

		return listCAsRes{CAs: cas}, nil
	}
}

func viewCRLEndpoint(svc clm.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (response any, err error) {
		req := request.(viewCRLReq)
		if err := req.validate(); err != nil {
			return viewCRLRes{}, err
		}

		crl, err := svc.ViewCRL(ctx, req.req)
		if err != nil {
			return viewCRLRes{}, err
		}

		res := viewCRLRes{
			IssuerDN:     crl.IssuerDN,
			Number:       crl.Number,
			Delta:        crl.Delta,
			ThisUpdate:   crl.ThisUpdate,
			NextUpdate:   crl.NextUpdate,
			RevokedCount: crl.RevokedCount,
		}
		if !req.info {
			res.CRL = string(crl.CRL)
		}
		return res, nil
	}
}

func createCRLEndpoint(svc clm.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (response any, err error) {
		req := request.(createCRLReq)
		if err := req.validate(); err != nil {
			return createCRLRes{}, err
		}

		gen, err := svc.CreateCRL(ctx, req.IssuerDN, req.Delta)
		if err != nil {
			return createCRLRes{}, err
		}

		return createCRLRes{CRLGeneration: gen}, nil
	}
}

func caChainEndpoint(svc clm.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (response any, err error) {
		req := request.(caChainReq)
		if err := req.validate(); err != nil {
			return caChainRes{}, err
		}

		chain, err := svc.ViewCAChain(ctx, req.subjectDN)
		if err != nil {
			return caChainRes{}, err
		}
		if req.leaf && len(chain) > 1 {
			chain = chain[:1]
		}

		crts := make([]viewCertRes, 0, len(chain))
		for _, c := range chain {
			crts = append(crts, newViewCertRes(c))
		}
		return caChainRes{Certificates: crts}, nil
	}
}

func authorityStatusEndpoint(svc clm.Service) endpoint.Endpoint {
	return func(ctx context.Context, _ any) (response any, err error) {
		statuses, err := svc.AuthorityStatus(ctx)
		if err != nil {
			return authorityStatusRes{}, err
		}
		if statuses == nil {
			statuses = []clm.APIStatus{}
		}

		return authorityStatusRes{APIs: statuses}, nil
	}
}
