// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package bbolt

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/absmach/clm"
	"github.com/absmach/clm/pkg/errors"
	"go.etcd.io/bbolt"
)

type certsRepo struct {
	db *bbolt.DB
}

var _ clm.CertificateRepository = (*certsRepo)(nil)

// NewCertificateRepository returns a certificate repository backed by db.
func NewCertificateRepository(db *bbolt.DB) clm.CertificateRepository {
	return &certsRepo{db: db}
}

func (repo *certsRepo) Save(_ context.Context, cert clm.Certificate) error {
	return repo.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(certsBucket)
		key := certKey(cert.IssuerDN, cert.SerialNumber)
		if b.Get(key) != nil {
			return errors.Wrap(clm.ErrConflict, errors.New(cert.SerialNumber))
		}
		data, err := json.Marshal(cert)
		if err != nil {
			return errors.Wrap(clm.ErrCreateEntity, err)
		}
		return b.Put(key, data)
	})
}

func (repo *certsRepo) Retrieve(_ context.Context, issuerDN, serialNumber string) (clm.Certificate, error) {
	var cert clm.Certificate
	err := repo.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(certsBucket).Get(certKey(issuerDN, serialNumber))
		if data == nil {
			return errors.Wrap(clm.ErrNotFound, errors.New(serialNumber))
		}
		return json.Unmarshal(data, &cert)
	})
	if err != nil {
		return clm.Certificate{}, err
	}
	return cert, nil
}

func (repo *certsRepo) RetrieveBySerial(_ context.Context, serialNumber string) ([]clm.Certificate, error) {
	certs, err := repo.scan(func(c clm.Certificate) bool {
		return c.SerialNumber == serialNumber
	})
	if err != nil {
		return nil, errors.Wrap(clm.ErrViewEntity, err)
	}
	return certs, nil
}

func (repo *certsRepo) Update(_ context.Context, cert clm.Certificate) error {
	return repo.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(certsBucket)
		key := certKey(cert.IssuerDN, cert.SerialNumber)
		if b.Get(key) == nil {
			return errors.Wrap(clm.ErrNotFound, errors.New(cert.SerialNumber))
		}
		data, err := json.Marshal(cert)
		if err != nil {
			return errors.Wrap(clm.ErrUpdateEntity, err)
		}
		return b.Put(key, data)
	})
}

func (repo *certsRepo) List(_ context.Context, pm clm.PageMetadata) (clm.CertificatePage, error) {
	certs, err := repo.scan(pm.Matches)
	if err != nil {
		return clm.CertificatePage{}, errors.Wrap(clm.ErrViewEntity, err)
	}
	sort.Slice(certs, func(i, j int) bool {
		if certs[i].CreatedAt.Equal(certs[j].CreatedAt) {
			return certs[i].SerialNumber < certs[j].SerialNumber
		}
		return certs[i].CreatedAt.After(certs[j].CreatedAt)
	})

	pm.Total = uint64(len(certs))
	return clm.CertificatePage{
		Certificates: paginate(certs, pm.Offset, pm.Limit),
		PageMetadata: pm,
	}, nil
}

func (repo *certsRepo) ListStale(_ context.Context, syncedBefore time.Time, limit uint64) ([]clm.Certificate, error) {
	certs, err := repo.scan(func(c clm.Certificate) bool {
		return !c.Archived() && c.Status != clm.StatusRevoked && c.LastSyncedAt.Before(syncedBefore)
	})
	if err != nil {
		return nil, errors.Wrap(clm.ErrViewEntity, err)
	}
	sort.Slice(certs, func(i, j int) bool {
		return certs[i].LastSyncedAt.Before(certs[j].LastSyncedAt)
	})

	return paginate(certs, 0, limit), nil
}

func (repo *certsRepo) scan(match func(clm.Certificate) bool) ([]clm.Certificate, error) {
	certs := []clm.Certificate{}
	err := repo.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(certsBucket).ForEach(func(_, v []byte) error {
			var c clm.Certificate
			if err := json.Unmarshal(v, &c); err != nil {
				return err
			}
			if match(c) {
				certs = append(certs, c)
			}
			return nil
		})
	})
	return certs, err
}

func certKey(issuerDN, serialNumber string) []byte {
	return []byte(clm.CertificateKey(issuerDN, serialNumber))
}
