// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package postgres

import (
	stderrors "errors"

	"github.com/absmach/clm"
	"github.com/absmach/clm/pkg/errors"
	"github.com/jackc/pgx/v5/pgconn"
)

// Postgres error codes:
// https://www.postgresql.org/docs/current/errcodes-appendix.html
const (
	errDuplicate      = "23505" // unique_violation
	errTruncation     = "22001" // string_data_right_truncation
	errFK             = "23503" // foreign_key_violation
	errInvalid        = "22P02" // invalid_text_representation
	errUntranslatable = "22P05" // untranslatable_character
	errInvalidChar    = "22021" // character_not_in_repertoire
)

func handleError(wrapper, err error) error {
	var pqErr *pgconn.PgError
	if stderrors.As(err, &pqErr) {
		switch pqErr.Code {
		case errDuplicate:
			return errors.Wrap(clm.ErrConflict, err)
		case errInvalid, errInvalidChar, errTruncation, errUntranslatable:
			return errors.Wrap(clm.ErrMalformedEntity, err)
		case errFK:
			return errors.Wrap(clm.ErrCreateEntity, err)
		}
	}

	return errors.Wrap(wrapper, err)
}
