// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package clm

import (
	"crypto/x509/pkix"
	"regexp"
	"strings"

	"github.com/absmach/clm/pkg/errors"
	"github.com/mitchellh/mapstructure"
)

var (
	errUnknownKind     = errors.New("unknown intent kind")
	errMissingSubject  = errors.New("missing subject")
	errMissingCN       = errors.New("subject has no common name")
	errMalformedDN     = errors.New("malformed distinguished name")
	errInvalidValidity = errors.New("validity must be a positive number of days")
	errValidityTooLong = errors.New("validity exceeds profile maximum")
	errInvalidDNSName  = errors.New("invalid DNS name")
	errMissingTarget   = errors.New("missing target serial number")
	errUnexpectedField = errors.New("field not allowed for intent kind")
	errDecodeIntent    = errors.New("failed to decode intent")

	dnsName = regexp.MustCompile(`^(\*\.)?([a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?\.)*[a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?$`)
)

// Intent is a structured lifecycle request.
type Intent struct {
	Kind               OperationKind `json:"kind"                          mapstructure:"kind"`
	Subject            string        `json:"subject,omitempty"             mapstructure:"subject"`
	ValidityDays       int           `json:"validity_days,omitempty"       mapstructure:"validity_days"`
	CertificateProfile string        `json:"certificate_profile,omitempty" mapstructure:"certificate_profile"`
	DNSNames           []string      `json:"dns_names,omitempty"           mapstructure:"dns_names"`
	TargetSerial       string        `json:"target_serial,omitempty"       mapstructure:"target_serial"`
	// TargetIssuer selects the target when its serial number is held by
	// more than one issuer.
	TargetIssuer     string `json:"target_issuer,omitempty"     mapstructure:"target_issuer"`
	RevocationReason string `json:"revocation_reason,omitempty" mapstructure:"revocation_reason"`
	// IdempotencyToken lets callers resubmit without creating a second operation.
	IdempotencyToken string `json:"idempotency_token,omitempty" mapstructure:"idempotency_token"`
}

// DecodeIntent converts loosely typed tool-call arguments into an intent.
// Field names are accepted in camelCase or snake_case. Numbers given as
// strings and a single DNS name given as a string are accepted.
func DecodeIntent(args map[string]any) (Intent, error) {
	var intent Intent
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &intent,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		TagName:          "mapstructure",
		MatchName: func(mapKey, fieldName string) bool {
			return foldFieldName(mapKey) == foldFieldName(fieldName)
		},
	})
	if err != nil {
		return Intent{}, errors.Wrap(errDecodeIntent, err)
	}
	if err := dec.Decode(args); err != nil {
		return Intent{}, errors.Wrap(ErrValidation, errors.Wrap(errDecodeIntent, err))
	}
	intent.Kind = OperationKind(strings.ToLower(string(intent.Kind)))

	return intent, nil
}

// foldFieldName maps validityDays, validity_days and validity-days to one form.
func foldFieldName(name string) string {
	return strings.ToLower(strings.NewReplacer("_", "", "-", "").Replace(name))
}

// Validate checks the intent against the policy. It does not consult the
// certificate store.
func (i Intent) Validate(p Policy) error {
	switch i.Kind {
	case KindIssue:
		return i.validateIssue(p)
	case KindRenew:
		if i.TargetSerial == "" {
			return errMissingTarget
		}
		if i.RevocationReason != "" {
			return errors.Wrap(errUnexpectedField, errors.New("revocation_reason"))
		}
		if i.ValidityDays < 0 {
			return errInvalidValidity
		}
		if i.CertificateProfile != "" {
			prof, err := p.Profile(i.CertificateProfile)
			if err != nil {
				return err
			}
			if prof.MaxValidityDays > 0 && i.ValidityDays > prof.MaxValidityDays {
				return errValidityTooLong
			}
		}
		return nil
	case KindRevoke:
		if i.TargetSerial == "" {
			return errMissingTarget
		}
		if i.Subject != "" || i.ValidityDays != 0 || len(i.DNSNames) > 0 {
			return errUnexpectedField
		}
		_, err := ParseRevocationReason(i.RevocationReason)
		return err
	default:
		return errors.Wrap(errUnknownKind, errors.New(string(i.Kind)))
	}
}

func (i Intent) validateIssue(p Policy) error {
	if i.Subject == "" {
		return errMissingSubject
	}
	if i.TargetSerial != "" || i.TargetIssuer != "" {
		return errors.Wrap(errUnexpectedField, errors.New("target_serial"))
	}
	name, err := ParseDN(i.Subject)
	if err != nil {
		return err
	}
	if name.CommonName == "" {
		return errMissingCN
	}
	if i.ValidityDays <= 0 {
		return errInvalidValidity
	}
	profile := i.CertificateProfile
	if profile == "" {
		profile = p.Renewal.Profile
	}
	prof, err := p.Profile(profile)
	if err != nil {
		return err
	}
	if prof.MaxValidityDays > 0 && i.ValidityDays > prof.MaxValidityDays {
		return errValidityTooLong
	}
	for _, n := range i.DNSNames {
		if len(n) > 253 || !dnsName.MatchString(n) {
			return errors.Wrap(errInvalidDNSName, errors.New(n))
		}
	}
	return nil
}

// ParseDN parses a comma separated distinguished name such as
// "CN=api.example.com,O=Example,C=US". Commas inside values are escaped with a backslash.
func ParseDN(dn string) (pkix.Name, error) {
	var name pkix.Name
	for _, rdn := range splitDN(dn) {
		k, v, ok := strings.Cut(rdn, "=")
		k, v = strings.TrimSpace(k), strings.TrimSpace(v)
		if !ok || k == "" || v == "" {
			return pkix.Name{}, errors.Wrap(errMalformedDN, errors.New(dn))
		}
		switch strings.ToUpper(k) {
		case "CN":
			name.CommonName = v
		case "O":
			name.Organization = append(name.Organization, v)
		case "OU":
			name.OrganizationalUnit = append(name.OrganizationalUnit, v)
		case "C":
			name.Country = append(name.Country, v)
		case "ST":
			name.Province = append(name.Province, v)
		case "L":
			name.Locality = append(name.Locality, v)
		case "STREET":
			name.StreetAddress = append(name.StreetAddress, v)
		case "POSTALCODE":
			name.PostalCode = append(name.PostalCode, v)
		case "SERIALNUMBER":
			name.SerialNumber = v
		default:
			return pkix.Name{}, errors.Wrap(errMalformedDN, errors.New("unsupported attribute "+k))
		}
	}
	return name, nil
}

func splitDN(dn string) []string {
	var (
		parts   []string
		current strings.Builder
		escaped bool
	)
	for _, r := range dn {
		switch {
		case escaped:
			current.WriteRune(r)
			escaped = false
		case r == '\\':
			escaped = true
		case r == ',':
			parts = append(parts, current.String())
			current.Reset()
		default:
			current.WriteRune(r)
		}
	}
	if s := current.String(); strings.TrimSpace(s) != "" || len(parts) > 0 {
		parts = append(parts, s)
	}
	return parts
}
