// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package clm

import (
	"os"
	"time"

	"github.com/absmach/clm/pkg/errors"
	"gopkg.in/yaml.v2"
)

const (
	DefaultProfile      = "webserver"
	defRenewalThreshold = 30 * 24 * time.Hour
	defRenewalInterval  = time.Hour
	defValidityDays     = 365
)

var (
	errInvalidPolicy  = errors.New("invalid renewal policy")
	errUnknownProfile = errors.New("unknown certificate profile")
)

// Profile is a named issuance profile.
type Profile struct {
	MaxValidityDays    int    `yaml:"max_validity_days"`
	KeyAlgorithm       string `yaml:"key_algorithm"`
	KeyBits            int    `yaml:"key_bits"`
	CertificateProfile string `yaml:"certificate_profile"`
	EndEntityProfile   string `yaml:"end_entity_profile"`
	CAName             string `yaml:"ca_name"`
}

// RenewalPolicy controls when and how certificates are renewed.
type RenewalPolicy struct {
	// Threshold is how long before expiry a certificate is renewed.
	Threshold time.Duration
	// Interval is the scheduler tick period.
	Interval     time.Duration
	ValidityDays int
	Profile      string
	// ReuseKey renews with the old certificate's key when it is held locally.
	ReuseKey bool
	// AutoRemediate revokes superseded certificates left active by a partial failure.
	AutoRemediate bool
}

type Policy struct {
	Renewal  RenewalPolicy
	Profiles map[string]Profile
}

type renewalConfig struct {
	Threshold     string `yaml:"threshold"`
	Interval      string `yaml:"interval"`
	ValidityDays  int    `yaml:"validity_days"`
	Profile       string `yaml:"profile"`
	ReuseKey      bool   `yaml:"reuse_key"`
	AutoRemediate bool   `yaml:"auto_remediate"`
}

type policyConfig struct {
	Renewal  renewalConfig      `yaml:"renewal"`
	Profiles map[string]Profile `yaml:"profiles"`
}

// DefaultPolicy returns the built-in policy.
func DefaultPolicy() Policy {
	return Policy{
		Renewal: RenewalPolicy{
			Threshold:    defRenewalThreshold,
			Interval:     defRenewalInterval,
			ValidityDays: defValidityDays,
			Profile:      DefaultProfile,
		},
		Profiles: map[string]Profile{
			DefaultProfile: {
				MaxValidityDays:    825,
				KeyAlgorithm:       KeyRSA,
				KeyBits:            2048,
				CertificateProfile: "SERVER",
				EndEntityProfile:   "EMPTY",
				CAName:             "ManagementCA",
			},
			"client": {
				MaxValidityDays:    365,
				KeyAlgorithm:       KeyECDSA,
				KeyBits:            256,
				CertificateProfile: "ENDUSER",
				EndEntityProfile:   "EMPTY",
				CAName:             "ManagementCA",
			},
		},
	}
}

// LoadPolicy reads a YAML policy file. Unset values keep their defaults.
func LoadPolicy(filename string) (Policy, error) {
	file, err := os.Open(filename)
	if err != nil {
		return Policy{}, err
	}
	defer file.Close()

	var cfg policyConfig
	if err := yaml.NewDecoder(file).Decode(&cfg); err != nil {
		return Policy{}, errors.Wrap(errInvalidPolicy, err)
	}

	p := DefaultPolicy()
	if cfg.Renewal.Threshold != "" {
		if p.Renewal.Threshold, err = time.ParseDuration(cfg.Renewal.Threshold); err != nil {
			return Policy{}, errors.Wrap(errInvalidPolicy, err)
		}
	}
	if cfg.Renewal.Interval != "" {
		if p.Renewal.Interval, err = time.ParseDuration(cfg.Renewal.Interval); err != nil {
			return Policy{}, errors.Wrap(errInvalidPolicy, err)
		}
	}
	if cfg.Renewal.ValidityDays != 0 {
		p.Renewal.ValidityDays = cfg.Renewal.ValidityDays
	}
	if cfg.Renewal.Profile != "" {
		p.Renewal.Profile = cfg.Renewal.Profile
	}
	p.Renewal.ReuseKey = cfg.Renewal.ReuseKey
	p.Renewal.AutoRemediate = cfg.Renewal.AutoRemediate
	for name, prof := range cfg.Profiles {
		p.Profiles[name] = prof
	}

	return p, p.Validate()
}

// Validate checks the policy for consistency.
func (p Policy) Validate() error {
	if p.Renewal.Threshold <= 0 || p.Renewal.Interval <= 0 || p.Renewal.ValidityDays <= 0 {
		return errInvalidPolicy
	}
	prof, ok := p.Profiles[p.Renewal.Profile]
	if !ok {
		return errors.Wrap(errInvalidPolicy, errors.Wrap(errUnknownProfile, errors.New(p.Renewal.Profile)))
	}
	if prof.MaxValidityDays > 0 && p.Renewal.ValidityDays > prof.MaxValidityDays {
		return errors.Wrap(errInvalidPolicy, errValidityTooLong)
	}
	return nil
}

// Profile returns the named profile.
func (p Policy) Profile(name string) (Profile, error) {
	prof, ok := p.Profiles[name]
	if !ok {
		return Profile{}, errors.Wrap(errUnknownProfile, errors.New(name))
	}
	return prof, nil
}
