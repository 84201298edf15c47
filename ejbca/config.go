// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package ejbca

import "time"

// Config holds the EJBCA REST client settings.
type Config struct {
	URL      string        `env:"URL"       envDefault:"https://localhost:8443"`
	CertFile string        `env:"CERT_FILE" envDefault:""`
	KeyFile  string        `env:"KEY_FILE"  envDefault:""`
	CAFile   string        `env:"CA_FILE"   envDefault:""`
	Timeout  time.Duration `env:"TIMEOUT"   envDefault:"30s"`
	Retries  int           `env:"RETRIES"   envDefault:"3"`
	MaxConns int           `env:"MAX_CONNS" envDefault:"50"`
	// RetryWaitMin and RetryWaitMax bound the jittered backoff between retries.
	RetryWaitMin time.Duration `env:"RETRY_WAIT_MIN" envDefault:"500ms"`
	RetryWaitMax time.Duration `env:"RETRY_WAIT_MAX" envDefault:"10s"`
	// CertificateProfile, EndEntityProfile and CAName are used when an
	// issue request does not name them.
	CertificateProfile string `env:"CERTIFICATE_PROFILE" envDefault:"ENDUSER"`
	EndEntityProfile   string `env:"END_ENTITY_PROFILE"  envDefault:"EMPTY"`
	CAName             string `env:"CA_NAME"             envDefault:"ManagementCA"`
	// PageSize is the number of results requested per search page.
	PageSize int  `env:"PAGE_SIZE" envDefault:"100"`
	Debug    bool `env:"DEBUG"     envDefault:"false"`
}

const (
	defTimeout      = 30 * time.Second
	defRetries      = 3
	defMaxConns     = 50
	defRetryWaitMin = 500 * time.Millisecond
	defRetryWaitMax = 10 * time.Second
	defPageSize     = 100
)

// withDefaults fills unset fields so a Config built in code behaves like one
// read from the environment. A negative Retries disables retries.
func (c Config) withDefaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = defTimeout
	}
	switch {
	case c.Retries == 0:
		c.Retries = defRetries
	case c.Retries < 0:
		c.Retries = 0
	}
	if c.MaxConns <= 0 {
		c.MaxConns = defMaxConns
	}
	if c.RetryWaitMin <= 0 {
		c.RetryWaitMin = defRetryWaitMin
	}
	if c.RetryWaitMax < c.RetryWaitMin {
		c.RetryWaitMax = max(defRetryWaitMax, c.RetryWaitMin)
	}
	if c.PageSize <= 0 {
		c.PageSize = defPageSize
	}
	return c
}
