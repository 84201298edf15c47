// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package operations executes lifecycle operations as durable, resumable
// state machines on a bounded worker pool.
package operations

import "time"

// Config holds the execution limits of the state machine and worker pool.
type Config struct {
	Workers     int `env:"WORKERS"      envDefault:"10"`
	QueueSize   int `env:"QUEUE_SIZE"   envDefault:"1024"`
	MaxAttempts int `env:"MAX_ATTEMPTS" envDefault:"5"`

	// MaxWait bounds how long an accepted request may stay unconfirmed.
	MaxWait       time.Duration `env:"MAX_WAIT"               envDefault:"10m"`
	RetryInitial  time.Duration `env:"RETRY_INITIAL_INTERVAL" envDefault:"1s"`
	RetryMax      time.Duration `env:"RETRY_MAX_INTERVAL"     envDefault:"1m"`
	PollInterval  time.Duration `env:"POLL_INTERVAL"          envDefault:"5s"`
	PollMax       time.Duration `env:"POLL_MAX_INTERVAL"      envDefault:"1m"`
	SweepInterval time.Duration `env:"SWEEP_INTERVAL"         envDefault:"1m"`
}

// DefaultConfig returns the production limits.
func DefaultConfig() Config {
	return Config{
		Workers:       10,
		QueueSize:     1024,
		MaxAttempts:   5,
		MaxWait:       10 * time.Minute,
		RetryInitial:  time.Second,
		RetryMax:      time.Minute,
		PollInterval:  5 * time.Second,
		PollMax:       time.Minute,
		SweepInterval: time.Minute,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.Workers <= 0 {
		c.Workers = def.Workers
	}
	if c.QueueSize <= 0 {
		c.QueueSize = def.QueueSize
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = def.MaxAttempts
	}
	if c.MaxWait <= 0 {
		c.MaxWait = def.MaxWait
	}
	if c.RetryInitial <= 0 {
		c.RetryInitial = def.RetryInitial
	}
	if c.RetryMax < c.RetryInitial {
		c.RetryMax = c.RetryInitial
	}
	if c.PollInterval <= 0 {
		c.PollInterval = def.PollInterval
	}
	if c.PollMax < c.PollInterval {
		c.PollMax = c.PollInterval
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = def.SweepInterval
	}
	return c
}
