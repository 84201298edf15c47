// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package uuid

import (
	"fmt"
	"sync"
)

// Prefix is the common part of every identifier returned by the mock provider.
const Prefix = "123e4567-e89b-12d3-a456-"

var _ IDProvider = (*uuidProviderMock)(nil)

type uuidProviderMock struct {
	mu      sync.Mutex
	startAt int
}

// NewMock returns a provider of sequential, predictable identifiers.
func NewMock() IDProvider {
	return &uuidProviderMock{}
}

func (up *uuidProviderMock) ID() (string, error) {
	up.mu.Lock()
	defer up.mu.Unlock()

	up.startAt++
	return fmt.Sprintf("%s%012d", Prefix, up.startAt), nil
}
