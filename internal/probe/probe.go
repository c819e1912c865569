// Copyright 2025 The gitdeck Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package probe checks whether the sidecar endpoint accepts connections.
package probe

import (
	"context"
	"net"
	"time"

	"github.com/gitdeck/gitdeck/internal/endpoint"
)

// DefaultTimeout bounds a single connection attempt.
const DefaultTimeout = 2 * time.Second

// Prober reports whether a sidecar endpoint accepts TCP connections.
type Prober struct {
	timeout time.Duration
}

// New creates a prober with the default dial timeout.
func New() *Prober {
	return &Prober{timeout: DefaultTimeout}
}

// WithTimeout sets a custom dial timeout.
func (p *Prober) WithTimeout(d time.Duration) *Prober {
	p.timeout = d
	return p
}

// Reachable performs a single connection attempt against the endpoint and
// closes the connection immediately regardless of outcome. It is a liveness
// probe, not a session; retry policy belongs to the caller.
func (p *Prober) Reachable(ctx context.Context, ep endpoint.Endpoint) bool {
	d := net.Dialer{Timeout: p.timeout}
	conn, err := d.DialContext(ctx, "tcp", ep.Addr())
	if err != nil {
		return false
	}
	conn.Close()
	return true
}
