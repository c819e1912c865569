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

// Package endpoint resolves the loopback address and port the sidecar
// server binds to. The endpoint is resolved once per application run and is
// immutable afterwards.
package endpoint

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strconv"
)

// PortEnv is the environment variable that overrides the sidecar port.
const PortEnv = "GITDECK_PORT"

// Loopback is the address the sidecar binds to. It is only ever reached
// from the same machine.
const Loopback = "127.0.0.1"

// ErrNoFreePort is returned when the operating system cannot assign an
// ephemeral port. Startup cannot proceed without one.
var ErrNoFreePort = errors.New("no free port available")

// Endpoint is where the sidecar serves.
type Endpoint struct {
	Host string
	Port int
}

// Addr returns the host:port form used for dialing.
func (e Endpoint) Addr() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

func (e Endpoint) String() string { return e.Addr() }

// Resolve determines the sidecar endpoint. An explicit port (from a flag or
// config file) wins, then the PortEnv environment variable, and otherwise
// the operating system assigns a currently free ephemeral port. Explicit
// ports are used as-is even when something else is already bound to them:
// that is what lets a relaunch reuse an already-running sidecar.
//
// The ephemeral port is not reserved. There is a window between resolution
// and the sidecar's own bind during which another process could take it.
func Resolve(logger *slog.Logger, explicit int) (Endpoint, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if explicit > 0 {
		return Endpoint{Host: Loopback, Port: explicit}, nil
	}

	if raw := os.Getenv(PortEnv); raw != "" {
		port, err := strconv.Atoi(raw)
		if err == nil && port > 0 && port <= 65535 {
			return Endpoint{Host: Loopback, Port: port}, nil
		}
		// Unparsable or out-of-range overrides fall through to an ephemeral
		// port. Warn so a typo in the override doesn't silently land the
		// sidecar elsewhere.
		logger.Warn("ignoring invalid port override", "env", PortEnv, "value", raw)
	}

	ln, err := net.Listen("tcp", net.JoinHostPort(Loopback, "0"))
	if err != nil {
		return Endpoint{}, fmt.Errorf("%w: %v", ErrNoFreePort, err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	return Endpoint{Host: Loopback, Port: port}, nil
}
