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

package endpoint

import (
	"bytes"
	"log/slog"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func TestResolve_ExplicitPort(t *testing.T) {
	t.Setenv(PortEnv, "9999")

	ep, err := Resolve(discardLogger(), 4567)
	require.NoError(t, err)

	// Explicit beats the environment override.
	assert.Equal(t, 4567, ep.Port)
	assert.Equal(t, Loopback, ep.Host)
}

func TestResolve_EnvOverride(t *testing.T) {
	t.Setenv(PortEnv, "45001")

	ep, err := Resolve(discardLogger(), 0)
	require.NoError(t, err)

	// The override is used as-is, reachable or not.
	assert.Equal(t, 45001, ep.Port)
	assert.Equal(t, "127.0.0.1:45001", ep.Addr())
}

func TestResolve_InvalidOverrideFallsThrough(t *testing.T) {
	// Unparsable and out-of-range values alike are ignored in favor of an
	// ephemeral port; a negative override must never come back as the
	// endpoint port.
	for _, raw := range []string{"not-a-port", "-1", "0", "65536"} {
		t.Run(raw, func(t *testing.T) {
			t.Setenv(PortEnv, raw)

			var buf bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&buf, nil))

			ep, err := Resolve(logger, 0)
			require.NoError(t, err)

			assert.Greater(t, ep.Port, 0)
			assert.LessOrEqual(t, ep.Port, 65535)
			assert.Contains(t, buf.String(), "invalid port override")
		})
	}
}

func TestResolve_EphemeralPortIsFree(t *testing.T) {
	t.Setenv(PortEnv, "")

	ep, err := Resolve(discardLogger(), 0)
	require.NoError(t, err)
	require.Greater(t, ep.Port, 0)

	// The port was unbound at resolution time, so binding it now should
	// succeed. Best-effort: nothing reserves it across the gap.
	ln, err := net.Listen("tcp", ep.Addr())
	require.NoError(t, err)
	ln.Close()
}
