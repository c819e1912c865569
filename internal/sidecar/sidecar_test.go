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

//go:build !windows

package sidecar

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitdeck/gitdeck/internal/endpoint"
	"github.com/gitdeck/gitdeck/internal/logbuf"
)

// skipOnSpawnError skips the test when the environment blocks fork/exec
// (sandboxed test runners, some containers).
func skipOnSpawnError(t *testing.T, err error) {
	t.Helper()
	if err != nil && strings.Contains(err.Error(), "operation not permitted") {
		t.Skipf("Skipping: spawn not permitted in this environment: %v", err)
	}
}

// syncBuffer is a bytes.Buffer safe for the capture goroutines to write
// while the test reads.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeServer writes a script that stands in for the sidecar binary. It
// prints its arguments and a stderr line, then sleeps so Terminate has a
// live process to kill.
func fakeServer(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gitdeck-server")
	script := `#!/bin/sh
echo "server args: $@"
echo "warming up" >&2
sleep 30
`
	require.NoError(t, os.WriteFile(path, []byte(script), 0700))
	return path
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("condition not met within deadline")
}

func TestSupervisor_SpawnCapturesOutput(t *testing.T) {
	if os.Getenv("SKIP_SPAWN_TESTS") != "" {
		t.Skip("Skipping spawn tests (SKIP_SPAWN_TESTS is set)")
	}
	t.Setenv(ShellEnv, "/bin/sh")

	buf := logbuf.New()
	var mirrorOut, mirrorErr syncBuffer
	sup := New(buf, discardLogger()).
		WithServerBin(fakeServer(t)).
		WithMirror(&mirrorOut, &mirrorErr)

	ep := endpoint.Endpoint{Host: endpoint.Loopback, Port: 4500}
	handle, err := sup.Spawn(ep, "/tmp/repo")
	skipOnSpawnError(t, err)
	require.NoError(t, err)
	defer handle.Terminate()

	assert.Greater(t, handle.PID(), 0)
	assert.True(t, handle.Live())

	waitFor(t, func() bool {
		return strings.Contains(buf.Snapshot(), "server args") &&
			strings.Contains(buf.Snapshot(), "warming up")
	})

	snap := buf.Snapshot()
	assert.Contains(t, snap, "[stdout] server args: --port 4500 --repo /tmp/repo")
	assert.Contains(t, snap, "[stderr] warming up")

	// Lines are mirrored to the host's streams for live visibility.
	waitFor(t, func() bool { return strings.Contains(mirrorOut.String(), "server args") })
	waitFor(t, func() bool { return strings.Contains(mirrorErr.String(), "warming up") })
}

func TestSupervisor_SpawnMissingBinary(t *testing.T) {
	// A nonexistent server binary still spawns the wrapping shell; the
	// shell then fails and exits. Direct spawn failure needs a bad shell.
	t.Setenv(ShellEnv, filepath.Join(t.TempDir(), "no-such-shell"))

	sup := New(logbuf.New(), discardLogger()).
		WithServerBin("/no/such/server").
		WithMirror(io.Discard, io.Discard)

	_, err := sup.Spawn(endpoint.Endpoint{Host: endpoint.Loopback, Port: 1}, "/tmp/repo")
	skipOnSpawnError(t, err)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSpawnFailed)
}

func TestHandle_TerminateIdempotent(t *testing.T) {
	if os.Getenv("SKIP_SPAWN_TESTS") != "" {
		t.Skip("Skipping spawn tests (SKIP_SPAWN_TESTS is set)")
	}
	t.Setenv(ShellEnv, "/bin/sh")

	sup := New(logbuf.New(), discardLogger()).
		WithServerBin(fakeServer(t)).
		WithMirror(io.Discard, io.Discard)

	handle, err := sup.Spawn(endpoint.Endpoint{Host: endpoint.Loopback, Port: 4501}, "/tmp/repo")
	skipOnSpawnError(t, err)
	require.NoError(t, err)

	require.NoError(t, handle.Terminate())
	assert.False(t, handle.Live())

	// Second call is a no-op, not an error.
	assert.NoError(t, handle.Terminate())
	assert.False(t, handle.Live())
}

func TestSupervisor_ServerBinResolution(t *testing.T) {
	t.Run("explicit override wins", func(t *testing.T) {
		t.Setenv(ServerBinEnv, "/from/env")
		sup := New(logbuf.New(), discardLogger()).WithServerBin("/explicit")

		bin, err := sup.serverBin()
		require.NoError(t, err)
		assert.Equal(t, "/explicit", bin)
	})

	t.Run("environment override", func(t *testing.T) {
		t.Setenv(ServerBinEnv, "/from/env")
		sup := New(logbuf.New(), discardLogger())

		bin, err := sup.serverBin()
		require.NoError(t, err)
		assert.Equal(t, "/from/env", bin)
	})

	t.Run("next to host executable", func(t *testing.T) {
		t.Setenv(ServerBinEnv, "")
		sup := New(logbuf.New(), discardLogger())

		bin, err := sup.serverBin()
		require.NoError(t, err)
		assert.Equal(t, ServerBinName, filepath.Base(bin))
	})
}
