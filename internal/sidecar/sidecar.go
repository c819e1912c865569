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

// Package sidecar spawns the companion git server process and captures its
// output. On Windows the server binary is invoked directly; everywhere else
// it runs through the user's login shell so PATH and environment
// customizations from the shell profile apply.
package sidecar

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/gitdeck/gitdeck/internal/endpoint"
	"github.com/gitdeck/gitdeck/internal/log"
	"github.com/gitdeck/gitdeck/internal/logbuf"
)

// ServerBinName is the sidecar executable shipped next to the host binary.
const ServerBinName = "gitdeck-server"

// ServerBinEnv overrides where the sidecar executable is looked up.
const ServerBinEnv = "GITDECK_SERVER_BIN"

// ErrSpawnFailed is returned when the sidecar process cannot be started.
var ErrSpawnFailed = errors.New("failed to spawn sidecar")

// Supervisor spawns the sidecar and forwards its output into a log buffer.
type Supervisor struct {
	logs   *slog.Logger
	buf    *logbuf.Buffer
	bin    string
	stdout io.Writer
	stderr io.Writer
}

// New creates a supervisor that captures sidecar output into buf.
func New(buf *logbuf.Buffer, logger *slog.Logger) *Supervisor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Supervisor{
		logs:   logger,
		buf:    buf,
		stdout: os.Stdout,
		stderr: os.Stderr,
	}
}

// WithServerBin overrides the sidecar executable path. Empty leaves the
// default lookup in place.
func (s *Supervisor) WithServerBin(bin string) *Supervisor {
	if bin != "" {
		s.bin = bin
	}
	return s
}

// WithMirror redirects the live mirror of captured output. Used in tests.
func (s *Supervisor) WithMirror(stdout, stderr io.Writer) *Supervisor {
	s.stdout = stdout
	s.stderr = stderr
	return s
}

// serverBin resolves the sidecar executable: explicit override, then the
// ServerBinEnv environment variable, then ServerBinName next to the host
// executable.
func (s *Supervisor) serverBin() (string, error) {
	if s.bin != "" {
		return s.bin, nil
	}
	if bin := os.Getenv(ServerBinEnv); bin != "" {
		return bin, nil
	}
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("failed to locate host executable: %w", err)
	}
	return filepath.Join(filepath.Dir(exe), ServerBinName), nil
}

// commandLine builds the full sidecar invocation as one string. On Unix it
// is handed to the shell's -c flag, so the repository path is quoted.
func commandLine(bin string, port int, repoPath string) string {
	return fmt.Sprintf(`%s --port %d --repo "%s"`, bin, port, repoPath)
}

// Spawn starts the sidecar for the given endpoint and repository and begins
// capturing its output. The returned handle owns the process; at most one
// live handle exists per application run.
func (s *Supervisor) Spawn(ep endpoint.Endpoint, repoPath string) (*Handle, error) {
	bin, err := s.serverBin()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSpawnFailed, err)
	}

	cmd := newCommand(bin, ep.Port, repoPath)
	cmd.Stdin = nil

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: stdout pipe: %v", ErrSpawnFailed, err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: stderr pipe: %v", ErrSpawnFailed, err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSpawnFailed, err)
	}

	pid := cmd.Process.Pid
	s.logs.Info("spawned sidecar",
		log.PIDKey, pid,
		log.PortKey, ep.Port,
		log.RepoKey, repoPath)

	// One reader per stream; each exits when its stream closes. The process
	// is reaped only after both readers are done, since Wait closes the
	// pipes out from under them otherwise.
	var readers sync.WaitGroup
	readers.Add(2)
	go func() {
		defer readers.Done()
		s.capture(logbuf.Stdout, stdout, s.stdout)
	}()
	go func() {
		defer readers.Done()
		s.capture(logbuf.Stderr, stderr, s.stderr)
	}()

	go func() {
		readers.Wait()
		if err := cmd.Wait(); err != nil {
			s.logs.Info("sidecar terminated", log.PIDKey, pid, "err", err)
		} else {
			s.logs.Info("sidecar terminated", log.PIDKey, pid)
		}
	}()

	return &Handle{cmd: cmd, pid: pid}, nil
}

// capture forwards one output stream line-by-line into the log buffer and
// mirrors it to the host's own stream for live visibility.
func (s *Supervisor) capture(stream string, r io.Reader, mirror io.Writer) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		s.buf.Append(stream, line)
		fmt.Fprintln(mirror, line)
	}
	if err := scanner.Err(); err != nil {
		// A read error on one stream does not kill anything; the other
		// stream keeps flowing until the process actually exits.
		s.logs.Warn("sidecar stream read error", log.StreamKey, stream, "err", err)
	}
}
