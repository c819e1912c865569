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

package sidecar

import (
	"fmt"
	"os/exec"
	"sync"
)

// Handle owns a live sidecar process.
type Handle struct {
	mu  sync.Mutex
	cmd *exec.Cmd
	pid int
}

// PID returns the process ID the handle was created with. Valid even after
// termination.
func (h *Handle) PID() int { return h.pid }

// Live reports whether the handle still owns a process.
func (h *Handle) Live() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cmd != nil
}

// Terminate requests the sidecar stop. Best-effort: it does not wait for
// exit confirmation; the output readers observe stream close and wind down
// on their own. The underlying process is taken exactly once, so calling
// Terminate again (or concurrently) is a no-op, not an error.
func (h *Handle) Terminate() error {
	h.mu.Lock()
	cmd := h.cmd
	h.cmd = nil
	h.mu.Unlock()

	if cmd == nil || cmd.Process == nil {
		return nil
	}

	if err := terminateProcess(cmd.Process); err != nil {
		return fmt.Errorf("failed to kill sidecar: %w", err)
	}
	return nil
}
