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

// Package app is the seam between the sidecar supervisor and the desktop
// shell. Window construction itself lives outside this module; the
// supervisor only hands over the resolved startup parameters.
package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/gitdeck/gitdeck/internal/log"
)

// StartupParams are the values the frontend needs to reach the sidecar.
type StartupParams struct {
	Port     int
	RepoPath string
}

// InitScript renders the bootstrap snippet evaluated in the frontend's
// runtime context before any application code runs. The repository path is
// JSON-quoted so arbitrary path characters cannot break out of the literal.
func (p StartupParams) InitScript() string {
	quoted, err := json.Marshal(p.RepoPath)
	if err != nil {
		quoted = []byte(`""`)
	}
	return fmt.Sprintf(
		"window.__GITDECK__ = window.__GITDECK__ || {};\n"+
			"window.__GITDECK__.port = %d;\n"+
			"window.__GITDECK__.repoPath = %s;\n",
		p.Port, quoted)
}

// Frontend presents the application interface once the sidecar is ready.
type Frontend interface {
	Present(ctx context.Context, params StartupParams) error
}

// Headless is a frontend with no window: it logs the startup parameters and
// blocks until the context is cancelled. Used when the desktop shell is
// driven externally (dev harnesses, CI).
type Headless struct {
	Logger *slog.Logger
}

// Present implements Frontend.
func (h *Headless) Present(ctx context.Context, params StartupParams) error {
	logger := h.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("interface ready",
		log.PortKey, params.Port,
		log.RepoKey, params.RepoPath)

	<-ctx.Done()
	return nil
}
