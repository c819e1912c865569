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

package config

import (
	"os"
	"path/filepath"
	"strings"
)

// RepoMarkerName is the marker file the dev tooling writes next to the host
// executable to pin the repository the sidecar should serve.
const RepoMarkerName = ".repo-path"

// ResolveRepoPath returns the repository path passed to the sidecar.
// First non-empty wins: the explicit override, the RepoEnv environment
// variable, the marker file next to the executable, the current working
// directory. Never returns an empty string.
func ResolveRepoPath(explicit string) string {
	return resolveRepoPath(explicit, markerPath())
}

func markerPath() string {
	exe, err := os.Executable()
	if err != nil {
		return ""
	}
	return filepath.Join(filepath.Dir(exe), RepoMarkerName)
}

func resolveRepoPath(explicit, marker string) string {
	if explicit != "" {
		return explicit
	}

	if repo := os.Getenv(RepoEnv); repo != "" {
		return repo
	}

	if marker != "" {
		if data, err := os.ReadFile(marker); err == nil {
			if path := strings.TrimSpace(string(data)); path != "" {
				return path
			}
		}
	}

	wd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return wd
}
