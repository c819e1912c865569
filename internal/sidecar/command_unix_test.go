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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUserShell(t *testing.T) {
	t.Run("from environment", func(t *testing.T) {
		t.Setenv(ShellEnv, "/usr/bin/zsh")
		assert.Equal(t, "/usr/bin/zsh", userShell())
	})

	t.Run("defaults to POSIX shell", func(t *testing.T) {
		t.Setenv(ShellEnv, "")
		assert.Equal(t, "/bin/sh", userShell())
	})
}

func TestShellFlags(t *testing.T) {
	tests := []struct {
		shell string
		want  []string
	}{
		{"/bin/bash", []string{"-il", "-c"}},
		{"/usr/bin/zsh", []string{"-il", "-c"}},
		{"/bin/sh", []string{"-il", "-c"}},
		{"/usr/bin/fish", []string{"-l", "-c"}},
		{"fish", []string{"-l", "-c"}},
		// Only the basename decides; a fishy prefix isn't fish.
		{"/opt/fishlike/bash", []string{"-il", "-c"}},
	}

	for _, tt := range tests {
		t.Run(tt.shell, func(t *testing.T) {
			assert.Equal(t, tt.want, shellFlags(tt.shell))
		})
	}
}

func TestNewCommand_ShellWrapped(t *testing.T) {
	t.Setenv(ShellEnv, "/bin/bash")

	cmd := newCommand("/opt/gitdeck/gitdeck-server", 4321, "/home/dev/my repo")

	assert.Equal(t, "/bin/bash", cmd.Path)
	assert.Equal(t, []string{
		"/bin/bash", "-il", "-c",
		`/opt/gitdeck/gitdeck-server --port 4321 --repo "/home/dev/my repo"`,
	}, cmd.Args)
	assert.True(t, cmd.SysProcAttr.Setpgid)
}

func TestCommandLine_QuotesRepoPath(t *testing.T) {
	line := commandLine("/bin/server", 80, "/path with spaces")
	assert.Equal(t, `/bin/server --port 80 --repo "/path with spaces"`, line)
}
