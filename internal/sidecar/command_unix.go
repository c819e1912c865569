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
	"os"
	"os/exec"
	"strings"
	"syscall"
)

// ShellEnv names the user's configured interactive shell.
const ShellEnv = "SHELL"

const defaultShell = "/bin/sh"

// userShell returns the user's shell, defaulting to a POSIX shell.
func userShell() string {
	if shell := os.Getenv(ShellEnv); shell != "" {
		return shell
	}
	return defaultShell
}

// isFishShell reports whether the shell is fish, which uses different flags.
func isFishShell(shell string) bool {
	return shell == "fish" || strings.HasSuffix(shell, "/fish")
}

// shellFlags returns the mode flags for running a command in a login shell.
// fish uses -l for login and doesn't support -i the same way; bash, zsh and
// sh all accept the combined -il form.
func shellFlags(shell string) []string {
	if isFishShell(shell) {
		return []string{"-l", "-c"}
	}
	return []string{"-il", "-c"}
}

// newCommand runs the sidecar through the user's login shell so their
// normal PATH and environment customizations are loaded. The full command
// line is a single argument to the shell's -c flag.
func newCommand(bin string, port int, repoPath string) *exec.Cmd {
	shell := userShell()
	args := append(shellFlags(shell), commandLine(bin, port, repoPath))
	cmd := exec.Command(shell, args...)
	// Own process group, so termination can reach the server behind the
	// wrapping shell.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	return cmd
}

// terminateProcess kills the sidecar's process group, reaching the server
// even when it sits behind the wrapping shell. Falls back to killing the
// direct child if the group kill fails.
func terminateProcess(p *os.Process) error {
	if err := syscall.Kill(-p.Pid, syscall.SIGKILL); err == nil || err == syscall.ESRCH {
		return nil
	}
	if err := p.Kill(); err != nil && err != os.ErrProcessDone {
		return err
	}
	return nil
}
