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

//go:build windows

package sidecar

import (
	"os"
	"os/exec"
	"strconv"
)

// newCommand invokes the sidecar directly with explicit arguments. There is
// no login-shell convention to honor on Windows.
func newCommand(bin string, port int, repoPath string) *exec.Cmd {
	return exec.Command(bin, "--port", strconv.Itoa(port), "--repo", repoPath)
}

// terminateProcess kills the sidecar process.
func terminateProcess(p *os.Process) error {
	if err := p.Kill(); err != nil && err != os.ErrProcessDone {
		return err
	}
	return nil
}
