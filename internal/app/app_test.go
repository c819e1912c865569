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

package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStartupParams_InitScript(t *testing.T) {
	params := StartupParams{Port: 3111, RepoPath: "/home/dev/project"}

	script := params.InitScript()
	assert.Contains(t, script, "window.__GITDECK__.port = 3111;")
	assert.Contains(t, script, `window.__GITDECK__.repoPath = "/home/dev/project";`)
}

func TestStartupParams_InitScriptQuotesHostilePaths(t *testing.T) {
	params := StartupParams{Port: 1, RepoPath: `/tmp/"; alert(1); "`}

	script := params.InitScript()
	// The quote is escaped inside the JSON literal, so the path cannot
	// close the string and inject code.
	assert.Contains(t, script, `window.__GITDECK__.repoPath = "/tmp/\"; alert(1); \"";`)
}

func TestHeadless_PresentReturnsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- (&Headless{}).Present(ctx, StartupParams{Port: 1, RepoPath: "/r"})
	}()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Present did not return after context cancellation")
	}
}
