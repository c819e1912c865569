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

/*
Package lifecycle orchestrates the sidecar server across one application run.

The controller drives a strictly sequential state machine:

	Probing -> Ready                          (something already answers; reuse it)
	Probing -> Spawning -> AwaitingReady -> Ready
	Spawning -> Failed                        (process could not start)
	AwaitingReady -> Failed                   (started but never answered)
	ShuttingDown -> Terminated                (host exit; best-effort kill)

The pre-spawn probe is a deliberate idempotency guarantee, not an
optimization: repeated launches during iterative development reuse one
already-running sidecar instead of accumulating orphan processes. When the
sidecar is reused this run owns no process handle, and shutdown silently
succeeds.

Startup failures (no usable port or path, spawn failure, readiness timeout)
are fatal for the run and propagate to the host, which exits non-zero.
Nothing is retried automatically.

The package also records lifecycle events to a JSON-lines journal and the
spawned sidecar's PID to a pid file, both under the XDG state directory.
Neither is ever fatal to startup or shutdown.
*/
package lifecycle
