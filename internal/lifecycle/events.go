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

package lifecycle

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
)

// Event types recorded in the lifecycle journal.
const (
	EventSpawn       = "spawn"
	EventSpawnFailed = "spawn_failed"
	EventReuse       = "reuse"
	EventReady       = "ready"
	EventTimeout     = "ready_timeout"
	EventShutdown    = "shutdown"
)

// Event is one entry in the lifecycle journal.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	RunID     string    `json:"run_id"`
	Event     string    `json:"event"`
	Port      int       `json:"port,omitempty"`
	RepoPath  string    `json:"repo_path,omitempty"`
	PID       int       `json:"pid,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// Journal appends lifecycle events to a JSON-lines file for later
// diagnosis ("started but never answered" versus "could not start").
type Journal struct {
	path  string
	runID string
}

// NewJournal creates a journal writing to path. Each application run gets a
// fresh identifier so overlapping runs can be told apart in the file.
func NewJournal(path string) *Journal {
	return &Journal{path: path, runID: uuid.NewString()}
}

// RunID returns this run's identifier.
func (j *Journal) RunID() string { return j.runID }

// Record appends one event. The error is returned for callers that care,
// but journal failures are never fatal to startup or shutdown.
func (j *Journal) Record(event string, port int, repoPath string, pid int, cause error) error {
	e := Event{
		Timestamp: time.Now(),
		RunID:     j.runID,
		Event:     event,
		Port:      port,
		RepoPath:  repoPath,
		PID:       pid,
	}
	if cause != nil {
		e.Error = cause.Error()
	}

	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to encode lifecycle event: %w", err)
	}

	f, err := os.OpenFile(j.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return fmt.Errorf("failed to open lifecycle journal: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write lifecycle event: %w", err)
	}
	return nil
}
