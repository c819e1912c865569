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

// Package logbuf holds a bounded record of captured sidecar output for
// diagnostics.
package logbuf

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Stream tags for captured output lines.
const (
	Stdout = "stdout"
	Stderr = "stderr"
)

// MaxEntries is the number of lines retained before the oldest are evicted.
const MaxEntries = 200

// timeLayout renders capture times in snapshots. Date-less: the buffer
// never retains more than one session's worth of output.
const timeLayout = "15:04:05.000"

type entry struct {
	at     time.Time
	stream string
	line   string
}

// Buffer is a bounded, append-only record of captured output lines. Once
// full, the oldest line is evicted for each new one (FIFO, count-based).
// One writer goroutine per captured stream appends; diagnostic readers take
// snapshots. Each append is atomic; ordering across streams is whatever
// arrival order the lock observes.
type Buffer struct {
	mu      sync.Mutex
	max     int
	entries []entry
}

// New creates a buffer with the standard capacity.
func New() *Buffer {
	return NewWithCapacity(MaxEntries)
}

// NewWithCapacity creates a buffer retaining at most max lines.
func NewWithCapacity(max int) *Buffer {
	if max <= 0 {
		max = MaxEntries
	}
	return &Buffer{max: max}
}

// Append records one line from the given stream, evicting the oldest
// retained line once the buffer is full.
func (b *Buffer) Append(stream, line string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.entries = append(b.entries, entry{at: time.Now(), stream: stream, line: line})
	if excess := len(b.entries) - b.max; excess > 0 {
		b.entries = append(b.entries[:0], b.entries[excess:]...)
	}
}

// Snapshot returns the retained lines in insertion order as a single blob,
// each line prefixed with its capture time and stream tag. The join happens
// outside the lock so writers are not held up.
func (b *Buffer) Snapshot() string {
	b.mu.Lock()
	lines := make([]string, len(b.entries))
	for i, e := range b.entries {
		lines[i] = fmt.Sprintf("%s [%s] %s", e.at.Format(timeLayout), e.stream, e.line)
	}
	b.mu.Unlock()

	return strings.Join(lines, "\n")
}

// Len returns the number of lines currently retained.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}
