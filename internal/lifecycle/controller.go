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
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gitdeck/gitdeck/internal/app"
	"github.com/gitdeck/gitdeck/internal/endpoint"
	"github.com/gitdeck/gitdeck/internal/log"
	"github.com/gitdeck/gitdeck/internal/logbuf"
)

// Defaults for the readiness loop, tuned for a local process opening a
// loopback listener.
const (
	// DefaultReadyTimeout is the total budget for the sidecar to answer.
	DefaultReadyTimeout = 10 * time.Second
	// DefaultPollInterval is the pause between readiness probes.
	DefaultPollInterval = 50 * time.Millisecond
	// DefaultWarmupDelay is the extra grace after the first successful
	// probe, so the sidecar finishes warming up before the UI hits it.
	DefaultWarmupDelay = 50 * time.Millisecond
)

var (
	// ErrSpawn is returned when the sidecar process could not be started.
	ErrSpawn = errors.New("sidecar failed to start")

	// ErrReadinessTimeout is returned when the sidecar started but never
	// accepted a connection within the budget.
	ErrReadinessTimeout = errors.New("sidecar never became ready")
)

// State is the lifecycle phase of the sidecar supervisor. Transitions are
// strictly sequential within one controller.
type State string

const (
	StateProbing       State = "probing"
	StateSpawning      State = "spawning"
	StateAwaitingReady State = "awaiting_ready"
	StateReady         State = "ready"
	StateFailed        State = "failed"
	StateShuttingDown  State = "shutting_down"
	StateTerminated    State = "terminated"
)

// Prober reports endpoint reachability. Implemented by probe.Prober.
type Prober interface {
	Reachable(ctx context.Context, ep endpoint.Endpoint) bool
}

// Handle is the termination surface of a spawned sidecar. Implemented by
// sidecar.Handle.
type Handle interface {
	PID() int
	Terminate() error
}

// SpawnFunc starts the sidecar and returns its termination handle.
type SpawnFunc func(ep endpoint.Endpoint, repoPath string) (Handle, error)

// Config wires a controller. Endpoint, RepoPath, Prober and Spawn are
// required; zero durations fall back to the defaults.
type Config struct {
	Endpoint endpoint.Endpoint
	RepoPath string
	Prober   Prober
	Spawn    SpawnFunc
	Logs     *logbuf.Buffer
	Logger   *slog.Logger

	ReadyTimeout time.Duration
	PollInterval time.Duration
	WarmupDelay  time.Duration

	// Journal and PIDFile are optional; nil disables them.
	Journal *Journal
	PIDFile *PIDFile
}

// Controller owns sidecar startup and shutdown for one application run.
type Controller struct {
	cfg    Config
	logger *slog.Logger

	mu     sync.Mutex
	state  State
	handle Handle
}

// New creates a controller. It does nothing until Start.
func New(cfg Config) *Controller {
	if cfg.ReadyTimeout <= 0 {
		cfg.ReadyTimeout = DefaultReadyTimeout
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.WarmupDelay <= 0 {
		cfg.WarmupDelay = DefaultWarmupDelay
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = log.WithComponent(logger, "lifecycle")
	if cfg.Journal != nil {
		// Tie every log line to the journal entries for this run.
		logger = logger.With(log.RunIDKey, cfg.Journal.RunID())
	}
	return &Controller{
		cfg:    cfg,
		logger: logger,
		state:  StateProbing,
	}
}

// Start drives the sidecar to readiness and returns the parameters the
// frontend is created with. If something already answers on the endpoint it
// is reused and no process is spawned.
func (c *Controller) Start(ctx context.Context) (app.StartupParams, error) {
	params := app.StartupParams{Port: c.cfg.Endpoint.Port, RepoPath: c.cfg.RepoPath}

	c.setState(StateProbing)
	if c.cfg.Prober.Reachable(ctx, c.cfg.Endpoint) {
		c.logger.Info("sidecar already running", log.PortKey, c.cfg.Endpoint.Port)
		c.record(EventReuse, 0, nil)
		c.setState(StateReady)
		return params, nil
	}

	c.setState(StateSpawning)
	handle, err := c.cfg.Spawn(c.cfg.Endpoint, c.cfg.RepoPath)
	if err != nil {
		c.setState(StateFailed)
		c.record(EventSpawnFailed, 0, err)
		return app.StartupParams{}, fmt.Errorf("%w: %v", ErrSpawn, err)
	}

	c.mu.Lock()
	c.handle = handle
	c.mu.Unlock()

	c.record(EventSpawn, handle.PID(), nil)
	c.writePID(handle.PID())

	c.setState(StateAwaitingReady)
	start := time.Now()
	for {
		if time.Since(start) > c.cfg.ReadyTimeout {
			c.setState(StateFailed)
			c.record(EventTimeout, handle.PID(), nil)
			return app.StartupParams{}, fmt.Errorf("%w within %s", ErrReadinessTimeout, c.cfg.ReadyTimeout)
		}

		if c.cfg.Prober.Reachable(ctx, c.cfg.Endpoint) {
			// Listener is open; give the sidecar a moment to finish
			// warming up before the frontend connects.
			if err := sleep(ctx, c.cfg.WarmupDelay); err != nil {
				c.setState(StateFailed)
				return app.StartupParams{}, err
			}
			break
		}

		if err := sleep(ctx, c.cfg.PollInterval); err != nil {
			c.setState(StateFailed)
			return app.StartupParams{}, err
		}
	}

	c.logger.Info("sidecar ready",
		log.PortKey, c.cfg.Endpoint.Port,
		log.DurationKey, time.Since(start).Milliseconds())
	c.record(EventReady, handle.PID(), nil)
	c.setState(StateReady)
	return params, nil
}

// Shutdown terminates the spawned sidecar, if any, and is safe to call more
// than once. Best-effort: the reader goroutines exit on their own once the
// process dies, and nobody waits for them since the host is exiting anyway.
func (c *Controller) Shutdown() {
	c.setState(StateShuttingDown)
	c.KillSidecar()
	c.removePID()
	c.record(EventShutdown, 0, nil)
	c.setState(StateTerminated)
}

// KillSidecar requests termination of the tracked sidecar. The handle is
// taken exactly once; calling with none tracked (a reused sidecar, or a
// second call) silently succeeds. This is the action exposed to the
// frontend's diagnostic surface.
func (c *Controller) KillSidecar() {
	c.mu.Lock()
	handle := c.handle
	c.handle = nil
	c.mu.Unlock()

	if handle == nil {
		c.logger.Debug("no sidecar tracked")
		return
	}

	if err := handle.Terminate(); err != nil {
		c.logger.Warn("failed to kill sidecar", log.PIDKey, handle.PID(), "err", err)
		return
	}
	c.logger.Info("killed sidecar", log.PIDKey, handle.PID())
}

// Logs returns the captured sidecar output retained so far, as one blob.
// This is the query exposed to the frontend's diagnostic surface.
func (c *Controller) Logs() string {
	if c.cfg.Logs == nil {
		return ""
	}
	return c.cfg.Logs.Snapshot()
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Spawned reports whether this run owns a sidecar process.
func (c *Controller) Spawned() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handle != nil
}

func (c *Controller) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
	c.logger.Debug("state transition", log.StateKey, string(s))
}

func (c *Controller) record(event string, pid int, cause error) {
	c.logger.Debug("lifecycle event", log.EventKey, event, log.PIDKey, pid)
	if c.cfg.Journal == nil {
		return
	}
	err := c.cfg.Journal.Record(event, c.cfg.Endpoint.Port, c.cfg.RepoPath, pid, cause)
	if err != nil {
		c.logger.Debug("lifecycle journal write failed", "err", err)
	}
}

func (c *Controller) writePID(pid int) {
	if c.cfg.PIDFile == nil {
		return
	}
	if err := c.cfg.PIDFile.Write(pid); err != nil {
		c.logger.Debug("pid file write failed", "err", err)
	}
}

func (c *Controller) removePID() {
	if c.cfg.PIDFile == nil {
		return
	}
	if err := c.cfg.PIDFile.Remove(); err != nil {
		c.logger.Debug("pid file remove failed", "err", err)
	}
}

// sleep waits for d or until ctx is done, whichever comes first.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
