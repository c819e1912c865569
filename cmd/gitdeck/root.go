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

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/gitdeck/gitdeck/internal/app"
	"github.com/gitdeck/gitdeck/internal/config"
	"github.com/gitdeck/gitdeck/internal/endpoint"
	"github.com/gitdeck/gitdeck/internal/lifecycle"
	"github.com/gitdeck/gitdeck/internal/log"
	"github.com/gitdeck/gitdeck/internal/logbuf"
	"github.com/gitdeck/gitdeck/internal/probe"
	"github.com/gitdeck/gitdeck/internal/sidecar"
)

type rootFlags struct {
	port       int
	repo       string
	serverBin  string
	timeout    time.Duration
	configPath string
	logLevel   string
	logFormat  string
}

func newRootCommand() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:   "gitdeck",
		Short: "gitdeck - desktop git client host",
		Long: `gitdeck hosts the desktop git client. It starts and supervises the
companion gitdeck-server process, waits for it to answer on its loopback
endpoint, hands the endpoint and repository path to the frontend, and kills
the server again when the application exits.

An already-running server on the resolved port is reused instead of
spawning a second one.`,
		SilenceUsage:  true, // Don't show usage on errors
		SilenceErrors: true, // We handle errors ourselves for proper exit codes
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), flags)
		},
	}

	cmd.Flags().IntVar(&flags.port, "port", 0, "Pin the sidecar port (default: free ephemeral port)")
	cmd.Flags().StringVar(&flags.repo, "repo", "", "Repository path passed to the sidecar")
	cmd.Flags().StringVar(&flags.serverBin, "server-bin", "", "Path to the gitdeck-server executable")
	cmd.Flags().DurationVar(&flags.timeout, "timeout", 0, "Budget for the sidecar to become ready")
	cmd.Flags().StringVar(&flags.configPath, "config", "", "Path to config file (default: ~/.config/gitdeck/config.yaml)")
	cmd.Flags().StringVar(&flags.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	cmd.Flags().StringVar(&flags.logFormat, "log-format", "", "Log format (text, json)")

	cmd.AddCommand(newVersionCommand())

	return cmd
}

func run(ctx context.Context, flags *rootFlags) error {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return err
	}

	// Precedence throughout: flags, then environment, then config file.
	logCfg := log.FromEnv()
	if os.Getenv(log.DebugEnv) == "" && os.Getenv(log.LevelEnv) == "" && cfg.LogLevel != "" {
		logCfg.Level = cfg.LogLevel
	}
	if os.Getenv(log.FormatEnv) == "" && cfg.LogFormat != "" {
		logCfg.Format = log.Format(cfg.LogFormat)
	}
	if flags.logLevel != "" {
		logCfg.Level = flags.logLevel
	}
	if flags.logFormat != "" {
		logCfg.Format = log.Format(flags.logFormat)
	}
	logger := log.New(logCfg)

	explicitPort := flags.port
	if explicitPort == 0 && os.Getenv(endpoint.PortEnv) == "" {
		explicitPort = cfg.Port
	}
	ep, err := endpoint.Resolve(logger, explicitPort)
	if err != nil {
		return err
	}

	explicitRepo := flags.repo
	if explicitRepo == "" && os.Getenv(config.RepoEnv) == "" {
		explicitRepo = cfg.RepoPath
	}
	repoPath := config.ResolveRepoPath(explicitRepo)

	logger.Info("starting sidecar supervisor",
		log.PortKey, ep.Port,
		log.RepoKey, repoPath)

	serverBin := flags.serverBin
	if serverBin == "" && os.Getenv(sidecar.ServerBinEnv) == "" {
		serverBin = cfg.ServerBin
	}

	logs := logbuf.New()
	sup := sidecar.New(logs, logger).WithServerBin(serverBin)

	var journal *lifecycle.Journal
	var pidFile *lifecycle.PIDFile
	if stateDir, err := config.StateDir(); err == nil {
		journal = lifecycle.NewJournal(filepath.Join(stateDir, "lifecycle.jsonl"))
		pidFile = lifecycle.NewPIDFile(filepath.Join(stateDir, "gitdeck-server.pid"))
	} else {
		logger.Warn("state directory unavailable, journal and pid file disabled", "err", err)
	}

	timeout := flags.timeout
	if timeout == 0 {
		timeout = cfg.ReadyTimeout
	}

	controller := lifecycle.New(lifecycle.Config{
		Endpoint: ep,
		RepoPath: repoPath,
		Prober:   probe.New(),
		Spawn: func(ep endpoint.Endpoint, repo string) (lifecycle.Handle, error) {
			handle, err := sup.Spawn(ep, repo)
			if err != nil {
				return nil, err
			}
			return handle, nil
		},
		Logs:         logs,
		Logger:       logger,
		ReadyTimeout: timeout,
		Journal:      journal,
		PIDFile:      pidFile,
	})

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	params, err := controller.Start(ctx)
	if err != nil {
		controller.Shutdown()
		return err
	}
	defer controller.Shutdown()

	frontend := &app.Headless{Logger: logger}
	if err := frontend.Present(ctx, params); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("failed to create interface: %w", err)
	}
	return nil
}
