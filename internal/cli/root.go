// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package cli implements the sk command tree.
package cli

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/stacklok/skills-kit/env"
	"github.com/stacklok/skills-kit/logging"
	"github.com/stacklok/skills-kit/skerr"
	"github.com/stacklok/skills-kit/syncback"
	"github.com/stacklok/skills-kit/vcs"
)

const (
	// LogLevelEnv overrides the -v derived log level.
	LogLevelEnv = "SK_LOG_LEVEL"
	// LogFormatEnv selects text or json logs.
	LogFormatEnv = "SK_LOG_FORMAT"
)

// App carries the process-level collaborators of every command. Tests swap
// them for fakes; NewApp wires the real ones.
type App struct {
	Env    env.Reader
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	// Git is the version-control client. nil uses the git binary.
	Git vcs.Git
	// Review and Syncer override the sync-back tooling when set.
	Review syncback.ReviewTool
	Syncer syncback.DirSyncer
	Now    func() time.Time
	// Dir is the working directory. Empty means the process working directory.
	Dir     string
	Version string

	root    string
	verbose int
	logger  *slog.Logger
}

// NewApp returns an App bound to the process environment and standard streams.
func NewApp(version string) *App {
	return &App{
		Env:     &env.OSReader{},
		Stdin:   os.Stdin,
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
		Now:     time.Now,
		Version: version,
	}
}

// Execute runs the command line in args.
func (a *App) Execute(ctx context.Context, args []string) error {
	cmd := a.Command()
	cmd.SetArgs(args)
	return cmd.ExecuteContext(ctx)
}

// Command builds the root command.
func (a *App) Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sk",
		Short: "Repo-scoped skills manager",
		Long: `sk vendors skills (directories described by a SKILL.md) from git
repositories into your project, locks the exact commit and content digest in
skills.lock.json, detects local edits, and publishes them back upstream.

Example:
  sk init
  sk install @acme/skills pdf-tools
  sk check`,
		Version:       a.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return a.setupLogging()
		},
	}
	cmd.SetIn(a.Stdin)
	cmd.SetOut(a.Stdout)
	cmd.SetErr(a.Stderr)
	cmd.SetVersionTemplate("{{.Name}} {{.Version}}\n")

	cmd.PersistentFlags().StringVar(&a.root, "root", "", "install root relative to the project (default from config, ./skills)")
	cmd.PersistentFlags().CountVarP(&a.verbose, "verbose", "v", "increase log verbosity (-v info, -vv debug)")

	cmd.AddCommand(
		a.initCmd(),
		a.installCmd(),
		a.listCmd(),
		a.whereCmd(),
		a.checkCmd(),
		a.statusCmd(),
		a.doctorCmd(),
		a.updateCmd(),
		a.upgradeCmd(),
		a.removeCmd(),
		a.syncBackCmd(),
		a.repoCmd(),
		a.precommitCmd(),
		a.templateCmd(),
		a.mcpCmd(),
		a.configCmd(),
	)
	return cmd
}

func (a *App) setupLogging() error {
	level := logging.LevelForVerbosity(a.verbose)
	if raw := env.String(a.Env, LogLevelEnv, ""); raw != "" {
		l, err := logging.ParseLevel(raw)
		if err != nil {
			return skerr.WithHint(skerr.Wrap(skerr.KindConfiguration, err), LogLevelEnv+" accepts debug, info, warn or error")
		}
		level = l
	}
	format, err := logging.ParseFormat(env.String(a.Env, LogFormatEnv, ""))
	if err != nil {
		return skerr.WithHint(skerr.Wrap(skerr.KindConfiguration, err), LogFormatEnv+" accepts text or json")
	}
	a.logger = logging.New(
		logging.WithFormat(format),
		logging.WithLevel(level),
		logging.WithOutput(a.Stderr),
	)
	return nil
}

func (a *App) log() *slog.Logger {
	return logging.OrDiscard(a.logger)
}

func (a *App) now() time.Time {
	if a.Now == nil {
		return time.Now()
	}
	return a.Now()
}
