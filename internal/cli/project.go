// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/stacklok/skills-kit/config"
	"github.com/stacklok/skills-kit/installer"
	"github.com/stacklok/skills-kit/paths"
	"github.com/stacklok/skills-kit/skerr"
	"github.com/stacklok/skills-kit/source"
	"github.com/stacklok/skills-kit/vcs"
)

// project is the resolved workspace a command runs against.
type project struct {
	cfg       config.Config
	configDir string
	layout    paths.Layout
	git       vcs.Git
	inst      *installer.Installer
}

func (a *App) gitClient() (vcs.Git, error) {
	if a.Git != nil {
		return a.Git, nil
	}
	g, err := vcs.NewCLI(a.log())
	if err != nil {
		return nil, skerr.WithHint(skerr.Wrap(skerr.KindConfiguration, err), "install git and make sure it is on PATH")
	}
	a.Git = g
	return g, nil
}

func (a *App) loadConfig() (config.Config, string, error) {
	dir := paths.ResolveConfigDir(a.Env)
	cfg, err := config.Load(dir)
	if err != nil {
		return config.Config{}, "", err
	}
	return cfg, dir, nil
}

func (a *App) workDir() (string, error) {
	if a.Dir != "" {
		return a.Dir, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting working directory: %w", err)
	}
	return wd, nil
}

// project locates the enclosing git working tree and builds the layout from
// --root, falling back to the configured default root.
func (a *App) project(ctx context.Context) (*project, error) {
	cfg, dir, err := a.loadConfig()
	if err != nil {
		return nil, err
	}
	git, err := a.gitClient()
	if err != nil {
		return nil, err
	}
	wd, err := a.workDir()
	if err != nil {
		return nil, err
	}
	top, err := git.TopLevel(ctx, wd)
	if err != nil {
		return nil, skerr.WithHint(
			skerr.Wrap(skerr.KindPrecondition, fmt.Errorf("%s is not inside a git repository: %w", wd, err)),
			"run sk from your project's working tree, or 'git init' first",
		)
	}
	root := a.root
	if root == "" {
		root = cfg.DefaultRoot
	}
	layout, err := paths.NewLayout(a.Env, top, root)
	if err != nil {
		return nil, skerr.Wrap(skerr.KindConfiguration, err)
	}
	a.log().Debug("resolved project", "project", layout.ProjectRoot, "root", layout.InstallRoot, "cache", layout.CacheRoot)
	return &project{
		cfg:       cfg,
		configDir: dir,
		layout:    layout,
		git:       git,
		inst:      installer.New(layout, git, installer.WithClock(a.now), installer.WithLogger(a.log())),
	}, nil
}

// resolveRepo accepts a registered alias or any repository reference.
func (p *project) resolveRepo(target string, https bool) (source.Ref, string, error) {
	return p.inst.ResolveRepo(target, https || p.cfg.PreferHTTPS(), p.cfg.DefaultHost)
}
