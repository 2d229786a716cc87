// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package installer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/stacklok/skills-kit/cache"
	"github.com/stacklok/skills-kit/digest"
	"github.com/stacklok/skills-kit/lockfile"
	"github.com/stacklok/skills-kit/logging"
	"github.com/stacklok/skills-kit/paths"
	"github.com/stacklok/skills-kit/skerr"
	"github.com/stacklok/skills-kit/skills"
	"github.com/stacklok/skills-kit/source"
	"github.com/stacklok/skills-kit/validation/name"
	"github.com/stacklok/skills-kit/vcs"
)

// Installer runs project operations against one Layout.
type Installer struct {
	layout paths.Layout
	git    vcs.Git
	cache  *cache.Manager
	logger *slog.Logger
	now    func() time.Time
}

// Option configures an Installer.
type Option func(*Installer)

// WithClock overrides the time source used for lockfile timestamps.
func WithClock(now func() time.Time) Option {
	return func(i *Installer) {
		i.now = now
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(i *Installer) {
		i.logger = l
	}
}

// New returns an Installer for layout.
func New(layout paths.Layout, git vcs.Git, opts ...Option) *Installer {
	i := &Installer{layout: layout, git: git, now: time.Now}
	for _, o := range opts {
		o(i)
	}
	i.logger = logging.OrDiscard(i.logger).With(logging.ComponentKey, "installer")
	i.cache = cache.NewManager(git, layout.CacheRoot, i.logger)
	return i
}

// Layout returns the paths the installer operates on.
func (i *Installer) Layout() paths.Layout {
	return i.layout
}

// Cache returns the cache manager.
func (i *Installer) Cache() *cache.Manager {
	return i.cache
}

// LoadLockfile reads the project lockfile. A missing file yields an empty one.
// Corruption is fatal and returned as is.
func (i *Installer) LoadLockfile() (*lockfile.Lockfile, error) {
	return lockfile.LoadOrEmpty(i.layout.LockfilePath(), i.now())
}

func (i *Installer) requireLockfile() (*lockfile.Lockfile, error) {
	lf, err := lockfile.Load(i.layout.LockfilePath())
	if errors.Is(err, fs.ErrNotExist) {
		return nil, skerr.WithHint(
			skerr.Newf(skerr.KindPrecondition, "no lockfile at %s", i.layout.LockfilePath()),
			"run 'sk init' or 'sk install <repo> <name>' first",
		)
	}
	return lf, err
}

func (i *Installer) find(lf *lockfile.Lockfile, installName string) (*lockfile.Entry, error) {
	e, _ := lf.Find(installName)
	if e == nil {
		return nil, skerr.WithHint(
			skerr.Newf(skerr.KindUnitNotFound, "skill '%s' is not installed", installName),
			"run 'sk list' to see installed skills",
		)
	}
	return e, nil
}

// InstallRequest describes one install.
type InstallRequest struct {
	Repo source.Ref
	// Name is the declared skill name to look for.
	Name string
	// Ref is a branch, tag or commit. Empty tracks the default branch.
	Ref string
	// Alias overrides the install name.
	Alias string
	// Path disambiguates between skills sharing a name.
	Path string
}

// Install resolves, copies and locks one skill.
func (i *Installer) Install(ctx context.Context, req InstallRequest) (*lockfile.Entry, error) {
	lf, err := i.LoadLockfile()
	if err != nil {
		return nil, err
	}

	mir, err := i.cache.Ensure(ctx, req.Repo)
	if err != nil {
		return nil, err
	}
	res, err := i.cache.ResolveCommit(ctx, mir, req.Ref)
	if err != nil {
		return nil, err
	}

	found, err := skills.Discover(ctx, i.git, mir.Dir, res.Commit, i.logger)
	if err != nil {
		return nil, err
	}
	desc, err := skills.Select(found, req.Name, req.Path, req.Repo.Slug())
	if err != nil {
		return nil, err
	}

	installName := req.Alias
	if installName == "" {
		installName = desc.Name()
	}
	if err := name.ValidateInstallName(installName); err != nil {
		return nil, err
	}
	if existing, _ := lf.Find(installName); existing != nil {
		return nil, skerr.WithHint(
			skerr.Newf(skerr.KindPrecondition, "skill '%s' is already installed", installName),
			fmt.Sprintf("run 'sk upgrade %s' or install under another name with --alias", installName),
		)
	}
	dest := i.layout.InstallDir(installName)
	if _, err := os.Stat(dest); err == nil {
		return nil, skerr.WithHint(
			skerr.Newf(skerr.KindPrecondition, "install destination %s already exists", dest),
			"remove the directory or install under another name with --alias",
		)
	}

	d, err := i.materialize(ctx, mir.Dir, res.Commit, desc.Path, dest)
	if err != nil {
		return nil, err
	}

	entry := lockfile.Entry{
		InstallName: installName,
		Source:      lockfile.SourceFrom(req.Repo, desc.Path),
		Ref:         lockfile.RefPtr(req.Ref),
		Commit:      res.Commit,
		Digest:      d,
		InstalledAt: lockfile.Timestamp(i.now()),
	}
	err = lockfile.Edit(i.layout.LockfilePath(), i.now(), func(lf *lockfile.Lockfile) error {
		if err := lf.Add(entry); err != nil {
			return err
		}
		lf.Touch(i.now())
		return nil
	})
	if err != nil {
		_ = os.RemoveAll(dest)
		return nil, err
	}
	i.logger.Info("installed skill", "skill", installName, "repo", req.Repo.Slug(), "commit", res.Commit)
	return &entry, nil
}

// materialize extracts skillPath at commit into a staging directory inside
// the install root and renames it to dest, returning the digest.
func (i *Installer) materialize(ctx context.Context, mirrorDir, commit, skillPath, dest string) (string, error) {
	stage, err := i.extractStaged(ctx, mirrorDir, commit, skillPath)
	if err != nil {
		return "", err
	}
	defer func() { _ = os.RemoveAll(filepath.Dir(stage)) }()

	d, err := digest.Dir(stage)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o750); err != nil {
		return "", fmt.Errorf("creating %s: %w", filepath.Dir(dest), err)
	}
	if err := os.Rename(stage, dest); err != nil {
		return "", fmt.Errorf("moving skill into %s: %w", dest, err)
	}
	return d, nil
}

// extractStaged writes the subtree into <install root>/.sk-stage-*/tree and
// returns that path. The caller removes the parent directory.
func (i *Installer) extractStaged(ctx context.Context, mirrorDir, commit, skillPath string) (string, error) {
	if err := os.MkdirAll(i.layout.InstallRoot, 0o750); err != nil {
		return "", fmt.Errorf("creating install root: %w", err)
	}
	tmp, err := os.MkdirTemp(i.layout.InstallRoot, ".sk-stage-")
	if err != nil {
		return "", fmt.Errorf("creating staging directory: %w", err)
	}
	stage := filepath.Join(tmp, "tree")
	if _, err := skills.Extract(ctx, i.git, mirrorDir, commit, skillPath, stage); err != nil {
		_ = os.RemoveAll(tmp)
		return "", err
	}
	return stage, nil
}

// Rebuild recreates a missing install from its locked commit. It fails with
// a missing-cache or unreachable-commit error when the cache cannot serve it.
// The lockfile is not modified.
func (i *Installer) Rebuild(ctx context.Context, e *lockfile.Entry) error {
	ref := e.Source.RemoteRef()
	mir, ok := i.cache.Lookup(ref)
	if !ok {
		return skerr.WithHint(
			skerr.Newf(skerr.KindMissingCache, "no cache mirror for %s", ref.Slug()),
			"run 'sk update' to re-clone it",
		)
	}
	if !i.cache.HasCommit(ctx, mir, e.Commit) {
		return skerr.Newf(skerr.KindUnreachableCommit, "commit %s of '%s' is no longer in %s", e.ShortCommit(), e.InstallName, ref.Slug())
	}
	dest := i.layout.InstallDir(e.InstallName)
	d, err := i.materialize(ctx, mir.Dir, e.Commit, e.Source.SkillPath, dest)
	if err != nil {
		return err
	}
	if !digest.Equal(d, e.Digest) {
		i.logger.Warn("rebuilt tree does not match locked digest", "skill", e.InstallName, "want", e.Digest, "got", d)
	}
	return nil
}

// Where returns the install directory of an installed skill.
func (i *Installer) Where(installName string) (string, error) {
	lf, err := i.requireLockfile()
	if err != nil {
		return "", err
	}
	if _, err := i.find(lf, installName); err != nil {
		return "", err
	}
	return i.layout.InstallDir(installName), nil
}
