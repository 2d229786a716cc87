// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package installer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/stacklok/skills-kit/cache"
	"github.com/stacklok/skills-kit/digest"
	"github.com/stacklok/skills-kit/lockfile"
	"github.com/stacklok/skills-kit/skerr"
	"github.com/stacklok/skills-kit/skills"
)

// UpgradeRequest selects entries to upgrade.
type UpgradeRequest struct {
	// Name targets one entry. Ignored when All is set.
	Name string
	All  bool
	// DryRun computes the plan without writing anything.
	DryRun bool
	// IncludePinned also moves entries whose ref is a tag or commit.
	IncludePinned bool
	// Ref retargets a single entry to a new ref constraint.
	Ref string
}

// PlannedUpgrade is one entry that changes.
type PlannedUpgrade struct {
	InstallName string
	From        string
	To          string
	// Refresh marks a zero-diff refresh: the installed tree already equals
	// the new commit's content, so only the lock entry moves.
	Refresh bool
	// Digest is known up front for refreshes and filled in after staging otherwise.
	Digest string

	entry     lockfile.Entry
	mirrorDir string
	newRef    *string
}

// SkipReason says why an entry was left alone.
type SkipReason int

const (
	// SkipModified means the installed tree has local edits.
	SkipModified SkipReason = iota
	// SkipPinned means the entry is pinned to a tag or commit.
	SkipPinned
)

// Skipped is an entry excluded from a batch, with the command that resolves it.
type Skipped struct {
	InstallName string
	Reason      SkipReason
	// From and To are set when an upstream change was also available.
	From string
	To   string
}

// Hint returns the follow-up command for the skipped entry.
func (s Skipped) Hint() string {
	if s.Reason == SkipPinned {
		return fmt.Sprintf("run 'sk upgrade %s --include-pinned' or pass --ref to move it", s.InstallName)
	}
	return fmt.Sprintf("run 'sk sync-back %s' or revert local changes, then 'sk upgrade %s'", s.InstallName, s.InstallName)
}

// Failure is a per-entry error that did not stop the batch.
type Failure struct {
	InstallName string
	Err         error
}

// UpgradeReport is the outcome of Upgrade.
type UpgradeReport struct {
	Planned []PlannedUpgrade
	Skipped []Skipped
	Failed  []Failure
	// Stale lists repositories that could not be refreshed and were read from cache.
	Stale []string
	// Applied is true when files and the lockfile were written.
	Applied bool
}

// Err aggregates Failed. The kind of the first failure is kept.
func (r *UpgradeReport) Err() error {
	if len(r.Failed) == 0 {
		return nil
	}
	errs := make([]error, 0, len(r.Failed))
	for _, f := range r.Failed {
		errs = append(errs, fmt.Errorf("%s: %w", f.InstallName, f.Err))
	}
	return skerr.Wrap(skerr.KindOf(r.Failed[0].Err), errors.Join(errs...))
}

// Upgrade moves clean entries to their ref's current commit.
//
// Modified entries are never touched: a single-target upgrade refuses with a
// modified-state error and a batch lists them in Skipped. For a batch,
// per-entry failures are collected in the report and returned together
// through the report's Err.
func (i *Installer) Upgrade(ctx context.Context, req UpgradeRequest) (*UpgradeReport, error) {
	lf, err := i.requireLockfile()
	if err != nil {
		return nil, err
	}
	if !req.All && req.Name == "" {
		return nil, skerr.WithHint(skerr.New(skerr.KindPrecondition, "nothing to upgrade"), "name a skill or pass --all")
	}
	if req.All && req.Ref != "" {
		return nil, skerr.New(skerr.KindPrecondition, "--ref applies to a single skill, not --all")
	}

	var targets []lockfile.Entry
	if req.All {
		targets = append(targets, lf.Skills...)
	} else {
		e, err := i.find(lf, req.Name)
		if err != nil {
			return nil, err
		}
		targets = append(targets, *e)
	}

	report := &UpgradeReport{}
	mirrors := map[string]*mirrorResult{}
	for _, e := range targets {
		p, skip, err := i.plan(ctx, e, req, mirrors, report)
		switch {
		case err != nil && !req.All:
			return nil, err
		case err != nil:
			report.Failed = append(report.Failed, Failure{InstallName: e.InstallName, Err: err})
		case skip != nil && !req.All && skip.Reason == SkipModified:
			return nil, modifiedError(e.InstallName, "upgrade")
		case skip != nil:
			report.Skipped = append(report.Skipped, *skip)
		case p != nil:
			report.Planned = append(report.Planned, *p)
		}
	}

	if req.DryRun || len(report.Planned) == 0 {
		return report, report.Err()
	}
	if err := i.apply(ctx, report.Planned); err != nil {
		return nil, err
	}
	report.Applied = true
	return report, report.Err()
}

func modifiedError(installName, op string) error {
	return skerr.WithHint(
		skerr.Newf(skerr.KindModifiedState, "local edits detected in '%s'; refusing to %s", installName, op),
		fmt.Sprintf("run 'sk sync-back %s' or revert your changes", installName),
	)
}

type mirrorResult struct {
	mirror *cache.Mirror
	err    error
}

func (i *Installer) mirrorFor(ctx context.Context, e lockfile.Entry, memo map[string]*mirrorResult, report *UpgradeReport) (*cache.Mirror, error) {
	ref := e.Source.RemoteRef()
	key := i.cache.MirrorPath(ref)
	if r, ok := memo[key]; ok {
		return r.mirror, r.err
	}
	mir, err := i.cache.Ensure(ctx, ref)
	if err == nil && mir.Stale() {
		report.Stale = append(report.Stale, ref.Slug())
	}
	memo[key] = &mirrorResult{mirror: mir, err: err}
	return mir, err
}

func (i *Installer) plan(ctx context.Context, e lockfile.Entry, req UpgradeRequest, memo map[string]*mirrorResult, report *UpgradeReport) (*PlannedUpgrade, *Skipped, error) {
	dest := i.layout.InstallDir(e.InstallName)
	obs, err := lockfile.Observe(&e, dest)
	if err != nil {
		return nil, nil, err
	}
	if obs.State == lockfile.StateMissing {
		return nil, nil, skerr.WithHint(
			skerr.Newf(skerr.KindPrecondition, "installed directory for '%s' is missing", e.InstallName),
			"run 'sk doctor --apply' to rebuild it first",
		)
	}

	mir, err := i.mirrorFor(ctx, e, memo, report)
	if err != nil {
		return nil, nil, err
	}

	constraint := e.RefString()
	if req.Ref != "" {
		constraint = req.Ref
	}
	res, err := i.cache.ResolveCommit(ctx, mir, constraint)
	if err != nil {
		return nil, nil, err
	}

	retarget := req.Ref != "" && req.Ref != e.RefString()
	moving := !res.Kind.Pinned() || req.IncludePinned || retarget
	changed := res.Commit != e.Commit || retarget
	if obs.State == lockfile.StateModified && (!moving || !changed) {
		skip := &Skipped{InstallName: e.InstallName, Reason: SkipModified}
		if res.Commit != e.Commit {
			skip.From, skip.To = e.Commit, res.Commit
		}
		return nil, skip, nil
	}
	if !changed {
		return nil, nil, nil
	}
	if !moving {
		return nil, &Skipped{InstallName: e.InstallName, Reason: SkipPinned, From: e.Commit, To: res.Commit}, nil
	}

	p := &PlannedUpgrade{
		InstallName: e.InstallName,
		From:        e.Commit,
		To:          res.Commit,
		entry:       e,
		mirrorDir:   mir.Dir,
	}
	if retarget {
		p.newRef = lockfile.RefPtr(req.Ref)
	}

	if obs.State == lockfile.StateModified {
		same, err := i.matchesCommit(ctx, mir.Dir, res.Commit, e.Source.SkillPath, obs.Digest)
		if err != nil {
			return nil, nil, err
		}
		if !same {
			return nil, &Skipped{InstallName: e.InstallName, Reason: SkipModified, From: e.Commit, To: res.Commit}, nil
		}
		p.Refresh = true
		p.Digest = obs.Digest
	}
	return p, nil, nil
}

// matchesCommit reports whether the tree of skillPath at commit hashes to want.
func (i *Installer) matchesCommit(ctx context.Context, mirrorDir, commit, skillPath, want string) (bool, error) {
	stage, err := i.extractStaged(ctx, mirrorDir, commit, skillPath)
	if err != nil {
		return false, err
	}
	defer func() { _ = os.RemoveAll(filepath.Dir(stage)) }()
	got, err := digest.Dir(stage)
	if err != nil {
		return false, err
	}
	return digest.Equal(got, want), nil
}

type swap struct {
	dest   string
	backup string
}

// apply stages every planned tree, swaps them in with backups, and writes the
// lockfile. Any failure restores every swapped directory.
func (i *Installer) apply(ctx context.Context, planned []PlannedUpgrade) (err error) {
	staging, err := os.MkdirTemp(i.layout.InstallRoot, ".sk-upgrade-")
	if err != nil {
		return fmt.Errorf("creating staging directory: %w", err)
	}
	defer func() { _ = os.RemoveAll(staging) }()

	staged := map[string]string{}
	for idx := range planned {
		p := &planned[idx]
		if p.Refresh {
			continue
		}
		dir := filepath.Join(staging, p.InstallName)
		if _, err := skills.Extract(ctx, i.git, p.mirrorDir, p.To, p.entry.Source.SkillPath, dir); err != nil {
			return fmt.Errorf("staging '%s': %w", p.InstallName, err)
		}
		d, err := digest.Dir(dir)
		if err != nil {
			return err
		}
		p.Digest = d
		staged[p.InstallName] = dir
	}

	var swaps []swap
	defer func() {
		if err != nil {
			rollback(swaps)
			return
		}
		for _, s := range swaps {
			_ = os.RemoveAll(s.backup)
		}
	}()
	for _, p := range planned {
		dir, ok := staged[p.InstallName]
		if !ok {
			continue
		}
		s, err := swapIn(dir, i.layout.InstallDir(p.InstallName), staging)
		if err != nil {
			return fmt.Errorf("replacing '%s': %w", p.InstallName, err)
		}
		swaps = append(swaps, s)
	}

	now := i.now()
	return lockfile.Edit(i.layout.LockfilePath(), now, func(lf *lockfile.Lockfile) error {
		for _, p := range planned {
			e, _ := lf.Find(p.InstallName)
			if e == nil {
				return skerr.Newf(skerr.KindLockfileCorruption, "lockfile lost entry '%s' during upgrade", p.InstallName)
			}
			e.Commit = p.To
			e.Digest = p.Digest
			e.InstalledAt = lockfile.Timestamp(now)
			if p.newRef != nil {
				e.Ref = p.newRef
			}
			i.logger.Info("upgraded skill", "skill", p.InstallName, "from", lockfile.Short(p.From), "to", lockfile.Short(p.To), "refresh", p.Refresh)
		}
		lf.Touch(now)
		return nil
	})
}

// swapIn moves dest aside into the staging directory and renames staged into place.
func swapIn(staged, dest, staging string) (swap, error) {
	backup := filepath.Join(staging, ".bak-"+filepath.Base(dest))
	if err := os.Rename(dest, backup); err != nil {
		return swap{}, fmt.Errorf("backing up %s: %w", dest, err)
	}
	if err := os.Rename(staged, dest); err != nil {
		_ = os.Rename(backup, dest)
		return swap{}, fmt.Errorf("moving new tree into %s: %w", dest, err)
	}
	return swap{dest: dest, backup: backup}, nil
}

func rollback(swaps []swap) {
	for idx := len(swaps) - 1; idx >= 0; idx-- {
		s := swaps[idx]
		_ = os.RemoveAll(s.dest)
		_ = os.Rename(s.backup, s.dest)
	}
}
