// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package installer

import (
	"context"
	"fmt"
	"os"

	"github.com/stacklok/skills-kit/cache"
	"github.com/stacklok/skills-kit/lockfile"
	"github.com/stacklok/skills-kit/skerr"
)

// RemoveOptions modify Remove.
type RemoveOptions struct {
	// Force removes a modified or missing install.
	Force bool
	// PruneCache deletes the cache mirror once no other entry uses it.
	PruneCache bool
}

// RemoveResult describes what Remove did.
type RemoveResult struct {
	Entry lockfile.Entry
	// PrunedMirror is the cache mirror removed, if any.
	PrunedMirror string
}

// Remove deletes an installed skill and its lock entry.
func (i *Installer) Remove(_ context.Context, installName string, opts RemoveOptions) (*RemoveResult, error) {
	lf, err := i.requireLockfile()
	if err != nil {
		return nil, err
	}
	e, err := i.find(lf, installName)
	if err != nil {
		return nil, err
	}
	entry := *e

	dest := i.layout.InstallDir(installName)
	obs, err := lockfile.Observe(&entry, dest)
	if err != nil && !opts.Force {
		return nil, fmt.Errorf("checking '%s': %w", installName, err)
	}
	switch {
	case err != nil || opts.Force:
		// forced: whatever is on disk goes
	case obs.State == lockfile.StateModified:
		return nil, skerr.WithHint(
			skerr.Newf(skerr.KindModifiedState, "local edits detected in '%s'; refusing to remove", installName),
			fmt.Sprintf("run 'sk sync-back %s' to publish them, or 'sk remove %s --force' to discard them", installName, installName),
		)
	case obs.State == lockfile.StateMissing:
		return nil, skerr.WithHint(
			skerr.Newf(skerr.KindPrecondition, "installed directory for '%s' is missing", installName),
			fmt.Sprintf("run 'sk doctor --apply' to rebuild it, or 'sk remove %s --force' to drop the entry", installName),
		)
	}

	if err := os.RemoveAll(dest); err != nil {
		return nil, fmt.Errorf("removing %s: %w", dest, err)
	}
	var remaining *lockfile.Lockfile
	err = lockfile.Edit(i.layout.LockfilePath(), i.now(), func(lf *lockfile.Lockfile) error {
		lf.Remove(installName)
		lf.Touch(i.now())
		remaining = lf
		return nil
	})
	if err != nil {
		return nil, err
	}
	i.logger.Info("removed skill", "skill", installName)

	res := &RemoveResult{Entry: entry}
	if opts.PruneCache {
		dir := i.cache.MirrorPath(entry.Source.RemoteRef())
		if !referencesMirror(i.cache, remaining, dir) {
			if _, ok := i.cache.Lookup(entry.Source.RemoteRef()); ok {
				if err := i.cache.Remove(dir); err != nil {
					i.logger.Warn("could not prune cache mirror", "path", dir, "error", err)
				} else {
					res.PrunedMirror = dir
				}
			}
		}
	}
	return res, nil
}

func referencesMirror(m *cache.Manager, lf *lockfile.Lockfile, dir string) bool {
	for _, s := range lf.Skills {
		if m.MirrorPath(s.Source.RemoteRef()) == dir {
			return true
		}
	}
	return false
}
