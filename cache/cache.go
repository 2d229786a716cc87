// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package cache maintains per-user mirrors of remote skill repositories and
// resolves refs to commits inside them.
//
// Every operation is additive to the cache root; nothing here touches a
// project tree or a lockfile.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/stacklok/skills-kit/logging"
	"github.com/stacklok/skills-kit/skerr"
	"github.com/stacklok/skills-kit/source"
	"github.com/stacklok/skills-kit/vcs"
)

// RefKind classifies a ref constraint.
type RefKind int

const (
	// RefDefault tracks the remote default branch.
	RefDefault RefKind = iota
	// RefBranch tracks a named branch.
	RefBranch
	// RefTag pins a tag.
	RefTag
	// RefCommit pins a literal commit.
	RefCommit
)

// String returns a short label.
func (k RefKind) String() string {
	switch k {
	case RefBranch:
		return "branch"
	case RefTag:
		return "tag"
	case RefCommit:
		return "commit"
	default:
		return "default"
	}
}

// Pinned reports whether the ref never moves on refresh.
func (k RefKind) Pinned() bool {
	return k == RefTag || k == RefCommit
}

// Mirror is a local clone of one remote.
type Mirror struct {
	Ref source.Ref
	Dir string
	// RefreshErr is set when an existing mirror could not be refreshed and is being reused as-is.
	RefreshErr error
}

// Stale reports whether the mirror was reused without a successful refresh.
func (m *Mirror) Stale() bool {
	return m.RefreshErr != nil
}

// Resolution is the outcome of resolving a ref constraint.
type Resolution struct {
	Commit string
	Kind   RefKind
	// Branch is the branch that was resolved for RefDefault and RefBranch.
	Branch string
}

// Manager owns the cache root.
type Manager struct {
	git    vcs.Git
	root   string
	logger *slog.Logger
}

// NewManager returns a Manager rooted at root.
func NewManager(git vcs.Git, root string, logger *slog.Logger) *Manager {
	return &Manager{git: git, root: root, logger: logging.OrDiscard(logger).With(logging.ComponentKey, "cache")}
}

// Root returns the cache root directory.
func (m *Manager) Root() string {
	return m.root
}

// MirrorPath returns where the mirror for ref lives (or would live).
//
// Hosted repositories map to <root>/<host>/<owner>/<repo>. file:// sources
// use a hashed leaf <repo>-<12 hex of sha256(url)> so two local paths with the
// same basename do not collide; an existing unhashed mirror is still honoured.
func (m *Manager) MirrorPath(ref source.Ref) string {
	primary := filepath.Join(m.root, ref.Host, ref.Owner, ref.Repo)
	if !ref.IsLocal() {
		return primary
	}
	sum := sha256.Sum256([]byte(ref.URL))
	hashed := filepath.Join(m.root, ref.Host, ref.Owner, ref.Repo+"-"+hex.EncodeToString(sum[:])[:12])
	if exists(hashed) {
		return hashed
	}
	if exists(primary) {
		return primary
	}
	return hashed
}

// Lookup returns the mirror for ref without touching the network.
// The second result is false when no mirror exists on disk.
func (m *Manager) Lookup(ref source.Ref) (*Mirror, bool) {
	dir := m.MirrorPath(ref)
	if !exists(dir) {
		return nil, false
	}
	return &Mirror{Ref: ref, Dir: dir}, true
}

// Ensure clones ref when absent, else fetches with pruning.
//
// A failed fetch of an existing mirror is not fatal: the mirror is returned
// with RefreshErr set so callers can warn that results may be stale.
func (m *Manager) Ensure(ctx context.Context, ref source.Ref) (*Mirror, error) {
	dir := m.MirrorPath(ref)
	log := m.logger.With("repo", ref.Slug(), "path", dir)

	if !exists(dir) {
		if err := os.MkdirAll(filepath.Dir(dir), 0o750); err != nil {
			return nil, fmt.Errorf("creating cache directory: %w", err)
		}
		var errs []error
		for _, u := range ref.CloneCandidates() {
			log.Info("cloning", "url", u)
			err := m.git.Clone(ctx, u, dir)
			if err == nil {
				return &Mirror{Ref: ref, Dir: dir}, nil
			}
			errs = append(errs, fmt.Errorf("clone %s: %w", u, err))
			_ = os.RemoveAll(dir)
		}
		return nil, skerr.WithHint(
			skerr.Wrap(skerr.KindRepoResolution, fmt.Errorf("unable to clone %s: %w", ref.Slug(), errors.Join(errs...))),
			"check the repository URL and your access to it",
		)
	}

	log.Debug("fetching")
	if err := m.git.Fetch(ctx, dir); err != nil {
		log.Warn("could not refresh cache; using existing mirror", "error", err)
		return &Mirror{Ref: ref, Dir: dir, RefreshErr: err}, nil
	}
	return &Mirror{Ref: ref, Dir: dir}, nil
}

// DefaultBranch prefers the mirror's cached origin/HEAD pointer and falls back
// to querying the remote, persisting the answer.
func (m *Manager) DefaultBranch(ctx context.Context, mir *Mirror) (string, error) {
	branch, err := m.git.OriginHead(ctx, mir.Dir)
	if err == nil && branch != "" && m.git.RefExists(ctx, mir.Dir, "refs/remotes/origin/"+branch) {
		return branch, nil
	}
	return m.RefreshDefaultBranch(ctx, mir)
}

// RefreshDefaultBranch asks the remote for its default branch and records it in the mirror.
func (m *Manager) RefreshDefaultBranch(ctx context.Context, mir *Mirror) (string, error) {
	var errs []error
	for _, u := range mir.Ref.CloneCandidates() {
		branch, err := m.git.RemoteDefaultBranch(ctx, u)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := m.git.SetOriginHead(ctx, mir.Dir, branch); err != nil {
			return "", fmt.Errorf("recording default branch %s: %w", branch, err)
		}
		return branch, nil
	}
	return "", skerr.Wrap(skerr.KindRepoResolution,
		fmt.Errorf("unable to determine default branch for %s: %w", mir.Ref.Slug(), errors.Join(errs...)))
}

// Classify decides how a ref constraint behaves without resolving it.
func (m *Manager) Classify(ctx context.Context, mir *Mirror, constraint string) RefKind {
	switch {
	case constraint == "":
		return RefDefault
	case m.git.RefExists(ctx, mir.Dir, "refs/remotes/origin/"+constraint):
		return RefBranch
	case m.git.RefExists(ctx, mir.Dir, "refs/tags/"+constraint):
		return RefTag
	default:
		return RefCommit
	}
}

// ResolveCommit resolves a ref constraint.
//
// Empty resolves the default branch tip, a branch resolves its tip, a tag or
// literal commit is verified and returned without following any branch.
func (m *Manager) ResolveCommit(ctx context.Context, mir *Mirror, constraint string) (Resolution, error) {
	kind := m.Classify(ctx, mir, constraint)
	switch kind {
	case RefDefault:
		branch, err := m.DefaultBranch(ctx, mir)
		if err != nil {
			return Resolution{}, err
		}
		id, err := m.git.RevParse(ctx, mir.Dir, "refs/remotes/origin/"+branch)
		if err != nil {
			return Resolution{}, skerr.Wrap(skerr.KindRepoResolution, fmt.Errorf("resolving %s in %s: %w", branch, mir.Ref.Slug(), err))
		}
		return Resolution{Commit: id, Kind: kind, Branch: branch}, nil
	case RefBranch:
		id, err := m.git.RevParse(ctx, mir.Dir, "refs/remotes/origin/"+constraint)
		if err != nil {
			return Resolution{}, skerr.Wrap(skerr.KindRepoResolution, fmt.Errorf("resolving branch %s in %s: %w", constraint, mir.Ref.Slug(), err))
		}
		return Resolution{Commit: id, Kind: kind, Branch: constraint}, nil
	case RefTag:
		id, err := m.git.RevParse(ctx, mir.Dir, "refs/tags/"+constraint+"^{commit}")
		if err != nil {
			return Resolution{}, skerr.Wrap(skerr.KindRepoResolution, fmt.Errorf("resolving tag %s in %s: %w", constraint, mir.Ref.Slug(), err))
		}
		return Resolution{Commit: id, Kind: kind}, nil
	default:
		id, err := m.git.RevParse(ctx, mir.Dir, constraint+"^{commit}")
		if err != nil {
			return Resolution{}, skerr.WithHint(
				skerr.Newf(skerr.KindUnreachableCommit, "ref %q not found in %s", constraint, mir.Ref.Slug()),
				"run 'sk update' or check the branch, tag or commit name",
			)
		}
		return Resolution{Commit: id, Kind: kind}, nil
	}
}

// HasCommit reports whether commit is present in the mirror.
func (m *Manager) HasCommit(ctx context.Context, mir *Mirror, commit string) bool {
	return m.git.HasObject(ctx, mir.Dir, commit)
}

// RefreshResult is the per-repository outcome of RefreshAll.
type RefreshResult struct {
	Ref    source.Ref
	Mirror *Mirror
	Err    error
}

// RefreshAll ensures every distinct repository in refs, in input order.
// A failure for one repository never stops the others.
func (m *Manager) RefreshAll(ctx context.Context, refs []source.Ref) []RefreshResult {
	seen := map[string]bool{}
	var results []RefreshResult
	for _, ref := range refs {
		dir := m.MirrorPath(ref)
		if seen[dir] {
			continue
		}
		seen[dir] = true
		mir, err := m.Ensure(ctx, ref)
		if err == nil && mir.Stale() {
			err = skerr.Wrap(skerr.KindRepoResolution, fmt.Errorf("could not refresh %s: %w", ref.Slug(), mir.RefreshErr))
		}
		if err == nil {
			_, err = m.RefreshDefaultBranch(ctx, mir)
		}
		results = append(results, RefreshResult{Ref: ref, Mirror: mir, Err: err})
	}
	return results
}

func exists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
