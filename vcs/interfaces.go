// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package vcs

import "context"

// Git is the capability surface used by the cache manager, installer,
// publisher and doctor. dir arguments name either a mirror or a worktree.
type Git interface {
	// TopLevel returns the root of the working tree containing dir.
	TopLevel(ctx context.Context, dir string) (string, error)

	// Clone creates a mirror of url at dir.
	Clone(ctx context.Context, url, dir string) error
	// Fetch refreshes dir from origin, pruning deleted remote branches.
	Fetch(ctx context.Context, dir string) error

	// OriginHead returns the branch refs/remotes/origin/HEAD points at,
	// or "" when the pointer is absent.
	OriginHead(ctx context.Context, dir string) (string, error)
	// RemoteDefaultBranch asks the remote at url for its HEAD branch.
	RemoteDefaultBranch(ctx context.Context, url string) (string, error)
	// SetOriginHead persists branch as the mirror's default.
	SetOriginHead(ctx context.Context, dir, branch string) error

	// RefExists reports whether a fully qualified ref exists in dir.
	RefExists(ctx context.Context, dir, ref string) bool
	// RevParse resolves rev to a full commit id.
	RevParse(ctx context.Context, dir, rev string) (string, error)
	// HasObject reports whether oid exists in dir's object store.
	HasObject(ctx context.Context, dir, oid string) bool

	// ListFiles returns every file path in the tree of commit.
	ListFiles(ctx context.Context, dir, commit string) ([]string, error)
	// ShowFile returns the content of path at commit.
	ShowFile(ctx context.Context, dir, commit, path string) ([]byte, error)
	// Archive returns a tar stream of path at commit. Entry names keep
	// their repository-relative prefix. path "." archives the whole tree.
	Archive(ctx context.Context, dir, commit, path string) ([]byte, error)

	// AddWorktree checks out commit into worktree on a new branch.
	AddWorktree(ctx context.Context, dir, branch, worktree, commit string) error
	// RemoveWorktree forcibly removes a worktree created by AddWorktree.
	RemoveWorktree(ctx context.Context, dir, worktree string) error
	// DeleteBranch forcibly deletes a local branch in dir.
	DeleteBranch(ctx context.Context, dir, branch string) error
	// CommitAll stages every change in worktree and commits it.
	// It returns false without error when there was nothing to commit.
	CommitAll(ctx context.Context, worktree, message string) (bool, error)
	// Push pushes branch from worktree to origin and sets upstream.
	Push(ctx context.Context, worktree, branch string) error
}
