// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

/*
Package syncback publishes locally edited skills to their source repositories.

A Publisher checks out a fresh branch in a worktree of the cached mirror,
rooted at the locked commit, mirrors the installed tree over the skill path,
commits and pushes. When a review tool is available it then opens a pull
request, arms auto-merge and waits a bounded time for the merge to land.

	pub := syncback.New(layout, vcs.NewCLI(logger), syncback.WithLogger(logger))
	res, err := pub.Publish(ctx, syncback.Request{InstallName: "lint"})

rsync and gh are optional. Without rsync the tree is copied; without gh the
pushed branch is reported as a follow-up for the user.
*/
package syncback
