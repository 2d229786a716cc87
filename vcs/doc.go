// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

/*
Package vcs defines the narrow set of version-control capabilities sk needs
and a process-backed implementation that shells out to git.

Callers depend on the [Git] interface only. Production code uses [CLI];
tests use the in-memory fake in the vcstest sub-package, which models
remotes, mirrors and worktrees without spawning processes.

Every method that talks to git blocks until the child process exits. A
failing invocation returns a [*CommandError] that carries the raw stderr so
that user-facing messages can surface the tool's own explanation.
*/
package vcs
