// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

/*
Package lockfile reads and writes skills.lock.json, the project's record of
installed skills.

Each entry binds a unique install name to a source repository and path, an
optional ref constraint, the resolved commit and the content digest of the
installed tree. Entries are observed as clean, modified or missing by
recomputing the digest on demand (see [Observe]).

Reads are validated against an embedded JSON schema; any failure is a
lockfile-corruption error and no caller may mutate anything afterwards. Writes
go through [Save], which replaces the file atomically.

	err := lockfile.Edit(path, time.Now(), func(lf *lockfile.Lockfile) error {
		lf.Upsert(entry)
		lf.Touch(time.Now())
		return nil
	})
*/
package lockfile
