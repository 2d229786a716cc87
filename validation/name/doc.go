// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

/*
Package name validates the names sk writes to disk and to the lockfile.

# Install names

An install name becomes a directory under the install root, so it must be a
single path element:

	if err := name.ValidateInstallName("pdf-tools"); err != nil {
		// Handle invalid install name
	}

Valid install names must:
  - Be non-empty and have no leading or trailing whitespace
  - Not contain path separators, null bytes or control characters
  - Not be "." or ".." and not start with "." (hidden entries are reserved)

# Repo aliases

Aliases registered with "sk repo add" are lowercase alphanumeric with
dashes, underscores and dots, starting with a letter or digit:

	"team-skills"   // valid
	"Team Skills"   // invalid
*/
package name
