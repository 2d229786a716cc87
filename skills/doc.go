// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

/*
Package skills finds skills inside a repository tree and copies them out.

A skill is a directory containing a SKILL.md marker file that opens with a
front-matter block:

	---
	name: demo
	description: One line describing when to use the skill.
	---
	Free-form markdown follows.

name and description are required. The front matter is decoded as YAML;
when that fails, simple "key: value" lines are accepted so that unquoted
descriptions containing colons still parse.

# Discovery

[Discover] walks the tree of a commit through a [TreeReader] and returns one
[Descriptor] per valid marker file. Malformed markers are skipped with a
warning. [Select] narrows the result to exactly one descriptor by name, and
optionally by path, failing with a not-found or ambiguous-name error that
lists candidate paths.

# Extraction

[Extract] copies one skill subtree at a commit into a destination directory
using the repository's tar archive of that subtree. Path traversal, links and
special files are rejected.
*/
package skills
