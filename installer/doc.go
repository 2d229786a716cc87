// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package installer runs the project-level skill operations: install,
// upgrade, remove and the read-only inspections (list, check, status, diff).
//
// Every operation works against an explicit paths.Layout. Installed trees are
// written to a staging directory inside the install root first and renamed
// into place, so a failed operation never leaves a half-written skill behind.
package installer
