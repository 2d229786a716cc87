// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package doctor reconciles a project's lockfile, installed trees and the
// per-user cache. Every finding carries exactly one follow-up action; apply
// mode performs only the repairs that cannot lose local edits.
package doctor
