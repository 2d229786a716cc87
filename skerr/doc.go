// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

/*
Package skerr provides the error taxonomy shared by every sk component.

An [Error] carries a [Kind] and an optional hint naming the command that
resolves the failure. Kinds travel through the call stack so that the
command layer can choose an exit status and print the hint without knowing
which component failed.

# Basic Usage

	return skerr.New(skerr.KindUnitNotFound, "skill 'demo' not found in acme/skills")

	err = skerr.Wrap(skerr.KindRepoResolution, fmt.Errorf("clone %s: %w", url, err))

	return skerr.WithHint(
		skerr.Newf(skerr.KindModifiedState, "skill '%s' has local modifications", name),
		fmt.Sprintf("run 'sk sync-back %s' or revert your changes", name),
	)

# Inspecting Errors

	skerr.KindOf(err)   // KindInternal when no Error is in the chain
	skerr.HintOf(err)   // first non-empty hint in the chain
	skerr.ExitCode(err) // 0 for nil

Error supports errors.Is and errors.As through Unwrap.
*/
package skerr
