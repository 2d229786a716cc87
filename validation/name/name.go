// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package name

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/stacklok/skills-kit/skerr"
)

const maxLength = 128

var aliasRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9_.\-]*$`)

// ValidateInstallName checks that n can be used as an install directory name.
func ValidateInstallName(n string) error {
	if err := check(n); err != nil {
		return skerr.WithHint(
			skerr.Wrap(skerr.KindPrecondition, err),
			"pick a different name with --alias",
		)
	}
	return nil
}

func check(n string) error {
	if strings.TrimSpace(n) == "" {
		return fmt.Errorf("install name cannot be empty")
	}
	if strings.TrimSpace(n) != n {
		return fmt.Errorf("install name %q cannot have leading or trailing whitespace", n)
	}
	if len(n) > maxLength {
		return fmt.Errorf("install name is longer than %d characters", maxLength)
	}
	if strings.ContainsAny(n, `/\`) {
		return fmt.Errorf("install name %q cannot contain path separators", n)
	}
	if n == "." || n == ".." || strings.HasPrefix(n, ".") {
		return fmt.Errorf("install name %q cannot start with a dot", n)
	}
	for _, r := range n {
		if r == 0 || unicode.IsControl(r) {
			return fmt.Errorf("install name %q cannot contain control characters", n)
		}
	}
	return nil
}

// ValidateAlias checks a repository alias.
func ValidateAlias(alias string) error {
	if alias == "" {
		return skerr.New(skerr.KindPrecondition, "repo alias cannot be empty")
	}
	if len(alias) > maxLength || !aliasRegex.MatchString(alias) {
		return skerr.WithHint(
			skerr.Newf(skerr.KindPrecondition, "invalid repo alias %q", alias),
			"use lowercase letters, digits, '-', '_' or '.', starting with a letter or digit",
		)
	}
	return nil
}
