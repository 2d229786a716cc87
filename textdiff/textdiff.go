// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package textdiff renders unified diffs between two skill trees.
package textdiff

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/stacklok/skills-kit/digest"
)

// DefaultContext is the number of context lines per hunk.
const DefaultContext = 3

const devNull = "/dev/null"

// Unified returns the unified diff of a and b, or "" when they are equal.
func Unified(aName, bName string, a, b []byte, context int) (string, error) {
	if bytes.Equal(a, b) {
		return "", nil
	}
	if isBinary(a) || isBinary(b) {
		return fmt.Sprintf("Binary files %s and %s differ\n", aName, bName), nil
	}
	if context <= 0 {
		context = DefaultContext
	}
	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        splitLines(a),
		B:        splitLines(b),
		FromFile: aName,
		ToFile:   bName,
		Context:  context,
	})
}

// Dirs diffs every file of two trees using the digest's file set, so ignored
// files never show up. Paths are labelled aPrefix/<rel> and bPrefix/<rel>.
// Content is compared after line-ending normalisation.
func Dirs(aDir, bDir, aPrefix, bPrefix string) (string, error) {
	aFiles, err := filesOf(aDir)
	if err != nil {
		return "", err
	}
	bFiles, err := filesOf(bDir)
	if err != nil {
		return "", err
	}

	all := map[string]bool{}
	for _, f := range aFiles {
		all[f] = true
	}
	for _, f := range bFiles {
		all[f] = true
	}
	rels := make([]string, 0, len(all))
	for f := range all {
		rels = append(rels, f)
	}
	sort.Strings(rels)

	var out strings.Builder
	for _, rel := range rels {
		a, aName, err := side(aDir, rel, aPrefix)
		if err != nil {
			return "", err
		}
		b, bName, err := side(bDir, rel, bPrefix)
		if err != nil {
			return "", err
		}
		d, err := Unified(aName, bName, a, b, DefaultContext)
		if err != nil {
			return "", fmt.Errorf("diffing %s: %w", rel, err)
		}
		out.WriteString(d)
	}
	return out.String(), nil
}

func filesOf(dir string) ([]string, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil, nil
	}
	return digest.Files(dir)
}

func side(dir, rel, prefix string) ([]byte, string, error) {
	p := filepath.Join(dir, filepath.FromSlash(rel))
	data, err := os.ReadFile(p) //#nosec G304 -- rel comes from walking dir
	if os.IsNotExist(err) {
		return nil, devNull, nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("reading %s: %w", p, err)
	}
	return digest.NormalizeLineEndings(data), prefix + "/" + rel, nil
}

func splitLines(b []byte) []string {
	if len(b) == 0 {
		return []string{}
	}
	return strings.SplitAfter(string(b), "\n")
}

func isBinary(b []byte) bool {
	return bytes.IndexByte(b, 0) >= 0
}
