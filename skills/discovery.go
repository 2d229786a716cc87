// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package skills

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"sort"
	"strings"

	"github.com/stacklok/skills-kit/logging"
	"github.com/stacklok/skills-kit/skerr"
)

// TreeReader reads repository trees at a commit.
type TreeReader interface {
	ListFiles(ctx context.Context, dir, commit string) ([]string, error)
	ShowFile(ctx context.Context, dir, commit, path string) ([]byte, error)
}

// RootPath is the path of a skill whose SKILL.md sits at the repository root.
const RootPath = "."

// Descriptor is a skill found in a repository tree.
type Descriptor struct {
	// Path is the directory of the skill within the repository, "." for the root.
	Path string
	Meta Metadata
}

// Name returns the declared skill name.
func (d Descriptor) Name() string {
	return d.Meta.Name
}

// MarkerPath returns the repository path of the descriptor's SKILL.md.
func (d Descriptor) MarkerPath() string {
	if d.Path == RootPath {
		return MarkerFile
	}
	return d.Path + "/" + MarkerFile
}

// Discover returns every valid skill in the tree of commit, sorted by path.
// Invalid SKILL.md files are logged and skipped.
func Discover(ctx context.Context, tree TreeReader, dir, commit string, logger *slog.Logger) ([]Descriptor, error) {
	logger = logging.OrDiscard(logger)
	files, err := tree.ListFiles(ctx, dir, commit)
	if err != nil {
		return nil, fmt.Errorf("listing tree at %s: %w", short(commit), err)
	}

	var found []Descriptor
	for _, f := range files {
		if !isMarker(f) {
			continue
		}
		content, err := tree.ShowFile(ctx, dir, commit, f)
		if err != nil {
			logger.Warn("skipping unreadable SKILL.md", "path", f, "error", err)
			continue
		}
		meta, err := Parse(content)
		if err != nil {
			logger.Warn("skipping invalid SKILL.md", "path", f, "error", err)
			continue
		}
		found = append(found, Descriptor{Path: dirOf(f), Meta: *meta})
	}
	sort.Slice(found, func(i, j int) bool { return found[i].Path < found[j].Path })
	return found, nil
}

// Select picks exactly one descriptor named name. When explicitPath is set
// the descriptor at that path is used and its declared name must match.
// repoLabel is used in error messages.
func Select(found []Descriptor, name, explicitPath, repoLabel string) (Descriptor, error) {
	if explicitPath != "" {
		want := NormalizePath(explicitPath)
		for _, d := range found {
			if d.Path != want {
				continue
			}
			if d.Meta.Name != name {
				return Descriptor{}, skerr.WithHint(
					skerr.Newf(skerr.KindUnitNotFound, "skill at path '%s' in %s is named '%s', not '%s'", want, repoLabel, d.Meta.Name, name),
					fmt.Sprintf("use the declared name '%s' or pick a different --path", d.Meta.Name),
				)
			}
			return d, nil
		}
		return Descriptor{}, skerr.Newf(skerr.KindUnitNotFound, "no valid SKILL.md at path '%s' in %s", want, repoLabel)
	}

	var matches []Descriptor
	for _, d := range found {
		if d.Meta.Name == name {
			matches = append(matches, d)
		}
	}
	switch len(matches) {
	case 0:
		return Descriptor{}, skerr.WithHint(
			skerr.Newf(skerr.KindUnitNotFound, "skill '%s' not found in %s", name, repoLabel),
			"run 'sk repo search --repo "+repoLabel+" --all' to list available skills",
		)
	case 1:
		return matches[0], nil
	}
	paths := make([]string, 0, len(matches))
	for _, m := range matches {
		paths = append(paths, m.Path)
	}
	return Descriptor{}, skerr.WithHint(
		skerr.Newf(skerr.KindAmbiguousUnit, "multiple skills named '%s' in %s: %s", name, repoLabel, strings.Join(paths, ", ")),
		fmt.Sprintf("re-run with --path <one of: %s>", strings.Join(paths, ", ")),
	)
}

// NormalizePath canonicalises a user-supplied skill path: leading "./" and
// surrounding slashes are dropped, and the empty path means the root.
func NormalizePath(p string) string {
	p = strings.TrimSpace(strings.ReplaceAll(p, "\\", "/"))
	for strings.HasPrefix(p, "./") {
		p = p[2:]
	}
	p = strings.Trim(p, "/")
	if p == "" || p == "." {
		return RootPath
	}
	return path.Clean(p)
}

func isMarker(f string) bool {
	if f != MarkerFile && !strings.HasSuffix(f, "/"+MarkerFile) {
		return false
	}
	for _, part := range strings.Split(f, "/") {
		if part == ".git" {
			return false
		}
	}
	return true
}

func dirOf(markerPath string) string {
	if markerPath == MarkerFile {
		return RootPath
	}
	return strings.TrimSuffix(markerPath, "/"+MarkerFile)
}

func short(commit string) string {
	if len(commit) > 7 {
		return commit[:7]
	}
	return commit
}
