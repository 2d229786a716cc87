// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package catalog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSkill(t *testing.T, root, dir, name, description, body string) {
	t.Helper()
	p := filepath.Join(root, dir, "SKILL.md")
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o750))
	content := "---\nname: " + name + "\ndescription: " + description + "\n---\n" + body + "\n"
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
}

func newCatalog(t *testing.T) *Catalog {
	t.Helper()
	project := t.TempDir()
	root := filepath.Join(project, "skills")
	writeSkill(t, root, "notes", "notes", "Note keeper", "Use bd ready to find issues.")
	writeSkill(t, root, "sync", "sync", "Sync helper", "Sync skills via gh.")
	writeSkill(t, root, "alpha", "Alpha", "Alpha skill", "Alpha body")
	writeSkill(t, root, ".sk-stage-123/tree", "staged", "Half-written", "ignored")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "broken"), 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(root, "broken", "SKILL.md"), []byte("no front matter"), 0o600))
	return New(project, root, nil)
}

func TestScan(t *testing.T) {
	t.Parallel()

	c := newCatalog(t)
	records, err := c.Scan()
	require.NoError(t, err)

	names := make([]string, 0, len(records))
	for _, r := range records {
		names = append(names, r.InstallName)
	}
	assert.Equal(t, []string{"alpha", "notes", "sync"}, names)
	assert.Equal(t, "skills/alpha", records[0].SkillPath)
	assert.Equal(t, "skills/alpha/SKILL.md", records[0].SkillFile)
	assert.Equal(t, "Alpha body", records[0].Body)
	assert.Equal(t, "skills", c.RelRoot())
}

func TestScan_MissingRoot(t *testing.T) {
	t.Parallel()

	project := t.TempDir()
	_, err := New(project, filepath.Join(project, "nope"), nil).Scan()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nope")
}

func TestList(t *testing.T) {
	t.Parallel()

	c := newCatalog(t)
	all, err := c.List("  ")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	matched, err := c.List("SYNC")
	require.NoError(t, err)
	require.Len(t, matched, 1)
	assert.Equal(t, "sync", matched[0].InstallName)
	assert.Empty(t, matched[0].Summary(false).Body)
	assert.NotEmpty(t, matched[0].Summary(true).Body)
}

func TestSearch(t *testing.T) {
	t.Parallel()

	c := newCatalog(t)
	hits, total, err := c.Search("bd Ready", 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, hits, 1)
	assert.Equal(t, "notes", hits[0].InstallName)
	assert.Equal(t, 2, hits[0].Score)
	assert.Contains(t, hits[0].Excerpt, "bd ready")
	assert.Empty(t, hits[0].Body)

	hits, total, err = c.Search("skill", 1)
	require.NoError(t, err)
	assert.Equal(t, 2, total, "alpha by description, sync by body")
	require.Len(t, hits, 1)
	assert.Equal(t, "alpha", hits[0].InstallName)
	assert.Equal(t, "Alpha skill", hits[0].Excerpt, "description when the body has no match")

	_, _, err = c.Search("   ", 5)
	assert.ErrorIs(t, err, ErrEmptyQuery)
}

func TestClampLimit(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, want int
	}{
		{in: 0, want: DefaultSearchLimit},
		{in: -3, want: DefaultSearchLimit},
		{in: 5, want: 5},
		{in: 100, want: MaxSearchLimit},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClampLimit(tt.in))
	}
}

func TestFind(t *testing.T) {
	t.Parallel()

	c := newCatalog(t)
	r, err := c.Find("ALPHA")
	require.NoError(t, err)
	assert.Equal(t, "alpha", r.InstallName)

	_, err = c.Find("ghost")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown skill")
}

func TestSnippet(t *testing.T) {
	t.Parallel()

	text := strings.Repeat("a", 100) + "\nneedle\n" + strings.Repeat("b", 100)
	got := snippet(text, 101, len("needle"))
	assert.Contains(t, got, "needle")
	assert.NotContains(t, got, "\n")
	assert.LessOrEqual(t, len(got), 2*excerptRadius+len("needle"))
}
