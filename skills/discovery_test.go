// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package skills

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacklok/skills-kit/logging"
	"github.com/stacklok/skills-kit/skerr"
	"github.com/stacklok/skills-kit/vcs/vcstest"
)

const url = "git@github.com:acme/skills.git"

func marker(name string) string {
	return "---\nname: " + name + "\ndescription: about " + name + "\n---\nbody\n"
}

func discoverFixture(t *testing.T, files map[string]string) (*vcstest.Fake, string, string) {
	t.Helper()
	fake := vcstest.New()
	remote := fake.AddRemote("main", url)
	commit := remote.CommitStrings("main", files)
	dir := t.TempDir() + "/mirror"
	require.NoError(t, fake.Clone(context.Background(), url, dir))
	return fake, dir, commit
}

func TestDiscover(t *testing.T) {
	t.Parallel()

	fake, dir, commit := discoverFixture(t, map[string]string{
		"SKILL.md":                 marker("root-skill"),
		"skills/alpha/SKILL.md":    marker("alpha"),
		"skills/alpha/ref.md":      "ref",
		"deep/nested/beta/SKILL.md": marker("beta"),
		"broken/SKILL.md":          "# no front matter\n",
		"skills/alpha/NOTSKILL.md": marker("ignored"),
	})

	var logs bytes.Buffer
	found, err := Discover(context.Background(), fake, dir, commit, logging.New(logging.WithOutput(&logs), logging.WithLevel(slog.LevelWarn)))
	require.NoError(t, err)

	var paths, names []string
	for _, d := range found {
		paths = append(paths, d.Path)
		names = append(names, d.Name())
	}
	assert.Equal(t, []string{".", "deep/nested/beta", "skills/alpha"}, paths)
	assert.Equal(t, []string{"root-skill", "beta", "alpha"}, names)
	assert.Contains(t, logs.String(), "broken/SKILL.md")
	assert.Equal(t, "SKILL.md", found[0].MarkerPath())
	assert.Equal(t, "skills/alpha/SKILL.md", found[2].MarkerPath())
}

func TestSelect(t *testing.T) {
	t.Parallel()

	found := []Descriptor{
		{Path: "a/dup", Meta: Metadata{Name: "dup", Description: "d"}},
		{Path: "b/dup", Meta: Metadata{Name: "dup", Description: "d"}},
		{Path: "solo", Meta: Metadata{Name: "solo", Description: "d"}},
	}

	t.Run("unique name", func(t *testing.T) {
		t.Parallel()
		d, err := Select(found, "solo", "", "acme/skills")
		require.NoError(t, err)
		assert.Equal(t, "solo", d.Path)
	})

	t.Run("ambiguous name lists candidates", func(t *testing.T) {
		t.Parallel()
		_, err := Select(found, "dup", "", "acme/skills")
		require.Error(t, err)
		assert.Equal(t, skerr.KindAmbiguousUnit, skerr.KindOf(err))
		assert.Contains(t, err.Error(), "a/dup")
		assert.Contains(t, err.Error(), "b/dup")
		assert.Contains(t, skerr.HintOf(err), "--path")
	})

	t.Run("explicit path disambiguates", func(t *testing.T) {
		t.Parallel()
		d, err := Select(found, "dup", "./b/dup/", "acme/skills")
		require.NoError(t, err)
		assert.Equal(t, "b/dup", d.Path)
	})

	t.Run("explicit path with wrong name", func(t *testing.T) {
		t.Parallel()
		_, err := Select(found, "other", "solo", "acme/skills")
		require.Error(t, err)
		assert.Equal(t, skerr.KindUnitNotFound, skerr.KindOf(err))
	})

	t.Run("missing name", func(t *testing.T) {
		t.Parallel()
		_, err := Select(found, "nope", "", "acme/skills")
		require.Error(t, err)
		assert.Equal(t, skerr.KindUnitNotFound, skerr.KindOf(err))
	})

	t.Run("missing path", func(t *testing.T) {
		t.Parallel()
		_, err := Select(found, "dup", "c/dup", "acme/skills")
		assert.Equal(t, skerr.KindUnitNotFound, skerr.KindOf(err))
	})
}

func TestNormalizePath(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"":              ".",
		".":             ".",
		"./":            ".",
		"/":             ".",
		"./skills/demo": "skills/demo",
		"/skills/demo/": "skills/demo",
		"skills//demo":  "skills/demo",
		`skills\demo`:   "skills/demo",
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizePath(in), "input %q", in)
	}
}
