// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package syncback

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacklok/skills-kit/env"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o750))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	}
}

func TestCopySync(t *testing.T) {
	t.Parallel()

	src := t.TempDir()
	dst := t.TempDir()
	writeTree(t, src, map[string]string{
		"SKILL.md":       "marker\n",
		"scripts/run.sh": "echo hi\n",
		".git/HEAD":      "ignored\n",
	})
	require.NoError(t, os.Chmod(filepath.Join(src, "scripts", "run.sh"), 0o755))
	require.NoError(t, os.Symlink("scripts/run.sh", filepath.Join(src, "run")))

	writeTree(t, dst, map[string]string{
		".git":        "gitdir: /elsewhere\n",
		"stale.md":    "remove me\n",
		"scripts/old": "remove me\n",
		"SKILL.md":    "old marker\n",
	})

	require.NoError(t, Copy{}.Sync(t.Context(), src, dst))

	data, err := os.ReadFile(filepath.Join(dst, "SKILL.md"))
	require.NoError(t, err)
	assert.Equal(t, "marker\n", string(data))

	info, err := os.Stat(filepath.Join(dst, "scripts", "run.sh"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o755), info.Mode().Perm())

	link, err := os.Readlink(filepath.Join(dst, "run"))
	require.NoError(t, err)
	assert.Equal(t, "scripts/run.sh", link)

	gitFile, err := os.ReadFile(filepath.Join(dst, ".git"))
	require.NoError(t, err)
	assert.Equal(t, "gitdir: /elsewhere\n", string(gitFile), ".git in the destination is kept")

	assert.NoFileExists(t, filepath.Join(dst, "stale.md"))
	assert.NoFileExists(t, filepath.Join(dst, "scripts", "old"))
}

func TestCopySync_CreatesDestination(t *testing.T) {
	t.Parallel()

	src := t.TempDir()
	writeTree(t, src, map[string]string{"SKILL.md": "marker\n"})
	dst := filepath.Join(t.TempDir(), "nested", "skill")

	require.NoError(t, Copy{}.Sync(t.Context(), src, dst))
	assert.FileExists(t, filepath.Join(dst, "SKILL.md"))
}

func TestRsyncForcedMissing(t *testing.T) {
	t.Parallel()

	r := NewRsync(env.MapReader{ForceRsyncMissingEnv: "1"})
	a := r.Availability(t.Context())
	assert.False(t, a.OK())
	assert.Contains(t, a.Reason(), ForceRsyncMissingEnv)
	assert.Error(t, r.Sync(t.Context(), t.TempDir(), t.TempDir()))
}
