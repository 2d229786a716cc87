// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package digest

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o750))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	}
}

func TestDir_KnownValue(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeTree(t, dir, map[string]string{
		"SKILL.md":     "---\nname: demo\n---\n",
		"refs/a.md":    "alpha",
		"refs/B.md":    "bravo",
		".git/HEAD":    "ignored",
		"notes.md~":    "ignored",
		".DS_Store":    "ignored",
		"draft.md.swp": "ignored",
	})

	h := sha256.New()
	for _, f := range [][2]string{{"SKILL.md", "---\nname: demo\n---\n"}, {"refs/B.md", "bravo"}, {"refs/a.md", "alpha"}} {
		var size [8]byte
		binary.BigEndian.PutUint64(size[:], uint64(len(f[1])))
		h.Write([]byte(f[0]))
		h.Write([]byte{0})
		h.Write(size[:])
		h.Write([]byte(f[1]))
	}
	want := "sha256:" + hex.EncodeToString(h.Sum(nil))

	got, err := Dir(dir)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	files, err := Files(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"SKILL.md", "refs/B.md", "refs/a.md"}, files)
}

func TestDir_StableAcrossModesAndCreationOrder(t *testing.T) {
	t.Parallel()

	a := t.TempDir()
	b := t.TempDir()
	writeTree(t, a, map[string]string{"x/1": "one", "x/2": "two"})
	writeTree(t, b, map[string]string{"x/2": "two"})
	writeTree(t, b, map[string]string{"x/1": "one"})
	require.NoError(t, os.Chmod(filepath.Join(b, "x", "1"), 0o700))

	da, err := Dir(a)
	require.NoError(t, err)
	db, err := Dir(b)
	require.NoError(t, err)
	assert.Equal(t, da, db)
}

func TestDir_DetectsChanges(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(t *testing.T, dir string)
	}{
		{"content byte", func(t *testing.T, dir string) {
			t.Helper()
			writeTree(t, dir, map[string]string{"SKILL.md": "body!"})
		}},
		{"new file", func(t *testing.T, dir string) {
			t.Helper()
			writeTree(t, dir, map[string]string{"extra.md": ""})
		}},
		{"rename", func(t *testing.T, dir string) {
			t.Helper()
			require.NoError(t, os.Rename(filepath.Join(dir, "SKILL.md"), filepath.Join(dir, "skill.md")))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			dir := t.TempDir()
			writeTree(t, dir, map[string]string{"SKILL.md": "body"})
			before, err := Dir(dir)
			require.NoError(t, err)

			tt.mutate(t, dir)

			after, err := Dir(dir)
			require.NoError(t, err)
			assert.NotEqual(t, before, after)
		})
	}
}

func TestDir_PathAndContentAreFramed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		a, b map[string]string
	}{
		{"boundary shift", map[string]string{"a": "bX"}, map[string]string{"ab": "X"}},
		{"content moved between files", map[string]string{"a": "xy", "b": ""}, map[string]string{"a": "x", "b": "y"}},
		{"empty file vs none", map[string]string{"a": "x", "b": ""}, map[string]string{"a": "x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			a, b := t.TempDir(), t.TempDir()
			writeTree(t, a, tt.a)
			writeTree(t, b, tt.b)
			da, err := Dir(a)
			require.NoError(t, err)
			db, err := Dir(b)
			require.NoError(t, err)
			assert.NotEqual(t, da, db)
		})
	}
}

func TestDir_CRLFNormalisation(t *testing.T) {
	t.Parallel()

	lf := t.TempDir()
	crlf := t.TempDir()
	writeTree(t, lf, map[string]string{"SKILL.md": "a\nb\n"})
	writeTree(t, crlf, map[string]string{"SKILL.md": "a\r\nb\r\n"})

	d1, err := Dir(lf)
	require.NoError(t, err)
	d2, err := Dir(crlf)
	require.NoError(t, err)
	assert.Equal(t, d1, d2)

	binLF := t.TempDir()
	binCRLF := t.TempDir()
	writeTree(t, binLF, map[string]string{"blob": "\x00a\nb"})
	writeTree(t, binCRLF, map[string]string{"blob": "\x00a\r\nb"})
	d3, err := Dir(binLF)
	require.NoError(t, err)
	d4, err := Dir(binCRLF)
	require.NoError(t, err)
	assert.NotEqual(t, d3, d4, "binary content must not be normalised")
}

func TestDir_Errors(t *testing.T) {
	t.Parallel()

	_, err := Dir(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)

	f := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(f, nil, 0o600))
	_, err = Dir(f)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	d, err := Dir(t.TempDir())
	require.NoError(t, err)
	assert.NoError(t, Validate(d))
	assert.Error(t, Validate("sha256:xyz"))
	assert.Error(t, Validate("deadbeef"))
	assert.Error(t, Validate("sha512:"+hex.EncodeToString(make([]byte, 64))))
	assert.True(t, Equal(d, " "+d))
}
