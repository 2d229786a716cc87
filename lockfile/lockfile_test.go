// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package lockfile

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacklok/skills-kit/digest"
	"github.com/stacklok/skills-kit/skerr"
	"github.com/stacklok/skills-kit/source"
)

var (
	fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	acme     = source.Ref{URL: "git@github.com:acme/skills.git", Host: "github.com", Owner: "acme", Repo: "skills"}
)

const (
	commitA = "1111111111111111111111111111111111111111"
	digestA = "sha256:aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
)

func entry(name string) Entry {
	return Entry{
		InstallName: name,
		Source:      SourceFrom(acme, "skills/"+name),
		Commit:      commitA,
		Digest:      digestA,
		InstalledAt: Timestamp(fixedNow),
	}
}

func TestSaveAndLoad_RoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "skills.lock.json")
	lf := New(fixedNow)
	pinned := entry("pinned")
	pinned.Ref = RefPtr("v1.0.0")
	require.NoError(t, lf.Add(entry("demo")))
	require.NoError(t, lf.Add(pinned))
	require.NoError(t, Save(path, lf))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"ref": null`)
	assert.Contains(t, string(raw), `"ref": "v1.0.0"`)
	assert.True(t, strings.HasSuffix(string(raw), "}\n"))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, lf, got)
	assert.Equal(t, "", got.Skills[0].RefString())
	assert.Equal(t, "v1.0.0", got.Skills[1].RefString())

	// no temp files left behind
	names, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, names, 1)
}

func TestLoad_Corrupt(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
	}{
		{"not json", "{not json"},
		{"wrong version", `{"version":2,"skills":[],"generatedAt":"x"}`},
		{"missing skills", `{"version":1,"generatedAt":"x"}`},
		{"bad digest", `{"version":1,"generatedAt":"x","skills":[{"installName":"a","source":{"url":"u","host":"h","owner":"o","repo":"r","skillPath":"a"},"ref":null,"commit":"1111111","digest":"md5:00","installedAt":"x"}]}`},
		{"bad commit", `{"version":1,"generatedAt":"x","skills":[{"installName":"a","source":{"url":"u","host":"h","owner":"o","repo":"r","skillPath":"a"},"ref":null,"commit":"HEAD","digest":"` + digestA + `","installedAt":"x"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			path := filepath.Join(t.TempDir(), "skills.lock.json")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o600))

			_, err := Load(path)
			require.Error(t, err)
			assert.Equal(t, skerr.KindLockfileCorruption, skerr.KindOf(err))
			assert.Contains(t, skerr.HintOf(err), "version control")
		})
	}
}

func TestLoadOrEmpty_Missing(t *testing.T) {
	t.Parallel()

	lf, err := LoadOrEmpty(filepath.Join(t.TempDir(), "skills.lock.json"), fixedNow)
	require.NoError(t, err)
	assert.Equal(t, Version, lf.Version)
	assert.Empty(t, lf.Skills)
	assert.Equal(t, "2026-03-01T12:00:00Z", lf.GeneratedAt)
}

func TestEdit_ErrorWritesNothing(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "skills.lock.json")
	require.NoError(t, Save(path, New(fixedNow)))
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	err = Edit(path, fixedNow, func(lf *Lockfile) error {
		lf.Upsert(entry("demo"))
		return skerr.New(skerr.KindPrecondition, "nope")
	})
	require.Error(t, err)

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestEntries(t *testing.T) {
	t.Parallel()

	lf := New(fixedNow)
	require.NoError(t, lf.Add(entry("zeta")))
	require.NoError(t, lf.Add(entry("alpha")))

	err := lf.Add(entry("alpha"))
	require.Error(t, err)
	assert.Equal(t, skerr.KindPrecondition, skerr.KindOf(err))

	updated := entry("zeta")
	updated.Commit = "2222222222222222222222222222222222222222"
	lf.Upsert(updated)
	e, i := lf.Find("zeta")
	require.NotNil(t, e)
	assert.Equal(t, 0, i)
	assert.Equal(t, "2222222", e.ShortCommit())

	assert.False(t, lf.Sorted())
	lf.SortEntries()
	assert.True(t, lf.Sorted())
	assert.Equal(t, "alpha", lf.Skills[0].InstallName)

	assert.True(t, lf.Remove("alpha"))
	assert.False(t, lf.Remove("alpha"))
	assert.Len(t, lf.Skills, 1)
}

func TestDuplicatesAndSources(t *testing.T) {
	t.Parallel()

	other := source.Ref{URL: "https://github.com/acme/more.git", Host: "github.com", Owner: "acme", Repo: "more"}
	lf := New(fixedNow)
	lf.Skills = append(lf.Skills, entry("a"), entry("b"), entry("a"), entry("a"))
	lf.Skills[1].Source = SourceFrom(other, "b")

	assert.Equal(t, []string{"a"}, lf.Duplicates())
	assert.Equal(t, []source.Ref{acme, other}, lf.Sources())
}

func TestEntry_RepoID(t *testing.T) {
	t.Parallel()

	e := entry("demo")
	assert.Equal(t, "acme/skills:skills/demo", e.RepoID())
	e.Source.SkillPath = "."
	assert.Equal(t, "acme/skills", e.RepoID())

	local := source.Ref{URL: "file:///tmp/fx", Host: source.LocalHost, Owner: "tmp", Repo: "fx"}
	e.Source = SourceFrom(local, "demo")
	assert.Equal(t, "file:///tmp/fx:demo", e.RepoID())
}

func TestRepos(t *testing.T) {
	t.Parallel()

	lf := New(fixedNow)
	require.NoError(t, lf.AddRepo("team", acme, fixedNow))
	assert.Error(t, lf.AddRepo("team", acme, fixedNow))
	assert.Error(t, lf.AddRepo("again", acme, fixedNow))

	r, ok := lf.FindRepo("team")
	require.True(t, ok)
	assert.Equal(t, acme, r.RemoteRef())
	assert.Len(t, lf.RepoList(), 1)

	path := filepath.Join(t.TempDir(), "skills.lock.json")
	require.NoError(t, Save(path, lf))
	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, lf.Repos, got.Repos)

	assert.True(t, lf.RemoveRepo("team"))
	assert.Nil(t, lf.Repos)
	assert.False(t, lf.RemoveRepo("team"))
}

func TestObserve(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "demo")
	require.NoError(t, os.MkdirAll(dir, 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "SKILL.md"), []byte("---\nname: demo\ndescription: d\n---\n"), 0o600))
	d, err := digest.Dir(dir)
	require.NoError(t, err)

	e := entry("demo")
	e.Digest = d

	obs, err := Observe(&e, dir)
	require.NoError(t, err)
	assert.Equal(t, StateClean, obs.State)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.md"), []byte("x"), 0o600))
	obs, err = Observe(&e, dir)
	require.NoError(t, err)
	assert.Equal(t, StateModified, obs.State)
	assert.NotEqual(t, d, obs.Digest)

	require.NoError(t, os.RemoveAll(dir))
	obs, err = Observe(&e, dir)
	require.NoError(t, err)
	assert.Equal(t, StateMissing, obs.State)
	assert.Equal(t, "missing", obs.State.String())
}
