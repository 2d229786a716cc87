// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package cache

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacklok/skills-kit/skerr"
	"github.com/stacklok/skills-kit/source"
	"github.com/stacklok/skills-kit/vcs/vcstest"
)

var acme = source.Ref{URL: "git@github.com:acme/skills.git", Host: "github.com", Owner: "acme", Repo: "skills"}

func newFixture(t *testing.T) (*Manager, *vcstest.Fake, *vcstest.Remote) {
	t.Helper()
	fake := vcstest.New()
	remote := fake.AddRemote("main", acme.URL)
	remote.CommitStrings("main", map[string]string{"demo/SKILL.md": "---\nname: demo\ndescription: d\n---\n"})
	return NewManager(fake, t.TempDir(), nil), fake, remote
}

func TestMirrorPath(t *testing.T) {
	t.Parallel()

	m := NewManager(vcstest.New(), "/cache/repos", nil)
	assert.Equal(t, filepath.Join("/cache/repos", "github.com", "acme", "skills"), m.MirrorPath(acme))

	local := source.Ref{URL: "file:///tmp/fx/demo", Host: source.LocalHost, Owner: "fx", Repo: "demo"}
	p := m.MirrorPath(local)
	assert.Equal(t, filepath.Join("/cache/repos", "local", "fx"), filepath.Dir(p))
	leaf := filepath.Base(p)
	require.True(t, strings.HasPrefix(leaf, "demo-"))
	assert.Len(t, strings.TrimPrefix(leaf, "demo-"), 12)

	other := source.Ref{URL: "file:///elsewhere/fx/demo", Host: source.LocalHost, Owner: "fx", Repo: "demo"}
	assert.NotEqual(t, p, m.MirrorPath(other))
}

func TestEnsure_ClonesThenFetches(t *testing.T) {
	t.Parallel()

	m, fake, _ := newFixture(t)
	ctx := context.Background()

	mir, err := m.Ensure(ctx, acme)
	require.NoError(t, err)
	assert.False(t, mir.Stale())
	assert.DirExists(t, filepath.Join(mir.Dir, ".git"))

	_, err = m.Ensure(ctx, acme)
	require.NoError(t, err)
	assert.Equal(t, []string{"Clone", "Fetch"}, fake.Calls())
}

func TestEnsure_FallsBackToHTTPS(t *testing.T) {
	t.Parallel()

	fake := vcstest.New()
	// only the https spelling is reachable
	remote := fake.AddRemote("main", "https://github.com/acme/skills.git")
	remote.CommitStrings("main", map[string]string{"a": "b"})
	m := NewManager(fake, t.TempDir(), nil)

	mir, err := m.Ensure(context.Background(), acme)
	require.NoError(t, err)
	assert.DirExists(t, mir.Dir)
	assert.Equal(t, []string{"Clone", "Clone"}, fake.Calls())
}

func TestEnsure_UnreachableRemote(t *testing.T) {
	t.Parallel()

	m, _, remote := newFixture(t)
	ctx := context.Background()

	remote.SetOffline(true)
	_, err := m.Ensure(ctx, acme)
	require.Error(t, err)
	assert.Equal(t, skerr.KindRepoResolution, skerr.KindOf(err))
	assert.NoDirExists(t, m.MirrorPath(acme))
}

func TestEnsure_StaleMirrorIsReused(t *testing.T) {
	t.Parallel()

	m, _, remote := newFixture(t)
	ctx := context.Background()

	_, err := m.Ensure(ctx, acme)
	require.NoError(t, err)

	remote.SetOffline(true)
	mir, err := m.Ensure(ctx, acme)
	require.NoError(t, err)
	assert.True(t, mir.Stale())
}

func TestDefaultBranch(t *testing.T) {
	t.Parallel()

	m, fake, remote := newFixture(t)
	ctx := context.Background()
	mir, err := m.Ensure(ctx, acme)
	require.NoError(t, err)

	branch, err := m.DefaultBranch(ctx, mir)
	require.NoError(t, err)
	assert.Equal(t, "main", branch)
	assert.NotContains(t, fake.Calls(), "RemoteDefaultBranch")

	// a missing pointer falls back to asking the remote and persists the answer
	remote.CommitStrings("trunk", map[string]string{"x": "y"})
	remote.SetDefaultBranch("trunk")
	require.NoError(t, fake.Fetch(ctx, mir.Dir))
	fake.ForgetOriginHead(mir.Dir)

	branch, err = m.DefaultBranch(ctx, mir)
	require.NoError(t, err)
	assert.Equal(t, "trunk", branch)
	head, err := fake.OriginHead(ctx, mir.Dir)
	require.NoError(t, err)
	assert.Equal(t, "trunk", head)
}

func TestResolveCommit(t *testing.T) {
	t.Parallel()

	m, _, remote := newFixture(t)
	ctx := context.Background()

	first := remote.Branch("main")
	remote.Tag("v1", first)
	second := remote.CommitStrings("main", map[string]string{"demo/extra.md": "x"})
	dev := remote.CommitStrings("dev", map[string]string{"dev.md": "x"})

	mir, err := m.Ensure(ctx, acme)
	require.NoError(t, err)

	tests := []struct {
		name       string
		constraint string
		wantCommit string
		wantKind   RefKind
	}{
		{"default branch", "", second, RefDefault},
		{"branch", "dev", dev, RefBranch},
		{"tag", "v1", first, RefTag},
		{"full commit", first, first, RefCommit},
		{"short commit", first[:10], first, RefCommit},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := m.ResolveCommit(ctx, mir, tt.constraint)
			require.NoError(t, err)
			assert.Equal(t, tt.wantCommit, res.Commit)
			assert.Equal(t, tt.wantKind, res.Kind)
		})
	}

	_, err = m.ResolveCommit(ctx, mir, "does-not-exist")
	require.Error(t, err)
	assert.Equal(t, skerr.KindUnreachableCommit, skerr.KindOf(err))
	assert.NotEmpty(t, skerr.HintOf(err))
}

func TestRefKind_Pinned(t *testing.T) {
	t.Parallel()
	assert.False(t, RefDefault.Pinned())
	assert.False(t, RefBranch.Pinned())
	assert.True(t, RefTag.Pinned())
	assert.True(t, RefCommit.Pinned())
	assert.Equal(t, "tag", RefTag.String())
}

func TestRefreshAll_CollectsPerRepoFailures(t *testing.T) {
	t.Parallel()

	fake := vcstest.New()
	good := fake.AddRemote("main", acme.URL)
	good.CommitStrings("main", map[string]string{"a": "1"})
	badRef := source.Ref{URL: "git@github.com:acme/gone.git", Host: "github.com", Owner: "acme", Repo: "gone"}
	bad := fake.AddRemote("main", badRef.URL)
	bad.CommitStrings("main", map[string]string{"a": "1"})
	bad.SetOffline(true)

	m := NewManager(fake, t.TempDir(), nil)
	results := m.RefreshAll(context.Background(), []source.Ref{badRef, acme, acme})

	require.Len(t, results, 2)
	assert.Error(t, results[0].Err)
	assert.NoError(t, results[1].Err)
	assert.Equal(t, acme, results[1].Ref)
}
