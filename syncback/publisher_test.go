// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package syncback_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/stacklok/skills-kit/env"
	"github.com/stacklok/skills-kit/installer"
	"github.com/stacklok/skills-kit/lockfile"
	"github.com/stacklok/skills-kit/paths"
	"github.com/stacklok/skills-kit/skerr"
	"github.com/stacklok/skills-kit/source"
	"github.com/stacklok/skills-kit/syncback"
	"github.com/stacklok/skills-kit/syncback/mocks"
	"github.com/stacklok/skills-kit/vcs/vcstest"
)

var (
	fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	acme     = source.Ref{URL: "git@github.com:acme/skills.git", Host: "github.com", Owner: "acme", Repo: "skills"}
)

const demoMarker = "---\nname: demo\ndescription: the demo skill\n---\n# demo\n"

type fixture struct {
	ctx    context.Context
	layout paths.Layout
	fake   *vcstest.Fake
	remote *vcstest.Remote
	inst   *installer.Installer
	review *mocks.MockReviewTool
	env    env.MapReader
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := t.TempDir()
	layout := paths.Layout{
		ProjectRoot: filepath.Join(root, "project"),
		InstallRoot: filepath.Join(root, "project", "skills"),
		CacheRoot:   filepath.Join(root, "cache", "repos"),
		ConfigDir:   filepath.Join(root, "config"),
	}
	require.NoError(t, os.MkdirAll(layout.ProjectRoot, 0o750))

	fake := vcstest.New()
	remote := fake.AddRemote("main", acme.URL)
	remote.CommitStrings("main", map[string]string{
		"skills/demo/SKILL.md": demoMarker,
		"skills/demo/notes.md": "v1\n",
		"README.md":            "catalog\n",
	})
	clock := func() time.Time { return fixedNow }
	f := &fixture{
		ctx:    context.Background(),
		layout: layout,
		fake:   fake,
		remote: remote,
		inst:   installer.New(layout, fake, installer.WithClock(clock)),
		review: mocks.NewMockReviewTool(gomock.NewController(t)),
		env:    env.MapReader{syncback.AutoMergePollEnv: "0"},
	}
	_, err := f.inst.Install(f.ctx, installer.InstallRequest{Repo: acme, Name: "demo"})
	require.NoError(t, err)
	return f
}

func (f *fixture) publisher(opts ...syncback.Option) *syncback.Publisher {
	base := []syncback.Option{
		syncback.WithClock(func() time.Time { return fixedNow }),
		syncback.WithDirSyncer(syncback.Copy{}),
		syncback.WithReviewTool(f.review),
		syncback.WithEnv(f.env),
		syncback.WithSleep(func(context.Context, time.Duration) error { return nil }),
	}
	return syncback.New(f.layout, f.fake, append(base, opts...)...)
}

func (f *fixture) edit(t *testing.T, rel, content string) {
	t.Helper()
	p := filepath.Join(f.layout.InstallDir("demo"), rel)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
}

func (f *fixture) entry(t *testing.T, name string) *lockfile.Entry {
	t.Helper()
	lf, err := lockfile.Load(f.layout.LockfilePath())
	require.NoError(t, err)
	e, _ := lf.Find(name)
	require.NotNil(t, e)
	return e
}

func (f *fixture) reviewUnavailable() {
	f.review.EXPECT().Availability(gomock.Any()).Return(syncback.Unavailable("gh missing"))
}

func TestPublish_ExistingEntryWithoutReviewTool(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	base := f.entry(t, "demo").Commit
	f.edit(t, "notes.md", "edited\n")
	f.reviewUnavailable()

	res, err := f.publisher().Publish(f.ctx, syncback.Request{InstallName: "demo"})
	require.NoError(t, err)

	assert.Equal(t, "sk/sync/demo/20260301-120000", res.Branch)
	assert.False(t, res.NoChanges)
	assert.Equal(t, res.Pushed, f.remote.Branch(res.Branch))
	assert.Equal(t, base, f.remote.Parent(res.Pushed))
	files := f.remote.Files(res.Pushed)
	assert.Equal(t, "edited\n", files["skills/demo/notes.md"])
	assert.Equal(t, "catalog\n", files["README.md"])
	require.Len(t, res.FollowUps, 1)
	assert.Contains(t, res.FollowUps[0], "open a pull request")
	assert.Equal(t, syncback.AutoMergeNotAttempted, res.AutoMerge)

	e := f.entry(t, "demo")
	assert.Equal(t, res.Pushed, e.Commit)
	assert.Nil(t, e.Ref)
	obs, err := lockfile.Observe(e, f.layout.InstallDir("demo"))
	require.NoError(t, err)
	assert.Equal(t, lockfile.StateClean, obs.State)
}

func TestPublish_NoChanges(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	before := f.entry(t, "demo")

	res, err := f.publisher().Publish(f.ctx, syncback.Request{InstallName: "demo", Branch: "sk/noop"})
	require.NoError(t, err)
	assert.True(t, res.NoChanges)
	assert.Empty(t, res.Pushed)
	assert.Empty(t, f.remote.Branch("sk/noop"))
	assert.Empty(t, f.fake.LocalBranches(f.inst.Cache().MirrorPath(acme)))
	assert.Equal(t, before, f.entry(t, "demo"))
}

func TestPublish_RejectedPush(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	before := f.entry(t, "demo")
	f.edit(t, "notes.md", "edited\n")
	f.remote.RejectPushes(true)

	_, err := f.publisher().Publish(f.ctx, syncback.Request{InstallName: "demo"})
	require.Error(t, err)
	assert.Equal(t, skerr.KindPublish, skerr.KindOf(err))
	assert.Contains(t, skerr.HintOf(err), "sk update")
	assert.ErrorIs(t, err, vcstest.ErrRejected)

	assert.Equal(t, before, f.entry(t, "demo"))
	assert.Empty(t, f.fake.LocalBranches(f.inst.Cache().MirrorPath(acme)))
}

func TestPublish_AutoMergeLands(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.edit(t, "notes.md", "merged\n")
	pr := &syncback.PullRequest{Number: 7, URL: "https://github.com/acme/skills/pull/7", MergeStateStatus: "CLEAN"}
	var mergeCommit string

	gomock.InOrder(
		f.review.EXPECT().Availability(gomock.Any()).Return(syncback.Available()),
		f.review.EXPECT().FindPullRequest(gomock.Any(), gomock.Any(), "github.com/acme/skills", "sk/feature").Return(nil, nil),
		f.review.EXPECT().CreatePullRequest(gomock.Any(), gomock.Any(), "github.com/acme/skills", "sk/feature").Return(nil),
		f.review.EXPECT().FindPullRequest(gomock.Any(), gomock.Any(), "github.com/acme/skills", "sk/feature").Return(pr, nil),
		f.review.EXPECT().EnableAutoMerge(gomock.Any(), gomock.Any(), "github.com/acme/skills", 7).Return(nil),
		f.review.EXPECT().MergeState(gomock.Any(), "github.com/acme/skills", 7).Return(&syncback.MergeState{State: "OPEN"}, nil),
		f.review.EXPECT().MergeState(gomock.Any(), "github.com/acme/skills", 7).DoAndReturn(
			func(context.Context, string, int) (*syncback.MergeState, error) {
				mergeCommit = f.remote.Merge("sk/feature", "main")
				return &syncback.MergeState{State: "MERGED", MergeCommit: mergeCommit}, nil
			}),
	)

	res, err := f.publisher().Publish(f.ctx, syncback.Request{InstallName: "demo", Branch: "sk/feature"})
	require.NoError(t, err)
	assert.True(t, res.PRCreated)
	assert.Equal(t, syncback.AutoMergeArmed, res.AutoMerge)
	assert.True(t, res.Merged)
	assert.Empty(t, res.FollowUps)
	assert.NotEqual(t, res.Pushed, mergeCommit)

	e := f.entry(t, "demo")
	assert.Equal(t, mergeCommit, e.Commit)
	obs, err := lockfile.Observe(e, f.layout.InstallDir("demo"))
	require.NoError(t, err)
	assert.Equal(t, lockfile.StateClean, obs.State)
}

func TestPublish_AutoMergeOutcomes(t *testing.T) {
	t.Parallel()

	const repo = "github.com/acme/skills"
	tests := []struct {
		name       string
		expect     func(r *mocks.MockReviewToolMockRecorder)
		wantMerge  syncback.AutoMerge
		wantFollow string
	}{
		{
			name: "conflicted pull request",
			expect: func(r *mocks.MockReviewToolMockRecorder) {
				r.FindPullRequest(gomock.Any(), gomock.Any(), repo, gomock.Any()).
					Return(&syncback.PullRequest{Number: 3, URL: "https://github.com/acme/skills/pull/3", MergeStateStatus: "DIRTY"}, nil)
			},
			wantMerge:  syncback.AutoMergeConflict,
			wantFollow: "resolve merge conflicts in https://github.com/acme/skills/pull/3",
		},
		{
			name: "auto-merge disabled on the repository",
			expect: func(r *mocks.MockReviewToolMockRecorder) {
				r.FindPullRequest(gomock.Any(), gomock.Any(), repo, gomock.Any()).
					Return(&syncback.PullRequest{Number: 4, URL: "https://github.com/acme/skills/pull/4"}, nil)
				r.EnableAutoMerge(gomock.Any(), gomock.Any(), repo, 4).
					Return(errors.New("gh pr merge failed: GraphQL: Auto merge is not allowed for this repository (enablePullRequestAutoMerge)"))
			},
			wantMerge:  syncback.AutoMergeSkipped,
			wantFollow: "gh repo edit acme/skills --enable-auto-merge",
		},
		{
			name: "merge does not land in time",
			expect: func(r *mocks.MockReviewToolMockRecorder) {
				r.FindPullRequest(gomock.Any(), gomock.Any(), repo, gomock.Any()).
					Return(&syncback.PullRequest{Number: 5, URL: "https://github.com/acme/skills/pull/5"}, nil)
				r.EnableAutoMerge(gomock.Any(), gomock.Any(), repo, 5).Return(nil)
				r.MergeState(gomock.Any(), repo, 5).Return(&syncback.MergeState{State: "OPEN"}, nil).Times(3)
			},
			wantMerge:  syncback.AutoMergeArmed,
			wantFollow: "sk upgrade demo",
		},
		{
			name: "pull request lookup fails",
			expect: func(r *mocks.MockReviewToolMockRecorder) {
				r.FindPullRequest(gomock.Any(), gomock.Any(), repo, gomock.Any()).Return(nil, errors.New("HTTP 502"))
			},
			wantMerge:  syncback.AutoMergeNotAttempted,
			wantFollow: "open a pull request",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := newFixture(t)
			f.env[syncback.AutoMergeTimeoutEnv] = "2"
			f.env[syncback.AutoMergePollEnv] = "1"
			f.edit(t, "notes.md", "edited\n")
			f.review.EXPECT().Availability(gomock.Any()).Return(syncback.Available())
			tt.expect(f.review.EXPECT())

			res, err := f.publisher().Publish(f.ctx, syncback.Request{InstallName: "demo"})
			require.NoError(t, err)
			assert.Equal(t, tt.wantMerge, res.AutoMerge)
			assert.False(t, res.Merged)
			require.NotEmpty(t, res.FollowUps)
			assert.Contains(t, res.FollowUps[len(res.FollowUps)-1], tt.wantFollow)
			assert.Equal(t, res.Pushed, f.entry(t, "demo").Commit)
		})
	}
}

func TestPublish_NewSkill(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	_, err := f.inst.Scaffold("fresh", "")
	require.NoError(t, err)
	tip := f.remote.Branch("main")

	_, err = f.publisher().Publish(f.ctx, syncback.Request{InstallName: "fresh"})
	require.Error(t, err)
	assert.Equal(t, skerr.KindConfiguration, skerr.KindOf(err))
	assert.Contains(t, skerr.HintOf(err), "default_repo")

	_, err = f.publisher().Publish(f.ctx, syncback.Request{InstallName: "ghost", Repo: &acme})
	assert.Equal(t, skerr.KindUnitNotFound, skerr.KindOf(err))

	f.reviewUnavailable()
	repo := acme
	res, err := f.publisher().Publish(f.ctx, syncback.Request{InstallName: "fresh", Repo: &repo, SkillPath: "/skills/fresh/"})
	require.NoError(t, err)
	assert.Equal(t, tip, f.remote.Parent(res.Pushed))
	assert.Contains(t, f.remote.Files(res.Pushed), "skills/fresh/SKILL.md")

	e := f.entry(t, "fresh")
	assert.Equal(t, "skills/fresh", e.Source.SkillPath)
	assert.Equal(t, acme.URL, e.Source.URL)
	assert.Equal(t, res.Pushed, e.Commit)
	assert.Nil(t, e.Ref)
}

func TestPublish_MissingInstallDir(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	require.NoError(t, os.RemoveAll(f.layout.InstallDir("demo")))

	_, err := f.publisher().Publish(f.ctx, syncback.Request{InstallName: "demo"})
	assert.Equal(t, skerr.KindPrecondition, skerr.KindOf(err))
	assert.Contains(t, skerr.HintOf(err), "doctor --apply")
}

func TestPublish_FallsBackToCopy(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	syncer := mocks.NewMockDirSyncer(gomock.NewController(t))
	syncer.EXPECT().Availability(gomock.Any()).Return(syncback.Unavailable("SK_FORCE_RSYNC_MISSING is set"))
	syncer.EXPECT().Name().Return("rsync").AnyTimes()
	f.edit(t, "extra.md", "new file\n")
	f.reviewUnavailable()

	res, err := f.publisher(syncback.WithDirSyncer(syncer)).Publish(f.ctx, syncback.Request{InstallName: "demo"})
	require.NoError(t, err)
	assert.Equal(t, "new file\n", f.remote.Files(res.Pushed)["skills/demo/extra.md"])
}

func TestDefaultBranchName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		want string
	}{
		{name: "demo", want: "sk/sync/demo/20260301-120000"},
		{name: "my skill.v2", want: "sk/sync/my-skill-v2/20260301-120000"},
		{name: "team_tools", want: "sk/sync/team_tools/20260301-120000"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, syncback.DefaultBranchName(tt.name, fixedNow))
		})
	}
	assert.Equal(t, "sk sync-back: demo (2026-03-01T12:00:00Z)", syncback.DefaultMessage("demo", fixedNow))
}
