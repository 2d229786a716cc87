// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package syncback

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/stacklok/skills-kit/cache"
	"github.com/stacklok/skills-kit/digest"
	"github.com/stacklok/skills-kit/env"
	"github.com/stacklok/skills-kit/lockfile"
	"github.com/stacklok/skills-kit/logging"
	"github.com/stacklok/skills-kit/paths"
	"github.com/stacklok/skills-kit/skerr"
	"github.com/stacklok/skills-kit/skills"
	"github.com/stacklok/skills-kit/source"
	"github.com/stacklok/skills-kit/validation/name"
	"github.com/stacklok/skills-kit/vcs"
)

const (
	// AutoMergeTimeoutEnv bounds how long Publish waits for an armed auto-merge.
	AutoMergeTimeoutEnv = "SK_SYNC_BACK_AUTO_MERGE_TIMEOUT_MS"
	// AutoMergePollEnv is the interval between merge-state checks.
	AutoMergePollEnv = "SK_SYNC_BACK_AUTO_MERGE_POLL_MS"

	defaultAutoMergeTimeout = 120 * time.Second
	defaultAutoMergePoll    = 2 * time.Second
)

// Publisher pushes installed trees back to their source repositories.
type Publisher struct {
	layout   paths.Layout
	git      vcs.Git
	cache    *cache.Manager
	env      env.Reader
	syncer   DirSyncer
	fallback DirSyncer
	review   ReviewTool
	logger   *slog.Logger
	now      func() time.Time
	sleep    func(context.Context, time.Duration) error
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithDirSyncer replaces the preferred directory syncer (rsync by default).
func WithDirSyncer(s DirSyncer) Option {
	return func(p *Publisher) { p.syncer = s }
}

// WithReviewTool replaces the review tool (gh by default).
func WithReviewTool(r ReviewTool) Option {
	return func(p *Publisher) { p.review = r }
}

// WithEnv sets the environment reader.
func WithEnv(r env.Reader) Option {
	return func(p *Publisher) { p.env = r }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Publisher) { p.logger = l }
}

// WithClock overrides the time source for branch names, messages and lock timestamps.
func WithClock(now func() time.Time) Option {
	return func(p *Publisher) { p.now = now }
}

// WithSleep overrides how the publisher waits between merge-state polls.
func WithSleep(sleep func(context.Context, time.Duration) error) Option {
	return func(p *Publisher) { p.sleep = sleep }
}

// New returns a Publisher for layout.
func New(layout paths.Layout, git vcs.Git, opts ...Option) *Publisher {
	p := &Publisher{
		layout:   layout,
		git:      git,
		env:      &env.OSReader{},
		fallback: Copy{},
		now:      time.Now,
		sleep:    sleepContext,
	}
	for _, o := range opts {
		o(p)
	}
	p.logger = logging.OrDiscard(p.logger).With(logging.ComponentKey, "syncback")
	if p.syncer == nil {
		p.syncer = NewRsync(p.env)
	}
	if p.review == nil {
		p.review = NewGitHubCLI(p.logger)
	}
	p.cache = cache.NewManager(git, layout.CacheRoot, p.logger)
	return p
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Request describes one sync-back.
type Request struct {
	InstallName string
	// Branch defaults to sk/sync/<name>/<timestamp>.
	Branch string
	// Message defaults to "sk sync-back: <name> (<RFC3339>)".
	Message string
	// Repo is the destination of a skill that has no lock entry yet.
	Repo *source.Ref
	// SkillPath places a new skill inside Repo; defaults to the install name.
	SkillPath string
}

// Result describes a completed sync-back.
type Result struct {
	InstallName string
	Repo        string
	Branch      string
	// Pushed is the commit pushed to Branch.
	Pushed string
	// NoChanges is set when the tree already matched its base commit.
	NoChanges   bool
	PullRequest *PullRequest
	PRCreated   bool
	AutoMerge   AutoMerge
	// Merged is set when auto-merge landed within the wait window.
	Merged bool
	// Entry is the lock entry as written.
	Entry *lockfile.Entry
	// FollowUps are manual steps left for the user.
	FollowUps []string
}

type target struct {
	ref       source.Ref
	mirror    *cache.Mirror
	base      string
	skillPath string
	existing  *lockfile.Entry
}

// Publish mirrors the installed tree onto a fresh branch rooted at its
// locked commit (or the destination's default-branch tip for a new skill),
// commits, pushes and optionally opens and auto-merges a pull request. On
// success the lock entry is created or moved to the published commit.
//
// Missing optional tooling degrades to warnings and follow-ups; only the
// commit and push are mandatory.
func (p *Publisher) Publish(ctx context.Context, req Request) (*Result, error) {
	if err := name.ValidateInstallName(req.InstallName); err != nil {
		return nil, err
	}
	lf, err := lockfile.LoadOrEmpty(p.layout.LockfilePath(), p.now())
	if err != nil {
		return nil, err
	}
	tgt, err := p.resolveTarget(ctx, lf, req)
	if err != nil {
		return nil, err
	}

	branch := req.Branch
	if branch == "" {
		branch = DefaultBranchName(req.InstallName, p.now())
	}
	message := req.Message
	if message == "" {
		message = DefaultMessage(req.InstallName, p.now())
	}
	res := &Result{InstallName: req.InstallName, Repo: tgt.ref.Slug(), Branch: branch}
	log := p.logger.With("skill", req.InstallName, "repo", tgt.ref.Slug(), "branch", branch)

	wt, err := p.openWorktree(ctx, tgt, branch)
	if err != nil {
		return nil, err
	}
	keepBranch := false
	defer func() {
		wt.close(ctx, keepBranch)
	}()

	if err := p.mirrorTree(ctx, p.layout.InstallDir(req.InstallName), wt.skillDir(tgt.skillPath), res); err != nil {
		return nil, err
	}

	committed, err := p.git.CommitAll(ctx, wt.dir, message)
	if err != nil {
		return nil, skerr.Wrap(skerr.KindPublish, fmt.Errorf("committing changes: %w", err))
	}
	if !committed {
		log.Info("nothing to commit")
		res.NoChanges = true
		return res, nil
	}
	head, err := p.git.RevParse(ctx, wt.dir, "HEAD")
	if err != nil {
		return nil, fmt.Errorf("resolving pushed commit: %w", err)
	}

	if err := p.git.Push(ctx, wt.dir, branch); err != nil {
		return nil, pushError(err, tgt.ref, req.InstallName)
	}
	keepBranch = true
	res.Pushed = head
	log.Info("pushed branch", "commit", lockfile.Short(head))

	final := p.openReview(ctx, wt.dir, tgt, res, log)
	wt.close(ctx, keepBranch)

	if final != head {
		if err := p.refreshInstall(ctx, tgt, final, req.InstallName); err != nil {
			return nil, err
		}
	}
	d, err := digest.Dir(p.layout.InstallDir(req.InstallName))
	if err != nil {
		return nil, err
	}

	entry := lockfile.Entry{
		InstallName: req.InstallName,
		Source:      lockfile.SourceFrom(tgt.ref, tgt.skillPath),
		Commit:      final,
		Digest:      d,
		InstalledAt: lockfile.Timestamp(p.now()),
	}
	if tgt.existing != nil {
		entry.Source = tgt.existing.Source
		entry.Ref = tgt.existing.Ref
	}
	err = lockfile.Edit(p.layout.LockfilePath(), p.now(), func(lf *lockfile.Lockfile) error {
		lf.Upsert(entry)
		lf.Touch(p.now())
		return nil
	})
	if err != nil {
		return nil, err
	}
	res.Entry = &entry
	return res, nil
}

func (p *Publisher) resolveTarget(ctx context.Context, lf *lockfile.Lockfile, req Request) (*target, error) {
	dest := p.layout.InstallDir(req.InstallName)
	_, statErr := os.Stat(dest)

	if e, _ := lf.Find(req.InstallName); e != nil {
		if errors.Is(statErr, fs.ErrNotExist) {
			return nil, skerr.WithHint(
				skerr.Newf(skerr.KindPrecondition, "installed directory for '%s' is missing", req.InstallName),
				"run 'sk doctor --apply' to rebuild it first",
			)
		}
		ref := e.Source.RemoteRef()
		mir, err := p.cache.Ensure(ctx, ref)
		if err != nil {
			return nil, err
		}
		if !p.cache.HasCommit(ctx, mir, e.Commit) {
			return nil, skerr.WithHint(
				skerr.Newf(skerr.KindUnreachableCommit, "locked commit %s is missing in the cache for %s", e.ShortCommit(), ref.Slug()),
				"run 'sk update' or 'sk doctor --apply' first",
			)
		}
		entry := *e
		return &target{ref: ref, mirror: mir, base: e.Commit, skillPath: e.Source.SkillPath, existing: &entry}, nil
	}

	if errors.Is(statErr, fs.ErrNotExist) {
		return nil, skerr.WithHint(
			skerr.Newf(skerr.KindUnitNotFound, "no skill named '%s' in the lockfile or under %s", req.InstallName, p.layout.InstallRoot),
			fmt.Sprintf("scaffold it with 'sk template create %s'", req.InstallName),
		)
	}
	if _, err := skills.ParseFile(filepath.Join(dest, skills.MarkerFile)); err != nil {
		return nil, skerr.Wrap(skerr.KindPrecondition, err)
	}
	if req.Repo == nil {
		return nil, skerr.WithHint(
			skerr.Newf(skerr.KindConfiguration, "skill '%s' is not in the lockfile and no destination repository is set", req.InstallName),
			fmt.Sprintf("pass --repo <repo> or run 'sk config set default_repo <repo>' before 'sk sync-back %s'", req.InstallName),
		)
	}
	mir, err := p.cache.Ensure(ctx, *req.Repo)
	if err != nil {
		return nil, err
	}
	res, err := p.cache.ResolveCommit(ctx, mir, "")
	if err != nil {
		return nil, err
	}
	skillPath := req.SkillPath
	if skillPath == "" {
		skillPath = req.InstallName
	}
	return &target{ref: *req.Repo, mirror: mir, base: res.Commit, skillPath: skills.NormalizePath(skillPath)}, nil
}

type worktree struct {
	git    vcs.Git
	mirror string
	base   string
	dir    string
	branch string
	closed bool
	logger *slog.Logger
}

func (p *Publisher) openWorktree(ctx context.Context, tgt *target, branch string) (*worktree, error) {
	base, err := os.MkdirTemp("", "sk-sync-")
	if err != nil {
		return nil, fmt.Errorf("creating worktree directory: %w", err)
	}
	dir := filepath.Join(base, "wt")
	if err := p.git.AddWorktree(ctx, tgt.mirror.Dir, branch, dir, tgt.base); err != nil {
		_ = os.RemoveAll(base)
		return nil, skerr.WithHint(
			skerr.Wrap(skerr.KindPublish, fmt.Errorf("creating branch %s: %w", branch, err)),
			"pick another name with --branch",
		)
	}
	return &worktree{git: p.git, mirror: tgt.mirror.Dir, base: base, dir: dir, branch: branch, logger: p.logger}, nil
}

func (w *worktree) skillDir(skillPath string) string {
	if skillPath == skills.RootPath {
		return w.dir
	}
	return filepath.Join(w.dir, filepath.FromSlash(skillPath))
}

// close removes the worktree once. The local branch is deleted unless it was pushed.
func (w *worktree) close(ctx context.Context, keepBranch bool) {
	if w.closed {
		return
	}
	w.closed = true
	if err := w.git.RemoveWorktree(ctx, w.mirror, w.dir); err != nil {
		w.logger.Warn("could not remove worktree", "path", w.dir, "error", err)
	}
	if !keepBranch {
		if err := w.git.DeleteBranch(ctx, w.mirror, w.branch); err != nil {
			w.logger.Warn("could not delete branch", "branch", w.branch, "error", err)
		}
	}
	_ = os.RemoveAll(w.base)
}

func (p *Publisher) mirrorTree(ctx context.Context, src, dst string, res *Result) error {
	syncer := p.syncer
	if a := syncer.Availability(ctx); !a.OK() {
		p.logger.Warn("falling back to a recursive copy", "syncer", syncer.Name(), "reason", a.Reason())
		syncer = p.fallback
	}
	if err := syncer.Sync(ctx, src, dst); err != nil {
		if syncer == p.fallback {
			return skerr.Wrap(skerr.KindPublish, fmt.Errorf("copying %s: %w", src, err))
		}
		p.logger.Warn("directory sync failed; retrying with a recursive copy", "syncer", syncer.Name(), "error", err)
		if err := p.fallback.Sync(ctx, src, dst); err != nil {
			return skerr.Wrap(skerr.KindPublish, fmt.Errorf("copying %s: %w", src, err))
		}
	}
	return nil
}

func pushError(err error, ref source.Ref, installName string) error {
	lower := strings.ToLower(err.Error())
	hint := fmt.Sprintf("check that you can push to %s; fork it and repoint the source if you cannot", ref.Slug())
	if strings.Contains(lower, "rejected") || strings.Contains(lower, "non-fast-forward") || strings.Contains(lower, "fetch first") {
		hint = fmt.Sprintf("the remote branch moved; run 'sk update' and retry with a fresh --branch, or 'sk upgrade %s' after publishing your edits elsewhere", installName)
	}
	return skerr.WithHint(skerr.Wrap(skerr.KindPublish, fmt.Errorf("pushing to %s: %w", ref.Slug(), err)), hint)
}

func repoSelector(ref source.Ref) string {
	if ref.Host == "" {
		return ref.Owner + "/" + ref.Repo
	}
	return ref.Host + "/" + ref.Owner + "/" + ref.Repo
}

// openReview runs the optional pull request flow and returns the commit the lock
// entry should point at: the merge commit when auto-merge landed, else head.
func (p *Publisher) openReview(ctx context.Context, dir string, tgt *target, res *Result, log *slog.Logger) string {
	head := res.Pushed
	manual := fmt.Sprintf("open a pull request for branch '%s' on %s", res.Branch, tgt.ref.Slug())
	if tgt.ref.IsLocal() {
		res.FollowUps = append(res.FollowUps, "merge branch '"+res.Branch+"' in "+tgt.ref.URL)
		return head
	}
	if a := p.review.Availability(ctx); !a.OK() {
		log.Warn("skipping pull request automation", "reason", a.Reason())
		res.FollowUps = append(res.FollowUps, manual)
		return head
	}

	repo := repoSelector(tgt.ref)
	pr, err := p.review.FindPullRequest(ctx, dir, repo, res.Branch)
	if err == nil && pr == nil {
		if err = p.review.CreatePullRequest(ctx, dir, repo, res.Branch); err == nil {
			res.PRCreated = true
			pr, err = p.review.FindPullRequest(ctx, dir, repo, res.Branch)
			if err == nil && pr == nil {
				err = errors.New("pull request was created but cannot be found")
			}
		}
	}
	if err != nil {
		log.Warn("pull request automation failed", "error", err)
		res.FollowUps = append(res.FollowUps, manual)
		return head
	}
	res.PullRequest = pr

	if pr.Conflicted() {
		res.AutoMerge = AutoMergeConflict
		res.FollowUps = append(res.FollowUps, "resolve merge conflicts in "+pr.URL)
		return head
	}
	if err := p.review.EnableAutoMerge(ctx, dir, repo, pr.Number); err != nil {
		res.AutoMerge = AutoMergeSkipped
		log.Warn("auto-merge not enabled", "url", pr.URL, "error", err)
		follow := "merge " + pr.URL + " once checks pass"
		if tip := autoMergeTip(err.Error(), tgt.ref.Host, tgt.ref.Owner, tgt.ref.Repo); tip != "" {
			follow += "; " + tip
		}
		res.FollowUps = append(res.FollowUps, follow)
		return head
	}
	res.AutoMerge = AutoMergeArmed

	merged, err := p.waitForMerge(ctx, tgt, repo, pr.Number)
	switch {
	case err != nil:
		log.Warn("unable to confirm merged commit", "url", pr.URL, "error", err)
	case merged != "":
		res.Merged = true
		log.Info("auto-merge landed", "commit", lockfile.Short(merged))
		return merged
	}
	res.FollowUps = append(res.FollowUps, fmt.Sprintf("run 'sk upgrade %s' after %s merges", res.InstallName, pr.URL))
	return head
}

// waitForMerge polls until the pull request merges, closes, or the timeout
// elapses. It returns the merge commit once the cache mirror has it.
func (p *Publisher) waitForMerge(ctx context.Context, tgt *target, repo string, number int) (string, error) {
	timeout := env.Millis(p.env, AutoMergeTimeoutEnv, defaultAutoMergeTimeout)
	poll := env.Millis(p.env, AutoMergePollEnv, defaultAutoMergePoll)
	if poll <= 0 {
		poll = time.Millisecond
	}
	for waited := time.Duration(0); ; waited += poll {
		st, err := p.review.MergeState(ctx, repo, number)
		if err != nil {
			return "", err
		}
		if st.Merged() && st.MergeCommit != "" {
			mir, err := p.cache.Ensure(ctx, tgt.ref)
			if err != nil {
				return "", err
			}
			if p.cache.HasCommit(ctx, mir, st.MergeCommit) {
				return st.MergeCommit, nil
			}
		} else if st.Closed() {
			return "", nil
		}
		if waited >= timeout {
			return "", nil
		}
		if err := p.sleep(ctx, poll); err != nil {
			return "", err
		}
	}
}

// refreshInstall replaces the installed tree with the skill at commit.
func (p *Publisher) refreshInstall(ctx context.Context, tgt *target, commit, installName string) error {
	tmp, err := os.MkdirTemp(p.layout.InstallRoot, ".sk-stage-")
	if err != nil {
		return fmt.Errorf("creating staging directory: %w", err)
	}
	defer func() { _ = os.RemoveAll(tmp) }()

	staged := filepath.Join(tmp, "tree")
	if _, err := skills.Extract(ctx, p.git, tgt.mirror.Dir, commit, tgt.skillPath, staged); err != nil {
		return err
	}
	dest := p.layout.InstallDir(installName)
	old := filepath.Join(tmp, "old")
	if err := os.Rename(dest, old); err != nil {
		return fmt.Errorf("moving %s aside: %w", dest, err)
	}
	if err := os.Rename(staged, dest); err != nil {
		_ = os.Rename(old, dest)
		return fmt.Errorf("replacing %s: %w", dest, err)
	}
	return nil
}

// DefaultBranchName is sk/sync/<name>/<YYYYmmdd-HHMMSS> with every character
// outside [A-Za-z0-9-_/] replaced by '-'.
func DefaultBranchName(installName string, now time.Time) string {
	sanitized := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '/':
			return r
		}
		return '-'
	}, installName)
	return fmt.Sprintf("sk/sync/%s/%s", strings.Trim(sanitized, "/"), now.UTC().Format("20060102-150405"))
}

// DefaultMessage is the commit message used when none is given.
func DefaultMessage(installName string, now time.Time) string {
	return fmt.Sprintf("sk sync-back: %s (%s)", installName, now.UTC().Format(time.RFC3339))
}
