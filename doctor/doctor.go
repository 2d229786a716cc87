// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package doctor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/stacklok/skills-kit/cache"
	"github.com/stacklok/skills-kit/digest"
	"github.com/stacklok/skills-kit/installer"
	"github.com/stacklok/skills-kit/lockfile"
	"github.com/stacklok/skills-kit/logging"
	"github.com/stacklok/skills-kit/paths"
	"github.com/stacklok/skills-kit/skerr"
	"github.com/stacklok/skills-kit/skills"
)

var errUnchanged = errors.New("lockfile unchanged")

// Kind classifies a finding.
type Kind string

// Finding kinds.
const (
	KindDuplicate         Kind = "duplicate-install-name"
	KindMissingInstall    Kind = "installed-missing"
	KindInvalidManifest   Kind = "invalid-manifest"
	KindModified          Kind = "installed-modified"
	KindMissingCache      Kind = "cache-missing"
	KindMissingCommit     Kind = "commit-missing"
	KindUnreferencedCache Kind = "unreferenced-cache"
	KindUpgradeAvailable  Kind = "upgrade-available"
	KindUnsorted          Kind = "unsorted-entries"
)

// Finding is one diagnosis. Action is the single follow-up that resolves it.
type Finding struct {
	Kind    Kind   `json:"kind"`
	Skill   string `json:"skill,omitempty"`
	Path    string `json:"path,omitempty"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	// Issue is false for informational notes.
	Issue bool `json:"issue"`
}

// RepairKind classifies a repair performed in apply mode.
type RepairKind string

// Repair kinds.
const (
	RepairRebuilt      RepairKind = "rebuilt"
	RepairRecloned     RepairKind = "recloned"
	RepairDroppedEntry RepairKind = "dropped-entry"
	RepairKeptEntry    RepairKind = "kept-entry"
	RepairPrunedCache  RepairKind = "pruned-cache"
	RepairNormalized   RepairKind = "normalized-lockfile"
	RepairFailed       RepairKind = "failed"
)

// Repair is one change made (or declined) by apply mode.
type Repair struct {
	Kind    RepairKind `json:"kind"`
	Skill   string     `json:"skill,omitempty"`
	Path    string     `json:"path,omitempty"`
	Message string     `json:"message"`
}

// Report is the outcome of a doctor run.
type Report struct {
	Findings []Finding `json:"findings"`
	Repairs  []Repair  `json:"repairs,omitempty"`
}

// Issues counts findings that are not notes.
func (r *Report) Issues() int {
	n := 0
	for _, f := range r.Findings {
		if f.Issue {
			n++
		}
	}
	return n
}

// Healthy reports whether no issue was found.
func (r *Report) Healthy() bool {
	return r.Issues() == 0
}

// BySkill groups findings by skill in first-seen order. Findings without a
// skill are returned under the empty name last.
func (r *Report) BySkill() ([]string, map[string][]Finding) {
	var order []string
	groups := map[string][]Finding{}
	for _, f := range r.Findings {
		if _, ok := groups[f.Skill]; !ok && f.Skill != "" {
			order = append(order, f.Skill)
		}
		groups[f.Skill] = append(groups[f.Skill], f)
	}
	if _, ok := groups[""]; ok {
		order = append(order, "")
	}
	return order, groups
}

// Options controls a doctor run.
type Options struct {
	// Names limits per-skill checks. Cache and lockfile checks always run.
	Names []string
	// Apply performs safe repairs.
	Apply bool
	// ConfirmDrop is asked before dropping a lock entry that cannot be rebuilt.
	// nil drops without asking.
	ConfirmDrop func(installName string) bool
}

// Doctor diagnoses and repairs a project against its lockfile and the cache.
type Doctor struct {
	inst   *installer.Installer
	layout paths.Layout
	cache  *cache.Manager
	logger *slog.Logger
	now    func() time.Time
}

// Option configures a Doctor.
type Option func(*Doctor)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Doctor) { d.logger = l }
}

// WithClock overrides the time source used when normalizing the lockfile.
func WithClock(now func() time.Time) Option {
	return func(d *Doctor) { d.now = now }
}

// New returns a Doctor that rebuilds through inst.
func New(inst *installer.Installer, opts ...Option) *Doctor {
	d := &Doctor{
		inst:   inst,
		layout: inst.Layout(),
		cache:  inst.Cache(),
		now:    time.Now,
	}
	for _, o := range opts {
		o(d)
	}
	d.logger = logging.OrDiscard(d.logger).With(logging.ComponentKey, "doctor")
	return d
}

type run struct {
	*Doctor
	opts       Options
	report     *Report
	referenced map[string]bool
	drop       map[string]bool
}

// Run diagnoses the project. With Apply it also rebuilds missing installs
// whose commit is reachable, drops entries that can never be rebuilt, prunes
// unreferenced cache mirrors and normalizes the lockfile. Modified installs
// are never touched.
//
// A missing lockfile yields an empty report.
func (d *Doctor) Run(ctx context.Context, opts Options) (*Report, error) {
	report := &Report{}
	path := d.layout.LockfilePath()
	if !lockfile.Exists(path) {
		return report, nil
	}
	lf, err := lockfile.Load(path)
	if err != nil {
		return nil, err
	}
	if err := d.checkNames(lf, opts.Names); err != nil {
		return nil, err
	}

	r := &run{Doctor: d, opts: opts, report: report, referenced: map[string]bool{}, drop: map[string]bool{}}
	r.checkDuplicates(lf)
	for i := range lf.Skills {
		e := lf.Skills[i]
		if selected(opts.Names, e.InstallName) {
			r.inspect(ctx, &e)
		}
	}
	// registered repositories keep their mirrors for search
	for _, repo := range lf.RepoList() {
		r.referenced[filepath.Clean(d.cache.MirrorPath(repo.RemoteRef()))] = true
	}
	for _, e := range lf.Skills {
		if !r.drop[e.InstallName] {
			r.referenced[filepath.Clean(d.cache.MirrorPath(e.Source.RemoteRef()))] = true
		}
	}
	if err := r.checkCaches(); err != nil {
		return nil, err
	}
	if len(opts.Names) == 0 && !lf.Sorted() {
		r.add(Finding{
			Kind:    KindUnsorted,
			Path:    path,
			Message: "lock entries are not sorted by install name",
			Action:  "run 'sk doctor --apply' to normalize the lockfile",
		})
	}
	if opts.Apply {
		if err := r.repairLockfile(); err != nil {
			return nil, err
		}
	}
	return report, nil
}

func (d *Doctor) checkNames(lf *lockfile.Lockfile, names []string) error {
	for _, n := range names {
		if e, _ := lf.Find(n); e == nil {
			return skerr.WithHint(
				skerr.Newf(skerr.KindUnitNotFound, "no lock entry named '%s'", n),
				"run 'sk list' to see installed skills",
			)
		}
	}
	return nil
}

func selected(names []string, installName string) bool {
	if len(names) == 0 {
		return true
	}
	for _, n := range names {
		if n == installName {
			return true
		}
	}
	return false
}

func (r *run) add(f Finding) {
	r.report.Findings = append(r.report.Findings, f)
}

func (r *run) repaired(rp Repair) {
	r.logger.Info("repair", "kind", rp.Kind, "skill", rp.Skill, "path", rp.Path)
	r.report.Repairs = append(r.report.Repairs, rp)
}

func (r *run) checkDuplicates(lf *lockfile.Lockfile) {
	for _, n := range lf.Duplicates() {
		r.add(Finding{
			Kind:    KindDuplicate,
			Skill:   n,
			Message: fmt.Sprintf("duplicate installName in lockfile: %s", n),
			Action:  fmt.Sprintf("edit %s so '%s' appears once", paths.LockfileName, n),
			Issue:   true,
		})
	}
}

func (r *run) inspect(ctx context.Context, e *lockfile.Entry) {
	dir := r.layout.InstallDir(e.InstallName)
	ref := e.Source.RemoteRef()
	mir, haveMirror := r.cache.Lookup(ref)

	modified := false
	if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
		r.add(Finding{
			Kind:    KindMissingInstall,
			Skill:   e.InstallName,
			Path:    dir,
			Message: "installed directory is missing",
			Action:  "run 'sk doctor --apply' to rebuild it from the locked commit",
			Issue:   true,
		})
		if r.opts.Apply {
			r.rebuild(ctx, e)
			mir, haveMirror = r.cache.Lookup(ref)
		}
	} else {
		if err := validateManifest(dir); err != nil {
			r.add(Finding{
				Kind:    KindInvalidManifest,
				Skill:   e.InstallName,
				Path:    filepath.Join(dir, skills.MarkerFile),
				Message: err.Error(),
				Action:  "fix the front matter so it declares a name and a description",
				Issue:   true,
			})
		}
		d, err := digest.Dir(dir)
		if err != nil || !digest.Equal(d, e.Digest) {
			modified = true
		}
	}

	switch {
	case !haveMirror:
		if r.opts.Apply && !r.drop[e.InstallName] {
			if m, err := r.cache.Ensure(ctx, ref); err == nil {
				r.repaired(Repair{Kind: RepairRecloned, Skill: e.InstallName, Path: m.Dir, Message: "restored cache mirror for " + ref.Slug()})
				mir, haveMirror = m, true
				break
			}
		}
		r.add(Finding{
			Kind:    KindMissingCache,
			Skill:   e.InstallName,
			Path:    r.cache.MirrorPath(ref),
			Message: "cache clone missing for " + ref.Slug(),
			Action:  "run 'sk update' to re-clone it",
			Issue:   true,
		})
	case !r.cache.HasCommit(ctx, mir, e.Commit):
		r.add(Finding{
			Kind:    KindMissingCommit,
			Skill:   e.InstallName,
			Path:    mir.Dir,
			Message: fmt.Sprintf("locked commit %s is missing from the cache (force-push?)", e.ShortCommit()),
			Action:  r.missingCommitAction(ctx, mir, e),
			Issue:   true,
		})
	}

	update := ""
	if haveMirror {
		update = r.upstreamUpdate(ctx, mir, e)
	}
	switch {
	case modified && update != "":
		r.add(Finding{
			Kind:    KindModified,
			Skill:   e.InstallName,
			Path:    dir,
			Message: fmt.Sprintf("local edits present and upstream advanced (%s)", update),
			Action: fmt.Sprintf("run 'sk sync-back %[1]s' to publish or revert the edits, then 'sk upgrade %[1]s' to pick up the remote tip",
				e.InstallName),
			Issue: true,
		})
	case modified:
		r.add(Finding{
			Kind:    KindModified,
			Skill:   e.InstallName,
			Path:    dir,
			Message: "digest mismatch: local edits are ahead of the lockfile",
			Action:  fmt.Sprintf("run 'sk sync-back %s' if intentional, or discard the edits to restore the locked digest", e.InstallName),
			Issue:   true,
		})
	case update != "":
		r.add(Finding{
			Kind:    KindUpgradeAvailable,
			Skill:   e.InstallName,
			Message: fmt.Sprintf("upgrade available (%s)", update),
			Action:  fmt.Sprintf("run 'sk upgrade %s'", e.InstallName),
		})
	}
}

// upstreamUpdate returns "old -> new" when a tracking entry lags its cached tip.
// missingCommitAction names the upgrade that can move e off a lost commit.
// A literal commit pin cannot be re-resolved, so it needs a new ref.
func (r *run) missingCommitAction(ctx context.Context, mir *cache.Mirror, e *lockfile.Entry) string {
	switch r.cache.Classify(ctx, mir, e.RefString()) {
	case cache.RefCommit:
		return fmt.Sprintf("run 'sk upgrade %[1]s --ref <branch-or-tag>' to re-pin it, or 'sk remove %[1]s --force'", e.InstallName)
	case cache.RefTag:
		return fmt.Sprintf("run 'sk upgrade %[1]s --include-pinned' to follow tag %[2]s", e.InstallName, e.RefString())
	default:
		return fmt.Sprintf("run 'sk upgrade %s' to move to a reachable commit", e.InstallName)
	}
}

func (r *run) upstreamUpdate(ctx context.Context, mir *cache.Mirror, e *lockfile.Entry) string {
	res, err := r.cache.ResolveCommit(ctx, mir, e.RefString())
	if err != nil || res.Kind.Pinned() || res.Commit == e.Commit {
		return ""
	}
	return lockfile.Short(e.Commit) + " -> " + lockfile.Short(res.Commit)
}

func (r *run) rebuild(ctx context.Context, e *lockfile.Entry) {
	err := r.inst.Rebuild(ctx, e)
	if kind := skerr.KindOf(err); kind == skerr.KindMissingCache || kind == skerr.KindUnreachableCommit {
		// one refresh before giving up on the entry
		if _, ensureErr := r.cache.Ensure(ctx, e.Source.RemoteRef()); ensureErr == nil {
			err = r.inst.Rebuild(ctx, e)
		}
	}
	switch kind := skerr.KindOf(err); {
	case err == nil:
		r.repaired(Repair{Kind: RepairRebuilt, Skill: e.InstallName, Path: r.layout.InstallDir(e.InstallName), Message: "rebuilt from locked commit " + e.ShortCommit()})
	case kind == skerr.KindMissingCache || kind == skerr.KindUnreachableCommit:
		if r.opts.ConfirmDrop != nil && !r.opts.ConfirmDrop(e.InstallName) {
			r.repaired(Repair{Kind: RepairKeptEntry, Skill: e.InstallName, Message: "cannot rebuild: " + err.Error() + "; entry kept"})
			return
		}
		r.drop[e.InstallName] = true
		r.repaired(Repair{Kind: RepairDroppedEntry, Skill: e.InstallName, Message: "cannot rebuild: " + err.Error() + "; lock entry dropped"})
	default:
		r.repaired(Repair{Kind: RepairFailed, Skill: e.InstallName, Message: "rebuild failed: " + err.Error()})
	}
}

func (r *run) checkCaches() error {
	stale, err := r.cache.Unreferenced(r.referenced)
	if err != nil {
		return err
	}
	for _, dir := range stale {
		r.add(Finding{
			Kind:    KindUnreferencedCache,
			Path:    dir,
			Message: "unreferenced cache clone: " + dir,
			Action:  "run 'sk doctor --apply' to prune it",
			Issue:   true,
		})
		if !r.opts.Apply {
			continue
		}
		if err := r.cache.Remove(dir); err != nil {
			r.repaired(Repair{Kind: RepairFailed, Path: dir, Message: "failed to prune cache: " + err.Error()})
			continue
		}
		r.repaired(Repair{Kind: RepairPrunedCache, Path: dir, Message: "pruned unreferenced cache"})
	}
	return nil
}

// repairLockfile drops unrebuildable entries and restores name ordering.
// generatedAt only moves when something changed.
func (r *run) repairLockfile() error {
	var removed int
	var reordered bool
	err := lockfile.Edit(r.layout.LockfilePath(), r.now(), func(lf *lockfile.Lockfile) error {
		for name := range r.drop {
			for lf.Remove(name) {
				removed++
			}
		}
		if !lf.Sorted() {
			lf.SortEntries()
			reordered = true
		}
		if removed > 0 || reordered {
			lf.Touch(r.now())
			return nil
		}
		return errUnchanged
	})
	if errors.Is(err, errUnchanged) {
		return nil
	}
	if err != nil {
		return err
	}
	msg := "normalized lockfile ordering and timestamp"
	if removed > 0 {
		msg = fmt.Sprintf("removed %d orphan lock %s and normalized the lockfile", removed, plural(removed, "entry", "entries"))
	}
	r.repaired(Repair{Kind: RepairNormalized, Path: r.layout.LockfilePath(), Message: msg})
	return nil
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

func validateManifest(dir string) error {
	p := filepath.Join(dir, skills.MarkerFile)
	if _, err := os.Stat(p); errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("missing %s at %s", skills.MarkerFile, p)
	}
	if _, err := skills.ParseFile(p); err != nil {
		return fmt.Errorf("invalid %s at %s: %w", skills.MarkerFile, p, err)
	}
	return nil
}
