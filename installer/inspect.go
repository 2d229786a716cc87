// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package installer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/stacklok/skills-kit/cache"
	"github.com/stacklok/skills-kit/lockfile"
	"github.com/stacklok/skills-kit/selector"
	"github.com/stacklok/skills-kit/skerr"
	"github.com/stacklok/skills-kit/skills"
	"github.com/stacklok/skills-kit/textdiff"
)

// Query narrows the entries an inspection covers.
type Query struct {
	// Names restricts to these install names. Unknown names are an error.
	Names []string
	// Filter is a compiled selector expression; nil matches everything.
	Filter *selector.Filter
}

type observed struct {
	entry       lockfile.Entry
	obs         lockfile.Observation
	description string
	markerErr   error
}

// observe loads the lockfile and the on-disk state of every selected entry.
func (i *Installer) observe(q Query) ([]observed, error) {
	lf, err := i.requireLockfile()
	if err != nil {
		return nil, err
	}
	wanted := map[string]bool{}
	for _, n := range q.Names {
		if _, err := i.find(lf, n); err != nil {
			return nil, err
		}
		wanted[n] = true
	}

	var out []observed
	for _, e := range lf.Skills {
		if len(wanted) > 0 && !wanted[e.InstallName] {
			continue
		}
		dir := i.layout.InstallDir(e.InstallName)
		obs, err := lockfile.Observe(&e, dir)
		if err != nil {
			return nil, err
		}
		o := observed{entry: e, obs: obs}
		if obs.State != lockfile.StateMissing {
			meta, err := skills.ParseFile(filepath.Join(dir, skills.MarkerFile))
			if err != nil {
				o.markerErr = err
			} else {
				o.description = meta.Description
			}
		}
		ok, err := q.Filter.Match(fieldsFor(o))
		if err != nil {
			return nil, skerr.Wrap(skerr.KindPrecondition, err)
		}
		if ok {
			out = append(out, o)
		}
	}
	return out, nil
}

func fieldsFor(o observed) selector.Fields {
	return selector.Fields{
		InstallName: o.entry.InstallName,
		Repo:        o.entry.Source.RemoteRef().Slug(),
		Host:        o.entry.Source.Host,
		SkillPath:   o.entry.Source.SkillPath,
		Ref:         o.entry.RefString(),
		Pinned:      isPinnedRef(o.entry.RefString()),
		Commit:      o.entry.Commit,
		State:       o.obs.State.String(),
		Description: o.description,
	}
}

// isPinnedRef guesses pinning from the ref text alone: a hex string of
// commit length or a version-looking tag. Only used for filtering, where no
// mirror is consulted.
func isPinnedRef(ref string) bool {
	if ref == "" {
		return false
	}
	if len(ref) >= 7 && len(ref) <= 40 && strings.Trim(ref, "0123456789abcdef") == "" {
		return true
	}
	return len(ref) > 1 && (ref[0] == 'v' || ref[0] == 'V') && ref[1] >= '0' && ref[1] <= '9'
}

// ListRow is one line of "sk list".
type ListRow struct {
	InstallName string `json:"installName"`
	Repo        string `json:"repo"`
	SkillPath   string `json:"skillPath"`
	Ref         string `json:"ref,omitempty"`
	Commit      string `json:"commit"`
	Description string `json:"description"`
	State       string `json:"state"`
}

// List describes every installed skill.
func (i *Installer) List(q Query) ([]ListRow, error) {
	obs, err := i.observe(q)
	if err != nil {
		return nil, err
	}
	rows := make([]ListRow, 0, len(obs))
	for _, o := range obs {
		rows = append(rows, ListRow{
			InstallName: o.entry.InstallName,
			Repo:        o.entry.RepoID(),
			SkillPath:   o.entry.Source.SkillPath,
			Ref:         o.entry.RefString(),
			Commit:      o.entry.ShortCommit(),
			Description: o.description,
			State:       o.obs.State.String(),
		})
	}
	return rows, nil
}

// Check states.
const (
	CheckOK       = "ok"
	CheckModified = "modified"
	CheckMissing  = "missing"
)

// CheckRow is one entry of "sk check".
type CheckRow struct {
	InstallName string `json:"installName"`
	State       string `json:"state"`
	// Problem explains a modified state caused by an invalid SKILL.md.
	Problem string `json:"problem,omitempty"`
}

// Check compares every selected entry to disk. An install whose digest
// matches but whose SKILL.md no longer parses is reported as modified.
func (i *Installer) Check(q Query) ([]CheckRow, error) {
	obs, err := i.observe(q)
	if err != nil {
		return nil, err
	}
	rows := make([]CheckRow, 0, len(obs))
	for _, o := range obs {
		row := CheckRow{InstallName: o.entry.InstallName}
		switch {
		case o.obs.State == lockfile.StateMissing:
			row.State = CheckMissing
		case o.markerErr != nil:
			row.State = CheckModified
			row.Problem = o.markerErr.Error()
		case o.obs.State == lockfile.StateModified:
			row.State = CheckModified
		default:
			row.State = CheckOK
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// StatusRow is one entry of "sk status".
type StatusRow struct {
	InstallName string `json:"installName"`
	State       string `json:"state"`
	Locked      string `json:"locked"`
	Current     string `json:"current,omitempty"`
	Upstream    string `json:"upstream,omitempty"`
	Update      string `json:"update,omitempty"`
	Pinned      bool   `json:"pinned"`
}

// Status reports local state and whether the entry's ref has moved in the
// existing cache mirror. Mirrors are never fetched, so run Update first for
// fresh tips. A mirror that lost its origin/HEAD asks the remote for its
// default branch and records it, as any default-branch resolution does.
func (i *Installer) Status(ctx context.Context, q Query) ([]StatusRow, error) {
	obs, err := i.observe(q)
	if err != nil {
		return nil, err
	}
	rows := make([]StatusRow, 0, len(obs))
	for _, o := range obs {
		row := StatusRow{
			InstallName: o.entry.InstallName,
			State:       o.obs.State.String(),
			Locked:      o.entry.ShortCommit(),
			Current:     o.obs.Digest,
		}
		if mir, ok := i.cache.Lookup(o.entry.Source.RemoteRef()); ok {
			res, err := i.cache.ResolveCommit(ctx, mir, o.entry.RefString())
			if err != nil {
				i.logger.Debug("cannot resolve upstream", "skill", o.entry.InstallName, "error", err)
			} else {
				row.Upstream = lockfile.Short(res.Commit)
				row.Pinned = res.Kind.Pinned()
				if res.Commit != o.entry.Commit {
					row.Update = fmt.Sprintf("%s -> %s", o.entry.ShortCommit(), lockfile.Short(res.Commit))
				}
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Update refreshes every cache mirror the lockfile references. It never
// touches the install root or the lockfile. Per-repository failures are
// reported in the results.
func (i *Installer) Update(ctx context.Context) ([]cache.RefreshResult, error) {
	lf, err := i.LoadLockfile()
	if err != nil {
		return nil, err
	}
	return i.cache.RefreshAll(ctx, lf.Sources()), nil
}

// DiffBase selects what installed trees are compared with.
type DiffBase int

const (
	// DiffLocked compares with the locked commit: shows local edits.
	DiffLocked DiffBase = iota
	// DiffUpstream compares with the current tip of the entry's ref.
	DiffUpstream
)

// DiffResult is the diff of one entry.
type DiffResult struct {
	InstallName string
	Repo        string
	// Commit is the commit the installed tree was compared with.
	Commit string
	// Branch is set for upstream diffs of tracked refs.
	Branch string
	Patch  string
	Err    error
}

// Diff renders unified diffs from the installed tree (a side, "local/") to
// the chosen base (b side, "remote/"). Entries without differences are
// omitted. Failures are per entry.
func (i *Installer) Diff(ctx context.Context, q Query, base DiffBase) ([]DiffResult, error) {
	obs, err := i.observe(q)
	if err != nil {
		return nil, err
	}
	var out []DiffResult
	for _, o := range obs {
		r := i.diffOne(ctx, o, base)
		if r.Err == nil && r.Patch == "" {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (i *Installer) diffOne(ctx context.Context, o observed, base DiffBase) DiffResult {
	e := o.entry
	r := DiffResult{InstallName: e.InstallName, Repo: e.RepoID(), Commit: e.Commit}
	if o.obs.State == lockfile.StateMissing {
		r.Err = skerr.WithHint(
			skerr.Newf(skerr.KindPrecondition, "installed directory for '%s' is missing", e.InstallName),
			"run 'sk doctor --apply' to rebuild it",
		)
		return r
	}
	if base == DiffLocked && o.obs.State == lockfile.StateClean {
		return r
	}

	var mir *cache.Mirror
	if base == DiffUpstream {
		mir, r.Err = i.cache.Ensure(ctx, e.Source.RemoteRef())
		if r.Err != nil {
			return r
		}
		res, err := i.cache.ResolveCommit(ctx, mir, e.RefString())
		if err != nil {
			r.Err = err
			return r
		}
		r.Commit, r.Branch = res.Commit, res.Branch
	} else {
		var ok bool
		if mir, ok = i.cache.Lookup(e.Source.RemoteRef()); !ok {
			r.Err = skerr.WithHint(
				skerr.Newf(skerr.KindMissingCache, "no cache mirror for %s", e.Source.RemoteRef().Slug()),
				"run 'sk update' first",
			)
			return r
		}
	}

	stage, err := i.extractStaged(ctx, mir.Dir, r.Commit, e.Source.SkillPath)
	if err != nil {
		r.Err = err
		return r
	}
	defer func() { _ = os.RemoveAll(filepath.Dir(stage)) }()

	r.Patch, r.Err = textdiff.Dirs(i.layout.InstallDir(e.InstallName), stage, "local", "remote")
	return r
}
