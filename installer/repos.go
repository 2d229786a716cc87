// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package installer

import (
	"context"
	"strings"

	"github.com/stacklok/skills-kit/lockfile"
	"github.com/stacklok/skills-kit/skerr"
	"github.com/stacklok/skills-kit/skills"
	"github.com/stacklok/skills-kit/source"
	"github.com/stacklok/skills-kit/validation/name"
)

// AddRepo registers ref in the lockfile under alias, cloning it into the
// cache first so an unreachable repository is never recorded. An empty alias
// defaults to the lowercased repository name.
func (i *Installer) AddRepo(ctx context.Context, alias string, ref source.Ref) (*lockfile.RepoEntry, error) {
	if alias == "" {
		alias = strings.ToLower(ref.Repo)
	}
	if err := name.ValidateAlias(alias); err != nil {
		return nil, err
	}
	if _, err := i.cache.Ensure(ctx, ref); err != nil {
		return nil, err
	}
	var added lockfile.RepoEntry
	err := lockfile.Edit(i.layout.LockfilePath(), i.now(), func(lf *lockfile.Lockfile) error {
		if err := lf.AddRepo(alias, ref, i.now()); err != nil {
			return err
		}
		added, _ = lf.FindRepo(alias)
		lf.Touch(i.now())
		return nil
	})
	if err != nil {
		return nil, err
	}
	i.logger.Info("registered repo", "alias", alias, "repo", ref.Slug())
	return &added, nil
}

// Repos lists registered repositories sorted by alias.
func (i *Installer) Repos() ([]lockfile.RepoEntry, error) {
	lf, err := i.LoadLockfile()
	if err != nil {
		return nil, err
	}
	return lf.RepoList(), nil
}

// RemoveRepo unregisters alias. Installed skills and the cache are untouched.
func (i *Installer) RemoveRepo(alias string) error {
	return lockfile.Edit(i.layout.LockfilePath(), i.now(), func(lf *lockfile.Lockfile) error {
		if !lf.RemoveRepo(alias) {
			return skerr.WithHint(
				skerr.Newf(skerr.KindUnitNotFound, "repo alias '%s' is not registered", alias),
				"run 'sk repo list' to see registered repos",
			)
		}
		lf.Touch(i.now())
		return nil
	})
}

// ResolveRepo turns a registered alias or a repository reference into a Ref.
func (i *Installer) ResolveRepo(target string, preferHTTPS bool, defaultHost string) (source.Ref, string, error) {
	lf, err := i.LoadLockfile()
	if err != nil {
		return source.Ref{}, "", err
	}
	if r, ok := lf.FindRepo(target); ok {
		return r.RemoteRef(), r.Alias, nil
	}
	ref, err := source.Parse(target, preferHTTPS, defaultHost)
	if err != nil {
		return source.Ref{}, "", err
	}
	return ref, labelFor(lf, ref), nil
}

func labelFor(lf *lockfile.Lockfile, ref source.Ref) string {
	for _, r := range lf.RepoList() {
		if r.RemoteRef().Key() == ref.Key() {
			return r.Alias
		}
	}
	return ref.Slug()
}

// SearchHit is one skill found by Search.
type SearchHit struct {
	Repo        string `json:"repo"`
	Name        string `json:"name"`
	Path        string `json:"path"`
	Description string `json:"description"`
}

// SearchRequest configures Search.
type SearchRequest struct {
	// Query is matched case-insensitively; every whitespace-separated token
	// must occur in the name, path or description. Empty lists everything.
	Query string
	// Targets restricts the search. Empty means every registered repository.
	Targets []source.Ref
}

// Search scans the default-branch tip of each target repository.
func (i *Installer) Search(ctx context.Context, req SearchRequest) ([]SearchHit, error) {
	lf, err := i.LoadLockfile()
	if err != nil {
		return nil, err
	}
	targets := req.Targets
	if len(targets) == 0 {
		for _, r := range lf.RepoList() {
			targets = append(targets, r.RemoteRef())
		}
	}
	if len(targets) == 0 {
		return nil, skerr.WithHint(
			skerr.New(skerr.KindPrecondition, "no repos registered"),
			"run 'sk repo add <repo>' first or pass --repo <alias-or-repo>",
		)
	}

	tokens := strings.Fields(strings.ToLower(req.Query))
	var hits []SearchHit
	for _, ref := range targets {
		found, err := i.catalog(ctx, ref)
		if err != nil {
			return nil, err
		}
		label := labelFor(lf, ref)
		for _, d := range found {
			if !matchesAll(tokens, d) {
				continue
			}
			hits = append(hits, SearchHit{Repo: label, Name: d.Name(), Path: d.Path, Description: d.Meta.Description})
		}
	}
	return hits, nil
}

func (i *Installer) catalog(ctx context.Context, ref source.Ref) ([]skills.Descriptor, error) {
	mir, err := i.cache.Ensure(ctx, ref)
	if err != nil {
		return nil, err
	}
	if mir.Stale() {
		i.logger.Warn("showing last-known skills; cache refresh failed", "repo", ref.Slug(), "error", mir.RefreshErr)
	}
	res, err := i.cache.ResolveCommit(ctx, mir, "")
	if err != nil {
		return nil, err
	}
	return skills.Discover(ctx, i.git, mir.Dir, res.Commit, i.logger)
}

func matchesAll(tokens []string, d skills.Descriptor) bool {
	hay := strings.ToLower(d.Name() + "\n" + d.Path + "\n" + d.Meta.Description)
	for _, t := range tokens {
		if !strings.Contains(hay, t) {
			return false
		}
	}
	return true
}
