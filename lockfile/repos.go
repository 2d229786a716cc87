// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package lockfile

import (
	"sort"
	"time"

	"github.com/stacklok/skills-kit/skerr"
	"github.com/stacklok/skills-kit/source"
)

// RepoEntry is a named source repository registered with "sk repo add".
type RepoEntry struct {
	Alias   string `json:"alias"`
	URL     string `json:"url"`
	Host    string `json:"host"`
	Owner   string `json:"owner"`
	Repo    string `json:"repo"`
	AddedAt string `json:"addedAt"`
}

// RemoteRef converts the registry entry to a remote reference.
func (r RepoEntry) RemoteRef() source.Ref {
	return source.Ref{URL: r.URL, Host: r.Host, Owner: r.Owner, Repo: r.Repo}
}

// Repos is the optional registry section of the lockfile.
type Repos struct {
	Entries []RepoEntry `json:"entries"`
}

// RepoList returns registered repositories sorted by alias.
func (l *Lockfile) RepoList() []RepoEntry {
	if l.Repos == nil {
		return nil
	}
	out := append([]RepoEntry(nil), l.Repos.Entries...)
	sort.Slice(out, func(i, j int) bool { return out[i].Alias < out[j].Alias })
	return out
}

// FindRepo looks a registered repository up by alias.
func (l *Lockfile) FindRepo(alias string) (RepoEntry, bool) {
	if l.Repos == nil {
		return RepoEntry{}, false
	}
	for _, r := range l.Repos.Entries {
		if r.Alias == alias {
			return r, true
		}
	}
	return RepoEntry{}, false
}

// AddRepo registers ref under alias. Aliases and repositories are both unique.
func (l *Lockfile) AddRepo(alias string, ref source.Ref, now time.Time) error {
	if _, ok := l.FindRepo(alias); ok {
		return skerr.WithHint(
			skerr.Newf(skerr.KindPrecondition, "repo alias '%s' is already registered", alias),
			"run 'sk repo remove "+alias+"' first or pick another alias",
		)
	}
	if l.Repos == nil {
		l.Repos = &Repos{}
	}
	for _, r := range l.Repos.Entries {
		if r.RemoteRef().Key() == ref.Key() && r.URL == ref.URL {
			return skerr.Newf(skerr.KindPrecondition, "%s is already registered as '%s'", ref.Slug(), r.Alias)
		}
	}
	l.Repos.Entries = append(l.Repos.Entries, RepoEntry{
		Alias:   alias,
		URL:     ref.URL,
		Host:    ref.Host,
		Owner:   ref.Owner,
		Repo:    ref.Repo,
		AddedAt: Timestamp(now),
	})
	return nil
}

// RemoveRepo unregisters alias. The repos section is dropped once empty.
func (l *Lockfile) RemoveRepo(alias string) bool {
	if l.Repos == nil {
		return false
	}
	for i, r := range l.Repos.Entries {
		if r.Alias != alias {
			continue
		}
		l.Repos.Entries = append(l.Repos.Entries[:i], l.Repos.Entries[i+1:]...)
		if len(l.Repos.Entries) == 0 {
			l.Repos = nil
		}
		return true
	}
	return false
}
