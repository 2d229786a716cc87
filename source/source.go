// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package source parses the ways a user can name a skills repository
// into a canonical remote reference.
package source

import (
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/stacklok/skills-kit/skerr"
)

// LocalHost is the host recorded for file:// repositories.
const LocalHost = "local"

// Protocol identifies how a repository is reached.
type Protocol string

// Supported protocols.
const (
	ProtocolSSH   Protocol = "ssh"
	ProtocolHTTPS Protocol = "https"
	ProtocolFile  Protocol = "file"
)

// Ref is a remote reference: one source repository regardless of how it was spelled.
type Ref struct {
	URL   string `json:"url"`
	Host  string `json:"host"`
	Owner string `json:"owner"`
	Repo  string `json:"repo"`
}

// Protocol derives the transport from the URL.
func (r Ref) Protocol() Protocol {
	lower := strings.ToLower(r.URL)
	switch {
	case strings.HasPrefix(lower, "file://") || r.Host == LocalHost:
		return ProtocolFile
	case strings.HasPrefix(lower, "https://") || strings.HasPrefix(lower, "http://"):
		return ProtocolHTTPS
	default:
		return ProtocolSSH
	}
}

// IsLocal reports whether the reference points at the local filesystem.
func (r Ref) IsLocal() bool {
	return r.Host == LocalHost
}

// Slug is owner/repo, or the URL for local repositories.
func (r Ref) Slug() string {
	if r.IsLocal() {
		return r.URL
	}
	return r.Owner + "/" + r.Repo
}

// Key identifies the repository independently of protocol.
func (r Ref) Key() string {
	return strings.ToLower(r.Host + "/" + r.Owner + "/" + r.Repo)
}

// HTTPSFallback returns the https clone URL for a hosted repository.
func (r Ref) HTTPSFallback() (string, bool) {
	if r.Host == "" || r.IsLocal() || r.Owner == "" || r.Repo == "" {
		return "", false
	}
	return fmt.Sprintf("https://%s/%s/%s.git", r.Host, r.Owner, r.Repo), true
}

// CloneCandidates lists the URLs to try in order: the recorded URL, then the
// https fallback when it differs.
func (r Ref) CloneCandidates() []string {
	urls := []string{r.URL}
	if fb, ok := r.HTTPSFallback(); ok && fb != r.URL {
		urls = append(urls, fb)
	}
	return urls
}

// Parse turns user input into a Ref.
//
// Accepted forms:
//   - @owner/repo shorthand, expanded on defaultHost over https or ssh
//   - https://host/owner/repo(.git), http://..., ssh://[user@]host[:port]/owner/repo(.git)
//   - scp-like user@host:owner/repo(.git)
//   - file:///abs/path/to/repo(.git)
func Parse(input string, preferHTTPS bool, defaultHost string) (Ref, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return Ref{}, skerr.New(skerr.KindRepoResolution, "repository reference is empty")
	}

	if rest, ok := strings.CutPrefix(input, "@"); ok {
		return parseShorthand(rest, preferHTTPS, defaultHost)
	}

	if strings.Contains(input, "://") {
		return parseURL(input)
	}

	if at := strings.Index(input, "@"); at >= 0 {
		if host, p, ok := strings.Cut(input[at+1:], ":"); ok {
			return fromHostPath(input, host, p)
		}
	}

	return Ref{}, skerr.WithHint(
		skerr.Newf(skerr.KindRepoResolution, "unable to parse repo reference %q", input),
		"use @owner/repo, an https/ssh URL, or file:///path/to/repo",
	)
}

func parseShorthand(rest string, preferHTTPS bool, defaultHost string) (Ref, error) {
	owner, repo, ok := strings.Cut(rest, "/")
	repo = strings.TrimSuffix(repo, ".git")
	if !ok || owner == "" || repo == "" || strings.Contains(repo, "/") {
		return Ref{}, skerr.Newf(skerr.KindRepoResolution, "expected @owner/repo format, got @%s", rest)
	}
	if defaultHost == "" {
		defaultHost = "github.com"
	}
	u := fmt.Sprintf("git@%s:%s/%s.git", defaultHost, owner, repo)
	if preferHTTPS {
		u = fmt.Sprintf("https://%s/%s/%s.git", defaultHost, owner, repo)
	}
	return Ref{URL: u, Host: defaultHost, Owner: owner, Repo: repo}, nil
}

func parseURL(input string) (Ref, error) {
	u, err := url.Parse(input)
	if err != nil {
		return Ref{}, skerr.Wrap(skerr.KindRepoResolution, fmt.Errorf("unable to parse repo URL %q: %w", input, err))
	}

	if strings.EqualFold(u.Scheme, "file") {
		p := path.Clean(u.Path)
		repo := strings.TrimSuffix(path.Base(p), ".git")
		owner := path.Base(path.Dir(p))
		if owner == "/" || owner == "." || owner == "" {
			owner = LocalHost
		}
		if repo == "" || repo == "/" || repo == "." {
			repo = "repo"
		}
		return Ref{URL: input, Host: LocalHost, Owner: owner, Repo: repo}, nil
	}

	if u.Hostname() == "" {
		return Ref{}, skerr.Newf(skerr.KindRepoResolution, "missing host in URL %q", input)
	}
	return fromHostPath(input, u.Hostname(), u.Path)
}

func fromHostPath(raw, host, p string) (Ref, error) {
	parts := strings.Split(strings.Trim(p, "/"), "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return Ref{}, skerr.Newf(skerr.KindRepoResolution, "cannot parse owner/repo from %q", raw)
	}
	repo := strings.TrimSuffix(parts[1], ".git")
	if repo == "" {
		return Ref{}, skerr.Newf(skerr.KindRepoResolution, "cannot parse owner/repo from %q", raw)
	}
	return Ref{URL: raw, Host: host, Owner: parts[0], Repo: repo}, nil
}

// IsLocalURL reports whether a recorded source would be unusable by
// collaborators: host "local", file:// URLs, or loopback hosts.
func IsLocalURL(rawURL, host string) bool {
	if host == LocalHost {
		return true
	}
	lower := strings.ToLower(strings.TrimSpace(rawURL))
	if strings.HasPrefix(lower, "file://") {
		return true
	}
	if strings.Contains(lower, "://") {
		u, err := url.Parse(lower)
		if err != nil {
			return false
		}
		return isLoopback(u.Hostname())
	}
	if at := strings.Index(lower, "@"); at >= 0 {
		rest := lower[at+1:]
		if strings.HasPrefix(rest, "[") {
			if end := strings.Index(rest, "]"); end > 0 {
				return isLoopback(rest[1:end])
			}
		}
		if h, _, ok := strings.Cut(rest, ":"); ok {
			return isLoopback(h)
		}
	}
	return false
}

func isLoopback(host string) bool {
	switch host {
	case "localhost", "127.0.0.1", "::1":
		return true
	}
	return false
}
