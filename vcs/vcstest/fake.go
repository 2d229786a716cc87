// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package vcstest provides an in-memory implementation of vcs.Git.
//
// Remotes and their history live in memory. Mirrors and worktrees are
// materialised on disk only as far as callers observe them: a mirror is a
// directory holding an empty .git directory, a worktree holds the checked-out
// files. This keeps cache layout, doctor pruning and sync-back mirroring
// testable without a git binary.
package vcstest

import (
	"archive/tar"
	"bytes"
	"context"
	"crypto/sha1" //#nosec G505 -- object ids only, mirrors git
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/stacklok/skills-kit/vcs"
)

// ErrUnreachable is returned for operations against a remote marked offline.
var ErrUnreachable = errors.New("remote unreachable")

// ErrRejected is returned by Push when the remote rejects updates.
var ErrRejected = errors.New("remote rejected push: non-fast-forward")

type commit struct {
	id     string
	parent string
	files  map[string][]byte
}

// Remote is an in-memory upstream repository.
type Remote struct {
	fake          *Fake
	url           string
	commits       map[string]*commit
	branches      map[string]string
	tags          map[string]string
	defaultBranch string
	offline       bool
	rejectPush    bool
}

type mirror struct {
	remote    *Remote
	known     map[string]bool
	branches  map[string]string
	tags      map[string]string
	head      string
	local     map[string]string
	worktrees map[string]bool
}

type worktree struct {
	mirrorDir string
	branch    string
	head      string
}

// Fake implements vcs.Git in memory. It is safe for concurrent use.
type Fake struct {
	mu        sync.Mutex
	seq       int
	remotes   map[string]*Remote
	mirrors   map[string]*mirror
	worktrees map[string]*worktree
	calls     []string
}

var _ vcs.Git = (*Fake)(nil)

// New returns an empty fake.
func New() *Fake {
	return &Fake{
		remotes:   map[string]*Remote{},
		mirrors:   map[string]*mirror{},
		worktrees: map[string]*worktree{},
	}
}

// AddRemote registers a remote reachable at each of urls. The first URL is canonical.
func (f *Fake) AddRemote(defaultBranch string, urls ...string) *Remote {
	f.mu.Lock()
	defer f.mu.Unlock()
	r := &Remote{
		fake:          f,
		url:           urls[0],
		commits:       map[string]*commit{},
		branches:      map[string]string{},
		tags:          map[string]string{},
		defaultBranch: defaultBranch,
	}
	for _, u := range urls {
		f.remotes[u] = r
	}
	return r
}

// Calls returns the names of the Git methods invoked so far, in order.
func (f *Fake) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *Fake) record(name string) {
	f.calls = append(f.calls, name)
}

func (f *Fake) newID(parent string, files map[string][]byte) string {
	f.seq++
	h := sha1.New() //#nosec G401 -- object ids only
	fmt.Fprintf(h, "%d\x00%s\x00", f.seq, parent)
	keys := sortedKeys(files)
	for _, k := range keys {
		h.Write([]byte(k))
		h.Write(files[k])
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Commit applies changes on top of branch's tip and returns the new commit id.
// A nil value deletes the file. The branch is created when missing.
func (r *Remote) Commit(branch string, changes map[string][]byte) string {
	r.fake.mu.Lock()
	defer r.fake.mu.Unlock()
	parent := r.branches[branch]
	files := map[string][]byte{}
	if p, ok := r.commits[parent]; ok {
		for k, v := range p.files {
			files[k] = v
		}
	}
	for k, v := range changes {
		if v == nil {
			delete(files, k)
			continue
		}
		files[k] = append([]byte(nil), v...)
	}
	id := r.fake.newID(parent, files)
	r.commits[id] = &commit{id: id, parent: parent, files: files}
	r.branches[branch] = id
	return id
}

// CommitStrings is Commit with string contents.
func (r *Remote) CommitStrings(branch string, changes map[string]string) string {
	m := make(map[string][]byte, len(changes))
	for k, v := range changes {
		m[k] = []byte(v)
	}
	return r.Commit(branch, m)
}

// Tag points name at id.
func (r *Remote) Tag(name, id string) {
	r.fake.mu.Lock()
	defer r.fake.mu.Unlock()
	r.tags[name] = id
}

// DeleteBranch removes a branch from the remote.
func (r *Remote) DeleteBranch(name string) {
	r.fake.mu.Lock()
	defer r.fake.mu.Unlock()
	delete(r.branches, name)
}

// SetDefaultBranch changes the remote HEAD.
func (r *Remote) SetDefaultBranch(name string) {
	r.fake.mu.Lock()
	defer r.fake.mu.Unlock()
	r.defaultBranch = name
}

// SetOffline makes every network operation against the remote fail.
func (r *Remote) SetOffline(offline bool) {
	r.fake.mu.Lock()
	defer r.fake.mu.Unlock()
	r.offline = offline
}

// RejectPushes makes Push fail with ErrRejected.
func (r *Remote) RejectPushes(reject bool) {
	r.fake.mu.Lock()
	defer r.fake.mu.Unlock()
	r.rejectPush = reject
}

// Branch returns the tip of a branch, or "".
func (r *Remote) Branch(name string) string {
	r.fake.mu.Lock()
	defer r.fake.mu.Unlock()
	return r.branches[name]
}

// Files returns the tree of a commit as strings.
func (r *Remote) Files(id string) map[string]string {
	r.fake.mu.Lock()
	defer r.fake.mu.Unlock()
	c, ok := r.commits[id]
	if !ok {
		return nil
	}
	out := make(map[string]string, len(c.files))
	for k, v := range c.files {
		out[k] = string(v)
	}
	return out
}

// Parent returns the parent of a commit.
func (r *Remote) Parent(id string) string {
	r.fake.mu.Lock()
	defer r.fake.mu.Unlock()
	if c, ok := r.commits[id]; ok {
		return c.parent
	}
	return ""
}

func (f *Fake) remote(url string) (*Remote, error) {
	r, ok := f.remotes[url]
	if !ok {
		return nil, fmt.Errorf("repository %s: %w", url, fs.ErrNotExist)
	}
	if r.offline {
		return nil, fmt.Errorf("%s: %w", url, ErrUnreachable)
	}
	return r, nil
}

func (f *Fake) mirror(dir string) (*mirror, error) {
	m, ok := f.mirrors[filepath.Clean(dir)]
	if !ok {
		return nil, fmt.Errorf("%s: not a git repository", dir)
	}
	return m, nil
}

// repoFor resolves a mirror or a worktree directory to its mirror.
func (f *Fake) repoFor(dir string) (*mirror, *worktree, error) {
	dir = filepath.Clean(dir)
	if wt, ok := f.worktrees[dir]; ok {
		m, err := f.mirror(wt.mirrorDir)
		return m, wt, err
	}
	m, err := f.mirror(dir)
	return m, nil, err
}

func (m *mirror) sync() {
	r := m.remote
	for id := range r.commits {
		m.known[id] = true
	}
	m.branches = copyMap(r.branches)
	m.tags = copyMap(r.tags)
}

// TopLevel implements vcs.Git.
func (f *Fake) TopLevel(_ context.Context, dir string) (string, error) {
	return filepath.Abs(dir)
}

// Clone implements vcs.Git.
func (f *Fake) Clone(_ context.Context, url, dir string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("Clone")
	r, err := f.remote(url)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Join(dir, ".git"), 0o750); err != nil {
		return err
	}
	m := &mirror{remote: r, known: map[string]bool{}, local: map[string]string{}, worktrees: map[string]bool{}}
	m.sync()
	m.head = r.defaultBranch
	f.mirrors[filepath.Clean(dir)] = m
	return nil
}

// Fetch implements vcs.Git.
func (f *Fake) Fetch(_ context.Context, dir string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("Fetch")
	m, err := f.mirror(dir)
	if err != nil {
		return err
	}
	if m.remote.offline {
		return ErrUnreachable
	}
	m.sync()
	return nil
}

// OriginHead implements vcs.Git.
func (f *Fake) OriginHead(_ context.Context, dir string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, err := f.mirror(dir)
	if err != nil {
		return "", err
	}
	return m.head, nil
}

// ForgetOriginHead drops a mirror's cached default-branch pointer.
func (f *Fake) ForgetOriginHead(dir string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if m, ok := f.mirrors[filepath.Clean(dir)]; ok {
		m.head = ""
	}
}

// RemoteDefaultBranch implements vcs.Git.
func (f *Fake) RemoteDefaultBranch(_ context.Context, url string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("RemoteDefaultBranch")
	r, err := f.remote(url)
	if err != nil {
		return "", err
	}
	return r.defaultBranch, nil
}

// SetOriginHead implements vcs.Git.
func (f *Fake) SetOriginHead(_ context.Context, dir, branch string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, err := f.mirror(dir)
	if err != nil {
		return err
	}
	m.head = branch
	return nil
}

func (f *Fake) lookupRef(dir, ref string) (string, bool) {
	m, wt, err := f.repoFor(dir)
	if err != nil {
		return "", false
	}
	switch {
	case ref == "HEAD" && wt != nil:
		return wt.head, true
	case strings.HasPrefix(ref, "refs/remotes/origin/"):
		id, ok := m.branches[strings.TrimPrefix(ref, "refs/remotes/origin/")]
		return id, ok
	case strings.HasPrefix(ref, "refs/tags/"):
		id, ok := m.tags[strings.TrimPrefix(ref, "refs/tags/")]
		return id, ok
	case strings.HasPrefix(ref, "refs/heads/"):
		id, ok := m.local[strings.TrimPrefix(ref, "refs/heads/")]
		return id, ok
	}
	return "", false
}

// RefExists implements vcs.Git.
func (f *Fake) RefExists(_ context.Context, dir, ref string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.lookupRef(dir, ref)
	return ok
}

// RevParse implements vcs.Git.
func (f *Fake) RevParse(_ context.Context, dir, rev string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rev = strings.TrimSuffix(rev, "^{commit}")
	if id, ok := f.lookupRef(dir, rev); ok {
		return id, nil
	}
	m, _, err := f.repoFor(dir)
	if err != nil {
		return "", err
	}
	if len(rev) >= 4 {
		var match string
		for id := range m.known {
			if strings.HasPrefix(id, rev) {
				if match != "" {
					return "", fmt.Errorf("ambiguous revision %s", rev)
				}
				match = id
			}
		}
		if match != "" {
			return match, nil
		}
	}
	return "", fmt.Errorf("unknown revision %s", rev)
}

// HasObject implements vcs.Git.
func (f *Fake) HasObject(_ context.Context, dir, oid string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, _, err := f.repoFor(dir)
	if err != nil {
		return false
	}
	return m.known[oid]
}

func (f *Fake) commitIn(dir, id string) (*commit, error) {
	m, _, err := f.repoFor(dir)
	if err != nil {
		return nil, err
	}
	c, ok := m.remote.commits[id]
	if !ok || !m.known[id] {
		return nil, fmt.Errorf("bad object %s", id)
	}
	return c, nil
}

// ListFiles implements vcs.Git.
func (f *Fake) ListFiles(_ context.Context, dir, id string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, err := f.commitIn(dir, id)
	if err != nil {
		return nil, err
	}
	return sortedKeys(c.files), nil
}

// ShowFile implements vcs.Git.
func (f *Fake) ShowFile(_ context.Context, dir, id, p string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, err := f.commitIn(dir, id)
	if err != nil {
		return nil, err
	}
	data, ok := c.files[p]
	if !ok {
		return nil, fmt.Errorf("path '%s' does not exist in '%s'", p, id)
	}
	return append([]byte(nil), data...), nil
}

// Archive implements vcs.Git.
func (f *Fake) Archive(_ context.Context, dir, id, p string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("Archive")
	c, err := f.commitIn(dir, id)
	if err != nil {
		return nil, err
	}
	prefix := ""
	if p != "" && p != "." {
		prefix = strings.TrimSuffix(p, "/") + "/"
	}

	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	// git archive leads with a pax global header carrying the commit id
	if err := tw.WriteHeader(&tar.Header{
		Typeflag:   tar.TypeXGlobalHeader,
		Name:       "pax_global_header",
		PAXRecords: map[string]string{"comment": id},
	}); err != nil {
		return nil, err
	}
	matched := false
	dirs := map[string]bool{}
	for _, name := range sortedKeys(c.files) {
		if prefix != "" && !strings.HasPrefix(name, prefix) {
			continue
		}
		matched = true
		for d := path.Dir(name); d != "." && !dirs[d]; d = path.Dir(d) {
			dirs[d] = true
			if err := tw.WriteHeader(&tar.Header{Typeflag: tar.TypeDir, Name: d + "/", Mode: 0o755}); err != nil {
				return nil, err
			}
		}
		data := c.files[name]
		if err := tw.WriteHeader(&tar.Header{Typeflag: tar.TypeReg, Name: name, Mode: 0o644, Size: int64(len(data))}); err != nil {
			return nil, err
		}
		if _, err := tw.Write(data); err != nil {
			return nil, err
		}
	}
	if !matched {
		return nil, fmt.Errorf("pathspec '%s' did not match any files", p)
	}
	if err := tw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// AddWorktree implements vcs.Git.
func (f *Fake) AddWorktree(_ context.Context, dir, branch, wtDir, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("AddWorktree")
	m, err := f.mirror(dir)
	if err != nil {
		return err
	}
	if _, exists := m.local[branch]; exists {
		return fmt.Errorf("a branch named '%s' already exists", branch)
	}
	c, err := f.commitIn(dir, id)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(wtDir, 0o750); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(wtDir, ".git"), []byte("gitdir: "+dir+"\n"), 0o600); err != nil {
		return err
	}
	for name, data := range c.files {
		target := filepath.Join(wtDir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
			return err
		}
		if err := os.WriteFile(target, data, 0o600); err != nil {
			return err
		}
	}
	m.local[branch] = id
	m.worktrees[filepath.Clean(wtDir)] = true
	f.worktrees[filepath.Clean(wtDir)] = &worktree{mirrorDir: filepath.Clean(dir), branch: branch, head: id}
	return nil
}

// RemoveWorktree implements vcs.Git.
func (f *Fake) RemoveWorktree(_ context.Context, dir, wtDir string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("RemoveWorktree")
	m, err := f.mirror(dir)
	if err != nil {
		return err
	}
	key := filepath.Clean(wtDir)
	delete(m.worktrees, key)
	delete(f.worktrees, key)
	return os.RemoveAll(wtDir)
}

// DeleteBranch implements vcs.Git.
func (f *Fake) DeleteBranch(_ context.Context, dir, branch string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("DeleteBranch")
	m, err := f.mirror(dir)
	if err != nil {
		return err
	}
	if _, ok := m.local[branch]; !ok {
		return fmt.Errorf("branch '%s' not found", branch)
	}
	delete(m.local, branch)
	return nil
}

// LocalBranches lists branches created in a mirror.
func (f *Fake) LocalBranches(dir string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.mirrors[filepath.Clean(dir)]
	if !ok {
		return nil
	}
	return sortedKeys(m.local)
}

// CommitAll implements vcs.Git.
func (f *Fake) CommitAll(_ context.Context, wtDir, _ string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("CommitAll")
	wt, ok := f.worktrees[filepath.Clean(wtDir)]
	if !ok {
		return false, fmt.Errorf("%s: not a worktree", wtDir)
	}
	m, err := f.mirror(wt.mirrorDir)
	if err != nil {
		return false, err
	}
	files, err := readTree(wtDir)
	if err != nil {
		return false, err
	}
	base := m.remote.commits[wt.head]
	if base != nil && equalTrees(base.files, files) {
		return false, nil
	}
	id := f.newID(wt.head, files)
	m.remote.commits[id] = &commit{id: id, parent: wt.head, files: files}
	// the object exists locally but the remote only learns the id on push
	m.known[id] = true
	wt.head = id
	m.local[wt.branch] = id
	return true, nil
}

// Push implements vcs.Git.
func (f *Fake) Push(_ context.Context, wtDir, branch string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("Push")
	wt, ok := f.worktrees[filepath.Clean(wtDir)]
	if !ok {
		return fmt.Errorf("%s: not a worktree", wtDir)
	}
	m, err := f.mirror(wt.mirrorDir)
	if err != nil {
		return err
	}
	if m.remote.offline {
		return ErrUnreachable
	}
	if m.remote.rejectPush {
		return &vcs.CommandError{Args: []string{"push", "-u", "origin", branch}, Stderr: "! [rejected] " + branch + " (fetch first)", Err: ErrRejected}
	}
	m.remote.branches[branch] = wt.head
	m.branches[branch] = wt.head
	return nil
}

// Merge fast-forwards into onto the tip of from, as a review tool would on merge.
// It returns the new tip of into.
func (r *Remote) Merge(from, into string) string {
	r.fake.mu.Lock()
	defer r.fake.mu.Unlock()
	src := r.commits[r.branches[from]]
	files := map[string][]byte{}
	for k, v := range src.files {
		files[k] = v
	}
	parent := r.branches[into]
	id := r.fake.newID(parent, files)
	r.commits[id] = &commit{id: id, parent: parent, files: files}
	r.branches[into] = id
	return id
}

func readTree(root string) (map[string][]byte, error) {
	files := map[string][]byte{}
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Name() == ".git" {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(p) //#nosec G304 -- test fixture paths
		if err != nil {
			return err
		}
		files[filepath.ToSlash(rel)] = data
		return nil
	})
	return files, err
}

func equalTrees(a, b map[string][]byte) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		w, ok := b[k]
		if !ok || !bytes.Equal(v, w) {
			return false
		}
	}
	return true
}

func copyMap(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
