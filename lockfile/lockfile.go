// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package lockfile

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/stacklok/skills-kit/skerr"
	"github.com/stacklok/skills-kit/source"
)

// Version is the only lockfile schema version understood.
const Version = 1

// Source records where a skill came from.
type Source struct {
	URL       string `json:"url"`
	Host      string `json:"host"`
	Owner     string `json:"owner"`
	Repo      string `json:"repo"`
	SkillPath string `json:"skillPath"`
}

// RemoteRef returns the repository part of the source.
func (s Source) RemoteRef() source.Ref {
	return source.Ref{URL: s.URL, Host: s.Host, Owner: s.Owner, Repo: s.Repo}
}

// SourceFrom builds a Source from a remote reference and a skill path.
func SourceFrom(ref source.Ref, skillPath string) Source {
	return Source{URL: ref.URL, Host: ref.Host, Owner: ref.Owner, Repo: ref.Repo, SkillPath: skillPath}
}

// Entry binds an install name to its source, commit and digest.
type Entry struct {
	InstallName string `json:"installName"`
	Source      Source `json:"source"`
	// Ref is the constraint given at install time. nil tracks the default branch.
	Ref         *string `json:"ref"`
	Commit      string  `json:"commit"`
	Digest      string  `json:"digest"`
	InstalledAt string  `json:"installedAt"`
}

// RefString returns the ref constraint, "" when tracking the default branch.
func (e *Entry) RefString() string {
	if e.Ref == nil {
		return ""
	}
	return *e.Ref
}

// ShortCommit returns the first seven characters of the commit.
func (e *Entry) ShortCommit() string {
	return Short(e.Commit)
}

// RepoID renders owner/repo[:path] (or the URL for local sources).
func (e *Entry) RepoID() string {
	base := e.Source.RemoteRef().Slug()
	if e.Source.SkillPath == "" || e.Source.SkillPath == "." {
		return base
	}
	return base + ":" + e.Source.SkillPath
}

// RefPtr returns nil for "" and a pointer to a copy otherwise.
func RefPtr(ref string) *string {
	if ref == "" {
		return nil
	}
	return &ref
}

// Short abbreviates a commit id to seven characters.
func Short(commit string) string {
	if len(commit) > 7 {
		return commit[:7]
	}
	return commit
}

// Lockfile is the project's record of installed skills.
type Lockfile struct {
	Version     int     `json:"version"`
	Skills      []Entry `json:"skills"`
	Repos       *Repos  `json:"repos,omitempty"`
	GeneratedAt string  `json:"generatedAt"`
}

// New returns an empty lockfile stamped with now.
func New(now time.Time) *Lockfile {
	return &Lockfile{Version: Version, Skills: []Entry{}, GeneratedAt: Timestamp(now)}
}

// Timestamp formats t the way the lockfile stores times.
func Timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// Touch updates the generation timestamp.
func (l *Lockfile) Touch(now time.Time) {
	l.GeneratedAt = Timestamp(now)
}

// Find returns the entry named installName and its index, or nil and -1.
func (l *Lockfile) Find(installName string) (*Entry, int) {
	for i := range l.Skills {
		if l.Skills[i].InstallName == installName {
			return &l.Skills[i], i
		}
	}
	return nil, -1
}

// Add appends a new entry. It fails if the install name is taken.
func (l *Lockfile) Add(e Entry) error {
	if existing, _ := l.Find(e.InstallName); existing != nil {
		return skerr.WithHint(
			skerr.Newf(skerr.KindPrecondition, "install name '%s' already exists in the lockfile", e.InstallName),
			"choose a different --alias or run 'sk remove "+e.InstallName+"' first",
		)
	}
	l.Skills = append(l.Skills, e)
	return nil
}

// Upsert replaces the entry with the same install name in place, or appends it.
func (l *Lockfile) Upsert(e Entry) {
	if _, i := l.Find(e.InstallName); i >= 0 {
		l.Skills[i] = e
		return
	}
	l.Skills = append(l.Skills, e)
}

// Remove deletes the entry named installName and reports whether it existed.
func (l *Lockfile) Remove(installName string) bool {
	_, i := l.Find(installName)
	if i < 0 {
		return false
	}
	l.Skills = append(l.Skills[:i], l.Skills[i+1:]...)
	return true
}

// SortEntries orders entries by install name.
func (l *Lockfile) SortEntries() {
	sort.SliceStable(l.Skills, func(i, j int) bool {
		return l.Skills[i].InstallName < l.Skills[j].InstallName
	})
}

// Sorted reports whether entries are already ordered by install name.
func (l *Lockfile) Sorted() bool {
	return sort.SliceIsSorted(l.Skills, func(i, j int) bool {
		return l.Skills[i].InstallName < l.Skills[j].InstallName
	})
}

// Duplicates returns install names that appear more than once, in first-seen order.
func (l *Lockfile) Duplicates() []string {
	seen := map[string]int{}
	var dups []string
	for _, s := range l.Skills {
		seen[s.InstallName]++
		if seen[s.InstallName] == 2 {
			dups = append(dups, s.InstallName)
		}
	}
	return dups
}

// Sources returns the distinct remote references used by entries, in entry order.
func (l *Lockfile) Sources() []source.Ref {
	seen := map[string]bool{}
	var refs []source.Ref
	for _, s := range l.Skills {
		ref := s.Source.RemoteRef()
		key := ref.URL + "\x00" + ref.Key()
		if seen[key] {
			continue
		}
		seen[key] = true
		refs = append(refs, ref)
	}
	return refs
}

// Marshal renders the lockfile as indented JSON with a trailing newline.
func (l *Lockfile) Marshal() ([]byte, error) {
	if l.Skills == nil {
		l.Skills = []Entry{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(l); err != nil {
		return nil, fmt.Errorf("encoding lockfile: %w", err)
	}
	return buf.Bytes(), nil
}

// Parse validates and decodes lockfile JSON.
// Any structural problem is reported as a lockfile-corruption error.
func Parse(data []byte) (*Lockfile, error) {
	if err := ValidateBytes(data); err != nil {
		return nil, corrupt(err)
	}
	var lf Lockfile
	if err := json.Unmarshal(data, &lf); err != nil {
		return nil, corrupt(fmt.Errorf("decoding lockfile: %w", err))
	}
	if lf.Skills == nil {
		lf.Skills = []Entry{}
	}
	return &lf, nil
}

func corrupt(err error) error {
	return skerr.WithHint(
		skerr.Wrap(skerr.KindLockfileCorruption, err),
		"restore skills.lock.json from version control (e.g. 'git checkout -- skills.lock.json') and retry",
	)
}

// Load reads the lockfile at path.
func Load(path string) (*Lockfile, error) {
	data, err := os.ReadFile(path) //#nosec G304 -- lockfile path is derived from the project root
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	lf, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return lf, nil
}

// LoadOrEmpty reads the lockfile at path, returning an empty one when the file does not exist.
func LoadOrEmpty(path string, now time.Time) (*Lockfile, error) {
	lf, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return New(now), nil
	}
	return lf, err
}

// Exists reports whether a lockfile is present at path.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Save writes the lockfile atomically: the content goes to a temporary file in
// the same directory, is synced, and is then renamed over path. Readers observe
// either the previous or the new content, never a partial write.
func Save(path string, lf *Lockfile) error {
	data, err := lf.Marshal()
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temporary lockfile: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("writing temporary lockfile: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("syncing temporary lockfile: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("closing temporary lockfile: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil { //#nosec G302 -- lockfile is committed and world-readable
		cleanup()
		return fmt.Errorf("setting lockfile permissions: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}

// Edit loads (or creates) the lockfile at path, applies fn and saves the result.
// Nothing is written when fn returns an error.
func Edit(path string, now time.Time, fn func(*Lockfile) error) error {
	lf, err := LoadOrEmpty(path, now)
	if err != nil {
		return err
	}
	if err := fn(lf); err != nil {
		return err
	}
	return Save(path, lf)
}
