// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package catalog is a read-only index of the skills under an install root.
//
// The index is rebuilt from disk on every call: SKILL.md files are found by
// walking the root, hidden directories are skipped, and files whose front
// matter does not parse are logged and left out.
package catalog

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/stacklok/skills-kit/logging"
	"github.com/stacklok/skills-kit/skills"
)

const (
	// DefaultSearchLimit is used when a search does not set a limit.
	DefaultSearchLimit = 10
	// MaxSearchLimit caps the number of search results.
	MaxSearchLimit = 25

	excerptRadius = 80
)

// ErrEmptyQuery is returned by Search for a blank query.
var ErrEmptyQuery = errors.New("query must not be empty")

// Record is one skill found under the install root.
type Record struct {
	InstallName string `json:"installName"`
	Name        string `json:"name"`
	Description string `json:"description"`
	// SkillPath and SkillFile are relative to the project root, slash separated.
	SkillPath string `json:"skillPath"`
	SkillFile string `json:"skillFile"`
	Body      string `json:"body,omitempty"`

	bodyLower string
	blob      string
}

// Summary drops the body unless includeBody is set.
func (r Record) Summary(includeBody bool) Record {
	if !includeBody {
		r.Body = ""
	}
	return r
}

// Hit is a search match.
type Hit struct {
	Record
	// Score is the number of query tokens matched.
	Score   int    `json:"score"`
	Excerpt string `json:"excerpt"`
}

// Catalog indexes the install root.
type Catalog struct {
	projectRoot string
	root        string
	logger      *slog.Logger
}

// New returns a Catalog over root. Paths in records are reported relative to projectRoot.
func New(projectRoot, root string, logger *slog.Logger) *Catalog {
	return &Catalog{
		projectRoot: projectRoot,
		root:        root,
		logger:      logging.OrDiscard(logger).With(logging.ComponentKey, "catalog"),
	}
}

// Root returns the indexed directory.
func (c *Catalog) Root() string {
	return c.root
}

// RelRoot returns the indexed directory relative to the project root.
func (c *Catalog) RelRoot() string {
	return c.rel(c.root)
}

func (c *Catalog) rel(p string) string {
	r, err := filepath.Rel(c.projectRoot, p)
	if err != nil || strings.HasPrefix(r, "..") {
		return filepath.ToSlash(p)
	}
	return filepath.ToSlash(r)
}

// Scan reads every skill under the root, sorted by install name.
func (c *Catalog) Scan() ([]Record, error) {
	if _, err := os.Stat(c.root); err != nil {
		return nil, fmt.Errorf("skills root %s: %w", c.RelRoot(), err)
	}
	var records []Record
	err := filepath.WalkDir(c.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			c.logger.Warn("skipping unreadable path", "path", p, "error", err)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if p != c.root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || !strings.EqualFold(d.Name(), skills.MarkerFile) {
			return nil
		}
		if rec, ok := c.load(p); ok {
			records = append(records, rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].InstallName < records[j].InstallName
	})
	return records, nil
}

func (c *Catalog) load(p string) (Record, bool) {
	data, err := os.ReadFile(p) //#nosec G304 -- walking the install root
	if err != nil {
		c.logger.Warn("unable to read skill", "path", p, "error", err)
		return Record{}, false
	}
	meta, err := skills.Parse(data)
	if err != nil {
		c.logger.Warn("unable to parse front matter", "path", p, "error", err)
		return Record{}, false
	}
	dir := filepath.Dir(p)
	installName := filepath.Base(dir)
	if dir == c.root {
		installName = meta.Name
	}
	body := strings.TrimSpace(skills.Body(data))
	return Record{
		InstallName: installName,
		Name:        meta.Name,
		Description: meta.Description,
		SkillPath:   c.rel(dir),
		SkillFile:   c.rel(p),
		Body:        body,
		bodyLower:   asciiLower(body),
		blob:        asciiLower(installName + "\n" + meta.Name + "\n" + meta.Description + "\n" + body),
	}, true
}

// List returns every record whose name, description or body contains query,
// case-insensitively. A blank query matches everything.
func (c *Catalog) List(query string) ([]Record, error) {
	records, err := c.Scan()
	if err != nil {
		return nil, err
	}
	needle := asciiLower(strings.TrimSpace(query))
	if needle == "" {
		return records, nil
	}
	out := records[:0]
	for _, r := range records {
		if strings.Contains(r.blob, needle) {
			out = append(out, r)
		}
	}
	return out, nil
}

// Search returns records containing every whitespace-separated token of
// query, best score first, and the total number of matches before limit.
func (c *Catalog) Search(query string, limit int) ([]Hit, int, error) {
	tokens := strings.Fields(asciiLower(query))
	if len(tokens) == 0 {
		return nil, 0, ErrEmptyQuery
	}
	records, err := c.Scan()
	if err != nil {
		return nil, 0, err
	}
	var hits []Hit
	for _, r := range records {
		if h, ok := score(r, tokens); ok {
			hits = append(hits, h)
		}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].InstallName < hits[j].InstallName
	})
	total := len(hits)
	if limit := ClampLimit(limit); len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, total, nil
}

// ClampLimit maps a requested limit into [1, MaxSearchLimit]; zero or less
// means DefaultSearchLimit.
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultSearchLimit
	case limit > MaxSearchLimit:
		return MaxSearchLimit
	}
	return limit
}

func score(r Record, tokens []string) (Hit, bool) {
	for _, t := range tokens {
		if !strings.Contains(r.blob, t) {
			return Hit{}, false
		}
	}
	excerpt := r.Description
	for _, t := range tokens {
		if idx := strings.Index(r.bodyLower, t); idx >= 0 {
			excerpt = snippet(r.Body, idx, len(t))
			break
		}
	}
	return Hit{Record: r.Summary(false), Score: len(tokens), Excerpt: excerpt}, true
}

func snippet(text string, idx, n int) string {
	start := max(idx-excerptRadius, 0)
	end := min(idx+n+excerptRadius, len(text))
	// keep multi-byte runes whole
	for start > 0 && !isRuneStart(text[start]) {
		start--
	}
	for end < len(text) && !isRuneStart(text[end]) {
		end++
	}
	return strings.ReplaceAll(strings.TrimSpace(text[start:end]), "\n", " ")
}

// asciiLower lowercases A-Z only, so byte offsets stay valid in the original.
func asciiLower(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= 'A' && r <= 'Z' {
			return r + ('a' - 'A')
		}
		return r
	}, s)
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}

// Find returns the record whose declared name or install name equals name,
// case-insensitively.
func (c *Catalog) Find(name string) (*Record, error) {
	name = strings.TrimSpace(name)
	records, err := c.Scan()
	if err != nil {
		return nil, err
	}
	for i := range records {
		if strings.EqualFold(records[i].Name, name) || strings.EqualFold(records[i].InstallName, name) {
			return &records[i], nil
		}
	}
	return nil, fmt.Errorf("unknown skill: %s", name)
}
