// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package cache

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Mirrors lists every mirror directory on disk: directories exactly three
// levels below the root (host/owner/repo) that contain a .git entry.
func (m *Manager) Mirrors() ([]string, error) {
	hosts, err := os.ReadDir(m.root)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading cache root: %w", err)
	}
	var out []string
	for _, h := range hosts {
		if !h.IsDir() {
			continue
		}
		owners, err := os.ReadDir(filepath.Join(m.root, h.Name()))
		if err != nil {
			continue
		}
		for _, o := range owners {
			if !o.IsDir() {
				continue
			}
			repos, err := os.ReadDir(filepath.Join(m.root, h.Name(), o.Name()))
			if err != nil {
				continue
			}
			for _, r := range repos {
				dir := filepath.Join(m.root, h.Name(), o.Name(), r.Name())
				if r.IsDir() && exists(filepath.Join(dir, ".git")) {
					out = append(out, dir)
				}
			}
		}
	}
	sort.Strings(out)
	return out, nil
}

// Remove deletes the mirror at dir and then any parent directories left
// empty, stopping at the cache root. dir must be inside the root.
func (m *Manager) Remove(dir string) error {
	rel, err := filepath.Rel(m.root, dir)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("refusing to remove %s: not inside cache root %s", dir, m.root)
	}
	m.logger.Info("removing cache mirror", "path", dir)
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("removing %s: %w", dir, err)
	}
	m.pruneEmptyParents(filepath.Dir(dir))
	return nil
}

func (m *Manager) pruneEmptyParents(dir string) {
	root := filepath.Clean(m.root)
	for dir = filepath.Clean(dir); dir != root && len(dir) > len(root); dir = filepath.Dir(dir) {
		entries, err := os.ReadDir(dir)
		if err != nil || len(entries) > 0 {
			return
		}
		if err := os.Remove(dir); err != nil {
			return
		}
	}
}

// Unreferenced returns mirrors on disk that are not in referenced.
func (m *Manager) Unreferenced(referenced map[string]bool) ([]string, error) {
	all, err := m.Mirrors()
	if err != nil {
		return nil, err
	}
	var out []string
	for _, dir := range all {
		if !referenced[filepath.Clean(dir)] {
			out = append(out, dir)
		}
	}
	return out, nil
}
