// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package paths resolves where sk keeps its state: the project lockfile and
// install root, the per-user cache of repository mirrors, and the per-user
// configuration directory.
package paths

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"

	"github.com/stacklok/skills-kit/env"
)

const (
	// CacheDirEnv relocates the per-user cache. Mirrors live under $SK_CACHE_DIR/repos.
	CacheDirEnv = "SK_CACHE_DIR"
	// ConfigDirEnv relocates the per-user configuration directory.
	ConfigDirEnv = "SK_CONFIG_DIR"
	// LockfileName is the lockfile written at the project root.
	LockfileName = "skills.lock.json"
	// DefaultInstallRoot is used when neither a flag nor user config names one.
	DefaultInstallRoot = "./skills"

	appName = "sk"
)

// Layout is the explicit context every operation runs against.
type Layout struct {
	// ProjectRoot is the top of the host project's working tree.
	ProjectRoot string
	// InstallRoot holds one directory per installed skill.
	InstallRoot string
	// CacheRoot holds repository mirrors keyed by host/owner/repo.
	CacheRoot string
	// ConfigDir holds config.json.
	ConfigDir string
}

// LockfilePath returns the absolute lockfile path.
func (l Layout) LockfilePath() string {
	return filepath.Join(l.ProjectRoot, LockfileName)
}

// InstallDir returns the directory of an installed skill.
func (l Layout) InstallDir(installName string) string {
	return filepath.Join(l.InstallRoot, installName)
}

// ConfigFile returns the user configuration file path.
func (l Layout) ConfigFile() string {
	return filepath.Join(l.ConfigDir, "config.json")
}

// RelInstallDir returns the install directory relative to the project root,
// using forward slashes. Falls back to the absolute path when not under the root.
func (l Layout) RelInstallDir(installName string) string {
	dir := l.InstallDir(installName)
	rel, err := filepath.Rel(l.ProjectRoot, dir)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return dir
	}
	return filepath.ToSlash(rel)
}

// CacheRoot returns the mirror root within the given cache home directory.
// This is the injectable, testable form; see [ResolveCacheRoot].
func CacheRoot(cacheHome string) string {
	return filepath.Join(cacheHome, appName, "repos")
}

// ResolveCacheRoot honours SK_CACHE_DIR, falling back to the XDG cache home.
func ResolveCacheRoot(r env.Reader) string {
	if dir := env.String(r, CacheDirEnv, ""); dir != "" {
		return filepath.Join(dir, "repos")
	}
	return CacheRoot(xdg.CacheHome)
}

// ResolveConfigDir honours SK_CONFIG_DIR, falling back to the XDG config home.
func ResolveConfigDir(r env.Reader) string {
	if dir := env.String(r, ConfigDirEnv, ""); dir != "" {
		return dir
	}
	return filepath.Join(xdg.ConfigHome, appName)
}

// ResolveProjectPath joins a relative path onto the project root; absolute paths pass through.
func ResolveProjectPath(projectRoot, relOrAbs string) string {
	if filepath.IsAbs(relOrAbs) {
		return filepath.Clean(relOrAbs)
	}
	return filepath.Join(projectRoot, relOrAbs)
}

// NewLayout builds a Layout for projectRoot. installRoot may be relative to the project.
func NewLayout(r env.Reader, projectRoot, installRoot string) (Layout, error) {
	if projectRoot == "" {
		return Layout{}, fmt.Errorf("project root is required")
	}
	abs, err := filepath.Abs(projectRoot)
	if err != nil {
		return Layout{}, fmt.Errorf("resolving project root %s: %w", projectRoot, err)
	}
	if installRoot == "" {
		installRoot = DefaultInstallRoot
	}
	return Layout{
		ProjectRoot: abs,
		InstallRoot: ResolveProjectPath(abs, installRoot),
		CacheRoot:   ResolveCacheRoot(r),
		ConfigDir:   ResolveConfigDir(r),
	}, nil
}
