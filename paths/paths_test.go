// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package paths

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacklok/skills-kit/env"
)

func TestNewLayout_Overrides(t *testing.T) {
	t.Parallel()

	project := t.TempDir()
	cacheDir := t.TempDir()
	configDir := t.TempDir()
	r := env.MapReader{CacheDirEnv: cacheDir, ConfigDirEnv: configDir}

	l, err := NewLayout(r, project, "")
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(project, "skills"), l.InstallRoot)
	assert.Equal(t, filepath.Join(cacheDir, "repos"), l.CacheRoot)
	assert.Equal(t, configDir, l.ConfigDir)
	assert.Equal(t, filepath.Join(project, LockfileName), l.LockfilePath())
	assert.Equal(t, filepath.Join(configDir, "config.json"), l.ConfigFile())
	assert.Equal(t, filepath.Join(project, "skills", "demo"), l.InstallDir("demo"))
	assert.Equal(t, "skills/demo", l.RelInstallDir("demo"))
}

func TestNewLayout_AbsoluteInstallRoot(t *testing.T) {
	t.Parallel()

	project := t.TempDir()
	elsewhere := t.TempDir()
	l, err := NewLayout(env.MapReader{}, project, elsewhere)
	require.NoError(t, err)
	assert.Equal(t, elsewhere, l.InstallRoot)
	assert.Equal(t, filepath.Join(elsewhere, "x"), l.RelInstallDir("x"))
}

func TestNewLayout_RequiresProjectRoot(t *testing.T) {
	t.Parallel()
	_, err := NewLayout(env.MapReader{}, "", "")
	assert.Error(t, err)
}

func TestCacheRoot(t *testing.T) {
	t.Parallel()
	assert.Equal(t, filepath.Join("/home/u/.cache", "sk", "repos"), CacheRoot("/home/u/.cache"))
}

func TestResolveProjectPath(t *testing.T) {
	t.Parallel()
	assert.Equal(t, filepath.Join("/p", "skills"), ResolveProjectPath("/p", "./skills"))
	assert.Equal(t, "/abs/root", ResolveProjectPath("/p", "/abs/root/"))
}
