// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package mcpserver

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacklok/skills-kit/catalog"
)

func TestWatch_DebouncesChanges(t *testing.T) {
	t.Parallel()

	project := t.TempDir()
	root := filepath.Join(project, "skills")
	writeSkill(t, root, "notes", "notes", "Note keeper", "body")

	s := New(catalog.New(project, root, nil), "test", WithDebounce(100*time.Millisecond))
	var notified atomic.Int32
	s.notify = func() { notified.Add(1) }

	ctx, cancel := context.WithCancel(context.Background())
	done, err := s.Watch(ctx)
	require.NoError(t, err)

	for i := range 5 {
		writeSkill(t, root, "notes", "notes", "Note keeper", "body "+string(rune('a'+i)))
	}
	require.Eventually(t, func() bool { return notified.Load() == 1 }, 5*time.Second, 20*time.Millisecond)

	// Directories created after startup are watched too.
	writeSkill(t, root, "fresh", "fresh", "New skill", "body")
	require.Eventually(t, func() bool { return notified.Load() >= 2 }, 5*time.Second, 20*time.Millisecond)
	before := notified.Load()
	require.NoError(t, os.WriteFile(filepath.Join(root, "fresh", "notes.md"), []byte("x"), 0o600))
	require.Eventually(t, func() bool { return notified.Load() > before }, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestWatch_MissingRoot(t *testing.T) {
	t.Parallel()

	project := t.TempDir()
	s := New(catalog.New(project, filepath.Join(project, "skills"), nil), "test")
	_, err := s.Watch(context.Background())
	require.Error(t, err)
	assert.True(t, os.IsNotExist(err))
}
