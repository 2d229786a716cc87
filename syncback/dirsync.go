// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package syncback

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/stacklok/skills-kit/env"
)

// ForceRsyncMissingEnv disables rsync detection, forcing the copy fallback.
const ForceRsyncMissingEnv = "SK_FORCE_RSYNC_MISSING"

// Rsync syncs directories with the rsync binary.
type Rsync struct {
	binary string
	reason string
}

// NewRsync probes PATH for rsync.
func NewRsync(r env.Reader) *Rsync {
	if r.Getenv(ForceRsyncMissingEnv) != "" {
		return &Rsync{reason: ForceRsyncMissingEnv + " is set"}
	}
	bin, err := exec.LookPath("rsync")
	if err != nil {
		return &Rsync{reason: "'rsync' not found in PATH"}
	}
	return &Rsync{binary: bin}
}

// Name implements DirSyncer.
func (*Rsync) Name() string {
	return "rsync"
}

// Availability implements DirSyncer.
func (s *Rsync) Availability(context.Context) Availability {
	if s.binary == "" {
		return Unavailable(s.reason)
	}
	return Available()
}

// Sync implements DirSyncer.
func (s *Rsync) Sync(ctx context.Context, src, dst string) error {
	if s.binary == "" {
		return errors.New("rsync is not available: " + s.reason)
	}
	if err := os.MkdirAll(dst, 0o750); err != nil {
		return fmt.Errorf("creating %s: %w", dst, err)
	}
	args := []string{"-a", "--delete", "--exclude", ".git",
		strings.TrimSuffix(src, "/") + "/", strings.TrimSuffix(dst, "/") + "/"}
	cmd := exec.CommandContext(ctx, s.binary, args...) //#nosec G204 -- fixed flags and local paths
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("rsync %s: %w: %s", strings.Join(args, " "), err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

// Copy syncs directories with a recursive copy. It is always available.
type Copy struct{}

// Name implements DirSyncer.
func (Copy) Name() string {
	return "copy"
}

// Availability implements DirSyncer.
func (Copy) Availability(context.Context) Availability {
	return Available()
}

// Sync implements DirSyncer. Regular files keep their permission bits and
// symlinks are recreated, not followed.
func (Copy) Sync(ctx context.Context, src, dst string) error {
	if err := purgeExceptGit(dst); err != nil {
		return err
	}
	if err := os.MkdirAll(dst, 0o750); err != nil {
		return fmt.Errorf("creating %s: %w", dst, err)
	}
	return filepath.WalkDir(src, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		rel, err := filepath.Rel(src, p)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		if d.Name() == ".git" {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		target := filepath.Join(dst, rel)
		switch {
		case d.IsDir():
			return os.MkdirAll(target, 0o750)
		case d.Type()&fs.ModeSymlink != 0:
			link, err := os.Readlink(p)
			if err != nil {
				return fmt.Errorf("reading symlink %s: %w", p, err)
			}
			return os.Symlink(link, target)
		case d.Type().IsRegular():
			return copyFile(p, target)
		}
		return nil
	})
}

func copyFile(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	in, err := os.Open(src) //#nosec G304 -- walking the install tree
	if err != nil {
		return err
	}
	defer in.Close()
	if err := os.MkdirAll(filepath.Dir(dst), 0o750); err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, info.Mode().Perm()) //#nosec G304 -- worktree path
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return fmt.Errorf("copying %s: %w", src, err)
	}
	return out.Close()
}

// purgeExceptGit empties dir, keeping a .git file or directory.
func purgeExceptGit(dir string) error {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading %s: %w", dir, err)
	}
	for _, e := range entries {
		if e.Name() == ".git" {
			continue
		}
		if err := os.RemoveAll(filepath.Join(dir, e.Name())); err != nil {
			return fmt.Errorf("removing %s: %w", e.Name(), err)
		}
	}
	return nil
}
