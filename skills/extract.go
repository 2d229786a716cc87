// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package skills

import (
	"archive/tar"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// MaxFileSize is the maximum size of a single file extracted from a skill (100MB).
const MaxFileSize = 100 * 1024 * 1024

// Archiver produces a tar stream of a subtree at a commit.
type Archiver interface {
	Archive(ctx context.Context, dir, commit, path string) ([]byte, error)
}

// FileEntry is one regular file of an extracted skill.
type FileEntry struct {
	// Path is relative to the skill directory, slash-separated.
	Path    string
	Content []byte
	Mode    int64
}

// Extract writes the skill at skillPath in commit into dest, which must not
// contain files yet. It returns the number of files written.
func Extract(ctx context.Context, arch Archiver, dir, commit, skillPath, dest string) (int, error) {
	skillPath = NormalizePath(skillPath)
	data, err := arch.Archive(ctx, dir, commit, skillPath)
	if err != nil {
		return 0, fmt.Errorf("archiving %s at %s: %w", skillPath, short(commit), err)
	}
	files, err := ExtractTar(data, skillPath)
	if err != nil {
		return 0, err
	}
	if len(files) == 0 {
		return 0, fmt.Errorf("no files under %s at %s", skillPath, short(commit))
	}
	if err := WriteFiles(dest, files); err != nil {
		return 0, err
	}
	return len(files), nil
}

// ExtractTar reads a tar stream, keeping regular files below prefix with the
// prefix stripped. prefix "." keeps everything.
func ExtractTar(data []byte, prefix string) ([]FileEntry, error) {
	return ExtractTarWithLimit(data, prefix, MaxFileSize)
}

// ExtractTarWithLimit is ExtractTar with a custom per-file size limit.
func ExtractTarWithLimit(data []byte, prefix string, maxFileSize int64) ([]FileEntry, error) {
	strip := ""
	if prefix != "" && prefix != RootPath {
		strip = strings.TrimSuffix(prefix, "/") + "/"
	}

	tr := tar.NewReader(bytes.NewReader(data))
	var files []FileEntry
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading tar header: %w", err)
		}

		switch hdr.Typeflag {
		case tar.TypeXGlobalHeader, tar.TypeXHeader, tar.TypeDir:
			continue
		case tar.TypeSymlink, tar.TypeLink:
			return nil, fmt.Errorf("archive contains disallowed link type: %s", hdr.Name)
		case tar.TypeReg:
		default:
			return nil, fmt.Errorf("archive contains disallowed entry type %d: %s", hdr.Typeflag, hdr.Name)
		}

		if err := validateTarPath(hdr.Name); err != nil {
			return nil, err
		}
		rel := path.Clean(hdr.Name)
		if strip != "" {
			if !strings.HasPrefix(rel, strip) {
				continue
			}
			rel = strings.TrimPrefix(rel, strip)
		}

		if hdr.Size > maxFileSize {
			return nil, fmt.Errorf("file %s exceeds maximum size of %d bytes", hdr.Name, maxFileSize)
		}
		content, err := io.ReadAll(io.LimitReader(tr, maxFileSize+1))
		if err != nil {
			return nil, fmt.Errorf("reading tar content for %s: %w", hdr.Name, err)
		}
		if int64(len(content)) > maxFileSize {
			return nil, fmt.Errorf("file %s exceeds maximum size of %d bytes", hdr.Name, maxFileSize)
		}

		files = append(files, FileEntry{Path: rel, Content: content, Mode: hdr.Mode})
	}
	return files, nil
}

// WriteFiles materialises files under dest, creating directories as needed.
// Executable bits are preserved; everything else is written 0644.
func WriteFiles(dest string, files []FileEntry) error {
	if err := os.MkdirAll(dest, 0o750); err != nil {
		return fmt.Errorf("creating %s: %w", dest, err)
	}
	for _, f := range files {
		if err := validateTarPath(f.Path); err != nil {
			return err
		}
		target := filepath.Join(dest, filepath.FromSlash(f.Path))
		if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
			return fmt.Errorf("creating directory for %s: %w", f.Path, err)
		}
		mode := os.FileMode(0o644)
		if f.Mode&0o111 != 0 {
			mode = 0o755
		}
		if err := os.WriteFile(target, f.Content, mode); err != nil {
			return fmt.Errorf("writing %s: %w", f.Path, err)
		}
	}
	return nil
}

// validateTarPath rejects absolute paths and paths escaping the archive root.
func validateTarPath(p string) error {
	cleaned := path.Clean(p)
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return fmt.Errorf("path traversal detected in archive: %s", p)
	}
	if path.IsAbs(cleaned) {
		return fmt.Errorf("absolute path not allowed in archive: %s", p)
	}
	return nil
}
