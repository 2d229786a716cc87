// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package digest computes the content hash of an installed skill tree.
//
// The digest covers every regular file below the tree root except
// version-control internals and editor junk. Files are visited in byte-wise
// order of their slash-separated relative path; for each one SHA-256 is fed
// the path, a NUL byte, the content length as a big-endian uint64 and then
// the content, so no two distinct trees share a byte stream. Text content has CRLF line endings
// folded to LF first, so a checkout with autocrlf hashes the same as the
// commit it came from. Modes and timestamps never contribute.
package digest

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	godigest "github.com/opencontainers/go-digest"
)

// Dir returns the digest of the tree rooted at dir as "sha256:<hex>".
func Dir(dir string) (string, error) {
	files, err := listFiles(dir)
	if err != nil {
		return "", err
	}

	digester := godigest.Canonical.Digester()
	h := digester.Hash()
	for _, rel := range files {
		data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(rel))) //#nosec G304 -- path comes from walking dir
		if err != nil {
			return "", fmt.Errorf("reading %s: %w", rel, err)
		}
		data = NormalizeLineEndings(data)
		var size [8]byte
		binary.BigEndian.PutUint64(size[:], uint64(len(data)))
		h.Write([]byte(rel))
		h.Write([]byte{0})
		h.Write(size[:])
		h.Write(data)
	}
	return digester.Digest().String(), nil
}

// Files returns the relative, slash-separated paths that Dir would hash, in hashing order.
func Files(dir string) ([]string, error) {
	return listFiles(dir)
}

// Validate checks that s is a well-formed "algorithm:hex" digest.
func Validate(s string) error {
	d, err := godigest.Parse(s)
	if err != nil {
		return fmt.Errorf("invalid digest %q: %w", s, err)
	}
	if d.Algorithm() != godigest.Canonical {
		return fmt.Errorf("unsupported digest algorithm %q", d.Algorithm())
	}
	return nil
}

// Equal reports whether two digest strings name the same content.
func Equal(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// Ignored reports whether a file or directory name is excluded from digests.
func Ignored(name string) bool {
	return name == ".git" || name == ".DS_Store" || strings.HasSuffix(name, "~") || strings.HasSuffix(name, ".swp")
}

// NormalizeLineEndings folds CRLF to LF in text content.
// Content containing a NUL byte is treated as binary and returned unchanged.
func NormalizeLineEndings(data []byte) []byte {
	if bytes.IndexByte(data, 0) >= 0 || !bytes.Contains(data, []byte("\r\n")) {
		return data
	}
	return bytes.ReplaceAll(data, []byte("\r\n"), []byte("\n"))
}

func listFiles(dir string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("digest of %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("digest of %s: not a directory", dir)
	}

	var files []string
	err = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p == dir {
			return nil
		}
		if Ignored(d.Name()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", dir, err)
	}
	sort.Strings(files)
	return files, nil
}
