// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package lockfile

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/stacklok/skills-kit/digest"
)

// State is the observed condition of an installed skill relative to its entry.
type State int

const (
	// StateClean means the installed tree hashes to the locked digest.
	StateClean State = iota
	// StateModified means the installed tree exists but differs from the locked digest.
	StateModified
	// StateMissing means the install directory does not exist.
	StateMissing
)

// String returns clean, modified or missing.
func (s State) String() string {
	switch s {
	case StateModified:
		return "modified"
	case StateMissing:
		return "missing"
	default:
		return "clean"
	}
}

// Observation is the result of comparing one entry to disk.
type Observation struct {
	State State
	// Digest is the freshly computed digest; empty when missing.
	Digest string
}

// Observe recomputes the digest of dir and compares it to the entry.
// Drift is only ever discovered here, lazily.
func Observe(e *Entry, dir string) (Observation, error) {
	info, err := os.Stat(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return Observation{State: StateMissing}, nil
	}
	if err != nil {
		return Observation{}, fmt.Errorf("inspecting %s: %w", dir, err)
	}
	if !info.IsDir() {
		return Observation{State: StateMissing}, nil
	}
	d, err := digest.Dir(dir)
	if err != nil {
		return Observation{}, err
	}
	if digest.Equal(d, e.Digest) {
		return Observation{State: StateClean, Digest: d}, nil
	}
	return Observation{State: StateModified, Digest: d}, nil
}
