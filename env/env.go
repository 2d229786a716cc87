// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package env

//go:generate mockgen -copyright_file=../.github/license-header.txt -source=env.go -destination=mocks/mock_reader.go -package=mocks Reader

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Reader defines an interface for environment variable access
type Reader interface {
	Getenv(key string) string
}

// OSReader implements Reader using the standard os package
type OSReader struct{}

// Getenv returns the value of the environment variable named by the key
func (*OSReader) Getenv(key string) string {
	return os.Getenv(key)
}

// String returns the trimmed value of key, or def when the variable is unset or blank.
func String(r Reader, key, def string) string {
	if v := strings.TrimSpace(r.Getenv(key)); v != "" {
		return v
	}
	return def
}

// Millis reads key as a non-negative number of milliseconds.
// Unset, malformed and negative values fall back to def.
func Millis(r Reader, key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(r.Getenv(key))
	if raw == "" {
		return def
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n < 0 {
		return def
	}
	return time.Duration(n) * time.Millisecond
}

// MapReader is a Reader backed by a fixed map. Missing keys read as empty.
type MapReader map[string]string

// Getenv returns the mapped value for key.
func (m MapReader) Getenv(key string) string {
	return m[key]
}
