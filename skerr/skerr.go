// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package skerr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure.
type Kind int

// Error kinds. The zero value is KindInternal.
const (
	KindInternal Kind = iota
	KindConfiguration
	KindRepoResolution
	KindUnitNotFound
	KindAmbiguousUnit
	KindModifiedState
	KindMissingCache
	KindUnreachableCommit
	KindLockfileCorruption
	KindPublish
	KindPrecondition
)

var kindNames = map[Kind]string{
	KindInternal:           "internal",
	KindConfiguration:      "configuration",
	KindRepoResolution:     "repo-resolution",
	KindUnitNotFound:       "not-found",
	KindAmbiguousUnit:      "ambiguous",
	KindModifiedState:      "modified",
	KindMissingCache:       "missing-cache",
	KindUnreachableCommit:  "unreachable-commit",
	KindLockfileCorruption: "lockfile-corruption",
	KindPublish:            "publish",
	KindPrecondition:       "precondition",
}

var exitCodes = map[Kind]int{
	KindInternal:           1,
	KindConfiguration:      3,
	KindRepoResolution:     4,
	KindUnitNotFound:       5,
	KindAmbiguousUnit:      6,
	KindModifiedState:      7,
	KindMissingCache:       8,
	KindUnreachableCommit:  8,
	KindLockfileCorruption: 9,
	KindPublish:            10,
	KindPrecondition:       11,
}

// String returns the stable lowercase name of the kind.
func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error wraps an error with a Kind and an optional hint.
type Error struct {
	kind Kind
	err  error
	hint string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.err.Error()
}

// Unwrap returns the underlying error for errors.Is() and errors.As() compatibility.
func (e *Error) Unwrap() error {
	return e.err
}

// Kind returns the classification of this error.
func (e *Error) Kind() Kind {
	return e.kind
}

// Hint returns the follow-up instruction attached to this error, if any.
func (e *Error) Hint() string {
	return e.hint
}

// New creates an error of the given kind.
func New(kind Kind, message string) error {
	return &Error{kind: kind, err: errors.New(message)}
}

// Newf creates an error of the given kind from a format string.
// %w verbs are honoured.
func Newf(kind Kind, format string, args ...any) error {
	return &Error{kind: kind, err: fmt.Errorf(format, args...)}
}

// Wrap classifies err. If err is nil, Wrap returns nil.
func Wrap(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &Error{kind: kind, err: err}
}

// WithHint attaches a follow-up instruction to err, keeping its kind.
// If err is nil, WithHint returns nil.
func WithHint(err error, hint string) error {
	if err == nil {
		return nil
	}
	var se *Error
	if errors.As(err, &se) && se == err {
		return &Error{kind: se.kind, err: se.err, hint: hint}
	}
	return &Error{kind: KindOf(err), err: err, hint: hint}
}

// KindOf returns the kind of the first Error in the chain,
// or KindInternal when there is none.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// HintOf returns the first non-empty hint found in the chain.
func HintOf(err error) string {
	for err != nil {
		var se *Error
		if !errors.As(err, &se) {
			return ""
		}
		if se.hint != "" {
			return se.hint
		}
		err = se.err
	}
	return ""
}

// ExitCode maps err to the process exit status. nil maps to 0.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	if code, ok := exitCodes[KindOf(err)]; ok {
		return code
	}
	return 1
}
