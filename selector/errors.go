// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package selector

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/cel-go/cel"
)

// Sentinel errors for filter expressions.
var (
	// ErrInvalidFilter is returned when an expression fails to parse or type-check.
	ErrInvalidFilter = errors.New("invalid filter expression")

	// ErrEvaluation is returned when evaluating a filter against an entry fails.
	ErrEvaluation = errors.New("filter evaluation failed")
)

// Issue is one problem found in a filter expression.
type Issue struct {
	Line int    `json:"line,omitempty"`
	Col  int    `json:"col,omitempty"`
	Msg  string `json:"msg,omitempty"`
}

// FilterError describes why an expression was rejected.
type FilterError struct {
	Expr   string
	Issues []Issue
	err    error
}

// Error implements the error interface.
func (e *FilterError) Error() string {
	if len(e.Issues) == 0 {
		return fmt.Sprintf("%s %q: %v", ErrInvalidFilter, e.Expr, e.err)
	}
	msgs := make([]string, 0, len(e.Issues))
	for _, is := range e.Issues {
		msgs = append(msgs, fmt.Sprintf("%d:%d %s", is.Line, is.Col, is.Msg))
	}
	return fmt.Sprintf("%s %q: %s", ErrInvalidFilter, e.Expr, strings.Join(msgs, "; "))
}

// Unwrap returns the underlying error.
func (e *FilterError) Unwrap() error {
	return e.err
}

func newFilterError(expr string, issues *cel.Issues) error {
	fe := &FilterError{Expr: expr, err: fmt.Errorf("%w: %w", ErrInvalidFilter, issues.Err())}
	for _, is := range issues.Errors() {
		fe.Issues = append(fe.Issues, Issue{
			Line: is.Location.Line(),
			Col:  is.Location.Column(),
			Msg:  is.Message,
		})
	}
	return fe
}
