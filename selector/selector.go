// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package selector filters lock entries with CEL expressions.
//
// An expression sees a single variable, entry, with the fields
//
//	entry.installName  string
//	entry.repo         string  owner/repo, or the URL of a local source
//	entry.host         string
//	entry.skillPath    string
//	entry.ref          string  "" when tracking the default branch
//	entry.pinned       bool    ref is a tag or commit
//	entry.commit       string
//	entry.state        string  clean, modified or missing (when known)
//	entry.description  string  from the installed SKILL.md (when known)
//
// and must evaluate to a bool, for example
//
//	entry.host == "github.com" && entry.state != "clean"
package selector

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/stacklok/skills-kit/skerr"
)

const (
	// MaxExpressionLength rejects oversized expressions before parsing.
	MaxExpressionLength = 4096
	// CostLimit bounds the runtime cost of one evaluation.
	CostLimit = 100000
)

// Fields is the data an expression is evaluated against.
type Fields struct {
	InstallName string
	Repo        string
	Host        string
	SkillPath   string
	Ref         string
	Pinned      bool
	Commit      string
	State       string
	Description string
}

func (f Fields) activation() map[string]any {
	return map[string]any{
		"entry": map[string]any{
			"installName": f.InstallName,
			"repo":        f.Repo,
			"host":        f.Host,
			"skillPath":   f.SkillPath,
			"ref":         f.Ref,
			"pinned":      f.Pinned,
			"commit":      f.Commit,
			"state":       f.State,
			"description": f.Description,
		},
	}
}

var (
	envOnce sync.Once
	env     *cel.Env
	envErr  error
)

func environment() (*cel.Env, error) {
	envOnce.Do(func() {
		env, envErr = cel.NewEnv(
			cel.Variable("entry", cel.MapType(cel.StringType, cel.DynType)),
		)
	})
	return env, envErr
}

// Filter is a compiled expression. The zero value and nil match everything.
type Filter struct {
	source  string
	program cel.Program
}

// Compile parses and type-checks expr. An empty expression yields a nil
// Filter that matches every entry.
func Compile(expr string) (*Filter, error) {
	if expr == "" {
		return nil, nil
	}
	if len(expr) > MaxExpressionLength {
		return nil, invalid(fmt.Errorf("%w: expression length %d exceeds maximum of %d",
			ErrInvalidFilter, len(expr), MaxExpressionLength))
	}
	e, err := environment()
	if err != nil {
		return nil, fmt.Errorf("creating filter environment: %w", err)
	}

	ast, issues := e.Compile(expr)
	if issues.Err() != nil {
		return nil, invalid(newFilterError(expr, issues))
	}
	if out := ast.OutputType().String(); out != "bool" && out != "dyn" {
		return nil, invalid(fmt.Errorf("%w %q: must evaluate to bool, got %s", ErrInvalidFilter, expr, out))
	}
	prg, err := e.Program(ast, cel.CostLimit(CostLimit))
	if err != nil {
		return nil, invalid(fmt.Errorf("%w %q: %w", ErrInvalidFilter, expr, err))
	}
	return &Filter{source: expr, program: prg}, nil
}

func invalid(err error) error {
	return skerr.WithHint(
		skerr.Wrap(skerr.KindPrecondition, err),
		`example: --filter 'entry.repo == "acme/skills" && !entry.pinned'`,
	)
}

// Source returns the expression text.
func (f *Filter) Source() string {
	if f == nil {
		return ""
	}
	return f.source
}

// Match reports whether the entry satisfies the expression.
func (f *Filter) Match(fields Fields) (bool, error) {
	if f == nil || f.program == nil {
		return true, nil
	}
	out, _, err := f.program.Eval(fields.activation())
	if err != nil {
		return false, fmt.Errorf("%w: %s: %w", ErrEvaluation, f.source, err)
	}
	b, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("%w: %s: expected bool, got %T", ErrEvaluation, f.source, out.Value())
	}
	return b, nil
}
