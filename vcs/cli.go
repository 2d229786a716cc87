// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package vcs

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"github.com/stacklok/skills-kit/logging"
)

// ErrGitNotFound is returned when the git binary cannot be located.
var ErrGitNotFound = errors.New("git executable not found in PATH")

// CommandError describes a failed git invocation.
type CommandError struct {
	Args   []string
	Stderr string
	Err    error
}

// Error implements the error interface.
func (e *CommandError) Error() string {
	msg := fmt.Sprintf("git %s: %v", strings.Join(e.Args, " "), e.Err)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += ": " + s
	}
	return msg
}

// Unwrap returns the underlying exec error.
func (e *CommandError) Unwrap() error {
	return e.Err
}

// CLI implements Git by running the git binary.
type CLI struct {
	binary string
	logger *slog.Logger
}

var _ Git = (*CLI)(nil)

// NewCLI returns a Git backed by the git binary on PATH.
func NewCLI(logger *slog.Logger) (*CLI, error) {
	bin, err := exec.LookPath("git")
	if err != nil {
		return nil, ErrGitNotFound
	}
	return &CLI{binary: bin, logger: logging.OrDiscard(logger)}, nil
}

func (c *CLI) run(ctx context.Context, dir string, args ...string) ([]byte, error) {
	full := args
	if dir != "" {
		full = append([]string{"-C", dir}, args...)
	}
	c.logger.Debug("running git", "args", strings.Join(full, " "))

	cmd := exec.CommandContext(ctx, c.binary, full...) //#nosec G204 -- arguments are built by this package
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0", "LC_ALL=C")
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, &CommandError{Args: args, Stderr: stderr.String(), Err: err}
	}
	return stdout.Bytes(), nil
}

func (c *CLI) runString(ctx context.Context, dir string, args ...string) (string, error) {
	out, err := c.run(ctx, dir, args...)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// TopLevel implements Git.
func (c *CLI) TopLevel(ctx context.Context, dir string) (string, error) {
	return c.runString(ctx, dir, "rev-parse", "--show-toplevel")
}

// Clone implements Git.
func (c *CLI) Clone(ctx context.Context, url, dir string) error {
	_, err := c.run(ctx, "", "clone", "--quiet", url, dir)
	return err
}

// Fetch implements Git.
func (c *CLI) Fetch(ctx context.Context, dir string) error {
	_, err := c.run(ctx, dir, "fetch", "--prune", "--tags", "--quiet", "origin")
	return err
}

// OriginHead implements Git.
func (c *CLI) OriginHead(ctx context.Context, dir string) (string, error) {
	out, err := c.runString(ctx, dir, "symbolic-ref", "-q", "refs/remotes/origin/HEAD")
	if err != nil {
		var ce *CommandError
		if errors.As(err, &ce) {
			// -q exits non-zero without output when the pointer is missing
			return "", nil
		}
		return "", err
	}
	return strings.TrimPrefix(out, "refs/remotes/origin/"), nil
}

// RemoteDefaultBranch implements Git.
func (c *CLI) RemoteDefaultBranch(ctx context.Context, url string) (string, error) {
	out, err := c.run(ctx, "", "ls-remote", "--symref", url, "HEAD")
	if err != nil {
		return "", err
	}
	return parseSymrefHead(out)
}

func parseSymrefHead(out []byte) (string, error) {
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		line := sc.Text()
		if !strings.HasPrefix(line, "ref: ") || !strings.HasSuffix(line, "\tHEAD") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		if branch, ok := strings.CutPrefix(fields[1], "refs/heads/"); ok && branch != "" {
			return branch, nil
		}
	}
	return "", errors.New("unable to determine default branch from ls-remote output")
}

// SetOriginHead implements Git.
func (c *CLI) SetOriginHead(ctx context.Context, dir, branch string) error {
	_, err := c.run(ctx, dir, "remote", "set-head", "origin", branch)
	return err
}

// RefExists implements Git.
func (c *CLI) RefExists(ctx context.Context, dir, ref string) bool {
	_, err := c.run(ctx, dir, "show-ref", "--verify", "--quiet", ref)
	return err == nil
}

// RevParse implements Git.
func (c *CLI) RevParse(ctx context.Context, dir, rev string) (string, error) {
	return c.runString(ctx, dir, "rev-parse", "--verify", "--quiet", rev)
}

// HasObject implements Git.
func (c *CLI) HasObject(ctx context.Context, dir, oid string) bool {
	_, err := c.run(ctx, dir, "cat-file", "-e", oid)
	return err == nil
}

// ListFiles implements Git.
func (c *CLI) ListFiles(ctx context.Context, dir, commit string) ([]string, error) {
	out, err := c.run(ctx, dir, "ls-tree", "-r", "-z", "--name-only", commit)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, p := range bytes.Split(out, []byte{0}) {
		if len(p) > 0 {
			files = append(files, string(p))
		}
	}
	return files, nil
}

// ShowFile implements Git.
func (c *CLI) ShowFile(ctx context.Context, dir, commit, path string) ([]byte, error) {
	return c.run(ctx, dir, "show", commit+":"+path)
}

// Archive implements Git.
func (c *CLI) Archive(ctx context.Context, dir, commit, path string) ([]byte, error) {
	args := []string{"archive", "--format=tar", commit}
	if path != "" && path != "." {
		args = append(args, path)
	}
	return c.run(ctx, dir, args...)
}

// AddWorktree implements Git.
func (c *CLI) AddWorktree(ctx context.Context, dir, branch, worktree, commit string) error {
	_, err := c.run(ctx, dir, "worktree", "add", "--quiet", "-b", branch, worktree, commit)
	return err
}

// RemoveWorktree implements Git.
func (c *CLI) RemoveWorktree(ctx context.Context, dir, worktree string) error {
	_, err := c.run(ctx, dir, "worktree", "remove", "--force", worktree)
	return err
}

// DeleteBranch implements Git.
func (c *CLI) DeleteBranch(ctx context.Context, dir, branch string) error {
	_, err := c.run(ctx, dir, "branch", "-D", branch)
	return err
}

// CommitAll implements Git.
func (c *CLI) CommitAll(ctx context.Context, worktree, message string) (bool, error) {
	if _, err := c.run(ctx, worktree, "add", "-A"); err != nil {
		return false, err
	}
	// diff --cached --quiet exits 1 when there are staged changes
	if _, err := c.run(ctx, worktree, "diff", "--cached", "--quiet"); err == nil {
		return false, nil
	}
	if _, err := c.run(ctx, worktree, "commit", "--quiet", "-m", message); err != nil {
		return false, err
	}
	return true, nil
}

// Push implements Git.
func (c *CLI) Push(ctx context.Context, worktree, branch string) error {
	_, err := c.run(ctx, worktree, "push", "-u", "origin", branch)
	return err
}
