// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package syncback

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"

	"github.com/stacklok/skills-kit/logging"
)

// GitHubCLI drives pull requests through the gh binary.
type GitHubCLI struct {
	binary string
	logger *slog.Logger
}

var _ ReviewTool = (*GitHubCLI)(nil)

// NewGitHubCLI probes PATH for gh. A missing binary yields a tool that
// reports itself unavailable.
func NewGitHubCLI(logger *slog.Logger) *GitHubCLI {
	bin, _ := exec.LookPath("gh")
	return &GitHubCLI{binary: bin, logger: logging.OrDiscard(logger)}
}

// Availability implements ReviewTool.
func (g *GitHubCLI) Availability(context.Context) Availability {
	if g.binary == "" {
		return Unavailable("'gh' CLI not found; install https://cli.github.com/ to open pull requests automatically")
	}
	return Available()
}

func (g *GitHubCLI) run(ctx context.Context, dir string, args ...string) ([]byte, error) {
	g.logger.Debug("running gh", "args", strings.Join(args, " "))
	cmd := exec.CommandContext(ctx, g.binary, args...) //#nosec G204 -- arguments are built by this package
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String() + stdout.String())
		if msg == "" {
			msg = err.Error()
		}
		return nil, fmt.Errorf("gh %s failed: %s", args[0]+" "+args[1], msg)
	}
	return stdout.Bytes(), nil
}

// FindPullRequest implements ReviewTool.
func (g *GitHubCLI) FindPullRequest(ctx context.Context, dir, repo, branch string) (*PullRequest, error) {
	out, err := g.run(ctx, dir, "pr", "list", "--state", "all", "--head", branch, "--limit", "1",
		"--json", "number,url,mergeStateStatus,mergeable", "-R", repo)
	if err != nil {
		return nil, err
	}
	var prs []PullRequest
	if err := json.Unmarshal(out, &prs); err != nil {
		return nil, fmt.Errorf("parsing gh pr list output: %w", err)
	}
	if len(prs) == 0 {
		return nil, nil
	}
	return &prs[0], nil
}

// CreatePullRequest implements ReviewTool.
func (g *GitHubCLI) CreatePullRequest(ctx context.Context, dir, repo, branch string) error {
	_, err := g.run(ctx, dir, "pr", "create", "--fill", "--head", branch, "-R", repo)
	return err
}

// EnableAutoMerge implements ReviewTool.
func (g *GitHubCLI) EnableAutoMerge(ctx context.Context, dir, repo string, number int) error {
	_, err := g.run(ctx, dir, "pr", "merge", strconv.Itoa(number), "--auto", "--merge", "-R", repo)
	return err
}

// MergeState implements ReviewTool.
func (g *GitHubCLI) MergeState(ctx context.Context, repo string, number int) (*MergeState, error) {
	out, err := g.run(ctx, "", "pr", "view", strconv.Itoa(number), "--json", "state,mergeCommit", "-R", repo)
	if err != nil {
		return nil, err
	}
	return parseMergeState(out)
}

// parseMergeState decodes gh's view output. mergeCommit is either null, a
// bare id, or an object carrying oid (or sha).
func parseMergeState(data []byte) (*MergeState, error) {
	var raw struct {
		State       string          `json:"state"`
		MergeCommit json.RawMessage `json:"mergeCommit"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing gh pr view output: %w", err)
	}
	st := &MergeState{State: raw.State}
	if len(raw.MergeCommit) == 0 || string(raw.MergeCommit) == "null" {
		return st, nil
	}
	var id string
	if err := json.Unmarshal(raw.MergeCommit, &id); err == nil {
		st.MergeCommit = id
		return st, nil
	}
	var obj struct {
		OID string `json:"oid"`
		SHA string `json:"sha"`
	}
	if err := json.Unmarshal(raw.MergeCommit, &obj); err != nil {
		return nil, fmt.Errorf("parsing mergeCommit: %w", err)
	}
	st.MergeCommit = obj.OID
	if st.MergeCommit == "" {
		st.MergeCommit = obj.SHA
	}
	return st, nil
}
