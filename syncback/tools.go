// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package syncback

//go:generate mockgen -copyright_file=../.github/license-header.txt -source=tools.go -destination=mocks/mock_tools.go -package=mocks DirSyncer,ReviewTool

import (
	"context"
	"fmt"
	"strings"
)

// Availability is the outcome of probing an optional external tool.
type Availability struct {
	available bool
	reason    string
}

// Available reports a usable tool.
func Available() Availability {
	return Availability{available: true}
}

// Unavailable reports a missing or disabled tool and why.
func Unavailable(reason string) Availability {
	return Availability{reason: reason}
}

// OK reports whether the tool can be used.
func (a Availability) OK() bool {
	return a.available
}

// Reason explains an unavailable tool. It is empty for available ones.
func (a Availability) Reason() string {
	return a.reason
}

func (a Availability) String() string {
	if a.available {
		return "available"
	}
	return "unavailable: " + a.reason
}

// DirSyncer makes dst an exact copy of src, leaving any .git entry in dst alone.
type DirSyncer interface {
	Name() string
	Availability(ctx context.Context) Availability
	Sync(ctx context.Context, src, dst string) error
}

// PullRequest is a change request as reported by the review tool.
type PullRequest struct {
	Number           int    `json:"number"`
	URL              string `json:"url"`
	MergeStateStatus string `json:"mergeStateStatus"`
	Mergeable        string `json:"mergeable"`
}

// Conflicted reports whether the change request cannot merge cleanly.
func (p *PullRequest) Conflicted() bool {
	return strings.EqualFold(p.MergeStateStatus, "dirty") || strings.EqualFold(p.Mergeable, "conflicting")
}

// MergeState is the merge progress of a change request.
type MergeState struct {
	State string
	// MergeCommit is set once merged.
	MergeCommit string
}

// Merged reports whether the change request has landed.
func (m *MergeState) Merged() bool {
	return strings.EqualFold(m.State, "merged")
}

// Closed reports whether the change request was closed without merging.
func (m *MergeState) Closed() bool {
	return strings.EqualFold(m.State, "closed")
}

// ReviewTool automates change requests on the hosting service.
// repo is a host/owner/repo selector.
type ReviewTool interface {
	Availability(ctx context.Context) Availability
	// FindPullRequest returns the change request whose head is branch, or nil.
	FindPullRequest(ctx context.Context, dir, repo, branch string) (*PullRequest, error)
	CreatePullRequest(ctx context.Context, dir, repo, branch string) error
	EnableAutoMerge(ctx context.Context, dir, repo string, number int) error
	MergeState(ctx context.Context, repo string, number int) (*MergeState, error)
}

// AutoMerge is what happened when auto-merge was requested.
type AutoMerge int

const (
	// AutoMergeNotAttempted means no change request was opened.
	AutoMergeNotAttempted AutoMerge = iota
	// AutoMergeArmed means the host will merge once checks pass.
	AutoMergeArmed
	// AutoMergeConflict means the change request has conflicts.
	AutoMergeConflict
	// AutoMergeSkipped means the host refused to arm auto-merge.
	AutoMergeSkipped
)

func (a AutoMerge) String() string {
	switch a {
	case AutoMergeArmed:
		return "armed"
	case AutoMergeConflict:
		return "conflict"
	case AutoMergeSkipped:
		return "skipped"
	default:
		return "not-attempted"
	}
}

// autoMergeTip suggests how to enable auto-merge when the host reports it is
// disabled for the repository.
func autoMergeTip(reason, host, owner, repo string) string {
	if !strings.Contains(strings.ToLower(reason), "enablepullrequestautomerge") {
		return ""
	}
	slug := owner + "/" + repo
	if host == "" {
		host = "github.com"
	}
	cmd := fmt.Sprintf("gh repo edit %s --enable-auto-merge", slug)
	if !strings.EqualFold(host, "github.com") {
		cmd = fmt.Sprintf("gh repo edit -R %s/%s --enable-auto-merge", host, slug)
	}
	return fmt.Sprintf("enable auto-merge with '%s' or under Settings > General (https://%s/%s/settings)", cmd, host, slug)
}
