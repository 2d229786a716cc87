// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package source

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacklok/skills-kit/skerr"
)

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		input       string
		preferHTTPS bool
		want        Ref
	}{
		{
			name:  "shorthand over ssh",
			input: "@acme/skills",
			want:  Ref{URL: "git@github.com:acme/skills.git", Host: "github.com", Owner: "acme", Repo: "skills"},
		},
		{
			name:        "shorthand over https",
			input:       "@acme/skills",
			preferHTTPS: true,
			want:        Ref{URL: "https://github.com/acme/skills.git", Host: "github.com", Owner: "acme", Repo: "skills"},
		},
		{
			name:  "https URL trims .git",
			input: "https://gitlab.example.com/team/tools.git",
			want:  Ref{URL: "https://gitlab.example.com/team/tools.git", Host: "gitlab.example.com", Owner: "team", Repo: "tools"},
		},
		{
			name:  "ssh URL with port",
			input: "ssh://git@example.com:2222/team/tools",
			want:  Ref{URL: "ssh://git@example.com:2222/team/tools", Host: "example.com", Owner: "team", Repo: "tools"},
		},
		{
			name:  "scp-like",
			input: "git@github.com:acme/skills.git",
			want:  Ref{URL: "git@github.com:acme/skills.git", Host: "github.com", Owner: "acme", Repo: "skills"},
		},
		{
			name:  "file URL",
			input: "file:///tmp/fixtures/demo.git",
			want:  Ref{URL: "file:///tmp/fixtures/demo.git", Host: LocalHost, Owner: "fixtures", Repo: "demo"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := Parse(tt.input, tt.preferHTTPS, "github.com")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParse_Errors(t *testing.T) {
	t.Parallel()

	inputs := []string{"", "@acme", "@/x", "https://github.com/only-owner", "not a repo", "https:///x/y"}
	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			t.Parallel()
			_, err := Parse(in, false, "github.com")
			require.Error(t, err)
			assert.Equal(t, skerr.KindRepoResolution, skerr.KindOf(err))
		})
	}
}

func TestRef_CloneCandidates(t *testing.T) {
	t.Parallel()

	ssh := Ref{URL: "git@github.com:acme/skills.git", Host: "github.com", Owner: "acme", Repo: "skills"}
	assert.Equal(t, []string{ssh.URL, "https://github.com/acme/skills.git"}, ssh.CloneCandidates())

	https := Ref{URL: "https://github.com/acme/skills.git", Host: "github.com", Owner: "acme", Repo: "skills"}
	assert.Equal(t, []string{https.URL}, https.CloneCandidates())

	local := Ref{URL: "file:///tmp/x", Host: LocalHost, Owner: "tmp", Repo: "x"}
	assert.Equal(t, []string{local.URL}, local.CloneCandidates())
}

func TestRef_Accessors(t *testing.T) {
	t.Parallel()

	r := Ref{URL: "https://GitHub.com/Acme/Skills.git", Host: "GitHub.com", Owner: "Acme", Repo: "Skills"}
	assert.Equal(t, ProtocolHTTPS, r.Protocol())
	assert.Equal(t, "Acme/Skills", r.Slug())
	assert.Equal(t, "github.com/acme/skills", r.Key())

	local := Ref{URL: "file:///tmp/x", Host: LocalHost}
	assert.Equal(t, ProtocolFile, local.Protocol())
	assert.Equal(t, "file:///tmp/x", local.Slug())
}

func TestIsLocalURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		url  string
		host string
		want bool
	}{
		{"file:///tmp/x", "local", true},
		{"https://github.com/a/b", "github.com", false},
		{"http://localhost:8080/a/b", "localhost", true},
		{"ssh://git@127.0.0.1/a/b", "127.0.0.1", true},
		{"git@localhost:a/b", "localhost", true},
		{"git@[::1]:a/b", "::1", true},
		{"git@github.com:a/b", "github.com", false},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, IsLocalURL(tt.url, tt.host))
		})
	}
}
