// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package vcs

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSymrefHead(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		out     string
		want    string
		wantErr bool
	}{
		{
			name: "main",
			out:  "ref: refs/heads/main\tHEAD\n3f2a1b\tHEAD\n",
			want: "main",
		},
		{
			name: "branch with slash",
			out:  "ref: refs/heads/release/v2\tHEAD\n3f2a1b\tHEAD\n",
			want: "release/v2",
		},
		{
			name:    "no symref line",
			out:     "3f2a1b\tHEAD\n",
			wantErr: true,
		},
		{
			name:    "empty",
			out:     "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := parseSymrefHead([]byte(tt.out))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCommandError(t *testing.T) {
	t.Parallel()

	base := errors.New("exit status 128")
	err := &CommandError{
		Args:   []string{"push", "-u", "origin", "sk/sync/demo"},
		Stderr: "  ! [rejected] non-fast-forward\n",
		Err:    base,
	}
	assert.Equal(t, "git push -u origin sk/sync/demo: exit status 128: ! [rejected] non-fast-forward", err.Error())
	assert.ErrorIs(t, err, base)

	noStderr := &CommandError{Args: []string{"fetch"}, Err: base}
	assert.Equal(t, "git fetch: exit status 128", noStderr.Error())
}
