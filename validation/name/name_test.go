// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package name

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/stacklok/skills-kit/skerr"
)

func TestValidateInstallName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"simple", "demo", false},
		{"dashes and caps", "PDF-Tools_2", false},
		{"unicode", "résumé", false},
		{"empty", "", true},
		{"whitespace", "   ", true},
		{"leading space", " demo", true},
		{"slash", "a/b", true},
		{"backslash", `a\b`, true},
		{"dot", ".", true},
		{"dotdot", "..", true},
		{"hidden", ".sk-staging", true},
		{"null byte", "de\x00mo", true},
		{"newline", "de\nmo", true},
		{"too long", strings.Repeat("a", maxLength+1), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := ValidateInstallName(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Equal(t, skerr.KindPrecondition, skerr.KindOf(err))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestValidateAlias(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input   string
		wantErr bool
	}{
		{"team", false},
		{"team-skills.v2", false},
		{"0day", false},
		{"", true},
		{"Team", true},
		{"-team", true},
		{"team skills", true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			err := ValidateAlias(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}
