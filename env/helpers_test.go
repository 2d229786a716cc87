// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package env_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"github.com/stacklok/skills-kit/env"
	"github.com/stacklok/skills-kit/env/mocks"
)

func TestString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		value string
		want  string
	}{
		{name: "set value wins", value: "/tmp/cache", want: "/tmp/cache"},
		{name: "unset uses default", value: "", want: "fallback"},
		{name: "blank uses default", value: "   ", want: "fallback"},
		{name: "value is trimmed", value: " /x ", want: "/x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ctrl := gomock.NewController(t)
			r := mocks.NewMockReader(ctrl)
			r.EXPECT().Getenv("SK_CACHE_DIR").Return(tt.value)

			assert.Equal(t, tt.want, env.String(r, "SK_CACHE_DIR", "fallback"))
		})
	}
}

func TestMillis(t *testing.T) {
	t.Parallel()

	def := 2 * time.Second
	tests := []struct {
		name  string
		value string
		want  time.Duration
	}{
		{name: "unset", value: "", want: def},
		{name: "valid", value: "1500", want: 1500 * time.Millisecond},
		{name: "zero is allowed", value: "0", want: 0},
		{name: "negative falls back", value: "-5", want: def},
		{name: "garbage falls back", value: "soon", want: def},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := env.MapReader{"SK_POLL": tt.value}
			assert.Equal(t, tt.want, env.Millis(r, "SK_POLL", def))
		})
	}
}

func TestMapReader_MissingKey(t *testing.T) {
	t.Parallel()
	assert.Empty(t, env.MapReader{}.Getenv("NOPE"))
}
