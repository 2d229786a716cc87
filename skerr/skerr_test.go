// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package skerr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrap(t *testing.T) {
	t.Parallel()

	t.Run("wraps error with kind", func(t *testing.T) {
		t.Parallel()

		base := errors.New("clone failed")
		err := Wrap(KindRepoResolution, base)
		require.NotNil(t, err)

		se, ok := err.(*Error)
		require.True(t, ok, "expected *Error, got %T", err)
		assert.Equal(t, KindRepoResolution, se.Kind())
		assert.Equal(t, "clone failed", se.Error())
		assert.ErrorIs(t, err, base)
	})

	t.Run("returns nil for nil error", func(t *testing.T) {
		t.Parallel()
		require.Nil(t, Wrap(KindPublish, nil))
	})
}

func TestKindOf(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"direct", New(KindAmbiguousUnit, "dup"), KindAmbiguousUnit},
		{"wrapped by fmt", fmt.Errorf("install: %w", New(KindUnitNotFound, "x")), KindUnitNotFound},
		{"plain error", errors.New("boom"), KindInternal},
		{"nil", nil, KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestWithHint(t *testing.T) {
	t.Parallel()

	t.Run("keeps kind of classified error", func(t *testing.T) {
		t.Parallel()
		err := WithHint(New(KindModifiedState, "skill 'demo' modified"), "run 'sk sync-back demo'")
		assert.Equal(t, KindModifiedState, KindOf(err))
		assert.Equal(t, "run 'sk sync-back demo'", HintOf(err))
		assert.Equal(t, "skill 'demo' modified", err.Error())
	})

	t.Run("hint survives fmt wrapping", func(t *testing.T) {
		t.Parallel()
		inner := WithHint(New(KindPublish, "push rejected"), "run 'sk update'")
		err := fmt.Errorf("sync-back demo: %w", inner)
		assert.Equal(t, "run 'sk update'", HintOf(err))
		assert.Equal(t, KindPublish, KindOf(err))
	})

	t.Run("plain error becomes internal", func(t *testing.T) {
		t.Parallel()
		err := WithHint(errors.New("x"), "retry")
		assert.Equal(t, KindInternal, KindOf(err))
		assert.Equal(t, "retry", HintOf(err))
	})

	t.Run("nil stays nil", func(t *testing.T) {
		t.Parallel()
		assert.Nil(t, WithHint(nil, "x"))
	})

	t.Run("no hint", func(t *testing.T) {
		t.Parallel()
		assert.Empty(t, HintOf(New(KindInternal, "x")))
		assert.Empty(t, HintOf(errors.New("x")))
	})
}

func TestExitCode(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0, ExitCode(nil))
	assert.Equal(t, 1, ExitCode(errors.New("x")))
	assert.Equal(t, 9, ExitCode(New(KindLockfileCorruption, "bad json")))
	assert.Equal(t, 7, ExitCode(fmt.Errorf("upgrade: %w", New(KindModifiedState, "m"))))
	assert.NotEqual(t, 0, ExitCode(New(KindPrecondition, "p")))
}

func TestKindString(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "ambiguous", KindAmbiguousUnit.String())
	assert.Equal(t, "kind(99)", Kind(99).String())
}

func TestIs(t *testing.T) {
	t.Parallel()
	assert.True(t, Is(New(KindPublish, "x"), KindPublish))
	assert.False(t, Is(nil, KindInternal))
}
