// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

/*
Package env provides an interface-based abstraction for environment variable
access, so that the cache and configuration roots can be relocated per test
without touching the process environment.

# Basic Usage

Use OSReader to read environment variables via the standard os package:

	reader := &env.OSReader{}
	root := env.String(reader, "SK_CACHE_DIR", "")

Typed helpers fall back to a default on unset or malformed values:

	timeout := env.Millis(reader, "SK_SYNC_BACK_AUTO_MERGE_TIMEOUT_MS", 2*time.Minute)

# Testing

Inject a MapReader for hermetic fixtures:

	r := env.MapReader{"SK_CACHE_DIR": t.TempDir()}

or the generated mock from the mocks sub-package when call expectations matter:

	ctrl := gomock.NewController(t)
	mock := mocks.NewMockReader(ctrl)
	mock.EXPECT().Getenv("SK_CONFIG_DIR").Return("/tmp/cfg")
*/
package env
