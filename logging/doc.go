// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

/*
Package logging provides the [log/slog.Logger] factory used by sk and its
library packages.

Library packages never log through a global: constructors accept a
*slog.Logger and fall back to [Discard] when given nil. The command tree
builds one logger per invocation from the -v flag and the SK_LOG_LEVEL /
SK_LOG_FORMAT environment variables.

# Defaults

  - Format: text ([FormatText]) via [log/slog.TextHandler]
  - Level: WARN ([log/slog.LevelWarn])
  - Output: [os.Stderr]
  - Timestamps: [time.RFC3339]

# Usage

	logger := logging.New(
		logging.WithLevel(logging.LevelForVerbosity(verbose)),
		logging.WithComponent("installer"),
	)
	logger.Info("resolved commit", "repo", "acme/skills", "commit", sha)

# Testing

Inject a buffer to capture log output in tests:

	var buf bytes.Buffer
	logger := logging.New(logging.WithOutput(&buf), logging.WithLevel(slog.LevelDebug))
*/
package logging
