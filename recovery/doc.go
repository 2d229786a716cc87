// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package recovery provides panic recovery middleware for MCP tool handlers.
//
// A panicking handler is turned into a tool error result so a single bad
// call cannot crash the stdio server.
//
// # Basic Usage
//
//	s := server.NewMCPServer("sk", version,
//		server.WithToolHandlerMiddleware(recovery.ToolMiddleware(logger)),
//	)
package recovery
