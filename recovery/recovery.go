// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package recovery

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/stacklok/skills-kit/logging"
)

// ToolMiddleware recovers from panics in MCP tool handlers.
// When a panic occurs, the call returns a tool error result instead of
// taking the server (and the client's stdio session) down with it.
// The panic value and stack trace are logged at ERROR.
func ToolMiddleware(logger *slog.Logger) server.ToolHandlerMiddleware {
	logger = logging.OrDiscard(logger)
	return func(next server.ToolHandlerFunc) server.ToolHandlerFunc {
		return func(ctx context.Context, req mcp.CallToolRequest) (result *mcp.CallToolResult, err error) {
			defer func() {
				if v := recover(); v != nil {
					logger.Error("tool handler panicked",
						"tool", req.Params.Name,
						"panic", fmt.Sprint(v),
						"stack", string(debug.Stack()),
					)
					result, err = mcp.NewToolResultError("internal error in tool "+req.Params.Name), nil
				}
			}()
			return next(ctx, req)
		}
	}
}
