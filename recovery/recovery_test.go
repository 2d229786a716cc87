// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package recovery

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func callRequest(name string) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Name = name
	return req
}

func TestToolMiddleware_NoPanic(t *testing.T) {
	t.Parallel()

	handler := ToolMiddleware(nil)(func(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return mcp.NewToolResultText("success"), nil
	})

	res, err := handler(context.Background(), callRequest("skills_list"))
	require.NoError(t, err)
	assert.False(t, res.IsError)
	require.Len(t, res.Content, 1)
	assert.Equal(t, "success", res.Content[0].(mcp.TextContent).Text)
}

func TestToolMiddleware_RecoverFromPanic(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	handler := ToolMiddleware(logger)(func(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		panic("test panic")
	})

	res, err := handler(context.Background(), callRequest("skills_show"))
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.True(t, res.IsError)
	assert.Contains(t, res.Content[0].(mcp.TextContent).Text, "skills_show")
	assert.Contains(t, buf.String(), "test panic")
	assert.Contains(t, buf.String(), "tool=skills_show")
}

func TestToolMiddleware_PreservesContext(t *testing.T) {
	t.Parallel()

	type contextKey string
	const key contextKey = "test-key"

	var received any
	handler := ToolMiddleware(nil)(func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		received = ctx.Value(key)
		return mcp.NewToolResultText("ok"), nil
	})

	ctx := context.WithValue(context.Background(), key, "test-value")
	_, err := handler(ctx, callRequest("skills_search"))
	require.NoError(t, err)
	assert.Equal(t, "test-value", received)
}
