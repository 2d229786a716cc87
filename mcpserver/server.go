// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package mcpserver exposes the installed skills to agents over MCP.
//
// The server is read-only: it answers skills_list, skills_search and
// skills_show from the install root, serves the sk://quickstart resource and
// tells clients to re-list tools when the install root changes on disk.
package mcpserver

import (
	"context"
	_ "embed"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/stacklok/skills-kit/catalog"
	"github.com/stacklok/skills-kit/logging"
	"github.com/stacklok/skills-kit/recovery"
)

const (
	// QuickstartURI is the agent quickstart resource.
	QuickstartURI = "sk://quickstart"

	toolsListChanged = "notifications/tools/list_changed"
	instructions     = "Start every task with skills_search to confirm whether a repo skill applies, " +
		"then use skills_list or skills_show to pull the relevant body text when needed."
	defaultDebounce = 500 * time.Millisecond
)

//go:embed quickstart.md
var quickstart string

// Server is the sk MCP server.
type Server struct {
	catalog  *catalog.Catalog
	mcp      *server.MCPServer
	logger   *slog.Logger
	debounce time.Duration
	notify   func()
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithDebounce sets how long the watcher waits for changes to settle.
func WithDebounce(d time.Duration) Option {
	return func(s *Server) { s.debounce = d }
}

// New builds a server over cat.
func New(cat *catalog.Catalog, version string, opts ...Option) *Server {
	s := &Server{catalog: cat, debounce: defaultDebounce}
	for _, o := range opts {
		o(s)
	}
	s.logger = logging.OrDiscard(s.logger).With(logging.ComponentKey, "mcp")

	s.mcp = server.NewMCPServer(
		"sk",
		version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, false),
		server.WithInstructions(instructions),
		server.WithToolHandlerMiddleware(recovery.ToolMiddleware(s.logger)),
	)
	s.notify = func() {
		s.mcp.SendNotificationToAllClients(toolsListChanged, nil)
	}

	s.mcp.AddTool(mcp.NewTool("skills_list",
		mcp.WithDescription("List installed skills, optionally filtered by name"),
		mcp.WithString("query", mcp.Description("Case-insensitive substring matched against name, description and body")),
		mcp.WithBoolean("includeBody", mcp.Description("Include the SKILL.md body of each skill")),
		mcp.WithReadOnlyHintAnnotation(true),
	), s.handleList)

	s.mcp.AddTool(mcp.NewTool("skills_search",
		mcp.WithDescription("Search skills stored under the repo's skills/ directory"),
		mcp.WithString("query", mcp.Required(), mcp.Description("Whitespace-separated tokens; every token must match")),
		mcp.WithNumber("limit", mcp.Description(fmt.Sprintf("Maximum results (default %d, max %d)", catalog.DefaultSearchLimit, catalog.MaxSearchLimit))),
		mcp.WithReadOnlyHintAnnotation(true),
	), s.handleSearch)

	s.mcp.AddTool(mcp.NewTool("skills_show",
		mcp.WithDescription("Show the full SKILL.md body for a named skill"),
		mcp.WithString("skillName", mcp.Required(), mcp.Description("Declared skill name or install name")),
		mcp.WithReadOnlyHintAnnotation(true),
	), s.handleShow)

	s.mcp.AddResource(mcp.NewResource(QuickstartURI, "sk-quickstart",
		mcp.WithResourceDescription("Agent quickstart: finding, installing and publishing skills with sk"),
		mcp.WithMIMEType("text/markdown"),
	), s.handleQuickstart)

	return s
}

// MCP returns the underlying protocol server.
func (s *Server) MCP() *server.MCPServer {
	return s.mcp
}

// Serve watches the install root and speaks MCP over in/out until ctx is
// cancelled or the input closes.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	done, err := s.Watch(ctx)
	if err != nil {
		cancel()
		return fmt.Errorf("starting skills watcher: %w", err)
	}
	defer func() { <-done }()
	defer cancel()

	stdio := server.NewStdioServer(s.mcp)
	return stdio.Listen(ctx, in, out)
}

func result(text []string, structured any) *mcp.CallToolResult {
	contents := make([]mcp.Content, 0, len(text))
	for _, t := range text {
		contents = append(contents, mcp.NewTextContent(t))
	}
	return &mcp.CallToolResult{Content: contents, StructuredContent: structured}
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

func (s *Server) handleList(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	records, err := s.catalog.List(req.GetString("query", ""))
	if err != nil {
		return nil, err
	}
	includeBody := req.GetBool("includeBody", false)
	summaries := make([]catalog.Record, 0, len(records))
	for _, r := range records {
		summaries = append(summaries, r.Summary(includeBody))
	}
	text := fmt.Sprintf("Found %d skill%s under %s", len(summaries), plural(len(summaries)), s.catalog.RelRoot())
	return result([]string{text}, map[string]any{"skills": summaries}), nil
}

func (s *Server) handleSearch(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	limit := catalog.ClampLimit(req.GetInt("limit", 0))
	hits, total, err := s.catalog.Search(query, limit)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if hits == nil {
		hits = []catalog.Hit{}
	}
	text := fmt.Sprintf("No skills matched %q.", query)
	if len(hits) > 0 {
		text = fmt.Sprintf("%d result%s (%d total matches) for %q.", len(hits), plural(len(hits)), total, query)
	}
	return result([]string{text}, map[string]any{
		"query":   query,
		"limit":   limit,
		"total":   total,
		"results": hits,
	}), nil
}

func (s *Server) handleShow(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("skillName")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rec, err := s.catalog.Find(name)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	heading := fmt.Sprintf("%s (%s): %s", rec.InstallName, rec.Name, rec.Description)
	return result([]string{heading, rec.Body}, map[string]any{"skill": rec}), nil
}

func (*Server) handleQuickstart(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{URI: QuickstartURI, MIMEType: "text/markdown", Text: quickstart},
	}, nil
}
