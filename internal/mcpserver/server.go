// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the record collection for LLM integration via stdio
// transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/raido/internal/doctor"
	"github.com/starford/raido/internal/models"
	"github.com/starford/raido/internal/repo"
)

// Server wraps the MCP server with collection tools.
type Server struct {
	mcp  *server.MCPServer
	repo *repo.Repository
}

// New creates an MCP server with all collection tools registered.
func New(r *repo.Repository) *Server {
	s := &Server{repo: r}

	s.mcp = server.NewMCPServer(
		"Raido",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_records",
		mcp.WithDescription("List every decision record in the collection with number, title, status and date."),
	), s.listRecords)

	s.mcp.AddTool(mcp.NewTool("read_record",
		mcp.WithDescription("Read the full markdown source of one decision record."),
		mcp.WithString("number", mcp.Required(), mcp.Description("Record number, e.g. \"7\"")),
	), s.readRecord)

	s.mcp.AddTool(mcp.NewTool("find_record",
		mcp.WithDescription("Resolve a query to a record: a number goes straight to it, anything else fuzzy-matches titles."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Record number or part of a title")),
	), s.findRecord)

	s.mcp.AddTool(mcp.NewTool("check_collection",
		mcp.WithDescription("Run consistency checks over the collection and return the diagnostics."),
	), s.checkCollection)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

// recordSummary is the JSON shape list_records and find_record return.
type recordSummary struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
	Status string `json:"status"`
	Date   string `json:"date,omitempty"`
	File   string `json:"file,omitempty"`
}

func summarize(rec *models.Record) recordSummary {
	return recordSummary{
		Number: rec.Number,
		Title:  rec.Title,
		Status: rec.Status.String(),
		Date:   models.FormatDate(rec.Date),
		File:   rec.Path,
	}
}

func (s *Server) listRecords(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	recs, err := s.repo.List()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	summaries := make([]recordSummary, len(recs))
	for i, rec := range recs {
		summaries[i] = summarize(rec)
	}
	out, _ := json.MarshalIndent(summaries, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readRecord(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	number, err := req.RequireString("number")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rec, err := s.repo.Find(number)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", number)), nil
	}
	data, err := os.ReadFile(rec.Path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) findRecord(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rec, err := s.repo.Find(query)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(summarize(rec), "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) checkCollection(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rep, err := doctor.Check(s.repo)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if rep.Healthy() {
		return mcp.NewToolResultText("collection is healthy"), nil
	}

	type finding struct {
		Severity string `json:"severity"`
		Check    string `json:"check"`
		Message  string `json:"message"`
		Number   int    `json:"number,omitempty"`
	}
	findings := make([]finding, len(rep.Diagnostics))
	for i, d := range rep.Diagnostics {
		findings[i] = finding{
			Severity: d.Severity.String(),
			Check:    d.Check,
			Message:  d.Message,
			Number:   d.Number,
		}
	}
	out, _ := json.MarshalIndent(findings, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}
