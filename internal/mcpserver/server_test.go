package mcpserver

import (
	"context"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/raido/internal/testutil"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	r := testutil.TempCollection(t)
	testutil.WriteDoc(t, r, "0001-first.md", testutil.LegacyDoc("1. Use PostgreSQL", "Accepted"))
	testutil.WriteDoc(t, r, "0002-second.md", testutil.LegacyDoc("2. Adopt React", "Proposed"))
	return New(r)
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no direct call-tool test helper; invoke the handler
	// functions directly.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "list_records":
		result, err = srv.listRecords(ctx, req)
	case "read_record":
		result, err = srv.readRecord(ctx, req)
	case "find_record":
		result, err = srv.findRecord(ctx, req)
	case "check_collection":
		result, err = srv.checkCollection(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestListRecords(t *testing.T) {
	srv := testServer(t)

	r := callTool(t, srv, "list_records", map[string]interface{}{})
	text := resultText(r)
	if !strings.Contains(text, "Use PostgreSQL") || !strings.Contains(text, "Adopt React") {
		t.Errorf("list = %q", text)
	}
	if !strings.Contains(text, `"status": "Accepted"`) {
		t.Errorf("list = %q", text)
	}
}

func TestReadRecord(t *testing.T) {
	srv := testServer(t)

	r := callTool(t, srv, "read_record", map[string]interface{}{"number": "1"})
	text := resultText(r)
	if !strings.Contains(text, "# 1. Use PostgreSQL") {
		t.Errorf("read = %q", text)
	}
}

func TestReadRecordMissing(t *testing.T) {
	srv := testServer(t)

	r := callTool(t, srv, "read_record", map[string]interface{}{"number": "42"})
	if !r.IsError {
		t.Error("expected error for missing record")
	}
}

func TestFindRecordByTitle(t *testing.T) {
	srv := testServer(t)

	r := callTool(t, srv, "find_record", map[string]interface{}{"query": "postgres"})
	text := resultText(r)
	if !strings.Contains(text, `"number": 1`) {
		t.Errorf("find = %q", text)
	}
}

func TestCheckCollectionHealthy(t *testing.T) {
	srv := testServer(t)

	r := callTool(t, srv, "check_collection", map[string]interface{}{})
	if resultText(r) != "collection is healthy" {
		t.Errorf("check = %q", resultText(r))
	}
}

func TestCheckCollectionFindings(t *testing.T) {
	r := testutil.TempCollection(t)
	testutil.WriteDoc(t, r, "0001-old.md", testutil.LegacyDoc("1. Old", "Superseded"))
	srv := New(r)

	res := callTool(t, srv, "check_collection", map[string]interface{}{})
	text := resultText(res)
	if !strings.Contains(text, "superseded-links") {
		t.Errorf("check = %q", text)
	}
}
