package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/startstudio/harvest-mcp/internal/harvest"
)

// TimeTracker is the slice of the Harvest gateway the tool surface needs.
type TimeTracker interface {
	GetCurrentUser(ctx context.Context) (*harvest.User, error)
	GetProjectAssignments(ctx context.Context) (*harvest.ProjectAssignmentsResponse, error)
	CreateTimeEntry(ctx context.Context, input harvest.CreateTimeEntryInput) (*harvest.TimeEntry, error)
	UpdateTimeEntry(ctx context.Context, input harvest.UpdateTimeEntryInput) (*harvest.TimeEntry, error)
	DeleteTimeEntry(ctx context.Context, id int64) error
}

// Compile-time check that the gateway satisfies TimeTracker.
var _ TimeTracker = (*harvest.Client)(nil)

// Server exposes Harvest time-tracking operations as MCP tools over stdio.
type Server struct {
	tracker   TimeTracker
	mcpServer *server.MCPServer
}

// New creates an MCP server wired to the given time tracker.
func New(tracker TimeTracker, version string) *Server {
	mcpServer := server.NewMCPServer(
		"harvest",
		version,
		server.WithToolCapabilities(false),
	)

	s := &Server{
		tracker:   tracker,
		mcpServer: mcpServer,
	}
	s.registerTools()

	return s
}

// Serve handles MCP protocol communication on stdin/stdout until the
// context is cancelled or the client closes the stream.
func (s *Server) Serve(ctx context.Context) error {
	return server.NewStdioServer(s.mcpServer).Listen(ctx, os.Stdin, os.Stdout)
}

// resultJSON renders a successful tool result as a JSON text payload.
func resultJSON(v any) *mcp.CallToolResult {
	data, err := json.Marshal(v)
	if err != nil {
		return resultError(fmt.Errorf("encoding result: %w", err))
	}
	return mcp.NewToolResultText(string(data))
}

// resultError renders a failure as a structured error payload. Gateway
// errors never escape as protocol-level faults.
func resultError(err error) *mcp.CallToolResult {
	payload, marshalErr := json.Marshal(map[string]string{"error": err.Error()})
	if marshalErr != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultError(string(payload))
}
