package mcpserver

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/startstudio/harvest-mcp/internal/harvest"
)

// registerTools registers the time-tracking tools.
func (s *Server) registerTools() {
	getUserTool := mcp.NewTool("get_user",
		mcp.WithDescription("Get the Harvest user (usually not required, access to Harvest is granted via a Personal Access Token)"),
	)
	s.mcpServer.AddTool(getUserTool, s.handleGetUser)

	getProjectsTool := mcp.NewTool("get_projects",
		mcp.WithDescription("Get the Harvest project assignments for the current user"),
	)
	s.mcpServer.AddTool(getProjectsTool, s.handleGetProjects)

	createTimeEntryTool := mcp.NewTool("create_time_entry",
		mcp.WithDescription("Create a time entry by project and task"),
		mcp.WithNumber("project_id",
			mcp.Required(),
			mcp.Description("The ID of the project to associate with this time entry"),
		),
		mcp.WithNumber("task_id",
			mcp.Required(),
			mcp.Description("The ID of the task to associate with this time entry"),
		),
		mcp.WithString("spent_date",
			mcp.Description("Date when the time was spent (ISO 8601 format), defaults to today"),
		),
		mcp.WithNumber("hours",
			mcp.Description("Number of hours spent (optional), starts a timer if not provided"),
		),
		mcp.WithString("notes",
			mcp.Description("Additional notes about the time entry (optional)"),
		),
	)
	s.mcpServer.AddTool(createTimeEntryTool, s.handleCreateTimeEntry)

	updateTimeEntryTool := mcp.NewTool("update_time_entry",
		mcp.WithDescription("Update a time entry by ID"),
		mcp.WithNumber("id",
			mcp.Required(),
			mcp.Description("The ID of the time entry to update"),
		),
		mcp.WithNumber("project_id",
			mcp.Description("The ID of the project to associate with this time entry (optional)"),
		),
		mcp.WithNumber("task_id",
			mcp.Description("The ID of the task to associate with this time entry (optional)"),
		),
		mcp.WithString("spent_date",
			mcp.Description("Date when the time was spent in ISO 8601 format (optional)"),
		),
		mcp.WithNumber("hours",
			mcp.Description("Number of hours spent (optional)"),
		),
		mcp.WithString("notes",
			mcp.Description("Additional notes about the time entry (optional)"),
		),
	)
	s.mcpServer.AddTool(updateTimeEntryTool, s.handleUpdateTimeEntry)

	deleteTimeEntryTool := mcp.NewTool("delete_time_entry",
		mcp.WithDescription("Delete a time entry by ID"),
		mcp.WithNumber("id",
			mcp.Required(),
			mcp.Description("The ID of the time entry to delete"),
		),
	)
	s.mcpServer.AddTool(deleteTimeEntryTool, s.handleDeleteTimeEntry)
}

func (s *Server) handleGetUser(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	user, err := s.tracker.GetCurrentUser(ctx)
	if err != nil {
		return resultError(err), nil
	}
	return resultJSON(user), nil
}

func (s *Server) handleGetProjects(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	assignments, err := s.tracker.GetProjectAssignments(ctx)
	if err != nil {
		return resultError(err), nil
	}
	return resultJSON(assignments), nil
}

func (s *Server) handleCreateTimeEntry(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectID, err := request.RequireInt("project_id")
	if err != nil {
		return mcp.NewToolResultError("project_id argument is required"), nil
	}
	taskID, err := request.RequireInt("task_id")
	if err != nil {
		return mcp.NewToolResultError("task_id argument is required"), nil
	}

	input := harvest.CreateTimeEntryInput{
		ProjectID: int64(projectID),
		TaskID:    int64(taskID),
		SpentDate: request.GetString("spent_date", ""),
		Notes:     request.GetString("notes", ""),
	}

	args := request.GetArguments()
	if _, ok := args["hours"]; ok {
		hours := request.GetFloat("hours", 0)
		input.Hours = &hours
	}

	entry, err := s.tracker.CreateTimeEntry(ctx, input)
	if err != nil {
		return resultError(err), nil
	}
	return resultJSON(entry), nil
}

func (s *Server) handleUpdateTimeEntry(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireInt("id")
	if err != nil {
		return mcp.NewToolResultError("id argument is required"), nil
	}

	input := harvest.UpdateTimeEntryInput{ID: int64(id)}

	args := request.GetArguments()
	if _, ok := args["project_id"]; ok {
		projectID := int64(request.GetInt("project_id", 0))
		input.ProjectID = &projectID
	}
	if _, ok := args["task_id"]; ok {
		taskID := int64(request.GetInt("task_id", 0))
		input.TaskID = &taskID
	}
	if _, ok := args["spent_date"]; ok {
		spentDate := request.GetString("spent_date", "")
		input.SpentDate = &spentDate
	}
	if _, ok := args["hours"]; ok {
		hours := request.GetFloat("hours", 0)
		input.Hours = &hours
	}
	if _, ok := args["notes"]; ok {
		notes := request.GetString("notes", "")
		input.Notes = &notes
	}

	entry, err := s.tracker.UpdateTimeEntry(ctx, input)
	if err != nil {
		return resultError(err), nil
	}
	return resultJSON(entry), nil
}

func (s *Server) handleDeleteTimeEntry(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireInt("id")
	if err != nil {
		return mcp.NewToolResultError("id argument is required"), nil
	}

	if err := s.tracker.DeleteTimeEntry(ctx, int64(id)); err != nil {
		return resultError(err), nil
	}
	return resultJSON(map[string]bool{"deleted": true}), nil
}
