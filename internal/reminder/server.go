package reminder

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const (
	serverName    = "reminder"
	serverVersion = "1.0.0"
)

// Server is the MCP server that lets a device agent manage its reminders.
type Server struct {
	mcpServer *server.MCPServer
	svc       *Service
}

// NewServer creates a reminder MCP server backed by svc.
func NewServer(svc *Service) *Server {
	s := &Server{
		svc: svc,
	}

	s.mcpServer = server.NewMCPServer(
		serverName,
		serverVersion,
		server.WithToolCapabilities(false),
	)

	s.registerTools()
	return s
}

// MCPServer returns the underlying MCP server for serving.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

func (s *Server) registerTools() {
	// add_reminder
	s.mcpServer.AddTool(
		mcp.NewTool("add_reminder",
			mcp.WithDescription("Add a reminder for a device at a time of day. One-shot reminders whose time has passed today are scheduled for tomorrow."),
			mcp.WithString("device_mac", mcp.Required(), mcp.Description("Device MAC address (e.g. aa:bb:cc:dd:ee:ff)")),
			mcp.WithString("content", mcp.Required(), mcp.Description("What to remind about")),
			mcp.WithString("scheduled_time", mcp.Required(), mcp.Description("Time of day in 24-hour HH:MM format")),
			mcp.WithString("reminder_type", mcp.Description("once or daily (default: once)")),
			mcp.WithBoolean("skip_holidays", mcp.Description("Do not fire on public holidays")),
		),
		s.handleAddReminder,
	)

	// list_reminders
	s.mcpServer.AddTool(
		mcp.NewTool("list_reminders",
			mcp.WithDescription("List a device's reminders. Overdue one-shot reminders are completed and left out."),
			mcp.WithString("device_mac", mcp.Required(), mcp.Description("Device MAC address")),
			mcp.WithString("status", mcp.Description("active, completed, cancelled or all (default: active)")),
			mcp.WithNumber("limit", mcp.Description("Maximum number of reminders (default: 50)")),
		),
		s.handleListReminders,
	)

	// get_reminder
	s.mcpServer.AddTool(
		mcp.NewTool("get_reminder",
			mcp.WithDescription("Get a reminder with its notes and device"),
			mcp.WithNumber("id", mcp.Required(), mcp.Description("Reminder ID")),
		),
		s.handleGetReminder,
	)

	// complete_reminder
	s.mcpServer.AddTool(
		mcp.NewTool("complete_reminder",
			mcp.WithDescription("Mark an active reminder as completed"),
			mcp.WithNumber("id", mcp.Required(), mcp.Description("Reminder ID")),
			mcp.WithString("notes", mcp.Description("Optional completion notes")),
		),
		s.handleCompleteReminder,
	)

	// cancel_reminder
	s.mcpServer.AddTool(
		mcp.NewTool("cancel_reminder",
			mcp.WithDescription("Cancel an active reminder"),
			mcp.WithNumber("id", mcp.Required(), mcp.Description("Reminder ID")),
		),
		s.handleCancelReminder,
	)

	// delete_reminder
	s.mcpServer.AddTool(
		mcp.NewTool("delete_reminder",
			mcp.WithDescription("Delete a reminder permanently"),
			mcp.WithNumber("id", mcp.Required(), mcp.Description("Reminder ID")),
		),
		s.handleDeleteReminder,
	)

	// update_reminder
	s.mcpServer.AddTool(
		mcp.NewTool("update_reminder",
			mcp.WithDescription("Update a reminder's content, time of day or holiday setting"),
			mcp.WithNumber("id", mcp.Required(), mcp.Description("Reminder ID")),
			mcp.WithString("content", mcp.Description("New content")),
			mcp.WithString("scheduled_time", mcp.Description("New time of day in HH:MM format")),
			mcp.WithBoolean("skip_holidays", mcp.Description("Do not fire on public holidays")),
		),
		s.handleUpdateReminder,
	)
}

func toolResultJSON(v any) *mcp.CallToolResult {
	output, _ := json.MarshalIndent(v, "", "  ")
	return mcp.NewToolResultText(string(output))
}

func requireID(req mcp.CallToolRequest) (int64, *mcp.CallToolResult) {
	idFloat := req.GetFloat("id", -1)
	if idFloat <= 0 {
		return 0, mcp.NewToolResultError("id is required and must be a positive number")
	}
	return int64(idFloat), nil
}

func (s *Server) handleAddReminder(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res, err := s.svc.Create(ctx, CreateParams{
		DeviceMAC:     req.GetString("device_mac", ""),
		Content:       req.GetString("content", ""),
		Type:          Type(req.GetString("reminder_type", string(TypeOnce))),
		ScheduledTime: req.GetString("scheduled_time", ""),
		SkipHolidays:  req.GetBool("skip_holidays", false),
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to add reminder: %v", err)), nil
	}
	return toolResultJSON(res), nil
}

func (s *Server) handleListReminders(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res, err := s.svc.List(ctx, ListFilter{
		DeviceMAC: req.GetString("device_mac", ""),
		Status:    req.GetString("status", ""),
		Limit:     int(req.GetFloat("limit", 0)),
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list reminders: %v", err)), nil
	}

	if len(res.Reminders) == 0 {
		return mcp.NewToolResultText("No reminders found."), nil
	}
	return toolResultJSON(res), nil
}

func (s *Server) handleGetReminder(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, bad := requireID(req)
	if bad != nil {
		return bad, nil
	}

	d, err := s.svc.Get(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to get reminder: %v", err)), nil
	}
	return toolResultJSON(d), nil
}

func (s *Server) handleCompleteReminder(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, bad := requireID(req)
	if bad != nil {
		return bad, nil
	}

	var notes *string
	if v := req.GetString("notes", ""); v != "" {
		notes = &v
	}
	if err := s.svc.Complete(ctx, id, notes); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to complete reminder: %v", err)), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Reminder %d marked as completed.", id)), nil
}

func (s *Server) handleCancelReminder(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, bad := requireID(req)
	if bad != nil {
		return bad, nil
	}

	if err := s.svc.Cancel(ctx, id); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to cancel reminder: %v", err)), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Reminder %d cancelled.", id)), nil
}

func (s *Server) handleDeleteReminder(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, bad := requireID(req)
	if bad != nil {
		return bad, nil
	}

	if err := s.svc.Delete(ctx, id); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to delete reminder: %v", err)), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Reminder %d deleted.", id)), nil
}

func (s *Server) handleUpdateReminder(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, bad := requireID(req)
	if bad != nil {
		return bad, nil
	}

	var fields UpdateFields
	if v := req.GetString("content", ""); v != "" {
		fields.Content = &v
	}
	if v := req.GetString("scheduled_time", ""); v != "" {
		fields.ScheduledTime = &v
	}
	if v, ok := req.GetArguments()["skip_holidays"].(bool); ok {
		fields.SkipHolidays = &v
	}

	updated, err := s.svc.Update(ctx, id, fields)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to update reminder: %v", err)), nil
	}
	return toolResultJSON(updated), nil
}
