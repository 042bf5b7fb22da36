package mcp

import (
	"context"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/ycho/redmine-mcp/internal/redmine"
)

const dateLayout = "2006-01-02"

// datePeriods are the shortcuts accepted by the period argument.
var datePeriods = []string{"this_week", "last_week", "this_month", "last_month"}

// resolveDatePeriod converts a period shortcut to an inclusive from/to date
// range relative to now. Weeks start on Monday.
func resolveDatePeriod(period string, now time.Time) (from, to string, ok bool) {
	weekStart := func() time.Time {
		weekday := int(now.Weekday())
		if weekday == 0 {
			weekday = 7
		}
		return now.AddDate(0, 0, -weekday+1)
	}

	switch period {
	case "this_week":
		start := weekStart()
		return start.Format(dateLayout), start.AddDate(0, 0, 6).Format(dateLayout), true
	case "last_week":
		start := weekStart().AddDate(0, 0, -7)
		return start.Format(dateLayout), start.AddDate(0, 0, 6).Format(dateLayout), true
	case "this_month":
		start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		return start.Format(dateLayout), start.AddDate(0, 1, -1).Format(dateLayout), true
	case "last_month":
		start := time.Date(now.Year(), now.Month()-1, 1, 0, 0, 0, 0, now.Location())
		return start.Format(dateLayout), start.AddDate(0, 1, -1).Format(dateLayout), true
	default:
		return "", "", false
	}
}

func timeEntryIDParam() mcp.ToolOption {
	return mcp.WithNumber("time_entry_id", mcp.Required(), mcp.Description("Time entry ID"))
}

func (h *ToolHandlers) timeEntryTools() []Tool {
	return []Tool{
		{
			Definition: newTool("list_time_entries", "List time entries", Readonly|Idempotent,
				append([]mcp.ToolOption{
					mcp.WithDescription("List time entries with optional filters"),
					mcp.WithString("user_id", mcp.Description("User ID, or 'me'")),
					mcp.WithString("project_id", mcp.Description("Project ID or identifier")),
					mcp.WithNumber("issue_id", mcp.Description("Issue ID")),
					mcp.WithNumber("activity_id", mcp.Description("Activity ID")),
					mcp.WithString("spent_on", mcp.Description("Exact date (YYYY-MM-DD)")),
					mcp.WithString("from_date", mcp.Description("Start date (YYYY-MM-DD)")),
					mcp.WithString("to_date", mcp.Description("End date (YYYY-MM-DD)")),
					mcp.WithString("period",
						mcp.Description("Date shortcut, overrides from_date and to_date"),
						mcp.Enum(datePeriods...),
					),
				}, paginationParams()...)...,
			),
			Handler: h.handleListTimeEntries,
		},
		{
			Definition: newTool("create_time_entry", "Log time", 0,
				mcp.WithDescription("Log time. Format: {'time_entry': {issue_id or project_id, hours, ...}}"),
				mcp.WithObject("time_entry",
					mcp.Required(),
					mcp.Description("Time entry fields: hours and one of issue_id or project_id are required; spent_on (default today), activity_id, comments, user_id, custom_fields are optional"),
				),
			),
			Handler: h.handleCreateTimeEntry,
		},
		{
			Definition: newTool("get_time_entry", "Get time entry", Readonly|Idempotent,
				mcp.WithDescription("Get a time entry by ID"),
				timeEntryIDParam(),
			),
			Handler: h.handleGetTimeEntry,
		},
		{
			Definition: newTool("update_time_entry", "Update time entry", Idempotent,
				mcp.WithDescription("Update a time entry"),
				timeEntryIDParam(),
				mcp.WithObject("time_entry", mcp.Required(), mcp.Description("Fields to change (hours, activity_id, comments, spent_on, ...)")),
			),
			Handler: h.handleUpdateTimeEntry,
		},
		{
			Definition: newTool("delete_time_entry", "Delete time entry", Destructive|Idempotent,
				mcp.WithDescription("Delete a time entry"),
				timeEntryIDParam(),
			),
			Handler: h.handleDeleteTimeEntry,
		},
	}
}

func (h *ToolHandlers) handleListTimeEntries(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var f redmine.TimeEntryFilter
	var err error
	if f.Limit, f.Offset, err = listOptions(req); err != nil {
		return nil, err
	}
	if f.UserID, err = optionalID(req, "user_id"); err != nil {
		return nil, err
	}
	if f.ProjectID, err = optionalID(req, "project_id"); err != nil {
		return nil, err
	}
	if f.IssueID, err = optionalInt(req, "issue_id", 0); err != nil {
		return nil, err
	}
	if f.ActivityID, err = optionalInt(req, "activity_id", 0); err != nil {
		return nil, err
	}
	f.SpentOn = req.GetString("spent_on", "")
	f.From = req.GetString("from_date", "")
	f.To = req.GetString("to_date", "")

	if period := req.GetString("period", ""); period != "" {
		from, to, ok := resolveDatePeriod(period, time.Now())
		if !ok {
			return nil, fmt.Errorf("unknown period %q (expected one of %v)", period, datePeriods)
		}
		f.From, f.To = from, to
	}

	page, err := h.clientFor(ctx).ListTimeEntries(ctx, f)
	if err != nil {
		return nil, err
	}

	filters := map[string]any{}
	if f.From != "" {
		filters["from"] = f.From
	}
	if f.To != "" {
		filters["to"] = f.To
	}
	return pageResult("time_entries", page, filters)
}

func (h *ToolHandlers) handleCreateTimeEntry(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	fields, err := requireObject(req, "time_entry")
	if err != nil {
		return nil, err
	}
	if err := requireFields(fields, "time_entry", "hours"); err != nil {
		return nil, err
	}
	if fields["issue_id"] == nil && fields["project_id"] == nil {
		return nil, fmt.Errorf("issue_id or project_id is required inside 'time_entry' object")
	}

	entry, err := h.clientFor(ctx).CreateTimeEntry(ctx, fields)
	if err != nil {
		return nil, err
	}
	return jsonResult(entry)
}

func (h *ToolHandlers) handleGetTimeEntry(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := requireInt(req, "time_entry_id")
	if err != nil {
		return nil, err
	}

	res, err := h.clientFor(ctx).GetTimeEntry(ctx, id)
	if err != nil {
		return nil, err
	}
	if !res.Found {
		return notFound("Time entry", id)
	}
	return jsonResult(res.Value)
}

func (h *ToolHandlers) handleUpdateTimeEntry(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := requireInt(req, "time_entry_id")
	if err != nil {
		return nil, err
	}
	fields, err := requireObject(req, "time_entry")
	if err != nil {
		return nil, err
	}

	if err := h.clientFor(ctx).UpdateTimeEntry(ctx, id, fields); err != nil {
		return nil, err
	}
	return statusResult("updated", map[string]any{"time_entry_id": id})
}

func (h *ToolHandlers) handleDeleteTimeEntry(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := requireInt(req, "time_entry_id")
	if err != nil {
		return nil, err
	}
	if err := h.clientFor(ctx).DeleteTimeEntry(ctx, id); err != nil {
		return nil, err
	}
	return statusResult("deleted", map[string]any{"time_entry_id": id})
}
