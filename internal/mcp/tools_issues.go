package mcp

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/csv"
	"fmt"
	"strconv"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/xuri/excelize/v2"
	"github.com/ycho/redmine-mcp/internal/redmine"
)

func issueIDParam() mcp.ToolOption {
	return mcp.WithNumber("issue_id",
		mcp.Required(),
		mcp.Description("Issue ID"),
	)
}

// issueFilterParams are shared by list_issues and export_issues.
func issueFilterParams() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithString("project_id", mcp.Description("Project ID or identifier")),
		mcp.WithString("assigned_to_id", mcp.Description("Assignee user ID, or 'me'")),
		mcp.WithString("status_id", mcp.Description("Status ID, or 'open', 'closed', '*' (default: open)")),
		mcp.WithNumber("tracker_id", mcp.Description("Tracker ID")),
		mcp.WithNumber("priority_id", mcp.Description("Priority ID")),
		mcp.WithNumber("parent_id", mcp.Description("Parent issue ID")),
		mcp.WithString("subject", mcp.Description("Match issues whose subject contains this text")),
		mcp.WithString("sort", mcp.Description("Sort column, append ':desc' for descending (e.g. 'updated_on:desc')")),
		mcp.WithString("created_from", mcp.Description("Created on or after (YYYY-MM-DD)")),
		mcp.WithString("created_to", mcp.Description("Created on or before (YYYY-MM-DD)")),
		mcp.WithString("updated_from", mcp.Description("Updated on or after (YYYY-MM-DD)")),
		mcp.WithString("updated_to", mcp.Description("Updated on or before (YYYY-MM-DD)")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of issues (default: 25, max: 100)")),
		mcp.WithNumber("offset", mcp.Description("Number of issues to skip (default: 0)")),
	}
}

func (h *ToolHandlers) issueTools() []Tool {
	return []Tool{
		{
			Definition: newTool("list_issues", "List issues", Readonly|Idempotent,
				append([]mcp.ToolOption{
					mcp.WithDescription("List issues with optional filters. Returns one page plus total_count"),
					mcp.WithString("include", mcp.Description("Comma separated extras: attachments, relations")),
				}, issueFilterParams()...)...,
			),
			Handler: h.handleListIssues,
		},
		{
			Definition: newTool("get_issue", "Get issue", Readonly|Idempotent,
				mcp.WithDescription("Get an issue by ID"),
				issueIDParam(),
				mcp.WithString("include",
					mcp.Description("Comma separated extras: children, attachments, relations, changesets, journals, watchers, allowed_statuses"),
				),
			),
			Handler: h.handleGetIssue,
		},
		{
			Definition: newTool("create_issue", "Create issue", 0,
				mcp.WithDescription("Create an issue. Format: {'issue': {project_id, subject, ...}}. Attach files with uploads: [{token, filename, content_type}] from upload_file"),
				mcp.WithObject("issue",
					mcp.Required(),
					mcp.Description("Issue fields: project_id and subject are required; tracker_id, status_id, priority_id, description, assigned_to_id, parent_issue_id, start_date, due_date, estimated_hours, custom_fields, watcher_user_ids, uploads are optional"),
				),
			),
			Handler: h.handleCreateIssue,
		},
		{
			Definition: newTool("update_issue", "Update issue", Idempotent,
				mcp.WithDescription("Update an issue. Put a comment in 'notes'"),
				issueIDParam(),
				mcp.WithObject("issue",
					mcp.Required(),
					mcp.Description("Fields to change, e.g. status_id, assigned_to_id, done_ratio, notes, private_notes, uploads"),
				),
			),
			Handler: h.handleUpdateIssue,
		},
		{
			Definition: newTool("delete_issue", "Delete issue", Destructive|Idempotent,
				mcp.WithDescription("Delete an issue. This cannot be undone"),
				issueIDParam(),
			),
			Handler: h.handleDeleteIssue,
		},
		{
			Definition: newTool("add_watcher", "Add watcher", Idempotent,
				mcp.WithDescription("Add a user to the watchers of an issue"),
				issueIDParam(),
				mcp.WithNumber("user_id", mcp.Required(), mcp.Description("User ID")),
			),
			Handler: h.handleAddWatcher,
		},
		{
			Definition: newTool("remove_watcher", "Remove watcher", Idempotent,
				mcp.WithDescription("Remove a user from the watchers of an issue"),
				issueIDParam(),
				mcp.WithNumber("user_id", mcp.Required(), mcp.Description("User ID")),
			),
			Handler: h.handleRemoveWatcher,
		},
		{
			Definition: newTool("export_issues", "Export issues", Readonly|Idempotent,
				append([]mcp.ToolOption{
					mcp.WithDescription("Export a page of issues as a spreadsheet. Returns the file base64 encoded"),
					mcp.WithString("format",
						mcp.Description("Output format (default: xlsx)"),
						mcp.Enum("xlsx", "csv"),
					),
				}, issueFilterParams()...)...,
			),
			Handler: h.handleExportIssues,
		},
	}
}

func issueFilter(req mcp.CallToolRequest) (redmine.IssueFilter, error) {
	var f redmine.IssueFilter
	var err error

	if f.Limit, f.Offset, err = listOptions(req); err != nil {
		return f, err
	}
	if f.ProjectID, err = optionalID(req, "project_id"); err != nil {
		return f, err
	}
	if f.AssignedToID, err = optionalID(req, "assigned_to_id"); err != nil {
		return f, err
	}
	if f.StatusID, err = optionalID(req, "status_id"); err != nil {
		return f, err
	}
	if f.TrackerID, err = optionalInt(req, "tracker_id", 0); err != nil {
		return f, err
	}
	if f.PriorityID, err = optionalInt(req, "priority_id", 0); err != nil {
		return f, err
	}
	if f.ParentID, err = optionalInt(req, "parent_id", 0); err != nil {
		return f, err
	}
	f.Subject = req.GetString("subject", "")
	f.Sort = req.GetString("sort", "")
	f.CreatedOn = redmine.DateFilter(req.GetString("created_from", ""), req.GetString("created_to", ""))
	f.UpdatedOn = redmine.DateFilter(req.GetString("updated_from", ""), req.GetString("updated_to", ""))
	f.Include = stringList(req, "include")
	return f, nil
}

func issueFilterSummary(f redmine.IssueFilter) map[string]any {
	out := make(map[string]any)
	set := func(k string, v any, empty bool) {
		if !empty {
			out[k] = v
		}
	}
	set("project_id", f.ProjectID, f.ProjectID == "")
	set("assigned_to_id", f.AssignedToID, f.AssignedToID == "")
	set("status_id", f.StatusID, f.StatusID == "")
	set("tracker_id", f.TrackerID, f.TrackerID == 0)
	set("priority_id", f.PriorityID, f.PriorityID == 0)
	set("parent_id", f.ParentID, f.ParentID == 0)
	set("subject", f.Subject, f.Subject == "")
	set("created_on", f.CreatedOn, f.CreatedOn == "")
	set("updated_on", f.UpdatedOn, f.UpdatedOn == "")
	set("sort", f.Sort, f.Sort == "")
	return out
}

func (h *ToolHandlers) handleListIssues(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	f, err := issueFilter(req)
	if err != nil {
		return nil, err
	}

	page, err := h.clientFor(ctx).ListIssues(ctx, f)
	if err != nil {
		return nil, err
	}
	return pageResult("issues", page, issueFilterSummary(f))
}

func (h *ToolHandlers) handleGetIssue(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := requireInt(req, "issue_id")
	if err != nil {
		return nil, err
	}

	res, err := h.clientFor(ctx).GetIssue(ctx, id, stringList(req, "include"))
	if err != nil {
		return nil, err
	}
	if !res.Found {
		return notFound("Issue", id)
	}
	return jsonResult(res.Value)
}

func (h *ToolHandlers) handleCreateIssue(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	fields, err := requireObject(req, "issue")
	if err != nil {
		return nil, err
	}
	if err := requireFields(fields, "issue", "project_id", "subject"); err != nil {
		return nil, err
	}

	issue, err := h.clientFor(ctx).CreateIssue(ctx, fields)
	if err != nil {
		return nil, err
	}
	return jsonResult(issue)
}

func (h *ToolHandlers) handleUpdateIssue(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := requireInt(req, "issue_id")
	if err != nil {
		return nil, err
	}
	fields, err := requireObject(req, "issue")
	if err != nil {
		return nil, err
	}

	if err := h.clientFor(ctx).UpdateIssue(ctx, id, fields); err != nil {
		return nil, err
	}
	return statusResult("updated", map[string]any{"issue_id": id})
}

func (h *ToolHandlers) handleDeleteIssue(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := requireInt(req, "issue_id")
	if err != nil {
		return nil, err
	}
	if err := h.clientFor(ctx).DeleteIssue(ctx, id); err != nil {
		return nil, err
	}
	return statusResult("deleted", map[string]any{"issue_id": id})
}

func watcherArgs(req mcp.CallToolRequest) (issueID, userID int, err error) {
	if issueID, err = requireInt(req, "issue_id"); err != nil {
		return 0, 0, err
	}
	if userID, err = requireInt(req, "user_id"); err != nil {
		return 0, 0, err
	}
	return issueID, userID, nil
}

func (h *ToolHandlers) handleAddWatcher(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	issueID, userID, err := watcherArgs(req)
	if err != nil {
		return nil, err
	}
	if err := h.clientFor(ctx).AddWatcher(ctx, issueID, userID); err != nil {
		return nil, err
	}
	return statusResult("watcher_added", map[string]any{"issue_id": issueID, "user_id": userID})
}

func (h *ToolHandlers) handleRemoveWatcher(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	issueID, userID, err := watcherArgs(req)
	if err != nil {
		return nil, err
	}
	if err := h.clientFor(ctx).RemoveWatcher(ctx, issueID, userID); err != nil {
		return nil, err
	}
	return statusResult("watcher_removed", map[string]any{"issue_id": issueID, "user_id": userID})
}

var exportColumns = []string{"ID", "Subject", "Project", "Tracker", "Status", "Priority", "Assignee", "Created", "Updated"}

func exportRow(issue map[string]any) []string {
	return []string{
		fmt.Sprint(issue["id"]),
		stringField(issue, "subject"),
		nestedName(issue, "project"),
		nestedName(issue, "tracker"),
		nestedName(issue, "status"),
		nestedName(issue, "priority"),
		nestedName(issue, "assigned_to"),
		stringField(issue, "created_on"),
		stringField(issue, "updated_on"),
	}
}

func (h *ToolHandlers) handleExportIssues(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	f, err := issueFilter(req)
	if err != nil {
		return nil, err
	}
	format := req.GetString("format", "xlsx")
	if format != "xlsx" && format != "csv" {
		return nil, fmt.Errorf("unsupported format %q", format)
	}

	page, err := h.clientFor(ctx).ListIssues(ctx, f)
	if err != nil {
		return nil, err
	}

	var content []byte
	if format == "csv" {
		content, err = issuesCSV(page.Items)
	} else {
		content, err = issuesXLSX(page.Items)
	}
	if err != nil {
		return nil, err
	}

	return jsonResult(map[string]any{
		"filename":       "issues." + format,
		"format":         format,
		"rows":           len(page.Items),
		"total_count":    page.TotalCount,
		"content_base64": base64.StdEncoding.EncodeToString(content),
	})
}

func issuesCSV(issues []map[string]any) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write(exportColumns)
	for _, issue := range issues {
		_ = w.Write(exportRow(issue))
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to write CSV: %w", err)
	}
	return buf.Bytes(), nil
}

func issuesXLSX(issues []map[string]any) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Issues"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	rows := make([][]string, 0, len(issues)+1)
	rows = append(rows, exportColumns)
	for _, issue := range issues {
		rows = append(rows, exportRow(issue))
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return nil, err
		}
		values := make([]any, len(row))
		for j, v := range row {
			values[j] = v
		}
		// IDs go in as numbers so the column sorts numerically.
		if i > 0 {
			if n, err := strconv.Atoi(row[0]); err == nil {
				values[0] = n
			}
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
