package mcp

import (
	"context"
	"errors"

	"github.com/mark3labs/mcp-go/mcp"
)

func categoryIDParam() mcp.ToolOption {
	return mcp.WithNumber("category_id", mcp.Required(), mcp.Description("Issue category ID"))
}

func (h *ToolHandlers) categoryTools() []Tool {
	return []Tool{
		{
			Definition: newTool("list_issue_categories", "List issue categories", Readonly|Idempotent,
				mcp.WithDescription("List the issue categories of a project"),
				projectIDParam("Project ID or identifier"),
			),
			Handler: h.handleListIssueCategories,
		},
		{
			Definition: newTool("get_issue_category", "Get issue category", Readonly|Idempotent,
				mcp.WithDescription("Get an issue category by ID"),
				categoryIDParam(),
			),
			Handler: h.handleGetIssueCategory,
		},
		{
			Definition: newTool("create_issue_category", "Create issue category", 0,
				mcp.WithDescription("Create an issue category in a project"),
				projectIDParam("Project ID or identifier"),
				mcp.WithString("name", mcp.Required(), mcp.Description("Category name")),
				mcp.WithNumber("assigned_to_id", mcp.Description("Default assignee for new issues in this category")),
			),
			Handler: h.handleCreateIssueCategory,
		},
		{
			Definition: newTool("update_issue_category", "Update issue category", Idempotent,
				mcp.WithDescription("Rename an issue category or change its default assignee"),
				categoryIDParam(),
				mcp.WithString("name", mcp.Description("New name")),
				mcp.WithNumber("assigned_to_id", mcp.Description("New default assignee")),
			),
			Handler: h.handleUpdateIssueCategory,
		},
		{
			Definition: newTool("delete_issue_category", "Delete issue category", Destructive|Idempotent,
				mcp.WithDescription("Delete an issue category, optionally moving its issues to another category"),
				categoryIDParam(),
				mcp.WithNumber("reassign_to_id", mcp.Description("Category that receives the issues of the deleted one")),
			),
			Handler: h.handleDeleteIssueCategory,
		},
	}
}

func (h *ToolHandlers) handleListIssueCategories(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectID, err := requireID(req, "project_id")
	if err != nil {
		return nil, err
	}

	categories, err := h.clientFor(ctx).ListIssueCategories(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return listResult("issue_categories", categories)
}

func (h *ToolHandlers) handleGetIssueCategory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := requireInt(req, "category_id")
	if err != nil {
		return nil, err
	}

	res, err := h.clientFor(ctx).GetIssueCategory(ctx, id)
	if err != nil {
		return nil, err
	}
	if !res.Found {
		return notFound("Issue category", id)
	}
	return jsonResult(res.Value)
}

func (h *ToolHandlers) handleCreateIssueCategory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectID, err := requireID(req, "project_id")
	if err != nil {
		return nil, err
	}
	name, err := requireString(req, "name")
	if err != nil {
		return nil, err
	}
	fields := map[string]any{"name": name}
	if assignee, err := optionalInt(req, "assigned_to_id", 0); err != nil {
		return nil, err
	} else if assignee != 0 {
		fields["assigned_to_id"] = assignee
	}

	category, err := h.clientFor(ctx).CreateIssueCategory(ctx, projectID, fields)
	if err != nil {
		return nil, err
	}
	return jsonResult(category)
}

func (h *ToolHandlers) handleUpdateIssueCategory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := requireInt(req, "category_id")
	if err != nil {
		return nil, err
	}
	fields := pick(req, "name", "assigned_to_id")
	if len(fields) == 0 {
		return nil, errors.New("name or assigned_to_id is required")
	}

	if err := h.clientFor(ctx).UpdateIssueCategory(ctx, id, fields); err != nil {
		return nil, err
	}
	return statusResult("updated", map[string]any{"category_id": id})
}

func (h *ToolHandlers) handleDeleteIssueCategory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := requireInt(req, "category_id")
	if err != nil {
		return nil, err
	}
	reassignTo, err := optionalInt(req, "reassign_to_id", 0)
	if err != nil {
		return nil, err
	}

	if err := h.clientFor(ctx).DeleteIssueCategory(ctx, id, reassignTo); err != nil {
		return nil, err
	}
	out := map[string]any{"category_id": id}
	if reassignTo != 0 {
		out["reassigned_to_id"] = reassignTo
	}
	return statusResult("deleted", out)
}
