package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/ycho/redmine-mcp/internal/redmine"
)

// Reference data: enumerations, trackers, statuses, roles, custom fields
// and saved queries.

func (h *ToolHandlers) enumerationTools() []Tool {
	return []Tool{
		{
			Definition: newTool("list_enumerations", "List enumerations", Readonly|Idempotent,
				mcp.WithDescription("List the values of an enumeration: issue priorities, time entry activities or document categories"),
				mcp.WithString("resource",
					mcp.Required(),
					mcp.Description("Enumeration to list"),
					mcp.Enum(redmine.EnumerationResources...),
				),
			),
			Handler: h.handleListEnumerations,
		},
		{
			Definition: newTool("list_trackers", "List trackers", Readonly|Idempotent,
				mcp.WithDescription("List all trackers (Bug, Feature, ...)"),
			),
			Handler: h.handleListTrackers,
		},
		{
			Definition: newTool("list_issue_statuses", "List issue statuses", Readonly|Idempotent,
				mcp.WithDescription("List all issue statuses with their is_closed flag"),
			),
			Handler: h.handleListIssueStatuses,
		},
		{
			Definition: newTool("list_roles", "List roles", Readonly|Idempotent,
				mcp.WithDescription("List all roles (ID and name)"),
			),
			Handler: h.handleListRoles,
		},
	}
}

func (h *ToolHandlers) handleListEnumerations(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	resource, err := requireString(req, "resource")
	if err != nil {
		return nil, err
	}

	items, err := h.clientFor(ctx).ListEnumerations(ctx, resource)
	if err != nil {
		return nil, err
	}
	return listResult(resource, items)
}

func (h *ToolHandlers) handleListTrackers(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	items, err := h.clientFor(ctx).ListTrackers(ctx)
	if err != nil {
		return nil, err
	}
	return listResult("trackers", items)
}

func (h *ToolHandlers) handleListIssueStatuses(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	items, err := h.clientFor(ctx).ListIssueStatuses(ctx)
	if err != nil {
		return nil, err
	}
	return listResult("issue_statuses", items)
}

func (h *ToolHandlers) handleListRoles(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	items, err := h.clientFor(ctx).ListRoles(ctx)
	if err != nil {
		return nil, err
	}
	return listResult("roles", items)
}

func (h *ToolHandlers) roleTools() []Tool {
	return []Tool{
		{
			Definition: newTool("list_roles_detail", "List roles (detailed)", Readonly|Idempotent,
				mcp.WithDescription("List all roles with every attribute the server reports. Use get_role for the permissions of one role"),
			),
			Handler: h.handleListRolesDetail,
		},
		{
			Definition: newTool("get_role", "Get role", Readonly|Idempotent,
				mcp.WithDescription("Get a role including its permissions"),
				mcp.WithNumber("role_id", mcp.Required(), mcp.Description("Role ID")),
			),
			Handler: h.handleGetRole,
		},
	}
}

func (h *ToolHandlers) handleListRolesDetail(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	roles, err := h.clientFor(ctx).ListRoles(ctx)
	if err != nil {
		return nil, err
	}
	return listResult("roles", roles)
}

func (h *ToolHandlers) handleGetRole(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := requireInt(req, "role_id")
	if err != nil {
		return nil, err
	}

	res, err := h.clientFor(ctx).GetRole(ctx, id)
	if err != nil {
		return nil, err
	}
	if !res.Found {
		return notFound("Role", id)
	}
	return jsonResult(res.Value)
}

func (h *ToolHandlers) customFieldTools() []Tool {
	return []Tool{
		{
			Definition: newTool("list_custom_fields", "List custom fields", Readonly|Idempotent,
				mcp.WithDescription("List all custom field definitions (admin only)"),
			),
			Handler: h.handleListCustomFields,
		},
	}
}

func (h *ToolHandlers) handleListCustomFields(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	items, err := h.clientFor(ctx).ListCustomFields(ctx)
	if err != nil {
		return nil, err
	}
	return listResult("custom_fields", items)
}

func (h *ToolHandlers) queryTools() []Tool {
	return []Tool{
		{
			Definition: newTool("list_queries", "List saved queries", Readonly|Idempotent,
				append([]mcp.ToolOption{
					mcp.WithDescription("List saved public queries, optionally for one project"),
					mcp.WithString("project_id", mcp.Description("Project ID or identifier")),
				}, paginationParams()...)...,
			),
			Handler: h.handleListQueries,
		},
	}
}

func (h *ToolHandlers) handleListQueries(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectID, err := optionalID(req, "project_id")
	if err != nil {
		return nil, err
	}
	limit, offset, err := listOptions(req)
	if err != nil {
		return nil, err
	}

	page, err := h.clientFor(ctx).ListQueries(ctx, projectID, redmine.ListOptions{Limit: limit, Offset: offset})
	if err != nil {
		return nil, err
	}
	return pageResult("queries", page, nil)
}
