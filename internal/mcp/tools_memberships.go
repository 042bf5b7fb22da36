package mcp

import (
	"context"
	"errors"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/ycho/redmine-mcp/internal/redmine"
)

func membershipIDParam() mcp.ToolOption {
	return mcp.WithNumber("membership_id", mcp.Required(), mcp.Description("Membership ID"))
}

func roleIDsParam() mcp.ToolOption {
	return mcp.WithArray("role_ids",
		mcp.Required(),
		mcp.Description("Role IDs"),
		mcp.Items(map[string]any{"type": "integer"}),
	)
}

func (h *ToolHandlers) membershipTools() []Tool {
	return []Tool{
		{
			Definition: newTool("list_memberships", "List memberships", Readonly|Idempotent,
				append([]mcp.ToolOption{
					mcp.WithDescription("List the members of a project with their roles"),
					projectIDParam("Project ID or identifier"),
				}, paginationParams()...)...,
			),
			Handler: h.handleListMemberships,
		},
		{
			Definition: newTool("get_membership", "Get membership", Readonly|Idempotent,
				mcp.WithDescription("Get a membership by ID"),
				membershipIDParam(),
			),
			Handler: h.handleGetMembership,
		},
		{
			Definition: newTool("create_membership", "Add project member", 0,
				mcp.WithDescription("Add a user or a group to a project"),
				projectIDParam("Project ID or identifier"),
				mcp.WithNumber("user_id", mcp.Description("User ID (give user_id or group_id)")),
				mcp.WithNumber("group_id", mcp.Description("Group ID (give user_id or group_id)")),
				roleIDsParam(),
			),
			Handler: h.handleCreateMembership,
		},
		{
			Definition: newTool("update_membership", "Update membership roles", Idempotent,
				mcp.WithDescription("Replace the roles of a membership"),
				membershipIDParam(),
				roleIDsParam(),
			),
			Handler: h.handleUpdateMembership,
		},
		{
			Definition: newTool("delete_membership", "Remove project member", Destructive|Idempotent,
				mcp.WithDescription("Remove a membership. Inherited memberships cannot be removed"),
				membershipIDParam(),
			),
			Handler: h.handleDeleteMembership,
		},
	}
}

func (h *ToolHandlers) handleListMemberships(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectID, err := requireID(req, "project_id")
	if err != nil {
		return nil, err
	}
	limit, offset, err := listOptions(req)
	if err != nil {
		return nil, err
	}

	page, err := h.clientFor(ctx).ListMemberships(ctx, projectID, redmine.ListOptions{Limit: limit, Offset: offset})
	if err != nil {
		return nil, err
	}
	return pageResult("memberships", page, nil)
}

func (h *ToolHandlers) handleGetMembership(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := requireInt(req, "membership_id")
	if err != nil {
		return nil, err
	}

	res, err := h.clientFor(ctx).GetMembership(ctx, id)
	if err != nil {
		return nil, err
	}
	if !res.Found {
		return notFound("Membership", id)
	}
	return jsonResult(res.Value)
}

func requireRoleIDs(req mcp.CallToolRequest) ([]int, error) {
	roleIDs, err := intList(req, "role_ids")
	if err != nil {
		return nil, err
	}
	if len(roleIDs) == 0 {
		return nil, errors.New("role_ids is required")
	}
	return roleIDs, nil
}

func (h *ToolHandlers) handleCreateMembership(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectID, err := requireID(req, "project_id")
	if err != nil {
		return nil, err
	}
	roleIDs, err := requireRoleIDs(req)
	if err != nil {
		return nil, err
	}

	// Groups are principals too; Redmine takes either in user_id.
	principal, err := optionalInt(req, "user_id", 0)
	if err != nil {
		return nil, err
	}
	if principal == 0 {
		if principal, err = optionalInt(req, "group_id", 0); err != nil {
			return nil, err
		}
	}
	if principal == 0 {
		return nil, errors.New("user_id or group_id is required")
	}

	membership, err := h.clientFor(ctx).CreateMembership(ctx, projectID, map[string]any{
		"user_id":  principal,
		"role_ids": roleIDs,
	})
	if err != nil {
		return nil, err
	}
	return jsonResult(membership)
}

func (h *ToolHandlers) handleUpdateMembership(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := requireInt(req, "membership_id")
	if err != nil {
		return nil, err
	}
	roleIDs, err := requireRoleIDs(req)
	if err != nil {
		return nil, err
	}

	if err := h.clientFor(ctx).UpdateMembership(ctx, id, roleIDs); err != nil {
		return nil, err
	}
	return statusResult("updated", map[string]any{"membership_id": id, "role_ids": roleIDs})
}

func (h *ToolHandlers) handleDeleteMembership(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := requireInt(req, "membership_id")
	if err != nil {
		return nil, err
	}
	if err := h.clientFor(ctx).DeleteMembership(ctx, id); err != nil {
		return nil, err
	}
	return statusResult("deleted", map[string]any{"membership_id": id})
}
