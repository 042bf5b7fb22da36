package mcp

import (
	"context"
	"errors"

	"github.com/mark3labs/mcp-go/mcp"
)

func groupIDParam() mcp.ToolOption {
	return mcp.WithNumber("group_id", mcp.Required(), mcp.Description("Group ID"))
}

func userIDsParam() mcp.ToolOption {
	return mcp.WithArray("user_ids",
		mcp.Description("Member user IDs"),
		mcp.Items(map[string]any{"type": "integer"}),
	)
}

func (h *ToolHandlers) groupTools() []Tool {
	return []Tool{
		{
			Definition: newTool("list_groups", "List groups", Readonly|Idempotent,
				mcp.WithDescription("List all groups (admin only)"),
			),
			Handler: h.handleListGroups,
		},
		{
			Definition: newTool("get_group", "Get group", Readonly|Idempotent,
				mcp.WithDescription("Get a group by ID"),
				groupIDParam(),
				mcp.WithBoolean("include_users", mcp.Description("Include the member list (default: false)")),
			),
			Handler: h.handleGetGroup,
		},
		{
			Definition: newTool("create_group", "Create group", 0,
				mcp.WithDescription("Create a group (admin only)"),
				mcp.WithString("name", mcp.Required(), mcp.Description("Group name")),
				userIDsParam(),
			),
			Handler: h.handleCreateGroup,
		},
		{
			Definition: newTool("update_group", "Update group", Idempotent,
				mcp.WithDescription("Rename a group or replace its members"),
				groupIDParam(),
				mcp.WithString("name", mcp.Description("New name")),
				userIDsParam(),
			),
			Handler: h.handleUpdateGroup,
		},
		{
			Definition: newTool("delete_group", "Delete group", Destructive|Idempotent,
				mcp.WithDescription("Delete a group (admin only)"),
				groupIDParam(),
			),
			Handler: h.handleDeleteGroup,
		},
		{
			Definition: newTool("add_user_to_group", "Add user to group", Idempotent,
				mcp.WithDescription("Add a user to a group"),
				groupIDParam(),
				userIDParam(),
			),
			Handler: h.handleAddUserToGroup,
		},
		{
			Definition: newTool("remove_user_from_group", "Remove user from group", Idempotent,
				mcp.WithDescription("Remove a user from a group"),
				groupIDParam(),
				userIDParam(),
			),
			Handler: h.handleRemoveUserFromGroup,
		},
	}
}

func (h *ToolHandlers) handleListGroups(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	groups, err := h.clientFor(ctx).ListGroups(ctx)
	if err != nil {
		return nil, err
	}
	return listResult("groups", groups)
}

func (h *ToolHandlers) handleGetGroup(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := requireInt(req, "group_id")
	if err != nil {
		return nil, err
	}
	var include []string
	if req.GetBool("include_users", false) {
		include = []string{"users"}
	}

	res, err := h.clientFor(ctx).GetGroup(ctx, id, include)
	if err != nil {
		return nil, err
	}
	if !res.Found {
		return notFound("Group", id)
	}
	return jsonResult(res.Value)
}

// groupFields collects name and user_ids; user_ids are always integers.
func groupFields(req mcp.CallToolRequest) (map[string]any, error) {
	fields := make(map[string]any)
	if name := req.GetString("name", ""); name != "" {
		fields["name"] = name
	}
	if getArrayArg(req, "user_ids") != nil {
		ids, err := intList(req, "user_ids")
		if err != nil {
			return nil, err
		}
		fields["user_ids"] = ids
	}
	return fields, nil
}

func (h *ToolHandlers) handleCreateGroup(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if _, err := requireString(req, "name"); err != nil {
		return nil, err
	}
	fields, err := groupFields(req)
	if err != nil {
		return nil, err
	}

	group, err := h.clientFor(ctx).CreateGroup(ctx, fields)
	if err != nil {
		return nil, err
	}
	return jsonResult(group)
}

func (h *ToolHandlers) handleUpdateGroup(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := requireInt(req, "group_id")
	if err != nil {
		return nil, err
	}
	fields, err := groupFields(req)
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, errors.New("name or user_ids is required")
	}

	if err := h.clientFor(ctx).UpdateGroup(ctx, id, fields); err != nil {
		return nil, err
	}
	return statusResult("updated", map[string]any{"group_id": id})
}

func (h *ToolHandlers) handleDeleteGroup(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := requireInt(req, "group_id")
	if err != nil {
		return nil, err
	}
	if err := h.clientFor(ctx).DeleteGroup(ctx, id); err != nil {
		return nil, err
	}
	return statusResult("deleted", map[string]any{"group_id": id})
}

func groupMemberArgs(req mcp.CallToolRequest) (groupID, userID int, err error) {
	if groupID, err = requireInt(req, "group_id"); err != nil {
		return 0, 0, err
	}
	if userID, err = requireInt(req, "user_id"); err != nil {
		return 0, 0, err
	}
	return groupID, userID, nil
}

func (h *ToolHandlers) handleAddUserToGroup(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	groupID, userID, err := groupMemberArgs(req)
	if err != nil {
		return nil, err
	}
	if err := h.clientFor(ctx).AddUserToGroup(ctx, groupID, userID); err != nil {
		return nil, err
	}
	return statusResult("user_added", map[string]any{"group_id": groupID, "user_id": userID})
}

func (h *ToolHandlers) handleRemoveUserFromGroup(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	groupID, userID, err := groupMemberArgs(req)
	if err != nil {
		return nil, err
	}
	if err := h.clientFor(ctx).RemoveUserFromGroup(ctx, groupID, userID); err != nil {
		return nil, err
	}
	return statusResult("user_removed", map[string]any{"group_id": groupID, "user_id": userID})
}
