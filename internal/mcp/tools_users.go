package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/ycho/redmine-mcp/internal/redmine"
)

func userIDParam() mcp.ToolOption {
	return mcp.WithNumber("user_id", mcp.Required(), mcp.Description("User ID"))
}

func (h *ToolHandlers) userTools() []Tool {
	return []Tool{
		{
			Definition: newTool("list_users", "List users", Readonly|Idempotent,
				append([]mcp.ToolOption{
					mcp.WithDescription("List users (admin only)"),
					mcp.WithNumber("status", mcp.Description("1 = active (default), 2 = registered, 3 = locked")),
					mcp.WithString("name", mcp.Description("Match login, first name, last name or mail")),
					mcp.WithNumber("group_id", mcp.Description("Only members of this group")),
				}, paginationParams()...)...,
			),
			Handler: h.handleListUsers,
		},
		{
			Definition: newTool("get_user", "Get user", Readonly|Idempotent,
				mcp.WithDescription("Get a user by ID"),
				userIDParam(),
				mcp.WithString("include", mcp.Description("Comma separated extras: memberships, groups")),
			),
			Handler: h.handleGetUser,
		},
		{
			Definition: newTool("get_current_user", "Get current user", Readonly|Idempotent,
				mcp.WithDescription("Get the user the API key belongs to"),
			),
			Handler: h.handleGetCurrentUser,
		},
		{
			Definition: newTool("create_user", "Create user", 0,
				mcp.WithDescription("Create a user (admin only). Format: {'user': {login, firstname, lastname, mail, ...}}"),
				mcp.WithObject("user",
					mcp.Required(),
					mcp.Description("User fields: login, firstname, lastname and mail are required; password, auth_source_id, mail_notification, must_change_passwd, generate_password, admin are optional"),
				),
			),
			Handler: h.handleCreateUser,
		},
		{
			Definition: newTool("update_user", "Update user", Idempotent,
				mcp.WithDescription("Update a user (admin only)"),
				userIDParam(),
				mcp.WithObject("user", mcp.Required(), mcp.Description("Fields to change")),
			),
			Handler: h.handleUpdateUser,
		},
		{
			Definition: newTool("delete_user", "Delete user", Destructive|Idempotent,
				mcp.WithDescription("Delete a user (admin only). This cannot be undone"),
				userIDParam(),
			),
			Handler: h.handleDeleteUser,
		},
	}
}

func (h *ToolHandlers) handleListUsers(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var f redmine.UserFilter
	var err error
	if f.Limit, f.Offset, err = listOptions(req); err != nil {
		return nil, err
	}
	if f.Status, err = optionalInt(req, "status", 0); err != nil {
		return nil, err
	}
	if f.GroupID, err = optionalInt(req, "group_id", 0); err != nil {
		return nil, err
	}
	f.Name = req.GetString("name", "")

	page, err := h.clientFor(ctx).ListUsers(ctx, f)
	if err != nil {
		return nil, err
	}
	return pageResult("users", page, nil)
}

func (h *ToolHandlers) handleGetUser(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := requireInt(req, "user_id")
	if err != nil {
		return nil, err
	}

	res, err := h.clientFor(ctx).GetUser(ctx, id, stringList(req, "include"))
	if err != nil {
		return nil, err
	}
	if !res.Found {
		return notFound("User", id)
	}
	return jsonResult(res.Value)
}

func (h *ToolHandlers) handleGetCurrentUser(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	user, err := h.clientFor(ctx).GetCurrentUser(ctx)
	if err != nil {
		return nil, err
	}
	return jsonResult(user)
}

func (h *ToolHandlers) handleCreateUser(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	fields, err := requireObject(req, "user")
	if err != nil {
		return nil, err
	}
	if err := requireFields(fields, "user", "login", "firstname", "lastname", "mail"); err != nil {
		return nil, err
	}

	user, err := h.clientFor(ctx).CreateUser(ctx, fields)
	if err != nil {
		return nil, err
	}
	return jsonResult(user)
}

func (h *ToolHandlers) handleUpdateUser(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := requireInt(req, "user_id")
	if err != nil {
		return nil, err
	}
	fields, err := requireObject(req, "user")
	if err != nil {
		return nil, err
	}

	if err := h.clientFor(ctx).UpdateUser(ctx, id, fields); err != nil {
		return nil, err
	}
	return statusResult("updated", map[string]any{"user_id": id})
}

func (h *ToolHandlers) handleDeleteUser(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := requireInt(req, "user_id")
	if err != nil {
		return nil, err
	}
	if err := h.clientFor(ctx).DeleteUser(ctx, id); err != nil {
		return nil, err
	}
	return statusResult("deleted", map[string]any{"user_id": id})
}
