package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/ycho/redmine-mcp/internal/redmine"
)

func paginationParams() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of items to return (default: 25, max: 100)"),
		),
		mcp.WithNumber("offset",
			mcp.Description("Number of items to skip for pagination (default: 0)"),
		),
	}
}

func projectIDParam(description string) mcp.ToolOption {
	return mcp.WithString("project_id",
		mcp.Required(),
		mcp.Description(description),
	)
}

func (h *ToolHandlers) projectTools() []Tool {
	return []Tool{
		{
			Definition: newTool("list_projects", "List projects", Readonly|Idempotent,
				append([]mcp.ToolOption{
					mcp.WithDescription("List Redmine projects visible to the current user"),
					mcp.WithBoolean("include_archived",
						mcp.Description("Include archived projects (default: false)"),
					),
				}, paginationParams()...)...,
			),
			Handler: h.handleListProjects,
		},
		{
			Definition: newTool("get_project", "Get project", Readonly|Idempotent,
				mcp.WithDescription("Get details of a Redmine project including trackers, issue categories and enabled modules"),
				projectIDParam("Project ID or identifier"),
			),
			Handler: h.handleGetProject,
		},
		{
			Definition: newTool("create_project", "Create project", 0,
				mcp.WithDescription("Create a new project. Format: {'project': {name, identifier, ...}}"),
				mcp.WithObject("project",
					mcp.Required(),
					mcp.Description("Project fields: name and identifier are required; description, homepage, is_public, parent_id, inherit_members, tracker_ids, enabled_module_names are optional"),
				),
			),
			Handler: h.handleCreateProject,
		},
		{
			Definition: newTool("update_project", "Update project", Idempotent,
				mcp.WithDescription("Update an existing project"),
				projectIDParam("Project ID or identifier"),
				mcp.WithObject("project",
					mcp.Required(),
					mcp.Description("Fields to change (name, description, homepage, is_public, parent_id, ...)"),
				),
			),
			Handler: h.handleUpdateProject,
		},
		{
			Definition: newTool("delete_project", "Delete project", Destructive|Idempotent,
				mcp.WithDescription("Delete a project and everything in it. This cannot be undone"),
				projectIDParam("Project ID or identifier"),
			),
			Handler: h.handleDeleteProject,
		},
		{
			Definition: newTool("archive_project", "Archive project", Idempotent,
				mcp.WithDescription("Archive a project (Redmine 5.1 or later)"),
				projectIDParam("Project ID or identifier"),
			),
			Handler: h.handleArchiveProject,
		},
		{
			Definition: newTool("unarchive_project", "Unarchive project", Idempotent,
				mcp.WithDescription("Unarchive a project (Redmine 5.1 or later)"),
				projectIDParam("Project ID or identifier"),
			),
			Handler: h.handleUnarchiveProject,
		},
	}
}

func (h *ToolHandlers) handleListProjects(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit, offset, err := listOptions(req)
	if err != nil {
		return nil, err
	}

	page, err := h.clientFor(ctx).ListProjects(ctx, redmine.ProjectListOptions{
		ListOptions:     redmine.ListOptions{Limit: limit, Offset: offset},
		IncludeArchived: req.GetBool("include_archived", false),
	})
	if err != nil {
		return nil, err
	}
	return pageResult("projects", page, nil)
}

func (h *ToolHandlers) handleGetProject(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := requireID(req, "project_id")
	if err != nil {
		return nil, err
	}

	res, err := h.clientFor(ctx).GetProject(ctx, id, []string{"trackers", "issue_categories", "enabled_modules"})
	if err != nil {
		return nil, err
	}
	if !res.Found {
		return notFound("Project", id)
	}
	return jsonResult(res.Value)
}

func (h *ToolHandlers) handleCreateProject(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	fields, err := requireObject(req, "project")
	if err != nil {
		return nil, err
	}
	if err := requireFields(fields, "project", "name", "identifier"); err != nil {
		return nil, err
	}

	project, err := h.clientFor(ctx).CreateProject(ctx, fields)
	if err != nil {
		return nil, err
	}
	return jsonResult(project)
}

func (h *ToolHandlers) handleUpdateProject(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := requireID(req, "project_id")
	if err != nil {
		return nil, err
	}
	fields, err := requireObject(req, "project")
	if err != nil {
		return nil, err
	}

	if err := h.clientFor(ctx).UpdateProject(ctx, id, fields); err != nil {
		return nil, err
	}
	return statusResult("updated", map[string]any{"project_id": id})
}

func (h *ToolHandlers) handleDeleteProject(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := requireID(req, "project_id")
	if err != nil {
		return nil, err
	}
	if err := h.clientFor(ctx).DeleteProject(ctx, id); err != nil {
		return nil, err
	}
	return statusResult("deleted", map[string]any{"project_id": id})
}

func (h *ToolHandlers) handleArchiveProject(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := requireID(req, "project_id")
	if err != nil {
		return nil, err
	}
	if err := h.clientFor(ctx).ArchiveProject(ctx, id); err != nil {
		return nil, err
	}
	return statusResult("archived", map[string]any{"project_id": id})
}

func (h *ToolHandlers) handleUnarchiveProject(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := requireID(req, "project_id")
	if err != nil {
		return nil, err
	}
	if err := h.clientFor(ctx).UnarchiveProject(ctx, id); err != nil {
		return nil, err
	}
	return statusResult("unarchived", map[string]any{"project_id": id})
}
