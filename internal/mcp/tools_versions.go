package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
)

func versionIDParam() mcp.ToolOption {
	return mcp.WithNumber("version_id", mcp.Required(), mcp.Description("Version ID"))
}

func (h *ToolHandlers) versionTools() []Tool {
	return []Tool{
		{
			Definition: newTool("list_versions", "List versions", Readonly|Idempotent,
				mcp.WithDescription("List the versions (milestones) of a project, including shared ones"),
				projectIDParam("Project ID or identifier"),
			),
			Handler: h.handleListVersions,
		},
		{
			Definition: newTool("get_version", "Get version", Readonly|Idempotent,
				mcp.WithDescription("Get a version by ID"),
				versionIDParam(),
			),
			Handler: h.handleGetVersion,
		},
		{
			Definition: newTool("create_version", "Create version", 0,
				mcp.WithDescription("Create a version in a project. Format: {'version': {name, ...}}"),
				projectIDParam("Project ID or identifier"),
				mcp.WithObject("version",
					mcp.Required(),
					mcp.Description("Version fields: name is required; status (open, locked, closed), sharing (none, descendants, hierarchy, tree, system), due_date, description, wiki_page_title are optional"),
				),
			),
			Handler: h.handleCreateVersion,
		},
		{
			Definition: newTool("update_version", "Update version", Idempotent,
				mcp.WithDescription("Update a version"),
				versionIDParam(),
				mcp.WithObject("version", mcp.Required(), mcp.Description("Fields to change")),
			),
			Handler: h.handleUpdateVersion,
		},
		{
			Definition: newTool("delete_version", "Delete version", Destructive|Idempotent,
				mcp.WithDescription("Delete a version. Fails while issues are assigned to it"),
				versionIDParam(),
			),
			Handler: h.handleDeleteVersion,
		},
	}
}

func (h *ToolHandlers) handleListVersions(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectID, err := requireID(req, "project_id")
	if err != nil {
		return nil, err
	}

	versions, err := h.clientFor(ctx).ListVersions(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return listResult("versions", versions)
}

func (h *ToolHandlers) handleGetVersion(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := requireInt(req, "version_id")
	if err != nil {
		return nil, err
	}

	res, err := h.clientFor(ctx).GetVersion(ctx, id)
	if err != nil {
		return nil, err
	}
	if !res.Found {
		return notFound("Version", id)
	}
	return jsonResult(res.Value)
}

func (h *ToolHandlers) handleCreateVersion(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectID, err := requireID(req, "project_id")
	if err != nil {
		return nil, err
	}
	fields, err := requireObject(req, "version")
	if err != nil {
		return nil, err
	}
	if err := requireFields(fields, "version", "name"); err != nil {
		return nil, err
	}

	version, err := h.clientFor(ctx).CreateVersion(ctx, projectID, fields)
	if err != nil {
		return nil, err
	}
	return jsonResult(version)
}

func (h *ToolHandlers) handleUpdateVersion(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := requireInt(req, "version_id")
	if err != nil {
		return nil, err
	}
	fields, err := requireObject(req, "version")
	if err != nil {
		return nil, err
	}

	if err := h.clientFor(ctx).UpdateVersion(ctx, id, fields); err != nil {
		return nil, err
	}
	return statusResult("updated", map[string]any{"version_id": id})
}

func (h *ToolHandlers) handleDeleteVersion(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := requireInt(req, "version_id")
	if err != nil {
		return nil, err
	}
	if err := h.clientFor(ctx).DeleteVersion(ctx, id); err != nil {
		return nil, err
	}
	return statusResult("deleted", map[string]any{"version_id": id})
}
