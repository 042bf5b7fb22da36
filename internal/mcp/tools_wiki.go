package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
)

func wikiPageParams() []mcp.ToolOption {
	return []mcp.ToolOption{
		projectIDParam("Project ID or identifier"),
		mcp.WithString("page_name", mcp.Required(), mcp.Description("Wiki page title")),
	}
}

func (h *ToolHandlers) wikiTools() []Tool {
	return []Tool{
		{
			Definition: newTool("list_wiki_pages", "List wiki pages", Readonly|Idempotent,
				mcp.WithDescription("List the pages of a project wiki"),
				projectIDParam("Project ID or identifier"),
			),
			Handler: h.handleListWikiPages,
		},
		{
			Definition: newTool("get_wiki_page", "Get wiki page", Readonly|Idempotent,
				append(wikiPageParams(),
					mcp.WithDescription("Get a wiki page with its text and attachments"),
					mcp.WithNumber("version", mcp.Description("Historical version to fetch (default: current)")),
				)...,
			),
			Handler: h.handleGetWikiPage,
		},
		{
			Definition: newTool("create_or_update_wiki_page", "Create or update wiki page", Idempotent,
				append(wikiPageParams(),
					mcp.WithDescription("Create a wiki page, or update it when it already exists"),
					mcp.WithString("text", mcp.Required(), mcp.Description("Page content in the configured text formatting")),
					mcp.WithString("comments", mcp.Description("Change comment")),
					mcp.WithString("parent_title", mcp.Description("Title of the parent page")),
					mcp.WithNumber("version", mcp.Description("Version the edit is based on, to detect conflicting edits")),
					mcp.WithArray("uploads",
						mcp.Description("Files to attach: [{token, filename, content_type}] from upload_file"),
						mcp.Items(map[string]any{"type": "object"}),
					),
				)...,
			),
			Handler: h.handleCreateOrUpdateWikiPage,
		},
		{
			Definition: newTool("delete_wiki_page", "Delete wiki page", Destructive|Idempotent,
				append(wikiPageParams(),
					mcp.WithDescription("Delete a wiki page and its history"),
				)...,
			),
			Handler: h.handleDeleteWikiPage,
		},
	}
}

func wikiPageArgs(req mcp.CallToolRequest) (projectID, title string, err error) {
	if projectID, err = requireID(req, "project_id"); err != nil {
		return "", "", err
	}
	if title, err = requireString(req, "page_name"); err != nil {
		return "", "", err
	}
	return projectID, title, nil
}

func (h *ToolHandlers) handleListWikiPages(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectID, err := requireID(req, "project_id")
	if err != nil {
		return nil, err
	}

	pages, err := h.clientFor(ctx).ListWikiPages(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return listResult("wiki_pages", pages)
}

func (h *ToolHandlers) handleGetWikiPage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectID, title, err := wikiPageArgs(req)
	if err != nil {
		return nil, err
	}
	version, err := optionalInt(req, "version", 0)
	if err != nil {
		return nil, err
	}

	res, err := h.clientFor(ctx).GetWikiPage(ctx, projectID, title, version)
	if err != nil {
		return nil, err
	}
	if !res.Found {
		return notFound("Wiki page", title)
	}
	return jsonResult(res.Value)
}

func (h *ToolHandlers) handleCreateOrUpdateWikiPage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectID, title, err := wikiPageArgs(req)
	if err != nil {
		return nil, err
	}
	text, err := requireContent(req, "text")
	if err != nil {
		return nil, err
	}

	fields := pick(req, "comments", "parent_title", "version")
	fields["text"] = text
	if uploads := getArrayArg(req, "uploads"); len(uploads) > 0 {
		fields["uploads"] = uploads
	}

	page, err := h.clientFor(ctx).PutWikiPage(ctx, projectID, title, fields)
	if err != nil {
		return nil, err
	}
	if len(page) == 0 {
		return statusResult("updated", map[string]any{"project_id": projectID, "page_name": title})
	}
	return jsonResult(page)
}

func (h *ToolHandlers) handleDeleteWikiPage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectID, title, err := wikiPageArgs(req)
	if err != nil {
		return nil, err
	}
	if err := h.clientFor(ctx).DeleteWikiPage(ctx, projectID, title); err != nil {
		return nil, err
	}
	return statusResult("deleted", map[string]any{"project_id": projectID, "page_name": title})
}
