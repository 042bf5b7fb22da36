package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/ycho/redmine-mcp/internal/redmine"
)

const searchDescriptionMax = 150

func (h *ToolHandlers) journalTools() []Tool {
	return []Tool{
		{
			Definition: newTool("list_issue_journals", "List issue journals", Readonly|Idempotent,
				mcp.WithDescription("List the history (notes and field changes) of an issue"),
				issueIDParam(),
			),
			Handler: h.handleListIssueJournals,
		},
		{
			Definition: newTool("update_journal", "Update journal", Idempotent,
				mcp.WithDescription("Edit the notes of a journal entry"),
				mcp.WithNumber("journal_id", mcp.Required(), mcp.Description("Journal ID")),
				mcp.WithString("notes", mcp.Required(), mcp.Description("New notes. An empty string removes a journal without changes")),
				mcp.WithBoolean("private_notes", mcp.Description("Mark the notes private")),
			),
			Handler: h.handleUpdateJournal,
		},
	}
}

func (h *ToolHandlers) handleListIssueJournals(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := requireInt(req, "issue_id")
	if err != nil {
		return nil, err
	}

	res, journals, err := h.clientFor(ctx).ListIssueJournals(ctx, id)
	if err != nil {
		return nil, err
	}
	if !res.Found {
		return notFound("Issue", id)
	}
	return jsonResult(map[string]any{
		"issue_id":    id,
		"journals":    journals,
		"total_count": len(journals),
	})
}

func (h *ToolHandlers) handleUpdateJournal(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := requireInt(req, "journal_id")
	if err != nil {
		return nil, err
	}
	// notes may legitimately be empty, so only its presence is checked.
	notes, ok := req.GetArguments()["notes"].(string)
	if !ok {
		return nil, errors.New("notes is required")
	}
	fields := map[string]any{"notes": notes}
	if v, ok := req.GetArguments()["private_notes"]; ok && v != nil {
		fields["private_notes"] = req.GetBool("private_notes", false)
	}

	if err := h.clientFor(ctx).UpdateJournal(ctx, id, fields); err != nil {
		return nil, err
	}
	return statusResult("updated", map[string]any{"journal_id": id})
}

func (h *ToolHandlers) newsTools() []Tool {
	return []Tool{
		{
			Definition: newTool("list_news", "List news", Readonly|Idempotent,
				append([]mcp.ToolOption{
					mcp.WithDescription("List news, across all projects or for one project"),
					mcp.WithString("project_id", mcp.Description("Project ID or identifier")),
				}, paginationParams()...)...,
			),
			Handler: h.handleListNews,
		},
		{
			Definition: newTool("get_news", "Get news", Readonly|Idempotent,
				mcp.WithDescription("Get a news item by ID"),
				mcp.WithNumber("news_id", mcp.Required(), mcp.Description("News ID")),
			),
			Handler: h.handleGetNews,
		},
	}
}

func (h *ToolHandlers) handleListNews(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	opts := redmine.NewsListOptions{}
	var err error
	if opts.ProjectID, err = optionalID(req, "project_id"); err != nil {
		return nil, err
	}
	if opts.Limit, opts.Offset, err = listOptions(req); err != nil {
		return nil, err
	}

	page, err := h.clientFor(ctx).ListNews(ctx, opts)
	if err != nil {
		return nil, err
	}
	return pageResult("news", page, nil)
}

func (h *ToolHandlers) handleGetNews(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := requireInt(req, "news_id")
	if err != nil {
		return nil, err
	}

	res, err := h.clientFor(ctx).GetNews(ctx, id)
	if err != nil {
		return nil, err
	}
	if !res.Found {
		return notFound("News", id)
	}
	return jsonResult(res.Value)
}

func (h *ToolHandlers) searchTools() []Tool {
	return []Tool{
		{
			Definition: newTool("search", "Search", Readonly|Idempotent,
				append([]mcp.ToolOption{
					mcp.WithDescription("Full text search across issues, wiki pages, news, documents, changesets and messages"),
					mcp.WithString("query", mcp.Required(), mcp.Description("Search text")),
					mcp.WithString("project_id", mcp.Description("Limit the search to a project")),
					mcp.WithBoolean("titles_only", mcp.Description("Match titles only (default: false)")),
					mcp.WithBoolean("open_issues", mcp.Description("Only open issues (default: false)")),
					mcp.WithString("scope",
						mcp.Description("Projects to search when project_id is given"),
						mcp.Enum("all", "my_projects", "subprojects"),
					),
				}, paginationParams()...)...,
			),
			Handler: h.handleSearch,
		},
	}
}

func (h *ToolHandlers) handleSearch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	q, err := requireString(req, "query")
	if err != nil {
		return nil, err
	}
	opts := redmine.SearchOptions{
		Query:      q,
		TitlesOnly: req.GetBool("titles_only", false),
		OpenIssues: req.GetBool("open_issues", false),
		Scope:      req.GetString("scope", ""),
	}
	if opts.ProjectID, err = optionalID(req, "project_id"); err != nil {
		return nil, err
	}
	if opts.Limit, opts.Offset, err = listOptions(req); err != nil {
		return nil, err
	}

	page, err := h.clientFor(ctx).Search(ctx, opts)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(fmt.Sprintf("Search results for '%s' (%d total):\n\n%s",
		q, page.TotalCount, formatSearchResults(page.Items))), nil
}

func formatSearchResults(results []map[string]any) string {
	if len(results) == 0 {
		return "No results found."
	}

	blocks := make([]string, 0, len(results))
	for i, r := range results {
		kind := stringField(r, "type")
		if kind == "" {
			kind = "unknown"
		}
		title := stringField(r, "title")
		if title == "" {
			title = "N/A"
		}
		id := any("N/A")
		if n, err := toInt(r["id"]); err == nil {
			id = n
		}

		var b strings.Builder
		fmt.Fprintf(&b, "%d. [%s] %s (ID: %v)", i+1, kind, title, id)
		if u := stringField(r, "url"); u != "" {
			fmt.Fprintf(&b, "\n   URL: %s", u)
		}
		if desc := stringField(r, "description"); desc != "" {
			fmt.Fprintf(&b, "\n   %s", truncateRunes(desc, searchDescriptionMax))
		}
		blocks = append(blocks, b.String())
	}
	return strings.Join(blocks, "\n\n")
}

// truncateRunes cuts s to n characters and marks the cut with "...".
func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

func (h *ToolHandlers) fileTools() []Tool {
	return []Tool{
		{
			Definition: newTool("list_files", "List project files", Readonly|Idempotent,
				mcp.WithDescription("List the files published in the Files section of a project"),
				projectIDParam("Project ID or identifier"),
			),
			Handler: h.handleListFiles,
		},
	}
}

func (h *ToolHandlers) handleListFiles(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectID, err := requireID(req, "project_id")
	if err != nil {
		return nil, err
	}

	page, err := h.clientFor(ctx).ListProjectFiles(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return listResult("files", page.Items)
}

func (h *ToolHandlers) accountTools() []Tool {
	return []Tool{
		{
			Definition: newTool("get_my_account", "Get my account", Readonly|Idempotent,
				mcp.WithDescription("Get the account details of the authenticated user"),
			),
			Handler: h.handleGetMyAccount,
		},
		{
			Definition: newTool("update_my_account", "Update my account", Idempotent,
				mcp.WithDescription("Change the name, mail or custom fields of the authenticated user"),
				mcp.WithString("firstname", mcp.Description("First name")),
				mcp.WithString("lastname", mcp.Description("Last name")),
				mcp.WithString("mail", mcp.Description("Email address")),
				mcp.WithArray("custom_fields",
					mcp.Description("Custom field values: [{id, value}]"),
					mcp.Items(map[string]any{"type": "object"}),
				),
			),
			Handler: h.handleUpdateMyAccount,
		},
	}
}

func (h *ToolHandlers) handleGetMyAccount(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	account, err := h.clientFor(ctx).GetMyAccount(ctx)
	if err != nil {
		return nil, err
	}
	return jsonResult(account)
}

func (h *ToolHandlers) handleUpdateMyAccount(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	fields := pick(req, "firstname", "lastname", "mail")
	if cf := getArrayArg(req, "custom_fields"); len(cf) > 0 {
		fields["custom_fields"] = cf
	}
	if len(fields) == 0 {
		return nil, errors.New("no fields provided to update")
	}

	if err := h.clientFor(ctx).UpdateMyAccount(ctx, fields); err != nil {
		return nil, err
	}
	account, err := h.clientFor(ctx).GetMyAccount(ctx)
	if err != nil {
		return nil, err
	}
	return jsonResult(map[string]any{"status": "updated", "account": account})
}
