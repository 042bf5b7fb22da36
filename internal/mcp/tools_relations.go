package mcp

import (
	"context"
	"fmt"
	"slices"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/ycho/redmine-mcp/internal/redmine"
)

func relationIDParam() mcp.ToolOption {
	return mcp.WithNumber("relation_id", mcp.Required(), mcp.Description("Relation ID"))
}

func (h *ToolHandlers) relationTools() []Tool {
	return []Tool{
		{
			Definition: newTool("list_issue_relations", "List issue relations", Readonly|Idempotent,
				mcp.WithDescription("List the relations of an issue"),
				issueIDParam(),
			),
			Handler: h.handleListIssueRelations,
		},
		{
			Definition: newTool("create_issue_relation", "Create issue relation", 0,
				mcp.WithDescription("Link two issues"),
				issueIDParam(),
				mcp.WithNumber("issue_to_id", mcp.Required(), mcp.Description("Related issue ID")),
				mcp.WithString("relation_type",
					mcp.Required(),
					mcp.Description("Relation type"),
					mcp.Enum(redmine.RelationTypes...),
				),
				mcp.WithNumber("delay", mcp.Description("Delay in days, for precedes and follows only")),
			),
			Handler: h.handleCreateIssueRelation,
		},
		{
			Definition: newTool("get_issue_relation", "Get issue relation", Readonly|Idempotent,
				mcp.WithDescription("Get a relation by ID"),
				relationIDParam(),
			),
			Handler: h.handleGetIssueRelation,
		},
		{
			Definition: newTool("delete_issue_relation", "Delete issue relation", Destructive|Idempotent,
				mcp.WithDescription("Delete a relation"),
				relationIDParam(),
			),
			Handler: h.handleDeleteIssueRelation,
		},
	}
}

func (h *ToolHandlers) handleListIssueRelations(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := requireInt(req, "issue_id")
	if err != nil {
		return nil, err
	}

	relations, err := h.clientFor(ctx).ListIssueRelations(ctx, id)
	if err != nil {
		return nil, err
	}
	return listResult("relations", relations)
}

func (h *ToolHandlers) handleCreateIssueRelation(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	issueID, err := requireInt(req, "issue_id")
	if err != nil {
		return nil, err
	}
	issueToID, err := requireInt(req, "issue_to_id")
	if err != nil {
		return nil, err
	}
	relationType, err := requireString(req, "relation_type")
	if err != nil {
		return nil, err
	}
	if !slices.Contains(redmine.RelationTypes, relationType) {
		return nil, fmt.Errorf("invalid relation_type %q (expected one of %v)", relationType, redmine.RelationTypes)
	}

	fields := map[string]any{
		"issue_to_id":   issueToID,
		"relation_type": relationType,
	}
	if delay, err := optionalInt(req, "delay", 0); err != nil {
		return nil, err
	} else if delay != 0 {
		fields["delay"] = delay
	}

	relation, err := h.clientFor(ctx).CreateIssueRelation(ctx, issueID, fields)
	if err != nil {
		return nil, err
	}
	return jsonResult(relation)
}

func (h *ToolHandlers) handleGetIssueRelation(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := requireInt(req, "relation_id")
	if err != nil {
		return nil, err
	}

	res, err := h.clientFor(ctx).GetIssueRelation(ctx, id)
	if err != nil {
		return nil, err
	}
	if !res.Found {
		return notFound("Relation", id)
	}
	return jsonResult(res.Value)
}

func (h *ToolHandlers) handleDeleteIssueRelation(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := requireInt(req, "relation_id")
	if err != nil {
		return nil, err
	}
	if err := h.clientFor(ctx).DeleteIssueRelation(ctx, id); err != nil {
		return nil, err
	}
	return statusResult("deleted", map[string]any{"relation_id": id})
}
