package redmine

import (
	"context"
	"fmt"
)

// RelationTypes are the relation kinds Redmine accepts.
var RelationTypes = []string{
	"relates", "duplicates", "duplicated", "blocks", "blocked",
	"precedes", "follows", "copied_to", "copied_from",
}

func (c *Client) ListIssueRelations(ctx context.Context, issueID int) ([]map[string]any, error) {
	return c.items(ctx, fmt.Sprintf("issues/%d/relations", issueID), "relations", nil)
}

// CreateIssueRelation links issueID to fields["issue_to_id"] with
// fields["relation_type"]; "delay" applies to precedes/follows.
func (c *Client) CreateIssueRelation(ctx context.Context, issueID int, fields map[string]any) (map[string]any, error) {
	return c.create(ctx, fmt.Sprintf("issues/%d/relations", issueID), "relation", fields)
}

func (c *Client) GetIssueRelation(ctx context.Context, id int) (Lookup, error) {
	return c.get(ctx, fmt.Sprintf("relations/%d", id), "relation", nil)
}

func (c *Client) DeleteIssueRelation(ctx context.Context, id int) error {
	return c.delete(ctx, fmt.Sprintf("relations/%d", id), nil)
}
