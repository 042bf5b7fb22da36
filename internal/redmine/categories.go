package redmine

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

func (c *Client) ListIssueCategories(ctx context.Context, projectID string) ([]map[string]any, error) {
	return c.items(ctx, "projects/"+url.PathEscape(projectID)+"/issue_categories", "issue_categories", nil)
}

func (c *Client) GetIssueCategory(ctx context.Context, id int) (Lookup, error) {
	return c.get(ctx, fmt.Sprintf("issue_categories/%d", id), "issue_category", nil)
}

func (c *Client) CreateIssueCategory(ctx context.Context, projectID string, fields map[string]any) (map[string]any, error) {
	return c.create(ctx, "projects/"+url.PathEscape(projectID)+"/issue_categories", "issue_category", fields)
}

func (c *Client) UpdateIssueCategory(ctx context.Context, id int, fields map[string]any) error {
	return c.update(ctx, fmt.Sprintf("issue_categories/%d", id), "issue_category", fields)
}

// DeleteIssueCategory deletes a category. When reassignToID is non-zero the
// issues of the deleted category move to that category in the same request.
func (c *Client) DeleteIssueCategory(ctx context.Context, id, reassignToID int) error {
	var q url.Values
	if reassignToID > 0 {
		q = url.Values{"reassign_to_id": {strconv.Itoa(reassignToID)}}
	}
	return c.delete(ctx, fmt.Sprintf("issue_categories/%d", id), q)
}
