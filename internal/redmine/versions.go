package redmine

import (
	"context"
	"fmt"
	"net/url"
)

// ListVersions returns the versions (milestones) available to a project,
// including shared ones.
func (c *Client) ListVersions(ctx context.Context, projectID string) ([]map[string]any, error) {
	return c.items(ctx, "projects/"+url.PathEscape(projectID)+"/versions", "versions", nil)
}

func (c *Client) GetVersion(ctx context.Context, id int) (Lookup, error) {
	return c.get(ctx, fmt.Sprintf("versions/%d", id), "version", nil)
}

func (c *Client) CreateVersion(ctx context.Context, projectID string, fields map[string]any) (map[string]any, error) {
	return c.create(ctx, "projects/"+url.PathEscape(projectID)+"/versions", "version", fields)
}

func (c *Client) UpdateVersion(ctx context.Context, id int, fields map[string]any) error {
	return c.update(ctx, fmt.Sprintf("versions/%d", id), "version", fields)
}

func (c *Client) DeleteVersion(ctx context.Context, id int) error {
	return c.delete(ctx, fmt.Sprintf("versions/%d", id), nil)
}
