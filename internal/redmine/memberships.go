package redmine

import (
	"context"
	"fmt"
	"net/url"
)

func (c *Client) ListMemberships(ctx context.Context, projectID string, opts ListOptions) (*Page, error) {
	opts = opts.normalized()
	return c.list(ctx, "projects/"+url.PathEscape(projectID)+"/memberships", "memberships", opts)
}

func (c *Client) GetMembership(ctx context.Context, id int) (Lookup, error) {
	return c.get(ctx, fmt.Sprintf("memberships/%d", id), "membership", nil)
}

// CreateMembership adds a user or group to a project. fields holds user_id
// (a user or group ID) and role_ids.
func (c *Client) CreateMembership(ctx context.Context, projectID string, fields map[string]any) (map[string]any, error) {
	return c.create(ctx, "projects/"+url.PathEscape(projectID)+"/memberships", "membership", fields)
}

// UpdateMembership replaces the roles of a membership.
func (c *Client) UpdateMembership(ctx context.Context, id int, roleIDs []int) error {
	return c.update(ctx, fmt.Sprintf("memberships/%d", id), "membership", map[string]any{"role_ids": roleIDs})
}

func (c *Client) DeleteMembership(ctx context.Context, id int) error {
	return c.delete(ctx, fmt.Sprintf("memberships/%d", id), nil)
}
