package redmine

import (
	"context"
	"fmt"
	"net/http"
)

func (c *Client) ListGroups(ctx context.Context) ([]map[string]any, error) {
	return c.items(ctx, "groups", "groups", nil)
}

// GetGroup looks up a group; include may name users and memberships.
func (c *Client) GetGroup(ctx context.Context, id int, include []string) (Lookup, error) {
	return c.get(ctx, fmt.Sprintf("groups/%d", id), "group", includeOptions{Include: include})
}

func (c *Client) CreateGroup(ctx context.Context, fields map[string]any) (map[string]any, error) {
	return c.create(ctx, "groups", "group", fields)
}

func (c *Client) UpdateGroup(ctx context.Context, id int, fields map[string]any) error {
	return c.update(ctx, fmt.Sprintf("groups/%d", id), "group", fields)
}

func (c *Client) DeleteGroup(ctx context.Context, id int) error {
	return c.delete(ctx, fmt.Sprintf("groups/%d", id), nil)
}

func (c *Client) AddUserToGroup(ctx context.Context, groupID, userID int) error {
	_, err := c.Request(ctx, http.MethodPost, fmt.Sprintf("groups/%d/users", groupID), nil, map[string]any{"user_id": userID})
	return err
}

func (c *Client) RemoveUserFromGroup(ctx context.Context, groupID, userID int) error {
	return c.delete(ctx, fmt.Sprintf("groups/%d/users/%d", groupID, userID), nil)
}
