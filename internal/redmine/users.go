package redmine

import (
	"context"
	"fmt"
)

// UserFilter filters ListUsers. Status is 1 (active), 2 (registered) or
// 3 (locked); zero leaves the server default (active).
type UserFilter struct {
	ListOptions
	Status  int    `url:"status,omitempty"`
	Name    string `url:"name,omitempty"`
	GroupID int    `url:"group_id,omitempty"`
}

// ListUsers returns one page of users. Requires admin privileges.
func (c *Client) ListUsers(ctx context.Context, f UserFilter) (*Page, error) {
	f.ListOptions = f.ListOptions.normalized()
	return c.list(ctx, "users", "users", f)
}

// GetUser looks up a user; include may name memberships and groups.
func (c *Client) GetUser(ctx context.Context, id int, include []string) (Lookup, error) {
	return c.get(ctx, fmt.Sprintf("users/%d", id), "user", includeOptions{Include: include})
}

// GetCurrentUser returns the user the credentials belong to.
func (c *Client) GetCurrentUser(ctx context.Context) (map[string]any, error) {
	res, err := c.get(ctx, "users/current", "user", nil)
	if err != nil {
		return nil, err
	}
	if !res.Found {
		return nil, &APIError{Message: "current user not found", StatusCode: 404}
	}
	return res.Value, nil
}

func (c *Client) CreateUser(ctx context.Context, fields map[string]any) (map[string]any, error) {
	return c.create(ctx, "users", "user", fields)
}

func (c *Client) UpdateUser(ctx context.Context, id int, fields map[string]any) error {
	return c.update(ctx, fmt.Sprintf("users/%d", id), "user", fields)
}

func (c *Client) DeleteUser(ctx context.Context, id int) error {
	return c.delete(ctx, fmt.Sprintf("users/%d", id), nil)
}

// GetMyAccount returns the account of the authenticated user.
func (c *Client) GetMyAccount(ctx context.Context) (map[string]any, error) {
	res, err := c.get(ctx, "my/account", "user", nil)
	if err != nil {
		return nil, err
	}
	if !res.Found {
		return nil, &APIError{Message: "account not found", StatusCode: 404}
	}
	return res.Value, nil
}

// UpdateMyAccount changes firstname, lastname, mail or custom fields of the
// authenticated user.
func (c *Client) UpdateMyAccount(ctx context.Context, fields map[string]any) error {
	return c.update(ctx, "my/account", "user", fields)
}
