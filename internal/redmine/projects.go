package redmine

import (
	"context"
	"net/http"
	"net/url"
)

// ProjectListOptions filters ListProjects.
type ProjectListOptions struct {
	ListOptions
	// IncludeArchived lists archived projects as well as active ones.
	IncludeArchived bool     `url:"-"`
	Status          string   `url:"status,omitempty"`
	Include         []string `url:"include,comma,omitempty"`
}

// ListProjects returns one page of projects.
func (c *Client) ListProjects(ctx context.Context, opts ProjectListOptions) (*Page, error) {
	opts.ListOptions = opts.ListOptions.normalized()
	if opts.IncludeArchived && opts.Status == "" {
		opts.Status = "*"
	}
	return c.list(ctx, "projects", "projects", opts)
}

// GetProject looks up a project by numeric ID or identifier.
func (c *Client) GetProject(ctx context.Context, id string, include []string) (Lookup, error) {
	return c.get(ctx, "projects/"+url.PathEscape(id), "project", includeOptions{Include: include})
}

// CreateProject creates a project from fields (name, identifier, ...).
func (c *Client) CreateProject(ctx context.Context, fields map[string]any) (map[string]any, error) {
	return c.create(ctx, "projects", "project", fields)
}

func (c *Client) UpdateProject(ctx context.Context, id string, fields map[string]any) error {
	return c.update(ctx, "projects/"+url.PathEscape(id), "project", fields)
}

func (c *Client) DeleteProject(ctx context.Context, id string) error {
	return c.delete(ctx, "projects/"+url.PathEscape(id), nil)
}

// ArchiveProject archives a project (Redmine 5.1+).
func (c *Client) ArchiveProject(ctx context.Context, id string) error {
	_, err := c.Request(ctx, http.MethodPut, "projects/"+url.PathEscape(id)+"/archive", nil, nil)
	return err
}

// UnarchiveProject reactivates an archived project (Redmine 5.1+).
func (c *Client) UnarchiveProject(ctx context.Context, id string) error {
	_, err := c.Request(ctx, http.MethodPut, "projects/"+url.PathEscape(id)+"/unarchive", nil, nil)
	return err
}

// TestConnection checks that the server is reachable and accepts the credentials.
func (c *Client) TestConnection(ctx context.Context) error {
	_, err := c.list(ctx, "projects", "projects", ListOptions{Limit: 1})
	return err
}

type includeOptions struct {
	Include []string `url:"include,comma,omitempty"`
}
