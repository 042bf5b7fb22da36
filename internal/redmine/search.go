package redmine

import (
	"context"
	"errors"
	"fmt"
	"net/url"
)

// SearchOptions configures Search. Scope is "all", "my_projects" or
// "subprojects"; an empty scope searches the current project only.
type SearchOptions struct {
	ListOptions
	Query      string `url:"q"`
	ProjectID  string `url:"-"`
	TitlesOnly bool   `url:"titles_only,omitempty,int"`
	OpenIssues bool   `url:"open_issues,omitempty,int"`
	Scope      string `url:"scope,omitempty"`
}

// Search runs a full text search across issues, wiki pages, news and other
// searchable resources.
func (c *Client) Search(ctx context.Context, opts SearchOptions) (*Page, error) {
	if opts.Query == "" {
		return nil, errors.New("search query is required")
	}
	opts.ListOptions = opts.ListOptions.normalized()
	endpoint := "search"
	if opts.ProjectID != "" {
		endpoint = "projects/" + url.PathEscape(opts.ProjectID) + "/search"
	}
	return c.list(ctx, endpoint, "results", opts)
}

// NewsListOptions filters ListNews.
type NewsListOptions struct {
	ListOptions
	ProjectID string `url:"-"`
}

func (c *Client) ListNews(ctx context.Context, opts NewsListOptions) (*Page, error) {
	opts.ListOptions = opts.ListOptions.normalized()
	endpoint := "news"
	if opts.ProjectID != "" {
		endpoint = "projects/" + url.PathEscape(opts.ProjectID) + "/news"
	}
	return c.list(ctx, endpoint, "news", opts)
}

func (c *Client) GetNews(ctx context.Context, id int) (Lookup, error) {
	return c.get(ctx, fmt.Sprintf("news/%d", id), "news", nil)
}
