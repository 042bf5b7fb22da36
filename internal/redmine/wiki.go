package redmine

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

func wikiEndpoint(projectID, title string) string {
	return "projects/" + url.PathEscape(projectID) + "/wiki/" + url.PathEscape(title)
}

// ListWikiPages returns the page index of a project wiki.
func (c *Client) ListWikiPages(ctx context.Context, projectID string) ([]map[string]any, error) {
	return c.items(ctx, "projects/"+url.PathEscape(projectID)+"/wiki/index", "wiki_pages", nil)
}

// GetWikiPage returns a wiki page, or a historical version when version > 0.
func (c *Client) GetWikiPage(ctx context.Context, projectID, title string, version int) (Lookup, error) {
	endpoint := wikiEndpoint(projectID, title)
	if version > 0 {
		endpoint = fmt.Sprintf("%s/%d", endpoint, version)
	}
	return c.get(ctx, endpoint, "wiki_page", includeOptions{Include: []string{"attachments"}})
}

// PutWikiPage creates the page if it does not exist and updates it
// otherwise. Redmine answers 201 with the page on creation and 204 on update,
// so the returned map is empty for updates.
func (c *Client) PutWikiPage(ctx context.Context, projectID, title string, fields map[string]any) (map[string]any, error) {
	resp, err := c.Request(ctx, http.MethodPut, wikiEndpoint(projectID, title), nil, map[string]any{"wiki_page": fields})
	if err != nil {
		return nil, err
	}
	if page, ok := resp["wiki_page"].(map[string]any); ok {
		return page, nil
	}
	return resp, nil
}

func (c *Client) DeleteWikiPage(ctx context.Context, projectID, title string) error {
	return c.delete(ctx, wikiEndpoint(projectID, title), nil)
}
