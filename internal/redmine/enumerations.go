package redmine

import (
	"context"
	"fmt"
	"net/url"
)

// Enumeration resources served under /enumerations.
const (
	EnumIssuePriorities     = "issue_priorities"
	EnumTimeEntryActivities = "time_entry_activities"
	EnumDocumentCategories  = "document_categories"
)

// EnumerationResources lists the valid arguments of ListEnumerations.
var EnumerationResources = []string{EnumIssuePriorities, EnumTimeEntryActivities, EnumDocumentCategories}

// ListEnumerations returns the values of one enumeration resource.
func (c *Client) ListEnumerations(ctx context.Context, resource string) ([]map[string]any, error) {
	valid := false
	for _, r := range EnumerationResources {
		if r == resource {
			valid = true
			break
		}
	}
	if !valid {
		return nil, fmt.Errorf("unknown enumeration %q (expected one of %v)", resource, EnumerationResources)
	}
	return c.items(ctx, "enumerations/"+resource, resource, nil)
}

func (c *Client) ListTrackers(ctx context.Context) ([]map[string]any, error) {
	return c.items(ctx, "trackers", "trackers", nil)
}

func (c *Client) ListIssueStatuses(ctx context.Context) ([]map[string]any, error) {
	return c.items(ctx, "issue_statuses", "issue_statuses", nil)
}

func (c *Client) ListRoles(ctx context.Context) ([]map[string]any, error) {
	return c.items(ctx, "roles", "roles", nil)
}

// GetRole returns a role including its permissions.
func (c *Client) GetRole(ctx context.Context, id int) (Lookup, error) {
	return c.get(ctx, fmt.Sprintf("roles/%d", id), "role", nil)
}

// ListCustomFields returns every custom field definition. Requires admin privileges.
func (c *Client) ListCustomFields(ctx context.Context) ([]map[string]any, error) {
	return c.items(ctx, "custom_fields", "custom_fields", nil)
}

// ListQueries returns the saved public queries, optionally for one project.
func (c *Client) ListQueries(ctx context.Context, projectID string, opts ListOptions) (*Page, error) {
	opts = opts.normalized()
	endpoint := "queries"
	if projectID != "" {
		endpoint = "projects/" + url.PathEscape(projectID) + "/queries"
	}
	return c.list(ctx, endpoint, "queries", opts)
}

// items is list for endpoints that are not paginated.
func (c *Client) items(ctx context.Context, endpoint, key string, opts any) ([]map[string]any, error) {
	page, err := c.list(ctx, endpoint, key, opts)
	if err != nil {
		return nil, err
	}
	return page.Items, nil
}
