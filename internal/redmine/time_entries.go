package redmine

import (
	"context"
	"fmt"
)

// TimeEntryFilter filters ListTimeEntries. Dates are YYYY-MM-DD.
type TimeEntryFilter struct {
	ListOptions
	UserID     string `url:"user_id,omitempty"`
	ProjectID  string `url:"project_id,omitempty"`
	IssueID    int    `url:"issue_id,omitempty"`
	ActivityID int    `url:"activity_id,omitempty"`
	SpentOn    string `url:"spent_on,omitempty"`
	From       string `url:"from,omitempty"`
	To         string `url:"to,omitempty"`
}

func (c *Client) ListTimeEntries(ctx context.Context, f TimeEntryFilter) (*Page, error) {
	f.ListOptions = f.ListOptions.normalized()
	return c.list(ctx, "time_entries", "time_entries", f)
}

func (c *Client) GetTimeEntry(ctx context.Context, id int) (Lookup, error) {
	return c.get(ctx, fmt.Sprintf("time_entries/%d", id), "time_entry", nil)
}

// CreateTimeEntry logs time. fields needs issue_id or project_id, and hours.
func (c *Client) CreateTimeEntry(ctx context.Context, fields map[string]any) (map[string]any, error) {
	return c.create(ctx, "time_entries", "time_entry", fields)
}

func (c *Client) UpdateTimeEntry(ctx context.Context, id int, fields map[string]any) error {
	return c.update(ctx, fmt.Sprintf("time_entries/%d", id), "time_entry", fields)
}

func (c *Client) DeleteTimeEntry(ctx context.Context, id int) error {
	return c.delete(ctx, fmt.Sprintf("time_entries/%d", id), nil)
}
