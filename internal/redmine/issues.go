package redmine

import (
	"context"
	"fmt"
	"net/http"
)

// IssueFilter filters ListIssues. String IDs accept the special values Redmine
// understands, such as "me" for AssignedToID and "open", "closed" or "*" for
// StatusID.
type IssueFilter struct {
	ListOptions
	ProjectID    string   `url:"project_id,omitempty"`
	AssignedToID string   `url:"assigned_to_id,omitempty"`
	StatusID     string   `url:"status_id,omitempty"`
	TrackerID    int      `url:"tracker_id,omitempty"`
	PriorityID   int      `url:"priority_id,omitempty"`
	ParentID     int      `url:"parent_id,omitempty"`
	Subject      string   `url:"subject,omitempty"`
	CreatedOn    string   `url:"created_on,omitempty"`
	UpdatedOn    string   `url:"updated_on,omitempty"`
	Sort         string   `url:"sort,omitempty"`
	Include      []string `url:"include,comma,omitempty"`
}

// ListIssues returns one page of issues.
func (c *Client) ListIssues(ctx context.Context, f IssueFilter) (*Page, error) {
	f.ListOptions = f.ListOptions.normalized()
	if f.Subject != "" {
		f.Subject = "~" + f.Subject
	}
	return c.list(ctx, "issues", "issues", f)
}

// GetIssue looks up an issue. include names sub-resources such as journals,
// relations, attachments, watchers or children.
func (c *Client) GetIssue(ctx context.Context, id int, include []string) (Lookup, error) {
	return c.get(ctx, fmt.Sprintf("issues/%d", id), "issue", includeOptions{Include: include})
}

// CreateIssue creates an issue. fields is the bare issue object; it is
// wrapped as {"issue": fields} here.
func (c *Client) CreateIssue(ctx context.Context, fields map[string]any) (map[string]any, error) {
	return c.create(ctx, "issues", "issue", fields)
}

func (c *Client) UpdateIssue(ctx context.Context, id int, fields map[string]any) error {
	return c.update(ctx, fmt.Sprintf("issues/%d", id), "issue", fields)
}

func (c *Client) DeleteIssue(ctx context.Context, id int) error {
	return c.delete(ctx, fmt.Sprintf("issues/%d", id), nil)
}

// AddWatcher adds a user to the watchers of an issue.
func (c *Client) AddWatcher(ctx context.Context, issueID, userID int) error {
	_, err := c.Request(ctx, http.MethodPost, fmt.Sprintf("issues/%d/watchers", issueID), nil, map[string]any{"user_id": userID})
	return err
}

// RemoveWatcher removes a user from the watchers of an issue.
func (c *Client) RemoveWatcher(ctx context.Context, issueID, userID int) error {
	return c.delete(ctx, fmt.Sprintf("issues/%d/watchers/%d", issueID, userID), nil)
}

// ListIssueJournals returns the journal (history) entries of an issue.
func (c *Client) ListIssueJournals(ctx context.Context, issueID int) (Lookup, []map[string]any, error) {
	res, err := c.GetIssue(ctx, issueID, []string{"journals"})
	if err != nil || !res.Found {
		return res, nil, err
	}
	page, err := unwrapPage(res.Value, "journals")
	if err != nil {
		return res, nil, err
	}
	return res, page.Items, nil
}

// UpdateJournal edits the notes of a journal entry.
func (c *Client) UpdateJournal(ctx context.Context, id int, fields map[string]any) error {
	return c.update(ctx, fmt.Sprintf("journals/%d", id), "journal", fields)
}
