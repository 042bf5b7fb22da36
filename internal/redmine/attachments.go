package redmine

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// UploadToken references uploaded content when creating or updating an issue
// or wiki page: {"uploads": [{"token": ..., "filename": ...}]}.
type UploadToken struct {
	Token       string `json:"token"`
	Filename    string `json:"filename"`
	ContentType string `json:"content_type,omitempty"`
	Description string `json:"description,omitempty"`
}

type uploadResponse struct {
	Upload struct {
		ID    int    `json:"id"`
		Token string `json:"token"`
	} `json:"upload"`
}

// Upload sends raw bytes to the uploads endpoint and returns the token the
// server issues for them. The token is not tied to anything until a later
// issue or wiki write references it.
func (c *Client) Upload(ctx context.Context, filename string, content []byte) (string, error) {
	q := url.Values{}
	q.Set("filename", filename)

	var resp uploadResponse
	err := c.requestInto(ctx, c.transfer, http.MethodPost, "uploads", q, "application/octet-stream", content, &resp)
	if err != nil {
		return "", err
	}
	if resp.Upload.Token == "" {
		return "", &APIError{Message: "upload response did not contain a token"}
	}
	return resp.Upload.Token, nil
}

// GetAttachment returns attachment metadata.
func (c *Client) GetAttachment(ctx context.Context, id int) (Lookup, error) {
	return c.get(ctx, fmt.Sprintf("attachments/%d", id), "attachment", nil)
}

// FetchAttachment returns the metadata of an attachment together with the
// bytes behind its content_url. A missing attachment is reported through the
// Lookup, not as an error.
func (c *Client) FetchAttachment(ctx context.Context, id int) (Lookup, []byte, error) {
	info, err := c.GetAttachment(ctx, id)
	if err != nil || !info.Found {
		return info, nil, err
	}
	contentURL, _ := info.Value["content_url"].(string)
	if contentURL == "" {
		return info, nil, &APIError{Message: fmt.Sprintf("attachment %d has no content_url", id)}
	}
	target, err := c.resolveContentURL(contentURL)
	if err != nil {
		return info, nil, &APIError{Message: fmt.Sprintf("invalid content_url %q: %v", contentURL, err), Err: err}
	}
	data, err := c.send(ctx, c.transfer, http.MethodGet, target, "", "*/*", nil)
	if err != nil {
		return info, nil, err
	}
	return info, data, nil
}

// DownloadAttachment returns the content of an attachment. A missing
// attachment is a 404 APIError.
func (c *Client) DownloadAttachment(ctx context.Context, id int) ([]byte, error) {
	info, data, err := c.FetchAttachment(ctx, id)
	if err != nil {
		return nil, err
	}
	if !info.Found {
		return nil, &APIError{StatusCode: http.StatusNotFound, Message: fmt.Sprintf("attachment %d not found", id)}
	}
	return data, nil
}

// resolveContentURL keeps absolute URLs and joins relative ones onto the
// base URL.
func (c *Client) resolveContentURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.IsAbs() {
		return u.String(), nil
	}
	return c.baseURL + "/" + strings.TrimPrefix(u.String(), "/"), nil
}

// ListProjectFiles returns the files published in a project's Files section.
func (c *Client) ListProjectFiles(ctx context.Context, projectID string) (*Page, error) {
	return c.list(ctx, "projects/"+url.PathEscape(projectID)+"/files", "files", nil)
}
