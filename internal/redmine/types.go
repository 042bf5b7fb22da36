package redmine

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/google/go-querystring/query"
)

// DefaultLimit is the page size used when a list call does not set one.
const DefaultLimit = 25

// Lookup is the outcome of a read that may legitimately find nothing.
// A failed read is reported through the accompanying error instead.
type Lookup struct {
	Value map[string]any
	Found bool
}

// Page is one page of a list endpoint. Items is the array found under the
// resource key of the response; the counters are zero when the endpoint
// does not paginate.
type Page struct {
	Items      []map[string]any `json:"items"`
	TotalCount int              `json:"total_count"`
	Offset     int              `json:"offset"`
	Limit      int              `json:"limit"`
}

// ListOptions carries the pagination parameters shared by list endpoints.
type ListOptions struct {
	Limit  int `url:"limit"`
	Offset int `url:"offset"`
}

func (o ListOptions) normalized() ListOptions {
	if o.Limit <= 0 {
		o.Limit = DefaultLimit
	}
	if o.Offset < 0 {
		o.Offset = 0
	}
	return o
}

// DateFilter builds a Redmine date filter: "><from|to" for a range, ">=from"
// or "<=to" for an open range, and "" when neither bound is set.
func DateFilter(from, to string) string {
	switch {
	case from != "" && to != "":
		return "><" + from + "|" + to
	case from != "":
		return ">=" + from
	case to != "":
		return "<=" + to
	default:
		return ""
	}
}

// values encodes an options struct. Fields tagged omitempty are left out
// when unset, so absent filters never reach the server.
func values(opts any) (url.Values, error) {
	if opts == nil {
		return nil, nil
	}
	v, err := query.Values(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to encode query: %w", err)
	}
	return v, nil
}

// get fetches endpoint and returns the object under key, treating 404 as
// an absent result.
func (c *Client) get(ctx context.Context, endpoint, key string, opts any) (Lookup, error) {
	q, err := values(opts)
	if err != nil {
		return Lookup{}, err
	}
	resp, err := c.Request(ctx, http.MethodGet, endpoint, q, nil)
	if err != nil {
		if IsNotFound(err) {
			return Lookup{}, nil
		}
		return Lookup{}, err
	}
	obj, ok := resp[key].(map[string]any)
	if !ok {
		return Lookup{}, &APIError{Message: fmt.Sprintf("response has no %q object", key)}
	}
	return Lookup{Value: obj, Found: true}, nil
}

// list fetches endpoint and unwraps the array under key.
func (c *Client) list(ctx context.Context, endpoint, key string, opts any) (*Page, error) {
	q, err := values(opts)
	if err != nil {
		return nil, err
	}
	resp, err := c.Request(ctx, http.MethodGet, endpoint, q, nil)
	if err != nil {
		return nil, err
	}
	return unwrapPage(resp, key)
}

func unwrapPage(resp map[string]any, key string) (*Page, error) {
	page := &Page{Items: []map[string]any{}}

	raw, ok := resp[key]
	if ok && raw != nil {
		arr, ok := raw.([]any)
		if !ok {
			return nil, &APIError{Message: fmt.Sprintf("response field %q is not a list", key)}
		}
		for _, item := range arr {
			if obj, ok := item.(map[string]any); ok {
				page.Items = append(page.Items, obj)
			}
		}
	}

	page.TotalCount = intField(resp, "total_count", len(page.Items))
	page.Offset = intField(resp, "offset", 0)
	page.Limit = intField(resp, "limit", 0)
	return page, nil
}

func intField(m map[string]any, key string, fallback int) int {
	if f, ok := m[key].(float64); ok {
		return int(f)
	}
	return fallback
}

// create POSTs fields wrapped under key and returns the created object when
// the server echoes one.
func (c *Client) create(ctx context.Context, endpoint, key string, fields map[string]any) (map[string]any, error) {
	resp, err := c.Request(ctx, http.MethodPost, endpoint, nil, map[string]any{key: fields})
	if err != nil {
		return nil, err
	}
	if obj, ok := resp[key].(map[string]any); ok {
		return obj, nil
	}
	return resp, nil
}

// update PUTs fields wrapped under key.
func (c *Client) update(ctx context.Context, endpoint, key string, fields map[string]any) error {
	_, err := c.Request(ctx, http.MethodPut, endpoint, nil, map[string]any{key: fields})
	return err
}

func (c *Client) delete(ctx context.Context, endpoint string, q url.Values) error {
	_, err := c.Request(ctx, http.MethodDelete, endpoint, q, nil)
	return err
}
