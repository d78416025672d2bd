package apiclient

import (
	"context"
	"encoding/json"
)

// Collection is the list envelope returned by the service's resource
// endpoints (and preserved by the fallback responder). Items stay raw:
// domain record shapes are the caller's concern.
type Collection struct {
	Items []json.RawMessage `json:"items"`
	Total int               `json:"total"`
}

// GetCollection fetches a list endpoint and decodes the envelope.
func (c *Client) GetCollection(ctx context.Context, path string) (*Collection, error) {
	var collection Collection
	if err := c.Get(ctx, path, &collection); err != nil {
		return nil, err
	}
	return &collection, nil
}
