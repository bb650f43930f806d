// Package blockbook is a client for a Blockbook explorer.
package blockbook

import (
	"context"
	"net/url"

	"github.com/mrz1836/cashgate/internal/upstream"
)

// Name identifies the explorer in metrics and logs.
const Name = "blockbook"

// Client calls the Blockbook v2 API.
type Client struct {
	http *upstream.Client
}

// New creates a Blockbook client rooted at opts.BaseURL.
func New(opts *upstream.Options) *Client {
	return &Client{http: upstream.NewClient(Name, opts)}
}

// Balance returns the address summary for a cash address.
func (c *Client) Balance(ctx context.Context, cashAddr string) (map[string]any, error) {
	var out map[string]any
	if err := c.http.GetJSON(ctx, "api/v2/address/"+url.PathEscape(cashAddr), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UTXOs returns the unspent outputs of a cash address.
func (c *Client) UTXOs(ctx context.Context, cashAddr string) ([]map[string]any, error) {
	var out []map[string]any
	if err := c.http.GetJSON(ctx, "api/v2/utxo/"+url.PathEscape(cashAddr), nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []map[string]any{}
	}
	return out, nil
}
