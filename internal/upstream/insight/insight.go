// Package insight is a client for an Insight-style block explorer.
package insight

import (
	"context"
	"net/url"
	"strconv"

	"github.com/mrz1836/cashgate/internal/upstream"
)

// Name identifies the explorer in metrics and logs.
const Name = "insight"

// PageSize is the number of transactions requested per details page.
const PageSize = 1000

// Client calls the Insight API.
type Client struct {
	http *upstream.Client
}

// New creates an Insight client rooted at opts.BaseURL.
func New(opts *upstream.Options) *Client {
	return &Client{http: upstream.NewClient(Name, opts)}
}

// AddressDetails returns the address summary for one page of transactions.
func (c *Client) AddressDetails(ctx context.Context, legacy string, page int) (map[string]any, error) {
	from := page * PageSize
	query := url.Values{
		"from": {strconv.Itoa(from)},
		"to":   {strconv.Itoa(from + PageSize)},
	}

	var out map[string]any
	if err := c.http.GetJSON(ctx, "addr/"+url.PathEscape(legacy), query, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// AddressUTXOs returns the unspent outputs of an address.
func (c *Client) AddressUTXOs(ctx context.Context, legacy string) ([]map[string]any, error) {
	var out []map[string]any
	if err := c.http.GetJSON(ctx, "addr/"+url.PathEscape(legacy)+"/utxo", nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []map[string]any{}
	}
	return out, nil
}

// AddressTransactions returns one page of transactions touching addr.
func (c *Client) AddressTransactions(ctx context.Context, addr string, page int) (map[string]any, error) {
	query := url.Values{
		"address": {addr},
		"pageNum": {strconv.Itoa(page)},
	}

	var out map[string]any
	if err := c.http.GetJSON(ctx, "txs/", query, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Transaction returns the decoded transaction.
func (c *Client) Transaction(ctx context.Context, txid string) (map[string]any, error) {
	var out map[string]any
	if err := c.http.GetJSON(ctx, "tx/"+url.PathEscape(txid), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// PagesTotal returns how many details pages cover txCount transactions.
func PagesTotal(txCount int) int {
	if txCount <= 0 {
		return 0
	}
	return (txCount + PageSize - 1) / PageSize
}

// Block returns the block summary for hash.
func (c *Client) Block(ctx context.Context, hash string) (map[string]any, error) {
	var out map[string]any
	if err := c.http.GetJSON(ctx, "block/"+url.PathEscape(hash), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}
