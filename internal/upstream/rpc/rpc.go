// Package rpc is a JSON-RPC client for the full node.
package rpc

import (
	"context"
	"encoding/json"
	"fmt"

	jsoniter "github.com/json-iterator/go"

	"github.com/mrz1836/cashgate/internal/upstream"
)

// Name identifies the full node in metrics and logs.
const Name = "rpc"

// Default getnetworkhashps arguments.
const (
	DefaultHashPSBlocks = 120
	DefaultHashPSHeight = -1
)

// Result is a raw JSON-RPC result.
type Result = json.RawMessage

// request is the JSON-RPC 1.0 envelope the node expects.
type request struct {
	JSONRPC string `json:"jsonrpc"`
	ID      string `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

// response is the JSON-RPC reply envelope.
type response struct {
	Result json.RawMessage    `json:"result"`
	Error  *upstream.RPCError `json:"error"`
	ID     any                `json:"id"`
}

// Client calls the full node.
type Client struct {
	http *upstream.Client
}

// New creates a full node client. opts.BaseURL is the RPC endpoint and
// opts.Username/Password the RPC credentials.
func New(opts *upstream.Options) *Client {
	return &Client{http: upstream.NewClient(Name, opts)}
}

// Call invokes method with params and returns the raw result.
func (c *Client) Call(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	if params == nil {
		params = []any{}
	}

	req := request{JSONRPC: "1.0", ID: method, Method: method, Params: params}

	var resp response
	if err := c.http.PostJSON(ctx, "", req, &resp); err != nil {
		return nil, err
	}
	if resp.Error != nil && resp.Error.Message != "" {
		return nil, resp.Error
	}
	return resp.Result, nil
}

// CallInto invokes method and decodes the result into out.
func (c *Client) CallInto(ctx context.Context, out any, method string, params ...any) error {
	raw, err := c.Call(ctx, method, params...)
	if err != nil {
		return err
	}
	if err := jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decoding %s result: %w", method, err)
	}
	return nil
}

// GetBestBlockHash returns the tip hash.
func (c *Client) GetBestBlockHash(ctx context.Context) (string, error) {
	var hash string
	err := c.CallInto(ctx, &hash, "getbestblockhash")
	return hash, err
}

// GetBlockCount returns the tip height.
func (c *Client) GetBlockCount(ctx context.Context) (int64, error) {
	var n int64
	err := c.CallInto(ctx, &n, "getblockcount")
	return n, err
}

// GetBlockHash returns the hash of the block at height on the best chain.
func (c *Client) GetBlockHash(ctx context.Context, height int) (string, error) {
	var hash string
	err := c.CallInto(ctx, &hash, "getblockhash", height)
	return hash, err
}

// GetBlockchainInfo returns getblockchaininfo.
func (c *Client) GetBlockchainInfo(ctx context.Context) (json.RawMessage, error) {
	return c.Call(ctx, "getblockchaininfo")
}

// GetBlockHeader returns the header as hex, or as an object when verbose.
func (c *Client) GetBlockHeader(ctx context.Context, hash string, verbose bool) (json.RawMessage, error) {
	return c.Call(ctx, "getblockheader", hash, verbose)
}

// GetChainTips returns getchaintips.
func (c *Client) GetChainTips(ctx context.Context) (json.RawMessage, error) {
	return c.Call(ctx, "getchaintips")
}

// GetDifficulty returns the proof-of-work difficulty.
func (c *Client) GetDifficulty(ctx context.Context) (json.RawMessage, error) {
	return c.Call(ctx, "getdifficulty")
}

// GetMempoolInfo returns getmempoolinfo.
func (c *Client) GetMempoolInfo(ctx context.Context) (json.RawMessage, error) {
	return c.Call(ctx, "getmempoolinfo")
}

// GetRawMempool returns mempool txids, or entries keyed by txid when verbose.
func (c *Client) GetRawMempool(ctx context.Context, verbose bool) (json.RawMessage, error) {
	return c.Call(ctx, "getrawmempool", verbose)
}

// MempoolTxIDs returns the txids currently in the mempool.
func (c *Client) MempoolTxIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := c.CallInto(ctx, &ids, "getrawmempool", false)
	return ids, err
}

// GetMempoolEntry returns getmempoolentry for txid.
func (c *Client) GetMempoolEntry(ctx context.Context, txid string) (json.RawMessage, error) {
	return c.Call(ctx, "getmempoolentry", txid)
}

// GetTxOut returns details about an unspent output.
func (c *Client) GetTxOut(ctx context.Context, txid string, n int, includeMempool bool) (json.RawMessage, error) {
	return c.Call(ctx, "gettxout", txid, n, includeMempool)
}

// GetTxOutProof returns a hex merkle proof that txids were included in a block.
func (c *Client) GetTxOutProof(ctx context.Context, txids []string) (json.RawMessage, error) {
	return c.Call(ctx, "gettxoutproof", txids)
}

// VerifyTxOutProof returns the txids a proof commits to.
func (c *Client) VerifyTxOutProof(ctx context.Context, proof string) (json.RawMessage, error) {
	return c.Call(ctx, "verifytxoutproof", proof)
}

// GetInfo returns getinfo.
func (c *Client) GetInfo(ctx context.Context) (json.RawMessage, error) {
	return c.Call(ctx, "getinfo")
}

// GetNetworkInfo returns getnetworkinfo.
func (c *Client) GetNetworkInfo(ctx context.Context) (json.RawMessage, error) {
	return c.Call(ctx, "getnetworkinfo")
}

// GetMiningInfo returns getmininginfo.
func (c *Client) GetMiningInfo(ctx context.Context) (json.RawMessage, error) {
	return c.Call(ctx, "getmininginfo")
}

// GetNetworkHashPS returns the estimated network hash rate.
func (c *Client) GetNetworkHashPS(ctx context.Context, nblocks, height int) (json.RawMessage, error) {
	return c.Call(ctx, "getnetworkhashps", nblocks, height)
}

// DecodeRawTransaction decodes a serialized transaction.
func (c *Client) DecodeRawTransaction(ctx context.Context, hex string) (json.RawMessage, error) {
	return c.Call(ctx, "decoderawtransaction", hex)
}

// GetRawTransaction returns the serialized transaction, or a decoded object when verbose.
func (c *Client) GetRawTransaction(ctx context.Context, txid string, verbose bool) (json.RawMessage, error) {
	v := 0
	if verbose {
		v = 1
	}
	return c.Call(ctx, "getrawtransaction", txid, v)
}

// SendRawTransaction broadcasts a serialized transaction and returns its txid.
func (c *Client) SendRawTransaction(ctx context.Context, hex string) (string, error) {
	var txid string
	err := c.CallInto(ctx, &txid, "sendrawtransaction", hex)
	return txid, err
}

// DecodeScript decodes a hex script.
func (c *Client) DecodeScript(ctx context.Context, hex string) (json.RawMessage, error) {
	return c.Call(ctx, "decodescript", hex)
}

// ValidateAddress returns the node's view of an address.
func (c *Client) ValidateAddress(ctx context.Context, addr string) (json.RawMessage, error) {
	return c.Call(ctx, "validateaddress", addr)
}
