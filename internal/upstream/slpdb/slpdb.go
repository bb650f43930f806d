// Package slpdb queries an SLPDB token index.
package slpdb

import (
	"context"

	jsoniter "github.com/json-iterator/go"

	"github.com/mrz1836/cashgate/internal/bulk"
	"github.com/mrz1836/cashgate/internal/upstream"
)

// Name identifies the index in metrics and logs.
const Name = "slpdb"

// DefaultListLimit is the number of tokens returned by Tokens.
const DefaultListLimit = 100

// TokenLookupConcurrency caps the token lookups one balance listing runs at
// once.
const TokenLookupConcurrency = 8

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type tokenDetails struct {
	TokenIDHex            string  `json:"tokenIdHex"`
	VersionType           int     `json:"versionType"`
	Timestamp             string  `json:"timestamp"`
	TimestampUnix         int64   `json:"timestamp_unix"`
	Symbol                string  `json:"symbol"`
	Name                  string  `json:"name"`
	DocumentURI           string  `json:"documentUri"`
	DocumentSHA256Hex     string  `json:"documentSha256Hex"`
	Decimals              int     `json:"decimals"`
	GenesisOrMintQuantity Decimal `json:"genesisOrMintQuantity"`
}

type tokenStats struct {
	BlockCreated              *int64  `json:"block_created"`
	BlockLastActiveMint       *int64  `json:"block_last_active_mint"`
	BlockLastActiveSend       *int64  `json:"block_last_active_send"`
	QtyValidTxnsSinceGenesis  int64   `json:"qty_valid_txns_since_genesis"`
	QtyValidTokenAddresses    int64   `json:"qty_valid_token_addresses"`
	QtyTokenMinted            Decimal `json:"qty_token_minted"`
	QtyTokenBurned            Decimal `json:"qty_token_burned"`
	QtyTokenCirculatingSupply Decimal `json:"qty_token_circulating_supply"`
	MintingBatonStatus        string  `json:"minting_baton_status"`
}

type tokenDoc struct {
	TokenDetails tokenDetails `json:"tokenDetails"`
	TokenStats   tokenStats   `json:"tokenStats"`
}

// Token is the flattened token record returned to callers.
type Token struct {
	ID                  string  `json:"id"`
	Timestamp           string  `json:"timestamp"`
	TimestampUnix       int64   `json:"timestampUnix"`
	Symbol              string  `json:"symbol"`
	Name                string  `json:"name"`
	DocumentURI         string  `json:"documentUri"`
	DocumentHash        string  `json:"documentHash"`
	Decimals            int     `json:"decimals"`
	InitialTokenQty     float64 `json:"initialTokenQty"`
	BlockCreated        *int64  `json:"blockCreated"`
	BlockLastActiveMint *int64  `json:"blockLastActiveMint"`
	BlockLastActiveSend *int64  `json:"blockLastActiveSend"`
	CirculatingSupply   float64 `json:"circulatingSupply"`
	ContainsBaton       bool    `json:"containsBaton"`
	MintingBatonStatus  string  `json:"mintingBatonStatus"`
	TxnsSinceGenesis    int64   `json:"txnsSinceGenesis"`
	VersionType         int     `json:"versionType"`
	TotalBurned         float64 `json:"totalBurned"`
	TotalMinted         float64 `json:"totalMinted"`
	ValidAddresses      int64   `json:"validAddresses"`
}

func (d tokenDoc) token() Token {
	return Token{
		ID:                  d.TokenDetails.TokenIDHex,
		Timestamp:           d.TokenDetails.Timestamp,
		TimestampUnix:       d.TokenDetails.TimestampUnix,
		Symbol:              d.TokenDetails.Symbol,
		Name:                d.TokenDetails.Name,
		DocumentURI:         d.TokenDetails.DocumentURI,
		DocumentHash:        d.TokenDetails.DocumentSHA256Hex,
		Decimals:            d.TokenDetails.Decimals,
		InitialTokenQty:     d.TokenDetails.GenesisOrMintQuantity.Float(),
		BlockCreated:        d.TokenStats.BlockCreated,
		BlockLastActiveMint: d.TokenStats.BlockLastActiveMint,
		BlockLastActiveSend: d.TokenStats.BlockLastActiveSend,
		CirculatingSupply:   d.TokenStats.QtyTokenCirculatingSupply.Float(),
		ContainsBaton:       d.TokenStats.MintingBatonStatus == "ALIVE",
		MintingBatonStatus:  d.TokenStats.MintingBatonStatus,
		TxnsSinceGenesis:    d.TokenStats.QtyValidTxnsSinceGenesis,
		VersionType:         d.TokenDetails.VersionType,
		TotalBurned:         d.TokenStats.QtyTokenBurned.Float(),
		TotalMinted:         d.TokenStats.QtyTokenMinted.Float(),
		ValidAddresses:      d.TokenStats.QtyValidTokenAddresses,
	}
}

// MissingToken is returned in bulk listings for ids SLPDB does not know.
type MissingToken struct {
	ID    string `json:"id"`
	Valid bool   `json:"valid"`
}

// AddressBalance is one token balance held by an address.
type AddressBalance struct {
	TokenID       string  `json:"tokenId"`
	Balance       float64 `json:"balance"`
	BalanceString string  `json:"balanceString"`
	SLPAddress    string  `json:"slpAddress"`
	DecimalCount  int     `json:"decimalCount"`
}

// TokenBalance is the balance of a single token for an address.
type TokenBalance struct {
	TokenID       string  `json:"tokenId"`
	Balance       float64 `json:"balance"`
	BalanceString string  `json:"balanceString"`
}

// HolderBalance is one holder of a token.
type HolderBalance struct {
	TokenID            string  `json:"tokenId"`
	SLPAddress         string  `json:"slpAddress"`
	TokenBalance       float64 `json:"tokenBalance"`
	TokenBalanceString string  `json:"tokenBalanceString"`
}

// Validity reports whether SLPDB considers a transaction a valid SLP transaction.
type Validity struct {
	TxID          string `json:"txid"`
	Valid         bool   `json:"valid"`
	InvalidReason string `json:"invalidReason,omitempty"`
}

type addressDoc struct {
	TokenDetails struct {
		TokenIDHex string `json:"tokenIdHex"`
	} `json:"tokenDetails"`
	TokenBalance Decimal `json:"token_balance"`
	Address      string  `json:"address"`
}

type txDoc struct {
	Tx struct {
		H string `json:"h"`
	} `json:"tx"`
	SLP struct {
		Valid         bool   `json:"valid"`
		InvalidReason string `json:"invalidReason"`
	} `json:"slp"`
}

// Client queries SLPDB.
type Client struct {
	http *upstream.Client
}

// New creates an SLPDB client rooted at opts.BaseURL.
func New(opts *upstream.Options) *Client {
	return &Client{http: upstream.NewClient(Name, opts)}
}

func (c *Client) query(ctx context.Context, qr query, out any) error {
	encoded, err := qr.encode()
	if err != nil {
		return err
	}
	return c.http.GetJSON(ctx, "q/"+encoded, nil, out)
}

// Tokens lists up to limit tokens.
func (c *Client) Tokens(ctx context.Context, limit int) ([]Token, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	var res struct {
		T []tokenDoc `json:"t"`
	}
	err := c.query(ctx, query{V: 3, Q: q{
		DB:      []string{"t"},
		Find:    findQuery{Query: map[string]any{}},
		Project: tokenFields,
		Limit:   limit,
	}}, &res)
	if err != nil {
		return nil, err
	}

	tokens := make([]Token, 0, len(res.T))
	for _, doc := range res.T {
		tokens = append(tokens, doc.token())
	}
	return tokens, nil
}

// Token returns a single token. found is false when SLPDB has no record.
func (c *Client) Token(ctx context.Context, tokenID string) (token Token, found bool, err error) {
	var res struct {
		T []tokenDoc `json:"t"`
	}
	err = c.query(ctx, query{V: 3, Q: q{
		DB:      []string{"t"},
		Find:    findQuery{Query: map[string]any{"tokenDetails.tokenIdHex": tokenID}},
		Project: tokenFields,
		Limit:   1000,
	}}, &res)
	if err != nil || len(res.T) == 0 {
		return Token{}, false, err
	}
	return res.T[0].token(), true, nil
}

// BalancesForAddress returns every token balance held by slpAddr, with the
// decimal count of each token looked up concurrently.
func (c *Client) BalancesForAddress(ctx context.Context, slpAddr string) ([]AddressBalance, error) {
	var res struct {
		A []addressDoc `json:"a"`
	}
	err := c.query(ctx, query{V: 3, Q: q{
		DB: []string{"a"},
		Find: findQuery{Query: map[string]any{
			"address":       slpAddr,
			"token_balance": map[string]any{"$gte": 0},
		}},
		Limit: 10000,
	}}, &res)
	if err != nil {
		return nil, err
	}

	out := make([]AddressBalance, 0, len(res.A))
	for _, doc := range res.A {
		out = append(out, AddressBalance{
			TokenID:       doc.TokenDetails.TokenIDHex,
			Balance:       doc.TokenBalance.Float(),
			BalanceString: doc.TokenBalance.String(),
			SLPAddress:    doc.Address,
		})
	}

	ids := make([]string, 0, len(out))
	seen := make(map[string]struct{}, len(out))
	for i := range out {
		if _, ok := seen[out[i].TokenID]; ok {
			continue
		}
		seen[out[i].TokenID] = struct{}{}
		ids = append(ids, out[i].TokenID)
	}
	decimals, err := bulk.RunLimited(ctx, ids, TokenLookupConcurrency, func(ctx context.Context, id string) (int, error) {
		token, _, err := c.Token(ctx, id)
		return token.Decimals, err
	})
	if err != nil {
		return nil, err
	}

	byID := make(map[string]int, len(ids))
	for i, id := range ids {
		byID[id] = decimals[i]
	}
	for i := range out {
		out[i].DecimalCount = byID[out[i].TokenID]
	}
	return out, nil
}

// BalanceForAddressToken returns the balance of tokenID held by slpAddr,
// zero when none is held.
func (c *Client) BalanceForAddressToken(ctx context.Context, slpAddr, tokenID string) (TokenBalance, error) {
	var res struct {
		A []addressDoc `json:"a"`
	}
	err := c.query(ctx, query{V: 3, Q: q{
		DB: []string{"a"},
		Find: findQuery{Query: map[string]any{
			"address":                 slpAddr,
			"tokenDetails.tokenIdHex": tokenID,
		}},
		Limit: 10,
	}}, &res)
	if err != nil {
		return TokenBalance{}, err
	}

	bal := TokenBalance{TokenID: tokenID, BalanceString: "0"}
	if len(res.A) > 0 {
		bal.Balance = res.A[0].TokenBalance.Float()
		bal.BalanceString = res.A[0].TokenBalance.String()
	}
	return bal, nil
}

// BalancesForToken returns every holder of tokenID.
func (c *Client) BalancesForToken(ctx context.Context, tokenID string) ([]HolderBalance, error) {
	var res struct {
		A []addressDoc `json:"a"`
	}
	err := c.query(ctx, query{V: 3, Q: q{
		DB: []string{"a"},
		Find: findQuery{Query: map[string]any{
			"tokenDetails.tokenIdHex": tokenID,
			"token_balance":           map[string]any{"$gte": 0},
		}},
		Limit: 10000,
	}}, &res)
	if err != nil {
		return nil, err
	}

	out := make([]HolderBalance, 0, len(res.A))
	for _, doc := range res.A {
		out = append(out, HolderBalance{
			TokenID:            tokenID,
			SLPAddress:         doc.Address,
			TokenBalance:       doc.TokenBalance.Float(),
			TokenBalanceString: doc.TokenBalance.String(),
		})
	}
	return out, nil
}

// TxValidity reports SLP validity for each txid, in input order. Unknown
// txids are reported invalid.
func (c *Client) TxValidity(ctx context.Context, txids []string) ([]Validity, error) {
	var res struct {
		C []txDoc `json:"c"`
		U []txDoc `json:"u"`
	}
	err := c.query(ctx, query{V: 3, Q: q{
		DB:   []string{"c", "u"},
		Find: findQuery{Query: map[string]any{"tx.h": map[string]any{"$in": txids}}},
		Project: map[string]any{
			"tx.h": 1, "slp.valid": 1, "slp.invalidReason": 1, "_id": 0,
		},
		Limit: len(txids),
	}}, &res)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]txDoc, len(res.C)+len(res.U))
	for _, doc := range append(res.C, res.U...) {
		seen[doc.Tx.H] = doc
	}

	out := make([]Validity, len(txids))
	for i, txid := range txids {
		out[i] = Validity{TxID: txid}
		if doc, ok := seen[txid]; ok {
			out[i].Valid = doc.SLP.Valid
			out[i].InvalidReason = doc.SLP.InvalidReason
		}
	}
	return out, nil
}

// Transaction returns the SLPDB record of txid. found is false when SLPDB
// has not indexed it.
func (c *Client) Transaction(ctx context.Context, txid string) (doc map[string]any, found bool, err error) {
	var res struct {
		C []map[string]any `json:"c"`
		U []map[string]any `json:"u"`
	}
	err = c.query(ctx, query{V: 3, Q: q{
		DB:    []string{"c", "u"},
		Find:  findQuery{Query: map[string]any{"tx.h": txid}},
		Limit: 1,
	}}, &res)
	if err != nil {
		return nil, false, err
	}
	if all := append(res.C, res.U...); len(all) > 0 {
		return all[0], true, nil
	}
	return nil, false, nil
}

// TransactionsForTokenAddress returns valid SLP transactions of tokenID that
// spend from or pay to cashHash, the prefix-less cash address SLPDB indexes
// inputs and outputs by.
func (c *Client) TransactionsForTokenAddress(ctx context.Context, tokenID, cashHash string) ([]map[string]any, error) {
	var res struct {
		C []map[string]any `json:"c"`
		U []map[string]any `json:"u"`
	}
	err := c.query(ctx, query{V: 3, Q: q{
		DB: []string{"c", "u"},
		Find: findQuery{Query: map[string]any{
			"$and": []any{
				map[string]any{"slp.valid": true},
				map[string]any{"slp.detail.tokenIdHex": tokenID},
			},
			"$or": []any{
				map[string]any{"in.e.a": cashHash},
				map[string]any{"out.e.a": cashHash},
			},
		}},
		Sort:  map[string]any{"blk.i": -1},
		Limit: 100,
	}}, &res)
	if err != nil {
		return nil, err
	}

	out := make([]map[string]any, 0, len(res.C)+len(res.U))
	out = append(out, res.U...)
	out = append(out, res.C...)
	return out, nil
}
