package server

import (
	"context"
	"strings"

	"github.com/labstack/echo/v4"

	gateerr "github.com/mrz1836/cashgate/pkg/errors"

	"github.com/mrz1836/cashgate/internal/address"
	"github.com/mrz1836/cashgate/internal/upstream/slpdb"
)

// convertResponse lists every encoding of one address.
type convertResponse struct {
	SLPAddress    string `json:"slpAddress"`
	CashAddress   string `json:"cashAddress"`
	LegacyAddress string `json:"legacyAddress"`
}

func convert(addr *address.Address) convertResponse {
	return convertResponse{
		SLPAddress:    addr.SLPAddress(),
		CashAddress:   addr.CashAddress(),
		LegacyAddress: addr.Legacy(),
	}
}

var errTxNotFound = gateerr.Input(gateerr.ErrInvalidInput, "TXID not found")

func (s *Server) slpRoutes(g *echo.Group) {
	db := s.up.SLPDB
	groupRoot(g, "slp")

	g.GET("/list", func(c echo.Context) error {
		tokens, err := db.Tokens(c.Request().Context(), slpdb.DefaultListLimit)
		return s.reply(c, tokens, err)
	})
	g.GET("/list/:tokenId", func(c echo.Context) error {
		id, err := requireParam(c, "tokenId")
		if err != nil {
			return s.fail(c, err)
		}
		out, err := s.token(c.Request().Context(), id)
		return s.reply(c, out, err)
	})
	g.POST("/list", func(c echo.Context) error {
		ids, err := s.bulkStrings(c, "tokenIds", "tokenId")
		if err != nil {
			return s.fail(c, err)
		}
		return replyBulk(s, c, ids, s.token)
	})

	g.GET("/balancesForAddress/:address", func(c echo.Context) error {
		addr, err := s.singleAddress(c)
		if err != nil {
			return s.fail(c, err)
		}
		out, err := db.BalancesForAddress(c.Request().Context(), addr.SLPAddress())
		return s.reply(c, out, err)
	})
	g.GET("/balance/:address/:tokenId", func(c echo.Context) error {
		if _, err := requireParam(c, "address"); err != nil {
			return s.fail(c, err)
		}
		id, err := requireParam(c, "tokenId")
		if err != nil {
			return s.fail(c, err)
		}
		addr, err := s.singleAddress(c)
		if err != nil {
			return s.fail(c, err)
		}
		out, err := db.BalanceForAddressToken(c.Request().Context(), addr.SLPAddress(), id)
		return s.reply(c, out, err)
	})
	g.GET("/balancesForToken/:tokenId", func(c echo.Context) error {
		id, err := requireParam(c, "tokenId")
		if err != nil {
			return s.fail(c, err)
		}
		out, err := db.BalancesForToken(c.Request().Context(), id)
		return s.reply(c, out, err)
	})

	g.GET("/convert/:address", func(c echo.Context) error {
		addr, err := s.singleAddress(c)
		if err != nil {
			return s.fail(c, err)
		}
		return s.reply(c, convert(addr), nil)
	})
	g.POST("/convert", func(c echo.Context) error {
		addrs, err := s.bulkAddresses(c, "address")
		if err != nil {
			return s.fail(c, err)
		}
		out := make([]convertResponse, len(addrs))
		for i, addr := range addrs {
			out[i] = convert(addr)
		}
		return s.reply(c, out, nil)
	})

	g.POST("/validateTxid", func(c echo.Context) error {
		txids, err := s.bulkHashes(c, "txids", "txid")
		if err != nil {
			return s.fail(c, err)
		}
		out, err := db.TxValidity(c.Request().Context(), txids)
		return s.reply(c, out, err)
	})

	g.GET("/tokenStats/:tokenId", func(c echo.Context) error {
		id, err := requireParam(c, "tokenId")
		if err != nil {
			return s.fail(c, err)
		}
		out, err := s.token(c.Request().Context(), id)
		return s.reply(c, out, err)
	})

	g.GET("/txDetails/:txid", func(c echo.Context) error {
		txid, err := requireHash(c, "txid", "txid")
		if err != nil {
			return s.fail(c, err)
		}
		out, err := s.slpTransaction(c.Request().Context(), txid)
		return s.reply(c, out, err)
	})

	g.GET("/transactions/:tokenId/:address", func(c echo.Context) error {
		id, err := requireParam(c, "tokenId")
		if err != nil {
			return s.fail(c, err)
		}
		addr, err := s.singleAddress(c)
		if err != nil {
			return s.fail(c, err)
		}
		_, hash, _ := strings.Cut(addr.CashAddress(), ":")
		out, err := db.TransactionsForTokenAddress(c.Request().Context(), id, hash)
		return s.reply(c, out, err)
	})
}

// token returns the formatted token, or {id, valid:false} when SLPDB does
// not know it.
func (s *Server) token(ctx context.Context, id string) (any, error) {
	token, found, err := s.up.SLPDB.Token(ctx, id)
	if err != nil {
		return nil, err
	}
	if !found {
		return slpdb.MissingToken{ID: id, Valid: false}, nil
	}
	return token, nil
}

// slpTransaction combines the Insight view of a transaction with the token
// data SLPDB holds for it.
func (s *Server) slpTransaction(ctx context.Context, txid string) (map[string]any, error) {
	doc, found, err := s.up.SLPDB.Transaction(ctx, txid)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, errTxNotFound
	}

	out, err := s.transactionDetails(ctx, txid)
	if err != nil {
		return nil, err
	}

	if meta, ok := doc["slp"].(map[string]any); ok {
		out["tokenIsValid"] = meta["valid"]
		out["tokenInfo"] = meta["detail"]
		if reason, ok := meta["invalidReason"]; ok {
			out["tokenInvalidReason"] = reason
		}
	}
	return out, nil
}
