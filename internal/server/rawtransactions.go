package server

import (
	"context"

	"github.com/labstack/echo/v4"

	"github.com/mrz1836/cashgate/internal/upstream/rpc"
)

func (s *Server) rawTransactionRoutes(g *echo.Group) {
	node := s.up.RPC
	groupRoot(g, "rawtransactions")

	g.GET("/decodeRawTransaction/:hex", func(c echo.Context) error {
		hex, err := requireParam(c, "hex")
		if err != nil {
			return s.fail(c, err)
		}
		out, err := node.DecodeRawTransaction(c.Request().Context(), hex)
		return s.reply(c, out, err)
	})
	g.POST("/decodeRawTransaction", func(c echo.Context) error {
		hexes, err := s.bulkStrings(c, "hexes", "hex")
		if err != nil {
			return s.fail(c, err)
		}
		return replyBulk(s, c, hexes, node.DecodeRawTransaction)
	})

	g.GET("/getRawTransaction/:txid", func(c echo.Context) error {
		txid, err := requireHash(c, "txid", "txid")
		if err != nil {
			return s.fail(c, err)
		}
		out, err := node.GetRawTransaction(c.Request().Context(), txid, queryBool(c, "verbose"))
		return s.reply(c, out, err)
	})
	g.POST("/getRawTransaction", func(c echo.Context) error {
		txids, err := s.bulkHashes(c, "txids", "txid")
		if err != nil {
			return s.fail(c, err)
		}
		verbose := bodyBool(c, "verbose")
		return replyBulk(s, c, txids, func(ctx context.Context, txid string) (rpc.Result, error) {
			return node.GetRawTransaction(ctx, txid, verbose)
		})
	})

	g.GET("/sendRawTransaction/:hex", func(c echo.Context) error {
		hex, err := requireParam(c, "hex")
		if err != nil {
			return s.fail(c, err)
		}
		txid, err := node.SendRawTransaction(c.Request().Context(), hex)
		return s.reply(c, txid, err)
	})
	g.POST("/sendRawTransaction", func(c echo.Context) error {
		hexes, err := s.bulkStrings(c, "hexes", "hex")
		if err != nil {
			return s.fail(c, err)
		}

		// Sent one at a time so a child never reaches the node before its parent.
		txids := make([]string, 0, len(hexes))
		for _, hex := range hexes {
			txid, err := node.SendRawTransaction(c.Request().Context(), hex)
			if err != nil {
				return s.fail(c, err)
			}
			txids = append(txids, txid)
		}
		return s.reply(c, txids, nil)
	})

	g.GET("/decodeScript/:hex", func(c echo.Context) error {
		hex, err := requireParam(c, "hex")
		if err != nil {
			return s.fail(c, err)
		}
		out, err := node.DecodeScript(c.Request().Context(), hex)
		return s.reply(c, out, err)
	})
	g.POST("/decodeScript", func(c echo.Context) error {
		hexes, err := s.bulkStrings(c, "hexes", "hex")
		if err != nil {
			return s.fail(c, err)
		}
		return replyBulk(s, c, hexes, node.DecodeScript)
	})
}

func (s *Server) utilRoutes(g *echo.Group) {
	node := s.up.RPC
	groupRoot(g, "util")

	g.GET("/validateAddress/:address", func(c echo.Context) error {
		addr, err := s.singleAddress(c)
		if err != nil {
			return s.fail(c, err)
		}
		out, err := node.ValidateAddress(c.Request().Context(), addr.CashAddress())
		return s.reply(c, out, err)
	})
	g.POST("/validateAddress", func(c echo.Context) error {
		addrs, err := s.bulkAddresses(c, "address")
		if err != nil {
			return s.fail(c, err)
		}
		cash := make([]string, len(addrs))
		for i, a := range addrs {
			cash[i] = a.CashAddress()
		}
		return replyBulk(s, c, cash, node.ValidateAddress)
	})
}
