package server

import (
	"context"

	"github.com/labstack/echo/v4"

	"github.com/mrz1836/cashgate/internal/address"
	"github.com/mrz1836/cashgate/internal/upstream/insight"
)

// utxoResponse is the Insight UTXO set of one address.
type utxoResponse struct {
	UTXOs         []map[string]any `json:"utxos"`
	LegacyAddress string           `json:"legacyAddress"`
	CashAddress   string           `json:"cashAddress"`
	ScriptPubKey  string           `json:"scriptPubKey,omitempty"`
}

func (s *Server) addressRoutes(g *echo.Group) {
	groupRoot(g, "address")

	g.GET("/details/:address", func(c echo.Context) error {
		addr, err := s.singleAddress(c)
		if err != nil {
			return s.fail(c, err)
		}
		out, err := s.addressDetails(c.Request().Context(), addr, queryInt(c, "page", 0))
		return s.reply(c, out, err)
	})
	g.POST("/details", func(c echo.Context) error {
		addrs, err := s.bulkAddresses(c, "address")
		if err != nil {
			return s.fail(c, err)
		}
		page := bodyInt(c, "page", 0)
		return replyBulk(s, c, addrs, func(ctx context.Context, addr *address.Address) (map[string]any, error) {
			return s.addressDetails(ctx, addr, page)
		})
	})

	g.GET("/utxo/:address", func(c echo.Context) error {
		addr, err := s.singleAddress(c)
		if err != nil {
			return s.fail(c, err)
		}
		out, err := s.addressUTXOs(c.Request().Context(), addr, false)
		return s.reply(c, out, err)
	})
	g.POST("/utxo", func(c echo.Context) error {
		addrs, err := s.bulkAddresses(c, "address")
		if err != nil {
			return s.fail(c, err)
		}
		return replyBulk(s, c, addrs, func(ctx context.Context, addr *address.Address) (*utxoResponse, error) {
			return s.addressUTXOs(ctx, addr, false)
		})
	})

	g.GET("/unconfirmed/:address", func(c echo.Context) error {
		addr, err := s.singleAddress(c)
		if err != nil {
			return s.fail(c, err)
		}
		out, err := s.addressUTXOs(c.Request().Context(), addr, true)
		return s.reply(c, out, err)
	})
	g.POST("/unconfirmed", func(c echo.Context) error {
		addrs, err := s.bulkAddresses(c, "address")
		if err != nil {
			return s.fail(c, err)
		}
		return replyBulk(s, c, addrs, func(ctx context.Context, addr *address.Address) (*utxoResponse, error) {
			return s.addressUTXOs(ctx, addr, true)
		})
	})

	g.GET("/transactions/:address", func(c echo.Context) error {
		addr, err := s.singleAddress(c)
		if err != nil {
			return s.fail(c, err)
		}
		out, err := s.addressTransactions(c.Request().Context(), addr, queryInt(c, "page", 0))
		return s.reply(c, out, err)
	})
	g.POST("/transactions", func(c echo.Context) error {
		addrs, err := s.bulkAddresses(c, "address")
		if err != nil {
			return s.fail(c, err)
		}
		page := bodyInt(c, "page", 0)
		return replyBulk(s, c, addrs, func(ctx context.Context, addr *address.Address) (map[string]any, error) {
			return s.addressTransactions(ctx, addr, page)
		})
	})
}

// explorerAddress is the form sent to Insight: legacy when one exists,
// cashaddr otherwise.
func explorerAddress(addr *address.Address) string {
	if legacy := addr.Legacy(); legacy != "" {
		return legacy
	}
	return addr.CashAddress()
}

func (s *Server) addressDetails(ctx context.Context, addr *address.Address, page int) (map[string]any, error) {
	out, err := s.up.Insight.AddressDetails(ctx, explorerAddress(addr), page)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = make(map[string]any)
	}

	delete(out, "addrStr")
	out["legacyAddress"] = addr.Legacy()
	out["cashAddress"] = addr.CashAddress()
	out["currentPage"] = page
	out["pagesTotal"] = insight.PagesTotal(toInt(out["txApperances"], 0))
	return out, nil
}

// addressUTXOs fetches the UTXO set, keeping only mempool outputs when
// unconfirmed is set.
func (s *Server) addressUTXOs(ctx context.Context, addr *address.Address, unconfirmed bool) (*utxoResponse, error) {
	utxos, err := s.up.Insight.AddressUTXOs(ctx, explorerAddress(addr))
	if err != nil {
		return nil, err
	}

	out := &utxoResponse{
		UTXOs:         make([]map[string]any, 0, len(utxos)),
		LegacyAddress: addr.Legacy(),
		CashAddress:   addr.CashAddress(),
	}
	if len(utxos) > 0 {
		if spk, ok := utxos[0]["scriptPubKey"].(string); ok {
			out.ScriptPubKey = spk
		}
	}

	for _, u := range utxos {
		if unconfirmed && toInt(u["confirmations"], -1) != 0 {
			continue
		}
		delete(u, "address")
		delete(u, "scriptPubKey")
		out.UTXOs = append(out.UTXOs, u)
	}
	return out, nil
}

func (s *Server) addressTransactions(ctx context.Context, addr *address.Address, page int) (map[string]any, error) {
	out, err := s.up.Insight.AddressTransactions(ctx, explorerAddress(addr), page)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = make(map[string]any)
	}

	out["legacyAddress"] = addr.Legacy()
	out["cashAddress"] = addr.CashAddress()
	out["currentPage"] = page
	return out, nil
}
