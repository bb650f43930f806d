package server

import (
	"context"

	"github.com/labstack/echo/v4"

	"github.com/mrz1836/cashgate/internal/address"
)

func (s *Server) transactionRoutes(g *echo.Group) {
	groupRoot(g, "transaction")

	g.GET("/details/:txid", func(c echo.Context) error {
		txid, err := requireHash(c, "txid", "txid")
		if err != nil {
			return s.fail(c, err)
		}
		out, err := s.transactionDetails(c.Request().Context(), txid)
		return s.reply(c, out, err)
	})
	g.POST("/details", func(c echo.Context) error {
		txids, err := s.bulkHashes(c, "txids", "txid")
		if err != nil {
			return s.fail(c, err)
		}
		return replyBulk(s, c, txids, s.transactionDetails)
	})
}

// transactionDetails fetches a transaction from Insight and adds both
// address encodings to its inputs and outputs.
func (s *Server) transactionDetails(ctx context.Context, txid string) (map[string]any, error) {
	tx, err := s.up.Insight.Transaction(ctx, txid)
	if err != nil {
		return nil, err
	}
	if tx == nil {
		return map[string]any{}, nil
	}

	if vin, ok := tx["vin"].([]any); ok {
		for _, v := range vin {
			in, ok := v.(map[string]any)
			if !ok {
				continue
			}
			if raw, ok := in["addr"].(string); ok {
				if addr, err := address.Decode(raw); err == nil {
					in["legacyAddress"] = addr.Legacy()
					in["cashAddress"] = addr.CashAddress()
				}
			}
		}
	}

	if vout, ok := tx["vout"].([]any); ok {
		for _, v := range vout {
			out, ok := v.(map[string]any)
			if !ok {
				continue
			}
			spk, ok := out["scriptPubKey"].(map[string]any)
			if !ok {
				continue
			}
			addrs, ok := spk["addresses"].([]any)
			if !ok {
				continue
			}
			cash := make([]string, 0, len(addrs))
			for _, a := range addrs {
				raw, _ := a.(string)
				if addr, err := address.Decode(raw); err == nil {
					cash = append(cash, addr.CashAddress())
					if len(addrs) == 1 {
						out["legacyAddress"] = addr.Legacy()
						out["cashAddress"] = addr.CashAddress()
					}
				}
			}
			spk["cashAddrs"] = cash
		}
	}

	return tx, nil
}
