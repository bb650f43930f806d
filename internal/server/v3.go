package server

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	gateerr "github.com/mrz1836/cashgate/pkg/errors"

	"github.com/mrz1836/cashgate/internal/address"
	"github.com/mrz1836/cashgate/internal/upstream/cashaccounts"
)

func (s *Server) blockbookRoutes(g *echo.Group) {
	bb := s.up.Blockbook
	groupRoot(g, "address")

	g.GET("/balance/:address", func(c echo.Context) error {
		addr, err := s.singleAddress(c)
		if err != nil {
			return s.fail(c, err)
		}
		out, err := bb.Balance(c.Request().Context(), addr.CashAddress())
		return s.reply(c, out, err)
	})
	g.POST("/balance", func(c echo.Context) error {
		addrs, err := s.bulkAddresses(c, "address")
		if err != nil {
			return s.fail(c, err)
		}
		return replyBulk(s, c, addrs, func(ctx context.Context, addr *address.Address) (map[string]any, error) {
			return bb.Balance(ctx, addr.CashAddress())
		})
	})

	g.GET("/utxos/:address", func(c echo.Context) error {
		addr, err := s.singleAddress(c)
		if err != nil {
			return s.fail(c, err)
		}
		out, err := bb.UTXOs(c.Request().Context(), addr.CashAddress())
		return s.reply(c, out, err)
	})
	g.POST("/utxos", func(c echo.Context) error {
		addrs, err := s.bulkAddresses(c, "address")
		if err != nil {
			return s.fail(c, err)
		}
		return replyBulk(s, c, addrs, func(ctx context.Context, addr *address.Address) ([]map[string]any, error) {
			return bb.UTXOs(ctx, addr.CashAddress())
		})
	})
}

func (s *Server) addressV3Routes(g *echo.Group) {
	groupRoot(g, "address-v3")

	g.POST("/balance", func(c echo.Context) error {
		addrs, err := s.bulkAddresses(c, "")
		if err != nil {
			return s.fail(c, err)
		}
		return replyBulk(s, c, addrs, func(ctx context.Context, addr *address.Address) (map[string]any, error) {
			return s.up.Blockbook.Balance(ctx, addr.CashAddress())
		})
	})
}

func (s *Server) cashAccountsRoutes(g *echo.Group) {
	ca := s.up.CashAccounts
	groupRoot(g, "cashaccount")

	lookup := func(c echo.Context) error {
		h, err := handleParams(c)
		if err != nil {
			return s.fail(c, err)
		}
		out, err := ca.Lookup(c.Request().Context(), h)
		return s.reply(c, out, err)
	}
	g.GET("/lookup/:account/:number", lookup)
	g.GET("/lookup/:account/:number/:collision", lookup)

	g.GET("/check/:account/:number", func(c echo.Context) error {
		h, err := handleParams(c)
		if err != nil {
			return s.fail(c, err)
		}
		out, err := ca.Check(c.Request().Context(), h)
		return s.reply(c, out, err)
	})

	g.GET("/reverselookup/:address", func(c echo.Context) error {
		raw, err := requireParam(c, "address")
		if err != nil {
			return s.fail(c, err)
		}
		addr, err := address.Decode(raw)
		if err != nil {
			return s.fail(c, errNotCashAddress)
		}
		out, err := ca.ReverseLookup(c.Request().Context(), addr.CashAddress())
		return s.reply(c, out, err)
	})
}

var errNotCashAddress = &gateerr.GateError{
	Code:     gateerr.ErrInvalidAddress.Code,
	Message:  "Not a valid BCH address.",
	Status:   http.StatusBadRequest,
	ExitCode: gateerr.ExitInput,
}

// handleParams reads account, number and the optional collision. The
// account may carry the whole handle, in which case number is ignored.
func handleParams(c echo.Context) (cashaccounts.Handle, error) {
	account := param(c, "account")
	if account == "" {
		return cashaccounts.Handle{}, gateerr.Input(gateerr.ErrEmptyInput, "account name can not be empty")
	}
	number := param(c, "number")
	if number == "" {
		return cashaccounts.Handle{}, emptyInput("number")
	}
	return cashaccounts.ParseHandle(account, number, param(c, "collision")), nil
}
