package server

import (
	"context"
	"fmt"
	"strconv"

	"github.com/labstack/echo/v4"

	gateerr "github.com/mrz1836/cashgate/pkg/errors"
)

func (s *Server) blockRoutes(g *echo.Group) {
	groupRoot(g, "block")

	g.GET("/detailsByHash/:hash", func(c echo.Context) error {
		hash, err := requireHash(c, "hash", "hash")
		if err != nil {
			return s.fail(c, err)
		}
		out, err := s.up.Insight.Block(c.Request().Context(), hash)
		return s.reply(c, out, err)
	})
	g.POST("/detailsByHash", func(c echo.Context) error {
		hashes, err := s.bulkHashes(c, "hashes", "hash")
		if err != nil {
			return s.fail(c, err)
		}
		return replyBulk(s, c, hashes, s.up.Insight.Block)
	})

	g.GET("/detailsByHeight/:height", func(c echo.Context) error {
		raw, err := requireParam(c, "height")
		if err != nil {
			return s.fail(c, err)
		}
		height, err := parseHeight(raw)
		if err != nil {
			return s.fail(c, err)
		}
		out, err := s.blockByHeight(c.Request().Context(), height)
		return s.reply(c, out, err)
	})
	g.POST("/detailsByHeight", func(c echo.Context) error {
		values, err := s.arrayField(c, "heights", "height")
		if err != nil {
			return s.fail(c, err)
		}
		heights := make([]int, len(values))
		for i, v := range values {
			if heights[i], err = parseHeight(v); err != nil {
				return s.fail(c, err)
			}
		}
		return replyBulk(s, c, heights, s.blockByHeight)
	})
}

// blockByHeight resolves height on the node, then reads the block from
// Insight.
func (s *Server) blockByHeight(ctx context.Context, height int) (map[string]any, error) {
	hash, err := s.up.RPC.GetBlockHash(ctx, height)
	if err != nil {
		return nil, err
	}
	return s.up.Insight.Block(ctx, hash)
}

// parseHeight accepts a non-negative integer. Whole JSON numbers such as
// 1e+06 are accepted too.
func parseHeight(v string) (int, error) {
	if n, err := strconv.Atoi(v); err == nil && n >= 0 {
		return n, nil
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 && f <= 1<<31 && f == float64(int(f)) {
		return int(f), nil
	}
	if v == "" {
		return 0, emptyInput("height")
	}
	return 0, gateerr.Input(gateerr.ErrInvalidInput, fmt.Sprintf("This is not a height: %s", v))
}
