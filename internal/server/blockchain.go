package server

import (
	"context"
	"strconv"

	"github.com/labstack/echo/v4"

	gateerr "github.com/mrz1836/cashgate/pkg/errors"

	"github.com/mrz1836/cashgate/internal/upstream/rpc"
)

func (s *Server) blockchainRoutes(g *echo.Group) {
	node := s.up.RPC
	groupRoot(g, "blockchain")

	g.GET("/getBestBlockHash", func(c echo.Context) error {
		hash, err := node.GetBestBlockHash(c.Request().Context())
		return s.reply(c, hash, err)
	})
	g.GET("/getBlockchainInfo", func(c echo.Context) error {
		out, err := node.GetBlockchainInfo(c.Request().Context())
		return s.reply(c, out, err)
	})
	g.GET("/getBlockCount", func(c echo.Context) error {
		out, err := node.GetBlockCount(c.Request().Context())
		return s.reply(c, out, err)
	})

	g.GET("/getBlockHeader/:hash", func(c echo.Context) error {
		hash, err := requireHash(c, "hash", "hash")
		if err != nil {
			return s.fail(c, err)
		}
		out, err := node.GetBlockHeader(c.Request().Context(), hash, queryBool(c, "verbose"))
		return s.reply(c, out, err)
	})
	g.POST("/getBlockHeader", func(c echo.Context) error {
		hashes, err := s.bulkHashes(c, "hashes", "hash")
		if err != nil {
			return s.fail(c, err)
		}
		verbose := bodyBool(c, "verbose")
		return replyBulk(s, c, hashes, func(ctx context.Context, hash string) (rpc.Result, error) {
			return node.GetBlockHeader(ctx, hash, verbose)
		})
	})

	g.GET("/getChainTips", func(c echo.Context) error {
		out, err := node.GetChainTips(c.Request().Context())
		return s.reply(c, out, err)
	})
	g.GET("/getDifficulty", func(c echo.Context) error {
		out, err := node.GetDifficulty(c.Request().Context())
		return s.reply(c, out, err)
	})
	g.GET("/getMempoolInfo", func(c echo.Context) error {
		out, err := node.GetMempoolInfo(c.Request().Context())
		return s.reply(c, out, err)
	})
	g.GET("/getRawMempool", func(c echo.Context) error {
		out, err := node.GetRawMempool(c.Request().Context(), queryBool(c, "verbose"))
		return s.reply(c, out, err)
	})

	g.GET("/getMempoolEntry/:txid", func(c echo.Context) error {
		txid, err := requireHash(c, "txid", "txid")
		if err != nil {
			return s.fail(c, err)
		}
		out, err := node.GetMempoolEntry(c.Request().Context(), txid)
		return s.reply(c, out, err)
	})
	g.POST("/getMempoolEntry", func(c echo.Context) error {
		txids, err := s.bulkHashes(c, "txids", "txid")
		if err != nil {
			return s.fail(c, err)
		}
		return replyBulk(s, c, txids, node.GetMempoolEntry)
	})

	g.GET("/getTxOut/:txid/:n", func(c echo.Context) error {
		txid, err := requireParam(c, "txid")
		if err != nil {
			return s.fail(c, err)
		}
		nParam, err := requireParam(c, "n")
		if err != nil {
			return s.fail(c, err)
		}
		if err := checkHash(txid, "txid"); err != nil {
			return s.fail(c, err)
		}
		n, err := strconv.Atoi(nParam)
		if err != nil || n < 0 {
			return s.fail(c, gateerr.Input(gateerr.ErrInvalidInput, "n must be a non-negative integer"))
		}
		out, err := node.GetTxOut(c.Request().Context(), txid, n, queryBool(c, "include_mempool"))
		return s.reply(c, out, err)
	})

	g.GET("/getTxOutProof/:txid", func(c echo.Context) error {
		txid, err := requireHash(c, "txid", "txid")
		if err != nil {
			return s.fail(c, err)
		}
		out, err := node.GetTxOutProof(c.Request().Context(), []string{txid})
		return s.reply(c, out, err)
	})
	g.POST("/getTxOutProof", func(c echo.Context) error {
		txids, err := s.bulkHashes(c, "txids", "txid")
		if err != nil {
			return s.fail(c, err)
		}
		return replyBulk(s, c, txids, func(ctx context.Context, txid string) (rpc.Result, error) {
			return node.GetTxOutProof(ctx, []string{txid})
		})
	})

	g.GET("/verifyTxOutProof/:proof", func(c echo.Context) error {
		proof, err := requireParam(c, "proof")
		if err != nil {
			return s.fail(c, err)
		}
		out, err := node.VerifyTxOutProof(c.Request().Context(), proof)
		return s.reply(c, out, err)
	})
	g.POST("/verifyTxOutProof", func(c echo.Context) error {
		proofs, err := s.bulkStrings(c, "proofs", "proof")
		if err != nil {
			return s.fail(c, err)
		}
		return replyBulk(s, c, proofs, node.VerifyTxOutProof)
	})
}

func (s *Server) controlRoutes(g *echo.Group) {
	node := s.up.RPC
	groupRoot(g, "control")

	g.GET("/getInfo", func(c echo.Context) error {
		out, err := node.GetInfo(c.Request().Context())
		return s.reply(c, out, err)
	})
	g.GET("/getNetworkInfo", func(c echo.Context) error {
		out, err := node.GetNetworkInfo(c.Request().Context())
		return s.reply(c, out, err)
	})
}

func (s *Server) miningRoutes(g *echo.Group) {
	node := s.up.RPC
	groupRoot(g, "mining")

	g.GET("/getMiningInfo", func(c echo.Context) error {
		out, err := node.GetMiningInfo(c.Request().Context())
		return s.reply(c, out, err)
	})
	g.GET("/getNetworkHashps", func(c echo.Context) error {
		nblocks := queryInt(c, "nblocks", rpc.DefaultHashPSBlocks)
		height := queryInt(c, "height", rpc.DefaultHashPSHeight)
		out, err := node.GetNetworkHashPS(c.Request().Context(), nblocks, height)
		return s.reply(c, out, err)
	})
}
