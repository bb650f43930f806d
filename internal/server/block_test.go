package server

import (
	"net/http"
	"strings"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const blockHash = "000000000000000000d5a3e2bd5b1a1cf8d03b0fb6df1e4df5e1a9a5be2d40e5"

func registerBlock(transport *httpmock.MockTransport) {
	transport.RegisterResponder(http.MethodGet, insightURL+"block/"+blockHash,
		httpmock.NewStringResponder(http.StatusOK, `{"hash":"`+blockHash+`","height":600000}`))
}

func TestBlockDetailsByHash(t *testing.T) {
	t.Parallel()
	s, transport := newTestServer(t, "mainnet")
	registerBlock(transport)

	rec := serve(s, http.MethodGet, "/v2/block/detailsByHash/"+blockHash, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"hash":"`+blockHash+`","height":600000}`, rec.Body.String())

	rec = serve(s, http.MethodPost, "/v2/block/detailsByHash", `{"hashes":["`+blockHash+`","`+blockHash+`"]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Len(t, decode[[]map[string]any](t, rec), 2)
	assert.Equal(t, 3, transport.GetTotalCallCount())

	t.Run("bad hash", func(t *testing.T) {
		calls := transport.GetTotalCallCount()
		rec := serve(s, http.MethodGet, "/v2/block/detailsByHash/abc", "")
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "This is not a hash: abc", errorOf(t, rec))

		rec = serve(s, http.MethodPost, "/v2/block/detailsByHash", `{"hashes":["`+blockHash+`","abc"]}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "This is not a hash: abc", errorOf(t, rec))
		assert.Equal(t, calls, transport.GetTotalCallCount())
	})

	t.Run("not an array", func(t *testing.T) {
		rec := serve(s, http.MethodPost, "/v2/block/detailsByHash", `{"hashes":"`+blockHash+`"}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "hashes needs to be an array. Use GET for single hash.", errorOf(t, rec))
	})

	t.Run("array too large", func(t *testing.T) {
		calls := transport.GetTotalCallCount()
		hashes := make([]string, 21)
		for i := range hashes {
			hashes[i] = `"` + blockHash + `"`
		}
		body := `{"hashes":[` + strings.Join(hashes, ",") + `]}`

		rec := serve(s, http.MethodPost, "/v2/block/detailsByHash", body)
		require.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.Equal(t, "Array too large.", errorOf(t, rec))
		assert.Equal(t, calls, transport.GetTotalCallCount())

		rec = serve(s, http.MethodPost, "/v2/block/detailsByHash", body, withHeader("Authorization", "Bearer "+proKey))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Len(t, decode[[]map[string]any](t, rec), 21)
	})
}

func TestBlockDetailsByHeight(t *testing.T) {
	t.Parallel()
	s, transport := newTestServer(t, "mainnet")
	registerBlock(transport)
	node := registerNode(transport, map[string]string{"getblockhash": `"` + blockHash + `"`})

	rec := serve(s, http.MethodGet, "/v2/block/detailsByHeight/600000", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, blockHash, decode[map[string]any](t, rec)["hash"])
	require.Len(t, node.Calls(), 1)
	assert.Equal(t, []any{float64(600000)}, node.Calls()[0].Params)

	rec = serve(s, http.MethodPost, "/v2/block/detailsByHeight", `{"heights":[600000,"600001",1e6]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Len(t, decode[[]map[string]any](t, rec), 3)

	params := make([]any, 0, 3)
	for _, call := range node.Calls()[1:] {
		params = append(params, call.Params[0])
	}
	assert.ElementsMatch(t, []any{float64(600000), float64(600001), float64(1000000)}, params)

	t.Run("bad height", func(t *testing.T) {
		calls := len(node.Calls())
		for _, target := range []string{"/v2/block/detailsByHeight/abc", "/v2/block/detailsByHeight/-1"} {
			rec := serve(s, http.MethodGet, target, "")
			require.Equal(t, http.StatusBadRequest, rec.Code, target)
			assert.Contains(t, errorOf(t, rec), "This is not a height: ", target)
		}

		rec := serve(s, http.MethodPost, "/v2/block/detailsByHeight", `{"heights":[1,1.5]}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "This is not a height: 1.5", errorOf(t, rec))
		assert.Len(t, node.Calls(), calls)
	})

	t.Run("unknown height", func(t *testing.T) {
		node.errors["getblockhash"] = "Block height out of range"
		t.Cleanup(func() { delete(node.errors, "getblockhash") })

		rec := serve(s, http.MethodGet, "/v2/block/detailsByHeight/99999999", "")
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Block height out of range", errorOf(t, rec))
	})
}
