package server

import (
	"net"
	"net/http"
	"strings"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/cashgate/internal/upstream"
)

func addressesBody(addrs ...string) string {
	return `{"addresses":["` + strings.Join(addrs, `","`) + `"]}`
}

func TestAddressDetails(t *testing.T) {
	t.Parallel()
	s, transport := newTestServer(t, "mainnet")
	transport.RegisterResponderWithQuery(http.MethodGet, insightURL+"addr/"+mainLegacy, "from=0&to=1000",
		httpmock.NewStringResponder(http.StatusOK, `{"addrStr":"`+mainLegacy+`","balance":0.5,"txApperances":1500}`))

	rec := serve(s, http.MethodGet, "/v2/address/details/"+mainCash, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decode[map[string]any](t, rec)
	assert.NotContains(t, body, "addrStr")
	assert.Equal(t, mainLegacy, body["legacyAddress"])
	assert.Equal(t, mainCash, body["cashAddress"])
	assert.InDelta(t, 0, body["currentPage"], 0)
	assert.InDelta(t, 2, body["pagesTotal"], 0)
	assert.InDelta(t, 0.5, body["balance"], 0)
}

func TestAddressDetails_Page(t *testing.T) {
	t.Parallel()
	s, transport := newTestServer(t, "mainnet")
	transport.RegisterResponderWithQuery(http.MethodGet, insightURL+"addr/"+mainLegacy, "from=2000&to=3000",
		httpmock.NewStringResponder(http.StatusOK, `{"txApperances":10}`))

	rec := serve(s, http.MethodGet, "/v2/address/details/"+mainLegacy+"?page=2", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decode[map[string]any](t, rec)
	assert.InDelta(t, 2, body["currentPage"], 0)
	assert.InDelta(t, 1, body["pagesTotal"], 0)
}

func TestAddress_InvalidInput(t *testing.T) {
	t.Parallel()

	t.Run("undecodable", func(t *testing.T) {
		s, transport := newTestServer(t, "mainnet")
		rec := serve(s, http.MethodGet, "/v2/address/details/notanaddress", "")
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Invalid BCH address. Double check your address is valid: notanaddress", errorOf(t, rec))
		assert.Zero(t, transport.GetTotalCallCount())
	})

	t.Run("mainnet address on testnet", func(t *testing.T) {
		s, transport := newTestServer(t, "testnet")
		rec := serve(s, http.MethodGet, "/v2/address/details/"+mainCash2, "")
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, errorOf(t, rec), "Invalid network")
		assert.Zero(t, transport.GetTotalCallCount())
	})

	t.Run("testnet address on mainnet", func(t *testing.T) {
		s, transport := newTestServer(t, "mainnet")
		rec := serve(s, http.MethodGet, "/v2/address/utxo/"+testCash, "")
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, errorOf(t, rec), "Invalid network")
		assert.Zero(t, transport.GetTotalCallCount())
	})
}

func TestAddressBulk_Arrays(t *testing.T) {
	t.Parallel()

	t.Run("empty array", func(t *testing.T) {
		s, transport := newTestServer(t, "mainnet")
		rec := serve(s, http.MethodPost, "/v2/address/details", `{"addresses":[]}`)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `[]`, rec.Body.String())
		assert.Zero(t, transport.GetTotalCallCount())
	})

	t.Run("not an array", func(t *testing.T) {
		s, _ := newTestServer(t, "mainnet")
		for _, body := range []string{`{"addresses":"` + mainCash + `"}`, `{}`, ``} {
			rec := serve(s, http.MethodPost, "/v2/address/utxo", body)
			require.Equal(t, http.StatusBadRequest, rec.Code, body)
			assert.Equal(t, "addresses needs to be an array. Use GET for single address.", errorOf(t, rec))
		}
	})

	t.Run("malformed json", func(t *testing.T) {
		s, _ := newTestServer(t, "mainnet")
		rec := serve(s, http.MethodPost, "/v2/address/utxo", `{"addresses":`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("too large for free tier", func(t *testing.T) {
		s, transport := newTestServer(t, "mainnet")
		addrs := make([]string, 21)
		for i := range addrs {
			addrs[i] = mainCash
		}

		rec := serve(s, http.MethodPost, "/v2/address/details", addressesBody(addrs...))
		require.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.Equal(t, "Array too large.", errorOf(t, rec))
		assert.Zero(t, transport.GetTotalCallCount())

		transport.RegisterResponder(http.MethodGet, insightURL+"addr/"+mainLegacy,
			httpmock.NewStringResponder(http.StatusOK, `{"txApperances":1}`))
		rec = serve(s, http.MethodPost, "/v2/address/details", addressesBody(addrs...),
			withHeader("Authorization", "Bearer "+proKey))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Len(t, decode[[]map[string]any](t, rec), 21)
	})

	t.Run("one invalid item", func(t *testing.T) {
		s, transport := newTestServer(t, "mainnet")
		rec := serve(s, http.MethodPost, "/v2/address/details", addressesBody(mainCash, "bogus"))
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Invalid BCH address. Double check your address is valid: bogus", errorOf(t, rec))
		assert.Zero(t, transport.GetTotalCallCount())
	})

	t.Run("network mismatch names the item", func(t *testing.T) {
		s, transport := newTestServer(t, "mainnet")
		rec := serve(s, http.MethodPost, "/v2/address/details", addressesBody(mainCash, testCash))
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Invalid network for address "+testCash+
			". Trying to use a testnet address on mainnet, or vice versa.", errorOf(t, rec))
		assert.Zero(t, transport.GetTotalCallCount())
	})
}

func TestAddressBulk_PreservesOrder(t *testing.T) {
	t.Parallel()
	s, transport := newTestServer(t, "mainnet")
	transport.RegisterResponder(http.MethodGet, insightURL+"addr/"+mainLegacy,
		httpmock.NewStringResponder(http.StatusOK, `{"balance":1}`))
	transport.RegisterResponder(http.MethodGet, insightURL+"addr/1156aszHcWHyfbWBaq5hMKoLVmoW7U7Pzx",
		httpmock.NewStringResponder(http.StatusOK, `{"balance":2}`))

	rec := serve(s, http.MethodPost, "/v2/address/details", addressesBody(mainCash2, mainCash, mainCash2))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	out := decode[[]map[string]any](t, rec)
	require.Len(t, out, 3)
	assert.Equal(t, mainCash2, out[0]["cashAddress"])
	assert.Equal(t, mainCash, out[1]["cashAddress"])
	assert.InDelta(t, 2, out[2]["balance"], 0)
}

func TestAddressUTXOs(t *testing.T) {
	t.Parallel()
	s, transport := newTestServer(t, "mainnet")
	transport.RegisterResponder(http.MethodGet, insightURL+"addr/"+mainLegacy+"/utxo",
		httpmock.NewStringResponder(http.StatusOK, `[
			{"address":"`+mainLegacy+`","txid":"a","vout":0,"scriptPubKey":"76a914","confirmations":0},
			{"address":"`+mainLegacy+`","txid":"b","vout":1,"scriptPubKey":"76a914","confirmations":12}
		]`))

	t.Run("all", func(t *testing.T) {
		rec := serve(s, http.MethodGet, "/v2/address/utxo/"+mainCash, "")
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		body := decode[utxoResponse](t, rec)
		assert.Equal(t, "76a914", body.ScriptPubKey)
		assert.Equal(t, mainLegacy, body.LegacyAddress)
		require.Len(t, body.UTXOs, 2)
		assert.NotContains(t, body.UTXOs[0], "address")
		assert.NotContains(t, body.UTXOs[0], "scriptPubKey")
	})

	t.Run("unconfirmed only", func(t *testing.T) {
		rec := serve(s, http.MethodGet, "/v2/address/unconfirmed/"+mainCash, "")
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		body := decode[utxoResponse](t, rec)
		require.Len(t, body.UTXOs, 1)
		assert.Equal(t, "a", body.UTXOs[0]["txid"])
	})
}

func TestAddressUTXOs_WideHashUsesCashAddress(t *testing.T) {
	t.Parallel()
	const wide = "bitcoincash:pvqqzqsrqszsvpcgpy9qkrqdpc83qygjzv2p29shrqv35xcur50p7h2c7ctj5"

	s, transport := newTestServer(t, "mainnet")
	transport.RegisterResponder(http.MethodGet, insightURL+"addr/"+wide+"/utxo",
		httpmock.NewStringResponder(http.StatusOK, `[]`))

	rec := serve(s, http.MethodGet, "/v2/address/utxo/"+wide, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decode[utxoResponse](t, rec)
	assert.Empty(t, body.LegacyAddress)
	assert.Equal(t, wide, body.CashAddress)
	assert.Equal(t, 1, transport.GetTotalCallCount())
}

func TestAddressTransactions(t *testing.T) {
	t.Parallel()
	s, transport := newTestServer(t, "mainnet")
	transport.RegisterResponderWithQuery(http.MethodGet, insightURL+"txs/", "address="+mainLegacy+"&pageNum=1",
		httpmock.NewStringResponder(http.StatusOK, `{"pagesTotal":3,"txs":[]}`))

	rec := serve(s, http.MethodPost, "/v2/address/transactions", `{"addresses":["`+mainCash+`"],"page":1}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	out := decode[[]map[string]any](t, rec)
	require.Len(t, out, 1)
	assert.InDelta(t, 3, out[0]["pagesTotal"], 0)
	assert.InDelta(t, 1, out[0]["currentPage"], 0)
	assert.Equal(t, mainLegacy, out[0]["legacyAddress"])
}

func TestAddress_UpstreamFailures(t *testing.T) {
	t.Parallel()

	t.Run("dns not found", func(t *testing.T) {
		s, transport := newTestServer(t, "mainnet")
		transport.RegisterResponder(http.MethodGet, insightURL+"addr/"+mainLegacy,
			httpmock.NewErrorResponder(&net.DNSError{Err: "no such host", Name: "insight.test", IsNotFound: true}))

		rec := serve(s, http.MethodGet, "/v2/address/details/"+mainCash, "")
		require.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Equal(t, upstream.NetworkErrorMessage, errorOf(t, rec))
	})

	t.Run("upstream status", func(t *testing.T) {
		s, transport := newTestServer(t, "mainnet")
		transport.RegisterResponder(http.MethodGet, insightURL+"addr/"+mainLegacy,
			httpmock.NewStringResponder(http.StatusBadGateway, `{"error":"insight is down"}`))

		rec := serve(s, http.MethodGet, "/v2/address/details/"+mainCash, "")
		require.Equal(t, http.StatusBadGateway, rec.Code)
		assert.Equal(t, "insight is down", errorOf(t, rec))
	})
}
