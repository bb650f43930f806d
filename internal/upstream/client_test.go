package upstream_test

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/cashgate/internal/upstream"
)

func TestClient_GetJSON(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/addr/1abc", r.URL.Path)
		assert.Equal(t, "10", r.URL.Query().Get("from"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"balance":1.5}`))
	}))
	defer srv.Close()

	c := upstream.NewClient("insight", &upstream.Options{BaseURL: srv.URL + "/api"})
	assert.Equal(t, srv.URL+"/api/", c.BaseURL())
	assert.Equal(t, "insight", c.Name())

	var out struct {
		Balance float64 `json:"balance"`
	}
	require.NoError(t, c.GetJSON(context.Background(), "addr/1abc", url.Values{"from": {"10"}}, &out))
	assert.InDelta(t, 1.5, out.Balance, 0.0001)
}

func TestClient_PostJSON_BasicAuth(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "rpcuser", user)
		assert.Equal(t, "rpcpass", pass)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		_, _ = w.Write([]byte(`{"result":"ok"}`))
	}))
	defer srv.Close()

	c := upstream.NewClient("rpc", &upstream.Options{
		BaseURL:  srv.URL,
		Username: "rpcuser",
		Password: "rpcpass",
	})

	var out map[string]string
	require.NoError(t, c.PostJSON(context.Background(), "", map[string]string{"method": "getinfo"}, &out))
	assert.Equal(t, "ok", out["result"])
}

func TestClient_StatusErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		status  int
		body    string
		rpc     bool
		message string
	}{
		{"rpc envelope", http.StatusInternalServerError, `{"result":null,"error":{"code":-5,"message":"boom"},"id":"x"}`, true, "boom"},
		{"plain body", http.StatusNotFound, "Not found", false, "Not found"},
		{"error field", http.StatusBadRequest, `{"error":"Invalid address"}`, false, "Invalid address"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := upstream.NewClient("node", &upstream.Options{BaseURL: srv.URL})
			err := c.GetJSON(context.Background(), "x", nil, nil)
			require.Error(t, err)

			if tt.rpc {
				var rpcErr *upstream.RPCError
				require.ErrorAs(t, err, &rpcErr)
			} else {
				var httpErr *upstream.HTTPError
				require.ErrorAs(t, err, &httpErr)
				assert.Equal(t, tt.status, httpErr.Status)
			}
			assert.Equal(t, tt.message, upstream.Decode(err).Message)
		})
	}
}

func TestClient_TransportErrorsDecodeToNetworkError(t *testing.T) {
	t.Parallel()

	transport := httpmock.NewMockTransport()
	transport.RegisterResponder(http.MethodGet, "http://node.invalid/getinfo",
		httpmock.NewErrorResponder(&net.DNSError{Err: "no such host", Name: "node.invalid", IsNotFound: true}))

	c := upstream.NewClient("rpc", &upstream.Options{
		BaseURL:    "http://node.invalid",
		HTTPClient: &http.Client{Transport: transport},
	})

	err := c.GetJSON(context.Background(), "getinfo", nil, nil)
	require.Error(t, err)

	d := upstream.Decode(err)
	assert.Equal(t, http.StatusServiceUnavailable, d.Status)
	assert.Equal(t, upstream.NetworkErrorMessage, d.Message)
	assert.Equal(t, 1, transport.GetTotalCallCount())
}

func TestClient_BadJSON(t *testing.T) {
	t.Parallel()

	transport := httpmock.NewMockTransport()
	transport.RegisterResponder(http.MethodGet, "http://blockbook.test/api/v2/address/x",
		httpmock.NewStringResponder(http.StatusOK, "{not json"))

	c := upstream.NewClient("blockbook", &upstream.Options{
		BaseURL:    "http://blockbook.test/",
		HTTPClient: &http.Client{Transport: transport},
	})

	var out map[string]any
	err := c.GetJSON(context.Background(), "api/v2/address/x", nil, &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decoding blockbook response")
}

func TestClient_ThrottleCanceled(t *testing.T) {
	t.Parallel()

	transport := httpmock.NewMockTransport()
	transport.RegisterResponder(http.MethodGet, "http://slpdb.test/q/x", httpmock.NewStringResponder(http.StatusOK, "{}"))

	th := upstream.NewThrottle(0.001, 1)
	c := upstream.NewClient("slpdb", &upstream.Options{
		BaseURL:    "http://slpdb.test/",
		HTTPClient: &http.Client{Transport: transport},
		Throttle:   th,
	})

	require.NoError(t, c.GetJSON(context.Background(), "q/x", nil, nil))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.Error(t, c.GetJSON(ctx, "q/x", nil, nil))
	assert.Equal(t, 1, transport.GetTotalCallCount())
}
