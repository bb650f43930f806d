package server

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/cashgate/internal/config"
)

const (
	nodeURL      = "http://node.test/"
	insightURL   = "http://insight.test/api/"
	blockbookURL = "http://blockbook.test/"
	accountsURL  = "http://accounts.test/"
	slpdbURL     = "http://slpdb.test/"

	mainLegacy = "1BpEi6DfDAUFd7GtittLSdBeYJvcoaVggu"
	mainCash   = "bitcoincash:qpm2qsznhks23z7629mms6s4cwef74vcwvy22gdx6a"
	mainCash2  = "bitcoincash:qqqvv56zepke5k0xeaehlmjtmkv9ly2uzgkxpajdx3"
	testCash   = "bchtest:qzjtnzcvzxx7s0na88yrg3zl28wwvfp97538sgrrmr"
	testLegacy = "mvXwPH74hW2yVTWwDwzsjGoaUAqJvWk7ZJ"

	proKey = "pro-key-1"
	txid   = "d65881582ff2bff36747d7a0d0e273f10281abc8bd5c15df5d72f8f3fa779cde"
)

// newTestServer builds a server whose upstreams all go through one mock
// transport.
func newTestServer(t *testing.T, network string, tweak ...func(*config.Config)) (*Server, *httpmock.MockTransport) {
	t.Helper()

	cfg := config.Defaults()
	cfg.Network = network
	cfg.Upstreams.RPC.URL = nodeURL
	cfg.Upstreams.RPC.Username = "user"
	cfg.Upstreams.RPC.Password = "pass"
	cfg.Upstreams.Insight = insightURL
	cfg.Upstreams.Blockbook = blockbookURL
	cfg.Upstreams.CashAccounts = accountsURL
	cfg.Upstreams.SLPDB = slpdbURL
	cfg.Cache.CashAccountsTTLSeconds = 0
	cfg.Auth.ProKeys = []string{proKey}
	for _, fn := range tweak {
		fn(cfg)
	}

	transport := httpmock.NewMockTransport()
	up := NewUpstreams(cfg, config.NullLogger(), &http.Client{Transport: transport})
	t.Cleanup(up.Close)

	return New(cfg, config.NullLogger(), up, nil), transport
}

type requestOption func(*http.Request)

func withHeader(key, value string) requestOption {
	return func(r *http.Request) {
		r.Header.Set(key, value)
	}
}

// serve runs one request through the full middleware stack.
func serve(s *Server, method, target, body string, opts ...requestOption) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, opt := range opts {
		opt(req)
	}

	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)
	return rec
}

// decode unmarshals a response body.
func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func errorOf(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[map[string]any](t, rec)["error"].(string)
}

type rpcCall struct {
	Method string
	Params []any
}

// fakeNode answers JSON-RPC calls from results keyed by method and records
// every call.
type fakeNode struct {
	mu      sync.Mutex
	calls   []rpcCall
	results map[string]string
	errors  map[string]string
}

func registerNode(transport *httpmock.MockTransport, results map[string]string) *fakeNode {
	node := &fakeNode{results: results, errors: map[string]string{}}
	transport.RegisterResponder(http.MethodPost, nodeURL, node.respond)
	return node
}

func (n *fakeNode) respond(req *http.Request) (*http.Response, error) {
	var call struct {
		Method string `json:"method"`
		Params []any  `json:"params"`
	}
	if err := json.NewDecoder(req.Body).Decode(&call); err != nil {
		return httpmock.NewStringResponse(http.StatusBadRequest, "bad request"), nil
	}

	n.mu.Lock()
	n.calls = append(n.calls, rpcCall{Method: call.Method, Params: call.Params})
	n.mu.Unlock()

	if msg, ok := n.errors[call.Method]; ok {
		return httpmock.NewStringResponse(http.StatusInternalServerError,
			`{"result":null,"error":{"code":-5,"message":"`+msg+`"},"id":"`+call.Method+`"}`), nil
	}
	result, ok := n.results[call.Method]
	if !ok {
		return httpmock.NewStringResponse(http.StatusNotFound,
			`{"result":null,"error":{"code":-32601,"message":"Method not found"},"id":"`+call.Method+`"}`), nil
	}
	return httpmock.NewStringResponse(http.StatusOK,
		`{"result":`+result+`,"error":null,"id":"`+call.Method+`"}`), nil
}

func (n *fakeNode) Calls() []rpcCall {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]rpcCall(nil), n.calls...)
}
