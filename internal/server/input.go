package server

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/labstack/echo/v4"

	gateerr "github.com/mrz1836/cashgate/pkg/errors"

	"github.com/mrz1836/cashgate/internal/address"
	"github.com/mrz1836/cashgate/internal/bulk"
	"github.com/mrz1836/cashgate/internal/policy"
)

const bodyKey = "cashgate.body"

var hash64 = regexp.MustCompile(`^[0-9a-fA-F]{64}$`)

// param returns the unescaped path parameter.
func param(c echo.Context, name string) string {
	v := c.Param(name)
	if unescaped, err := url.PathUnescape(v); err == nil {
		v = unescaped
	}
	return strings.TrimSpace(v)
}

// requireParam returns a non-empty path parameter.
func requireParam(c echo.Context, name string) (string, error) {
	v := param(c, name)
	if v == "" {
		return "", emptyInput(name)
	}
	return v, nil
}

func emptyInput(name string) error {
	return gateerr.Input(gateerr.ErrEmptyInput, name+" can not be empty")
}

// requireHash returns a path parameter that must be a 64 character hex id.
func requireHash(c echo.Context, name, kind string) (string, error) {
	v, err := requireParam(c, name)
	if err != nil {
		return "", err
	}
	if err := checkHash(v, kind); err != nil {
		return "", err
	}
	return v, nil
}

func checkHash(v, kind string) error {
	if !hash64.MatchString(v) {
		return gateerr.Input(gateerr.ErrInvalidInput, fmt.Sprintf("This is not a %s: %s", kind, v))
	}
	return nil
}

// requestBody decodes the JSON body once per request.
func requestBody(c echo.Context) (map[string]jsoniter.RawMessage, error) {
	if b, ok := c.Get(bodyKey).(map[string]jsoniter.RawMessage); ok {
		return b, nil
	}

	b := make(map[string]jsoniter.RawMessage)
	if c.Request().Body != nil && c.Request().Body != http.NoBody {
		if err := c.Echo().JSONSerializer.Deserialize(c, &b); err != nil && !errors.Is(err, io.EOF) {
			return nil, gateerr.Input(gateerr.ErrInvalidInput, "Unable to parse JSON body")
		}
	}
	c.Set(bodyKey, b)
	return b, nil
}

// arrayField reads a bulk input array from the body and enforces the tier
// ceiling before anything else runs. item names a single element in the
// rejection message; empty omits the GET hint.
func (s *Server) arrayField(c echo.Context, name, item string) ([]string, error) {
	b, err := requestBody(c)
	if err != nil {
		return nil, err
	}

	var values []any
	raw, ok := b[name]
	if !ok || !isArray(raw) || json.Unmarshal(raw, &values) != nil {
		msg := name + " needs to be an array."
		if item != "" {
			msg = fmt.Sprintf("%s needs to be an array. Use GET for single %s.", name, item)
		}
		return nil, gateerr.Input(gateerr.ErrNotArray, msg)
	}

	if !s.policy.IsAllowed(len(values), policy.TierFrom(c.Request().Context())) {
		return nil, gateerr.ErrArrayTooLarge
	}

	out := make([]string, len(values))
	for i, v := range values {
		if str, isString := v.(string); isString {
			out[i] = strings.TrimSpace(str)
		} else {
			out[i] = fmt.Sprint(v)
		}
	}
	return out, nil
}

func isArray(raw []byte) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '['
}

// bulkHashes reads an array of 64 character hex ids.
func (s *Server) bulkHashes(c echo.Context, name, kind string) ([]string, error) {
	values, err := s.arrayField(c, name, kind)
	if err != nil {
		return nil, err
	}
	for _, v := range values {
		if err := checkHash(v, kind); err != nil {
			return nil, err
		}
	}
	return values, nil
}

// bulkStrings reads an array of non-empty strings.
func (s *Server) bulkStrings(c echo.Context, name, kind string) ([]string, error) {
	values, err := s.arrayField(c, name, kind)
	if err != nil {
		return nil, err
	}
	for _, v := range values {
		if v == "" {
			return nil, emptyInput(kind)
		}
	}
	return values, nil
}

// bodyInt reads an optional integer body field.
func bodyInt(c echo.Context, name string, fallback int) int {
	b, err := requestBody(c)
	if err != nil {
		return fallback
	}
	raw, ok := b[name]
	if !ok {
		return fallback
	}

	var v any
	if json.Unmarshal(raw, &v) != nil {
		return fallback
	}
	return toInt(v, fallback)
}

// bodyBool reads an optional boolean body field. "true" and 1 count as true.
func bodyBool(c echo.Context, name string) bool {
	b, err := requestBody(c)
	if err != nil {
		return false
	}
	var v any
	if raw, ok := b[name]; !ok || json.Unmarshal(raw, &v) != nil {
		return false
	}
	return truthy(v)
}

// queryInt reads an optional integer query parameter.
func queryInt(c echo.Context, name string, fallback int) int {
	if v := c.QueryParam(name); v != "" {
		return toInt(v, fallback)
	}
	return fallback
}

// queryBool reads an optional boolean query parameter.
func queryBool(c echo.Context, name string) bool {
	return truthy(c.QueryParam(name))
}

func truthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		return strings.EqualFold(t, "true") || t == "1"
	default:
		return false
	}
}

func toInt(v any, fallback int) int {
	switch t := v.(type) {
	case float64:
		return int(t)
	case int:
		return t
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil {
			return fallback
		}
		return n
	default:
		return fallback
	}
}

func invalidAddress(raw string) error {
	return gateerr.Input(gateerr.ErrInvalidAddress, "Invalid BCH address. Double check your address is valid: "+raw)
}

// singleAddress validates the :address parameter of a GET route.
func (s *Server) singleAddress(c echo.Context) (*address.Address, error) {
	raw, err := requireParam(c, "address")
	if err != nil {
		return nil, err
	}

	addr, err := address.Decode(raw)
	if err != nil {
		return nil, invalidAddress(raw)
	}
	if !address.NetworkMatches(raw, s.network) {
		return nil, gateerr.ErrInvalidNetwork
	}
	return addr, nil
}

// bulkAddresses validates the addresses array of a POST route. Every item
// is checked before any upstream call is made.
func (s *Server) bulkAddresses(c echo.Context, item string) ([]*address.Address, error) {
	values, err := s.arrayField(c, "addresses", item)
	if err != nil {
		return nil, err
	}

	addrs := make([]*address.Address, len(values))
	for i, raw := range values {
		addr, err := address.Decode(raw)
		if err != nil {
			return nil, invalidAddress(raw)
		}
		if !address.NetworkMatches(raw, s.network) {
			return nil, gateerr.Input(gateerr.ErrInvalidNetwork, fmt.Sprintf(
				"Invalid network for address %s. Trying to use a testnet address on mainnet, or vice versa.", raw))
		}
		addrs[i] = addr
	}
	return addrs, nil
}

// reply renders a single upstream result.
func (s *Server) reply(c echo.Context, v any, err error) error {
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, v)
}

// replyBulk fans fn out over items and renders the results in input order.
func replyBulk[In, Out any](s *Server, c echo.Context, items []In, fn bulk.Func[In, Out]) error {
	out, err := bulk.Run(c.Request().Context(), items, fn)
	return s.reply(c, out, err)
}
