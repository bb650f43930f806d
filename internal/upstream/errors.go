package upstream

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"syscall"

	jsoniter "github.com/json-iterator/go"
)

// NetworkErrorMessage is returned to callers when an upstream host cannot be
// resolved or reached.
const NetworkErrorMessage = "Network error: Could not communicate with full node or other external service."

// TransportKind identifies which transport failure was observed.
type TransportKind string

// Transport failure kinds.
const (
	KindNotFound    TransportKind = "ENOTFOUND"
	KindUnreachable TransportKind = "ENETUNREACH"
)

// Error is the closed set of classified upstream failures: *RPCError,
// *HTTPError, *TransportError and *UnknownError.
type Error interface {
	error
	upstreamError()
}

// RPCError is a JSON-RPC error envelope returned by the full node.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

func (*RPCError) upstreamError() {}

// HTTPError is a non-2xx response without the RPC error shape.
type HTTPError struct {
	Upstream string
	Status   int
	Body     []byte
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s returned status %d: %s", e.Upstream, e.Status, e.Text())
}

func (*HTTPError) upstreamError() {}

// Text renders the body the way callers see it: a JSON string is unquoted,
// a JSON object with a string "error" field yields that field, anything
// else is the trimmed raw body.
func (e *HTTPError) Text() string {
	raw := strings.TrimSpace(string(e.Body))
	if raw == "" {
		return http.StatusText(e.Status)
	}

	var s string
	if err := jsoniter.ConfigCompatibleWithStandardLibrary.UnmarshalFromString(raw, &s); err == nil {
		return s
	}

	var obj struct {
		Error any `json:"error"`
	}
	if err := jsoniter.ConfigCompatibleWithStandardLibrary.UnmarshalFromString(raw, &obj); err == nil {
		if msg, ok := obj.Error.(string); ok && msg != "" {
			return msg
		}
	}

	return raw
}

// TransportError is a DNS or routing failure reaching an upstream.
type TransportError struct {
	Kind TransportKind
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func (*TransportError) upstreamError() {}

// UnknownError is anything the decoder could not interpret.
type UnknownError struct {
	Err error
}

func (e *UnknownError) Error() string {
	if e.Err == nil {
		return "unknown error"
	}
	return e.Err.Error()
}

func (e *UnknownError) Unwrap() error {
	return e.Err
}

func (*UnknownError) upstreamError() {}

// Classify maps err onto one of the Error variants. The first match wins:
// an RPC error with a message, an HTTP error, a DNS not-found failure, an
// unreachable network, and finally Unknown.
func Classify(err error) Error {
	if err == nil {
		return &UnknownError{}
	}

	var rpcErr *RPCError
	if errors.As(err, &rpcErr) && rpcErr.Message != "" {
		return rpcErr
	}

	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr
	}

	var transportErr *TransportError
	if errors.As(err, &transportErr) {
		return transportErr
	}

	text := err.Error()

	var dnsErr *net.DNSError
	if (errors.As(err, &dnsErr) && dnsErr.IsNotFound) || strings.Contains(text, string(KindNotFound)) {
		return &TransportError{Kind: KindNotFound, Err: err}
	}

	if errors.Is(err, syscall.ENETUNREACH) || strings.Contains(text, string(KindUnreachable)) {
		return &TransportError{Kind: KindUnreachable, Err: err}
	}

	return &UnknownError{Err: err}
}

// Decoded is the caller-facing rendering of an upstream failure. OK is false
// when no message could be extracted; callers then echo the raw error.
type Decoded struct {
	Message string
	OK      bool
	Status  int
}

// Decode turns an upstream failure into a message and HTTP status. It never
// panics.
func Decode(err error) (d Decoded) {
	defer func() {
		if r := recover(); r != nil {
			d = Decoded{Status: http.StatusInternalServerError}
		}
	}()

	switch e := Classify(err).(type) {
	case *RPCError:
		return Decoded{Message: e.Message, OK: true, Status: http.StatusBadRequest}
	case *HTTPError:
		status := e.Status
		if status < http.StatusBadRequest {
			status = http.StatusInternalServerError
		}
		return Decoded{Message: e.Text(), OK: true, Status: status}
	case *TransportError:
		return Decoded{Message: NetworkErrorMessage, OK: true, Status: http.StatusServiceUnavailable}
	default:
		return Decoded{Status: http.StatusInternalServerError}
	}
}
