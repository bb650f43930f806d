package server

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
	jsoniter "github.com/json-iterator/go"
	"github.com/labstack/echo/v4"

	gateerr "github.com/mrz1836/cashgate/pkg/errors"

	"github.com/mrz1836/cashgate/internal/upstream"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// maxSuggestionDistance bounds how far a mistyped path may be from a route
// before no suggestion is offered.
const maxSuggestionDistance = 4

// jsonSerializer is echo's JSON codec backed by jsoniter.
type jsonSerializer struct{}

func (jsonSerializer) Serialize(c echo.Context, i any, indent string) error {
	enc := json.NewEncoder(c.Response())
	if indent != "" {
		enc.SetIndent("", indent)
	}
	return enc.Encode(i)
}

func (jsonSerializer) Deserialize(c echo.Context, i any) error {
	if err := json.NewDecoder(c.Request().Body).Decode(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Unable to parse JSON body").SetInternal(err)
	}
	return nil
}

// errorBody is the payload of every handler failure.
type errorBody struct {
	Error string `json:"error"`
}

// statusError is the payload for failures raised outside handlers, such as
// unknown routes.
type statusError struct {
	Status     int    `json:"status"`
	Message    string `json:"message"`
	Suggestion string `json:"suggestion,omitempty"`
}

// fail renders err. Caller-facing errors carry their own status; anything
// else goes through the upstream decoder, falling back to a 500 with the raw
// error text.
func (s *Server) fail(c echo.Context, err error) error {
	var ge *gateerr.GateError
	if errors.As(err, &ge) {
		return c.JSON(gateerr.HTTPStatus(ge), errorBody{Error: ge.Message})
	}

	decoded := upstream.Decode(err)
	if decoded.OK {
		if decoded.Status >= http.StatusInternalServerError {
			s.logger.Warn("%s %s: %v", c.Request().Method, c.Path(), err)
		}
		return c.JSON(decoded.Status, errorBody{Error: decoded.Message})
	}

	s.logger.Error("%s %s: %v", c.Request().Method, c.Path(), err)
	return c.JSON(http.StatusInternalServerError, errorBody{Error: err.Error()})
}

func (s *Server) errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	message := http.StatusText(code)

	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		message = fmt.Sprint(he.Message)
	} else {
		s.logger.Error("unhandled error on %s: %v", c.Request().URL.Path, err)
	}

	body := statusError{Status: code, Message: message}
	if code == http.StatusNotFound {
		body.Message = "Not Found"
		body.Suggestion = s.suggest(c.Request().URL.Path)
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = c.JSON(code, body)
	}
	if err != nil {
		s.logger.Error("writing error response: %v", err)
	}
}

// suggest returns the registered route closest to path, or "" when nothing
// is close enough.
func (s *Server) suggest(path string) string {
	path = strings.TrimSuffix(path, "/")
	if path == "" {
		return ""
	}

	type candidate struct {
		route    string
		distance int
	}
	var best []candidate
	for _, route := range s.routes {
		if strings.Contains(route, "*") {
			continue
		}
		d := levenshtein.ComputeDistance(strings.ToLower(path), strings.ToLower(route))
		if d <= maxSuggestionDistance {
			best = append(best, candidate{route: route, distance: d})
		}
	}
	if len(best) == 0 {
		return ""
	}

	sort.SliceStable(best, func(i, j int) bool {
		if best[i].distance != best[j].distance {
			return best[i].distance < best[j].distance
		}
		return best[i].route < best[j].route
	})
	return best[0].route
}
