package server

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/mrz1836/cashgate/internal/metrics"
	"github.com/mrz1836/cashgate/internal/policy"
	"github.com/mrz1836/cashgate/internal/ratelimit"
)

// Rate-limit response headers.
const (
	headerLimit     = "X-RateLimit-Limit"
	headerRemaining = "X-RateLimit-Remaining"
	headerReset     = "X-RateLimit-Reset"
)

// requestLogger writes one structured line per request and records request
// metrics.
func (s *Server) requestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			req := c.Request()
			res := c.Response()
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			metrics.Global.RecordRequest(route, res.Status)

			level := zerolog.DebugLevel
			switch {
			case res.Status >= http.StatusInternalServerError:
				level = zerolog.ErrorLevel
			case res.Status >= http.StatusBadRequest:
				level = zerolog.InfoLevel
			}

			zl := s.logger.Zerolog()
			zl.WithLevel(level).
				Str("request_id", res.Header().Get(echo.HeaderXRequestID)).
				Str("method", req.Method).
				Str("uri", req.RequestURI).
				Str("route", route).
				Str("remote", c.RealIP()).
				Str("tier", policy.TierFrom(req.Context()).String()).
				Int("status", res.Status).
				Int64("bytes", res.Size).
				Dur("duration", time.Since(start)).
				Msg("http request")

			return nil
		}
	}
}

// tier resolves the caller tier from the Authorization header. Known pro
// keys are accepted bare, as a bearer token, or as the password of Basic
// credentials.
func (s *Server) tier() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			t := policy.Free
			if key := apiKey(c.Request()); key != "" {
				if _, ok := s.proKeys[key]; ok {
					t = policy.Pro
				}
			}
			req := c.Request()
			c.SetRequest(req.WithContext(policy.WithTier(req.Context(), t)))
			return next(c)
		}
	}
}

func apiKey(r *http.Request) string {
	if _, pass, ok := r.BasicAuth(); ok {
		return strings.TrimSpace(pass)
	}

	auth := strings.TrimSpace(r.Header.Get(echo.HeaderAuthorization))
	if len(auth) > 6 && strings.EqualFold(auth[:6], "basic ") {
		return ""
	}
	if len(auth) > 7 && strings.EqualFold(auth[:7], "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return auth
}

// rateLimit counts each request against its route class and tier, and
// rejects callers over the window ceiling with 429.
func (s *Server) rateLimit() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			t := policy.TierFrom(c.Request().Context())
			key := ratelimit.Key{
				Class: c.Request().Method + " " + c.Path(),
				Tier:  t,
			}
			if s.cfg.Limits.PerClient {
				key.Client = c.RealIP()
			}

			d := s.limiter.Allow(key)
			h := c.Response().Header()
			h.Set(headerLimit, strconv.Itoa(d.Limit))
			h.Set(headerRemaining, strconv.Itoa(d.Remaining))
			h.Set(headerReset, strconv.FormatInt(d.ResetAt.Unix(), 10))

			if !d.Allowed {
				metrics.Global.RecordRateLimited(t.String())
				return c.JSON(http.StatusTooManyRequests, errorBody{Error: s.limiter.Message()})
			}
			return next(c)
		}
	}
}
