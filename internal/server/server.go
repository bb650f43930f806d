// Package server exposes the gateway's REST surface over echo.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/mrz1836/cashgate/internal/address"
	"github.com/mrz1836/cashgate/internal/config"
	"github.com/mrz1836/cashgate/internal/feed"
	"github.com/mrz1836/cashgate/internal/metrics"
	"github.com/mrz1836/cashgate/internal/policy"
	"github.com/mrz1836/cashgate/internal/ratelimit"
	"github.com/mrz1836/cashgate/internal/upstream"
	"github.com/mrz1836/cashgate/internal/upstream/blockbook"
	"github.com/mrz1836/cashgate/internal/upstream/cashaccounts"
	"github.com/mrz1836/cashgate/internal/upstream/insight"
	"github.com/mrz1836/cashgate/internal/upstream/rpc"
	"github.com/mrz1836/cashgate/internal/upstream/slpdb"
)

// Upstreams bundles the external services the routes call.
type Upstreams struct {
	RPC          *rpc.Client
	Insight      *insight.Client
	Blockbook    *blockbook.Client
	CashAccounts *cashaccounts.Client
	SLPDB        *slpdb.Client
}

// NewUpstreams builds every upstream client from cfg. The clients share one
// outbound throttle.
func NewUpstreams(cfg *config.Config, logger *config.Logger, doer upstream.Doer) *Upstreams {
	if logger == nil {
		logger = config.NullLogger()
	}
	throttle := upstream.NewThrottle(cfg.Upstreams.RatePerSecond, cfg.Upstreams.Burst)

	opts := func(baseURL string) upstream.Options {
		return upstream.Options{
			BaseURL:    config.BaseURL(baseURL),
			Timeout:    cfg.UpstreamTimeout(),
			HTTPClient: doer,
			Throttle:   throttle,
			Logger:     logger,
		}
	}

	rpcOpts := opts(cfg.Upstreams.RPC.URL)
	rpcOpts.Username = cfg.Upstreams.RPC.Username
	rpcOpts.Password = cfg.Upstreams.RPC.Password

	insightOpts := opts(cfg.Upstreams.Insight)
	blockbookOpts := opts(cfg.Upstreams.Blockbook)
	slpdbOpts := opts(cfg.Upstreams.SLPDB)

	return &Upstreams{
		RPC:       rpc.New(&rpcOpts),
		Insight:   insight.New(&insightOpts),
		Blockbook: blockbook.New(&blockbookOpts),
		CashAccounts: cashaccounts.New(&cashaccounts.Options{
			Options:  opts(cfg.Upstreams.CashAccounts),
			TTL:      cfg.CashAccountsTTL(),
			Capacity: uint64(max(cfg.Cache.Capacity, 0)), // #nosec G115 -- clamped above zero
		}),
		SLPDB: slpdb.New(&slpdbOpts),
	}
}

// Close releases background resources held by the clients.
func (u *Upstreams) Close() {
	if u.CashAccounts != nil {
		u.CashAccounts.Close()
	}
}

// Server is the HTTP gateway.
type Server struct {
	cfg      *config.Config
	logger   *config.Logger
	up       *Upstreams
	e        *echo.Echo
	network  address.Network
	policy   policy.Policy
	limiter  *ratelimit.Limiter
	proKeys  map[string]struct{}
	hub      *feed.Hub
	routes   []string
	started  time.Time
	shutdown context.CancelFunc
}

// New creates a server and registers every route. hub may be nil, in which
// case /v2/feed is not mounted.
func New(cfg *config.Config, logger *config.Logger, up *Upstreams, hub *feed.Hub) *Server {
	if logger == nil {
		logger = config.NullLogger()
	}

	s := &Server{
		cfg:     cfg,
		logger:  logger,
		up:      up,
		network: cfg.GetNetwork(),
		policy:  policy.Policy{Free: cfg.Limits.FreeArraySize, Pro: cfg.Limits.ProArraySize},
		limiter: ratelimit.New(ratelimit.Config{
			Window:    cfg.RateWindow(),
			FreeLimit: cfg.Limits.FreePerWindow,
			ProLimit:  cfg.Limits.ProPerWindow,
		}),
		proKeys: make(map[string]struct{}, len(cfg.Auth.ProKeys)),
		hub:     hub,
		started: time.Now(),
	}
	for _, key := range cfg.Auth.ProKeys {
		if key != "" {
			s.proKeys[key] = struct{}{}
		}
	}

	address.SetWarnFunc(logger.Warn)

	e := echo.New()
	e.Debug = cfg.Server.Debug
	e.HideBanner = true
	e.HidePort = true
	e.JSONSerializer = jsonSerializer{}
	e.HTTPErrorHandler = s.errorHandler
	e.IPExtractor = echo.ExtractIPFromXFFHeader()
	e.Server.ReadTimeout = cfg.ServerTimeout()
	e.Server.WriteTimeout = cfg.ServerTimeout()

	e.Use(middleware.Recover())
	if cfg.Server.BodyLimit != "" {
		e.Use(middleware.BodyLimit(cfg.Server.BodyLimit))
	}
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOriginFunc: func(string) (bool, error) {
			return true, nil
		},
		AllowMethods:  []string{http.MethodGet, http.MethodHead, http.MethodPost, http.MethodOptions},
		AllowHeaders:  []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		ExposeHeaders: []string{echo.HeaderXRequestID, headerLimit, headerRemaining, headerReset},
		MaxAge:        86400,
	}))
	if cfg.Server.Gzip {
		e.Use(middleware.GzipWithConfig(middleware.GzipConfig{
			Skipper: func(c echo.Context) bool {
				return c.Path() == "/v2/feed"
			},
		}))
	}
	e.Use(s.requestLogger())
	e.Use(s.tier())

	s.e = e
	s.registerRoutes()

	return s
}

// Echo returns the underlying router, mostly for tests.
func (s *Server) Echo() *echo.Echo {
	return s.e
}

// Limiter returns the request rate limiter.
func (s *Server) Limiter() *ratelimit.Limiter {
	return s.limiter
}

func (s *Server) registerRoutes() {
	e := s.e

	e.GET("/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, status("cashgate"))
	})
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))

	v2 := e.Group("/v2", s.rateLimit())
	v2.GET("/health-check", func(c echo.Context) error {
		return c.JSON(http.StatusOK, status("winning v2"))
	})
	if s.hub != nil {
		v2.GET("/feed", s.hub.Handler())
	}

	s.addressRoutes(v2.Group("/address"))
	s.blockRoutes(v2.Group("/block"))
	s.blockchainRoutes(v2.Group("/blockchain"))
	s.controlRoutes(v2.Group("/control"))
	s.miningRoutes(v2.Group("/mining"))
	groupRoot(v2.Group("/network"), "network")
	groupRoot(v2.Group("/generating"), "generating")
	s.rawTransactionRoutes(v2.Group("/rawtransactions"))
	s.transactionRoutes(v2.Group("/transaction"))
	s.utilRoutes(v2.Group("/util"))
	s.slpRoutes(v2.Group("/slp"))

	v3 := e.Group("/v3", s.rateLimit())
	s.blockbookRoutes(v3.Group("/blockbook"))
	s.addressV3Routes(v3.Group("/address"))
	s.cashAccountsRoutes(v3.Group("/cashaccounts"))

	// Groups with middleware register catch-all not-found routes that must
	// never be offered as suggestions.
	for _, r := range e.Routes() {
		if r.Method == echo.RouteNotFound {
			continue
		}
		s.routes = append(s.routes, r.Path)
	}
}

// Start listens on the configured port until ctx is canceled, then drains
// in-flight requests.
func (s *Server) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	s.shutdown = cancel

	addr := fmt.Sprintf(":%d", s.cfg.Server.Port)
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("cashgate listening on %s (network %s)", addr, s.network)
		errCh <- s.e.Start(addr)
	}()

	go s.sweep(ctx)

	select {
	case err := <-errCh:
		cancel()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, done := context.WithTimeout(context.Background(), s.cfg.ServerTimeout())
	defer done()
	s.logger.Info("shutting down")
	if err := s.e.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

// Stop asks a running Start to return.
func (s *Server) Stop() {
	if s.shutdown != nil {
		s.shutdown()
	}
}

// sweep drops expired rate-limit windows once per window.
func (s *Server) sweep(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RateWindow())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.limiter.Sweep(); n > 0 {
				s.logger.Debug("rate limiter: swept %d windows", n)
			}
		}
	}
}

type statusBody struct {
	Status string `json:"status"`
}

func status(s string) statusBody {
	return statusBody{Status: s}
}

// groupRoot acknowledges a route group, with and without the trailing slash.
func groupRoot(g *echo.Group, name string) {
	h := func(c echo.Context) error {
		return c.JSON(http.StatusOK, status(name))
	}
	g.GET("", h)
	g.GET("/", h)
}
