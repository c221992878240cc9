package rpc

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"lendpool/native/lending"
	"lendpool/native/oracle"
	"lendpool/observability"
)

const requestBodyLimit = 1 << 20 // 1 MiB

// Server exposes the lending pool over HTTP.
type Server struct {
	engine  *lending.Engine
	oracle  *oracle.Oracle
	logger  *slog.Logger
	metrics *observability.PoolMetrics
	limiter *rateLimiter
}

// ServerConfig wires the server's collaborators.
type ServerConfig struct {
	Engine  *lending.Engine
	Oracle  *oracle.Oracle
	Logger  *slog.Logger
	Metrics *observability.PoolMetrics

	// RateLimitPerSecond and RateLimitBurst bound oracle submissions per
	// client. Zero disables throttling.
	RateLimitPerSecond float64
	RateLimitBurst     int
}

// NewServer constructs the HTTP surface.
func NewServer(cfg ServerConfig) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	srv := &Server{
		engine:  cfg.Engine,
		oracle:  cfg.Oracle,
		logger:  logger,
		metrics: cfg.Metrics,
	}
	if cfg.RateLimitPerSecond > 0 {
		srv.limiter = newRateLimiter(cfg.RateLimitPerSecond, cfg.RateLimitBurst, srv.metrics)
	}
	return srv
}

// Router assembles the route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(s.observe)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1/lending", func(lr chi.Router) {
		lr.Post("/supply", s.handleSupply)
		lr.Post("/withdraw", s.handleWithdraw)
		lr.Post("/borrow", s.handleBorrow)
		lr.Post("/repay", s.handleRepay)
		lr.Post("/liquidate", s.handleLiquidate)

		lr.Get("/markets", s.handleListMarkets)
		lr.Get("/markets/{asset}", s.handleGetMarket)
		lr.Get("/accounts/{addr}", s.handleGetAccountData)
		lr.Get("/accounts/{addr}/health", s.handleGetHealth)
		lr.Get("/accounts/{addr}/supply/{asset}", s.handleGetSupplyPosition)
		lr.Get("/accounts/{addr}/borrow/{asset}", s.handleGetBorrowPosition)
	})

	r.Route("/v1/oracle", func(or chi.Router) {
		if s.limiter != nil {
			or.With(s.limiter.middleware("oracle.submit")).Post("/rates", s.handleSubmitRate)
			or.With(s.limiter.middleware("oracle.submit")).Post("/rates/batch", s.handleBatchSubmitRates)
		} else {
			or.Post("/rates", s.handleSubmitRate)
			or.Post("/rates/batch", s.handleBatchSubmitRates)
		}
		or.Get("/rates/{asset}", s.handleGetRate)
	})

	r.Route("/v1/admin", func(ar chi.Router) {
		ar.Post("/assets", s.handleConfigureAsset)
		ar.Post("/assets/active", s.handleSetAssetActive)
		ar.Post("/pause", s.handlePause)
		ar.Post("/unpause", s.handleUnpause)
		ar.Post("/submitters", s.handleSetSubmitter)
		ar.Post("/fund", s.handleFund)
	})

	return r
}
