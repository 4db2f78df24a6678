// Package server exposes the read API: organizations, ledger queries,
// mirror audit records, risk opinions, and buyer hunts. Writes happen
// through the batch pipeline only; the API never mutates.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/tradescope/internal/config"
	"github.com/sells-group/tradescope/internal/db"
	"github.com/sells-group/tradescope/internal/hunter"
	"github.com/sells-group/tradescope/internal/identity"
	"github.com/sells-group/tradescope/internal/risk"
)

// Server wires the HTTP API to the store.
type Server struct {
	pool     db.Pool
	cfg      config.ServerConfig
	resolver *identity.Resolver
	risks    *risk.Store
	hunter   *hunter.Hunter
}

// New builds a server over a pool. hunterCfg carries the scoring policy the
// hunt endpoint applies.
func New(pool db.Pool, cfg config.ServerConfig, hunterCfg config.HunterConfig) *Server {
	return &Server{
		pool:     pool,
		cfg:      cfg,
		resolver: identity.NewResolver(pool),
		risks:    risk.NewStore(pool),
		hunter:   hunter.New(pool, hunterCfg),
	}
}

// Router assembles the chi route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
	if s.cfg.RatePerSecond > 0 {
		r.Use(rateLimit(s.cfg.RatePerSecond, s.cfg.RateBurst))
	}

	r.Get("/healthz", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/organizations/{id}", s.handleGetOrganization)
		r.Get("/transactions", s.handleListTransactions)
		r.Get("/mirror-matches/{exportID}", s.handleGetMirrorMatch)
		r.Get("/risk/{entityType}/{entityID}", s.handleGetRisk)
		r.Post("/hunt", s.handleHunt)
	})

	return r
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Port),
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zap.L().Info("api listening", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return eris.Wrap(err, "server: listen")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return eris.Wrap(err, "server: shutdown")
	}
	return nil
}
