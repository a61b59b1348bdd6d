// Package api serves account lookups and the tracked session over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"net"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Mohsinsiddi/walletdash/internal/chain"
	"github.com/Mohsinsiddi/walletdash/internal/config"
	"github.com/Mohsinsiddi/walletdash/internal/metrics"
	"github.com/Mohsinsiddi/walletdash/internal/storage"
	"github.com/Mohsinsiddi/walletdash/internal/tracker"
)

// ChainReader is the node access the account endpoint needs.
// *chain.Client implements it.
type ChainReader interface {
	GasPrice(ctx context.Context) (*big.Int, error)
	BlockNumber(ctx context.Context) (uint64, error)
	BalanceAt(ctx context.Context, address string) (*chain.Balance, error)
}

// Tracker is the orchestrator surface exposed under /api/session.
type Tracker interface {
	Snapshot() tracker.State
	RefetchBalance()
	RefetchTransactions()
}

// SessionControl connects and disconnects the tracked identity.
// *wallet.Session implements it.
type SessionControl interface {
	Connect(name string) error
	ConnectAddress(address string) error
	Disconnect() error
}

// Deps are the collaborators of a Server. Tracker and Session may be nil, in
// which case the session routes are not mounted.
type Deps struct {
	Chain    ChainReader
	Accounts *storage.AccountStore
	Tracker  Tracker
	Session  SessionControl
	Metrics  *metrics.Metrics
}

// Server is the walletdash HTTP API.
type Server struct {
	cfg    config.ServerConfig
	deps   Deps
	cache  *chainCache
	logger *zap.Logger
	engine *gin.Engine
}

// New builds the router. logger may be nil.
func New(cfg *config.Config, deps Deps, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = config.CacheTTL
	}
	s := &Server{
		cfg:    cfg.Server,
		deps:   deps,
		cache:  newChainCache(deps.Chain, ttl, deps.Metrics),
		logger: logger.Named("api"),
	}
	s.engine = s.routes()
	return s
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.engine }

func (s *Server) routes() *gin.Engine {
	r := gin.New()

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = s.cfg.AllowedOrigins
	if len(corsConfig.AllowOrigins) == 0 {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept"}
	r.Use(cors.New(corsConfig))
	r.Use(zapLogger(s.logger))
	r.Use(gin.Recovery())

	api := r.Group("/api")
	{
		api.GET("/health", s.health)
		api.GET("/account/:address", s.account)
		api.GET("/accounts", s.accounts)
	}
	if s.deps.Tracker != nil {
		sess := api.Group("/session")
		sess.GET("", s.session)
		sess.POST("/refetch/balance", s.refetchBalance)
		sess.POST("/refetch/transactions", s.refetchTransactions)
		if s.deps.Session != nil {
			sess.POST("/connect", s.connect)
			sess.POST("/disconnect", s.disconnect)
		}
	}
	if s.deps.Metrics != nil {
		r.GET("/metrics", gin.WrapH(s.deps.Metrics.Handler()))
	}
	return r
}

// Run listens on the configured address until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:      s.engine,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", zap.String("addr", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
