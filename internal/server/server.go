package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/pageza/mealbyme/backend/config"
	"github.com/pageza/mealbyme/backend/internal/api"
	"github.com/pageza/mealbyme/backend/internal/middleware"
	"github.com/pageza/mealbyme/backend/internal/service"
)

const shutdownTimeout = 10 * time.Second

// Server represents the HTTP server
type Server struct {
	router  *gin.Engine
	http    *http.Server
	sweeper *service.Sweeper
	log     *zap.Logger
}

// New creates a new server instance. sweeper may be nil.
func New(cfg *config.Config, handlers api.Handlers, auth middleware.Authenticator, sweeper *service.Sweeper, log *zap.Logger) *Server {
	router := gin.New()
	router.Use(middleware.RequestLogger(log))
	router.Use(middleware.Recovery(log))
	router.Use(middleware.CORS(cfg.AllowedOrigins))

	api.RegisterRoutes(router, handlers, auth)

	return &Server{
		router: router,
		http: &http.Server{
			Addr:              net.JoinHostPort(cfg.ServerHost, cfg.ServerPort),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		sweeper: sweeper,
		log:     log,
	}
}

// Handler exposes the router, mostly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until SIGINT/SIGTERM, then shuts down gracefully.
func (s *Server) Start() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if s.sweeper != nil {
		go s.sweeper.Run(ctx)
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("server listening", zap.String("addr", s.http.Addr))
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.log.Info("shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return s.Stop(shutdownCtx)
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	if s.http != nil {
		return s.http.Shutdown(ctx)
	}
	return nil
}
