package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"provisiond/internal/config"
	"provisiond/internal/domain"
	"provisiond/internal/infra/db"
	"provisiond/internal/usecase"

	"github.com/flashbots/go-utils/httplogger"
	"github.com/gin-gonic/gin"
	"go.uber.org/atomic"
)

const maxRequestBytes = 4 << 20

type Server struct {
	cfg     config.Config
	store   *db.Store
	r       *gin.Engine
	log     *slog.Logger
	isReady atomic.Bool
	srv     *http.Server

	communities   domain.Communities
	admission     *usecase.AdmissionLimiter
	secrets       *usecase.SecretVerifier
	allocator     *usecase.Allocator
	registrations *usecase.Orchestrator
	deprovisioner *usecase.Deprovisioner
	profiles      *usecase.ProfileService
	adminQueries  *usecase.AdminQueries

	adminAPIKey   string
	authenticator domain.Authenticator
	authorizer    domain.Authorizer
	metrics       http.Handler
}

type ServerDeps struct {
	Store         *db.Store
	Logger        *slog.Logger
	Admission     *usecase.AdmissionLimiter
	Secrets       *usecase.SecretVerifier
	Allocator     *usecase.Allocator
	Registrations *usecase.Orchestrator
	Deprovisioner *usecase.Deprovisioner
	Profiles      *usecase.ProfileService
	AdminQueries  *usecase.AdminQueries
	Authenticator domain.Authenticator
	Authorizer    domain.Authorizer
	Metrics       http.Handler
}

func NewServer(cfg config.Config, deps ServerDeps) *Server {
	r := gin.New()
	r.Use(gin.Recovery())

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:           cfg,
		store:         deps.Store,
		r:             r,
		log:           logger,
		communities:   cfg.Communities,
		admission:     deps.Admission,
		secrets:       deps.Secrets,
		allocator:     deps.Allocator,
		registrations: deps.Registrations,
		deprovisioner: deps.Deprovisioner,
		profiles:      deps.Profiles,
		adminQueries:  deps.AdminQueries,
		adminAPIKey:   cfg.AdminAPIKey,
		authenticator: deps.Authenticator,
		authorizer:    deps.Authorizer,
		metrics:       deps.Metrics,
	}
	s.isReady.Store(true)
	s.routes()
	s.srv = &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) routes() {
	s.r.GET("/healthz", s.handleHealth)
	s.r.GET("/readyz", s.handleReady)
	if s.metrics != nil {
		s.r.GET("/metrics", gin.WrapH(s.metrics))
	}

	v1 := s.r.Group("/v1")
	{
		v1.POST("/secrets/verify", s.handleVerifySecret)
		v1.POST("/usernames/check", s.handleCheckUsername)
		v1.POST("/usernames/derive", s.handleDeriveUsername)
		v1.POST("/registrations", s.handleRegister)
		v1.GET("/profile", s.handleGetProfile)
		v1.PATCH("/profile", s.handleUpdateProfile)
	}

	admin := v1.Group("/admin")
	{
		admin.GET("/secrets", s.handleListSecrets)
		admin.POST("/secrets/:type/rotate", s.handleRotateSecret)
		admin.GET("/accounts", s.handleListAccounts)
		admin.DELETE("/accounts/:id", s.handleDeleteAccount)
		admin.GET("/audit", s.handleListAudit)
	}

	s.r.NoRoute(func(c *gin.Context) {
		writeErrorCode(c, http.StatusNotFound, "NOT_FOUND", "route not found")
	})
}

// Handler is the gin engine wrapped with access logging.
func (s *Server) Handler() http.Handler {
	return httplogger.LoggingMiddlewareSlog(s.log, http.MaxBytesHandler(s.r, maxRequestBytes))
}

func (s *Server) handleHealth(c *gin.Context) {
	mode := "no-db"
	if s.store != nil && s.store.DB != nil {
		mode = "db"
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "mode": mode})
}

func (s *Server) handleReady(c *gin.Context) {
	if !s.isReady.Load() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready"})
		return
	}
	if s.store != nil && s.store.DB != nil {
		if err := s.store.Ping(c.Request.Context()); err != nil {
			s.log.Warn("readiness check failed", "err", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "database unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

func (s *Server) RunInBackground() {
	go func() {
		s.log.Info("Starting HTTP server", "listenAddress", s.cfg.HTTPAddr)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("HTTP server failed", "err", err)
		}
	}()
}

// Shutdown marks the server not ready and drains in-flight requests.
func (s *Server) Shutdown() {
	s.isReady.Store(false)
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := s.srv.Shutdown(ctx); err != nil {
		s.log.Error("Graceful HTTP server shutdown failed", "err", err)
		return
	}
	s.log.Info("HTTP server gracefully stopped")
}
