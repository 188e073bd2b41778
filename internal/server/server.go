// Package server is the HTTP ingress of an agent process.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/danmuck/rsvpctl/internal/agent"
	"github.com/danmuck/rsvpctl/internal/mailbox"
	"github.com/danmuck/rsvpctl/internal/observability"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const version = "0.1.0"

// Config configures the ingress listener.
type Config struct {
	ListenAddr      string
	CORSOrigins     []string
	DefaultPollWait time.Duration
	MaxPollWait     time.Duration
	ShutdownTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		ListenAddr:      "127.0.0.1:8000",
		DefaultPollWait: 10 * time.Second,
		MaxPollWait:     60 * time.Second,
		ShutdownTimeout: 5 * time.Second,
	}
}

// Server exposes one agent over HTTP.
type Server struct {
	cfg      Config
	agent    *agent.Agent
	mb       mailbox.Mailbox
	router   *gin.Engine
	appeared time.Time
}

// New builds the gin engine with logging, metrics and CORS middleware and
// registers every route.
func New(cfg Config, a *agent.Agent, mb mailbox.Mailbox) *Server {
	def := DefaultConfig()
	if cfg.DefaultPollWait <= 0 {
		cfg.DefaultPollWait = def.DefaultPollWait
	}
	if cfg.MaxPollWait <= 0 {
		cfg.MaxPollWait = def.MaxPollWait
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = def.ShutdownTimeout
	}

	observability.RegisterMetrics()
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.IngressLogger(log.Logger))
	r.Use(observability.IngressMetrics(a.Name()))
	r.Use(cors.New(cors.Config{
		AllowOrigins: normalizeOrigins(cfg.CORSOrigins),
		AllowMethods: []string{"GET", "POST"},
		AllowHeaders: []string{"Origin", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	s := &Server{
		cfg:      cfg,
		agent:    a,
		mb:       mb,
		router:   r,
		appeared: time.Now(),
	}
	s.registerRoutes()
	return s
}

func (s *Server) HTTPRouter() *gin.Engine {
	return s.router
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.ListenAddr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", s.cfg.ListenAddr).Str("agent", s.agent.Name()).Msg("ingress listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

func normalizeOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"http://localhost:3000"}
	}
	return origins
}
