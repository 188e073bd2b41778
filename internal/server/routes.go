package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/danmuck/rsvpctl/internal/agent"
	"github.com/danmuck/rsvpctl/internal/mailbox"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) registerRoutes() {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"uptime":  time.Since(s.appeared).String(),
			"agent":   s.agent.Name(),
			"version": version,
		})
	})

	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	s.router.GET("/status", func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.Query("limit"))
		c.JSON(http.StatusOK, gin.H{
			"status": s.agent.Status(),
			"recent": s.agent.Recent(limit),
		})
	})

	s.router.POST("/submit", s.submit)
	s.router.GET("/mailbox/:address", s.poll)
}

// submit dispatches one envelope through the agent's router. Missing ids and
// timestamps are filled in.
func (s *Server) submit(c *gin.Context) {
	var env mailbox.Envelope
	if err := c.ShouldBindJSON(&env); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if strings.TrimSpace(env.ID) == "" {
		env.ID = uuid.NewString()
	}
	if env.SentAt.IsZero() {
		env.SentAt = time.Now().UTC()
	}

	err := s.agent.Submit(c.Request.Context(), env)
	switch {
	case err == nil:
		c.JSON(http.StatusAccepted, gin.H{"status": "accepted", "id": env.ID})
	case errors.Is(err, agent.ErrRefused):
		c.JSON(http.StatusBadRequest, gin.H{"id": env.ID, "error": err.Error()})
	default:
		c.JSON(http.StatusUnprocessableEntity, gin.H{"status": "failed", "id": env.ID, "error": err.Error()})
	}
}

// poll waits for one envelope addressed to :address. It answers 204 when
// nothing arrives within ?wait (a Go duration, capped by MaxPollWait).
func (s *Server) poll(c *gin.Context) {
	address := c.Param("address")
	wait := s.cfg.DefaultPollWait
	if raw := c.Query("wait"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid wait duration"})
			return
		}
		wait = d
	}
	if wait > s.cfg.MaxPollWait {
		wait = s.cfg.MaxPollWait
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), wait)
	defer cancel()
	ch, err := s.mb.Subscribe(ctx, address)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, mailbox.ErrInvalidAddress) {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	env, ok := <-ch
	if !ok {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, env)
}
