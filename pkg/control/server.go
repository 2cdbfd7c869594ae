// Package control exposes the battle over a small local HTTP API so it can
// be driven by scripts while the window or headless front end runs.
package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/zurustar/beatbrawl/pkg/battle"
	"github.com/zurustar/beatbrawl/pkg/logger"
)

// shutdownTimeout bounds graceful shutdown.
const shutdownTimeout = 2 * time.Second

// Battle is the part of battle.Battle the API drives.
type Battle interface {
	Toggle()
	PressPlayer()
	Status() battle.Status
}

// Server serves the control API.
type Server struct {
	battle Battle
	log    *slog.Logger
	engine *gin.Engine
	srv    *http.Server
}

// NewServer builds the routes. Nothing listens until Start.
func NewServer(b Battle, log *slog.Logger) *Server {
	if log == nil {
		log = logger.Discard()
	}
	gin.SetMode(gin.ReleaseMode)

	s := &Server{battle: b, log: log}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(s.logRequests)

	api := r.Group("/api")
	api.GET("/status", s.getStatus)
	api.POST("/playback/toggle", s.toggle)
	api.POST("/press", s.press)

	s.engine = r
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start listens on addr and serves until ctx is done. It returns once the
// listener is bound; the returned address is the actual one (for ":0").
func (s *Server) Start(ctx context.Context, addr string) (string, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return "", fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	s.srv = &http.Server{Handler: s.engine, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("Control server stopped", "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = s.srv.Shutdown(shutdownCtx)
	}()

	bound := ln.Addr().String()
	s.log.Info("Control server listening", "addr", bound)
	return bound, nil
}

func (s *Server) logRequests(c *gin.Context) {
	start := time.Now()
	c.Next()
	s.log.Debug("Control request",
		"method", c.Request.Method,
		"path", c.FullPath(),
		"status", c.Writer.Status(),
		"elapsed", time.Since(start))
}

func (s *Server) getStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.battle.Status())
}

func (s *Server) toggle(c *gin.Context) {
	st := s.battle.Status()
	if !st.Ready {
		c.JSON(http.StatusConflict, gin.H{"error": "score is still loading"})
		return
	}
	s.battle.Toggle()
	c.JSON(http.StatusOK, s.battle.Status())
}

func (s *Server) press(c *gin.Context) {
	s.battle.PressPlayer()
	c.JSON(http.StatusOK, s.battle.Status())
}
