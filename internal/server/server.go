// Package server implements the front door: the single network listener
// that multiplexes health, static, and session-routing requests.
package server

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/switchboard/internal/config"
	"github.com/zulandar/switchboard/internal/pool"
	"gorm.io/gorm"
)

// Router is the supervisor surface the front door consumes. The front
// door never reads or writes slot state directly; everything goes through
// these serialized supervisor calls.
type Router interface {
	Route(req pool.Request) (*pool.Session, error)
	Health() pool.HealthStatus
	Slots() []pool.SlotInfo
}

// StartOpts holds configuration for the front-door server.
type StartOpts struct {
	Config     *config.Config
	Supervisor Router
	DB         *gorm.DB // optional: session listing and SSE feed
	Out        io.Writer
}

// Server carries the handler dependencies.
type Server struct {
	cfg *config.Config
	sup Router
	db  *gorm.DB
}

// Start launches the front-door HTTP server. It blocks until ctx is
// cancelled, then shuts down gracefully. A bind failure is returned to
// the caller, which treats it as fatal.
func Start(ctx context.Context, opts StartOpts) error {
	if opts.Config == nil {
		return fmt.Errorf("server: config is required")
	}
	if opts.Supervisor == nil {
		return fmt.Errorf("server: supervisor is required")
	}

	handler := NewHandler(opts.Config, opts.Supervisor, opts.DB)

	addr := fmt.Sprintf("%s:%d", opts.Config.Server.Host, opts.Config.Server.Port)
	srv := &http.Server{
		Addr:        addr,
		Handler:     handler,
		IdleTimeout: opts.Config.Server.Keepalive(),
	}

	go func() {
		<-ctx.Done()
		srv.Shutdown(context.Background())
	}()

	if opts.Out != nil {
		fmt.Fprintf(opts.Out, "Front door listening on %s (transport: %s)\n", addr, opts.Config.Transport)
	}

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}

// NewHandler builds the gin handler tree. Split out from Start so tests
// can drive it through httptest.
func NewHandler(cfg *config.Config, sup Router, db *gorm.DB) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	s := &Server{cfg: cfg, sup: sup, db: db}
	s.registerRoutes(router)
	return router
}

// detail renders the error shape shared by all 4xx/5xx responses.
func detail(c *gin.Context, code int, msg string) {
	c.JSON(code, gin.H{"detail": msg})
}
