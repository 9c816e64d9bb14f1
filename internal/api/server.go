// Package api serves the JSON REST endpoints with gin.
package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mmynk/gigboard/internal/auth"
	"github.com/mmynk/gigboard/internal/metrics"
	"github.com/mmynk/gigboard/internal/middleware"
	"github.com/mmynk/gigboard/internal/service"
)

// maxBodySize caps JSON request bodies.
const maxBodySize = 64 << 10 // 64KB

// Pinger reports whether the record store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators the REST server needs.
type Deps struct {
	Auth    *service.AuthService
	Billing *service.BillingService
	Escrow  *service.EscrowService
	Usage   *service.UsageService
	JWT     *auth.JWTManager
	Store   Pinger
	Metrics *metrics.Metrics
	Logger  *slog.Logger

	// SecureCookies marks the session cookie Secure. Enable behind TLS.
	SecureCookies bool
}

// Server is the gigboard REST server.
type Server struct {
	deps   Deps
	router *gin.Engine
}

// NewServer creates the router and registers every route.
func NewServer(deps Deps) *Server {
	router := gin.New()
	router.Use(gin.Recovery(), middleware.AccessLog(deps.Logger, deps.Metrics), limitBody)

	s := &Server{
		deps:   deps,
		router: router,
	}

	// Operational routes
	router.GET("/healthz", s.handleHealth)
	router.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))

	// Public routes
	router.POST("/auth/register", s.handleRegister)
	router.POST("/auth/login", s.handleLogin)
	router.POST("/auth/logout", s.handleLogout)

	// Routes that need a signed-in user
	authed := router.Group("/", middleware.Authenticate(deps.JWT))
	{
		authed.GET("/auth/me", s.handleMe)
		authed.GET("/billing-history", s.handleBillingHistory)
		authed.POST("/billing/checkout", s.handleCheckout)
		authed.POST("/billing/portal", s.handlePortal)
		authed.POST("/escrow/release", s.handleEscrowRelease)
		authed.GET("/usage", s.handleUsage)
	}

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func limitBody(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodySize)
	c.Next()
}
