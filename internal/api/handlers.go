package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mmynk/gigboard/internal/auth"
	"github.com/mmynk/gigboard/internal/middleware"
	"github.com/mmynk/gigboard/internal/models"
	"github.com/mmynk/gigboard/internal/service"
)

// isoMillis is ISO-8601 in UTC with millisecond precision.
const isoMillis = "2006-01-02T15:04:05.000Z"

type billingEventJSON struct {
	ID         string      `json:"id"`
	Date       string      `json:"date"`
	Amount     json.Number `json:"amount"`
	Status     string      `json:"status"`
	InvoiceURL *string     `json:"invoiceUrl"`
}

func toBillingEventJSON(e models.BillingEvent) billingEventJSON {
	return billingEventJSON{
		ID:         e.ID,
		Date:       e.Date.UTC().Format(isoMillis),
		Amount:     json.Number(e.Amount.StringFixed(2)),
		Status:     string(e.Status),
		InvoiceURL: e.InvoiceURL,
	}
}

type userJSON struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	CreatedAt   string `json:"createdAt"`
}

func toUserJSON(u *models.User) userJSON {
	return userJSON{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		CreatedAt:   time.Unix(u.CreatedAt, 0).UTC().Format(time.RFC3339),
	}
}

type sessionJSON struct {
	User  userJSON `json:"user"`
	Token string   `json:"token"`
}

func (s *Server) handleHealth(c *gin.Context) {
	if err := s.deps.Store.Ping(c.Request.Context()); err != nil {
		s.deps.Logger.Error("Health check failed", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Auth handlers

func (s *Server) setSession(c *gin.Context, session *service.Session) {
	maxAge := int(s.deps.JWT.TokenDuration().Seconds())
	http.SetCookie(c.Writer, auth.SessionCookieFor(session.Token, maxAge, s.deps.SecureCookies))
}

func (s *Server) handleRegister(c *gin.Context) {
	var req struct {
		Email       string `json:"email"`
		DisplayName string `json:"displayName"`
		Password    string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	session, err := s.deps.Auth.Register(c.Request.Context(), req.Email, req.DisplayName, req.Password)
	if err != nil {
		s.fail(c, err)
		return
	}

	s.setSession(c, session)
	c.JSON(http.StatusCreated, sessionJSON{User: toUserJSON(session.User), Token: session.Token})
}

func (s *Server) handleLogin(c *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	session, err := s.deps.Auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		s.fail(c, err)
		return
	}

	s.setSession(c, session)
	c.JSON(http.StatusOK, sessionJSON{User: toUserJSON(session.User), Token: session.Token})
}

// handleLogout clears the session cookie. Tokens are stateless, so bearer
// clients simply discard theirs.
func (s *Server) handleLogout(c *gin.Context) {
	http.SetCookie(c.Writer, auth.SessionCookieFor("", -1, s.deps.SecureCookies))
	c.Status(http.StatusNoContent)
}

func (s *Server) handleMe(c *gin.Context) {
	user, err := s.deps.Auth.Me(c.Request.Context(), middleware.GetUserID(c.Request.Context()))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": toUserJSON(user)})
}

// Billing handlers

func (s *Server) handleBillingHistory(c *gin.Context) {
	ctx := c.Request.Context()
	events, err := s.deps.Billing.History(ctx, middleware.GetUserID(ctx))
	if err != nil {
		s.fail(c, err)
		return
	}

	out := make([]billingEventJSON, len(events))
	for i, e := range events {
		out[i] = toBillingEventJSON(e)
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleCheckout(c *gin.Context) {
	var req struct {
		PriceID string `json:"priceId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	ctx := c.Request.Context()
	url, err := s.deps.Billing.Checkout(ctx, middleware.GetUserID(ctx), req.PriceID)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}

func (s *Server) handlePortal(c *gin.Context) {
	ctx := c.Request.Context()
	url, err := s.deps.Billing.Portal(ctx, middleware.GetUserID(ctx))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}

// Escrow handlers

func (s *Server) handleEscrowRelease(c *gin.Context) {
	var req struct {
		PaymentID string `json:"paymentId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	ctx := c.Request.Context()
	if err := s.deps.Escrow.Release(ctx, middleware.GetUserID(ctx), req.PaymentID); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Usage handlers

func (s *Server) handleUsage(c *gin.Context) {
	ctx := c.Request.Context()
	summary, err := s.deps.Usage.Summary(ctx, middleware.GetUserID(ctx))
	if err != nil {
		s.fail(c, err)
		return
	}

	usage := make(map[string]int64, len(summary.Totals))
	for metric, total := range summary.Totals {
		usage[string(metric)] = total
	}
	c.JSON(http.StatusOK, gin.H{
		"periodStart": summary.PeriodStart.Format(time.RFC3339),
		"usage":       usage,
	})
}
