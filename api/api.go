// Package api exposes the tracker over HTTP.
package api

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/etnz/tracker"
	"github.com/etnz/tracker/chat"
	"github.com/etnz/tracker/metrics"
	"github.com/etnz/tracker/service"
	"github.com/etnz/tracker/store"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Commentator writes the commentary of an investor report.
type Commentator interface {
	Comment(ctx context.Context, name string, s tracker.Summary, rows []tracker.Row) (string, error)
}

// Server holds the dependencies of the HTTP handlers.
type Server struct {
	svc         *service.Service
	hub         *chat.Hub
	metrics     *metrics.Metrics
	token       string
	commentator Commentator
	accessLog   bool
	cancel      func()
}

// Option configures a Server.
type Option func(*Server)

// WithAdminToken requires "Authorization: Bearer <token>" on the API.
func WithAdminToken(token string) Option { return func(s *Server) { s.token = token } }

// WithMetrics serves m on /metrics.
func WithMetrics(m *metrics.Metrics) Option { return func(s *Server) { s.metrics = m } }

// WithCommentator enables the commentary of the reports.
func WithCommentator(c Commentator) Option { return func(s *Server) { s.commentator = c } }

// WithAccessLog logs every request.
func WithAccessLog() Option { return func(s *Server) { s.accessLog = true } }

// New creates the server. Messages of svc are pushed to the websocket clients
// until Close is called.
func New(svc *service.Service, opts ...Option) *Server {
	s := &Server{svc: svc}
	for _, opt := range opts {
		opt(s)
	}
	s.hub = chat.NewHub(s.metrics)
	s.cancel = svc.Subscribe("", func(m tracker.Message) { s.hub.Notify(m) })
	return s
}

// Close disconnects the websocket clients.
func (s *Server) Close() {
	s.cancel()
	s.hub.Close()
}

// Handler returns the routes.
func (s *Server) Handler() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if s.accessLog {
		r.Use(gin.Logger())
	}

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "OK"}) })
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.metrics.Registry(), promhttp.HandlerOpts{})))
	r.GET("/ws", s.auth(), s.socket)

	v1 := r.Group("/api/v1", s.auth())

	v1.GET("/performance", s.listEntries)
	v1.POST("/performance", s.addEntry)
	v1.PUT("/performance/:id", s.updateEntry)
	v1.DELETE("/performance/:id", s.deleteEntry)
	v1.GET("/summary", s.summary)
	v1.GET("/settings/starting-balance", s.startingBalance)
	v1.PUT("/settings/starting-balance", s.setStartingBalance)

	v1.GET("/investors", s.listInvestors)
	v1.POST("/investors", s.addInvestor)
	v1.GET("/overview", s.overview)
	v1.GET("/investors/:id", s.getInvestor)
	v1.PUT("/investors/:id", s.updateInvestor)
	v1.DELETE("/investors/:id", s.deleteInvestor)
	v1.GET("/investors/:id/performance", s.listInvestorEntries)
	v1.POST("/investors/:id/performance", s.addInvestorEntry)
	v1.PUT("/investors/:id/performance/:entryId", s.updateInvestorEntry)
	v1.DELETE("/investors/:id/performance/:entryId", s.deleteInvestorEntry)
	v1.GET("/investors/:id/summary", s.investorSummary)
	v1.GET("/investors/:id/report", s.investorReport)

	v1.GET("/conversations", s.listConversations)
	v1.GET("/conversations/:investorId/messages", s.listMessages)
	v1.POST("/conversations/:investorId/messages", s.sendMessage)
	v1.POST("/conversations/:investorId/read", s.markRead)
	return r
}

// auth checks the bearer token, also accepted as a "token" query parameter
// for browsers opening websockets.
func (s *Server) auth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.token == "" {
			c.Next()
			return
		}
		got := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		if got == "" {
			got = c.Query("token")
		}
		if subtle.ConstantTimeCompare([]byte(got), []byte(s.token)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}

// fail writes err with the status matching its kind.
func fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, tracker.ErrDuplicateMonth):
		status = http.StatusConflict
	case errors.Is(err, tracker.ErrEntryNotFound), errors.Is(err, tracker.ErrInvestorNotFound), errors.Is(err, store.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, tracker.ErrInvalid):
		status = http.StatusBadRequest
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}
